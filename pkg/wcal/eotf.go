package wcal

import(
	"log"
	"math"

	"github.com/wallcal/wallcal/pkg/wcolor"
	"github.com/wallcal/wallcal/pkg/wmath"
)

// GreySignals returns the signal values driven into the wall for the
// grey ramp: numGreyPatches+1 steps from black to peak, spaced evenly
// in PQ so the perceptually interesting low end gets most of the
// samples. Values are linear light, 1.0 == 100 nits.
func GreySignals(peakNits float64, numGreyPatches int) []float64 {
	signals := make([]float64, numGreyPatches+1)
	maxPQ := wcolor.NitsToPQ(peakNits)
	for i := range signals {
		pq := maxPQ * float64(i) / float64(numGreyPatches)
		signals[i] = wcolor.PQToNits(pq) * 0.01
	}
	return signals
}

// EOTFCorrection holds the per-channel curves that map a measured
// screen value back to the signal that should have produced it.
type EOTFCorrection struct {
	Red   wmath.Curve1D
	Green wmath.Curve1D
	Blue  wmath.Curve1D

	Rejected int // ramp samples tossed during the fit

	// Repairs lists channels whose measured ramp was not monotonic
	// and had to be clamped; recoverable, but worth surfacing.
	Repairs []NonMonotonicCurveError
}

func (e EOTFCorrection)IsEmpty() bool {
	return e.Red.IsEmpty() && e.Green.IsEmpty() && e.Blue.IsEmpty()
}

// Apply runs each channel through its correction curve.
func (e EOTFCorrection)Apply(rgb wmath.Vec3) wmath.Vec3 {
	return wmath.Vec3{e.Red.Eval(rgb[0]), e.Green.Eval(rgb[1]), e.Blue.Eval(rgb[2])}
}

// nearDuplicateEpsilon: consecutive ramp samples closer than this on
// all channels carry no slope information, drop one.
const nearDuplicateEpsilon = 0.001

// SolveEOTFCorrection fits the correction curves from the measured
// grey ramp. rampScreen is the ramp as it landed on screen, signals
// are the values that were driven, deltaEs are per-sample errors used
// to toss outliers above deltaEThreshold. The first knot is pinned to
// (0,0): if the wall's black is a mess the fit should not chase it.
//
// When avoidClipping is set and any channel's measured peak exceeds
// peakLum (1.0 == 100 nits), all three curves' inputs are scaled down
// together so the corrected output stays displayable.
func SolveEOTFCorrection(rampScreen []wmath.Vec3, signals []float64, deltaEs []float64,
	avoidClipping bool, peakLum, deltaEThreshold float64) (EOTFCorrection, error) {

	n := len(rampScreen)
	if n < 2 || len(signals) != n || len(deltaEs) != n {
		return EOTFCorrection{}, TooManySamplesRejectedError{Rejected: 0, Total: n}
	}

	var red, green, blue []wmath.Knot
	rejected := 0
	for i, measured := range rampScreen {
		measured.FloorAt(0)

		if i+1 < n {
			next := rampScreen[i+1]
			d := measured.Sub(next)
			if math.Abs(d[0]) < nearDuplicateEpsilon &&
				math.Abs(d[1]) < nearDuplicateEpsilon &&
				math.Abs(d[2]) < nearDuplicateEpsilon {
				rejected++
				continue
			}
		}
		if deltaEs[i] > deltaEThreshold {
			rejected++
			continue
		}

		red = append(red, wmath.Knot{In: measured[0], Out: signals[i]})
		green = append(green, wmath.Knot{In: measured[1], Out: signals[i]})
		blue = append(blue, wmath.Knot{In: measured[2], Out: signals[i]})
	}

	if rejected >= n/3 {
		return EOTFCorrection{}, TooManySamplesRejectedError{Rejected: rejected, Total: n}
	}

	if rejected > 0 {
		red = append([]wmath.Knot{{}}, red...)
		green = append([]wmath.Knot{{}}, green...)
		blue = append([]wmath.Knot{{}}, blue...)
	} else {
		red[0], green[0], blue[0] = wmath.Knot{}, wmath.Knot{}, wmath.Knot{}
	}

	corr := EOTFCorrection{
		Red:      wmath.Curve1D{Knots: red},
		Green:    wmath.Curve1D{Knots: green},
		Blue:     wmath.Curve1D{Knots: blue},
		Rejected: rejected,
	}

	if avoidClipping {
		maxPeak := math.Max(corr.Red.MaxInput(), math.Max(corr.Green.MaxInput(), corr.Blue.MaxInput()))
		if maxPeak > peakLum {
			scale := peakLum / maxPeak
			corr.Red.ScaleInputs(scale)
			corr.Green.ScaleInputs(scale)
			corr.Blue.ScaleInputs(scale)
		}
	}

	channels := []struct {
		name  string
		curve *wmath.Curve1D
	}{{"red", &corr.Red}, {"green", &corr.Green}, {"blue", &corr.Blue}}
	for _, ch := range channels {
		if ch.curve.MakeMonotonic() {
			repair := NonMonotonicCurveError{Channel: ch.name}
			corr.Repairs = append(corr.Repairs, repair)
			log.Printf("EOTF correction: %v", repair)
		}
	}

	return corr, nil
}

// EOTFLinearity returns, per ramp step, the ratio of each measured
// channel to the signal that was driven; 1.0 everywhere means the
// wall tracks the target curve exactly. A zero signal passes the
// measurement through so black stays comparable.
func EOTFLinearity(signals []float64, ramp []wmath.Vec3) []wmath.Vec3 {
	out := make([]wmath.Vec3, len(ramp))
	for i, v := range ramp {
		s := signals[i]
		if s == 0 {
			out[i] = v
			continue
		}
		out[i] = wmath.Vec3{v[0] / s, v[1] / s, v[2] / s}
	}
	return out
}

// RampIsLinear reports whether every non-black ramp step tracks its
// signal within tolerance on all channels.
func RampIsLinear(signals []float64, ramp []wmath.Vec3, tolerance float64) bool {
	for i, ratios := range EOTFLinearity(signals, ramp) {
		if signals[i] == 0 {
			continue
		}
		for ch := 0; ch < 3; ch++ {
			if math.Abs(ratios[ch]-1.0) > tolerance {
				return false
			}
		}
	}
	return true
}

// rampContinuityLimit: a mean step this big between the final two
// ramp samples can only mean the sampler ran off the end of the ramp.
const rampContinuityLimit = 0.6

// CheckRampContinuity guards against sync failures that make the last
// ramp sample land on whatever followed the ramp in the sequence.
func CheckRampContinuity(ramp []wmath.Vec3) error {
	if len(ramp) < 2 {
		return nil
	}
	last := ramp[len(ramp)-1].Mean()
	nextToLast := ramp[len(ramp)-2].Mean()
	if delta := math.Abs(last - nextToLast); delta > rampContinuityLimit {
		return RampDiscontinuityError{Delta: delta}
	}
	return nil
}
