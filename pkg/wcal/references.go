package wcal

import(
	"github.com/wallcal/wallcal/pkg/wcolor"
	"github.com/wallcal/wallcal/pkg/wmath"
)

// BuildReferenceSet reconstructs the values the calibration pattern
// drove into the wall, in the wall's target space. Primaries and grey
// sit at 18% of peak so they land mid-exposure; the Macbeth chart is
// scaled so its white is at peak.
func BuildReferenceSet(w WallSettings) (ReferenceSet, error) {
	peakLum := w.PeakNits * 0.01
	p18 := peakLum * 0.18

	primaries := []wmath.Vec3{
		{p18, 0, 0},
		{0, p18, 0},
		{0, 0, p18},
	}
	desat := SaturateRGB(primaries, w.PrimariesSaturation)

	macbeth, err := MacbethReference(w.Target, wcolor.CATBradford, peakLum)
	if err != nil {
		return ReferenceSet{}, err
	}

	signals := GreySignals(w.PeakNits, w.NumGreyPatches)
	ramp := make([]wmath.Vec3, len(signals))
	for i, s := range signals {
		ramp[i] = wmath.Vec3{s, s, s}
	}

	return ReferenceSet{
		DesatPrimaries: [3]wmath.Vec3{desat[0], desat[1], desat[2]},
		Grey18:         wmath.Vec3{p18, p18, p18},
		Macbeth:        macbeth,
		Ramp:           ramp,
		RampSignals:    signals,
	}, nil
}

// DeltaEReport carries the perceptual error of each patch group,
// measured against what was driven. Values are ITP deltaE on the 240
// scale, where 1 is roughly a just noticeable difference... 2 is the
// conventional acceptance threshold.
type DeltaEReport struct {
	RGBW    [4]float64 // desaturated R, G, B then white
	Ramp    []float64
	Macbeth []float64
}

// PassRate is the fraction of patches, across every group, whose
// error is at or under jnd.
func (r DeltaEReport)PassRate(jnd float64) float64 {
	pass, total := 0, 0
	count := func(d float64) {
		total++
		if d <= jnd {
			pass++
		}
	}
	for _, d := range r.RGBW {
		count(d)
	}
	for _, d := range r.Ramp {
		count(d)
	}
	for _, d := range r.Macbeth {
		count(d)
	}
	if total == 0 {
		return 1.0
	}
	return float64(pass) / float64(total)
}

// AnalyzeDeltaE compares measured samples (camera native gamut)
// against the reference set (target space). References are brought
// into the camera gamut so both sides go through the same ICtCp
// transform. The ramp comparison uses the green channel alone, so a
// white balance error does not masquerade as a linearity error.
func AnalyzeDeltaE(measured SampleSet, ref ReferenceSet, w WallSettings) (DeltaEReport, error) {
	targetToCamera, err := wcolor.MatrixBetween(w.Target, w.Camera, wcolor.CATNone)
	if err != nil {
		return DeltaEReport{}, err
	}

	report := DeltaEReport{}

	mRGBW, rRGBW := measured.RGBW(), ref.RGBW()
	for i := range mRGBW {
		report.RGBW[i] = deltaE(mRGBW[i], targetToCamera.Apply(rRGBW[i]))
	}

	report.Ramp = make([]float64, len(measured.Ramp))
	for i, v := range measured.Ramp {
		g := wmath.Vec3{v[1], v[1], v[1]}
		report.Ramp[i] = deltaE(g, targetToCamera.Apply(ref.Ramp[i]))
	}

	report.Macbeth = make([]float64, len(measured.Macbeth))
	for i, v := range measured.Macbeth {
		report.Macbeth[i] = deltaE(v, targetToCamera.Apply(ref.Macbeth[i]))
	}

	return report, nil
}

// deltaE moves ITP's native 720 scale down to 240, per
// https://www.portrait.com/resource-center/ictcp-color-difference-metric/
func deltaE(a, b wmath.Vec3) float64 {
	return wcolor.DeltaEITP(a, b) / 3.0
}
