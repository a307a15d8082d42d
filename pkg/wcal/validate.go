package wcal

import(
	"fmt"
	"math"

	"github.com/codahale/hdrhistogram"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/wallcal/wallcal/pkg/wcolor"
)

type CheckStatus int

const(
	StatusPass CheckStatus = iota
	StatusWarn
	StatusFail
)

func (s CheckStatus)String() string {
	switch s {
	case StatusWarn: return "WARN"
	case StatusFail: return "FAIL"
	}
	return "PASS"
}

type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
}

func (c CheckResult)String() string {
	if c.Message == "" {
		return fmt.Sprintf("[%s] %s", c.Status, c.Name)
	}
	return fmt.Sprintf("[%s] %s: %s", c.Status, c.Name, c.Message)
}

// deltaEJND: one just noticeable difference on the 240 ITP scale is
// 1; 2 is the conventional acceptance threshold. Group errors past
// deltaEHardFail fail the wall outright.
const(
	deltaEJND      = 2.0
	deltaEHardFail = 6.0
)

// Validate runs every plausibility check over a finished calibration
// and returns one result per check. The overall verdict is the worst
// individual status.
func Validate(r *Results, w WallSettings) []CheckResult {
	return []CheckResult{
		checkExposure(r),
		checkMeasuredPeak(r, w),
		checkMaxWhite(r),
		checkRampDeltaE(r),
		checkRampClamping(r),
		checkGamutDeltaE(r),
		checkDeltaEDistribution(r),
		checkPostDeltaE(r),
	}
}

// Verdict folds check results into a single status.
func Verdict(checks []CheckResult) CheckStatus {
	worst := StatusPass
	for _, c := range checks {
		if c.Status > worst {
			worst = c.Status
		}
	}
	return worst
}

// The 18% patch should measure at 0.18; the outer band is a quarter
// stop either way, the inner band a tenth of a stop.
func checkExposure(r *Results) CheckResult {
	c := CheckResult{Name: "plate exposure"}
	v := r.Measured18Percent

	switch {
	case v < 0.144 || v > 0.225:
		c.Status = StatusFail
		c.Message = fmt.Sprintf("18%% grey measured at %.1f%%; re-expose the plate using false colour or a meter", v*100)
	case v < 0.163 || v > 0.198:
		c.Status = StatusWarn
		c.Message = fmt.Sprintf("18%% grey measured at %.1f%%; exposure is off by more than a tenth of a stop", v*100)
	}
	return c
}

func checkMeasuredPeak(r *Results, w WallSettings) CheckResult {
	c := CheckResult{Name: "measured peak vs target peak"}

	// Exposure normalization pins green to the target, so blue is
	// where a residual peak error shows up.
	measured := r.MeasuredPeak[2]
	delta := math.Abs(measured-w.PeakNits) / w.PeakNits

	switch {
	case delta > 0.1:
		c.Status = StatusFail
		c.Message = fmt.Sprintf("measured peak %.0f nits deviates from target %.0f nits by %.1f%%; check the imaging chain and re-shoot",
			measured, w.PeakNits, delta*100)
	case delta > 0.05:
		c.Status = StatusWarn
		c.Message = fmt.Sprintf("measured peak %.0f nits deviates from target %.0f nits by %.1f%%", measured, w.PeakNits, delta*100)
	}
	return c
}

func checkMaxWhite(r *Results) CheckResult {
	c := CheckResult{Name: "max white vs ramp peak"}
	if math.Abs(math.Abs(r.MaxWhiteDelta)-1.0) > 0.1 {
		c.Status = StatusFail
		c.Message = fmt.Sprintf("max white is %.2fx the last ramp step; the configured peak luminance likely does not match the wall", r.MaxWhiteDelta)
	}
	return c
}

// The upper two thirds of the ramp (black excluded) should track the
// target curve; a large average error means the wall response is off
// in a way no 1D correction fixes cleanly.
func checkRampDeltaE(r *Results) CheckResult {
	c := CheckResult{Name: "ramp deltaE"}

	deltaEs := r.DeltaE.Ramp
	if len(deltaEs) < 3 {
		return c
	}
	from := len(deltaEs) / 3
	valid := deltaEs[from : len(deltaEs)-1]

	total := 0.0
	for _, d := range valid {
		total += d
	}
	if avg := total / float64(len(valid)); avg > 5 {
		c.Status = StatusFail
		c.Message = fmt.Sprintf("average ramp deltaE %.1f; check the imaging chain from content engine to LED processor and re-shoot", avg)
	}
	return c
}

// clampSampleCount of near-equal samples at the top of the ramp mean
// the wall or processor is clipping before the configured peak.
const clampSampleCount = 4

func checkRampClamping(r *Results) CheckResult {
	c := CheckResult{Name: "ramp clamping"}
	if len(r.PreRamp) < clampSampleCount {
		return c
	}
	last := r.PreRamp[len(r.PreRamp)-clampSampleCount:]

	for ch, name := range []string{"red", "green", "blue"} {
		tooClose := false
		for i := 0; i < len(last) && !tooClose; i++ {
			for j := i + 1; j < len(last); j++ {
				if math.Abs(last[i][ch]-last[j][ch]) <= 0.01 {
					tooClose = true
					break
				}
			}
		}
		if tooClose {
			c.Status = StatusFail
			c.Message += fmt.Sprintf("last %d ramp samples in %s are nearly equal, suggesting clamping; ", clampSampleCount, name)
		}
	}
	return c
}

func checkGamutDeltaE(r *Results) CheckResult {
	c := CheckResult{Name: "gamut deltaE"}

	needsCalibration := false
	for _, d := range r.DeltaE.RGBW {
		if d > 3 {
			needsCalibration = true
			break
		}
	}
	if !needsCalibration {
		c.Status = StatusWarn
		c.Message = fmt.Sprintf("wall is within a perceivable tolerance as shot (white %s); calibration may not be needed",
			swatchHex(r.Screen.White))
	}
	return c
}

// checkDeltaEDistribution summarizes every patch error in one place.
// The histogram records centi-deltaE so two decimal places survive
// the integer buckets.
func checkDeltaEDistribution(r *Results) CheckResult {
	c := CheckResult{Name: "deltaE distribution"}

	hist := hdrhistogram.New(0, 100000, 3)
	for _, d := range r.DeltaE.RGBW {
		hist.RecordValue(centiDeltaE(d))
	}
	for _, d := range r.DeltaE.Macbeth {
		hist.RecordValue(centiDeltaE(d))
	}

	p50 := float64(hist.ValueAtQuantile(50)) / 100.0
	p95 := float64(hist.ValueAtQuantile(95)) / 100.0
	max := float64(hist.Max()) / 100.0

	c.Message = fmt.Sprintf("pre-calibration deltaE p50 %.2f, p95 %.2f, max %.2f; %.0f%% of patches within JND %.1f",
		p50, p95, max, r.DeltaE.PassRate(deltaEJND)*100, deltaEJND)
	if p95 > 2*deltaEJND {
		c.Status = StatusWarn
	}
	return c
}

// checkPostDeltaE judges the wall with the solved bundle in the
// chain, per patch group: every group under the JND passes, anything
// past the hard-fail threshold means the solve could not pull the
// wall in.
func checkPostDeltaE(r *Results) CheckResult {
	c := CheckResult{Name: "post-calibration deltaE"}

	groups := []struct {
		name   string
		deltas []float64
	}{
		{"primaries", r.DeltaEPost.RGBW[:]},
		{"greys", r.DeltaEPost.Ramp},
		{"macbeth", r.DeltaEPost.Macbeth},
	}

	for _, g := range groups {
		worst := 0.0
		for _, d := range g.deltas {
			if d > worst {
				worst = d
			}
		}
		switch {
		case worst > deltaEHardFail:
			c.Status = StatusFail
			c.Message += fmt.Sprintf("%s deltaE %.1f exceeds %.1f after calibration; ", g.name, worst, deltaEHardFail)
		case worst > deltaEJND && c.Status == StatusPass:
			c.Status = StatusWarn
		}
	}

	if c.Message == "" {
		c.Message = fmt.Sprintf("%.0f%% of patches within JND %.1f; max out-of-gamut distance %.4f",
			r.DeltaEPost.PassRate(deltaEJND)*100, deltaEJND, r.MaxGamutDistance)
	}
	return c
}

func centiDeltaE(d float64) int64 {
	if d < 0 {
		return 0
	}
	return int64(math.Round(d * 100))
}

// swatchHex renders a chromaticity as an sRGB hex code for report
// readability.
func swatchHex(xy wcolor.XY) string {
	inv, err := wcolor.SRGB.InverseNPM()
	if err != nil {
		return "#??????"
	}
	rgb := inv.Apply(wcolor.XYToXYZ(xy))
	rgb.FloorAt(0)
	if max := rgb.Max(); max > 0 {
		rgb = rgb.Scale(1.0 / max)
	}
	return colorful.LinearRgb(rgb[0], rgb[1], rgb[2]).Clamped().Hex()
}
