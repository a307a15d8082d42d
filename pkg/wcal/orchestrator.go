package wcal

import(
	"fmt"
	"log"

	"github.com/wallcal/wallcal/pkg/wcolor"
	"github.com/wallcal/wallcal/pkg/wmath"
)

// Results is everything a calibration run produces: the transforms to
// put in the imaging chain plus the measurements backing them. A run
// either fills all of this in or returns an error; there are no
// partial results.
type Results struct {
	Wall  string
	Order CalculationOrder // the order actually used, never OrderAuto

	WhiteBalance       wmath.Mat3
	CameraWhiteBalance wmath.Mat3 // expressed in target space
	TargetToScreen     wmath.Mat3
	EOTF               EOTFCorrection
	ReferenceToTarget  wmath.Mat3

	Compression        wcolor.Compression
	CompressionEnabled bool

	Screen           wcolor.Gamut
	CalibratedScreen wcolor.Gamut

	ExposureScaling   float64
	Measured18Percent float64
	MaxWhiteDelta     float64
	MeasuredPeak      wmath.Vec3 // nits, per channel, last ramp step
	ClipScale         float64

	DeltaE        DeltaEReport
	DeltaEPost    DeltaEReport // same samples, solved bundle in the chain
	EOTFLinearity []wmath.Vec3
	RampLinear    bool

	// MaxGamutDistance is the furthest any measured patch sits outside
	// the target gamut, in xy chromaticity units.
	MaxGamutDistance float64

	PreRamp  []wmath.Vec3 // measured ramp, camera native, before correction
	PostRamp []wmath.Vec3 // same ramp with the solved transforms applied

	Reference ReferenceSet
	Warnings  []string
}

// Calibrate runs the full solve for one wall. The sample set is in
// the wall's input plate gamut. externalWB, when non-nil, replaces
// the wall's own white balance solve; that is how a wall is matched
// to a reference wall.
func Calibrate(set SampleSet, w WallSettings, externalWB *wmath.Mat3) (*Results, error) {
	if err := CheckRampContinuity(set.Ramp); err != nil {
		return nil, err
	}
	if len(set.Ramp) != w.NumGreyPatches+1 {
		return nil, PatchCountError{Got: len(set.Ramp), Want: w.NumGreyPatches + 1}
	}

	r := &Results{Wall: w.Name, ClipScale: 1.0}

	// Normalize the plate into the reference space so everything
	// downstream has one starting point.
	if w.InputPlate.Name != w.Reference.Name {
		plateToRef, err := wcolor.MatrixBetween(w.InputPlate, w.Reference, wcolor.CATNone)
		if err != nil {
			return nil, err
		}
		set = set.Transform(plateToRef)
	}

	camCAT := w.CameraConversionCAT()
	refToCamera, err := wcolor.MatrixBetween(w.Reference, w.Camera, camCAT)
	if err != nil {
		return nil, err
	}
	set = set.Transform(refToCamera)

	// White balance: a decoupled lens sample wins over the plate
	// solve, and an external matrix from a reference wall wins over
	// both.
	wb := wmath.Identity()
	if set.DecoupledLensWhite != nil {
		if wb, err = SolveDecoupledWhiteBalance(set.Grey18, *set.DecoupledLensWhite); err != nil {
			return nil, err
		}
	} else if w.WhiteBalanceEnabled() {
		if wb, err = SolveWhiteBalance(set.Grey18); err != nil {
			return nil, err
		}
	}
	if externalWB != nil {
		wb = *externalWB
	}
	r.WhiteBalance = wb
	set = set.Transform(wb)

	ref, err := BuildReferenceSet(w)
	if err != nil {
		return nil, err
	}
	r.Reference = ref

	referenceToTarget, err := wcolor.MatrixBetween(w.Reference, w.Target, w.ReferenceToTargetCAT)
	if err != nil {
		return nil, err
	}
	r.ReferenceToTarget = referenceToTarget

	// 18% exposure is judged before exposure normalization; the whole
	// point of the check is to catch a mis-exposed plate.
	r.Measured18Percent = set.Grey18[1]

	peakLum := w.PeakNits * 0.01
	lastGreen := set.Ramp[len(set.Ramp)-1][1]
	if lastGreen <= 0 {
		return nil, fmt.Errorf("last grey ramp sample has green %g; cannot normalize exposure", lastGreen)
	}
	r.MaxWhiteDelta = set.MaxWhite[1] / lastGreen
	r.ExposureScaling = lastGreen / peakLum
	set = set.Scale(1.0 / r.ExposureScaling)

	r.MeasuredPeak = set.Ramp[len(set.Ramp)-1].Scale(100.0)
	r.PreRamp = append([]wmath.Vec3{}, set.Ramp...)

	if r.DeltaE, err = AnalyzeDeltaE(set, ref, w); err != nil {
		return nil, err
	}
	if r.MaxGamutDistance, err = MaxGamutDistance(set, w); err != nil {
		return nil, err
	}

	r.EOTFLinearity = EOTFLinearity(ref.RampSignals, set.Ramp)
	r.RampLinear = RampIsLinear(ref.RampSignals, set.Ramp, w.LinearityTolerance)

	r.Order = resolveOrder(w, r.RampLinear)
	if r.Order != w.CalculationOrder {
		log.Printf("wall %s: calculation order %s resolved to %s", w.Name, w.CalculationOrder, r.Order)
	}

	// A second balance in camera space tightens the white point; the
	// matrix is stored conjugated into target space, where the rest
	// of the chain lives.
	camWB, err := SolveWhiteBalance(set.Grey18)
	if err != nil {
		return nil, err
	}
	set = set.Transform(camWB)
	if r.CameraWhiteBalance, err = conjugateToTarget(camWB, w, camCAT); err != nil {
		return nil, err
	}

	solve, corr, err := solveForOrder(r.Order, set, ref, w, referenceToTarget, r.DeltaE.Ramp, peakLum)
	if err != nil {
		return nil, err
	}
	r.TargetToScreen = solve.TargetToScreen
	r.Screen = solve.Screen
	r.CalibratedScreen = solve.CalibratedScreen
	r.ClipScale = solve.ClipScale
	r.EOTF = corr

	for _, repair := range corr.Repairs {
		r.Warnings = append(r.Warnings, repair.Error())
	}
	if corr.Rejected > 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%d grey ramp samples rejected from the EOTF fit", corr.Rejected))
	}
	if solve.ClipScale < 1.0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("target-to-screen matrix scaled by %.4f to avoid clipping", solve.ClipScale))
	}

	if r.PostRamp, err = calibratedRamp(set.Ramp, r.Order, solve.TargetToScreen, corr, w); err != nil {
		return nil, err
	}

	if w.GamutCompressionEnabled() {
		limits, err := wcolor.MaxDistances(w.Target, solve.Screen, w.TargetToScreenCAT, w.ShadowRolloff)
		if err != nil {
			return nil, err
		}
		// A screen that covers the target leaves no distance past 1,
		// and the clamped knee would only bend in-gamut colors; leave
		// the compressor off for those walls.
		if limits.Max() > 1.0 {
			r.Compression = wcolor.NewCompression(limits)
			r.CompressionEnabled = true
		}
	}

	// Second analysis pass with the solved bundle in the chain, so the
	// report shows what calibration bought.
	bundle := r.Bundle(w)
	cameraToTarget, err := wcolor.MatrixBetween(w.Camera, w.Target, wcolor.CATNone)
	if err != nil {
		return nil, err
	}
	targetToCamera, err := cameraToTarget.Inverse()
	if err != nil {
		return nil, err
	}
	calibrated := set.Map(func(v wmath.Vec3) wmath.Vec3 {
		return targetToCamera.Apply(bundle.Apply(cameraToTarget.Apply(v)))
	})
	if r.DeltaEPost, err = AnalyzeDeltaE(calibrated, ref, w); err != nil {
		return nil, err
	}

	return r, nil
}

// MaxGamutDistance is the largest chromaticity distance any measured
// patch sits outside the target gamut. set is camera native.
func MaxGamutDistance(set SampleSet, w WallSettings) (float64, error) {
	npm, err := w.Camera.NPM()
	if err != nil {
		return 0, err
	}

	max := 0.0
	set.Each(func(v wmath.Vec3) {
		if v.Mean() <= 0 {
			return // black has no chromaticity
		}
		if d := w.Target.DistanceOutside(wcolor.XYZToXY(npm.Apply(v))); d > max {
			max = d
		}
	})
	return max, nil
}

func resolveOrder(w WallSettings, rampLinear bool) CalculationOrder {
	if !w.EOTFCorrectionEnabled() {
		return OrderGamutOnly
	}
	if w.CalculationOrder != OrderAuto {
		return w.CalculationOrder
	}
	if rampLinear {
		return OrderGamutOnly
	}
	return OrderGamutThenEOTF
}

// solveForOrder runs the matrix and curve solves in the configured
// order. set is camera native, white balanced and exposure scaled.
func solveForOrder(order CalculationOrder, set SampleSet, ref ReferenceSet, w WallSettings,
	referenceToTarget wmath.Mat3, rampDeltaEs []float64, peakLum float64) (ScreenSolve, EOTFCorrection, error) {

	avoidClipping := w.AvoidClippingEnabled()

	cameraToTarget, err := wcolor.MatrixBetween(w.Camera, w.Target, wcolor.CATNone)
	if err != nil {
		return ScreenSolve{}, EOTFCorrection{}, err
	}
	targetToCamera, err := cameraToTarget.Inverse()
	if err != nil {
		return ScreenSolve{}, EOTFCorrection{}, err
	}

	switch order {
	case OrderGamutOnly:
		solve, err := SolveScreenGamut(set.RGBW(), set.PrimariesSaturation, w, referenceToTarget, avoidClipping)
		return solve, EOTFCorrection{}, err

	case OrderGamutThenEOTF:
		solve, err := SolveScreenGamut(set.RGBW(), set.PrimariesSaturation, w, referenceToTarget, avoidClipping)
		if err != nil {
			return ScreenSolve{}, EOTFCorrection{}, err
		}

		// Fit the curves behind the matrix: push the ramp through the
		// solved matrix, take out the residual white error, and fit
		// screen value -> signal.
		rgbwTarget := applyMat(cameraToTarget, set.RGBW())
		rampTarget := applyToAll(cameraToTarget, set.Ramp)

		rgbwScreen := applyMat(solve.TargetToScreen, rgbwTarget)
		rampScreen := applyToAll(solve.TargetToScreen, rampTarget)

		wbOffset, err := SolveWhiteBalance(rgbwScreen[3])
		if err != nil {
			return ScreenSolve{}, EOTFCorrection{}, err
		}
		rampScreen = applyToAll(wbOffset, rampScreen)

		corr, err := SolveEOTFCorrection(rampScreen, ref.RampSignals, rampDeltaEs,
			avoidClipping, peakLum, w.DeltaEThreshold)
		if err != nil {
			return ScreenSolve{}, EOTFCorrection{}, err
		}

		// Re-derive the screen gamut from the corrected samples; the
		// matrix keeps its first solve, only the reported gamut moves.
		corrected := [4]wmath.Vec3{}
		for i, v := range rgbwScreen {
			corrected[i] = targetToCamera.Apply(corr.Apply(v))
		}
		resolve, err := SolveScreenGamut(corrected, set.PrimariesSaturation, w, referenceToTarget, avoidClipping)
		if err != nil {
			return ScreenSolve{}, EOTFCorrection{}, err
		}
		solve.Screen = resolve.Screen
		solve.CalibratedScreen = resolve.CalibratedScreen
		return solve, corr, nil

	case OrderEOTFThenGamut:
		rampTarget := applyToAll(cameraToTarget, set.Ramp)
		corr, err := SolveEOTFCorrection(rampTarget, ref.RampSignals, rampDeltaEs,
			avoidClipping, peakLum, w.DeltaEThreshold)
		if err != nil {
			return ScreenSolve{}, EOTFCorrection{}, err
		}

		rgbwTarget := applyMat(cameraToTarget, set.RGBW())
		corrected := [4]wmath.Vec3{}
		for i, v := range rgbwTarget {
			corrected[i] = targetToCamera.Apply(corr.Apply(v))
		}
		solve, err := SolveScreenGamut(corrected, set.PrimariesSaturation, w, referenceToTarget, avoidClipping)
		return solve, corr, err
	}

	return ScreenSolve{}, EOTFCorrection{}, fmt.Errorf("no CalculationOrder named '%s'", order)
}

// calibratedRamp predicts the measured ramp with the solved
// transforms in the chain, for reporting and clamping checks.
func calibratedRamp(ramp []wmath.Vec3, order CalculationOrder, targetToScreen wmath.Mat3,
	corr EOTFCorrection, w WallSettings) ([]wmath.Vec3, error) {

	cameraToTarget, err := wcolor.MatrixBetween(w.Camera, w.Target, wcolor.CATNone)
	if err != nil {
		return nil, err
	}
	targetToCamera, err := cameraToTarget.Inverse()
	if err != nil {
		return nil, err
	}

	out := make([]wmath.Vec3, len(ramp))
	for i, v := range ramp {
		t := cameraToTarget.Apply(v)
		if order == OrderEOTFThenGamut {
			t = targetToScreen.Apply(corr.Apply(t))
		} else {
			t = corr.Apply(targetToScreen.Apply(t))
		}
		out[i] = targetToCamera.Apply(t)
	}
	return out, nil
}

// conjugateToTarget re-expresses a camera-space matrix in target
// space so it can slot into a chain that runs there.
func conjugateToTarget(m wmath.Mat3, w WallSettings, cat wcolor.CATMethod) (wmath.Mat3, error) {
	cameraToTarget, err := wcolor.MatrixBetween(w.Camera, w.Target, cat)
	if err != nil {
		return wmath.Identity(), err
	}
	inv, err := cameraToTarget.Inverse()
	if err != nil {
		return wmath.Identity(), err
	}
	return cameraToTarget.Mult(m).Mult(inv), nil
}

func applyMat(m wmath.Mat3, vs [4]wmath.Vec3) [4]wmath.Vec3 {
	out := [4]wmath.Vec3{}
	for i, v := range vs {
		out[i] = m.Apply(v)
	}
	return out
}
