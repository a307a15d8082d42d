package wcal

import(
	"fmt"

	"github.com/wallcal/wallcal/pkg/wcolor"
	"github.com/wallcal/wallcal/pkg/wmath"
)

// SaturateRGB scales the chroma of each sample around its average
// luminance: 1 is a no-op, 0 collapses to grey, values above 1
// re-saturate. Matches the Nuke saturation node in Average mode, so
// patches desaturated at display time can be exactly re-saturated
// here with the inverse factor.
func SaturateRGB(samples []wmath.Vec3, factor float64) []wmath.Vec3 {
	out := make([]wmath.Vec3, len(samples))
	for i, s := range samples {
		lum := s.Mean()
		out[i] = wmath.Vec3{
			(s[0]-lum)*factor + lum,
			(s[1]-lum)*factor + lum,
			(s[2]-lum)*factor + lum,
		}
	}
	return out
}

// ScreenSolve is the gamut half of a calibration: the wall's measured
// colour space and the matrix that maps target-space content onto it.
type ScreenSolve struct {
	Screen           wcolor.Gamut
	CalibratedScreen wcolor.Gamut
	TargetToScreen   wmath.Mat3

	// ClipScale is the uniform factor the matrix was multiplied by to
	// keep row sums at or below 1; 1.0 when no scaling was needed.
	ClipScale float64
}

// SolveScreenGamut derives the wall's colour space from the measured
// desaturated primaries and white, then solves the target-to-screen
// matrix. rgbw is in the camera's native gamut, white balanced and
// exposure scaled.
func SolveScreenGamut(rgbw [4]wmath.Vec3, saturation float64, w WallSettings,
	referenceToTarget wmath.Mat3, avoidClipping bool) (ScreenSolve, error) {

	cameraToTarget, err := wcolor.MatrixBetween(w.Camera, w.Target, wcolor.CATNone)
	if err != nil {
		return ScreenSolve{}, err
	}
	targetToCamera, err := cameraToTarget.Inverse()
	if err != nil {
		return ScreenSolve{}, err
	}

	// Re-saturate in the same space the patches were desaturated in
	primariesTarget := applyToAll(cameraToTarget, rgbw[:3])
	saturatedTarget := SaturateRGB(primariesTarget, 1.0/saturation)
	saturated := applyToAll(targetToCamera, saturatedTarget)

	cameraNPM, err := w.Camera.NPM()
	if err != nil {
		return ScreenSolve{}, err
	}

	screen := wcolor.Gamut{Name: w.Name + " screen"}
	for i, dst := range []*wcolor.XY{&screen.Red, &screen.Green, &screen.Blue} {
		*dst = wcolor.XYZToXY(cameraNPM.Apply(saturated[i]))
	}
	screen.White = wcolor.XYZToXY(cameraNPM.Apply(rgbw[3]))

	if err := screen.Validate(); err != nil {
		return ScreenSolve{}, fmt.Errorf("measured screen gamut: %v", err)
	}

	targetToScreen, err := wcolor.MatrixBetween(w.Target, screen, w.TargetToScreenCAT)
	if err != nil {
		return ScreenSolve{}, err
	}

	solve := ScreenSolve{Screen: screen, TargetToScreen: targetToScreen, ClipScale: 1.0}

	if avoidClipping {
		if maxRowSum := targetToScreen.MaxRowSum(); maxRowSum > 1 {
			solve.ClipScale = 1.0 / maxRowSum
			if solve.ClipScale < w.ClipScaleFloor {
				return ScreenSolve{}, ClippingUnavoidableError{Scale: solve.ClipScale, Floor: w.ClipScaleFloor}
			}
			solve.TargetToScreen = targetToScreen.Scale(solve.ClipScale)
		}
	}

	calibrated, err := calibratedScreenGamut(solve.TargetToScreen, saturated, rgbw[3], w, referenceToTarget)
	if err != nil {
		return ScreenSolve{}, err
	}
	solve.CalibratedScreen = calibrated

	return solve, nil
}

// calibratedScreenGamut predicts what the screen's gamut will look
// like once the solved matrix is in the chain, for reporting and
// verification.
func calibratedScreenGamut(targetToScreen wmath.Mat3, saturated []wmath.Vec3, white wmath.Vec3,
	w WallSettings, referenceToTarget wmath.Mat3) (wcolor.Gamut, error) {

	cameraToPlate, err := wcolor.MatrixBetween(w.Camera, w.InputPlate, w.CameraConversionCAT())
	if err != nil {
		return wcolor.Gamut{}, err
	}
	targetNPM, err := w.Target.NPM()
	if err != nil {
		return wcolor.Gamut{}, err
	}

	chain := targetToScreen.Mult(referenceToTarget).Mult(cameraToPlate)

	g := wcolor.Gamut{Name: w.Name + " screen calibrated"}
	for i, dst := range []*wcolor.XY{&g.Red, &g.Green, &g.Blue} {
		*dst = wcolor.XYZToXY(targetNPM.Apply(chain.Apply(saturated[i])))
	}
	g.White = wcolor.XYZToXY(targetNPM.Apply(chain.Apply(white)))

	return g, nil
}
