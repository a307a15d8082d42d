package wcal

import(
	"github.com/wallcal/wallcal/pkg/wcolor"
	"github.com/wallcal/wallcal/pkg/wmath"
)

// SolveWhiteBalance builds a diagonal gain matrix that balances the
// red and blue channels of grey against its green channel. Green is
// the anchor; its gain is always 1.
func SolveWhiteBalance(grey wmath.Vec3) (wmath.Mat3, error) {
	if err := checkChannels(grey); err != nil {
		return wmath.Identity(), err
	}
	green := grey[1]
	return wmath.Vec3{green / grey[0], 1.0, green / grey[2]}.Diag(), nil
}

// SolveDecoupledWhiteBalance balances using an extra white sample
// shot through a decoupled lens, removing the taking lens's own color
// cast from the solve. The decoupled sample is first scaled so its
// green matches the grey patch, then red and blue gains are the ratio
// of the two.
func SolveDecoupledWhiteBalance(grey, decoupledWhite wmath.Vec3) (wmath.Mat3, error) {
	if err := checkChannels(grey); err != nil {
		return wmath.Identity(), err
	}
	if err := checkChannels(decoupledWhite); err != nil {
		return wmath.Identity(), err
	}
	scaled := decoupledWhite.Scale(grey[1] / decoupledWhite[1])
	return wmath.Vec3{scaled[0] / grey[0], 1.0, scaled[2] / grey[2]}.Diag(), nil
}

// SolveTargetWhiteBalance builds a full cross-channel matrix that
// adapts the measured neutral's chromaticity to an arbitrary target
// white, rather than just equalizing channels. The CAT sandwich runs
// in the given working gamut.
func SolveTargetWhiteBalance(grey wmath.Vec3, gamut wcolor.Gamut, targetWhite wcolor.XY,
	method wcolor.CATMethod) (wmath.Mat3, error) {

	if err := checkChannels(grey); err != nil {
		return wmath.Identity(), err
	}

	npm, err := gamut.NPM()
	if err != nil {
		return wmath.Identity(), err
	}
	inv, err := gamut.InverseNPM()
	if err != nil {
		return wmath.Identity(), err
	}

	measuredWhite := wcolor.XYZToXY(npm.Apply(grey))
	cat, err := wcolor.AdaptationMatrix(measuredWhite, targetWhite, method)
	if err != nil {
		return wmath.Identity(), err
	}

	return inv.Mult(cat).Mult(npm), nil
}

func checkChannels(v wmath.Vec3) error {
	for i, name := range []string{"red", "green", "blue"} {
		if v[i] <= 0 {
			return ZeroChannelError{Channel: name, Value: v[i]}
		}
	}
	return nil
}
