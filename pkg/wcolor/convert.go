package wcolor

// Stateless gamut-to-gamut conversion. Everything is closed-form
// matrix algebra; no fitting.

import(
	"fmt"

	"github.com/wallcal/wallcal/pkg/wmath"
)

func RGBToXYZ(rgb wmath.Vec3, g Gamut) (wmath.Vec3, error) {
	npm, err := g.NPM()
	if err != nil {
		return wmath.Vec3{}, err
	}
	return npm.Apply(rgb), nil
}

func XYZToRGB(xyz wmath.Vec3, g Gamut) (wmath.Vec3, error) {
	inv, err := g.InverseNPM()
	if err != nil {
		return wmath.Vec3{}, err
	}
	return inv.Apply(xyz), nil
}

// MatrixBetween composes source RGB -> XYZ -> (CAT between the two
// white points) -> XYZ -> target RGB into a single 3x3. CATNone skips
// the adaptation entirely, so a white point mismatch shows up in the
// output rather than being silently corrected.
func MatrixBetween(source, target Gamut, method CATMethod) (wmath.Mat3, error) {
	npm, err := source.NPM()
	if err != nil {
		return wmath.Mat3{}, fmt.Errorf("matrix %s->%s: %v", source.Name, target.Name, err)
	}

	adapt, err := AdaptationMatrix(source.White, target.White, method)
	if err != nil {
		return wmath.Mat3{}, fmt.Errorf("matrix %s->%s: %v", source.Name, target.Name, err)
	}

	invNpm, err := target.InverseNPM()
	if err != nil {
		return wmath.Mat3{}, fmt.Errorf("matrix %s->%s: %v", source.Name, target.Name, err)
	}

	return invNpm.Mult(adapt).Mult(npm), nil
}

// Convert maps a single RGB triple from one gamut to another.
func Convert(rgb wmath.Vec3, source, target Gamut, method CATMethod) (wmath.Vec3, error) {
	m, err := MatrixBetween(source, target, method)
	if err != nil {
		return wmath.Vec3{}, err
	}
	return m.Apply(rgb), nil
}

// ChromaticityOf projects an RGB value in the given gamut to CIE xy.
func ChromaticityOf(rgb wmath.Vec3, g Gamut) (XY, error) {
	xyz, err := RGBToXYZ(rgb, g)
	if err != nil {
		return XY{}, err
	}
	return XYZToXY(xyz), nil
}
