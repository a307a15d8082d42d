package wcal

import(
	"math"

	"github.com/wallcal/wallcal/pkg/wcolor"
	"github.com/wallcal/wallcal/pkg/wmath"
)

// X-Rite nominal CIELAB values for the ColorChecker Classic produced
// after November 2014, illuminant D50, 2 degree observer. Row order
// matches the chart read left to right, top to bottom.
// https://www.xrite.com/service-support/new_color_specifications_for_colorchecker_sg_and_classic_charts
var macbethLabD50 = [MacbethPatchCount]wmath.Vec3{
	{37.54, 14.37, 14.92},  // dark skin
	{64.66, 19.27, 17.50},  // light skin
	{49.32, -3.82, -22.54}, // blue sky
	{43.46, -12.74, 22.72}, // foliage
	{54.94, 9.61, -24.79},  // blue flower
	{70.48, -32.26, -0.37}, // bluish green
	{62.73, 35.83, 56.50},  // orange
	{39.43, 10.75, -45.17}, // purplish blue
	{50.57, 48.64, 16.67},  // moderate red
	{30.10, 22.54, -20.87}, // purple
	{71.77, -24.13, 58.19}, // yellow green
	{71.51, 18.24, 67.37},  // orange yellow
	{28.37, 15.42, -49.80}, // blue
	{54.38, -39.72, 32.27}, // green
	{42.43, 51.05, 28.62},  // red
	{81.80, 2.67, 80.41},   // yellow
	{50.63, 51.28, -14.12}, // magenta
	{49.57, -29.71, -28.32}, // cyan
	{95.19, -1.03, 2.93},   // white
	{81.29, -0.57, 0.44},   // neutral 8
	{66.89, -0.75, -0.06},  // neutral 6.5
	{50.76, -0.13, 0.14},   // neutral 5
	{35.63, -0.46, -0.48},  // neutral 3.5
	{20.64, 0.07, -0.46},   // black
}

var d50White = wcolor.XY{X: 0.34567, Y: 0.35850}

// labToXYZ converts CIELAB under the given white to tristimulus
// values with Y in [0,1].
func labToXYZ(lab wmath.Vec3, white wcolor.XY) wmath.Vec3 {
	wp := wcolor.XYToXYZ(white)

	fy := (lab[0] + 16.0) / 116.0
	fx := fy + lab[1]/500.0
	fz := fy - lab[2]/200.0

	finv := func(f float64) float64 {
		if f3 := f * f * f; f3 > 0.008856 {
			return f3
		}
		return (f - 16.0/116.0) / 7.787
	}

	return wmath.Vec3{wp[0] * finv(fx), wp[1] * finv(fy), wp[2] * finv(fz)}
}

// MacbethReference returns the chart's 24 patch values as linear RGB
// in the given gamut, adapted from D50 to the gamut's white with the
// given CAT, multiplied by scale. The chart's white chip is reflective
// white at about 88% luminance, so nothing reaches scale itself.
func MacbethReference(g wcolor.Gamut, method wcolor.CATMethod, scale float64) ([]wmath.Vec3, error) {
	adapt, err := wcolor.AdaptationMatrix(d50White, g.White, method)
	if err != nil {
		return nil, err
	}
	invNPM, err := g.InverseNPM()
	if err != nil {
		return nil, err
	}

	out := make([]wmath.Vec3, MacbethPatchCount)
	for i, lab := range macbethLabD50 {
		rgb := invNPM.Apply(adapt.Apply(labToXYZ(lab, d50White)))
		rgb.FloorAt(0)
		out[i] = rgb.Scale(scale)
	}
	return out, nil
}

// macbethLuminance is handy in tests: the neutral row should come out
// close to its nominal Y.
func macbethLuminance(lab wmath.Vec3) float64 {
	fy := (lab[0] + 16.0) / 116.0
	if y := math.Pow(fy, 3); y > 0.008856 {
		return y
	}
	return (fy - 16.0/116.0) / 7.787
}
