package wcolor

// A Gamut is three primaries plus a white point in CIE 1931 xy
// chromaticity space. The RGB<->XYZ matrices are derived from the
// chromaticities with the standard normalized-primary construction:
// http://www.brucelindbloom.com/index.html?Eqn_RGB_XYZ_Matrix.html

import(
	"fmt"
	"math"
	"sort"

	"github.com/wallcal/wallcal/pkg/wmath"
)

type XY struct {
	X float64
	Y float64
}

type Gamut struct {
	Name  string
	Red   XY
	Green XY
	Blue  XY
	White XY
}

type DegenerateGamutError struct {
	Gamut  string
	Reason string
}

func (e DegenerateGamutError)Error() string {
	return fmt.Sprintf("gamut '%s' is degenerate: %s", e.Gamut, e.Reason)
}

// XYToXYZ lifts a chromaticity to tristimulus values with Y normalized to 1
func XYToXYZ(c XY) wmath.Vec3 {
	return wmath.Vec3{c.X / c.Y, 1.0, (1.0 - c.X - c.Y) / c.Y}
}

func XYZToXY(v wmath.Vec3) XY {
	sum := v[0] + v[1] + v[2]
	if sum == 0 {
		return XY{}
	}
	return XY{X: v[0] / sum, Y: v[1] / sum}
}

// triangleArea is the signed area of the primaries' triangle in xy space
func (g Gamut)triangleArea() float64 {
	return 0.5 * ((g.Green.X-g.Red.X)*(g.Blue.Y-g.Red.Y) - (g.Blue.X-g.Red.X)*(g.Green.Y-g.Red.Y))
}

const collinearAreaEpsilon = 1e-6

// Validate rejects gamuts whose primaries are collinear or whose
// white point falls outside the primaries' triangle. Either makes the
// derived matrices meaningless.
func (g Gamut)Validate() error {
	area := g.triangleArea()
	if math.Abs(area) < collinearAreaEpsilon {
		return DegenerateGamutError{Gamut: g.Name, Reason: "primaries are collinear"}
	}

	for _, c := range []XY{g.Red, g.Green, g.Blue, g.White} {
		if c.Y == 0 {
			return DegenerateGamutError{Gamut: g.Name, Reason: "chromaticity with y == 0"}
		}
	}

	// Barycentric test for the white point against the primaries' triangle
	u, v, w := barycentric(g.White, g.Red, g.Green, g.Blue)
	if u < 0 || v < 0 || w < 0 {
		return DegenerateGamutError{Gamut: g.Name, Reason: "white point outside primaries' hull"}
	}

	return nil
}

func barycentric(p, a, b, c XY) (float64, float64, float64) {
	det := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	u := ((b.Y-c.Y)*(p.X-c.X) + (c.X-b.X)*(p.Y-c.Y)) / det
	v := ((c.Y-a.Y)*(p.X-c.X) + (a.X-c.X)*(p.Y-c.Y)) / det
	return u, v, 1.0 - u - v
}

// DistanceOutside is how far a chromaticity sits outside the gamut
// triangle: 0 when inside, otherwise the xy distance to the nearest
// edge.
func (g Gamut)DistanceOutside(p XY) float64 {
	u, v, w := barycentric(p, g.Red, g.Green, g.Blue)
	if u >= 0 && v >= 0 && w >= 0 {
		return 0
	}
	d := math.Inf(1)
	for _, e := range [3][2]XY{{g.Red, g.Green}, {g.Green, g.Blue}, {g.Blue, g.Red}} {
		if sd := segmentDistance(p, e[0], e[1]); sd < d {
			d = sd
		}
	}
	return d
}

func segmentDistance(p, a, b XY) float64 {
	abx, aby := b.X-a.X, b.Y-a.Y
	apx, apy := p.X-a.X, p.Y-a.Y
	lenSq := abx*abx + aby*aby
	t := 0.0
	if lenSq > 0 {
		t = (apx*abx + apy*aby) / lenSq
		t = math.Max(0, math.Min(1, t))
	}
	dx, dy := p.X-(a.X+t*abx), p.Y-(a.Y+t*aby)
	return math.Sqrt(dx*dx + dy*dy)
}

// NPM is the normalized primary matrix, mapping linear RGB in this
// gamut to CIE XYZ (white Y == 1).
func (g Gamut)NPM() (wmath.Mat3, error) {
	if err := g.Validate(); err != nil {
		return wmath.Mat3{}, err
	}

	r, gr, b := XYToXYZ(g.Red), XYToXYZ(g.Green), XYToXYZ(g.Blue)
	p := wmath.Mat3{
		r[0], gr[0], b[0],
		r[1], gr[1], b[1],
		r[2], gr[2], b[2],
	}

	pInv, err := p.Inverse()
	if err != nil {
		return wmath.Mat3{}, fmt.Errorf("npm for '%s': %v", g.Name, err)
	}

	s := pInv.Apply(XYToXYZ(g.White))
	return p.Mult(s.Diag()), nil
}

// InverseNPM maps CIE XYZ back to linear RGB in this gamut.
func (g Gamut)InverseNPM() (wmath.Mat3, error) {
	npm, err := g.NPM()
	if err != nil {
		return wmath.Mat3{}, err
	}
	return npm.Inverse()
}

// The standard catalog. Camera gamuts legitimately put primaries
// outside the spectral locus, so Validate only checks geometry, not
// a [0,1] range.
var(
	SRGB = Gamut{
		Name: "sRGB",
		Red: XY{0.640, 0.330}, Green: XY{0.300, 0.600}, Blue: XY{0.150, 0.060},
		White: XY{0.3127, 0.3290},
	}
	P3D65 = Gamut{
		Name: "P3-D65",
		Red: XY{0.680, 0.320}, Green: XY{0.265, 0.690}, Blue: XY{0.150, 0.060},
		White: XY{0.3127, 0.3290},
	}
	Rec2020 = Gamut{
		Name: "Rec2020",
		Red: XY{0.708, 0.292}, Green: XY{0.170, 0.797}, Blue: XY{0.131, 0.046},
		White: XY{0.3127, 0.3290},
	}
	// ACES2065-1 (AP0), the reference space content is graded in
	ACESAP0 = Gamut{
		Name: "ACES2065-1",
		Red: XY{0.7347, 0.2653}, Green: XY{0.0000, 1.0000}, Blue: XY{0.0001, -0.0770},
		White: XY{0.32168, 0.33767},
	}
	ACESCG = Gamut{
		Name: "ACEScg",
		Red: XY{0.713, 0.293}, Green: XY{0.165, 0.830}, Blue: XY{0.128, 0.044},
		White: XY{0.32168, 0.33767},
	}
	ARRIWideGamut3 = Gamut{
		Name: "ARRI Wide Gamut 3",
		Red: XY{0.6840, 0.3130}, Green: XY{0.2210, 0.8480}, Blue: XY{0.0861, -0.1020},
		White: XY{0.3127, 0.3290},
	}
	REDWideGamut = Gamut{
		Name: "REDWideGamutRGB",
		Red: XY{0.780308, 0.304253}, Green: XY{0.121595, 1.493994}, Blue: XY{0.095612, -0.084589},
		White: XY{0.3127, 0.3290},
	}
	SGamut3 = Gamut{
		Name: "S-Gamut3",
		Red: XY{0.730, 0.280}, Green: XY{0.140, 0.855}, Blue: XY{0.100, -0.050},
		White: XY{0.3127, 0.3290},
	}
)

// A Catalog is an immutable set of named gamuts, passed explicitly
// into each calibration run. Custom (user-entered) gamuts are baked
// in at construction; concurrent runs never share mutable state.
type Catalog struct {
	gamuts map[string]Gamut
}

func NewCatalog(custom ...Gamut) (Catalog, error) {
	c := Catalog{gamuts: map[string]Gamut{}}

	for _, g := range []Gamut{SRGB, P3D65, Rec2020, ACESAP0, ACESCG, ARRIWideGamut3, REDWideGamut, SGamut3} {
		c.gamuts[g.Name] = g
	}

	for _, g := range custom {
		if err := g.Validate(); err != nil {
			return Catalog{}, err
		}
		c.gamuts[g.Name] = g
	}

	return c, nil
}

func (c Catalog)Lookup(name string) (Gamut, bool) {
	g, ok := c.gamuts[name]
	return g, ok
}

func (c Catalog)Names() []string {
	names := []string{}
	for name := range c.gamuts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
