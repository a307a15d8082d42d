package wcal

import(
	"fmt"

	"github.com/wallcal/wallcal/pkg/wframe"
	"github.com/wallcal/wallcal/pkg/wmath"
)

const MacbethPatchCount = 24

// PatchRole says which pattern element a stable patch is.
type PatchRole string

const(
	RoleDesatPrimary PatchRole = "desaturated primary"
	RoleGrey18       PatchRole = "18% grey"
	RoleSatPrimary   PatchRole = "saturated primary"
	RoleMaxWhite     PatchRole = "max white"
	RoleMacbeth      PatchRole = "macbeth chip"
	RoleGreyRamp     PatchRole = "grey ramp step"
)

// PatchSample is one extracted patch with its place in the pattern.
// Index counts within the role: primary channel 0..2, Macbeth chip
// 0..23, ramp step 0..numGreyPatches.
type PatchSample struct {
	RGB   wmath.Vec3
	Role  PatchRole
	Index int
}

// LabelPatches assigns roles to extracted patches by display order:
// desaturated R/G/B, 18% grey, saturated R/G/B, max white, the
// Macbeth chart, then the grey ramp black first.
func LabelPatches(patches []wframe.Patch, numGreyPatches int) ([]PatchSample, error) {
	want := ExpectedPatchCount(numGreyPatches)
	if len(patches) != want {
		return nil, PatchCountError{Got: len(patches), Want: want}
	}

	out := make([]PatchSample, 0, want)
	add := func(role PatchRole, index int) {
		out = append(out, PatchSample{RGB: patches[len(out)].MeanRGB, Role: role, Index: index})
	}

	for ch := 0; ch < 3; ch++ {
		add(RoleDesatPrimary, ch)
	}
	add(RoleGrey18, 0)
	for ch := 0; ch < 3; ch++ {
		add(RoleSatPrimary, ch)
	}
	add(RoleMaxWhite, 0)
	for j := 0; j < MacbethPatchCount; j++ {
		add(RoleMacbeth, j)
	}
	for j := 0; j <= numGreyPatches; j++ {
		add(RoleGreyRamp, j)
	}

	return out, nil
}

// SampleSet holds one averaged RGB sample per calibration patch, in
// the space the plate was supplied in. Values are linear light with
// 1.0 == 100 nits.
type SampleSet struct {
	DesatPrimaries [3]wmath.Vec3 // desaturated R, G, B
	Grey18         wmath.Vec3
	SatPrimaries   [3]wmath.Vec3 // fully saturated R, G, B
	MaxWhite       wmath.Vec3
	Macbeth        []wmath.Vec3
	Ramp           []wmath.Vec3 // grey ramp, black first

	// PrimariesSaturation is the saturation the desaturated primaries
	// were displayed at; the gamut solve re-saturates by its inverse.
	PrimariesSaturation float64

	// DecoupledLensWhite is an optional extra white sample shot with
	// the calibration lens decoupled from the taking lens.
	DecoupledLensWhite *wmath.Vec3
}

// ExpectedPatchCount is how many stable patches the extractor should
// find for a pattern with numGreyPatches ramp steps: the sampler is
// pointed at the span between the slates, which holds the three
// desaturated primaries, 18% grey, the three saturated primaries,
// max white, the Macbeth chart and the grey ramp (numGreyPatches+1
// entries including black).
func ExpectedPatchCount(numGreyPatches int) int {
	return 8 + MacbethPatchCount + numGreyPatches + 1
}

// BuildSampleSet labels extracted patches and groups them for the
// solvers.
func BuildSampleSet(patches []wframe.Patch, numGreyPatches int, primariesSaturation float64) (SampleSet, error) {
	if primariesSaturation <= 0 || primariesSaturation > 1 {
		return SampleSet{}, fmt.Errorf("primaries saturation %g out of range (0,1]", primariesSaturation)
	}
	labeled, err := LabelPatches(patches, numGreyPatches)
	if err != nil {
		return SampleSet{}, err
	}

	set := SampleSet{
		PrimariesSaturation: primariesSaturation,
		Macbeth:             make([]wmath.Vec3, MacbethPatchCount),
		Ramp:                make([]wmath.Vec3, numGreyPatches+1),
	}
	for _, p := range labeled {
		switch p.Role {
		case RoleDesatPrimary:
			set.DesatPrimaries[p.Index] = p.RGB
		case RoleGrey18:
			set.Grey18 = p.RGB
		case RoleSatPrimary:
			set.SatPrimaries[p.Index] = p.RGB
		case RoleMaxWhite:
			set.MaxWhite = p.RGB
		case RoleMacbeth:
			set.Macbeth[p.Index] = p.RGB
		case RoleGreyRamp:
			set.Ramp[p.Index] = p.RGB
		}
	}

	return set, nil
}

// RGBW returns the desaturated primaries plus 18% grey, the four
// samples the gamut solve works from.
func (s SampleSet)RGBW() [4]wmath.Vec3 {
	return [4]wmath.Vec3{s.DesatPrimaries[0], s.DesatPrimaries[1], s.DesatPrimaries[2], s.Grey18}
}

// Map returns a copy with f applied to every sample.
func (s SampleSet)Map(f func(wmath.Vec3) wmath.Vec3) SampleSet {
	out := s
	for ch := 0; ch < 3; ch++ {
		out.DesatPrimaries[ch] = f(s.DesatPrimaries[ch])
		out.SatPrimaries[ch] = f(s.SatPrimaries[ch])
	}
	out.Grey18 = f(s.Grey18)
	out.MaxWhite = f(s.MaxWhite)
	out.Macbeth = mapAll(f, s.Macbeth)
	out.Ramp = mapAll(f, s.Ramp)
	if s.DecoupledLensWhite != nil {
		w := f(*s.DecoupledLensWhite)
		out.DecoupledLensWhite = &w
	}
	return out
}

// Transform returns a copy with m applied to every sample.
func (s SampleSet)Transform(m wmath.Mat3) SampleSet {
	return s.Map(m.Apply)
}

// Each visits every sample in display order.
func (s SampleSet)Each(f func(wmath.Vec3)) {
	for ch := 0; ch < 3; ch++ {
		f(s.DesatPrimaries[ch])
	}
	f(s.Grey18)
	for ch := 0; ch < 3; ch++ {
		f(s.SatPrimaries[ch])
	}
	f(s.MaxWhite)
	for _, v := range s.Macbeth {
		f(v)
	}
	for _, v := range s.Ramp {
		f(v)
	}
}

// Scale returns a copy with every sample multiplied by f.
func (s SampleSet)Scale(f float64) SampleSet {
	return s.Transform(wmath.Vec3{f, f, f}.Diag())
}

func applyToAll(m wmath.Mat3, vs []wmath.Vec3) []wmath.Vec3 {
	return mapAll(m.Apply, vs)
}

func mapAll(f func(wmath.Vec3) wmath.Vec3, vs []wmath.Vec3) []wmath.Vec3 {
	out := make([]wmath.Vec3, len(vs))
	for i, v := range vs {
		out[i] = f(v)
	}
	return out
}

// ReferenceSet is what the wall was asked to display, in the same
// layout as SampleSet; deltaE analysis compares the two.
type ReferenceSet struct {
	DesatPrimaries [3]wmath.Vec3
	Grey18         wmath.Vec3
	Macbeth        []wmath.Vec3
	Ramp           []wmath.Vec3
	RampSignals    []float64
}

// RGBW mirrors SampleSet.RGBW.
func (r ReferenceSet)RGBW() [4]wmath.Vec3 {
	return [4]wmath.Vec3{r.DesatPrimaries[0], r.DesatPrimaries[1], r.DesatPrimaries[2], r.Grey18}
}
