package wcal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallcal/wallcal/pkg/wcolor"
	"github.com/wallcal/wallcal/pkg/wmath"
)

// testWallSettings builds a wall whose camera, plate, reference and
// target all share one gamut, so a perfect wall solves to identity
// transforms.
func testWallSettings(t *testing.T, name string) WallSettings {
	t.Helper()
	catalog, err := wcolor.NewCatalog()
	require.NoError(t, err)

	w := WallSettings{
		Name:             name,
		PeakNits:         100,
		TargetGamutName:  wcolor.Rec2020.Name,
		NativeCameraName: wcolor.Rec2020.Name,
		InputPlateName:   wcolor.Rec2020.Name,
		ReferenceName:    wcolor.Rec2020.Name,
	}
	require.NoError(t, w.finalize(catalog))
	return w
}

// measuredFromReference simulates shooting the reference pattern on a
// wall that reproduces it perfectly, optionally through a per-channel
// cast (a perfect wall seen by a badly balanced camera).
func measuredFromReference(t *testing.T, w WallSettings, cast wmath.Vec3) SampleSet {
	t.Helper()
	ref, err := BuildReferenceSet(w)
	require.NoError(t, err)

	peakLum := w.PeakNits * 0.01
	p18 := peakLum * 0.18

	set := SampleSet{
		DesatPrimaries:      ref.DesatPrimaries,
		Grey18:              ref.Grey18,
		SatPrimaries:        [3]wmath.Vec3{{p18, 0, 0}, {0, p18, 0}, {0, 0, p18}},
		MaxWhite:            ref.Ramp[len(ref.Ramp)-1],
		Macbeth:             append([]wmath.Vec3{}, ref.Macbeth...),
		Ramp:                append([]wmath.Vec3{}, ref.Ramp...),
		PrimariesSaturation: w.PrimariesSaturation,
	}
	return set.Transform(cast.Diag())
}

func neutralCast() wmath.Vec3 { return wmath.Vec3{1, 1, 1} }

func assertNearIdentity(t *testing.T, m wmath.Mat3, tol float64) {
	t.Helper()
	id := wmath.Identity()
	for i := range m {
		assert.InDelta(t, id[i], m[i], tol, "matrix element %d", i)
	}
}

func TestCalibratePerfectWall(t *testing.T) {
	w := testWallSettings(t, "perfect")
	set := measuredFromReference(t, w, neutralCast())

	r, err := Calibrate(set, w, nil)
	require.NoError(t, err)

	assert.Equal(t, OrderGamutOnly, r.Order, "a linear wall needs no EOTF correction")
	assert.True(t, r.RampLinear)
	assert.True(t, r.EOTF.IsEmpty())

	assertNearIdentity(t, r.WhiteBalance, 1e-9)
	assertNearIdentity(t, r.TargetToScreen, 1e-6)
	assert.InDelta(t, 1.0, r.ExposureScaling, 1e-9)
	assert.InDelta(t, 1.0, r.MaxWhiteDelta, 1e-9)
	assert.InDelta(t, 0.18, r.Measured18Percent, 1e-9)

	for i, d := range r.DeltaE.RGBW {
		assert.InDelta(t, 0.0, d, 0.05, "RGBW deltaE %d", i)
	}
	for i, d := range r.DeltaE.Macbeth {
		assert.InDelta(t, 0.0, d, 0.05, "macbeth deltaE %d", i)
	}

	// Everything the wall shows is inside its own target gamut
	assert.InDelta(t, 0.0, r.MaxGamutDistance, 1e-9)

	// The screen already covers the target, so there is nothing to
	// compress and the in-gamut colors must pass through untouched
	assert.False(t, r.CompressionEnabled)

	// Running the solved bundle over the same samples must not make
	// anything perceivably worse
	for i, d := range r.DeltaEPost.RGBW {
		assert.Less(t, d, 1.0, "post RGBW deltaE %d", i)
	}
	assert.Greater(t, r.DeltaEPost.PassRate(deltaEJND), 0.95)

	checks := Validate(r, w)
	for _, c := range checks {
		assert.NotEqual(t, StatusFail, c.Status, "check %s: %s", c.Name, c.Message)
	}
}

func TestCalibrateRemovesColorCast(t *testing.T) {
	w := testWallSettings(t, "cast")
	set := measuredFromReference(t, w, wmath.Vec3{0.8, 1.0, 0.9})

	r, err := Calibrate(set, w, nil)
	require.NoError(t, err)

	assert.InDelta(t, 1.25, r.WhiteBalance[0], 1e-9)
	assert.InDelta(t, 1.0, r.WhiteBalance[4], 1e-9)
	assert.InDelta(t, 1.0/0.9, r.WhiteBalance[8], 1e-9)

	// With the cast removed the wall is perfect again
	assertNearIdentity(t, r.TargetToScreen, 1e-6)
	assert.True(t, r.RampLinear)
}

func TestCalibrateNonLinearRampFitsCurves(t *testing.T) {
	w := testWallSettings(t, "bent")
	set := measuredFromReference(t, w, neutralCast())

	// Bend the ramp: the wall under-drives the mids but still hits
	// peak, so exposure scaling stays at 1.
	peakLum := w.PeakNits * 0.01
	bend := func(v float64) float64 { return v * (0.9 + 0.1*v/peakLum) }
	for i, s := range set.Ramp {
		set.Ramp[i] = wmath.Vec3{bend(s[0]), bend(s[1]), bend(s[2])}
	}
	set.MaxWhite = set.Ramp[len(set.Ramp)-1]

	r, err := Calibrate(set, w, nil)
	require.NoError(t, err)

	assert.Equal(t, OrderGamutThenEOTF, r.Order)
	assert.False(t, r.RampLinear)
	require.False(t, r.EOTF.IsEmpty())

	assert.True(t, r.EOTF.Red.IsMonotonic())
	assert.True(t, r.EOTF.Green.IsMonotonic())
	assert.True(t, r.EOTF.Blue.IsMonotonic())

	// The curve should undo the bend at the sample points
	ref, err := BuildReferenceSet(w)
	require.NoError(t, err)
	mid := len(ref.RampSignals) / 2
	s := ref.RampSignals[mid]
	assert.InDelta(t, s, r.EOTF.Green.Eval(bend(s)), 1e-6)
}

func TestCalibrateAvoidClippingScalesMatrix(t *testing.T) {
	w := testWallSettings(t, "desat")
	set := measuredFromReference(t, w, neutralCast())

	// The wall shows everything at lower saturation than the pattern
	// claimed, so the solved screen gamut is smaller than the target
	// and the matrix wants row sums above 1.
	for ch := 0; ch < 3; ch++ {
		set.DesatPrimaries[ch] = SaturateRGB([]wmath.Vec3{set.DesatPrimaries[ch]}, 0.7)[0]
	}

	r, err := Calibrate(set, w, nil)
	require.NoError(t, err)

	assert.Less(t, r.ClipScale, 1.0)
	assert.LessOrEqual(t, r.TargetToScreen.MaxRowSum(), 1.0+1e-9)
}

func TestCalibrateNoClipScaleWhenDisabled(t *testing.T) {
	w := testWallSettings(t, "desat-noclip")
	off := false
	w.AvoidClipping = &off

	set := measuredFromReference(t, w, neutralCast())
	for ch := 0; ch < 3; ch++ {
		set.DesatPrimaries[ch] = SaturateRGB([]wmath.Vec3{set.DesatPrimaries[ch]}, 0.7)[0]
	}

	r, err := Calibrate(set, w, nil)
	require.NoError(t, err)

	assert.Equal(t, 1.0, r.ClipScale)
	assert.Greater(t, r.TargetToScreen.MaxRowSum(), 1.0)
}

func TestCalibrateRejectsBrokenRampTail(t *testing.T) {
	w := testWallSettings(t, "sync")
	set := measuredFromReference(t, w, neutralCast())

	// Sampler ran off the ramp onto a black frame
	set.Ramp[len(set.Ramp)-1] = wmath.Vec3{}

	_, err := Calibrate(set, w, nil)
	require.Error(t, err)
	assert.IsType(t, RampDiscontinuityError{}, err)
}

func TestCalibrateExternalWhiteBalanceWins(t *testing.T) {
	w := testWallSettings(t, "matched")
	set := measuredFromReference(t, w, wmath.Vec3{0.8, 1.0, 0.9})

	external := wmath.Vec3{1.25, 1.0, 1.0 / 0.9}.Diag()
	r, err := Calibrate(set, w, &external)
	require.NoError(t, err)

	assert.Equal(t, external, r.WhiteBalance)
}

func TestCalibrateGamutCompressionLimits(t *testing.T) {
	w := testWallSettings(t, "compress")
	set := measuredFromReference(t, w, neutralCast())
	for ch := 0; ch < 3; ch++ {
		set.DesatPrimaries[ch] = SaturateRGB([]wmath.Vec3{set.DesatPrimaries[ch]}, 0.8)[0]
	}

	r, err := Calibrate(set, w, nil)
	require.NoError(t, err)
	require.True(t, r.CompressionEnabled)

	// A compressed value must stay finite and move inward relative to
	// an out-of-gamut input
	in := wmath.Vec3{1.4, -0.1, 0.2}
	out := r.Compression.Compress(in)
	ach := wcolor.Achromatic(in, wcolor.DefaultShadowRolloff)
	assert.GreaterOrEqual(t, out[1], in[1])
	assert.LessOrEqual(t, ach[0]-out[0], ach[0]-in[0]+1e-9)
}

func TestBundleApplyMatchesSolvedChain(t *testing.T) {
	w := testWallSettings(t, "bundle")
	set := measuredFromReference(t, w, neutralCast())

	r, err := Calibrate(set, w, nil)
	require.NoError(t, err)

	b := r.Bundle(w)
	v := wmath.Vec3{0.3, 0.2, 0.1}
	got := b.Apply(v)

	// Identity solve: compression and curves are no-ops, matrix is
	// near identity
	for ch := 0; ch < 3; ch++ {
		assert.InDelta(t, v[ch], got[ch], 1e-5)
	}
}
