package wcal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallcal/wallcal/pkg/wmath"
)

func TestGreySignalsEndpoints(t *testing.T) {
	signals := GreySignals(1000, 30)
	require.Len(t, signals, 31)

	assert.Equal(t, 0.0, signals[0])
	assert.InDelta(t, 10.0, signals[30], 1e-9, "peak is 1000 nits, 1.0 == 100 nits")

	for i := 1; i < len(signals); i++ {
		assert.Greater(t, signals[i], signals[i-1])
	}
}

func TestGreySignalsPQSpacing(t *testing.T) {
	// PQ spacing piles samples into the low end: the first half of
	// the ramp covers far less luminance than the second half
	signals := GreySignals(1000, 30)
	assert.Less(t, signals[15], signals[30]/4)
}

func linearRampFixture(n int) ([]wmath.Vec3, []float64, []float64) {
	signals := GreySignals(100, n)
	ramp := make([]wmath.Vec3, len(signals))
	deltaEs := make([]float64, len(signals))
	for i, s := range signals {
		ramp[i] = wmath.Vec3{s, s, s}
	}
	return ramp, signals, deltaEs
}

func TestSolveEOTFCorrectionLinearRampIsIdentity(t *testing.T) {
	ramp, signals, deltaEs := linearRampFixture(30)

	corr, err := SolveEOTFCorrection(ramp, signals, deltaEs, false, 1.0, 20)
	require.NoError(t, err)

	for _, v := range []float64{0.1, 0.35, 0.8} {
		assert.InDelta(t, v, corr.Green.Eval(v), 1e-6)
	}
	assert.Empty(t, corr.Repairs)
}

func TestSolveEOTFCorrectionPinsBlack(t *testing.T) {
	ramp, signals, deltaEs := linearRampFixture(30)
	// A lifted black should not drag the curve
	ramp[0] = wmath.Vec3{0.05, 0.05, 0.05}

	corr, err := SolveEOTFCorrection(ramp, signals, deltaEs, false, 1.0, 20)
	require.NoError(t, err)

	assert.Equal(t, wmath.Knot{}, corr.Green.Knots[0])
	assert.Equal(t, 0.0, corr.Green.Eval(0))
}

func TestSolveEOTFCorrectionRejectsOutliers(t *testing.T) {
	ramp, signals, deltaEs := linearRampFixture(30)
	deltaEs[12] = 50 // one sample way off

	corr, err := SolveEOTFCorrection(ramp, signals, deltaEs, false, 1.0, 20)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, corr.Rejected, 1)
}

func TestSolveEOTFCorrectionRepairsNonMonotonicChannel(t *testing.T) {
	ramp, signals, deltaEs := linearRampFixture(30)
	// Green dips mid-ramp while red and blue keep climbing
	ramp[20][1] = ramp[18][1] * 0.9

	corr, err := SolveEOTFCorrection(ramp, signals, deltaEs, false, 1.0, 20)
	require.NoError(t, err)

	require.NotEmpty(t, corr.Repairs)
	assert.Equal(t, "green", corr.Repairs[0].Channel)
	assert.True(t, corr.Green.IsMonotonic())
	assert.True(t, corr.Red.IsMonotonic())
}

func TestSolveEOTFCorrectionTooManyRejected(t *testing.T) {
	ramp, signals, deltaEs := linearRampFixture(30)
	for i := 5; i < 20; i++ {
		deltaEs[i] = 50
	}

	_, err := SolveEOTFCorrection(ramp, signals, deltaEs, false, 1.0, 20)
	require.Error(t, err)
	assert.IsType(t, TooManySamplesRejectedError{}, err)
}

func TestSolveEOTFCorrectionClipScaling(t *testing.T) {
	ramp, signals, deltaEs := linearRampFixture(30)
	// Wall overshoots: every channel measures 20% above the signal
	for i := range ramp {
		ramp[i] = ramp[i].Scale(1.2)
	}

	corr, err := SolveEOTFCorrection(ramp, signals, deltaEs, true, 1.0, 20)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, corr.Green.MaxInput(), 1e-9, "inputs scaled back to peak")
}

func TestSolveEOTFCorrectionClipScalingSingleChannel(t *testing.T) {
	ramp, signals, deltaEs := linearRampFixture(30)
	// Only red overshoots; scaling must still kick in, and all three
	// channels scale together so the white balance is preserved
	for i := range ramp {
		ramp[i][0] *= 1.3
	}

	corr, err := SolveEOTFCorrection(ramp, signals, deltaEs, true, 1.0, 20)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, corr.Red.MaxInput(), 1e-9)
	assert.InDelta(t, 1.0/1.3, corr.Green.MaxInput(), 1e-9)
	assert.InDelta(t, 1.0/1.3, corr.Blue.MaxInput(), 1e-9)
}

func TestRampIsLinear(t *testing.T) {
	ramp, signals, _ := linearRampFixture(30)
	assert.True(t, RampIsLinear(signals, ramp, 0.05))

	for i := range ramp {
		ramp[i] = ramp[i].Scale(0.8)
	}
	assert.False(t, RampIsLinear(signals, ramp, 0.05))
}

func TestCheckRampContinuity(t *testing.T) {
	ramp, _, _ := linearRampFixture(30)
	assert.NoError(t, CheckRampContinuity(ramp))

	ramp[len(ramp)-1] = wmath.Vec3{}
	err := CheckRampContinuity(ramp)
	require.Error(t, err)
	assert.IsType(t, RampDiscontinuityError{}, err)
}

func TestEOTFLinearityRatios(t *testing.T) {
	signals := []float64{0, 0.5, 1.0}
	ramp := []wmath.Vec3{{0, 0, 0}, {0.45, 0.5, 0.55}, {1.0, 1.0, 1.0}}

	lin := EOTFLinearity(signals, ramp)
	assert.InDelta(t, 0.9, lin[1][0], 1e-9)
	assert.InDelta(t, 1.0, lin[1][1], 1e-9)
	assert.InDelta(t, 1.1, lin[1][2], 1e-9)
}
