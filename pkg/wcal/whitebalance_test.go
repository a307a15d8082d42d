package wcal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallcal/wallcal/pkg/wcolor"
	"github.com/wallcal/wallcal/pkg/wmath"
)

func TestSolveWhiteBalanceGains(t *testing.T) {
	wb, err := SolveWhiteBalance(wmath.Vec3{0.8, 1.0, 0.9})
	require.NoError(t, err)

	assert.InDelta(t, 1.25, wb[0], 1e-12)
	assert.InDelta(t, 1.0, wb[4], 1e-12)
	assert.InDelta(t, 1.0/0.9, wb[8], 1e-12)

	balanced := wb.Apply(wmath.Vec3{0.8, 1.0, 0.9})
	assert.InDelta(t, balanced[0], balanced[1], 1e-12)
	assert.InDelta(t, balanced[1], balanced[2], 1e-12)
}

func TestSolveWhiteBalanceNeutralIsIdentity(t *testing.T) {
	wb, err := SolveWhiteBalance(wmath.Vec3{0.5, 0.5, 0.5})
	require.NoError(t, err)
	assert.Equal(t, wmath.Identity(), wb)
}

func TestSolveWhiteBalanceZeroChannel(t *testing.T) {
	_, err := SolveWhiteBalance(wmath.Vec3{0.8, 0, 0.9})
	require.Error(t, err)

	zce, ok := err.(ZeroChannelError)
	require.True(t, ok)
	assert.Equal(t, "green", zce.Channel)
}

func TestSolveTargetWhiteBalanceNeutralIsIdentity(t *testing.T) {
	// Equal channels already sit at the gamut's own white
	wb, err := SolveTargetWhiteBalance(wmath.Vec3{0.18, 0.18, 0.18},
		wcolor.Rec2020, wcolor.Rec2020.White, wcolor.CATBradford)
	require.NoError(t, err)

	for i, want := range wmath.Identity() {
		assert.InDelta(t, want, wb[i], 1e-9)
	}
}

func TestSolveTargetWhiteBalanceRemovesCast(t *testing.T) {
	grey := wmath.Vec3{0.16, 0.18, 0.17}
	wb, err := SolveTargetWhiteBalance(grey, wcolor.Rec2020, wcolor.Rec2020.White, wcolor.CATBradford)
	require.NoError(t, err)

	balanced := wb.Apply(grey)
	assert.InDelta(t, balanced[0], balanced[1], 1e-9)
	assert.InDelta(t, balanced[1], balanced[2], 1e-9)
}

func TestSolveDecoupledWhiteBalance(t *testing.T) {
	// The decoupled lens sees the wall neutrally; the taking lens
	// adds a cast. Gains should express the ratio of the two.
	grey := wmath.Vec3{0.16, 0.18, 0.17}
	decoupled := wmath.Vec3{0.36, 0.36, 0.36}

	wb, err := SolveDecoupledWhiteBalance(grey, decoupled)
	require.NoError(t, err)

	assert.InDelta(t, 0.18/0.16, wb[0], 1e-12)
	assert.InDelta(t, 1.0, wb[4], 1e-12)
	assert.InDelta(t, 0.18/0.17, wb[8], 1e-12)
}
