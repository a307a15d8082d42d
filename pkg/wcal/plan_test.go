package wcal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallcal/wallcal/pkg/wmath"
)

func TestSortWallsOrdersReferencesFirst(t *testing.T) {
	walls := []WallSettings{
		{Name: "c", ReferenceWall: "b"},
		{Name: "b", ReferenceWall: "a"},
		{Name: "a"},
	}

	ordered, err := SortWalls(walls)
	require.NoError(t, err)

	names := []string{}
	for _, w := range ordered {
		names = append(names, w.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestSortWallsRejectsCycle(t *testing.T) {
	walls := []WallSettings{
		{Name: "a", ReferenceWall: "b"},
		{Name: "b", ReferenceWall: "a"},
	}

	_, err := SortWalls(walls)
	require.Error(t, err)
	assert.IsType(t, DependencyCycleError{}, err)
}

func TestSortWallsSelfReferenceIsACycle(t *testing.T) {
	_, err := SortWalls([]WallSettings{{Name: "a", ReferenceWall: "a"}})
	require.Error(t, err)
	assert.IsType(t, DependencyCycleError{}, err)
}

func TestRunPlanMatchedWallReusesWhiteBalance(t *testing.T) {
	main := testWallSettings(t, "main")
	ceiling := testWallSettings(t, "ceiling")
	ceiling.ReferenceWall = "main"
	ceiling.MatchReferenceWall = true

	cast := wmath.Vec3{0.8, 1.0, 0.9}
	walls := []Wall{
		{Settings: ceiling, Samples: measuredFromReference(t, ceiling, neutralCast())},
		{Settings: main, Samples: measuredFromReference(t, main, cast)},
	}

	results, err := RunPlan(walls)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// The ceiling wall is neutral, but it must inherit main's gains
	assert.Equal(t, results["main"].WhiteBalance, results["ceiling"].WhiteBalance)
	assert.InDelta(t, 1.25, results["ceiling"].WhiteBalance[0], 1e-9)
}

func TestRunPlanIsolatesWallFailures(t *testing.T) {
	good := testWallSettings(t, "good")
	bad := testWallSettings(t, "bad")

	badSamples := measuredFromReference(t, bad, neutralCast())
	badSamples.Ramp[len(badSamples.Ramp)-1] = wmath.Vec3{}

	walls := []Wall{
		{Settings: good, Samples: measuredFromReference(t, good, neutralCast())},
		{Settings: bad, Samples: badSamples},
	}

	// The bad capture fails its own wall, but the good wall still solves.
	results, err := RunPlan(walls)
	require.Error(t, err)
	wallErrs, ok := err.(WallErrors)
	require.True(t, ok)
	require.Contains(t, wallErrs, "bad")
	assert.NotContains(t, wallErrs, "good")
	assert.Contains(t, err.Error(), "1 wall(s) failed")
	assert.Contains(t, err.Error(), "'bad'")

	require.Contains(t, results, "good")
	assert.NotContains(t, results, "bad")
	assertNearIdentity(t, results["good"].WhiteBalance, 1e-9)
}

func TestRunPlanFailedReferenceFailsDependents(t *testing.T) {
	bad := testWallSettings(t, "bad")
	follower := testWallSettings(t, "follower")
	follower.ReferenceWall = "bad"
	follower.MatchReferenceWall = true

	badSamples := measuredFromReference(t, bad, neutralCast())
	badSamples.Ramp[len(badSamples.Ramp)-1] = wmath.Vec3{}

	walls := []Wall{
		{Settings: follower, Samples: measuredFromReference(t, follower, neutralCast())},
		{Settings: bad, Samples: badSamples},
	}

	results, err := RunPlan(walls)
	require.Error(t, err)
	wallErrs, ok := err.(WallErrors)
	require.True(t, ok)
	assert.Contains(t, wallErrs, "bad")
	require.Contains(t, wallErrs, "follower")
	assert.Contains(t, wallErrs["follower"].Error(), "reference wall")
	assert.Empty(t, results)
}

func TestRunPlanIndependentWallsBothSolve(t *testing.T) {
	a := testWallSettings(t, "a")
	b := testWallSettings(t, "b")

	walls := []Wall{
		{Settings: a, Samples: measuredFromReference(t, a, neutralCast())},
		{Settings: b, Samples: measuredFromReference(t, b, wmath.Vec3{0.9, 1.0, 0.95})},
	}

	results, err := RunPlan(walls)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assertNearIdentity(t, results["a"].WhiteBalance, 1e-9)
	assert.InDelta(t, 1.0/0.9, results["b"].WhiteBalance[0], 1e-9)
}
