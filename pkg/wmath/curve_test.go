package wmath

import(
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurveEmptyIsIdentity(t *testing.T) {
	c := Curve1D{}
	assert.Equal(t, 0.42, c.Eval(0.42))
}

func TestCurveInterpolatesAndExtrapolatesFlat(t *testing.T) {
	c := Curve1D{Knots: []Knot{{0, 0}, {0.5, 0.25}, {1.0, 1.0}}}

	assert.InDelta(t, 0.125, c.Eval(0.25), 1e-12)
	assert.InDelta(t, 0.625, c.Eval(0.75), 1e-12)

	// Flat outside the sampled range
	assert.Equal(t, 0.0, c.Eval(-1.0))
	assert.Equal(t, 1.0, c.Eval(2.0))
}

func TestCurveInverse(t *testing.T) {
	c := Curve1D{Knots: []Knot{{0, 0}, {0.4, 0.5}, {1.0, 1.0}}}
	for _, v := range []float64{0.0, 0.2, 0.4, 0.7, 1.0} {
		assert.InDelta(t, v, c.EvalInverse(c.Eval(v)), 1e-9)
	}
}

func TestMakeMonotonicFixesNoise(t *testing.T) {
	c := Curve1D{Knots: []Knot{{0, 0}, {0.3, 0.35}, {0.5, 0.30}, {0.8, 0.9}}}
	changed := c.MakeMonotonic()
	assert.True(t, changed)
	assert.True(t, c.IsMonotonic())
}

func TestMakeMonotonicUnderRandomNoise(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		c := Curve1D{}
		for i := 0; i < 20; i++ {
			v := float64(i) / 19.0
			c.Knots = append(c.Knots, Knot{
				In:  v + rng.NormFloat64()*0.05,
				Out: v,
			})
		}
		c.MakeMonotonic()
		assert.True(t, c.IsMonotonic(), "trial %d", trial)
	}
}

func TestMakeMonotonicNoChangeForCleanCurve(t *testing.T) {
	c := Curve1D{Knots: []Knot{{0, 0}, {0.5, 0.5}, {1, 1}}}
	assert.False(t, c.MakeMonotonic())
}

func TestScaleInputs(t *testing.T) {
	c := Curve1D{Knots: []Knot{{0, 0}, {2.0, 1.0}}}
	c.ScaleInputs(0.5)
	assert.InDelta(t, 1.0, c.MaxInput(), 1e-12)
	assert.InDelta(t, 1.0, c.Eval(1.0), 1e-12)
}

func TestResample(t *testing.T) {
	c := Curve1D{Knots: []Knot{{0, 0}, {1.0, 1.0}}}
	dense := c.Resample(11, 1.0)
	assert.Len(t, dense.Knots, 11)
	assert.InDelta(t, 0.5, dense.Knots[5].In, 1e-12)
	assert.InDelta(t, 0.5, dense.Knots[5].Out, 1e-12)
}
