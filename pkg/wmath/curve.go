package wmath

import(
	"fmt"
	"sort"
)

// A Knot maps a measured input value to the output value that should
// have been produced in its place.
type Knot struct {
	In  float64
	Out float64
}

// Curve1D is a piecewise-linear monotonic mapping, evaluated with
// flat extrapolation outside the knot range. The zero curve (no
// knots) evaluates as identity.
type Curve1D struct {
	Knots []Knot
}

func (c Curve1D)IsEmpty() bool { return len(c.Knots) == 0 }

func (c Curve1D)Eval(v float64) float64 {
	if len(c.Knots) == 0 {
		return v
	}
	if v <= c.Knots[0].In {
		return c.Knots[0].Out
	}
	last := c.Knots[len(c.Knots)-1]
	if v >= last.In {
		return last.Out
	}

	i := sort.Search(len(c.Knots), func(i int) bool { return c.Knots[i].In >= v })
	lo, hi := c.Knots[i-1], c.Knots[i]
	if hi.In == lo.In {
		return lo.Out
	}
	t := (v - lo.In) / (hi.In - lo.In)
	return lo.Out + t*(hi.Out-lo.Out)
}

// EvalInverse reads the curve backwards, mapping an output value to
// the input that produces it. Only meaningful once the curve is
// monotonic.
func (c Curve1D)EvalInverse(v float64) float64 {
	inv := Curve1D{Knots: make([]Knot, len(c.Knots))}
	for i, k := range c.Knots {
		inv.Knots[i] = Knot{In: k.Out, Out: k.In}
	}
	sort.SliceStable(inv.Knots, func(i, j int) bool { return inv.Knots[i].In < inv.Knots[j].In })
	return inv.Eval(v)
}

// MakeMonotonic sorts the knots by input and clamps any output that
// dips below its predecessor. Returns true if anything had to change,
// so the caller can record a warning.
func (c *Curve1D)MakeMonotonic() bool {
	changed := false

	sorted := sort.SliceIsSorted(c.Knots, func(i, j int) bool { return c.Knots[i].In < c.Knots[j].In })
	if !sorted {
		sort.SliceStable(c.Knots, func(i, j int) bool { return c.Knots[i].In < c.Knots[j].In })
		changed = true
	}

	for i := 1; i < len(c.Knots); i++ {
		if c.Knots[i].Out < c.Knots[i-1].Out {
			c.Knots[i].Out = c.Knots[i-1].Out
			changed = true
		}
	}

	return changed
}

func (c Curve1D)IsMonotonic() bool {
	for i := 1; i < len(c.Knots); i++ {
		if c.Knots[i].In < c.Knots[i-1].In || c.Knots[i].Out < c.Knots[i-1].Out {
			return false
		}
	}
	return true
}

// ScaleInputs rescales the measured side of every knot; used to pull
// an overbright curve back under the displayable peak.
func (c *Curve1D)ScaleInputs(f float64) {
	for i := range c.Knots {
		c.Knots[i].In *= f
	}
}

func (c Curve1D)MaxInput() float64 {
	max := 0.0
	for _, k := range c.Knots {
		if k.In > max { max = k.In }
	}
	return max
}

// Resample returns a dense version of the curve with n evenly spaced
// knots over [0, maxIn], for exporters that want a fixed-size LUT.
func (c Curve1D)Resample(n int, maxIn float64) Curve1D {
	if n < 2 {
		n = 2
	}
	out := Curve1D{Knots: make([]Knot, n)}
	for i := 0; i < n; i++ {
		in := maxIn * float64(i) / float64(n-1)
		out.Knots[i] = Knot{In: in, Out: c.Eval(in)}
	}
	return out
}

func (c Curve1D)String() string {
	return fmt.Sprintf("Curve1D[%d knots, in 0..%f]", len(c.Knots), c.MaxInput())
}
