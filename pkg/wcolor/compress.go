package wcolor

// Gamut compression: pulls colors the screen can't reproduce back
// toward the achromatic axis, leaving in-gamut colors untouched.
// Works per channel on the distance below the achromatic value, the
// same parameterization the ACES reference gamut compression uses.

import(
	"fmt"
	"math"

	"github.com/wallcal/wallcal/pkg/wmath"
)

const(
	DefaultShadowRolloff      = 0.008
	DefaultCompressThreshold  = 0.815
	compressionLimitMin       = 1.001
)

// Achromatic returns the neutral axis value for an RGB triple: the
// max channel, with a tanh rolloff toward black so near-zero values
// don't explode the distance ratios.
func Achromatic(rgb wmath.Vec3, shadowRolloff float64) wmath.Vec3 {
	v := rgb.Max()
	if shadowRolloff > 0 && v <= shadowRolloff {
		v = shadowRolloff * (1.0 - math.Tanh((shadowRolloff-v)/shadowRolloff))
	}
	return wmath.Vec3{v, v, v}
}

// MaxDistances measures how far outside the destination gamut the
// source gamut's primaries land, per channel. These become the
// compression limits: nothing the source can produce ends up further
// out than this.
func MaxDistances(source, dest Gamut, method CATMethod, shadowRolloff float64) (wmath.Vec3, error) {
	m, err := MatrixBetween(source, dest, method)
	if err != nil {
		return wmath.Vec3{}, fmt.Errorf("max distances: %v", err)
	}

	primaries := []wmath.Vec3{
		m.Apply(wmath.Vec3{1, 0, 0}),
		m.Apply(wmath.Vec3{0, 1, 0}),
		m.Apply(wmath.Vec3{0, 0, 1}),
	}

	dists := wmath.Vec3{}
	for _, p := range primaries {
		ach := Achromatic(p, shadowRolloff)
		for i := 0; i < 3; i++ {
			d := (ach[i] - p[i]) / ach[i]
			if d > dists[i] {
				dists[i] = d
			}
		}
	}
	return dists, nil
}

// Compression is the descriptor the calibration exports: enough to
// replay the operator downstream.
type Compression struct {
	Threshold     float64     // distances at or below this pass through unchanged
	Limits        wmath.Vec3  // per-channel max distance to compress from
	ShadowRolloff float64
}

func NewCompression(limits wmath.Vec3) Compression {
	c := Compression{
		Threshold:     DefaultCompressThreshold,
		Limits:        limits,
		ShadowRolloff: DefaultShadowRolloff,
	}
	// A limit inside the threshold would compress nothing;
	// clamp up so the knee stays well formed.
	for i := 0; i < 3; i++ {
		if c.Limits[i] < compressionLimitMin {
			c.Limits[i] = compressionLimitMin
		}
	}
	return c
}

// Compress applies the operator to one RGB triple. Distances below
// the threshold are untouched; above it they follow a Reinhard knee
// that approaches (but never reaches) the limit. The knee is C1
// continuous at the threshold boundary.
func (c Compression)Compress(rgb wmath.Vec3) wmath.Vec3 {
	ach := Achromatic(rgb, c.ShadowRolloff)
	if ach[0] <= 0 {
		return rgb
	}

	out := rgb
	for i := 0; i < 3; i++ {
		d := (ach[i] - rgb[i]) / ach[i]
		if d <= c.Threshold {
			continue
		}

		span := c.Limits[i] - c.Threshold
		excess := d - c.Threshold
		compressed := c.Threshold + excess/(1.0+excess/span)
		out[i] = ach[i] - compressed*ach[i]
	}
	return out
}
