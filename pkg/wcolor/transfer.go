package wcolor

// Transfer functions, operating on single channel values. Linear
// light throughout this module is normalized so that 1.0 == 100 nits,
// which keeps SDR walls on a [0,1] range and lets PQ walls exceed it.

import(
	"fmt"
	"math"
)

type TransferKind string

const(
	TFLinear TransferKind = "linear"
	TFGamma  TransferKind = "gamma"
	TFSRGB   TransferKind = "sRGB"
	TFBT1886 TransferKind = "BT1886"
	TFPQ     TransferKind = "ST2084"
)

// ST 2084 fixed constants
const(
	pqM1      = 0.1593017578125
	pqM2      = 78.84375
	pqC1      = 0.8359375
	pqC2      = 18.8515625
	pqC3      = 18.6875
	pqMaxNits = 10000.0
)

type TransferFunction struct {
	Kind     TransferKind `yaml:"kind"`
	Gamma    float64      `yaml:"gamma,omitempty"`     // for TFGamma
	PeakNits float64      `yaml:"peak_nits,omitempty"` // for TFPQ; largest luminance the wall is driven to
}

func (tf TransferFunction)String() string {
	switch tf.Kind {
	case TFGamma: return fmt.Sprintf("gamma %.2f", tf.Gamma)
	case TFPQ:    return fmt.Sprintf("ST2084 @%.0f nits", tf.PeakNits)
	}
	return string(tf.Kind)
}

// MaxLinear is the largest linear-light value the function can
// represent, in 1.0 == 100 nits units.
func (tf TransferFunction)MaxLinear() float64 {
	if tf.Kind == TFPQ {
		return tf.PeakNits * 0.01
	}
	return 1.0
}

// Eotf maps a code value to display linear light.
func (tf TransferFunction)Eotf(v float64) float64 {
	switch tf.Kind {
	case TFLinear:
		return v

	case TFGamma:
		if v <= 0 { return 0 }
		return math.Pow(v, tf.Gamma)

	case TFBT1886:
		if v <= 0 { return 0 }
		return math.Pow(v, 2.4)

	case TFSRGB:
		if v <= 0.04045 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)

	case TFPQ:
		return PQToNits(v) * 0.01
	}
	return v
}

// InverseEotf maps display linear light back to a code value. The
// round trip holds to better than 1e-6 relative over [0,1].
func (tf TransferFunction)InverseEotf(v float64) float64 {
	switch tf.Kind {
	case TFLinear:
		return v

	case TFGamma:
		if v <= 0 { return 0 }
		return math.Pow(v, 1.0/tf.Gamma)

	case TFBT1886:
		if v <= 0 { return 0 }
		return math.Pow(v, 1.0/2.4)

	case TFSRGB:
		// https://www.sjbrown.co.uk/posts/gamma-correct-rendering/
		if v <= 0.0031308 {
			return 12.92 * v
		}
		return 1.055*math.Pow(v, 1.0/2.4) - 0.055

	case TFPQ:
		return NitsToPQ(v * 100.0)
	}
	return v
}

// NitsToPQ encodes an absolute luminance as an ST 2084 signal value.
func NitsToPQ(nits float64) float64 {
	if nits < 0 {
		nits = 0
	}
	y := math.Pow(nits/pqMaxNits, pqM1)
	return math.Pow((pqC1+pqC2*y)/(1.0+pqC3*y), pqM2)
}

// PQToNits decodes an ST 2084 signal value to absolute luminance.
func PQToNits(pq float64) float64 {
	if pq <= 0 {
		return 0
	}
	e := math.Pow(pq, 1.0/pqM2)
	num := e - pqC1
	if num < 0 {
		num = 0
	}
	return pqMaxNits * math.Pow(num/(pqC2-pqC3*e), 1.0/pqM1)
}
