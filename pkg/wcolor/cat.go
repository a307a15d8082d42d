package wcolor

// Chromatic adaptation transforms. All the standard methods are the
// same sandwich: project XYZ into a cone response domain, scale each
// cone channel by the ratio of the target white's response to the
// source white's, and project back.
//
// https://www.brucelindbloom.com/index.html?Eqn_ChromAdapt.html

import(
	"fmt"

	"github.com/wallcal/wallcal/pkg/wmath"
)

type CATMethod string

const(
	CATNone       CATMethod = "None"
	CATBradford   CATMethod = "Bradford"
	CATVonKries   CATMethod = "Von Kries"
	CATCAT02      CATMethod = "CAT02"
	CATCAT16      CATMethod = "CAT16"
	CATXYZScaling CATMethod = "XYZ Scaling"
)

var CATMethods = []CATMethod{CATNone, CATBradford, CATVonKries, CATCAT02, CATCAT16, CATXYZScaling}

var(
	bradfordM = wmath.Mat3{
		 0.8951,  0.2664, -0.1614,
		-0.7502,  1.7135,  0.0367,
		 0.0389, -0.0685,  1.0296,
	}
	// Hunt-Pointer-Estevez, D65 normalized
	vonKriesM = wmath.Mat3{
		 0.40024,  0.70760, -0.08081,
		-0.22630,  1.16532,  0.04570,
		 0.00000,  0.00000,  0.91822,
	}
	cat02M = wmath.Mat3{
		 0.7328,  0.4296, -0.1624,
		-0.7036,  1.6975,  0.0061,
		 0.0030,  0.0136,  0.9834,
	}
	cat16M = wmath.Mat3{
		 0.401288,  0.650173, -0.051461,
		-0.250268,  1.204414,  0.045854,
		-0.002079,  0.048952,  0.953127,
	}
)

func coneMatrix(method CATMethod) (wmath.Mat3, error) {
	switch method {
	case CATBradford:   return bradfordM, nil
	case CATVonKries:   return vonKriesM, nil
	case CATCAT02:      return cat02M, nil
	case CATCAT16:      return cat16M, nil
	case CATXYZScaling: return wmath.Identity(), nil
	}
	return wmath.Mat3{}, fmt.Errorf("no chromatic adaptation method named '%s'", method)
}

// AdaptationMatrix maps XYZ values adapted to sourceWhite into XYZ
// values adapted to targetWhite. CATNone deliberately returns the
// identity: the white point mismatch is left in place.
func AdaptationMatrix(sourceWhite, targetWhite XY, method CATMethod) (wmath.Mat3, error) {
	if method == CATNone {
		return wmath.Identity(), nil
	}

	m, err := coneMatrix(method)
	if err != nil {
		return wmath.Mat3{}, err
	}

	srcCone := m.Apply(XYToXYZ(sourceWhite))
	dstCone := m.Apply(XYToXYZ(targetWhite))

	for i := 0; i < 3; i++ {
		if srcCone[i] == 0 {
			return wmath.Mat3{}, fmt.Errorf("cat %s: source white has zero cone response", method)
		}
	}

	scale := wmath.Vec3{dstCone[0] / srcCone[0], dstCone[1] / srcCone[1], dstCone[2] / srcCone[2]}

	mInv, err := m.Inverse()
	if err != nil {
		return wmath.Mat3{}, fmt.Errorf("cat %s: %v", method, err)
	}

	return mInv.Mult(scale.Diag()).Mult(m), nil
}
