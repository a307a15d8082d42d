package wcolor

// ICtCp color difference, the deltaE-ITP formulation from ITU-R
// BT.2124. Inputs are linear Rec2020 RGB on the 1.0 == 100 nits
// scale; the metric itself works on PQ-encoded cone responses, so it
// stays perceptually even across the full HDR range.
//
// https://www.portrait.com/resource-center/ictcp-color-difference-metric/

import(
	"math"

	"github.com/wallcal/wallcal/pkg/wmath"
)

var(
	// Rec2020 RGB to LMS, coefficients /4096 per BT.2100
	rgbToLMS = wmath.Mat3{
		1688.0 / 4096.0, 2146.0 / 4096.0,  262.0 / 4096.0,
		 683.0 / 4096.0, 2951.0 / 4096.0,  462.0 / 4096.0,
		  99.0 / 4096.0,  309.0 / 4096.0, 3688.0 / 4096.0,
	}
	pqLMSToICtCp = wmath.Mat3{
		 2048.0 / 4096.0,  2048.0 / 4096.0,     0.0,
		 6610.0 / 4096.0, -13613.0 / 4096.0, 7003.0 / 4096.0,
		17933.0 / 4096.0, -17390.0 / 4096.0, -543.0 / 4096.0,
	}
)

// RGBToICtCp maps a linear Rec2020 triple (1.0 == 100 nits) into
// ICtCp space.
func RGBToICtCp(rgb wmath.Vec3) wmath.Vec3 {
	lms := rgbToLMS.Apply(rgb)

	pqLMS := wmath.Vec3{
		NitsToPQ(lms[0] * 100.0),
		NitsToPQ(lms[1] * 100.0),
		NitsToPQ(lms[2] * 100.0),
	}

	return pqLMSToICtCp.Apply(pqLMS)
}

// DeltaEITP is the BT.2124 color difference between two linear
// Rec2020 triples. A value of 1 is one just-noticeable difference at
// the 720 scaling; callers wanting the common 240 scale divide by 3.
func DeltaEITP(a, b wmath.Vec3) float64 {
	ia, ib := RGBToICtCp(a), RGBToICtCp(b)

	dI := ia[0] - ib[0]
	dT := 0.5 * (ia[1] - ib[1]) // T = Ct/2
	dP := ia[2] - ib[2]

	return 720.0 * math.Sqrt(dI*dI+dT*dT+dP*dP)
}
