package wcal

import(
	"fmt"
	"sort"
	"strings"
)

// ZeroChannelError means a sample that should light all three
// channels has one at or below zero, so per-channel gains can not
// be formed from it.
type ZeroChannelError struct {
	Channel string
	Value   float64
}

func (e ZeroChannelError)Error() string {
	return fmt.Sprintf("%s channel is %g; cannot derive white balance gains", e.Channel, e.Value)
}

// TooManySamplesRejectedError aborts the EOTF fit when over a third
// of the ramp was tossed; at that point the wall response is too
// broken for a 1D correction to be meaningful.
type TooManySamplesRejectedError struct {
	Rejected int
	Total    int
}

func (e TooManySamplesRejectedError)Error() string {
	return fmt.Sprintf("rejected %d of %d grey ramp samples; wall response is too far from the target curve",
		e.Rejected, e.Total)
}

// RampDiscontinuityError flags a huge jump between the last two ramp
// samples. The usual cause is a genlock or frame rate mismatch that
// made the sampler land on the frame after the ramp.
type RampDiscontinuityError struct {
	Delta float64
}

func (e RampDiscontinuityError)Error() string {
	return fmt.Sprintf("last two grey ramp samples differ by %.3f; capture likely sampled past the end of the ramp "+
		"(check genlock, frame rates and playback sync)", e.Delta)
}

// NonMonotonicCurveError is recoverable: the fit clamps the offending
// knots and carries on, recording this as a warning rather than
// failing the wall.
type NonMonotonicCurveError struct {
	Channel string
}

func (e NonMonotonicCurveError)Error() string {
	return fmt.Sprintf("measured %s ramp was not monotonic; correction curve clamped", e.Channel)
}

// ClippingUnavoidableError means the avoid-clipping scale needed to
// keep the matrix rows under 1 would crush the image; the wall is too
// far outside the target gamut for a matrix to fix.
type ClippingUnavoidableError struct {
	Scale float64
	Floor float64
}

func (e ClippingUnavoidableError)Error() string {
	return fmt.Sprintf("avoiding clipping needs a scale of %.4f, below the %.2f floor; "+
		"wall gamut is too far from the target", e.Scale, e.Floor)
}

type PatchCountError struct {
	Got  int
	Want int
}

func (e PatchCountError)Error() string {
	return fmt.Sprintf("sample set has %d patches, the pattern layout needs %d", e.Got, e.Want)
}

// DependencyCycleError reports walls whose reference-wall links loop.
type DependencyCycleError struct {
	Walls []string
}

func (e DependencyCycleError)Error() string {
	return fmt.Sprintf("reference wall dependencies form a cycle: %s", strings.Join(e.Walls, " -> "))
}

type UnknownGamutError struct {
	Name  string
	Known []string
}

func (e UnknownGamutError)Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("no gamut named '%s' in the catalog", e.Name)
	}
	return fmt.Sprintf("no gamut named '%s' in the catalog (have: %s)", e.Name, strings.Join(e.Known, ", "))
}

// WallErrors collects per-wall calibration failures. A bad capture on
// one wall never blocks the others; walls absent from the map solved
// fine and their results are still returned.
type WallErrors map[string]error

func (e WallErrors)Error() string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("'%s': %v", name, e[name])
	}
	return fmt.Sprintf("%d wall(s) failed to calibrate: %s", len(e), strings.Join(parts, "; "))
}
