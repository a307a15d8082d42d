package wframe

// Patch extraction. The calibration patches are multiplexed in time:
// each patch is held for a fixed run of frames. We scan the mean ROI
// color along the frame axis and cut the sequence wherever it steps
// by more than the noise floor; each stable run between cuts is one
// patch. The first and last frame of a run are dropped (frame
// multiplexing and camera settle), the rest averaged.

import(
	"fmt"
	"image"
	"log"
	"math"
	"sort"

	"github.com/skypies/util/histogram"

	"github.com/wallcal/wallcal/pkg/wmath"
)

type Patch struct {
	Index      int // position in the sequence, in display order
	FirstFrame int
	LastFrame  int
	FrameCount int // frames actually averaged, after trimming
	MeanRGB    wmath.Vec3
}

func (p Patch)String() string {
	return fmt.Sprintf("patch[%02d] frames %d-%d %s", p.Index, p.FirstFrame, p.LastFrame, p.MeanRGB)
}

type DegenerateROIError struct {
	Pixels int
	Min    int
}

func (e DegenerateROIError)Error() string {
	return fmt.Sprintf("roi has %d pixels, need at least %d", e.Pixels, e.Min)
}

type InsufficientPatchesError struct {
	Found    int
	Expected int
}

func (e InsufficientPatchesError)Error() string {
	return fmt.Sprintf("found %d stable patches, expected %d", e.Found, e.Expected)
}

type ExtractOptions struct {
	// NoiseFloor is the smallest per-channel step treated as a patch
	// boundary. Zero means estimate it from the sequence itself.
	NoiseFloor   float64
	MinROIPixels int
	Verbosity    int
}

func NewExtractOptions() ExtractOptions {
	return ExtractOptions{
		MinROIPixels: 64,
	}
}

// Extract locates the calibration patches in a sequence and returns
// one averaged sample per patch, in display order. `expected` is the
// patch count the pattern on the wall contains; finding fewer stable
// runs than that aborts with InsufficientPatchesError.
func Extract(seq Sequence, roi image.Rectangle, expected int, opts ExtractOptions) ([]Patch, error) {
	if opts.MinROIPixels <= 0 {
		opts.MinROIPixels = 64
	}
	if pixels := roi.Dx() * roi.Dy(); pixels < opts.MinROIPixels {
		return nil, DegenerateROIError{Pixels: pixels, Min: opts.MinROIPixels}
	}
	if seq.Len() == 0 {
		return nil, InsufficientPatchesError{Found: 0, Expected: expected}
	}

	means := make([]wmath.Vec3, seq.Len())
	for i, f := range seq.Frames {
		means[i] = f.MeanRGB(roi)
	}

	if opts.Verbosity > 0 {
		logLuminanceHistogram(means)
	}

	deltas := frameDeltas(means)
	floor := opts.NoiseFloor
	if floor <= 0 {
		floor = estimateNoiseFloor(deltas)
	}

	runs := cutRuns(deltas, floor)

	patches := []Patch{}
	for idx, run := range runs {
		first, last := run[0], run[1]

		// Trim the multiplex frames off either side when the run is
		// long enough; a short run keeps everything it has.
		lo, hi := first, last
		if hi-lo >= 2 {
			lo, hi = lo+1, hi-1
		}

		sum := wmath.Vec3{}
		for i := lo; i <= hi; i++ {
			sum = sum.Add(means[i])
		}

		patches = append(patches, Patch{
			Index:      idx,
			FirstFrame: first,
			LastFrame:  last,
			FrameCount: hi - lo + 1,
			MeanRGB:    sum.Scale(1.0 / float64(hi-lo+1)),
		})
	}

	if len(patches) < expected {
		return nil, InsufficientPatchesError{Found: len(patches), Expected: expected}
	}

	if opts.Verbosity > 0 {
		for _, p := range patches {
			log.Printf("%s\n", p)
		}
	}

	return patches, nil
}

// frameDeltas is the largest per-channel change between consecutive
// frames; deltas[i] sits between frame i-1 and frame i.
func frameDeltas(means []wmath.Vec3) []float64 {
	deltas := make([]float64, len(means))
	for i := 1; i < len(means); i++ {
		d := 0.0
		for ch := 0; ch < 3; ch++ {
			if v := math.Abs(means[i][ch] - means[i-1][ch]); v > d {
				d = v
			}
		}
		deltas[i] = d
	}
	return deltas
}

// estimateNoiseFloor assumes most frame-to-frame deltas are sensor
/// noise within a held patch: take a mid quantile of the deltas as the
// noise level and demand a boundary clear it by a wide margin.
func estimateNoiseFloor(deltas []float64) float64 {
	if len(deltas) < 2 {
		return 0.004
	}
	sorted := append([]float64{}, deltas[1:]...)
	sort.Float64s(sorted)
	noise := sorted[len(sorted)*3/5]

	floor := noise * 8.0
	if floor < 0.004 {
		floor = 0.004
	}
	return floor
}

// cutRuns splits frame indices into [first,last] runs at every delta
// above the floor.
func cutRuns(deltas []float64, floor float64) [][2]int {
	runs := [][2]int{}
	start := 0
	for i := 1; i < len(deltas); i++ {
		if deltas[i] > floor {
			runs = append(runs, [2]int{start, i - 1})
			start = i
		}
	}
	runs = append(runs, [2]int{start, len(deltas) - 1})
	return runs
}

// Debug aid: a coarse histogram of frame luminances, so a bad ROI or
// a misexposed sequence is obvious in the log.
func logLuminanceHistogram(means []wmath.Vec3) {
	hist := histogram.Histogram{NumBuckets: 64, ValMin: 0, ValMax: 256}
	for _, m := range means {
		v := int(m.Mean() * 256.0)
		if v > 255 { v = 255 }
		if v < 0 { v = 0 }
		hist.Add(histogram.ScalarVal(v))
	}
	log.Printf("ROI frame luminance distribution: %s\n", hist)
}
