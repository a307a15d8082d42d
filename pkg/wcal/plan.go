package wcal

import(
	"fmt"
	"log"
	"sync"

	"github.com/wallcal/wallcal/pkg/wmath"
)

// Wall pairs one wall's settings with its extracted samples, ready to
// solve.
type Wall struct {
	Settings WallSettings
	Samples  SampleSet
}

// SortWalls orders walls so every wall comes after the wall it
// references. Cycles in the reference links are an error.
func SortWalls(walls []WallSettings) ([]WallSettings, error) {
	byName := map[string]WallSettings{}
	for _, w := range walls {
		byName[w.Name] = w
	}

	const(
		unvisited = iota
		inProgress
		done
	)
	state := map[string]int{}
	ordered := []WallSettings{}

	var visit func(w WallSettings, path []string) error
	visit = func(w WallSettings, path []string) error {
		switch state[w.Name] {
		case done:
			return nil
		case inProgress:
			return DependencyCycleError{Walls: append(path, w.Name)}
		}
		state[w.Name] = inProgress

		if w.ReferenceWall != "" {
			ref, ok := byName[w.ReferenceWall]
			if !ok {
				return fmt.Errorf("wall '%s' references unknown wall '%s'", w.Name, w.ReferenceWall)
			}
			if err := visit(ref, append(path, w.Name)); err != nil {
				return err
			}
		}

		state[w.Name] = done
		ordered = append(ordered, w)
		return nil
	}

	for _, w := range walls {
		if err := visit(w, nil); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

// RunPlan calibrates a set of walls, solving independent walls
// concurrently. Walls at the same depth in the reference chain run in
// one batch; a wall that matches its reference wall reuses that
// wall's solved white balance. Failures are isolated per wall: a bad
// capture fails that wall (and any wall that needs its white balance)
// but the rest of the batch still solves, with the failures collected
// into a WallErrors. Structural problems with the plan itself, like a
// reference cycle, fail the whole plan before any wall runs.
func RunPlan(walls []Wall) (map[string]*Results, error) {
	settings := make([]WallSettings, len(walls))
	samplesByName := map[string]SampleSet{}
	for i, w := range walls {
		settings[i] = w.Settings
		samplesByName[w.Settings.Name] = w.Samples
	}

	ordered, err := SortWalls(settings)
	if err != nil {
		return nil, err
	}

	depth := func(w WallSettings) int {
		d := 0
		for w.ReferenceWall != "" {
			d++
			for _, o := range ordered {
				if o.Name == w.ReferenceWall {
					w = o
					break
				}
			}
		}
		return d
	}

	batches := map[int][]WallSettings{}
	maxDepth := 0
	for _, w := range ordered {
		d := depth(w)
		batches[d] = append(batches[d], w)
		if d > maxDepth {
			maxDepth = d
		}
	}

	results := map[string]*Results{}
	failed := WallErrors{}
	var mu sync.Mutex

	for d := 0; d <= maxDepth; d++ {
		batch := batches[d]
		log.Printf("calibrating batch %d: %d wall(s)", d, len(batch))

		var wg sync.WaitGroup
		for _, w := range batch {
			var externalWB *wmath.Mat3
			if w.MatchReferenceWall && w.ReferenceWall != "" {
				mu.Lock()
				ref, ok := results[w.ReferenceWall]
				if !ok {
					failed[w.Name] = fmt.Errorf("reference wall '%s' did not calibrate", w.ReferenceWall)
				}
				mu.Unlock()
				if !ok {
					continue
				}
				wb := ref.WhiteBalance
				externalWB = &wb
			}

			wg.Add(1)
			go func(w WallSettings, externalWB *wmath.Mat3) {
				defer wg.Done()
				r, err := Calibrate(samplesByName[w.Name], w, externalWB)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failed[w.Name] = err
					return
				}
				results[w.Name] = r
			}(w, externalWB)
		}
		wg.Wait()
	}

	if len(failed) > 0 {
		return results, failed
	}
	return results, nil
}
