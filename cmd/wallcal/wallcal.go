package main

import(
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"

	"github.com/wallcal/wallcal/pkg/wcal"
	"github.com/wallcal/wallcal/pkg/wframe"
)

var(
	Log *log.Logger

	fConfigFilename string
	fOutputDir      string
	fVerbosity      int
)

func init() {
	flag.StringVar(&fConfigFilename, "c", "project.yaml", "name of the project config file")
	flag.StringVar(&fOutputDir, "o", ".", "directory to write calibration bundles into")
	flag.IntVar(&fVerbosity, "v", 0, "verbosity level for patch extraction")
	flag.Parse()

	Log = log.New(os.Stdout, "", log.Ldate|log.Ltime)
	log.Printf("Starting\n")
}

func main() {
	c, err := wcal.LoadConfiguration(fConfigFilename)
	if err != nil {
		Log.Fatal(err)
	}

	anyFailed := false

	walls := make([]wcal.Wall, 0, len(c.Walls))
	for _, ws := range c.Walls {
		set, err := extractWall(ws, c.Sampling)
		if err != nil {
			log.Printf("wall %s: extraction failed: %v\n", ws.Name, err)
			anyFailed = true
			continue
		}
		walls = append(walls, wcal.Wall{Settings: ws, Samples: set})
	}

	results, err := wcal.RunPlan(walls)
	if err != nil {
		wallErrs, ok := err.(wcal.WallErrors)
		if !ok {
			Log.Fatalf("calibration failed: %v\n", err)
		}
		for name, werr := range wallErrs {
			log.Printf("wall %s: calibration failed: %v\n", name, werr)
		}
		anyFailed = true
	}

	worst := wcal.StatusPass
	for _, ws := range c.Walls {
		r, ok := results[ws.Name]
		if !ok {
			continue
		}
		checks := wcal.Validate(r, ws)
		for _, check := range checks {
			log.Printf("wall %s: %s\n", ws.Name, check)
		}
		if v := wcal.Verdict(checks); v > worst {
			worst = v
		}

		filename := filepath.Join(fOutputDir, ws.Name+"_calibration.json")
		if err := r.Bundle(ws).Save(filename); err != nil {
			Log.Fatal(err)
		}
		log.Printf("wall %s: bundle written '%s'\n", ws.Name, filename)
	}

	log.Printf("overall verdict: %s\n", worst)
	if worst == wcal.StatusFail || anyFailed {
		os.Exit(1)
	}
}

func extractWall(ws wcal.WallSettings, sampling wcal.SamplingOptions) (wcal.SampleSet, error) {
	seq, err := wframe.LoadSequence(ws.Frames)
	if err != nil {
		return wcal.SampleSet{}, err
	}
	if seq.Len() == 0 {
		return wcal.SampleSet{}, fmt.Errorf("no frames found in '%s'", ws.Frames)
	}
	log.Printf("wall %s: %d frames loaded from '%s'\n", ws.Name, seq.Len(), ws.Frames)

	roi := seq.Frames[0].Image.Bounds()
	if len(ws.ROI) == 4 {
		roi = image.Rect(ws.ROI[0], ws.ROI[1], ws.ROI[2], ws.ROI[3])
	}

	opts := wframe.ExtractOptions{
		NoiseFloor:   sampling.NoiseFloor,
		MinROIPixels: sampling.MinROIPixels,
		Verbosity:    fVerbosity,
	}
	patches, err := wframe.Extract(seq, roi, wcal.ExpectedPatchCount(ws.NumGreyPatches), opts)
	if err != nil {
		return wcal.SampleSet{}, err
	}

	return wcal.BuildSampleSet(patches, ws.NumGreyPatches, ws.PrimariesSaturation)
}
