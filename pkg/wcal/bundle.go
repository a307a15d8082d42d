package wcal

import(
	"encoding/json"
	"fmt"
	"io/ioutil"

	"github.com/wallcal/wallcal/pkg/wcolor"
	"github.com/wallcal/wallcal/pkg/wmath"
)

// TransformBundle is the deliverable of a calibration: the minimal
// set of transforms a playback chain needs to show target-space
// content correctly on the measured wall. Apply is pure; the bundle
// can be shared across goroutines.
type TransformBundle struct {
	Wall  string           `json:"wall"`
	Order CalculationOrder `json:"order"`

	WhiteBalance       wmath.Mat3 `json:"white_balance"`
	CameraWhiteBalance wmath.Mat3 `json:"camera_white_balance"`
	TargetToScreen     wmath.Mat3 `json:"target_to_screen"`

	RedCurve   wmath.Curve1D `json:"red_curve"`
	GreenCurve wmath.Curve1D `json:"green_curve"`
	BlueCurve  wmath.Curve1D `json:"blue_curve"`

	Compression        wcolor.Compression `json:"compression"`
	CompressionEnabled bool               `json:"compression_enabled"`

	TargetGamut string                  `json:"target_gamut"`
	TargetEOTF  wcolor.TransferFunction `json:"target_eotf"`

	ExposureScaling float64  `json:"exposure_scaling"`
	ClipScale       float64  `json:"clip_scale"`
	Warnings        []string `json:"warnings,omitempty"`
}

// Bundle packages the transforms out of a result set.
func (r *Results)Bundle(w WallSettings) TransformBundle {
	return TransformBundle{
		Wall:               r.Wall,
		Order:              r.Order,
		WhiteBalance:       r.WhiteBalance,
		CameraWhiteBalance: r.CameraWhiteBalance,
		TargetToScreen:     r.TargetToScreen,
		RedCurve:           r.EOTF.Red,
		GreenCurve:         r.EOTF.Green,
		BlueCurve:          r.EOTF.Blue,
		Compression:        r.Compression,
		CompressionEnabled: r.CompressionEnabled,
		TargetGamut:        w.TargetGamutName,
		TargetEOTF:         w.TargetEOTF,
		ExposureScaling:    r.ExposureScaling,
		ClipScale:          r.ClipScale,
		Warnings:           r.Warnings,
	}
}

func (b TransformBundle)curves() EOTFCorrection {
	return EOTFCorrection{Red: b.RedCurve, Green: b.GreenCurve, Blue: b.BlueCurve}
}

// Apply runs one target-space linear RGB value through the chain:
// gamut compression toward the measured screen, the 3x3 matrix, then
// the per-channel correction curves (reversed for the EOTF-first
// order). Empty curves pass values through untouched.
func (b TransformBundle)Apply(rgb wmath.Vec3) wmath.Vec3 {
	if b.CompressionEnabled {
		rgb = b.Compression.Compress(rgb)
	}
	if b.Order == OrderEOTFThenGamut {
		return b.TargetToScreen.Apply(b.curves().Apply(rgb))
	}
	return b.curves().Apply(b.TargetToScreen.Apply(rgb))
}

func (b TransformBundle)Save(filename string) error {
	contents, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bundle: %v", err)
	}
	if err := ioutil.WriteFile(filename, contents, 0644); err != nil {
		return fmt.Errorf("write '%s': %v", filename, err)
	}
	return nil
}

func LoadBundle(filename string) (TransformBundle, error) {
	b := TransformBundle{}
	contents, err := ioutil.ReadFile(filename)
	if err != nil {
		return b, fmt.Errorf("read '%s': %v", filename, err)
	}
	if err := json.Unmarshal(contents, &b); err != nil {
		return b, fmt.Errorf("parse '%s': %v", filename, err)
	}
	return b, nil
}
