package wcal

import(
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v2"

	"github.com/wallcal/wallcal/pkg/wcolor"
)

/* Example config file ...

sampling:
  noisefloor: 0.0        # 0 means auto-estimate
  minroipixels: 64

customgamuts:
  - name: VendorPanel
    red:   {x: 0.690, y: 0.305}
    green: {x: 0.200, y: 0.720}
    blue:  {x: 0.145, y: 0.052}
    white: {x: 0.3127, y: 0.3290}

walls:
  - name: main
    peaknits: 1500
    targetgamut: Rec2020
    targeteotf: {kind: ST2084, peak_nits: 1500}
    nativecameragamut: ARRI Wide Gamut 3
    inputplategamut: ACES2065-1
    numgreypatches: 30
    primariessaturation: 0.7
  - name: ceiling
    peaknits: 1500
    referencewall: main
    matchreferencewall: true
*/

type CalculationOrder string

const(
	// OrderGamutOnly solves the 3x3 matrix alone; EOTF correction is off.
	OrderGamutOnly CalculationOrder = "gamut_only"
	// OrderGamutThenEOTF solves the 3x3 first, fits the 1D curves
	// behind it, then re-solves the matrix with the curves applied.
	OrderGamutThenEOTF CalculationOrder = "gamut_then_eotf"
	// OrderEOTFThenGamut fits the 1D curves first and solves the 3x3
	// from the corrected samples.
	OrderEOTFThenGamut CalculationOrder = "eotf_then_gamut"
	// OrderAuto picks per wall: OrderGamutOnly when the measured ramp
	// is already linear, OrderGamutThenEOTF otherwise.
	OrderAuto CalculationOrder = "auto"
)

type WallSettings struct {
	// Values from the config file
	Name                string
	Frames              string // directory holding the wall's plate sequence
	ROI                 []int  `yaml:"roi"` // x0, y0, x1, y1 in plate pixels
	PeakNits            float64
	TargetGamutName     string `yaml:"targetgamut"`
	TargetEOTF          wcolor.TransferFunction `yaml:"targeteotf"`
	NativeCameraName    string `yaml:"nativecameragamut"`
	InputPlateName      string `yaml:"inputplategamut"`
	ReferenceName       string `yaml:"referencegamut"`
	NumGreyPatches      int
	PrimariesSaturation float64
	CalculationOrder    CalculationOrder
	ReferenceToTargetCAT wcolor.CATMethod `yaml:"referencetotargetcat"`
	TargetToScreenCAT    wcolor.CATMethod `yaml:"targettoscreencat"`

	EnableEOTFCorrection   *bool `yaml:"enableeotfcorrection"`
	EnableGamutCompression *bool `yaml:"enablegamutcompression"`
	EnableWhiteBalance     *bool `yaml:"enablewhitebalance"`
	AvoidClipping          *bool `yaml:"avoidclipping"`

	ShadowRolloff    float64 `yaml:"shadowrolloff"`
	DeltaEThreshold  float64 `yaml:"deltaethreshold"` // ramp sample rejection
	LinearityTolerance float64 `yaml:"linearitytolerance"`
	ClipScaleFloor     float64 `yaml:"clipscalefloor"` // lowest acceptable avoid-clipping scale

	// ReferenceWall names another wall whose white balance this wall
	// reuses; MatchReferenceWall turns the reuse on.
	ReferenceWall      string `yaml:"referencewall"`
	MatchReferenceWall bool   `yaml:"matchreferencewall"`

	// Values we derive/compute
	Target     wcolor.Gamut `yaml:"-"`
	Camera     wcolor.Gamut `yaml:"-"`
	InputPlate wcolor.Gamut `yaml:"-"`
	Reference  wcolor.Gamut `yaml:"-"`
}

type SamplingOptions struct {
	NoiseFloor   float64
	MinROIPixels int
	Verbosity    int
}

type Configuration struct {
	Sampling     SamplingOptions
	CustomGamuts []customGamut `yaml:"customgamuts"`
	Walls        []WallSettings

	Catalog wcolor.Catalog `yaml:"-"`
}

type customGamut struct {
	Name  string
	Red   customXY
	Green customXY
	Blue  customXY
	White customXY
}

type customXY struct {
	X float64
	Y float64
}

func (g customGamut)gamut() wcolor.Gamut {
	return wcolor.Gamut{
		Name:  g.Name,
		Red:   wcolor.XY{X: g.Red.X, Y: g.Red.Y},
		Green: wcolor.XY{X: g.Green.X, Y: g.Green.Y},
		Blue:  wcolor.XY{X: g.Blue.X, Y: g.Blue.Y},
		White: wcolor.XY{X: g.White.X, Y: g.White.Y},
	}
}

func NewConfiguration() Configuration {
	return Configuration{
		Sampling: SamplingOptions{MinROIPixels: 64},
		Walls:    []WallSettings{},
	}
}

func LoadConfiguration(filename string) (Configuration, error) {
	c := NewConfiguration()

	if contents, err := ioutil.ReadFile(filename); err != nil {
		return c, fmt.Errorf("read '%s': %v", filename, err)
	} else if err := yaml.Unmarshal(contents, &c); err != nil {
		return c, fmt.Errorf("parse '%s': %v", filename, err)
	}

	return c, c.FinalizeConfiguration()
}

// FinalizeConfiguration does sanity checks and other post-processing
func (c *Configuration)FinalizeConfiguration() error {
	custom := make([]wcolor.Gamut, len(c.CustomGamuts))
	for i, g := range c.CustomGamuts {
		custom[i] = g.gamut()
	}
	catalog, err := wcolor.NewCatalog(custom...)
	if err != nil {
		return err
	}
	c.Catalog = catalog

	if len(c.Walls) == 0 {
		return fmt.Errorf("no walls configured")
	}

	seen := map[string]bool{}
	for i := range c.Walls {
		w := &c.Walls[i]
		if w.Name == "" {
			return fmt.Errorf("wall %d has no name", i)
		}
		if seen[w.Name] {
			return fmt.Errorf("duplicate wall name '%s'", w.Name)
		}
		seen[w.Name] = true

		if err := w.finalize(catalog); err != nil {
			return fmt.Errorf("wall '%s': %v", w.Name, err)
		}
	}

	for _, w := range c.Walls {
		if w.ReferenceWall != "" && !seen[w.ReferenceWall] {
			return fmt.Errorf("wall '%s' references unknown wall '%s'", w.Name, w.ReferenceWall)
		}
	}

	return nil
}

func (w *WallSettings)finalize(catalog wcolor.Catalog) error {
	if w.PeakNits <= 0 {
		w.PeakNits = 1000
	}
	if w.TargetGamutName == "" {
		w.TargetGamutName = wcolor.Rec2020.Name
	}
	if w.NativeCameraName == "" {
		w.NativeCameraName = wcolor.ACESAP0.Name
	}
	if w.InputPlateName == "" {
		w.InputPlateName = wcolor.ACESAP0.Name
	}
	if w.ReferenceName == "" {
		w.ReferenceName = wcolor.ACESAP0.Name
	}
	if w.TargetEOTF.Kind == "" {
		w.TargetEOTF = wcolor.TransferFunction{Kind: wcolor.TFPQ, PeakNits: w.PeakNits}
	}
	if w.NumGreyPatches <= 0 {
		w.NumGreyPatches = 30
	}
	if w.PrimariesSaturation == 0 {
		w.PrimariesSaturation = 0.7
	}
	if w.PrimariesSaturation < 0 || w.PrimariesSaturation > 1 {
		return fmt.Errorf("primaries saturation %g out of range (0,1]", w.PrimariesSaturation)
	}
	if w.CalculationOrder == "" {
		w.CalculationOrder = OrderAuto
	}
	switch w.CalculationOrder {
	case OrderGamutOnly, OrderGamutThenEOTF, OrderEOTFThenGamut, OrderAuto:
	default:
		return fmt.Errorf("no CalculationOrder named '%s'", w.CalculationOrder)
	}
	if w.ReferenceToTargetCAT == "" {
		w.ReferenceToTargetCAT = wcolor.CATBradford
	}
	if w.TargetToScreenCAT == "" {
		w.TargetToScreenCAT = wcolor.CATCAT02
	}
	if w.ShadowRolloff == 0 {
		w.ShadowRolloff = wcolor.DefaultShadowRolloff
	}
	if w.DeltaEThreshold == 0 {
		w.DeltaEThreshold = 20
	}
	if w.LinearityTolerance == 0 {
		w.LinearityTolerance = 0.05
	}
	if w.ClipScaleFloor == 0 {
		w.ClipScaleFloor = 0.1
	}
	if len(w.ROI) != 0 && len(w.ROI) != 4 {
		return fmt.Errorf("roi needs 4 values (x0, y0, x1, y1), got %d", len(w.ROI))
	}

	lookups := []struct {
		name string
		dst  *wcolor.Gamut
	}{
		{w.TargetGamutName, &w.Target},
		{w.NativeCameraName, &w.Camera},
		{w.InputPlateName, &w.InputPlate},
		{w.ReferenceName, &w.Reference},
	}
	for _, l := range lookups {
		g, ok := catalog.Lookup(l.name)
		if !ok {
			return UnknownGamutError{Name: l.name, Known: catalog.Names()}
		}
		*l.dst = g
	}

	return nil
}

// Bool toggles default to on; nil means unset.
func enabled(b *bool) bool { return b == nil || *b }

func (w WallSettings)EOTFCorrectionEnabled() bool   { return enabled(w.EnableEOTFCorrection) }
func (w WallSettings)GamutCompressionEnabled() bool { return enabled(w.EnableGamutCompression) }
func (w WallSettings)WhiteBalanceEnabled() bool     { return enabled(w.EnableWhiteBalance) }
func (w WallSettings)AvoidClippingEnabled() bool    { return enabled(w.AvoidClipping) }

// CameraConversionCAT picks the adaptation used when moving samples
// into the camera's native gamut. RED's wide gamut misbehaves under
// CAT02 (its blue primary sits far outside the spectral locus), so
// it gets Bradford.
func (w WallSettings)CameraConversionCAT() wcolor.CATMethod {
	if w.Camera.Name == wcolor.REDWideGamut.Name {
		return wcolor.CATBradford
	}
	return wcolor.CATCAT02
}
