package wcal

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallcal/wallcal/pkg/wcolor"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "wallcal")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	filename := filepath.Join(dir, "project.yaml")
	require.NoError(t, ioutil.WriteFile(filename, []byte(contents), 0644))
	return filename
}

func TestLoadConfigurationDefaults(t *testing.T) {
	filename := writeConfig(t, `
walls:
  - name: main
    peaknits: 1500
`)
	c, err := LoadConfiguration(filename)
	require.NoError(t, err)
	require.Len(t, c.Walls, 1)

	w := c.Walls[0]
	assert.Equal(t, "main", w.Name)
	assert.Equal(t, 1500.0, w.PeakNits)
	assert.Equal(t, wcolor.Rec2020.Name, w.Target.Name)
	assert.Equal(t, wcolor.ACESAP0.Name, w.Camera.Name)
	assert.Equal(t, 30, w.NumGreyPatches)
	assert.Equal(t, 0.7, w.PrimariesSaturation)
	assert.Equal(t, OrderAuto, w.CalculationOrder)
	assert.Equal(t, wcolor.TFPQ, w.TargetEOTF.Kind)
	assert.Equal(t, 1500.0, w.TargetEOTF.PeakNits)
	assert.True(t, w.EOTFCorrectionEnabled())
	assert.True(t, w.AvoidClippingEnabled())
}

func TestLoadConfigurationCustomGamut(t *testing.T) {
	filename := writeConfig(t, `
customgamuts:
  - name: VendorPanel
    red:   {x: 0.690, y: 0.305}
    green: {x: 0.200, y: 0.720}
    blue:  {x: 0.145, y: 0.052}
    white: {x: 0.3127, y: 0.3290}
walls:
  - name: main
    targetgamut: VendorPanel
`)
	c, err := LoadConfiguration(filename)
	require.NoError(t, err)
	assert.Equal(t, "VendorPanel", c.Walls[0].Target.Name)
	assert.InDelta(t, 0.690, c.Walls[0].Target.Red.X, 1e-12)
}

func TestLoadConfigurationUnknownGamut(t *testing.T) {
	filename := writeConfig(t, `
walls:
  - name: main
    targetgamut: NoSuchGamut
`)
	_, err := LoadConfiguration(filename)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NoSuchGamut")
	// The error names the gamuts that would have worked
	assert.Contains(t, err.Error(), "Rec2020")
}

func TestLoadConfigurationDuplicateWalls(t *testing.T) {
	filename := writeConfig(t, `
walls:
  - name: main
  - name: main
`)
	_, err := LoadConfiguration(filename)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestLoadConfigurationUnknownReferenceWall(t *testing.T) {
	filename := writeConfig(t, `
walls:
  - name: main
    referencewall: ghost
`)
	_, err := LoadConfiguration(filename)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestLoadConfigurationBadOrder(t *testing.T) {
	filename := writeConfig(t, `
walls:
  - name: main
    calculationorder: sideways
`)
	_, err := LoadConfiguration(filename)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sideways")
}

func TestCameraConversionCAT(t *testing.T) {
	catalog, err := wcolor.NewCatalog()
	require.NoError(t, err)

	w := WallSettings{Name: "a", NativeCameraName: wcolor.REDWideGamut.Name}
	require.NoError(t, w.finalize(catalog))
	assert.Equal(t, wcolor.CATBradford, w.CameraConversionCAT())

	w = WallSettings{Name: "b", NativeCameraName: wcolor.ARRIWideGamut3.Name}
	require.NoError(t, w.finalize(catalog))
	assert.Equal(t, wcolor.CATCAT02, w.CameraConversionCAT())
}
