package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminode/luminode-controller/battery"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battery.json")

	doc, found, err := Load(path)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, Default(), doc)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battery.json")

	pin := 34
	doc := Default()
	doc.Type = "lipo"
	doc.Pin = &pin
	doc.Calibration = 0.05
	doc.IntervalMs = 10000
	doc.AutoOff = AutoOff{Enabled: true, Threshold: 8}
	doc.Indicator = Indicator{Enabled: true, Preset: 9, Threshold: 15, Duration: 10}
	require.NoError(t, Save(path, doc))

	loaded, found, err := Load(path)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, doc, loaded)
}

func TestLoadPartialDocumentKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battery.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type": "li-ion", "interval": 5000}`), 0644))

	doc, found, err := Load(path)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "li-ion", doc.Type)
	assert.Equal(t, 5000, doc.IntervalMs)
	// Unmentioned fields stay at their defaults.
	assert.Equal(t, float32(3.0), doc.MinVoltage)
	assert.Equal(t, 20, doc.Indicator.Threshold)
	assert.Nil(t, doc.Pin)
}

func TestLoadCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battery.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, found, err := Load(path)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestBatteryConfigConversion(t *testing.T) {
	doc := Default()
	doc.Type = "lipo"
	doc.MinVoltage = 3.2
	doc.MaxVoltage = 4.1
	doc.Capacity = 1800
	doc.Calibration = -0.02

	cfg := doc.BatteryConfig()
	assert.Equal(t, battery.ChemistryLiPo, cfg.Type)
	assert.Equal(t, float32(3.2), cfg.MinVoltage)
	assert.Equal(t, float32(4.1), cfg.MaxVoltage)
	assert.Equal(t, 1800, cfg.CapacityMah)
	assert.Equal(t, float32(-0.02), cfg.Calibration)
}

func TestHasPin(t *testing.T) {
	doc := Default()
	assert.False(t, doc.HasPin())

	pin := -1
	doc.Pin = &pin
	assert.False(t, doc.HasPin())

	pin = 34
	assert.True(t, doc.HasPin())
}
