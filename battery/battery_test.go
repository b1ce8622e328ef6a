package battery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLiPoLevelAtRangeEndpoints(t *testing.T) {
	m := NewModel(Config{Type: ChemistryLiPo, MinVoltage: 3.0, MaxVoltage: 4.2})

	assert.Equal(t, float32(0), m.CalculateLevel(3.0))
	assert.Equal(t, float32(100), m.CalculateLevel(4.2))

	// Below and above the configured range clamps, never under/overflows.
	assert.Equal(t, float32(0), m.CalculateLevel(2.5))
	assert.Equal(t, float32(100), m.CalculateLevel(4.5))
}

func TestLevelBoundedAndMonotone(t *testing.T) {
	for _, chem := range []Chemistry{ChemistryLiPo, ChemistryLiIon} {
		m := NewModel(Config{Type: chem, MinVoltage: 3.0, MaxVoltage: 4.2})

		last := float32(-1)
		for v := float32(3.0); v <= 4.2; v += 0.01 {
			level := m.CalculateLevel(v)
			assert.GreaterOrEqual(t, level, float32(0), "chemistry %s voltage %.2f", chem, v)
			assert.LessOrEqual(t, level, float32(100), "chemistry %s voltage %.2f", chem, v)
			assert.GreaterOrEqual(t, level, last, "chemistry %s voltage %.2f", chem, v)
			last = level
		}
	}
}

func TestUnknownChemistryAlwaysInvalid(t *testing.T) {
	m := NewModel(DefaultConfig(ChemistryUnknown))

	for _, v := range []float32{-1, 0, 3.3, 4.2, 12, 42} {
		assert.Equal(t, InvalidLevel, m.CalculateLevel(v))
	}
	assert.Equal(t, InvalidLevel, m.Level())
}

func TestInvalidRangeYieldsInvalidLevel(t *testing.T) {
	// A misconfigured range (min >= max) must degrade like the null model.
	m := NewModel(Config{Type: ChemistryLiPo, MinVoltage: 4.2, MaxVoltage: 4.2})
	assert.Equal(t, InvalidLevel, m.CalculateLevel(4.0))
}

func TestModelReadBack(t *testing.T) {
	m := NewModel(Config{
		Type:        ChemistryLiPo,
		MinVoltage:  3.0,
		MaxVoltage:  4.2,
		CapacityMah: 2500,
		Calibration: 0.1,
	})

	assert.Equal(t, InvalidVoltage, m.Voltage())
	assert.Equal(t, InvalidLevel, m.Level())

	m.SetVoltage(3.84)
	level := m.CalculateLevel(3.84)
	assert.Equal(t, float32(3.84), m.Voltage())
	assert.Equal(t, level, m.Level())

	assert.Equal(t, float32(3.0), m.MinVoltage())
	assert.Equal(t, float32(4.2), m.MaxVoltage())
	assert.Equal(t, 2500, m.Capacity())
	assert.Equal(t, float32(0.1), m.Calibration())
}

func TestUpdateConfigSwitchesCurve(t *testing.T) {
	m := NewModel(DefaultConfig(ChemistryUnknown))
	assert.Equal(t, InvalidLevel, m.CalculateLevel(4.0))

	m.UpdateConfig(Config{Type: ChemistryLiIon, MinVoltage: 3.0, MaxVoltage: 4.2})
	assert.NotEqual(t, InvalidLevel, m.CalculateLevel(4.0))
}

func TestChemistryStrings(t *testing.T) {
	assert.Equal(t, "lipo", ChemistryLiPo.String())
	assert.Equal(t, "li-ion", ChemistryLiIon.String())
	assert.Equal(t, "unknown", ChemistryUnknown.String())

	assert.Equal(t, ChemistryLiPo, ChemistryFromString("lipo"))
	assert.Equal(t, ChemistryLiIon, ChemistryFromString("li-ion"))
	assert.Equal(t, ChemistryLiIon, ChemistryFromString("lion"))
	assert.Equal(t, ChemistryUnknown, ChemistryFromString("unknown"))
	assert.Equal(t, ChemistryUnknown, ChemistryFromString("foobar"))
}
