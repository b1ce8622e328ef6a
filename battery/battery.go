/*
luminode-controller - Power management for the Luminode LED controller
Copyright (C) 2024, The Luminode Project

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package battery converts a measured battery voltage into a charge
// percentage using a chemistry-specific discharge curve.
package battery

// Chemistry identifies the battery chemistry used for the discharge curve.
type Chemistry int

const (
	ChemistryUnknown Chemistry = iota
	ChemistryLiPo
	ChemistryLiIon
)

// InvalidLevel is reported when no valid percentage can be calculated.
const InvalidLevel float32 = -1

// InvalidVoltage is reported before any voltage has been measured.
const InvalidVoltage float32 = -1

func (c Chemistry) String() string {
	switch c {
	case ChemistryLiPo:
		return "lipo"
	case ChemistryLiIon:
		return "li-ion"
	default:
		return "unknown"
	}
}

// ChemistryFromString maps a config value to a Chemistry. Unrecognised
// values map to ChemistryUnknown rather than erroring, so a bad config
// degrades to the null model instead of failing to start.
func ChemistryFromString(s string) Chemistry {
	switch s {
	case "lipo":
		return ChemistryLiPo
	case "li-ion", "lion":
		return ChemistryLiIon
	default:
		return ChemistryUnknown
	}
}

// Config holds the user-facing battery parameters. It is plain data; all
// (de)serialization lives in the settings package.
type Config struct {
	Type        Chemistry
	MinVoltage  float32 // volts at 0%
	MaxVoltage  float32 // volts at 100%
	CapacityMah int
	Calibration float32 // volts, added to each reading
}

// DefaultConfig returns the compiled-in defaults for a chemistry.
func DefaultConfig(c Chemistry) Config {
	cfg := Config{
		Type:        c,
		MinVoltage:  3.0,
		MaxVoltage:  4.2,
		CapacityMah: 2500,
	}
	if c == ChemistryUnknown {
		cfg.MinVoltage = 0
		cfg.MaxVoltage = 0
		cfg.CapacityMah = 0
	}
	return cfg
}

// dischargeCurve is a single-cell discharge curve with the voltage axis
// normalized to the configured [MinVoltage, MaxVoltage] range, so one
// table serves any pack that uses the chemistry. Fractions must ascend
// and percents must be non-decreasing.
type dischargeCurve struct {
	fractions []float32 // (v - min) / (max - min)
	percents  []float32
}

// Curve shapes measured on single cells. LiPo and Li-Ion share the same
// knee positions; the Li-Ion table is the coarser 10-step variant.
var (
	lipoCurve = dischargeCurve{
		fractions: []float32{
			0.3333, 0.3833, 0.4250, 0.4667, 0.4833, 0.5083, 0.5167,
			0.5333, 0.5583, 0.5917, 0.6333, 0.6750, 0.7167, 0.7500,
			0.7750, 0.8083, 0.8333, 0.8667, 0.8917, 0.9250, 0.9750,
		},
		percents: []float32{
			0, 5, 10, 15, 20, 25, 30, 35, 40, 45, 50,
			55, 60, 65, 70, 75, 80, 85, 90, 95, 100,
		},
	}

	lionCurve = dischargeCurve{
		fractions: []float32{
			0.3333, 0.4250, 0.4833, 0.5167, 0.5583, 0.6333,
			0.7167, 0.7750, 0.8333, 0.8917, 0.9750,
		},
		percents: []float32{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	}
)

// interpolate maps a normalized voltage fraction to a percentage with
// linear interpolation between the two nearest breakpoints. Fractions
// outside the table clamp to its first/last percentage.
func (c dischargeCurve) interpolate(fraction float32) float32 {
	fractions, percents := c.fractions, c.percents

	if fraction <= fractions[0] {
		return percents[0]
	}
	if fraction >= fractions[len(fractions)-1] {
		return percents[len(percents)-1]
	}

	left, right := 0, len(fractions)-1
	for left < right-1 {
		mid := (left + right) / 2
		if fraction < fractions[mid] {
			right = mid
		} else {
			left = mid
		}
	}

	f1, f2 := fractions[left], fractions[right]
	p1, p2 := percents[left], percents[right]
	if f2 == f1 {
		return p1
	}

	percent := p1 + (p2-p1)*(fraction-f1)/(f2-f1)
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}
	return percent
}

// Model holds the current battery configuration plus the last measured
// voltage and calculated level for read-back. The Unknown chemistry is an
// explicit null model: it never reports a valid level.
type Model struct {
	cfg     Config
	voltage float32
	level   float32
}

func NewModel(cfg Config) *Model {
	return &Model{
		cfg:     cfg,
		voltage: InvalidVoltage,
		level:   InvalidLevel,
	}
}

// UpdateConfig replaces the configuration. The cached voltage and level
// are kept; the next calculation uses the new curve parameters.
func (m *Model) UpdateConfig(cfg Config) {
	m.cfg = cfg
}

// CalculateLevel converts a voltage to a charge percentage in [0,100],
// caches it and returns it. Unknown chemistry always yields InvalidLevel.
func (m *Model) CalculateLevel(voltage float32) float32 {
	m.level = m.calculate(voltage)
	return m.level
}

func (m *Model) calculate(voltage float32) float32 {
	var curve dischargeCurve
	switch m.cfg.Type {
	case ChemistryLiPo:
		curve = lipoCurve
	case ChemistryLiIon:
		curve = lionCurve
	default:
		return InvalidLevel
	}

	span := m.cfg.MaxVoltage - m.cfg.MinVoltage
	if span <= 0 {
		return InvalidLevel
	}
	return curve.interpolate((voltage - m.cfg.MinVoltage) / span)
}

// SetVoltage records the last measured voltage for read-back.
func (m *Model) SetVoltage(voltage float32) {
	m.voltage = voltage
}

func (m *Model) Voltage() float32 {
	return m.voltage
}

func (m *Model) Level() float32 {
	return m.level
}

func (m *Model) Type() Chemistry {
	return m.cfg.Type
}

func (m *Model) MinVoltage() float32 {
	return m.cfg.MinVoltage
}

func (m *Model) MaxVoltage() float32 {
	return m.cfg.MaxVoltage
}

func (m *Model) Capacity() int {
	return m.cfg.CapacityMah
}

func (m *Model) Calibration() float32 {
	return m.cfg.Calibration
}
