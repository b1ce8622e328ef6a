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

// Package settings persists the battery configuration as a JSON
// document. The document is the external schema; constraint resolution
// between the fields happens in the power engine, not here.
package settings

import (
	"encoding/json"
	"os"

	"github.com/luminode/luminode-controller/battery"
)

const DefaultPath = "/etc/luminode/battery.json"

// AutoOff is the automatic shutdown section.
type AutoOff struct {
	Enabled   bool `json:"enabled"`
	Threshold int  `json:"threshold"`
}

// Indicator is the low-battery indication section.
type Indicator struct {
	Enabled   bool `json:"enabled"`
	Preset    int  `json:"preset"`
	Threshold int  `json:"threshold"`
	Duration  int  `json:"duration"`
}

// Document is the on-disk battery configuration. Pin is a pointer so an
// absent key reads as "no measurement pin allocated" rather than pin 0.
type Document struct {
	Type        string    `json:"type"`
	Pin         *int      `json:"pin,omitempty"`
	MinVoltage  float32   `json:"min-voltage"`
	MaxVoltage  float32   `json:"max-voltage"`
	Capacity    int       `json:"capacity"`
	Calibration float32   `json:"calibration"`
	IntervalMs  int       `json:"interval"`
	AutoOff     AutoOff   `json:"auto-off"`
	Indicator   Indicator `json:"indicator"`
}

// Default returns the document written on first boot.
func Default() Document {
	return Document{
		Type:        battery.ChemistryUnknown.String(),
		MinVoltage:  3.0,
		MaxVoltage:  4.2,
		Capacity:    2500,
		Calibration: 0,
		IntervalMs:  30000,
		AutoOff:     AutoOff{Enabled: false, Threshold: 10},
		Indicator:   Indicator{Enabled: false, Preset: 0, Threshold: 20, Duration: 5},
	}
}

// Load reads the document at path. A missing file is not an error: the
// defaults are returned with found=false so the caller can persist them.
func Load(path string) (Document, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), false, nil
		}
		return Default(), false, err
	}

	doc := Default()
	if err := json.Unmarshal(data, &doc); err != nil {
		return Default(), false, err
	}
	return doc, true, nil
}

// Save writes the document at path.
func Save(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// BatteryConfig converts the document to the discharge model parameters.
func (d Document) BatteryConfig() battery.Config {
	return battery.Config{
		Type:        battery.ChemistryFromString(d.Type),
		MinVoltage:  d.MinVoltage,
		MaxVoltage:  d.MaxVoltage,
		CapacityMah: d.Capacity,
		Calibration: d.Calibration,
	}
}

// HasPin reports whether a measurement pin is allocated.
func (d Document) HasPin() bool {
	return d.Pin != nil && *d.Pin >= 0
}
