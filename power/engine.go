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

// Package power runs the periodic battery policy: sampling cadence,
// automatic shutdown below a critical charge, and the temporary
// low-battery preset indication.
package power

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/luminode/luminode-controller/battery"
)

const (
	// Floor for the sampling interval. Writes below this are clamped up.
	MinReadingInterval = 3000 * time.Millisecond

	// DefaultReadingInterval between voltage samples.
	DefaultReadingInterval = 30 * time.Second

	// The measurement rail sits behind a 50% voltage divider.
	voltageDividerRatio = 2.0

	// Margin the battery must recover above the indicator threshold
	// before the indication may fire again.
	reactivationMargin = 10
)

// Clock provides monotonic milliseconds since an arbitrary start.
type Clock interface {
	Millis() int64
}

// SystemClock is the process-lifetime monotonic clock.
type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Millis() int64 {
	return time.Since(c.start).Milliseconds()
}

// VoltageSampler is the analog measurement source the engine consumes.
// Available reports whether the source is usable at all (a missing or
// unallocated pin makes it false). Read returns raw millivolts.
type VoltageSampler interface {
	Available() bool
	Read() (float64, error)
}

// Shutdowner is the host action taken when the charge falls below the
// auto-off threshold. It must be safe to call repeatedly.
type Shutdowner interface {
	Shutdown()
}

// PresetController lets the indicator swap the active lighting preset
// and restore it afterwards.
type PresetController interface {
	CurrentPresetID() int
	ApplyPreset(id int)
}

// AutoOffConfig controls the automatic shutdown policy.
type AutoOffConfig struct {
	Enabled   bool
	Threshold int // percent
}

// IndicatorConfig controls the low-battery preset indication.
type IndicatorConfig struct {
	Enabled   bool
	PresetID  int
	Threshold int // percent
	Duration  int // seconds
}

// IndicatorState is the externally visible state of the indication
// machine.
type IndicatorState int

const (
	IndicatorIdle IndicatorState = iota
	IndicatorActive
)

// Engine evaluates the power policies once per Tick. All mutable state
// lives behind a single mutex so status reads from other goroutines
// (D-Bus handlers) cannot race a tick.
type Engine struct {
	mu sync.Mutex

	model    *battery.Model
	sampler  VoltageSampler
	clock    Clock
	shutdown Shutdowner
	presets  PresetController
	log      *logrus.Logger

	readingIntervalMs int64
	autoOff           AutoOffConfig
	indicator         IndicatorConfig
	reactivation      int

	lastSampleMs int64
	nextSampleMs int64
	initializing bool
	sampleCount  uint64

	indicatorState IndicatorState
	indicationDone bool
	activationMs   int64
	savedPresetID  int
}

// NewEngine wires the engine to its collaborators and schedules the
// first sample one interval from now. A nil log discards engine logging.
func NewEngine(model *battery.Model, sampler VoltageSampler, clock Clock,
	shutdown Shutdowner, presets PresetController, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	now := clock.Millis()
	return &Engine{
		model:    model,
		sampler:  sampler,
		clock:    clock,
		shutdown: shutdown,
		presets:  presets,
		log:      log,

		readingIntervalMs: DefaultReadingInterval.Milliseconds(),
		autoOff:           AutoOffConfig{Enabled: false, Threshold: 10},
		indicator:         IndicatorConfig{Enabled: false, PresetID: 0, Threshold: 20, Duration: 5},
		reactivation:      20 + reactivationMargin,

		lastSampleMs: now,
		nextSampleMs: now + DefaultReadingInterval.Milliseconds(),
		initializing: true,
	}
}

// Tick runs one scheduler pass: the indicator machine first (it works
// off the cached level, independent of the sampling cadence), then the
// sampling schedule. It never blocks and never fails.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Millis()
	e.runIndicator(now)

	if now < e.nextSampleMs {
		return
	}

	// Advance the schedule before checking the source so an invalid pin
	// still waits a full interval instead of re-trying every tick.
	e.nextSampleMs = now + e.readingIntervalMs
	e.lastSampleMs = now

	if !e.sampler.Available() {
		return
	}
	e.initializing = false

	raw, err := e.sampler.Read()
	if err != nil {
		e.log.Errorf("Battery sample failed: %v", err)
		return
	}

	voltage := float32((raw/1000.0 + float64(e.model.Calibration())) * voltageDividerRatio)
	e.model.SetVoltage(voltage)
	level := e.model.CalculateLevel(voltage)
	e.sampleCount++

	// Stateless and idempotent: keeps firing on every sample while the
	// charge stays at or below the threshold.
	if e.autoOff.Enabled && level >= 0 && level <= float32(e.autoOff.Threshold) {
		e.shutdown.Shutdown()
	}
}

// runIndicator advances the low-battery indication machine. Activation
// requires the level to be strictly below the threshold; once active the
// indication runs for its full duration without re-checking the level;
// after it completes, re-arming requires the level to recover to at
// least threshold+10.
func (e *Engine) runIndicator(now int64) {
	if !e.indicator.Enabled {
		return
	}
	if !e.sampler.Available() {
		return
	}

	if e.indicatorState == IndicatorIdle {
		level := e.model.Level()
		if level < 0 {
			// Never measured, or measurement currently invalid.
			return
		}
		if e.indicationDone && float32(e.reactivation) <= level {
			e.indicationDone = false
		}
		if float32(e.indicator.Threshold) <= level {
			return
		}
		if e.indicationDone {
			return
		}

		e.indicatorState = IndicatorActive
		e.activationMs = now
		e.savedPresetID = e.presets.CurrentPresetID()
		e.presets.ApplyPreset(e.indicator.PresetID)
	}

	if e.activationMs+int64(e.indicator.Duration)*1000 <= now {
		e.indicatorState = IndicatorIdle
		e.indicationDone = true
		e.activationMs = 0
		e.presets.ApplyPreset(e.savedPresetID)
	}
}

// IndicatorStatus returns the machine state and the done latch.
func (e *Engine) IndicatorStatus() (IndicatorState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.indicatorState, e.indicationDone
}
