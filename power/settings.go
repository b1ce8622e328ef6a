package power

import (
	"time"

	"github.com/luminode/luminode-controller/battery"
)

// Setters for the runtime-adjustable policy parameters. Out-of-range
// values are clamped, never rejected, so the cross-field invariants hold
// after every write regardless of call order: while the indicator is
// enabled the auto-off threshold stays strictly below the indicator
// threshold, and the reactivation threshold tracks the indicator
// threshold at +10. The same setters serve the boot-time settings load
// and runtime updates.

// SetBatteryConfig replaces the discharge model parameters.
func (e *Engine) SetBatteryConfig(cfg battery.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.model.UpdateConfig(cfg)
}

// SetReadingInterval sets the sampling interval, floored at 3s.
func (e *Engine) SetReadingInterval(interval time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if interval < MinReadingInterval {
		interval = MinReadingInterval
	}
	e.readingIntervalMs = interval.Milliseconds()
	// Shrinking the interval also shortens a wait already in progress.
	if next := e.lastSampleMs + e.readingIntervalMs; next < e.nextSampleMs {
		e.nextSampleMs = next
	}
}

func (e *Engine) ReadingInterval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return time.Duration(e.readingIntervalMs) * time.Millisecond
}

func (e *Engine) SetAutoOffEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.autoOff.Enabled = enabled
}

// SetAutoOffThreshold clamps to [0,100], and below the indicator
// threshold while the indicator is enabled.
func (e *Engine) SetAutoOffThreshold(threshold int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	threshold = clampPercent(threshold)
	if e.indicator.Enabled && threshold > e.indicator.Threshold-1 {
		threshold = e.indicator.Threshold - 1
	}
	e.autoOff.Threshold = threshold
}

func (e *Engine) AutoOff() AutoOffConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.autoOff
}

func (e *Engine) SetIndicatorEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.indicator.Enabled = enabled
}

func (e *Engine) SetIndicatorPreset(presetID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.indicator.PresetID = presetID
}

// SetIndicatorThreshold floors at autoOffThreshold+1 while auto-off is
// enabled, otherwise at 5, and recomputes the reactivation threshold.
func (e *Engine) SetIndicatorThreshold(threshold int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.autoOff.Enabled {
		if threshold < e.autoOff.Threshold+1 {
			threshold = e.autoOff.Threshold + 1
		}
	} else if threshold < 5 {
		threshold = 5
	}
	e.indicator.Threshold = threshold
	e.reactivation = threshold + reactivationMargin
}

func (e *Engine) SetIndicatorDuration(seconds int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.indicator.Duration = seconds
}

func (e *Engine) Indicator() IndicatorConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.indicator
}

// ReactivationThreshold is the level the battery must recover to before
// a completed indication may fire again.
func (e *Engine) ReactivationThreshold() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reactivation
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
