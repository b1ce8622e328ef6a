package power

// Status is a read-only snapshot of the engine state for status
// displays. Initializing means no sample has been attempted yet, which
// is distinct from an invalid measurement (level/voltage of -1) on a
// broken or missing source.
type Status struct {
	Initializing       bool
	SourceAvailable    bool
	LevelPercent       float32
	Voltage            float32 // rounded to 2 decimals, -1 if never measured
	SecondsUntilSample int64
	SampleCount        uint64
}

// Status returns a consistent snapshot. Safe to call from any goroutine.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	until := (e.nextSampleMs - e.clock.Millis()) / 1000
	if until < 0 {
		until = 0
	}

	voltage := e.model.Voltage()
	if voltage >= 0 {
		voltage = round2(voltage)
	}

	return Status{
		Initializing:       e.initializing,
		SourceAvailable:    e.sampler.Available(),
		LevelPercent:       e.model.Level(),
		Voltage:            voltage,
		SecondsUntilSample: until,
		SampleCount:        e.sampleCount,
	}
}

// Valid reports whether the snapshot carries a usable measurement.
func (s Status) Valid() bool {
	return !s.Initializing && s.LevelPercent >= 0
}

func round2(x float32) float32 {
	return float32(int(x*100+0.5)) / 100
}
