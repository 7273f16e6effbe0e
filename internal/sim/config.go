package sim

import "runtime"

// Config holds the recognized simulation options.
type Config struct {
	// Deterministic disables all randomness and forces exactly one
	// iteration.
	Deterministic bool
	// Surface switches iteration semantics to one scenario per burnable
	// ignition cell instead of repeated stochastic sampling.
	Surface bool

	// MaxTimeSeconds is the wall-clock budget for the whole run.
	MaxTimeSeconds int
	// MaxSimulations caps the total number of scenario runs.
	MaxSimulations int
	// ConfidenceLevel is the relative error the sequential stopping rule
	// must reach before sampling stops (e.g. 0.95).
	ConfidenceLevel float64

	// MinimumROS is the slowest head rate of spread, in m/min, still
	// considered to be spreading.
	MinimumROS float64
	// MinimumFFMC is the FFMC below which no spread is attempted.
	MinimumFFMC float64
	// MaximumSpreadDistance caps how many cell widths the fastest front
	// may cross in one spread step.
	MaximumSpreadDistance float64

	// OutputOffsets are output snapshot times in whole days after the
	// start day.
	OutputOffsets []int

	// Intensity bucket boundaries in kW/m: low is (0, IntensityMaxLow],
	// moderate is (IntensityMaxLow, IntensityMaxModerate], high is
	// everything above.
	IntensityMaxLow      int
	IntensityMaxModerate int

	// Threshold draw weights blend one per-run, one per-day, and one
	// per-hour uniform draw into each hourly threshold.
	ThresholdScenarioWeight float64
	ThresholdDailyWeight    float64
	ThresholdHourlyWeight   float64

	// Workers bounds concurrent scenario execution. Raised internally if
	// an iteration holds more scenarios than this.
	Workers int
	// Seed is the base seed for the threshold streams.
	Seed int64
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		MaxTimeSeconds:          3600,
		MaxSimulations:          100000,
		ConfidenceLevel:         0.95,
		MinimumROS:              0.05,
		MinimumFFMC:             74.0,
		MaximumSpreadDistance:   1.0,
		OutputOffsets:           []int{1, 2, 3},
		IntensityMaxLow:         2000,
		IntensityMaxModerate:    4000,
		ThresholdScenarioWeight: 1.0,
		ThresholdDailyWeight:    1.0,
		ThresholdHourlyWeight:   1.0,
		Workers:                 runtime.NumCPU(),
		Seed:                    1337,
	}
}

// LastOffset returns the largest configured output offset.
func (c Config) LastOffset() int {
	last := 0
	for _, o := range c.OutputOffsets {
		if o > last {
			last = o
		}
	}
	return last
}
