// Package fire defines the contracts the simulation engine consumes:
// weather streams, fuel behavior, and the landscape grid. The engine treats
// all three as opaque services; the physical models behind them live with
// the caller.
package fire

import (
	"errors"

	"firesim/internal/core"
)

// FuelCode identifies a fuel classification in the lookup table.
// FuelNone marks cells that cannot burn (water, rock, non-fuel).
type FuelCode uint8

// FuelNone is the non-burnable fuel classification.
const FuelNone FuelCode = 0

// Errors surfaced during model setup. Anything failing with one of these is
// an unrecoverable precondition, not a mid-run condition.
var (
	ErrNoWeather   = errors.New("fire: no weather stream covers the requested time")
	ErrNoFuel      = errors.New("fire: no burnable cells found")
	ErrOutsideGrid = errors.New("fire: location outside loaded extent")
)

// Cell describes one landscape cell as the engine sees it.
type Cell struct {
	Row    int
	Column int
	Fuel   FuelCode
	// Slope in percent, aspect in degrees from north.
	Slope  float64
	Aspect float64
}

// SpreadKey groups cells whose spread behavior is identical for a given
// weather observation. Any two cells with the same key share one behavior
// lookup per simulated hour.
type SpreadKey struct {
	Fuel   FuelCode
	Slope  int16
	Aspect int16
}

// Key returns the SpreadKey for the cell.
func (c Cell) Key() SpreadKey {
	return SpreadKey{Fuel: c.Fuel, Slope: int16(c.Slope), Aspect: int16(c.Aspect)}
}

// Observation is one fire-weather reading with its derived indices.
type Observation struct {
	Temperature   float64
	Humidity      float64
	WindSpeed     float64
	WindDirection float64
	Precipitation float64

	FFMC float64
	DMC  float64
	DC   float64
	ISI  float64
	BUI  float64
	FWI  float64

	// MoistureDMCPct is the duff moisture content implied by the DMC,
	// as a percentage. The survival table in the engine keys off this.
	MoistureDMCPct float64
}

// Spread is the fuel model's answer for one (fuel, weather, terrain) lookup.
type Spread struct {
	// HeadROS is the head fire rate of spread in metres per minute.
	HeadROS float64
	// Direction the head fire is moving, degrees from north.
	Direction float64
	// Intensity is the head fire intensity in kW/m.
	Intensity float64
	// CrownFraction is the crown fraction burned, 0 to 1.
	CrownFraction float64
}

// Stream supplies weather observations over simulated time.
// Time is measured in decimal days from the start of the year.
type Stream interface {
	// At returns the observation for the given time. ok is false when the
	// stream does not cover the time; callers treat that as a local
	// non-fatal condition.
	At(time float64) (Observation, bool)
	// SurvivalProbability is the chance fire persists in the given fuel
	// under the weather at the given time.
	SurvivalProbability(time float64, fuel FuelCode) (float64, bool)
	// MinDay and MaxDay bound the days the stream covers.
	MinDay() int
	MaxDay() int
}

// Behavior is the capability set for one fuel code, resolved once per cell
// instead of dispatched per call.
type Behavior struct {
	// Spread computes spread behavior under the observation and terrain.
	Spread func(obs Observation, slope, aspect float64) Spread
}

// Lookup resolves fuel codes to behavior capability sets.
type Lookup interface {
	// BehaviorFor returns the behavior table entry for a fuel code.
	// ok is false for non-fuel codes.
	BehaviorFor(code FuelCode) (Behavior, bool)
}

// Environment is the read-only landscape grid.
type Environment interface {
	CellAt(row, col int) (Cell, bool)
	Size() core.Size
	CellSizeMeters() float64
}
