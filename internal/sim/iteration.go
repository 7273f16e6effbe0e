package sim

import (
	"firesim/internal/core"
	"firesim/internal/fire"
)

// Iteration is one full batch of scenarios, one per weather stream, all
// sharing a fresh pair of random streams and a common size sink. Only one
// iteration object exists at a time; reseeding it yields the next sample.
type Iteration struct {
	scenarios  []*Scenario
	finalSizes *SizeList
}

// NewIteration groups scenarios into a batch with a shared size sink.
func NewIteration(scenarios []*Scenario) *Iteration {
	return &Iteration{
		scenarios:  scenarios,
		finalSizes: &SizeList{},
	}
}

// Scenarios exposes the batch members.
func (it *Iteration) Scenarios() []*Scenario { return it.scenarios }

// Reset redraws every scenario in the batch from two independent random
// streams, one for extinction and one for spread, so the mechanisms never
// share draws. Nil streams mean deterministic thresholds.
func (it *Iteration) Reset(extinction, spread *core.RNG) {
	it.finalSizes.Clear()
	for _, s := range it.scenarios {
		s.Reset(extinction, spread, it.finalSizes)
	}
}

// ResetWithNewStart redraws the batch for a different ignition cell without
// consuming any randomness.
func (it *Iteration) ResetWithNewStart(start *fire.Cell) {
	it.finalSizes.Clear()
	for _, s := range it.scenarios {
		s.ResetWithNewStart(start, it.finalSizes)
	}
}

// FinalSizes reports the sorted final fire sizes from the last run batch.
func (it *Iteration) FinalSizes() []float64 { return it.finalSizes.Values() }

// Cancel requests cancellation of every scenario in the batch.
func (it *Iteration) Cancel(warn bool) {
	for _, s := range it.scenarios {
		s.Cancel(warn)
	}
}

// SavePoints reports the snapshot times shared by the batch.
func (it *Iteration) SavePoints() []float64 {
	if len(it.scenarios) == 0 {
		return nil
	}
	return it.scenarios[0].SavePoints()
}

// StartTime reports the batch simulation start in decimal days.
func (it *Iteration) StartTime() float64 {
	if len(it.scenarios) == 0 {
		return 0
	}
	return it.scenarios[0].StartTime()
}
