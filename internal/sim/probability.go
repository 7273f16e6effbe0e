package sim

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"firesim/internal/core"
)

// ProbabilityMap accumulates, for one output snapshot time, how many
// completed scenarios burned each cell at each intensity class. Merges are
// commutative sums so concurrent completion order never affects the result.
type ProbabilityMap struct {
	mu sync.Mutex

	size      core.Size
	time      float64
	startTime float64

	lowMax int
	medMax int

	all      []uint32
	high     []uint32
	moderate []uint32
	low      []uint32

	sizes []float64
}

// NewProbabilityMap creates an empty map for the given snapshot time.
// lowMax and medMax are the intensity class boundaries in kW/m.
func NewProbabilityMap(size core.Size, time, startTime float64, lowMax, medMax int) *ProbabilityMap {
	n := size.Cells()
	return &ProbabilityMap{
		size:      size,
		time:      time,
		startTime: startTime,
		lowMax:    lowMax,
		medMax:    medMax,
		all:       make([]uint32, n),
		high:      make([]uint32, n),
		moderate:  make([]uint32, n),
		low:       make([]uint32, n),
	}
}

// CopyEmpty returns a map with the same geometry and boundaries but no
// accumulated counts.
func (p *ProbabilityMap) CopyEmpty() *ProbabilityMap {
	return NewProbabilityMap(p.size, p.time, p.startTime, p.lowMax, p.medMax)
}

// Time reports the snapshot time this map accumulates for.
func (p *ProbabilityMap) Time() float64 { return p.time }

// AddProbability folds one completed scenario's intensity record in: every
// burned cell increments all and exactly one of the class grids, and the
// run's fire size joins the size list.
func (p *ProbabilityMap) AddProbability(rec *IntensityRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec.ForEachBurned(func(idx int, intensity float64) {
		p.all[idx]++
		switch {
		case intensity <= float64(p.lowMax):
			p.low[idx]++
		case intensity <= float64(p.medMax):
			p.moderate[idx]++
		default:
			p.high[idx]++
		}
	})
	p.sizes = insertSorted(p.sizes, rec.FireSize())
}

// AddProbabilities merges another map's counts and sizes into this one.
func (p *ProbabilityMap) AddProbabilities(other *ProbabilityMap) error {
	if other.time != p.time || other.size != p.size ||
		other.lowMax != p.lowMax || other.medMax != p.medMax {
		return fmt.Errorf("sim: merging incompatible probability maps (time %f vs %f)",
			other.time, p.time)
	}
	other.mu.Lock()
	defer other.mu.Unlock()
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.all {
		p.all[i] += other.all[i]
		p.high[i] += other.high[i]
		p.moderate[i] += other.moderate[i]
		p.low[i] += other.low[i]
	}
	for _, s := range other.sizes {
		p.sizes = insertSorted(p.sizes, s)
	}
	return nil
}

// Reset clears all counts and sizes so a partial map can be reused without
// double counting after its contents were merged elsewhere.
func (p *ProbabilityMap) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.all {
		p.all[i] = 0
		p.high[i] = 0
		p.moderate[i] = 0
		p.low[i] = 0
	}
	p.sizes = p.sizes[:0]
}

// Sizes returns a sorted copy of the recorded final fire sizes.
func (p *ProbabilityMap) Sizes() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]float64, len(p.sizes))
	copy(out, p.sizes)
	return out
}

// NumSizes reports how many scenario sizes have been folded in.
func (p *ProbabilityMap) NumSizes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sizes)
}

// Counts returns copies of the four count grids in the order
// all, high, moderate, low.
func (p *ProbabilityMap) Counts() (all, high, moderate, low []uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	all = append([]uint32(nil), p.all...)
	high = append([]uint32(nil), p.high...)
	moderate = append([]uint32(nil), p.moderate...)
	low = append([]uint32(nil), p.low...)
	return
}

// Size reports the grid extent.
func (p *ProbabilityMap) Size() core.Size { return p.size }

// Show logs a fire-size summary for this snapshot.
func (p *ProbabilityMap) Show() {
	sizes := p.Sizes()
	if len(sizes) == 0 {
		return
	}
	s := NewStatistics(sizes)
	day := int(p.time - float64(int(p.startTime)))
	log.Info().
		Int("day", day).
		Float64("min_ha", s.Min()).
		Float64("max_ha", s.Max()).
		Float64("mean_ha", s.Mean()).
		Float64("median_ha", s.Median()).
		Msg("fire size at end of day")
}
