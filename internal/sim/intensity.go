package sim

import "firesim/internal/core"

// IntensityRecord tracks, for one scenario run, which cells burned and the
// maximum fire intensity reached in each. Burned cells never revert.
type IntensityRecord struct {
	size     core.Size
	cellArea float64

	burned       *core.BitGrid
	maxIntensity []float64
	rosAtMax     []float64
	dirAtMax     []float64
	count        int
}

// NewIntensityRecord allocates a record for the given grid. cellArea is in
// square metres. The burned bitmap comes from the pool on Reset.
func NewIntensityRecord(size core.Size, cellArea float64) *IntensityRecord {
	return &IntensityRecord{
		size:         size,
		cellArea:     cellArea,
		maxIntensity: make([]float64, size.Cells()),
		rosAtMax:     make([]float64, size.Cells()),
		dirAtMax:     make([]float64, size.Cells()),
	}
}

// Reset clears the record and attaches a bitmap from the pool, releasing
// any previously held one.
func (r *IntensityRecord) Reset(pool *BurnedPool) {
	pool.Release(r.burned)
	r.burned = pool.Acquire()
	for i := range r.maxIntensity {
		r.maxIntensity[i] = 0
		r.rosAtMax[i] = 0
		r.dirAtMax[i] = 0
	}
	r.count = 0
}

// ReleaseInto hands the burned bitmap back to the pool.
func (r *IntensityRecord) ReleaseInto(pool *BurnedPool) {
	pool.Release(r.burned)
	r.burned = nil
}

// Burn marks the cell burned with the given behavior, keeping the highest
// intensity seen.
func (r *IntensityRecord) Burn(idx int, intensity, ros, direction float64) {
	if !r.burned.Get(idx) {
		r.burned.Set(idx)
		r.count++
	}
	if intensity >= r.maxIntensity[idx] {
		r.maxIntensity[idx] = intensity
		r.rosAtMax[idx] = ros
		r.dirAtMax[idx] = direction
	}
}

// HasBurned reports whether the cell has burned during this run.
func (r *IntensityRecord) HasBurned(idx int) bool { return r.burned.Get(idx) }

// CanBurn reports whether the cell has not yet burned.
func (r *IntensityRecord) CanBurn(idx int) bool { return !r.burned.Get(idx) }

// BurnedCells reports how many cells have burned.
func (r *IntensityRecord) BurnedCells() int { return r.count }

// FireSize returns the burned area in hectares.
func (r *IntensityRecord) FireSize() float64 {
	return float64(r.count) * r.cellArea / 10000.0
}

// IntensityAt returns the maximum intensity recorded for the cell.
func (r *IntensityRecord) IntensityAt(idx int) float64 { return r.maxIntensity[idx] }

// IsSurrounded reports whether every neighbour of (row, col) has burned, in
// which case the front inside the cell has nowhere left to go.
func (r *IntensityRecord) IsSurrounded(row, col int) bool {
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			nr, nc := row+dr, col+dc
			if !r.size.Contains(nr, nc) {
				continue
			}
			if !r.burned.Get(r.size.Index(nr, nc)) {
				return false
			}
		}
	}
	return true
}

// ForEachBurned calls fn for every burned cell with its max intensity.
func (r *IntensityRecord) ForEachBurned(fn func(idx int, intensity float64)) {
	for idx := range r.maxIntensity {
		if r.burned.Get(idx) {
			fn(idx, r.maxIntensity[idx])
		}
	}
}
