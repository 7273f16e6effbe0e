package fire

import "firesim/internal/core"

// GridEnvironment is an in-memory Environment backed by dense slices.
// Slope and aspect are optional; a nil slice reads as flat terrain.
type GridEnvironment struct {
	size     core.Size
	cellSize float64
	fuel     []FuelCode
	slope    []float64
	aspect   []float64
}

// NewGridEnvironment builds an environment from a row-major fuel grid.
// cellSize is the cell edge length in metres.
func NewGridEnvironment(size core.Size, cellSize float64, fuel []FuelCode) *GridEnvironment {
	if len(fuel) != size.Cells() {
		panic("fire: fuel grid does not match environment size")
	}
	return &GridEnvironment{size: size, cellSize: cellSize, fuel: fuel}
}

// SetTerrain attaches slope (percent) and aspect (degrees) grids.
func (e *GridEnvironment) SetTerrain(slope, aspect []float64) {
	e.slope = slope
	e.aspect = aspect
}

// CellAt returns the cell descriptor at (row, col).
func (e *GridEnvironment) CellAt(row, col int) (Cell, bool) {
	if !e.size.Contains(row, col) {
		return Cell{}, false
	}
	idx := e.size.Index(row, col)
	c := Cell{Row: row, Column: col, Fuel: e.fuel[idx]}
	if e.slope != nil {
		c.Slope = e.slope[idx]
	}
	if e.aspect != nil {
		c.Aspect = e.aspect[idx]
	}
	return c, true
}

// Size reports the grid extent.
func (e *GridEnvironment) Size() core.Size { return e.size }

// CellSizeMeters reports the cell edge length in metres.
func (e *GridEnvironment) CellSizeMeters() float64 { return e.cellSize }

// TableLookup is a Lookup over a fixed behavior table keyed by fuel code.
type TableLookup map[FuelCode]Behavior

// BehaviorFor returns the table entry for the fuel code.
func (t TableLookup) BehaviorFor(code FuelCode) (Behavior, bool) {
	b, ok := t[code]
	return b, ok
}
