package core

// Size describes the dimensions of a simulation grid.
type Size struct {
	Rows    int
	Columns int
}

// Cells returns the total number of cells in the grid.
func (s Size) Cells() int { return s.Rows * s.Columns }

// Contains reports whether (row, col) falls inside the grid extent.
func (s Size) Contains(row, col int) bool {
	return row >= 0 && row < s.Rows && col >= 0 && col < s.Columns
}

// Index returns the linear slice index for (row, col).
func (s Size) Index(row, col int) int { return row*s.Columns + col }

// BitGrid stores one flag per cell in row-major order. It backs the
// burned and unburnable bitmaps that are pooled and reused across runs.
type BitGrid struct {
	size Size
	data []uint8
}

// NewBitGrid allocates a cleared grid with the given dimensions.
func NewBitGrid(size Size) *BitGrid {
	if size.Rows <= 0 {
		size.Rows = 1
	}
	if size.Columns <= 0 {
		size.Columns = 1
	}
	return &BitGrid{size: size, data: make([]uint8, size.Cells())}
}

// Size reports the grid dimensions.
func (g *BitGrid) Size() Size { return g.size }

// Set marks the cell at the given linear index.
func (g *BitGrid) Set(idx int) { g.data[idx] = 1 }

// Get reports whether the cell at the given linear index is marked.
func (g *BitGrid) Get(idx int) bool { return g.data[idx] != 0 }

// Count returns the number of marked cells.
func (g *BitGrid) Count() int {
	n := 0
	for _, v := range g.data {
		if v != 0 {
			n++
		}
	}
	return n
}

// Any reports whether at least one cell is marked.
func (g *BitGrid) Any() bool {
	for _, v := range g.data {
		if v != 0 {
			return true
		}
	}
	return false
}

// Clear unmarks every cell.
func (g *BitGrid) Clear() {
	for i := range g.data {
		g.data[i] = 0
	}
}
