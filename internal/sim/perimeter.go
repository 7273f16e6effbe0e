package sim

import (
	"math"

	"firesim/internal/fire"
)

// Perimeter is an already-burned area used to start a scenario from an
// existing fire instead of a point ignition. Interior cells pre-burn and
// edge cells seed the active front.
type Perimeter struct {
	burned []int
	edge   []fire.Cell
}

// NewPerimeter rasterizes a circular burn of the given area in hectares
// centered on a cell, clipped to the environment and to burnable fuel.
func NewPerimeter(env fire.Environment, center fire.Cell, areaHa float64) *Perimeter {
	size := env.Size()
	cellSize := env.CellSizeMeters()
	cellAreaHa := cellSize * cellSize / 10000
	radius := math.Sqrt(areaHa / cellAreaHa / math.Pi)
	span := int(math.Ceil(radius))
	p := &Perimeter{}
	for dr := -span; dr <= span; dr++ {
		for dc := -span; dc <= span; dc++ {
			row, col := center.Row+dr, center.Column+dc
			if !size.Contains(row, col) {
				continue
			}
			cell, ok := env.CellAt(row, col)
			if !ok || cell.Fuel == fire.FuelNone {
				continue
			}
			d := math.Hypot(float64(dr), float64(dc))
			if d > radius {
				continue
			}
			p.burned = append(p.burned, size.Index(row, col))
			if d > radius-1 {
				p.edge = append(p.edge, cell)
			}
		}
	}
	if len(p.edge) == 0 && len(p.burned) == 0 {
		// degenerate area; fall back to the center alone when burnable
		if cell, ok := env.CellAt(center.Row, center.Column); ok && cell.Fuel != fire.FuelNone {
			p.burned = append(p.burned, size.Index(center.Row, center.Column))
		}
	}
	if len(p.edge) == 0 {
		// heavy clipping can strip the ring; spread from every burned cell
		for _, idx := range p.burned {
			if cell, ok := env.CellAt(idx/size.Columns, idx%size.Columns); ok {
				p.edge = append(p.edge, cell)
			}
		}
	}
	return p
}

// Burned lists the pre-burned cell indices.
func (p *Perimeter) Burned() []int { return p.burned }

// Edge lists the cells seeding the active front.
func (p *Perimeter) Edge() []fire.Cell { return p.edge }
