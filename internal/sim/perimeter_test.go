package sim

import (
	"testing"

	"firesim/internal/fire"
)

func TestPerimeterCoversRequestedArea(t *testing.T) {
	env := openEnv(20, 20)
	p := NewPerimeter(env, fire.Cell{Row: 10, Column: 10}, 12)
	// 1 ha cells, so the disk should hold roughly the requested area
	if got := len(p.Burned()); got < 9 || got > 16 {
		t.Fatalf("burned cells: got %d for a 12 ha start", got)
	}
	if len(p.Edge()) == 0 {
		t.Fatal("a perimeter needs edge cells to spread from")
	}
	for _, cell := range p.Edge() {
		if cell.Fuel == fire.FuelNone {
			t.Fatal("edge cells must be burnable")
		}
	}
}

func TestPerimeterClipsToGrid(t *testing.T) {
	env := openEnv(5, 5)
	p := NewPerimeter(env, fire.Cell{Row: 0, Column: 0}, 12)
	size := env.Size()
	for _, idx := range p.Burned() {
		if idx < 0 || idx >= size.Cells() {
			t.Fatalf("burned index %d outside the grid", idx)
		}
	}
}

func TestPerimeterSkipsUnburnable(t *testing.T) {
	p := NewPerimeter(singleCellEnv(), fire.Cell{Row: 2, Column: 2}, 12)
	if len(p.Burned()) != 1 {
		t.Fatalf("only the fuel cell should burn, got %d", len(p.Burned()))
	}
}

func TestPerimeterTinyAreaFallsBack(t *testing.T) {
	p := NewPerimeter(openEnv(5, 5), fire.Cell{Row: 2, Column: 2}, 0.01)
	if len(p.Burned()) == 0 || len(p.Edge()) == 0 {
		t.Fatal("a tiny area should still seed the center cell")
	}
}
