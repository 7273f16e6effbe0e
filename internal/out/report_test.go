package out

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"firesim/internal/core"
	"firesim/internal/fire"
	"firesim/internal/sim"
)

func cellAt(row, col int) fire.Cell {
	return fire.Cell{Row: row, Column: col}
}

func testProbabilities(t *testing.T) map[float64]*sim.ProbabilityMap {
	t.Helper()
	size := core.Size{Rows: 2, Columns: 2}
	pool := sim.NewBurnedPool(size)
	rec := sim.NewIntensityRecord(size, 10000)
	rec.Reset(pool)
	rec.Burn(0, 500, 1, 0)
	rec.Burn(3, 9000, 1, 0)
	pm := sim.NewProbabilityMap(size, 153, 152.5, 2000, 4000)
	pm.AddProbability(rec)
	return map[float64]*sim.ProbabilityMap{153: pm}
}

func TestSaveAllWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("writer: %v", err)
	}
	if err := w.SaveAll(testProbabilities(t), 152, false); err != nil {
		t.Fatalf("save: %v", err)
	}
	for _, name := range []string{
		"probability_day01.asc",
		"intensity_high_day01.asc",
		"intensity_moderate_day01.asc",
		"intensity_low_day01.asc",
		"sizes.csv",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
	data, err := os.ReadFile(filepath.Join(dir, "probability_day01.asc"))
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "ncols 2\nnrows 2\n") {
		t.Fatalf("bad header:\n%s", text)
	}
	// both burned cells appeared in the single recorded run
	if !strings.Contains(text, "1.0000 0.0000") || !strings.Contains(text, "0.0000 1.0000") {
		t.Fatalf("bad grid body:\n%s", text)
	}
	sizes, err := os.ReadFile(filepath.Join(dir, "sizes.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if string(sizes) != "size_ha\n2.0\n" {
		t.Fatalf("bad sizes file: %q", string(sizes))
	}
}

func TestInterimOutputsAreReplaced(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("writer: %v", err)
	}
	probabilities := testProbabilities(t)
	if err := w.SaveAll(probabilities, 152, true); err != nil {
		t.Fatalf("interim save: %v", err)
	}
	interim := filepath.Join(dir, "interim_probability_day01.asc")
	if _, err := os.Stat(interim); err != nil {
		t.Fatalf("interim file missing: %v", err)
	}
	if err := w.SaveAll(probabilities, 152, false); err != nil {
		t.Fatalf("final save: %v", err)
	}
	if _, err := os.Stat(interim); !os.IsNotExist(err) {
		t.Fatal("final save should remove interim outputs")
	}
	if _, err := os.Stat(filepath.Join(dir, "probability_day01.asc")); err != nil {
		t.Fatalf("final output missing: %v", err)
	}
}

func TestArrivalObserverWritesGrid(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("writer: %v", err)
	}
	size := core.Size{Rows: 2, Columns: 2}
	obs := NewArrivalObserver(w, 0, size)
	obs.CellBurned(sim.NewCellSpread(152.5, cellAt(0, 0), 100, 1, 0))
	obs.CellBurned(sim.NewCellSpread(152.6, cellAt(0, 0), 100, 1, 0))
	obs.Save(153, nil)
	data, err := os.ReadFile(filepath.Join(dir, "arrival_stream00_day153.asc"))
	if err != nil {
		t.Fatalf("arrival grid missing: %v", err)
	}
	if !strings.Contains(string(data), "152.500") {
		t.Fatalf("first arrival not recorded:\n%s", string(data))
	}
	obs.Reset()
	obs.Save(154, nil)
	data, err = os.ReadFile(filepath.Join(dir, "arrival_stream00_day154.asc"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "152.500") {
		t.Fatal("reset should clear arrivals")
	}
}
