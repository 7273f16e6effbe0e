package sim

import (
	"testing"

	"firesim/internal/core"
)

func testRecord(t *testing.T, size core.Size, pool *BurnedPool, burns map[int]float64) *IntensityRecord {
	t.Helper()
	rec := NewIntensityRecord(size, 10000)
	rec.Reset(pool)
	for idx, intensity := range burns {
		rec.Burn(idx, intensity, 1, 0)
	}
	return rec
}

func TestAddProbabilityPartitionsByIntensity(t *testing.T) {
	size := core.Size{Rows: 2, Columns: 2}
	pool := NewBurnedPool(size)
	pm := NewProbabilityMap(size, 153, 152.5, 2000, 4000)
	rec := testRecord(t, size, pool, map[int]float64{
		0: 500,  // low
		1: 3000, // moderate
		2: 9000, // high
	})
	pm.AddProbability(rec)

	all, high, moderate, low := pm.Counts()
	for idx := 0; idx < size.Cells(); idx++ {
		if all[idx] != low[idx]+moderate[idx]+high[idx] {
			t.Fatalf("cell %d: all=%d but buckets sum to %d",
				idx, all[idx], low[idx]+moderate[idx]+high[idx])
		}
	}
	if low[0] != 1 || moderate[1] != 1 || high[2] != 1 {
		t.Fatalf("wrong bucket assignment: low=%v moderate=%v high=%v", low, moderate, high)
	}
	if all[3] != 0 {
		t.Fatal("unburned cell should have no counts")
	}
	if pm.NumSizes() != 1 {
		t.Fatalf("expected one recorded size, got %d", pm.NumSizes())
	}
}

func TestAddProbabilitiesMergesCommutatively(t *testing.T) {
	size := core.Size{Rows: 2, Columns: 2}
	pool := NewBurnedPool(size)
	base := NewProbabilityMap(size, 153, 152.5, 2000, 4000)
	recA := testRecord(t, size, pool, map[int]float64{0: 500})
	recB := testRecord(t, size, pool, map[int]float64{0: 9000, 1: 500})

	ab := base.CopyEmpty()
	ab.AddProbability(recA)
	other := base.CopyEmpty()
	other.AddProbability(recB)
	if err := ab.AddProbabilities(other); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	ba := base.CopyEmpty()
	ba.AddProbability(recB)
	other2 := base.CopyEmpty()
	other2.AddProbability(recA)
	if err := ba.AddProbabilities(other2); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	allAB, _, _, _ := ab.Counts()
	allBA, _, _, _ := ba.Counts()
	for idx := range allAB {
		if allAB[idx] != allBA[idx] {
			t.Fatalf("cell %d: merge order changed counts %d vs %d", idx, allAB[idx], allBA[idx])
		}
	}
	if allAB[0] != 2 || allAB[1] != 1 {
		t.Fatalf("unexpected merged counts: %v", allAB)
	}
	if ab.NumSizes() != 2 {
		t.Fatalf("expected 2 merged sizes, got %d", ab.NumSizes())
	}
}

func TestAddProbabilitiesRejectsMismatch(t *testing.T) {
	a := NewProbabilityMap(core.Size{Rows: 2, Columns: 2}, 153, 152.5, 2000, 4000)
	b := NewProbabilityMap(core.Size{Rows: 3, Columns: 2}, 153, 152.5, 2000, 4000)
	if err := a.AddProbabilities(b); err == nil {
		t.Fatal("geometry mismatch must fail")
	}
	c := NewProbabilityMap(core.Size{Rows: 2, Columns: 2}, 154, 152.5, 2000, 4000)
	if err := a.AddProbabilities(c); err == nil {
		t.Fatal("snapshot time mismatch must fail")
	}
}

func TestSizesStaySorted(t *testing.T) {
	size := core.Size{Rows: 2, Columns: 2}
	pool := NewBurnedPool(size)
	pm := NewProbabilityMap(size, 153, 152.5, 2000, 4000)
	pm.AddProbability(testRecord(t, size, pool, map[int]float64{0: 1, 1: 1, 2: 1}))
	pm.AddProbability(testRecord(t, size, pool, map[int]float64{0: 1}))
	pm.AddProbability(testRecord(t, size, pool, map[int]float64{0: 1, 1: 1}))
	sizes := pm.Sizes()
	for i := 1; i < len(sizes); i++ {
		if sizes[i-1] > sizes[i] {
			t.Fatalf("sizes not sorted: %v", sizes)
		}
	}
}
