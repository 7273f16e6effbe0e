package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"firesim/internal/core"
	"firesim/internal/fire"
)

func TestNewModelRequiresStreams(t *testing.T) {
	cfg := DefaultConfig()
	_, err := NewModel(cfg, singleCellEnv(), fixedLookup(5, 1000), nil)
	if !errors.Is(err, fire.ErrNoWeather) {
		t.Fatalf("expected ErrNoWeather, got %v", err)
	}
}

func TestMakeStartsRelocatesToFuel(t *testing.T) {
	cfg := DefaultConfig()
	m := testModel(t, cfg, singleCellEnv())
	starts, err := m.makeStarts(fire.Cell{Row: 0, Column: 0})
	if err != nil {
		t.Fatalf("makeStarts: %v", err)
	}
	if len(starts) != 1 || starts[0].Row != 2 || starts[0].Column != 2 {
		t.Fatalf("expected relocation to (2,2), got %+v", starts)
	}
}

func TestMakeStartsFailsWithoutFuel(t *testing.T) {
	size := core.Size{Rows: 3, Columns: 3}
	env := fire.NewGridEnvironment(size, testCellSize, make([]fire.FuelCode, size.Cells()))
	cfg := DefaultConfig()
	m := testModel(t, cfg, env)
	if _, err := m.makeStarts(fire.Cell{Row: 1, Column: 1}); !errors.Is(err, fire.ErrNoFuel) {
		t.Fatalf("expected ErrNoFuel, got %v", err)
	}
}

func TestFindAllStartsEnumeratesBurnable(t *testing.T) {
	cfg := DefaultConfig()
	m := testModel(t, cfg, openEnv(4, 4))
	if got := len(m.findAllStarts()); got != 16 {
		t.Fatalf("expected 16 burnable starts, got %d", got)
	}
	m = testModel(t, cfg, singleCellEnv())
	if got := len(m.findAllStarts()); got != 1 {
		t.Fatalf("expected 1 burnable start, got %d", got)
	}
}

func TestStochasticRunConvergesAndReplays(t *testing.T) {
	run := func() (map[float64]*ProbabilityMap, uint64) {
		cfg := DefaultConfig()
		cfg.OutputOffsets = []int{1}
		cfg.Seed = 99
		m := testModel(t, cfg, singleCellEnv())
		probabilities, err := m.RunIterations(context.Background(),
			fire.Cell{Row: 2, Column: 2}, testStartTime, testStartDay)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return probabilities, m.Completed()
	}
	probsA, completedA := run()
	probsB, completedB := run()
	if completedA == 0 {
		t.Fatal("no runs completed")
	}
	if completedA != completedB {
		t.Fatalf("replay completed %d runs vs %d", completedA, completedB)
	}
	pmA := probsA[float64(testStartDay+1)]
	pmB := probsB[float64(testStartDay+1)]
	allA, _, _, _ := pmA.Counts()
	allB, _, _, _ := pmB.Counts()
	for idx := range allA {
		if allA[idx] != allB[idx] {
			t.Fatalf("cell %d: replay counts differ, %d vs %d", idx, allA[idx], allB[idx])
		}
	}
	if pmA.NumSizes() != int(completedA) {
		t.Fatalf("sizes %d should match completed runs %d", pmA.NumSizes(), completedA)
	}
}

func TestSurfaceSweepCoversAllStarts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Surface = true
	cfg.Deterministic = true
	cfg.OutputOffsets = []int{1}
	m := testModel(t, cfg, openEnv(3, 3))
	probabilities, err := m.RunIterations(context.Background(),
		fire.Cell{Row: 1, Column: 1}, testStartTime, testStartDay)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	pm := probabilities[float64(testStartDay+1)]
	// one deterministic run per burnable cell
	if pm.NumSizes() != 9 {
		t.Fatalf("expected 9 runs for 9 starts, got %d", pm.NumSizes())
	}
	all, _, _, _ := pm.Counts()
	for idx, count := range all {
		if count == 0 {
			t.Fatalf("cell %d never burned across the sweep", idx)
		}
	}
}

func TestWatchDeadlineCancelsRunningIteration(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputOffsets = []int{1}
	m := testModel(t, cfg, singleCellEnv())
	start := fire.Cell{Row: 2, Column: 2}
	scenarios, err := m.makeScenarios(&start, nil, testStartTime, testStartDay)
	if err != nil {
		t.Fatalf("scenarios: %v", err)
	}
	it := NewIteration(scenarios)
	it.Reset(core.NewRNG(1, 0), core.NewRNG(1, 1))

	m.startedAt = time.Now().Add(-2 * time.Hour)
	done := make(chan struct{})
	defer close(done)
	go m.watchDeadline(done, it)

	deadline := time.Now().Add(3 * deadlinePoll)
	for !m.OutOfTime() {
		if time.Now().After(deadline) {
			t.Fatal("deadline watcher never tripped")
		}
		time.Sleep(10 * time.Millisecond)
	}
	for _, s := range it.Scenarios() {
		if !s.cancelled.Load() {
			t.Fatal("iteration scenarios should be cancelled")
		}
	}
}

// slowSave stalls each snapshot long enough for the wall-clock watcher to
// trip while the iteration is still running.
type slowSave struct{ delay time.Duration }

func (o slowSave) CellBurned(Event)               {}
func (o slowSave) Save(float64, *IntensityRecord) { time.Sleep(o.delay) }
func (o slowSave) Reset()                         {}

func TestRunIterationsReturnsSnapshotsWhenOutOfTime(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputOffsets = []int{1, 2}
	cfg.MaxTimeSeconds = 0
	m := testModel(t, cfg, singleCellEnv())
	m.SetObserverFactory(func(*Scenario) []Observer {
		return []Observer{slowSave{delay: 2 * deadlinePoll}}
	})
	probabilities, err := m.RunIterations(context.Background(),
		fire.Cell{Row: 2, Column: 2}, testStartTime, testStartDay)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !m.OutOfTime() {
		t.Fatal("zero budget should have expired")
	}
	if m.Completed() != 0 {
		t.Fatalf("no run should have completed, got %d", m.Completed())
	}
	if len(probabilities) != len(cfg.OutputOffsets) {
		t.Fatalf("expected %d snapshots, got %d", len(cfg.OutputOffsets), len(probabilities))
	}
	for _, offset := range cfg.OutputOffsets {
		pm, ok := probabilities[float64(testStartDay+offset)]
		if !ok || pm == nil {
			t.Fatalf("missing snapshot %d days after start", offset)
		}
	}
}

func TestRunFromPerimeter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Deterministic = true
	cfg.OutputOffsets = []int{1}
	m := testModel(t, cfg, openEnv(20, 20))
	probabilities, err := m.RunFromPerimeter(context.Background(),
		fire.Cell{Row: 10, Column: 10}, 10, testStartTime, testStartDay)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	pm := probabilities[float64(testStartDay+1)]
	if pm.NumSizes() != 1 {
		t.Fatalf("expected one run, got %d sizes", pm.NumSizes())
	}
	// a 10 ha start on 1 ha cells must burn at least 10 cells
	if got := pm.Sizes()[0]; got < 10 {
		t.Fatalf("final size %f ha smaller than the starting perimeter", got)
	}
}

func TestRunsLeftTakesWorstEstimator(t *testing.T) {
	tight := []float64{100, 100.1, 100.2, 100.3, 100.4, 100.5, 100.6, 100.7}
	wide := []float64{1, 10, 100, 1000, 5000, 9000, 20000, 50000}
	if got := runsLeft(0.05, tight, tight, tight); got != 0 {
		t.Fatalf("all tight estimators should need 0 runs, got %d", got)
	}
	if got := runsLeft(0.05, tight, wide, tight); got == 0 {
		t.Fatal("one wide estimator must keep sampling going")
	}
}
