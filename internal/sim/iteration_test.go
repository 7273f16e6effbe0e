package sim

import (
	"testing"

	"firesim/internal/core"
	"firesim/internal/fire"
)

func testIteration(t *testing.T) *Iteration {
	t.Helper()
	cfg := DefaultConfig()
	cfg.OutputOffsets = []int{1}
	m := testModel(t, cfg, singleCellEnv())
	start := fire.Cell{Row: 2, Column: 2}
	scenarios, err := m.makeScenarios(&start, nil, testStartTime, testStartDay)
	if err != nil {
		t.Fatalf("scenarios: %v", err)
	}
	return NewIteration(scenarios)
}

func TestIterationResetRedrawsThresholds(t *testing.T) {
	it := testIteration(t)
	it.Reset(core.NewRNG(1, 0), core.NewRNG(1, 1))
	s := it.Scenarios()[0]
	first := append([]float64(nil), s.extinctionThresholds...)

	it.Reset(core.NewRNG(2, 0), core.NewRNG(2, 1))
	second := s.extinctionThresholds
	same := true
	for i := range first {
		if first[i] != second[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("a different seed must redraw different thresholds")
	}
	if s.Simulation() != 2 {
		t.Fatalf("simulation counter: got %d", s.Simulation())
	}
}

func TestIterationStreamsAreIndependent(t *testing.T) {
	it := testIteration(t)
	it.Reset(core.NewRNG(7, 0), core.NewRNG(7, 1))
	s := it.Scenarios()[0]
	// both vectors come from the same base seed but distinct streams
	same := true
	for i := range s.extinctionThresholds {
		if s.extinctionThresholds[i] != s.spreadThresholds[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("extinction and spread thresholds must not share draws")
	}
}

func TestIterationResetClearsSizes(t *testing.T) {
	it := testIteration(t)
	it.Reset(core.NewRNG(1, 0), core.NewRNG(1, 1))
	it.finalSizes.Add(4.5)
	if len(it.FinalSizes()) != 1 {
		t.Fatal("setup failed")
	}
	it.Reset(core.NewRNG(1, 0), core.NewRNG(1, 1))
	if len(it.FinalSizes()) != 0 {
		t.Fatal("reset must clear the size sink")
	}
}

func TestIterationCancelPropagates(t *testing.T) {
	it := testIteration(t)
	it.Reset(core.NewRNG(1, 0), core.NewRNG(1, 1))
	it.Cancel(false)
	for _, s := range it.Scenarios() {
		if !s.cancelled.Load() {
			t.Fatal("cancel must reach every scenario")
		}
	}
}

func TestIterationSavePoints(t *testing.T) {
	it := testIteration(t)
	points := it.SavePoints()
	if len(points) != 1 || points[0] != float64(testStartDay+1) {
		t.Fatalf("save points: got %v", points)
	}
	if it.StartTime() != testStartTime {
		t.Fatalf("start time: got %f", it.StartTime())
	}
}
