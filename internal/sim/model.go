package sim

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"firesim/internal/core"
	"firesim/internal/fire"
)

// deadlinePoll is how often the watcher checks the wall-clock budget.
const deadlinePoll = time.Second

// Model owns everything shared across iterations: the landscape, the fuel
// behavior table, the weather streams, the resource pool, and the global
// concurrency limiter. It drives iterations until the sequential stopping
// rule or a budget says stop.
type Model struct {
	cfg     Config
	env     fire.Environment
	lookup  fire.Lookup
	streams map[int]fire.Stream

	pool    *BurnedPool
	limiter *semaphore.Weighted

	startedAt   time.Time
	outOfTime   atomic.Bool
	overCount   atomic.Bool
	completed   atomic.Uint64
	runsStarted atomic.Uint64
	totalSteps  atomic.Uint64

	observerFactory func(*Scenario) []Observer
}

// NewModel wires a model from its configuration and inputs. The limiter is
// sized so one full iteration can always be in flight.
func NewModel(cfg Config, env fire.Environment, lookup fire.Lookup, streams map[int]fire.Stream) (*Model, error) {
	if env == nil || lookup == nil {
		return nil, fmt.Errorf("model: environment and lookup are required")
	}
	if len(streams) == 0 {
		return nil, fmt.Errorf("model: at least one weather stream: %w", fire.ErrNoWeather)
	}
	slots := cfg.Workers
	if len(streams) > slots {
		slots = len(streams)
	}
	return &Model{
		cfg:     cfg,
		env:     env,
		lookup:  lookup,
		streams: streams,
		pool:    NewBurnedPool(env.Size()),
		limiter: semaphore.NewWeighted(int64(slots)),
	}, nil
}

// SetObserverFactory installs a hook producing observers for each scenario.
func (m *Model) SetObserverFactory(f func(*Scenario) []Observer) {
	m.observerFactory = f
}

// Config exposes the model configuration.
func (m *Model) Config() Config { return m.cfg }

// Environment exposes the landscape.
func (m *Model) Environment() fire.Environment { return m.env }

// Completed reports how many scenario runs finished normally.
func (m *Model) Completed() uint64 { return m.completed.Load() }

// TotalSteps reports the spread events dispatched across all runs.
func (m *Model) TotalSteps() uint64 { return m.totalSteps.Load() }

// OutOfTime reports whether the wall-clock budget expired.
func (m *Model) OutOfTime() bool { return m.outOfTime.Load() }

func (m *Model) cellArea() float64 {
	cs := m.env.CellSizeMeters()
	return cs * cs
}

// findStarts searches outward in square rings from the requested cell for
// the nearest burnable cells. An empty result means nothing in the grid can
// burn near that point.
func (m *Model) findStarts(origin fire.Cell) []fire.Cell {
	size := m.env.Size()
	maxRing := size.Rows
	if size.Columns > maxRing {
		maxRing = size.Columns
	}
	for ring := 0; ring <= maxRing; ring++ {
		var found []fire.Cell
		for dr := -ring; dr <= ring; dr++ {
			for dc := -ring; dc <= ring; dc++ {
				if dr > -ring && dr < ring && dc > -ring && dc < ring {
					continue
				}
				cell, ok := m.env.CellAt(origin.Row+dr, origin.Column+dc)
				if ok && cell.Fuel != fire.FuelNone {
					found = append(found, cell)
				}
			}
		}
		if len(found) > 0 {
			return found
		}
	}
	return nil
}

// findAllStarts enumerates every burnable cell, for surface sweeps.
func (m *Model) findAllStarts() []fire.Cell {
	size := m.env.Size()
	var out []fire.Cell
	for row := 0; row < size.Rows; row++ {
		for col := 0; col < size.Columns; col++ {
			if cell, ok := m.env.CellAt(row, col); ok && cell.Fuel != fire.FuelNone {
				out = append(out, cell)
			}
		}
	}
	return out
}

// makeStarts resolves the requested ignition into concrete start cells. A
// start on unburnable ground relocates to the nearest burnable ring.
func (m *Model) makeStarts(start fire.Cell) ([]fire.Cell, error) {
	if m.cfg.Surface {
		starts := m.findAllStarts()
		if len(starts) == 0 {
			return nil, fmt.Errorf("model: no burnable cells for surface sweep: %w", fire.ErrNoFuel)
		}
		return starts, nil
	}
	if cell, ok := m.env.CellAt(start.Row, start.Column); ok && cell.Fuel != fire.FuelNone {
		return []fire.Cell{cell}, nil
	}
	starts := m.findStarts(start)
	if len(starts) == 0 {
		return nil, fmt.Errorf("model: no burnable cell near (%d,%d): %w",
			start.Row, start.Column, fire.ErrNoFuel)
	}
	log.Info().Int("row", starts[0].Row).Int("column", starts[0].Column).
		Msg("moved start to nearest burnable cell")
	return starts[:1], nil
}

// makeScenarios builds one scenario per weather stream for a start cell.
// Stream ids sort so reseeding consumes random draws in a fixed order.
func (m *Model) makeScenarios(start *fire.Cell, perimeter *Perimeter, startTime float64, startDay int) ([]*Scenario, error) {
	ids := make([]int, 0, len(m.streams))
	for id := range m.streams {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var scenarios []*Scenario
	for _, id := range ids {
		s, err := NewScenario(m, id, m.streams[id], startTime, start, perimeter, startDay, m.cfg.OutputOffsets)
		if err != nil {
			return nil, err
		}
		if m.observerFactory != nil {
			for _, o := range m.observerFactory(s) {
				s.RegisterObserver(o)
			}
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// watchDeadline polls the wall clock and the run counter, cancelling the
// active iteration when either budget trips. Stops when done closes.
func (m *Model) watchDeadline(done <-chan struct{}, it *Iteration) {
	ticker := time.NewTicker(deadlinePoll)
	defer ticker.Stop()
	budget := time.Duration(m.cfg.MaxTimeSeconds) * time.Second
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if time.Since(m.startedAt) > budget {
				if m.outOfTime.CompareAndSwap(false, true) {
					log.Warn().Dur("elapsed", time.Since(m.startedAt)).
						Msg("stopping early, ran out of time")
				}
				it.Cancel(true)
				return
			}
			if m.runsStarted.Load() > uint64(m.cfg.MaxSimulations) {
				if m.overCount.CompareAndSwap(false, true) {
					log.Warn().Uint64("started", m.runsStarted.Load()).
						Msg("stopping early, reached simulation limit")
				}
				it.Cancel(false)
				return
			}
		}
	}
}

// runBatch runs every scenario of the iteration concurrently and waits for
// all of them. Each run acquires a slot from the shared limiter.
func (m *Model) runBatch(ctx context.Context, it *Iteration, probabilities map[float64]*ProbabilityMap) error {
	var wg sync.WaitGroup
	errs := make(chan error, len(it.Scenarios()))
	for _, s := range it.Scenarios() {
		wg.Add(1)
		go func(s *Scenario) {
			defer wg.Done()
			if _, err := s.Run(ctx, probabilities); err != nil {
				errs <- err
			}
		}(s)
	}
	wg.Wait()
	close(errs)
	return <-errs
}

// relativeError converts the configured confidence level into the relative
// half-width target used by the stopping rule.
func (m *Model) relativeError() float64 { return 1 - m.cfg.ConfidenceLevel }

// runsLeft applies the sequential stopping rule across three estimators of
// final fire size: the pooled sizes, the per-iteration means, and the
// per-iteration 95th percentiles. The answer is the largest shortfall.
func runsLeft(relErr float64, pooled, means, p95s []float64) int {
	most := 0
	for _, values := range [][]float64{pooled, means, p95s} {
		if n := NewStatistics(values).RunsRequired(relErr); n > most {
			most = n
		}
	}
	return most
}

// RunIterations runs reseeded iterations from one ignition until the
// stopping rule is satisfied or a budget expires, and returns the aggregated
// probability map per save time. Budget stops still return whatever
// aggregated so far.
func (m *Model) RunIterations(ctx context.Context, start fire.Cell, startTime float64, startDay int) (map[float64]*ProbabilityMap, error) {
	m.startedAt = time.Now()
	m.outOfTime.Store(false)
	m.overCount.Store(false)
	starts, err := m.makeStarts(start)
	if err != nil {
		return nil, err
	}
	scenarios, err := m.makeScenarios(&starts[0], nil, startTime, startDay)
	if err != nil {
		return nil, err
	}
	it := NewIteration(scenarios)
	probabilities := make(map[float64]*ProbabilityMap, len(it.SavePoints()))
	for _, t := range it.SavePoints() {
		probabilities[t] = NewProbabilityMap(m.env.Size(), t, startTime,
			m.cfg.IntensityMaxLow, m.cfg.IntensityMaxModerate)
	}
	done := make(chan struct{})
	go m.watchDeadline(done, it)
	defer close(done)

	if m.cfg.Surface {
		return probabilities, m.runSurface(ctx, it, starts, probabilities)
	}
	if m.cfg.Deterministic {
		it.Reset(nil, nil)
		if err := m.runBatch(ctx, it, probabilities); err != nil {
			return nil, err
		}
		return probabilities, nil
	}

	relErr := m.relativeError()
	var pooled, means, p95s []float64
	iteration := 0
	for !m.outOfTime.Load() && !m.overCount.Load() {
		iteration++
		extinction := core.NewRNG(uint64(m.cfg.Seed),
			core.SeedFromPoint(0, startDay+iteration, float64(start.Row), float64(start.Column)))
		spread := core.NewRNG(uint64(m.cfg.Seed),
			core.SeedFromPoint(1, startDay+iteration, float64(start.Row), float64(start.Column)))
		it.Reset(extinction, spread)
		if err := m.runBatch(ctx, it, probabilities); err != nil {
			return nil, err
		}
		sizes := it.FinalSizes()
		if len(sizes) == 0 {
			continue
		}
		for _, v := range sizes {
			pooled = insertSorted(pooled, v)
		}
		batch := NewStatistics(sizes)
		means = insertSorted(means, batch.Mean())
		p95s = insertSorted(p95s, batch.Percentile(95))
		left := runsLeft(relErr, pooled, means, p95s)
		log.Debug().Int("iteration", iteration).Int("runs_left", left).
			Float64("mean_ha", batch.Mean()).Msg("iteration done")
		if left == 0 {
			log.Info().Int("iterations", iteration).
				Uint64("completed", m.completed.Load()).
				Msg("converged")
			break
		}
	}
	if m.outOfTime.Load() && iteration <= 1 {
		log.Warn().Msg("budget expired before a full iteration; results are interim")
	}
	return probabilities, nil
}

// runSurface sweeps deterministic ignitions across every burnable cell,
// folding each into the shared probability maps.
func (m *Model) runSurface(ctx context.Context, it *Iteration, starts []fire.Cell, probabilities map[float64]*ProbabilityMap) error {
	for i := range starts {
		if m.outOfTime.Load() || m.overCount.Load() {
			break
		}
		it.ResetWithNewStart(&starts[i])
		if err := m.runBatch(ctx, it, probabilities); err != nil {
			return err
		}
	}
	return nil
}

// RunFromPerimeter runs a single deterministic batch started from an
// existing burn perimeter instead of a point ignition.
func (m *Model) RunFromPerimeter(ctx context.Context, center fire.Cell, areaHa, startTime float64, startDay int) (map[float64]*ProbabilityMap, error) {
	perimeter := NewPerimeter(m.env, center, areaHa)
	if len(perimeter.Burned()) == 0 {
		return nil, fmt.Errorf("model: perimeter at (%d,%d) covers no burnable cells: %w",
			center.Row, center.Column, fire.ErrNoFuel)
	}
	m.startedAt = time.Now()
	scenarios, err := m.makeScenarios(nil, perimeter, startTime, startDay)
	if err != nil {
		return nil, err
	}
	it := NewIteration(scenarios)
	probabilities := make(map[float64]*ProbabilityMap, len(it.SavePoints()))
	for _, t := range it.SavePoints() {
		probabilities[t] = NewProbabilityMap(m.env.Size(), t, startTime,
			m.cfg.IntensityMaxLow, m.cfg.IntensityMaxModerate)
	}
	done := make(chan struct{})
	go m.watchDeadline(done, it)
	defer close(done)
	it.Reset(nil, nil)
	if err := m.runBatch(ctx, it, probabilities); err != nil {
		return nil, err
	}
	return probabilities, nil
}
