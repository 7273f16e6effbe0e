package sim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"firesim/internal/core"
	"firesim/internal/fire"
)

const (
	hoursPerDay   = 24
	minutesPerDay = 1440.0
	cellCenter    = 0.5
)

// State tracks where a Scenario is in its lifecycle.
type State uint8

const (
	// StateInitialized means the scenario is constructed but not reset.
	StateInitialized State = iota
	// StateRunning means reset has been applied and events may dispatch.
	StateRunning
	// StateCompleted means the end event was dispatched.
	StateCompleted
	// StateCancelled means the scenario was cancelled before its end event.
	StateCancelled
)

// point is a sub-cell fire-front position in continuous grid units
// (x along columns, y along rows).
type point struct {
	x float64
	y float64
}

// Scenario is one self-contained fire growth simulation: an event queue, a
// fire-front point set, a burned-cell record, and time-varying thresholds.
// It advances strictly by popping and dispatching the earliest event.
type Scenario struct {
	model   *Model
	id      int
	weather fire.Stream

	startTime float64
	startDay  int
	lastDay   int
	startCell *fire.Cell
	perimeter *Perimeter

	savePoints []float64
	lastSave   float64

	state       State
	cancelled   atomic.Bool
	currentTime float64
	simulation  int
	steps       int
	oobSpread   int

	queue      *EventQueue
	arrival    map[int]float64
	points     map[int][]point
	unburnable *core.BitGrid
	intensity  *IntensityRecord

	extinctionThresholds []float64
	spreadThresholds     []float64

	spreadCache map[fire.SpreadKey]fire.Spread
	currentHour int
	maxROS      float64

	observers     []Observer
	probabilities map[float64]*ProbabilityMap
	finalSizes    *SizeList
	sizeReported  bool
}

// NewScenario builds a scenario for one weather stream and one ignition,
// either a start cell or a perimeter. saveOffsets are whole days after
// startDay to snapshot at. Fails when the weather stream cannot cover the
// start or the last snapshot.
func NewScenario(model *Model, id int, weather fire.Stream, startTime float64,
	startCell *fire.Cell, perimeter *Perimeter, startDay int, saveOffsets []int) (*Scenario, error) {
	if _, ok := weather.At(startTime); !ok {
		return nil, fmt.Errorf("scenario %d: weather at start time %f: %w", id, startTime, fire.ErrNoWeather)
	}
	s := &Scenario{
		model:       model,
		id:          id,
		weather:     weather,
		startTime:   startTime,
		startDay:    startDay,
		startCell:   startCell,
		perimeter:   perimeter,
		currentHour: -1,
		queue:       NewEventQueue(model.env.Size().Columns),
		intensity:   NewIntensityRecord(model.env.Size(), model.cellArea()),
	}
	for _, offset := range saveOffsets {
		t := float64(startDay + offset)
		if t > s.lastSave {
			s.lastSave = t
		}
		s.savePoints = append(s.savePoints, t)
	}
	s.lastDay = int(s.lastSave)
	if s.lastDay > weather.MaxDay() {
		return nil, fmt.Errorf("scenario %d: weather ends day %d before last save day %d: %w",
			id, weather.MaxDay(), s.lastDay, fire.ErrNoWeather)
	}
	return s, nil
}

// RegisterObserver adds an observer notified on burns and saves.
func (s *Scenario) RegisterObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// State reports the scenario lifecycle state.
func (s *Scenario) State() State { return s.state }

// ID reports the weather stream identifier this scenario runs.
func (s *Scenario) ID() int { return s.id }

// Simulation reports how many times this scenario has been reset.
func (s *Scenario) Simulation() int { return s.simulation }

// SavePoints lists the snapshot times in decimal days.
func (s *Scenario) SavePoints() []float64 { return s.savePoints }

// StartTime reports the simulation start in decimal days.
func (s *Scenario) StartTime() float64 { return s.startTime }

// CurrentFireSize reports the burned area in hectares so far.
func (s *Scenario) CurrentFireSize() float64 { return s.intensity.FireSize() }

// clear drops all transient run state without touching configuration.
func (s *Scenario) clear() {
	s.queue.Clear()
	s.arrival = map[int]float64{}
	s.points = map[int][]point{}
	s.spreadCache = map[fire.SpreadKey]fire.Spread{}
	s.extinctionThresholds = nil
	s.spreadThresholds = nil
	s.maxROS = 0
	s.steps = 0
	s.oobSpread = 0
	s.currentHour = -1
	s.model.pool.Release(s.unburnable)
	s.unburnable = nil
}

// thresholdSlots is the length of the per-hour threshold vectors. One extra
// day so landing exactly on the end still has an entry.
func (s *Scenario) thresholdSlots() int {
	return (s.lastDay - s.startDay + 2) * hoursPerDay
}

// makeThresholds pre-rolls hourly thresholds by blending one run-level draw,
// one draw per day, and one draw per hour. Pre-rolling from a dedicated
// stream keeps runs reproducible for a fixed seed.
func (s *Scenario) makeThresholds(rng *core.RNG, convert func(float64) float64) []float64 {
	cfg := &s.model.cfg
	total := cfg.ThresholdScenarioWeight + cfg.ThresholdDailyWeight + cfg.ThresholdHourlyWeight
	out := make([]float64, s.thresholdSlots())
	general := rng.Float64()
	for day := s.startDay; day <= s.lastDay+1; day++ {
		daily := rng.Float64()
		for h := 0; h < hoursPerDay; h++ {
			hourly := rng.Float64()
			v := 1.0 - (cfg.ThresholdScenarioWeight*general+
				cfg.ThresholdDailyWeight*daily+
				cfg.ThresholdHourlyWeight*hourly)/total
			v = math.Max(0, math.Min(1, v))
			if convert != nil {
				v = convert(v)
			}
			out[(day-s.startDay)*hoursPerDay+h] = v
		}
	}
	return out
}

// rosFromThreshold converts a spread-event probability threshold into the
// head rate of spread (m/min) needed to exceed it, after Wotton's spread
// event probability curve.
func rosFromThreshold(threshold float64) float64 {
	if threshold >= 1 {
		return math.Inf(1)
	}
	if threshold <= 0 {
		return 0
	}
	return 25.0 / 4.0 * math.Log(-(math.Exp(41.0/25.0)*threshold)/(threshold-1))
}

// Reset transitions the scenario to Running for another sampling pass.
// Thresholds redraw from the two independent streams; passing nil for either
// leaves that mechanism at zero thresholds (always pass), which is how
// deterministic mode runs. Transient state clears without reallocating the
// scenario.
func (s *Scenario) Reset(extinction, spread *core.RNG, sink *SizeList) {
	s.cancelled.Store(false)
	s.clear()
	if extinction != nil {
		s.extinctionThresholds = s.makeThresholds(extinction, nil)
	} else {
		s.extinctionThresholds = make([]float64, s.thresholdSlots())
	}
	if spread != nil {
		s.spreadThresholds = s.makeThresholds(spread, rosFromThreshold)
	} else {
		s.spreadThresholds = make([]float64, s.thresholdSlots())
	}
	s.finishReset(sink)
}

// ResetWithNewStart is the deterministic-sweep variant: a new ignition cell,
// no randomness drawn.
func (s *Scenario) ResetWithNewStart(start *fire.Cell, sink *SizeList) {
	s.cancelled.Store(false)
	s.startCell = start
	s.clear()
	s.extinctionThresholds = make([]float64, s.thresholdSlots())
	s.spreadThresholds = make([]float64, s.thresholdSlots())
	s.finishReset(sink)
}

func (s *Scenario) finishReset(sink *SizeList) {
	for _, o := range s.observers {
		o.Reset()
	}
	s.finalSizes = sink
	s.sizeReported = false
	s.probabilities = nil
	s.currentTime = s.startTime
	s.intensity.Reset(s.model.pool)
	s.simulation++
	s.state = StateRunning
	s.model.runsStarted.Add(1)
}

// Cancel requests cooperative cancellation; the run exits at its next event
// check and still reports its partial size.
func (s *Scenario) Cancel(warn bool) {
	if s.cancelled.CompareAndSwap(false, true) {
		if warn {
			log.Warn().Int("scenario", s.id).Int("simulation", s.simulation).
				Msg("simulation cancelled")
		}
	}
}

// scheduleInitialEvents loads the queue for a fresh run: every save point,
// the ignition, and the end of simulation.
func (s *Scenario) scheduleInitialEvents() {
	for _, t := range s.savePoints {
		s.queue.Push(NewSave(t))
	}
	if s.perimeter == nil {
		s.queue.Push(NewCellSpread(s.startTime, *s.startCell, 0, 0, 0))
	} else {
		s.applyPerimeter()
		s.queue.Push(NewSpread(s.startTime))
	}
	// run only until the last requested save
	s.queue.Push(NewEnd(s.lastSave))
}

// applyPerimeter pre-burns the perimeter interior and seeds front points on
// its edge cells.
func (s *Scenario) applyPerimeter() {
	size := s.model.env.Size()
	for _, idx := range s.perimeter.Burned() {
		s.intensity.Burn(idx, 1, 0, 0)
		s.arrival[idx] = s.startTime
	}
	for _, cell := range s.perimeter.Edge() {
		idx := size.Index(cell.Row, cell.Column)
		s.points[idx] = append(s.points[idx], point{
			x: float64(cell.Column) + cellCenter,
			y: float64(cell.Row) + cellCenter,
		})
	}
}

// Run executes the scenario until its end event, cancellation, or an empty
// queue. Partial results still reach the output sink on cancellation. The
// returned flag reports whether the run completed normally.
func (s *Scenario) Run(ctx context.Context, probabilities map[float64]*ProbabilityMap) (bool, error) {
	if s.state != StateRunning {
		return false, fmt.Errorf("scenario %d: run before reset", s.id)
	}
	if err := s.model.limiter.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("scenario %d: acquiring task slot: %w", s.id, err)
	}
	defer s.model.limiter.Release(1)
	s.probabilities = probabilities
	s.unburnable = s.model.pool.Acquire()
	s.markNonFuel()
	s.scheduleInitialEvents()
	for !s.cancelled.Load() && s.queue.Len() > 0 {
		s.evaluateNextEvent()
	}
	s.model.totalSteps.Add(uint64(s.steps))
	s.model.pool.Release(s.unburnable)
	s.unburnable = nil
	if s.cancelled.Load() {
		s.state = StateCancelled
		// partial size still counts toward the output sink, unless the
		// last save already reported it
		if s.finalSizes != nil && !s.sizeReported {
			s.sizeReported = true
			s.finalSizes.Add(s.intensity.FireSize())
		}
		return false, nil
	}
	if s.oobSpread > 0 {
		log.Warn().Int("scenario", s.id).Int("count", s.oobSpread).
			Msg("tried to spread out of bounds")
	}
	completed := s.model.completed.Add(1)
	log.Debug().Int("scenario", s.id).Int("simulation", s.simulation).
		Uint64("completed", completed).
		Float64("size_ha", s.CurrentFireSize()).
		Msg("completed")
	return true, nil
}

// markNonFuel marks every cell without fuel as unburnable for this run.
func (s *Scenario) markNonFuel() {
	size := s.model.env.Size()
	for row := 0; row < size.Rows; row++ {
		for col := 0; col < size.Columns; col++ {
			cell, ok := s.model.env.CellAt(row, col)
			if !ok || cell.Fuel == fire.FuelNone {
				s.unburnable.Set(size.Index(row, col))
			}
		}
	}
}

// evaluateNextEvent pops the earliest pending event and dispatches it.
func (s *Scenario) evaluateNextEvent() {
	e := s.queue.Pop()
	s.evaluate(e)
}

func (s *Scenario) evaluate(e Event) {
	switch e.Kind {
	case EventSpread:
		s.steps++
		if e.HasCell && len(s.points) == 0 {
			s.igniteAt(e)
			return
		}
		s.scheduleFireSpread(e.Time)
	case EventSave:
		s.saveObservers(e.Time)
		s.saveStats(e.Time)
	case EventEnd:
		log.Debug().Int("scenario", s.id).Float64("time", e.Time).Msg("end of simulation")
		s.state = StateCompleted
		s.queue.Clear()
	}
}

// igniteAt starts the fire in the event's cell and schedules the first
// front advance.
func (s *Scenario) igniteAt(e Event) {
	size := s.model.env.Size()
	idx := size.Index(e.Cell.Row, e.Cell.Column)
	s.points[idx] = append(s.points[idx], point{
		x: float64(e.Cell.Column) + cellCenter,
		y: float64(e.Cell.Row) + cellCenter,
	})
	if !s.survives(e.Time, e.Cell, e.TimeAtLocation) {
		obs, _ := s.weather.At(e.Time)
		log.Info().Int("scenario", s.id).
			Float64("ffmc", obs.FFMC).Float64("dmc", obs.DMC).
			Msg("did not survive ignition")
		// the fire still existed, so the origin keeps its intensity
	}
	s.burn(e)
	s.scheduleFireSpread(e.Time)
}

// burn marks a cell burned, records arrival, and notifies observers.
func (s *Scenario) burn(e Event) {
	idx := s.model.env.Size().Index(e.Cell.Row, e.Cell.Column)
	for _, o := range s.observers {
		o.CellBurned(e)
	}
	s.intensity.Burn(idx, math.Max(1, e.Intensity), e.ROS, e.Direction)
	if _, seen := s.arrival[idx]; !seen {
		s.arrival[idx] = e.Time
	}
}

// timeIndex converts decimal days to a whole hour count.
func timeIndex(t float64) int { return int(t * hoursPerDay) }

// thresholdAt indexes an hourly threshold vector by time, clamped to range.
func (s *Scenario) thresholdAt(vec []float64, t float64) float64 {
	idx := timeIndex(t) - s.startDay*hoursPerDay
	if idx < 0 {
		idx = 0
	}
	if idx >= len(vec) {
		idx = len(vec) - 1
	}
	return vec[idx]
}

// survives decides whether fire persists in a cell. Deterministic runs always
// survive. Wet duff extinguishes unless the fire has not resided long enough
// for the moisture bound; the bounds loosen with shorter residency. Past the
// table, survival is the stochastic comparison of the pre-rolled extinction
// threshold against the weather-and-fuel survival probability. Missing
// weather means no survival, never an error.
func (s *Scenario) survives(t float64, cell fire.Cell, timeAtLocation float64) bool {
	if s.model.cfg.Deterministic {
		return true
	}
	obs, ok := s.weather.At(t)
	if !ok {
		return false
	}
	mc := obs.MoistureDMCPct
	if mc < 100 ||
		(mc <= 109 && timeAtLocation < 5) ||
		(mc <= 119 && timeAtLocation < 4) ||
		(mc <= 131 && timeAtLocation < 3) ||
		(mc <= 145 && timeAtLocation < 2) ||
		(mc <= 218 && timeAtLocation < 1) {
		return true
	}
	p, ok := s.weather.SurvivalProbability(t, cell.Fuel)
	if !ok {
		return false
	}
	return s.thresholdAt(s.extinctionThresholds, t) < p
}

// saveStats folds the current burn state into the snapshot map for the save
// time; the last save also reports the final size.
func (s *Scenario) saveStats(t float64) {
	if pm, ok := s.probabilities[t]; ok {
		pm.AddProbability(s.intensity)
	}
	if t == s.lastSave && s.finalSizes != nil && !s.sizeReported {
		s.sizeReported = true
		s.finalSizes.Add(s.intensity.FireSize())
	}
}

func (s *Scenario) saveObservers(t float64) {
	for _, o := range s.observers {
		o.Save(t, s.intensity)
	}
}

// spreadGroup is one spread-key bucket of front cells advanced together.
type spreadGroup struct {
	spread fire.Spread
	cells  []int
}

// scheduleFireSpread advances every active front cell whose behavior clears
// the hour's spread threshold, then schedules the next spread event. Cells
// below threshold wait until the next hour.
func (s *Scenario) scheduleFireSpread(t float64) {
	s.currentTime = t
	obs, ok := s.weather.At(t)
	hourIdx := timeIndex(t)
	nextTime := float64(hourIdx+1) / hoursPerDay
	maxDuration := (nextTime - t) * minutesPerDay
	if !ok {
		// no weather for this hour; check again at the next one
		s.queue.Push(NewSpread(nextTime))
		return
	}
	if obs.FFMC < s.model.cfg.MinimumFFMC {
		log.Trace().Int("scenario", s.id).Float64("until", nextTime).Msg("waiting because of FFMC")
		s.queue.Push(NewSpread(nextTime))
		return
	}
	if s.currentHour != hourIdx {
		s.currentHour = hourIdx
		s.spreadCache = map[fire.SpreadKey]fire.Spread{}
		s.maxROS = 0
	}
	minROS := math.Max(s.model.cfg.MinimumROS, s.thresholdAt(s.spreadThresholds, t))
	size := s.model.env.Size()
	groups := map[fire.SpreadKey]*spreadGroup{}
	for idx := range s.points {
		cell, ok := s.model.env.CellAt(idx/size.Columns, idx%size.Columns)
		if !ok {
			continue
		}
		key := cell.Key()
		sp, cached := s.spreadCache[key]
		if !cached {
			behavior, ok := s.model.lookup.BehaviorFor(cell.Fuel)
			if !ok {
				continue
			}
			sp = behavior.Spread(obs, cell.Slope, cell.Aspect)
			s.spreadCache[key] = sp
		}
		if sp.HeadROS < minROS {
			continue
		}
		if sp.HeadROS > s.maxROS {
			s.maxROS = sp.HeadROS
		}
		g, ok := groups[key]
		if !ok {
			g = &spreadGroup{spread: sp}
			groups[key] = g
		}
		g.cells = append(g.cells, idx)
	}
	if len(groups) == 0 {
		// nothing is spreading fast enough; everything stays put
		log.Trace().Int("scenario", s.id).Float64("until", nextTime).Msg("waiting for spread")
		s.queue.Push(NewSpread(nextTime))
		return
	}
	// cap duration so the fastest front crosses at most the configured
	// number of cell widths in one step
	duration := maxDuration
	if s.maxROS > 0 {
		limit := s.model.cfg.MaximumSpreadDistance * s.model.env.CellSizeMeters() / s.maxROS
		duration = math.Min(duration, limit)
	}
	newTime := t + duration/minutesPerDay
	for _, g := range groups {
		s.advanceGroup(g, duration, newTime)
	}
	s.settleFront(newTime)
	s.queue.Push(NewSpread(newTime))
}

// frontOffsets approximates the spread ellipse with head, flank, and back
// vectors scaled off the head rate of spread.
func frontOffsets(sp fire.Spread, duration, cellSize float64) []point {
	dist := sp.HeadROS * duration / cellSize
	rad := sp.Direction * math.Pi / 180
	head := point{x: math.Sin(rad) * dist, y: -math.Cos(rad) * dist}
	left := point{x: math.Sin(rad-math.Pi/2) * dist * 0.4, y: -math.Cos(rad-math.Pi/2) * dist * 0.4}
	right := point{x: math.Sin(rad+math.Pi/2) * dist * 0.4, y: -math.Cos(rad+math.Pi/2) * dist * 0.4}
	back := point{x: -head.x * 0.2, y: -head.y * 0.2}
	return []point{head, left, right, back}
}

// advanceGroup moves each point in the group by the ellipse offsets,
// spilling crossings into neighbour cells.
func (s *Scenario) advanceGroup(g *spreadGroup, duration, newTime float64) {
	size := s.model.env.Size()
	offsets := frontOffsets(g.spread, duration, s.model.env.CellSizeMeters())
	for _, idx := range g.cells {
		pts := s.points[idx]
		delete(s.points, idx)
		for _, p := range pts {
			for _, o := range offsets {
				np := point{x: p.x + o.x, y: p.y + o.y}
				col, row := int(np.x), int(np.y)
				if !size.Contains(row, col) {
					s.oobSpread++
					continue
				}
				nidx := size.Index(row, col)
				if s.unburnable.Get(nidx) {
					continue
				}
				s.points[nidx] = append(s.points[nidx], np)
				if nidx != idx && s.intensity.CanBurn(nidx) {
					cell, ok := s.model.env.CellAt(row, col)
					if !ok {
						continue
					}
					s.burn(NewCellSpread(newTime, cell,
						g.spread.Intensity, g.spread.HeadROS, g.spread.Direction))
				}
			}
		}
	}
}

// maxPointsPerCell bounds the condensed front representation inside a cell.
const maxPointsPerCell = 16

// settleFront burns cells the front now occupies, applies survival, and
// condenses each cell's point set.
func (s *Scenario) settleFront(newTime float64) {
	size := s.model.env.Size()
	for idx, pts := range s.points {
		row, col := idx/size.Columns, idx%size.Columns
		cell, ok := s.model.env.CellAt(row, col)
		if !ok {
			delete(s.points, idx)
			continue
		}
		if s.intensity.CanBurn(idx) {
			if sp, cached := s.spreadCache[cell.Key()]; cached && sp.Intensity > 0 {
				s.burn(NewCellSpread(newTime, cell, sp.Intensity, sp.HeadROS, sp.Direction))
			}
		}
		arrival, seen := s.arrival[idx]
		if !seen {
			arrival = newTime
		}
		if s.unburnable.Get(idx) ||
			!s.survives(newTime, cell, newTime-arrival) ||
			s.intensity.IsSurrounded(row, col) {
			// went out or has nowhere to go; drop the points for good
			s.unburnable.Set(idx)
			delete(s.points, idx)
			continue
		}
		s.points[idx] = condense(pts)
	}
}

// condense deduplicates points on a tenth-of-a-cell lattice and caps how
// many survive per cell. The result is sorted so the front does not depend
// on the order points arrived in.
func condense(pts []point) []point {
	if len(pts) <= 1 {
		return pts
	}
	seen := map[[2]int32]struct{}{}
	out := pts[:0]
	for _, p := range pts {
		key := [2]int32{int32(p.x * 10), int32(p.y * 10)}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		// snap to the lattice so the kept point does not depend on which
		// duplicate arrived first
		out = append(out, point{x: float64(key[0]) / 10, y: float64(key[1]) / 10})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].x != out[j].x {
			return out[i].x < out[j].x
		}
		return out[i].y < out[j].y
	})
	if len(out) > maxPointsPerCell {
		out = out[:maxPointsPerCell]
	}
	return out
}
