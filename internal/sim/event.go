package sim

import "firesim/internal/fire"

// EventKind enumerates the fixed event types a Scenario dispatches.
// The numeric order is the tie-break priority for events sharing a time.
type EventKind uint8

const (
	// EventSpread advances the fire front.
	EventSpread EventKind = iota
	// EventSave snapshots burn state for an output offset.
	EventSave
	// EventEnd completes the simulation.
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventSpread:
		return "spread"
	case EventSave:
		return "save"
	case EventEnd:
		return "end"
	}
	return "unknown"
}

// Event is one scheduled occurrence in a Scenario. Immutable once scheduled;
// owned solely by the Scenario's queue and consumed when dispatched.
type Event struct {
	// Time in decimal days.
	Time float64
	Kind EventKind
	// Cell the event targets; HasCell is false for events that apply to
	// the whole front (save, end, full-front spread).
	Cell    fire.Cell
	HasCell bool
	// TimeAtLocation is how long fire has been in the cell, decimal days.
	TimeAtLocation float64
	// Spread behavior carried along for burn records.
	Intensity float64
	ROS       float64
	Direction float64
}

// NewSpread schedules a whole-front spread step.
func NewSpread(time float64) Event {
	return Event{Time: time, Kind: EventSpread}
}

// NewCellSpread schedules spread arriving in a specific cell.
func NewCellSpread(time float64, cell fire.Cell, intensity, ros, direction float64) Event {
	return Event{
		Time:      time,
		Kind:      EventSpread,
		Cell:      cell,
		HasCell:   true,
		Intensity: intensity,
		ROS:       ros,
		Direction: direction,
	}
}

// NewSave schedules an output snapshot.
func NewSave(time float64) Event {
	return Event{Time: time, Kind: EventSave}
}

// NewEnd schedules the end of the simulation.
func NewEnd(time float64) Event {
	return Event{Time: time, Kind: EventEnd}
}

// cellOrder gives events without a target cell a stable place in the order.
func (e Event) cellOrder(columns int) int {
	if !e.HasCell {
		return -1
	}
	return e.Cell.Row*columns + e.Cell.Column
}

// Less defines the total order events dispatch in: time first, then kind
// priority, then target cell. The order is what makes a fixed-seed run
// replay identically.
func (e Event) Less(other Event, columns int) bool {
	if e.Time != other.Time {
		return e.Time < other.Time
	}
	if e.Kind != other.Kind {
		return e.Kind < other.Kind
	}
	return e.cellOrder(columns) < other.cellOrder(columns)
}
