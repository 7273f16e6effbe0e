package sim

import "container/heap"

// eventHeap implements heap.Interface over Events using Event.Less.
type eventHeap struct {
	events  []Event
	columns int
}

func (h *eventHeap) Len() int { return len(h.events) }

func (h *eventHeap) Less(i, j int) bool {
	return h.events[i].Less(h.events[j], h.columns)
}

func (h *eventHeap) Swap(i, j int) {
	h.events[i], h.events[j] = h.events[j], h.events[i]
}

func (h *eventHeap) Push(x any) {
	h.events = append(h.events, x.(Event))
}

func (h *eventHeap) Pop() any {
	old := h.events
	n := len(old)
	e := old[n-1]
	h.events = old[:n-1]
	return e
}

// EventQueue orders a Scenario's pending events by the event total order.
// It is owned by exactly one Scenario and needs no locking.
type EventQueue struct {
	h eventHeap
}

// NewEventQueue creates a queue for a grid with the given column count.
func NewEventQueue(columns int) *EventQueue {
	return &EventQueue{h: eventHeap{columns: columns}}
}

// Push schedules an event.
func (q *EventQueue) Push(e Event) {
	heap.Push(&q.h, e)
}

// Pop removes and returns the earliest event in the total order.
func (q *EventQueue) Pop() Event {
	return heap.Pop(&q.h).(Event)
}

// Len reports the number of pending events.
func (q *EventQueue) Len() int { return len(q.h.events) }

// Clear discards all pending events.
func (q *EventQueue) Clear() { q.h.events = q.h.events[:0] }
