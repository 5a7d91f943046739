package engine

import (
	"container/heap"
	"fmt"
)

// EventQueue orders pending events by (Time, Seq).
//
// Seq is assigned at schedule time from the queue's Clock, so events at
// equal times pop in FIFO order. Pop advances Now to the popped event's
// time; Schedule rejects events earlier than Now. Together these keep the
// popped sequence non-decreasing in time.
//
// The queue is not safe for concurrent use. It is mutated only by the
// driver's pop and by the event currently executing.
type EventQueue struct {
	now   Time
	clock *Clock
	items eventHeap
}

// NewEventQueue creates an empty queue whose clock starts at start.
func NewEventQueue(start Time) *EventQueue {
	return &EventQueue{
		now:   start,
		clock: NewClock(),
		items: make(eventHeap, 0, 64),
	}
}

// Now returns the time of the most recently popped event, or the start
// time if nothing has been popped.
func (q *EventQueue) Now() Time {
	return q.now
}

// Schedule stamps ev with the next sequence number and enqueues it.
// Returns the stamped event.
func (q *EventQueue) Schedule(ev Event) (Event, error) {
	if ev.Time < q.now {
		return Event{}, &RuntimeError{
			Code:    ErrCodeInvalidSchedule,
			Message: fmt.Sprintf("event time %d is before current time %d", ev.Time, q.now),
			Details: map[string]string{"term": ev.Term},
		}
	}
	ev.Seq = q.clock.Next()
	heap.Push(&q.items, ev)
	return ev, nil
}

// Pop removes and returns the earliest event and advances Now.
// Returns (Event{}, false) if the queue is empty.
func (q *EventQueue) Pop() (Event, bool) {
	if len(q.items) == 0 {
		return Event{}, false
	}
	ev := heap.Pop(&q.items).(Event)
	q.now = ev.Time
	return ev, true
}

// Peek returns the earliest event without removing it.
func (q *EventQueue) Peek() (Event, bool) {
	if len(q.items) == 0 {
		return Event{}, false
	}
	return q.items[0], true
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int {
	return len(q.items)
}

// IsEmpty reports whether no events are pending.
func (q *EventQueue) IsEmpty() bool {
	return len(q.items) == 0
}

// eventHeap implements heap.Interface over (Time, Seq).
type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].Seq < h[j].Seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	// Clear the slot so the popped event's args can be collected.
	old[n-1] = Event{}
	*h = old[:n-1]
	return ev
}
