package game

import "slices"

// timer is a delayed callback keyed to the match clock.
type timer struct {
	id    int
	dueMs int64
	name  string
	fn    func(nowMs int64)
}

// Scheduler runs delayed callbacks from the match tick. It replaces wall
// clock timeouts so pending work can be listed and cancelled as a whole.
type Scheduler struct {
	timers []timer
	nextID int
}

// After schedules fn to run on the first Run at or after nowMs+delayMs and
// returns a handle for Cancel.
func (s *Scheduler) After(nowMs, delayMs int64, name string, fn func(nowMs int64)) int {
	s.nextID++
	s.timers = append(s.timers, timer{id: s.nextID, dueMs: nowMs + delayMs, name: name, fn: fn})
	return s.nextID
}

// Cancel removes a pending timer. Unknown ids are ignored.
func (s *Scheduler) Cancel(id int) {
	s.timers = slices.DeleteFunc(s.timers, func(t timer) bool { return t.id == id })
}

// CancelAll drops every pending timer.
func (s *Scheduler) CancelAll() {
	s.timers = nil
}

// Run fires every due timer in due-time order (ties by scheduling order).
// Timers scheduled by a callback run on a later call at the earliest.
func (s *Scheduler) Run(nowMs int64) {
	var due []timer
	s.timers = slices.DeleteFunc(s.timers, func(t timer) bool {
		if t.dueMs <= nowMs {
			due = append(due, t)
			return true
		}
		return false
	})
	slices.SortStableFunc(due, func(a, b timer) int {
		switch {
		case a.dueMs < b.dueMs:
			return -1
		case a.dueMs > b.dueMs:
			return 1
		}
		return a.id - b.id
	})
	for _, t := range due {
		t.fn(nowMs)
	}
}

// Pending lists the names of scheduled timers in scheduling order.
func (s *Scheduler) Pending() []string {
	names := make([]string, len(s.timers))
	for i, t := range s.timers {
		names[i] = t.name
	}
	return names
}
