package tasktree

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/mrzor/tasktree/internal/traceevent"
)

// timerRegistry maps a timer id to the task that was running when it was installed.
type timerRegistry map[string]*Node

// timerQueue holds TimerInstall events not yet assigned, earliest at the tail.
type timerQueue struct {
	events []*traceevent.Event
}

func newTimerQueue(installs []*traceevent.Event) *timerQueue {
	q := &timerQueue{events: make([]*traceevent.Event, len(installs))}
	for i, ev := range installs {
		q.events[len(installs)-1-i] = ev
	}
	return q
}

// assign points every timer installed while current was the innermost running
// task, up to nextStart, at current. Installs earlier than current are dropped.
func (q *timerQueue) assign(current *Node, nextStart float64, timers timerRegistry) {
	limit := math.Min(nextStart, current.EndTime)
	for len(q.events) > 0 {
		ev := q.events[len(q.events)-1]
		if ev.TS > limit {
			return
		}
		q.events = q.events[:len(q.events)-1]

		if ev.TS < current.StartTime {
			continue
		}
		if id, ok := ev.TimerID(); ok {
			timers[id] = current
		}
	}
}

// sortTasks orders tasks by increasing start time, then decreasing duration so
// an enclosing task comes before a child that starts at the same time.
func sortTasks(tasks []*Node) {
	slices.SortStableFunc(tasks, func(a, b *Node) int {
		if c := cmp.Compare(a.StartTime, b.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(b.Duration, a.Duration)
	})
}

// linkTasks assigns parents and children to sorted tasks. current is the
// innermost task still open; tasks that ended before the next start are closed
// by walking up through their parents.
func linkTasks(sorted []*Node, timerInstalls []*traceevent.Event, timers timerRegistry) error {
	queue := newTimerQueue(timerInstalls)

	var current *Node
	for _, next := range sorted {
		for current != nil && isFinite(current.EndTime) && current.EndTime <= next.StartTime {
			queue.assign(current, next.StartTime, timers)
			current = current.Parent
		}

		if current != nil {
			if next.EndTime > current.EndTime {
				return containmentError(next, current)
			}
			next.Parent = current
			current.Children = append(current.Children, next)
			queue.assign(current, next.StartTime, timers)
		}

		current = next
	}

	if current != nil {
		queue.assign(current, math.Inf(1), timers)
	}
	return nil
}

func containmentError(child, parent *Node) error {
	return &BuildError{
		Err:  ErrChildEndsAfterParent,
		Name: child.Event.Name,
		TS:   child.StartTime,
		Detail: fmt.Sprintf("ends at %v, parent %q [%v, %v]",
			child.EndTime, parent.Event.Name, parent.StartTime, parent.EndTime),
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
