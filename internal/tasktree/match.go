package tasktree

import (
	"fmt"

	"github.com/mrzor/tasktree/internal/traceevent"
)

// matchIntervals creates one task per start event. Complete events carry their
// own duration; begin events are paired with the end event of the same name
// that is not claimed by a nested begin of that name. A begin without an end is
// closed at traceEnd. End events left over afterwards make the input unusable.
//
// Nodes are allocated from a single backing slice.
func matchIntervals(starts, ends []*traceevent.Event, traceEnd float64) ([]*Node, error) {
	arena := make([]Node, len(starts))
	tasks := make([]*Node, len(starts))

	// Reversed so the earliest unclaimed end is at the tail.
	pool := make([]*traceevent.Event, len(ends))
	for i, ev := range ends {
		pool[len(ends)-1-i] = ev
	}

	for i, start := range starts {
		task := &arena[i]
		tasks[i] = task

		if start.Phase != traceevent.PhaseBegin {
			if err := initTaskNode(task, start, nil); err != nil {
				return nil, err
			}
			continue
		}

		matched := -1
		nested := 0
		nextStart := i + 1
		for j := len(pool) - 1; j >= 0; j-- {
			end := pool[j]
			// Same-named begins opened before this end each claim one end of their own.
			// Complete events are not counted, unlike Lighthouse: they own no end.
			for nextStart < len(starts) && starts[nextStart].TS < end.TS {
				if other := starts[nextStart]; other.Name == start.Name && other.Phase == traceevent.PhaseBegin {
					nested++
				}
				nextStart++
			}

			if end.Name != start.Name {
				continue
			}
			if end.TS < start.TS {
				continue
			}
			if nested > 0 {
				nested--
				continue
			}

			matched = j
			break
		}

		var end *traceevent.Event
		switch {
		case matched == -1:
			end = &traceevent.Event{Name: start.Name, Phase: traceevent.PhaseEnd, TS: traceEnd}
		case matched == len(pool)-1:
			end = pool[matched]
			pool = pool[:matched]
		default:
			end = pool[matched]
			pool = append(pool[:matched], pool[matched+1:]...)
		}

		if err := initTaskNode(task, start, end); err != nil {
			return nil, err
		}
		task.Unterminated = matched == -1
	}

	if len(pool) > 0 {
		first := pool[len(pool)-1]
		return nil, &BuildError{
			Err:    ErrUnmatchedEndEvents,
			Name:   first.Name,
			TS:     first.TS,
			Detail: fmt.Sprintf("%d unmatched end events", len(pool)),
		}
	}

	return tasks, nil
}
