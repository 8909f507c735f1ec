package tasktree

import (
	"fmt"
	"math"

	"github.com/mrzor/tasktree/internal/taskgroups"
	"github.com/mrzor/tasktree/internal/traceevent"
)

// Unit is the time unit of a tree's numeric fields.
type Unit int

const (
	// UnitMicroseconds is the trace's native clock.
	UnitMicroseconds Unit = iota
	// UnitMilliseconds is the reporting unit, relative to Tree.Origin.
	UnitMilliseconds
)

func (u Unit) micros() float64 {
	if u == UnitMilliseconds {
		return 1000
	}
	return 1
}

func (u Unit) String() string {
	if u == UnitMilliseconds {
		return "ms"
	}
	return "µs"
}

// Tree is the result of one build.
type Tree struct {
	// Roots are the top-level tasks in start order.
	Roots []*Node
	// Tasks is every task, sorted by increasing start time and decreasing duration.
	Tasks []*Node
	// Origin is the trace timestamp (µs) that normalized times are relative to.
	Origin float64
	Unit   Unit
}

// Builder builds task trees against an injected group table.
type Builder struct {
	groups GroupLookup
}

// NewBuilder creates a Builder. A nil table selects taskgroups.DefaultTable.
func NewBuilder(groups GroupLookup) *Builder {
	if groups == nil {
		groups = taskgroups.DefaultTable()
	}
	return &Builder{groups: groups}
}

// Build reconstructs the task tree of one thread. events must be sorted by
// timestamp; traceEnd closes begin events that never ended. Events are
// borrowed: nodes point into the slice.
func (b *Builder) Build(events []traceevent.Event, traceEnd float64) (*Tree, error) {
	starts, ends, timerInstalls := classify(events)

	tasks, err := matchIntervals(starts, ends, traceEnd)
	if err != nil {
		return nil, err
	}

	sortTasks(tasks)

	timers := make(timerRegistry)
	if err := linkTasks(tasks, timerInstalls, timers); err != nil {
		return nil, err
	}

	tree := &Tree{Tasks: tasks, Unit: UnitMicroseconds}
	for _, task := range tasks {
		if task.Parent != nil {
			continue
		}
		tree.Roots = append(tree.Roots, task)

		if _, err := computeSelfTime(task, nil); err != nil {
			return nil, err
		}
		computeAttributableURLs(task, nil, timers)
		computeGroup(task, nil, b.groups)
	}

	if err := tree.Normalize(); err != nil {
		return nil, err
	}
	return tree, nil
}

// Normalize rebases every task onto the earliest root start and converts to
// milliseconds. On a normalized tree the origin is zero and the scale is one,
// so calling it again changes nothing.
func (t *Tree) Normalize() error {
	origin := math.Inf(1)
	for _, root := range t.Roots {
		origin = math.Min(origin, root.StartTime)
	}
	if len(t.Roots) == 0 {
		origin = 0
	}
	divisor := UnitMilliseconds.micros() / t.Unit.micros()

	for _, task := range t.Tasks {
		task.StartTime = (task.StartTime - origin) / divisor
		task.EndTime = (task.EndTime - origin) / divisor
		task.Duration /= divisor
		task.SelfTime /= divisor

		if !isFinite(task.SelfTime) {
			return &BuildError{
				Err:    ErrInvalidTiming,
				Name:   task.Event.Name,
				TS:     task.Event.TS,
				Detail: fmt.Sprintf("self time %v", task.SelfTime),
			}
		}
	}

	t.Origin += origin * t.Unit.micros()
	t.Unit = UnitMilliseconds
	return nil
}

// TraceTime converts a time in the tree's unit back to an absolute trace
// timestamp in microseconds.
func (t *Tree) TraceTime(v float64) float64 {
	return t.Origin + v*t.Unit.micros()
}

// Walk visits every task depth-first in pre-order. Returning false from fn
// skips the task's children.
func (t *Tree) Walk(fn func(n *Node) bool) {
	for _, root := range t.Roots {
		walk(root, fn)
	}
}

func walk(n *Node, fn func(n *Node) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		walk(child, fn)
	}
}

// SelfTimeByGroup sums self time per group ID.
func (t *Tree) SelfTimeByGroup() map[string]float64 {
	totals := make(map[string]float64)
	for _, task := range t.Tasks {
		totals[task.Group.ID] += task.SelfTime
	}
	return totals
}

// Unterminated returns the tasks that were closed at trace end.
func (t *Tree) Unterminated() []*Node {
	var tasks []*Node
	for _, task := range t.Tasks {
		if task.Unterminated {
			tasks = append(tasks, task)
		}
	}
	return tasks
}
