package tasktree

import (
	"fmt"
	"math"

	"github.com/mrzor/tasktree/internal/taskgroups"
	"github.com/mrzor/tasktree/internal/traceevent"
)

// Node is one reconstructed unit of main-thread work.
//
// Times are in the trace's microseconds until the tree is normalized, and in
// milliseconds relative to the first task afterwards.
type Node struct {
	// Event is the complete event or the begin event of a B/E pair.
	Event *traceevent.Event

	StartTime float64
	EndTime   float64
	Duration  float64
	// SelfTime is Duration minus the Duration of every child.
	SelfTime float64

	Parent   *Node
	Children []*Node

	// AttributableURLs is the chain of script URLs responsible for this task,
	// inherited from the parent and extended by this task's own event.
	AttributableURLs []string
	Group            taskgroups.Group

	// Unterminated is set when no end event was found and the task was closed at trace end.
	Unterminated bool
}

// Name returns the name of the originating event.
func (n *Node) Name() string {
	return n.Event.Name
}

// Depth returns the number of ancestors.
func (n *Node) Depth() int {
	depth := 0
	for p := n.Parent; p != nil; p = p.Parent {
		depth++
	}
	return depth
}

// initTaskNode fills n from a complete event (end == nil) or a B/E pair.
func initTaskNode(n *Node, start, end *traceevent.Event) error {
	isComplete := start.Phase == traceevent.PhaseComplete && end == nil
	isBeginEndPair := start.Phase == traceevent.PhaseBegin && end != nil && end.Phase == traceevent.PhaseEnd
	if !isComplete && !isBeginEndPair {
		return &BuildError{Err: ErrInvalidTaskRequest, Name: start.Name, TS: start.TS}
	}

	endTime := start.TS + start.Dur
	if end != nil {
		endTime = end.TS
	}
	if !(endTime >= start.TS) {
		return &BuildError{
			Err:    ErrInvalidTiming,
			Name:   start.Name,
			TS:     start.TS,
			Detail: fmt.Sprintf("ends at %v, before it starts", endTime),
		}
	}

	*n = Node{
		Event:     start,
		StartTime: start.TS,
		EndTime:   endTime,
		Duration:  endTime - start.TS,
		SelfTime:  math.NaN(),
	}
	return nil
}
