package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/mrzor/tasktree/internal/tasktree"
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

// TextFormatter prints an indented task tree followed by self time per group.
type TextFormatter struct {
	w           io.Writer
	minDuration float64
}

// NewTextFormatter creates a TextFormatter. Tasks shorter than minDuration
// milliseconds are hidden together with their subtrees.
func NewTextFormatter(w io.Writer, minDuration float64) *TextFormatter {
	return &TextFormatter{w: w, minDuration: minDuration}
}

// Format writes tree.
func (f *TextFormatter) Format(tree *tasktree.Tree) error {
	if err := normalized(tree); err != nil {
		return err
	}

	ew := &errWriter{w: f.w}
	ew.printf("%s %d tasks, %d top-level\n", bold("Task tree:"), len(tree.Tasks), len(tree.Roots))

	hidden := 0
	tree.Walk(func(task *tasktree.Node) bool {
		if task.Duration < f.minDuration {
			hidden++
			return false
		}
		f.writeTask(ew, task)
		return true
	})
	if hidden > 0 {
		ew.printf("%s\n", dim(formatHidden(hidden, f.minDuration)))
	}

	ew.printf("\n%s\n", bold("Self time by group:"))
	for _, total := range sortedGroupTotals(tree.SelfTimeByGroup()) {
		ew.printf("  %-22s %10.3f ms\n", total.id, total.selfTime)
	}
	return ew.err
}

func (f *TextFormatter) writeTask(ew *errWriter, task *tasktree.Node) {
	indent := strings.Repeat("  ", task.Depth())

	var suffix string
	if task.Unterminated {
		suffix += " " + yellow("(unterminated)")
	}
	if url := lastURL(task); url != "" {
		suffix += "  " + dim(url)
	}

	ew.printf("%10.3f  %s%s %s %.3f ms (self %.3f ms)%s\n",
		task.StartTime, indent, bold(task.Name()), cyan("["+task.Group.ID+"]"),
		task.Duration, task.SelfTime, suffix)
}

func formatHidden(n int, minDuration float64) string {
	return fmt.Sprintf("%d subtrees shorter than %g ms hidden", n, minDuration)
}

type groupTotal struct {
	id       string
	selfTime float64
}

// sortedGroupTotals orders groups by decreasing self time, then by id.
func sortedGroupTotals(totals map[string]float64) []groupTotal {
	out := make([]groupTotal, 0, len(totals))
	for id, selfTime := range totals {
		out = append(out, groupTotal{id: id, selfTime: selfTime})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].selfTime != out[j].selfTime {
			return out[i].selfTime > out[j].selfTime
		}
		return out[i].id < out[j].id
	})
	return out
}
