package output

import (
	"fmt"
	"io"

	"github.com/mrzor/tasktree/internal/tasktree"
)

// Formatter renders a built task tree.
type Formatter interface {
	Format(tree *tasktree.Tree) error
}

// normalized makes sure times are in milliseconds relative to tree.Origin.
// Normalize is idempotent, so trees straight from a Builder are untouched.
func normalized(tree *tasktree.Tree) error {
	if tree.Unit == tasktree.UnitMilliseconds {
		return nil
	}
	if err := tree.Normalize(); err != nil {
		return fmt.Errorf("failed to normalize tree: %w", err)
	}
	return nil
}

// lastURL returns the most specific attributable URL of task, or "".
func lastURL(task *tasktree.Node) string {
	if len(task.AttributableURLs) == 0 {
		return ""
	}
	return task.AttributableURLs[len(task.AttributableURLs)-1]
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
