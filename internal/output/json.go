package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mrzor/tasktree/internal/tasktree"
)

// jsonTree is the document written by JSONFormatter.
type jsonTree struct {
	// Origin is the trace timestamp (µs) that all times are relative to.
	Origin          float64            `json:"origin"`
	Unit            string             `json:"unit"`
	TaskCount       int                `json:"taskCount"`
	SelfTimeByGroup map[string]float64 `json:"selfTimeByGroup"`
	Tasks           []*jsonTask        `json:"tasks"`
}

type jsonTask struct {
	Name             string      `json:"name"`
	Group            string      `json:"group"`
	StartTime        float64     `json:"startTime"`
	EndTime          float64     `json:"endTime"`
	Duration         float64     `json:"duration"`
	SelfTime         float64     `json:"selfTime"`
	AttributableURLs []string    `json:"attributableURLs"`
	Unterminated     bool        `json:"unterminated,omitempty"`
	Children         []*jsonTask `json:"children"`
}

func newJSONTask(task *tasktree.Node) *jsonTask {
	urls := task.AttributableURLs
	if urls == nil {
		urls = []string{}
	}
	out := &jsonTask{
		Name:             task.Name(),
		Group:            task.Group.ID,
		StartTime:        task.StartTime,
		EndTime:          task.EndTime,
		Duration:         task.Duration,
		SelfTime:         task.SelfTime,
		AttributableURLs: urls,
		Unterminated:     task.Unterminated,
		Children:         make([]*jsonTask, 0, len(task.Children)),
	}
	for _, child := range task.Children {
		out.Children = append(out.Children, newJSONTask(child))
	}
	return out
}

// JSONFormatter writes the tree as one indented JSON document.
type JSONFormatter struct {
	w io.Writer
}

// NewJSONFormatter creates a JSONFormatter.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{w: w}
}

// Format writes tree.
func (f *JSONFormatter) Format(tree *tasktree.Tree) error {
	if err := normalized(tree); err != nil {
		return err
	}

	doc := jsonTree{
		Origin:          tree.Origin,
		Unit:            tree.Unit.String(),
		TaskCount:       len(tree.Tasks),
		SelfTimeByGroup: tree.SelfTimeByGroup(),
		Tasks:           make([]*jsonTask, 0, len(tree.Roots)),
	}
	for _, root := range tree.Roots {
		doc.Tasks = append(doc.Tasks, newJSONTask(root))
	}

	enc := json.NewEncoder(f.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
