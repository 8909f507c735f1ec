package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/mrzor/tasktree/internal/tasktree"
	"github.com/mrzor/tasktree/internal/traceevent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleTree has a script task with a nested call and an unterminated layout.
// Times in ms relative to origin 1000µs: EvaluateScript [0, 10], FunctionCall
// [1, 5], Layout [19, 29].
func sampleTree(t *testing.T) *tasktree.Tree {
	t.Helper()

	events := []traceevent.Event{
		{
			Name:  traceevent.NameEvaluateScript,
			Cat:   "devtools.timeline",
			Phase: traceevent.PhaseComplete,
			TS:    1_000,
			Dur:   10_000,
			Args:  json.RawMessage(`{"data":{"url":"https://example.com/app.js"}}`),
		},
		{
			Name:  traceevent.NameFunctionCall,
			Cat:   "devtools.timeline",
			Phase: traceevent.PhaseComplete,
			TS:    2_000,
			Dur:   4_000,
			Args:  json.RawMessage(`{"data":{"url":"https://example.com/lib.js"}}`),
		},
		{Name: "Layout", Phase: traceevent.PhaseBegin, TS: 20_000},
	}

	tree, err := tasktree.NewBuilder(nil).Build(events, 30_000)
	require.NoError(t, err)
	return tree
}

func disableColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestTextFormatter(t *testing.T) {
	disableColor(t)

	var buf bytes.Buffer
	require.NoError(t, NewTextFormatter(&buf, 0).Format(sampleTree(t)))

	want := strings.Join([]string{
		"Task tree: 3 tasks, 2 top-level",
		"     0.000  EvaluateScript [scriptEvaluation] 10.000 ms (self 6.000 ms)  https://example.com/app.js",
		"     1.000    FunctionCall [scriptEvaluation] 4.000 ms (self 4.000 ms)  https://example.com/lib.js",
		"    19.000  Layout [styleLayout] 10.000 ms (self 10.000 ms) (unterminated)",
		"",
		"Self time by group:",
		fmt.Sprintf("  %-22s %10.3f ms", "scriptEvaluation", 10.0),
		fmt.Sprintf("  %-22s %10.3f ms", "styleLayout", 10.0),
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestTextFormatter_MinDuration(t *testing.T) {
	disableColor(t)

	var buf bytes.Buffer
	require.NoError(t, NewTextFormatter(&buf, 5).Format(sampleTree(t)))

	out := buf.String()
	assert.Contains(t, out, "EvaluateScript")
	assert.NotContains(t, out, "FunctionCall")
	assert.Contains(t, out, "1 subtrees shorter than 5 ms hidden")
	// Hidden tasks still count towards the summary
	assert.Contains(t, out, fmt.Sprintf("  %-22s %10.3f ms", "scriptEvaluation", 10.0))
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(&buf).Format(sampleTree(t)))

	var doc jsonTree
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, 1000.0, doc.Origin)
	assert.Equal(t, "ms", doc.Unit)
	assert.Equal(t, 3, doc.TaskCount)
	assert.Equal(t, map[string]float64{"scriptEvaluation": 10, "styleLayout": 10}, doc.SelfTimeByGroup)
	require.Len(t, doc.Tasks, 2)

	script := doc.Tasks[0]
	assert.Equal(t, "EvaluateScript", script.Name)
	assert.Equal(t, "scriptEvaluation", script.Group)
	assert.Equal(t, []string{"https://example.com/app.js"}, script.AttributableURLs)
	assert.False(t, script.Unterminated)
	require.Len(t, script.Children, 1)
	assert.Equal(t, []string{"https://example.com/app.js", "https://example.com/lib.js"}, script.Children[0].AttributableURLs)
	assert.Empty(t, script.Children[0].Children)

	layout := doc.Tasks[1]
	assert.True(t, layout.Unterminated)
	assert.Equal(t, []string{}, layout.AttributableURLs)
	assert.InDelta(t, 29, layout.EndTime, 1e-9)
}

func TestJSONFormatter_FieldNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(&buf).Format(sampleTree(t)))

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	task := raw["tasks"].([]interface{})[0].(map[string]interface{})
	for _, key := range []string{"name", "group", "startTime", "endTime", "duration", "selfTime", "attributableURLs", "children"} {
		assert.Contains(t, task, key)
	}
	assert.NotContains(t, task, "unterminated", "omitted when false")
}

func TestFormatters_NormalizeRawTrees(t *testing.T) {
	tree := sampleTree(t)
	// Undo normalization to simulate a tree still in trace microseconds
	for _, task := range tree.Tasks {
		task.StartTime = task.StartTime*1000 + tree.Origin
		task.EndTime = task.EndTime*1000 + tree.Origin
		task.Duration *= 1000
		task.SelfTime *= 1000
	}
	tree.Origin = 0
	tree.Unit = tasktree.UnitMicroseconds

	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(&buf).Format(tree))
	assert.Equal(t, tasktree.UnitMilliseconds, tree.Unit)
	assert.Equal(t, 1000.0, tree.Origin)
	assert.InDelta(t, 10, tree.Roots[0].Duration, 1e-9)
}
