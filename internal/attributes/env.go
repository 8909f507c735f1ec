package attributes

import (
	"github.com/mrzor/tasktree/internal/tasktree"
	"github.com/tidwall/gjson"
)

// TraceInfo describes the trace being exported. Trace and parent ID
// expressions are evaluated against it once per export.
type TraceInfo struct {
	Path    string
	PID     int
	TID     int
	Environ map[string]string
}

// traceEnvPrototype defines the environment for trace-level expression type checking.
var traceEnvPrototype = map[string]interface{}{
	"env":  map[string]string{},
	"file": "",
	"pid":  0,
	"tid":  0,
}

func traceEnv(info *TraceInfo) map[string]interface{} {
	environ := info.Environ
	if environ == nil {
		environ = map[string]string{}
	}
	return map[string]interface{}{
		"env":  environ,
		"file": info.Path,
		"pid":  info.PID,
		"tid":  info.TID,
	}
}

// taskEnvPrototype defines the environment for per-task expression type checking.
var taskEnvPrototype = map[string]interface{}{
	"name":         "",
	"cat":          "",
	"group":        "",
	"start":        0.0,
	"end":          0.0,
	"duration":     0.0,
	"self_time":    0.0,
	"urls":         []string{},
	"depth":        0,
	"unterminated": false,
	"args":         map[string]interface{}{},
}

// taskEnv exposes one task to custom attribute expressions. Times are in the
// tree's unit; args is the decoded event payload.
func taskEnv(task *tasktree.Node) map[string]interface{} {
	args, ok := gjson.ParseBytes(task.Event.Args).Value().(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}
	urls := task.AttributableURLs
	if urls == nil {
		urls = []string{}
	}

	return map[string]interface{}{
		"name":         task.Event.Name,
		"cat":          task.Event.Cat,
		"group":        task.Group.ID,
		"start":        task.StartTime,
		"end":          task.EndTime,
		"duration":     task.Duration,
		"self_time":    task.SelfTime,
		"urls":         urls,
		"depth":        task.Depth(),
		"unterminated": task.Unterminated,
		"args":         args,
	}
}
