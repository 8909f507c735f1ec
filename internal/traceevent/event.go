package traceevent

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Phase is the trace event phase tag.
type Phase string

// Phases the task tree builder understands. Other phases pass through untouched.
const (
	PhaseComplete Phase = "X"
	PhaseBegin    Phase = "B"
	PhaseEnd      Phase = "E"
	PhaseInstant  Phase = "I"
	PhaseMetadata Phase = "M"
)

// Event names with special meaning to the builder.
const (
	NameTimerInstall    = "TimerInstall"
	NameTimerFire       = "TimerFire"
	NameEvaluateScript  = "EvaluateScript"
	NameFunctionCall    = "FunctionCall"
	NameV8Compile       = "v8.compile"
	NameV8CompileModule = "v8.compileModule"
	NameThreadName      = "thread_name"
)

// Event is a single raw trace event. Timestamps and durations are in microseconds.
type Event struct {
	Name  string          `json:"name"`
	Cat   string          `json:"cat,omitempty"`
	Phase Phase           `json:"ph"`
	TS    float64         `json:"ts"`
	Dur   float64         `json:"dur,omitempty"`
	PID   int             `json:"pid"`
	TID   int             `json:"tid"`
	Args  json.RawMessage `json:"args,omitempty"`
}

func (e *Event) arg(path string) gjson.Result {
	if len(e.Args) == 0 {
		return gjson.Result{}
	}
	return gjson.GetBytes(e.Args, path)
}

// StackURLs returns the URLs of the call-stack snippet in args.data.stackTrace.
// Frames without a URL yield an empty string so positions line up with frames.
func (e *Event) StackURLs() []string {
	frames := e.arg("data.stackTrace")
	if !frames.IsArray() {
		return nil
	}
	var urls []string
	frames.ForEach(func(_, frame gjson.Result) bool {
		urls = append(urls, frame.Get("url").String())
		return true
	})
	return urls
}

// DataURL returns args.data.url, or "" when absent.
func (e *Event) DataURL() string {
	return e.arg("data.url").String()
}

// FileName returns args.fileName, or "" when absent.
func (e *Event) FileName() string {
	return e.arg("fileName").String()
}

// TimerID returns args.data.timerId rendered as a string. Chromium emits it as a
// number; older traces use strings. Both map to the same key.
func (e *Event) TimerID() (string, bool) {
	id := e.arg("data.timerId")
	if !id.Exists() {
		return "", false
	}
	return id.String(), true
}

// ThreadName returns args.name for thread_name metadata events.
func (e *Event) ThreadName() string {
	if e.Phase != PhaseMetadata || e.Name != NameThreadName {
		return ""
	}
	return e.arg("name").String()
}
