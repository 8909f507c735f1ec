package traceevent

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/tidwall/gjson"
)

// ErrMalformedTrace is returned when a trace file is not valid trace JSON.
var ErrMalformedTrace = errors.New("malformed trace")

// ErrNoMainThread is returned when no renderer main thread can be identified.
var ErrNoMainThread = errors.New("no renderer main thread found")

const mainThreadName = "CrRendererMain"

// Trace is a decoded trace file with events sorted by timestamp.
type Trace struct {
	Events []Event
}

// Decode reads a trace in the array form or the {"traceEvents": [...]} form.
// Events are stably sorted by timestamp so equal timestamps keep file order.
func Decode(r io.Reader) (*Trace, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedTrace)
	}

	root := gjson.ParseBytes(data)
	list := root
	if root.IsObject() {
		list = root.Get("traceEvents")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: expected an event array or a traceEvents field", ErrMalformedTrace)
	}

	trace := &Trace{}
	var decodeErr error
	list.ForEach(func(key, value gjson.Result) bool {
		var ev Event
		if err := json.Unmarshal([]byte(value.Raw), &ev); err != nil {
			decodeErr = fmt.Errorf("%w: event %d: %v", ErrMalformedTrace, key.Int(), err)
			return false
		}
		trace.Events = append(trace.Events, ev)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}

	sort.SliceStable(trace.Events, func(i, j int) bool {
		return trace.Events[i].TS < trace.Events[j].TS
	})
	return trace, nil
}

// End returns the latest timestamp covered by any event, including durations.
func (t *Trace) End() float64 {
	var end float64
	for i := range t.Events {
		if e := t.Events[i].TS + t.Events[i].Dur; e > end {
			end = e
		}
	}
	return end
}

// Thread returns the events recorded by one thread, in trace order.
func (t *Trace) Thread(pid, tid int) []Event {
	var events []Event
	for _, ev := range t.Events {
		if ev.PID == pid && ev.TID == tid {
			events = append(events, ev)
		}
	}
	return events
}

// MainThread returns the events of the first thread named CrRendererMain.
func (t *Trace) MainThread() (pid, tid int, events []Event, err error) {
	for i := range t.Events {
		if t.Events[i].ThreadName() == mainThreadName {
			pid, tid = t.Events[i].PID, t.Events[i].TID
			return pid, tid, t.Thread(pid, tid), nil
		}
	}
	return 0, 0, nil, ErrNoMainThread
}
