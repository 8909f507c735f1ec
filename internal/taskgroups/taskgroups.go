// Package taskgroups maps trace event names to coarse task groups.
//
// The table is injected into the task tree builder. DefaultTable carries the
// Chromium mapping; LoadTable reads a replacement from YAML.
package taskgroups

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Group is a coarse classification of main-thread work.
type Group struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// Standard group IDs.
const (
	ParseHTML            = "parseHTML"
	StyleLayout          = "styleLayout"
	PaintCompositeRender = "paintCompositeRender"
	ScriptParseCompile   = "scriptParseCompile"
	ScriptEvaluation     = "scriptEvaluation"
	GarbageCollection    = "garbageCollection"
	Other                = "other"
)

// ErrInvalidTable is returned for tables that cannot serve lookups.
var ErrInvalidTable = errors.New("invalid task group table")

// Table is an event name -> group lookup with a catch-all default.
type Table struct {
	groups   map[string]Group
	byName   map[string]string
	fallback string
}

// GroupFor returns the explicit group for an event name.
func (t *Table) GroupFor(name string) (Group, bool) {
	id, ok := t.byName[name]
	if !ok {
		return Group{}, false
	}
	return t.groups[id], true
}

// Default returns the catch-all group.
func (t *Table) Default() Group {
	return t.groups[t.fallback]
}

// Group returns a group by ID.
func (t *Table) Group(id string) (Group, bool) {
	g, ok := t.groups[id]
	return g, ok
}

// Len returns the number of groups in the table.
func (t *Table) Len() int {
	return len(t.groups)
}

type groupSpec struct {
	Group  `yaml:",inline"`
	Events []string `yaml:"events"`
}

type tableFile struct {
	Default string      `yaml:"default"`
	Groups  []groupSpec `yaml:"groups"`
}

// newTable builds a table from group definitions. defaultID must name one of them.
func newTable(defaultID string, specs []groupSpec) (*Table, error) {
	t := &Table{
		groups:   make(map[string]Group, len(specs)),
		byName:   make(map[string]string),
		fallback: defaultID,
	}
	for _, spec := range specs {
		if spec.ID == "" {
			return nil, fmt.Errorf("%w: group without id", ErrInvalidTable)
		}
		if _, dup := t.groups[spec.ID]; dup {
			return nil, fmt.Errorf("%w: group %q defined twice", ErrInvalidTable, spec.ID)
		}
		if spec.Label == "" {
			spec.Label = spec.ID
		}
		t.groups[spec.ID] = spec.Group
		for _, name := range spec.Events {
			if prev, dup := t.byName[name]; dup {
				return nil, fmt.Errorf("%w: event %q mapped to both %q and %q", ErrInvalidTable, name, prev, spec.ID)
			}
			t.byName[name] = spec.ID
		}
	}
	if _, ok := t.groups[defaultID]; !ok {
		return nil, fmt.Errorf("%w: default group %q is not defined", ErrInvalidTable, defaultID)
	}
	return t, nil
}

// LoadTable reads a YAML table:
//
//	default: other
//	groups:
//	  - id: scriptEvaluation
//	    label: Script Evaluation
//	    events: [EvaluateScript, FunctionCall]
//	  - id: other
//	    label: Other
func LoadTable(r io.Reader) (*Table, error) {
	var file tableFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding task group table: %w", err)
	}
	if file.Default == "" {
		file.Default = Other
	}
	return newTable(file.Default, file.Groups)
}

// DefaultTable returns the Chromium main-thread grouping.
func DefaultTable() *Table {
	t, err := newTable(Other, defaultSpecs)
	if err != nil {
		panic(err)
	}
	return t
}

var defaultSpecs = []groupSpec{
	{
		Group: Group{ID: ParseHTML, Label: "Parse HTML & CSS"},
		Events: []string{
			"ParseHTML",
			"ParseAuthorStyleSheet",
		},
	},
	{
		Group: Group{ID: StyleLayout, Label: "Style & Layout"},
		Events: []string{
			"ScheduleStyleRecalculation",
			"UpdateLayoutTree",
			"InvalidateLayout",
			"Layout",
		},
	},
	{
		Group: Group{ID: PaintCompositeRender, Label: "Rendering"},
		Events: []string{
			"Animation",
			"RequestMainThreadFrame",
			"ActivateLayerTree",
			"DrawFrame",
			"HitTest",
			"PaintSetup",
			"Paint",
			"PaintImage",
			"Rasterize",
			"RasterTask",
			"ScrollLayer",
			"UpdateLayer",
			"UpdateLayerTree",
			"CompositeLayers",
		},
	},
	{
		Group: Group{ID: ScriptParseCompile, Label: "Script Parsing & Compilation"},
		Events: []string{
			"v8.compile",
			"v8.compileModule",
			"v8.parseOnBackground",
		},
	},
	{
		Group: Group{ID: ScriptEvaluation, Label: "Script Evaluation"},
		Events: []string{
			"EventDispatch",
			"EvaluateScript",
			"v8.evaluateModule",
			"FunctionCall",
			"TimerFire",
			"FireIdleCallback",
			"FireAnimationFrame",
			"RunMicrotasks",
			"V8.Execute",
		},
	},
	{
		Group: Group{ID: GarbageCollection, Label: "Garbage Collection"},
		Events: []string{
			"GCEvent",
			"MinorGC",
			"MajorGC",
			"ThreadState::performIdleLazySweep",
			"ThreadState::completeSweep",
			"BlinkGCMarking",
		},
	},
	{
		Group: Group{ID: Other, Label: "Other"},
		Events: []string{
			"MessageLoop::RunTask",
			"TaskQueueManager::ProcessTaskFromWorkQueue",
			"ThreadControllerImpl::DoWork",
		},
	},
}
