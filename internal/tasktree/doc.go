// Package tasktree reconstructs the main-thread task tree from a flat, time-ordered
// stream of trace events.
//
// Pipeline:
//
//	┌─────────────────────────────────────────┐
//	│   []traceevent.Event (sorted by ts)     │
//	└─────────────────┬───────────────────────┘
//	                  │
//	                  ▼
//	┌─────────────────────────────────────────┐
//	│   classify                              │  X/B starts, E ends, TimerInstall
//	└─────────────────┬───────────────────────┘
//	                  │
//	                  ▼
//	┌─────────────────────────────────────────┐
//	│   matchIntervals                        │  pair B with E, nested same-name
//	│   - missing E ends at trace end         │  pairs skipped
//	│   - leftover E is fatal                 │
//	└─────────────────┬───────────────────────┘
//	                  │ sort ↑start ↓duration
//	                  ▼
//	┌─────────────────────────────────────────┐
//	│   linkTasks                             │  parent/child by containment,
//	│                                         │  timer id -> installing task
//	└─────────────────┬───────────────────────┘
//	                  │ per root
//	                  ▼
//	┌─────────────────────────────────────────┐
//	│   self time, attributable URLs, group   │
//	└─────────────────┬───────────────────────┘
//	                  │
//	                  ▼
//	┌─────────────────────────────────────────┐
//	│   Normalize                             │  ms relative to first task
//	└─────────────────────────────────────────┘
//
// Any inconsistency in the input aborts the build with a *BuildError; a partial
// tree is never returned. A Builder holds no per-run state, so independent
// traces can be built concurrently.
package tasktree
