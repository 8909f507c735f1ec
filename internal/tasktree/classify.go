package tasktree

import "github.com/mrzor/tasktree/internal/traceevent"

// classify splits events into task starts (X and B), task ends (E) and timer
// installs, keeping trace order within each. A TimerInstall is routed on its
// name alone, so a complete TimerInstall event is also a task start.
func classify(events []traceevent.Event) (starts, ends, timerInstalls []*traceevent.Event) {
	for i := range events {
		ev := &events[i]
		switch ev.Phase {
		case traceevent.PhaseComplete, traceevent.PhaseBegin:
			starts = append(starts, ev)
		case traceevent.PhaseEnd:
			ends = append(ends, ev)
		}
		if ev.Name == traceevent.NameTimerInstall {
			timerInstalls = append(timerInstalls, ev)
		}
	}
	return starts, ends, timerInstalls
}
