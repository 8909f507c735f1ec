package tasktree

import (
	"github.com/mrzor/tasktree/internal/taskgroups"
	"github.com/mrzor/tasktree/internal/traceevent"
)

// computeSelfTime sets SelfTime on task and its descendants and returns task's duration.
func computeSelfTime(task, parent *Node) (float64, error) {
	if parent != nil && task.EndTime > parent.EndTime {
		return 0, containmentError(task, parent)
	}

	var childTime float64
	for _, child := range task.Children {
		d, err := computeSelfTime(child, task)
		if err != nil {
			return 0, err
		}
		childTime += d
	}
	task.SelfTime = task.Duration - childTime
	return task.Duration, nil
}

// eventKind selects how a task contributes attributable URLs.
type eventKind int

const (
	kindGeneric eventKind = iota
	// kindScript events name their script in args.data.url.
	kindScript
	// kindModuleCompile events name their module in args.fileName.
	kindModuleCompile
	// kindTimerFire events inherit the URLs of the task that installed the timer.
	kindTimerFire
)

func kindOf(name string) eventKind {
	switch name {
	case traceevent.NameV8Compile, traceevent.NameEvaluateScript, traceevent.NameFunctionCall:
		return kindScript
	case traceevent.NameV8CompileModule:
		return kindModuleCompile
	case traceevent.NameTimerFire:
		return kindTimerFire
	default:
		return kindGeneric
	}
}

// ownURLs returns the URLs task adds on top of its parent's chain, highest
// precedence first. Empty entries are kept; the caller skips them.
func ownURLs(task *Node, timers timerRegistry) []string {
	stack := task.Event.StackURLs()

	switch kindOf(task.Event.Name) {
	case kindScript:
		return append([]string{task.Event.DataURL()}, stack...)
	case kindModuleCompile:
		return append([]string{task.Event.FileName()}, stack...)
	case kindTimerFire:
		id, ok := task.Event.TimerID()
		if !ok {
			return stack
		}
		installer := timers[id]
		if installer == nil {
			return stack
		}
		urls := make([]string, 0, len(installer.AttributableURLs)+len(stack))
		urls = append(urls, installer.AttributableURLs...)
		return append(urls, stack...)
	default:
		return stack
	}
}

// computeAttributableURLs extends parentURLs with task's own URLs, collapsing
// consecutive duplicates, and recurses into the children.
func computeAttributableURLs(task *Node, parentURLs []string, timers timerRegistry) {
	own := ownURLs(task, timers)

	urls := make([]string, len(parentURLs), len(parentURLs)+len(own))
	copy(urls, parentURLs)
	for _, url := range own {
		if url == "" {
			continue
		}
		if len(urls) > 0 && urls[len(urls)-1] == url {
			continue
		}
		urls = append(urls, url)
	}

	task.AttributableURLs = urls
	for _, child := range task.Children {
		computeAttributableURLs(child, urls, timers)
	}
}

// computeGroup classifies task by its own event name, falling back to the
// parent's group and, for roots, the table default.
func computeGroup(task *Node, parent *Node, groups GroupLookup) {
	if g, ok := groups.GroupFor(task.Event.Name); ok {
		task.Group = g
	} else if parent != nil {
		task.Group = parent.Group
	} else {
		task.Group = groups.Default()
	}

	for _, child := range task.Children {
		computeGroup(child, task, groups)
	}
}

// GroupLookup is the injected event name -> group table.
type GroupLookup interface {
	GroupFor(name string) (taskgroups.Group, bool)
	Default() taskgroups.Group
}
