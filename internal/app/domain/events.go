package domain

// RunEventKind tags events flowing from a run to its observer.
type RunEventKind int

const (
	// RunEventMessage carries one progress line.
	RunEventMessage RunEventKind = iota
	// RunEventDone carries the final summary (or fatal message).
	RunEventDone
	// RunEventEnd marks the end of the event stream.
	RunEventEnd
)

// RunEvent is one item on a run's event queue.
type RunEvent struct {
	Kind    RunEventKind
	Message string
	Summary *RunSummary
}
