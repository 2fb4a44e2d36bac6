package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	LoadDocument Phase = iota
	SaveScheduled
	SaveStarted
	SaveFinished
	FetchDetails
)

func (p Phase) String() string {
	switch p {
	case LoadDocument:
		return "load_document"
	case SaveScheduled:
		return "save_scheduled"
	case SaveStarted:
		return "save_started"
	case SaveFinished:
		return "save_finished"
	case FetchDetails:
		return "fetch_details"
	default:
		return ""
	}
}

func loadDocumentUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadDocument,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loading %s...", path),
	}
}

func saveScheduledUpdate(cycle, callers int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveScheduled,
		Step:    callers,
		Message: fmt.Sprintf("Save #%d queued (%d change(s))", cycle, callers),
	}
}

func saveStartedUpdate(cycle, callers int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveStarted,
		Step:    callers,
		Total:   callers,
		Message: fmt.Sprintf("Saving #%d...", cycle),
	}
}

func saveFinishedUpdate(cycle, callers int, result SaveResult, err error) ProgressUpdate {
	if err != nil {
		return ProgressUpdate{
			Phase:   SaveFinished,
			Step:    callers,
			Total:   callers,
			Message: fmt.Sprintf("✗ Save #%d failed: %v", cycle, err),
			Data:    err,
		}
	}
	return ProgressUpdate{
		Phase:   SaveFinished,
		Step:    callers,
		Total:   callers,
		Message: fmt.Sprintf("✓ Save #%d committed (%s)", cycle, shortRevision(result.Revision)),
		Data:    result,
	}
}

func fetchDetailsUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchDetails,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, title),
	}
}

func shortRevision(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}
