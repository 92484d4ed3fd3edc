// package tasks implements the catalog resolution, reconciliation, playlist
// synchronization and cover persistence workflows.
package tasks

// Phase identifies a stage of a long-running workflow for progress reporting.
type Phase string

const (
	PhaseResolve Phase = "resolve"
	PhasePush    Phase = "push"
	PhaseReorder Phase = "reorder"
	PhaseCover   Phase = "cover"
)

// ProgressUpdate reports workflow progress over an optional channel.
type ProgressUpdate struct {
	Phase   Phase
	Current int
	Total   int
	Message string
}

// NewProgressUpdate creates a progress update for the given phase.
func NewProgressUpdate(phase Phase, current, total int, message string) ProgressUpdate {
	return ProgressUpdate{Phase: phase, Current: current, Total: total, Message: message}
}

// sendProgress delivers an update without blocking. Updates are advisory and
// dropped when the receiver is not keeping up.
func sendProgress(ch chan<- ProgressUpdate, update ProgressUpdate) {
	if ch == nil {
		return
	}
	select {
	case ch <- update:
	default:
	}
}
