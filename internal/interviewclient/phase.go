package interviewclient

import "fmt"

// Phase is the client-observable stage of an attempt.
type Phase string

const (
	PhaseChecking      Phase = "checking"
	PhaseUnsupported   Phase = "unsupported"
	PhaseMobileWarning Phase = "mobile_warning"
	PhasePermissions   Phase = "permissions"
	PhaseReady         Phase = "ready"
	PhaseInitializing  Phase = "initializing"
	PhaseLocked        Phase = "locked"
	PhaseRecording     Phase = "recording"
	PhaseUploading     Phase = "uploading"
	PhaseSubmitting    Phase = "submitting"
	PhaseResults       Phase = "results"
	PhaseError         Phase = "error"
)

// transitions lists the allowed moves. Any phase may move to PhaseError.
// From error, uploading and submitting resume a stopped recording and
// permissions re-acquires hardware released by a failed start.
var transitions = map[Phase][]Phase{
	PhaseChecking:      {PhaseUnsupported, PhaseMobileWarning, PhasePermissions},
	PhaseMobileWarning: {PhasePermissions},
	PhasePermissions:   {PhaseReady},
	PhaseReady:         {PhaseInitializing},
	PhaseInitializing:  {PhaseLocked, PhaseReady, PhaseRecording},
	PhaseRecording:     {PhaseUploading, PhaseReady}, // ready after abandon
	PhaseUploading:     {PhaseSubmitting},
	PhaseSubmitting:    {PhaseResults},
	PhaseError:         {PhaseReady, PhasePermissions, PhaseUploading, PhaseSubmitting},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Phase) bool {
	if to == PhaseError {
		return from != PhaseError
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type TransitionError struct {
	From, To Phase
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid phase transition %s -> %s", e.From, e.To)
}
