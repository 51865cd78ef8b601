package phases

import "fmt"

// DuplicatePhaseError occurs when a phase with an existing ID is registered.
type DuplicatePhaseError struct {
	ID string
}

func (e DuplicatePhaseError) Error() string {
	return fmt.Sprintf("phase with id %q already registered", e.ID)
}

// ValidationError represents invalid manager/phase configuration.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("phase validation failed: %s", e.Reason)
}

// SkipError is returned by a phase that determined it does not apply to this
// run. Skipping is not a failure and never blocks later phases.
type SkipError struct {
	Reason string
}

func (e SkipError) Error() string {
	return fmt.Sprintf("phase skipped: %s", e.Reason)
}

// ConfirmRequestError indicates a phase needs a yes/no answer from the
// operator before continuing.
type ConfirmRequestError struct {
	PhaseID string
	Key     string
	Prompt  string
}

func (e ConfirmRequestError) Error() string {
	return fmt.Sprintf("phase %s requires confirmation: %s", e.PhaseID, e.Prompt)
}

// PhaseExecutionError wraps the failure that aborted the pipeline.
type PhaseExecutionError struct {
	Phase PhaseMetadata
	Err   error
}

func (e PhaseExecutionError) Error() string {
	return fmt.Sprintf("phase %s failed: %v", e.Phase.ID, e.Err)
}

func (e PhaseExecutionError) Unwrap() error {
	return e.Err
}

// RunInProgressError reports a second Run while one is already active; the
// pipeline supports exactly one run at a time.
type RunInProgressError struct{}

func (RunInProgressError) Error() string {
	return "pipeline run already in progress"
}
