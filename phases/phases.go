// Package phases drives the installation pipeline: a fixed, ordered
// sequence of named phases executed against a shared run context, with
// rollback of registered resources on fatal failure and temp cleanup on
// success.
package phases

import (
	"context"
	"time"

	"github.com/lunatools/luna-setup/utils/ledger"
)

// Phase represents a single unit of work in the setup pipeline.
type Phase interface {
	Metadata() PhaseMetadata
	Run(ctx context.Context, rc *RunContext) error
}

// PhaseMetadata contains identity and policy for a phase.
type PhaseMetadata struct {
	ID          string
	Title       string
	Description string
	// Required phases abort the run (and trigger rollback) on failure;
	// optional ones only warn.
	Required bool
	Tags     []string
}

// Status classifies the outcome of one phase execution.
type Status int

const (
	StatusSuccess Status = iota
	StatusSoftFailure
	StatusFatalFailure
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSoftFailure:
		return "soft failure"
	case StatusFatalFailure:
		return "fatal failure"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// PhaseResult is the recorded outcome of one phase execution.
type PhaseResult struct {
	Phase    PhaseMetadata
	Status   Status
	Detail   string
	Warnings []string
	Errors   []string
	Duration time.Duration
}

// Observer receives lifecycle events for rendering or logging. The pipeline
// never blocks on observers.
type Observer interface {
	PhaseStarted(meta PhaseMetadata)
	PhaseFinished(result PhaseResult)
	RetryAttempted(attempt int, err error)
	RollbackFinished(report ledger.Report)
}

// Observers bundles optional callbacks into an Observer.
type Observers struct {
	OnPhaseStarted     func(meta PhaseMetadata)
	OnPhaseFinished    func(result PhaseResult)
	OnRetryAttempted   func(attempt int, err error)
	OnRollbackFinished func(report ledger.Report)
}

func (o Observers) PhaseStarted(meta PhaseMetadata) {
	if o.OnPhaseStarted != nil {
		o.OnPhaseStarted(meta)
	}
}

func (o Observers) PhaseFinished(result PhaseResult) {
	if o.OnPhaseFinished != nil {
		o.OnPhaseFinished(result)
	}
}

func (o Observers) RetryAttempted(attempt int, err error) {
	if o.OnRetryAttempted != nil {
		o.OnRetryAttempted(attempt, err)
	}
}

func (o Observers) RollbackFinished(report ledger.Report) {
	if o.OnRollbackFinished != nil {
		o.OnRollbackFinished(report)
	}
}

// ConfirmHandler resolves ConfirmRequestError instances by asking the
// operator (or a test double) a yes/no question.
type ConfirmHandler interface {
	Confirm(meta PhaseMetadata, prompt string) (bool, error)
}

// ConfirmHandlerFunc adapts a function into a ConfirmHandler.
type ConfirmHandlerFunc func(meta PhaseMetadata, prompt string) (bool, error)

// Confirm implements ConfirmHandler.
func (f ConfirmHandlerFunc) Confirm(meta PhaseMetadata, prompt string) (bool, error) {
	return f(meta, prompt)
}
