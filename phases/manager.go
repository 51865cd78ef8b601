package phases

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lunatools/luna-setup/utils/faults"
	"github.com/lunatools/luna-setup/utils/ledger"
	"github.com/lunatools/luna-setup/utils/retry"
)

// State tracks where a pipeline run is in its lifecycle.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateCompleted
	// StateAborted means a fatal failure stopped the run before rollback
	// finished.
	StateAborted
	// StateRolledBack means the abort's rollback pass has completed.
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not started"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	case StateRolledBack:
		return "rolled back"
	default:
		return "unknown"
	}
}

// Manager coordinates the ordered execution of phases over one RunContext.
type Manager struct {
	phases    []Phase
	observers []Observer
	confirm   ConfirmHandler

	mu       sync.Mutex
	inFlight bool
	state    State
}

// ManagerOption mutates manager configuration.
type ManagerOption func(*Manager)

// WithObserver registers an observer to receive lifecycle events.
func WithObserver(obs Observer) ManagerOption {
	return func(m *Manager) {
		if obs == nil {
			return
		}
		m.observers = append(m.observers, obs)
	}
}

// WithConfirmHandler registers a handler for phase confirmation requests.
func WithConfirmHandler(handler ConfirmHandler) ManagerOption {
	return func(m *Manager) {
		if handler == nil {
			return
		}
		m.confirm = handler
	}
}

// NewManager constructs an empty Manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{state: StateNotStarted}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(m)
	}
	return m
}

// Register appends phases, returning an error on duplicate or empty IDs.
func (m *Manager) Register(phases ...Phase) error {
	for _, p := range phases {
		if p == nil {
			continue
		}
		meta := p.Metadata()
		if meta.ID == "" {
			return ValidationError{Reason: "phase id must not be empty"}
		}
		if m.hasPhase(meta.ID) {
			return DuplicatePhaseError{ID: meta.ID}
		}
		m.phases = append(m.phases, p)
	}
	return nil
}

// State reports the lifecycle state of the most recent run.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Run executes all registered phases in declaration order. A required
// phase's fatal failure aborts the run and rolls back every resource the
// ledger tracked; an optional phase's failure is downgraded to a warning. On
// full success the ledger's temporary entries are swept (unless the run
// opted out). The returned summary is complete either way; the error is
// non-nil only for an aborted run.
func (m *Manager) Run(ctx context.Context, rc *RunContext) (*RunSummary, error) {
	if rc == nil {
		return nil, ValidationError{Reason: "run context must not be nil"}
	}
	m.mu.Lock()
	if m.inFlight {
		m.mu.Unlock()
		return nil, RunInProgressError{}
	}
	m.inFlight = true
	m.state = StateRunning
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.inFlight = false
		m.mu.Unlock()
	}()

	if rc.Retry == nil {
		rc.Retry = retry.New(retry.WithOnRetry(m.notifyRetry))
	}

	summary := &RunSummary{}
	for _, phase := range m.phases {
		meta := phase.Metadata()
		m.notifyStart(meta)

		start := time.Now()
		err := m.executePhase(ctx, rc, phase, meta)
		result := m.classify(meta, err, time.Since(start), rc)
		rc.appendResult(result)
		m.notifyFinished(result)

		if result.Status == StatusFatalFailure {
			m.setState(StateAborted)
			report := rc.Ledger.Rollback(ctx)
			m.notifyRollback(report)
			m.setState(StateRolledBack)

			summary.State = StateRolledBack
			summary.Results = rc.Results()
			summary.Failed = &result
			summary.Rollback = &report
			summary.Err = PhaseExecutionError{Phase: meta, Err: err}
			return summary, summary.Err
		}
	}

	m.setState(StateCompleted)
	summary.State = StateCompleted
	if !rc.Options.NoCleanup && !rc.Options.DryRun {
		report := rc.Ledger.CleanupTemp(ctx)
		summary.Cleanup = &report
	}
	summary.Results = rc.Results()
	return summary, nil
}

// executePhase runs one phase, resolving confirmation requests by asking the
// registered handler and re-running the phase with the answer recorded.
func (m *Manager) executePhase(ctx context.Context, rc *RunContext, phase Phase, meta PhaseMetadata) error {
	for {
		if err := ctx.Err(); err != nil {
			return faults.Cancelled(err)
		}
		err := phase.Run(ctx, rc)
		if err == nil {
			return nil
		}
		var confirmErr ConfirmRequestError
		if errors.As(err, &confirmErr) {
			if m.confirm == nil {
				return err
			}
			granted, handlerErr := m.confirm.Confirm(meta, confirmErr.Prompt)
			if handlerErr != nil {
				return faults.Cancelled(handlerErr)
			}
			SetConfirmation(rc, confirmErr.PhaseID, confirmErr.Key, granted)
			continue
		}
		return err
	}
}

func (m *Manager) classify(meta PhaseMetadata, err error, elapsed time.Duration, rc *RunContext) PhaseResult {
	result := PhaseResult{
		Phase:    meta,
		Duration: elapsed,
		Warnings: rc.takeWarnings(),
	}
	if err == nil {
		result.Status = StatusSuccess
		return result
	}

	var skip SkipError
	if errors.As(err, &skip) {
		result.Status = StatusSkipped
		result.Detail = skip.Reason
		return result
	}

	// Cancellation is always fatal, whatever the phase's criticality.
	if faults.IsCancelled(err) {
		result.Status = StatusFatalFailure
		result.Detail = "cancelled"
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	if !meta.Required {
		result.Status = StatusSoftFailure
		result.Warnings = append(result.Warnings, err.Error())
		return result
	}

	result.Status = StatusFatalFailure
	result.Errors = append(result.Errors, err.Error())
	return result
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) hasPhase(id string) bool {
	for _, p := range m.phases {
		if p.Metadata().ID == id {
			return true
		}
	}
	return false
}

func (m *Manager) notifyStart(meta PhaseMetadata) {
	for _, obs := range m.observers {
		obs.PhaseStarted(meta)
	}
}

func (m *Manager) notifyFinished(result PhaseResult) {
	for _, obs := range m.observers {
		obs.PhaseFinished(result)
	}
}

func (m *Manager) notifyRetry(attempt int, err error) {
	for _, obs := range m.observers {
		obs.RetryAttempted(attempt, err)
	}
}

func (m *Manager) notifyRollback(report ledger.Report) {
	for _, obs := range m.observers {
		obs.RollbackFinished(report)
	}
}
