package phases

import (
	"fmt"
	"strings"
	"time"

	"github.com/lunatools/luna-setup/utils/ledger"
)

// RunSummary captures the outcome of one pipeline run.
type RunSummary struct {
	State    State
	Results  []PhaseResult
	Failed   *PhaseResult
	Rollback *ledger.Report
	Cleanup  *ledger.Report
	Err      error
}

// Succeeded reports whether the run completed without a fatal failure.
func (s *RunSummary) Succeeded() bool {
	return s.State == StateCompleted
}

// Warnings collects every warning emitted across all phases.
func (s *RunSummary) Warnings() []string {
	var all []string
	for _, r := range s.Results {
		all = append(all, r.Warnings...)
	}
	if s.Cleanup != nil {
		all = append(all, s.Cleanup.Warnings()...)
	}
	return all
}

// Render formats the summary for terminal output: one line per phase, then
// warnings, and the rollback accounting when the run aborted.
func (s *RunSummary) Render() string {
	var b strings.Builder
	for _, r := range s.Results {
		fmt.Fprintf(&b, "%-9s %s (%s)\n", marker(r.Status), r.Phase.Title, roundDuration(r.Duration))
		if r.Detail != "" {
			fmt.Fprintf(&b, "          %s\n", r.Detail)
		}
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "          error: %s\n", e)
		}
	}

	if warnings := s.Warnings(); len(warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}

	switch s.State {
	case StateCompleted:
		b.WriteString("\nSetup completed.\n")
	case StateRolledBack:
		b.WriteString("\nSetup failed; changes were rolled back.\n")
		if s.Rollback != nil {
			fmt.Fprintf(&b, "%s\n", s.Rollback.Summary())
		}
	case StateAborted:
		b.WriteString("\nSetup aborted.\n")
	}
	return b.String()
}

func marker(status Status) string {
	switch status {
	case StatusSuccess:
		return "[ok]"
	case StatusSkipped:
		return "[skip]"
	case StatusSoftFailure:
		return "[warn]"
	case StatusFatalFailure:
		return "[fail]"
	default:
		return "[?]"
	}
}

func roundDuration(d time.Duration) time.Duration {
	if d >= time.Second {
		return d.Round(100 * time.Millisecond)
	}
	return d.Round(time.Millisecond)
}
