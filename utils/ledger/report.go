package ledger

import (
	"fmt"
	"strings"
)

// Failure pairs an entry with the error that prevented undoing it.
type Failure struct {
	Entry Entry
	Err   error
}

// Report summarizes one Rollback or CleanupTemp pass. Failures are reported
// as warnings, never escalated: cleanup trouble must not mask the install
// outcome.
type Report struct {
	Operation string
	Undone    []Entry
	Failed    []Failure
}

// HasFailures reports whether any entry could not be undone.
func (r Report) HasFailures() bool {
	return len(r.Failed) > 0
}

// Warnings renders one human-readable line per failed entry.
func (r Report) Warnings() []string {
	if len(r.Failed) == 0 {
		return nil
	}
	out := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		out = append(out, fmt.Sprintf("could not remove %s %s (registered by %s): %v; remove it manually", f.Entry.Kind, f.Entry.Path, f.Entry.Phase, f.Err))
	}
	return out
}

// Summary renders the whole report for the end-of-run summary.
func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d undone, %d failed", r.Operation, len(r.Undone), len(r.Failed))
	for _, entry := range r.Undone {
		fmt.Fprintf(&b, "\n  undone %s %s", entry.Kind, entry.Path)
	}
	for _, w := range r.Warnings() {
		fmt.Fprintf(&b, "\n  warning: %s", w)
	}
	return b.String()
}
