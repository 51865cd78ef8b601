package privilege

import (
	"fmt"
	"time"
)

// ElevationTimeoutError reports an elevated command that did not finish
// within its deadline, usually an unanswered UAC prompt.
type ElevationTimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e ElevationTimeoutError) Error() string {
	return fmt.Sprintf("elevated command did not complete within %s: %s", e.Timeout, e.Command)
}

// ElevationDeclinedError reports an elevation request that was refused or
// failed outright.
type ElevationDeclinedError struct {
	Command string
	Stderr  string
	Err     error
}

func (e ElevationDeclinedError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("elevation failed for %q: %v (%s)", e.Command, e.Err, e.Stderr)
	}
	return fmt.Sprintf("elevation failed for %q: %v", e.Command, e.Err)
}

func (e ElevationDeclinedError) Unwrap() error {
	return e.Err
}
