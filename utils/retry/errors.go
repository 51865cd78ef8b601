package retry

import (
	"fmt"
	"time"
)

// PolicyError reports an invalid retry policy.
type PolicyError struct {
	Reason string
}

func (e PolicyError) Error() string {
	return fmt.Sprintf("invalid retry policy: %s", e.Reason)
}

// ExhaustedError wraps the final error after all attempts were spent.
type ExhaustedError struct {
	Attempts int
	Elapsed  time.Duration
	Err      error
}

func (e ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts over %s: %v", e.Attempts, e.Elapsed.Round(time.Millisecond), e.Err)
}

func (e ExhaustedError) Unwrap() error {
	return e.Err
}
