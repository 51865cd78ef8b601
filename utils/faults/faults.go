// Package faults classifies errors by how the pipeline should react to them:
// transient failures are retry-eligible, permanent ones propagate immediately,
// unsupported ones degrade to a fallback, and cancellations abort the run.
package faults

import (
	"context"
	"errors"
	"fmt"
)

// Kind describes how an error should be handled.
type Kind int

const (
	// KindUnknown is the zero value for unclassified errors.
	KindUnknown Kind = iota
	// KindTransient marks errors worth retrying (locked file, timeout,
	// connection reset, dismissed UAC prompt).
	KindTransient
	// KindPermanent marks errors that retrying cannot fix (invalid input,
	// missing source asset).
	KindPermanent
	// KindUnsupported marks features unavailable on the current platform.
	KindUnsupported
	// KindCancelled marks user-initiated cancellation.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindUnsupported:
		return "unsupported"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Fault attaches a Kind to an underlying error.
type Fault struct {
	Kind Kind
	Err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Transient wraps err as retry-eligible.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &Fault{Kind: KindTransient, Err: err}
}

// Transientf formats a new transient error.
func Transientf(format string, args ...any) error {
	return &Fault{Kind: KindTransient, Err: fmt.Errorf(format, args...)}
}

// Permanent wraps err as not retry-eligible.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &Fault{Kind: KindPermanent, Err: err}
}

// Permanentf formats a new permanent error.
func Permanentf(format string, args ...any) error {
	return &Fault{Kind: KindPermanent, Err: fmt.Errorf(format, args...)}
}

// Unsupported wraps err as a platform limitation.
func Unsupported(err error) error {
	if err == nil {
		return nil
	}
	return &Fault{Kind: KindUnsupported, Err: err}
}

// Cancelled wraps err as a user-initiated cancellation.
func Cancelled(err error) error {
	if err == nil {
		err = context.Canceled
	}
	return &Fault{Kind: KindCancelled, Err: err}
}

// KindOf returns the Kind carried by err, unwrapping as needed. Bare context
// cancellation and deadline errors classify as cancelled; everything else
// unclassified reports KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindUnknown
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

// IsCancelled reports whether err stems from user cancellation.
func IsCancelled(err error) bool {
	return KindOf(err) == KindCancelled
}

// IsUnsupported reports whether err marks a platform limitation.
func IsUnsupported(err error) bool {
	return KindOf(err) == KindUnsupported
}
