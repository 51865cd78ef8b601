// Package privilege answers whether the process holds administrator rights
// and executes individual commands under OS elevation, degrading gracefully
// where a feature or the platform cannot support it.
package privilege

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/lunatools/luna-setup/utils/faults"
)

// Feature names gate-controlled capabilities that may be unavailable on the
// current platform or privilege level.
type Feature string

const (
	// FeatureElevation is the ability to request OS-level elevation at all.
	FeatureElevation Feature = "elevation"
	// FeatureSecurityExclusions covers antivirus exclusion management.
	FeatureSecurityExclusions Feature = "security_exclusions"
	// FeatureShortcuts covers desktop shortcut creation.
	FeatureShortcuts Feature = "shortcuts"
)

// OperationResult reports the outcome of a privileged operation together
// with remediation suggestions shown when it failed.
type OperationResult struct {
	Success     bool
	Message     string
	Details     string
	Suggestions []string
}

// Runner executes a command and returns its stdout and stderr. It exists so
// tests can stand in for PowerShell and UAC.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// RunnerFunc adapts a function into a Runner.
type RunnerFunc func(ctx context.Context, name string, args ...string) (string, string, error)

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	return f(ctx, name, args...)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Gate is the single entry point for privilege queries and elevated
// execution.
type Gate struct {
	runner   Runner
	goos     string
	elevated func() bool
}

// Option mutates gate construction.
type Option func(*Gate)

// WithRunner injects a command runner, used by tests.
func WithRunner(r Runner) Option {
	return func(g *Gate) {
		if r != nil {
			g.runner = r
		}
	}
}

// WithElevationCheck injects the elevation query, used by tests.
func WithElevationCheck(fn func() bool) Option {
	return func(g *Gate) {
		if fn != nil {
			g.elevated = fn
		}
	}
}

// WithGOOS overrides platform detection, used by tests.
func WithGOOS(goos string) Option {
	return func(g *Gate) {
		if goos != "" {
			g.goos = goos
		}
	}
}

// New constructs a Gate for the current platform.
func New(opts ...Option) *Gate {
	g := &Gate{
		runner:   execRunner{},
		goos:     runtime.GOOS,
		elevated: hasElevatedRights,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// HasElevatedRights reports whether the process already holds administrator
// (or root) rights. Pure query, no side effects.
func (g *Gate) HasElevatedRights() bool {
	return g.elevated()
}

// Supports reports whether the named feature can work on this platform.
func (g *Gate) Supports(feature Feature) bool {
	switch feature {
	case FeatureElevation, FeatureSecurityExclusions:
		return g.goos == "windows"
	case FeatureShortcuts:
		return g.goos == "windows" || g.goos == "linux"
	default:
		return false
	}
}

// RunElevated executes command under OS elevation, waiting at most timeout.
// On platforms without an elevation concept the result explains the
// limitation instead of erroring the pipeline. A timeout or dismissed prompt
// returns a transient error alongside the failed result, so callers can feed
// it to the retry executor.
func (g *Gate) RunElevated(ctx context.Context, command string, timeout time.Duration) (OperationResult, error) {
	if !g.Supports(FeatureElevation) {
		return OperationResult{
			Success: false,
			Message: "elevation is not available on this platform",
			Details: fmt.Sprintf("platform %s has no UAC-style elevation", g.goos),
			Suggestions: []string{
				"re-run the setup on Windows",
				"perform the privileged step manually",
			},
		}, nil
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Start-Process -Verb RunAs raises the UAC prompt without restarting
	// the whole setup.
	wrapped := fmt.Sprintf("Start-Process powershell -ArgumentList '-NoProfile','-Command',%s -Verb RunAs -Wait -WindowStyle Hidden", psQuote(command))
	_, stderr, err := g.runner.Run(runCtx, "powershell.exe", "-NoProfile", "-Command", wrapped)
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			timeoutErr := ElevationTimeoutError{Command: command, Timeout: timeout}
			return OperationResult{
				Success: false,
				Message: "elevated command timed out",
				Details: timeoutErr.Error(),
				Suggestions: []string{
					"try again and answer the UAC prompt promptly",
					"increase --timeout if the command legitimately takes longer",
				},
			}, faults.Transient(timeoutErr)
		}
		if ctx.Err() != nil {
			return OperationResult{Success: false, Message: "elevated command cancelled"}, faults.Cancelled(ctx.Err())
		}
		declinedErr := ElevationDeclinedError{Command: command, Stderr: strings.TrimSpace(stderr), Err: err}
		return OperationResult{
			Success: false,
			Message: "elevated command failed",
			Details: declinedErr.Error(),
			Suggestions: []string{
				"make sure you clicked Yes in the UAC prompt",
				"check that your account has administrator privileges",
			},
		}, faults.Transient(declinedErr)
	}

	return OperationResult{
		Success: true,
		Message: "elevated command completed",
		Details: command,
	}, nil
}

// WithFeatureFallback runs primary when the platform supports the named
// feature and fallback otherwise. Fallbacks typically record a warning with
// manual instructions; an unsupported feature never escalates to an error.
func (g *Gate) WithFeatureFallback(ctx context.Context, feature Feature, primary, fallback func(ctx context.Context) error) error {
	if g.Supports(feature) {
		err := primary(ctx)
		if err != nil && faults.IsUnsupported(err) && fallback != nil {
			return fallback(ctx)
		}
		return err
	}
	if fallback == nil {
		return nil
	}
	return fallback(ctx)
}

func psQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
