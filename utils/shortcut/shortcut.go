// Package shortcut creates launcher shortcuts for installed tools. On
// Windows it shells out to PowerShell's WScript.Shell COM object; on Linux
// it writes a freedesktop .desktop entry. Callers only see success or
// failure, never the mechanism.
package shortcut

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/lunatools/luna-setup/utils/faults"
)

// Runner executes the platform shortcut helper. Split out so tests do not
// need PowerShell.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// Manager creates shortcuts under a fixed destination directory, usually the
// user's desktop.
type Manager struct {
	destDir string
	goos    string
	runner  Runner
}

// Option mutates manager construction.
type Option func(*Manager)

// WithRunner injects the helper runner, used by tests.
func WithRunner(r Runner) Option {
	return func(m *Manager) {
		if r != nil {
			m.runner = r
		}
	}
}

// WithGOOS overrides platform detection, used by tests.
func WithGOOS(goos string) Option {
	return func(m *Manager) {
		if goos != "" {
			m.goos = goos
		}
	}
}

// New constructs a Manager writing shortcuts into destDir.
func New(destDir string, opts ...Option) *Manager {
	m := &Manager{
		destDir: destDir,
		goos:    runtime.GOOS,
		runner:  execRunner{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Path returns where CreateShortcut would place a shortcut named name,
// letting callers register it for rollback before creating it.
func (m *Manager) Path(name string) string {
	ext := ".desktop"
	if m.goos == "windows" {
		ext = ".lnk"
	}
	return filepath.Join(m.destDir, name+ext)
}

// CreateShortcut places a shortcut named name pointing at target. icon may
// be empty. Returns the path of the created shortcut so the caller can
// register it for rollback.
func (m *Manager) CreateShortcut(ctx context.Context, target, name, workDir, icon string) (string, error) {
	switch m.goos {
	case "windows":
		return m.createWindows(ctx, target, name, workDir, icon)
	case "linux":
		return m.createDesktopEntry(target, name, workDir, icon)
	default:
		return "", faults.Unsupported(UnsupportedPlatformError{GOOS: m.goos})
	}
}

func (m *Manager) createWindows(ctx context.Context, target, name, workDir, icon string) (string, error) {
	if m.runner == nil {
		return "", faults.Unsupported(UnsupportedPlatformError{GOOS: m.goos})
	}
	linkPath := m.Path(name)
	var script strings.Builder
	fmt.Fprintf(&script, "$ws = New-Object -ComObject WScript.Shell; ")
	fmt.Fprintf(&script, "$s = $ws.CreateShortcut(%s); ", psQuote(linkPath))
	fmt.Fprintf(&script, "$s.TargetPath = %s; ", psQuote(target))
	if workDir != "" {
		fmt.Fprintf(&script, "$s.WorkingDirectory = %s; ", psQuote(workDir))
	}
	if icon != "" {
		fmt.Fprintf(&script, "$s.IconLocation = %s; ", psQuote(icon))
	}
	script.WriteString("$s.Save()")

	_, stderr, err := m.runner.Run(ctx, "powershell.exe", "-NoProfile", "-Command", script.String())
	if err != nil {
		return "", CreateError{Name: name, Details: strings.TrimSpace(stderr), Err: err}
	}
	return linkPath, nil
}

func (m *Manager) createDesktopEntry(target, name, workDir, icon string) (string, error) {
	entryPath := m.Path(name)
	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	fmt.Fprintf(&b, "Name=%s\n", name)
	fmt.Fprintf(&b, "Exec=%s\n", target)
	if workDir != "" {
		fmt.Fprintf(&b, "Path=%s\n", workDir)
	}
	if icon != "" {
		fmt.Fprintf(&b, "Icon=%s\n", icon)
	}
	b.WriteString("Terminal=false\n")

	if err := os.MkdirAll(m.destDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(entryPath, []byte(b.String()), 0o755); err != nil {
		return "", CreateError{Name: name, Err: err}
	}
	return entryPath, nil
}

func psQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
