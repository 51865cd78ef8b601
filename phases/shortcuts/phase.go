// Package shortcuts places a launcher shortcut for the injector on the
// user's desktop.
package shortcuts

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/lunatools/luna-setup/phases"
	"github.com/lunatools/luna-setup/utils/ledger"
	"github.com/lunatools/luna-setup/utils/privilege"
	"github.com/lunatools/luna-setup/utils/shortcut"
)

const (
	phaseID = "shortcuts"

	shortcutName     = "Luna"
	injectorExeName  = "DLLInjector.exe"
	shortcutIconName = "GreenLuma.dll"
)

// Phase creates the desktop shortcut.
type Phase struct {
	gate    *privilege.Gate
	manager *shortcut.Manager
}

// New creates the shortcut phase targeting destDir.
func New(destDir string) *Phase {
	return &Phase{
		gate:    privilege.New(),
		manager: shortcut.New(destDir),
	}
}

// WithGate swaps the privilege gate (for tests).
func (p *Phase) WithGate(g *privilege.Gate) *Phase {
	if g != nil {
		p.gate = g
	}
	return p
}

// WithManager swaps the shortcut manager (for tests).
func (p *Phase) WithManager(m *shortcut.Manager) *Phase {
	if m != nil {
		p.manager = m
	}
	return p
}

func (p *Phase) Metadata() phases.PhaseMetadata {
	return phases.PhaseMetadata{
		ID:          phaseID,
		Title:       "Desktop shortcut",
		Description: "Create a desktop shortcut for the injector.",
		Required:    false,
		Tags:        []string{"shortcuts"},
	}
}

func (p *Phase) Run(ctx context.Context, rc *phases.RunContext) error {
	if rc.Options.ConfigOnly {
		return phases.SkipError{Reason: "configuration-only run"}
	}

	target := filepath.Join(rc.Paths.InjectorDir, injectorExeName)
	icon := filepath.Join(rc.Paths.InjectorDir, shortcutIconName)
	if rc.Options.DryRun {
		return phases.SkipError{Reason: fmt.Sprintf("dry run: would create %s targeting %s", p.manager.Path(shortcutName), target)}
	}

	primary := func(ctx context.Context) error {
		rc.Ledger.RegisterCreated(p.manager.Path(shortcutName), ledger.CreatedFile, phaseID)
		_, err := p.manager.CreateShortcut(ctx, target, shortcutName, rc.Paths.InjectorDir, icon)
		return err
	}
	fallback := func(context.Context) error {
		rc.Warnf("shortcuts are unavailable on this platform; launch %s directly", target)
		return nil
	}

	return p.gate.WithFeatureFallback(ctx, privilege.FeatureShortcuts, primary, fallback)
}
