// Package preflight verifies the machine is in a state the installer can
// work with before anything is mutated: no blocking processes running and
// the bundled injector archive present on disk.
package preflight

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/lunatools/luna-setup/phases"
	"github.com/lunatools/luna-setup/utils/faults"
	"github.com/lunatools/luna-setup/utils/procs"
)

const phaseID = "preflight"

// ContextKeyArchiveSize exposes the injector archive size to later phases.
const ContextKeyArchiveSize = "preflight:archive_size"

// Phase runs the pre-mutation checks.
type Phase struct {
	detector     *procs.Detector
	blockingApps []string
}

// New creates a preflight phase that refuses to proceed while any of
// blockingApps is running.
func New(blockingApps []string) *Phase {
	return &Phase{
		detector:     procs.New(),
		blockingApps: blockingApps,
	}
}

// WithDetector swaps the process detector (for tests).
func (p *Phase) WithDetector(d *procs.Detector) *Phase {
	if d != nil {
		p.detector = d
	}
	return p
}

func (p *Phase) Metadata() phases.PhaseMetadata {
	return phases.PhaseMetadata{
		ID:          phaseID,
		Title:       "Preflight checks",
		Description: "Verify no blocking applications are running and the injector archive is available.",
		Required:    true,
		Tags:        []string{"checks"},
	}
}

func (p *Phase) Run(ctx context.Context, rc *phases.RunContext) error {
	if len(p.blockingApps) > 0 {
		running, err := p.detector.Running(ctx, p.blockingApps...)
		if err != nil {
			rc.Warnf("process scan failed, skipping blocking-app check: %v", err)
		} else if len(running) > 0 {
			return faults.Permanent(BlockingProcessError{Names: running})
		}
	}

	archive := rc.Paths.InjectorArchive
	if archive == "" {
		if rc.Options.ConfigOnly {
			return nil
		}
		return faults.Permanentf("injector archive path is not configured")
	}
	info, err := os.Stat(archive)
	if errors.Is(err, fs.ErrNotExist) {
		if rc.Options.ConfigOnly {
			rc.Warnf("injector archive %s missing; continuing because only configuration was requested", archive)
			return nil
		}
		return faults.Permanent(MissingArchiveError{Path: archive})
	}
	if err != nil {
		return faults.Permanent(err)
	}
	rc.Set(ContextKeyArchiveSize, info.Size())
	return nil
}

// BlockingProcessError reports processes that must exit before installation.
type BlockingProcessError struct {
	Names []string
}

func (e BlockingProcessError) Error() string {
	return "close these applications before running setup: " + strings.Join(e.Names, ", ")
}

// MissingArchiveError reports that the bundled injector archive was not found.
type MissingArchiveError struct {
	Path string
}

func (e MissingArchiveError) Error() string {
	return "injector archive not found at " + e.Path
}
