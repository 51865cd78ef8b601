// Package directories lays down the installation tree.
package directories

import (
	"context"

	"github.com/lunatools/luna-setup/phases"
)

const phaseID = "directories"

// Phase creates the directory layout beneath the install root.
type Phase struct{}

// New creates the directory phase.
func New() *Phase {
	return &Phase{}
}

func (p *Phase) Metadata() phases.PhaseMetadata {
	return phases.PhaseMetadata{
		ID:          phaseID,
		Title:       "Create directories",
		Description: "Create the install root and the injector, unlocker, and temp directories.",
		Required:    true,
		Tags:        []string{"filesystem"},
	}
}

func (p *Phase) Run(ctx context.Context, rc *phases.RunContext) error {
	targets := []string{
		rc.Paths.InstallRoot,
		rc.Paths.InjectorDir,
		rc.Paths.UnlockerDir,
		rc.Paths.AppListDir,
		rc.Paths.TempDir,
	}
	for _, dir := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := phases.EnsureDir(rc, phaseID, dir); err != nil {
			return err
		}
	}
	return nil
}
