// Package unlockerconfig writes the DLC unlocker's own configuration file,
// projecting the unified per-platform settings back into the format the
// unlocker reads at runtime.
package unlockerconfig

import (
	"context"
	"path/filepath"

	"github.com/lunatools/luna-setup/phases"
	"github.com/lunatools/luna-setup/utils/faults"
	"github.com/lunatools/luna-setup/utils/legacyconfig"
)

const (
	phaseID = "unlocker_config"

	configFileName = "Koalageddon.json"
	configVersion  = 6
	logLevel       = "debug"
)

// Phase renders the unlocker configuration.
type Phase struct{}

// New creates the unlocker configuration phase.
func New() *Phase {
	return &Phase{}
}

func (p *Phase) Metadata() phases.PhaseMetadata {
	return phases.PhaseMetadata{
		ID:          phaseID,
		Title:       "Configure unlocker",
		Description: "Write the unlocker's per-platform settings.",
		Required:    true,
		Tags:        []string{"unlocker", "config"},
	}
}

func (p *Phase) Run(_ context.Context, rc *phases.RunContext) error {
	if rc.Config == nil {
		return phases.ValidationError{Reason: "configuration migration must run before configuring the unlocker"}
	}
	if !rc.Config.Core.UnlockerEnabled {
		return phases.SkipError{Reason: "unlocker disabled in configuration"}
	}

	cfg := legacyconfig.UnlockerLegacy{
		ConfigVersion: configVersion,
		LogLevel:      logLevel,
		Platforms:     make(map[string]legacyconfig.UnlockerPlatform, len(rc.Config.Platforms)),
	}
	for name, platform := range rc.Config.Platforms {
		cfg.Platforms[name] = legacyconfig.UnlockerPlatform{
			Enabled:   platform.Enabled,
			UnlockDLC: platform.UnlockDLC,
			Blacklist: emptyIfNil(platform.Blacklist),
			Ignore:    emptyIfNil(platform.Ignore),
		}
	}

	encoded, err := cfg.Encode()
	if err != nil {
		return faults.Permanent(err)
	}
	configPath := filepath.Join(rc.Paths.UnlockerDir, configFileName)
	if _, err := phases.WriteFileManaged(rc, phaseID, configPath, encoded, 0o644); err != nil {
		return err
	}
	return nil
}

func emptyIfNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
