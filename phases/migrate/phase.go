// Package migrate folds the two legacy tool configurations into the unified
// JSON document every later phase reads from.
package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/lunatools/luna-setup/phases"
	"github.com/lunatools/luna-setup/utils/faults"
	"github.com/lunatools/luna-setup/utils/legacyconfig"
)

const (
	phaseID      = "migrate_config"
	confirmKey   = "overwrite-unified"
	filePermMode = 0o644
)

// Phase produces the unified configuration file.
type Phase struct{}

// New creates the migration phase.
func New() *Phase {
	return &Phase{}
}

func (p *Phase) Metadata() phases.PhaseMetadata {
	return phases.PhaseMetadata{
		ID:          phaseID,
		Title:       "Migrate configuration",
		Description: "Merge legacy injector and unlocker settings into the unified configuration.",
		Required:    true,
		Tags:        []string{"config"},
	}
}

func (p *Phase) Run(_ context.Context, rc *phases.RunContext) error {
	unified, warnings := legacyconfig.Migrate(rc.Paths.LegacyInjectorConfig, rc.Paths.LegacyUnlockerConfig)
	for _, w := range warnings {
		rc.Warnf("%s", w)
	}

	encoded, err := unified.Encode()
	if err != nil {
		return faults.Permanent(err)
	}

	target := rc.Paths.UnifiedConfigPath
	existing, readErr := os.ReadFile(target)
	if readErr == nil && !rc.Options.Force {
		if string(existing) == string(encoded) {
			rc.Config = unified
			return nil
		}
		granted, answered := phases.GetConfirmation(rc, phaseID, confirmKey)
		if !answered {
			return phases.ConfirmRequestError{
				PhaseID: phaseID,
				Key:     confirmKey,
				Prompt:  "A unified configuration already exists and differs. Overwrite it?",
			}
		}
		if !granted {
			kept, err := decode(existing)
			if err != nil {
				return faults.Permanent(err)
			}
			rc.Config = kept
			rc.Warnf("kept existing unified configuration at %s", target)
			return nil
		}
	}
	if readErr != nil && !errors.Is(readErr, fs.ErrNotExist) {
		return faults.Permanent(readErr)
	}

	if _, err := phases.WriteFileManaged(rc, phaseID, target, encoded, filePermMode); err != nil {
		return err
	}
	rc.Config = unified
	return nil
}

func decode(data []byte) (*legacyconfig.UnifiedConfig, error) {
	var cfg legacyconfig.UnifiedConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
