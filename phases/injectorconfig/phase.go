// Package injectorconfig writes the injector's own configuration file and
// seeds the AppList directory with the application id it should unlock.
package injectorconfig

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/lunatools/luna-setup/phases"
	"github.com/lunatools/luna-setup/utils/faults"
	"github.com/lunatools/luna-setup/utils/legacyconfig"
)

const (
	phaseID = "injector_config"

	configFileName   = "DllInjector.ini"
	injectorDLLName  = "GreenLuma.dll"
	defaultSteamPath = `C:\Program Files (x86)\Steam\steam.exe`
)

// Phase renders the injector configuration.
type Phase struct {
	steamPath string
}

// New creates the injector configuration phase.
func New() *Phase {
	return &Phase{steamPath: defaultSteamPath}
}

// WithSteamPath overrides the launcher executable the injector targets.
func (p *Phase) WithSteamPath(path string) *Phase {
	if path != "" {
		p.steamPath = path
	}
	return p
}

func (p *Phase) Metadata() phases.PhaseMetadata {
	return phases.PhaseMetadata{
		ID:          phaseID,
		Title:       "Configure injector",
		Description: "Write the injector settings and seed the AppList entries.",
		Required:    true,
		Tags:        []string{"injector", "config"},
	}
}

func (p *Phase) Run(_ context.Context, rc *phases.RunContext) error {
	if rc.Config == nil {
		return phases.ValidationError{Reason: "configuration migration must run before configuring the injector"}
	}
	if !rc.Config.Core.InjectorEnabled {
		return phases.SkipError{Reason: "injector disabled in configuration"}
	}

	cfg := legacyconfig.InjectorLegacy{
		ExePath:          p.steamPath,
		DllPath:          filepath.Join(rc.Paths.InjectorDir, injectorDLLName),
		EnableFakeParent: rc.Config.Core.StealthMode,
	}
	configPath := filepath.Join(rc.Paths.InjectorDir, configFileName)
	if _, err := phases.WriteFileManaged(rc, phaseID, configPath, cfg.Encode(), 0o644); err != nil {
		return err
	}

	appID := rc.Options.AppID
	if appID == "" {
		return faults.Permanentf("no application id configured for the AppList")
	}
	if _, err := strconv.Atoi(appID); err != nil {
		return faults.Permanentf("application id %q is not numeric", appID)
	}
	appListPath := filepath.Join(rc.Paths.AppListDir, "0.txt")
	if _, err := phases.WriteFileManaged(rc, phaseID, appListPath, []byte(appID+"\n"), 0o644); err != nil {
		return err
	}
	return nil
}
