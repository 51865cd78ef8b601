package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunatools/luna-setup/phases"
	"github.com/lunatools/luna-setup/phases/migrate"
	"github.com/lunatools/luna-setup/utils/legacyconfig"
)

const injectorLegacy = `[DllInjector]
Exe = "C:\Steam\steam.exe"
Dll = "C:\Luna\injector\GreenLuma.dll"
EnableFakeParentProcess = 1
`

const unlockerLegacy = `{
    // main settings
    "config_version": 6,
    "log_level": "debug",
    "platforms": {
        "steam": {
            "enabled": true,
            "unlock_dlc": true,
            "blacklist": ["999"],
            "ignore": []
        }
    }
}
`

func newContext(t *testing.T, opts phases.Options, withLegacy bool) *phases.RunContext {
	t.Helper()
	dir := t.TempDir()
	paths := phases.DefaultPaths(dir)
	if withLegacy {
		paths.LegacyInjectorConfig = filepath.Join(dir, "DllInjector.ini")
		paths.LegacyUnlockerConfig = filepath.Join(dir, "Koalageddon.jsonc")
		require.NoError(t, os.WriteFile(paths.LegacyInjectorConfig, []byte(injectorLegacy), 0o644))
		require.NoError(t, os.WriteFile(paths.LegacyUnlockerConfig, []byte(unlockerLegacy), 0o644))
	}
	return phases.NewRunContext(opts, paths)
}

func TestRunWritesUnifiedConfig(t *testing.T) {
	t.Parallel()

	rc := newContext(t, phases.Options{}, true)
	require.NoError(t, migrate.New().Run(context.Background(), rc))

	require.NotNil(t, rc.Config)
	require.True(t, rc.Config.Migration.MigratedFromInjectorLegacy)
	require.True(t, rc.Config.Migration.MigratedFromUnlockerLegacy)
	require.Equal(t, []string{"999"}, rc.Config.Platforms["steam"].Blacklist)

	data, err := os.ReadFile(rc.Paths.UnifiedConfigPath)
	require.NoError(t, err)
	expected, err := rc.Config.Encode()
	require.NoError(t, err)
	require.Equal(t, expected, data)
}

func TestRunWithoutLegacyFilesUsesDefaults(t *testing.T) {
	t.Parallel()

	rc := newContext(t, phases.Options{}, false)
	require.NoError(t, migrate.New().Run(context.Background(), rc))

	require.NotNil(t, rc.Config)
	require.False(t, rc.Config.Migration.MigratedFromInjectorLegacy)
	require.False(t, rc.Config.Migration.MigratedFromUnlockerLegacy)
	require.FileExists(t, rc.Paths.UnifiedConfigPath)
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	rc := newContext(t, phases.Options{}, true)
	require.NoError(t, migrate.New().Run(context.Background(), rc))
	first, err := os.ReadFile(rc.Paths.UnifiedConfigPath)
	require.NoError(t, err)

	require.NoError(t, migrate.New().Run(context.Background(), rc))
	second, err := os.ReadFile(rc.Paths.UnifiedConfigPath)
	require.NoError(t, err)
	require.Equal(t, first, second)

	// Identical content means nothing was backed up or re-registered.
	require.Equal(t, 1, rc.Ledger.Len())
}

func TestRunAsksBeforeOverwritingDifferingConfig(t *testing.T) {
	t.Parallel()

	rc := newContext(t, phases.Options{}, true)
	custom := legacyconfig.Default()
	custom.Core.StealthMode = false
	encoded, err := custom.Encode()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(rc.Paths.UnifiedConfigPath, encoded, 0o644))

	err = migrate.New().Run(context.Background(), rc)
	var confirm phases.ConfirmRequestError
	require.ErrorAs(t, err, &confirm)

	// Declining keeps the existing file untouched.
	phases.SetConfirmation(rc, confirm.PhaseID, confirm.Key, false)
	require.NoError(t, migrate.New().Run(context.Background(), rc))
	kept, err := os.ReadFile(rc.Paths.UnifiedConfigPath)
	require.NoError(t, err)
	require.Equal(t, encoded, kept)
	require.False(t, rc.Config.Core.StealthMode)
}

func TestRunForceOverwritesWithoutAsking(t *testing.T) {
	t.Parallel()

	rc := newContext(t, phases.Options{Force: true}, true)
	require.NoError(t, os.WriteFile(rc.Paths.UnifiedConfigPath, []byte("{}"), 0o644))

	require.NoError(t, migrate.New().Run(context.Background(), rc))
	require.NotNil(t, rc.Config)
	require.True(t, rc.Config.Core.InjectorEnabled)
}
