package injectorconfig_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunatools/luna-setup/phases"
	"github.com/lunatools/luna-setup/phases/injectorconfig"
	"github.com/lunatools/luna-setup/utils/legacyconfig"
)

func newContext(t *testing.T, opts phases.Options) *phases.RunContext {
	t.Helper()
	rc := phases.NewRunContext(opts, phases.DefaultPaths(t.TempDir()))
	require.NoError(t, os.MkdirAll(rc.Paths.AppListDir, 0o755))
	rc.Config = legacyconfig.Default()
	return rc
}

func TestRunWritesConfigAndAppList(t *testing.T) {
	t.Parallel()

	rc := newContext(t, phases.Options{AppID: "480"})
	phase := injectorconfig.New().WithSteamPath(`D:\Steam\steam.exe`)

	require.NoError(t, phase.Run(context.Background(), rc))

	ini, err := os.ReadFile(filepath.Join(rc.Paths.InjectorDir, "DllInjector.ini"))
	require.NoError(t, err)
	require.Contains(t, string(ini), "[DllInjector]")
	require.Contains(t, string(ini), `Exe = "D:\Steam\steam.exe"`)
	require.Contains(t, string(ini), "EnableFakeParentProcess = 1")

	appList, err := os.ReadFile(filepath.Join(rc.Paths.AppListDir, "0.txt"))
	require.NoError(t, err)
	require.Equal(t, "480\n", string(appList))
}

func TestRunDisablesFakeParentWithoutStealth(t *testing.T) {
	t.Parallel()

	rc := newContext(t, phases.Options{AppID: "480"})
	rc.Config.Core.StealthMode = false

	require.NoError(t, injectorconfig.New().Run(context.Background(), rc))
	ini, err := os.ReadFile(filepath.Join(rc.Paths.InjectorDir, "DllInjector.ini"))
	require.NoError(t, err)
	require.Contains(t, string(ini), "EnableFakeParentProcess = 0")
}

func TestRunSkipsWhenInjectorDisabled(t *testing.T) {
	t.Parallel()

	rc := newContext(t, phases.Options{AppID: "480"})
	rc.Config.Core.InjectorEnabled = false

	err := injectorconfig.New().Run(context.Background(), rc)
	var skip phases.SkipError
	require.ErrorAs(t, err, &skip)
}

func TestRunRejectsNonNumericAppID(t *testing.T) {
	t.Parallel()

	rc := newContext(t, phases.Options{AppID: "not-a-number"})
	require.Error(t, injectorconfig.New().Run(context.Background(), rc))
}

func TestRunRequiresMigratedConfig(t *testing.T) {
	t.Parallel()

	rc := phases.NewRunContext(phases.Options{AppID: "480"}, phases.DefaultPaths(t.TempDir()))
	err := injectorconfig.New().Run(context.Background(), rc)

	var invalid phases.ValidationError
	require.ErrorAs(t, err, &invalid)
}
