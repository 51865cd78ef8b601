package preflight_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunatools/luna-setup/phases"
	"github.com/lunatools/luna-setup/phases/preflight"
	"github.com/lunatools/luna-setup/utils/faults"
	"github.com/lunatools/luna-setup/utils/procs"
)

func listerOf(names ...string) procs.Lister {
	return func(context.Context) ([]string, error) {
		return names, nil
	}
}

func contextWithArchive(t *testing.T, opts phases.Options) *phases.RunContext {
	t.Helper()
	dir := t.TempDir()
	paths := phases.DefaultPaths(dir)
	paths.InjectorArchive = filepath.Join(dir, "greenluma.zip")
	require.NoError(t, os.WriteFile(paths.InjectorArchive, []byte("PK\x03\x04"), 0o644))
	return phases.NewRunContext(opts, paths)
}

func TestRunPassesWhenNothingBlocks(t *testing.T) {
	t.Parallel()

	phase := preflight.New([]string{"steam.exe"}).
		WithDetector(procs.New(procs.WithLister(listerOf("explorer.exe"))))
	rc := contextWithArchive(t, phases.Options{})

	require.NoError(t, phase.Run(context.Background(), rc))

	size, ok := rc.Get(preflight.ContextKeyArchiveSize)
	require.True(t, ok)
	require.Equal(t, int64(4), size)
}

func TestRunFailsWhileBlockingAppRuns(t *testing.T) {
	t.Parallel()

	phase := preflight.New([]string{"steam.exe", "epicgameslauncher.exe"}).
		WithDetector(procs.New(procs.WithLister(listerOf("Steam.exe", "chrome.exe"))))
	rc := contextWithArchive(t, phases.Options{})

	err := phase.Run(context.Background(), rc)
	require.Error(t, err)
	require.False(t, faults.IsTransient(err))

	var blocking preflight.BlockingProcessError
	require.ErrorAs(t, err, &blocking)
	require.Equal(t, []string{"steam.exe"}, blocking.Names)
}

func TestRunFailsWhenArchiveMissing(t *testing.T) {
	t.Parallel()

	phase := preflight.New(nil)
	paths := phases.DefaultPaths(t.TempDir())
	paths.InjectorArchive = filepath.Join(paths.InstallRoot, "nope.zip")
	rc := phases.NewRunContext(phases.Options{}, paths)

	err := phase.Run(context.Background(), rc)
	var missing preflight.MissingArchiveError
	require.ErrorAs(t, err, &missing)
}

func TestRunToleratesMissingArchiveInConfigOnlyMode(t *testing.T) {
	t.Parallel()

	phase := preflight.New(nil)
	paths := phases.DefaultPaths(t.TempDir())
	paths.InjectorArchive = filepath.Join(paths.InstallRoot, "nope.zip")
	rc := phases.NewRunContext(phases.Options{ConfigOnly: true}, paths)

	require.NoError(t, phase.Run(context.Background(), rc))
}
