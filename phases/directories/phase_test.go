package directories_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunatools/luna-setup/phases"
	"github.com/lunatools/luna-setup/phases/directories"
)

func TestRunCreatesFullLayout(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "Luna")
	rc := phases.NewRunContext(phases.Options{}, phases.DefaultPaths(root))

	require.NoError(t, directories.New().Run(context.Background(), rc))
	require.DirExists(t, rc.Paths.InjectorDir)
	require.DirExists(t, rc.Paths.UnlockerDir)
	require.DirExists(t, rc.Paths.AppListDir)
	require.DirExists(t, rc.Paths.TempDir)
	require.NotZero(t, rc.Ledger.Len())
}

func TestRunLeavesExistingDirectoriesUnregistered(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	rc := phases.NewRunContext(phases.Options{}, phases.DefaultPaths(root))

	require.NoError(t, directories.New().Run(context.Background(), rc))
	created := rc.Ledger.Len()

	// A second pass finds everything in place and registers nothing new.
	require.NoError(t, directories.New().Run(context.Background(), rc))
	require.Equal(t, created, rc.Ledger.Len())

	// The pre-existing root itself was never registered for rollback.
	for _, entry := range rc.Ledger.Entries() {
		require.NotEqual(t, root, entry.Path)
	}
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "Luna")
	rc := phases.NewRunContext(phases.Options{DryRun: true}, phases.DefaultPaths(root))

	require.NoError(t, directories.New().Run(context.Background(), rc))
	require.NoDirExists(t, rc.Paths.InjectorDir)
	require.Zero(t, rc.Ledger.Len())
}
