package procs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func fixedLister(names ...string) Lister {
	return func(context.Context) ([]string, error) {
		return names, nil
	}
}

func TestRunningMatchesCaseInsensitive(t *testing.T) {
	t.Parallel()

	d := New(WithLister(fixedLister("Steam.exe", "explorer.exe", "chrome.exe")))
	found, err := d.Running(context.Background(), "steam.exe", "EpicGamesLauncher.exe")
	require.NoError(t, err)
	require.Equal(t, []string{"steam.exe"}, found)
}

func TestRunningToleratesMissingExeSuffix(t *testing.T) {
	t.Parallel()

	d := New(WithLister(fixedLister("steam")))
	found, err := d.Running(context.Background(), "Steam.exe")
	require.NoError(t, err)
	require.Len(t, found, 1)
}

func TestRunningPropagatesListerError(t *testing.T) {
	t.Parallel()

	boom := errors.New("access denied")
	d := New(WithLister(func(context.Context) ([]string, error) { return nil, boom }))
	_, err := d.Running(context.Background(), "steam.exe")
	require.ErrorIs(t, err, boom)
}

func TestRunningEmptyWatchlist(t *testing.T) {
	t.Parallel()

	d := New(WithLister(fixedLister("steam.exe")))
	found, err := d.Running(context.Background())
	require.NoError(t, err)
	require.Empty(t, found)
}
