package tui_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lunatools/luna-setup/phases"
	"github.com/lunatools/luna-setup/tui"
	"github.com/lunatools/luna-setup/utils/ledger"
)

func TestConsoleObserverPrintsLifecycle(t *testing.T) {
	t.Parallel()

	var out strings.Builder
	obs := tui.NewConsoleObserver(&out)

	meta := phases.PhaseMetadata{ID: "demo", Title: "Demo phase"}
	obs.PhaseStarted(meta)
	obs.PhaseFinished(phases.PhaseResult{
		Phase:    meta,
		Status:   phases.StatusSoftFailure,
		Warnings: []string{"service hiccup"},
		Duration: time.Second,
	})
	obs.RetryAttempted(1, errFake{})
	obs.RollbackFinished(ledger.Report{Operation: "rollback"})

	text := out.String()
	require.Contains(t, text, "==> Demo phase")
	require.Contains(t, text, "warning: service hiccup")
	require.Contains(t, text, "attempt 1 failed")
	require.Contains(t, text, "rollback")
}

func TestConsoleConfirmParsesAnswers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input   string
		granted bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"Y\n", true},
		{"n\n", false},
		{"\n", false},
		{"whatever\n", false},
	}
	for _, tc := range cases {
		var out strings.Builder
		confirm := tui.NewConsoleConfirm(strings.NewReader(tc.input), &out)
		granted, err := confirm.Confirm(phases.PhaseMetadata{Title: "Migrate"}, "Overwrite?")
		require.NoError(t, err)
		require.Equal(t, tc.granted, granted, "input %q", tc.input)
		require.Contains(t, out.String(), "Overwrite? [y/N]")
	}
}

func TestAlwaysConfirmGrants(t *testing.T) {
	t.Parallel()

	granted, err := tui.AlwaysConfirm{}.Confirm(phases.PhaseMetadata{}, "anything")
	require.NoError(t, err)
	require.True(t, granted)
}

type errFake struct{}

func (errFake) Error() string { return "boom" }
