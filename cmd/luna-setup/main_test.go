package main

import (
	"errors"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lunatools/luna-setup/phases"
	"github.com/lunatools/luna-setup/phases/elevate"
	"github.com/lunatools/luna-setup/utils/download"
	"github.com/lunatools/luna-setup/utils/faults"
	"github.com/lunatools/luna-setup/utils/retry"
	"github.com/lunatools/luna-setup/utils/settings"
)

func TestExitCodeMapping(t *testing.T) {
	t.Parallel()

	connReset := &url.Error{
		Op:  "Get",
		URL: "https://releases.example.com/unlocker.zip",
		Err: syscall.ECONNRESET,
	}

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"generic", errors.New("boom"), exitGeneral},
		{"cancelled", faults.Cancelled(errors.New("interrupted")), exitCancelled},
		{"admin required", faults.Permanent(elevate.AdminRequiredError{}), exitAdmin},
		{"http status", download.StatusError{URL: "u", StatusCode: 503}, exitNetwork},
		{"settings", settings.LoadError{Path: "luna-setup.yaml", Err: errors.New("bad yaml")}, exitConfig},
		{
			// A connection reset exhausts its retries inside a phase; the
			// transport error must still map to the network exit code
			// through every wrapper layer.
			name: "connection reset through retry and phase wrappers",
			err: phases.PhaseExecutionError{
				Phase: phases.PhaseMetadata{ID: "download_unlocker"},
				Err: retry.ExhaustedError{
					Attempts: 3,
					Elapsed:  time.Second,
					Err:      faults.Transient(connReset),
				},
			},
			want: exitNetwork,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, exitCode(tc.err))
		})
	}
}
