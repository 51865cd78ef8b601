package privilege

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lunatools/luna-setup/utils/faults"
)

func TestRunElevatedUnsupportedPlatform(t *testing.T) {
	t.Parallel()

	gate := New(WithGOOS("linux"), WithRunner(RunnerFunc(func(context.Context, string, ...string) (string, string, error) {
		t.Fatal("no command may run on an unsupported platform")
		return "", "", nil
	})))

	result, err := gate.RunElevated(context.Background(), "Add-MpPreference -ExclusionPath C:\\Luna", time.Second)
	require.NoError(t, err, "unsupported platform degrades, it does not error")
	require.False(t, result.Success)
	require.NotEmpty(t, result.Suggestions)
}

func TestRunElevatedSuccess(t *testing.T) {
	t.Parallel()

	var gotName string
	var gotArgs []string
	gate := New(WithGOOS("windows"), WithRunner(RunnerFunc(func(_ context.Context, name string, args ...string) (string, string, error) {
		gotName = name
		gotArgs = args
		return "", "", nil
	})))

	result, err := gate.RunElevated(context.Background(), "mkdir 'C:\\Luna'", 5*time.Second)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, "powershell.exe", gotName)
	require.Contains(t, gotArgs[len(gotArgs)-1], "-Verb RunAs")
	require.Contains(t, gotArgs[len(gotArgs)-1], "mkdir ''C:\\Luna''", "single quotes must be doubled for PowerShell")
}

func TestRunElevatedTimeoutIsTransient(t *testing.T) {
	t.Parallel()

	gate := New(WithGOOS("windows"), WithRunner(RunnerFunc(func(ctx context.Context, _ string, _ ...string) (string, string, error) {
		<-ctx.Done()
		return "", "", ctx.Err()
	})))

	result, err := gate.RunElevated(context.Background(), "whoami", 10*time.Millisecond)
	require.False(t, result.Success)
	require.True(t, faults.IsTransient(err), "an unanswered UAC prompt is retry-eligible")
	var timeoutErr ElevationTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

func TestRunElevatedDeclinedIsTransient(t *testing.T) {
	t.Parallel()

	gate := New(WithGOOS("windows"), WithRunner(RunnerFunc(func(context.Context, string, ...string) (string, string, error) {
		return "", "The operation was canceled by the user.", errors.New("exit status 1")
	})))

	result, err := gate.RunElevated(context.Background(), "whoami", time.Second)
	require.False(t, result.Success)
	require.True(t, faults.IsTransient(err))
	var declined ElevationDeclinedError
	require.ErrorAs(t, err, &declined)
	require.Contains(t, declined.Stderr, "canceled by the user")
}

func TestRunElevatedCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	gate := New(WithGOOS("windows"), WithRunner(RunnerFunc(func(ctx context.Context, _ string, _ ...string) (string, string, error) {
		cancel()
		<-ctx.Done()
		return "", "", ctx.Err()
	})))

	_, err := gate.RunElevated(ctx, "whoami", time.Minute)
	require.True(t, faults.IsCancelled(err))
}

func TestSupportsFeatureMatrix(t *testing.T) {
	t.Parallel()

	windowsGate := New(WithGOOS("windows"))
	require.True(t, windowsGate.Supports(FeatureElevation))
	require.True(t, windowsGate.Supports(FeatureSecurityExclusions))
	require.True(t, windowsGate.Supports(FeatureShortcuts))

	linuxGate := New(WithGOOS("linux"))
	require.False(t, linuxGate.Supports(FeatureElevation))
	require.False(t, linuxGate.Supports(FeatureSecurityExclusions))
	require.True(t, linuxGate.Supports(FeatureShortcuts))

	darwinGate := New(WithGOOS("darwin"))
	require.False(t, darwinGate.Supports(FeatureShortcuts))
}

func TestWithFeatureFallbackRunsPrimaryWhenSupported(t *testing.T) {
	t.Parallel()

	gate := New(WithGOOS("windows"))
	ranPrimary := false
	err := gate.WithFeatureFallback(context.Background(), FeatureSecurityExclusions,
		func(context.Context) error { ranPrimary = true; return nil },
		func(context.Context) error { t.Fatal("fallback must not run"); return nil },
	)
	require.NoError(t, err)
	require.True(t, ranPrimary)
}

func TestWithFeatureFallbackRunsFallbackWhenUnsupported(t *testing.T) {
	t.Parallel()

	gate := New(WithGOOS("linux"))
	ranFallback := false
	err := gate.WithFeatureFallback(context.Background(), FeatureSecurityExclusions,
		func(context.Context) error { t.Fatal("primary must not run"); return nil },
		func(context.Context) error { ranFallback = true; return nil },
	)
	require.NoError(t, err)
	require.True(t, ranFallback)
}

func TestWithFeatureFallbackConvertsUnsupportedErrors(t *testing.T) {
	t.Parallel()

	gate := New(WithGOOS("windows"))
	ranFallback := false
	err := gate.WithFeatureFallback(context.Background(), FeatureSecurityExclusions,
		func(context.Context) error { return faults.Unsupported(errors.New("defender module missing")) },
		func(context.Context) error { ranFallback = true; return nil },
	)
	require.NoError(t, err)
	require.True(t, ranFallback, "runtime-detected unsupported features also degrade")
}
