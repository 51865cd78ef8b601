package legacyconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunatools/luna-setup/utils/legacyconfig"
)

func TestInjectorEncodeRoundTrips(t *testing.T) {
	t.Parallel()

	original := legacyconfig.InjectorLegacy{
		ExePath:          `C:\Program Files (x86)\Steam\steam.exe`,
		DllPath:          `C:\Luna\injector\GreenLuma.dll`,
		EnableFakeParent: false,
		Extra:            map[string]string{"WaitForProcessTermination": "1"},
	}

	path := filepath.Join(t.TempDir(), "DllInjector.ini")
	require.NoError(t, os.WriteFile(path, original.Encode(), 0o644))

	parsed, err := legacyconfig.ParseInjectorLegacy(path)
	require.NoError(t, err)
	require.Equal(t, original.ExePath, parsed.ExePath)
	require.Equal(t, original.DllPath, parsed.DllPath)
	require.False(t, parsed.EnableFakeParent)
	require.Equal(t, "1", parsed.Extra["WaitForProcessTermination"])
}

func TestInjectorEncodeIsDeterministic(t *testing.T) {
	t.Parallel()

	cfg := legacyconfig.InjectorLegacy{
		ExePath: `C:\steam.exe`,
		DllPath: `C:\GreenLuma.dll`,
		Extra:   map[string]string{"B": "2", "A": "1", "C": "3"},
	}
	require.Equal(t, cfg.Encode(), cfg.Encode())
}

func TestUnlockerEncodeRoundTrips(t *testing.T) {
	t.Parallel()

	original := legacyconfig.UnlockerLegacy{
		ConfigVersion: 6,
		LogLevel:      "debug",
		Platforms: map[string]legacyconfig.UnlockerPlatform{
			"steam": {Enabled: true, UnlockDLC: true, Blacklist: []string{"999"}, Ignore: []string{}},
		},
	}
	encoded, err := original.Encode()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "Koalageddon.json")
	require.NoError(t, os.WriteFile(path, encoded, 0o644))

	parsed, err := legacyconfig.ParseUnlockerLegacy(path)
	require.NoError(t, err)
	require.Equal(t, original.ConfigVersion, parsed.ConfigVersion)
	require.Equal(t, original.Platforms["steam"], parsed.Platforms["steam"])
}
