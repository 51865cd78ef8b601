package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, s.InstallRoot)
	require.Equal(t, "480", s.AppID)
	require.Equal(t, 300, s.TimeoutSeconds)
	require.NotEmpty(t, s.BlockingApps)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("installRoot: /opt/luna\nappId: \"730\"\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/opt/luna", s.InstallRoot)
	require.Equal(t, "730", s.AppID)
	require.Equal(t, 300, s.TimeoutSeconds, "unset keys keep defaults")
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("installRoot: [unclosed"), 0o644))

	_, err := Load(path)
	var loadErr LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LUNA_INSTALL_ROOT", "/tmp/luna-env")
	t.Setenv("LUNA_APP_ID", "999")

	s, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "/tmp/luna-env", s.InstallRoot)
	require.Equal(t, "999", s.AppID)
}
