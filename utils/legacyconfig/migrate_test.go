package legacyconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

const injectorSample = `[DllInjector]

Exe="steam.exe"
Dll="C:\x\y.dll"
EnableFakeParentProcess=1
WaitForProcessTermination=0
FakeParentProcess="explorer.exe"
`

const unlockerSample = `{
  // unlocker settings
  "config_version": 6,
  "log_level": "debug", // keep at debug
  "platforms": {
    "steam": {
      "enabled": true,
      "unlock_dlc": true,
      "blacklist": ["12345"],
      "ignore": ["settings://steam"]
    },
    "origin": {
      "enabled": false,
      "unlock_dlc": false,
      "blacklist": [],
      "ignore": []
    }
  }
}
`

func TestMigrateNoLegacySources(t *testing.T) {
	t.Parallel()

	cfg, warnings := Migrate("", "")
	require.Empty(t, warnings)
	require.False(t, cfg.Migration.MigratedFromInjectorLegacy)
	require.False(t, cfg.Migration.MigratedFromUnlockerLegacy)
	require.True(t, cfg.Core.StealthMode)
}

func TestMigrateMissingFilesAreNotWarnings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, warnings := Migrate(filepath.Join(dir, "absent.ini"), filepath.Join(dir, "absent.jsonc"))
	require.Empty(t, warnings)
	require.False(t, cfg.Migration.MigratedFromInjectorLegacy)
	require.False(t, cfg.Migration.MigratedFromUnlockerLegacy)
}

func TestMigrateInjectorOnly(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "injector.ini", injectorSample)
	cfg, warnings := Migrate(path, "")
	require.Empty(t, warnings)
	require.True(t, cfg.Migration.MigratedFromInjectorLegacy)
	require.False(t, cfg.Migration.MigratedFromUnlockerLegacy)
	require.True(t, cfg.Core.StealthMode)
	require.True(t, cfg.Core.InjectorEnabled)
}

func TestMigrateInjectorStealthDisabled(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "injector.ini", "Dll=\"a.dll\"\nEnableFakeParentProcess=0\n")
	cfg, _ := Migrate(path, "")
	require.False(t, cfg.Core.StealthMode)
}

func TestMigrateUnlockerPlatformsCopiedVerbatim(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "unlocker.jsonc", unlockerSample)
	cfg, warnings := Migrate("", path)
	require.Empty(t, warnings)
	require.True(t, cfg.Migration.MigratedFromUnlockerLegacy)

	steam, ok := cfg.Platforms["steam"]
	require.True(t, ok)
	require.True(t, steam.Enabled)
	require.True(t, steam.UnlockDLC)
	require.Equal(t, []string{"12345"}, steam.Blacklist)
	require.Equal(t, []string{"settings://steam"}, steam.Ignore)

	origin := cfg.Platforms["origin"]
	require.False(t, origin.Enabled)
	require.False(t, origin.UnlockDLC)
}

func TestMigrateBothSources(t *testing.T) {
	t.Parallel()

	injector := writeFile(t, "injector.ini", "Dll=\"a.dll\"\nEnableFakeParentProcess=0\n")
	unlocker := writeFile(t, "unlocker.jsonc", unlockerSample)
	cfg, warnings := Migrate(injector, unlocker)
	require.Empty(t, warnings)
	require.True(t, cfg.Migration.MigratedFromInjectorLegacy)
	require.True(t, cfg.Migration.MigratedFromUnlockerLegacy)
	require.False(t, cfg.Core.StealthMode, "stealth comes from the injector source")
	require.True(t, cfg.Platforms["steam"].UnlockDLC, "platforms come from the unlocker source")
}

func TestMigrateCorruptUnlockerIsWarningNotFatal(t *testing.T) {
	t.Parallel()

	injector := writeFile(t, "injector.ini", injectorSample)
	unlocker := writeFile(t, "unlocker.jsonc", "{ not json at all")
	cfg, warnings := Migrate(injector, unlocker)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0], "unlocker legacy config skipped")
	require.True(t, cfg.Migration.MigratedFromInjectorLegacy, "the healthy source still migrates")
	require.False(t, cfg.Migration.MigratedFromUnlockerLegacy)
}

func TestMigrateDeterministicEncoding(t *testing.T) {
	t.Parallel()

	injector := writeFile(t, "injector.ini", injectorSample)
	unlocker := writeFile(t, "unlocker.jsonc", unlockerSample)

	first, _ := Migrate(injector, unlocker)
	second, _ := Migrate(injector, unlocker)

	a, err := first.Encode()
	require.NoError(t, err)
	b, err := second.Encode()
	require.NoError(t, err)
	require.Equal(t, a, b, "identical inputs must serialize to identical bytes")
}

func TestParseInjectorPreservesUnknownKeys(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "injector.ini", injectorSample)
	cfg, err := ParseInjectorLegacy(path)
	require.NoError(t, err)
	require.Equal(t, "C:\\x\\y.dll", cfg.DllPath)
	require.Equal(t, "steam.exe", cfg.ExePath)
	require.Equal(t, "0", cfg.Extra["WaitForProcessTermination"])
	require.Equal(t, "explorer.exe", cfg.Extra["FakeParentProcess"])
}

func TestStripLineCommentsKeepsSlashesInStrings(t *testing.T) {
	t.Parallel()

	src := `{"url": "http://example.com"} // trailing`
	stripped := StripLineComments(src)
	require.Equal(t, `{"url": "http://example.com"} `, stripped)

	var decoded struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal([]byte(stripped), &decoded))
	require.Equal(t, "http://example.com", decoded.URL)
}

func TestStripLineCommentsHandlesEscapedQuotes(t *testing.T) {
	t.Parallel()

	src := `{"name": "a \"b//c\" d"} // note`
	stripped := StripLineComments(src)
	require.Contains(t, stripped, `a \"b//c\" d`)
	require.NotContains(t, stripped, "note")
}
