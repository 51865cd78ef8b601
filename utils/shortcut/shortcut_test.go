package shortcut

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunatools/luna-setup/utils/faults"
)

type fakeRunner struct {
	name string
	args []string
	err  error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, string, error) {
	f.name = name
	f.args = args
	return "", "", f.err
}

func TestCreateShortcutWindowsInvokesComScript(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	m := New(`C:\Users\luna\Desktop`, WithGOOS("windows"), WithRunner(runner))
	link, err := m.CreateShortcut(context.Background(), `C:\Luna\injector.exe`, "Luna Injector", `C:\Luna`, "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(`C:\Users\luna\Desktop`, "Luna Injector.lnk"), link)
	require.Equal(t, "powershell.exe", runner.name)

	script := runner.args[len(runner.args)-1]
	require.Contains(t, script, "WScript.Shell")
	require.Contains(t, script, "Luna Injector.lnk")
	require.Contains(t, script, `C:\Luna\injector.exe`)
	require.Contains(t, script, "$s.Save()")
}

func TestCreateShortcutLinuxDesktopEntry(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := New(dir, WithGOOS("linux"))
	entry, err := m.CreateShortcut(context.Background(), "/opt/luna/injector", "Luna Injector", "/opt/luna", "/opt/luna/icon.png")
	require.NoError(t, err)

	data, err := os.ReadFile(entry)
	require.NoError(t, err)
	content := string(data)
	require.True(t, strings.HasPrefix(content, "[Desktop Entry]\n"))
	require.Contains(t, content, "Exec=/opt/luna/injector\n")
	require.Contains(t, content, "Path=/opt/luna\n")
	require.Contains(t, content, "Icon=/opt/luna/icon.png\n")
}

func TestCreateShortcutUnsupportedPlatform(t *testing.T) {
	t.Parallel()

	m := New(t.TempDir(), WithGOOS("darwin"))
	_, err := m.CreateShortcut(context.Background(), "/x", "Luna", "", "")
	require.Error(t, err)
	require.True(t, faults.IsUnsupported(err))
}

func TestCreateShortcutRunnerFailure(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{err: os.ErrPermission}
	m := New(t.TempDir(), WithGOOS("windows"), WithRunner(runner))
	_, err := m.CreateShortcut(context.Background(), "/x", "Luna", "", "")
	var createErr CreateError
	require.ErrorAs(t, err, &createErr)
}
