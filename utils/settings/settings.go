// Package settings loads operator defaults for the setup run from an
// optional YAML file, with environment variable overrides. Command-line
// flags take precedence over everything here.
package settings

import (
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Settings are the tunable defaults of a setup run.
type Settings struct {
	InstallRoot          string   `yaml:"installRoot"`
	DownloadURL          string   `yaml:"downloadUrl"`
	UnlockerVersion      string   `yaml:"unlockerVersion"`
	AppID                string   `yaml:"appId"`
	TimeoutSeconds       int      `yaml:"timeoutSeconds"`
	DesktopDir           string   `yaml:"desktopDir"`
	InjectorArchive      string   `yaml:"injectorArchive"`
	BlockingApps         []string `yaml:"blockingApps"`
	LegacyInjectorConfig string   `yaml:"legacyInjectorConfig"`
	LegacyUnlockerConfig string   `yaml:"legacyUnlockerConfig"`
}

// Default returns the settings used when no file exists.
func Default() *Settings {
	root := `C:\Luna`
	if runtime.GOOS != "windows" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		root = filepath.Join(home, ".local", "share", "luna")
	}
	return &Settings{
		InstallRoot:     root,
		DownloadURL:     "https://releases.lunatools.dev/unlocker/latest.zip",
		UnlockerVersion: "3.0.0",
		AppID:           "480",
		TimeoutSeconds:  300,
		InjectorArchive: filepath.Join("assets", "greenluma.zip"),
		BlockingApps:    []string{"steam.exe", "EpicGamesLauncher.exe", "Origin.exe", "upc.exe"},
	}
}

// Load reads settings from path, merging over the defaults. A missing file
// is not an error. Environment variables (LUNA_INSTALL_ROOT,
// LUNA_DOWNLOAD_URL, LUNA_APP_ID) override file values.
func Load(path string) (*Settings, error) {
	s := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// defaults apply
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, s); err != nil {
				return nil, LoadError{Path: path, Err: err}
			}
		}
	}
	applyEnv(s)
	return s, nil
}

func applyEnv(s *Settings) {
	if v := os.Getenv("LUNA_INSTALL_ROOT"); v != "" {
		s.InstallRoot = v
	}
	if v := os.Getenv("LUNA_DOWNLOAD_URL"); v != "" {
		s.DownloadURL = v
	}
	if v := os.Getenv("LUNA_APP_ID"); v != "" {
		s.AppID = v
	}
}
