// Package legacyconfig converts configuration left behind by the two
// predecessor tools (the DLL injector's INI-style file and the DLC
// unlocker's commented-JSON file) into one unified schema.
package legacyconfig

import "encoding/json"

// Core holds tool-wide switches.
type Core struct {
	InjectorEnabled bool `json:"injectorEnabled"`
	UnlockerEnabled bool `json:"unlockerEnabled"`
	StealthMode     bool `json:"stealthMode"`
}

// Platform holds per-storefront unlock settings.
type Platform struct {
	Enabled   bool     `json:"enabled"`
	UnlockDLC bool     `json:"unlockDlc"`
	Blacklist []string `json:"blacklist"`
	Ignore    []string `json:"ignore"`
}

// Migration records which legacy sources contributed to this config.
type Migration struct {
	MigratedFromInjectorLegacy bool `json:"migratedFromInjectorLegacy"`
	MigratedFromUnlockerLegacy bool `json:"migratedFromUnlockerLegacy"`
}

// UnifiedConfig is the merged settings document written by the setup run.
// It carries no wall-clock fields: identical legacy inputs must always
// serialize to identical bytes.
type UnifiedConfig struct {
	Core      Core                `json:"core"`
	Platforms map[string]Platform `json:"platforms"`
	Migration Migration           `json:"migration"`
}

// Default returns the configuration used when no legacy install exists.
func Default() *UnifiedConfig {
	return &UnifiedConfig{
		Core: Core{
			InjectorEnabled: true,
			UnlockerEnabled: true,
			StealthMode:     true,
		},
		Platforms: map[string]Platform{
			"steam":      defaultPlatform(),
			"epic_games": defaultPlatform(),
			"origin":     defaultPlatform(),
			"uplay":      defaultPlatform(),
		},
	}
}

func defaultPlatform() Platform {
	return Platform{
		Enabled:   true,
		UnlockDLC: true,
		Blacklist: []string{},
		Ignore:    []string{},
	}
}

// Encode serializes the config as UTF-8 JSON with 2-space indentation and a
// trailing newline. encoding/json sorts map keys, so the output is
// deterministic for identical inputs.
func (c *UnifiedConfig) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
