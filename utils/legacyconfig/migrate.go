package legacyconfig

import (
	"fmt"
	"os"
)

// Migrate merges whatever legacy configuration exists at the two paths into
// a UnifiedConfig. Either path may be empty or point at a missing file; that
// is not an error, it simply leaves the matching migration flag false.
// Decode failures are downgraded to warnings so one corrupt legacy file
// cannot block migrating the other.
//
// Merge precedence: platform settings come verbatim from the unlocker
// config; the injector config contributes only the core stealth flag.
func Migrate(injectorPath, unlockerPath string) (*UnifiedConfig, []string) {
	cfg := Default()
	var warnings []string

	injector, warn := loadInjector(injectorPath)
	if warn != "" {
		warnings = append(warnings, warn)
	}
	unlocker, warn := loadUnlocker(unlockerPath)
	if warn != "" {
		warnings = append(warnings, warn)
	}

	if injector != nil {
		cfg.Core.InjectorEnabled = true
		cfg.Core.StealthMode = injector.EnableFakeParent
		cfg.Migration.MigratedFromInjectorLegacy = true
	}

	if unlocker != nil {
		cfg.Core.UnlockerEnabled = true
		cfg.Migration.MigratedFromUnlockerLegacy = true
		for name, settings := range unlocker.Platforms {
			cfg.Platforms[name] = Platform{
				Enabled:   settings.Enabled,
				UnlockDLC: settings.UnlockDLC,
				Blacklist: cloneOrEmpty(settings.Blacklist),
				Ignore:    cloneOrEmpty(settings.Ignore),
			}
		}
	}

	return cfg, warnings
}

func loadInjector(path string) (*InjectorLegacy, string) {
	if path == "" {
		return nil, ""
	}
	cfg, err := ParseInjectorLegacy(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ""
		}
		return nil, fmt.Sprintf("injector legacy config skipped: %v", err)
	}
	return cfg, ""
}

func loadUnlocker(path string) (*UnlockerLegacy, string) {
	if path == "" {
		return nil, ""
	}
	cfg, err := ParseUnlockerLegacy(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ""
		}
		return nil, fmt.Sprintf("unlocker legacy config skipped: %v", err)
	}
	return cfg, ""
}

func cloneOrEmpty(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
