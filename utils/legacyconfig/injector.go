package legacyconfig

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// InjectorLegacy is the parsed form of the injector's line-oriented config:
// a bracketed section header followed by key="quoted value" pairs. Only Dll,
// Exe, and EnableFakeParentProcess carry meaning; every other key is kept
// verbatim in Extra for diagnostic display and never merged.
type InjectorLegacy struct {
	ExePath          string
	DllPath          string
	EnableFakeParent bool
	Extra            map[string]string
}

// ParseInjectorLegacy reads and parses the injector legacy config. A missing
// file surfaces as an os.IsNotExist error so callers can treat absence as
// "nothing to migrate".
func ParseInjectorLegacy(path string) (*InjectorLegacy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := &InjectorLegacy{
		EnableFakeParent: true,
		Extra:            make(map[string]string),
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = unquote(strings.TrimSpace(value))
		switch key {
		case "Dll":
			cfg.DllPath = value
		case "Exe":
			cfg.ExePath = value
		case "EnableFakeParentProcess":
			cfg.EnableFakeParent = parseFlag(value, true)
		default:
			cfg.Extra[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, ParseError{Source: "injector", Path: path, Err: err}
	}
	return cfg, nil
}

// Encode renders the config back into the injector's line-oriented format.
// Keys appear in a fixed order so repeated renders are byte-identical; Extra
// keys follow sorted alphabetically.
func (c *InjectorLegacy) Encode() []byte {
	var b strings.Builder
	b.WriteString("[DllInjector]\n")
	// Values are quoted verbatim; the format does not escape backslashes.
	fmt.Fprintf(&b, "Exe = \"%s\"\n", c.ExePath)
	fmt.Fprintf(&b, "Dll = \"%s\"\n", c.DllPath)
	fmt.Fprintf(&b, "EnableFakeParentProcess = %s\n", flagString(c.EnableFakeParent))

	keys := make([]string, 0, len(c.Extra))
	for key := range c.Extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, "%s = \"%s\"\n", key, c.Extra[key])
	}
	return []byte(b.String())
}

func flagString(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func unquote(value string) string {
	if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		return value[1 : len(value)-1]
	}
	return value
}

func parseFlag(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
