package legacyconfig

import (
	"encoding/json"
	"os"
	"strings"
)

// UnlockerLegacy is the parsed form of the unlocker's JSON-with-line-comments
// config file.
type UnlockerLegacy struct {
	ConfigVersion int                         `json:"config_version"`
	LogLevel      string                      `json:"log_level"`
	Platforms     map[string]UnlockerPlatform `json:"platforms"`
}

// UnlockerPlatform mirrors the unlocker's per-storefront settings.
type UnlockerPlatform struct {
	Enabled   bool     `json:"enabled"`
	UnlockDLC bool     `json:"unlock_dlc"`
	Blacklist []string `json:"blacklist"`
	Ignore    []string `json:"ignore"`
}

// ParseUnlockerLegacy reads and parses the unlocker legacy config, stripping
// // comments before decoding. A missing file surfaces as an os.IsNotExist
// error; malformed JSON surfaces as a ParseError the migrator downgrades to
// a warning.
func ParseUnlockerLegacy(path string) (*UnlockerLegacy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &UnlockerLegacy{
		ConfigVersion: 6,
		LogLevel:      "debug",
	}
	if err := json.Unmarshal([]byte(StripLineComments(string(data))), cfg); err != nil {
		return nil, ParseError{Source: "unlocker", Path: path, Err: err}
	}
	return cfg, nil
}

// Encode renders the config as indented JSON. Map keys marshal sorted, so
// repeated renders of the same config are byte-identical.
func (c *UnlockerLegacy) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// StripLineComments removes // comments character by character while
// tracking quote state, so a // inside a string literal (an URL, say) is
// preserved verbatim. Comments run to end of line; line structure is kept so
// JSON errors still point at the right line.
func StripLineComments(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	inString := false
	escaped := false
	inComment := false
	for i := 0; i < len(src); i++ {
		ch := src[i]
		if inComment {
			if ch == '\n' {
				inComment = false
				b.WriteByte(ch)
			}
			continue
		}
		if inString {
			b.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
			b.WriteByte(ch)
			continue
		}
		if ch == '/' && i+1 < len(src) && src[i+1] == '/' {
			inComment = true
			i++
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}
