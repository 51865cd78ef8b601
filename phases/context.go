package phases

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/lunatools/luna-setup/utils/ledger"
	"github.com/lunatools/luna-setup/utils/legacyconfig"
	"github.com/lunatools/luna-setup/utils/retry"
)

// Options are the run-mode switches resolved from the CLI and settings file.
type Options struct {
	DryRun       bool
	ConfigOnly   bool
	SkipAdmin    bool
	SkipSecurity bool
	NoCleanup    bool
	Force        bool
	Timeout      time.Duration
	AppID        string
	DownloadURL  string
	// UnlockerVersion is the release the download phase should install.
	UnlockerVersion string
}

// Paths are the filesystem locations one run works against.
type Paths struct {
	InstallRoot          string
	InjectorDir          string
	UnlockerDir          string
	AppListDir           string
	TempDir              string
	UnifiedConfigPath    string
	DesktopDir           string
	InjectorArchive      string
	LegacyInjectorConfig string
	LegacyUnlockerConfig string
}

// DefaultPaths derives the standard layout beneath installRoot.
func DefaultPaths(installRoot string) Paths {
	return Paths{
		InstallRoot:       installRoot,
		InjectorDir:       filepath.Join(installRoot, "injector"),
		UnlockerDir:       filepath.Join(installRoot, "unlocker"),
		AppListDir:        filepath.Join(installRoot, "injector", "AppList"),
		TempDir:           filepath.Join(installRoot, "tmp"),
		UnifiedConfigPath: filepath.Join(installRoot, "luna.config.json"),
	}
}

// RunContext carries everything a phase may need: run options, target paths,
// the resource ledger, the shared retry executor, the unified configuration
// once migration has produced it, and a small key/value store for values
// passed between phases. A RunContext belongs to exactly one run.
type RunContext struct {
	Options Options
	Paths   Paths
	Ledger  *ledger.Ledger
	Retry   *retry.Executor

	// Config is set by the migration phase and read by later phases.
	Config *legacyconfig.UnifiedConfig

	mu       sync.RWMutex
	store    map[string]any
	warnings []string
	results  []PhaseResult
}

// NewRunContext creates a RunContext with a fresh ledger.
func NewRunContext(options Options, paths Paths) *RunContext {
	return &RunContext{
		Options: options,
		Paths:   paths,
		Ledger:  ledger.New(),
		store:   make(map[string]any),
	}
}

// Set assigns a value under the provided key.
func (rc *RunContext) Set(key string, value any) {
	if rc == nil {
		return
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.store == nil {
		rc.store = make(map[string]any)
	}
	rc.store[key] = value
}

// Get retrieves a value, returning false when the key is not present.
func (rc *RunContext) Get(key string) (any, bool) {
	if rc == nil {
		return nil, false
	}
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	val, ok := rc.store[key]
	return val, ok
}

// Warnf records a warning attributed to the phase currently executing.
func (rc *RunContext) Warnf(format string, args ...any) {
	if rc == nil {
		return
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.warnings = append(rc.warnings, fmt.Sprintf(format, args...))
}

// Results returns a copy of the phase results recorded so far.
func (rc *RunContext) Results() []PhaseResult {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	out := make([]PhaseResult, len(rc.results))
	copy(out, rc.results)
	return out
}

func (rc *RunContext) takeWarnings() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := rc.warnings
	rc.warnings = nil
	return out
}

func (rc *RunContext) appendResult(result PhaseResult) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.results = append(rc.results, result)
}

func confirmKey(phaseID, key string) string {
	return fmt.Sprintf("phase:%s:confirm:%s", phaseID, key)
}

// SetConfirmation stores an operator answer for a phase's confirmation key.
func SetConfirmation(rc *RunContext, phaseID, key string, granted bool) {
	if rc == nil {
		return
	}
	rc.Set(confirmKey(phaseID, key), granted)
}

// GetConfirmation reports the stored answer and whether one exists.
func GetConfirmation(rc *RunContext, phaseID, key string) (granted, answered bool) {
	if rc == nil {
		return false, false
	}
	val, ok := rc.Get(confirmKey(phaseID, key))
	if !ok {
		return false, false
	}
	b, ok := val.(bool)
	return b, ok
}
