// Package extractinjector unpacks the bundled injector archive into the
// injector directory and watches for antivirus software deleting the files
// right back out from under us.
package extractinjector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lunatools/luna-setup/phases"
	"github.com/lunatools/luna-setup/utils/extract"
	"github.com/lunatools/luna-setup/utils/faults"
	"github.com/lunatools/luna-setup/utils/ledger"
)

const (
	phaseID = "extract_injector"

	// ContextKeyExtracted lists the files the extraction produced.
	ContextKeyExtracted = "extractinjector:files"

	defaultWatchWindow = 1500 * time.Millisecond
)

// ExtractFunc matches extract.Extract and exists for test injection.
type ExtractFunc func(archivePath, destDir string, flatten bool) ([]string, error)

// ListFunc matches extract.List and exists for test injection.
type ListFunc func(archivePath, destDir string, flatten bool) ([]string, error)

// Phase extracts the injector payload.
type Phase struct {
	extract     ExtractFunc
	list        ListFunc
	watchWindow time.Duration
}

// New creates the extraction phase.
func New() *Phase {
	return &Phase{
		extract:     extract.Extract,
		list:        extract.List,
		watchWindow: defaultWatchWindow,
	}
}

// WithExtractor swaps the archive extractor (for tests).
func (p *Phase) WithExtractor(fn ExtractFunc) *Phase {
	if fn != nil {
		p.extract = fn
	}
	return p
}

// WithLister swaps the archive lister (for tests).
func (p *Phase) WithLister(fn ListFunc) *Phase {
	if fn != nil {
		p.list = fn
	}
	return p
}

// WithWatchWindow shortens the post-extraction watch period (for tests).
func (p *Phase) WithWatchWindow(d time.Duration) *Phase {
	if d > 0 {
		p.watchWindow = d
	}
	return p
}

func (p *Phase) Metadata() phases.PhaseMetadata {
	return phases.PhaseMetadata{
		ID:          phaseID,
		Title:       "Extract injector",
		Description: "Unpack the DLL injector into the injector directory and verify nothing removes it.",
		Required:    true,
		Tags:        []string{"injector", "filesystem"},
	}
}

func (p *Phase) Run(ctx context.Context, rc *phases.RunContext) error {
	if rc.Options.ConfigOnly {
		return phases.SkipError{Reason: "configuration-only run"}
	}

	if !rc.Options.Force && hasInjectorPayload(rc.Paths.InjectorDir) {
		return phases.SkipError{Reason: "injector files already present; use --force to re-extract"}
	}

	if rc.Options.DryRun {
		planned, err := p.list(rc.Paths.InjectorArchive, rc.Paths.InjectorDir, true)
		if err != nil {
			return err
		}
		return phases.SkipError{Reason: fmt.Sprintf("dry run: would extract %d files into %s", len(planned), rc.Paths.InjectorDir)}
	}

	// Register the planned files before extraction so a crash mid-unpack
	// still leaves rollback with every path it needs to remove.
	planned, err := p.list(rc.Paths.InjectorArchive, rc.Paths.InjectorDir, true)
	if err != nil {
		return err
	}
	for _, path := range planned {
		rc.Ledger.RegisterCreated(path, ledger.CreatedFile, phaseID)
	}

	created, err := p.extract(rc.Paths.InjectorArchive, rc.Paths.InjectorDir, true)
	if err != nil {
		return err
	}

	if err := p.watchForRemoval(ctx, rc, created); err != nil {
		return err
	}

	missing := missingFiles(created)
	if len(missing) > 0 {
		return faults.Permanent(AntivirusInterferenceError{Removed: missing})
	}

	rc.Set(ContextKeyExtracted, created)
	return nil
}

// watchForRemoval observes the injector directory for a short window after
// extraction. Real-time antivirus scanners quarantine injector DLLs within
// moments of them landing on disk; catching that here produces a clear error
// instead of a confusing failure at first launch.
func (p *Phase) watchForRemoval(ctx context.Context, rc *phases.RunContext, created []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		rc.Warnf("could not watch for antivirus interference: %v", err)
		return nil
	}
	defer watcher.Close()

	if err := watcher.Add(rc.Paths.InjectorDir); err != nil {
		rc.Warnf("could not watch %s: %v", rc.Paths.InjectorDir, err)
		return nil
	}

	tracked := make(map[string]struct{}, len(created))
	for _, path := range created {
		tracked[filepath.Clean(path)] = struct{}{}
	}

	deadline := time.NewTimer(p.watchWindow)
	defer deadline.Stop()

	var removed []string
	for {
		select {
		case <-ctx.Done():
			return faults.Cancelled(ctx.Err())
		case <-deadline.C:
			if len(removed) > 0 {
				return faults.Permanent(AntivirusInterferenceError{Removed: removed})
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if _, ours := tracked[filepath.Clean(event.Name)]; ours {
				removed = append(removed, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			rc.Warnf("watch error on %s: %v", rc.Paths.InjectorDir, err)
		}
	}
}

func hasInjectorPayload(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".dll") {
			return true
		}
	}
	return false
}

func missingFiles(paths []string) []string {
	var missing []string
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, path)
		}
	}
	return missing
}

// AntivirusInterferenceError reports extracted files that disappeared,
// almost always because a real-time scanner quarantined them.
type AntivirusInterferenceError struct {
	Removed []string
}

func (e AntivirusInterferenceError) Error() string {
	return "files were removed after extraction (likely antivirus): " + strings.Join(e.Removed, ", ")
}
