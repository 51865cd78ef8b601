// Package downloadunlocker fetches the DLC unlocker release archive and
// unpacks it into the unlocker directory, skipping the transfer entirely
// when the installed version is already current.
package downloadunlocker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/lunatools/luna-setup/phases"
	"github.com/lunatools/luna-setup/utils/download"
	"github.com/lunatools/luna-setup/utils/extract"
	"github.com/lunatools/luna-setup/utils/faults"
	"github.com/lunatools/luna-setup/utils/ledger"
)

const (
	phaseID = "download_unlocker"

	archiveName     = "koalageddon.zip"
	versionFileName = "version.txt"
)

// Fetcher downloads a URL to a local path.
type Fetcher interface {
	Fetch(ctx context.Context, url, destPath string) error
}

// ExtractFunc matches extract.Extract and exists for test injection.
type ExtractFunc func(archivePath, destDir string, flatten bool) ([]string, error)

// ListFunc matches extract.List and exists for test injection.
type ListFunc func(archivePath, destDir string, flatten bool) ([]string, error)

// Phase installs the unlocker payload.
type Phase struct {
	fetcher Fetcher
	extract ExtractFunc
	list    ListFunc
}

// New creates the download phase.
func New() *Phase {
	return &Phase{
		fetcher: download.New(),
		extract: extract.Extract,
		list:    extract.List,
	}
}

// WithFetcher swaps the downloader (for tests).
func (p *Phase) WithFetcher(f Fetcher) *Phase {
	if f != nil {
		p.fetcher = f
	}
	return p
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

func (p *Phase) Metadata() phases.PhaseMetadata {
	return phases.PhaseMetadata{
		ID:          phaseID,
		Title:       "Download unlocker",
		Description: "Fetch and unpack the DLC unlocker release.",
		Required:    true,
		Tags:        []string{"unlocker", "network"},
	}
}

func (p *Phase) Run(ctx context.Context, rc *phases.RunContext) error {
	if rc.Options.ConfigOnly {
		return phases.SkipError{Reason: "configuration-only run"}
	}
	if rc.Options.DownloadURL == "" {
		return faults.Permanentf("no unlocker download URL configured")
	}

	wanted := rc.Options.UnlockerVersion
	versionPath := filepath.Join(rc.Paths.UnlockerDir, versionFileName)
	if !rc.Options.Force && wanted != "" {
		if current, ok := installedVersion(versionPath); ok {
			upToDate, err := atLeast(current, wanted)
			if err != nil {
				rc.Warnf("unreadable installed version %q: %v", current, err)
			} else if upToDate {
				return phases.SkipError{Reason: "unlocker " + current + " already installed"}
			}
		}
	}

	if rc.Options.DryRun {
		reason := fmt.Sprintf("dry run: would download %s into %s", rc.Options.DownloadURL, rc.Paths.UnlockerDir)
		if wanted != "" {
			reason += " (version " + wanted + ")"
		}
		return phases.SkipError{Reason: reason}
	}

	// Register before fetch and before extraction so an interrupted
	// transfer or unpack still leaves the paths on the rollback trail. The
	// downloader stages into a .part sibling, so that needs tracking too.
	archivePath := filepath.Join(rc.Paths.TempDir, archiveName)
	rc.Ledger.RegisterCreated(archivePath+download.PartSuffix, ledger.TempFile, phaseID)
	rc.Ledger.RegisterCreated(archivePath, ledger.TempFile, phaseID)
	if err := p.fetcher.Fetch(ctx, rc.Options.DownloadURL, archivePath); err != nil {
		return err
	}

	planned, err := p.list(archivePath, rc.Paths.UnlockerDir, true)
	if err != nil {
		return err
	}
	for _, path := range planned {
		rc.Ledger.RegisterCreated(path, ledger.CreatedFile, phaseID)
	}

	if _, err := p.extract(archivePath, rc.Paths.UnlockerDir, true); err != nil {
		return err
	}

	if wanted != "" {
		if _, err := phases.WriteFileManaged(rc, phaseID, versionPath, []byte(wanted+"\n"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func installedVersion(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(string(data))
	return v, v != ""
}

// atLeast reports whether current satisfies wanted.
func atLeast(current, wanted string) (bool, error) {
	cur, err := goversion.NewVersion(current)
	if err != nil {
		return false, err
	}
	want, err := goversion.NewVersion(wanted)
	if err != nil {
		return false, err
	}
	return cur.GreaterThanOrEqual(want), nil
}
