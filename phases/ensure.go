package phases

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/lunatools/luna-setup/utils/faults"
	"github.com/lunatools/luna-setup/utils/ledger"
)

// Outcome reports what an idempotent mutation actually did.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeCreated
	OutcomeAlreadySatisfied
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeAlreadySatisfied:
		return "already satisfied"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// EnsureDir creates path (and any missing parents) and registers every
// directory it actually created so rollback removes them innermost first. A
// directory that already exists is left alone.
func EnsureDir(rc *RunContext, phaseID, path string) (Outcome, error) {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return OutcomeFailed, faults.Permanentf("%s exists and is not a directory", path)
		}
		return OutcomeAlreadySatisfied, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return OutcomeFailed, faults.Permanent(fmt.Errorf("stat %s: %w", path, err))
	}

	if rc.Options.DryRun {
		return OutcomeCreated, nil
	}

	// Registration precedes mutation: a crash mid-create leaves entries
	// pointing at paths rollback treats as already gone.
	for _, dir := range missingAncestors(path) {
		rc.Ledger.RegisterCreated(dir, ledger.CreatedDirectory, phaseID)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return OutcomeFailed, faults.Permanent(fmt.Errorf("create %s: %w", path, err))
	}
	return OutcomeCreated, nil
}

// WriteFileManaged writes content to path, backing up any differing existing
// file first so rollback can restore it. Identical existing content is a
// no-op.
func WriteFileManaged(rc *RunContext, phaseID, path string, content []byte, perm os.FileMode) (Outcome, error) {
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if bytes.Equal(existing, content) {
			return OutcomeAlreadySatisfied, nil
		}
		if rc.Options.DryRun {
			return OutcomeCreated, nil
		}
		backupPath := path + ".bak"
		if err := copyFile(path, backupPath); err != nil {
			return OutcomeFailed, faults.Permanent(fmt.Errorf("back up %s: %w", path, err))
		}
		rc.Ledger.RegisterBackup(path, backupPath, phaseID)
		if err := os.WriteFile(path, content, perm); err != nil {
			return OutcomeFailed, faults.Permanent(fmt.Errorf("write %s: %w", path, err))
		}
		return OutcomeCreated, nil

	case errors.Is(err, fs.ErrNotExist):
		if rc.Options.DryRun {
			return OutcomeCreated, nil
		}
		rc.Ledger.RegisterCreated(path, ledger.CreatedFile, phaseID)
		if err := os.WriteFile(path, content, perm); err != nil {
			return OutcomeFailed, faults.Permanent(fmt.Errorf("write %s: %w", path, err))
		}
		return OutcomeCreated, nil

	default:
		return OutcomeFailed, faults.Permanent(fmt.Errorf("read %s: %w", path, err))
	}
}

// missingAncestors returns path plus every ancestor that does not yet exist,
// outermost first.
func missingAncestors(path string) []string {
	var missing []string
	for p := filepath.Clean(path); ; {
		if _, err := os.Stat(p); err == nil || !errors.Is(err, fs.ErrNotExist) {
			break
		}
		missing = append(missing, p)
		parent := filepath.Dir(p)
		if parent == p {
			break
		}
		p = parent
	}
	// Reverse so parents come before children; rollback then removes the
	// innermost directory first.
	for i, j := 0, len(missing)-1; i < j; i, j = i+1, j-1 {
		missing[i], missing[j] = missing[j], missing[i]
	}
	return missing
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
