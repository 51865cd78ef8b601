// Package ledger records every filesystem resource the pipeline creates or
// backs up so a failed run can be rolled back and a successful run can sweep
// its temporary files. The ledger is the single owner of registered paths:
// nothing else deletes them outside Rollback and CleanupTemp.
package ledger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"
)

// Kind identifies how a registered resource is undone.
type Kind int

const (
	// TempFile is removed on both rollback and end-of-run cleanup.
	TempFile Kind = iota
	// TempDirectory is removed recursively on rollback and cleanup.
	TempDirectory
	// CreatedFile is removed only on rollback.
	CreatedFile
	// CreatedDirectory is removed recursively only on rollback.
	CreatedDirectory
	// ConfigBackup restores the backup over the original on rollback. The
	// backup file survives a successful run so the operator can diff or
	// revert by hand.
	ConfigBackup
)

func (k Kind) String() string {
	switch k {
	case TempFile:
		return "temp file"
	case TempDirectory:
		return "temp directory"
	case CreatedFile:
		return "created file"
	case CreatedDirectory:
		return "created directory"
	case ConfigBackup:
		return "config backup"
	default:
		return "unknown"
	}
}

// Entry is one resource the pipeline is responsible for undoing. For
// ConfigBackup entries Path holds the backup file and RestoreTo the original
// path it is restored over.
type Entry struct {
	Kind         Kind
	Path         string
	RestoreTo    string
	Phase        string
	RegisteredAt time.Time
}

// Ledger accumulates entries in registration order.
type Ledger struct {
	mu        sync.Mutex
	entries   []Entry
	seen      map[string]struct{}
	now       func() time.Time
	removeFn  func(Entry) error
	restoreFn func(Entry) error
}

// Option mutates ledger construction.
type Option func(*Ledger)

// WithRemover replaces the filesystem removal, used by tests.
func WithRemover(fn func(Entry) error) Option {
	return func(l *Ledger) {
		if fn != nil {
			l.removeFn = fn
		}
	}
}

// WithRestorer replaces the backup restore, used by tests.
func WithRestorer(fn func(Entry) error) Option {
	return func(l *Ledger) {
		if fn != nil {
			l.restoreFn = fn
		}
	}
}

// New constructs an empty Ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		seen:      make(map[string]struct{}),
		now:       time.Now,
		removeFn:  remove,
		restoreFn: restore,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// RegisterCreated records a resource created by the named phase. Registering
// the same path twice is a silent no-op.
func (l *Ledger) RegisterCreated(path string, kind Kind, phase string) {
	if l == nil || path == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.seen[path]; dup {
		return
	}
	l.seen[path] = struct{}{}
	l.entries = append(l.entries, Entry{
		Kind:         kind,
		Path:         path,
		Phase:        phase,
		RegisteredAt: l.now(),
	})
}

// RegisterBackup records that backupPath must be restored over originalPath
// on rollback.
func (l *Ledger) RegisterBackup(originalPath, backupPath, phase string) {
	if l == nil || originalPath == "" || backupPath == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.seen[backupPath]; dup {
		return
	}
	l.seen[backupPath] = struct{}{}
	l.entries = append(l.entries, Entry{
		Kind:         ConfigBackup,
		Path:         backupPath,
		RestoreTo:    originalPath,
		Phase:        phase,
		RegisteredAt: l.now(),
	})
}

// Len reports the number of registered entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries returns a copy of the registered entries in registration order.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Rollback undoes every entry in reverse registration order, so dependent
// resources are removed before their containers. Individual failures are
// collected in the report and never stop the remaining entries. A completed
// rollback empties the ledger.
func (l *Ledger) Rollback(ctx context.Context) Report {
	l.mu.Lock()
	entries := l.entries
	l.entries = nil
	l.seen = make(map[string]struct{})
	l.mu.Unlock()

	report := Report{Operation: "rollback"}
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if err := l.undo(entry); err != nil {
			report.Failed = append(report.Failed, Failure{Entry: entry, Err: err})
			continue
		}
		report.Undone = append(report.Undone, entry)
	}
	_ = ctx
	return report
}

// CleanupTemp removes only TempFile and TempDirectory entries in reverse
// registration order, keeping everything the run legitimately installed and
// any config backups. Run after a successful pipeline; on an already-emptied
// ledger it is a no-op.
func (l *Ledger) CleanupTemp(ctx context.Context) Report {
	l.mu.Lock()
	var keep, sweep []Entry
	for _, entry := range l.entries {
		switch entry.Kind {
		case TempFile, TempDirectory:
			sweep = append(sweep, entry)
		default:
			keep = append(keep, entry)
		}
	}
	l.entries = keep
	seen := make(map[string]struct{}, len(keep))
	for _, entry := range keep {
		seen[entry.Path] = struct{}{}
	}
	l.seen = seen
	l.mu.Unlock()

	report := Report{Operation: "cleanup"}
	for i := len(sweep) - 1; i >= 0; i-- {
		entry := sweep[i]
		if err := l.removeFn(entry); err != nil {
			report.Failed = append(report.Failed, Failure{Entry: entry, Err: err})
			continue
		}
		report.Undone = append(report.Undone, entry)
	}
	_ = ctx
	return report
}

func (l *Ledger) undo(entry Entry) error {
	if entry.Kind == ConfigBackup {
		return l.restoreFn(entry)
	}
	return l.removeFn(entry)
}

func remove(entry Entry) error {
	var err error
	switch entry.Kind {
	case TempDirectory, CreatedDirectory:
		err = os.RemoveAll(entry.Path)
	default:
		err = os.Remove(entry.Path)
	}
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// restore copies the backup over the original, then removes the backup.
// Rename is not used so restore also works across filesystems.
func restore(entry Entry) error {
	src, err := os.Open(entry.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(entry.RestoreTo, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	return os.Remove(entry.Path)
}
