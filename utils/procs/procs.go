// Package procs detects running processes that would interfere with the
// install, such as the platform client holding the injector's target files
// open.
package procs

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// Lister enumerates running process names. The default implementation uses
// gopsutil; tests substitute a fixed list.
type Lister func(ctx context.Context) ([]string, error)

func systemLister(ctx context.Context) ([]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// Detector answers which of a set of watched applications are running.
type Detector struct {
	list Lister
}

// Option mutates detector construction.
type Option func(*Detector)

// WithLister injects the process enumerator, used by tests.
func WithLister(l Lister) Option {
	return func(d *Detector) {
		if l != nil {
			d.list = l
		}
	}
}

// New constructs a Detector.
func New(opts ...Option) *Detector {
	d := &Detector{list: systemLister}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Running returns the subset of wanted application names currently running.
// Matching is case-insensitive and tolerates a missing .exe suffix.
func (d *Detector) Running(ctx context.Context, wanted ...string) ([]string, error) {
	names, err := d.list(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]struct{}, len(names))
	for _, name := range names {
		index[normalize(name)] = struct{}{}
	}

	var found []string
	for _, want := range wanted {
		if _, ok := index[normalize(want)]; ok {
			found = append(found, want)
		}
	}
	return found, nil
}

func normalize(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), ".exe")
}
