package phases

import (
	"context"
)

// PhaseFunc represents the work performed by a SimplePhase.
type PhaseFunc func(ctx context.Context, rc *RunContext) error

// SimplePhase lets callers define phases with a metadata struct and a
// function instead of declaring a custom type for every phase.
type SimplePhase struct {
	meta PhaseMetadata
	run  PhaseFunc
}

// NewPhase constructs a SimplePhase, panicking if metadata is missing an ID
// or the provided function is nil.
func NewPhase(meta PhaseMetadata, run PhaseFunc) Phase {
	if meta.ID == "" {
		panic("phases: simple phase metadata must include an ID")
	}
	if run == nil {
		panic("phases: simple phase requires a run function")
	}
	return SimplePhase{meta: meta, run: run}
}

// Metadata returns the phase definition supplied at construction time.
func (p SimplePhase) Metadata() PhaseMetadata {
	return p.meta
}

// Run calls the PhaseFunc provided to NewPhase.
func (p SimplePhase) Run(ctx context.Context, rc *RunContext) error {
	return p.run(ctx, rc)
}
