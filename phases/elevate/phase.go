// Package elevate establishes whether the process holds administrative
// rights and stops the run early when later phases would fail without them.
package elevate

import (
	"context"

	"github.com/lunatools/luna-setup/phases"
	"github.com/lunatools/luna-setup/utils/faults"
	"github.com/lunatools/luna-setup/utils/privilege"
)

const phaseID = "elevate"

// ContextKeyElevated records whether the run holds admin rights.
const ContextKeyElevated = "elevate:granted"

// Phase checks the process token.
type Phase struct {
	gate *privilege.Gate
}

// New creates the elevation phase.
func New() *Phase {
	return &Phase{gate: privilege.New()}
}

// WithGate swaps the privilege gate (for tests).
func (p *Phase) WithGate(g *privilege.Gate) *Phase {
	if g != nil {
		p.gate = g
	}
	return p
}

func (p *Phase) Metadata() phases.PhaseMetadata {
	return phases.PhaseMetadata{
		ID:          phaseID,
		Title:       "Administrator rights",
		Description: "Confirm the process runs with administrative privileges.",
		Required:    true,
		Tags:        []string{"checks"},
	}
}

func (p *Phase) Run(_ context.Context, rc *phases.RunContext) error {
	if rc.Options.SkipAdmin {
		rc.Set(ContextKeyElevated, false)
		return phases.SkipError{Reason: "administrator check disabled by flag"}
	}

	if !p.gate.Supports(privilege.FeatureElevation) {
		rc.Set(ContextKeyElevated, false)
		rc.Warnf("elevation is not supported on this platform; admin-only steps will use fallbacks")
		return nil
	}

	if p.gate.HasElevatedRights() {
		rc.Set(ContextKeyElevated, true)
		return nil
	}

	rc.Set(ContextKeyElevated, false)
	return faults.Permanent(AdminRequiredError{})
}

// AdminRequiredError means the installer was started without admin rights on
// a platform where they are required.
type AdminRequiredError struct{}

func (AdminRequiredError) Error() string {
	return "administrator privileges are required; re-run setup from an elevated prompt"
}
