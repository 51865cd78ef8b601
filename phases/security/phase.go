// Package security registers antivirus exclusions for the install root so
// the injector binaries are not quarantined mid-install.
package security

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lunatools/luna-setup/phases"
	"github.com/lunatools/luna-setup/utils/privilege"
	"github.com/lunatools/luna-setup/utils/retry"
)

const (
	phaseID        = "security_exclusions"
	defaultTimeout = 60 * time.Second
)

// Phase adds a Microsoft Defender path exclusion for the install root.
type Phase struct {
	gate   *privilege.Gate
	policy retry.Policy
}

// New creates the security exclusion phase.
func New() *Phase {
	return &Phase{
		gate:   privilege.New(),
		policy: retry.DefaultPolicy,
	}
}

// WithGate swaps the privilege gate (for tests).
func (p *Phase) WithGate(g *privilege.Gate) *Phase {
	if g != nil {
		p.gate = g
	}
	return p
}

// WithPolicy overrides the retry policy (for tests).
func (p *Phase) WithPolicy(policy retry.Policy) *Phase {
	p.policy = policy
	return p
}

func (p *Phase) Metadata() phases.PhaseMetadata {
	return phases.PhaseMetadata{
		ID:          phaseID,
		Title:       "Antivirus exclusions",
		Description: "Exclude the install root from Microsoft Defender scanning.",
		Required:    false,
		Tags:        []string{"security"},
	}
}

func (p *Phase) Run(ctx context.Context, rc *phases.RunContext) error {
	if rc.Options.SkipSecurity {
		return phases.SkipError{Reason: "security exclusions disabled by flag"}
	}

	command := fmt.Sprintf("Add-MpPreference -ExclusionPath %s", psQuote(rc.Paths.InstallRoot))
	if rc.Options.DryRun {
		return phases.SkipError{Reason: "dry run: would run " + command}
	}

	timeout := rc.Options.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	primary := func(ctx context.Context) error {
		return rc.Retry.Do(ctx, p.policy, func(ctx context.Context) error {
			result, err := p.gate.RunElevated(ctx, command, timeout)
			if err != nil {
				return err
			}
			if !result.Success {
				rc.Warnf("%s", result.Message)
			}
			return nil
		})
	}
	fallback := func(context.Context) error {
		rc.Warnf("antivirus exclusions are unavailable on this platform; add %s to your scanner's exclusion list manually", rc.Paths.InstallRoot)
		return nil
	}

	return p.gate.WithFeatureFallback(ctx, privilege.FeatureSecurityExclusions, primary, fallback)
}

// psQuote single-quotes a value for PowerShell, doubling embedded quotes.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
