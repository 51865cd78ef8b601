package tui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/lunatools/luna-setup/phases"
	"github.com/lunatools/luna-setup/utils/ledger"
)

// ConsoleObserver prints pipeline events as plain lines, for runs without a
// usable terminal or with the interactive UI disabled.
type ConsoleObserver struct {
	out io.Writer
}

// NewConsoleObserver writes events to out.
func NewConsoleObserver(out io.Writer) *ConsoleObserver {
	return &ConsoleObserver{out: out}
}

func (c *ConsoleObserver) PhaseStarted(meta phases.PhaseMetadata) {
	fmt.Fprintf(c.out, "==> %s\n", meta.Title)
}

func (c *ConsoleObserver) PhaseFinished(result phases.PhaseResult) {
	fmt.Fprintf(c.out, "    %s", statusDisplay(result.Status.String()))
	if result.Detail != "" {
		fmt.Fprintf(c.out, " (%s)", result.Detail)
	}
	fmt.Fprintln(c.out)
	for _, w := range result.Warnings {
		fmt.Fprintf(c.out, "    warning: %s\n", w)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(c.out, "    error: %s\n", e)
	}
}

func (c *ConsoleObserver) RetryAttempted(attempt int, err error) {
	fmt.Fprintf(c.out, "    attempt %d failed (%v), retrying\n", attempt, err)
}

func (c *ConsoleObserver) RollbackFinished(report ledger.Report) {
	fmt.Fprintf(c.out, "    %s\n", report.Summary())
}

// ConsoleConfirm answers confirmation prompts from an input stream,
// defaulting to no on anything that is not an explicit yes.
type ConsoleConfirm struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsoleConfirm reads answers from in and writes prompts to out.
func NewConsoleConfirm(in io.Reader, out io.Writer) *ConsoleConfirm {
	return &ConsoleConfirm{in: bufio.NewReader(in), out: out}
}

func (c *ConsoleConfirm) Confirm(meta phases.PhaseMetadata, prompt string) (bool, error) {
	fmt.Fprintf(c.out, "%s: %s [y/N] ", meta.Title, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// AlwaysConfirm grants every confirmation request, used with --force.
type AlwaysConfirm struct{}

func (AlwaysConfirm) Confirm(phases.PhaseMetadata, string) (bool, error) {
	return true, nil
}
