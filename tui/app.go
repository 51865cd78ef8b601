// Package tui renders the setup pipeline as an interactive terminal UI. It
// bridges the phase manager's observer and confirmation callbacks onto
// Bubble Tea messages so the pipeline can run on its own goroutine while the
// UI stays responsive.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lunatools/luna-setup/phases"
	"github.com/lunatools/luna-setup/utils/ledger"
)

var (
	// ErrNoPhases indicates no phases were supplied when constructing an App.
	ErrNoPhases = errors.New("tui: at least one phase must be registered")
	// ErrProgramRunning reports that Start was invoked while the program is
	// already running.
	ErrProgramRunning = errors.New("tui: program already running")
)

// Config controls how an App is assembled.
type Config struct {
	Phases         []phases.Phase
	RunContext     *phases.RunContext
	ManagerOptions []phases.ManagerOption
	ProgramOptions []tea.ProgramOption
}

// Option mutates Config during construction.
type Option func(*Config)

// WithPhases sets the ordered phases the app should execute.
func WithPhases(list ...phases.Phase) Option {
	return func(cfg *Config) {
		cfg.Phases = append(cfg.Phases, list...)
	}
}

// WithRunContext supplies the run context the pipeline executes against.
func WithRunContext(rc *phases.RunContext) Option {
	return func(cfg *Config) {
		cfg.RunContext = rc
	}
}

// WithManagerOptions appends custom manager options.
func WithManagerOptions(opts ...phases.ManagerOption) Option {
	return func(cfg *Config) {
		cfg.ManagerOptions = append(cfg.ManagerOptions, opts...)
	}
}

// WithProgramOptions appends tea.Program options.
func WithProgramOptions(opts ...tea.ProgramOption) Option {
	return func(cfg *Config) {
		cfg.ProgramOptions = append(cfg.ProgramOptions, opts...)
	}
}

// App hosts the Bubble Tea-driven setup runner.
type App struct {
	cfg      Config
	mu       sync.Mutex
	program  *tea.Program
	inFlight bool
	summary  *phases.RunSummary
}

// New constructs an App from the provided options.
func New(opts ...Option) (*App, error) {
	cfg := Config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if len(cfg.Phases) == 0 {
		return nil, ErrNoPhases
	}
	if cfg.RunContext == nil {
		cfg.RunContext = phases.NewRunContext(phases.Options{}, phases.Paths{})
	}
	return &App{cfg: cfg}, nil
}

// Start runs the pipeline under the TUI until it finishes or the user quits.
func (a *App) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	m, err := newModel(a.cfg, ctx)
	if err != nil {
		return err
	}
	program := tea.NewProgram(m, a.cfg.ProgramOptions...)

	a.mu.Lock()
	if a.inFlight {
		a.mu.Unlock()
		return ErrProgramRunning
	}
	a.program = program
	a.inFlight = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.program = nil
		a.inFlight = false
		a.mu.Unlock()
	}()

	final, runErr := program.Run()
	if runErr != nil {
		return runErr
	}
	if fm, ok := final.(*model); ok {
		a.mu.Lock()
		a.summary = fm.summary
		a.mu.Unlock()
	}
	return nil
}

// Summary returns the run summary once the pipeline has finished.
func (a *App) Summary() *phases.RunSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.summary
}

// Stop signals the running program (if any) to exit.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.program != nil {
		a.program.Quit()
	}
}

// ---- Pipeline events ----

type phaseStartedMsg struct {
	meta phases.PhaseMetadata
}

type phaseFinishedMsg struct {
	result phases.PhaseResult
}

type retryMsg struct {
	attempt int
	err     error
}

type rollbackMsg struct {
	report ledger.Report
}

type confirmRequestMsg struct {
	meta   phases.PhaseMetadata
	prompt string
}

type pipelineDoneMsg struct {
	summary *phases.RunSummary
	err     error
}

// eventBridge adapts the manager's synchronous callbacks onto a message
// channel the Bubble Tea loop drains.
type eventBridge struct {
	events   chan tea.Msg
	requests chan confirmRequestMsg
	answers  chan confirmAnswer
}

type confirmAnswer struct {
	granted bool
	err     error
}

func newEventBridge() *eventBridge {
	return &eventBridge{
		events:   make(chan tea.Msg),
		requests: make(chan confirmRequestMsg),
		answers:  make(chan confirmAnswer),
	}
}

func (b *eventBridge) PhaseStarted(meta phases.PhaseMetadata) {
	b.events <- phaseStartedMsg{meta: meta}
}

func (b *eventBridge) PhaseFinished(result phases.PhaseResult) {
	b.events <- phaseFinishedMsg{result: result}
}

func (b *eventBridge) RetryAttempted(attempt int, err error) {
	b.events <- retryMsg{attempt: attempt, err: err}
}

func (b *eventBridge) RollbackFinished(report ledger.Report) {
	b.events <- rollbackMsg{report: report}
}

func (b *eventBridge) Confirm(meta phases.PhaseMetadata, prompt string) (bool, error) {
	b.requests <- confirmRequestMsg{meta: meta, prompt: prompt}
	answer := <-b.answers
	return answer.granted, answer.err
}

func waitEventCmd(bridge *eventBridge) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-bridge.events
		if !ok {
			return nil
		}
		return msg
	}
}

func waitConfirmCmd(bridge *eventBridge) tea.Cmd {
	return func() tea.Msg {
		req, ok := <-bridge.requests
		if !ok {
			return nil
		}
		return req
	}
}

func runPipelineCmd(ctx context.Context, manager *phases.Manager, rc *phases.RunContext) tea.Cmd {
	return func() tea.Msg {
		summary, err := manager.Run(ctx, rc)
		return pipelineDoneMsg{summary: summary, err: err}
	}
}

// ---- Model ----

type phaseState struct {
	meta   phases.PhaseMetadata
	status string
	detail string
	logs   []string
}

type model struct {
	manager *phases.Manager
	rc      *phases.RunContext
	bridge  *eventBridge
	runCtx  context.Context

	states map[string]*phaseState
	order  []string

	spinner  spinner.Model
	selected int

	confirming    bool
	activeConfirm *confirmRequestMsg

	summary   *phases.RunSummary
	running   bool
	statusMsg string

	width  int
	height int
}

func newModel(cfg Config, runCtx context.Context) (*model, error) {
	bridge := newEventBridge()

	managerOpts := append([]phases.ManagerOption{}, cfg.ManagerOptions...)
	managerOpts = append(managerOpts,
		phases.WithObserver(bridge),
		phases.WithConfirmHandler(bridge),
	)
	manager := phases.NewManager(managerOpts...)
	if err := manager.Register(cfg.Phases...); err != nil {
		return nil, err
	}

	states := make(map[string]*phaseState, len(cfg.Phases))
	order := make([]string, 0, len(cfg.Phases))
	for _, ph := range cfg.Phases {
		meta := ph.Metadata()
		states[meta.ID] = &phaseState{meta: meta, status: "pending"}
		order = append(order, meta.ID)
	}

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	return &model{
		manager:   manager,
		rc:        cfg.RunContext,
		bridge:    bridge,
		runCtx:    runCtx,
		states:    states,
		order:     order,
		spinner:   sp,
		statusMsg: "Starting setup…",
		running:   true,
	}, nil
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(
		runPipelineCmd(m.runCtx, m.manager, m.rc),
		waitEventCmd(m.bridge),
		waitConfirmCmd(m.bridge),
		m.spinner.Tick,
	)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case phaseStartedMsg:
		if state, ok := m.states[msg.meta.ID]; ok {
			state.status = "running"
			m.appendLog(state, msg.meta.Title+" started")
		}
		m.statusMsg = "Running " + msg.meta.Title
		return m, tea.Batch(waitEventCmd(m.bridge), m.spinner.Tick)

	case phaseFinishedMsg:
		m.applyResult(msg.result)
		return m, tea.Batch(waitEventCmd(m.bridge), m.spinner.Tick)

	case retryMsg:
		m.statusMsg = fmt.Sprintf("Attempt %d failed (%v), retrying…", msg.attempt, msg.err)
		return m, waitEventCmd(m.bridge)

	case rollbackMsg:
		m.statusMsg = fmt.Sprintf("Rolled back: %d resources undone, %d failed",
			len(msg.report.Undone), len(msg.report.Failed))
		return m, waitEventCmd(m.bridge)

	case confirmRequestMsg:
		m.confirming = true
		m.activeConfirm = &msg
		m.statusMsg = msg.meta.Title + " needs confirmation"
		return m, nil

	case pipelineDoneMsg:
		m.running = false
		m.summary = msg.summary
		if msg.err != nil {
			m.statusMsg = msg.err.Error()
		} else {
			m.statusMsg = "Setup completed. Press q to exit, c to copy the summary"
		}
		return m, nil
	}

	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirming {
		switch strings.ToLower(msg.String()) {
		case "y", "enter":
			return m, m.answerConfirm(true, nil)
		case "n", "esc":
			return m, m.answerConfirm(false, nil)
		case "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		if m.running && msg.String() == "q" {
			m.statusMsg = "Setup is still running; press Ctrl+C to abort"
			return m, nil
		}
		return m, tea.Quit
	case "up", "k":
		m.moveSelection(-1)
	case "down", "j":
		m.moveSelection(1)
	case "c":
		m.copySummary()
	}
	return m, nil
}

func (m *model) answerConfirm(granted bool, err error) tea.Cmd {
	m.confirming = false
	m.activeConfirm = nil
	if granted {
		m.statusMsg = "Confirmed"
	} else {
		m.statusMsg = "Declined"
	}
	bridge := m.bridge
	return tea.Batch(
		func() tea.Msg {
			bridge.answers <- confirmAnswer{granted: granted, err: err}
			return nil
		},
		waitConfirmCmd(bridge),
	)
}

func (m *model) applyResult(result phases.PhaseResult) {
	state, ok := m.states[result.Phase.ID]
	if !ok {
		return
	}
	state.status = result.Status.String()
	state.detail = result.Detail
	switch result.Status {
	case phases.StatusSuccess:
		m.appendLog(state, result.Phase.Title+" completed")
	case phases.StatusSkipped:
		m.appendLog(state, "skipped: "+result.Detail)
	case phases.StatusSoftFailure:
		for _, w := range result.Warnings {
			m.appendLog(state, "warning: "+w)
		}
	case phases.StatusFatalFailure:
		for _, e := range result.Errors {
			m.appendLog(state, "error: "+e)
		}
	}
	m.statusMsg = fmt.Sprintf("%s: %s", result.Phase.Title, statusDisplay(result.Status.String()))
}

func (m *model) moveSelection(delta int) {
	if len(m.order) == 0 {
		return
	}
	m.selected = (m.selected + delta + len(m.order)) % len(m.order)
}

func (m *model) copySummary() {
	if m.summary == nil {
		m.statusMsg = "No summary to copy yet"
		return
	}
	if err := clipboard.WriteAll(m.summary.Render()); err != nil {
		m.statusMsg = "Failed to copy summary"
		return
	}
	m.statusMsg = "Summary copied to clipboard"
}

func (m *model) appendLog(state *phaseState, line string) {
	stamp := time.Now().Format("15:04:05")
	state.logs = append(state.logs, fmt.Sprintf("[%s] %s", stamp, line))
	if len(state.logs) > 10 {
		state.logs = state.logs[len(state.logs)-10:]
	}
}

// ---- View ----

func (m *model) View() string {
	header := renderHeader(m.completedCount(), len(m.order))
	body := m.renderBody()
	sections := []string{header, body}

	if m.confirming && m.activeConfirm != nil {
		sections = append(sections, m.renderConfirmPanel())
	}
	sections = append(sections,
		statusBarStyle.Render(m.statusMsg),
		footerStyle.Render("↑/↓ or j/k move • c copy summary • q quit"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderHeader(done, total int) string {
	title := titleStyle.Render("Luna Setup")
	progress := subtitleStyle.Render(fmt.Sprintf("%d/%d phases complete", done, total))
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", progress)
}

func (m *model) renderBody() string {
	width := m.viewportWidth()
	list := m.renderPhaseList(width / 2)
	detail := m.renderDetail(width - width/2 - 2)
	gap := lipgloss.NewStyle().Width(2).Render(" ")
	return lipgloss.JoinHorizontal(lipgloss.Top, list, gap, detail)
}

func (m *model) renderPhaseList(width int) string {
	lines := make([]string, 0, len(m.order))
	for idx, id := range m.order {
		state := m.states[id]
		icon := statusIcon(state.status)
		if state.status == "running" {
			icon = m.spinner.View()
		}
		line := fmt.Sprintf("%s %s", icon, state.meta.Title)
		style := statusStyle(state.status)
		if idx == m.selected {
			style = style.Copy().Bold(true).Underline(true)
		}
		lines = append(lines, style.Render(line))
	}
	return panelStyle.Copy().Width(width).Render(strings.Join(lines, "\n"))
}

func (m *model) renderDetail(width int) string {
	if len(m.order) == 0 {
		return panelStyle.Copy().Width(width).Render("No phases registered")
	}
	state := m.states[m.order[m.selected]]

	parts := []string{
		detailTitleStyle.Render(state.meta.Title),
		infoTextStyle.Render(state.meta.Description),
		infoTextStyle.Render("Status: " + statusDisplay(state.status)),
	}
	if state.detail != "" {
		parts = append(parts, infoTextStyle.Render(state.detail))
	}
	if len(state.logs) > 0 {
		parts = append(parts, "")
		for _, line := range state.logs {
			parts = append(parts, logTextStyle.Render(line))
		}
	}
	return panelStyle.Copy().Width(width).Render(strings.Join(parts, "\n"))
}

func (m *model) renderConfirmPanel() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", m.activeConfirm.meta.Title)
	b.WriteString(m.activeConfirm.prompt)
	b.WriteString("\n\n[y] yes   [n] no")
	return confirmPanelStyle.Copy().Width(m.viewportWidth()).Render(b.String())
}

func (m *model) completedCount() int {
	count := 0
	for _, state := range m.states {
		switch state.status {
		case "success", "skipped":
			count++
		}
	}
	return count
}

func (m *model) viewportWidth() int {
	if m.width >= 60 {
		return m.width
	}
	return 100
}

var titleCaser = cases.Title(language.English)

func statusDisplay(status string) string {
	return titleCaser.String(status)
}

func statusIcon(status string) string {
	switch status {
	case "success":
		return "✔"
	case "skipped":
		return "↷"
	case "soft failure":
		return "!"
	case "fatal failure":
		return "✖"
	case "running":
		return "⟳"
	default:
		return "•"
	}
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case "success":
		return successTextStyle
	case "skipped":
		return subtitleStyle
	case "soft failure":
		return warnTextStyle
	case "fatal failure":
		return errorTextStyle
	case "running":
		return runningTextStyle
	default:
		return infoTextStyle
	}
}

var (
	titleStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7DD3FC"))
	subtitleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B"))
	panelStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#334155")).Padding(0, 1)
	confirmPanelStyle = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("#F59E0B")).Padding(0, 1).MarginTop(1)
	statusBarStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1).Background(lipgloss.Color("#0F172A")).Foreground(lipgloss.Color("#E2E8F0"))
	footerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B")).Padding(0, 1)
	detailTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FACC15"))
	infoTextStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#CBD5E1"))
	successTextStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ADE80"))
	warnTextStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBF24"))
	errorTextStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171"))
	runningTextStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FB923C")).Bold(true)
	logTextStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8"))
)
