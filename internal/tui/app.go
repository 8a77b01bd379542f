// internal/tui/app.go
//
// This is the main TUI for the Arc DAO wizard.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen

package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/arc-wizard/internal/config"
	"github.com/kingrea/arc-wizard/internal/deploy"
	"github.com/kingrea/arc-wizard/internal/logbook"
	"github.com/kingrea/arc-wizard/internal/migration"
	"github.com/kingrea/arc-wizard/internal/steps"
	"github.com/kingrea/arc-wizard/internal/wizard"
)

// appState represents which "screen" we're on
type appState int

const (
	stateMainMenu   appState = iota // Main menu with "New organization", etc.
	stateLoadParams                 // Path prompt for an existing parameter file
	stateWizard                     // Running the wizard steps
)

const (
	boardRefreshInterval = 3 * time.Second
	logPanelLines        = 8
)

const (
	menuNew    = "New organization"
	menuResume = "Resume draft"
	menuLoad   = "Load parameters"
	menuExit   = "Exit"
)

var phaseOrder = []wizard.Phase{
	wizard.PhaseNaming,
	wizard.PhaseMembers,
	wizard.PhaseSchemes,
	wizard.PhaseReview,
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithMigrator overrides the migrator built from the project configuration.
func WithMigrator(m deploy.Migrator) AppOption {
	return func(a *App) {
		if m != nil {
			a.migrator = m
		}
	}
}

type draftSnapshotMsg struct {
	phase   wizard.Phase
	meta    wizard.Meta
	hasMeta bool
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	state    appState
	config   *config.Config
	draft    *wizard.Draft
	logbook  *logbook.Logbook
	migrator deploy.Migrator

	wizardView *wizardView
	pathInput  textinput.Model

	// UI components
	mainMenu      list.Model
	statusMsg     string
	lastLogStatus string

	width  int
	height int

	cachedPhase wizard.Phase
	meta        wizard.Meta
	hasMeta     bool
}

// menuItem implements list.Item interface for our menu items
type menuItem struct {
	title string
	desc  string
}

func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }
func (i menuItem) FilterValue() string { return i.title }

// NewApp creates a new App instance
func NewApp(projectDir string, opts ...AppOption) (*App, error) {
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}
	draft := wizard.New(cfg.DraftDir())
	lb, err := logbook.New(filepath.Join(cfg.LogsDir(), "journey.log"))
	if err == nil {
		lb.Info("Session opened · draft phase: %s · network %s", draft.CurrentPhase().FriendlyName(), cfg.Network())
	}

	mainMenu := list.New(buildMainMenu(draft.CurrentPhase()), list.NewDefaultDelegate(), 0, 0)
	mainMenu.Title = "⬡ ARC DAO WIZARD"
	mainMenu.SetShowStatusBar(false)
	mainMenu.SetFilteringEnabled(false)

	pathInput := steps.NewInput(cfg.ExportPath(), 256)

	app := &App{
		state:       stateMainMenu,
		config:      cfg,
		draft:       draft,
		logbook:     lb,
		migrator:    migratorFromConfig(cfg),
		mainMenu:    mainMenu,
		pathInput:   pathInput,
		cachedPhase: draft.CurrentPhase(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	app.refreshDraftInfo(app.snapshot())
	return app, nil
}

// migratorFromConfig returns nil when no migration command is configured;
// the review step then refuses to deploy.
func migratorFromConfig(cfg *config.Config) deploy.Migrator {
	m := cfg.Project.Migration
	if strings.TrimSpace(m.Command) == "" {
		return nil
	}
	return &deploy.TranscriptMigrator{
		Command: deploy.CommandMigrator{
			Command: m.Command,
			Args:    m.Args,
			Network: cfg.Network(),
			Dir:     cfg.ProjectDir,
			State:   deploy.NewStateStore(cfg.StateDir()),
		},
		LogDir: cfg.LogsDir(),
	}
}

// buildMainMenu creates the main menu items based on draft state
func buildMainMenu(phase wizard.Phase) []list.Item {
	items := []list.Item{}

	if phase.IsResumable() {
		items = append(items, menuItem{
			title: fmt.Sprintf("%s (%s)", menuResume, phase.FriendlyName()),
			desc:  "Continue from where you left off",
		})
	}

	newDesc := "Name, members and governance of a new DAO"
	if phase != wizard.PhaseNone {
		newDesc = "Start over; the current draft is discarded"
	}
	items = append(items,
		menuItem{title: menuNew, desc: newDesc},
		menuItem{title: menuLoad, desc: "Edit an exported migration parameter file"},
		menuItem{title: menuExit, desc: "Quit the wizard"},
	)
	return items
}

func (a *App) stepContext() *steps.StepContext {
	return &steps.StepContext{
		Config:   a.config,
		Draft:    a.draft,
		Logbook:  a.logbook,
		Migrator: a.migrator,
	}
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

func (a *App) logError(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Error(format, args...)
}

func (a *App) logProgress(status string) {
	status = strings.TrimSpace(status)
	if status == "" || status == a.lastLogStatus {
		return
	}
	a.lastLogStatus = status
	a.logInfo(status)
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return a.scheduleDraftRefresh()
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.mainMenu.SetSize(max(0, msg.Width-6), max(0, msg.Height-10))
		return a, nil

	case draftSnapshotMsg:
		a.refreshDraftInfo(msg)
		return a, a.scheduleDraftRefresh()

	case wizardExitMsg:
		model, cmd := a.returnToMainMenu()
		if msg.status != "" {
			a.statusMsg = msg.status
			a.logProgress(msg.status)
		}
		return model, cmd

	case tea.KeyMsg:
		switch a.state {
		case stateWizard:
			// Steps own every key while active, including ctrl+c, so a
			// running deploy can be cancelled instead of abandoned.
			return a, a.wizardView.Update(msg)
		case stateLoadParams:
			return a.updateLoadParams(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return a, tea.Quit
		case "enter":
			return a.handleMainMenuSelection()
		}
	}

	switch a.state {
	case stateMainMenu:
		var cmd tea.Cmd
		a.mainMenu, cmd = a.mainMenu.Update(msg)
		return a, cmd
	case stateWizard:
		if a.wizardView != nil {
			return a, a.wizardView.Update(msg)
		}
	}
	return a, nil
}

// handleMainMenuSelection processes menu item selection
func (a *App) handleMainMenuSelection() (tea.Model, tea.Cmd) {
	item, ok := a.mainMenu.SelectedItem().(menuItem)
	if !ok {
		return a, nil
	}

	switch {
	case item.title == menuNew:
		a.logInfo("Menu · New organization selected")
		meta, err := a.draft.Start(a.config.Network())
		if err != nil {
			a.statusMsg = fmt.Sprintf("Could not start a draft: %v", err)
			a.logError("Draft start failed: %v", err)
			return a, nil
		}
		a.meta, a.hasMeta = meta, true
		return a.startWizard(wizard.PhaseNaming)

	case strings.HasPrefix(item.title, menuResume):
		phase := a.draft.CurrentPhase()
		a.logInfo("Menu · Resume draft selected (%s)", phase.FriendlyName())
		return a.startWizard(phase)

	case item.title == menuLoad:
		a.logInfo("Menu · Load parameters selected")
		a.state = stateLoadParams
		a.pathInput.SetValue(a.config.ExportPath())
		a.pathInput.CursorEnd()
		a.pathInput.Focus()
		a.statusMsg = "Path to a migration parameter file · enter to load · esc to cancel"
		return a, nil

	case item.title == menuExit:
		a.logInfo("Menu · Exit selected")
		return a, tea.Quit
	}

	return a, nil
}

func (a *App) updateLoadParams(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit
	case "esc":
		a.pathInput.Blur()
		return a.returnToMainMenu()
	case "enter":
		path := strings.TrimSpace(a.pathInput.Value())
		if err := a.loadParams(path); err != nil {
			a.statusMsg = err.Error()
			a.logError("Load parameters failed: %v", err)
			return a, nil
		}
		a.pathInput.Blur()
		a.logInfo("Loaded parameters from %s", path)
		return a.startWizard(wizard.PhaseReview)
	}
	var cmd tea.Cmd
	a.pathInput, cmd = a.pathInput.Update(msg)
	return a, cmd
}

// loadParams seeds the draft from a parameter file. Schemes that match no
// preset at the configured speed are kept as custom.
func (a *App) loadParams(path string) error {
	if path == "" {
		return fmt.Errorf("a path is required")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.config.ProjectDir, path)
	}
	params, err := migration.Load(path)
	if err != nil {
		return err
	}
	if err := a.draft.Seed(params, a.config.DefaultSpeed()); err != nil {
		return err
	}
	meta, err := a.draft.Meta()
	if err == nil {
		a.meta, a.hasMeta = meta, true
	}
	return nil
}

// startWizard hosts the step for phase.
func (a *App) startWizard(phase wizard.Phase) (tea.Model, tea.Cmd) {
	if !phase.IsResumable() {
		phase = wizard.PhaseNaming
	}
	a.state = stateWizard
	a.wizardView = newWizardView(a)
	a.cachedPhase = phase
	return a, a.wizardView.Start(phase)
}

// returnToMainMenu transitions back to the main menu
func (a *App) returnToMainMenu() (tea.Model, tea.Cmd) {
	a.state = stateMainMenu
	a.wizardView = nil
	a.refreshDraftInfo(a.snapshot())
	a.logInfo("Returned to main menu (phase: %s)", a.cachedPhase.FriendlyName())
	a.statusMsg = ""

	// Refresh menu items (draft state may have changed)
	a.mainMenu.SetItems(buildMainMenu(a.cachedPhase))
	a.mainMenu.Select(0)
	return a, nil
}

func (a *App) snapshot() draftSnapshotMsg {
	msg := draftSnapshotMsg{phase: a.draft.CurrentPhase()}
	if meta, err := a.draft.Meta(); err == nil {
		msg.meta, msg.hasMeta = meta, true
	}
	return msg
}

func (a *App) scheduleDraftRefresh() tea.Cmd {
	return tea.Tick(boardRefreshInterval, func(time.Time) tea.Msg {
		return a.snapshot()
	})
}

func (a *App) refreshDraftInfo(msg draftSnapshotMsg) {
	if a.state != stateWizard {
		a.cachedPhase = msg.phase
	}
	a.meta, a.hasMeta = msg.meta, msg.hasMeta
}

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	rightWidth := max(32, width/3)
	leftWidth := width - rightWidth - 4
	if leftWidth < 40 {
		leftWidth = width - 4
	}
	if leftWidth < 20 {
		leftWidth = width
		rightWidth = 0
	}
	if a.state == stateMainMenu {
		a.mainMenu.SetSize(max(20, leftWidth-4), max(10, a.height-10))
	}
	var content string
	switch a.state {
	case stateMainMenu:
		content = a.mainMenu.View()
	case stateLoadParams:
		content = lipgloss.JoinVertical(lipgloss.Left,
			steps.LabelStyle.Render("Load parameters"),
			"",
			a.pathInput.View(),
		)
	case stateWizard:
		if a.wizardView != nil {
			content = a.wizardView.View()
		}
	}
	return a.renderStatusBoard(content, leftWidth, rightWidth)
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(logPanelLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("LOG · %s · %d entries", fileName, total))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
}

func (a *App) renderStatusBoard(mainContent string, leftWidth, rightWidth int) string {
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#6BCB77")).
		MarginBottom(1).
		Render("⬡ ARC")
	left := lipgloss.JoinVertical(lipgloss.Left,
		a.renderPhasePanel(leftWidth-4),
		"",
		a.renderMainArea(mainContent, leftWidth-4),
	)
	leftBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Width(max(20, leftWidth)).
		Render(left)
	var body string
	if rightWidth > 0 {
		rightBox := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1).
			Width(max(20, rightWidth)).
			Render(a.renderProgressPanel(rightWidth - 4))
		body = lipgloss.JoinHorizontal(lipgloss.Top, leftBox, rightBox)
	} else {
		body = leftBox
	}
	sections := []string{header, body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginTop(1).
		Render(a.statusMsg)
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func (a *App) renderPhasePanel(width int) string {
	phase := a.cachedPhase
	lines := []string{fmt.Sprintf("Phase: %s", phaseLine(phase))}
	if next := upcomingPhases(phase); len(next) > 0 {
		var names []string
		for _, p := range next {
			names = append(names, p.FriendlyName())
		}
		lines = append(lines, fmt.Sprintf("Next: %s", strings.Join(names, " → ")))
	}
	draftLine := "Draft: none"
	if a.hasMeta {
		draftLine = fmt.Sprintf("Draft %s · started %s", shortID(a.meta.ID), a.meta.Created.Local().Format("2006-01-02 15:04"))
	}
	lines = append(lines, draftLine, fmt.Sprintf("Network: %s", a.config.Network()))
	return lipgloss.NewStyle().Width(max(20, width)).Render(strings.Join(lines, "\n"))
}

func (a *App) renderMainArea(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		content = "Ready to configure a DAO."
	}
	return lipgloss.NewStyle().Width(max(20, width)).Render(content)
}

func (a *App) renderProgressPanel(width int) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render("Progress")
	current := a.cachedPhase
	var rows []string
	for _, p := range phaseOrder {
		mark := "○"
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
		switch {
		case current == wizard.PhaseDeployed || p < current:
			mark = "✓"
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
		case p == current:
			mark = "›"
			style = lipgloss.NewStyle().Bold(true)
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s %s", mark, p.FriendlyName())))
	}
	if current == wizard.PhaseDeployed {
		if res, ok, err := a.draft.Deployment(); err == nil && ok {
			rows = append(rows, "", fmt.Sprintf("Avatar %s", res.Avatar.Hex()))
		}
	}
	return lipgloss.NewStyle().Width(max(20, width)).Render(lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(rows, "\n")))
}

func phaseLine(p wizard.Phase) string {
	pos, total := phasePosition(p)
	if pos >= total {
		return p.FriendlyName()
	}
	return fmt.Sprintf("%s (%d/%d)", p.FriendlyName(), pos+1, total)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func phasePosition(p wizard.Phase) (int, int) {
	for i, phase := range phaseOrder {
		if p == phase {
			return i, len(phaseOrder)
		}
	}
	return len(phaseOrder), len(phaseOrder)
}

func upcomingPhases(p wizard.Phase) []wizard.Phase {
	pos, _ := phasePosition(p)
	if pos+1 >= len(phaseOrder) {
		return nil
	}
	return phaseOrder[pos+1:]
}
