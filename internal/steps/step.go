// internal/steps/step.go
//
// Defines the Step interface that every wizard step implements.
// Steps are self-contained and communicate through the draft files.

package steps

import (
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/arc-wizard/internal/config"
	"github.com/kingrea/arc-wizard/internal/deploy"
	"github.com/kingrea/arc-wizard/internal/logbook"
	"github.com/kingrea/arc-wizard/internal/wizard"
)

// StepContext provides shared context for all steps
type StepContext struct {
	Config   *config.Config
	Draft    *wizard.Draft
	Logbook  *logbook.Logbook
	Migrator deploy.Migrator
}

// Step defines the interface that all wizard steps must implement
type Step interface {
	// Name returns the step's display name
	Name() string

	// Phase returns which wizard phase this step handles
	Phase() wizard.Phase

	// Init loads any saved answers and returns a startup command
	Init(ctx *StepContext) tea.Cmd

	// Update handles messages and returns the updated step plus any commands.
	// A finished step emits a StepCompleteMsg.
	Update(msg tea.Msg) (Step, tea.Cmd)

	// View renders the step's current state
	View() string

	// IsComplete returns true once the step's answers are saved
	IsComplete() bool
}

// StepCompleteMsg signals that a step has saved its answers and the wizard
// should advance.
type StepCompleteMsg struct {
	NextPhase wizard.Phase
}

// StepBackMsg asks the host to return to the previous step.
type StepBackMsg struct {
	Phase wizard.Phase
}

// StepErrorMsg signals an error occurred during step execution
type StepErrorMsg struct {
	Error error
}

// BaseStep provides common functionality for all steps
type BaseStep struct {
	ctx       *StepContext
	name      string
	phase     wizard.Phase
	complete  bool
	statusMsg string
}

// NewBaseStep creates a new BaseStep with the given name and phase
func NewBaseStep(name string, phase wizard.Phase) BaseStep {
	return BaseStep{name: name, phase: phase}
}

// Name returns the step's display name
func (s *BaseStep) Name() string {
	return s.name
}

// Phase returns which wizard phase this step handles
func (s *BaseStep) Phase() wizard.Phase {
	return s.phase
}

// IsComplete returns true if the step has finished
func (s *BaseStep) IsComplete() bool {
	return s.complete
}

// SetComplete marks the step as complete
func (s *BaseStep) SetComplete(complete bool) {
	s.complete = complete
}

// Context returns the step context
func (s *BaseStep) Context() *StepContext {
	return s.ctx
}

// SetContext sets the step context
func (s *BaseStep) SetContext(ctx *StepContext) {
	s.ctx = ctx
}

// StatusMsg returns the current status message
func (s *BaseStep) StatusMsg() string {
	return s.statusMsg
}

// SetStatusMsg sets the status message
func (s *BaseStep) SetStatusMsg(msg string) {
	s.statusMsg = msg
}

// LogInfo writes to the journey log when one is attached.
func (s *BaseStep) LogInfo(format string, args ...any) {
	if s.ctx == nil || s.ctx.Logbook == nil {
		return
	}
	s.ctx.Logbook.WithScope(s.phase.String()).Info(format, args...)
}

// LogWarn writes a warning to the journey log when one is attached.
func (s *BaseStep) LogWarn(format string, args ...any) {
	if s.ctx == nil || s.ctx.Logbook == nil {
		return
	}
	s.ctx.Logbook.WithScope(s.phase.String()).Warn(format, args...)
}

// Complete marks the step done and returns the command announcing it.
func (s *BaseStep) Complete() tea.Cmd {
	s.complete = true
	next := s.phase.Next()
	return func() tea.Msg {
		return StepCompleteMsg{NextPhase: next}
	}
}

// Back returns the command asking the host for the previous step.
func (s *BaseStep) Back() tea.Cmd {
	phase := s.phase
	return func() tea.Msg {
		return StepBackMsg{Phase: phase}
	}
}

// NewInput builds a text input with a steady cursor.
func NewInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Prompt = ""
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}
