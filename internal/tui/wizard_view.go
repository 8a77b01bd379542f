package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/arc-wizard/internal/steps"
	"github.com/kingrea/arc-wizard/internal/steps/members"
	"github.com/kingrea/arc-wizard/internal/steps/naming"
	"github.com/kingrea/arc-wizard/internal/steps/review"
	"github.com/kingrea/arc-wizard/internal/steps/schemes"
	"github.com/kingrea/arc-wizard/internal/wizard"
)

var stepHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))

// wizardExitMsg returns the app to the main menu.
type wizardExitMsg struct {
	status string
}

// wizardView hosts one step at a time and moves between them as steps
// complete or go back.
type wizardView struct {
	app  *App
	ctx  *steps.StepContext
	step steps.Step
}

func newWizardView(app *App) *wizardView {
	return &wizardView{app: app, ctx: app.stepContext()}
}

func newStep(phase wizard.Phase) steps.Step {
	switch phase {
	case wizard.PhaseNaming:
		return naming.New()
	case wizard.PhaseMembers:
		return members.New()
	case wizard.PhaseSchemes:
		return schemes.New()
	case wizard.PhaseReview:
		return review.New()
	default:
		return nil
	}
}

// Start replaces the current step with the one for phase.
func (v *wizardView) Start(phase wizard.Phase) tea.Cmd {
	step := newStep(phase)
	if step == nil {
		return exitWizard(fmt.Sprintf("Nothing to do in phase %s", phase))
	}
	v.step = step
	v.app.cachedPhase = phase
	v.app.logProgress(fmt.Sprintf("Step · %s", phase.FriendlyName()))
	return step.Init(v.ctx)
}

func (v *wizardView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case steps.StepCompleteMsg:
		if m.NextPhase == wizard.PhaseDeployed {
			return exitWizard(v.deployedStatus())
		}
		return v.Start(m.NextPhase)

	case steps.StepBackMsg:
		prev := m.Phase - 1
		if prev <= wizard.PhaseNone {
			return exitWizard("Draft saved. Resume it from the menu.")
		}
		return v.Start(prev)
	}
	if v.step == nil {
		return nil
	}
	var cmd tea.Cmd
	v.step, cmd = v.step.Update(msg)
	return cmd
}

func (v *wizardView) deployedStatus() string {
	res, ok, err := v.ctx.Draft.Deployment()
	if err != nil || !ok {
		return "Organization deployed."
	}
	return fmt.Sprintf("%s deployed · Avatar %s", res.Name, res.Avatar.Hex())
}

func (v *wizardView) View() string {
	if v.step == nil {
		return ""
	}
	pos, total := phasePosition(v.step.Phase())
	header := stepHeaderStyle.Render(fmt.Sprintf("Step %d of %d · %s", pos+1, total, v.step.Name()))
	return strings.Join([]string{header, "", v.step.View()}, "\n")
}

func exitWizard(status string) tea.Cmd {
	return func() tea.Msg {
		return wizardExitMsg{status: status}
	}
}
