// internal/steps/naming/naming.go
//
// Naming step: organization name, token name and token symbol.
// Output: .arcwizard/draft/naming.json

package naming

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/arc-wizard/internal/dao"
	"github.com/kingrea/arc-wizard/internal/steps"
	"github.com/kingrea/arc-wizard/internal/wizard"
)

const (
	fieldOrg = iota
	fieldToken
	fieldSymbol
	fieldCount
)

var fieldNames = [fieldCount]string{dao.FieldOrgName, dao.FieldTokenName, dao.FieldTokenSymbol}
var fieldLabels = [fieldCount]string{"Organization name", "Token name", "Token symbol"}

// Step collects the organization's names.
type Step struct {
	steps.BaseStep
	inputs    [fieldCount]textinput.Model
	focus     int
	errs      map[string]string
	suggested [fieldCount]string
	errorMsg  string
}

// New creates the naming step.
func New() *Step {
	s := &Step{BaseStep: steps.NewBaseStep("Name your organization", wizard.PhaseNaming)}
	s.inputs[fieldOrg] = steps.NewInput("Genesis Alpha", 64)
	s.inputs[fieldToken] = steps.NewInput("Genesis Alpha Token", 64)
	s.inputs[fieldSymbol] = steps.NewInput("GEN", 6)
	return s
}

// Init loads a previously saved answer.
func (s *Step) Init(ctx *steps.StepContext) tea.Cmd {
	s.SetContext(ctx)
	if ctx != nil && ctx.Draft != nil {
		saved, ok, err := ctx.Draft.LoadNaming()
		if err != nil {
			s.errorMsg = err.Error()
			s.LogWarn("Could not load saved names: %v", err)
		} else if ok {
			s.inputs[fieldOrg].SetValue(saved.OrgName)
			s.inputs[fieldToken].SetValue(saved.TokenName)
			s.inputs[fieldSymbol].SetValue(saved.TokenSymbol)
			for i := range s.inputs {
				s.inputs[i].CursorEnd()
			}
		}
	}
	s.setFocus(fieldOrg)
	s.SetStatusMsg("tab to move · enter to continue · esc to go back")
	s.LogInfo("Naming the organization")
	return nil
}

// Naming returns the current form values.
func (s *Step) Naming() dao.Naming {
	return dao.Naming{
		OrgName:     s.inputs[fieldOrg].Value(),
		TokenName:   s.inputs[fieldToken].Value(),
		TokenSymbol: s.inputs[fieldSymbol].Value(),
	}
}

// Update handles key input.
func (s *Step) Update(msg tea.Msg) (steps.Step, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return s, tea.Quit
		case "esc":
			return s, s.Back()
		case "tab", "down":
			s.setFocus((s.focus + 1) % fieldCount)
			return s, nil
		case "shift+tab", "up":
			s.setFocus((s.focus + fieldCount - 1) % fieldCount)
			return s, nil
		case "enter":
			if s.focus < fieldSymbol {
				s.setFocus(s.focus + 1)
				return s, nil
			}
			return s, s.submit()
		case "ctrl+s":
			return s, s.submit()
		}
		var cmd tea.Cmd
		before := s.inputs[fieldOrg].Value()
		s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
		if s.focus == fieldOrg && s.inputs[fieldOrg].Value() != before {
			s.applySuggestions()
		}
		delete(s.errs, fieldNames[s.focus])
		return s, cmd

	case namingSavedMsg:
		s.errorMsg = ""
		s.LogInfo("Saved names for %s (%s)", msg.naming.OrgName, msg.naming.TokenSymbol)
		s.SetStatusMsg(fmt.Sprintf("Saved %s", msg.naming.OrgName))
		return s, s.Complete()

	case steps.StepErrorMsg:
		s.errorMsg = msg.Error.Error()
		s.LogWarn("Saving names failed: %v", msg.Error)
		return s, nil
	}
	return s, nil
}

// applySuggestions keeps the token fields in step with the organization name
// until the user types something of their own into them.
func (s *Step) applySuggestions() {
	org := s.inputs[fieldOrg].Value()
	next := [fieldCount]string{
		fieldToken:  dao.SuggestTokenName(org),
		fieldSymbol: dao.SuggestTokenSymbol(org),
	}
	for _, f := range []int{fieldToken, fieldSymbol} {
		current := s.inputs[f].Value()
		if current == "" || current == s.suggested[f] {
			s.inputs[f].SetValue(next[f])
			s.inputs[f].CursorEnd()
			s.suggested[f] = next[f]
		}
	}
}

func (s *Step) submit() tea.Cmd {
	n := s.Naming().Normalize()
	if errs := n.Validate(); len(errs) > 0 {
		s.errs = errs.ByField()
		for i, name := range fieldNames {
			if _, bad := s.errs[name]; bad {
				s.setFocus(i)
				break
			}
		}
		s.SetStatusMsg("Fix the highlighted fields")
		return nil
	}
	s.errs = nil
	ctx := s.Context()
	return func() tea.Msg {
		if ctx == nil || ctx.Draft == nil {
			return steps.StepErrorMsg{Error: fmt.Errorf("no draft attached")}
		}
		if err := ctx.Draft.SaveNaming(n); err != nil {
			return steps.StepErrorMsg{Error: err}
		}
		return namingSavedMsg{naming: n}
	}
}

func (s *Step) setFocus(idx int) {
	s.focus = idx
	for i := range s.inputs {
		if i == idx {
			s.inputs[i].Focus()
		} else {
			s.inputs[i].Blur()
		}
	}
}

// FieldError returns the inline error for a field, if any.
func (s *Step) FieldError(field string) string {
	return s.errs[field]
}

// View renders the form.
func (s *Step) View() string {
	var b strings.Builder
	b.WriteString(steps.TitleStyle.Render("⬡ NAME YOUR ORGANIZATION"))
	b.WriteString("\n")
	for i := range s.inputs {
		label := fieldLabels[i]
		if i == s.focus {
			label = "› " + label
		} else {
			label = "  " + label
		}
		b.WriteString(steps.LabelStyle.Render(label))
		b.WriteString("\n  ")
		b.WriteString(s.inputs[i].View())
		b.WriteString("\n")
		if msg := s.errs[fieldNames[i]]; msg != "" {
			b.WriteString("  ")
			b.WriteString(steps.FieldErrorStyle.Render(msg))
			b.WriteString("\n")
		}
	}
	if s.errorMsg != "" {
		b.WriteString("\n")
		b.WriteString(steps.ErrorBlock(s.errorMsg))
		b.WriteString("\n")
	}
	b.WriteString(steps.StatusStyle.Render(s.StatusMsg()))
	return b.String()
}

type namingSavedMsg struct {
	naming dao.Naming
}
