// internal/steps/members/members.go
//
// Members step: the founders and their initial reputation and tokens.
// Output: .arcwizard/draft/members.json

package members

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/arc-wizard/internal/dao"
	"github.com/kingrea/arc-wizard/internal/steps"
	"github.com/kingrea/arc-wizard/internal/wizard"
)

const (
	fieldAddress = iota
	fieldReputation
	fieldTokens
	fieldCount
)

var fieldNames = [fieldCount]string{dao.FieldAddress, dao.FieldReputation, dao.FieldTokens}
var fieldLabels = [fieldCount]string{"Address", "Reputation", "Tokens"}

// Step edits the founder list.
type Step struct {
	steps.BaseStep
	members  dao.Members
	selected int

	editing bool
	editIdx int // -1 while adding
	inputs  [fieldCount]textinput.Model
	focus   int
	errs    map[string]string

	errorMsg string
}

// New creates the members step.
func New() *Step {
	s := &Step{BaseStep: steps.NewBaseStep("Add founding members", wizard.PhaseMembers), editIdx: -1}
	s.inputs[fieldAddress] = steps.NewInput("0x…", 42)
	s.inputs[fieldReputation] = steps.NewInput("100", 40)
	s.inputs[fieldTokens] = steps.NewInput("0", 40)
	return s
}

// Init loads the saved member list.
func (s *Step) Init(ctx *steps.StepContext) tea.Cmd {
	s.SetContext(ctx)
	if ctx != nil && ctx.Draft != nil {
		ms, err := ctx.Draft.LoadMembers()
		if err != nil {
			s.errorMsg = err.Error()
			s.LogWarn("Could not load saved members: %v", err)
		} else {
			s.members = ms
		}
	}
	if len(s.members) == 0 {
		s.openForm(-1)
	}
	s.setBrowseStatus()
	s.LogInfo("Editing founding members (%d saved)", len(s.members))
	return nil
}

// Members returns the current list.
func (s *Step) Members() dao.Members {
	return s.members
}

// Editing reports whether the add/edit form is open.
func (s *Step) Editing() bool {
	return s.editing
}

// FieldError returns the inline error for a form field, if any.
func (s *Step) FieldError(field string) string {
	return s.errs[field]
}

// Update handles key input.
func (s *Step) Update(msg tea.Msg) (steps.Step, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return s, tea.Quit
		}
		if s.editing {
			return s.updateForm(msg)
		}
		return s.updateBrowse(msg)

	case membersSavedMsg:
		s.errorMsg = ""
		rep, tokens := s.members.Totals()
		s.LogInfo("Saved %d members (reputation %s, tokens %s)", len(s.members), rep, tokens)
		return s, s.Complete()

	case steps.StepErrorMsg:
		s.errorMsg = msg.Error.Error()
		s.LogWarn("Saving members failed: %v", msg.Error)
		return s, nil
	}
	return s, nil
}

func (s *Step) updateBrowse(msg tea.KeyMsg) (steps.Step, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return s, s.Back()
	case "up", "k":
		if s.selected > 0 {
			s.selected--
		}
	case "down", "j":
		if s.selected < len(s.members)-1 {
			s.selected++
		}
	case "a":
		s.openForm(-1)
		return s, nil
	case "e", "enter":
		if len(s.members) > 0 {
			s.openForm(s.selected)
		}
		return s, nil
	case "d", "x":
		if len(s.members) == 0 {
			return s, nil
		}
		removed := s.members[s.selected]
		next, err := s.members.Remove(s.selected)
		if err != nil {
			s.errorMsg = err.Error()
			return s, nil
		}
		s.members = next
		if s.selected >= len(s.members) && s.selected > 0 {
			s.selected--
		}
		s.LogInfo("Removed member %s", removed.Address.Hex())
	case "n", "ctrl+s":
		return s, s.submit()
	}
	s.setBrowseStatus()
	return s, nil
}

func (s *Step) updateForm(msg tea.KeyMsg) (steps.Step, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if len(s.members) == 0 {
			return s, s.Back()
		}
		s.closeForm()
		return s, nil
	case "tab", "down":
		s.setFocus((s.focus + 1) % fieldCount)
		return s, nil
	case "shift+tab", "up":
		s.setFocus((s.focus + fieldCount - 1) % fieldCount)
		return s, nil
	case "enter":
		if s.focus < fieldTokens {
			s.setFocus(s.focus + 1)
			return s, nil
		}
		s.commitForm()
		return s, nil
	case "ctrl+s":
		s.commitForm()
		return s, nil
	}
	var cmd tea.Cmd
	s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
	delete(s.errs, fieldNames[s.focus])
	return s, cmd
}

func (s *Step) openForm(idx int) {
	s.editing = true
	s.editIdx = idx
	s.errs = nil
	for i := range s.inputs {
		s.inputs[i].SetValue("")
	}
	if idx >= 0 && idx < len(s.members) {
		m := s.members[idx]
		s.inputs[fieldAddress].SetValue(m.Address.Hex())
		s.inputs[fieldReputation].SetValue(m.Reputation.String())
		s.inputs[fieldTokens].SetValue(m.Tokens.String())
		for i := range s.inputs {
			s.inputs[i].CursorEnd()
		}
	}
	s.setFocus(fieldAddress)
	if idx >= 0 {
		s.SetStatusMsg("Editing member · enter to save · esc to cancel")
	} else {
		s.SetStatusMsg("New member · enter to add · esc to cancel")
	}
}

func (s *Step) closeForm() {
	s.editing = false
	s.editIdx = -1
	s.errs = nil
	for i := range s.inputs {
		s.inputs[i].Blur()
	}
	s.setBrowseStatus()
}

func (s *Step) commitForm() {
	m, errs := dao.ParseMember(
		s.inputs[fieldAddress].Value(),
		s.inputs[fieldReputation].Value(),
		s.inputs[fieldTokens].Value(),
	)
	if len(errs) > 0 {
		s.showErrors(errs.ByField())
		return
	}
	var (
		next dao.Members
		err  error
	)
	if s.editIdx >= 0 {
		next, err = s.members.Update(s.editIdx, m)
	} else {
		next, err = s.members.Add(m)
	}
	if err != nil {
		if errors.Is(err, dao.ErrDuplicateMember) {
			s.showErrors(map[string]string{dao.FieldAddress: "already a member"})
			return
		}
		s.errorMsg = err.Error()
		return
	}
	s.members = next
	if s.editIdx >= 0 {
		s.selected = s.editIdx
		s.LogInfo("Updated member %s", m.Address.Hex())
	} else {
		s.selected = len(next) - 1
		s.LogInfo("Added member %s", m.Address.Hex())
	}
	s.closeForm()
}

func (s *Step) showErrors(byField map[string]string) {
	s.errs = byField
	for i, name := range fieldNames {
		if _, bad := byField[name]; bad {
			s.setFocus(i)
			break
		}
	}
	s.SetStatusMsg("Fix the highlighted fields")
}

func (s *Step) submit() tea.Cmd {
	if errs := s.members.Validate(); len(errs) > 0 {
		s.errorMsg = errs.Error()
		return nil
	}
	s.errorMsg = ""
	ms := s.members
	ctx := s.Context()
	return func() tea.Msg {
		if ctx == nil || ctx.Draft == nil {
			return steps.StepErrorMsg{Error: fmt.Errorf("no draft attached")}
		}
		if err := ctx.Draft.SaveMembers(ms); err != nil {
			return steps.StepErrorMsg{Error: err}
		}
		return membersSavedMsg{}
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

func (s *Step) setBrowseStatus() {
	if s.editing {
		return
	}
	s.SetStatusMsg("a add · e edit · d remove · n continue · esc back")
}

// View renders the member table and, when open, the form.
func (s *Step) View() string {
	var b strings.Builder
	b.WriteString(steps.TitleStyle.Render("⬡ FOUNDING MEMBERS"))
	b.WriteString("\n")
	b.WriteString(s.renderTable())
	b.WriteString("\n")
	if s.editing {
		b.WriteString("\n")
		b.WriteString(s.renderForm())
		b.WriteString("\n")
	}
	if s.errorMsg != "" {
		b.WriteString("\n")
		b.WriteString(steps.ErrorBlock(s.errorMsg))
		b.WriteString("\n")
	}
	b.WriteString(steps.StatusStyle.Render(s.StatusMsg()))
	return b.String()
}

func (s *Step) renderTable() string {
	if len(s.members) == 0 {
		return steps.MutedStyle.Render("No members yet.")
	}
	header := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%-44s %14s %8s %14s", "Address", "Reputation", "Share", "Tokens"))
	rows := []string{header}
	for i, m := range s.members {
		row := fmt.Sprintf("%-44s %14s %7s%% %14s", m.Address.Hex(), m.Reputation.String(), s.members.ReputationShare(i).StringFixed(2), m.Tokens.String())
		if i == s.selected && !s.editing {
			row = steps.SelectedStyle.Render(row)
		}
		rows = append(rows, row)
	}
	rep, tokens := s.members.Totals()
	rows = append(rows, steps.MutedStyle.Render(fmt.Sprintf("%-44s %14s %8s %14s", "Total", rep.String(), "", tokens.String())))
	return steps.Box(strings.Join(rows, "\n"))
}

func (s *Step) renderForm() string {
	var b strings.Builder
	title := "Add member"
	if s.editIdx >= 0 {
		title = "Edit member"
	}
	b.WriteString(steps.LabelStyle.Render(title))
	b.WriteString("\n")
	for i := range s.inputs {
		marker := "  "
		if i == s.focus {
			marker = "› "
		}
		b.WriteString(fmt.Sprintf("%s%-11s %s\n", marker, fieldLabels[i], s.inputs[i].View()))
		if msg := s.errs[fieldNames[i]]; msg != "" {
			b.WriteString("  ")
			b.WriteString(steps.FieldErrorStyle.Render(msg))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

type membersSavedMsg struct{}
