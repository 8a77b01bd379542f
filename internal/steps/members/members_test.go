package members

import (
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/arc-wizard/internal/dao"
	"github.com/kingrea/arc-wizard/internal/steps"
	"github.com/kingrea/arc-wizard/internal/wizard"
)

const (
	addrA = "0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1"
	addrB = "0xFFcf8FDEE72ac11b5c542428B35EEF5769C409f0"
)

func newStep(t *testing.T) (*Step, *wizard.Draft) {
	t.Helper()
	draft := wizard.New(filepath.Join(t.TempDir(), "draft"))
	s := New()
	s.Init(&steps.StepContext{Draft: draft})
	return s, draft
}

func typeText(s *Step, text string) {
	for _, r := range text {
		s.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func press(s *Step, key tea.KeyType) tea.Cmd {
	_, cmd := s.Update(tea.KeyMsg{Type: key})
	return cmd
}

func pressRune(s *Step, r rune) tea.Cmd {
	_, cmd := s.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	return cmd
}

func fillForm(s *Step, address, rep, tokens string) {
	typeText(s, address)
	press(s, tea.KeyTab)
	typeText(s, rep)
	press(s, tea.KeyTab)
	typeText(s, tokens)
	press(s, tea.KeyEnter)
}

func settle(t *testing.T, s *Step, cmd tea.Cmd) tea.Msg {
	t.Helper()
	for cmd != nil {
		msg := cmd()
		switch msg.(type) {
		case steps.StepCompleteMsg, steps.StepBackMsg:
			return msg
		case nil:
			return nil
		}
		_, cmd = s.Update(msg)
	}
	return nil
}

func TestAddEditRemoveAndSave(t *testing.T) {
	s, draft := newStep(t)
	if !s.Editing() {
		t.Fatalf("an empty list should open the add form")
	}
	fillForm(s, addrA, "60", "")
	if s.Editing() || len(s.Members()) != 1 {
		t.Fatalf("member not added: editing=%t members=%v", s.Editing(), s.Members())
	}

	pressRune(s, 'a')
	fillForm(s, addrA, "40", "")
	if s.FieldError(dao.FieldAddress) == "" {
		t.Fatalf("duplicate address should be flagged inline")
	}
	press(s, tea.KeyEsc)
	if s.Editing() || len(s.Members()) != 1 {
		t.Fatalf("esc should cancel the form")
	}

	pressRune(s, 'a')
	fillForm(s, addrB, "40", "10")
	if len(s.Members()) != 2 {
		t.Fatalf("expected 2 members, got %d", len(s.Members()))
	}

	// The new member is selected; edit its reputation.
	pressRune(s, 'e')
	press(s, tea.KeyTab)
	press(s, tea.KeyBackspace)
	press(s, tea.KeyBackspace)
	typeText(s, "50")
	press(s, tea.KeyCtrlS)
	if got := s.Members()[1].Reputation.String(); got != "50" {
		t.Fatalf("edit not applied, reputation = %s", got)
	}

	press(s, tea.KeyUp)
	pressRune(s, 'd')
	if len(s.Members()) != 1 || s.Members()[0].Address.Hex() != addrB {
		t.Fatalf("unexpected list after remove: %v", s.Members())
	}

	msg := settle(t, s, pressRune(s, 'n'))
	done, ok := msg.(steps.StepCompleteMsg)
	if !ok || done.NextPhase != wizard.PhaseSchemes {
		t.Fatalf("expected completion, got %#v", msg)
	}
	saved, err := draft.LoadMembers()
	if err != nil || len(saved) != 1 || !saved[0].Tokens.Equal(s.Members()[0].Tokens) {
		t.Fatalf("members not saved: %v %v", saved, err)
	}
}

func TestFormRejectsBadInput(t *testing.T) {
	s, _ := newStep(t)
	fillForm(s, "0x123", "-5", "")
	if !s.Editing() {
		t.Fatalf("form should stay open on errors")
	}
	if s.FieldError(dao.FieldAddress) == "" || s.FieldError(dao.FieldReputation) == "" {
		t.Fatalf("expected address and reputation errors")
	}
	if len(s.Members()) != 0 {
		t.Fatalf("nothing should be added")
	}
}

func TestContinueRequiresMembers(t *testing.T) {
	s, draft := newStep(t)
	press(s, tea.KeyEsc) // empty list: esc leaves the step
	s.editing = false
	if cmd := pressRune(s, 'n'); cmd != nil {
		t.Fatalf("continuing without members must not save")
	}
	if s.errorMsg == "" {
		t.Fatalf("expected an error message")
	}
	if ms, _ := draft.LoadMembers(); len(ms) != 0 {
		t.Fatalf("nothing should be written")
	}
}

func TestInitRestoresSavedMembers(t *testing.T) {
	draft := wizard.New(filepath.Join(t.TempDir(), "draft"))
	m, _ := dao.ParseMember(addrA, "1", "")
	if err := draft.SaveMembers(dao.Members{m}); err != nil {
		t.Fatalf("save: %v", err)
	}
	s := New()
	s.Init(&steps.StepContext{Draft: draft})
	if s.Editing() || len(s.Members()) != 1 {
		t.Fatalf("saved members should be listed, got %v", s.Members())
	}
}
