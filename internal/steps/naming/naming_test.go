package naming

import (
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/arc-wizard/internal/dao"
	"github.com/kingrea/arc-wizard/internal/steps"
	"github.com/kingrea/arc-wizard/internal/wizard"
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

func press(t *testing.T, s *Step, key tea.KeyType) tea.Cmd {
	t.Helper()
	_, cmd := s.Update(tea.KeyMsg{Type: key})
	return cmd
}

// settle feeds command results back into the step until it stops producing
// step-local messages, and returns the first host-level message.
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

func TestSuggestionsFollowOrgName(t *testing.T) {
	s, _ := newStep(t)
	typeText(s, "Genesis Alpha")
	got := s.Naming()
	if got.TokenName != "Genesis Alpha Token" || got.TokenSymbol != "GA" {
		t.Fatalf("unexpected suggestions %+v", got)
	}
	// A custom symbol is kept when the org name changes again.
	press(t, s, tea.KeyTab)
	press(t, s, tea.KeyTab)
	for range "GA" {
		press(t, s, tea.KeyBackspace)
	}
	typeText(s, "GAX")
	press(t, s, tea.KeyShiftTab)
	press(t, s, tea.KeyShiftTab)
	typeText(s, " DAO")
	got = s.Naming()
	if got.TokenSymbol != "GAX" || got.TokenName != "Genesis Alpha DAO Token" {
		t.Fatalf("unexpected values after edit %+v", got)
	}
}

func TestSubmitSavesAndCompletes(t *testing.T) {
	s, draft := newStep(t)
	typeText(s, "Genesis Alpha")
	press(t, s, tea.KeyEnter)
	press(t, s, tea.KeyEnter)
	cmd := press(t, s, tea.KeyEnter)
	msg := settle(t, s, cmd)
	done, ok := msg.(steps.StepCompleteMsg)
	if !ok || done.NextPhase != wizard.PhaseMembers {
		t.Fatalf("expected completion to members, got %#v", msg)
	}
	if !s.IsComplete() {
		t.Fatalf("step should be complete")
	}
	saved, ok, err := draft.LoadNaming()
	if err != nil || !ok {
		t.Fatalf("naming not saved: %v", err)
	}
	if saved != (dao.Naming{OrgName: "Genesis Alpha", TokenName: "Genesis Alpha Token", TokenSymbol: "GA"}) {
		t.Fatalf("unexpected saved naming %+v", saved)
	}

	// A fresh step picks the saved answer back up.
	again := New()
	again.Init(&steps.StepContext{Draft: draft})
	if again.Naming() != saved {
		t.Fatalf("saved naming not restored: %+v", again.Naming())
	}
}

func TestSubmitShowsFieldErrors(t *testing.T) {
	s, draft := newStep(t)
	cmd := press(t, s, tea.KeyCtrlS)
	if cmd != nil {
		t.Fatalf("invalid form must not save")
	}
	for _, f := range []string{dao.FieldOrgName, dao.FieldTokenName, dao.FieldTokenSymbol} {
		if s.FieldError(f) == "" {
			t.Fatalf("missing inline error for %s", f)
		}
	}
	if _, ok, _ := draft.LoadNaming(); ok {
		t.Fatalf("nothing should be written")
	}
	typeText(s, "Alpha")
	if s.FieldError(dao.FieldOrgName) != "" {
		t.Fatalf("typing should clear the field error")
	}
}

func TestEscGoesBack(t *testing.T) {
	s, _ := newStep(t)
	msg := settle(t, s, press(t, s, tea.KeyEsc))
	if back, ok := msg.(steps.StepBackMsg); !ok || back.Phase != wizard.PhaseNaming {
		t.Fatalf("expected back message, got %#v", msg)
	}
}
