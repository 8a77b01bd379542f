package schemes

import (
	"math"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"

	"github.com/kingrea/arc-wizard/internal/genesis"
	"github.com/kingrea/arc-wizard/internal/reconcile"
	"github.com/kingrea/arc-wizard/internal/scheme"
	"github.com/kingrea/arc-wizard/internal/steps"
	"github.com/kingrea/arc-wizard/internal/wizard"
)

const target = "0x00000000000000000000000000000000000000cC"

func newStep(t *testing.T) (*Step, *wizard.Draft) {
	t.Helper()
	draft := wizard.New(filepath.Join(t.TempDir(), "draft"))
	s := New()
	s.Init(&steps.StepContext{Draft: draft})
	return s, draft
}

func keys(s *Step, text string) {
	for _, r := range text {
		s.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func press(s *Step, key tea.KeyType, times int) tea.Cmd {
	var cmd tea.Cmd
	for i := 0; i < times; i++ {
		_, cmd = s.Update(tea.KeyMsg{Type: key})
	}
	return cmd
}

func field(t *testing.T, s *Step, st scheme.Type, name string) uint64 {
	t.Helper()
	sc, ok := s.State().Scheme(st)
	if !ok {
		t.Fatalf("%s not active", st)
	}
	v, err := sc.Params.Field(name)
	if err != nil {
		t.Fatalf("field %s: %v", name, err)
	}
	return v
}

func TestToggleScenarioThroughKeys(t *testing.T) {
	s, _ := newStep(t)
	if s.State().Speed != reconcile.SpeedMedium {
		t.Fatalf("default speed should be medium")
	}
	if got := field(t, s, scheme.ContributionReward, genesis.FieldProposingRepReward); got != 50 {
		t.Fatalf("medium proposer reward = %d, want 50", got)
	}
	keys(s, "1")
	if got := field(t, s, scheme.ContributionReward, genesis.FieldProposingRepReward); got != 0 {
		t.Fatalf("toggle off should zero the reward, got %d", got)
	}
	if s.State().Toggles.RewardProposer {
		t.Fatalf("toggle state should be off")
	}
	keys(s, "1")
	if got := field(t, s, scheme.ContributionReward, genesis.FieldProposingRepReward); got != 50 {
		t.Fatalf("toggle on should restore 50, got %d", got)
	}
	keys(s, "f")
	if got := field(t, s, scheme.ContributionReward, genesis.FieldProposingRepReward); got != 10 {
		t.Fatalf("fast proposer reward = %d, want 10", got)
	}
	sc, _ := s.State().Scheme(scheme.ContributionReward)
	if !sc.IsBound() || *sc.Preset != genesis.PresetEasy {
		t.Fatalf("speed reselection should rebind to Easy, got %s", sc.PresetLabel())
	}
}

func TestGenericSchemeNeedsTarget(t *testing.T) {
	s, _ := newStep(t)
	keys(s, "g")
	if !s.State().Active(scheme.GenericScheme) || !s.targeting {
		t.Fatalf("activating the generic scheme should prompt for a target")
	}
	press(s, tea.KeyEsc, 1)
	if _, cmd := s.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}}); cmd != nil {
		t.Fatalf("saving without a target must be refused")
	}
	if s.errorMsg == "" {
		t.Fatalf("expected an error about the missing target")
	}
	keys(s, "t")
	keys(s, "0x12")
	press(s, tea.KeyEnter, 1)
	if !s.targeting {
		t.Fatalf("an invalid address should keep the prompt open")
	}
	press(s, tea.KeyBackspace, 4)
	keys(s, target)
	press(s, tea.KeyEnter, 1)
	gs, _ := s.State().Scheme(scheme.GenericScheme)
	if gs.Target != common.HexToAddress(target) || !gs.IsBound() {
		t.Fatalf("unexpected generic scheme %+v", gs)
	}
	keys(s, "s")
	gs, _ = s.State().Scheme(scheme.GenericScheme)
	if gs.Target != common.HexToAddress(target) {
		t.Fatalf("speed change must keep the target")
	}
}

func TestAdvancedEditCommitsOnce(t *testing.T) {
	s, _ := newStep(t)
	before := s.State()
	keys(s, "a")
	if s.advanced == nil {
		t.Fatalf("advanced editor should open")
	}
	press(s, tea.KeyDown, 4) // thresholdConst
	if s.advanced.field() != genesis.FieldThresholdConst {
		t.Fatalf("unexpected field %s", s.advanced.field())
	}
	press(s, tea.KeyEnter, 1)
	press(s, tea.KeyBackspace, 4)
	keys(s, "abc")
	press(s, tea.KeyEnter, 1)
	if s.advanced.err == "" || !s.advanced.editing {
		t.Fatalf("non-numeric input should be rejected inline")
	}
	press(s, tea.KeyBackspace, 3)
	keys(s, "2000")
	press(s, tea.KeyEnter, 1)
	if diff := cmp.Diff(before, s.State()); diff != "" {
		t.Fatalf("state must not change before commit:\n%s", diff)
	}
	keys(s, "w")
	if s.advanced != nil {
		t.Fatalf("commit should close the editor")
	}
	if got := field(t, s, scheme.ContributionReward, genesis.FieldThresholdConst); got != 2000 {
		t.Fatalf("threshold = %d, want 2000", got)
	}
	cr, _ := s.State().Scheme(scheme.ContributionReward)
	sr, _ := s.State().Scheme(scheme.SchemeRegistrar)
	if cr.IsBound() || !sr.IsBound() || !s.State().HasCustom() {
		t.Fatalf("only the edited scheme should turn custom")
	}

	// Discarding leaves the state alone.
	edited := s.State()
	keys(s, "a")
	keys(s, "p")
	press(s, tea.KeyEsc, 1)
	if diff := cmp.Diff(edited, s.State()); diff != "" {
		t.Fatalf("discard must not change state:\n%s", diff)
	}
}

func TestAdvancedEditReadsTogglesBack(t *testing.T) {
	s, _ := newStep(t)
	keys(s, "a")
	press(s, tea.KeyDown, 8) // minimumDaoBounty
	press(s, tea.KeyEnter, 1)
	press(s, tea.KeyBackspace, 3)
	keys(s, "0")
	press(s, tea.KeyEnter, 1)
	keys(s, "w")
	if s.State().Toggles.AutoBet {
		t.Fatalf("zeroing minimumDaoBounty on the first scheme should switch auto-bet off")
	}
}

func TestCannotRemoveLastScheme(t *testing.T) {
	s, _ := newStep(t)
	keys(s, "r")
	if s.State().Active(scheme.SchemeRegistrar) {
		t.Fatalf("registrar should be removed")
	}
	keys(s, "c")
	if !s.State().Active(scheme.ContributionReward) || s.errorMsg == "" {
		t.Fatalf("removing the last scheme must fail with a message")
	}
}

func TestSubmitSavesState(t *testing.T) {
	s, draft := newStep(t)
	keys(s, "f2")
	_, cmd := s.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	for cmd != nil {
		msg := cmd()
		if done, ok := msg.(steps.StepCompleteMsg); ok {
			if done.NextPhase != wizard.PhaseReview {
				t.Fatalf("unexpected next phase %s", done.NextPhase)
			}
			break
		}
		_, cmd = s.Update(msg)
	}
	saved, ok, err := draft.LoadSchemes()
	if err != nil || !ok {
		t.Fatalf("schemes not saved: %v", err)
	}
	if diff := cmp.Diff(s.State(), saved); diff != "" {
		t.Fatalf("saved state differs:\n%s", diff)
	}

	again := New()
	again.Init(&steps.StepContext{Draft: draft})
	if again.State().Speed != reconcile.SpeedFast || again.State().Toggles.RewardVoters {
		t.Fatalf("saved state not restored: %s", again.State().Describe())
	}
}

func TestFormatSeconds(t *testing.T) {
	cases := map[uint64]string{
		0:       "0s",
		45:      "45s",
		90:      "1m 30s",
		600:     "10m",
		3600:    "1h",
		5400:    "1h 30m",
		86400:   "1d",
		129600:  "1d 12h",
		2592000: "30d",
	}
	for in, want := range cases {
		if got := formatSeconds(in); got != want {
			t.Fatalf("formatSeconds(%d) = %q, want %q", in, got, want)
		}
	}
	if got := formatSeconds(math.MaxUint64); got != "213503982334601d 7h" {
		t.Fatalf("largest value rendered as %q", got)
	}
}
