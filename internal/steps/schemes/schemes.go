// internal/steps/schemes/schemes.go
//
// Schemes step: decision speed, reward/penalty toggles, active schemes and
// the advanced parameter editor.
// Output: .arcwizard/draft/schemes.json

package schemes

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"

	"github.com/kingrea/arc-wizard/internal/reconcile"
	"github.com/kingrea/arc-wizard/internal/scheme"
	"github.com/kingrea/arc-wizard/internal/steps"
	"github.com/kingrea/arc-wizard/internal/wizard"
)

var speedKeys = map[string]reconcile.Speed{
	"s": reconcile.SpeedSlow,
	"m": reconcile.SpeedMedium,
	"f": reconcile.SpeedFast,
}

var toggleKeys = map[string]reconcile.Toggle{
	"1": reconcile.ToggleRewardProposer,
	"2": reconcile.ToggleRewardVoters,
	"3": reconcile.ToggleAutoBet,
}

var schemeKeys = map[string]scheme.Type{
	"c": scheme.ContributionReward,
	"r": scheme.SchemeRegistrar,
	"g": scheme.GenericScheme,
}

// Step configures the organization's governance schemes.
type Step struct {
	steps.BaseStep
	state reconcile.State

	advanced    *advancedEditor
	targeting   bool
	targetInput textinput.Model

	errorMsg string
}

// New creates the schemes step.
func New() *Step {
	return &Step{
		BaseStep:    steps.NewBaseStep("Configure schemes", wizard.PhaseSchemes),
		state:       reconcile.NewState(),
		targetInput: steps.NewInput("0x… contract the Generic Scheme calls", 42),
	}
}

// Init restores saved scheme settings or derives the configured defaults.
func (s *Step) Init(ctx *steps.StepContext) tea.Cmd {
	s.SetContext(ctx)
	if ctx != nil && ctx.Config != nil {
		st, err := reconcile.NewStateWith(ctx.Config.DefaultSpeed(), reconcile.DefaultToggles(), ctx.Config.DefaultSchemes())
		if err == nil {
			s.state = st
		}
	}
	if ctx != nil && ctx.Draft != nil {
		saved, ok, err := ctx.Draft.LoadSchemes()
		switch {
		case err != nil:
			s.errorMsg = err.Error()
			s.LogWarn("Could not load saved schemes: %v", err)
		case ok:
			s.state = saved
		}
	}
	s.setStatus()
	s.LogInfo("Configuring schemes: %s", s.state.Describe())
	return nil
}

// State returns the current editor state.
func (s *Step) State() reconcile.State {
	return s.state.Clone()
}

// Update handles key input.
func (s *Step) Update(msg tea.Msg) (steps.Step, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return s, tea.Quit
		}
		if s.advanced != nil {
			return s.updateAdvanced(msg)
		}
		if s.targeting {
			return s.updateTarget(msg)
		}
		return s.updateMain(msg)

	case schemesSavedMsg:
		s.errorMsg = ""
		s.LogInfo("Saved schemes: %s", s.state.Describe())
		return s, s.Complete()

	case steps.StepErrorMsg:
		s.errorMsg = msg.Error.Error()
		s.LogWarn("Saving schemes failed: %v", msg.Error)
		return s, nil
	}
	return s, nil
}

func (s *Step) updateMain(msg tea.KeyMsg) (steps.Step, tea.Cmd) {
	key := msg.String()
	if speed, ok := speedKeys[key]; ok {
		s.apply(fmt.Sprintf("speed %s", speed), func(st reconcile.State) (reconcile.State, error) {
			return st.SetSpeed(speed)
		})
		return s, nil
	}
	if toggle, ok := toggleKeys[key]; ok {
		enabled := !s.state.Toggles.Get(toggle)
		s.apply(fmt.Sprintf("%s %s", toggle, onOff(enabled)), func(st reconcile.State) (reconcile.State, error) {
			return st.SetToggle(toggle, enabled)
		})
		return s, nil
	}
	if t, ok := schemeKeys[key]; ok {
		if s.state.Active(t) {
			s.apply(fmt.Sprintf("remove %s", t), func(st reconcile.State) (reconcile.State, error) {
				return st.DeactivateScheme(t)
			})
			return s, nil
		}
		s.apply(fmt.Sprintf("add %s", t), func(st reconcile.State) (reconcile.State, error) {
			return st.ActivateScheme(t)
		})
		if t == scheme.GenericScheme && s.state.Active(t) {
			s.openTarget()
		}
		return s, nil
	}

	switch key {
	case "esc":
		return s, s.Back()
	case "a":
		presets, err := s.state.Presets()
		if err != nil {
			s.errorMsg = err.Error()
			return s, nil
		}
		s.advanced = newAdvancedEditor(s.state.Schemes, presets)
		s.SetStatusMsg("Advanced editor")
	case "t":
		if s.state.Active(scheme.GenericScheme) {
			s.openTarget()
		}
	case "x":
		s.apply("reset", func(st reconcile.State) (reconcile.State, error) {
			return st.Reset(), nil
		})
	case "n", "ctrl+s":
		return s, s.submit()
	}
	return s, nil
}

func (s *Step) updateAdvanced(msg tea.KeyMsg) (steps.Step, tea.Cmd) {
	switch s.advanced.update(msg) {
	case editorCommit:
		edited := s.advanced.working
		s.advanced = nil
		s.apply("advanced edit", func(st reconcile.State) (reconcile.State, error) {
			return st.AdvancedEdit(edited)
		})
	case editorDiscard:
		s.advanced = nil
		s.setStatus()
	}
	return s, nil
}

func (s *Step) openTarget() {
	s.targeting = true
	s.targetInput.SetValue("")
	if gs, ok := s.state.Scheme(scheme.GenericScheme); ok && gs.Target != (common.Address{}) {
		s.targetInput.SetValue(gs.Target.Hex())
		s.targetInput.CursorEnd()
	}
	s.targetInput.Focus()
	s.SetStatusMsg("Target contract for the Generic Scheme · enter to save · esc to cancel")
}

func (s *Step) updateTarget(msg tea.KeyMsg) (steps.Step, tea.Cmd) {
	switch msg.String() {
	case "esc":
		s.targeting = false
		s.targetInput.Blur()
		s.setStatus()
		return s, nil
	case "enter":
		raw := strings.TrimSpace(s.targetInput.Value())
		if !common.IsHexAddress(raw) || common.HexToAddress(raw) == (common.Address{}) {
			s.errorMsg = "target must be a non-zero contract address"
			return s, nil
		}
		s.SetTarget(common.HexToAddress(raw))
		s.targeting = false
		s.targetInput.Blur()
		return s, nil
	}
	var cmd tea.Cmd
	s.targetInput, cmd = s.targetInput.Update(msg)
	return s, cmd
}

// SetTarget records the Generic Scheme's target contract. The target is not
// a voting parameter, so it never affects preset bindings.
func (s *Step) SetTarget(addr common.Address) {
	next := s.state.Clone()
	for i := range next.Schemes {
		if next.Schemes[i].Type == scheme.GenericScheme {
			next.Schemes[i].Target = addr
		}
	}
	s.state = next
	s.errorMsg = ""
	s.LogInfo("Generic Scheme target set to %s", addr.Hex())
	s.setStatus()
}

// apply runs one state transition. The new state replaces the old one only
// when the transition succeeds.
func (s *Step) apply(action string, fn func(reconcile.State) (reconcile.State, error)) {
	next, err := fn(s.state)
	if err != nil {
		s.errorMsg = err.Error()
		s.LogWarn("%s failed: %v", action, err)
		return
	}
	s.state = next
	s.errorMsg = ""
	s.LogInfo("%s: %s", action, s.state.Describe())
	s.setStatus()
}

func (s *Step) submit() tea.Cmd {
	if gs, ok := s.state.Scheme(scheme.GenericScheme); ok && gs.Target == (common.Address{}) {
		s.errorMsg = "the Generic Scheme needs a target contract (press t)"
		return nil
	}
	st := s.state.Clone()
	ctx := s.Context()
	return func() tea.Msg {
		if ctx == nil || ctx.Draft == nil {
			return steps.StepErrorMsg{Error: fmt.Errorf("no draft attached")}
		}
		if err := ctx.Draft.SaveSchemes(st); err != nil {
			return steps.StepErrorMsg{Error: err}
		}
		return schemesSavedMsg{}
	}
}

func (s *Step) setStatus() {
	s.SetStatusMsg("s/m/f speed · 1/2/3 toggles · c/r/g schemes · t target · a advanced · x reset · n continue · esc back")
}

// View renders the editor.
func (s *Step) View() string {
	var b strings.Builder
	b.WriteString(steps.TitleStyle.Render("⬡ GOVERNANCE SCHEMES"))
	b.WriteString("\n")
	if s.advanced != nil {
		b.WriteString(steps.Box(s.advanced.view()))
	} else {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, s.renderControls(), " ", s.renderSchemes()))
		if s.targeting {
			b.WriteString("\n")
			b.WriteString(steps.LabelStyle.Render("Target contract "))
			b.WriteString(s.targetInput.View())
		}
	}
	b.WriteString("\n")
	if s.errorMsg != "" {
		b.WriteString(steps.ErrorBlock(s.errorMsg))
		b.WriteString("\n")
	}
	b.WriteString(steps.StatusStyle.Render(s.StatusMsg()))
	return b.String()
}

func (s *Step) renderControls() string {
	var lines []string
	lines = append(lines, steps.LabelStyle.Render("Decision speed"))
	for _, speed := range reconcile.AllSpeeds() {
		label := fmt.Sprintf("[%s] %s", strings.ToLower(speed.String()[:1]), speed)
		switch {
		case speed == s.state.Speed && s.state.HasCustom():
			label = steps.MutedStyle.Render(label + " (custom)")
		case speed == s.state.Speed:
			label = steps.SelectedStyle.Render(label)
		case s.state.HasCustom():
			label = steps.MutedStyle.Render(label)
		}
		lines = append(lines, label)
	}
	lines = append(lines, "", steps.LabelStyle.Render("Rewards & penalties"))
	for i, toggle := range reconcile.AllToggles() {
		box := "[ ]"
		if s.state.Toggles.Get(toggle) {
			box = "[x]"
		}
		lines = append(lines, fmt.Sprintf("%d %s %s", i+1, box, toggle))
		lines = append(lines, steps.MutedStyle.Render("    "+toggle.Tooltip()))
	}
	return steps.Box(strings.Join(lines, "\n"))
}

func (s *Step) renderSchemes() string {
	var lines []string
	lines = append(lines, steps.LabelStyle.Render("Schemes"))
	for _, t := range scheme.AllTypes() {
		key := keyFor(t)
		sc, active := s.state.Scheme(t)
		if !active {
			lines = append(lines, steps.MutedStyle.Render(fmt.Sprintf("[%s] %s (off)", key, t.FriendlyName())))
			continue
		}
		line := fmt.Sprintf("[%s] %s · %s", key, t.FriendlyName(), sc.PresetLabel())
		lines = append(lines, line)
		p := sc.Params
		lines = append(lines, steps.MutedStyle.Render(fmt.Sprintf("    quorum %d%% · voting %s · boosted %s",
			p.QueuedVoteRequiredPercentage, formatSeconds(p.QueuedVotePeriodLimit), formatSeconds(p.BoostedVotePeriodLimit))))
		if t == scheme.GenericScheme {
			target := "not set"
			if sc.Target != (common.Address{}) {
				target = sc.Target.Hex()
			}
			lines = append(lines, steps.MutedStyle.Render("    target "+target))
		}
	}
	return steps.Box(strings.Join(lines, "\n"))
}

func keyFor(t scheme.Type) string {
	for key, candidate := range schemeKeys {
		if candidate == t {
			return key
		}
	}
	return "?"
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

type schemesSavedMsg struct{}
