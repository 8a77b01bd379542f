package schemes

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"

	"github.com/kingrea/arc-wizard/internal/genesis"
	"github.com/kingrea/arc-wizard/internal/scheme"
	"github.com/kingrea/arc-wizard/internal/steps"
)

// editorFields is every row of the advanced editor: the numeric fields
// followed by the voteOnBehalf address.
var editorFields = append(append([]string(nil), genesis.NumericFields...), genesis.FieldVoteOnBehalf)

type editorResult int

const (
	editorOpen editorResult = iota
	editorCommit
	editorDiscard
)

// advancedEditor edits a working copy of every active scheme's raw
// parameters. Nothing reaches the editor state until the copy is committed.
type advancedEditor struct {
	working   []scheme.Scheme
	presets   []scheme.Scheme
	schemeIdx int
	fieldIdx  int
	editing   bool
	input     textinput.Model
	err       string
}

func newAdvancedEditor(current, presets []scheme.Scheme) *advancedEditor {
	return &advancedEditor{
		working: scheme.CloneAll(current),
		presets: scheme.CloneAll(presets),
		input:   steps.NewInput("", 42),
	}
}

func (e *advancedEditor) field() string {
	return editorFields[e.fieldIdx]
}

func (e *advancedEditor) update(msg tea.KeyMsg) editorResult {
	if e.editing {
		switch msg.String() {
		case "esc":
			e.editing = false
			e.err = ""
			e.input.Blur()
		case "enter":
			if err := e.applyInput(); err != nil {
				e.err = err.Error()
				return editorOpen
			}
			e.editing = false
			e.err = ""
			e.input.Blur()
		default:
			e.input, _ = e.input.Update(msg)
		}
		return editorOpen
	}

	switch msg.String() {
	case "esc":
		return editorDiscard
	case "w", "ctrl+s":
		return editorCommit
	case "tab", "right", "l":
		e.schemeIdx = (e.schemeIdx + 1) % len(e.working)
	case "shift+tab", "left", "h":
		e.schemeIdx = (e.schemeIdx + len(e.working) - 1) % len(e.working)
	case "up", "k":
		if e.fieldIdx > 0 {
			e.fieldIdx--
		}
	case "down", "j":
		if e.fieldIdx < len(editorFields)-1 {
			e.fieldIdx++
		}
	case "enter", "e":
		e.editing = true
		e.err = ""
		e.input.SetValue(e.value(e.working[e.schemeIdx].Params, e.field()))
		e.input.CursorEnd()
		e.input.Focus()
	case "p":
		for _, p := range e.presets {
			if p.Type == e.working[e.schemeIdx].Type {
				e.working[e.schemeIdx].Params = p.Params
			}
		}
	}
	return editorOpen
}

func (e *advancedEditor) applyInput() error {
	raw := strings.TrimSpace(e.input.Value())
	current := &e.working[e.schemeIdx]
	if e.field() == genesis.FieldVoteOnBehalf {
		if raw == "" {
			current.Params.VoteOnBehalf = common.Address{}
			return nil
		}
		if !common.IsHexAddress(raw) {
			return fmt.Errorf("not a valid address")
		}
		current.Params.VoteOnBehalf = common.HexToAddress(raw)
		return nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%s must be a whole number", e.field())
	}
	updated, err := current.Params.WithField(e.field(), v)
	if err != nil {
		return err
	}
	current.Params = updated
	return nil
}

func (e *advancedEditor) value(p genesis.Params, field string) string {
	if field == genesis.FieldVoteOnBehalf {
		if p.VoteOnBehalf == (common.Address{}) {
			return ""
		}
		return p.VoteOnBehalf.Hex()
	}
	v, _ := p.Field(field)
	return strconv.FormatUint(v, 10)
}

func (e *advancedEditor) view() string {
	var b strings.Builder
	var tabs []string
	for i, s := range e.working {
		label := s.Type.FriendlyName()
		if i == e.schemeIdx {
			label = steps.SelectedStyle.Render(" " + label + " ")
		} else {
			label = steps.MutedStyle.Render(" " + label + " ")
		}
		tabs = append(tabs, label)
	}
	b.WriteString(strings.Join(tabs, " "))
	b.WriteString("\n\n")

	current := e.working[e.schemeIdx]
	var preset genesis.Params
	for _, p := range e.presets {
		if p.Type == current.Type {
			preset = p.Params
		}
	}
	for i, field := range editorFields {
		value := e.value(current.Params, field)
		if field == genesis.FieldVoteOnBehalf && value == "" {
			value = "none"
		}
		if hint := durationHint(field, current.Params); hint != "" {
			value += steps.MutedStyle.Render(" (" + hint + ")")
		}
		if e.value(current.Params, field) != e.value(preset, field) {
			value += steps.FieldErrorStyle.Render(" *")
		}
		line := fmt.Sprintf("%-30s %s", field, value)
		if i == e.fieldIdx {
			if e.editing {
				line = fmt.Sprintf("%-30s %s", field, e.input.View())
			} else {
				line = steps.SelectedStyle.Render(fmt.Sprintf("%-30s", field)) + " " + value
			}
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if e.err != "" {
		b.WriteString(steps.FieldErrorStyle.Render(e.err))
		b.WriteString("\n")
	}
	b.WriteString(steps.MutedStyle.Render("* differs from the preset · enter edit · p restore preset · w apply · esc discard"))
	return b.String()
}

func durationHint(field string, p genesis.Params) string {
	switch field {
	case genesis.FieldQueuedVotePeriodLimit, genesis.FieldBoostedVotePeriodLimit,
		genesis.FieldPreBoostedVotePeriodLimit, genesis.FieldQuietEndingPeriod:
		v, _ := p.Field(field)
		return formatSeconds(v)
	}
	return ""
}

func formatSeconds(v uint64) string {
	const (
		minute = 60
		hour   = 60 * minute
		day    = 24 * hour
	)
	days, rest := v/day, v%day
	hours, rest := rest/hour, rest%hour
	minutes, seconds := rest/minute, rest%minute
	switch {
	case days > 0 && hours > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case days > 0:
		return fmt.Sprintf("%dd", days)
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	case minutes > 0 && seconds > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
