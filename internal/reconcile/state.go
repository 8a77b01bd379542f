package reconcile

import (
	"fmt"
	"sort"

	"github.com/kingrea/arc-wizard/internal/scheme"
)

// State is everything the scheme editor shows. Each transition returns a
// complete new State so the toggles and the schemes they affect always
// change together.
type State struct {
	Speed   Speed           `json:"speed"`
	Toggles Toggles         `json:"toggles"`
	Schemes []scheme.Scheme `json:"schemes"`
}

// DefaultSchemeTypes are the schemes a new organization starts with.
func DefaultSchemeTypes() []scheme.Type {
	return []scheme.Type{scheme.ContributionReward, scheme.SchemeRegistrar}
}

// NewState returns the editor defaults: medium speed, every toggle on and
// the default schemes bound to their presets.
func NewState() State {
	st, err := NewStateWith(SpeedMedium, DefaultToggles(), DefaultSchemeTypes())
	if err != nil {
		// The speed table is checked at init, so the defaults always derive.
		panic(err)
	}
	return st
}

// NewStateWith derives a state for the given speed, toggles and scheme set.
func NewStateWith(speed Speed, toggles Toggles, types []scheme.Type) (State, error) {
	if len(types) == 0 {
		return State{}, ErrNoSchemes
	}
	ordered := append([]scheme.Type(nil), types...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })
	schemes, err := deriveTypes(speed, ordered)
	if err != nil {
		return State{}, err
	}
	if err := checkTypes(schemes); err != nil {
		return State{}, err
	}
	schemes, err = applyDisabled(schemes, toggles, speed)
	if err != nil {
		return State{}, err
	}
	return State{Speed: speed, Toggles: toggles, Schemes: schemes}, nil
}

// Restore rebuilds editor state from previously saved schemes: toggles are
// read back from the parameters and bindings recomputed against speed.
func Restore(speed Speed, schemes []scheme.Scheme) (State, error) {
	bound := make([]scheme.Scheme, len(schemes))
	for i, s := range schemes {
		custom, err := IsCustom(s, speed)
		if err != nil {
			return State{}, err
		}
		if custom {
			bound[i] = s.Unbind()
			continue
		}
		preset, err := PresetFor(speed, s.Type)
		if err != nil {
			return State{}, err
		}
		bound[i] = s.Bind(preset)
	}
	toggles, out, err := OnAdvancedEdit(bound, speed)
	if err != nil {
		return State{}, err
	}
	return State{Speed: speed, Toggles: toggles, Schemes: out}, nil
}

// InferSpeed finds the first speed whose presets, with the toggles read
// from the first scheme, reproduce every scheme's parameters exactly.
func InferSpeed(schemes []scheme.Scheme) (Speed, bool) {
	if len(schemes) == 0 {
		return 0, false
	}
	toggles := togglesFrom(schemes[0].Params)
	for _, speed := range AllSpeeds() {
		derived, err := ChangeSpeed(schemes, toggles, speed)
		if err != nil {
			continue
		}
		match := true
		for i := range derived {
			if derived[i].Params != schemes[i].Params {
				match = false
				break
			}
		}
		if match {
			return speed, true
		}
	}
	return 0, false
}

// Clone deep-copies the state.
func (st State) Clone() State {
	st.Schemes = scheme.CloneAll(st.Schemes)
	return st
}

// SetSpeed handles an explicit speed selection. The preset always wins: every
// active scheme is re-derived, custom or not.
func (st State) SetSpeed(speed Speed) (State, error) {
	schemes, err := ChangeSpeed(st.Schemes, st.Toggles, speed)
	if err != nil {
		return st, err
	}
	return State{Speed: speed, Toggles: st.Toggles, Schemes: schemes}, nil
}

// SetToggle flips one toggle and applies it to every active scheme.
func (st State) SetToggle(t Toggle, enabled bool) (State, error) {
	schemes, err := ApplyToggle(st.Schemes, st.Speed, t, enabled)
	if err != nil {
		return st, err
	}
	return State{Speed: st.Speed, Toggles: st.Toggles.With(t, enabled), Schemes: schemes}, nil
}

// AdvancedEdit commits a full replacement scheme set from the advanced editor.
func (st State) AdvancedEdit(edited []scheme.Scheme) (State, error) {
	toggles, schemes, err := OnAdvancedEdit(edited, st.Speed)
	if err != nil {
		return st, err
	}
	return State{Speed: st.Speed, Toggles: toggles, Schemes: schemes}, nil
}

// ActivateScheme adds a scheme type derived from the current speed with the
// current toggles applied. Activating an already active type is a no-op.
func (st State) ActivateScheme(t scheme.Type) (State, error) {
	if st.Active(t) {
		return st, nil
	}
	s, err := derive(st.Speed, t)
	if err != nil {
		return st, err
	}
	added, err := applyDisabled([]scheme.Scheme{s}, st.Toggles, st.Speed)
	if err != nil {
		return st, err
	}
	schemes := append(scheme.CloneAll(st.Schemes), added[0])
	sort.SliceStable(schemes, func(i, j int) bool { return schemes[i].Type < schemes[j].Type })
	return State{Speed: st.Speed, Toggles: st.Toggles, Schemes: schemes}, nil
}

// DeactivateScheme removes a scheme type. The last scheme cannot be removed.
func (st State) DeactivateScheme(t scheme.Type) (State, error) {
	if !st.Active(t) {
		return st, nil
	}
	if len(st.Schemes) == 1 {
		return st, ErrNoSchemes
	}
	schemes := make([]scheme.Scheme, 0, len(st.Schemes)-1)
	for _, s := range st.Schemes {
		if s.Type != t {
			schemes = append(schemes, s.Clone())
		}
	}
	return State{Speed: st.Speed, Toggles: st.Toggles, Schemes: schemes}, nil
}

// Reset discards every edit and returns the defaults.
func (st State) Reset() State {
	return NewState()
}

// Active reports whether a scheme type is part of the organization.
func (st State) Active(t scheme.Type) bool {
	for _, s := range st.Schemes {
		if s.Type == t {
			return true
		}
	}
	return false
}

// Scheme returns the active scheme of type t.
func (st State) Scheme(t scheme.Type) (scheme.Scheme, bool) {
	for _, s := range st.Schemes {
		if s.Type == t {
			return s.Clone(), true
		}
	}
	return scheme.Scheme{}, false
}

// HasCustom reports whether any active scheme has diverged from its preset.
// The UI greys out the speed selector in that case.
func (st State) HasCustom() bool {
	for _, s := range st.Schemes {
		if !s.IsBound() {
			return true
		}
	}
	return false
}

// Presets returns the preset reference configuration of each active scheme
// at the current speed, for the advanced editor's "restore default" action.
func (st State) Presets() ([]scheme.Scheme, error) {
	return deriveTypes(st.Speed, scheme.Types(st.Schemes))
}

// Describe renders a one-line summary for logs.
func (st State) Describe() string {
	label := st.Speed.String()
	if st.HasCustom() {
		label += " (custom)"
	}
	return fmt.Sprintf("speed=%s schemes=%d proposer=%t voters=%t autobet=%t",
		label, len(st.Schemes), st.Toggles.RewardProposer, st.Toggles.RewardVoters, st.Toggles.AutoBet)
}
