// internal/reconcile/reconcile.go
//
// Keeps per-scheme voting parameters consistent with the selected decision
// speed and the three override toggles, while respecting manual edits made
// in the advanced editor. Every function takes records by value and returns
// new ones; input slices are never modified.

package reconcile

import (
	"errors"
	"fmt"

	"github.com/kingrea/arc-wizard/internal/scheme"
)

var (
	// ErrNoSchemes is returned when an operation needs at least one active scheme.
	ErrNoSchemes = errors.New("reconcile: at least one scheme is required")
	// ErrDuplicateScheme is returned when a scheme type appears twice.
	ErrDuplicateScheme = errors.New("reconcile: duplicate scheme type")
	// ErrUnknownToggle is returned for toggle values outside the known set.
	ErrUnknownToggle = errors.New("reconcile: unknown toggle")
)

// DerivePresetConfigs builds one preset-bound scheme per supported scheme
// type, in canonical order.
func DerivePresetConfigs(speed Speed) ([]scheme.Scheme, error) {
	return deriveTypes(speed, scheme.AllTypes())
}

func deriveTypes(speed Speed, types []scheme.Type) ([]scheme.Scheme, error) {
	out := make([]scheme.Scheme, 0, len(types))
	for _, t := range types {
		s, err := derive(speed, t)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func derive(speed Speed, t scheme.Type) (scheme.Scheme, error) {
	preset, params, err := presetParamsFor(speed, t)
	if err != nil {
		return scheme.Scheme{}, err
	}
	return scheme.Scheme{Type: t, Params: params}.Bind(preset), nil
}

// IsCustom reports whether a scheme's parameters differ from the preset its
// type maps to at speed. A custom scheme no longer follows speed changes
// made implicitly by the UI.
func IsCustom(s scheme.Scheme, speed Speed) (bool, error) {
	_, params, err := presetParamsFor(speed, s.Type)
	if err != nil {
		return false, err
	}
	return s.Params != params, nil
}

// settleBinding clears the preset binding when the parameters diverged. It
// never restores a cleared binding.
func settleBinding(s scheme.Scheme, speed Speed) (scheme.Scheme, error) {
	if !s.IsBound() {
		return s, nil
	}
	custom, err := IsCustom(s, speed)
	if err != nil {
		return s, err
	}
	if custom {
		return s.Unbind(), nil
	}
	return s, nil
}

// ApplyToggle sets the toggle's field on every scheme: the preset value for
// the scheme's type at speed when enabled, 0 when disabled. No other field
// is touched.
func ApplyToggle(schemes []scheme.Scheme, speed Speed, toggle Toggle, enabled bool) ([]scheme.Scheme, error) {
	if !toggle.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownToggle, int(toggle))
	}
	field := toggle.Field()
	out := make([]scheme.Scheme, len(schemes))
	for i, s := range schemes {
		var value uint64
		if enabled {
			_, preset, err := presetParamsFor(speed, s.Type)
			if err != nil {
				return nil, err
			}
			value, _ = preset.Field(field)
		}
		next := s.Clone()
		params, err := next.Params.WithField(field, value)
		if err != nil {
			return nil, err
		}
		next.Params = params
		next, err = settleBinding(next, speed)
		if err != nil {
			return nil, err
		}
		out[i] = next
	}
	return out, nil
}

// OnAdvancedEdit takes the full replacement set produced by the advanced
// editor. It reads the toggles back from the first scheme and clears the
// binding of every scheme that no longer matches its preset.
func OnAdvancedEdit(edited []scheme.Scheme, speed Speed) (Toggles, []scheme.Scheme, error) {
	if len(edited) == 0 {
		return Toggles{}, nil, ErrNoSchemes
	}
	if err := checkTypes(edited); err != nil {
		return Toggles{}, nil, err
	}
	out := make([]scheme.Scheme, len(edited))
	for i, s := range edited {
		next, err := settleBinding(s.Clone(), speed)
		if err != nil {
			return Toggles{}, nil, err
		}
		out[i] = next
	}
	return togglesFrom(out[0].Params), out, nil
}

// ChangeSpeed re-derives every scheme from the presets of the new speed,
// including schemes previously marked custom, then re-applies each disabled
// toggle so the toggles keep winning over the preset.
func ChangeSpeed(schemes []scheme.Scheme, toggles Toggles, speed Speed) ([]scheme.Scheme, error) {
	if err := checkTypes(schemes); err != nil {
		return nil, err
	}
	out := make([]scheme.Scheme, len(schemes))
	for i, s := range schemes {
		next, err := derive(speed, s.Type)
		if err != nil {
			return nil, err
		}
		next.Target = s.Target
		out[i] = next
	}
	return applyDisabled(out, toggles, speed)
}

func applyDisabled(schemes []scheme.Scheme, toggles Toggles, speed Speed) ([]scheme.Scheme, error) {
	var err error
	for _, t := range AllToggles() {
		if toggles.Get(t) {
			continue
		}
		schemes, err = ApplyToggle(schemes, speed, t, false)
		if err != nil {
			return nil, err
		}
	}
	return schemes, nil
}

func checkTypes(schemes []scheme.Scheme) error {
	seen := make(map[scheme.Type]struct{}, len(schemes))
	for _, s := range schemes {
		if !s.Type.Valid() {
			return fmt.Errorf("reconcile: unknown scheme type %d", int(s.Type))
		}
		if _, ok := seen[s.Type]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateScheme, s.Type)
		}
		seen[s.Type] = struct{}{}
	}
	return nil
}
