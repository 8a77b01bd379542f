// internal/scheme/scheme.go
//
// Governance schemes attached to the organization. Each scheme carries its
// own GenesisProtocol voting machine configuration.

package scheme

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kingrea/arc-wizard/internal/genesis"
)

// Type identifies a governance scheme. The ordinal order is the canonical
// ordering used everywhere schemes are listed.
type Type int

const (
	ContributionReward Type = iota
	SchemeRegistrar
	GenericScheme
)

// AllTypes returns every supported scheme type in canonical order.
func AllTypes() []Type {
	return []Type{ContributionReward, SchemeRegistrar, GenericScheme}
}

func (t Type) String() string {
	switch t {
	case ContributionReward:
		return "ContributionReward"
	case SchemeRegistrar:
		return "SchemeRegistrar"
	case GenericScheme:
		return "GenericScheme"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// FriendlyName returns a short label for menus.
func (t Type) FriendlyName() string {
	switch t {
	case ContributionReward:
		return "Contribution Reward"
	case SchemeRegistrar:
		return "Scheme Registrar"
	case GenericScheme:
		return "Generic Scheme"
	default:
		return t.String()
	}
}

// Valid reports whether t is a supported scheme type.
func (t Type) Valid() bool {
	return t >= ContributionReward && t <= GenericScheme
}

// ParseType accepts a scheme name in any case, with or without spaces.
func ParseType(value string) (Type, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(value), " ", ""))
	for _, t := range AllTypes() {
		if strings.ToLower(t.String()) == key {
			return t, nil
		}
	}
	return 0, fmt.Errorf("scheme: unknown type %q", value)
}

// MarshalText encodes the type by name.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("scheme: unknown type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a type name.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Scheme is a SchemeVotingConfig: one governance scheme with its voting
// machine parameters. Preset is nil once the parameters diverge from the
// preset they were derived from.
type Scheme struct {
	Type   Type            `json:"type"`
	Params genesis.Params  `json:"params"`
	Preset *genesis.Preset `json:"preset,omitempty"`

	// Target is the contract a GenericScheme calls. Ignored for other types.
	Target common.Address `json:"target,omitempty"`
}

// New builds a scheme bound to preset p.
func New(t Type, p genesis.Preset) (Scheme, error) {
	params, err := genesis.PresetParams(p)
	if err != nil {
		return Scheme{}, err
	}
	s := Scheme{Type: t, Params: params}
	return s.Bind(p), nil
}

// Clone returns a deep copy so callers never share the preset pointer.
func (s Scheme) Clone() Scheme {
	out := s
	if s.Preset != nil {
		p := *s.Preset
		out.Preset = &p
	}
	return out
}

// IsBound reports whether the scheme still follows a preset.
func (s Scheme) IsBound() bool {
	return s.Preset != nil
}

// Bind returns a copy bound to preset p.
func (s Scheme) Bind(p genesis.Preset) Scheme {
	out := s.Clone()
	out.Preset = &p
	return out
}

// Unbind returns a copy with the preset binding cleared.
func (s Scheme) Unbind() Scheme {
	out := s.Clone()
	out.Preset = nil
	return out
}

// PresetLabel renders the binding for display.
func (s Scheme) PresetLabel() string {
	if s.Preset == nil {
		return "Custom"
	}
	return s.Preset.String()
}

// Validate checks the scheme type and its voting machine parameters.
func (s Scheme) Validate() error {
	if !s.Type.Valid() {
		return fmt.Errorf("scheme: unknown type %d", int(s.Type))
	}
	if err := s.Params.Validate(); err != nil {
		return fmt.Errorf("scheme %s: %w", s.Type, err)
	}
	return nil
}

// CloneAll deep-copies a scheme slice.
func CloneAll(schemes []Scheme) []Scheme {
	if schemes == nil {
		return nil
	}
	out := make([]Scheme, len(schemes))
	for i, s := range schemes {
		out[i] = s.Clone()
	}
	return out
}

// Types returns the scheme types of a slice in order.
func Types(schemes []Scheme) []Type {
	out := make([]Type, len(schemes))
	for i, s := range schemes {
		out[i] = s.Type
	}
	return out
}
