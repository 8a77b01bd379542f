// internal/reconcile/speed.go
//
// Decision speed is the coarse knob users pick in the wizard. Each speed maps
// every scheme type to a GenesisProtocol preset. The table is checked for
// completeness when the package loads, so lookups can never hit a gap at
// runtime with a supported speed and scheme type.

package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kingrea/arc-wizard/internal/genesis"
	"github.com/kingrea/arc-wizard/internal/scheme"
)

// Speed is how quickly the organization processes proposals.
type Speed int

const (
	SpeedSlow Speed = iota
	SpeedMedium
	SpeedFast
)

// ErrUnmappedSpeed is returned when no preset exists for a (speed, scheme type) pair.
var ErrUnmappedSpeed = errors.New("reconcile: unimplemented scheme speed configuration")

// AllSpeeds lists the supported speeds from slowest to fastest.
func AllSpeeds() []Speed {
	return []Speed{SpeedSlow, SpeedMedium, SpeedFast}
}

func (s Speed) String() string {
	switch s {
	case SpeedSlow:
		return "Slow"
	case SpeedMedium:
		return "Medium"
	case SpeedFast:
		return "Fast"
	default:
		return fmt.Sprintf("Speed(%d)", int(s))
	}
}

// ParseSpeed accepts a speed name in any case.
func ParseSpeed(value string) (Speed, error) {
	trimmed := strings.TrimSpace(value)
	for _, s := range AllSpeeds() {
		if strings.EqualFold(s.String(), trimmed) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("reconcile: unknown decision speed %q", value)
}

// MarshalText encodes the speed by name.
func (s Speed) MarshalText() ([]byte, error) {
	if _, ok := speedTable[s]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnmappedSpeed, int(s))
	}
	return []byte(strings.ToLower(s.String())), nil
}

// UnmarshalText decodes a speed name.
func (s *Speed) UnmarshalText(text []byte) error {
	parsed, err := ParseSpeed(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

var speedTable = map[Speed]map[scheme.Type]genesis.Preset{
	SpeedSlow: {
		scheme.ContributionReward: genesis.PresetCritical,
		scheme.SchemeRegistrar:    genesis.PresetCritical,
		scheme.GenericScheme:      genesis.PresetCritical,
	},
	SpeedMedium: {
		scheme.ContributionReward: genesis.PresetNormal,
		scheme.SchemeRegistrar:    genesis.PresetCritical,
		scheme.GenericScheme:      genesis.PresetNormal,
	},
	SpeedFast: {
		scheme.ContributionReward: genesis.PresetEasy,
		scheme.SchemeRegistrar:    genesis.PresetNormal,
		scheme.GenericScheme:      genesis.PresetEasy,
	},
}

func init() {
	if err := checkSpeedTable(speedTable); err != nil {
		panic(err)
	}
}

func checkSpeedTable(table map[Speed]map[scheme.Type]genesis.Preset) error {
	for _, speed := range AllSpeeds() {
		row, ok := table[speed]
		if !ok {
			return fmt.Errorf("%w: speed %s has no presets", ErrUnmappedSpeed, speed)
		}
		for _, t := range scheme.AllTypes() {
			preset, ok := row[t]
			if !ok {
				return fmt.Errorf("%w: %s/%s", ErrUnmappedSpeed, speed, t)
			}
			if _, err := genesis.PresetParams(preset); err != nil {
				return fmt.Errorf("reconcile: %s/%s: %w", speed, t, err)
			}
		}
	}
	return nil
}

// PresetFor returns the preset a scheme type uses at the given speed.
func PresetFor(speed Speed, t scheme.Type) (genesis.Preset, error) {
	row, ok := speedTable[speed]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnmappedSpeed, speed)
	}
	preset, ok := row[t]
	if !ok {
		return 0, fmt.Errorf("%w: %s/%s", ErrUnmappedSpeed, speed, t)
	}
	return preset, nil
}

func presetParamsFor(speed Speed, t scheme.Type) (genesis.Preset, genesis.Params, error) {
	preset, err := PresetFor(speed, t)
	if err != nil {
		return 0, genesis.Params{}, err
	}
	params, err := genesis.PresetParams(preset)
	if err != nil {
		return 0, genesis.Params{}, err
	}
	return preset, params, nil
}
