package genesis

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Preset names a fixed GenesisProtocol parameter bundle.
type Preset int

const (
	PresetEasy Preset = iota + 1
	PresetNormal
	PresetCritical
)

// ErrUnknownPreset is returned for preset ordinals without a parameter table.
var ErrUnknownPreset = errors.New("genesis: preset not implemented")

// AllPresets lists every known preset from least to most conservative.
func AllPresets() []Preset {
	return []Preset{PresetEasy, PresetNormal, PresetCritical}
}

func (p Preset) String() string {
	switch p {
	case PresetEasy:
		return "Easy"
	case PresetNormal:
		return "Normal"
	case PresetCritical:
		return "Critical"
	default:
		return fmt.Sprintf("Preset(%d)", int(p))
	}
}

// ParsePreset accepts a preset name (case-insensitive) or its ordinal.
func ParsePreset(value string) (Preset, error) {
	trimmed := strings.TrimSpace(value)
	if n, err := strconv.Atoi(trimmed); err == nil {
		p := Preset(n)
		if _, err := PresetParams(p); err != nil {
			return 0, err
		}
		return p, nil
	}
	for _, p := range AllPresets() {
		if strings.EqualFold(p.String(), trimmed) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPreset, value)
}

// MarshalText encodes the preset by name.
func (p Preset) MarshalText() ([]byte, error) {
	if _, ok := presetTable[p]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPreset, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText accepts what ParsePreset accepts.
func (p *Preset) UnmarshalText(text []byte) error {
	parsed, err := ParsePreset(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Durations are in seconds; bounties in GEN and rewards in REP.
var presetTable = map[Preset]Params{
	PresetEasy: {
		BoostedVotePeriodLimit:       129600, // 1.5 days
		DaoBountyConst:               10,
		MinimumDaoBounty:             50,
		QueuedVotePeriodLimit:        604800, // 7 days
		QueuedVoteRequiredPercentage: 50,
		PreBoostedVotePeriodLimit:    43200, // 12 hours
		ProposingRepReward:           10,
		QuietEndingPeriod:            86400, // 1 day
		ThresholdConst:               1200,
		VotersReputationLossRatio:    1,
	},
	PresetNormal: {
		BoostedVotePeriodLimit:       345600, // 4 days
		DaoBountyConst:               10,
		MinimumDaoBounty:             150,
		QueuedVotePeriodLimit:        2592000, // 30 days
		QueuedVoteRequiredPercentage: 50,
		PreBoostedVotePeriodLimit:    86400, // 1 day
		ProposingRepReward:           50,
		QuietEndingPeriod:            172800, // 2 days
		ThresholdConst:               1200,
		VotersReputationLossRatio:    4,
	},
	PresetCritical: {
		BoostedVotePeriodLimit:       691200, // 8 days
		DaoBountyConst:               10,
		MinimumDaoBounty:             500,
		QueuedVotePeriodLimit:        5184000, // 60 days
		QueuedVoteRequiredPercentage: 50,
		PreBoostedVotePeriodLimit:    172800, // 2 days
		ProposingRepReward:           200,
		QuietEndingPeriod:            345600, // 4 days
		ThresholdConst:               1500,
		VotersReputationLossRatio:    4,
	},
}

// PresetParams returns a fresh copy of the parameters for a preset.
func PresetParams(p Preset) (Params, error) {
	params, ok := presetTable[p]
	if !ok {
		return Params{}, fmt.Errorf("%w: %d", ErrUnknownPreset, int(p))
	}
	return params, nil
}

// MatchPreset reports which preset, if any, produces exactly params.
func MatchPreset(params Params) (Preset, bool) {
	for _, p := range AllPresets() {
		if presetTable[p] == params {
			return p, true
		}
	}
	return 0, false
}
