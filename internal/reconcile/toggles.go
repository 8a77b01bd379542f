package reconcile

import (
	"fmt"

	"github.com/kingrea/arc-wizard/internal/genesis"
)

// Toggle is one of the simple reward/penalty switches. Each toggle owns
// exactly one GenesisProtocol field.
type Toggle int

const (
	ToggleRewardProposer Toggle = iota
	ToggleRewardVoters
	ToggleAutoBet
)

// AllToggles lists the toggles in display order.
func AllToggles() []Toggle {
	return []Toggle{ToggleRewardProposer, ToggleRewardVoters, ToggleAutoBet}
}

// Field is the parameter the toggle overrides.
func (t Toggle) Field() string {
	switch t {
	case ToggleRewardProposer:
		return genesis.FieldProposingRepReward
	case ToggleRewardVoters:
		return genesis.FieldVotersReputationLossRatio
	case ToggleAutoBet:
		return genesis.FieldMinimumDaoBounty
	default:
		return ""
	}
}

func (t Toggle) String() string {
	switch t {
	case ToggleRewardProposer:
		return "Reward successful proposer"
	case ToggleRewardVoters:
		return "Reward correct voters and penalize incorrect voters"
	case ToggleAutoBet:
		return "Auto-bet against every proposal to incentivise curation"
	default:
		return fmt.Sprintf("Toggle(%d)", int(t))
	}
}

// Tooltip explains the toggle in one sentence.
func (t Toggle) Tooltip() string {
	switch t {
	case ToggleRewardProposer:
		return "Successful proposers gain additional voting power"
	case ToggleRewardVoters:
		return "Voters on the winning side gain voting power, voters on the losing side lose it"
	case ToggleAutoBet:
		return "The organization bets against every proposal to incentivize the GEN curation network"
	default:
		return ""
	}
}

func (t Toggle) valid() bool {
	return t >= ToggleRewardProposer && t <= ToggleAutoBet
}

// Toggles is the on/off state of every toggle.
type Toggles struct {
	RewardProposer bool `json:"rewardProposer" yaml:"reward_proposer"`
	RewardVoters   bool `json:"rewardVoters" yaml:"reward_voters"`
	AutoBet        bool `json:"autoBet" yaml:"auto_bet"`
}

// DefaultToggles has every reward and penalty enabled.
func DefaultToggles() Toggles {
	return Toggles{RewardProposer: true, RewardVoters: true, AutoBet: true}
}

// Get returns the state of one toggle.
func (ts Toggles) Get(t Toggle) bool {
	switch t {
	case ToggleRewardProposer:
		return ts.RewardProposer
	case ToggleRewardVoters:
		return ts.RewardVoters
	case ToggleAutoBet:
		return ts.AutoBet
	}
	return false
}

// With returns a copy with one toggle set.
func (ts Toggles) With(t Toggle, enabled bool) Toggles {
	switch t {
	case ToggleRewardProposer:
		ts.RewardProposer = enabled
	case ToggleRewardVoters:
		ts.RewardVoters = enabled
	case ToggleAutoBet:
		ts.AutoBet = enabled
	}
	return ts
}

// togglesFrom reads every toggle from a parameter set: a toggle is on when
// its field is positive.
func togglesFrom(params genesis.Params) Toggles {
	var ts Toggles
	for _, t := range AllToggles() {
		v, _ := params.Field(t.Field())
		ts = ts.With(t, v > 0)
	}
	return ts
}
