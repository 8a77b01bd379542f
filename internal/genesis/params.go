// internal/genesis/params.go
//
// GenesisProtocol voting machine parameters. One Params record drives the
// voting machine of a single governance scheme.

package genesis

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Field names as they appear in the migration parameter document.
const (
	FieldQueuedVoteRequiredPercentage = "queuedVoteRequiredPercentage"
	FieldQueuedVotePeriodLimit        = "queuedVotePeriodLimit"
	FieldThresholdConst               = "thresholdConst"
	FieldProposingRepReward           = "proposingRepReward"
	FieldMinimumDaoBounty             = "minimumDaoBounty"
	FieldBoostedVotePeriodLimit       = "boostedVotePeriodLimit"
	FieldDaoBountyConst               = "daoBountyConst"
	FieldActivationTime               = "activationTime"
	FieldPreBoostedVotePeriodLimit    = "preBoostedVotePeriodLimit"
	FieldQuietEndingPeriod            = "quietEndingPeriod"
	FieldVotersReputationLossRatio    = "votersReputationLossRatio"
	FieldVoteOnBehalf                 = "voteOnBehalf"
)

// Params is the GenesisProtocol parameter set for one voting machine.
type Params struct {
	QueuedVoteRequiredPercentage uint64         `json:"queuedVoteRequiredPercentage" yaml:"queuedVoteRequiredPercentage"`
	QueuedVotePeriodLimit        uint64         `json:"queuedVotePeriodLimit" yaml:"queuedVotePeriodLimit"`
	ThresholdConst               uint64         `json:"thresholdConst" yaml:"thresholdConst"`
	ProposingRepReward           uint64         `json:"proposingRepReward" yaml:"proposingRepReward"`
	MinimumDaoBounty             uint64         `json:"minimumDaoBounty" yaml:"minimumDaoBounty"`
	BoostedVotePeriodLimit       uint64         `json:"boostedVotePeriodLimit" yaml:"boostedVotePeriodLimit"`
	DaoBountyConst               uint64         `json:"daoBountyConst" yaml:"daoBountyConst"`
	ActivationTime               uint64         `json:"activationTime" yaml:"activationTime"`
	PreBoostedVotePeriodLimit    uint64         `json:"preBoostedVotePeriodLimit" yaml:"preBoostedVotePeriodLimit"`
	QuietEndingPeriod            uint64         `json:"quietEndingPeriod" yaml:"quietEndingPeriod"`
	VoteOnBehalf                 common.Address `json:"voteOnBehalf" yaml:"voteOnBehalf"`
	VotersReputationLossRatio    uint64         `json:"votersReputationLossRatio" yaml:"votersReputationLossRatio"`
}

// NumericFields lists the editable numeric fields in display order.
var NumericFields = []string{
	FieldQueuedVoteRequiredPercentage,
	FieldQueuedVotePeriodLimit,
	FieldBoostedVotePeriodLimit,
	FieldPreBoostedVotePeriodLimit,
	FieldThresholdConst,
	FieldQuietEndingPeriod,
	FieldProposingRepReward,
	FieldVotersReputationLossRatio,
	FieldMinimumDaoBounty,
	FieldDaoBountyConst,
	FieldActivationTime,
}

func (p *Params) numericRef(name string) (*uint64, bool) {
	switch name {
	case FieldQueuedVoteRequiredPercentage:
		return &p.QueuedVoteRequiredPercentage, true
	case FieldQueuedVotePeriodLimit:
		return &p.QueuedVotePeriodLimit, true
	case FieldThresholdConst:
		return &p.ThresholdConst, true
	case FieldProposingRepReward:
		return &p.ProposingRepReward, true
	case FieldMinimumDaoBounty:
		return &p.MinimumDaoBounty, true
	case FieldBoostedVotePeriodLimit:
		return &p.BoostedVotePeriodLimit, true
	case FieldDaoBountyConst:
		return &p.DaoBountyConst, true
	case FieldActivationTime:
		return &p.ActivationTime, true
	case FieldPreBoostedVotePeriodLimit:
		return &p.PreBoostedVotePeriodLimit, true
	case FieldQuietEndingPeriod:
		return &p.QuietEndingPeriod, true
	case FieldVotersReputationLossRatio:
		return &p.VotersReputationLossRatio, true
	}
	return nil, false
}

// Field returns the value of a numeric field by its document name.
func (p Params) Field(name string) (uint64, error) {
	ref, ok := p.numericRef(name)
	if !ok {
		return 0, fmt.Errorf("genesis: unknown field %q", name)
	}
	return *ref, nil
}

// WithField returns a copy of p with the named numeric field replaced.
func (p Params) WithField(name string, value uint64) (Params, error) {
	ref, ok := p.numericRef(name)
	if !ok {
		return p, fmt.Errorf("genesis: unknown field %q", name)
	}
	*ref = value
	return p, nil
}

// Values returns the numeric parameters in the order the contract expects them.
func (p Params) Values() []uint64 {
	return []uint64{
		p.QueuedVoteRequiredPercentage,
		p.QueuedVotePeriodLimit,
		p.BoostedVotePeriodLimit,
		p.PreBoostedVotePeriodLimit,
		p.ThresholdConst,
		p.QuietEndingPeriod,
		p.ProposingRepReward,
		p.VotersReputationLossRatio,
		p.MinimumDaoBounty,
		p.DaoBountyConst,
		p.ActivationTime,
	}
}

// Diff lists the numeric fields (plus voteOnBehalf) whose values differ.
func (p Params) Diff(other Params) []string {
	var fields []string
	for _, name := range NumericFields {
		a, _ := p.Field(name)
		b, _ := other.Field(name)
		if a != b {
			fields = append(fields, name)
		}
	}
	if p.VoteOnBehalf != other.VoteOnBehalf {
		fields = append(fields, FieldVoteOnBehalf)
	}
	return fields
}

var uintArrayType = mustType("uint256[11]")

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// Hash returns the parameters hash the GenesisProtocol contract registers
// the set under:
// keccak256(abi.encodePacked(keccak256(abi.encodePacked(params)), voteOnBehalf)).
func (p Params) Hash() (common.Hash, error) {
	var packed [11]*big.Int
	for i, v := range p.Values() {
		packed[i] = new(big.Int).SetUint64(v)
	}
	args := abi.Arguments{{Name: "params", Type: uintArrayType}}
	buf, err := args.Pack(packed)
	if err != nil {
		return common.Hash{}, fmt.Errorf("genesis: pack params: %w", err)
	}
	inner := crypto.Keccak256(buf)
	return crypto.Keccak256Hash(inner, p.VoteOnBehalf.Bytes()), nil
}

// FieldError reports a single invalid parameter.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ValidationErrors collects every invalid field of a Params record.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Error()
	}
	return "genesis: invalid parameters: " + strings.Join(parts, "; ")
}

// ByField indexes the errors by field name.
func (v ValidationErrors) ByField() map[string]string {
	out := make(map[string]string, len(v))
	for _, fe := range v {
		out[fe.Field] = fe.Reason
	}
	return out
}

// Validate enforces the bounds the GenesisProtocol contract checks on
// registration. minimumDaoBounty may be zero because the auto-bet toggle
// disables it that way.
func (p Params) Validate() error {
	var errs ValidationErrors
	if p.QueuedVoteRequiredPercentage < 50 || p.QueuedVoteRequiredPercentage > 100 {
		errs = append(errs, FieldError{FieldQueuedVoteRequiredPercentage, "must be between 50 and 100"})
	}
	if p.ThresholdConst <= 1000 || p.ThresholdConst > 16000 {
		errs = append(errs, FieldError{FieldThresholdConst, "must be above 1000 and at most 16000"})
	}
	if p.VotersReputationLossRatio > 100 {
		errs = append(errs, FieldError{FieldVotersReputationLossRatio, "must be at most 100"})
	}
	if p.QueuedVotePeriodLimit < p.QuietEndingPeriod {
		errs = append(errs, FieldError{FieldQueuedVotePeriodLimit, "must not be shorter than quietEndingPeriod"})
	}
	if p.DaoBountyConst == 0 {
		errs = append(errs, FieldError{FieldDaoBountyConst, "must be positive"})
	}
	if len(errs) == 0 {
		return nil
	}
	sort.SliceStable(errs, func(i, j int) bool { return fieldOrder(errs[i].Field) < fieldOrder(errs[j].Field) })
	return errs
}

func fieldOrder(name string) int {
	for i, f := range NumericFields {
		if f == name {
			return i
		}
	}
	return len(NumericFields)
}
