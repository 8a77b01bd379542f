// internal/migration/params.go
//
// The DAO migration parameter document. Its shape matches what the Arc
// migration library expects as input, so a saved document can be handed to
// the library unchanged.

package migration

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/kingrea/arc-wizard/internal/dao"
	"github.com/kingrea/arc-wizard/internal/fsutil"
	"github.com/kingrea/arc-wizard/internal/genesis"
	"github.com/kingrea/arc-wizard/internal/scheme"
)

// Params is the DAOMigrationParams document.
type Params struct {
	OrgName              string                     `json:"orgName"`
	TokenName            string                     `json:"tokenName"`
	TokenSymbol          string                     `json:"tokenSymbol"`
	VotingMachinesParams []genesis.Params           `json:"VotingMachinesParams"`
	Schemes              SchemeFlags                `json:"schemes"`
	ContributionReward   []ContributionRewardParams `json:"ContributionReward,omitempty"`
	SchemeRegistrar      []SchemeRegistrarParams    `json:"SchemeRegistrar,omitempty"`
	GenericScheme        []GenericSchemeParams      `json:"GenericScheme,omitempty"`
	UnregisterOwner      bool                       `json:"unregisterOwner"`
	UseUController       bool                       `json:"useUController"`
	UseDaoCreator        bool                       `json:"useDaoCreator"`
	Founders             []Founder                  `json:"founders"`
}

// SchemeFlags marks which schemes the migration registers.
type SchemeFlags struct {
	ContributionReward bool `json:"ContributionReward,omitempty"`
	SchemeRegistrar    bool `json:"SchemeRegistrar,omitempty"`
	GenericScheme      bool `json:"GenericScheme,omitempty"`
}

// ContributionRewardParams references a voting machine by index.
type ContributionRewardParams struct {
	VoteParams int `json:"voteParams"`
}

// SchemeRegistrarParams references the voting machines for adding and
// removing schemes.
type SchemeRegistrarParams struct {
	VoteRegisterParams int `json:"voteRegisterParams"`
	VoteRemoveParams   int `json:"voteRemoveParams"`
}

// GenericSchemeParams references a voting machine and the contract to call.
type GenericSchemeParams struct {
	VoteParams     int            `json:"voteParams"`
	TargetContract common.Address `json:"targetContract"`
}

// Founder is a founding member in whole reputation/token units.
type Founder struct {
	Address    common.Address  `json:"address"`
	Reputation decimal.Decimal `json:"reputation"`
	Tokens     decimal.Decimal `json:"tokens"`
}

// MarshalJSON writes the amounts as plain JSON numbers.
func (f Founder) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Address    common.Address `json:"address"`
		Reputation json.Number    `json:"reputation"`
		Tokens     json.Number    `json:"tokens"`
	}{f.Address, json.Number(f.Reputation.String()), json.Number(f.Tokens.String())})
}

// Options are the migration switches that are not derived from the wizard forms.
type Options struct {
	UnregisterOwner bool `yaml:"unregister_owner" json:"unregisterOwner"`
	UseUController  bool `yaml:"use_ucontroller" json:"useUController"`
	UseDaoCreator   bool `yaml:"use_dao_creator" json:"useDaoCreator"`
}

// DefaultOptions registers through the DaoCreator and drops the owner's
// rights once the organization is set up.
func DefaultOptions() Options {
	return Options{UnregisterOwner: true, UseDaoCreator: true}
}

// Build assembles the document. Identical voting machine parameter sets are
// stored once and referenced by index.
func Build(naming dao.Naming, members dao.Members, schemes []scheme.Scheme, opts Options) (Params, error) {
	naming = naming.Normalize()
	p := Params{
		OrgName:         naming.OrgName,
		TokenName:       naming.TokenName,
		TokenSymbol:     naming.TokenSymbol,
		UnregisterOwner: opts.UnregisterOwner,
		UseUController:  opts.UseUController,
		UseDaoCreator:   opts.UseDaoCreator,
		Founders:        make([]Founder, 0, len(members)),
	}
	for _, m := range members {
		p.Founders = append(p.Founders, Founder{Address: m.Address, Reputation: m.Reputation, Tokens: m.Tokens})
	}
	seen := map[scheme.Type]bool{}
	for _, s := range schemes {
		if seen[s.Type] {
			return Params{}, fmt.Errorf("migration: duplicate scheme %s", s.Type)
		}
		seen[s.Type] = true
		idx := p.votingMachine(s.Params)
		switch s.Type {
		case scheme.ContributionReward:
			p.Schemes.ContributionReward = true
			p.ContributionReward = append(p.ContributionReward, ContributionRewardParams{VoteParams: idx})
		case scheme.SchemeRegistrar:
			p.Schemes.SchemeRegistrar = true
			p.SchemeRegistrar = append(p.SchemeRegistrar, SchemeRegistrarParams{VoteRegisterParams: idx, VoteRemoveParams: idx})
		case scheme.GenericScheme:
			p.Schemes.GenericScheme = true
			p.GenericScheme = append(p.GenericScheme, GenericSchemeParams{VoteParams: idx, TargetContract: s.Target})
		default:
			return Params{}, fmt.Errorf("migration: unsupported scheme type %d", int(s.Type))
		}
	}
	return p, nil
}

func (p *Params) votingMachine(params genesis.Params) int {
	for i, existing := range p.VotingMachinesParams {
		if existing == params {
			return i
		}
	}
	p.VotingMachinesParams = append(p.VotingMachinesParams, params)
	return len(p.VotingMachinesParams) - 1
}

// Naming extracts the naming form.
func (p Params) Naming() dao.Naming {
	return dao.Naming{OrgName: p.OrgName, TokenName: p.TokenName, TokenSymbol: p.TokenSymbol}
}

// Members extracts the founder list.
func (p Params) Members() dao.Members {
	out := make(dao.Members, 0, len(p.Founders))
	for _, f := range p.Founders {
		out = append(out, dao.Member{Address: f.Address, Reputation: f.Reputation, Tokens: f.Tokens})
	}
	return out
}

// Options extracts the migration switches.
func (p Params) Options() Options {
	return Options{UnregisterOwner: p.UnregisterOwner, UseUController: p.UseUController, UseDaoCreator: p.UseDaoCreator}
}

// Restore rebuilds scheme records from the document. A scheme is bound to a
// preset when its parameters match one exactly.
func (p Params) Restore() ([]scheme.Scheme, error) {
	var out []scheme.Scheme
	add := func(t scheme.Type, idx int, target common.Address) error {
		params, err := p.machine(idx)
		if err != nil {
			return fmt.Errorf("migration: %s: %w", t, err)
		}
		s := scheme.Scheme{Type: t, Params: params, Target: target}
		if preset, ok := genesis.MatchPreset(params); ok {
			s = s.Bind(preset)
		}
		out = append(out, s)
		return nil
	}
	if p.Schemes.ContributionReward && len(p.ContributionReward) > 0 {
		if err := add(scheme.ContributionReward, p.ContributionReward[0].VoteParams, common.Address{}); err != nil {
			return nil, err
		}
	}
	if p.Schemes.SchemeRegistrar && len(p.SchemeRegistrar) > 0 {
		if err := add(scheme.SchemeRegistrar, p.SchemeRegistrar[0].VoteRegisterParams, common.Address{}); err != nil {
			return nil, err
		}
	}
	if p.Schemes.GenericScheme && len(p.GenericScheme) > 0 {
		gs := p.GenericScheme[0]
		if err := add(scheme.GenericScheme, gs.VoteParams, gs.TargetContract); err != nil {
			return nil, err
		}
	}
	if len(out) == 0 {
		return nil, errors.New("migration: document registers no schemes")
	}
	return out, nil
}

func (p Params) machine(idx int) (genesis.Params, error) {
	if idx < 0 || idx >= len(p.VotingMachinesParams) {
		return genesis.Params{}, fmt.Errorf("voting machine index %d out of range (have %d)", idx, len(p.VotingMachinesParams))
	}
	return p.VotingMachinesParams[idx], nil
}

// Hashes returns the GenesisProtocol parameters hash of every voting machine.
func (p Params) Hashes() ([]common.Hash, error) {
	out := make([]common.Hash, len(p.VotingMachinesParams))
	for i, vm := range p.VotingMachinesParams {
		h, err := vm.Hash()
		if err != nil {
			return nil, err
		}
		out[i] = h
	}
	return out, nil
}

// Problems lists every reason the document cannot be migrated.
type Problems []string

func (ps Problems) Error() string {
	return "migration: invalid parameters: " + strings.Join(ps, "; ")
}

// Validate checks the whole document.
func (p Params) Validate() error {
	var problems Problems
	for _, fe := range p.Naming().Validate() {
		problems = append(problems, fe.Error())
	}
	for _, fe := range p.Members().Validate() {
		problems = append(problems, fe.Error())
	}
	for i, vm := range p.VotingMachinesParams {
		var verrs genesis.ValidationErrors
		if err := vm.Validate(); errors.As(err, &verrs) {
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("VotingMachinesParams[%d].%s", i, fe.Error()))
			}
		}
	}
	if !p.Schemes.ContributionReward && !p.Schemes.SchemeRegistrar && !p.Schemes.GenericScheme {
		problems = append(problems, "schemes: at least one scheme is required")
	}
	checkIdx := func(label string, idx int) {
		if _, err := p.machine(idx); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", label, err))
		}
	}
	if p.Schemes.ContributionReward && len(p.ContributionReward) == 0 {
		problems = append(problems, "ContributionReward: enabled without parameters")
	}
	for i, cr := range p.ContributionReward {
		checkIdx(fmt.Sprintf("ContributionReward[%d].voteParams", i), cr.VoteParams)
	}
	if p.Schemes.SchemeRegistrar && len(p.SchemeRegistrar) == 0 {
		problems = append(problems, "SchemeRegistrar: enabled without parameters")
	}
	for i, sr := range p.SchemeRegistrar {
		checkIdx(fmt.Sprintf("SchemeRegistrar[%d].voteRegisterParams", i), sr.VoteRegisterParams)
		checkIdx(fmt.Sprintf("SchemeRegistrar[%d].voteRemoveParams", i), sr.VoteRemoveParams)
	}
	if p.Schemes.GenericScheme && len(p.GenericScheme) == 0 {
		problems = append(problems, "GenericScheme: enabled without parameters")
	}
	for i, gs := range p.GenericScheme {
		checkIdx(fmt.Sprintf("GenericScheme[%d].voteParams", i), gs.VoteParams)
		if gs.TargetContract == (common.Address{}) {
			problems = append(problems, fmt.Sprintf("GenericScheme[%d].targetContract: required", i))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

// ToJSON renders the document with two-space indentation.
func ToJSON(p Params) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("migration: encode: %w", err)
	}
	return data, nil
}

// FromJSON parses a document.
func FromJSON(data []byte) (Params, error) {
	var p Params
	if err := json.Unmarshal(data, &p); err != nil {
		return Params{}, fmt.Errorf("migration: parse: %w", err)
	}
	return p, nil
}

// Save writes the document to path atomically.
func Save(path string, p Params) error {
	data, err := ToJSON(p)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("migration: save %s: %w", path, err)
	}
	return nil
}

// Load reads a document from path.
func Load(path string) (Params, error) {
	var p Params
	if err := fsutil.ReadJSON(path, &p); err != nil {
		return Params{}, fmt.Errorf("migration: load: %w", err)
	}
	return p, nil
}
