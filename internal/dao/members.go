// internal/dao/members.go
//
// Founding members of the organization: each receives reputation and
// optionally native tokens at migration time.

package dao

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/kingrea/arc-wizard/internal/fsutil"
)

const (
	FieldAddress    = "address"
	FieldReputation = "reputation"
	FieldTokens     = "tokens"

	// TokenDecimals is the precision of reputation and DAO tokens on chain.
	TokenDecimals = 18
)

// Member is one founder of the organization.
type Member struct {
	Address    common.Address  `json:"address"`
	Reputation decimal.Decimal `json:"reputation"`
	Tokens     decimal.Decimal `json:"tokens"`
}

// ParseMember builds a member from raw form input.
func ParseMember(address, reputation, tokens string) (Member, FieldErrors) {
	var errs FieldErrors
	var m Member

	address = strings.TrimSpace(address)
	switch {
	case address == "":
		errs.add(FieldAddress, "required")
	case !common.IsHexAddress(address):
		errs.add(FieldAddress, "not a valid address")
	default:
		m.Address = common.HexToAddress(address)
		if m.Address == (common.Address{}) {
			errs.add(FieldAddress, "must not be the zero address")
		}
	}

	m.Reputation = parseAmount(&errs, FieldReputation, reputation)
	m.Tokens = parseAmount(&errs, FieldTokens, tokens)
	if len(errs) == 0 && !m.Reputation.IsPositive() && !m.Tokens.IsPositive() {
		errs.add(FieldReputation, "a member needs reputation or tokens")
	}
	if len(errs) > 0 {
		return Member{}, errs
	}
	return m, nil
}

func parseAmount(errs *FieldErrors, field, raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		errs.add(field, "must be a number")
		return decimal.Zero
	}
	if d.IsNegative() {
		errs.add(field, "must not be negative")
		return decimal.Zero
	}
	if d.Exponent() < -TokenDecimals && !d.Equal(d.Truncate(TokenDecimals)) {
		errs.add(field, "at most %d decimal places", TokenDecimals)
		return decimal.Zero
	}
	return d
}

// Validate re-checks a member that did not come through ParseMember.
func (m Member) Validate() FieldErrors {
	var errs FieldErrors
	if m.Address == (common.Address{}) {
		errs.add(FieldAddress, "required")
	}
	if m.Reputation.IsNegative() {
		errs.add(FieldReputation, "must not be negative")
	}
	if m.Tokens.IsNegative() {
		errs.add(FieldTokens, "must not be negative")
	}
	if len(errs) == 0 && !m.Reputation.IsPositive() && !m.Tokens.IsPositive() {
		errs.add(FieldReputation, "a member needs reputation or tokens")
	}
	return errs
}

// ReputationWei is the reputation amount in base units.
func (m Member) ReputationWei() *big.Int {
	return ToBaseUnits(m.Reputation)
}

// TokensWei is the token amount in base units.
func (m Member) TokensWei() *big.Int {
	return ToBaseUnits(m.Tokens)
}

// ToBaseUnits converts a whole-unit amount to its 18-decimal integer form.
func ToBaseUnits(d decimal.Decimal) *big.Int {
	return d.Shift(TokenDecimals).BigInt()
}

// FromBaseUnits converts an 18-decimal integer amount to whole units.
func FromBaseUnits(v *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(v, -TokenDecimals)
}

// ErrDuplicateMember is returned when an address is already in the list.
var ErrDuplicateMember = errors.New("dao: member already added")

// Members is the ordered founder list. Mutating methods return a new list.
type Members []Member

// Add appends a member unless the address is already present.
func (ms Members) Add(m Member) (Members, error) {
	if ms.IndexOf(m.Address) >= 0 {
		return ms, fmt.Errorf("%w: %s", ErrDuplicateMember, m.Address.Hex())
	}
	out := append(Members(nil), ms...)
	return append(out, m), nil
}

// Update replaces the member at index i.
func (ms Members) Update(i int, m Member) (Members, error) {
	if i < 0 || i >= len(ms) {
		return ms, fmt.Errorf("dao: member index %d out of range", i)
	}
	if j := ms.IndexOf(m.Address); j >= 0 && j != i {
		return ms, fmt.Errorf("%w: %s", ErrDuplicateMember, m.Address.Hex())
	}
	out := append(Members(nil), ms...)
	out[i] = m
	return out, nil
}

// Remove drops the member at index i.
func (ms Members) Remove(i int) (Members, error) {
	if i < 0 || i >= len(ms) {
		return ms, fmt.Errorf("dao: member index %d out of range", i)
	}
	out := make(Members, 0, len(ms)-1)
	out = append(out, ms[:i]...)
	return append(out, ms[i+1:]...), nil
}

// IndexOf returns the position of addr, or -1.
func (ms Members) IndexOf(addr common.Address) int {
	for i, m := range ms {
		if m.Address == addr {
			return i
		}
	}
	return -1
}

// Totals sums reputation and tokens across members.
func (ms Members) Totals() (reputation, tokens decimal.Decimal) {
	reputation, tokens = decimal.Zero, decimal.Zero
	for _, m := range ms {
		reputation = reputation.Add(m.Reputation)
		tokens = tokens.Add(m.Tokens)
	}
	return reputation, tokens
}

// ReputationShare returns the member's fraction of total reputation in percent.
func (ms Members) ReputationShare(i int) decimal.Decimal {
	total, _ := ms.Totals()
	if i < 0 || i >= len(ms) || total.IsZero() {
		return decimal.Zero
	}
	return ms[i].Reputation.Div(total).Mul(decimal.NewFromInt(100)).Round(2)
}

// Validate checks every member and rejects duplicates and an empty list.
func (ms Members) Validate() FieldErrors {
	var errs FieldErrors
	if len(ms) == 0 {
		errs.add("members", "at least one founder is required")
		return errs
	}
	seen := map[common.Address]int{}
	for i, m := range ms {
		for _, fe := range m.Validate() {
			errs.add(fmt.Sprintf("members[%d].%s", i, fe.Field), "%s", fe.Message)
		}
		if j, ok := seen[m.Address]; ok {
			errs.add(fmt.Sprintf("members[%d].%s", i, FieldAddress), "duplicate of members[%d]", j)
		}
		seen[m.Address] = i
	}
	return errs
}

// SaveMembers writes the member list as JSON.
func SaveMembers(path string, ms Members) error {
	if ms == nil {
		ms = Members{}
	}
	if err := fsutil.WriteJSON(path, ms); err != nil {
		return fmt.Errorf("dao: save members: %w", err)
	}
	return nil
}

// LoadMembers reads a member list written by SaveMembers. A missing file
// yields an empty list.
func LoadMembers(path string) (Members, error) {
	var ms Members
	if err := fsutil.ReadJSON(path, &ms); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Members{}, nil
		}
		return nil, fmt.Errorf("dao: load members: %w", err)
	}
	if errs := ms.Validate(); len(ms) > 0 && len(errs) > 0 {
		return nil, fmt.Errorf("dao: load members: %w", errs)
	}
	return ms, nil
}
