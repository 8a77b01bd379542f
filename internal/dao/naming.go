// internal/dao/naming.go
//
// Organization naming form: the DAO name plus its native token.

package dao

import (
	"regexp"
	"strings"
)

const (
	FieldOrgName     = "orgName"
	FieldTokenName   = "tokenName"
	FieldTokenSymbol = "tokenSymbol"

	maxNameLength = 64
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{1,6}$`)

// Naming holds the organization and token names.
type Naming struct {
	OrgName     string `json:"orgName"`
	TokenName   string `json:"tokenName"`
	TokenSymbol string `json:"tokenSymbol"`
}

// Normalize trims whitespace and upper-cases the token symbol.
func (n Naming) Normalize() Naming {
	return Naming{
		OrgName:     strings.TrimSpace(n.OrgName),
		TokenName:   strings.TrimSpace(n.TokenName),
		TokenSymbol: strings.ToUpper(strings.TrimSpace(n.TokenSymbol)),
	}
}

// Validate reports per-field problems with the normalized form.
func (n Naming) Validate() FieldErrors {
	n = n.Normalize()
	var errs FieldErrors
	checkName(&errs, FieldOrgName, n.OrgName)
	checkName(&errs, FieldTokenName, n.TokenName)
	switch {
	case n.TokenSymbol == "":
		errs.add(FieldTokenSymbol, "required")
	case !symbolPattern.MatchString(n.TokenSymbol):
		errs.add(FieldTokenSymbol, "must be 1-6 letters or digits")
	}
	return errs
}

// SuggestTokenName derives a default token name from the organization name.
func SuggestTokenName(orgName string) string {
	orgName = strings.TrimSpace(orgName)
	if orgName == "" {
		return ""
	}
	return orgName + " Token"
}

// SuggestTokenSymbol derives a default symbol from the organization's initials.
func SuggestTokenSymbol(orgName string) string {
	var b strings.Builder
	for _, word := range strings.Fields(orgName) {
		for _, r := range word {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
				break
			}
		}
		if b.Len() == 4 {
			break
		}
	}
	return strings.ToUpper(b.String())
}

func checkName(errs *FieldErrors, field, value string) {
	switch {
	case value == "":
		errs.add(field, "required")
	case len(value) > maxNameLength:
		errs.add(field, "must be at most %d characters", maxNameLength)
	}
}
