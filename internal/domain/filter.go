package domain

import "strings"

// FilterState is the two-term free-text filter applied across every rendered
// level of the tree. One FilterState is active per browser session; it is
// persisted under the globalFilter session key.
type FilterState struct {
	CommonName     string `json:"common_name"`
	ContractNumber string `json:"contract_number"`
}

// Normalize lowercases and trims both terms. Matching is always performed on
// normalized terms; raw user input is never compared case-sensitively.
func (f FilterState) Normalize() FilterState {
	return FilterState{
		CommonName:     strings.ToLower(strings.TrimSpace(f.CommonName)),
		ContractNumber: strings.ToLower(strings.TrimSpace(f.ContractNumber)),
	}
}

// Empty reports whether both terms are absent. An empty filter matches every
// row.
func (f FilterState) Empty() bool {
	n := f.Normalize()
	return n.CommonName == "" && n.ContractNumber == ""
}

// MatchesRow evaluates both terms against a row's schema-bound role fields.
// An absent term matches all rows; a present term requires the row's level to
// bind the role and the bound field to contain the term (case-insensitive).
func (f FilterState) MatchesRow(ls LevelSchema, field func(key string) string) bool {
	n := f.Normalize()
	if !termMatches(n.CommonName, ls, RoleName, field) {
		return false
	}
	return termMatches(n.ContractNumber, ls, RoleContract, field)
}

func termMatches(term string, ls LevelSchema, role FieldRole, field func(key string) string) bool {
	if term == "" {
		return true
	}
	bound, ok := ls.RoleField(role)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(field(bound.Key)), term)
}
