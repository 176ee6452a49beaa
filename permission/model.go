package permission

import (
	"strings"

	"github.com/MrEthical07/goAccess/identity"
)

// Permission grants Action on Resource, subject to Conditions.
type Permission struct {
	ID             string
	Resource       string
	Action         string
	Classification identity.Classification
	Conditions     []Condition
	Description    string
}

func (p Permission) clone() Permission {
	p.Conditions = append([]Condition(nil), p.Conditions...)
	return p
}

// Matches reports whether p covers the requested resource and action.
func (p Permission) Matches(resource, action string) bool {
	return MatchPattern(p.Resource, resource) && MatchPattern(p.Action, action)
}

// Role groups permission ids and may inherit from other roles.
type Role struct {
	ID             string
	Name           string
	Description    string
	Permissions    []string
	InheritsFrom   []string
	Classification identity.Classification
}

func (r Role) clone() Role {
	r.Permissions = append([]string(nil), r.Permissions...)
	r.InheritsFrom = append([]string(nil), r.InheritsFrom...)
	return r
}

// MatchPattern matches value against pattern, where pattern is an exact value,
// "*", or "prefix:*".
//
//	MatchPattern("*", "documents:42")           // true
//	MatchPattern("documents:*", "documents:42") // true
//	MatchPattern("documents:*", "documents")    // false
//	MatchPattern("read", "write")               // false
func MatchPattern(pattern, value string) bool {
	if pattern == "*" || pattern == value {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok && strings.HasSuffix(prefix, ":") {
		return strings.HasPrefix(value, prefix)
	}
	return false
}
