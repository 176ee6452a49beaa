package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		pattern, value string
		want           bool
	}{
		{"*", "documents:42", true},
		{"*", "", true},
		{"documents", "documents", true},
		{"documents", "documents:42", false},
		{"documents:*", "documents:42", true},
		{"documents:*", "documents:42:pages", true},
		{"documents:*", "documents", false},
		{"documents:*", "reports:1", false},
		{"doc*", "documents", false},
		{"read", "write", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MatchPattern(tc.pattern, tc.value), "%q vs %q", tc.pattern, tc.value)
	}
}

func TestPermissionMatches(t *testing.T) {
	p := Permission{ID: "docs.read", Resource: "documents:*", Action: "read"}
	assert.True(t, p.Matches("documents:7", "read"))
	assert.False(t, p.Matches("documents:7", "write"))
	assert.True(t, Permission{Resource: "*", Action: "*"}.Matches("anything", "at-all"))
}
