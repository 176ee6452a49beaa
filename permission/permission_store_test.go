package permission

import (
	"testing"

	"github.com/MrEthical07/goAccess/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(ps []Permission) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestPermissionStoreIndices(t *testing.T) {
	s := NewPermissionStore()
	require.NoError(t, s.Create(Permission{ID: "docs.read", Resource: "documents:*", Action: "read"}))
	require.NoError(t, s.Create(Permission{ID: "docs.write", Resource: "documents:*", Action: "write"}))
	require.NoError(t, s.Create(Permission{ID: "reports.read", Resource: "reports", Action: "read"}))
	require.NoError(t, s.Create(Permission{ID: "root", Resource: "*", Action: "*"}))

	assert.Equal(t, []string{"docs.read", "docs.write"}, ids(s.ByResource("documents:*")))
	assert.Equal(t, []string{"docs.read", "reports.read"}, ids(s.ByAction("read")))
	assert.Equal(t, []string{"docs.read", "root"}, ids(s.Matching("documents:9", "read")))
	assert.Equal(t, []string{"root"}, ids(s.Matching("billing", "delete")))

	require.NoError(t, s.Update(Permission{ID: "docs.read", Resource: "documents:*", Action: "list"}))
	assert.Equal(t, []string{"reports.read"}, ids(s.ByAction("read")))
	assert.Equal(t, []string{"docs.read"}, ids(s.ByAction("list")))

	require.NoError(t, s.Delete("docs.write"))
	assert.Equal(t, []string{"docs.read"}, ids(s.ByResource("documents:*")))
	require.ErrorIs(t, s.Delete("docs.write"), ErrPermissionNotFound)
}

func TestPermissionStoreValidation(t *testing.T) {
	s := NewPermissionStore()
	require.ErrorIs(t, s.Create(Permission{ID: "x", Resource: "r"}), ErrInvalidPermission)
	require.ErrorIs(t, s.Create(Permission{ID: "x", Resource: "r", Action: "a", Classification: "TOP"}), ErrInvalidPermission)
	require.ErrorIs(t, s.Create(Permission{ID: "x", Resource: "r", Action: "a", Conditions: []Condition{nil}}), ErrInvalidPermission)
	require.NoError(t, s.Create(Permission{ID: "x", Resource: "r", Action: "a", Classification: identity.ClassificationSecret}))
	require.ErrorIs(t, s.Create(Permission{ID: "x", Resource: "r", Action: "a"}), ErrPermissionExists)
	require.ErrorIs(t, s.Update(Permission{ID: "y", Resource: "r", Action: "a"}), ErrPermissionNotFound)
}
