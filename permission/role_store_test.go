package permission

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleCycleRejectionLeavesStateUnchanged(t *testing.T) {
	s := NewRoleStore()
	require.NoError(t, s.Create(Role{ID: "B", Permissions: []string{"p.b"}}))
	require.NoError(t, s.Create(Role{ID: "A", Permissions: []string{"p.a"}, InheritsFrom: []string{"B"}}))
	version := s.Version()

	err := s.Update(Role{ID: "B", Permissions: []string{"p.b2"}, InheritsFrom: []string{"A"}})
	require.ErrorIs(t, err, ErrRoleCycle)

	b, ok := s.Get("B")
	require.True(t, ok)
	assert.Equal(t, []string{"p.b"}, b.Permissions)
	assert.Empty(t, b.InheritsFrom)
	a, _ := s.Get("A")
	assert.Equal(t, []string{"B"}, a.InheritsFrom)
	assert.Equal(t, version, s.Version(), "rejected write must not bump version")
	assert.Equal(t, []string{"B"}, s.RolesGranting("p.b"))
	assert.Empty(t, s.RolesGranting("p.b2"))
}

func TestRoleLongCycleRejected(t *testing.T) {
	s := NewRoleStore()
	require.NoError(t, s.Create(Role{ID: "c"}))
	require.NoError(t, s.Create(Role{ID: "b", InheritsFrom: []string{"c"}}))
	require.NoError(t, s.Create(Role{ID: "a", InheritsFrom: []string{"b"}}))
	require.ErrorIs(t, s.Update(Role{ID: "c", InheritsFrom: []string{"a"}}), ErrRoleCycle)
	require.ErrorIs(t, s.Update(Role{ID: "c", InheritsFrom: []string{"c"}}), ErrRoleCycle)
}

func TestRoleMissingParentRejected(t *testing.T) {
	s := NewRoleStore()
	err := s.Create(Role{ID: "admin", InheritsFrom: []string{"ghost"}})
	require.ErrorIs(t, err, ErrRoleNotFound)
	_, ok := s.Get("admin")
	assert.False(t, ok, "failed create must not write")
}

func TestRoleCreateValidation(t *testing.T) {
	s := NewRoleStore()
	require.ErrorIs(t, s.Create(Role{ID: "  "}), ErrInvalidRole)
	require.NoError(t, s.Create(Role{ID: "user"}))
	require.ErrorIs(t, s.Create(Role{ID: "user"}), ErrRoleExists)
	require.ErrorIs(t, s.Update(Role{ID: "nobody"}), ErrRoleNotFound)
}

func TestRoleDeleteInUse(t *testing.T) {
	s := NewRoleStore()
	require.NoError(t, s.Create(Role{ID: "guest", Permissions: []string{"p.guest"}}))
	require.NoError(t, s.Create(Role{ID: "user", InheritsFrom: []string{"guest"}}))

	err := s.Delete("guest")
	require.True(t, errors.Is(err, ErrRoleInUse))

	require.NoError(t, s.Delete("user"))
	require.NoError(t, s.Delete("guest"))
	assert.Empty(t, s.RolesGranting("p.guest"))
	require.ErrorIs(t, s.Delete("guest"), ErrRoleNotFound)
}

func TestRoleStoreIndexAndListeners(t *testing.T) {
	s := NewRoleStore()
	var versions []uint64
	s.OnChange(func(v uint64) { versions = append(versions, v) })

	require.NoError(t, s.Create(Role{ID: "editor", Permissions: []string{"docs.read", "docs.write", "docs.read"}}))
	require.NoError(t, s.Create(Role{ID: "viewer", Permissions: []string{"docs.read"}}))
	assert.Equal(t, []string{"editor", "viewer"}, s.RolesGranting("docs.read"))

	require.NoError(t, s.Update(Role{ID: "editor", Permissions: []string{"docs.write"}}))
	assert.Equal(t, []string{"viewer"}, s.RolesGranting("docs.read"))
	assert.Equal(t, []string{"editor"}, s.RolesGranting("docs.write"))

	editor, _ := s.Get("editor")
	editor.Permissions[0] = "mutated"
	again, _ := s.Get("editor")
	assert.Equal(t, "docs.write", again.Permissions[0], "Get must return a copy")

	assert.Equal(t, []uint64{1, 2, 3}, versions)
	assert.Len(t, s.List(), 2)
}
