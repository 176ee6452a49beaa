package permission

import (
	"context"
	"sort"
	"sync"
)

// Grants are the roles and permissions assigned directly to a user.
type Grants struct {
	Roles       []string
	Permissions []string
}

// GrantLookup resolves a user's directly assigned grants.
type GrantLookup interface {
	Grants(ctx context.Context, userID string) (Grants, error)
}

// AssignmentStore is an in-memory GrantLookup.
type AssignmentStore struct {
	mu    sync.RWMutex
	roles map[string]map[string]struct{}
	perms map[string]map[string]struct{}
}

// NewAssignmentStore creates an empty store.
func NewAssignmentStore() *AssignmentStore {
	return &AssignmentStore{
		roles: make(map[string]map[string]struct{}),
		perms: make(map[string]map[string]struct{}),
	}
}

// AssignRole gives userID the role roleID.
func (s *AssignmentStore) AssignRole(userID, roleID string) {
	s.mu.Lock()
	addIndex(s.roles, userID, roleID)
	s.mu.Unlock()
}

// UnassignRole removes roleID from userID.
func (s *AssignmentStore) UnassignRole(userID, roleID string) {
	s.mu.Lock()
	removeIndex(s.roles, userID, roleID)
	s.mu.Unlock()
}

// GrantPermission gives userID the permission permissionID directly.
func (s *AssignmentStore) GrantPermission(userID, permissionID string) {
	s.mu.Lock()
	addIndex(s.perms, userID, permissionID)
	s.mu.Unlock()
}

// RevokePermission removes a direct permission grant.
func (s *AssignmentStore) RevokePermission(userID, permissionID string) {
	s.mu.Lock()
	removeIndex(s.perms, userID, permissionID)
	s.mu.Unlock()
}

// Grants returns the sorted grants of userID.
func (s *AssignmentStore) Grants(_ context.Context, userID string) (Grants, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Grants{Roles: keys(s.roles[userID]), Permissions: keys(s.perms[userID])}, nil
}

func keys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
