package permission

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// RoleStore holds roles and the permission-id → role-ids index. Every
// successful write bumps Version and notifies change listeners.
type RoleStore struct {
	mu           sync.RWMutex
	roles        map[string]Role
	byPermission map[string]map[string]struct{}
	version      uint64
	listeners    []func(version uint64)
}

// NewRoleStore creates an empty store.
func NewRoleStore() *RoleStore {
	return &RoleStore{
		roles:        make(map[string]Role),
		byPermission: make(map[string]map[string]struct{}),
	}
}

// OnChange registers fn to run after every successful write. fn runs outside
// the store lock.
func (s *RoleStore) OnChange(fn func(version uint64)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Version returns a counter incremented on every successful write.
func (s *RoleStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Create adds r. It fails without writing anything when r already exists, names
// a missing parent, or would close an inheritance cycle.
func (s *RoleStore) Create(r Role) error {
	r = normalizeRole(r)
	if r.ID == "" {
		return ErrInvalidRole
	}
	s.mu.Lock()
	if _, ok := s.roles[r.ID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRoleExists, r.ID)
	}
	if err := s.checkParentsLocked(r); err != nil {
		s.mu.Unlock()
		return err
	}
	s.putLocked(r)
	return s.commitLocked()
}

// Update replaces the role with r.ID under the same checks as Create.
func (s *RoleStore) Update(r Role) error {
	r = normalizeRole(r)
	if r.ID == "" {
		return ErrInvalidRole
	}
	s.mu.Lock()
	prev, ok := s.roles[r.ID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRoleNotFound, r.ID)
	}
	if err := s.checkParentsLocked(r); err != nil {
		s.mu.Unlock()
		return err
	}
	s.unindexLocked(prev)
	s.putLocked(r)
	return s.commitLocked()
}

// Delete removes id. A role still inherited by another role cannot be deleted.
func (s *RoleStore) Delete(id string) error {
	s.mu.Lock()
	prev, ok := s.roles[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRoleNotFound, id)
	}
	for _, other := range s.roles {
		for _, parent := range other.InheritsFrom {
			if parent == id {
				s.mu.Unlock()
				return fmt.Errorf("%w: %s inherits %s", ErrRoleInUse, other.ID, id)
			}
		}
	}
	s.unindexLocked(prev)
	delete(s.roles, id)
	return s.commitLocked()
}

// Get returns a copy of the role with id.
func (s *RoleStore) Get(id string) (Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[id]
	if !ok {
		return Role{}, false
	}
	return r.clone(), true
}

// List returns every role ordered by id.
func (s *RoleStore) List() []Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RolesGranting returns the ids of roles that directly list permissionID.
func (s *RoleStore) RolesGranting(permissionID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byPermission[permissionID]
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func normalizeRole(r Role) Role {
	r = r.clone()
	r.ID = strings.TrimSpace(r.ID)
	r.InheritsFrom = dedupe(r.InheritsFrom)
	r.Permissions = dedupe(r.Permissions)
	return r
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// checkParentsLocked rejects missing parents and any parent from which r.ID is
// reachable, treating r's edges as already replaced.
func (s *RoleStore) checkParentsLocked(r Role) error {
	for _, parent := range r.InheritsFrom {
		if parent == r.ID {
			return fmt.Errorf("%w: %s inherits itself", ErrRoleCycle, r.ID)
		}
		if _, ok := s.roles[parent]; !ok {
			return fmt.Errorf("%w: parent %s", ErrRoleNotFound, parent)
		}
	}
	visited := make(map[string]bool)
	var reaches func(id string) bool
	reaches = func(id string) bool {
		if id == r.ID {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		for _, p := range s.roles[id].InheritsFrom {
			if reaches(p) {
				return true
			}
		}
		return false
	}
	for _, parent := range r.InheritsFrom {
		if reaches(parent) {
			return fmt.Errorf("%w: %s -> %s", ErrRoleCycle, r.ID, parent)
		}
	}
	return nil
}

func (s *RoleStore) putLocked(r Role) {
	s.roles[r.ID] = r
	for _, p := range r.Permissions {
		ids, ok := s.byPermission[p]
		if !ok {
			ids = make(map[string]struct{})
			s.byPermission[p] = ids
		}
		ids[r.ID] = struct{}{}
	}
}

func (s *RoleStore) unindexLocked(r Role) {
	for _, p := range r.Permissions {
		ids := s.byPermission[p]
		delete(ids, r.ID)
		if len(ids) == 0 {
			delete(s.byPermission, p)
		}
	}
}

// commitLocked bumps the version, releases the lock and notifies listeners.
func (s *RoleStore) commitLocked() error {
	s.version++
	v := s.version
	listeners := append([]func(uint64){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(v)
	}
	return nil
}

// edges returns the direct permission ids and parents of id. Stored slices are
// replaced, never modified, so they are returned without copying.
func (s *RoleStore) edges(id string) ([]string, []string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[id]
	if !ok {
		return nil, nil, false
	}
	return r.Permissions, r.InheritsFrom, true
}
