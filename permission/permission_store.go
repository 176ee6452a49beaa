package permission

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// PermissionStore holds permissions indexed by resource and by action.
type PermissionStore struct {
	mu         sync.RWMutex
	perms      map[string]Permission
	byResource map[string]map[string]struct{}
	byAction   map[string]map[string]struct{}
}

// NewPermissionStore creates an empty store.
func NewPermissionStore() *PermissionStore {
	return &PermissionStore{
		perms:      make(map[string]Permission),
		byResource: make(map[string]map[string]struct{}),
		byAction:   make(map[string]map[string]struct{}),
	}
}

func validatePermission(p Permission) (Permission, error) {
	p = p.clone()
	p.ID = strings.TrimSpace(p.ID)
	p.Resource = strings.TrimSpace(p.Resource)
	p.Action = strings.TrimSpace(p.Action)
	if p.ID == "" || p.Resource == "" || p.Action == "" {
		return Permission{}, ErrInvalidPermission
	}
	if p.Classification != "" && !p.Classification.Valid() {
		return Permission{}, fmt.Errorf("%w: classification %q", ErrInvalidPermission, p.Classification)
	}
	for _, c := range p.Conditions {
		if c == nil {
			return Permission{}, fmt.Errorf("%w: nil condition", ErrInvalidPermission)
		}
	}
	return p, nil
}

// Create adds p.
func (s *PermissionStore) Create(p Permission) error {
	p, err := validatePermission(p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.perms[p.ID]; ok {
		return fmt.Errorf("%w: %s", ErrPermissionExists, p.ID)
	}
	s.putLocked(p)
	return nil
}

// Update replaces the permission with p.ID.
func (s *PermissionStore) Update(p Permission) error {
	p, err := validatePermission(p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.perms[p.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPermissionNotFound, p.ID)
	}
	s.unindexLocked(prev)
	s.putLocked(p)
	return nil
}

// Delete removes id. Roles that still list id simply stop resolving it.
func (s *PermissionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.perms[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPermissionNotFound, id)
	}
	s.unindexLocked(prev)
	delete(s.perms, id)
	return nil
}

// Get returns a copy of the permission with id.
func (s *PermissionStore) Get(id string) (Permission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.perms[id]
	if !ok {
		return Permission{}, false
	}
	return p.clone(), true
}

// List returns every permission ordered by id.
func (s *PermissionStore) List() []Permission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Permission, 0, len(s.perms))
	for _, p := range s.perms {
		out = append(out, p.clone())
	}
	sortPermissions(out)
	return out
}

// ByResource returns permissions declared on exactly resource.
func (s *PermissionStore) ByResource(resource string) []Permission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLocked(s.byResource[resource])
}

// ByAction returns permissions declared for exactly action.
func (s *PermissionStore) ByAction(action string) []Permission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLocked(s.byAction[action])
}

// Matching returns every permission whose patterns cover resource and action.
func (s *PermissionStore) Matching(resource, action string) []Permission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Permission
	for _, p := range s.perms {
		if p.Matches(resource, action) {
			out = append(out, p.clone())
		}
	}
	sortPermissions(out)
	return out
}

func (s *PermissionStore) collectLocked(ids map[string]struct{}) []Permission {
	out := make([]Permission, 0, len(ids))
	for id := range ids {
		out = append(out, s.perms[id].clone())
	}
	sortPermissions(out)
	return out
}

func (s *PermissionStore) putLocked(p Permission) {
	s.perms[p.ID] = p
	addIndex(s.byResource, p.Resource, p.ID)
	addIndex(s.byAction, p.Action, p.ID)
}

func (s *PermissionStore) unindexLocked(p Permission) {
	removeIndex(s.byResource, p.Resource, p.ID)
	removeIndex(s.byAction, p.Action, p.ID)
}

func addIndex(idx map[string]map[string]struct{}, key, id string) {
	ids, ok := idx[key]
	if !ok {
		ids = make(map[string]struct{})
		idx[key] = ids
	}
	ids[id] = struct{}{}
}

func removeIndex(idx map[string]map[string]struct{}, key, id string) {
	ids := idx[key]
	delete(ids, id)
	if len(ids) == 0 {
		delete(idx, key)
	}
}

func sortPermissions(ps []Permission) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
}
