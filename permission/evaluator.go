package permission

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goAccess/identity"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Decision reasons.
const (
	ReasonGranted          = "permission granted"
	ReasonNoMatch          = "no matching permission"
	ReasonConditionsNotMet = "permission conditions not satisfied"
	ReasonInvalidRequest   = "resource and action are required"
	ReasonLookupFailed     = "grant lookup failed"
)

// Request is one access question. Roles and Permissions are the caller's
// claimed grants; assignments from the evaluator's GrantLookup are merged in.
type Request struct {
	UserID         string
	Roles          []string
	Permissions    []string
	Classification identity.Classification

	Resource      string
	Action        string
	ResourceOwner string
	Location      string
	// Time is the moment evaluated by time conditions. Zero means now.
	Time       time.Time
	Attributes map[string]string
}

// ConditionFailure records why one condition on a candidate permission failed.
type ConditionFailure struct {
	PermissionID string
	Kind         ConditionKind
	Reason       string
}

// Decision is the outcome of Evaluate. A denial is a Decision, never an error.
type Decision struct {
	Allowed bool
	Reason  string
	// Permission is the first fully satisfied permission when Allowed.
	Permission *Permission
	// Classification is the most restrictive of the caller's and the granting
	// permission's classification.
	Classification   identity.Classification
	FailedConditions []ConditionFailure
}

// CustomFunc evaluates a CustomCondition registered under its Name.
type CustomFunc func(ctx context.Context, req Request, c CustomCondition) (bool, error)

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithGrants merges assignments from lookup into every request.
func WithGrants(lookup GrantLookup) Option {
	return func(e *Evaluator) { e.grants = lookup }
}

// WithClock overrides the clock used for time conditions.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

// WithLogger sets the evaluator logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Evaluator) { e.log = l }
}

// WithCacheTTL bounds how long a resolved role stays cached. Zero keeps entries
// until the next role change.
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Evaluator) { e.cacheTTL = ttl }
}

// Evaluator resolves effective permissions and answers access requests. It
// never mutates the stores it reads.
type Evaluator struct {
	roles  *RoleStore
	perms  *PermissionStore
	grants GrantLookup
	now    func() time.Time
	log    *zap.Logger

	cacheTTL time.Duration
	cache    *gocache.Cache

	customMu sync.RWMutex
	customs  map[string]CustomFunc
}

// NewEvaluator creates an Evaluator over roles and perms. The per-role cache
// is flushed whenever roles changes.
func NewEvaluator(roles *RoleStore, perms *PermissionStore, opts ...Option) *Evaluator {
	e := &Evaluator{
		roles:   roles,
		perms:   perms,
		now:     time.Now,
		log:     zap.NewNop(),
		customs: make(map[string]CustomFunc),
	}
	for _, opt := range opts {
		opt(e)
	}
	ttl := e.cacheTTL
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	e.cache = gocache.New(ttl, 10*time.Minute)
	roles.OnChange(func(version uint64) {
		e.cache.Flush()
		e.log.Debug("role cache invalidated", zap.Uint64("role_version", version))
	})
	return e
}

// RegisterCustom binds fn to custom conditions named name.
func (e *Evaluator) RegisterCustom(name string, fn CustomFunc) {
	e.customMu.Lock()
	e.customs[name] = fn
	e.customMu.Unlock()
}

// EffectivePermissions returns every permission id reachable from roleIDs
// through inheritance, in depth-first order without duplicates. Unknown roles
// contribute nothing.
func (e *Evaluator) EffectivePermissions(roleIDs []string) []string {
	var (
		out  []string
		seen = make(map[string]struct{})
	)
	for _, id := range roleIDs {
		for _, p := range e.resolve(id) {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// resolve returns the cached closure of one root role.
func (e *Evaluator) resolve(roleID string) []string {
	version := e.roles.Version()
	key := fmt.Sprintf("%d/%s", version, roleID)
	if v, ok := e.cache.Get(key); ok {
		return v.([]string)
	}

	var (
		out     []string
		seen    = make(map[string]struct{})
		visited = make(map[string]bool)
	)
	var walk func(id string)
	walk = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		perms, parents, ok := e.roles.edges(id)
		if !ok {
			return
		}
		for _, p := range perms {
			if _, dup := seen[p]; !dup {
				seen[p] = struct{}{}
				out = append(out, p)
			}
		}
		for _, parent := range parents {
			walk(parent)
		}
	}
	walk(roleID)

	// A write during the walk may have produced a mixed view; only cache
	// results computed against a stable version.
	if e.roles.Version() == version {
		e.cache.SetDefault(key, out)
	}
	return out
}

// Evaluate decides req. Candidates are the caller's effective permissions
// followed by direct grants; the first one that matches the resource and action
// and satisfies all of its conditions allows the request.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) Decision {
	caller := identity.MostRestrictive(req.Classification)
	if strings.TrimSpace(req.Resource) == "" || strings.TrimSpace(req.Action) == "" {
		return Decision{Reason: ReasonInvalidRequest, Classification: caller}
	}

	roles := req.Roles
	direct := req.Permissions
	if e.grants != nil && req.UserID != "" {
		g, err := e.grants.Grants(ctx, req.UserID)
		if err != nil {
			e.log.Warn("grant lookup failed", zap.String("user_id", req.UserID), zap.Error(err))
			return Decision{Reason: ReasonLookupFailed, Classification: caller}
		}
		roles = append(append([]string(nil), roles...), g.Roles...)
		direct = append(append([]string(nil), direct...), g.Permissions...)
	}
	if req.Time.IsZero() {
		req.Time = e.now()
	}

	candidates := e.EffectivePermissions(roles)
	seen := make(map[string]struct{}, len(candidates)+len(direct))
	for _, id := range candidates {
		seen[id] = struct{}{}
	}
	for _, id := range direct {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			candidates = append(candidates, id)
		}
	}

	var (
		matched  bool
		failures []ConditionFailure
	)
	for _, id := range candidates {
		p, ok := e.perms.Get(id)
		if !ok || !p.Matches(req.Resource, req.Action) {
			continue
		}
		matched = true
		failed := e.checkConditions(ctx, req, p)
		if len(failed) > 0 {
			failures = append(failures, failed...)
			continue
		}
		return Decision{
			Allowed:          true,
			Reason:           ReasonGranted,
			Permission:       &p,
			Classification:   identity.MostRestrictive(caller, p.Classification),
			FailedConditions: failures,
		}
	}

	if !matched {
		return Decision{Reason: ReasonNoMatch, Classification: caller}
	}
	return Decision{Reason: ReasonConditionsNotMet, Classification: caller, FailedConditions: failures}
}

func (e *Evaluator) checkConditions(ctx context.Context, req Request, p Permission) []ConditionFailure {
	var failed []ConditionFailure
	for _, c := range p.Conditions {
		ok, err := e.evalCondition(ctx, req, c)
		if ok && err == nil {
			continue
		}
		kind := ConditionKind("")
		if c != nil {
			kind = c.Kind()
		}
		reason := "condition not met"
		if err != nil {
			reason = err.Error()
		}
		failed = append(failed, ConditionFailure{PermissionID: p.ID, Kind: kind, Reason: reason})
	}
	return failed
}

func (e *Evaluator) evalCondition(ctx context.Context, req Request, c Condition) (bool, error) {
	switch c := c.(type) {
	case OwnershipCondition:
		return evalOwnership(c, req)
	case TimeCondition:
		return evalTime(c, req.Time)
	case LocationCondition:
		return evalLocation(c, req)
	case ClassificationCondition:
		return evalClassification(c, req)
	case CustomCondition:
		e.customMu.RLock()
		fn, ok := e.customs[c.Name]
		e.customMu.RUnlock()
		if ok {
			return fn(ctx, req, c)
		}
		return evalAttribute(c, req)
	default:
		return false, ErrUnknownCondition
	}
}
