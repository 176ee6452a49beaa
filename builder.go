package goAccess

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	internalaudit "github.com/MrEthical07/goAccess/internal/audit"
	internalflows "github.com/MrEthical07/goAccess/internal/flows"
	"github.com/MrEthical07/goAccess/internal/limiters"
	"github.com/MrEthical07/goAccess/jwt"
	"github.com/MrEthical07/goAccess/permission"
	"github.com/MrEthical07/goAccess/session"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. A Builder can be used for one Build only.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	logger *zap.Logger
	clock  func() time.Time

	roles       []permission.Role
	permissions []permission.Permission
	conditions  map[string]permission.CustomFunc

	sessionStore session.Store
	auditSink    AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config:     DefaultConfig(),
		conditions: make(map[string]permission.CustomFunc),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig replaces the whole configuration; the Builder keeps its own copy.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithLogger sets the logger shared by every component. Defaults to a no-op logger.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithClock overrides the time source of every component. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithPermissions registers the permission catalogue. Permissions must be
// registered before the roles that reference them.
func (b *Builder) WithPermissions(perms []permission.Permission) *Builder {
	b.permissions = append(b.permissions, perms...)
	return b
}

// WithRoles registers roles. Parents may appear after their children in the
// slice; Build orders them.
func (b *Builder) WithRoles(roles []permission.Role) *Builder {
	b.roles = append(b.roles, roles...)
	return b
}

// WithCustomCondition binds fn to custom conditions named name.
func (b *Builder) WithCustomCondition(name string, fn permission.CustomFunc) *Builder {
	b.conditions[name] = fn
	return b
}

// WithSessionStore replaces the default in-memory session store.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.sessionStore = store
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink sets where audit events go when Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build validates the configuration, seeds the RBAC stores and wires the
// token manager, session manager, evaluator, refresh throttle, audit
// dispatcher and metrics together. Background tasks are not started; call
// [Engine.Start].
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := b.logger
	if log == nil {
		log = zap.NewNop()
	}
	now := b.clock
	if now == nil {
		now = time.Now
	}

	engine := &Engine{
		config: cfg,
		log:    log,
		clock:  now,
	}
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Logger:     log.Named("audit"),
	}, b.auditSink)

	// -------- RBAC --------
	perms := permission.NewPermissionStore()
	for _, p := range b.permissions {
		if err := perms.Create(p); err != nil {
			engine.audit.Close()
			return nil, fmt.Errorf("permission %q: %w", p.ID, err)
		}
	}
	roles := permission.NewRoleStore()
	if err := seedRoles(roles, b.roles); err != nil {
		engine.audit.Close()
		return nil, err
	}
	assignments := permission.NewAssignmentStore()
	evaluator := permission.NewEvaluator(roles, perms,
		permission.WithGrants(assignments),
		permission.WithClock(now),
		permission.WithLogger(log.Named("rbac")),
		permission.WithCacheTTL(cfg.RBAC.CacheTTL),
	)
	for name, fn := range b.conditions {
		evaluator.RegisterCustom(name, fn)
	}
	engine.roles = roles
	engine.perms = perms
	engine.assignments = assignments
	engine.evaluator = evaluator

	// -------- SESSIONS --------
	sessions, err := session.NewManager(session.Config{
		TTL:             cfg.Session.SessionTimeout,
		MaxPerUser:      cfg.Session.MaxConcurrentSessions,
		CleanupInterval: cfg.Session.CleanupInterval,
		Store:           b.sessionStore,
		Now:             now,
		Logger:          log.Named("session"),
		OnEvent:         engine.onSessionEvent,
	})
	if err != nil {
		engine.audit.Close()
		return nil, err
	}
	engine.sessions = sessions

	// -------- TOKENS --------
	jm, err := jwt.NewManager(jwt.Config{
		Issuer:           cfg.Token.Issuer,
		Audience:         cfg.Token.Audience,
		AccessTTL:        cfg.Token.AccessTokenLifetime,
		RefreshTTL:       cfg.Token.RefreshTokenLifetime,
		RotationInterval: cfg.Token.KeyRotationInterval,
		RotationEnabled:  cfg.Token.JWKSRotationEnabled,
		BindingEnabled:   cfg.Token.TokenBindingEnabled,
		BindingSecret:    cloneBytes(cfg.Token.BindingSecret),
		AllowMissingKID:  cfg.Token.AllowMissingKID,
		Leeway:           cfg.Token.Leeway,
		Now:              now,
		Logger:           log.Named("jwt"),
		OnRotate:         engine.onKeyRotated,
	})
	if err != nil {
		engine.audit.Close()
		return nil, err
	}
	engine.jwtManager = jm

	// -------- THROTTLE --------
	limiter, err := limiters.NewRefreshLimiter(limiters.RefreshConfig{
		Enabled:     cfg.Security.EnableRefreshThrottle,
		MaxAttempts: cfg.Security.MaxRefreshAttempts,
		Cooldown:    cfg.Security.RefreshCooldownDuration,
		Now:         now,
	})
	if err != nil {
		engine.audit.Close()
		return nil, err
	}
	engine.refreshLimiter = limiter

	engine.flows = internalflows.New(engine.flowDeps())

	if lint := cfg.Lint(); len(lint) > 0 {
		for _, w := range lint {
			log.Warn("config lint", zap.String("code", w.Code), zap.String("severity", w.Severity.String()), zap.String("message", w.Message))
		}
	}
	log.Info("engine built",
		zap.String("validation_mode", cfg.ValidationMode.String()),
		zap.Int("roles", len(b.roles)),
		zap.Int("permissions", len(b.permissions)),
	)

	b.built = true
	return engine, nil
}

// seedRoles inserts roles so that every parent exists before its children.
// Missing parents and cycles surface as the role store's errors.
func seedRoles(store *permission.RoleStore, roles []permission.Role) error {
	pending := append([]permission.Role(nil), roles...)
	for len(pending) > 0 {
		var next []permission.Role
		for _, r := range pending {
			if !parentsPresent(store, r) {
				next = append(next, r)
				continue
			}
			if err := store.Create(r); err != nil {
				return fmt.Errorf("role %q: %w", r.ID, err)
			}
		}
		if len(next) == len(pending) {
			// No progress: let Create report the first offender.
			r := next[0]
			if err := store.Create(r); err != nil {
				return fmt.Errorf("role %q: %w", r.ID, err)
			}
			return fmt.Errorf("role %q: unresolved parents", r.ID)
		}
		pending = next
	}
	return nil
}

func parentsPresent(store *permission.RoleStore, r permission.Role) bool {
	for _, parent := range r.InheritsFrom {
		if parent == r.ID {
			continue
		}
		if _, ok := store.Get(parent); !ok {
			return false
		}
	}
	return true
}

// onKeyRotated runs inside jwt.Manager.RotateKeys, including the initial key
// created by Build.
func (e *Engine) onKeyRotated(key jwt.SigningKey, pruned []string) {
	e.metricInc(MetricKeyRotated)
	if len(pruned) > 0 && e.metrics != nil {
		e.metrics.Add(MetricKeyPruned, uint64(len(pruned)))
	}
	e.emitAudit(context.Background(), auditEventKeyRotated, true, "", "", nil, func() map[string]string {
		return map[string]string{
			"kid":    key.KID,
			"pruned": strconv.Itoa(len(pruned)),
		}
	})
}
