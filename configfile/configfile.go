package configfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	goAccess "github.com/MrEthical07/goAccess"
	"github.com/MrEthical07/goAccess/identity"
	"github.com/MrEthical07/goAccess/permission"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// File is the on-disk configuration. Zero values keep goAccess.DefaultConfig.
type File struct {
	Server struct {
		Addr        string `yaml:"addr"`
		MetricsAddr string `yaml:"metrics_addr"`
		// ProviderKey authorizes identity providers to create sessions through
		// POST /v1/login. Empty disables that route.
		ProviderKey     string `yaml:"provider_key"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Logging struct {
		Env         string `yaml:"env"`
		Level       string `yaml:"level"`
		ServiceName string `yaml:"service_name"`
	} `yaml:"logging"`

	Token struct {
		Issuer              string `yaml:"issuer"`
		Audience            string `yaml:"audience"`
		AccessTTL           string `yaml:"access_ttl"`
		RefreshTTL          string `yaml:"refresh_ttl"`
		KeyRotationInterval string `yaml:"key_rotation_interval"`
		RotationEnabled     *bool  `yaml:"rotation_enabled"`
		BindingEnabled      *bool  `yaml:"binding_enabled"`
		BindingSecret       string `yaml:"binding_secret"`
		AllowMissingKID     *bool  `yaml:"allow_missing_kid"`
		Leeway              string `yaml:"leeway"`
	} `yaml:"token"`

	Session struct {
		Timeout         string `yaml:"timeout"`
		MaxConcurrent   *int   `yaml:"max_concurrent"`
		CleanupInterval string `yaml:"cleanup_interval"`
	} `yaml:"session"`

	Security struct {
		ProductionMode     *bool  `yaml:"production_mode"`
		RefreshThrottle    *bool  `yaml:"refresh_throttle"`
		MaxRefreshAttempts int    `yaml:"max_refresh_attempts"`
		RefreshCooldown    string `yaml:"refresh_cooldown"`
	} `yaml:"security"`

	Audit struct {
		Enabled    *bool `yaml:"enabled"`
		BufferSize int   `yaml:"buffer_size"`
		DropIfFull *bool `yaml:"drop_if_full"`
	} `yaml:"audit"`

	Metrics struct {
		Enabled           *bool `yaml:"enabled"`
		LatencyHistograms *bool `yaml:"latency_histograms"`
	} `yaml:"metrics"`

	ValidationMode string `yaml:"validation_mode"`

	RBAC struct {
		CacheTTL    string           `yaml:"cache_ttl"`
		Permissions []PermissionSpec `yaml:"permissions"`
		Roles       []RoleSpec       `yaml:"roles"`
		Assignments []AssignmentSpec `yaml:"assignments"`
	} `yaml:"rbac"`
}

// PermissionSpec is the YAML form of permission.Permission.
type PermissionSpec struct {
	ID             string          `yaml:"id"`
	Resource       string          `yaml:"resource"`
	Action         string          `yaml:"action"`
	Classification string          `yaml:"classification"`
	Description    string          `yaml:"description"`
	Conditions     []ConditionSpec `yaml:"conditions"`
}

// ConditionSpec is the YAML form of every condition kind; Kind selects which
// fields apply.
type ConditionSpec struct {
	Kind      string   `yaml:"kind"`
	Operator  string   `yaml:"operator"`
	Value     string   `yaml:"value"`
	Values    []string `yaml:"values"`
	Zone      string   `yaml:"zone"`
	Name      string   `yaml:"name"`
	Attribute string   `yaml:"attribute"`
}

// RoleSpec is the YAML form of permission.Role.
type RoleSpec struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description"`
	Permissions    []string `yaml:"permissions"`
	InheritsFrom   []string `yaml:"inherits_from"`
	Classification string   `yaml:"classification"`
}

// AssignmentSpec grants roles and permissions to one user directly.
type AssignmentSpec struct {
	UserID      string   `yaml:"user_id"`
	Roles       []string `yaml:"roles"`
	Permissions []string `yaml:"permissions"`
}

var ErrUnknownConditionKind = errors.New("unknown condition kind")

// Load reads path (optional), then .env files next to it and in the working
// directory, then GOACCESS_* overrides. Variables already set in the process
// environment win over .env values.
func Load(path string) (*File, error) {
	var f File
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &f); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := loadDotEnv(path); err != nil {
		return nil, err
	}
	if err := f.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if f.Server.Addr == "" {
		f.Server.Addr = ":8080"
	}
	return &f, nil
}

func loadDotEnv(configPath string) error {
	candidates := []string{".env"}
	if configPath != "" {
		if dir := filepath.Dir(configPath); dir != "." {
			candidates = append([]string{filepath.Join(dir, ".env")}, candidates...)
		}
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		if err := godotenv.Load(candidate); err != nil {
			return fmt.Errorf("load %s: %w", candidate, err)
		}
	}
	return nil
}

// EngineConfig overlays f on goAccess.DefaultConfig. The result is not
// validated; Builder.Build does that.
func (f *File) EngineConfig() (goAccess.Config, error) {
	cfg := goAccess.DefaultConfig()
	var errs []error
	dur := func(field, raw string, dst *time.Duration) {
		if raw == "" {
			return
		}
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
			return
		}
		*dst = d
	}
	flag := func(src *bool, dst *bool) {
		if src != nil {
			*dst = *src
		}
	}

	if f.Token.Issuer != "" {
		cfg.Token.Issuer = f.Token.Issuer
	}
	if f.Token.Audience != "" {
		cfg.Token.Audience = f.Token.Audience
	}
	dur("token.access_ttl", f.Token.AccessTTL, &cfg.Token.AccessTokenLifetime)
	dur("token.refresh_ttl", f.Token.RefreshTTL, &cfg.Token.RefreshTokenLifetime)
	dur("token.key_rotation_interval", f.Token.KeyRotationInterval, &cfg.Token.KeyRotationInterval)
	dur("token.leeway", f.Token.Leeway, &cfg.Token.Leeway)
	flag(f.Token.RotationEnabled, &cfg.Token.JWKSRotationEnabled)
	flag(f.Token.BindingEnabled, &cfg.Token.TokenBindingEnabled)
	flag(f.Token.AllowMissingKID, &cfg.Token.AllowMissingKID)
	if f.Token.BindingSecret != "" {
		cfg.Token.BindingSecret = []byte(f.Token.BindingSecret)
	}

	dur("session.timeout", f.Session.Timeout, &cfg.Session.SessionTimeout)
	dur("session.cleanup_interval", f.Session.CleanupInterval, &cfg.Session.CleanupInterval)
	if f.Session.MaxConcurrent != nil {
		cfg.Session.MaxConcurrentSessions = *f.Session.MaxConcurrent
	}

	flag(f.Security.ProductionMode, &cfg.Security.ProductionMode)
	flag(f.Security.RefreshThrottle, &cfg.Security.EnableRefreshThrottle)
	if f.Security.MaxRefreshAttempts != 0 {
		cfg.Security.MaxRefreshAttempts = f.Security.MaxRefreshAttempts
	}
	dur("security.refresh_cooldown", f.Security.RefreshCooldown, &cfg.Security.RefreshCooldownDuration)

	flag(f.Audit.Enabled, &cfg.Audit.Enabled)
	flag(f.Audit.DropIfFull, &cfg.Audit.DropIfFull)
	if f.Audit.BufferSize != 0 {
		cfg.Audit.BufferSize = f.Audit.BufferSize
	}

	flag(f.Metrics.Enabled, &cfg.Metrics.Enabled)
	flag(f.Metrics.LatencyHistograms, &cfg.Metrics.EnableLatencyHistograms)

	dur("rbac.cache_ttl", f.RBAC.CacheTTL, &cfg.RBAC.CacheTTL)

	if f.ValidationMode != "" {
		mode, err := goAccess.ParseValidationMode(f.ValidationMode)
		if err != nil {
			errs = append(errs, fmt.Errorf("validation_mode: %w", err))
		} else {
			cfg.ValidationMode = mode
		}
	}

	cfg.Logging = goAccess.LoggingConfig{
		Env:         f.Logging.Env,
		Level:       f.Logging.Level,
		ServiceName: f.Logging.ServiceName,
	}

	if len(errs) > 0 {
		return goAccess.Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// ShutdownTimeout returns the configured grace period, 10s by default.
func (f *File) ShutdownTimeout() time.Duration {
	if d, err := time.ParseDuration(f.Server.ShutdownTimeout); err == nil && d > 0 {
		return d
	}
	return 10 * time.Second
}

// Permissions converts the RBAC permission catalogue.
func (f *File) Permissions() ([]permission.Permission, error) {
	out := make([]permission.Permission, 0, len(f.RBAC.Permissions))
	for _, spec := range f.RBAC.Permissions {
		p := permission.Permission{
			ID:          spec.ID,
			Resource:    spec.Resource,
			Action:      spec.Action,
			Description: spec.Description,
		}
		if spec.Classification != "" {
			c, err := identity.ParseClassification(spec.Classification)
			if err != nil {
				return nil, fmt.Errorf("permission %q: %w", spec.ID, err)
			}
			p.Classification = c
		}
		for i, cs := range spec.Conditions {
			c, err := cs.toCondition()
			if err != nil {
				return nil, fmt.Errorf("permission %q condition %d: %w", spec.ID, i, err)
			}
			p.Conditions = append(p.Conditions, c)
		}
		out = append(out, p)
	}
	return out, nil
}

// Roles converts the RBAC role list.
func (f *File) Roles() ([]permission.Role, error) {
	out := make([]permission.Role, 0, len(f.RBAC.Roles))
	for _, spec := range f.RBAC.Roles {
		r := permission.Role{
			ID:           spec.ID,
			Name:         spec.Name,
			Description:  spec.Description,
			Permissions:  append([]string(nil), spec.Permissions...),
			InheritsFrom: append([]string(nil), spec.InheritsFrom...),
		}
		if spec.Classification != "" {
			c, err := identity.ParseClassification(spec.Classification)
			if err != nil {
				return nil, fmt.Errorf("role %q: %w", spec.ID, err)
			}
			r.Classification = c
		}
		out = append(out, r)
	}
	return out, nil
}

// ApplyAssignments writes the configured direct grants into store.
func (f *File) ApplyAssignments(store *permission.AssignmentStore) {
	for _, a := range f.RBAC.Assignments {
		for _, roleID := range a.Roles {
			store.AssignRole(a.UserID, roleID)
		}
		for _, permID := range a.Permissions {
			store.GrantPermission(a.UserID, permID)
		}
	}
}

func (c ConditionSpec) toCondition() (permission.Condition, error) {
	op := permission.Operator(strings.ToLower(strings.TrimSpace(c.Operator)))
	if op == "" {
		op = permission.OpEquals
	}
	switch permission.ConditionKind(strings.ToLower(strings.TrimSpace(c.Kind))) {
	case permission.KindOwnership:
		return permission.OwnershipCondition{Operator: op, Value: c.Value, Values: c.Values}, nil
	case permission.KindTime:
		return permission.TimeCondition{Operator: op, Value: c.Value, Values: c.Values, Zone: c.Zone}, nil
	case permission.KindLocation:
		return permission.LocationCondition{Operator: op, Value: c.Value, Values: c.Values}, nil
	case permission.KindClassification:
		cond := permission.ClassificationCondition{Operator: op}
		if c.Value != "" {
			v, err := identity.ParseClassification(c.Value)
			if err != nil {
				return nil, err
			}
			cond.Value = v
		}
		for _, raw := range c.Values {
			v, err := identity.ParseClassification(raw)
			if err != nil {
				return nil, err
			}
			cond.Values = append(cond.Values, v)
		}
		return cond, nil
	case permission.KindCustom:
		return permission.CustomCondition{Name: c.Name, Attribute: c.Attribute, Operator: op, Value: c.Value, Values: c.Values}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownConditionKind, c.Kind)
	}
}
