package configfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const envPrefix = "GOACCESS_"

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(envPrefix + key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool, error) {
	s, ok := getEnvStr(key)
	if !ok {
		return 0, false, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false, fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	return i, true, nil
}

func getEnvBool(key string) (*bool, error) {
	s, ok := getEnvStr(key)
	if !ok {
		return nil, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	return &b, nil
}

// applyEnvOverrides replaces file values with GOACCESS_* variables. Durations
// stay strings here and are parsed by EngineConfig.
func (f *File) applyEnvOverrides() error {
	strs := []struct {
		key string
		dst *string
	}{
		{"ADDR", &f.Server.Addr},
		{"METRICS_ADDR", &f.Server.MetricsAddr},
		{"PROVIDER_KEY", &f.Server.ProviderKey},
		{"SHUTDOWN_TIMEOUT", &f.Server.ShutdownTimeout},
		{"ENV", &f.Logging.Env},
		{"LOG_LEVEL", &f.Logging.Level},
		{"SERVICE_NAME", &f.Logging.ServiceName},
		{"ISSUER", &f.Token.Issuer},
		{"AUDIENCE", &f.Token.Audience},
		{"ACCESS_TTL", &f.Token.AccessTTL},
		{"REFRESH_TTL", &f.Token.RefreshTTL},
		{"KEY_ROTATION_INTERVAL", &f.Token.KeyRotationInterval},
		{"BINDING_SECRET", &f.Token.BindingSecret},
		{"LEEWAY", &f.Token.Leeway},
		{"SESSION_TIMEOUT", &f.Session.Timeout},
		{"SESSION_CLEANUP_INTERVAL", &f.Session.CleanupInterval},
		{"REFRESH_COOLDOWN", &f.Security.RefreshCooldown},
		{"VALIDATION_MODE", &f.ValidationMode},
		{"RBAC_CACHE_TTL", &f.RBAC.CacheTTL},
	}
	for _, s := range strs {
		if v, ok := getEnvStr(s.key); ok {
			*s.dst = strings.TrimSpace(v)
		}
	}

	bools := []struct {
		key string
		dst **bool
	}{
		{"ROTATION_ENABLED", &f.Token.RotationEnabled},
		{"BINDING_ENABLED", &f.Token.BindingEnabled},
		{"ALLOW_MISSING_KID", &f.Token.AllowMissingKID},
		{"PRODUCTION_MODE", &f.Security.ProductionMode},
		{"REFRESH_THROTTLE", &f.Security.RefreshThrottle},
		{"AUDIT_ENABLED", &f.Audit.Enabled},
		{"AUDIT_DROP_IF_FULL", &f.Audit.DropIfFull},
		{"METRICS_ENABLED", &f.Metrics.Enabled},
		{"METRICS_LATENCY_HISTOGRAMS", &f.Metrics.LatencyHistograms},
	}
	for _, b := range bools {
		v, err := getEnvBool(b.key)
		if err != nil {
			return err
		}
		if v != nil {
			*b.dst = v
		}
	}

	if v, ok, err := getEnvInt("MAX_SESSIONS"); err != nil {
		return err
	} else if ok {
		f.Session.MaxConcurrent = &v
	}
	if v, ok, err := getEnvInt("MAX_REFRESH_ATTEMPTS"); err != nil {
		return err
	} else if ok {
		f.Security.MaxRefreshAttempts = v
	}
	if v, ok, err := getEnvInt("AUDIT_BUFFER_SIZE"); err != nil {
		return err
	} else if ok {
		f.Audit.BufferSize = v
	}
	return nil
}
