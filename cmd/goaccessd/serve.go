package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	goAccess "github.com/MrEthical07/goAccess"
	"github.com/MrEthical07/goAccess/configfile"
	"github.com/MrEthical07/goAccess/httpapi"
	"github.com/MrEthical07/goAccess/internal/logging"
	promexport "github.com/MrEthical07/goAccess/metrics/export/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config (env GOACCESS_* overrides)")
	return cmd
}

func serve(ctx context.Context, configPath string) error {
	file, err := configfile.Load(configPath)
	if err != nil {
		return err
	}
	cfg, err := file.EngineConfig()
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Config{
		Env:         cfg.Logging.Env,
		Level:       cfg.Logging.Level,
		ServiceName: firstNonEmpty(cfg.Logging.ServiceName, "goaccessd"),
		Version:     version,
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	engine, err := buildEngine(file, cfg, log)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.Start(ctx); err != nil {
		return err
	}
	logSecurityReport(log, engine.SecurityReport())

	var metrics http.Handler
	if cfg.Metrics.Enabled {
		metrics = promexport.NewPrometheusExporter(engine).Handler()
	}

	opts := httpapi.Options{Engine: engine, Logger: log.Named("http"), ProviderKey: file.Server.ProviderKey}
	servers := []*http.Server{}
	if metrics != nil && file.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics)
		servers = append(servers, &http.Server{Addr: file.Server.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second})
	} else {
		opts.Metrics = metrics
	}
	servers = append(servers, &http.Server{Addr: file.Server.Addr, Handler: httpapi.NewRouter(opts), ReadHeaderTimeout: 5 * time.Second})

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			log.Info("listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), file.ShutdownTimeout())
		defer cancel()
		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}
		log.Info("shutdown complete")
		return errors.Join(errs...)
	})
	return g.Wait()
}

func buildEngine(file *configfile.File, cfg goAccess.Config, log *zap.Logger) (*goAccess.Engine, error) {
	perms, err := file.Permissions()
	if err != nil {
		return nil, err
	}
	roles, err := file.Roles()
	if err != nil {
		return nil, err
	}

	b := goAccess.New().
		WithConfig(cfg).
		WithLogger(log).
		WithPermissions(perms).
		WithRoles(roles)
	if cfg.Audit.Enabled {
		b = b.WithAuditSink(goAccess.NewZapSink(log.Named("audit")))
	}
	engine, err := b.Build()
	if err != nil {
		return nil, err
	}
	file.ApplyAssignments(engine.Assignments())
	return engine, nil
}

func logSecurityReport(log *zap.Logger, r goAccess.SecurityReport) {
	log.Info("security posture",
		zap.Bool("production_mode", r.ProductionMode),
		zap.String("validation_mode", r.ValidationMode.String()),
		zap.Duration("access_ttl", r.AccessTTL),
		zap.Duration("refresh_ttl", r.RefreshTTL),
		zap.Bool("key_rotation", r.KeyRotationEnabled),
		zap.Int("active_keys", r.ActiveSigningKeys),
		zap.Bool("device_binding", r.DeviceBindingEnabled),
		zap.Bool("binding_secret_pinned", r.BindingSecretPinned),
		zap.Int("max_sessions_per_user", r.MaxSessionsPerUser),
		zap.Bool("refresh_throttle", r.RateLimitingActive),
		zap.Bool("audit", r.AuditEnabled),
	)
	for _, w := range r.Lint {
		log.Warn("config lint", zap.String("code", w.Code), zap.String("message", w.Message))
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
