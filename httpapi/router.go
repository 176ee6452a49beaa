package httpapi

import (
	"net/http"
	"time"

	goAccess "github.com/MrEthical07/goAccess"
	"github.com/MrEthical07/goAccess/internal/logging"
	"github.com/MrEthical07/goAccess/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// HeaderProviderKey carries the shared secret for POST /v1/login.
const HeaderProviderKey = "X-Provider-Key"

// Options configures NewRouter.
type Options struct {
	Engine *goAccess.Engine
	Logger *zap.Logger
	// ProviderKey enables POST /v1/login for callers presenting it.
	ProviderKey string
	// Metrics is mounted at GET /metrics when set.
	Metrics http.Handler
}

type api struct {
	engine      *goAccess.Engine
	log         *zap.Logger
	providerKey string
}

// NewRouter builds the HTTP surface for opts.Engine.
func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	a := &api{engine: opts.Engine, log: log, providerKey: opts.ProviderKey}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", a.health)
	r.Get("/.well-known/jwks.json", a.jwks)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		if a.providerKey != "" {
			r.Post("/login", a.login)
		}

		r.Route("/token", func(r chi.Router) {
			r.Post("/refresh", a.refresh)
			r.Post("/revoke", a.revoke)
			r.Post("/introspect", a.introspect)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Guard(opts.Engine, goAccess.ModeInherit))
			r.Post("/authorize", a.authorize)
			r.Get("/sessions", a.listSessions)
			r.Delete("/sessions", a.logoutAll)
			r.Delete("/sessions/current", a.logoutCurrent)
		})
	})

	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			reqLog := log.With(zap.String("request_id", chimw.GetReqID(r.Context())))
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(logging.ToContext(r.Context(), reqLog)))
			reqLog.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}
