package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"paycanvas.org/internal/audit"
	"paycanvas.org/internal/auth"
	"paycanvas.org/internal/features"
	"paycanvas.org/internal/masters"
	"paycanvas.org/internal/obs"
	"paycanvas.org/internal/provisioning"
)

const serviceName = "paycanvas-api"

// Pinger is anything the readiness check can reach.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Readiness проверяет готовность зависимостей (БД, Redis).
type Readiness struct {
	DB    Pinger
	Cache Pinger
}

func (rp Readiness) Check(ctx context.Context) error {
	for _, p := range []Pinger{rp.DB, rp.Cache} {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Deps wires the API to its services.
type Deps struct {
	Auth     *auth.Service
	Codec    *auth.Codec
	Features *features.Service
	Stores   *masters.Service
	// Provisioning backs the /api/super routes.
	Provisioning *provisioning.Service
	Ready        Readiness
	Logger       *zap.Logger
	Version      string

	AllowedOrigins []string
	TrustedProxies TrustedProxies
	LoginRate      float64
	LoginBurst     int
}

// API is the HTTP surface of the service.
type API struct {
	auth         *auth.Service
	codec        *auth.Codec
	features     *features.Service
	stores       *masters.Service
	provisioning *provisioning.Service
	ready        Readiness
	logger       *zap.Logger
	audit        *audit.Log
	version      string
	limiter      *RateLimiter
	trusted      TrustedProxies
	router       chi.Router
}

func New(d Deps) *API {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rateLimit, burst := d.LoginRate, d.LoginBurst
	if rateLimit <= 0 {
		rateLimit = 1
	}
	if burst <= 0 {
		burst = 10
	}
	a := &API{
		auth:         d.Auth,
		codec:        d.Codec,
		features:     d.Features,
		stores:       d.Stores,
		provisioning: d.Provisioning,
		ready:        d.Ready,
		logger:       logger,
		audit:        audit.New(logger),
		version:      d.Version,
		limiter:      NewRateLimiter(rateLimit, burst),
		trusted:      d.TrustedProxies,
	}
	a.router = a.routes(d.AllowedOrigins)
	return a
}

// Handler возвращает http.Handler для сервера.
func (a *API) Handler() http.Handler { return a.router }

func (a *API) routes(origins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID, RealIP(a.trusted), Recover(a.logger), Logging(a.logger), obs.Instrument, SecurityHeaders, CORS(origins))
	r.Use(Gate(a.codec, a.logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", a.healthz)
	r.Get("/readyz", a.readyz)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(a.limiter.Middleware).Post("/login", a.login)
			r.Post("/refresh", a.refresh)
			r.Post("/logout", a.logout)
			r.With(Require(auth.Authenticated())).Get("/me", a.me)
		})

		r.Route("/feature-toggles", func(r chi.Router) {
			r.Use(Require(auth.AnyRole(auth.RoleSuperAdmin)))
			r.Get("/", a.listToggles)
			r.Patch("/{key}", a.setToggle)
		})

		r.Route("/super", func(r chi.Router) {
			r.Use(Require(auth.AnyRole(auth.RoleSuperAdmin)))
			r.Get("/companies", a.listCompanies)
			r.Post("/companies", a.createCompany)
			r.Put("/companies/{id}", a.updateCompany)
			r.Post("/users", a.createCompanyAdmin)
		})

		r.Route("/masters/stores", func(r chi.Router) {
			r.Use(Require(auth.All(auth.AnyRole(auth.RoleCompanyAdmin), auth.Entitled(masters.Feature))))
			r.Get("/", a.listStores)
			r.Post("/", a.createStore)
			r.Get("/{id}", a.getStore)
			r.Put("/{id}", a.updateStore)
			r.Delete("/{id}", a.deleteStore)
		})
	})
	return r
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.ready.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
