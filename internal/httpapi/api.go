// Package httpapi is the HTTP surface of the passport service: the five
// passport endpoints, the operational probes, and the gate middleware chain
// every request passes through.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"passgate.org/internal/auth"
	"passgate.org/internal/config"
	"passgate.org/internal/obs"
	"passgate.org/internal/rate"
)

// ReadyProbe checks the backing stores before the service reports ready.
type ReadyProbe struct {
	DB    *sql.DB
	Redis *redis.Client
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB != nil {
		if err := rp.DB.PingContext(ctx); err != nil {
			return err
		}
	}
	if rp.Redis != nil {
		if err := rp.Redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	svc        *auth.Service
	codec      *auth.Codec
	limiter    *rate.Limiter
	gate       gateConfig
	readyProbe ReadyProbe
	version    string
}

type gateConfig struct {
	denyList     []string
	allowList    []string
	allowEnabled bool
}

func New(svc *auth.Service, codec *auth.Codec, cfg *config.Config, rp ReadyProbe, version string) *API {
	a := &API{
		mux:     http.NewServeMux(),
		svc:     svc,
		codec:   codec,
		limiter: rate.NewLimiter(cfg.RateLimitMax, cfg.RateLimitEvery),
		gate: gateConfig{
			denyList:     cfg.IPDenyList,
			allowList:    cfg.IPAllowList,
			allowEnabled: cfg.IPAllowEnabled,
		},
		readyProbe: rp,
		version:    version,
	}

	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.HandleFunc("GET /v1/info", a.Info)
	a.mux.Handle("GET /metrics", obs.Handler())

	a.mux.HandleFunc("POST /v1/passport/signup", a.SignUp)
	a.mux.HandleFunc("POST /v1/passport/signin", a.SignIn)
	a.mux.HandleFunc("POST /v1/passport/renewal", a.Renewal)
	a.mux.HandleFunc("GET /v1/passport/signout", a.withAuth(a.SignOut))
	a.mux.HandleFunc("GET /v1/passport/userinfo", a.withAuth(a.UserInfo))

	// No catch-all: the mux's own 404/405 responses are rewritten into the
	// envelope by NormalizeErrors, and a "/" pattern would shadow the
	// method-mismatch handling for registered routes.

	return a
}

// Handler assembles the gate chain. Order matters: blocked clients never
// touch the limiter, throttled clients never touch a handler, and error
// normalization sits closest to the mux so it sees every raw response.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = NormalizeErrors(h)
	h = RateLimit(a.limiter)(h)
	h = IPWhitelist(a.gate.allowList, a.gate.allowEnabled)(h)
	h = IPBlacklist(a.gate.denyList)(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "passgate-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "passgate-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
