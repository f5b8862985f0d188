package httpapi

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"passgate.org/internal/audit"
	"passgate.org/internal/auth"
	"passgate.org/internal/obs"
	"passgate.org/internal/rate"
)

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// RequestID assigns every request an identifier, echoed back in the
// X-Request-ID header and attached to the context for audit logging.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r.WithContext(audit.WithRequestID(r.Context(), rid)))
	})
}

// LoggingJSON emits one structured line per request.
func LoggingJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, code: 200}
		start := time.Now()
		next.ServeHTTP(sw, r)
		obs.LogRequest(map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.code,
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  sw.Header().Get("X-Request-ID"),
			"remote":      clientIP(r),
		})
	})
}

// IPBlacklist rejects requests from denied addresses before any other work.
func IPBlacklist(denied []string) func(http.Handler) http.Handler {
	set := toSet(denied)
	return func(next http.Handler) http.Handler {
		if len(set) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, blocked := set[clientIP(r)]; blocked {
				respondError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IPWhitelist, when enabled, admits only listed addresses.
func IPWhitelist(allowed []string, enabled bool) func(http.Handler) http.Handler {
	set := toSet(allowed)
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := set[clientIP(r)]; !ok {
				respondError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit throttles per (client IP, path) using a fixed-window token
// bucket, so a burst against one endpoint cannot starve the others.
func RateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if ip == "" {
				ip = "unknown"
			}
			if !limiter.Allow(ip + " " + r.URL.Path) {
				respondError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// withAuth guards a handler behind a valid access token and a live session.
// The resolved accessor rides the request context into the handler.
func (a *API) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		claims, err := a.codec.Validate(token)
		if err != nil || claims.Type != string(auth.ClassAccess) || claims.Csrf == "" {
			respondError(w, http.StatusUnauthorized, "session expired")
			return
		}
		snap, err := a.svc.ResolveSession(r.Context(), auth.ClassAccess, claims.Csrf)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "session expired")
			return
		}
		ctx := auth.ContextWithAccessor(r.Context(), auth.Accessor{
			UserID:    snap.UserID,
			Account:   snap.Account,
			Name:      snap.Name,
			SessionID: claims.Csrf,
		})
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// NormalizeErrors rewrites plain-text error responses produced below the
// envelope layer (mux 404s, method mismatches) into the uniform envelope.
// JSON responses pass through untouched.
func NormalizeErrors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bw := &bufferedWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(bw, r)
		bw.flush()
	})
}

type bufferedWriter struct {
	http.ResponseWriter
	code int
	buf  bytes.Buffer
}

func (w *bufferedWriter) WriteHeader(code int) { w.code = code }

func (w *bufferedWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *bufferedWriter) flush() {
	ct := w.Header().Get("Content-Type")
	if w.code >= 400 && !strings.HasPrefix(ct, "application/json") {
		msg := strings.TrimSpace(w.buf.String())
		if msg == "" {
			msg = http.StatusText(w.code)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Del("Content-Length")
		w.ResponseWriter.WriteHeader(w.code)
		_ = json.NewEncoder(w.ResponseWriter).Encode(Body{Code: w.code, Message: msg})
		return
	}
	w.ResponseWriter.WriteHeader(w.code)
	_, _ = w.ResponseWriter.Write(w.buf.Bytes())
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it != "" {
			set[it] = struct{}{}
		}
	}
	return set
}
