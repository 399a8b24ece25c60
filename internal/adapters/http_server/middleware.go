package httpserver

import (
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"karoo_lodge/internal/adapters/observability"
)

const msgTimeout = "Request timed out"

// Timeout answers 503 with the JSON error body when next runs longer than d.
// Handlers that set their own content type replace the JSON default.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	body := fmt.Sprintf(`{"error":%q}`, msgTimeout)
	return func(next http.Handler) http.Handler {
		th := http.TimeoutHandler(next, d, body)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			th.ServeHTTP(w, r)
		})
	}
}

// ---- status-recording ResponseWriter ----

type srw struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *srw) WriteHeader(code int) {
	if !w.wrote {
		w.status = code
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *srw) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *srw) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// ---- Metrics middleware ----

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &srw{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		observability.ObserveHTTP(routeOf(r), r.Method, sw.Status(), time.Since(start))
	})
}

// ---- Structured logging middleware ----

// RequestLogger puts a sub-logger carrying the request id on the context,
// so handlers and services log through log.Ctx, and logs each request once
// it completes.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := chimw.GetReqID(r.Context())
		ctx := log.With().Str("request_id", reqID).Logger().WithContext(r.Context())
		if reqID != "" {
			w.Header().Set("X-Request-Id", reqID)
		}
		sw := &srw{ResponseWriter: w}
		r = r.WithContext(ctx)
		next.ServeHTTP(sw, r)

		ev := log.Ctx(ctx).Info()
		if sw.Status() >= 500 {
			ev = log.Ctx(ctx).Error()
		}
		ev.Str("route", routeOf(r)).
			Str("method", r.Method).
			Int("status", sw.Status()).
			Dur("duration", time.Since(start)).
			Str("remote", remoteIP(r)).
			Str("ua", r.UserAgent()).
			Msg("http_request")
	})
}

// Picks first X-Forwarded-For IP, else X-Real-IP, else RemoteAddr host.
func remoteIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// ---- CORS ----

// CORS allows the configured browser origins. With none configured only
// same-origin requests work.
func CORS(origins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-None-Match"},
		ExposedHeaders:   []string{"ETag", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}
	if len(origins) == 0 {
		// an empty list means "allow all" to the cors package
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	return cors.Handler(opts)
}

// ---- auth ----

const msgUnauthorized = "Unauthorized"

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	tok := strings.TrimPrefix(h, "Bearer ")
	if h == "" || tok == h || strings.TrimSpace(tok) == "" {
		return "", false
	}
	return strings.TrimSpace(tok), true
}

// AdminAuth accepts HS256 bearer tokens carrying role=admin. An unset secret
// refuses every request with 500.
func AdminAuth(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(key) == 0 {
				writeMessage(w, http.StatusInternalServerError, "Server not configured: ADMIN_JWT_SECRET missing")
				return
			}
			raw, ok := bearer(r)
			if !ok {
				writeMessage(w, http.StatusUnauthorized, msgUnauthorized)
				return
			}
			claims := &AdminClaims{}
			_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return key, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
			if err != nil {
				log.Ctx(r.Context()).Warn().Err(err).Msg("admin token rejected")
				writeMessage(w, http.StatusUnauthorized, msgUnauthorized)
				return
			}
			if claims.Role != RoleAdmin {
				writeMessage(w, http.StatusForbidden, "Access denied")
				return
			}
			ctx := log.Ctx(r.Context()).With().Str("admin", claims.Subject).Logger().WithContext(r.Context())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MaintenanceAuth guards operator endpoints with a static bearer token.
func MaintenanceAuth(token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(want) == 0 {
				writeMessage(w, http.StatusInternalServerError, "Server not configured: ADMIN_MAINTENANCE_TOKEN missing")
				return
			}
			got, ok := bearer(r)
			if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				writeMessage(w, http.StatusUnauthorized, msgUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
