package router

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/location"
	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/session"
	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/shot"
	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/user"
	"github.com/ovaphlow/pitchfork/service-ohsnap/pkg/apperror"
)

// Config holds the HTTP surface settings.
type Config struct {
	// CORSOrigins lists the origins allowed to call the API with credentials.
	// Empty disables CORS handling.
	CORSOrigins []string
	// AuthRateLimit is the per-IP budget per minute for signup and login.
	// Zero or less disables the limiter.
	AuthRateLimit int
	// StaticDir holds the built SPA. Empty serves no static files.
	StaticDir string
}

// ConfigFromEnv reads router config from environment variables.
func ConfigFromEnv() Config {
	cfg := Config{AuthRateLimit: 20, StaticDir: os.Getenv("STATIC_DIR")}
	for _, o := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}
	if v, err := strconv.Atoi(os.Getenv("AUTH_RATE_LIMIT")); err == nil {
		cfg.AuthRateLimit = v
	}
	return cfg
}

// Services bundles what the routes call into.
type Services struct {
	Users     *user.UserService
	Sessions  *session.Manager
	Locations *location.Service
	Shots     *shot.Service
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, svcs Services, cfg Config) http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.Handler) {
		mux.Handle(pattern, instrument(pattern, h))
	}
	protected := func(h http.HandlerFunc) http.Handler { return session.RequireAuth(h) }
	limited := authLimiter(cfg.AuthRateLimit, logger)

	handle("GET /api/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apperror.WriteJSON(w, http.StatusOK, healthResponse{Status: "OK", Message: "OhSnap! API is running"})
	}))
	mux.Handle("GET /metrics", promhttp.Handler())

	// auth
	users := user.NewHandler(svcs.Users, svcs.Sessions, logger)
	handle("POST /api/auth/signup", limited(http.HandlerFunc(users.Signup)))
	handle("POST /api/auth/login", limited(http.HandlerFunc(users.Login)))
	// these answer "Not authenticated" themselves
	handle("POST /api/auth/logout", http.HandlerFunc(users.Logout))
	handle("GET /api/auth/me", http.HandlerFunc(users.Me))
	handle("PUT /api/auth/profile", http.HandlerFunc(users.UpdateProfile))

	// locations
	locations := location.NewHandler(svcs.Locations, logger)
	handle("POST /api/locations", protected(locations.Create))
	handle("GET /api/locations", http.HandlerFunc(locations.List))
	handle("GET /api/locations/{id}", http.HandlerFunc(locations.Get))
	handle("PUT /api/locations/{id}", protected(locations.Update))
	handle("DELETE /api/locations/{id}", protected(locations.Delete))

	// shots
	shots := shot.NewHandler(svcs.Shots, logger)
	handle("POST /api/shots", protected(shots.Create))
	handle("GET /api/shots", http.HandlerFunc(shots.List))
	handle("GET /api/shots/stats/{userId}", http.HandlerFunc(shots.Stats))
	handle("GET /api/shots/by-location/{locationId}", http.HandlerFunc(shots.ByLocation))
	handle("GET /api/shots/{id}", http.HandlerFunc(shots.Get))
	handle("PUT /api/shots/{id}", protected(shots.Update))
	handle("DELETE /api/shots/{id}", protected(shots.Delete))

	mux.Handle("/api/", http.HandlerFunc(notFound))
	mux.Handle("/", spaHandler(cfg.StaticDir))

	mws := []func(http.Handler) http.Handler{
		RecoverMiddleware(logger),
		RequestIDMiddleware(),
		LoggingMiddleware(logger),
		SecurityHeadersMiddleware(),
	}
	if len(cfg.CORSOrigins) > 0 {
		mws = append(mws, cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", requestIDHeader},
			ExposedHeaders:   []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	mws = append(mws, svcs.Sessions.Authenticate)
	return chain(mux, mws...)
}

// authLimiter throttles credential endpoints per client IP.
func authLimiter(perMinute int, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			rateLimitedTotal.Inc()
			logger.Infow("auth rate limit hit", "path", r.URL.Path, "remote", r.RemoteAddr)
			apperror.WriteJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Too many requests, please try again later"})
		}),
	)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	apperror.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
}

// spaHandler serves files from dir and falls back to index.html so client
// side routes resolve.
func spaHandler(dir string) http.Handler {
	if dir == "" {
		return http.HandlerFunc(notFound)
	}
	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			notFound(w, r)
			return
		}
		p := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(p); err != nil || info.IsDir() {
			http.ServeFile(w, r, index)
			return
		}
		files.ServeHTTP(w, r)
	})
}
