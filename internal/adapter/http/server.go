package adapthttp

import (
	"net/http"

	"vitalstats/internal/app"
)

// Options configures the HTTP adapter.
type Options struct {
	// AdminCode guards the administrative routes. Empty disables them.
	AdminCode string
	// CORSOrigin is the frontend origin allowed to call the API with credentials.
	CORSOrigin string
	// CookieSecure marks the session cookie Secure.
	CookieSecure bool
	// TrustForwardAuth accepts the Remote-User header set by a forward-auth proxy.
	TrustForwardAuth bool
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	stats      *app.StatsService
	charts     *app.ChartsService
	authSvc    *app.AuthService
	oidcConfig *OIDCConfig
	opts       Options
}

// New creates a Server wired to the given application services.
func New(stats *app.StatsService, charts *app.ChartsService, authSvc *app.AuthService, opts Options) *Server {
	return &Server{
		stats:      stats,
		charts:     charts,
		authSvc:    authSvc,
		oidcConfig: &OIDCConfig{},
		opts:       opts,
	}
}

// WithOIDC enables single sign-on through the given provider.
func (s *Server) WithOIDC(cfg *OIDCConfig) *Server {
	if cfg != nil {
		s.oidcConfig = cfg
	}
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	api.HandleFunc("POST /auth/register", s.handleRegister)
	api.HandleFunc("POST /auth/login", s.handleLogin)
	api.HandleFunc("POST /auth/logout", s.handleLogout)
	api.HandleFunc("GET /auth/config", s.handleConfig)
	api.HandleFunc("GET /auth/sso/login", s.handleSSOLogin)
	api.HandleFunc("GET /auth/sso/callback", s.handleSSOCallback)
	api.HandleFunc("POST /validate-code", s.handleValidateCode)

	user := func(h http.HandlerFunc) http.Handler { return s.authMiddleware(h) }
	api.Handle("GET /me", user(s.handleMe))
	api.Handle("PUT /me", user(s.handleUpdateMe))
	api.Handle("POST /healthstats", user(s.handleSubmitStats))
	api.Handle("GET /healthstats/{date}", user(s.handleGetStats))
	api.Handle("GET /range/{start}/{end}", user(s.handleStatsRange))
	api.Handle("PUT /{date}", user(s.handleUpdateStats))
	api.Handle("GET /charts/daily", user(s.handleChartsDaily))

	admin := func(h http.HandlerFunc) http.Handler { return s.adminMiddleware(h) }
	api.Handle("GET /all-healthstats", admin(s.handleAllStats))
	api.Handle("GET /users", admin(s.handleListUsers))
	api.Handle("GET /users/{id}", admin(s.handleGetUser))
	api.Handle("PUT /users/{id}", admin(s.handleUpdateUser))
	api.Handle("DELETE /users/{id}", admin(s.handleDeleteUser))
	api.Handle("DELETE /patients/{id}", admin(s.handleDeleteUser))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))

	return s.loggingMiddleware(s.corsMiddleware(withNoCache(root)))
}
