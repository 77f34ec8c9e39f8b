package serve

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"
)

// Config holds the portal configuration.
type Config struct {
	Port    int
	Addr    string
	Secret  string   // login password and HMAC signing key
	Origins []string // allowed CORS origins
	Runner  *Runner
}

// Server is the research portal HTTP server.
type Server struct {
	config Config
	secret []byte
	mux    *http.ServeMux
	http   *http.Server
	clock  func() time.Time
}

// NewServer creates a server and registers all routes.
func NewServer(config Config) (*Server, error) {
	if config.Secret == "" {
		return nil, fmt.Errorf("portal secret is not configured")
	}
	s := &Server{
		config: config,
		secret: []byte(config.Secret),
		mux:    http.NewServeMux(),
		clock:  time.Now,
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the mux wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)

	// Final order (outermost to innermost):
	//   recovery -> logging -> CORS -> auth -> handler
	h = s.authMiddleware(h)
	h = s.corsMiddleware(h)
	h = s.loggingMiddleware(h)
	h = s.recoveryMiddleware(h)

	return h
}

// ListenAndServe starts the server and shuts down gracefully when the
// context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Addr, s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	s.http = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) registerRoutes() {
	// Unauthenticated
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /auth/logout", s.handleLogout)
	s.mux.HandleFunc("GET /auth/status", s.handleAuthStatus)

	// Session-gated API; each route shells out to the CLI.
	s.mux.HandleFunc("GET /api/projects", s.handleProjects)
	s.mux.HandleFunc("GET /api/projects/{id}/summary", s.handleSummary)
	s.mux.HandleFunc("GET /api/projects/{id}/findings", s.handleFindings)
	s.mux.HandleFunc("GET /api/projects/{id}/branches", s.handleBranches)
	s.mux.HandleFunc("GET /api/projects/{id}/strategy", s.handleStrategy)
	s.mux.HandleFunc("GET /api/projects/{id}/missions", s.handleMissions)
	s.mux.HandleFunc("POST /api/projects/{id}/synthesize", s.handleSynthesize)
	s.mux.HandleFunc("POST /api/projects/{id}/verify/plan", s.handleVerifyPlan)
	s.mux.HandleFunc("POST /api/projects/{id}/verify/run", s.handleVerifyRun)
}

// openPaths skip session auth. Everything else under the mux requires a
// valid session cookie.
func openPath(path string) bool {
	switch path {
	case "/health", "/auth/login", "/auth/logout", "/auth/status":
		return true
	}
	return false
}

// ============================================================================
// Middleware
// ============================================================================

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.code = code
	sr.ResponseWriter.WriteHeader(code)
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic recovered",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				WriteError(w, CodeInternal, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sr, r)
		slog.Info("req",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sr.code,
			"dur", time.Since(start).String(),
		)
	})
}

// corsMiddleware allows only the configured origins. Requests from other
// origins pass through without CORS headers, so browsers reject them.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || !s.originAllowed(origin) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.config.Origins {
		if allowed == origin {
			return true
		}
	}
	return false
}

// authMiddleware gates API paths behind a valid session cookie. The error
// is identical for missing, forged, and expired tokens.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if openPath(r.URL.Path) || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(sessionCookie)
		if err != nil || verifyToken(s.secret, cookie.Value, s.clock()) != nil {
			WriteError(w, CodeUnauthorized, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
