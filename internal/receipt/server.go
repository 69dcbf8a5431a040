package receipt

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
)

const sessionCookie = "receipt_session"

// Server handles HTTP requests for the scanner UI and API
type Server struct {
	service   *Service
	sessions  *Sessions
	basicAuth BasicAuth
	mux       *http.ServeMux
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, basicAuth BasicAuth) *Server {
	return NewServerWithMux(service, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		service:   service,
		sessions:  NewSessions(),
		basicAuth: basicAuth,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="Receipt Scanner"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// session returns the caller's session, creating one and setting the cookie when needed
func (s *Server) session(w http.ResponseWriter, r *http.Request) *Session {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if session, ok := s.sessions.Get(cookie.Value); ok {
			return session
		}
	}

	session := s.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return session
}

// existingSession returns the caller's session without creating one
func (s *Server) existingSession(r *http.Request) *Session {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	session, ok := s.sessions.Get(cookie.Value)
	if !ok {
		return nil
	}
	return session
}

// registerRoutes registers all routes on the server's mux
func (s *Server) registerRoutes() {
	// API endpoints
	s.mux.HandleFunc("POST /api/receipts", s.requireAuth(s.handleAPIScan))
	s.mux.HandleFunc("GET /api/history", s.requireAuth(s.handleAPIHistory))

	// Exports
	s.mux.HandleFunc("GET /export/receipt.csv", s.requireAuth(s.handleExportReceipt))
	s.mux.HandleFunc("GET /export/history.csv", s.requireAuth(s.handleExportHistory))

	// Uploads and session
	s.mux.HandleFunc("GET /uploads/{name}/preview", s.requireAuth(s.handlePreview))
	s.mux.HandleFunc("POST /history/clear", s.requireAuth(s.handleClearHistory))
	s.mux.HandleFunc("POST /scan", s.requireAuth(s.handleScan))

	// HTML interface (register last as it's the catch-all)
	s.mux.HandleFunc("GET /{$}", s.requireAuth(s.handleIndex))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, s)
}

// ServeHTTP implements http.Handler. The mux is wrapped with CORS middleware
// to handle all requests including OPTIONS.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.corsMiddleware(s.mux).ServeHTTP(w, r)
}
