package http

import "net/http"

// authPrefixes are the mount points of the auth routes.
var authPrefixes = []string{"/api/auth", "/auth"}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	for _, p := range authPrefixes {
		mux.Handle("POST "+p+"/register", s.api(s.strict(http.HandlerFunc(s.handleRegister))))
		mux.Handle("POST "+p+"/login", s.api(s.strict(http.HandlerFunc(s.handleLogin))))
		mux.Handle("GET "+p+"/profile", s.api(s.requireAuth(s.handleProfile)))
		mux.Handle("POST "+p+"/logout", s.api(s.requireAuth(s.handleLogout)))
	}

	mux.HandleFunc("/", s.handleNotFound)
}

// api applies the general limiter.
func (s *Server) api(next http.Handler) http.Handler {
	if s.apiLimiter == nil {
		return next
	}
	return s.withRateLimit(s.apiLimiter, next)
}

// strict applies the credential limiter to register and login.
func (s *Server) strict(next http.Handler) http.Handler {
	if s.authLimiter == nil {
		return next
	}
	return s.withRateLimit(s.authLimiter, next)
}
