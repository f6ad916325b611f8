package http

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/saralseva/internal/server/models"
	"github.com/dmitrijs2005/saralseva/internal/server/validation"
)

type registerData struct {
	UserID int64 `json:"userId"`
}

type loginData struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	User      models.PublicUser `json:"user"`
}

type healthResponse struct {
	Status      string        `json:"status"`
	Timestamp   string        `json:"timestamp"`
	Database    string        `json:"database"`
	Environment string        `json:"environment"`
	Stats       *models.Stats `json:"stats,omitempty"`
}

type rootResponse struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Status    string            `json:"status"`
	Endpoints map[string]string `json:"endpoints"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req validation.RegisterRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	cmd, err := validation.Register(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := s.users.Register(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, r, http.StatusCreated, "User registered successfully. Please login to continue.", registerData{UserID: id})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req validation.LoginRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	cmd, err := validation.Login(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.users.Login(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, r, http.StatusOK, "Login successful", loginData{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.UTC(),
		User:      res.User,
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	user, err := s.users.GetProfile(r.Context(), id.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, r, http.StatusOK, "Profile fetched successfully", user)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	s.users.Logout(r.Context(), id)
	s.writeSuccess(w, r, http.StatusOK, "Logout successful", nil)
}

// handleHealth reports liveness and the active backend. A failing stats
// query does not fail the probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:      "OK",
		Timestamp:   s.timestamp(),
		Database:    s.store.Backend().DisplayName(),
		Environment: s.environment,
	}

	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Warn(r.Context(), "health stats unavailable", "error", err)
	} else {
		resp.Stats = &stats
	}

	s.writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, rootResponse{
		Name:    "SaralSeva API",
		Version: "1.0.0",
		Status:  "Running",
		Endpoints: map[string]string{
			"health": "/health",
			"auth":   "/api/auth",
		},
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeFailure(w, r, http.StatusNotFound, msgNotFound, nil)
}
