// Package http is the REST surface of the portal: routing, the JSON
// response envelope, bearer authentication, rate limiting and the health
// endpoint.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/saralseva/internal/logging"
	"github.com/dmitrijs2005/saralseva/internal/server/auth"
	"github.com/dmitrijs2005/saralseva/internal/server/models"
	"github.com/dmitrijs2005/saralseva/internal/server/ratelimit"
	"github.com/dmitrijs2005/saralseva/internal/server/services"
	"github.com/dmitrijs2005/saralseva/internal/server/storage"
	"github.com/dmitrijs2005/saralseva/internal/server/validation"
)

const shutdownTimeout = 5 * time.Second

// UserService is the part of services.UserService the handlers use.
type UserService interface {
	Register(ctx context.Context, cmd validation.RegisterCommand) (int64, error)
	Login(ctx context.Context, cmd validation.LoginCommand) (*services.LoginResult, error)
	GetProfile(ctx context.Context, userID int64) (*models.PublicUser, error)
	Logout(ctx context.Context, id auth.Identity)
	ValidateToken(token string) (auth.Identity, error)
}

// StoreInfo reports on the active persistence backend.
type StoreInfo interface {
	Backend() storage.Backend
	Stats(ctx context.Context) (models.Stats, error)
}

// Options configure a Server.
type Options struct {
	Address     string
	Environment string
	APILimiter  *ratelimit.Limiter
	AuthLimiter *ratelimit.Limiter
}

type Server struct {
	address     string
	environment string
	users       UserService
	store       StoreInfo
	apiLimiter  *ratelimit.Limiter
	authLimiter *ratelimit.Limiter
	logger      logging.Logger
	now         func() time.Time
}

func NewHTTPServer(opts Options, l logging.Logger, us UserService, store StoreInfo) *Server {
	return &Server{
		address:     opts.Address,
		environment: opts.Environment,
		users:       us,
		store:       store,
		apiLimiter:  opts.APILimiter,
		authLimiter: opts.AuthLimiter,
		logger:      l.With("module", "http_server"),
		now:         time.Now,
	}
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var h http.Handler = mux
	h = withBodyLimit(h)
	h = withCORS(h)
	h = withSecurityHeaders(h)
	h = s.withRecover(h)
	h = s.withRequestLog(h)
	return h
}

// Run serves on the configured address until ctx is canceled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "HTTP server shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
