// Package server initializes and runs the portal backend.
// It selects the storage backend once at startup, wires the auth service,
// and runs the REST server next to a gRPC health endpoint until a
// termination signal arrives.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/saralseva/internal/logging"
	"github.com/dmitrijs2005/saralseva/internal/server/auth"
	"github.com/dmitrijs2005/saralseva/internal/server/config"
	"github.com/dmitrijs2005/saralseva/internal/server/ratelimit"
	"github.com/dmitrijs2005/saralseva/internal/server/repositories/users"
	"github.com/dmitrijs2005/saralseva/internal/server/services"
	"github.com/dmitrijs2005/saralseva/internal/server/storage"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/saralseva/internal/server/grpc"
	hs "github.com/dmitrijs2005/saralseva/internal/server/http"
)

const (
	apiLimitMessage  = "Too many requests from this IP, please try again later."
	authLimitMessage = "Too many authentication attempts, please try again later."
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	store       storage.Store
	redis       *redis.Client
	userService *services.UserService
}

// NewApp builds the application. The storage decision is made here: an
// unreachable database yields the in-memory store, while a reachable one
// whose schema cannot be created is an error.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, os.Stdout)
}

func newApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	logger := logging.NewJSONLogger(logOut, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if c.SecretKey == config.DefaultSecretKey {
		if c.IsProduction() {
			return nil, fmt.Errorf("invalid configuration: the development JWT secret must not be used in production")
		}
		logger.Warn(ctx, "using the development JWT secret; set JWT_SECRET")
	}

	store, err := storage.Open(ctx, storage.Options{
		DSN:          c.DatabaseDSN(),
		PoolSize:     c.DBPoolSize,
		ProbeTimeout: c.DBProbeTimeout,
		QueryTimeout: c.DBQueryTimeout,
	}, logger)
	if err != nil {
		logger.Error(ctx, "database initialization failed", "error", err)
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repo := users.NewStoreRepository(store)
	us := services.NewUserService(repo, auth.NewPasswordHasher(c.BcryptCost), c, logger)

	app := &App{config: c, logger: logger, store: store, userService: us}
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
	}

	return app, nil
}

func (app *App) limiterStore(ctx context.Context) ratelimit.Store {
	if app.redis == nil {
		return ratelimit.NewMemoryStore()
	}
	if err := app.redis.Ping(ctx).Err(); err != nil {
		app.logger.Warn(ctx, "redis not reachable, rate limits fail open until it is", "address", app.config.RedisAddr, "error", err)
	}
	return ratelimit.NewRedisStore(app.redis)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	rs := app.limiterStore(ctx)

	s := hs.NewHTTPServer(hs.Options{
		Address:     app.config.HTTPAddr,
		Environment: app.config.Environment,
		APILimiter: ratelimit.New(rs, ratelimit.Config{
			Name:    "api",
			Window:  app.config.RateLimitWindow,
			Max:     app.config.RateLimitMaxRequests,
			Message: apiLimitMessage,
		}, app.logger),
		AuthLimiter: ratelimit.New(rs, ratelimit.Config{
			Name:           "auth",
			Window:         app.config.RateLimitWindow,
			Max:            app.config.AuthRateLimitMaxRequests,
			SkipSuccessful: true,
			Message:        authLimitMessage,
		}, app.logger),
	}, app.logger, app.userService, app.store)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCHealthAddr, app.logger, app.store)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is canceled, a termination signal arrives, or one
// of the servers fails. Resources are released before it returns.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...",
		"environment", app.config.Environment,
		"database", app.store.Backend().DisplayName(),
	)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(context.Background())
}

func (app *App) close(ctx context.Context) {
	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "closing store", "error", err)
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "closing redis client", "error", err)
		}
	}
	app.logger.Info(ctx, "App stopped")
}
