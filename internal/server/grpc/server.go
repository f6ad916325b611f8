// Package grpc exposes the standard gRPC health service so that
// orchestrators can probe the portal without speaking its REST API.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/saralseva/internal/logging"
	"github.com/dmitrijs2005/saralseva/internal/server/models"
	"github.com/dmitrijs2005/saralseva/internal/server/storage"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// StorageService is the health service name that reports whether the
// persistence backend answers. The empty name reports the process itself.
const StorageService = "saralseva.Storage"

const (
	defaultCheckInterval = 10 * time.Second
	checkTimeout         = 2 * time.Second
)

// Store is the part of the persistence backend the health checks use.
type Store interface {
	Backend() storage.Backend
	Stats(ctx context.Context) (models.Stats, error)
}

type GRPCServer struct {
	address       string
	store         Store
	health        *health.Server
	checkInterval time.Duration
	logger        logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, store Store) *GRPCServer {
	return &GRPCServer{
		address:       a,
		store:         store,
		health:        health.NewServer(),
		checkInterval: defaultCheckInterval,
		logger:        l.With("module", "grpc_server"),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {

	// creates gRPC-server
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))

	// registers service
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	last := s.checkStore(ctx)
	s.health.SetServingStatus(StorageService, last)

	go s.watchStore(ctx, last)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String(), "backend", s.store.Backend())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

// watchStore re-checks the store every checkInterval until ctx is done.
func (s *GRPCServer) watchStore(ctx context.Context, last healthpb.HealthCheckResponse_ServingStatus) {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := s.checkStore(ctx)
			if st == last {
				continue
			}
			s.logger.Info(ctx, "storage health changed", "backend", s.store.Backend(), "status", st.String())
			s.health.SetServingStatus(StorageService, st)
			last = st
		}
	}
}

func (s *GRPCServer) checkStore(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if _, err := s.store.Stats(ctx); err != nil {
		s.logger.Warn(ctx, "storage health check failed", "error", err)
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}
