// Package server provides gRPC server lifecycle management.
package server

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/solatis/switchboard/internal/core/api"
	"github.com/solatis/switchboard/internal/core/auth"
	"github.com/solatis/switchboard/internal/core/config"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

const (
	// shutdownTimeout bounds graceful stop before in-flight calls are cut.
	shutdownTimeout = 30 * time.Second

	// envelopeOverhead leaves room for JSON framing around an import block.
	envelopeOverhead = 64 << 10

	healthMethodPrefix = "/grpc.health.v1.Health/"
)

// GRPCServer manages gRPC server lifecycle.
type GRPCServer struct {
	server *grpc.Server
	health *health.Server
	config *config.AdminAPIConfig
	logger *zap.Logger
}

// NewGRPCServer creates a gRPC server with the admin service and health service registered.
// Every admin call runs under the request timeout, is logged, and is authenticated;
// health checks skip authentication.
func NewGRPCServer(cfg *config.AdminAPIConfig, service api.AdminServer, authenticator *auth.Authenticator, logger *zap.Logger) (*GRPCServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if authenticator == nil {
		return nil, fmt.Errorf("authenticator cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(cfg.MaxImportBytes + envelopeOverhead),
		grpc.ChainUnaryInterceptor(
			timeoutInterceptor(cfg.RequestTimeout),
			loggingInterceptor(logger),
			skipHealth(authenticator.UnaryInterceptor()),
		),
	}

	server := grpc.NewServer(opts...)
	api.RegisterAdminServer(server, service)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(api.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &GRPCServer{
		server: server,
		health: healthServer,
		config: cfg,
		logger: logger,
	}, nil
}

// Start binds the configured address and serves until Shutdown.
func (s *GRPCServer) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	s.logger.Info("admin API listening", zap.String("addr", listener.Addr().String()))
	return s.Serve(listener)
}

// Serve serves on an existing listener until Shutdown.
func (s *GRPCServer) Serve(listener net.Listener) error {
	return s.server.Serve(listener)
}

// Shutdown marks the server not serving and stops gracefully, forcing a stop
// when ctx ends or the shutdown timeout passes.
func (s *GRPCServer) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	timer := time.NewTimer(shutdownTimeout)
	defer timer.Stop()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		<-stopped
		return fmt.Errorf("shutdown cancelled by context: %w", ctx.Err())
	case <-timer.C:
		s.server.Stop()
		<-stopped
		return fmt.Errorf("graceful shutdown timeout, forced stop")
	}
}

func timeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if timeout <= 0 {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return handler(ctx, req)
	}
}

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Debug("admin call",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("elapsed", time.Since(start)))
		return resp, err
	}
}

func skipHealth(next grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, healthMethodPrefix) {
			return handler(ctx, req)
		}
		return next(ctx, req, info, handler)
	}
}
