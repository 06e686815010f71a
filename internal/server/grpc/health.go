// Package grpcserver exposes gallery readiness over the gRPC health protocol.
package grpcserver

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Service is the health service name tracking the realtime feed.
const Service = "gallery.v1.Realtime"

// Health tracks process and realtime feed readiness.
type Health struct {
	hs *health.Server
}

// NewHealth starts with the process serving and the feed not yet connected.
func NewHealth() *Health {
	hs := health.NewServer()
	hs.SetServingStatus(Service, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Health{hs: hs}
}

// SetFeed records whether a realtime subscription is live.
func (h *Health) SetFeed(up bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if up {
		st = healthpb.HealthCheckResponse_SERVING
	}
	h.hs.SetServingStatus(Service, st)
}

// Shutdown flips every service to NOT_SERVING ahead of a graceful stop.
func (h *Health) Shutdown() { h.hs.Shutdown() }

// NewServer builds a gRPC server with recover/logging interceptors and the
// health service registered. Reflection is enabled in development.
func NewServer(log *zap.Logger, h *Health, dev bool) *grpc.Server {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoverUnary(log),
			LoggingUnary(log),
		),
		grpc.ChainStreamInterceptor(
			RecoverStream(log),
			LoggingStream(log),
		),
	)
	healthpb.RegisterHealthServer(s, h.hs)
	if dev {
		reflection.Register(s)
	}
	return s
}
