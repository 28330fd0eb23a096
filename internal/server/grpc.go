package server

import (
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/studydeck/internal/jobs"
)

// JobsHealthService is the health service name that tracks the job store.
const JobsHealthService = "studydeck.jobs"

// NewGRPCServer returns a gRPC server carrying only the standard health service. The overall
// status is always SERVING; the jobs service is NOT_SERVING when the store is unavailable.
func NewGRPCServer(store jobs.Store, logger *slog.Logger) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	status := healthpb.HealthCheckResponse_SERVING
	if store == nil || !store.Available() {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus(JobsHealthService, status)
	logger.Info("grpc.health.ready", "service", JobsHealthService, "status", status.String())
	return gs, hs
}
