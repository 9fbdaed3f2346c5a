package health

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName имя сервиса в протоколе grpc.health.v1
const ServiceName = "saferoute"

// ReadinessChecker сообщает, готов ли сервис обслуживать запросы
type ReadinessChecker interface {
	Ready(ctx context.Context) bool
}

// Server gRPC сервер с одним сервисом grpc.health.v1.Health
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	checker    ReadinessChecker
	interval   time.Duration
	logger     *logrus.Logger
}

// NewServer создает сервер. Статус обновляется каждые interval.
func NewServer(checker ReadinessChecker, interval time.Duration, logger *logrus.Logger) *Server {
	if interval <= 0 {
		interval = 10 * time.Second
	}

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{
		grpcServer: gs,
		health:     hs,
		checker:    checker,
		interval:   interval,
		logger:     logger,
	}
}

// Serve принимает соединения до вызова Shutdown
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Infof("gRPC health сервер слушает %s", lis.Addr())
	return s.grpcServer.Serve(lis)
}

// Update проверяет готовность и выставляет статус
func (s *Server) Update(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if s.checker.Ready(ctx) {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
	s.health.SetServingStatus("", status)
	return status
}

// Watch обновляет статус, пока не отменен ctx
func (s *Server) Watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	last := s.Update(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if status := s.Update(ctx); status != last {
				s.logger.Warnf("Статус сервиса изменился: %s -> %s", last, status)
				last = status
			}
		}
	}
}

// Shutdown переводит все сервисы в NOT_SERVING и останавливает сервер
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
