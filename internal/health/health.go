// Package health checks the service's dependencies and reports the
// result over HTTP and the standard gRPC health protocol.
package health

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the gRPC health service name for the floor API.
const ServiceName = "floorsync.Floor"

const checkTimeout = 3 * time.Second

// Check tests one dependency. A nil error means healthy.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type Result struct {
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	Checked time.Time `json:"checked"`
}

type Monitor struct {
	checks []Check
	server *health.Server
	log    *slog.Logger

	mu      sync.RWMutex
	results map[string]Result
}

func NewMonitor(log *slog.Logger, checks ...Check) *Monitor {
	return &Monitor{
		checks:  checks,
		server:  health.NewServer(),
		log:     log.With("component", "health"),
		results: map[string]Result{},
	}
}

// Refresh runs every check once and updates the gRPC serving status.
func (m *Monitor) Refresh(ctx context.Context) bool {
	healthy := true
	results := make(map[string]Result, len(m.checks))
	for _, c := range m.checks {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.Ping(cctx)
		cancel()
		r := Result{Status: "healthy", Message: "Service is responding", Checked: time.Now().UTC()}
		if err != nil {
			healthy = false
			r.Status = "unavailable"
			r.Message = err.Error()
			m.log.Warn("dependency unhealthy", "check", c.Name, "error", err)
		}
		results[c.Name] = r
	}

	m.mu.Lock()
	m.results = results
	m.mu.Unlock()

	status := grpc_health_v1.HealthCheckResponse_SERVING
	if !healthy {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	m.server.SetServingStatus("", status)
	m.server.SetServingStatus(ServiceName, status)
	return healthy
}

// Run refreshes on every tick until ctx ends.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	m.Refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.server.Shutdown()
			return
		case <-ticker.C:
			m.Refresh(ctx)
		}
	}
}

func (m *Monitor) snapshot() (map[string]Result, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Result, len(m.results))
	healthy := true
	for k, v := range m.results {
		out[k] = v
		if v.Status != "healthy" {
			healthy = false
		}
	}
	return out, healthy
}

// Handler serves /health from the last refresh.
func (m *Monitor) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, healthy := m.snapshot()
		status, code := "healthy", http.StatusOK
		if !healthy {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"message":   "Server is running",
			"timestamp": time.Now(),
		})
	}
}

// DetailedHandler checks every dependency on request.
func (m *Monitor) DetailedHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.Refresh(c.Request.Context())
		services, healthy := m.snapshot()
		overall := "healthy"
		if !healthy {
			overall = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"overall_status": overall,
			"services":       services,
			"timestamp":      time.Now(),
		})
	}
}

// NewGRPCServer returns a server exposing the health service and
// reflection.
func (m *Monitor) NewGRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	s := grpc.NewServer(opts...)
	grpc_health_v1.RegisterHealthServer(s, m.server)
	reflection.Register(s)
	return s
}

// Serve runs s on lis until ctx ends.
func Serve(ctx context.Context, s *grpc.Server, lis net.Listener) error {
	serveErr := make(chan error, 1)
	go func() { serveErr <- s.Serve(lis) }()
	select {
	case <-ctx.Done():
		s.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	case err := <-serveErr:
		return err
	}
}
