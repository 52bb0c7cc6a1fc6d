// Package shutdown coordinates graceful shutdown of the service components.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var componentShutdownDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "component_shutdown_duration_seconds",
	Help:    "Time taken to shutdown individual components",
	Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 15, 30},
}, []string{"component"})

// Func shuts down one component within the deadline of ctx
type Func func(context.Context) error

type component struct {
	name string
	fn   Func
}

// Manager runs registered shutdown functions in reverse registration order,
// so components registered last (the HTTP servers) stop before what they depend on.
type Manager struct {
	logger  *zap.Logger
	timeout time.Duration

	mu         sync.Mutex
	components []component
}

// NewManager creates a shutdown manager whose Shutdown is bounded by timeout
func NewManager(logger *zap.Logger, timeout time.Duration) *Manager {
	return &Manager{logger: logger, timeout: timeout}
}

// Register adds a shutdown function
func (m *Manager) Register(name string, fn Func) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component{name: name, fn: fn})
}

// RegisterHTTPServer registers a server's graceful Shutdown
func (m *Manager) RegisterHTTPServer(name string, server interface{ Shutdown(context.Context) error }) {
	m.Register(name, server.Shutdown)
}

// RegisterFunc registers a close function that takes no context
func (m *Manager) RegisterFunc(name string, fn func() error) {
	m.Register(name, func(context.Context) error { return fn() })
}

// RegisterNoErr registers a cleanup function that cannot fail
func (m *Manager) RegisterNoErr(name string, fn func()) {
	m.Register(name, func(context.Context) error {
		fn()
		return nil
	})
}

// WaitForSignal blocks until SIGINT or SIGTERM, or until ctx is done
func (m *Manager) WaitForSignal(ctx context.Context) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		m.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}
}

// Shutdown stops every component, last registered first. Every component is
// attempted even after a failure; the failures are joined in the returned error.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	components := make([]component, len(m.components))
	copy(components, m.components)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.logger.Info("Starting graceful shutdown",
		zap.Int("component_count", len(components)),
		zap.Duration("timeout", m.timeout),
	)

	var errs []error
	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		start := time.Now()
		err := c.fn(ctx)
		componentShutdownDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())

		if err != nil {
			m.logger.Error("Component shutdown failed", zap.String("component", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			continue
		}
		m.logger.Debug("Component stopped", zap.String("component", c.name))
	}

	return errors.Join(errs...)
}
