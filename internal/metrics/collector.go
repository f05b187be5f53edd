package metrics

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"s3preset/internal/progress"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects and exposes metrics
type Collector struct {
	registry        *prometheus.Registry
	tasksTotal      *prometheus.CounterVec
	inflightTasks   prometheus.Gauge
	duration        *prometheus.HistogramVec
	progressTracker *progress.Tracker

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	serveErr error
}

// New creates a new metrics collector with its own registry
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		tasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "preset_tasks_total",
				Help: "Total number of provisioning tasks processed",
			},
			[]string{"kind", "status"},
		),
		inflightTasks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "preset_inflight_tasks",
				Help: "Number of tasks currently executing",
			},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "preset_task_duration_seconds",
				Help:    "Time taken by a single provisioning task",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		progressTracker: progress.NewTracker(),
	}

	c.registry.MustRegister(c.tasksTotal, c.inflightTasks, c.duration)

	return c
}

// TaskStarted marks a task as in flight
func (c *Collector) TaskStarted() {
	c.inflightTasks.Inc()
}

// TaskSucceeded records a successful task and updates progress
func (c *Collector) TaskSucceeded(kind string, duration time.Duration) {
	c.inflightTasks.Dec()
	c.tasksTotal.WithLabelValues(kind, "success").Inc()
	c.duration.WithLabelValues(kind).Observe(duration.Seconds())
	c.progressTracker.AddSuccess()
}

// TaskFailed records a failed task and updates progress
func (c *Collector) TaskFailed(kind string, duration time.Duration) {
	c.inflightTasks.Dec()
	c.tasksTotal.WithLabelValues(kind, "failed").Inc()
	c.duration.WithLabelValues(kind).Observe(duration.Seconds())
	c.progressTracker.AddFailed()
}

// StartPhase resets progress tracking for a new batch
func (c *Collector) StartPhase(phase string, total int) {
	c.progressTracker.StartPhase(phase, int64(total))
}

// GetProgressTracker returns the progress tracker
func (c *Collector) GetProgressTracker() *progress.Tracker {
	return c.progressTracker
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// StartServer binds addr and serves /metrics in the background until
// Shutdown is called. Bind errors are returned to the caller.
func (c *Collector) StartServer(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	c.mu.Lock()
	c.server = server
	c.listener = ln
	c.mu.Unlock()

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.mu.Lock()
			c.serveErr = err
			c.mu.Unlock()
		}
	}()
	return nil
}

// Addr returns the address the metrics server listens on, or "" when it
// was never started
func (c *Collector) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.server == nil {
		return ""
	}
	return c.server.Addr
}

// Shutdown stops the metrics server if it was started and reports any
// error the server stopped with
func (c *Collector) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.server == nil {
		return nil
	}
	if err := c.server.Close(); err != nil {
		return err
	}
	// Serve may not have taken ownership of the listener yet
	if err := c.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return c.serveErr
}
