package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kacperjurak/thermalcore/internal/processing"
	"github.com/kacperjurak/thermalcore/pkg/config"
	"github.com/kacperjurak/thermalcore/pkg/handlers"
	"github.com/kacperjurak/thermalcore/pkg/profiling"
	"github.com/kacperjurak/thermalcore/pkg/webhook"
	"github.com/kacperjurak/thermalcore/pkg/worker"
)

// Server represents the HTTP server with all dependencies
type Server struct {
	serverConfig *config.ServerConfig
	logger       *zap.Logger
	workerPool   *worker.Pool
	metrics      *profiling.Metrics
	profiler     *profiling.Profiler
	router       *gin.Engine
	httpServer   *http.Server
}

// Options holds configuration for creating a new server
type Options struct {
	ServerConfig *config.ServerConfig
	Logger       *zap.Logger
}

// New creates a new server instance
func New(opts Options) *Server {
	if opts.ServerConfig == nil {
		opts.ServerConfig = config.DefaultServerConfig()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	cfg := opts.ServerConfig

	metrics := profiling.NewMetrics()
	processor := processing.NewSimulationProcessor(opts.Logger)

	var sender worker.Sender
	if cfg.WebhookURL != "" {
		sender = webhook.NewClient(cfg.WebhookURL, opts.Logger)
	}

	workerPool := worker.New(worker.Options{
		Workers:   cfg.WorkerCount,
		Processor: processor.ProcessorFunc(),
		Sender:    sender,
		Observer:  metrics,
		Logger:    opts.Logger,
	})

	s := &Server{
		serverConfig: cfg,
		logger:       opts.Logger,
		workerPool:   workerPool,
		metrics:      metrics,
		profiler:     profiling.New(cfg, opts.Logger),
	}
	s.setupRoutes(processor)
	return s
}

// setupRoutes configures HTTP routes and handlers
func (s *Server) setupRoutes(processor *processing.SimulationProcessor) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handlers.RequestID())
	r.Use(profiling.NewMiddleware(s.serverConfig.EnableProfiling, s.metrics).Handler())

	simulation := handlers.NewSimulationHandler(processor, s.workerPool, s.metrics, s.logger)
	batch := handlers.NewBatchHandler(s.workerPool, s.serverConfig.TimingFile, s.logger)

	r.POST("/simulate", simulation.Simulate)
	r.POST("/simulate/batch", batch.Submit)
	r.POST("/calibrate", simulation.Calibrate)
	r.POST("/aging", simulation.Aging)

	r.GET("/health", s.healthHandler)
	r.POST("/debug/gc", s.gcHandler)
	if s.serverConfig.EnableMetrics {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	s.router = r
	s.httpServer = &http.Server{
		Addr:         ":" + s.serverConfig.Port,
		Handler:      r,
		ReadTimeout:  s.serverConfig.ReadTimeout,
		WriteTimeout: s.serverConfig.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"workers":   s.workerPool.Workers(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// gcHandler forces a collection and reports the GC counters.
func (s *Server) gcHandler(c *gin.Context) {
	runtime.GC()
	debug.FreeOSMemory()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var stats debug.GCStats
	debug.ReadGCStats(&stats)

	c.JSON(http.StatusOK, gin.H{
		"gc_runs":        m.NumGC,
		"pause_total_ms": float64(stats.PauseTotal.Nanoseconds()) / 1e6,
		"heap_alloc_mb":  float64(m.HeapAlloc) / 1024 / 1024,
		"cpu_percent":    m.GCCPUFraction * 100,
		"last_gc":        stats.LastGC.UTC().Format(time.RFC3339),
	})
}

// Start serves HTTP until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	if err := s.profiler.Start(); err != nil {
		s.logger.Error("failed to start profiler", zap.Error(err))
	}

	s.logger.Info("starting HTTP server",
		zap.String("port", s.serverConfig.Port),
		zap.Int("workers", s.serverConfig.WorkerCount),
		zap.Bool("webhook", s.serverConfig.WebhookURL != ""),
		zap.Bool("metrics", s.serverConfig.EnableMetrics),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, drains the worker pool and stops the profiler.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
	}
	s.workerPool.Shutdown()
	if err := s.profiler.Stop(ctx); err != nil {
		errs = append(errs, err)
	}

	s.logger.Info("server shutdown complete")
	return errors.Join(errs...)
}
