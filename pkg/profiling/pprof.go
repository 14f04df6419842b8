package profiling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/kacperjurak/thermalcore/pkg/config"
)

// Profiler manages pprof profiling server
type Profiler struct {
	config *config.ServerConfig
	logger *zap.Logger
	server *http.Server
}

// New creates a new profiler instance
func New(cfg *config.ServerConfig, logger *zap.Logger) *Profiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Profiler{
		config: cfg,
		logger: logger,
	}
}

// Handler returns the profiling routes.
func (p *Profiler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("/debug/info", p.infoHandler)
	return mux
}

// Start starts the profiling server on a separate port
func (p *Profiler) Start() error {
	if !p.config.EnableProfiling {
		p.logger.Info("profiling disabled")
		return nil
	}

	runtime.SetBlockProfileRate(1)
	runtime.SetMutexProfileFraction(1)

	p.server = &http.Server{
		Addr:              ":" + p.config.ProfilingPort,
		Handler:           p.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	p.logger.Info("starting profiling server",
		zap.String("port", p.config.ProfilingPort),
		zap.String("index", fmt.Sprintf("http://localhost:%s/debug/pprof/", p.config.ProfilingPort)),
	)

	go func() {
		if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Error("profiling server failed", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully stops the profiling server
func (p *Profiler) Stop(ctx context.Context) error {
	if p.server == nil {
		return nil
	}

	if err := p.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("profiling server shutdown: %w", err)
	}

	p.logger.Info("profiling server stopped")
	return nil
}

// RuntimeInfo is the payload of /debug/info.
type RuntimeInfo struct {
	Timestamp  string  `json:"timestamp"`
	Goroutines int     `json:"goroutines"`
	GOMAXPROCS int     `json:"gomaxprocs"`
	NumCPU     int     `json:"num_cpu"`
	Version    string  `json:"version"`
	AllocMB    float64 `json:"alloc_mb"`
	HeapMB     float64 `json:"heap_alloc_mb"`
	SysMB      float64 `json:"sys_mb"`
	NumGC      uint32  `json:"num_gc"`
}

func (p *Profiler) infoHandler(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	info := RuntimeInfo{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Goroutines: runtime.NumGoroutine(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
		NumCPU:     runtime.NumCPU(),
		Version:    runtime.Version(),
		AllocMB:    bToMb(m.Alloc),
		HeapMB:     bToMb(m.HeapAlloc),
		SysMB:      bToMb(m.Sys),
		NumGC:      m.NumGC,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		p.logger.Warn("write runtime info", zap.Error(err))
	}
}

// bToMb converts bytes to megabytes
func bToMb(b uint64) float64 {
	return float64(b) / 1024 / 1024
}
