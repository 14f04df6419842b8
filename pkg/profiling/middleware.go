package profiling

import (
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware provides profiling and metrics middleware for HTTP handlers
type Middleware struct {
	enableProfiling bool
	metrics         *Metrics
}

// NewMiddleware creates a new profiling middleware. metrics may be nil.
func NewMiddleware(enableProfiling bool, metrics *Metrics) *Middleware {
	return &Middleware{
		enableProfiling: enableProfiling,
		metrics:         metrics,
	}
}

// Handler records request metrics and, with profiling on, adds runtime
// figures to the response headers.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var startMem runtime.MemStats
		startGoroutines := 0
		if m.enableProfiling {
			runtime.ReadMemStats(&startMem)
			startGoroutines = runtime.NumGoroutine()
			c.Header("X-Profiling-Enabled", "true")
			c.Header("X-Start-Goroutines", strconv.Itoa(startGoroutines))

			// Headers must be set before the body is written.
			c.Writer = &profiledWriter{ResponseWriter: c.Writer, before: func(h http.Header) {
				var endMem runtime.MemStats
				runtime.ReadMemStats(&endMem)
				h.Set("X-Duration-Ms", strconv.FormatFloat(float64(time.Since(start).Nanoseconds())/1e6, 'f', 3, 64))
				h.Set("X-Memory-Delta-Bytes", strconv.FormatInt(int64(endMem.Alloc)-int64(startMem.Alloc), 10))
				h.Set("X-Goroutine-Delta", strconv.Itoa(runtime.NumGoroutine()-startGoroutines))
			}}
		}

		c.Next()

		if m.metrics != nil {
			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			m.metrics.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
		}
	}
}

type profiledWriter struct {
	gin.ResponseWriter
	once   sync.Once
	before func(http.Header)
}

func (w *profiledWriter) flushHeaders() {
	w.once.Do(func() { w.before(w.Header()) })
}

func (w *profiledWriter) WriteHeaderNow() {
	w.flushHeaders()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *profiledWriter) Write(data []byte) (int, error) {
	w.flushHeaders()
	return w.ResponseWriter.Write(data)
}

func (w *profiledWriter) WriteString(s string) (int, error) {
	w.flushHeaders()
	return w.ResponseWriter.WriteString(s)
}

// RequestProfiler measures one unit of work
type RequestProfiler struct {
	StartTime   time.Time
	StartMemory uint64
	Name        string
}

// NewRequestProfiler creates a new request profiler
func NewRequestProfiler(name string) *RequestProfiler {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &RequestProfiler{
		StartTime:   time.Now(),
		StartMemory: m.Alloc,
		Name:        name,
	}
}

// Finish completes the profiling and returns metrics
func (rp *RequestProfiler) Finish() ProfileMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	allocated := uint64(0)
	if m.Alloc > rp.StartMemory {
		allocated = m.Alloc - rp.StartMemory
	}
	return ProfileMetrics{
		Name:            rp.Name,
		Duration:        time.Since(rp.StartTime),
		MemoryAllocated: allocated,
		FinalMemory:     m.Alloc,
		Goroutines:      runtime.NumGoroutine(),
	}
}

// ProfileMetrics holds profiling metrics for a request
type ProfileMetrics struct {
	Name            string
	Duration        time.Duration
	MemoryAllocated uint64
	FinalMemory     uint64
	Goroutines      int
}
