package profiling

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	simulations        *prometheus.CounterVec
	simulationDuration prometheus.Histogram
	simulatedSamples   prometheus.Counter
	calibrations       *prometheus.CounterVec
	calibrationTrials  prometheus.Histogram
	webhooks           *prometheus.CounterVec
	queuedJobs         prometheus.Gauge
	maxHotSpotObserved prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thermal_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "thermal_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		simulations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thermal_simulations_total",
			Help: "Simulation runs by outcome.",
		}, []string{"outcome"}),
		simulationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "thermal_simulation_duration_seconds",
			Help:    "Wall time of one simulation, calibration included.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
		simulatedSamples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermal_simulated_samples_total",
			Help: "Profile samples stepped through the thermal model.",
		}),
		calibrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thermal_calibrations_total",
			Help: "Hot-spot factor calibrations by method and boundary reached.",
		}, []string{"method", "boundary"}),
		calibrationTrials: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "thermal_calibration_trials",
			Help:    "Trial runs used by one calibration.",
			Buckets: prometheus.LinearBuckets(2, 4, 10),
		}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thermal_webhooks_total",
			Help: "Webhook deliveries by result.",
		}, []string{"result"}),
		queuedJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermal_worker_queued_jobs",
			Help: "Jobs waiting in the worker pool.",
		}),
		maxHotSpotObserved: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermal_last_max_hot_spot_celsius",
			Help: "Maximum hot-spot temperature of the last successful simulation.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.simulations, m.simulationDuration, m.simulatedSamples,
		m.calibrations, m.calibrationTrials,
		m.webhooks, m.queuedJobs, m.maxHotSpotObserved,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveSimulation records one finished simulation.
func (m *Metrics) ObserveSimulation(samples int, maxHotSpot float64, d time.Duration, err error) {
	if err != nil {
		m.simulations.WithLabelValues("error").Inc()
		return
	}
	m.simulations.WithLabelValues("ok").Inc()
	m.simulationDuration.Observe(d.Seconds())
	m.simulatedSamples.Add(float64(samples))
	m.maxHotSpotObserved.Set(maxHotSpot)
}

// ObserveCalibration records one calibration. boundary is "" when the limit was met.
func (m *Metrics) ObserveCalibration(method, boundary string, trials int) {
	if boundary == "" {
		boundary = "none"
	}
	m.calibrations.WithLabelValues(method, boundary).Inc()
	m.calibrationTrials.Observe(float64(trials))
}

func (m *Metrics) ObserveWebhook(err error) {
	if err != nil {
		m.webhooks.WithLabelValues("error").Inc()
		return
	}
	m.webhooks.WithLabelValues("ok").Inc()
}

func (m *Metrics) SetQueuedJobs(n int) {
	m.queuedJobs.Set(float64(n))
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	}
	return "2xx"
}
