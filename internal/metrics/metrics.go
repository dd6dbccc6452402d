// Package metrics exposes Prometheus counters for the evaluation loop and
// a small HTTP server with /metrics and /healthz.
package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics holds all Prometheus metrics for the signal engine.
type Metrics struct {
	EvaluationsTotal prometheus.Counter
	SignalsTotal     *prometheus.CounterVec // labels: action
	RejectionsTotal  *prometheus.CounterVec // labels: reason
	EvaluationDur    prometheus.Histogram
	FetchErrors      *prometheus.CounterVec // labels: source
	ActiveSignals    prometheus.Gauge
	LastScore        prometheus.Gauge
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		EvaluationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_evaluations_total",
			Help: "Total evaluation cycles run",
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_signals_total",
			Help: "Total signals emitted (by action)",
		}, []string{"action"}),
		RejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_rejections_total",
			Help: "Evaluation cycles rejected (by reason)",
		}, []string{"reason"}),
		EvaluationDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigengine_evaluation_duration_seconds",
			Help:    "Full cycle latency including data fetch",
			Buckets: prometheus.DefBuckets,
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_fetch_errors_total",
			Help: "Upstream fetch failures (by source)",
		}, []string{"source"}),
		ActiveSignals: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sigengine_active_signals",
			Help: "Signals currently pending",
		}),
		LastScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sigengine_last_confluence_score",
			Help: "Confluence score of the most recent evaluation",
		}),
	}

	prometheus.MustRegister(
		m.EvaluationsTotal,
		m.SignalsTotal,
		m.RejectionsTotal,
		m.EvaluationDur,
		m.FetchErrors,
		m.ActiveSignals,
		m.LastScore,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	MarketDataOK   bool
	CalendarOK     bool
	DatabaseOK     bool
	LastEvaluation time.Time
	StartedAt      time.Time
}

func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetMarketDataOK(v bool) {
	h.mu.Lock()
	h.MarketDataOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetCalendarOK(v bool) {
	h.mu.Lock()
	h.CalendarOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetDatabaseOK(v bool) {
	h.mu.Lock()
	h.DatabaseOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastEvaluation(t time.Time) {
	h.mu.Lock()
	h.LastEvaluation = t
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.MarketDataOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	lastEval := ""
	if !h.LastEvaluation.IsZero() {
		lastEval = h.LastEvaluation.Format(time.RFC3339)
	}

	status := struct {
		Status         string `json:"status"`
		Uptime         string `json:"uptime"`
		MarketDataOK   bool   `json:"market_data_ok"`
		CalendarOK     bool   `json:"calendar_ok"`
		DatabaseOK     bool   `json:"database_ok"`
		LastEvaluation string `json:"last_evaluation"`
	}{
		Status:         overallStatus,
		Uptime:         time.Since(h.StartedAt).Round(time.Second).String(),
		MarketDataOK:   h.MarketDataOK,
		CalendarOK:     h.CalendarOK,
		DatabaseOK:     h.DatabaseOK,
		LastEvaluation: lastEval,
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.addr).Msg("metrics server listening")
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
