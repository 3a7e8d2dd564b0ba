package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	StagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "swap_stages_total", Help: "Pipeline stages run, by outcome"},
		[]string{"stage", "outcome"},
	)
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "swap_http_requests_total", Help: "Outbound HTTP requests, by endpoint and status"},
		[]string{"endpoint", "status"},
	)
)

// Outcome labels for StagesTotal.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

func init() {
	prometheus.MustRegister(StagesTotal, HTTPRequestsTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
