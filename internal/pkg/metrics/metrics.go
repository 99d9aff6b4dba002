// Package metrics registra os contadores Prometheus da API e das decisões dos motores.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa os coletores em um registry próprio (sem estado global).
type Metrics struct {
	registry     *prometheus.Registry
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	decisions    *prometheus.CounterVec
}

// New cria o registry com as métricas do processo e da aplicação.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gopharma",
			Name:      "http_requests_total",
			Help:      "Total de requisições HTTP por rota e status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gopharma",
			Name:      "http_request_duration_seconds",
			Help:      "Latência das requisições HTTP.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gopharma",
			Name:      "engine_decisions_total",
			Help:      "Decisões produzidas pelos motores (regra ou status vencedor).",
		}, []string{"engine", "outcome"}),
	}
	reg.MustRegister(m.httpRequests, m.httpDuration, m.decisions)
	return m
}

// ObserveRequest registra uma requisição concluída.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveDecision conta uma decisão de motor, por exemplo ("pricing", "TIER_PRICING").
func (m *Metrics) ObserveDecision(engine, outcome string) {
	m.decisions.WithLabelValues(engine, outcome).Inc()
}

// Handler expõe o registry no formato texto do Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
