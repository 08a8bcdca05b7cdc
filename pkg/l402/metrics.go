package l402

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects gate and client counters on a private registry.
// A nil *Metrics is valid everywhere one is accepted and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	gateOutcomes  *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	payments      prometheus.Counter
	paymentAmount prometheus.Counter
}

// NewMetrics creates a Metrics instance with its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	gateOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "l402_gate_requests_total",
		Help: "Gate decisions per request",
	}, []string{"outcome"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "l402_client_cache_lookups_total",
		Help: "Client credential cache lookups",
	}, []string{"result"})

	payments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "l402_client_payments_total",
		Help: "Invoices settled by the client",
	})

	paymentAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "l402_client_paid_amount_total",
		Help: "Total amount settled by the client, smallest currency unit",
	})

	registry.MustRegister(gateOutcomes, cacheLookups, payments, paymentAmount)

	return &Metrics{
		registry:      registry,
		gateOutcomes:  gateOutcomes,
		cacheLookups:  cacheLookups,
		payments:      payments,
		paymentAmount: paymentAmount,
	}
}

// Handler serves the metrics in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

const (
	outcomeAdmitted    = "admitted"
	outcomeChallenged  = "challenged"
	outcomeWalletError = "wallet_error"
)

func (m *Metrics) gateOutcome(outcome string) {
	if m == nil {
		return
	}
	m.gateOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) cacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) paymentSettled(amount int64) {
	if m == nil {
		return
	}
	m.payments.Inc()
	if amount > 0 {
		m.paymentAmount.Add(float64(amount))
	}
}
