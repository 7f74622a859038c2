package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors the checkout core reports on. All vecs are
// registered once at construction; use-case code only increments.
type Metrics struct {
	HTTPRequests   *prometheus.CounterVec
	HTTPLatency    *prometheus.HistogramVec
	OrdersCreated  *prometheus.CounterVec
	StockConflicts prometheus.Counter
	PromoApplies   *prometheus.CounterVec
	JobsDispatched *prometheus.CounterVec
	JobRetries     prometheus.Counter
	JobsParked     prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders created, labelled by payment method and outcome.",
		}, []string{"method", "outcome"}),
		StockConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inventory_stock_conflicts_total",
			Help: "Order attempts rejected because stock ran out.",
		}),
		PromoApplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "promo_applies_total",
			Help: "Promo commit attempts by outcome.",
		}, []string{"outcome"}),
		JobsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_jobs_total",
			Help: "Notification jobs finished, by type and outcome.",
		}, []string{"type", "outcome"}),
		JobRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_job_retries_total",
			Help: "Notification delivery attempts that were rescheduled.",
		}),
		JobsParked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_jobs_parked_total",
			Help: "Notification jobs parked after exhausting all attempts.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequests, m.HTTPLatency,
		m.OrdersCreated, m.StockConflicts, m.PromoApplies,
		m.JobsDispatched, m.JobRetries, m.JobsParked,
	)
	return m
}

// NewNop returns metrics backed by a private registry, for tests.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

func Handler() http.Handler {
	return promhttp.Handler()
}
