package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's prometheus collectors
type Metrics struct {
	// HTTP
	RequestDuration prometheus.HistogramVec

	// Journal
	TradesRecordedTotal prometheus.CounterVec
	AnalyticsCacheTotal prometheus.CounterVec

	// Billing
	PaymentsTotal       prometheus.CounterVec
	PaymentAmountTotal  prometheus.CounterVec
	PlanUpgradesTotal   prometheus.CounterVec
	PlanDowngradesTotal prometheus.Counter
	CommissionsTotal    prometheus.CounterVec

	// AI
	AIRequestsTotal   prometheus.CounterVec
	AIRequestDuration prometheus.HistogramVec

	// Realtime
	RealtimeClients prometheus.Gauge
}

// New registers the collectors with reg. Pass prometheus.NewRegistry() in
// tests to avoid duplicate registration on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestDuration: *f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency by route and status",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),

		TradesRecordedTotal: *f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journal_trades_recorded_total",
				Help: "Trades written to the journal",
			},
			[]string{"schema", "action"},
		),

		AnalyticsCacheTotal: *f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_cache_requests_total",
				Help: "Analytics cache lookups by outcome",
			},
			[]string{"outcome"},
		),

		PaymentsTotal: *f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_processed_total",
				Help: "Payments processed by provider and status",
			},
			[]string{"provider", "status"},
		),

		PaymentAmountTotal: *f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_amount_total",
				Help: "Sum of successful payment amounts",
			},
			[]string{"provider", "currency"},
		),

		PlanUpgradesTotal: *f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plan_upgrades_total",
				Help: "Plan activations and renewals",
			},
			[]string{"plan"},
		),

		PlanDowngradesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "plan_downgrades_total",
				Help: "Lapsed plans returned to free",
			},
		),

		CommissionsTotal: *f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "referral_commissions_total",
				Help: "Commission ledger transitions",
			},
			[]string{"status"},
		),

		AIRequestsTotal: *f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai_requests_total",
				Help: "AI provider calls by endpoint and outcome",
			},
			[]string{"endpoint", "status"},
		),

		AIRequestDuration: *f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ai_request_duration_seconds",
				Help:    "AI provider latency",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"endpoint"},
		),

		RealtimeClients: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "realtime_clients",
				Help: "Connected websocket clients",
			},
		),
	}
}

// RecordRequest observes one HTTP request
func (m *Metrics) RecordRequest(method, route string, status int, d time.Duration) {
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// RecordTrade counts a journal write
func (m *Metrics) RecordTrade(schema, action string) {
	m.TradesRecordedTotal.WithLabelValues(schema, action).Inc()
}

// RecordCache counts an analytics cache hit or miss
func (m *Metrics) RecordCache(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.AnalyticsCacheTotal.WithLabelValues(outcome).Inc()
}

// RecordPayment counts a processed payment and, when successful, its amount
func (m *Metrics) RecordPayment(provider, status, currency string, amount float64) {
	m.PaymentsTotal.WithLabelValues(provider, status).Inc()
	if status == "succeeded" {
		m.PaymentAmountTotal.WithLabelValues(provider, currency).Add(amount)
	}
}

// RecordUpgrade counts a plan activation
func (m *Metrics) RecordUpgrade(plan string) {
	m.PlanUpgradesTotal.WithLabelValues(plan).Inc()
}

// RecordDowngrades counts lapsed plans reset to free
func (m *Metrics) RecordDowngrades(n int) {
	m.PlanDowngradesTotal.Add(float64(n))
}

// RecordCommission counts a commission entering status
func (m *Metrics) RecordCommission(status string) {
	m.CommissionsTotal.WithLabelValues(status).Inc()
}

// RecordAI observes one AI provider call
func (m *Metrics) RecordAI(endpoint, status string, d time.Duration) {
	m.AIRequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.AIRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}
