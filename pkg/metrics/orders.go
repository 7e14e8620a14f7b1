package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records checkout, payment and invoice outcomes plus live viewer counts.
type OrderMetrics struct {
	checkouts       *prometheus.CounterVec
	supplierLookups *prometheus.CounterVec
	payments        *prometheus.CounterVec
	gatewayLatency  *prometheus.HistogramVec
	invoices        *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	liveViewers     prometheus.Gauge
	liveDropped     *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	m := &OrderMetrics{
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_submissions_total",
			Help: "Checkout submissions by shop and checkout variant.",
		}, []string{"shop", "variant"}),
		supplierLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "supplier_lookups_total",
			Help: "Supplier lookups by outcome (matched, unmatched, failed).",
		}, []string{"outcome"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_initiations_total",
			Help: "Hosted payment page initiations by environment and outcome.",
		}, []string{"environment", "outcome"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "payment_gateway_request_seconds",
			Help:    "Latency of payment gateway calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		invoices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoice_generations_total",
			Help: "Invoice generations by outcome.",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Recorded order status transitions by target status.",
		}, []string{"status"}),
		liveViewers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "order_live_viewers",
			Help: "Open back-office order trail subscriptions.",
		}),
		liveDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_live_events_dropped_total",
			Help: "Live trail events skipped for a subscriber whose buffer was full.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.checkouts, m.supplierLookups, m.payments, m.gatewayLatency, m.invoices, m.transitions, m.liveViewers, m.liveDropped)
	return m
}

func (m *OrderMetrics) IncCheckout(shop string, belgian bool) {
	if m == nil || m.checkouts == nil {
		return
	}
	variant := "standard"
	if belgian {
		variant = "belgian"
	}
	m.checkouts.WithLabelValues(normalizeLabel(shop), variant).Inc()
}

func (m *OrderMetrics) IncSupplierLookup(outcome string) {
	if m == nil || m.supplierLookups == nil {
		return
	}
	m.supplierLookups.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *OrderMetrics) IncPayment(environment, outcome string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(environment), normalizeLabel(outcome)).Inc()
}

// ObserveGateway records the duration of one gateway call.
func (m *OrderMetrics) ObserveGateway(operation string, duration time.Duration) {
	if m == nil || m.gatewayLatency == nil {
		return
	}
	m.gatewayLatency.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func (m *OrderMetrics) IncInvoice(outcome string) {
	if m == nil || m.invoices == nil {
		return
	}
	m.invoices.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *OrderMetrics) IncTransition(status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

// ViewerOpened and ViewerClosed track live trail subscriptions.
func (m *OrderMetrics) ViewerOpened() {
	if m == nil || m.liveViewers == nil {
		return
	}
	m.liveViewers.Inc()
}

func (m *OrderMetrics) ViewerClosed() {
	if m == nil || m.liveViewers == nil {
		return
	}
	m.liveViewers.Dec()
}

func (m *OrderMetrics) IncLiveDropped(kind string) {
	if m == nil || m.liveDropped == nil {
		return
	}
	m.liveDropped.WithLabelValues(normalizeLabel(kind)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
