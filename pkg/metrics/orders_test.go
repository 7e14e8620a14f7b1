package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestOrderMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)
	m.IncCheckout("belgium", true)
	m.IncSupplierLookup("")
	m.IncPayment("test", "initiated")
	m.ObserveGateway("initiate", 120*time.Millisecond)
	m.IncInvoice("failed")
	m.IncTransition("Bezahlt")
	m.ViewerOpened()
	m.ViewerOpened()
	m.ViewerClosed()
	m.IncLiveDropped("note")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "checkout_submissions_total", "variant", "belgian"); err != nil || got != 1 {
		t.Fatalf("expected belgian checkout=1, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "supplier_lookups_total", "outcome", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected empty outcome normalized to unknown, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "order_status_transitions_total", "status", "Bezahlt"); err != nil || got != 1 {
		t.Fatalf("expected transition=1, got %f err=%v", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "payment_gateway_request_seconds", "operation", "initiate"); err != nil || got <= 0 {
		t.Fatalf("expected gateway latency sum > 0, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "order_live_events_dropped_total", "kind", "note"); err != nil || got != 1 {
		t.Fatalf("expected dropped note=1, got %f err=%v", got, err)
	}
	mf := findMetricFamily(mfs, "order_live_viewers")
	if mf == nil || mf.GetMetric()[0].GetGauge().GetValue() != 1 {
		t.Fatalf("expected one live viewer")
	}
}

func TestNilOrderMetricsIsSafe(t *testing.T) {
	var m *OrderMetrics
	m.IncCheckout("germany", false)
	m.ViewerOpened()
	NewOrderMetrics(nil).IncInvoice("ok")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}

func TestRelayMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRelayMetrics(reg)
	m.IncEvent("order_created", "published")
	m.IncEvent("order_created", "published")
	m.IncEvent("invoice_generated", "parked")
	m.ObserveBatch(40 * time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_relay_events_total", "outcome", "published"); err != nil || got != 2 {
		t.Fatalf("expected published=2, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_relay_events_total", "event_type", "invoice_generated"); err != nil || got != 1 {
		t.Fatalf("expected invoice_generated=1, got %f err=%v", got, err)
	}
	mf := findMetricFamily(mfs, "outbox_relay_batch_seconds")
	if mf == nil || mf.GetMetric()[0].GetHistogram().GetSampleCount() != 1 {
		t.Fatalf("expected one batch observation")
	}

	var nilMetrics *RelayMetrics
	nilMetrics.IncEvent("order_created", "retry")
}
