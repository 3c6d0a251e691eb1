package metrics

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
)

func TestSettlementCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSettlement(reg)
	m.ItemAdded()
	m.ItemAdded()
	m.Conflict("unavailable")
	m.Transition("Confirmed", "Paid")
	m.Cancelled("USD", decimal.NewFromInt(500))
	m.Cancelled("USD", decimal.Zero)
	m.PaymentRecorded("USD", decimal.RequireFromString("700.50"))
	m.PayoutsGenerated("USD", 2)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got := counterValue(t, mfs, "adspace_campaign_items_added_total", "", ""); got != 2 {
		t.Fatalf("expected 2 items added, got %f", got)
	}
	if got := counterValue(t, mfs, "adspace_booking_conflicts_total", "reason", "unavailable"); got != 1 {
		t.Fatalf("expected 1 conflict, got %f", got)
	}
	if got := counterValue(t, mfs, "adspace_campaign_cancellations_total", "penalty", "applied"); got != 1 {
		t.Fatalf("expected 1 penalised cancellation, got %f", got)
	}
	if got := counterValue(t, mfs, "adspace_campaign_cancellations_total", "penalty", "none"); got != 1 {
		t.Fatalf("expected 1 free cancellation, got %f", got)
	}
	if got := counterValue(t, mfs, "adspace_cancellation_penalty_amount_total", "currency", "USD"); got != 500 {
		t.Fatalf("expected penalty sum 500, got %f", got)
	}
	if got := counterValue(t, mfs, "adspace_payment_amount_total", "currency", "USD"); got != 700.5 {
		t.Fatalf("expected payment sum 700.5, got %f", got)
	}
	if got := counterValue(t, mfs, "adspace_payouts_generated_total", "currency", "USD"); got != 2 {
		t.Fatalf("expected 2 payouts, got %f", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var s *Settlement
	s.ItemAdded()
	s.Cancelled("USD", decimal.NewFromInt(1))
	var h *HTTP
	h.Observe(http.MethodGet, "/v1/campaigns", 200, time.Millisecond)
	var p *Publisher
	p.IncPublished("payment_recorded")

	unregistered := NewSettlement(nil)
	unregistered.PaymentRecorded("USD", decimal.NewFromInt(1))
}

func TestHTTPAndPublisherMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHTTP(reg)
	p := NewPublisher(reg)
	h.Observe(http.MethodPost, "/v1/payments", 201, 250*time.Millisecond)
	p.ObserveBatch(10 * time.Millisecond)
	p.IncPublished("payment_recorded")
	p.IncFailed("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	mf := findMetricFamily(mfs, "adspace_http_request_duration_seconds")
	if mf == nil || len(mf.GetMetric()) != 1 {
		t.Fatalf("expected one http histogram series")
	}
	if sum := mf.GetMetric()[0].GetHistogram().GetSampleSum(); sum <= 0 {
		t.Fatalf("expected positive duration sum, got %f", sum)
	}
	if got := counterValue(t, mfs, "adspace_outbox_failed_total", "event_type", "unknown"); got != 1 {
		t.Fatalf("expected empty event type to be labelled unknown, got %f", got)
	}
}

func counterValue(t *testing.T, mfs []*dto.MetricFamily, name, label, value string) float64 {
	t.Helper()
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		t.Fatalf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if label == "" || matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("%s", fmt.Sprintf("metric %q missing label %s=%s", name, label, value))
	return 0
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
