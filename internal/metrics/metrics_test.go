package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CartOperation("add_item", OutcomeSuccess)
	m.CartOperation("add_item", OutcomeSuccess)
	m.CartOperation("add_item", OutcomeRejected)
	m.ReviewOperation("create", OutcomeError)
	m.ObserveDuration("add_item", 120*time.Millisecond)

	if got := testutil.ToFloat64(m.cartOps.WithLabelValues("add_item", OutcomeSuccess)); got != 2 {
		t.Fatalf("expected add_item success=2, got %f", got)
	}
	if got := testutil.ToFloat64(m.cartOps.WithLabelValues("add_item", OutcomeRejected)); got != 1 {
		t.Fatalf("expected add_item rejected=1, got %f", got)
	}
	if got := testutil.ToFloat64(m.reviewOps.WithLabelValues("create", OutcomeError)); got != 1 {
		t.Fatalf("expected create error=1, got %f", got)
	}

	count, err := testutil.GatherAndCount(reg, "storefront_operation_duration_seconds")
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one duration series, got %d", count)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.CartOperation("get", OutcomeSuccess)
	m.ReviewOperation("delete", OutcomeSuccess)
	m.ObserveDuration("get", time.Second)

	empty := New(nil)
	empty.CartOperation("get", OutcomeSuccess)
}

func TestNormalizeLabel(t *testing.T) {
	if normalizeLabel("") != "unknown" {
		t.Fatal("empty label should normalize to unknown")
	}
	if normalizeLabel("clear") != "clear" {
		t.Fatal("non-empty label should be kept")
	}
}
