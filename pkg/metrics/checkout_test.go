package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCheckoutMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)

	m.IncStarted()
	m.IncStarted()
	m.IncOutcome("approved")
	m.ObserveFinalize(150 * time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := counterValue(mfs, "checkout_started_total", "", ""); err != nil {
		t.Fatalf("fetch started: %v", err)
	} else if got != 2 {
		t.Fatalf("expected started=2, got %f", got)
	}

	if got, err := counterValue(mfs, "checkout_outcome_total", "status", "approved"); err != nil {
		t.Fatalf("fetch outcome: %v", err)
	} else if got != 1 {
		t.Fatalf("expected approved=1, got %f", got)
	}

	if got, err := histogramSum(mfs, "checkout_finalize_duration_seconds"); err != nil {
		t.Fatalf("fetch finalize: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected finalize sum > 0, got %f", got)
	}
}

func TestSyncMetricsCountsResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSyncMetrics(reg)

	m.IncMirrorSync("ok")
	m.IncMirrorSync("ok")
	m.IncMirrorSync("error")
	m.IncScanTimeout()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := counterValue(mfs, "mirror_sync_total", "result", "ok"); err != nil {
		t.Fatalf("fetch mirror ok: %v", err)
	} else if got != 2 {
		t.Fatalf("expected ok=2, got %f", got)
	}
	if got, err := counterValue(mfs, "scan_timeout_total", "", ""); err != nil {
		t.Fatalf("fetch scan timeouts: %v", err)
	} else if got != 1 {
		t.Fatalf("expected timeouts=1, got %f", got)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	m := NewCheckoutMetrics(nil)
	m.IncStarted()
	m.IncOutcome("approved")
	m.ObserveFinalize(time.Second)

	s := NewSyncMetrics(nil)
	s.IncMirrorSync("ok")
	s.IncScanResolved()
	s.IncScanTimeout()
}

func counterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if label == "" || hasLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func histogramSum(mfs []*dto.MetricFamily, name string) (float64, error) {
	mf := findFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		return metric.GetHistogram().GetSampleSum(), nil
	}
	return 0, fmt.Errorf("histogram %q has no samples", name)
}

func findFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func hasLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
