package simmetrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewTimer(t *testing.T) {
	timer := NewTimer()
	if timer == nil {
		t.Fatal("NewTimer() returned nil")
	}
	if timer.start.IsZero() {
		t.Error("NewTimer() start time is zero")
	}
}

func TestTimerDuration(t *testing.T) {
	timer := NewTimer()
	time.Sleep(10 * time.Millisecond)
	if d := timer.Duration(); d < 10*time.Millisecond {
		t.Errorf("Duration() = %v, want >= 10ms", d)
	}
}

func TestTimerObserveDurationVec(t *testing.T) {
	vec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "test_replacement_pass_seconds",
			Help:    "test",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	timer := NewTimer()
	time.Sleep(5 * time.Millisecond)
	timer.ObserveDurationVec(vec, "LRU")
}

func TestAdmissionsTotal_LabeledByStrategyAndReason(t *testing.T) {
	AdmissionsTotal.Reset()
	AdmissionsTotal.WithLabelValues("COORDINATED", "SUCCESS").Inc()
	AdmissionsTotal.WithLabelValues("COORDINATED", "CONGESTION").Inc()

	got := testutil.ToFloat64(AdmissionsTotal.WithLabelValues("COORDINATED", "SUCCESS"))
	if got != 1 {
		t.Errorf("SUCCESS counter = %v, want 1", got)
	}
}
