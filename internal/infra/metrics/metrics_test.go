package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder("logs_uptime")

	r.Attempt("RecordUptime")
	r.Attempt("RecordUptime")
	r.Failure("RecordUptime", "DeadlineExceeded", "transient")
	r.Backoff("RecordUptime", 200*time.Millisecond)
	r.GiveUp("RecordUptime", "budget_exhausted")
	r.SetUp(true)

	if got := testutil.ToFloat64(RPCAttemptsTotal.WithLabelValues("logs_uptime", "RecordUptime")); got != 2 {
		t.Errorf("attempts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(RPCFailuresTotal.WithLabelValues("logs_uptime", "RecordUptime", "DeadlineExceeded", "transient")); got != 1 {
		t.Errorf("failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(RPCGiveUpsTotal.WithLabelValues("logs_uptime", "RecordUptime", "budget_exhausted")); got != 1 {
		t.Errorf("give ups = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ServiceUp.WithLabelValues("logs_uptime")); got != 1 {
		t.Errorf("service up = %v, want 1", got)
	}

	r.SetUp(false)
	if got := testutil.ToFloat64(ServiceUp.WithLabelValues("logs_uptime")); got != 0 {
		t.Errorf("service up = %v, want 0", got)
	}
}
