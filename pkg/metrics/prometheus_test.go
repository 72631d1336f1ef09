package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordRun("Bitcoin", "ok")
	r.RecordRun("Bitcoin", "ok")
	r.RecordRun("Bitcoin", "fit")
	r.RecordStage("fit", 250*time.Millisecond)
	r.RecordHorizon("Bitcoin", 2190)

	if got := testutil.ToFloat64(r.runsTotal.WithLabelValues("Bitcoin", "ok")); got != 2 {
		t.Fatalf("expected 2 ok runs, got %v", got)
	}
	if got := testutil.ToFloat64(r.horizonSteps.WithLabelValues("Bitcoin")); got != 2190 {
		t.Fatalf("expected horizon 2190, got %v", got)
	}
	if n := testutil.CollectAndCount(r.stageDuration); n != 1 {
		t.Fatalf("expected one stage series, got %d", n)
	}
}
