package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveIncrementsLabeledCounter(t *testing.T) {
	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("block"))
	Observe(true, 5*time.Millisecond)
	after := testutil.ToFloat64(RequestsTotal.WithLabelValues("block"))
	if after != before+1 {
		t.Errorf("expected block counter to increment by 1, got %v -> %v", before, after)
	}
}

func TestSetRulesLoaded(t *testing.T) {
	SetRulesLoaded(42)
	if got := testutil.ToFloat64(RulesLoaded); got != 42 {
		t.Errorf("expected gauge 42, got %v", got)
	}
}
