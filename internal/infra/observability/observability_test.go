package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(CreditsEarned)
	CreditsEarned.Add(50)
	if got := testutil.ToFloat64(CreditsEarned); got != before+50 {
		t.Errorf("CreditsEarned = %f, want %f", got, before+50)
	}

	before = testutil.ToFloat64(Redemptions)
	Redemptions.Inc()
	if got := testutil.ToFloat64(Redemptions); got != before+1 {
		t.Errorf("Redemptions = %f, want %f", got, before+1)
	}
}

func TestLabelledCounters(t *testing.T) {
	c := TransactionsRecorded.WithLabelValues("earning", "confirmed")
	before := testutil.ToFloat64(c)
	c.Inc()
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Errorf("TransactionsRecorded = %f, want %f", got, before+1)
	}

	r := RedemptionRejections.WithLabelValues("insufficient_credits")
	before = testutil.ToFloat64(r)
	r.Inc()
	if got := testutil.ToFloat64(r); got != before+1 {
		t.Errorf("RedemptionRejections = %f, want %f", got, before+1)
	}
}

func TestBlockHeightGauge(t *testing.T) {
	BlockHeight.Set(42)
	if got := testutil.ToFloat64(BlockHeight); got != 42 {
		t.Errorf("BlockHeight = %f, want 42", got)
	}
}
