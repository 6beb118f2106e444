package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCycle(t *testing.T) {
	okBefore := testutil.ToFloat64(CyclesTotal.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(CyclesTotal.WithLabelValues("error"))

	RecordCycle(nil, time.Second)
	RecordCycle(errors.New("store down"), time.Second)

	if got := testutil.ToFloat64(CyclesTotal.WithLabelValues("ok")) - okBefore; got != 1 {
		t.Errorf("ok cycles delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(CyclesTotal.WithLabelValues("error")) - errBefore; got != 1 {
		t.Errorf("error cycles delta = %v, want 1", got)
	}
}

func TestRecordSchedules_IgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(SchedulesTotal.WithLabelValues(StageSuppressed))
	RecordSchedules(StageSuppressed, 0)
	RecordSchedules(StageSuppressed, 3)
	if got := testutil.ToFloat64(SchedulesTotal.WithLabelValues(StageSuppressed)) - before; got != 3 {
		t.Errorf("suppressed delta = %v, want 3", got)
	}
}

func TestRecordDelivery(t *testing.T) {
	before := testutil.ToFloat64(DeliveriesTotal.WithLabelValues("failed"))
	RecordDelivery("failed", 20*time.Millisecond)
	if got := testutil.ToFloat64(DeliveriesTotal.WithLabelValues("failed")) - before; got != 1 {
		t.Errorf("failed deliveries delta = %v, want 1", got)
	}
}
