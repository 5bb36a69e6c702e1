package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveScan(t *testing.T) {
	before := testutil.ToFloat64(scans.WithLabelValues("late"))
	ObserveScan("late")
	ObserveScan("late")
	assert.Equal(t, before+2, testutil.ToFloat64(scans.WithLabelValues("late")))
}

func TestObserveSweep(t *testing.T) {
	absBefore := testutil.ToFloat64(sweepAbsences)
	failBefore := testutil.ToFloat64(sweepSlotFailures)
	ObserveSweep(3, 1, 0.2)
	assert.Equal(t, absBefore+3, testutil.ToFloat64(sweepAbsences))
	assert.Equal(t, failBefore+1, testutil.ToFloat64(sweepSlotFailures))
}
