package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLifecycle(reg)

	m.IncTransition(AggregateBatch, "planned", "brewing")
	m.IncTransition(AggregateBatch, "planned", "brewing")
	m.IncRejection(AggregateOrder, "INSUFFICIENT_STOCK")
	m.IncRejection(AggregateOrder, "")
	m.IncMovement("received")
	m.ObserveDuration(AggregatePurchaseOrder, "receive_line", 20*time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := counterValue(mfs, "brewops_lifecycle_transitions_total", map[string]string{"aggregate": "batch", "to": "brewing"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)

	got, err = counterValue(mfs, "brewops_lifecycle_rejections_total", map[string]string{"reason": "unknown"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = counterValue(mfs, "brewops_stock_movements_total", map[string]string{"type": "received"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestLifecycleNilIsSafe(t *testing.T) {
	var m *Lifecycle
	assert.NotPanics(t, func() {
		m.IncTransition(AggregateBatch, "a", "b")
		m.IncRejection(AggregateBatch, "x")
		m.IncMovement("consumed")
		m.ObserveDuration(AggregateBatch, "transition", time.Second)
	})

	assert.NotPanics(t, func() { NewLifecycle(nil).IncMovement("received") })
}

func TestHandlerServesText(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewLifecycle(reg).IncMovement("adjusted")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `brewops_stock_movements_total{type="adjusted"} 1`)
}

func counterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if matches(metric, labels) {
				return metric.GetCounter().GetValue(), nil
			}
		}
		return 0, fmt.Errorf("no %s sample matching %v", name, labels)
	}
	return 0, fmt.Errorf("metric %q not found", name)
}

func matches(metric *dto.Metric, labels map[string]string) bool {
	found := 0
	for _, lp := range metric.GetLabel() {
		if want, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != want {
				return false
			}
			found++
		}
	}
	return found == len(labels)
}
