package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMetricsManager(t *testing.T) {
	m := NewMetricsManager("newsroom")

	m.ObserveOperation("create", nil)
	m.ObserveOperation("create", errors.New("boom"))
	m.ObserveOperation("create", nil)
	m.ObserveImage("upload", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.NewsOperationsTotal.WithLabelValues("create", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NewsOperationsTotal.WithLabelValues("create", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImageOperations.WithLabelValues("upload", OutcomeSuccess)))

	count, err := testutil.GatherAndCount(m.Registry, "newsroom_news_operations_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetricsManager_NilSafe(t *testing.T) {
	var m *MetricsManager
	assert.NotPanics(t, func() {
		m.ObserveOperation("create", nil)
		m.ObserveImage("delete", nil)
	})
}

func TestStartMetricsServer_NoPort(t *testing.T) {
	assert.Nil(t, StartMetricsServer("", zap.NewNop(), NewMetricsManager("x").Registry))
}
