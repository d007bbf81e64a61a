package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	_ = c.Write(&m)
	return m.GetCounter().GetValue()
}

func TestInitializeIsSingleton(t *testing.T) {
	assert.Same(t, Initialize(), Get())
}

func TestRecordUpstreamRequest(t *testing.T) {
	m := Get()
	m.UpstreamRequestsTotal.Reset()

	RecordUpstreamRequest("defillama", 200, 120*time.Millisecond)
	RecordUpstreamRequest("defillama", 503, time.Second)
	RecordUpstreamRequest("defillama", 0, time.Second)

	assert.Equal(t, 1.0, counterValue(m.UpstreamRequestsTotal.WithLabelValues("defillama", "2xx")))
	assert.Equal(t, 1.0, counterValue(m.UpstreamRequestsTotal.WithLabelValues("defillama", "5xx")))
	assert.Equal(t, 1.0, counterValue(m.UpstreamRequestsTotal.WithLabelValues("defillama", "error")))
}

func TestRecordCacheOperation(t *testing.T) {
	m := Get()
	m.CacheOperationsTotal.Reset()

	RecordCacheOperation("get", time.Millisecond, nil)
	RecordCacheOperation("get", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, counterValue(m.CacheOperationsTotal.WithLabelValues("get", "success")))
	assert.Equal(t, 1.0, counterValue(m.CacheOperationsTotal.WithLabelValues("get", "error")))
}
