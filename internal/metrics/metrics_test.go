package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	m := MustNew(prometheus.NewRegistry())

	m.Upload(nil)
	m.Upload(errors.New("boom"))
	m.Upload(nil)
	m.Fetch(nil)
	m.ChangeEvent("create")
	m.CacheSize(3)
	m.Observe("refresh", time.Now(), nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.uploads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.changeEvents.WithLabelValues("create")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.cacheEntries))
	assert.Equal(t, 1, testutil.CollectAndCount(m.opDuration))
}

func TestMustNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := MustNew(reg)
	second := MustNew(reg)

	first.Upload(nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(second.uploads.WithLabelValues("ok")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Upload(nil)
		m.Fetch(nil)
		m.ChangeEvent("delete")
		m.CacheSize(1)
		m.Observe("delete", time.Now(), nil)
	})
}
