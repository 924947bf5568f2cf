// Package metrics exposes Prometheus collectors for the upload and gallery flows.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "photoalbum"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	uploads      *prometheus.CounterVec
	fetches      *prometheus.CounterVec
	changeEvents *prometheus.CounterVec
	cacheEntries prometheus.Gauge
	opDuration   *prometheus.HistogramVec
}

// MustNew builds the collectors and registers them with reg, falling back to
// the default registerer. Collectors that are already registered are reused.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "total",
			Help:      "Upload attempts by result.",
		}, []string{"result"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gallery",
			Name:      "object_fetches_total",
			Help:      "Object downloads performed by the gallery, by result.",
		}, []string{"result"}),
		changeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gallery",
			Name:      "change_events_total",
			Help:      "Post change events applied to the gallery, by mutation type.",
		}, []string{"type"}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gallery",
			Name:      "cache_entries",
			Help:      "Images currently held in the gallery cache.",
		}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of upload, refresh and delete operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
	}

	m.uploads = register(reg, m.uploads)
	m.fetches = register(reg, m.fetches)
	m.changeEvents = register(reg, m.changeEvents)
	m.cacheEntries = register(reg, m.cacheEntries)
	m.opDuration = register(reg, m.opDuration)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Upload counts one upload attempt.
func (m *Metrics) Upload(err error) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result(err)).Inc()
}

// Fetch counts one object download.
func (m *Metrics) Fetch(err error) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(result(err)).Inc()
}

// ChangeEvent counts one applied change event.
func (m *Metrics) ChangeEvent(mutation string) {
	if m == nil {
		return
	}
	m.changeEvents.WithLabelValues(mutation).Inc()
}

// CacheSize records the current gallery cache size.
func (m *Metrics) CacheSize(n int) {
	if m == nil {
		return
	}
	m.cacheEntries.Set(float64(n))
}

// Observe records how long op took since start.
func (m *Metrics) Observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.opDuration.WithLabelValues(op, result(err)).Observe(time.Since(start).Seconds())
}
