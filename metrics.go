package gatekit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors exported by a Service.
// A nil *Metrics records nothing.
type Metrics struct {
	// Decision metrics
	DecisionsTotal *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	CacheErrorsTotal *prometheus.CounterVec

	// Storage metrics
	StoreDuration    *prometheus.HistogramVec
	StoreErrorsTotal *prometheus.CounterVec

	// Mutation metrics
	MutationsTotal *prometheus.CounterVec
	Invalidations  prometheus.Counter
}

// NewMetrics creates and registers the gatekit collectors.
// Registration panics on a duplicate, as prometheus.MustRegister does.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekit_decisions_total",
				Help: "Total number of permission decisions",
			},
			[]string{"result", "source"},
		),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatekit_cache_hits_total",
			Help: "Total number of decision cache hits",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatekit_cache_misses_total",
			Help: "Total number of decision cache misses",
		}),
		CacheErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekit_cache_errors_total",
				Help: "Total number of decision cache backend errors",
			},
			[]string{"operation"},
		),
		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatekit_store_duration_seconds",
				Help:    "Store call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		StoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekit_store_errors_total",
				Help: "Total number of failed store calls",
			},
			[]string{"operation"},
		),
		MutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekit_mutations_total",
				Help: "Total number of administrative mutations",
			},
			[]string{"operation", "status"},
		),
		Invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatekit_cache_invalidations_total",
			Help: "Total number of per-user cache invalidations",
		}),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.DecisionsTotal,
			m.CacheHitsTotal,
			m.CacheMissesTotal,
			m.CacheErrorsTotal,
			m.StoreDuration,
			m.StoreErrorsTotal,
			m.MutationsTotal,
			m.Invalidations,
		)
	}
	return m
}

func (m *Metrics) recordDecision(granted bool, source Source) {
	if m == nil {
		return
	}
	result := "denied"
	if granted {
		result = "granted"
	}
	m.DecisionsTotal.WithLabelValues(result, string(source)).Inc()
}

func (m *Metrics) recordCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
	} else {
		m.CacheMissesTotal.Inc()
	}
}

func (m *Metrics) recordCacheError(op string) {
	if m == nil {
		return
	}
	m.CacheErrorsTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) recordStore(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.StoreErrorsTotal.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) recordMutation(op string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.MutationsTotal.WithLabelValues(op, status).Inc()
}

func (m *Metrics) recordInvalidations(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Invalidations.Add(float64(n))
}
