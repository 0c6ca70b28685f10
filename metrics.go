package twincache

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// prometheusStats is the StatsSink implementation grounded on the
// prometheus/client_golang usage found in otterscale-otterscale-agent and
// vellankikoti-kubilitics-os-emergent. Wiring one in is entirely
// optional: a nil StatsSink (the Cache zero value) is a documented no-op.
//
// Observe always receives an absolute Stats snapshot, but
// prometheus.Counter only grows via Add(delta), so each gauge-like
// counter pairs with its own atomic "last value pushed" so concurrent
// Observe calls compute a consistent delta without a shared lock.
type prometheusStats struct {
	hits           prometheus.Counter
	misses         prometheus.Counter
	evictions      prometheus.Counter
	sweepEvictions prometheus.Counter
	reclamations   prometheus.Counter
	storedBytes    prometheus.Gauge

	prevHits           atomic.Uint64
	prevMisses         atomic.Uint64
	prevEvictions      atomic.Uint64
	prevSweepEvictions atomic.Uint64
	prevReclamations   atomic.Uint64
}

// NewPrometheusStats registers twincache's counters against reg and
// returns a StatsSink that keeps them in sync with every Stats snapshot.
func NewPrometheusStats(reg prometheus.Registerer) StatsSink {
	p := &prometheusStats{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "twincache_hits_total",
			Help: "Cache lookups that returned live data.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "twincache_misses_total",
			Help: "Cache lookups that found nothing usable.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "twincache_evictions_total",
			Help: "Keys removed by an explicit eviction scope.",
		}),
		sweepEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "twincache_sweep_evictions_total",
			Help: "Keys removed by the startup expired-record sweep.",
		}),
		reclamations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "twincache_reclamations_total",
			Help: "Keys removed by disk budget reclamation.",
		}),
		storedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "twincache_stored_bytes",
			Help: "Current on-disk footprint of the cache directory.",
		}),
	}
	reg.MustRegister(p.hits, p.misses, p.evictions, p.sweepEvictions, p.reclamations, p.storedBytes)
	return p
}

// Observe brings the registered counters up to date with s.
func (p *prometheusStats) Observe(s Stats) {
	addDelta(p.hits, &p.prevHits, s.Hits)
	addDelta(p.misses, &p.prevMisses, s.Misses)
	addDelta(p.evictions, &p.prevEvictions, s.Evictions)
	addDelta(p.sweepEvictions, &p.prevSweepEvictions, s.SweepEvictions)
	addDelta(p.reclamations, &p.prevReclamations, s.Reclamations)
	p.storedBytes.Set(float64(s.StoredBytes))
}

// addDelta advances counter by however much value has grown past prev,
// using a compare-and-swap loop so concurrent Observe calls never double
// count or go backwards.
func addDelta(counter prometheus.Counter, prev *atomic.Uint64, value uint64) {
	for {
		old := prev.Load()
		if value <= old {
			return
		}
		if prev.CompareAndSwap(old, value) {
			counter.Add(float64(value - old))
			return
		}
	}
}
