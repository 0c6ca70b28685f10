package twincache

import "sync/atomic"

// Stats represents a point-in-time snapshot of runtime cache counters:
//
//   - Hits           -> memory or disk retrievals that returned live data
//   - Misses         -> retrievals that found nothing usable
//   - Evictions      -> keys removed by an explicit eviction scope
//   - SweepEvictions -> keys removed by the startup expired-record sweep
//   - Reclamations   -> keys removed by disk budget reclamation
//   - StoredBytes    -> current on-disk footprint, per persistence.storedMB
//
// hit_ratio = Hits / (Hits + Misses) is the usual effectiveness measure.
type Stats struct {
	Hits           uint64
	Misses         uint64
	Evictions      uint64
	SweepEvictions uint64
	Reclamations   uint64
	StoredBytes    uint64
}

// statsCounters is the live counter block embedded in Cache. Its
// counters are bumped from multiple independent code paths (cache
// hits/misses, the sweeper's worker pool, budget reclamation) that do
// not all hold a common lock, so each counter is its own atomic.Uint64
// rather than a plain uint64 guarded by an outer mutex.
type statsCounters struct {
	hits           atomic.Uint64
	misses         atomic.Uint64
	evictions      atomic.Uint64
	sweepEvictions atomic.Uint64
	reclamations   atomic.Uint64
}

func (s *statsCounters) snapshot() Stats {
	return Stats{
		Hits:           s.hits.Load(),
		Misses:         s.misses.Load(),
		Evictions:      s.evictions.Load(),
		SweepEvictions: s.sweepEvictions.Load(),
		Reclamations:   s.reclamations.Load(),
	}
}

// StatsSink receives a Stats snapshot after every operation that changes
// a counter. A nil StatsSink is a documented no-op; NewPrometheusStats
// (metrics.go) is the one concrete implementation the library ships.
type StatsSink interface {
	Observe(Stats)
}
