package twincache

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

/*
sweeper runs the Expired-Record Sweeper (spec §4.4): a single startup-time
pass over every persisted key that evicts expirable, expired records. It
runs exactly once, over every persisted key, as part of startup
coordination: a bounded worker pool that runs to completion and reports
back, rather than a recurring ticker loop.

The fan-out uses golang.org/x/sync/errgroup purely as a bounded-concurrency
primitive: per-key I/O errors are swallowed (spec §4.4 "fails soft"), so
the group's own error return only reports that ctx was cancelled before
every key was visited. A missing or unreadable cache directory is not an
error; its keys are simply skipped.
*/
type sweeper struct {
	cache       *Cache
	concurrency int
}

func newSweeper(cache *Cache, concurrency int) *sweeper {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &sweeper{cache: cache, concurrency: concurrency}
}

// run performs one sweep pass. It never returns an error for individual
// key failures (a key whose record cannot be read is skipped); a non-nil
// error return means ctx was cancelled during the pass.
func (s *sweeper) run(ctx context.Context) error {
	keys := s.cache.disk.allKeys()
	now := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, flat := range keys {
		flat := flat
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			s.sweepOne(flat, now)
			return nil
		})
	}
	return g.Wait()
}

func (s *sweeper) sweepOne(flat string, now time.Time) {
	r, ok := s.cache.disk.retrieveRecord(flat)
	if !ok {
		return
	}
	if !r.Expirable {
		return
	}
	if !r.Expired(now) {
		return
	}
	s.cache.evictKey(flat)
	s.cache.stats.sweepEvictions.Add(1)
	s.cache.observe()
}
