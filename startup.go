package twincache

import (
	"context"
	"sync"
)

/*
startupGate is spec §5's single-shot broadcast: migrations, then one
sweep pass, then every waiter is released at once, and late subscribers
see the already-completed state immediately. A failure latches instead
of being retried (spec: "There is no re-run; failures of startup latch a
failed state that subsequent requests observe.").

Closing a channel twice panics, so every close is routed through a
sync.Once: the channel here means *ready*, not *stop*, and multiple
goroutines may race to report startup's outcome.
*/
type startupGate struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newStartupGate() *startupGate {
	return &startupGate{done: make(chan struct{})}
}

// run executes migrations then a single sweep pass, and releases every
// waiter regardless of outcome. The latched error (nil on success) is
// what every subsequent wait call observes.
func (g *startupGate) run(ctx context.Context, cache *Cache, migrations []Migration, sweepConcurrency int) {
	err := runMigrations(ctx, cache, migrations)
	if err == nil {
		sw := newSweeper(cache, sweepConcurrency)
		err = sw.run(ctx)
	}
	g.once.Do(func() {
		g.err = err
		close(g.done)
	})
}

// wait blocks until startup completes (or ctx is cancelled first),
// returning the latched startup error. A gate that has already fired
// returns immediately - no waiting for late subscribers.
func (g *startupGate) wait(ctx context.Context) error {
	select {
	case <-g.done:
		return g.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
