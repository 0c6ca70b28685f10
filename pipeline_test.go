package twincache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newReadyPipeline(t *testing.T) (*Pipeline, *Cache) {
	t.Helper()
	c := New(t.TempDir())
	gate := newStartupGate()
	gate.run(context.Background(), c, nil, 4)
	return NewPipeline(c, gate, Config{}), c
}

func TestPipeline_CacheHitSkipsLoader(t *testing.T) {
	p, c := newReadyPipeline(t)
	c.save(Key{ProviderKey: "users"}, "cached", "users", time.Minute, true)

	loaderCalled := false
	reply, err := p.Execute(context.Background(), RequestDescriptor{
		ProviderKey: "users",
		Lifetime:    time.Minute,
		Loader: func(ctx context.Context) (any, error) {
			loaderCalled = true
			return "fresh", nil
		},
	})
	require.NoError(t, err)
	require.False(t, loaderCalled, "a fresh cache hit must not invoke the loader")
	require.Equal(t, "cached", reply.Payload)
}

func TestPipeline_MissInvokesLoaderAndSaves(t *testing.T) {
	p, c := newReadyPipeline(t)

	reply, err := p.Execute(context.Background(), RequestDescriptor{
		ProviderKey: "users",
		Lifetime:    time.Minute,
		Expirable:   true,
		Loader: func(ctx context.Context) (any, error) {
			return "loaded", nil
		},
	})
	require.NoError(t, err)
	require.Equal(t, SourceCloud, reply.Source)
	require.Equal(t, "loaded", reply.Payload)

	rec, found := c.disk.retrieveRecord(Key{ProviderKey: "users"}.Flatten())
	require.True(t, found)
	require.Equal(t, "loaded", rec.Payload)
}

// TestPipeline_ExpiryWithFallback reproduces spec §8 scenario 2 at the
// pipeline level: the loader fails, but useExpiredDataIfLoaderNotAvailable
// lets the stale record through instead of an error.
func TestPipeline_ExpiryWithFallback(t *testing.T) {
	p, c := newReadyPipeline(t)
	c.save(Key{ProviderKey: "users"}, "stale", "users", 1*time.Millisecond, true)
	time.Sleep(5 * time.Millisecond)

	reply, err := p.Execute(context.Background(), RequestDescriptor{
		ProviderKey:                        "users",
		Lifetime:                           1 * time.Millisecond,
		UseExpiredDataIfLoaderNotAvailable: true,
		Loader: func(ctx context.Context) (any, error) {
			return nil, errors.New("upstream down")
		},
	})
	require.NoError(t, err)
	require.Equal(t, "stale", reply.Payload)
}

// TestPipeline_ExpiryWithoutFallback reproduces spec §8 scenario 3.
func TestPipeline_ExpiryWithoutFallback(t *testing.T) {
	p, _ := newReadyPipeline(t)
	c := p.cache
	c.save(Key{ProviderKey: "users"}, "stale", "users", 1*time.Millisecond, true)
	time.Sleep(5 * time.Millisecond)

	_, err := p.Execute(context.Background(), RequestDescriptor{
		ProviderKey: "users",
		Lifetime:    1 * time.Millisecond,
		Loader: func(ctx context.Context) (any, error) {
			return nil, errors.New("upstream down")
		},
	})
	var noData *NoDataFromLoaderError
	require.ErrorAs(t, err, &noData)
	require.Equal(t, "users", noData.ProviderKey)
}

func TestPipeline_EvictDirectiveFiresEvenOnLoaderFailure(t *testing.T) {
	p, c := newReadyPipeline(t)
	c.save(Key{ProviderKey: "users"}, "old", "users", time.Hour, true)

	_, err := p.Execute(context.Background(), RequestDescriptor{
		ProviderKey:    "users",
		Lifetime:       time.Hour,
		EvictDirective: EvictProvider,
		Loader: func(ctx context.Context) (any, error) {
			return nil, errors.New("boom")
		},
	})
	require.Error(t, err)

	_, found, _ := c.retrieve(Key{ProviderKey: "users"}, true, time.Hour)
	require.False(t, found, "eviction directive must fire even though the loader failed")
}

func TestPipeline_KeySeparatorCollision(t *testing.T) {
	p, _ := newReadyPipeline(t)
	_, err := p.Execute(context.Background(), RequestDescriptor{
		ProviderKey: "users$d$evil",
		Loader:      func(ctx context.Context) (any, error) { return "x", nil },
	})
	var collision *KeySeparatorCollisionError
	require.ErrorAs(t, err, &collision)
}

// TestPipeline_StartupGating reproduces spec §8 scenario 6: requests
// fired before the startup signal must block until it fires, and must
// never invoke their loader beforehand.
func TestPipeline_StartupGating(t *testing.T) {
	c := New(t.TempDir())
	gate := newStartupGate()
	pipeline := NewPipeline(c, gate, Config{})

	const n = 10
	var loaderCalls atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			// Each request has its own key, so none can be answered from a
			// record that another request saved after the gate opened.
			_, _ = pipeline.Execute(context.Background(), RequestDescriptor{
				ProviderKey: "users" + string(rune('a'+i)),
				Lifetime:    time.Minute,
				Loader: func(ctx context.Context) (any, error) {
					loaderCalls.Add(1)
					return "x", nil
				},
			})
		}()
	}
	close(start)
	time.Sleep(20 * time.Millisecond) // give the goroutines a chance to block on the gate

	require.Equal(t, int32(0), loaderCalls.Load(), "no loader must run before the startup signal fires")

	gate.run(context.Background(), c, nil, 4)
	wg.Wait()

	require.Equal(t, int32(n), loaderCalls.Load())
}

func TestPipeline_LatchedStartupFailureSurfacesToEveryRequest(t *testing.T) {
	c := New(t.TempDir())
	gate := newStartupGate()
	boom := errors.New("migration exploded")
	gate.run(context.Background(), c, []Migration{
		{Version: 1, Step: migrationFunc(func(ctx context.Context, cache *Cache) error { return boom })},
	}, 4)
	pipeline := NewPipeline(c, gate, Config{})

	_, err1 := pipeline.Execute(context.Background(), RequestDescriptor{ProviderKey: "a", Loader: func(ctx context.Context) (any, error) { return "x", nil }})
	_, err2 := pipeline.Execute(context.Background(), RequestDescriptor{ProviderKey: "b", Loader: func(ctx context.Context) (any, error) { return "x", nil }})
	require.Error(t, err1)
	require.Error(t, err2)
}
