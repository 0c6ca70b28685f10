package twincache

import (
	"context"
)

/*
Pipeline implements the Request Pipeline (spec §4.7): it gates each
request on the startup-ready signal, resolves the descriptor's key
against the Two-Layer Cache, falls back to the Loader on a miss or a
forced eviction, applies the eviction directive unconditionally, and
shapes the response according to RequiresDetailedResponse.

Execute's own signature is synchronous ((Reply, error)) but it is safe to
call concurrently from many goroutines; the suspension points spec §5
names, the startup signal, the loader, and disk I/O, are all ordinary
blocking Go calls here rather than hand-rolled futures.
*/
type Pipeline struct {
	cache *Cache
	gate  *startupGate
	cfg   Config
}

// NewPipeline builds a Pipeline over cache, gated on gate's startup
// signal and using cfg's default expired-data policy.
func NewPipeline(cache *Cache, gate *startupGate, cfg Config) *Pipeline {
	return &Pipeline{cache: cache, gate: gate, cfg: cfg}
}

// Execute runs spec §4.7's full per-request algorithm and always returns
// a Reply (payload + source), whatever RequiresDetailedResponse says;
// ExecuteValue is the entry point that honours that field.
func (p *Pipeline) Execute(ctx context.Context, d RequestDescriptor) (Reply, error) {
	if d.key().HasSeparator() {
		return Reply{}, newKeySeparatorCollisionError(d.key())
	}

	if err := p.gate.wait(ctx); err != nil {
		return Reply{}, err
	}

	useExpired := d.UseExpiredDataIfLoaderNotAvailable || p.cfg.UseExpiredDataIfLoaderNotAvailable
	wantsEvict := d.EvictDirective != EvictNone

	existing, found, expired := p.cache.retrieve(d.key(), useExpired, d.Lifetime)
	if found && !expired && !wantsEvict {
		copied, err := p.cache.codec.DeepCopy(existing.Payload)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Payload: copied, Source: existing.Source}, nil
	}

	payload, loaderErr := d.Loader(ctx)
	if loaderErr == nil && payload != nil {
		p.applyEvictDirective(d)
		p.cache.save(d.key(), payload, d.typeTag(), d.Lifetime, d.Expirable)
		copied, err := p.cache.codec.DeepCopy(payload)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Payload: copied, Source: SourceCloud}, nil
	}

	// Loader produced nothing usable: null payload or an error. Both are
	// spec-equivalent "no data from loader" outcomes.
	if useExpired && existing != nil {
		p.applyEvictDirective(d)
		copied, err := p.cache.codec.DeepCopy(existing.Payload)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Payload: copied, Source: existing.Source}, nil
	}

	p.applyEvictDirective(d)
	return Reply{}, newNoDataFromLoaderError(d.ProviderKey, loaderErr)
}

// ExecuteValue runs Execute and shapes the result by the descriptor:
// the whole Reply when RequiresDetailedResponse is set, otherwise the
// bare payload.
func (p *Pipeline) ExecuteValue(ctx context.Context, d RequestDescriptor) (any, error) {
	reply, err := p.Execute(ctx, d)
	if err != nil {
		return nil, err
	}
	if d.RequiresDetailedResponse {
		return reply, nil
	}
	return reply.Payload, nil
}

// applyEvictDirective runs whether or not the loader succeeded - spec
// §4.7: "this is intentional to keep eviction directives idempotent from
// the caller's viewpoint."
func (p *Pipeline) applyEvictDirective(d RequestDescriptor) {
	switch d.EvictDirective {
	case EvictNone:
		return
	case EvictAll:
		p.cache.evictAll()
	case EvictProvider:
		p.cache.evictProviderKey(d.ProviderKey)
	case EvictDynamicKey:
		p.cache.evictDynamicKey(d.ProviderKey, d.DynamicKey)
	case EvictDynamicKeyGroup:
		p.cache.evictDynamicKeyGroup(d.ProviderKey, d.DynamicKey, d.GroupKey)
	}
}
