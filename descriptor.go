package twincache

import (
	"context"
	"time"
)

// EvictDirective is the eviction scope a RequestDescriptor demands, per
// spec §4.6/§4.7. It fires whether or not the Loader succeeds.
type EvictDirective int

const (
	// EvictNone clears nothing.
	EvictNone EvictDirective = iota
	// EvictAll clears the entire cache, both layers.
	EvictAll
	// EvictProvider clears every key under a provider.
	EvictProvider
	// EvictDynamicKey clears every key under a (provider, dynamicKey) pair.
	EvictDynamicKey
	// EvictDynamicKeyGroup clears a single (provider, dynamicKey, groupKey) scope.
	EvictDynamicKeyGroup
)

// Loader is the caller-supplied lazy asynchronous source of one payload
// (spec §4.6). A nil payload with a nil error is treated the same as a
// non-nil error: no usable data was produced.
type Loader func(ctx context.Context) (any, error)

// RequestDescriptor carries everything the Request Pipeline (spec §4.7)
// needs to resolve one provider call: its cache key, TTL policy, eviction
// directive, and the Loader to fall back to on a miss.
type RequestDescriptor struct {
	ProviderKey string
	DynamicKey  string
	GroupKey    string

	// TypeTag classifies the payload's shape for the Migration Runner.
	// Defaults to ProviderKey when empty.
	TypeTag string

	Lifetime  time.Duration
	Expirable bool

	// UseExpiredDataIfLoaderNotAvailable mirrors the cache-wide config
	// setting (spec §6): the fallback is on when either this field or the
	// Pipeline's Config enables it, so a descriptor can turn it on but
	// cannot turn off a Config-level true.
	UseExpiredDataIfLoaderNotAvailable bool

	RequiresDetailedResponse bool
	EvictDirective           EvictDirective

	Loader Loader
}

func (d RequestDescriptor) key() Key {
	return Key{ProviderKey: d.ProviderKey, DynamicKey: d.DynamicKey, GroupKey: d.GroupKey}
}

func (d RequestDescriptor) typeTag() string {
	if d.TypeTag != "" {
		return d.TypeTag
	}
	return d.ProviderKey
}
