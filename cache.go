package twincache

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

/*
Cache is the Two-Layer Cache from spec §4.3: it orchestrates the
memoryLayer and persistence, applies the TTL/expiry rule, runs disk-budget
reclamation before an over-budget save, and implements the three scope
evictions plus evictAll.

It wraps the storage substructures directly rather than owning a single
lock of its own: the memory layer and persistence each guard their own
state, and the in-memory map is a promotion cache in front of durable (if
best-effort) disk storage, not the only copy of the data.
*/
type Cache struct {
	memory *memoryLayer
	disk   *persistence
	codec  Codec

	maxMB  float64
	stats  statsCounters
	sink   StatsSink
	logger *zerolog.Logger
}

// New constructs a Cache rooted at cacheDirectory. Functional options
// configure the disk budget, codec, stats sink and logger.
func New(cacheDirectory string, opts ...Option) *Cache {
	c := &Cache{
		codec:  NewJSONCodec(),
		maxMB:  100,
		logger: &defaultLogger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.memory = newMemoryLayer()
	c.disk = newPersistence(cacheDirectory, c.codec, loggerOrDefault(c.logger))
	return c
}

// retrieve implements spec §4.3's retrieve contract: memory first, then
// disk (promoting a disk hit into memory), TTL check, and the
// allowExpired policy handoff to the caller (the Request Pipeline).
//
// The returned expired flag lets the Request Pipeline distinguish a
// fresh hit (safe to return without consulting the Loader) from a stale
// record handed back only because allowExpired was set (spec §4.3 step
// 3 leaves the actual "use it or refresh it" decision to the pipeline;
// the cache's job is only to expose the data and say whether it's
// stale).
func (c *Cache) retrieve(key Key, allowExpired bool, lifetime time.Duration) (rec *Record, found bool, expired bool) {
	flat := key.Flatten()
	now := time.Now()

	if r, ok := c.memory.get(flat); ok {
		return c.evaluate(flat, r, SourceMemory, now, lifetime, allowExpired)
	}
	if r, ok := c.disk.retrieveRecord(flat); ok {
		r.Source = SourceDisk
		c.memory.put(flat, r)
		return c.evaluate(flat, r, SourceDisk, now, lifetime, allowExpired)
	}
	c.recordMiss()
	return nil, false, false
}

// evaluate applies the expiry rule once the record has been located in
// either layer. lifetime is the caller-supplied lifetimeMillis (spec
// §4.3 step 2: "now - created ≤ lifetimeMillis"), the authoritative TTL
// for this call, not necessarily the value the record was first saved
// with.
func (c *Cache) evaluate(flat string, r *Record, origin Source, now time.Time, lifetime time.Duration, allowExpired bool) (*Record, bool, bool) {
	// The stored record is shared with concurrent readers, so the origin
	// is set on a copy rather than on the record itself.
	out := *r
	out.Source = origin
	isExpired := lifetime > 0 && now.Sub(r.CreatedAt) > lifetime
	if !isExpired {
		c.recordHit()
		return &out, true, false
	}
	if allowExpired {
		// spec §4.3 step 3: whether the record is expirable or not, an
		// allowExpired=true caller gets the stale data back; the policy
		// decision of whether to actually use it belongs to the pipeline.
		c.recordHit()
		return &out, true, true
	}
	c.evictKey(flat)
	c.recordMiss()
	return nil, false, false
}

func (c *Cache) recordHit() {
	c.stats.hits.Add(1)
	c.observe()
}

func (c *Cache) recordMiss() {
	c.stats.misses.Add(1)
	c.observe()
}

func (c *Cache) observe() {
	if c.sink == nil {
		return
	}
	s := c.stats.snapshot()
	s.StoredBytes = uint64(c.disk.storedMB() * 1024 * 1024)
	c.sink.Observe(s)
}

// save implements spec §4.3's save contract: write-through to both
// layers, reclaiming disk budget first if needed.
func (c *Cache) save(key Key, payload any, typeTag string, lifetime time.Duration, expirable bool) {
	flat := key.Flatten()
	r := &Record{
		Payload:   payload,
		TypeTag:   typeTag,
		Source:    SourceCloud,
		CreatedAt: time.Now(),
		Lifetime:  lifetime,
		Expirable: expirable,
	}

	if c.disk.storedMB() > c.maxMB {
		c.reclaim()
	}

	c.memory.put(flat, r)
	c.disk.save(flat, r)

	if c.disk.storedMB() > c.maxMB {
		c.reclaim()
	}
}

// reclaim is spec §4.3's budget reclamation: over disk keys, sorted
// ascending for determinism, delete expirable records until storedMB is
// back under budget or no expirable records remain.
func (c *Cache) reclaim() {
	keys := c.disk.allKeys()
	sort.Strings(keys)

	for _, flat := range keys {
		if c.disk.storedMB() <= c.maxMB {
			return
		}
		r, ok := c.disk.retrieveRecord(flat)
		if !ok || !r.Expirable {
			continue
		}
		c.evictKey(flat)
		c.stats.reclamations.Add(1)
		c.observe()
	}
}

func (c *Cache) evictKey(flat string) {
	c.memory.remove(flat)
	c.disk.evict(flat)
}

func (c *Cache) evictProviderKey(providerKey string) {
	prefix := providerPrefix(providerKey)
	c.evictPrefix(prefix)
}

func (c *Cache) evictDynamicKey(providerKey, dynamicKey string) {
	prefix := dynamicKeyPrefix(providerKey, dynamicKey)
	c.evictPrefix(prefix)
}

func (c *Cache) evictDynamicKeyGroup(providerKey, dynamicKey, groupKey string) {
	flat := dynamicKeyGroupPrefix(providerKey, dynamicKey, groupKey)
	_, inMemory := c.memory.get(flat)
	_, onDisk := c.disk.retrieveRecord(flat)
	c.evictKey(flat)
	if inMemory || onDisk {
		c.stats.evictions.Add(1)
		c.observe()
	}
}

func (c *Cache) evictPrefix(prefix string) {
	n := 0
	for _, flat := range c.disk.allKeys() {
		if hasFlatPrefix(flat, prefix) {
			c.evictKey(flat)
			n++
		}
	}
	// Whatever still matches in memory was never persisted.
	n += c.memory.removeByPrefix(prefix)
	if n > 0 {
		c.stats.evictions.Add(uint64(n))
		c.observe()
	}
}

func (c *Cache) evictAll() {
	keys := c.disk.allKeys()
	for _, flat := range keys {
		c.memory.remove(flat)
	}
	n := len(keys) + c.memory.size()
	c.memory.clear()
	c.disk.evictAll()
	if n > 0 {
		c.stats.evictions.Add(uint64(n))
		c.observe()
	}
}

// Stats returns a snapshot of the cache's runtime counters.
func (c *Cache) Stats() Stats {
	s := c.stats.snapshot()
	s.StoredBytes = uint64(c.disk.storedMB() * 1024 * 1024)
	return s
}

// Keys returns a snapshot of every canonical (unescaped) key currently
// persisted on disk. Exported for offline inspection tooling
// (cmd/twincacheinspect); ordinary request-handling code never needs it.
func (c *Cache) Keys() []string {
	return c.disk.allKeys()
}

// Inspect returns the on-disk record for a flattened key without
// promoting it into memory or applying the TTL rule, so a debug tool can
// see a record's metadata even after its lifetime has elapsed.
func (c *Cache) Inspect(flatKey string) (*Record, bool) {
	return c.disk.retrieveRecord(flatKey)
}

// SchemaVersion returns the persisted migration marker (0 if none has
// ever been written).
func (c *Cache) SchemaVersion() int {
	return c.disk.readSchemaVersion()
}

// StoredMB returns the best-effort disk-budget estimate described in
// persistence.storedMB.
func (c *Cache) StoredMB() float64 {
	return c.disk.storedMB()
}

// Sweep runs a single expired-record sweep pass against the cache
// directory, outside of the normal startup-gated flow. Intended for
// offline maintenance (cmd/twincacheinspect), not request handling.
func (c *Cache) Sweep(ctx context.Context, concurrency int) error {
	return newSweeper(c, concurrency).run(ctx)
}

func hasFlatPrefix(flat, prefix string) bool {
	return len(flat) >= len(prefix) && flat[:len(prefix)] == prefix
}
