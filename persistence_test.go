package twincache

import (
	"testing"
	"time"
)

func newTestPersistence(t *testing.T) *persistence {
	t.Helper()
	return newPersistence(t.TempDir(), NewJSONCodec(), &defaultLogger)
}

func TestPersistence_SaveRetrieveEvict(t *testing.T) {
	p := newTestPersistence(t)
	r := &Record{Payload: "hello", TypeTag: "greeting", CreatedAt: time.Now(), Lifetime: time.Minute}

	p.save("greeting$d$$g$", r)

	got, ok := p.retrieveRecord("greeting$d$$g$")
	if !ok {
		t.Fatal("expected to retrieve the saved record")
	}
	if got.Payload != "hello" {
		t.Fatalf("payload mismatch: got %v", got.Payload)
	}
	if got.Source != SourceDisk {
		t.Fatalf("expected disk-loaded record to report SourceDisk, got %s", got.Source)
	}

	p.evict("greeting$d$$g$")
	if _, ok := p.retrieveRecord("greeting$d$$g$"); ok {
		t.Fatal("expected record to be gone after evict")
	}
}

func TestPersistence_EvictIsIdempotent(t *testing.T) {
	p := newTestPersistence(t)
	p.evict("never-existed") // must not panic or error visibly
}

func TestPersistence_AllKeysAndEvictAll(t *testing.T) {
	p := newTestPersistence(t)
	p.save("a", &Record{Payload: 1})
	p.save("b", &Record{Payload: 2})

	keys := p.allKeys()
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d (%v)", len(keys), keys)
	}

	p.evictAll()
	if len(p.allKeys()) != 0 {
		t.Fatal("expected no keys after evictAll")
	}
}

func TestPersistence_KeyEscaping(t *testing.T) {
	p := newTestPersistence(t)
	tricky := "users$d$weird/key with spaces$g$"
	p.save(tricky, &Record{Payload: "x"})

	got, ok := p.retrieveRecord(tricky)
	if !ok || got.Payload != "x" {
		t.Fatalf("expected round-trip of a key containing path-unsafe characters, got ok=%v got=%v", ok, got)
	}

	keys := p.allKeys()
	if len(keys) != 1 || keys[0] != tricky {
		t.Fatalf("expected allKeys to return the unescaped canonical key, got %v", keys)
	}
}

func TestPersistence_SchemaVersionRoundTrip(t *testing.T) {
	p := newTestPersistence(t)
	if v := p.readSchemaVersion(); v != 0 {
		t.Fatalf("expected default schema version 0, got %d", v)
	}

	if err := p.writeSchemaVersion(3); err != nil {
		t.Fatalf("write schema version: %v", err)
	}
	if v := p.readSchemaVersion(); v != 3 {
		t.Fatalf("expected schema version 3, got %d", v)
	}

	// The sidecar must never show up as a cache key.
	p.save("real-key", &Record{Payload: "x"})
	for _, k := range p.allKeys() {
		if k == schemaVersionFile {
			t.Fatal("schema version sidecar leaked into allKeys")
		}
	}
}

func TestPersistence_StoredMB(t *testing.T) {
	p := newTestPersistence(t)
	if mb := p.storedMB(); mb != 0 {
		t.Fatalf("expected 0 MB for an empty store, got %f", mb)
	}

	p.save("a", &Record{Payload: "some reasonably sized payload to make this file nonzero"})
	if mb := p.storedMB(); mb <= 0 {
		t.Fatalf("expected storedMB to grow after a save, got %f", mb)
	}
}
