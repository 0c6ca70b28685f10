package twincache

import (
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/peterbourgon/diskv/v3"
	"github.com/rs/zerolog"
)

// schemaVersionFile is the sidecar holding the Migration Runner's
// persisted schema-version marker. It is never returned by allKeys.
const schemaVersionFile = ".schema-version"

// persistence is the disk half of the two-tier cache. It wraps a
// peterbourgon/diskv store with no path sharding (percent-escaped keys
// are already collision-free and filesystem-safe on their own), so every
// record lives as one flat file directly under cacheDirectory.
//
// Every operation here follows spec's failure-mode contract: I/O errors
// are swallowed, never surfaced to the caller, because a cache miss is
// always a safe fallback. Encode, write and decode failures are logged at
// debug level; read and erase failures are not logged.
type persistence struct {
	dir    string
	store  *diskv.Diskv
	codec  Codec
	logger *zerolog.Logger
}

func newPersistence(dir string, codec Codec, logger *zerolog.Logger) *persistence {
	store := diskv.New(diskv.Options{
		BasePath:     dir,
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 0, // twincache does its own memory layer; diskv needs no read cache of its own
	})
	return &persistence{dir: dir, store: store, codec: codec, logger: logger}
}

func escapeKey(key string) string {
	return url.PathEscape(key)
}

func (p *persistence) save(key string, r *Record) {
	data, err := p.codec.EncodeRecord(r)
	if err != nil {
		p.logger.Debug().Err(err).Str("key", key).Msg("twincache: persistence encode failed")
		return
	}
	if err := p.store.Write(escapeKey(key), data); err != nil {
		p.logger.Debug().Err(err).Str("key", key).Msg("twincache: persistence write failed")
	}
}

func (p *persistence) retrieveRecord(key string) (*Record, bool) {
	data, err := p.store.Read(escapeKey(key))
	if err != nil {
		return nil, false
	}
	r, err := p.codec.DecodeRecord(data)
	if err != nil {
		p.logger.Debug().Err(err).Str("key", key).Msg("twincache: persistence decode failed")
		return nil, false
	}
	return r, true
}

func (p *persistence) evict(key string) {
	_ = p.store.Erase(escapeKey(key))
}

func (p *persistence) evictAll() {
	_ = p.store.EraseAll()
}

// allKeys returns a snapshot of the canonical (unescaped) keys currently
// on disk. Per spec this may be stale with respect to concurrent writes.
func (p *persistence) allKeys() []string {
	keys := make([]string, 0)
	for escaped := range p.store.Keys(nil) {
		if escaped == schemaVersionFile {
			continue
		}
		key, err := url.PathUnescape(escaped)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// storedMB is a best-effort estimate of disk bytes in use. diskv itself
// only tracks the size of its optional in-process read cache (unused
// here, see newPersistence), not aggregate on-disk bytes, so this walks
// cacheDirectory directly and sums regular-file sizes, skipping the
// schema-version sidecar.
func (p *persistence) storedMB() float64 {
	var total int64
	err := filepath.WalkDir(p.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort walk, skip unreadable entries
		}
		if d.IsDir() || d.Name() == schemaVersionFile {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		p.logger.Debug().Err(err).Msg("twincache: storedMB walk failed")
	}
	return float64(total) / (1024 * 1024)
}

// readSchemaVersion reads the persisted migration marker, defaulting to 0
// ("no migrations applied yet") if the sidecar is absent or unreadable.
func (p *persistence) readSchemaVersion() int {
	data, err := os.ReadFile(filepath.Join(p.dir, schemaVersionFile))
	if err != nil {
		return 0
	}
	version, err := strconv.Atoi(string(data))
	if err != nil {
		return 0
	}
	return version
}

// writeSchemaVersion atomically persists the migration marker: write to a
// uniquely-named temp file in the same directory, then rename into place,
// so a crash mid-write is never observed as a torn marker.
func (p *persistence) writeSchemaVersion(version int) error {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return errors.Wrap(err, "twincache: create cache directory")
	}
	tmp := filepath.Join(p.dir, schemaVersionFile+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(version)), 0o644); err != nil {
		return errors.Wrap(err, "twincache: write schema version")
	}
	if err := os.Rename(tmp, filepath.Join(p.dir, schemaVersionFile)); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "twincache: commit schema version")
	}
	return nil
}
