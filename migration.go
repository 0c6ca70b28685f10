package twincache

import (
	"context"
	"sort"
)

/*
MigrationStep is one named, versioned schema action (spec §4.5). The
content of the migration registry, which steps exist and in what order,
is supplied by an embedder: twincache defines the interface and the two
concrete step kinds spec names "at least" (delete-by-type-tag,
rename-type-tag), and the embedder supplies the ordered []Migration list.
*/
type MigrationStep interface {
	// Apply runs the step against every record currently on disk,
	// returning an error to abort the whole migration.
	Apply(ctx context.Context, cache *Cache) error
}

// Migration pairs a target schema version with the step that reaches it.
type Migration struct {
	Version int
	Step    MigrationStep
}

// deleteByTypeTagStep deletes every record whose TypeTag matches one of
// the named classes.
type deleteByTypeTagStep struct {
	typeTags map[string]struct{}
}

// DeleteByTypeTag returns a MigrationStep that evicts every record whose
// stored type tag is in typeTags.
func DeleteByTypeTag(typeTags ...string) MigrationStep {
	set := make(map[string]struct{}, len(typeTags))
	for _, t := range typeTags {
		set[t] = struct{}{}
	}
	return &deleteByTypeTagStep{typeTags: set}
}

func (s *deleteByTypeTagStep) Apply(ctx context.Context, cache *Cache) error {
	for _, flat := range cache.disk.allKeys() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		r, ok := cache.disk.retrieveRecord(flat)
		if !ok {
			continue
		}
		if _, match := s.typeTags[r.TypeTag]; match {
			cache.evictKey(flat)
		}
	}
	return nil
}

// renameTypeTagStep rewrites every record with a matching type tag to a
// new one, leaving the payload untouched.
type renameTypeTagStep struct {
	from, to string
}

// RenameTypeTag returns a MigrationStep that rewrites every record tagged
// `from` to be tagged `to`.
func RenameTypeTag(from, to string) MigrationStep {
	return &renameTypeTagStep{from: from, to: to}
}

func (s *renameTypeTagStep) Apply(ctx context.Context, cache *Cache) error {
	for _, flat := range cache.disk.allKeys() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		r, ok := cache.disk.retrieveRecord(flat)
		if !ok || r.TypeTag != s.from {
			continue
		}
		r.TypeTag = s.to
		cache.memory.put(flat, r)
		cache.disk.save(flat, r)
	}
	return nil
}

// runMigrations applies every Migration with Version greater than the
// persisted schema-version marker, in ascending order, then writes the
// new marker. Per spec §4.5, any step failure aborts the whole run; the
// caller (startup.go) latches that failure so every subsequent request
// observes it.
func runMigrations(ctx context.Context, cache *Cache, migrations []Migration) error {
	current := cache.disk.readSchemaVersion()

	pending := make([]Migration, 0, len(migrations))
	for _, m := range migrations {
		if m.Version > current {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })

	highest := current
	for _, m := range pending {
		if err := m.Step.Apply(ctx, cache); err != nil {
			return newMigrationFailedError(m.Version, err)
		}
		highest = m.Version
	}
	if highest != current {
		if err := cache.disk.writeSchemaVersion(highest); err != nil {
			return newMigrationFailedError(highest, err)
		}
	}
	return nil
}
