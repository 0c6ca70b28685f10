package twincache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeleteByTypeTag(t *testing.T) {
	c := New(t.TempDir())
	c.save(Key{ProviderKey: "a"}, "keep", "keep-tag", 0, true)
	c.save(Key{ProviderKey: "b"}, "drop", "drop-tag", 0, true)

	step := DeleteByTypeTag("drop-tag")
	require.NoError(t, step.Apply(context.Background(), c))

	_, found, _ := c.retrieve(Key{ProviderKey: "a"}, false, 0)
	require.True(t, found, "record with a different type tag must survive")

	_, found, _ = c.retrieve(Key{ProviderKey: "b"}, false, 0)
	require.False(t, found, "record matching the dropped type tag must be gone")
}

func TestRenameTypeTag(t *testing.T) {
	c := New(t.TempDir())
	c.save(Key{ProviderKey: "a"}, "payload", "old-tag", 0, true)

	step := RenameTypeTag("old-tag", "new-tag")
	require.NoError(t, step.Apply(context.Background(), c))

	rec, found := c.disk.retrieveRecord(Key{ProviderKey: "a"}.Flatten())
	require.True(t, found)
	require.Equal(t, "new-tag", rec.TypeTag)
	require.Equal(t, "payload", rec.Payload)
}

func TestRunMigrations_AppliesOnlyNewerVersionsInOrder(t *testing.T) {
	c := New(t.TempDir())
	c.save(Key{ProviderKey: "a"}, "x", "v1", 0, true)

	var applied []int
	recordingStep := func(v int) MigrationStep {
		return migrationFunc(func(ctx context.Context, cache *Cache) error {
			applied = append(applied, v)
			return nil
		})
	}

	migrations := []Migration{
		{Version: 2, Step: recordingStep(2)},
		{Version: 1, Step: recordingStep(1)},
	}

	require.NoError(t, runMigrations(context.Background(), c, migrations))
	require.Equal(t, []int{1, 2}, applied)
	require.Equal(t, 2, c.disk.readSchemaVersion())

	// Running again must be a no-op: the marker already reflects version 2.
	applied = nil
	require.NoError(t, runMigrations(context.Background(), c, migrations))
	require.Empty(t, applied)
}

func TestRunMigrations_AbortsOnFailure(t *testing.T) {
	c := New(t.TempDir())
	boom := errTest("boom")

	migrations := []Migration{
		{Version: 1, Step: migrationFunc(func(ctx context.Context, cache *Cache) error { return boom })},
	}

	err := runMigrations(context.Background(), c, migrations)
	require.Error(t, err)
	require.Equal(t, 0, c.disk.readSchemaVersion(), "marker must not advance on failure")
}

// migrationFunc adapts a plain function to MigrationStep, the way a test
// double would in the absence of a table of concrete step types.
type migrationFunc func(ctx context.Context, cache *Cache) error

func (f migrationFunc) Apply(ctx context.Context, cache *Cache) error { return f(ctx, cache) }

type errTest string

func (e errTest) Error() string { return string(e) }
