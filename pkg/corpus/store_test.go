package corpus

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupSchemaIdempotent(t *testing.T) {
	db, _ := setupTestDB(t)
	require.NoError(t, SetupSchema(db))
	require.NoError(t, SetupSchema(db))
}

func TestNewStorePartialSchema(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "partial.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// Only the texts table exists, so the text statements prepare and the
	// composition statements fail.
	_, err = db.Exec(`CREATE TABLE corpus_texts (text_id INTEGER PRIMARY KEY, text_name TEXT NOT NULL UNIQUE, body TEXT NOT NULL, created_at INTEGER NOT NULL, updated_at INTEGER NOT NULL);`)
	require.NoError(t, err)

	s, err := NewStore(db)
	require.Error(t, err)
	assert.Nil(t, s)

	// The database stays usable once the schema is complete.
	require.NoError(t, SetupSchema(db))
	s, err = NewStore(db)
	require.NoError(t, err)
	s.Close()
}

func TestPutAndGetText(t *testing.T) {
	_, s := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.PutText(ctx, "fish", "one fish two fish"))

	body, err := s.GetText(ctx, "fish")
	require.NoError(t, err)
	assert.Equal(t, "one fish two fish", body)

	// Upsert replaces the body and keeps a single row.
	require.NoError(t, s.PutText(ctx, "fish", "red fish blue fish"))
	body, err = s.GetText(ctx, "fish")
	require.NoError(t, err)
	assert.Equal(t, "red fish blue fish", body)

	texts, err := s.ListTexts(ctx)
	require.NoError(t, err)
	require.Len(t, texts, 1)
	assert.Equal(t, "fish", texts[0].Name)
	assert.Equal(t, len("red fish blue fish"), texts[0].Size)
	assert.False(t, texts[0].UpdatedAt.Before(texts[0].CreatedAt))

	_, err = s.GetText(ctx, "missing")
	assert.ErrorIs(t, err, ErrTextNotFound)
	assert.True(t, errors.Is(err, sql.ErrNoRows), "ErrTextNotFound should wrap sql.ErrNoRows")

	assert.ErrorIs(t, s.PutText(ctx, "", "body"), ErrInvalidName)
}

func TestListTextsOrdered(t *testing.T) {
	_, s := setupTestDB(t)
	ctx := context.Background()

	texts, err := s.ListTexts(ctx)
	require.NoError(t, err)
	assert.Empty(t, texts)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, s.PutText(ctx, name, name))
	}
	texts, err = s.ListTexts(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(texts))
	for _, info := range texts {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestRecordAndGetComposition(t *testing.T) {
	_, s := setupTestDB(t)
	ctx := context.Background()

	created := time.UnixMilli(1_700_000_000_000)
	id, err := s.RecordComposition(ctx, Composition{
		Corpus:          "fish",
		Seed:            "one",
		Length:          5,
		Text:            "one fish two",
		TokenCount:      3,
		TerminatedEarly: true,
		Restarts:        0,
		CreatedAt:       created,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	c, err := s.GetComposition(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, c.ID)
	assert.Equal(t, "fish", c.Corpus)
	assert.Equal(t, "one", c.Seed)
	assert.Equal(t, 5, c.Length)
	assert.Equal(t, "one fish two", c.Text)
	assert.Equal(t, 3, c.TokenCount)
	assert.True(t, c.TerminatedEarly)
	assert.True(t, c.CreatedAt.Equal(created))

	_, err = s.GetComposition(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrCompositionNotFound)

	// Explicit ids are kept, duplicates are rejected.
	_, err = s.RecordComposition(ctx, Composition{ID: id, Corpus: "fish"})
	assert.Error(t, err)
}

func TestListCompositions(t *testing.T) {
	_, s := setupTestDB(t)
	ctx := context.Background()

	base := time.UnixMilli(1_700_000_000_000)
	for i, corpus := range []string{"a", "b", "a", "a"} {
		_, err := s.RecordComposition(ctx, Composition{
			Corpus:    corpus,
			Seed:      "x",
			Length:    i,
			Text:      "x",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	all, err := s.ListCompositions(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, 3, all[0].Length, "expected newest first")

	onlyA, err := s.ListCompositions(ctx, "a", 2)
	require.NoError(t, err)
	require.Len(t, onlyA, 2)
	for _, c := range onlyA {
		assert.Equal(t, "a", c.Corpus)
	}
	assert.Equal(t, []int{3, 2}, []int{onlyA[0].Length, onlyA[1].Length})

	none, err := s.ListCompositions(ctx, "unknown", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRemoveText(t *testing.T) {
	db, s := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.PutText(ctx, "to_delete", "delete this data"))
	require.NoError(t, s.PutText(ctx, "to_keep", "keep this data"))
	_, err := s.RecordComposition(ctx, Composition{Corpus: "to_delete", Text: "delete"})
	require.NoError(t, err)
	_, err = s.RecordComposition(ctx, Composition{Corpus: "to_keep", Text: "keep"})
	require.NoError(t, err)

	require.NoError(t, s.RemoveText(ctx, "to_delete"))

	_, err = s.GetText(ctx, "to_delete")
	assert.ErrorIs(t, err, ErrTextNotFound)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM corpus_compositions WHERE text_name = ?", "to_delete").Scan(&count))
	assert.Zero(t, count, "compositions of a removed text should be deleted")

	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM corpus_compositions WHERE text_name = ?", "to_keep").Scan(&count))
	assert.Equal(t, 1, count)

	assert.ErrorIs(t, s.RemoveText(ctx, "to_delete"), ErrTextNotFound)
}

func TestGetStats(t *testing.T) {
	_, s := setupTestDB(t)
	ctx := context.Background()

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, *stats)

	require.NoError(t, s.PutText(ctx, "a", "a b"))
	require.NoError(t, s.PutText(ctx, "b", "b c"))
	_, err = s.RecordComposition(ctx, Composition{Corpus: "a"})
	require.NoError(t, err)

	stats, err = s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Texts: 2, Compositions: 1}, *stats)
}
