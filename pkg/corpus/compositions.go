package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// defaultListLimit is used by ListCompositions when no positive limit is given.
const defaultListLimit = 50

// Composition is a recorded composition and the request that produced it.
type Composition struct {
	ID              string    `json:"id"`
	Corpus          string    `json:"corpus"`
	Seed            string    `json:"seed"`
	Length          int       `json:"length"` // Requested length
	Text            string    `json:"text"`
	TokenCount      int       `json:"token_count"`
	TerminatedEarly bool      `json:"terminated_early"`
	Restarts        int       `json:"restarts"`
	CreatedAt       time.Time `json:"created_at"`
}

// RecordComposition stores c and returns its id. A new random UUID is assigned
// when c.ID is empty, and CreatedAt defaults to the current time.
func (s *Store) RecordComposition(ctx context.Context, c Composition) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	_, err := s.stmtInsertComposition.ExecContext(ctx,
		c.ID, c.Corpus, c.Seed, c.Length, c.Text, c.TokenCount, c.TerminatedEarly, c.Restarts, c.CreatedAt.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("could not record composition for '%s': %w", c.Corpus, err)
	}

	s.logger.DebugContext(ctx, "Composition recorded",
		slog.String("composition_id", c.ID),
		slog.String("text_name", c.Corpus),
		slog.Int("token_count", c.TokenCount),
	)
	return c.ID, nil
}

// GetComposition returns the composition with the given id, or
// ErrCompositionNotFound.
func (s *Store) GetComposition(ctx context.Context, id string) (Composition, error) {
	c, err := scanComposition(s.stmtGetComposition.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Composition{}, ErrCompositionNotFound
		}
		return Composition{}, fmt.Errorf("could not get composition %s: %w", id, err)
	}
	return c, nil
}

// ListCompositions returns the most recent compositions, newest first. An empty
// corpus lists compositions of every text.
func (s *Store) ListCompositions(ctx context.Context, corpus string, limit int) ([]Composition, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var rows *sql.Rows
	var err error
	if corpus == "" {
		rows, err = s.stmtListCompositions.QueryContext(ctx, limit)
	} else {
		rows, err = s.stmtListTextCompositions.QueryContext(ctx, corpus, limit)
	}
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	compositions := make([]Composition, 0)
	for rows.Next() {
		c, err := scanComposition(rows)
		if err != nil {
			return nil, err
		}
		compositions = append(compositions, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return compositions, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanComposition(row rowScanner) (Composition, error) {
	var c Composition
	var created int64
	err := row.Scan(&c.ID, &c.Corpus, &c.Seed, &c.Length, &c.Text, &c.TokenCount, &c.TerminatedEarly, &c.Restarts, &created)
	if err != nil {
		return Composition{}, err
	}
	c.CreatedAt = time.UnixMilli(created)
	return c, nil
}
