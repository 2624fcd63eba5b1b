package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// TextInfo holds the metadata for a stored text.
type TextInfo struct {
	Name      string    `json:"name"`
	Size      int       `json:"size"` // Length of the body in bytes
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PutText stores body under name, replacing the body of an existing text with
// the same name.
func (s *Store) PutText(ctx context.Context, name, body string) error {
	if name == "" {
		return ErrInvalidName
	}
	now := time.Now().UnixMilli()
	if _, err := s.stmtPutText.ExecContext(ctx, name, body, now, now); err != nil {
		return fmt.Errorf("could not store text '%s': %w", name, err)
	}
	s.logger.InfoContext(ctx, "Text stored",
		slog.String("text_name", name),
		slog.Int("size", len(body)),
	)
	return nil
}

// GetText returns the body of the named text, or ErrTextNotFound.
func (s *Store) GetText(ctx context.Context, name string) (string, error) {
	var body string
	err := s.stmtGetText.QueryRowContext(ctx, name).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrTextNotFound
		}
		return "", fmt.Errorf("could not get text '%s': %w", name, err)
	}
	return body, nil
}

// ListTexts returns the metadata of every stored text, ordered by name.
func (s *Store) ListTexts(ctx context.Context) ([]TextInfo, error) {
	rows, err := s.stmtListTexts.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	texts := make([]TextInfo, 0)
	for rows.Next() {
		var info TextInfo
		var created, updated int64
		if err = rows.Scan(&info.Name, &info.Size, &created, &updated); err != nil {
			return nil, err
		}
		info.CreatedAt = time.UnixMilli(created)
		info.UpdatedAt = time.UnixMilli(updated)
		texts = append(texts, info)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return texts, nil
}

// RemoveText deletes a text and every composition recorded for it. The
// operation is performed within a transaction. It returns ErrTextNotFound if
// no text has that name.
func (s *Store) RemoveText(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	res, err := tx.ExecContext(ctx, "DELETE FROM corpus_texts WHERE text_name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to remove text '%s': %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTextNotFound
	}

	res, err = tx.ExecContext(ctx, "DELETE FROM corpus_compositions WHERE text_name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to remove compositions for text '%s': %w", name, err)
	}
	removed, _ := res.RowsAffected()

	s.logger.InfoContext(ctx, "Text removed successfully",
		slog.String("text_name", name),
		slog.Int64("compositions_removed", removed),
	)

	return tx.Commit()
}
