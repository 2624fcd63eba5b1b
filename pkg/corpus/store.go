package corpus

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

var (
	// ErrTextNotFound is returned when a named text does not exist.
	ErrTextNotFound = fmt.Errorf("corpus: text not found: %w", sql.ErrNoRows)
	// ErrCompositionNotFound is returned when a composition id does not exist.
	ErrCompositionNotFound = fmt.Errorf("corpus: composition not found: %w", sql.ErrNoRows)
	// ErrInvalidName is returned for an empty text name.
	ErrInvalidName = errors.New("corpus: text name must not be empty")
)

// SetupSchema initializes the necessary tables in the provided database. This
// function should be called once on a new database before any other operations
// are performed. It is idempotent and safe to call on an already-initialized
// database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaTexts = `
CREATE TABLE IF NOT EXISTS corpus_texts (
    text_id INTEGER PRIMARY KEY,
    text_name TEXT NOT NULL UNIQUE,
    body TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
`
		schemaCompositions = `
CREATE TABLE IF NOT EXISTS corpus_compositions (
    composition_id TEXT PRIMARY KEY,
    text_name TEXT NOT NULL,
    seed_token TEXT NOT NULL,
    requested_length INTEGER NOT NULL,
    output TEXT NOT NULL,
    token_count INTEGER NOT NULL,
    terminated_early INTEGER NOT NULL DEFAULT 0,
    restarts INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);
`
		indexCompositions = `
CREATE INDEX IF NOT EXISTS idx_corpus_compositions_text ON corpus_compositions (text_name, created_at);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	// If the transaction succeeds, tx.Commit() will be called first, and the rollback will do nothing.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaTexts); err != nil {
		return fmt.Errorf("could not create texts schema: %w", err)
	}

	if _, err = tx.Exec(schemaCompositions); err != nil {
		return fmt.Errorf("could not create compositions schema: %w", err)
	}

	if _, err = tx.Exec(indexCompositions); err != nil {
		return fmt.Errorf("could not create compositions index: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Store is the main entry point for reading and writing corpus data. It holds
// the database connection and prepared SQL statements for efficient database
// interaction.
type Store struct {
	db                       *sql.DB
	stmtPutText              *sql.Stmt
	stmtGetText              *sql.Stmt
	stmtListTexts            *sql.Stmt
	stmtInsertComposition    *sql.Stmt
	stmtGetComposition       *sql.Stmt
	stmtListCompositions     *sql.Stmt
	stmtListTextCompositions *sql.Stmt
	stmtCountTexts           *sql.Stmt
	stmtCountCompositions    *sql.Stmt
	logger                   *slog.Logger
}

// NewStore creates and returns a new Store. It pre-compiles all necessary SQL
// statements, returning an error if any preparation fails; statements
// prepared before the failure are closed again. SetupSchema must have been
// called on db first.
func NewStore(db *sql.DB) (*Store, error) {
	var prepared []*sql.Stmt
	var err error
	prepare := func(query string) *sql.Stmt {
		if err != nil {
			return nil
		}
		var stmt *sql.Stmt
		if stmt, err = db.Prepare(query); err != nil {
			return nil
		}
		prepared = append(prepared, stmt)
		return stmt
	}

	const compositionColumns = `composition_id, text_name, seed_token, requested_length, output, token_count, terminated_early, restarts, created_at`

	s := &Store{
		db:                       db,
		stmtPutText:              prepare(`INSERT INTO corpus_texts (text_name, body, created_at, updated_at) VALUES (?, ?, ?, ?) ON CONFLICT(text_name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at;`),
		stmtGetText:              prepare(`SELECT body FROM corpus_texts WHERE text_name = ?;`),
		stmtListTexts:            prepare(`SELECT text_name, length(body), created_at, updated_at FROM corpus_texts ORDER BY text_name;`),
		stmtInsertComposition:    prepare(`INSERT INTO corpus_compositions (` + compositionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`),
		stmtGetComposition:       prepare(`SELECT ` + compositionColumns + ` FROM corpus_compositions WHERE composition_id = ?;`),
		stmtListCompositions:     prepare(`SELECT ` + compositionColumns + ` FROM corpus_compositions ORDER BY created_at DESC, rowid DESC LIMIT ?;`),
		stmtListTextCompositions: prepare(`SELECT ` + compositionColumns + ` FROM corpus_compositions WHERE text_name = ? ORDER BY created_at DESC, rowid DESC LIMIT ?;`),
		stmtCountTexts:           prepare(`SELECT COUNT(*) FROM corpus_texts;`),
		stmtCountCompositions:    prepare(`SELECT COUNT(*) FROM corpus_compositions;`),
		logger:                   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if err != nil {
		for _, stmt := range prepared {
			_ = stmt.Close()
		}
		return nil, fmt.Errorf("could not prepare corpus statements: %w", err)
	}
	return s, nil
}

// Close releases all prepared SQL statements held by the Store. The database
// itself is owned by the caller and is left open.
func (s *Store) Close() {
	_ = s.stmtPutText.Close()
	_ = s.stmtGetText.Close()
	_ = s.stmtListTexts.Close()
	_ = s.stmtInsertComposition.Close()
	_ = s.stmtGetComposition.Close()
	_ = s.stmtListCompositions.Close()
	_ = s.stmtListTextCompositions.Close()
	_ = s.stmtCountTexts.Close()
	_ = s.stmtCountCompositions.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}
