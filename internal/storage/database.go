// Package storage is the host collection: notes, cards, decks, note types
// and deck sources kept in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/conorfennell/spreadcard/internal/domain"
)

// DefaultDeck is created on open and receives imported notes.
const DefaultDeck = "Default"

// DefaultNoteType is the practice note type created on open.
const DefaultNoteType = "GPT"

const secondsPerDay = 86400

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn     *sql.DB
	now      func() time.Time
	noteType string
}

// Option configures a DB.
type Option func(*DB)

// WithClock replaces time.Now, which drives the day counter.
func WithClock(now func() time.Time) Option {
	return func(db *DB) { db.now = now }
}

// WithNoteType sets the name of the practice note type created on open.
func WithNoteType(name string) Option {
	return func(db *DB) { db.noteType = name }
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string, opts ...Option) (*DB, error) {
	db := &DB{now: time.Now, noteType: DefaultNoteType}
	for _, opt := range opts {
		opt(db)
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps per-connection pragmas and serializes writers.
	conn.SetMaxOpenConns(1)
	db.conn = conn

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.init(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) init(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	now := db.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if _, err := db.conn.ExecContext(ctx, "INSERT OR IGNORE INTO col (id, crt) VALUES (1, ?)", dayStart.Unix()); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	if _, err := db.EnsureNoteType(ctx, db.noteType, domain.PracticeFields); err != nil {
		return err
	}
	if _, err := db.DeckID(ctx, DefaultDeck); err != nil {
		return err
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Today returns the number of whole days since the collection was created.
func (db *DB) Today(ctx context.Context) (int, error) {
	var crt int64
	if err := db.conn.QueryRowContext(ctx, "SELECT crt FROM col WHERE id = 1").Scan(&crt); err != nil {
		return 0, fmt.Errorf("failed to read collection creation time: %w", err)
	}
	elapsed := db.now().Unix() - crt
	if elapsed < 0 {
		return 0, nil
	}
	return int(elapsed / secondsPerDay), nil
}

// EnsureNoteType returns the id of the named note type, creating it with
// fields when it does not exist. An existing type keeps its fields.
func (db *DB) EnsureNoteType(ctx context.Context, name string, fields []string) (int64, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return 0, fmt.Errorf("failed to encode fields of note type %s: %w", name, err)
	}
	if _, err := db.conn.ExecContext(ctx, "INSERT OR IGNORE INTO notetypes (name, fields) VALUES (?, ?)", name, string(raw)); err != nil {
		return 0, fmt.Errorf("failed to create note type %s: %w", name, err)
	}
	id, _, err := db.lookupNoteType(ctx, name)
	return id, err
}

func (db *DB) lookupNoteType(ctx context.Context, name string) (int64, []string, error) {
	var (
		id  int64
		raw string
	)
	err := db.conn.QueryRowContext(ctx, "SELECT id, fields FROM notetypes WHERE name = ?", name).Scan(&id, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, fmt.Errorf("note type %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return 0, nil, fmt.Errorf("failed to find note type %s: %w", name, err)
	}
	fields, err := decodeFieldNames(raw)
	if err != nil {
		return 0, nil, fmt.Errorf("note type %s: %w", name, err)
	}
	return id, fields, nil
}

// DeckID returns the id of the named deck, creating it if needed.
func (db *DB) DeckID(ctx context.Context, name string) (int64, error) {
	if _, err := db.conn.ExecContext(ctx, "INSERT OR IGNORE INTO decks (name) VALUES (?)", name); err != nil {
		return 0, fmt.Errorf("failed to create deck %s: %w", name, err)
	}
	var id int64
	if err := db.conn.QueryRowContext(ctx, "SELECT id FROM decks WHERE name = ?", name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to find deck %s: %w", name, err)
	}
	return id, nil
}

func (db *DB) exec(ctx context.Context, q sq.Sqlizer) (sql.Result, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return db.conn.ExecContext(ctx, query, args...)
}

func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
