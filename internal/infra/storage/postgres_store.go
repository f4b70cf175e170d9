package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"homework_portal/internal/domain/homework"
)

const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 1 * time.Minute
)

const createDocumentsTable = `
CREATE TABLE IF NOT EXISTS homework_documents (
	id         BIGSERIAL PRIMARY KEY,
	body       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// NewPostgresConnection creates and returns a new PostgreSQL database connection.
// It also pings the database to ensure connectivity.
func NewPostgresConnection(ctx context.Context, dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// PostgresStore appends every saved document as a row; the newest row id is
// the revision.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore creates the documents table when missing.
func NewPostgresStore(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	if _, err := db.ExecContext(ctx, createDocumentsTable); err != nil {
		return nil, fmt.Errorf("failed to create homework_documents table: %w", err)
	}
	return &PostgresStore{db: db, now: time.Now}, nil
}

func (s *PostgresStore) Load(ctx context.Context) (*homework.Snapshot, error) {
	var (
		id   int64
		body string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, body FROM homework_documents ORDER BY id DESC LIMIT 1`).Scan(&id, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return loadOrBootstrap(ctx, s, nil, "", s.now())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest document: %w", err)
	}
	return loadOrBootstrap(ctx, s, []byte(body), strconv.FormatInt(id, 10), s.now())
}

func (s *PostgresStore) Save(ctx context.Context, data *homework.DataFile, expectedRevision string) (string, error) {
	encoded, err := prepare(data, s.now())
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `LOCK TABLE homework_documents IN EXCLUSIVE MODE`); err != nil {
		return "", fmt.Errorf("failed to lock homework_documents: %w", err)
	}

	var latest int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM homework_documents`).Scan(&latest); err != nil {
		return "", fmt.Errorf("failed to read latest revision: %w", err)
	}
	current := ""
	if latest > 0 {
		current = strconv.FormatInt(latest, 10)
	}
	if current != expectedRevision {
		return "", fmt.Errorf("%w: stored %q, expected %q", homework.ErrRevisionConflict, current, expectedRevision)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, `INSERT INTO homework_documents (body) VALUES ($1) RETURNING id`, string(encoded)).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit document: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}
