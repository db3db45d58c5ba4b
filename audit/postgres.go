package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/digitorus/pdfstamp/integrity"
)

const schema = `
CREATE TABLE IF NOT EXISTS integrity_records (
  id UUID PRIMARY KEY,
  document_id TEXT NOT NULL,
  original_hash TEXT NOT NULL,
  final_hash TEXT NOT NULL,
  signer_id TEXT NOT NULL,
  algorithm TEXT NOT NULL,
  url TEXT NOT NULL,
  signed_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS integrity_records_document_idx ON integrity_records(document_id, signed_at);
`

// uniqueViolation is the SQLSTATE for a primary key conflict.
const uniqueViolation = "23505"

type PostgresStore struct{ DB *pgxpool.Pool }

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore { return &PostgresStore{DB: db} }

// Connect opens a pool for dsn. maxConns of zero keeps the pool default.
func Connect(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the records table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.DB.Exec(ctx, schema)
	return err
}

func (s *PostgresStore) Create(ctx context.Context, entry *Entry) error {
	entry.Timestamp = truncate(entry.Timestamp)
	_, err := s.DB.Exec(ctx, `
INSERT INTO integrity_records(id,document_id,original_hash,final_hash,signer_id,algorithm,url,signed_at)
VALUES($1::uuid,$2,$3,$4,$5,$6,$7,$8)
`, entry.ID.String(), entry.DocumentID, entry.OriginalHash, entry.FinalHash, entry.SignerID, string(entry.Algorithm), entry.URL, entry.Timestamp)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateEntry
		}
		return err
	}
	return nil
}

func (s *PostgresStore) ListByDocument(ctx context.Context, documentID string, offset, limit int) ([]Entry, int, error) {
	offset, limit = normalizePage(offset, limit)

	var total int
	if err := s.DB.QueryRow(ctx, `SELECT count(*) FROM integrity_records WHERE document_id=$1`, documentID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.Query(ctx, `
SELECT id::text,document_id,original_hash,final_hash,signer_id,algorithm,url,signed_at
FROM integrity_records
WHERE document_id=$1
ORDER BY signed_at ASC, id ASC
OFFSET $2 LIMIT $3
`, documentID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		var id, algorithm string
		if err := rows.Scan(&id, &e.DocumentID, &e.OriginalHash, &e.FinalHash, &e.SignerID, &algorithm, &e.URL, &e.Timestamp); err != nil {
			return nil, 0, err
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, 0, err
		}
		e.Algorithm = integrity.Algorithm(algorithm)
		e.Timestamp = e.Timestamp.UTC()
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (s *PostgresStore) Close() { s.DB.Close() }
