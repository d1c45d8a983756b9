package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgxpool.Pool the store needs; pgxmock satisfies it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store persists notification records in Postgres.
type Store struct {
	db Querier
}

// NewStore creates a store backed by a pgx pool.
func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("notifications: pgx pool required")
	}
	return &Store{db: pool}
}

// NewStoreWithQuerier allows injecting mocks for tests.
func NewStoreWithQuerier(q Querier) *Store {
	return &Store{db: q}
}

// Insert stores the record and stamps its generated identity and timestamp.
func (s *Store) Insert(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("notifications: record is required")
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	// The caller's timestamp is stored as-is so the broadcast payload and
	// later listings agree on creation time.
	query := `
		INSERT INTO notifications (id, author, body, category, org_id, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
	`
	if _, err := s.db.Exec(ctx, query, rec.ID, rec.Author, rec.Body, rec.Category, rec.OrgID, rec.CreatedAt); err != nil {
		return fmt.Errorf("notifications: insert: %w", err)
	}
	return nil
}

// ListRecent returns the newest records, optionally scoped to one org.
// Org-scoped listings include global broadcasts.
func (s *Store) ListRecent(ctx context.Context, orgID string, limit int32) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, author, body, category, COALESCE(org_id, ''), created_at
		FROM notifications
		WHERE $1 = '' OR org_id IS NULL OR org_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.Query(ctx, query, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("notifications: list recent: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Author, &rec.Body, &rec.Category, &rec.OrgID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("notifications: scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
