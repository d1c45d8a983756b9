package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no tenant exists for the given id.
var ErrNotFound = errors.New("tenancy: tenant not found")

// Querier is the subset of pgxpool.Pool the store needs; pgxmock satisfies it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads tenants from Postgres.
type Store struct {
	db Querier
}

// NewStore creates a store backed by a pgx pool.
func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("tenancy: pgx pool required")
	}
	return &Store{db: pool}
}

// NewStoreWithQuerier allows injecting mocks for tests.
func NewStoreWithQuerier(q Querier) *Store {
	return &Store{db: q}
}

// Get loads one tenant by id.
func (s *Store) Get(ctx context.Context, orgID uuid.UUID) (*Tenant, error) {
	query := `
		SELECT id, code, name, active, medibook_token, medibook_base_url, created_at
		FROM tenants
		WHERE id = $1
	`
	var t Tenant
	err := s.db.QueryRow(ctx, query, orgID).Scan(
		&t.ID, &t.Code, &t.Name, &t.Active, &t.MediBookToken, &t.MediBookBaseURL, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("tenancy: load tenant: %w", err)
	}
	return &t, nil
}

// ListActive returns every tenant the watcher bootstrap should cover.
func (s *Store) ListActive(ctx context.Context) ([]Tenant, error) {
	query := `
		SELECT id, code, name, active, medibook_token, medibook_base_url, created_at
		FROM tenants
		WHERE active
		ORDER BY code
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("tenancy: list active tenants: %w", err)
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.Code, &t.Name, &t.Active, &t.MediBookToken, &t.MediBookBaseURL, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("tenancy: scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}
