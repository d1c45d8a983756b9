package tenancy

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v3"
)

func tenantColumns() []string {
	return []string{"id", "code", "name", "active", "medibook_token", "medibook_base_url", "created_at"}
}

func TestStoreGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := NewStoreWithQuerier(mock)

	id := uuid.New()
	now := time.Now().UTC()
	rows := pgxmock.NewRows(tenantColumns()).
		AddRow(id, "downtown", "Downtown Clinic", true, "tok-1", "", now)
	mock.ExpectQuery("SELECT id, code, name").WithArgs(id).WillReturnRows(rows)

	tenant, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if tenant.Code != "downtown" || tenant.MediBookToken != "tok-1" {
		t.Fatalf("unexpected tenant: %#v", tenant)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStoreGetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := NewStoreWithQuerier(mock)

	id := uuid.New()
	mock.ExpectQuery("SELECT id, code, name").WithArgs(id).WillReturnRows(pgxmock.NewRows(tenantColumns()))

	if _, err := store.Get(context.Background(), id); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreListActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := NewStoreWithQuerier(mock)

	now := time.Now().UTC()
	rows := pgxmock.NewRows(tenantColumns()).
		AddRow(uuid.New(), "downtown", "Downtown Clinic", true, "tok-1", "", now).
		AddRow(uuid.New(), "westside", "Westside Clinic", true, "", "", now)
	mock.ExpectQuery("SELECT id, code, name").WillReturnRows(rows)

	tenants, err := store.ListActive(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(tenants) != 2 {
		t.Fatalf("expected 2 tenants, got %d", len(tenants))
	}

	if _, err := tenants[0].Credentials(); err != nil {
		t.Fatalf("tenant with token should resolve credentials: %v", err)
	}
	if _, err := tenants[1].Credentials(); err != ErrNoCredentials {
		t.Fatalf("tenant without token should return ErrNoCredentials, got %v", err)
	}
}
