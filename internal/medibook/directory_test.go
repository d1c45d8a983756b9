package medibook

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/clearbrook/clinic-ops/internal/tenancy"
)

type fakeDirectory struct {
	calls   int
	patient *Patient
	err     error
}

func (f *fakeDirectory) GetPatient(ctx context.Context, creds tenancy.Credentials, patientID string) (*Patient, error) {
	f.calls++
	return f.patient, f.err
}

func TestCachedDirectoryCachesLookups(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	upstream := &fakeDirectory{patient: &Patient{ID: "P1", DisplayName: "Dana Reyes"}}
	dir := NewCachedDirectory(upstream, client, nil)

	creds := tenancy.Credentials{OrgID: "org-1", BearerToken: "tok"}

	for i := 0; i < 3; i++ {
		patient, err := dir.GetPatient(context.Background(), creds, "P1")
		if err != nil {
			t.Fatalf("lookup %d failed: %v", i, err)
		}
		if patient.DisplayName != "Dana Reyes" {
			t.Fatalf("unexpected patient: %#v", patient)
		}
	}

	if upstream.calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", upstream.calls)
	}
}

func TestCachedDirectoryScopesByOrg(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	upstream := &fakeDirectory{patient: &Patient{ID: "P1", DisplayName: "Dana Reyes"}}
	dir := NewCachedDirectory(upstream, client, nil)

	if _, err := dir.GetPatient(context.Background(), tenancy.Credentials{OrgID: "org-a", BearerToken: "t"}, "P1"); err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if _, err := dir.GetPatient(context.Background(), tenancy.Credentials{OrgID: "org-b", BearerToken: "t"}, "P1"); err != nil {
		t.Fatalf("lookup failed: %v", err)
	}

	if upstream.calls != 2 {
		t.Fatalf("expected per-org cache entries, got %d upstream calls", upstream.calls)
	}
}

func TestCachedDirectoryRedisDownDegrades(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	upstream := &fakeDirectory{patient: &Patient{ID: "P1", DisplayName: "Dana Reyes"}}
	dir := NewCachedDirectory(upstream, client, nil)

	patient, err := dir.GetPatient(context.Background(), tenancy.Credentials{OrgID: "org-1", BearerToken: "t"}, "P1")
	if err != nil {
		t.Fatalf("expected degraded lookup to succeed: %v", err)
	}
	if patient.DisplayName != "Dana Reyes" {
		t.Fatalf("unexpected patient: %#v", patient)
	}
}

func TestCachedDirectoryUpstreamError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	upstream := &fakeDirectory{err: errors.New("boom")}
	dir := NewCachedDirectory(upstream, client, nil)

	if _, err := dir.GetPatient(context.Background(), tenancy.Credentials{OrgID: "org-1", BearerToken: "t"}, "P1"); err == nil {
		t.Fatal("expected upstream error to propagate")
	}
}

func TestCachedDirectoryNilRedisPassesThrough(t *testing.T) {
	upstream := &fakeDirectory{patient: &Patient{ID: "P1", DisplayName: "Dana Reyes"}}
	dir := NewCachedDirectory(upstream, nil, nil)

	if _, err := dir.GetPatient(context.Background(), tenancy.Credentials{OrgID: "org-1", BearerToken: "t"}, "P1"); err != nil {
		t.Fatalf("pass-through lookup failed: %v", err)
	}
	if upstream.calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", upstream.calls)
	}
}
