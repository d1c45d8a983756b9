package medibook

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clearbrook/clinic-ops/internal/tenancy"
)

func testCreds(baseURL string) tenancy.Credentials {
	return tenancy.Credentials{OrgID: "org-1", BearerToken: "tok-1", BaseURL: baseURL}
}

func TestListAppointments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/appointments" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Query().Get("from") == "" || r.URL.Query().Get("to") == "" {
			t.Error("missing from/to query params")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"appointments":[
			{"id":"A1","status":19,"patient_id":"P1","starts_at":"2026-08-29T09:00:00Z"},
			{"id":"A2","status":23,"patient_id":"P2","starts_at":"2026-08-29T10:00:00Z"}
		]}`)
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	now := time.Now()
	appts, err := client.ListAppointments(context.Background(), testCreds(""), now, now)
	if err != nil {
		t.Fatalf("list appointments: %v", err)
	}
	if len(appts) != 2 {
		t.Fatalf("expected 2 appointments, got %d", len(appts))
	}
	if appts[1].ID != "A2" || appts[1].Status != 23 {
		t.Fatalf("unexpected appointment: %#v", appts[1])
	}
}

func TestListAppointmentsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	now := time.Now()
	if _, err := client.ListAppointments(context.Background(), testCreds(""), now, now); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestGetPatient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/patients/P1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"P1","display_name":"Dana Reyes"}`)
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	patient, err := client.GetPatient(context.Background(), testCreds(""), "P1")
	if err != nil {
		t.Fatalf("get patient: %v", err)
	}
	if patient.DisplayName != "Dana Reyes" {
		t.Fatalf("unexpected patient: %#v", patient)
	}
}

func TestTenantBaseURLOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"appointments":[]}`)
	}))
	defer srv.Close()

	// Client default points nowhere useful; the tenant override must win.
	client, err := New(Config{BaseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	now := time.Now()
	if _, err := client.ListAppointments(context.Background(), testCreds(srv.URL), now, now); err != nil {
		t.Fatalf("expected tenant base url to be used: %v", err)
	}
}

func TestMissingToken(t *testing.T) {
	client, err := New(Config{BaseURL: "http://example.invalid"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	now := time.Now()
	if _, err := client.ListAppointments(context.Background(), tenancy.Credentials{}, now, now); err == nil {
		t.Fatal("expected error without bearer token")
	}
}
