package tenancy

import (
	"context"
	"testing"
)

func TestOrgIDRoundTrip(t *testing.T) {
	ctx := WithOrgID(context.Background(), "org-42")
	got, ok := OrgIDFromContext(ctx)
	if !ok || got != "org-42" {
		t.Fatalf("OrgIDFromContext = %q, %v", got, ok)
	}
}

func TestOrgIDMissing(t *testing.T) {
	if _, ok := OrgIDFromContext(context.Background()); ok {
		t.Fatal("expected no org id on empty context")
	}
}

func TestOrgIDEmptyValue(t *testing.T) {
	ctx := WithOrgID(context.Background(), "")
	if _, ok := OrgIDFromContext(ctx); ok {
		t.Fatal("empty org id should not be reported as present")
	}
}
