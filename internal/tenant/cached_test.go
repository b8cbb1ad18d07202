package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	cachemem "github.com/rotterdam-cs/portal-connect/internal/cache/memory"
)

type countingStore struct {
	settings *Settings
	err      error
	calls    int
}

func (s *countingStore) Settings(ctx context.Context, tenantID string) (*Settings, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.settings, nil
}

func TestCachedStoreHit(t *testing.T) {
	inner := &countingStore{settings: &Settings{
		TenantID:       "t1",
		SSOEnabled:     true,
		AllowedDomains: []string{"corp.com"},
	}}
	s := NewCachedStore(inner, cachemem.New(time.Minute), time.Minute)

	for i := 0; i < 3; i++ {
		got, err := s.Settings(context.Background(), "t1")
		if err != nil {
			t.Fatalf("Settings: %v", err)
		}
		if !got.SSOEnabled || len(got.AllowedDomains) != 1 {
			t.Fatalf("settings = %+v", got)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("inner store calls = %d, want 1", inner.calls)
	}
}

func TestCachedStoreErrorsNotCached(t *testing.T) {
	inner := &countingStore{err: errors.New("pg down")}
	s := NewCachedStore(inner, cachemem.New(time.Minute), time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := s.Settings(context.Background(), "t1"); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.calls != 2 {
		t.Fatalf("inner store calls = %d, want 2 (errors must not be cached)", inner.calls)
	}
}

func TestCachedStoreInvalidate(t *testing.T) {
	inner := &countingStore{settings: &Settings{TenantID: "t1"}}
	s := NewCachedStore(inner, cachemem.New(time.Minute), time.Minute)

	if _, err := s.Settings(context.Background(), "t1"); err != nil {
		t.Fatal(err)
	}
	s.Invalidate("t1")
	if _, err := s.Settings(context.Background(), "t1"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Fatalf("inner store calls = %d, want 2 after invalidate", inner.calls)
	}
}
