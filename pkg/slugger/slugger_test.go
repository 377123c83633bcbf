package slugger

import (
	"context"
	"errors"
	"testing"
)

type stubIndex struct {
	taken map[string]bool
	err   error
}

func (s *stubIndex) SlugExists(_ context.Context, slug string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.taken[slug], nil
}

func TestAllocateFreeSlug(t *testing.T) {
	a := New(&stubIndex{taken: map[string]bool{}})
	got, err := a.Allocate(context.Background(), "Ann Doe")
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if got != "ann-doe" {
		t.Fatalf("got %q, want %q", got, "ann-doe")
	}
}

func TestAllocateSuffixesOnCollision(t *testing.T) {
	a := New(&stubIndex{taken: map[string]bool{"ann": true, "ann-2": true}})
	got, err := a.Allocate(context.Background(), "Ann")
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if got != "ann-3" {
		t.Fatalf("got %q, want %q", got, "ann-3")
	}
}

func TestAllocateEmptyDesiredText(t *testing.T) {
	a := New(&stubIndex{taken: map[string]bool{}})
	got, err := a.Allocate(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if got != "user" {
		t.Fatalf("got %q, want %q", got, "user")
	}
}

func TestAllocatePropagatesIndexError(t *testing.T) {
	boom := errors.New("index down")
	a := New(&stubIndex{err: boom})
	if _, err := a.Allocate(context.Background(), "Ann"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
