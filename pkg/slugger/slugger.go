// Package slugger allocates URL-safe, human-readable identifiers unique
// among stored accounts.
package slugger

import (
	"context"
	"fmt"

	"github.com/gosimple/slug"
)

// Index reports whether a slug is already taken.
type Index interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// Allocator derives a slug from display text and probes the index until it
// finds a free one, appending -2, -3, ... on collision. "Unique" here means
// unique at call time: under concurrent allocation the slug column's unique
// index is the real arbiter, and the losing writer gets a uniqueness
// violation from storage.
type Allocator struct {
	index Index
}

func New(index Index) *Allocator {
	return &Allocator{index: index}
}

func (a *Allocator) Allocate(ctx context.Context, desired string) (string, error) {
	base := slug.Make(desired)
	if base == "" {
		base = "user"
	}
	candidate := base
	for n := 2; ; n++ {
		taken, err := a.index.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}
