package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/ports"
)

type filterMiddleware struct {
	passthrough
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

// NewFilterMiddleware creates a middleware that keeps only the snapshot entries
// whose name matches an include pattern and no exclude pattern. An empty
// include list keeps every name.
func NewFilterMiddleware(include, exclude []string) (Middleware, error) {
	inc, err := compile(include)
	if err != nil {
		return nil, err
	}
	exc, err := compile(exclude)
	if err != nil {
		return nil, err
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &filterMiddleware{passthrough: passthrough{next: next}, include: inc, exclude: exc}
	}, nil
}

func compile(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: pattern %q: %v", domain.ErrValidation, p, err)
		}
		out[i] = re
	}
	return out, nil
}

func (m *filterMiddleware) Save(ctx context.Context, snap *domain.Snapshot) error {
	// The caller keeps its snapshot untouched.
	out := &domain.Snapshot{
		Tick:      snap.Tick,
		CreatedAt: snap.CreatedAt,
		Matrices:  make(map[string]domain.Matrix),
		Vectors:   make(map[string][]float64),
	}
	for k, v := range snap.Matrices {
		if m.keep(k) {
			out.Matrices[k] = v
		}
	}
	for k, v := range snap.Vectors {
		if m.keep(k) {
			out.Vectors[k] = v
		}
	}
	return m.next.Save(ctx, out)
}

func (m *filterMiddleware) keep(name string) bool {
	for _, p := range m.exclude {
		if p.MatchString(name) {
			return false
		}
	}
	if len(m.include) == 0 {
		return true
	}
	for _, p := range m.include {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}
