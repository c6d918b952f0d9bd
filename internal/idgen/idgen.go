// Package idgen produces identifiers for new rows.
package idgen

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator generates unique identifiers. Implementations must be safe for
// concurrent use.
type Generator interface {
	Generate() (uuid.UUID, error)
}

// Func adapts a plain function to Generator.
type Func func() (uuid.UUID, error)

func (f Func) Generate() (uuid.UUID, error) { return f() }

type v7Gen struct {
	maxRetries int
}

// Option configures the v7 generator.
type Option func(*v7Gen)

// WithRetries sets how many times uuid.NewV7 is retried after the first
// failure. Negative values are ignored.
func WithRetries(n int) Option {
	return func(g *v7Gen) {
		if n >= 0 {
			g.maxRetries = n
		}
	}
}

// NewV7 returns a Generator of time-ordered UUID v7 values, so link rows
// created in sequence also sort in sequence.
func NewV7(opts ...Option) Generator {
	g := &v7Gen{maxRetries: 1}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *v7Gen) Generate() (uuid.UUID, error) {
	var last error
	for range g.maxRetries + 1 {
		id, err := uuid.NewV7()
		if err == nil {
			return id, nil
		}
		last = err
	}
	return uuid.Nil, fmt.Errorf("uuid v7 generation failed after %d attempts: %w", g.maxRetries+1, last)
}
