// Package runid threads a per-execution identifier through the context,
// correlating the events one query run emits.
package runid

import (
	"context"
	"math/rand"
)

type key struct{}

// NewContext returns a copy of parent carrying a fresh run id, and the id.
func NewContext(parent context.Context) (context.Context, int64) {
	id := rand.Int63()
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the run id from ctx.
func FromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(key{})
	id, ok := v.(int64)
	return id, ok
}
