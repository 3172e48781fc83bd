// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hub

import (
	"context"
)

type contextKey struct{}

// NewContext returns a copy of ctx, carrying h.
func NewContext(ctx context.Context, h *Hub) context.Context {
	return context.WithValue(ctx, contextKey{}, h)
}

// FromContext returns the hub carried by ctx, if any.
func FromContext(ctx context.Context) (*Hub, bool) {
	h, ok := ctx.Value(contextKey{}).(*Hub)
	return h, ok && h != nil
}
