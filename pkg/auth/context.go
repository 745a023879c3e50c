// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package auth

import (
	"context"

	"github.com/edusuite/platform/internal/types"
)

type contextKey struct{}

var sessionContextKey = contextKey{}

func WithSession(ctx context.Context, sess *types.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SessionFromContext returns the authenticated session, or nil for an
// anonymous request.
func SessionFromContext(ctx context.Context) *types.Session {
	sess, _ := ctx.Value(sessionContextKey).(*types.Session)
	return sess
}
