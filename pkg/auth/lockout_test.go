// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusuite/platform/internal/types"
)

func TestAttemptKey(t *testing.T) {
	greenwood := &types.Tenant{ID: 42}

	assert.Equal(t, "42_amina@school.test", attemptKey(greenwood, "amina@school.test"))
	assert.Equal(t, "admin@edusuite.io", attemptKey(nil, "admin@edusuite.io"))

	// Same address under different tenants never shares a counter.
	hillside := &types.Tenant{ID: 7}
	assert.NotEqual(t, attemptKey(greenwood, "amina@school.test"), attemptKey(hillside, "amina@school.test"))
}

func TestMemoryAttemptStore_BumpAndClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAttemptStore(15 * time.Minute)
	now := time.Now()

	for i := 1; i <= 3; i++ {
		count, err := store.Bump(ctx, "42_amina@school.test", now)
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}

	a, err := store.Get(ctx, "42_amina@school.test")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, 3, a.Count)

	require.NoError(t, store.Clear(ctx, "42_amina@school.test"))
	a, err = store.Get(ctx, "42_amina@school.test")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestMemoryAttemptStore_WindowRestartsCount(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAttemptStore(15 * time.Minute)
	start := time.Now()

	for i := 0; i < 5; i++ {
		_, err := store.Bump(ctx, "key", start)
		require.NoError(t, err)
	}

	// A failure after the window expires starts a fresh count.
	count, err := store.Bump(ctx, "key", start.Add(16*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryAttemptStore_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAttemptStore(15 * time.Minute)
	now := time.Now()

	_, err := store.Bump(ctx, "42_amina@school.test", now)
	require.NoError(t, err)

	a, err := store.Get(ctx, "7_amina@school.test")
	require.NoError(t, err)
	assert.Nil(t, a)
}
