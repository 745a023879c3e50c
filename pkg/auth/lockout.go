// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"

	"github.com/edusuite/platform/internal/storage"
	"github.com/edusuite/platform/internal/types"
)

// AttemptStore tracks failed-login counters per identity key. Keys are
// tenant-scoped for tenant users ("42_amina@school.test") and bare email
// addresses for platform admins, so the same address never locks across
// tenants.
type AttemptStore interface {
	// Bump records a failure and returns the count inside the current
	// window. A failure after the window expires restarts the count at 1.
	Bump(ctx context.Context, key string, now time.Time) (int, error)
	// Get returns nil when the key has no recorded failures.
	Get(ctx context.Context, key string) (*types.LoginAttempt, error)
	Clear(ctx context.Context, key string) error
}

// StorageAttemptStore keeps counters in the platform database so lockouts
// survive restarts.
type StorageAttemptStore struct {
	storage storage.StorageInterface
	window  time.Duration
}

var _ AttemptStore = (*StorageAttemptStore)(nil)

func NewStorageAttemptStore(storage storage.StorageInterface, window time.Duration) *StorageAttemptStore {
	return &StorageAttemptStore{storage: storage, window: window}
}

func (s *StorageAttemptStore) Bump(ctx context.Context, key string, now time.Time) (int, error) {
	return s.storage.BumpLoginAttempt(ctx, key, now, s.window)
}

func (s *StorageAttemptStore) Get(ctx context.Context, key string) (*types.LoginAttempt, error) {
	a, err := s.storage.GetLoginAttempt(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *StorageAttemptStore) Clear(ctx context.Context, key string) error {
	return s.storage.ClearLoginAttempts(ctx, key)
}

// RedisAttemptStore keeps counters in Redis with the window as TTL. Used
// when several instances share lockout state without touching the
// platform database on every failed login.
type RedisAttemptStore struct {
	client *redis.Client
	window time.Duration
}

var _ AttemptStore = (*RedisAttemptStore)(nil)

func NewRedisAttemptStore(client *redis.Client, window time.Duration) *RedisAttemptStore {
	return &RedisAttemptStore{client: client, window: window}
}

func (r *RedisAttemptStore) key(key string) string {
	return "login_attempts:" + key
}

func (r *RedisAttemptStore) Bump(ctx context.Context, key string, _ time.Time) (int, error) {
	k := r.key(key)
	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to bump login attempts: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, k, r.window).Err(); err != nil {
			return int(count), fmt.Errorf("failed to set attempt window: %w", err)
		}
	}
	return int(count), nil
}

func (r *RedisAttemptStore) Get(ctx context.Context, key string) (*types.LoginAttempt, error) {
	k := r.key(key)
	count, err := r.client.Get(ctx, k).Int()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read login attempts: %w", err)
	}
	ttl, err := r.client.TTL(ctx, k).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read attempt window: %w", err)
	}
	// Reconstruct the last-attempt time from the remaining TTL.
	last := time.Now().Add(ttl - r.window)
	return &types.LoginAttempt{Key: key, Count: count, LastAttempt: last}, nil
}

func (r *RedisAttemptStore) Clear(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to clear login attempts: %w", err)
	}
	return nil
}

// MemoryAttemptStore is an in-process fallback for single-instance
// deployments and tests. Entries evict themselves after the window.
type MemoryAttemptStore struct {
	cache  *gocache.Cache
	window time.Duration
}

var _ AttemptStore = (*MemoryAttemptStore)(nil)

func NewMemoryAttemptStore(window time.Duration) *MemoryAttemptStore {
	return &MemoryAttemptStore{
		cache:  gocache.New(window, 10*time.Minute),
		window: window,
	}
}

func (m *MemoryAttemptStore) Bump(_ context.Context, key string, now time.Time) (int, error) {
	count := 1
	if v, ok := m.cache.Get(key); ok {
		prev := v.(*types.LoginAttempt)
		if now.Sub(prev.LastAttempt) < m.window {
			count = prev.Count + 1
		}
	}
	m.cache.Set(key, &types.LoginAttempt{Key: key, Count: count, LastAttempt: now}, m.window)
	return count, nil
}

func (m *MemoryAttemptStore) Get(_ context.Context, key string) (*types.LoginAttempt, error) {
	if v, ok := m.cache.Get(key); ok {
		return v.(*types.LoginAttempt), nil
	}
	return nil, nil
}

func (m *MemoryAttemptStore) Clear(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}
