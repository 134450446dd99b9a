// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package session

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend stores session payloads with a TTL.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// ValkeyBackend keeps sessions in Valkey.
type ValkeyBackend struct {
	client *redis.Client
}

// NewValkeyBackend returns a backend on the given Valkey client.
func NewValkeyBackend(client *redis.Client) *ValkeyBackend {
	return &ValkeyBackend{client: client}
}

func (b *ValkeyBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := b.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (b *ValkeyBackend) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return b.client.Set(ctx, key, payload, ttl).Err()
}

func (b *ValkeyBackend) Del(ctx context.Context, key string) error {
	return b.client.Del(ctx, key).Err()
}

type memoryEntry struct {
	payload []byte
	expires time.Time
}

// MemoryBackend keeps sessions in process memory. It serves single-node
// runs without Valkey and tests.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]memoryEntry), now: time.Now}
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !b.now().Before(e.expires) {
		delete(b.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.payload...), true, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = memoryEntry{payload: append([]byte(nil), payload...), expires: b.now().Add(ttl)}
	return nil
}

func (b *MemoryBackend) Del(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, key)
	return nil
}
