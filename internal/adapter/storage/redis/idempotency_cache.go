package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"voicevault-gateway/internal/core/domain"
	"voicevault-gateway/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix     = "idempotency:"
	idempotencyLockPrefix = "idempotency:lock:"
)

// IdempotencyCache implements ports.IdempotencyCache. Stored responses may
// carry wallet challenge secrets, so they are encrypted at rest.
type IdempotencyCache struct {
	client goredis.UniversalClient
	encSvc ports.EncryptionService
}

// NewIdempotencyCache creates a new Redis-backed idempotency cache.
func NewIdempotencyCache(client goredis.UniversalClient, encSvc ports.EncryptionService) *IdempotencyCache {
	return &IdempotencyCache{client: client, encSvc: encSvc}
}

// Reserve claims key with SET NX. A key that already holds a response
// cannot be reserved again.
func (c *IdempotencyCache) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	n, err := c.client.Exists(ctx, idempotencyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("redis idempotency exists: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	ok, err := c.client.SetNX(ctx, idempotencyLockPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis idempotency reserve: %w", err)
	}
	return ok, nil
}

// Get returns nil, nil if the key does not exist.
func (c *IdempotencyCache) Get(ctx context.Context, key string) (*domain.IdempotentResponse, error) {
	val, err := c.client.Get(ctx, idempotencyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis idempotency get: %w", err)
	}

	plaintext, err := c.encSvc.Decrypt(val)
	if err != nil {
		return nil, fmt.Errorf("decrypting cached response: %w", err)
	}

	var resp domain.IdempotentResponse
	if err := json.Unmarshal([]byte(plaintext), &resp); err != nil {
		return nil, fmt.Errorf("decoding cached response: %w", err)
	}
	return &resp, nil
}

// Set stores resp and drops the reservation in one transaction.
func (c *IdempotencyCache) Set(ctx context.Context, key string, resp *domain.IdempotentResponse, ttl time.Duration) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	ciphertext, err := c.encSvc.Encrypt(string(payload))
	if err != nil {
		return fmt.Errorf("encrypting response: %w", err)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, idempotencyPrefix+key, ciphertext, ttl)
		pipe.Del(ctx, idempotencyLockPrefix+key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis idempotency set: %w", err)
	}
	return nil
}

// Release drops the reservation so the key can be claimed again.
func (c *IdempotencyCache) Release(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, idempotencyLockPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis idempotency release: %w", err)
	}
	return nil
}
