// Package cache keeps read-through copies of pins in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GFB-Team3/backend/internal/models"
)

const (
	allPinsKey = "pins:all"
	// generationKey is bumped by every Invalidate.
	generationKey = "pins:gen"
)

func pinKey(id int) string {
	return fmt.Sprintf("pin:%d", id)
}

// PinCache stores single pins and the full pin listing.
type PinCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func NewPinCache(client *redis.Client, ttl time.Duration) *PinCache {
	return &PinCache{client: client, ttl: ttl}
}

// GetPin reports ok=false on a cache miss.
func (c *PinCache) GetPin(ctx context.Context, id int) (models.Pin, bool, error) {
	var pin models.Pin
	ok, err := c.get(ctx, pinKey(id), &pin)
	return pin, ok, err
}

// Generation returns the current invalidation counter. A missing key is
// generation zero.
func (c *PinCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// SetPin stores pin unless the cache was invalidated after gen was read.
func (c *PinCache) SetPin(ctx context.Context, pin models.Pin, gen int64) error {
	return c.setIfCurrent(ctx, pinKey(pin.ID), pin, gen)
}

func (c *PinCache) GetPins(ctx context.Context) ([]models.Pin, bool, error) {
	var pins []models.Pin
	ok, err := c.get(ctx, allPinsKey, &pins)
	return pins, ok, err
}

func (c *PinCache) SetPins(ctx context.Context, pins []models.Pin, gen int64) error {
	return c.setIfCurrent(ctx, allPinsKey, pins, gen)
}

// Invalidate drops the listing together with the given pins and bumps the
// generation in the same transaction.
func (c *PinCache) Invalidate(ctx context.Context, ids ...int) error {
	keys := make([]string, 0, len(ids)+1)
	keys = append(keys, allPinsKey)
	for _, id := range ids {
		keys = append(keys, pinKey(id))
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		pipe.Del(ctx, keys...)
		return nil
	})
	return err
}

func (c *PinCache) get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// setIfCurrent writes value under WATCH on the generation key. A stale gen or
// an Invalidate racing the write drops the value without an error.
func (c *PinCache) setIfCurrent(ctx context.Context, key string, value any, gen int64) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, generationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, c.ttl)
			return nil
		})
		return err
	}, generationKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}
