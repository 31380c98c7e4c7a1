// Package archive caches encoded exports in Redis. Finalized documents never
// change, so an export is stored once per (document, format) with its
// SHA-256 checksum and served from the cache until the TTL expires.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/rezonia/fiscal-engine/internal/config"
	"github.com/rezonia/fiscal-engine/internal/export"
)

const (
	fieldData     = "data"
	fieldChecksum = "checksum"
)

// Entry is one cached export
type Entry struct {
	Data     []byte
	Checksum string
}

// Cache stores exports. A nil *Cache is valid and caches nothing.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Entry
}

// Connect opens the cache described by cfg. An empty address returns a nil
// cache and no error.
func Connect(ctx context.Context, cfg config.RedisConfig, logger *logrus.Logger) (*Cache, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("error pinging Redis: %w", err)
	}

	return New(client, cfg.TTL, logger), nil
}

// New wraps an existing client. A zero ttl keeps entries until evicted.
func New(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger.WithField("component", "archive"),
	}
}

// Key is the Redis key of one export
func Key(id uuid.UUID, f export.Format) string {
	return fmt.Sprintf("export:%s:%s", id, f)
}

// Checksum is the hex SHA-256 of data
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached export, or ok=false on a miss. An entry whose
// checksum no longer matches is dropped and reported as a miss.
func (c *Cache) Get(ctx context.Context, id uuid.UUID, f export.Format) (entry *Entry, ok bool, err error) {
	if c == nil {
		return nil, false, nil
	}

	key := Key(id, f)
	values, err := c.client.HMGet(ctx, key, fieldData, fieldChecksum).Result()
	if err != nil {
		return nil, false, fmt.Errorf("error reading %s: %w", key, err)
	}
	data, _ := values[0].(string)
	checksum, _ := values[1].(string)
	if data == "" {
		return nil, false, nil
	}

	if Checksum([]byte(data)) != checksum {
		c.logger.WithField("key", key).Warn("Dropping cached export with mismatching checksum")
		if err := c.client.Del(ctx, key).Err(); err != nil {
			return nil, false, fmt.Errorf("error deleting %s: %w", key, err)
		}
		return nil, false, nil
	}
	return &Entry{Data: []byte(data), Checksum: checksum}, true, nil
}

// Put stores data and returns its checksum
func (c *Cache) Put(ctx context.Context, id uuid.UUID, f export.Format, data []byte) (string, error) {
	checksum := Checksum(data)
	if c == nil {
		return checksum, nil
	}

	key := Key(id, f)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldData, data, fieldChecksum, checksum)
		if c.ttl > 0 {
			pipe.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("error writing %s: %w", key, err)
	}

	c.logger.WithFields(logrus.Fields{
		"key":   key,
		"bytes": len(data),
	}).Debug("Cached export")
	return checksum, nil
}

// Invalidate drops every cached format of a document
func (c *Cache) Invalidate(ctx context.Context, id uuid.UUID, formats ...export.Format) error {
	if c == nil || len(formats) == 0 {
		return nil
	}
	keys := make([]string, len(formats))
	for i, f := range formats {
		keys[i] = Key(id, f)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("error invalidating exports of %s: %w", id, err)
	}
	return nil
}

// HealthCheck pings Redis
func (c *Cache) HealthCheck(ctx context.Context) error {
	if c == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

// Close releases the connection pool
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
