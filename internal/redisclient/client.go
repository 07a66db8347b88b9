package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/reserve_stock.lua
var reserveStockScript string

//go:embed scripts/release_stock.lua
var releaseStockScript string

//go:embed scripts/commit_stock.lua
var commitStockScript string

// ErrUntracked is returned by the stock scripts for items without an inventory hash
var ErrUntracked = errors.New("item is not stock tracked")

type Client struct {
	rdb           *redis.Client
	reserveScript *redis.Script
	releaseScript *redis.Script
	commitScript  *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newClient(rdb), nil
}

func newClient(rdb *redis.Client) *Client {
	return &Client{
		rdb:           rdb,
		reserveScript: redis.NewScript(reserveStockScript),
		releaseScript: redis.NewScript(releaseStockScript),
		commitScript:  redis.NewScript(commitStockScript),
	}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the Redis connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func inventoryKey(itemID int64) string {
	return fmt.Sprintf("inventory:%d", itemID)
}

func scriptResult(result interface{}, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	code, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected script result type %T", result)
	}
	if code == -1 {
		return code, ErrUntracked
	}
	return code, nil
}

// ReserveStock atomically reserves stock using Lua script.
// Returns true if reservation successful, false if insufficient stock,
// ErrUntracked if the item has no inventory
func (c *Client) ReserveStock(ctx context.Context, itemID int64, quantity int) (bool, error) {
	code, err := scriptResult(c.reserveScript.Run(ctx, c.rdb, []string{inventoryKey(itemID)}, quantity).Result())
	if err != nil {
		if errors.Is(err, ErrUntracked) {
			return false, err
		}
		return false, fmt.Errorf("reserve stock script failed: %w", err)
	}
	return code == 1, nil
}

// ReleaseStock atomically releases reserved stock (compensation)
func (c *Client) ReleaseStock(ctx context.Context, itemID int64, quantity int) error {
	_, err := scriptResult(c.releaseScript.Run(ctx, c.rdb, []string{inventoryKey(itemID)}, quantity).Result())
	if err != nil && !errors.Is(err, ErrUntracked) {
		return fmt.Errorf("release stock script failed: %w", err)
	}
	return err
}

// CommitStock atomically commits reserved stock (final deduction)
func (c *Client) CommitStock(ctx context.Context, itemID int64, quantity int) error {
	_, err := scriptResult(c.commitScript.Run(ctx, c.rdb, []string{inventoryKey(itemID)}, quantity).Result())
	if err != nil && !errors.Is(err, ErrUntracked) {
		return fmt.Errorf("commit stock script failed: %w", err)
	}
	return err
}

// InitInventory initializes inventory count in Redis
func (c *Client) InitInventory(ctx context.Context, itemID int64, available, reserved int) error {
	key := inventoryKey(itemID)

	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, "available", available)
	pipe.HSet(ctx, key, "reserved", reserved)

	_, err := pipe.Exec(ctx)
	return err
}

// SetIdempotencyKey stores an idempotency key with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), value, ttl).Err()
}

// GetIdempotencyKey returns the value stored for an idempotency key
func (c *Client) GetIdempotencyKey(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
