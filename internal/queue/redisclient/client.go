// Package redisclient wraps the optional redis connection shared by the
// registration rate limiter and the readiness probe.
package redisclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrDisabled = errors.New("redis: not configured")

type Client struct {
	redisdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

func New(cfg Config) *Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Client{redisdb: redisdb}
}

// Connect builds the client and checks connectivity once. An empty address
// returns ErrDisabled so callers can fall back to in-process state.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}

	c := New(cfg)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := c.Ping(pingCtx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return c, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return ErrDisabled
	}
	return c.redisdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.redisdb.Close()
}

// Scripter is what the fixed-window limiter needs to run its Lua script.
func (c *Client) Scripter() redis.Scripter {
	return c.redisdb
}

func (c *Client) Raw() *redis.Client {
	return c.redisdb
}
