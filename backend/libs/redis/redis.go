package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
)

// Options describes one Redis endpoint. Zero timeouts fall back to defaults.
type Options struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (o Options) validate() error {
	if strings.TrimSpace(o.Addr) == "" {
		return errors.New("redis: addr is empty")
	}
	if o.DB < 0 {
		return errors.New("redis: db index must not be negative")
	}
	return nil
}

func (o Options) client() *redis.Options {
	pick := func(v, fallback time.Duration) time.Duration {
		if v > 0 {
			return v
		}
		return fallback
	}
	return &redis.Options{
		Addr:         strings.TrimSpace(o.Addr),
		Password:     o.Password,
		DB:           o.DB,
		PoolSize:     o.PoolSize,
		DialTimeout:  pick(o.DialTimeout, defaultDialTimeout),
		ReadTimeout:  pick(o.ReadTimeout, defaultReadTimeout),
		WriteTimeout: pick(o.WriteTimeout, defaultWriteTimeout),
	}
}

// NewRedisClient returns a configured go-redis client and validates the connection with PING.
func NewRedisClient(opts Options) (*redis.Client, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	redisOpts := opts.client()
	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), redisOpts.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", redisOpts.Addr, err)
	}

	return client, nil
}
