package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Client wraps the go-redis client used for batch status keys and the job stream
type Client struct {
	*redis.Client
}

// NewClient connects to Redis and verifies the connection with a PING
func NewClient(ctx context.Context, host, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         host,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", host, err)
	}

	log.Info().Str("host", host).Int("db", db).Msg("Connected to Redis")
	return &Client{Client: rdb}, nil
}
