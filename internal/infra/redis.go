package infra

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// NewRedis opens the client shared by the job queues, the DLQ and the bot
// conversation store. Fails fast on an unreachable server so the process
// does not come up half-working.
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}
