package realtime

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type RedisFeed struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewRedisFeed(rdb *redis.Client, logger *slog.Logger) *RedisFeed {
	return &RedisFeed{rdb: rdb, logger: logger}
}

func (f *RedisFeed) Publish(ctx context.Context, channel string, payload []byte) error {
	return f.rdb.Publish(ctx, channel, payload).Err()
}

func (f *RedisFeed) Subscribe(ctx context.Context, channel string, fn func(payload []byte)) (func(), error) {
	sub := f.rdb.Subscribe(ctx, channel)
	// Force the subscription onto the wire before returning so callers
	// don't miss events published immediately after Subscribe.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	go func() {
		for msg := range sub.Channel() {
			fn([]byte(msg.Payload))
		}
	}()

	stop := func() {
		if err := sub.Close(); err != nil {
			f.logger.Warn("feed unsubscribe failed", "channel", channel, "err", err)
		}
	}
	return stop, nil
}

// ReadyCheck pings Redis for /readyz.
func ReadyCheck(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}
