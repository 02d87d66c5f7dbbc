// Package realtime is the change-feed capability used to tell open
// schedule views that a date's availability changed. It is deliberately
// a narrow publish/subscribe interface so the transport (Redis pub/sub
// here) stays swappable.
package realtime

import "context"

// Feed publishes and subscribes to named channels. Subscribe returns a
// stop function; the callback runs on the feed's goroutine and must not
// block.
type Feed interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string, fn func(payload []byte)) (stop func(), err error)
}

// ScheduleChannel names the per-date invalidation channel.
func ScheduleChannel(date string) string {
	return "schedule:" + date
}

// NopFeed drops publishes and never delivers; used when Redis is not
// configured.
type NopFeed struct{}

func (NopFeed) Publish(context.Context, string, []byte) error { return nil }

func (NopFeed) Subscribe(context.Context, string, func([]byte)) (func(), error) {
	return func() {}, nil
}
