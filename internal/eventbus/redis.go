package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBus is a Redis Streams-backed Bus: each run gets its own stream
// key, XADD durably appends every chunk, and Subscribe reads from the
// beginning of the stream (XRANGE) before switching to a blocking
// XREAD tail, giving a late-attaching consumer the same full replay
// MemoryBus provides. Grounded on the pulse client shape in the pack's
// goadesign-goa-ai repo (features/stream/pulse/clients/pulse/client.go)
// — a single Client wrapping one stream per logical channel — but
// implemented directly against go-redis Streams rather than goa's
// pulse framework, which is goa-specific.
type RedisBus struct {
	rdb       *redis.Client
	keyPrefix string
	maxLen    int64
	expiry    time.Duration
	blockWait time.Duration
}

// RedisBusConfig configures a RedisBus.
type RedisBusConfig struct {
	// KeyPrefix namespaces stream keys; the run id is appended.
	// Default: "agentcore:run:".
	KeyPrefix string

	// MaxLen approximately caps each stream's length (old entries are
	// trimmed); 0 means unbounded, matching spec §5's "does not drop
	// messages" for the run's own lifetime.
	MaxLen int64

	// Expiry sets a TTL on the stream key so finished runs' channels
	// are eventually reclaimed; 0 means no expiry.
	Expiry time.Duration

	// BlockWait is how long a single XREAD call blocks waiting for new
	// entries before looping to recheck context cancellation.
	// Default: 2s.
	BlockWait time.Duration
}

func (c *RedisBusConfig) sanitize() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "agentcore:run:"
	}
	if c.BlockWait <= 0 {
		c.BlockWait = 2 * time.Second
	}
}

// NewRedisBus wraps an existing *redis.Client.
func NewRedisBus(rdb *redis.Client, cfg RedisBusConfig) *RedisBus {
	cfg.sanitize()
	return &RedisBus{
		rdb:       rdb,
		keyPrefix: cfg.KeyPrefix,
		maxLen:    cfg.MaxLen,
		expiry:    cfg.Expiry,
		blockWait: cfg.BlockWait,
	}
}

func (b *RedisBus) streamKey(runID string) string {
	return b.keyPrefix + runID
}

const payloadField = "data"

func (b *RedisBus) Publish(ctx context.Context, runID string, payload []byte) error {
	args := &redis.XAddArgs{
		Stream: b.streamKey(runID),
		Values: map[string]any{payloadField: payload},
	}
	if b.maxLen > 0 {
		args.MaxLen = b.maxLen
		args.Approx = true
	}
	if err := b.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("eventbus: xadd: %w", err)
	}
	if b.expiry > 0 {
		b.rdb.Expire(ctx, b.streamKey(runID), b.expiry)
	}
	return nil
}

// Subscribe replays the stream from id "0" and then tails new entries
// via blocking XREAD. The returned channel closes when ctx is done or
// Close deletes the stream key.
func (b *RedisBus) Subscribe(ctx context.Context, runID string) (<-chan []byte, error) {
	out := make(chan []byte, 64)
	key := b.streamKey(runID)

	go func() {
		defer close(out)
		lastID := "0"
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			res, err := b.rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{key, lastID},
				Block:   b.blockWait,
				Count:   100,
			}).Result()
			if err == redis.Nil {
				// Block timeout with nothing new; loop to recheck ctx
				// and confirm the stream still exists.
				exists, existsErr := b.rdb.Exists(ctx, key).Result()
				if existsErr == nil && exists == 0 {
					return
				}
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				continue
			}

			for _, stream := range res {
				for _, msg := range stream.Messages {
					lastID = msg.ID
					raw, ok := msg.Values[payloadField]
					if !ok {
						continue
					}
					payload := toBytes(raw)
					select {
					case out <- payload:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out, nil
}

// Close deletes the run's stream, signalling every tailing Subscribe
// goroutine (via its next Exists check) to stop.
func (b *RedisBus) Close(ctx context.Context, runID string) error {
	return b.rdb.Del(ctx, b.streamKey(runID)).Err()
}

func toBytes(v any) []byte {
	switch t := v.(type) {
	case []byte:
		return t
	case string:
		return []byte(t)
	default:
		return []byte(fmt.Sprint(t))
	}
}
