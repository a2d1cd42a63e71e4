package eventbus

import (
	"context"
	"sync"
)

// channel is one run's durable, replayable log plus its live
// subscribers. Every payload ever published is retained for the life of
// the channel so a late subscriber still replays from the start.
type channel struct {
	mu     sync.Mutex
	log    [][]byte
	closed bool
	subs   map[chan []byte]struct{}
}

// MemoryBus is an in-process Bus, single-producer/many-consumer per run,
// useful for tests and for running the dispatcher without Redis. It
// never drops messages: Publish appends to the durable log and fans the
// payload out to every live subscriber channel (buffered generously; a
// slow consumer blocks the publisher rather than losing data, matching
// spec §5's backpressure policy).
type MemoryBus struct {
	mu       sync.Mutex
	channels map[string]*channel
}

// NewMemoryBus returns an empty MemoryBus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{channels: make(map[string]*channel)}
}

func (b *MemoryBus) getOrCreate(runID string) *channel {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.channels[runID]
	if !ok {
		c = &channel{subs: make(map[chan []byte]struct{})}
		b.channels[runID] = c
	}
	return c
}

func (b *MemoryBus) Publish(ctx context.Context, runID string, payload []byte) error {
	c := b.getOrCreate(runID)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	cp := append([]byte(nil), payload...)
	c.log = append(c.log, cp)
	subs := make([]chan []byte, 0, len(c.subs))
	for ch := range c.subs {
		subs = append(subs, ch)
	}
	c.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- cp:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, runID string) (<-chan []byte, error) {
	c := b.getOrCreate(runID)
	out := make(chan []byte, 64)

	c.mu.Lock()
	backlog := append([][]byte(nil), c.log...)
	closed := c.closed
	if !closed {
		c.subs[out] = struct{}{}
	}
	c.mu.Unlock()

	go func() {
		for _, payload := range backlog {
			select {
			case out <- payload:
			case <-ctx.Done():
				b.unsubscribe(c, out)
				return
			}
		}
		if closed {
			close(out)
			return
		}
		<-ctx.Done()
		b.unsubscribe(c, out)
	}()

	return out, nil
}

func (b *MemoryBus) unsubscribe(c *channel, ch chan []byte) {
	c.mu.Lock()
	if _, ok := c.subs[ch]; ok {
		delete(c.subs, ch)
		close(ch)
	}
	c.mu.Unlock()
}

func (b *MemoryBus) Close(ctx context.Context, runID string) error {
	c := b.getOrCreate(runID)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for ch := range c.subs {
		close(ch)
	}
	c.subs = make(map[chan []byte]struct{})
	return nil
}
