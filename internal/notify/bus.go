// Package notify is the best-effort event bus behind the live dashboard feed
// and the worker's attendance counters. Losing an event never affects the
// correctness of issuance or redemption.
package notify

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Topics published by the core services.
const (
	TopicSessionCreated     = "session.created"
	TopicAttendanceRecorded = "attendance.recorded"
)

// CountKey is the redis key holding the worker-maintained live attendance
// count for a session.
func CountKey(sessionID string) string {
	return "accessx:attendance:count:" + sessionID
}

// Event is a broadcast notification.
type Event struct {
	Topic string
	Body  []byte
}

// Bus is the abstraction over different backends.
type Bus interface {
	Publish(ctx context.Context, evt Event) error
	Subscribe(ctx context.Context, topics ...string) (<-chan Event, error)
}

// InMemory fans events out to in-process subscribers. Slow subscribers drop
// events rather than block publishers.
type InMemory struct {
	mu   sync.Mutex
	subs []*memSub
}

type memSub struct {
	topics map[string]bool
	ch     chan Event
}

// NewInMemory creates an in-process bus for dev and tests.
func NewInMemory() *InMemory {
	return &InMemory{}
}

// Publish delivers evt to every matching subscriber without blocking.
func (b *InMemory) Publish(_ context.Context, evt Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if !sub.topics[evt.Topic] {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of events for the given topics. The channel
// closes when ctx is cancelled.
func (b *InMemory) Subscribe(ctx context.Context, topics ...string) (<-chan Event, error) {
	sub := &memSub{topics: make(map[string]bool, len(topics)), ch: make(chan Event, 16)}
	for _, t := range topics {
		sub.topics[t] = true
	}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		for i, s := range b.subs {
			if s == sub {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		close(sub.ch)
	}()
	return sub.ch, nil
}

const redisChannelPrefix = "accessx:events:"

// RedisBus broadcasts events over Redis pub/sub so the api and worker
// processes see the same stream.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus builds a bus on Redis PUBLISH/SUBSCRIBE.
func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

// Publish broadcasts evt on its topic channel.
func (b *RedisBus) Publish(ctx context.Context, evt Event) error {
	return b.client.Publish(ctx, redisChannelPrefix+evt.Topic, evt.Body).Err()
}

// Subscribe streams events for the given topics until ctx is cancelled.
func (b *RedisBus) Subscribe(ctx context.Context, topics ...string) (<-chan Event, error) {
	channels := make([]string, len(topics))
	for i, t := range topics {
		channels[i] = redisChannelPrefix + t
	}
	ps := b.client.Subscribe(ctx, channels...)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer ps.Close()
		in := ps.Channel()
		for {
			select {
			case msg, ok := <-in:
				if !ok {
					return
				}
				out <- Event{
					Topic: strings.TrimPrefix(msg.Channel, redisChannelPrefix),
					Body:  []byte(msg.Payload),
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
