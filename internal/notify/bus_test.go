package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTopicFiltering(t *testing.T) {
	bus := NewInMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bus.Subscribe(ctx, TopicSessionCreated)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, Event{Topic: TopicAttendanceRecorded, Body: []byte("ignored")}))
	require.NoError(t, bus.Publish(ctx, Event{Topic: TopicSessionCreated, Body: []byte("wanted")}))

	select {
	case evt := <-events:
		assert.Equal(t, TopicSessionCreated, evt.Topic)
		assert.Equal(t, "wanted", string(evt.Body))
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	select {
	case evt := <-events:
		t.Fatalf("unexpected extra event: %+v", evt)
	default:
	}
}

func TestInMemoryUnsubscribeOnCancel(t *testing.T) {
	bus := NewInMemory()
	ctx, cancel := context.WithCancel(context.Background())

	events, err := bus.Subscribe(ctx, TopicSessionCreated)
	require.NoError(t, err)
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}
