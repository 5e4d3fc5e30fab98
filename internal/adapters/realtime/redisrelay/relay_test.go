package redisrelay

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/hylla/tavla/internal/domain"
)

func testClient(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type captureBroadcaster struct {
	events chan domain.ChangeEvent
}

func (c *captureBroadcaster) Broadcast(_ context.Context, ev domain.ChangeEvent) {
	c.events <- ev
}

func TestRelayRoundTrip(t *testing.T) {
	client := testClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := &captureBroadcaster{events: make(chan domain.ChangeEvent, 4)}
	done := make(chan struct{})
	go func() {
		defer close(done)
		Subscribe(ctx, client, "", "proc-b", local, nil)
	}()

	publisher := NewPublisher(client, "", "proc-a", nil)
	ev := domain.ChangeEvent{
		Kind:    domain.EventTaskMoved,
		BoardID: "b1",
		TaskID:  "t1",
		ActorID: "u-member",
	}
	deadline := time.After(5 * time.Second)
	for {
		// The subscriber may not have attached yet; republish until the event
		// arrives or the deadline passes.
		publisher.Broadcast(ctx, ev)
		select {
		case got := <-local.events:
			if got.Kind != domain.EventTaskMoved || got.TaskID != "t1" || got.BoardID != "b1" {
				t.Fatalf("unexpected event %#v", got)
			}
			cancel()
			<-done
			return
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatal("timed out waiting for relayed event")
		}
	}
}

func TestRelaySkipsOwnOrigin(t *testing.T) {
	client := testClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := &captureBroadcaster{events: make(chan domain.ChangeEvent, 4)}
	go Subscribe(ctx, client, "", "proc-a", local, nil)

	// Give the subscriber a moment to attach, then publish from the same
	// origin: nothing must reach the local broadcaster.
	time.Sleep(100 * time.Millisecond)
	publisher := NewPublisher(client, "", "proc-a", nil)
	publisher.Broadcast(ctx, domain.ChangeEvent{Kind: domain.EventTaskCreated, BoardID: "b1"})

	select {
	case ev := <-local.events:
		t.Fatalf("own publication echoed back: %#v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}
