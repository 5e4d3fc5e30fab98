package hub

import (
	"context"
	"slices"
	"testing"
)

func TestBoardSubscribers(t *testing.T) {
	h := New(0)
	first := h.Connect("u1")
	second := h.Connect("u2")
	third := h.Connect("u1")

	h.Subscribe(first.ID, "b1")
	h.Subscribe(second.ID, "b1")
	h.Subscribe(third.ID, "b2")

	got := h.BoardSubscribers("b1")
	want := []string{first.ID, second.ID}
	slices.Sort(want)
	if !slices.Equal(got, want) {
		t.Fatalf("BoardSubscribers() = %v, want %v", got, want)
	}
	if got := h.BoardSubscribers("b-unknown"); len(got) != 0 {
		t.Fatalf("expected no subscribers, got %v", got)
	}

	h.Unsubscribe(second.ID, "b1")
	if got := h.BoardSubscribers("b1"); !slices.Equal(got, []string{first.ID}) {
		t.Fatalf("expected only the remaining subscriber, got %v", got)
	}
}

func TestUserConnections(t *testing.T) {
	h := New(0)
	first := h.Connect("u1")
	second := h.Connect("u1")
	h.Connect("u2")

	got := h.UserConnections("u1")
	want := []string{first.ID, second.ID}
	slices.Sort(want)
	if !slices.Equal(got, want) {
		t.Fatalf("UserConnections() = %v, want %v", got, want)
	}
}

func TestPushDelivers(t *testing.T) {
	h := New(0)
	conn := h.Connect("u1")
	h.Subscribe(conn.ID, "b1")

	if err := h.Push(context.Background(), h.BoardSubscribers("b1"), "task.moved", []byte(`{"task_id":"t1"}`)); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	msg := <-conn.Messages
	if msg.Event != "task.moved" || string(msg.Data) != `{"task_id":"t1"}` {
		t.Fatalf("unexpected message %#v", msg)
	}
}

func TestPushDropsWhenBufferFull(t *testing.T) {
	h := New(1)
	conn := h.Connect("u1")

	for i := 0; i < 5; i++ {
		if err := h.Push(context.Background(), []string{conn.ID}, "task.updated", nil); err != nil {
			t.Fatalf("Push() error = %v", err)
		}
	}
	// Only the buffered message is retained; the rest were dropped without
	// blocking the pusher.
	<-conn.Messages
	select {
	case msg := <-conn.Messages:
		t.Fatalf("expected dropped overflow, got %#v", msg)
	default:
	}
}

func TestCloseDeregisters(t *testing.T) {
	h := New(0)
	conn := h.Connect("u1")
	h.Subscribe(conn.ID, "b1")
	conn.Close()

	if got := h.BoardSubscribers("b1"); len(got) != 0 {
		t.Fatalf("expected no subscribers after close, got %v", got)
	}
	if got := h.UserConnections("u1"); len(got) != 0 {
		t.Fatalf("expected no user connections after close, got %v", got)
	}
	if _, ok := <-conn.Messages; ok {
		t.Fatal("expected closed message channel")
	}
	// Pushing to a closed connection is a no-op, not a panic.
	if err := h.Push(context.Background(), []string{conn.ID}, "task.updated", nil); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
}
