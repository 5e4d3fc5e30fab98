package engine

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/hylla/tavla/internal/domain"
)

// Router translates a committed change event into outbound notifications.
// Delivery is best effort to currently connected recipients: nothing is
// queued or replayed for connections that join later, and a delivery failure
// is logged, never returned to the mutation that produced the event.
type Router struct {
	dir    Directory
	pusher Pusher
	logger *log.Logger
}

// NewRouter constructs a router over a connection directory and push channel.
func NewRouter(dir Directory, pusher Pusher, logger *log.Logger) *Router {
	if logger == nil {
		logger = log.Default()
	}
	return &Router{dir: dir, pusher: pusher, logger: logger}
}

// Broadcast resolves the event's audience and pushes one notification to
// every eligible connection.
func (r *Router) Broadcast(ctx context.Context, ev domain.ChangeEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		r.logger.Error("encode change event", "kind", ev.Kind, "board_id", ev.BoardID, "err", err)
		return
	}

	var connections []string
	if ev.UserScoped() {
		connections = r.dir.UserConnections(ev.TargetUserID)
	} else {
		connections = r.dir.BoardSubscribers(ev.BoardID)
		if ev.TargetUserID != "" {
			// A board event naming a user (member_added) also reaches that
			// user's connections, which are not yet board subscribers.
			connections = mergeConnections(connections, r.dir.UserConnections(ev.TargetUserID))
		}
	}
	if len(connections) == 0 {
		return
	}

	if err := r.pusher.Push(ctx, connections, string(ev.Kind), payload); err != nil {
		r.logger.Error("push change event",
			"kind", ev.Kind, "board_id", ev.BoardID, "connections", len(connections), "err", err)
	}
}

// mergeConnections unions two sorted connection lists without duplicates.
func mergeConnections(a, b []string) []string {
	merged := make([]string, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	slices.Sort(merged)
	return slices.Compact(merged)
}

// fanOut forwards each event to every wrapped broadcaster.
type fanOut []Broadcaster

// FanOut combines broadcasters, e.g. the local hub router plus a Redis relay
// feeding sibling processes.
func FanOut(broadcasters ...Broadcaster) Broadcaster {
	return fanOut(broadcasters)
}

func (f fanOut) Broadcast(ctx context.Context, ev domain.ChangeEvent) {
	for _, b := range f {
		b.Broadcast(ctx, ev)
	}
}
