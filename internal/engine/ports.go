package engine

import (
	"context"
	"time"

	"github.com/hylla/tavla/internal/domain"
)

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time. It is read once per facade call so every
// history entry derived from one mutation shares an instant.
type Clock func() time.Time

// Store opens all-or-nothing transactions over board state. Everything the
// allocator, move coordinator, and recorder touch inside one facade call runs
// against a single Tx; returning an error from fn rolls the whole unit back.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the transactional store handle passed through the engine.
type Tx interface {
	GetBoard(ctx context.Context, id string) (domain.Board, error)
	CreateBoard(ctx context.Context, board domain.Board) error

	GetColumn(ctx context.Context, id string) (domain.Column, error)
	ListColumns(ctx context.Context, boardID string) ([]domain.Column, error)
	CreateColumn(ctx context.Context, column domain.Column) error
	UpdateColumn(ctx context.Context, column domain.Column) error
	DeleteColumn(ctx context.Context, id string) error

	GetTask(ctx context.Context, id string) (domain.Task, error)
	// ListColumnTasks returns the column's non-archived tasks ordered by
	// position ascending; this is the ordering the allocator maintains.
	ListColumnTasks(ctx context.Context, columnID string) ([]domain.Task, error)
	ListBoardTasks(ctx context.Context, boardID string, includeArchived bool) ([]domain.Task, error)
	CreateTask(ctx context.Context, task domain.Task) error
	UpdateTask(ctx context.Context, task domain.Task) error
	UpdateTaskPosition(ctx context.Context, taskID string, position int) error
	DeleteTask(ctx context.Context, id string) error

	AppendHistory(ctx context.Context, entry domain.HistoryEntry) error
	ListTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.HistoryEntry, error)
	DeleteTaskHistory(ctx context.Context, taskID string) error

	GetMembership(ctx context.Context, boardID, userID string) (domain.Membership, error)
	ListMemberships(ctx context.Context, boardID string) ([]domain.Membership, error)
	CreateMembership(ctx context.Context, membership domain.Membership) error
}

// Directory answers which connections are currently eligible to receive an
// event. Connection lifecycle (join on open, leave on disconnect) is owned by
// the realtime adapter, not the engine.
type Directory interface {
	BoardSubscribers(boardID string) []string
	UserConnections(userID string) []string
}

// Pusher delivers a payload to a set of connections, best effort. No
// acknowledgement or retry is expected.
type Pusher interface {
	Push(ctx context.Context, connectionIDs []string, event string, payload []byte) error
}

// Broadcaster consumes committed change events. The facade invokes it after
// the transaction commits, never before.
type Broadcaster interface {
	Broadcast(ctx context.Context, ev domain.ChangeEvent)
}
