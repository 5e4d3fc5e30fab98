package domain

import (
	"strings"
	"time"
)

// HistoryAction tags a persisted audit entry for a task.
type HistoryAction string

// HistoryAction values written by the change recorder.
const (
	HistoryActionCreated  HistoryAction = "created"
	HistoryActionUpdated  HistoryAction = "updated"
	HistoryActionMoved    HistoryAction = "moved"
	HistoryActionArchived HistoryAction = "archived"
	HistoryActionRestored HistoryAction = "restored"
	HistoryActionDeleted  HistoryAction = "deleted"
)

// HistoryEntry is one immutable audit record. Field, OldValue, and NewValue
// are populated for update entries (one entry per changed field) and for move
// entries, where the values carry the source and destination column names.
type HistoryEntry struct {
	ID         int64         `json:"id"`
	TaskID     string        `json:"taskId"`
	BoardID    string        `json:"boardId"`
	ActorID    string        `json:"actorId"`
	Action     HistoryAction `json:"action"`
	Field      string        `json:"field,omitempty"`
	OldValue   string        `json:"oldValue,omitempty"`
	NewValue   string        `json:"newValue,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}

// NewHistoryEntry constructs a validated audit record.
func NewHistoryEntry(taskID, boardID, actorID string, action HistoryAction, now time.Time) (HistoryEntry, error) {
	taskID = strings.TrimSpace(taskID)
	boardID = strings.TrimSpace(boardID)
	actorID = strings.TrimSpace(actorID)
	if taskID == "" {
		return HistoryEntry{}, ErrInvalidID
	}
	if boardID == "" {
		return HistoryEntry{}, ErrInvalidBoardID
	}
	if actorID == "" {
		return HistoryEntry{}, ErrInvalidUserID
	}
	return HistoryEntry{
		TaskID:     taskID,
		BoardID:    boardID,
		ActorID:    actorID,
		Action:     action,
		OccurredAt: now.UTC(),
	}, nil
}
