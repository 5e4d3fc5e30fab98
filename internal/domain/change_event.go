package domain

// EventKind describes what a committed mutation did.
type EventKind string

// EventKind values produced by the mutation facade.
const (
	EventTaskCreated      EventKind = "task_created"
	EventTaskUpdated      EventKind = "task_updated"
	EventTaskMoved        EventKind = "task_moved"
	EventTaskArchived     EventKind = "task_archived"
	EventTaskRestored     EventKind = "task_restored"
	EventTaskDeleted      EventKind = "task_deleted"
	EventColumnCreated    EventKind = "column_created"
	EventColumnUpdated    EventKind = "column_updated"
	EventColumnDeleted    EventKind = "column_deleted"
	EventColumnsReordered EventKind = "columns_reordered"
	EventMemberAdded      EventKind = "member_added"
	EventUserMentioned    EventKind = "user_mentioned"
)

// ChangeEvent is a transient description of one committed mutation. It is
// never persisted; the facade hands it to the broadcast router after the
// transaction commits. Board-scoped events go to every connection subscribed
// to the board; user-scoped events go only to the target user's connections.
type ChangeEvent struct {
	Kind         EventKind `json:"kind"`
	BoardID      string    `json:"boardId"`
	TaskID       string    `json:"taskId,omitempty"`
	ColumnID     string    `json:"columnId,omitempty"`
	FromColumnID string    `json:"fromColumnId,omitempty"`
	ToColumnID   string    `json:"toColumnId,omitempty"`
	ActorID      string    `json:"actorId,omitempty"`
	TargetUserID string    `json:"targetUserId,omitempty"`
}

// UserScoped reports whether the event addresses a single user rather than a
// board channel. Member events carry a TargetUserID too but fan out to the
// whole board in addition to the named user's own connections.
func (e ChangeEvent) UserScoped() bool {
	return e.Kind == EventUserMentioned
}
