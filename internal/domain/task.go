package domain

import (
	"slices"
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var validPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Task belongs to a board and, optionally, to one of its columns. A task with
// an empty ColumnID sits in the backlog and holds no position. Position is the
// dense zero-based ordinal among the task's column siblings.
type Task struct {
	ID          string     `json:"id"`
	BoardID     string     `json:"boardId"`
	ColumnID    string     `json:"columnId,omitempty"`
	Position    int        `json:"position"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	Type        string     `json:"type,omitempty"`
	Priority    Priority   `json:"priority"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
	SprintID    string     `json:"sprintId,omitempty"`
	DueAt       *time.Time `json:"dueAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ArchivedAt  *time.Time `json:"archivedAt,omitempty"`
}

type TaskInput struct {
	ID          string
	BoardID     string
	ColumnID    string
	Position    int
	Title       string
	Description string
	Status      string
	Type        string
	Priority    Priority
	AssigneeID  string
	SprintID    string
	DueAt       *time.Time
}

func NewTask(in TaskInput, now time.Time) (Task, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.BoardID = strings.TrimSpace(in.BoardID)
	in.ColumnID = strings.TrimSpace(in.ColumnID)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	if in.ID == "" {
		return Task{}, ErrInvalidID
	}
	if in.BoardID == "" {
		return Task{}, ErrInvalidBoardID
	}
	if in.Title == "" {
		return Task{}, ErrInvalidTitle
	}
	if in.Position < 0 {
		return Task{}, ErrInvalidPosition
	}

	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !slices.Contains(validPriorities, in.Priority) {
		return Task{}, ErrInvalidPriority
	}

	return Task{
		ID:          in.ID,
		BoardID:     in.BoardID,
		ColumnID:    in.ColumnID,
		Position:    in.Position,
		Title:       in.Title,
		Description: in.Description,
		Status:      strings.TrimSpace(in.Status),
		Type:        strings.TrimSpace(in.Type),
		Priority:    in.Priority,
		AssigneeID:  strings.TrimSpace(in.AssigneeID),
		SprintID:    strings.TrimSpace(in.SprintID),
		DueAt:       normalizeDueAt(in.DueAt),
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

// Relocate places the task in a column at the given position. An empty column
// id returns the task to the backlog.
func (t *Task) Relocate(columnID string, position int, now time.Time) error {
	if position < 0 {
		return ErrInvalidPosition
	}
	t.ColumnID = strings.TrimSpace(columnID)
	t.Position = position
	t.UpdatedAt = now.UTC()
	return nil
}

func (t *Task) UpdateDetails(title, description, status, taskType string, priority Priority, assigneeID, sprintID string, dueAt *time.Time, now time.Time) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidTitle
	}
	if priority == "" {
		priority = PriorityMedium
	}
	if !slices.Contains(validPriorities, priority) {
		return ErrInvalidPriority
	}
	t.Title = title
	t.Description = strings.TrimSpace(description)
	t.Status = strings.TrimSpace(status)
	t.Type = strings.TrimSpace(taskType)
	t.Priority = priority
	t.AssigneeID = strings.TrimSpace(assigneeID)
	t.SprintID = strings.TrimSpace(sprintID)
	t.DueAt = normalizeDueAt(dueAt)
	t.UpdatedAt = now.UTC()
	return nil
}

func (t *Task) Archive(now time.Time) {
	ts := now.UTC()
	t.ArchivedAt = &ts
	t.UpdatedAt = ts
}

func (t *Task) Restore(now time.Time) {
	t.ArchivedAt = nil
	t.UpdatedAt = now.UTC()
}

func normalizeDueAt(dueAt *time.Time) *time.Time {
	if dueAt == nil {
		return nil
	}
	ts := dueAt.UTC().Truncate(time.Second)
	return &ts
}
