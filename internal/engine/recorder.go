package engine

import (
	"context"
	"time"

	"github.com/hylla/tavla/internal/domain"
)

// The change recorder derives immutable audit entries from every mutation.
// Appends run inside the mutating transaction: if an entry cannot be written
// the whole mutation rolls back, since a mutation without its audit trail is
// treated as not having happened.

// backlogName is the human descriptor recorded when a move starts or ends
// outside any column.
const backlogName = "backlog"

// trackedField pairs a history field name with its textual representation.
type trackedField struct {
	name  string
	value func(domain.Task) string
}

// trackedFields is the fixed set of task fields audited on update. Position
// and column are deliberately absent; moves get their own entry.
var trackedFields = []trackedField{
	{"title", func(t domain.Task) string { return t.Title }},
	{"description", func(t domain.Task) string { return t.Description }},
	{"status", func(t domain.Task) string { return t.Status }},
	{"type", func(t domain.Task) string { return t.Type }},
	{"priority", func(t domain.Task) string { return string(t.Priority) }},
	{"assignee", func(t domain.Task) string { return t.AssigneeID }},
	{"sprint", func(t domain.Task) string { return t.SprintID }},
	{"due_date", func(t domain.Task) string { return formatDueAt(t.DueAt) }},
}

func formatDueAt(due *time.Time) string {
	if due == nil {
		return ""
	}
	return due.UTC().Format(time.RFC3339)
}

// recordAction appends one whole-record entry (created, archived, restored,
// deleted).
func recordAction(ctx context.Context, tx Tx, task domain.Task, actorID string, action domain.HistoryAction, now time.Time) error {
	entry, err := domain.NewHistoryEntry(task.ID, task.BoardID, actorID, action, now)
	if err != nil {
		return err
	}
	return tx.AppendHistory(ctx, entry)
}

// recordUpdate appends one entry per tracked field whose textual value
// changed between the two snapshots, all stamped with the same instant. A
// call where nothing changed appends nothing.
func recordUpdate(ctx context.Context, tx Tx, before, after domain.Task, actorID string, now time.Time) (int, error) {
	changed := 0
	for _, field := range trackedFields {
		oldValue := field.value(before)
		newValue := field.value(after)
		if oldValue == newValue {
			continue
		}
		entry, err := domain.NewHistoryEntry(after.ID, after.BoardID, actorID, domain.HistoryActionUpdated, now)
		if err != nil {
			return changed, err
		}
		entry.Field = field.name
		entry.OldValue = oldValue
		entry.NewValue = newValue
		if err := tx.AppendHistory(ctx, entry); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// recordMove appends a single entry whose old and new values are the source
// and destination column names, not raw ids.
func recordMove(ctx context.Context, tx Tx, task domain.Task, actorID, fromName, toName string, now time.Time) error {
	if fromName == "" {
		fromName = backlogName
	}
	if toName == "" {
		toName = backlogName
	}
	entry, err := domain.NewHistoryEntry(task.ID, task.BoardID, actorID, domain.HistoryActionMoved, now)
	if err != nil {
		return err
	}
	entry.Field = "column"
	entry.OldValue = fromName
	entry.NewValue = toName
	return tx.AppendHistory(ctx, entry)
}
