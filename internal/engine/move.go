package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hylla/tavla/internal/domain"
)

// errStaleSource signals that the task changed columns between the lock
// snapshot and the transaction; the facade re-reads and retries.
var errStaleSource = errors.New("task left its locked column")

// MoveTaskInput holds input values for move operations. An empty ToColumnID
// returns the task to the backlog. Position is clamped to the destination's
// size, so any large value appends at the end.
type MoveTaskInput struct {
	ActorID    string
	TaskID     string
	ToColumnID string
	Position   int
}

// moveTask is the transaction body of one move: capacity check, allocator
// shifts, the task's own row, and the audit entry, all against one Tx. The
// caller holds the column locks for lockedSource and in.ToColumnID.
func moveTask(ctx context.Context, tx Tx, in MoveTaskInput, lockedSource string, now time.Time) (domain.Task, domain.ChangeEvent, error) {
	task, err := tx.GetTask(ctx, in.TaskID)
	if err != nil {
		return domain.Task{}, domain.ChangeEvent{}, err
	}
	if task.ColumnID != lockedSource {
		return domain.Task{}, domain.ChangeEvent{}, errStaleSource
	}
	if task.ArchivedAt != nil {
		return domain.Task{}, domain.ChangeEvent{}, fmt.Errorf("task %s is archived: %w", task.ID, ErrNotFound)
	}
	if err := requireMutator(ctx, tx, task.BoardID, in.ActorID); err != nil {
		return domain.Task{}, domain.ChangeEvent{}, err
	}

	origColumnID := task.ColumnID
	origPosition := task.Position

	fromName := ""
	if task.ColumnID != "" {
		from, err := tx.GetColumn(ctx, task.ColumnID)
		if err != nil {
			return domain.Task{}, domain.ChangeEvent{}, err
		}
		fromName = from.Name
	}
	toName := ""
	var dest domain.Column
	if in.ToColumnID != "" {
		dest, err = tx.GetColumn(ctx, in.ToColumnID)
		if err != nil {
			return domain.Task{}, domain.ChangeEvent{}, err
		}
		if dest.BoardID != task.BoardID {
			return domain.Task{}, domain.ChangeEvent{}, fmt.Errorf("column %s not on board %s: %w", dest.ID, task.BoardID, ErrNotFound)
		}
		toName = dest.Name
	}

	switch {
	case task.ColumnID == in.ToColumnID && in.ToColumnID == "":
		// Backlog to backlog: nothing to reorder, still an accepted touch.
	case task.ColumnID == in.ToColumnID:
		index, err := reorderWithin(ctx, tx, task.ColumnID, task.ID, in.Position)
		if err != nil {
			return domain.Task{}, domain.ChangeEvent{}, err
		}
		if err := task.Relocate(task.ColumnID, index, now); err != nil {
			return domain.Task{}, domain.ChangeEvent{}, err
		}
		if err := tx.UpdateTask(ctx, task); err != nil {
			return domain.Task{}, domain.ChangeEvent{}, err
		}
	default:
		if in.ToColumnID != "" {
			destTasks, err := tx.ListColumnTasks(ctx, in.ToColumnID)
			if err != nil {
				return domain.Task{}, domain.ChangeEvent{}, err
			}
			if !dest.HasCapacityFor(len(destTasks)) {
				return domain.Task{}, domain.ChangeEvent{}, fmt.Errorf("column %s holds %d of %d tasks: %w",
					dest.ID, len(destTasks), dest.Capacity, ErrCapacityExceeded)
			}
		}
		if task.ColumnID != "" {
			if err := removeFrom(ctx, tx, task.ColumnID, task.Position); err != nil {
				return domain.Task{}, domain.ChangeEvent{}, err
			}
		}
		index := 0
		if in.ToColumnID != "" {
			index, err = insertAt(ctx, tx, in.ToColumnID, in.Position)
			if err != nil {
				return domain.Task{}, domain.ChangeEvent{}, err
			}
		}
		if err := task.Relocate(in.ToColumnID, index, now); err != nil {
			return domain.Task{}, domain.ChangeEvent{}, err
		}
		if err := tx.UpdateTask(ctx, task); err != nil {
			return domain.Task{}, domain.ChangeEvent{}, err
		}
	}

	// A no-op move (same column, same position) still commits and notifies
	// watchers, but produces no audit noise.
	if task.ColumnID != origColumnID || task.Position != origPosition {
		if err := recordMove(ctx, tx, task, in.ActorID, fromName, toName, now); err != nil {
			return domain.Task{}, domain.ChangeEvent{}, err
		}
	}

	ev := domain.ChangeEvent{
		Kind:       domain.EventTaskMoved,
		BoardID:    task.BoardID,
		TaskID:     task.ID,
		ToColumnID: task.ColumnID,
		ActorID:    in.ActorID,
	}
	if lockedSource != task.ColumnID {
		ev.FromColumnID = lockedSource
	}
	return task, ev, nil
}
