package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hylla/tavla/internal/domain"
)

// The ordering allocator keeps task positions within one column dense and
// gap-free: the non-archived tasks of a column always occupy exactly
// {0..n-1}. Every helper runs inside the caller's transaction and restores
// the invariant before returning, so no torn ordering is ever visible
// outside the transaction.

// checkDense verifies the density invariant on a position-ordered task list.
func checkDense(columnID string, tasks []domain.Task) error {
	for i, task := range tasks {
		if task.Position != i {
			return fmt.Errorf("column %s: position %d held by task %s, want %d: %w",
				columnID, task.Position, task.ID, i, ErrInvariantViolation)
		}
	}
	return nil
}

// insertAt opens a slot at index by shifting every task at position >= index
// up by one. The returned index is clamped to [0, count] so an out-of-range
// request appends at the end. The caller assigns the returned index to the
// incoming task.
func insertAt(ctx context.Context, tx Tx, columnID string, index int) (int, error) {
	tasks, err := tx.ListColumnTasks(ctx, columnID)
	if err != nil {
		return 0, err
	}
	if err := checkDense(columnID, tasks); err != nil {
		return 0, err
	}
	if index < 0 {
		index = 0
	}
	if index > len(tasks) {
		index = len(tasks)
	}
	for i := len(tasks) - 1; i >= index; i-- {
		if err := tx.UpdateTaskPosition(ctx, tasks[i].ID, i+1); err != nil {
			return 0, err
		}
	}
	return index, nil
}

// removeFrom closes the gap left at index by shifting every task at position
// > index down by one. The departing task may still be listed at index; its
// own row is the caller's responsibility.
func removeFrom(ctx context.Context, tx Tx, columnID string, index int) error {
	tasks, err := tx.ListColumnTasks(ctx, columnID)
	if err != nil {
		return err
	}
	if err := checkDense(columnID, tasks); err != nil {
		return err
	}
	for i := index + 1; i < len(tasks); i++ {
		if err := tx.UpdateTaskPosition(ctx, tasks[i].ID, i-1); err != nil {
			return err
		}
	}
	return nil
}

// reorderWithin moves one task to index inside its own column as a composite
// remove-then-insert, so index is interpreted against the column without the
// moving task. Returns the clamped index the task ends up at.
func reorderWithin(ctx context.Context, tx Tx, columnID, taskID string, index int) (int, error) {
	tasks, err := tx.ListColumnTasks(ctx, columnID)
	if err != nil {
		return 0, err
	}
	if err := checkDense(columnID, tasks); err != nil {
		return 0, err
	}
	current := slices.IndexFunc(tasks, func(t domain.Task) bool { return t.ID == taskID })
	if current < 0 {
		return 0, fmt.Errorf("task %s not in column %s: %w", taskID, columnID, ErrNotFound)
	}
	mover := tasks[current]
	rest := slices.Delete(slices.Clone(tasks), current, current+1)
	if index < 0 {
		index = 0
	}
	if index > len(rest) {
		index = len(rest)
	}
	ordered := slices.Insert(rest, index, mover)
	for i, task := range ordered {
		if task.Position == i {
			continue
		}
		if err := tx.UpdateTaskPosition(ctx, task.ID, i); err != nil {
			return 0, err
		}
	}
	return index, nil
}

// normalize reassigns 0..n-1 in current relative order. It is a repair path
// for pre-existing anomalies (duplicate or gapped positions from manual data
// edits); steady-state flows never need it. Ties on position break on task id
// so the repair is deterministic.
func normalize(ctx context.Context, tx Tx, columnID string) error {
	tasks, err := tx.ListColumnTasks(ctx, columnID)
	if err != nil {
		return err
	}
	slices.SortStableFunc(tasks, func(a, b domain.Task) int {
		if a.Position != b.Position {
			return a.Position - b.Position
		}
		return strings.Compare(a.ID, b.ID)
	})
	for i, task := range tasks {
		if task.Position == i {
			continue
		}
		if err := tx.UpdateTaskPosition(ctx, task.ID, i); err != nil {
			return err
		}
	}
	return nil
}
