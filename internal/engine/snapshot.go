package engine

import (
	"context"
	"slices"
	"strings"

	"github.com/hylla/tavla/internal/domain"
)

// BoardSnapshot is a read-consistent view of one board: columns in display
// order and their tasks ordered by position. The realtime gateway sends it to
// a freshly subscribed connection before live events start flowing.
type BoardSnapshot struct {
	Board   domain.Board    `json:"board"`
	Columns []domain.Column `json:"columns"`
	Tasks   []domain.Task   `json:"tasks"`
	Backlog []domain.Task   `json:"backlog"`
}

// Snapshot assembles a board view for a member of any role.
func (e *Engine) Snapshot(ctx context.Context, boardID, userID string) (BoardSnapshot, error) {
	var snapshot BoardSnapshot
	err := e.store.WithTx(ctx, func(tx Tx) error {
		if err := requireMember(ctx, tx, boardID, userID); err != nil {
			return err
		}
		board, err := tx.GetBoard(ctx, boardID)
		if err != nil {
			return err
		}
		columns, err := tx.ListColumns(ctx, boardID)
		if err != nil {
			return err
		}
		tasks, err := tx.ListBoardTasks(ctx, boardID, false)
		if err != nil {
			return err
		}
		slices.SortFunc(columns, func(a, b domain.Column) int {
			return a.Position - b.Position
		})
		placed := make([]domain.Task, 0, len(tasks))
		backlog := make([]domain.Task, 0)
		for _, task := range tasks {
			if task.ColumnID == "" {
				backlog = append(backlog, task)
				continue
			}
			placed = append(placed, task)
		}
		slices.SortFunc(placed, func(a, b domain.Task) int {
			if a.ColumnID == b.ColumnID {
				return a.Position - b.Position
			}
			return strings.Compare(a.ColumnID, b.ColumnID)
		})
		slices.SortFunc(backlog, func(a, b domain.Task) int {
			return strings.Compare(a.ID, b.ID)
		})
		snapshot = BoardSnapshot{
			Board:   board,
			Columns: columns,
			Tasks:   placed,
			Backlog: backlog,
		}
		return nil
	})
	if err != nil {
		return BoardSnapshot{}, err
	}
	return snapshot, nil
}

// TaskHistory lists a task's audit entries, newest first.
func (e *Engine) TaskHistory(ctx context.Context, userID, taskID string, limit int) ([]domain.HistoryEntry, error) {
	var entries []domain.HistoryEntry
	err := e.store.WithTx(ctx, func(tx Tx) error {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if err := requireMember(ctx, tx, task.BoardID, userID); err != nil {
			return err
		}
		entries, err = tx.ListTaskHistory(ctx, taskID, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
