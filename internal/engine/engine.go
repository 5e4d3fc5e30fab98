// Package engine implements the board mutation and synchronization engine:
// dense task ordering within columns, capacity-checked moves, an immutable
// audit trail derived from every mutation, and post-commit fan-out of change
// events to subscribed connections.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/hylla/tavla/internal/domain"
)

// Config holds tunables for the engine.
type Config struct {
	// LockWait bounds how long one mutation waits for a contended column
	// before failing with ErrConflict.
	LockWait time.Duration
}

// Engine is the single mutating entry point for board contents. Every
// operation opens one transaction, runs the allocator, move coordinator, and
// change recorder inside it, commits, and only then hands the resulting
// change events to the broadcaster.
type Engine struct {
	store       Store
	broadcaster Broadcaster
	idGen       IDGenerator
	clock       Clock
	locks       *columnLocks
	logger      *log.Logger
}

// New constructs an engine. A nil broadcaster disables fan-out; nil idGen and
// clock fall back to uuid generation and wall time.
func New(store Store, broadcaster Broadcaster, idGen IDGenerator, clock Clock, logger *log.Logger, cfg Config) *Engine {
	if idGen == nil {
		idGen = uuid.NewString
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		store:       store,
		broadcaster: broadcaster,
		idGen:       idGen,
		clock:       clock,
		locks:       newColumnLocks(cfg.LockWait),
		logger:      logger,
	}
}

// publish hands events to the broadcaster after commit. Delivery runs
// detached from the request context: cancelling the caller after commit must
// not suppress fan-out, and a slow subscriber must not block the response.
func (e *Engine) publish(ctx context.Context, events ...domain.ChangeEvent) {
	if e.broadcaster == nil || len(events) == 0 {
		return
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		for _, ev := range events {
			e.broadcaster.Broadcast(detached, ev)
		}
	}()
}

// requireMutator checks that the actor holds a role allowed to mutate the
// board. Callers are expected to have authorized already; this is the
// engine's own re-validation.
func requireMutator(ctx context.Context, tx Tx, boardID, actorID string) error {
	membership, err := tx.GetMembership(ctx, boardID, actorID)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("user %s is not a member of board %s: %w", actorID, boardID, ErrForbidden)
	}
	if err != nil {
		return err
	}
	if !membership.CanMutate() {
		return fmt.Errorf("role %s cannot mutate board %s: %w", membership.Role, boardID, ErrForbidden)
	}
	return nil
}

// requireMember checks that the actor belongs to the board in any role.
func requireMember(ctx context.Context, tx Tx, boardID, actorID string) error {
	_, err := tx.GetMembership(ctx, boardID, actorID)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("user %s is not a member of board %s: %w", actorID, boardID, ErrForbidden)
	}
	return err
}

// requireAdmin checks that the actor administers the board.
func requireAdmin(ctx context.Context, tx Tx, boardID, actorID string) error {
	membership, err := tx.GetMembership(ctx, boardID, actorID)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("user %s is not a member of board %s: %w", actorID, boardID, ErrForbidden)
	}
	if err != nil {
		return err
	}
	if membership.Role != domain.RoleAdmin {
		return fmt.Errorf("role %s cannot administer board %s: %w", membership.Role, boardID, ErrForbidden)
	}
	return nil
}

// CreateBoardInput holds input values for board creation.
type CreateBoardInput struct {
	ActorID string
	Name    string
}

// CreateBoard creates a board with the actor as its admin owner.
func (e *Engine) CreateBoard(ctx context.Context, in CreateBoardInput) (domain.Board, error) {
	now := e.clock()
	board, err := domain.NewBoard(e.idGen(), in.Name, in.ActorID, now)
	if err != nil {
		return domain.Board{}, err
	}
	owner, err := domain.NewMembership(board.ID, board.OwnerID, domain.RoleAdmin, now)
	if err != nil {
		return domain.Board{}, err
	}
	err = e.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.CreateBoard(ctx, board); err != nil {
			return err
		}
		return tx.CreateMembership(ctx, owner)
	})
	if err != nil {
		return domain.Board{}, err
	}
	return board, nil
}

// AddMemberInput holds input values for member addition.
type AddMemberInput struct {
	ActorID string
	BoardID string
	UserID  string
	Role    domain.Role
}

// AddMember links a user to a board. Only board admins may add members.
func (e *Engine) AddMember(ctx context.Context, in AddMemberInput) (domain.Membership, error) {
	now := e.clock()
	membership, err := domain.NewMembership(in.BoardID, in.UserID, in.Role, now)
	if err != nil {
		return domain.Membership{}, err
	}
	err = e.store.WithTx(ctx, func(tx Tx) error {
		if err := requireAdmin(ctx, tx, in.BoardID, in.ActorID); err != nil {
			return err
		}
		return tx.CreateMembership(ctx, membership)
	})
	if err != nil {
		return domain.Membership{}, err
	}
	e.publish(ctx, domain.ChangeEvent{
		Kind:         domain.EventMemberAdded,
		BoardID:      in.BoardID,
		ActorID:      in.ActorID,
		TargetUserID: in.UserID,
	})
	return membership, nil
}

// CreateTaskInput holds input values for task creation. An empty ColumnID
// creates the task in the backlog.
type CreateTaskInput struct {
	ActorID     string
	BoardID     string
	ColumnID    string
	Title       string
	Description string
	Status      string
	Type        string
	Priority    domain.Priority
	AssigneeID  string
	SprintID    string
	DueAt       *time.Time
}

// CreateTask creates a task, appending it at the end of its column's
// ordering. Creating into a full column fails with ErrCapacityExceeded.
func (e *Engine) CreateTask(ctx context.Context, in CreateTaskInput) (domain.Task, error) {
	now := e.clock()
	release, err := e.locks.acquire(ctx, in.ColumnID)
	if err != nil {
		return domain.Task{}, err
	}
	defer release()

	var task domain.Task
	err = e.store.WithTx(ctx, func(tx Tx) error {
		if err := requireMutator(ctx, tx, in.BoardID, in.ActorID); err != nil {
			return err
		}
		if _, err := tx.GetBoard(ctx, in.BoardID); err != nil {
			return err
		}
		position := 0
		if in.ColumnID != "" {
			column, err := tx.GetColumn(ctx, in.ColumnID)
			if err != nil {
				return err
			}
			if column.BoardID != in.BoardID {
				return fmt.Errorf("column %s not on board %s: %w", column.ID, in.BoardID, ErrNotFound)
			}
			siblings, err := tx.ListColumnTasks(ctx, in.ColumnID)
			if err != nil {
				return err
			}
			if !column.HasCapacityFor(len(siblings)) {
				return fmt.Errorf("column %s holds %d of %d tasks: %w",
					column.ID, len(siblings), column.Capacity, ErrCapacityExceeded)
			}
			position = len(siblings)
		}
		created, err := domain.NewTask(domain.TaskInput{
			ID:          e.idGen(),
			BoardID:     in.BoardID,
			ColumnID:    in.ColumnID,
			Position:    position,
			Title:       in.Title,
			Description: in.Description,
			Status:      in.Status,
			Type:        in.Type,
			Priority:    in.Priority,
			AssigneeID:  in.AssigneeID,
			SprintID:    in.SprintID,
			DueAt:       in.DueAt,
		}, now)
		if err != nil {
			return err
		}
		if err := tx.CreateTask(ctx, created); err != nil {
			return err
		}
		if err := recordAction(ctx, tx, created, in.ActorID, domain.HistoryActionCreated, now); err != nil {
			return err
		}
		task = created
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	e.publish(ctx, domain.ChangeEvent{
		Kind:     domain.EventTaskCreated,
		BoardID:  task.BoardID,
		TaskID:   task.ID,
		ColumnID: task.ColumnID,
		ActorID:  in.ActorID,
	})
	return task, nil
}

// UpdateTaskInput holds input values for field updates. Updates never touch
// the ordering; moves go through MoveTask.
type UpdateTaskInput struct {
	ActorID     string
	TaskID      string
	Title       string
	Description string
	Status      string
	Type        string
	Priority    domain.Priority
	AssigneeID  string
	SprintID    string
	DueAt       *time.Time
}

// UpdateTask rewrites a task's mutable fields and records one audit entry per
// field that actually changed. A call that changes nothing writes no history
// but still notifies watchers.
func (e *Engine) UpdateTask(ctx context.Context, in UpdateTaskInput) (domain.Task, error) {
	now := e.clock()
	var task domain.Task
	err := e.store.WithTx(ctx, func(tx Tx) error {
		loaded, err := tx.GetTask(ctx, in.TaskID)
		if err != nil {
			return err
		}
		if err := requireMutator(ctx, tx, loaded.BoardID, in.ActorID); err != nil {
			return err
		}
		before := loaded
		if err := loaded.UpdateDetails(in.Title, in.Description, in.Status, in.Type, in.Priority, in.AssigneeID, in.SprintID, in.DueAt, now); err != nil {
			return err
		}
		if err := tx.UpdateTask(ctx, loaded); err != nil {
			return err
		}
		if _, err := recordUpdate(ctx, tx, before, loaded, in.ActorID, now); err != nil {
			return err
		}
		task = loaded
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	e.publish(ctx, domain.ChangeEvent{
		Kind:     domain.EventTaskUpdated,
		BoardID:  task.BoardID,
		TaskID:   task.ID,
		ColumnID: task.ColumnID,
		ActorID:  in.ActorID,
	})
	return task, nil
}

// MoveTask moves a task to a (possibly different) column at the requested
// index as one atomic step. Writers to the affected columns are serialized;
// a contended column surfaces ErrConflict after the configured wait. A
// detected ordering anomaly triggers one normalize repair and a single retry
// before surfacing ErrInvariantViolation.
func (e *Engine) MoveTask(ctx context.Context, in MoveTaskInput) (domain.Task, error) {
	now := e.clock()
	repaired := false
	for attempt := 0; attempt < 3; attempt++ {
		source, err := e.taskColumn(ctx, in.TaskID)
		if err != nil {
			return domain.Task{}, err
		}
		release, err := e.locks.acquire(ctx, source, in.ToColumnID)
		if err != nil {
			return domain.Task{}, err
		}

		var (
			task domain.Task
			ev   domain.ChangeEvent
		)
		err = e.store.WithTx(ctx, func(tx Tx) error {
			task, ev, err = moveTask(ctx, tx, in, source, now)
			return err
		})
		switch {
		case errors.Is(err, errStaleSource):
			// Another mover relocated the task before we locked; re-read.
			release()
			continue
		case errors.Is(err, ErrInvariantViolation) && !repaired:
			repaired = true
			e.logger.Warn("repairing column ordering", "task_id", in.TaskID, "err", err)
			repairErr := e.store.WithTx(ctx, func(tx Tx) error {
				if source != "" {
					if err := normalize(ctx, tx, source); err != nil {
						return err
					}
				}
				if in.ToColumnID != "" && in.ToColumnID != source {
					return normalize(ctx, tx, in.ToColumnID)
				}
				return nil
			})
			release()
			if repairErr != nil {
				return domain.Task{}, repairErr
			}
			continue
		case err != nil:
			release()
			return domain.Task{}, err
		}
		release()
		e.publish(ctx, ev)
		return task, nil
	}
	return domain.Task{}, fmt.Errorf("move of task %s kept losing its column: %w", in.TaskID, ErrConflict)
}

// taskColumn reads the task's current column so its lock can be taken before
// the mutating transaction opens.
func (e *Engine) taskColumn(ctx context.Context, taskID string) (string, error) {
	var columnID string
	err := e.store.WithTx(ctx, func(tx Tx) error {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		columnID = task.ColumnID
		return nil
	})
	return columnID, err
}

// TaskRefInput identifies a task and the acting user.
type TaskRefInput struct {
	ActorID string
	TaskID  string
}

// ArchiveTask soft-deletes a task: it leaves the column ordering (the gap
// closes immediately) but keeps its row and history.
func (e *Engine) ArchiveTask(ctx context.Context, in TaskRefInput) (domain.Task, error) {
	now := e.clock()
	source, err := e.taskColumn(ctx, in.TaskID)
	if err != nil {
		return domain.Task{}, err
	}
	release, err := e.locks.acquire(ctx, source)
	if err != nil {
		return domain.Task{}, err
	}
	defer release()

	var task domain.Task
	err = e.store.WithTx(ctx, func(tx Tx) error {
		loaded, err := tx.GetTask(ctx, in.TaskID)
		if err != nil {
			return err
		}
		if loaded.ColumnID != source {
			return fmt.Errorf("archive of task %s raced a move: %w", in.TaskID, ErrConflict)
		}
		if err := requireMutator(ctx, tx, loaded.BoardID, in.ActorID); err != nil {
			return err
		}
		if loaded.ArchivedAt != nil {
			task = loaded
			return nil
		}
		if loaded.ColumnID != "" {
			if err := removeFrom(ctx, tx, loaded.ColumnID, loaded.Position); err != nil {
				return err
			}
		}
		loaded.Archive(now)
		if err := tx.UpdateTask(ctx, loaded); err != nil {
			return err
		}
		if err := recordAction(ctx, tx, loaded, in.ActorID, domain.HistoryActionArchived, now); err != nil {
			return err
		}
		task = loaded
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	e.publish(ctx, domain.ChangeEvent{
		Kind:     domain.EventTaskArchived,
		BoardID:  task.BoardID,
		TaskID:   task.ID,
		ColumnID: task.ColumnID,
		ActorID:  in.ActorID,
	})
	return task, nil
}

// RestoreTask unarchives a task, re-appending it at the end of its column's
// ordering. Restoring into a column that has since filled up fails with
// ErrCapacityExceeded.
func (e *Engine) RestoreTask(ctx context.Context, in TaskRefInput) (domain.Task, error) {
	now := e.clock()
	source, err := e.taskColumn(ctx, in.TaskID)
	if err != nil {
		return domain.Task{}, err
	}
	release, err := e.locks.acquire(ctx, source)
	if err != nil {
		return domain.Task{}, err
	}
	defer release()

	var task domain.Task
	err = e.store.WithTx(ctx, func(tx Tx) error {
		loaded, err := tx.GetTask(ctx, in.TaskID)
		if err != nil {
			return err
		}
		if err := requireMutator(ctx, tx, loaded.BoardID, in.ActorID); err != nil {
			return err
		}
		if loaded.ArchivedAt == nil {
			task = loaded
			return nil
		}
		position := 0
		if loaded.ColumnID != "" {
			column, err := tx.GetColumn(ctx, loaded.ColumnID)
			if err != nil {
				return err
			}
			siblings, err := tx.ListColumnTasks(ctx, loaded.ColumnID)
			if err != nil {
				return err
			}
			if !column.HasCapacityFor(len(siblings)) {
				return fmt.Errorf("column %s holds %d of %d tasks: %w",
					column.ID, len(siblings), column.Capacity, ErrCapacityExceeded)
			}
			position = len(siblings)
		}
		loaded.Restore(now)
		if err := loaded.Relocate(loaded.ColumnID, position, now); err != nil {
			return err
		}
		if err := tx.UpdateTask(ctx, loaded); err != nil {
			return err
		}
		if err := recordAction(ctx, tx, loaded, in.ActorID, domain.HistoryActionRestored, now); err != nil {
			return err
		}
		task = loaded
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	e.publish(ctx, domain.ChangeEvent{
		Kind:     domain.EventTaskRestored,
		BoardID:  task.BoardID,
		TaskID:   task.ID,
		ColumnID: task.ColumnID,
		ActorID:  in.ActorID,
	})
	return task, nil
}

// DeleteTask hard-deletes a task. Prior history rows cascade away with the
// task; a single tombstone entry records who deleted it.
func (e *Engine) DeleteTask(ctx context.Context, in TaskRefInput) error {
	now := e.clock()
	source, err := e.taskColumn(ctx, in.TaskID)
	if err != nil {
		return err
	}
	release, err := e.locks.acquire(ctx, source)
	if err != nil {
		return err
	}
	defer release()

	var task domain.Task
	err = e.store.WithTx(ctx, func(tx Tx) error {
		loaded, err := tx.GetTask(ctx, in.TaskID)
		if err != nil {
			return err
		}
		if loaded.ColumnID != source {
			return fmt.Errorf("delete of task %s raced a move: %w", in.TaskID, ErrConflict)
		}
		if err := requireMutator(ctx, tx, loaded.BoardID, in.ActorID); err != nil {
			return err
		}
		if loaded.ArchivedAt == nil && loaded.ColumnID != "" {
			if err := removeFrom(ctx, tx, loaded.ColumnID, loaded.Position); err != nil {
				return err
			}
		}
		if err := tx.DeleteTaskHistory(ctx, loaded.ID); err != nil {
			return err
		}
		if err := tx.DeleteTask(ctx, loaded.ID); err != nil {
			return err
		}
		if err := recordAction(ctx, tx, loaded, in.ActorID, domain.HistoryActionDeleted, now); err != nil {
			return err
		}
		task = loaded
		return nil
	})
	if err != nil {
		return err
	}
	e.publish(ctx, domain.ChangeEvent{
		Kind:     domain.EventTaskDeleted,
		BoardID:  task.BoardID,
		TaskID:   task.ID,
		ColumnID: task.ColumnID,
		ActorID:  in.ActorID,
	})
	return nil
}

// CreateColumnInput holds input values for column creation.
type CreateColumnInput struct {
	ActorID  string
	BoardID  string
	Name     string
	Capacity int
}

// CreateColumn appends a column at the end of the board's column ordering.
func (e *Engine) CreateColumn(ctx context.Context, in CreateColumnInput) (domain.Column, error) {
	now := e.clock()
	var column domain.Column
	err := e.store.WithTx(ctx, func(tx Tx) error {
		if err := requireMutator(ctx, tx, in.BoardID, in.ActorID); err != nil {
			return err
		}
		if _, err := tx.GetBoard(ctx, in.BoardID); err != nil {
			return err
		}
		siblings, err := tx.ListColumns(ctx, in.BoardID)
		if err != nil {
			return err
		}
		created, err := domain.NewColumn(e.idGen(), in.BoardID, in.Name, len(siblings), in.Capacity, now)
		if err != nil {
			return err
		}
		if err := tx.CreateColumn(ctx, created); err != nil {
			return err
		}
		column = created
		return nil
	})
	if err != nil {
		return domain.Column{}, err
	}
	e.publish(ctx, domain.ChangeEvent{
		Kind:     domain.EventColumnCreated,
		BoardID:  column.BoardID,
		ColumnID: column.ID,
		ActorID:  in.ActorID,
	})
	return column, nil
}

// UpdateColumnInput holds input values for column rename and capacity change.
type UpdateColumnInput struct {
	ActorID  string
	ColumnID string
	Name     string
	Capacity int
}

// UpdateColumn renames a column or changes its capacity. Lowering the
// capacity below the current count is allowed; it only blocks future moves in.
func (e *Engine) UpdateColumn(ctx context.Context, in UpdateColumnInput) (domain.Column, error) {
	now := e.clock()
	var column domain.Column
	err := e.store.WithTx(ctx, func(tx Tx) error {
		loaded, err := tx.GetColumn(ctx, in.ColumnID)
		if err != nil {
			return err
		}
		if err := requireMutator(ctx, tx, loaded.BoardID, in.ActorID); err != nil {
			return err
		}
		if err := loaded.Rename(in.Name, now); err != nil {
			return err
		}
		if err := loaded.SetCapacity(in.Capacity, now); err != nil {
			return err
		}
		if err := tx.UpdateColumn(ctx, loaded); err != nil {
			return err
		}
		column = loaded
		return nil
	})
	if err != nil {
		return domain.Column{}, err
	}
	e.publish(ctx, domain.ChangeEvent{
		Kind:     domain.EventColumnUpdated,
		BoardID:  column.BoardID,
		ColumnID: column.ID,
		ActorID:  in.ActorID,
	})
	return column, nil
}

// DeleteColumnInput identifies a column and the acting user.
type DeleteColumnInput struct {
	ActorID  string
	ColumnID string
}

// DeleteColumn removes an empty column and closes the gap in the board's
// column ordering. A column still holding live tasks fails with
// ErrColumnNotEmpty; archived tasks that referenced it fall back to the
// backlog.
func (e *Engine) DeleteColumn(ctx context.Context, in DeleteColumnInput) error {
	now := e.clock()
	release, err := e.locks.acquire(ctx, in.ColumnID)
	if err != nil {
		return err
	}
	defer release()

	var column domain.Column
	err = e.store.WithTx(ctx, func(tx Tx) error {
		loaded, err := tx.GetColumn(ctx, in.ColumnID)
		if err != nil {
			return err
		}
		if err := requireMutator(ctx, tx, loaded.BoardID, in.ActorID); err != nil {
			return err
		}
		live, err := tx.ListColumnTasks(ctx, loaded.ID)
		if err != nil {
			return err
		}
		if len(live) > 0 {
			return fmt.Errorf("column %s holds %d tasks: %w", loaded.ID, len(live), ErrColumnNotEmpty)
		}
		all, err := tx.ListBoardTasks(ctx, loaded.BoardID, true)
		if err != nil {
			return err
		}
		for _, task := range all {
			if task.ColumnID != loaded.ID {
				continue
			}
			if err := task.Relocate("", 0, now); err != nil {
				return err
			}
			if err := tx.UpdateTask(ctx, task); err != nil {
				return err
			}
		}
		if err := tx.DeleteColumn(ctx, loaded.ID); err != nil {
			return err
		}
		siblings, err := tx.ListColumns(ctx, loaded.BoardID)
		if err != nil {
			return err
		}
		for _, sibling := range siblings {
			if sibling.Position <= loaded.Position {
				continue
			}
			if err := sibling.SetPosition(sibling.Position-1, now); err != nil {
				return err
			}
			if err := tx.UpdateColumn(ctx, sibling); err != nil {
				return err
			}
		}
		column = loaded
		return nil
	})
	if err != nil {
		return err
	}
	e.publish(ctx, domain.ChangeEvent{
		Kind:     domain.EventColumnDeleted,
		BoardID:  column.BoardID,
		ColumnID: column.ID,
		ActorID:  in.ActorID,
	})
	return nil
}

// ReorderColumnsInput holds the full desired column order for a board.
type ReorderColumnsInput struct {
	ActorID    string
	BoardID    string
	OrderedIDs []string
}

// ReorderColumns rewrites column positions to match the given order, which
// must be a permutation of the board's current columns.
func (e *Engine) ReorderColumns(ctx context.Context, in ReorderColumnsInput) error {
	now := e.clock()
	err := e.store.WithTx(ctx, func(tx Tx) error {
		if err := requireMutator(ctx, tx, in.BoardID, in.ActorID); err != nil {
			return err
		}
		columns, err := tx.ListColumns(ctx, in.BoardID)
		if err != nil {
			return err
		}
		if len(in.OrderedIDs) != len(columns) {
			return fmt.Errorf("order lists %d of %d columns: %w", len(in.OrderedIDs), len(columns), domain.ErrInvalidPosition)
		}
		byID := make(map[string]domain.Column, len(columns))
		for _, column := range columns {
			byID[column.ID] = column
		}
		for position, id := range in.OrderedIDs {
			column, ok := byID[id]
			if !ok {
				return fmt.Errorf("column %s not on board %s: %w", id, in.BoardID, ErrNotFound)
			}
			delete(byID, id)
			if column.Position == position {
				continue
			}
			if err := column.SetPosition(position, now); err != nil {
				return err
			}
			if err := tx.UpdateColumn(ctx, column); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.publish(ctx, domain.ChangeEvent{
		Kind:    domain.EventColumnsReordered,
		BoardID: in.BoardID,
		ActorID: in.ActorID,
	})
	return nil
}

// MentionInput identifies a mentioned user inside a board context.
type MentionInput struct {
	ActorID string
	BoardID string
	TaskID  string
	UserID  string
}

// NotifyMention emits a user-scoped event to the mentioned user's
// connections. Comment collaborators reuse the router through this entry
// point; nothing is persisted here.
func (e *Engine) NotifyMention(ctx context.Context, in MentionInput) {
	e.publish(ctx, domain.ChangeEvent{
		Kind:         domain.EventUserMentioned,
		BoardID:      in.BoardID,
		TaskID:       in.TaskID,
		ActorID:      in.ActorID,
		TargetUserID: in.UserID,
	})
}
