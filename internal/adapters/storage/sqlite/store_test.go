package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hylla/tavla/internal/domain"
	"github.com/hylla/tavla/internal/engine"
)

var testNow = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedBoard(t *testing.T, store *Store) {
	t.Helper()
	board, err := domain.NewBoard("b1", "Release board", "u-admin", testNow)
	if err != nil {
		t.Fatalf("NewBoard() error = %v", err)
	}
	column, err := domain.NewColumn("c1", "b1", "To Do", 0, 0, testNow)
	if err != nil {
		t.Fatalf("NewColumn() error = %v", err)
	}
	membership, err := domain.NewMembership("b1", "u-admin", domain.RoleAdmin, testNow)
	if err != nil {
		t.Fatalf("NewMembership() error = %v", err)
	}
	err = store.WithTx(context.Background(), func(tx engine.Tx) error {
		if err := tx.CreateBoard(context.Background(), board); err != nil {
			return err
		}
		if err := tx.CreateColumn(context.Background(), column); err != nil {
			return err
		}
		return tx.CreateMembership(context.Background(), membership)
	})
	if err != nil {
		t.Fatalf("seed error = %v", err)
	}
}

func TestBoardRoundTrip(t *testing.T) {
	store := openTestStore(t)
	seedBoard(t, store)

	err := store.WithTx(context.Background(), func(tx engine.Tx) error {
		board, err := tx.GetBoard(context.Background(), "b1")
		if err != nil {
			return err
		}
		if board.Name != "Release board" || board.OwnerID != "u-admin" {
			t.Fatalf("unexpected board %#v", board)
		}
		if !board.CreatedAt.Equal(testNow) {
			t.Fatalf("expected created_at %v, got %v", testNow, board.CreatedAt)
		}
		if _, err := tx.GetBoard(context.Background(), "missing"); !errors.Is(err, engine.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}
}

func TestTaskRoundTrip(t *testing.T) {
	store := openTestStore(t)
	seedBoard(t, store)

	due := time.Date(2026, 5, 1, 12, 30, 45, 0, time.UTC)
	task, err := domain.NewTask(domain.TaskInput{
		ID:          "t1",
		BoardID:     "b1",
		ColumnID:    "c1",
		Position:    0,
		Title:       "Ship it",
		Description: "before the deadline",
		Status:      "in_review",
		Type:        "feature",
		Priority:    domain.PriorityHigh,
		AssigneeID:  "u-admin",
		SprintID:    "s1",
		DueAt:       &due,
	}, testNow)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}

	err = store.WithTx(context.Background(), func(tx engine.Tx) error {
		return tx.CreateTask(context.Background(), task)
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	err = store.WithTx(context.Background(), func(tx engine.Tx) error {
		loaded, err := tx.GetTask(context.Background(), "t1")
		if err != nil {
			return err
		}
		if loaded.Title != "Ship it" || loaded.Priority != domain.PriorityHigh || loaded.SprintID != "s1" {
			t.Fatalf("unexpected task %#v", loaded)
		}
		if loaded.DueAt == nil || !loaded.DueAt.Equal(due) {
			t.Fatalf("unexpected due_at %v", loaded.DueAt)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	store := openTestStore(t)
	seedBoard(t, store)

	task, err := domain.NewTask(domain.TaskInput{
		ID: "t1", BoardID: "b1", ColumnID: "c1", Title: "Doomed",
	}, testNow)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	boom := errors.New("boom")
	err = store.WithTx(context.Background(), func(tx engine.Tx) error {
		if err := tx.CreateTask(context.Background(), task); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	err = store.WithTx(context.Background(), func(tx engine.Tx) error {
		_, err := tx.GetTask(context.Background(), "t1")
		if !errors.Is(err, engine.ErrNotFound) {
			t.Fatalf("expected rollback, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}
}

func TestListColumnTasksSkipsArchivedAndOrders(t *testing.T) {
	store := openTestStore(t)
	seedBoard(t, store)

	err := store.WithTx(context.Background(), func(tx engine.Tx) error {
		for i, id := range []string{"t-b", "t-a", "t-c"} {
			task, err := domain.NewTask(domain.TaskInput{
				ID: id, BoardID: "b1", ColumnID: "c1", Position: i, Title: "Task " + id,
			}, testNow)
			if err != nil {
				return err
			}
			if err := tx.CreateTask(context.Background(), task); err != nil {
				return err
			}
		}
		middle, err := tx.GetTask(context.Background(), "t-a")
		if err != nil {
			return err
		}
		middle.Archive(testNow)
		return tx.UpdateTask(context.Background(), middle)
	})
	if err != nil {
		t.Fatalf("seed tasks error = %v", err)
	}

	err = store.WithTx(context.Background(), func(tx engine.Tx) error {
		tasks, err := tx.ListColumnTasks(context.Background(), "c1")
		if err != nil {
			return err
		}
		if len(tasks) != 2 || tasks[0].ID != "t-b" || tasks[1].ID != "t-c" {
			t.Fatalf("unexpected tasks %#v", tasks)
		}
		all, err := tx.ListBoardTasks(context.Background(), "b1", true)
		if err != nil {
			return err
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 tasks including archived, got %d", len(all))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}
}

func TestHistorySurvivesTaskDeletion(t *testing.T) {
	store := openTestStore(t)
	seedBoard(t, store)

	err := store.WithTx(context.Background(), func(tx engine.Tx) error {
		task, err := domain.NewTask(domain.TaskInput{
			ID: "t1", BoardID: "b1", ColumnID: "c1", Title: "Audited",
		}, testNow)
		if err != nil {
			return err
		}
		if err := tx.CreateTask(context.Background(), task); err != nil {
			return err
		}
		for _, action := range []domain.HistoryAction{domain.HistoryActionCreated, domain.HistoryActionUpdated} {
			entry, err := domain.NewHistoryEntry("t1", "b1", "u-admin", action, testNow)
			if err != nil {
				return err
			}
			if err := tx.AppendHistory(context.Background(), entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed error = %v", err)
	}

	// Hard delete wipes prior entries, then a tombstone is appended.
	err = store.WithTx(context.Background(), func(tx engine.Tx) error {
		if err := tx.DeleteTaskHistory(context.Background(), "t1"); err != nil {
			return err
		}
		if err := tx.DeleteTask(context.Background(), "t1"); err != nil {
			return err
		}
		entry, err := domain.NewHistoryEntry("t1", "b1", "u-admin", domain.HistoryActionDeleted, testNow)
		if err != nil {
			return err
		}
		return tx.AppendHistory(context.Background(), entry)
	})
	if err != nil {
		t.Fatalf("delete error = %v", err)
	}

	err = store.WithTx(context.Background(), func(tx engine.Tx) error {
		entries, err := tx.ListTaskHistory(context.Background(), "t1", 10)
		if err != nil {
			return err
		}
		if len(entries) != 1 || entries[0].Action != domain.HistoryActionDeleted {
			t.Fatalf("unexpected history %#v", entries)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}
}

func TestHistoryOrderingAndLimit(t *testing.T) {
	store := openTestStore(t)
	seedBoard(t, store)

	err := store.WithTx(context.Background(), func(tx engine.Tx) error {
		for i := 0; i < 5; i++ {
			entry, err := domain.NewHistoryEntry("t1", "b1", "u-admin", domain.HistoryActionUpdated, testNow.Add(time.Duration(i)*time.Minute))
			if err != nil {
				return err
			}
			if err := tx.AppendHistory(context.Background(), entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed error = %v", err)
	}

	err = store.WithTx(context.Background(), func(tx engine.Tx) error {
		entries, err := tx.ListTaskHistory(context.Background(), "t1", 3)
		if err != nil {
			return err
		}
		if len(entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(entries))
		}
		for i := 1; i < len(entries); i++ {
			if entries[i-1].ID < entries[i].ID {
				t.Fatalf("expected newest first, got %#v", entries)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}
}

func TestMembershipRoundTrip(t *testing.T) {
	store := openTestStore(t)
	seedBoard(t, store)

	err := store.WithTx(context.Background(), func(tx engine.Tx) error {
		membership, err := tx.GetMembership(context.Background(), "b1", "u-admin")
		if err != nil {
			return err
		}
		if membership.Role != domain.RoleAdmin {
			t.Fatalf("unexpected role %q", membership.Role)
		}
		if _, err := tx.GetMembership(context.Background(), "b1", "u-stranger"); !errors.Is(err, engine.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		all, err := tx.ListMemberships(context.Background(), "b1")
		if err != nil {
			return err
		}
		if len(all) != 1 {
			t.Fatalf("expected 1 membership, got %d", len(all))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}
}

func TestEngineOverSQLite(t *testing.T) {
	store := openTestStore(t)
	seedBoard(t, store)

	eng := engine.New(store, nil, nil, func() time.Time { return testNow }, nil, engine.Config{})
	ctx := context.Background()

	task, err := eng.CreateTask(ctx, engine.CreateTaskInput{
		ActorID:  "u-admin",
		BoardID:  "b1",
		ColumnID: "c1",
		Title:    "End to end",
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	column, err := eng.CreateColumn(ctx, engine.CreateColumnInput{
		ActorID: "u-admin",
		BoardID: "b1",
		Name:    "Doing",
	})
	if err != nil {
		t.Fatalf("CreateColumn() error = %v", err)
	}
	moved, err := eng.MoveTask(ctx, engine.MoveTaskInput{
		ActorID:    "u-admin",
		TaskID:     task.ID,
		ToColumnID: column.ID,
		Position:   0,
	})
	if err != nil {
		t.Fatalf("MoveTask() error = %v", err)
	}
	if moved.ColumnID != column.ID || moved.Position != 0 {
		t.Fatalf("unexpected moved task %#v", moved)
	}
	entries, err := eng.TaskHistory(ctx, "u-admin", task.ID, 10)
	if err != nil {
		t.Fatalf("TaskHistory() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected created+moved entries, got %#v", entries)
	}
	if entries[0].Action != domain.HistoryActionMoved || entries[0].OldValue != "To Do" || entries[0].NewValue != "Doing" {
		t.Fatalf("unexpected newest entry %#v", entries[0])
	}
}
