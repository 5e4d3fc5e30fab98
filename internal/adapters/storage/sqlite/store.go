// Package sqlite persists board state in a single SQLite database via
// modernc.org/sqlite. Timestamps are stored as RFC 3339 text in UTC.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/tavla/internal/domain"
	"github.com/hylla/tavla/internal/engine"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// Store implements engine.Store over a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the database at path, creating parent directories
// as needed.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The engine serializes writers per column but transactions from separate
	// facade calls still interleave; a single connection sidesteps SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// OpenInMemory opens a fresh in-memory database, used by tests.
func OpenInMemory() (*Store, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies the schema. task_history has no foreign key on tasks: a
// deletion tombstone must survive its task row.
func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS boards (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			archived_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS columns (
			id TEXT PRIMARY KEY,
			board_id TEXT NOT NULL,
			name TEXT NOT NULL,
			position INTEGER NOT NULL,
			capacity INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY(board_id) REFERENCES boards(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			board_id TEXT NOT NULL,
			column_id TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL,
			assignee_id TEXT NOT NULL DEFAULT '',
			sprint_id TEXT NOT NULL DEFAULT '',
			due_at TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			archived_at TEXT,
			FOREIGN KEY(board_id) REFERENCES boards(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS task_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id TEXT NOT NULL,
			board_id TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			action TEXT NOT NULL,
			field TEXT NOT NULL DEFAULT '',
			old_value TEXT NOT NULL DEFAULT '',
			new_value TEXT NOT NULL DEFAULT '',
			occurred_at TEXT NOT NULL,
			FOREIGN KEY(board_id) REFERENCES boards(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS board_members (
			board_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY(board_id, user_id),
			FOREIGN KEY(board_id) REFERENCES boards(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_columns_board_position ON columns(board_id, position);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_column_position ON tasks(column_id, position);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_board ON tasks(board_id);`,
		`CREATE INDEX IF NOT EXISTS idx_task_history_task ON task_history(task_id, id DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// WithTx runs fn against one transaction; any error rolls everything back.
func (s *Store) WithTx(ctx context.Context, fn func(tx engine.Tx) error) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sqlite tx: %w", err)
	}
	handle := &tx{tx: dbTx}
	if err := fn(handle); err != nil {
		_ = dbTx.Rollback()
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit sqlite tx: %w", err)
	}
	return nil
}

// tx implements engine.Tx over one *sql.Tx.
type tx struct {
	tx *sql.Tx
}

func (t *tx) GetBoard(ctx context.Context, id string) (domain.Board, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, name, owner_id, created_at, updated_at, archived_at
		FROM boards
		WHERE id = ?
	`, id)
	return scanBoard(row)
}

func (t *tx) CreateBoard(ctx context.Context, b domain.Board) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO boards(id, name, owner_id, created_at, updated_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, b.ID, b.Name, b.OwnerID, ts(b.CreatedAt), ts(b.UpdatedAt), nullableTS(b.ArchivedAt))
	return err
}

func (t *tx) GetColumn(ctx context.Context, id string) (domain.Column, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, board_id, name, position, capacity, created_at, updated_at
		FROM columns
		WHERE id = ?
	`, id)
	return scanColumn(row)
}

func (t *tx) ListColumns(ctx context.Context, boardID string) ([]domain.Column, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, board_id, name, position, capacity, created_at, updated_at
		FROM columns
		WHERE board_id = ?
		ORDER BY position ASC, id ASC
	`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Column{}
	for rows.Next() {
		column, err := scanColumn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, column)
	}
	return out, rows.Err()
}

func (t *tx) CreateColumn(ctx context.Context, c domain.Column) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO columns(id, board_id, name, position, capacity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.BoardID, c.Name, c.Position, c.Capacity, ts(c.CreatedAt), ts(c.UpdatedAt))
	return err
}

func (t *tx) UpdateColumn(ctx context.Context, c domain.Column) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE columns
		SET name = ?, position = ?, capacity = ?, updated_at = ?
		WHERE id = ?
	`, c.Name, c.Position, c.Capacity, ts(c.UpdatedAt), c.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

func (t *tx) DeleteColumn(ctx context.Context, id string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM columns WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

const taskColumns = `
	id, board_id, column_id, position, title, description, status, type,
	priority, assignee_id, sprint_id, due_at, created_at, updated_at, archived_at`

func (t *tx) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = ?
	`, id)
	return scanTask(row)
}

func (t *tx) ListColumnTasks(ctx context.Context, columnID string) ([]domain.Task, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE column_id = ? AND archived_at IS NULL
		ORDER BY position ASC, id ASC
	`, columnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (t *tx) ListBoardTasks(ctx context.Context, boardID string, includeArchived bool) ([]domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE board_id = ?
	`
	if !includeArchived {
		query += ` AND archived_at IS NULL`
	}
	query += ` ORDER BY column_id ASC, position ASC, id ASC`

	rows, err := t.tx.QueryContext(ctx, query, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (t *tx) CreateTask(ctx context.Context, task domain.Task) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO tasks(`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		task.ID,
		task.BoardID,
		task.ColumnID,
		task.Position,
		task.Title,
		task.Description,
		task.Status,
		task.Type,
		string(task.Priority),
		task.AssigneeID,
		task.SprintID,
		nullableTS(task.DueAt),
		ts(task.CreatedAt),
		ts(task.UpdatedAt),
		nullableTS(task.ArchivedAt),
	)
	return err
}

func (t *tx) UpdateTask(ctx context.Context, task domain.Task) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE tasks
		SET column_id = ?, position = ?, title = ?, description = ?, status = ?, type = ?,
		    priority = ?, assignee_id = ?, sprint_id = ?, due_at = ?, updated_at = ?, archived_at = ?
		WHERE id = ?
	`,
		task.ColumnID,
		task.Position,
		task.Title,
		task.Description,
		task.Status,
		task.Type,
		string(task.Priority),
		task.AssigneeID,
		task.SprintID,
		nullableTS(task.DueAt),
		ts(task.UpdatedAt),
		nullableTS(task.ArchivedAt),
		task.ID,
	)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

func (t *tx) UpdateTaskPosition(ctx context.Context, taskID string, position int) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE tasks SET position = ? WHERE id = ?
	`, position, taskID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

func (t *tx) DeleteTask(ctx context.Context, id string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

func (t *tx) AppendHistory(ctx context.Context, entry domain.HistoryEntry) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO task_history(task_id, board_id, actor_id, action, field, old_value, new_value, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.TaskID,
		entry.BoardID,
		entry.ActorID,
		string(entry.Action),
		entry.Field,
		entry.OldValue,
		entry.NewValue,
		ts(entry.OccurredAt),
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

func (t *tx) ListTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, task_id, board_id, actor_id, action, field, old_value, new_value, occurred_at
		FROM task_history
		WHERE task_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, taskID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.HistoryEntry{}
	for rows.Next() {
		var (
			entry       domain.HistoryEntry
			action      string
			occurredRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.TaskID, &entry.BoardID, &entry.ActorID,
			&action, &entry.Field, &entry.OldValue, &entry.NewValue, &occurredRaw); err != nil {
			return nil, err
		}
		entry.Action = domain.HistoryAction(action)
		entry.OccurredAt = parseTS(occurredRaw)
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (t *tx) DeleteTaskHistory(ctx context.Context, taskID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM task_history WHERE task_id = ?`, taskID)
	return err
}

func (t *tx) GetMembership(ctx context.Context, boardID, userID string) (domain.Membership, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT board_id, user_id, role, created_at
		FROM board_members
		WHERE board_id = ? AND user_id = ?
	`, boardID, userID)
	return scanMembership(row)
}

func (t *tx) ListMemberships(ctx context.Context, boardID string) ([]domain.Membership, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT board_id, user_id, role, created_at
		FROM board_members
		WHERE board_id = ?
		ORDER BY user_id ASC
	`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Membership{}
	for rows.Next() {
		membership, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, membership)
	}
	return out, rows.Err()
}

func (t *tx) CreateMembership(ctx context.Context, m domain.Membership) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO board_members(board_id, user_id, role, created_at)
		VALUES (?, ?, ?, ?)
	`, m.BoardID, m.UserID, string(m.Role), ts(m.CreatedAt))
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBoard(s scanner) (domain.Board, error) {
	var (
		b          domain.Board
		createdRaw string
		updatedRaw string
		archived   sql.NullString
	)
	if err := s.Scan(&b.ID, &b.Name, &b.OwnerID, &createdRaw, &updatedRaw, &archived); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Board{}, engine.ErrNotFound
		}
		return domain.Board{}, err
	}
	b.CreatedAt = parseTS(createdRaw)
	b.UpdatedAt = parseTS(updatedRaw)
	b.ArchivedAt = parseNullTS(archived)
	return b, nil
}

func scanColumn(s scanner) (domain.Column, error) {
	var (
		c          domain.Column
		createdRaw string
		updatedRaw string
	)
	if err := s.Scan(&c.ID, &c.BoardID, &c.Name, &c.Position, &c.Capacity, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Column{}, engine.ErrNotFound
		}
		return domain.Column{}, err
	}
	c.CreatedAt = parseTS(createdRaw)
	c.UpdatedAt = parseTS(updatedRaw)
	return c, nil
}

func scanTask(s scanner) (domain.Task, error) {
	var (
		t           domain.Task
		priority    string
		dueRaw      sql.NullString
		createdRaw  string
		updatedRaw  string
		archivedRaw sql.NullString
	)
	if err := s.Scan(
		&t.ID,
		&t.BoardID,
		&t.ColumnID,
		&t.Position,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Type,
		&priority,
		&t.AssigneeID,
		&t.SprintID,
		&dueRaw,
		&createdRaw,
		&updatedRaw,
		&archivedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, engine.ErrNotFound
		}
		return domain.Task{}, err
	}
	t.Priority = domain.Priority(priority)
	t.DueAt = parseNullTS(dueRaw)
	t.CreatedAt = parseTS(createdRaw)
	t.UpdatedAt = parseTS(updatedRaw)
	t.ArchivedAt = parseNullTS(archivedRaw)
	return t, nil
}

func scanMembership(s scanner) (domain.Membership, error) {
	var (
		m          domain.Membership
		role       string
		createdRaw string
	)
	if err := s.Scan(&m.BoardID, &m.UserID, &role, &createdRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Membership{}, engine.ErrNotFound
		}
		return domain.Membership{}, err
	}
	m.Role = domain.Role(role)
	m.CreatedAt = parseTS(createdRaw)
	return m, nil
}

func collectTasks(rows *sql.Rows) ([]domain.Task, error) {
	out := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

// translateNoRows maps a zero-row update or delete to engine.ErrNotFound.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return engine.ErrNotFound
	}
	return nil
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(v string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}

func parseNullTS(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	parsed := parseTS(v.String)
	return &parsed
}
