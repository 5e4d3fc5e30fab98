package mcpapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hylla/tavla/internal/domain"
	"github.com/hylla/tavla/internal/engine"
)

// registerBoardTools registers board creation, membership, and snapshot tools.
func registerBoardTools(srv *mcpserver.MCPServer, eng *engine.Engine) {
	srv.AddTool(
		mcp.NewTool(
			"tavla.create_board",
			mcp.WithDescription("Create one board owned by the caller."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Board name")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			actor, denied := requireActor(ctx)
			if denied != nil {
				return denied, nil
			}
			name, err := req.RequireString("name")
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			board, err := eng.CreateBoard(ctx, engine.CreateBoardInput{ActorID: actor, Name: name})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonToolResult("create_board", board)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tavla.add_member",
			mcp.WithDescription("Add a user to a board with a role."),
			mcp.WithString("board_id", mcp.Required(), mcp.Description("Board identifier")),
			mcp.WithString("user_id", mcp.Required(), mcp.Description("User to add")),
			mcp.WithString("role", mcp.Required(), mcp.Description("Membership role"), mcp.Enum("viewer", "member", "admin")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			actor, denied := requireActor(ctx)
			if denied != nil {
				return denied, nil
			}
			boardID, err := req.RequireString("board_id")
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			userID, err := req.RequireString("user_id")
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			role, err := req.RequireString("role")
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			membership, err := eng.AddMember(ctx, engine.AddMemberInput{
				ActorID: actor,
				BoardID: boardID,
				UserID:  userID,
				Role:    domain.Role(role),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonToolResult("add_member", membership)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tavla.board_snapshot",
			mcp.WithDescription("Return a board's columns, ordered tasks, and backlog."),
			mcp.WithString("board_id", mcp.Required(), mcp.Description("Board identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			actor, denied := requireActor(ctx)
			if denied != nil {
				return denied, nil
			}
			boardID, err := req.RequireString("board_id")
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			snapshot, err := eng.Snapshot(ctx, boardID, actor)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonToolResult("board_snapshot", snapshot)
		},
	)
}

// registerColumnTools registers column CRUD and reorder tools.
func registerColumnTools(srv *mcpserver.MCPServer, eng *engine.Engine) {
	srv.AddTool(
		mcp.NewTool(
			"tavla.create_column",
			mcp.WithDescription("Append one column to a board."),
			mcp.WithString("board_id", mcp.Required(), mcp.Description("Board identifier")),
			mcp.WithString("name", mcp.Required(), mcp.Description("Column name")),
			mcp.WithNumber("capacity", mcp.Description("Task limit, 0 for unlimited")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			actor, denied := requireActor(ctx)
			if denied != nil {
				return denied, nil
			}
			boardID, err := req.RequireString("board_id")
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			name, err := req.RequireString("name")
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			column, err := eng.CreateColumn(ctx, engine.CreateColumnInput{
				ActorID:  actor,
				BoardID:  boardID,
				Name:     name,
				Capacity: req.GetInt("capacity", 0),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonToolResult("create_column", column)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tavla.update_column",
			mcp.WithDescription("Rename a column or change its capacity."),
			mcp.WithString("column_id", mcp.Required(), mcp.Description("Column identifier")),
			mcp.WithString("name", mcp.Required(), mcp.Description("Column name")),
			mcp.WithNumber("capacity", mcp.Description("Task limit, 0 for unlimited")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			actor, denied := requireActor(ctx)
			if denied != nil {
				return denied, nil
			}
			columnID, err := req.RequireString("column_id")
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			name, err := req.RequireString("name")
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			column, err := eng.UpdateColumn(ctx, engine.UpdateColumnInput{
				ActorID:  actor,
				ColumnID: columnID,
				Name:     name,
				Capacity: req.GetInt("capacity", 0),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonToolResult("update_column", column)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tavla.delete_column",
			mcp.WithDescription("Delete an empty column; archived tasks move to the backlog."),
			mcp.WithString("column_id", mcp.Required(), mcp.Description("Column identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			actor, denied := requireActor(ctx)
			if denied != nil {
				return denied, nil
			}
			columnID, err := req.RequireString("column_id")
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			if err := eng.DeleteColumn(ctx, engine.DeleteColumnInput{ActorID: actor, ColumnID: columnID}); err != nil {
				return toolResultFromError(err), nil
			}
			return jsonToolResult("delete_column", map[string]string{"deleted": columnID})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tavla.reorder_columns",
			mcp.WithDescription("Reorder all of a board's columns at once."),
			mcp.WithString("board_id", mcp.Required(), mcp.Description("Board identifier")),
			mcp.WithArray("column_ids", mcp.Required(), mcp.Description("Every column id in the new order"), mcp.WithStringItems()),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			actor, denied := requireActor(ctx)
			if denied != nil {
				return denied, nil
			}
			var args struct {
				BoardID   string   `json:"board_id"`
				ColumnIDs []string `json:"column_ids"`
			}
			if err := req.BindArguments(&args); err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			if strings.TrimSpace(args.BoardID) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "board_id" not found`), nil
			}
			err := eng.ReorderColumns(ctx, engine.ReorderColumnsInput{
				ActorID:    actor,
				BoardID:    args.BoardID,
				OrderedIDs: args.ColumnIDs,
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonToolResult("reorder_columns", map[string]any{"boardId": args.BoardID, "columnIds": args.ColumnIDs})
		},
	)
}

// taskArgs mirrors the mutable task fields accepted by create and update.
type taskArgs struct {
	BoardID     string `json:"board_id"`
	TaskID      string `json:"task_id"`
	ColumnID    string `json:"column_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Type        string `json:"type"`
	Priority    string `json:"priority"`
	AssigneeID  string `json:"assignee_id"`
	SprintID    string `json:"sprint_id"`
	DueAt       string `json:"due_at"`
}

// dueAt parses the optional RFC3339 due date argument.
func (a taskArgs) dueAt() (*time.Time, error) {
	if strings.TrimSpace(a.DueAt) == "" {
		return nil, nil
	}
	due, err := time.Parse(time.RFC3339, a.DueAt)
	if err != nil {
		return nil, fmt.Errorf("due_at: %w", err)
	}
	return &due, nil
}

// registerTaskTools registers task lifecycle, move, history, and mention tools.
func registerTaskTools(srv *mcpserver.MCPServer, eng *engine.Engine) {
	srv.AddTool(
		mcp.NewTool(
			"tavla.create_task",
			mcp.WithDescription("Create one task on a board, appended to a column or the backlog."),
			mcp.WithString("board_id", mcp.Required(), mcp.Description("Board identifier")),
			mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
			mcp.WithString("column_id", mcp.Description("Destination column, empty for the backlog")),
			mcp.WithString("description", mcp.Description("Task description")),
			mcp.WithString("status", mcp.Description("Status label")),
			mcp.WithString("type", mcp.Description("Type label")),
			mcp.WithString("priority", mcp.Description("low|medium|high"), mcp.Enum("low", "medium", "high")),
			mcp.WithString("assignee_id", mcp.Description("Assigned user")),
			mcp.WithString("sprint_id", mcp.Description("Sprint reference")),
			mcp.WithString("due_at", mcp.Description("RFC3339 due date")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			actor, denied := requireActor(ctx)
			if denied != nil {
				return denied, nil
			}
			var args taskArgs
			if err := req.BindArguments(&args); err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			if strings.TrimSpace(args.BoardID) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "board_id" not found`), nil
			}
			due, err := args.dueAt()
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			task, err := eng.CreateTask(ctx, engine.CreateTaskInput{
				ActorID:     actor,
				BoardID:     args.BoardID,
				ColumnID:    args.ColumnID,
				Title:       args.Title,
				Description: args.Description,
				Status:      args.Status,
				Type:        args.Type,
				Priority:    domain.Priority(args.Priority),
				AssigneeID:  args.AssigneeID,
				SprintID:    args.SprintID,
				DueAt:       due,
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonToolResult("create_task", task)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tavla.update_task",
			mcp.WithDescription("Replace a task's mutable fields; each changed field is audited."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
			mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
			mcp.WithString("description", mcp.Description("Task description")),
			mcp.WithString("status", mcp.Description("Status label")),
			mcp.WithString("type", mcp.Description("Type label")),
			mcp.WithString("priority", mcp.Description("low|medium|high"), mcp.Enum("low", "medium", "high")),
			mcp.WithString("assignee_id", mcp.Description("Assigned user")),
			mcp.WithString("sprint_id", mcp.Description("Sprint reference")),
			mcp.WithString("due_at", mcp.Description("RFC3339 due date")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			actor, denied := requireActor(ctx)
			if denied != nil {
				return denied, nil
			}
			var args taskArgs
			if err := req.BindArguments(&args); err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			if strings.TrimSpace(args.TaskID) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "task_id" not found`), nil
			}
			due, err := args.dueAt()
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			task, err := eng.UpdateTask(ctx, engine.UpdateTaskInput{
				ActorID:     actor,
				TaskID:      args.TaskID,
				Title:       args.Title,
				Description: args.Description,
				Status:      args.Status,
				Type:        args.Type,
				Priority:    domain.Priority(args.Priority),
				AssigneeID:  args.AssigneeID,
				SprintID:    args.SprintID,
				DueAt:       due,
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonToolResult("update_task", task)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tavla.move_task",
			mcp.WithDescription("Move a task within or across columns; position clamps to the end."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
			mcp.WithString("to_column_id", mcp.Description("Destination column, empty for the backlog")),
			mcp.WithNumber("position", mcp.Description("Target 0-based position")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			actor, denied := requireActor(ctx)
			if denied != nil {
				return denied, nil
			}
			taskID, err := req.RequireString("task_id")
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			task, err := eng.MoveTask(ctx, engine.MoveTaskInput{
				ActorID:    actor,
				TaskID:     taskID,
				ToColumnID: req.GetString("to_column_id", ""),
				Position:   req.GetInt("position", 0),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonToolResult("move_task", task)
		},
	)

	for _, tool := range []struct {
		name        string
		description string
		call        func(ctx context.Context, in engine.TaskRefInput) (any, error)
	}{
		{
			name:        "tavla.archive_task",
			description: "Archive a task, closing its position gap.",
			call: func(ctx context.Context, in engine.TaskRefInput) (any, error) {
				return eng.ArchiveTask(ctx, in)
			},
		},
		{
			name:        "tavla.restore_task",
			description: "Restore an archived task to the tail of its column.",
			call: func(ctx context.Context, in engine.TaskRefInput) (any, error) {
				return eng.RestoreTask(ctx, in)
			},
		},
		{
			name:        "tavla.delete_task",
			description: "Hard-delete a task, leaving a tombstone history entry.",
			call: func(ctx context.Context, in engine.TaskRefInput) (any, error) {
				return map[string]string{"deleted": in.TaskID}, eng.DeleteTask(ctx, in)
			},
		},
	} {
		tool := tool
		srv.AddTool(
			mcp.NewTool(
				tool.name,
				mcp.WithDescription(tool.description),
				mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				actor, denied := requireActor(ctx)
				if denied != nil {
					return denied, nil
				}
				taskID, err := req.RequireString("task_id")
				if err != nil {
					return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
				}
				out, err := tool.call(ctx, engine.TaskRefInput{ActorID: actor, TaskID: taskID})
				if err != nil {
					return toolResultFromError(err), nil
				}
				return jsonToolResult(tool.name, out)
			},
		)
	}

	srv.AddTool(
		mcp.NewTool(
			"tavla.task_history",
			mcp.WithDescription("List a task's audit entries, newest first."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
			mcp.WithNumber("limit", mcp.Description("Maximum entries to return")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			actor, denied := requireActor(ctx)
			if denied != nil {
				return denied, nil
			}
			taskID, err := req.RequireString("task_id")
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			entries, err := eng.TaskHistory(ctx, actor, taskID, req.GetInt("limit", 0))
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonToolResult("task_history", map[string]any{"entries": entries})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tavla.notify_mention",
			mcp.WithDescription("Deliver a mention notification to one user's connections."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
			mcp.WithString("board_id", mcp.Required(), mcp.Description("Board identifier")),
			mcp.WithString("user_id", mcp.Required(), mcp.Description("Mentioned user")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			actor, denied := requireActor(ctx)
			if denied != nil {
				return denied, nil
			}
			taskID, err := req.RequireString("task_id")
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			boardID, err := req.RequireString("board_id")
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			userID, err := req.RequireString("user_id")
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			eng.NotifyMention(ctx, engine.MentionInput{
				ActorID: actor,
				BoardID: boardID,
				TaskID:  taskID,
				UserID:  userID,
			})
			return jsonToolResult("notify_mention", map[string]string{"notified": userID})
		},
	)
}

// jsonToolResult encodes one tool payload, treating encode failures as
// protocol errors rather than tool errors.
func jsonToolResult(name string, payload any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", name, err)
	}
	return result, nil
}
