package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hylla/tavla/internal/domain"
	"github.com/hylla/tavla/internal/engine"
)

type createBoardRequest struct {
	Name string `json:"name"`
}

func (s *Server) createBoard(c echo.Context) error {
	actor, err := s.actor(c)
	if err != nil {
		return writeError(c, err)
	}
	var req createBoardRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	board, err := s.engine.CreateBoard(c.Request().Context(), engine.CreateBoardInput{
		ActorID: actor,
		Name:    req.Name,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, board)
}

func (s *Server) boardSnapshot(c echo.Context) error {
	actor, err := s.actor(c)
	if err != nil {
		return writeError(c, err)
	}
	snapshot, err := s.engine.Snapshot(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, snapshot)
}

type addMemberRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

func (s *Server) addMember(c echo.Context) error {
	actor, err := s.actor(c)
	if err != nil {
		return writeError(c, err)
	}
	var req addMemberRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	membership, err := s.engine.AddMember(c.Request().Context(), engine.AddMemberInput{
		ActorID: actor,
		BoardID: c.Param("id"),
		UserID:  req.UserID,
		Role:    domain.Role(req.Role),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, membership)
}

type columnRequest struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

func (s *Server) createColumn(c echo.Context) error {
	actor, err := s.actor(c)
	if err != nil {
		return writeError(c, err)
	}
	var req columnRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	column, err := s.engine.CreateColumn(c.Request().Context(), engine.CreateColumnInput{
		ActorID:  actor,
		BoardID:  c.Param("id"),
		Name:     req.Name,
		Capacity: req.Capacity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, column)
}

func (s *Server) updateColumn(c echo.Context) error {
	actor, err := s.actor(c)
	if err != nil {
		return writeError(c, err)
	}
	var req columnRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	column, err := s.engine.UpdateColumn(c.Request().Context(), engine.UpdateColumnInput{
		ActorID:  actor,
		ColumnID: c.Param("id"),
		Name:     req.Name,
		Capacity: req.Capacity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, column)
}

func (s *Server) deleteColumn(c echo.Context) error {
	actor, err := s.actor(c)
	if err != nil {
		return writeError(c, err)
	}
	err = s.engine.DeleteColumn(c.Request().Context(), engine.DeleteColumnInput{
		ActorID:  actor,
		ColumnID: c.Param("id"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type reorderColumnsRequest struct {
	ColumnIDs []string `json:"columnIds"`
}

func (s *Server) reorderColumns(c echo.Context) error {
	actor, err := s.actor(c)
	if err != nil {
		return writeError(c, err)
	}
	var req reorderColumnsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	err = s.engine.ReorderColumns(c.Request().Context(), engine.ReorderColumnsInput{
		ActorID:    actor,
		BoardID:    c.Param("id"),
		OrderedIDs: req.ColumnIDs,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type taskRequest struct {
	ColumnID    string     `json:"columnId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Type        string     `json:"type"`
	Priority    string     `json:"priority"`
	AssigneeID  string     `json:"assigneeId"`
	SprintID    string     `json:"sprintId"`
	DueAt       *time.Time `json:"dueAt"`
}

func (s *Server) createTask(c echo.Context) error {
	actor, err := s.actor(c)
	if err != nil {
		return writeError(c, err)
	}
	var req taskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	task, err := s.engine.CreateTask(c.Request().Context(), engine.CreateTaskInput{
		ActorID:     actor,
		BoardID:     c.Param("id"),
		ColumnID:    req.ColumnID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Type:        req.Type,
		Priority:    domain.Priority(req.Priority),
		AssigneeID:  req.AssigneeID,
		SprintID:    req.SprintID,
		DueAt:       req.DueAt,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, task)
}

func (s *Server) updateTask(c echo.Context) error {
	actor, err := s.actor(c)
	if err != nil {
		return writeError(c, err)
	}
	var req taskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	task, err := s.engine.UpdateTask(c.Request().Context(), engine.UpdateTaskInput{
		ActorID:     actor,
		TaskID:      c.Param("id"),
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Type:        req.Type,
		Priority:    domain.Priority(req.Priority),
		AssigneeID:  req.AssigneeID,
		SprintID:    req.SprintID,
		DueAt:       req.DueAt,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

type moveTaskRequest struct {
	ToColumnID string `json:"toColumnId"`
	Position   int    `json:"position"`
}

func (s *Server) moveTask(c echo.Context) error {
	actor, err := s.actor(c)
	if err != nil {
		return writeError(c, err)
	}
	var req moveTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	task, err := s.engine.MoveTask(c.Request().Context(), engine.MoveTaskInput{
		ActorID:    actor,
		TaskID:     c.Param("id"),
		ToColumnID: req.ToColumnID,
		Position:   req.Position,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) archiveTask(c echo.Context) error {
	actor, err := s.actor(c)
	if err != nil {
		return writeError(c, err)
	}
	task, err := s.engine.ArchiveTask(c.Request().Context(), engine.TaskRefInput{
		ActorID: actor,
		TaskID:  c.Param("id"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) restoreTask(c echo.Context) error {
	actor, err := s.actor(c)
	if err != nil {
		return writeError(c, err)
	}
	task, err := s.engine.RestoreTask(c.Request().Context(), engine.TaskRefInput{
		ActorID: actor,
		TaskID:  c.Param("id"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) deleteTask(c echo.Context) error {
	actor, err := s.actor(c)
	if err != nil {
		return writeError(c, err)
	}
	err = s.engine.DeleteTask(c.Request().Context(), engine.TaskRefInput{
		ActorID: actor,
		TaskID:  c.Param("id"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) taskHistory(c echo.Context) error {
	actor, err := s.actor(c)
	if err != nil {
		return writeError(c, err)
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		}
	}
	entries, err := s.engine.TaskHistory(c.Request().Context(), actor, c.Param("id"), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

type mentionRequest struct {
	BoardID string `json:"boardId"`
	UserID  string `json:"userId"`
}

func (s *Server) notifyMention(c echo.Context) error {
	actor, err := s.actor(c)
	if err != nil {
		return writeError(c, err)
	}
	var req mentionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	s.engine.NotifyMention(c.Request().Context(), engine.MentionInput{
		ActorID: actor,
		BoardID: req.BoardID,
		TaskID:  c.Param("id"),
		UserID:  req.UserID,
	})
	return c.NoContent(http.StatusAccepted)
}
