package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// keepAliveInterval spaces the comment lines that keep idle SSE connections
// from being reaped by intermediaries.
const keepAliveInterval = 30 * time.Second

// streamBoard serves a board's live event stream. The connection is seeded
// with a full snapshot, then receives one SSE event per committed mutation on
// the board plus any events addressed to the connected user.
func (s *Server) streamBoard(c echo.Context) error {
	actor, err := s.actor(c)
	if err != nil {
		return writeError(c, err)
	}
	boardID := c.Param("id")

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.String(http.StatusInternalServerError, "stream unsupported")
	}

	// Subscribe before reading the seed so a mutation committed while the
	// snapshot is assembled lands in the connection's buffer instead of being
	// lost between seed and subscription.
	conn := s.hub.Connect(actor)
	defer conn.Close()
	s.hub.Subscribe(conn.ID, boardID)

	// Snapshot doubles as the membership check: non-members never get a stream.
	snapshot, err := s.engine.Snapshot(c.Request().Context(), boardID, actor)
	if err != nil {
		return writeError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	seed, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	if err := writeSSE(c, flusher, "snapshot", seed); err != nil {
		return nil
	}

	ctx := c.Request().Context()
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-conn.Messages:
			if !ok {
				return nil
			}
			if err := writeSSE(c, flusher, msg.Event, msg.Data); err != nil {
				return nil
			}
		case <-ticker.C:
			if _, err := c.Response().Write([]byte(": keep-alive\n\n")); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}

func writeSSE(c echo.Context, flusher http.Flusher, event string, data []byte) error {
	if _, err := c.Response().Write([]byte("event: " + event + "\n")); err != nil {
		return err
	}
	if _, err := c.Response().Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := c.Response().Write(data); err != nil {
		return err
	}
	if _, err := c.Response().Write([]byte("\n\n")); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
