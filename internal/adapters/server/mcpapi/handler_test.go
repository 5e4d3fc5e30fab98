package mcpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/hylla/tavla/internal/adapters/storage/sqlite"
	"github.com/hylla/tavla/internal/domain"
	"github.com/hylla/tavla/internal/engine"
)

var testNow = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

// newTestEngine builds an engine over an in-memory store with no broadcast
// targets, which is all the tool surface needs.
func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	store, err := sqlite.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return engine.New(store, engine.FanOut(), nil, func() time.Time { return testNow }, nil, engine.Config{LockWait: time.Second})
}

// serveAs mounts the handler behind a fixed authenticated caller, the way the
// gateway stamps the actor onto the request context.
func serveAs(t *testing.T, handler *Handler, userID string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID != "" {
			r = r.WithContext(WithActor(r.Context(), userID))
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type jsonRPCResponse struct {
	ID     any            `json:"id"`
	Result map[string]any `json:"result"`
	Error  map[string]any `json:"error"`
}

// postJSONRPC sends one JSON-RPC payload and decodes the response body.
func postJSONRPC(t *testing.T, url string, payload any) (*http.Response, jsonRPCResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	var decoded jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return resp, decoded
}

// initializeRequest builds a deterministic MCP initialize request payload.
func initializeRequest() map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": "2025-03-26",
			"clientInfo": map[string]any{
				"name":    "tavla-test",
				"version": "1.0.0",
			},
		},
	}
}

// callToolRequest constructs one deterministic tools/call JSON-RPC payload.
func callToolRequest(id int, toolName string, arguments map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": arguments,
		},
	}
}

// toolResultText decodes the first text entry from one tool-call result.
func toolResultText(t *testing.T, result map[string]any) string {
	t.Helper()
	contentRaw, ok := result["content"].([]any)
	if !ok || len(contentRaw) == 0 {
		t.Fatalf("content missing in tool result: %#v", result)
	}
	first, ok := contentRaw[0].(map[string]any)
	if !ok {
		t.Fatalf("first content entry has unexpected type: %#v", contentRaw[0])
	}
	text, ok := first["text"].(string)
	if !ok {
		t.Fatalf("content text missing in tool result: %#v", first)
	}
	return text
}

// callTool invokes one tool and decodes its text payload into out.
func callTool(t *testing.T, url string, id int, toolName string, arguments map[string]any, out any) {
	t.Helper()
	_, resp := postJSONRPC(t, url, callToolRequest(id, toolName, arguments))
	if isErr, _ := resp.Result["isError"].(bool); isErr {
		t.Fatalf("%s returned tool error: %s", toolName, toolResultText(t, resp.Result))
	}
	if out == nil {
		return
	}
	if err := json.Unmarshal([]byte(toolResultText(t, resp.Result)), out); err != nil {
		t.Fatalf("decode %s result: %v", toolName, err)
	}
}

// callToolExpectError invokes one tool and returns its error text.
func callToolExpectError(t *testing.T, url string, id int, toolName string, arguments map[string]any) string {
	t.Helper()
	_, resp := postJSONRPC(t, url, callToolRequest(id, toolName, arguments))
	if isErr, _ := resp.Result["isError"].(bool); !isErr {
		t.Fatalf("%s succeeded, expected tool error: %#v", toolName, resp.Result)
	}
	return toolResultText(t, resp.Result)
}

func TestHandlerUsesStatelessTransport(t *testing.T) {
	handler, err := NewHandler(Config{}, newTestEngine(t))
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	srv := serveAs(t, handler, "u-admin")

	resp, decoded := postJSONRPC(t, srv.URL, initializeRequest())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if decoded.Error != nil {
		t.Fatalf("initialize error: %#v", decoded.Error)
	}
	if got := resp.Header.Get("Mcp-Session-Id"); got != "" {
		t.Fatalf("Mcp-Session-Id header = %q, want empty (stateless transport)", got)
	}
}

func TestHandlerRegistersEngineTools(t *testing.T) {
	handler, err := NewHandler(Config{}, newTestEngine(t))
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	srv := serveAs(t, handler, "u-admin")

	_, _ = postJSONRPC(t, srv.URL, initializeRequest())
	_, toolsResp := postJSONRPC(t, srv.URL, map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
	})

	toolsRaw, ok := toolsResp.Result["tools"].([]any)
	if !ok {
		t.Fatalf("tools list payload missing tools: %#v", toolsResp.Result)
	}
	toolNames := make([]string, 0, len(toolsRaw))
	for _, toolRaw := range toolsRaw {
		toolMap, ok := toolRaw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := toolMap["name"].(string)
		toolNames = append(toolNames, name)
	}
	for _, want := range []string{
		"tavla.create_board", "tavla.add_member", "tavla.board_snapshot",
		"tavla.create_column", "tavla.reorder_columns",
		"tavla.create_task", "tavla.move_task", "tavla.task_history",
	} {
		if !slices.Contains(toolNames, want) {
			t.Fatalf("tool list missing %s: %#v", want, toolNames)
		}
	}
}

func TestBoardLifecycleOverMCP(t *testing.T) {
	eng := newTestEngine(t)
	handler, err := NewHandler(Config{}, eng)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	srv := serveAs(t, handler, "u-admin")
	_, _ = postJSONRPC(t, srv.URL, initializeRequest())

	var board domain.Board
	callTool(t, srv.URL, 2, "tavla.create_board", map[string]any{"name": "Release board"}, &board)
	if board.Name != "Release board" || board.OwnerID != "u-admin" {
		t.Fatalf("unexpected board %#v", board)
	}

	var membership domain.Membership
	callTool(t, srv.URL, 3, "tavla.add_member",
		map[string]any{"board_id": board.ID, "user_id": "u-member", "role": "member"}, &membership)
	if membership.Role != domain.RoleMember {
		t.Fatalf("unexpected membership %#v", membership)
	}

	var todo, doing domain.Column
	callTool(t, srv.URL, 4, "tavla.create_column", map[string]any{"board_id": board.ID, "name": "To Do"}, &todo)
	callTool(t, srv.URL, 5, "tavla.create_column", map[string]any{"board_id": board.ID, "name": "Doing"}, &doing)

	var task domain.Task
	callTool(t, srv.URL, 6, "tavla.create_task",
		map[string]any{"board_id": board.ID, "column_id": todo.ID, "title": "Ship it", "priority": "high"}, &task)
	if task.Priority != domain.PriorityHigh || task.Position != 0 {
		t.Fatalf("unexpected task %#v", task)
	}

	var moved domain.Task
	callTool(t, srv.URL, 7, "tavla.move_task",
		map[string]any{"task_id": task.ID, "to_column_id": doing.ID, "position": 0}, &moved)
	if moved.ColumnID != doing.ID || moved.Position != 0 {
		t.Fatalf("unexpected moved task %#v", moved)
	}

	var history struct {
		Entries []domain.HistoryEntry `json:"entries"`
	}
	callTool(t, srv.URL, 8, "tavla.task_history", map[string]any{"task_id": task.ID, "limit": 5}, &history)
	if len(history.Entries) != 2 || history.Entries[0].Action != domain.HistoryActionMoved {
		t.Fatalf("unexpected history %#v", history.Entries)
	}
	if history.Entries[0].OldValue != "To Do" || history.Entries[0].NewValue != "Doing" {
		t.Fatalf("unexpected move entry %#v", history.Entries[0])
	}

	var snapshot engine.BoardSnapshot
	callTool(t, srv.URL, 9, "tavla.board_snapshot", map[string]any{"board_id": board.ID}, &snapshot)
	if len(snapshot.Columns) != 2 || len(snapshot.Tasks) != 1 {
		t.Fatalf("unexpected snapshot %#v", snapshot)
	}
}

func TestToolErrorsCarryKindPrefixes(t *testing.T) {
	eng := newTestEngine(t)
	handler, err := NewHandler(Config{}, eng)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	admin := serveAs(t, handler, "u-admin")
	_, _ = postJSONRPC(t, admin.URL, initializeRequest())

	var board domain.Board
	callTool(t, admin.URL, 2, "tavla.create_board", map[string]any{"name": "Guarded"}, &board)
	var column domain.Column
	callTool(t, admin.URL, 3, "tavla.create_column", map[string]any{"board_id": board.ID, "name": "To Do"}, &column)
	callTool(t, admin.URL, 4, "tavla.add_member",
		map[string]any{"board_id": board.ID, "user_id": "u-viewer", "role": "viewer"}, nil)

	viewer := serveAs(t, handler, "u-viewer")
	_, _ = postJSONRPC(t, viewer.URL, initializeRequest())
	msg := callToolExpectError(t, viewer.URL, 5, "tavla.create_task",
		map[string]any{"board_id": board.ID, "column_id": column.ID, "title": "Nope"})
	if !strings.HasPrefix(msg, "forbidden:") {
		t.Fatalf("expected forbidden prefix, got %q", msg)
	}

	msg = callToolExpectError(t, admin.URL, 6, "tavla.move_task", map[string]any{"task_id": "missing"})
	if !strings.HasPrefix(msg, "not_found:") {
		t.Fatalf("expected not_found prefix, got %q", msg)
	}

	msg = callToolExpectError(t, admin.URL, 7, "tavla.create_task",
		map[string]any{"board_id": board.ID, "column_id": column.ID, "title": "   "})
	if !strings.HasPrefix(msg, "invalid_request:") {
		t.Fatalf("expected invalid_request prefix, got %q", msg)
	}
}

func TestToolsRejectUnauthenticatedCalls(t *testing.T) {
	handler, err := NewHandler(Config{}, newTestEngine(t))
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	srv := serveAs(t, handler, "")
	_, _ = postJSONRPC(t, srv.URL, initializeRequest())

	msg := callToolExpectError(t, srv.URL, 2, "tavla.create_board", map[string]any{"name": "Nope"})
	if !strings.HasPrefix(msg, "unauthorized:") {
		t.Fatalf("expected unauthorized prefix, got %q", msg)
	}
}
