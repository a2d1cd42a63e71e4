// Package todo implements the built-in structured task list tool: a
// TodoWrite/TodoRead pair the agent uses to plan and report progress on
// multi-step work within a single session.
package todo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/relaymind/agentcore/internal/agent"
	"github.com/relaymind/agentcore/pkg/agentapi"
)

// Store holds the todo list for each session. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	lists map[string][]agentapi.TodoItem
}

// NewStore creates an empty todo store.
func NewStore() *Store {
	return &Store{lists: make(map[string][]agentapi.TodoItem)}
}

// Get returns a copy of the current todo list for a session.
func (s *Store) Get(sessionID string) []agentapi.TodoItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.lists[sessionID]
	out := make([]agentapi.TodoItem, len(items))
	copy(out, items)
	return out
}

// Set replaces the todo list for a session.
func (s *Store) Set(sessionID string, items []agentapi.TodoItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[sessionID] = items
}

// WriteTool lets the agent replace its current todo list.
type WriteTool struct {
	store *Store
}

// NewWriteTool creates a todo-write tool backed by store.
func NewWriteTool(store *Store) *WriteTool {
	return &WriteTool{store: store}
}

func (t *WriteTool) Name() string { return "todo_write" }

func (t *WriteTool) Description() string {
	return "Create and manage a structured task list for tracking progress on multi-step work. " +
		"Mark a task in_progress before starting it and completed immediately after finishing. " +
		"Prefer at most one in_progress task at a time."
}

func (t *WriteTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"todos": map[string]interface{}{
				"type":        "array",
				"description": "The complete, updated todo list.",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"content": map[string]interface{}{
							"type":        "string",
							"description": "Task description, imperative form (e.g. 'Run tests').",
						},
						"status": map[string]interface{}{
							"type":        "string",
							"enum":        []string{"pending", "in_progress", "completed"},
							"description": "Task status.",
						},
						"active_form": map[string]interface{}{
							"type":        "string",
							"description": "Present continuous form (e.g. 'Running tests').",
						},
					},
					"required":             []string{"content", "status", "active_form"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"todos"},
		"additionalProperties": false,
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *WriteTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	session := agent.SessionFromContext(ctx)
	if session == nil {
		return toolError("no session context"), nil
	}

	var input struct {
		Todos []struct {
			Content    string `json:"content"`
			Status     string `json:"status"`
			ActiveForm string `json:"active_form"`
		} `json:"todos"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}

	items := make([]agentapi.TodoItem, 0, len(input.Todos))
	inProgress := 0
	for i, todo := range input.Todos {
		status := agentapi.TodoStatus(todo.Status)
		switch status {
		case agentapi.TodoPending, agentapi.TodoInProgress, agentapi.TodoCompleted:
		default:
			status = agentapi.TodoPending
		}
		if status == agentapi.TodoInProgress {
			inProgress++
		}
		items = append(items, agentapi.TodoItem{
			ID:         fmt.Sprintf("%d", i),
			Content:    todo.Content,
			Status:     status,
			ActiveForm: todo.ActiveForm,
		})
	}

	t.store.Set(session.ID, items)

	pending, completed := 0, 0
	for _, item := range items {
		switch item.Status {
		case agentapi.TodoPending:
			pending++
		case agentapi.TodoCompleted:
			completed++
		}
	}

	summary := fmt.Sprintf("Updated todo list: %d completed, %d in progress, %d pending", completed, inProgress, pending)
	if inProgress > 1 {
		summary += fmt.Sprintf("\nWarning: %d tasks are in_progress at once; prefer exactly one.", inProgress)
	}
	return &agent.ToolResult{Content: summary}, nil
}

// ReadTool lets the agent inspect its current todo list, e.g. after
// context compaction drops the list from its visible history.
type ReadTool struct {
	store *Store
}

// NewReadTool creates a todo-read tool backed by store.
func NewReadTool(store *Store) *ReadTool {
	return &ReadTool{store: store}
}

func (t *ReadTool) Name() string { return "todo_read" }

func (t *ReadTool) Description() string {
	return "Read the current todo list for this session."
}

func (t *ReadTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{},"required":[],"additionalProperties":false}`)
}

func (t *ReadTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	session := agent.SessionFromContext(ctx)
	if session == nil {
		return toolError("no session context"), nil
	}

	items := t.store.Get(session.ID)
	if len(items) == 0 {
		return &agent.ToolResult{Content: "No todos in the list. Use todo_write to create tasks."}, nil
	}

	payload, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return &agent.ToolResult{Content: string(payload)}, nil
}

func toolError(message string) *agent.ToolResult {
	return &agent.ToolResult{Content: message, IsError: true}
}
