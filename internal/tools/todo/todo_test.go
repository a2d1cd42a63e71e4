package todo

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/relaymind/agentcore/internal/agent"
	"github.com/relaymind/agentcore/pkg/agentapi"
)

func TestWriteThenRead(t *testing.T) {
	store := NewStore()
	writeTool := NewWriteTool(store)
	readTool := NewReadTool(store)

	ctx := agent.WithSession(context.Background(), &agentapi.Session{ID: "sess-1"})

	params, _ := json.Marshal(map[string]interface{}{
		"todos": []map[string]interface{}{
			{"content": "Write tests", "status": "in_progress", "active_form": "Writing tests"},
			{"content": "Ship PR", "status": "pending", "active_form": "Shipping PR"},
		},
	})
	result, err := writeTool.Execute(ctx, params)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.Content)
	}
	if !strings.Contains(result.Content, "1 in progress") {
		t.Fatalf("expected summary to mention 1 in progress, got %s", result.Content)
	}

	readResult, err := readTool.Execute(ctx, nil)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(readResult.Content, "Write tests") {
		t.Fatalf("expected read to show written item, got %s", readResult.Content)
	}
}

func TestWriteWarnsOnMultipleInProgress(t *testing.T) {
	store := NewStore()
	writeTool := NewWriteTool(store)
	ctx := agent.WithSession(context.Background(), &agentapi.Session{ID: "sess-2"})

	params, _ := json.Marshal(map[string]interface{}{
		"todos": []map[string]interface{}{
			{"content": "A", "status": "in_progress", "active_form": "Doing A"},
			{"content": "B", "status": "in_progress", "active_form": "Doing B"},
		},
	})
	result, err := writeTool.Execute(ctx, params)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("multiple in_progress should warn, not error: %s", result.Content)
	}
	if !strings.Contains(result.Content, "Warning") {
		t.Fatalf("expected warning about multiple in_progress tasks, got %s", result.Content)
	}
}

func TestReadEmptyList(t *testing.T) {
	store := NewStore()
	readTool := NewReadTool(store)
	ctx := agent.WithSession(context.Background(), &agentapi.Session{ID: "sess-3"})

	result, err := readTool.Execute(ctx, nil)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(result.Content, "No todos") {
		t.Fatalf("expected empty-list message, got %s", result.Content)
	}
}

func TestWriteRequiresSession(t *testing.T) {
	store := NewStore()
	writeTool := NewWriteTool(store)

	params, _ := json.Marshal(map[string]interface{}{"todos": []map[string]interface{}{}})
	result, err := writeTool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError when no session is in context")
	}
}
