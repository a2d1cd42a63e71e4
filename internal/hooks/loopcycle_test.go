package hooks

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoopHooks_FuncHook_Success(t *testing.T) {
	h := NewLoopHooks(nil)
	var gotData map[string]any
	h.AddFuncHook(LoopEventToolStart, func(ctx context.Context, data map[string]any) (*LoopHookResult, error) {
		gotData = data
		return &LoopHookResult{Success: true, Output: "ok"}, nil
	})

	results := h.Run(context.Background(), LoopEventToolStart, map[string]any{"tool": "search"})
	if len(results) != 1 || !results[0].Success || results[0].Output != "ok" {
		t.Fatalf("unexpected results: %+v", results)
	}
	if gotData["tool"] != "search" {
		t.Errorf("hook did not receive event data: %+v", gotData)
	}
}

func TestLoopHooks_FuncHook_NilResultMeansSuccess(t *testing.T) {
	h := NewLoopHooks(nil)
	h.AddFuncHook(LoopEventMessage, func(ctx context.Context, data map[string]any) (*LoopHookResult, error) {
		return nil, nil
	})
	results := h.Run(context.Background(), LoopEventMessage, nil)
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("expected a single successful result, got %+v", results)
	}
}

func TestLoopHooks_FuncHook_ErrorIsNonBlockingFailure(t *testing.T) {
	h := NewLoopHooks(nil)
	h.AddFuncHook(LoopEventToolEnd, func(ctx context.Context, data map[string]any) (*LoopHookResult, error) {
		return nil, errors.New("boom")
	})
	h.AddFuncHook(LoopEventToolEnd, func(ctx context.Context, data map[string]any) (*LoopHookResult, error) {
		return &LoopHookResult{Success: true}, nil
	})

	results := h.Run(context.Background(), LoopEventToolEnd, nil)
	if len(results) != 2 {
		t.Fatalf("expected both hooks to run since no block occurred, got %d", len(results))
	}
	if results[0].Success || results[0].Error != "boom" {
		t.Errorf("first result = %+v, want failure with 'boom'", results[0])
	}
}

func TestLoopHooks_FuncHook_BlockShortCircuits(t *testing.T) {
	h := NewLoopHooks(nil)
	var secondRan bool
	h.AddFuncHook(LoopEventPromptSubmit, func(ctx context.Context, data map[string]any) (*LoopHookResult, error) {
		return &LoopHookResult{Success: true, Block: true}, nil
	})
	h.AddFuncHook(LoopEventPromptSubmit, func(ctx context.Context, data map[string]any) (*LoopHookResult, error) {
		secondRan = true
		return &LoopHookResult{Success: true}, nil
	})

	results := h.Run(context.Background(), LoopEventPromptSubmit, nil)
	if len(results) != 1 {
		t.Fatalf("expected short-circuit after first block, got %d results", len(results))
	}
	if secondRan {
		t.Error("second hook ran despite a preceding block")
	}
}

func TestLoopHooks_ShellHook_PlainTextOutput(t *testing.T) {
	h := NewLoopHooks(nil)
	h.AddShellHook(LoopEventLoopStart, "cat")

	results := h.Run(context.Background(), LoopEventLoopStart, map[string]any{"x": 1})
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("unexpected results: %+v", results)
	}
	if results[0].Output == "" {
		t.Error("expected cat to echo stdin JSON back as output")
	}
}

func TestLoopHooks_ShellHook_JSONResponse(t *testing.T) {
	h := NewLoopHooks(nil)
	h.AddShellHook(LoopEventLoopEnd, `echo '{"inject_message": "keep going", "block": false}'`)

	results := h.Run(context.Background(), LoopEventLoopEnd, nil)
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("unexpected results: %+v", results)
	}
	if results[0].InjectMessage != "keep going" {
		t.Errorf("InjectMessage = %q, want %q", results[0].InjectMessage, "keep going")
	}
}

func TestLoopHooks_ShellHook_NonZeroExitBlocks(t *testing.T) {
	h := NewLoopHooks(nil)
	h.AddShellHook(LoopEventToolStart, "exit 1")

	results := h.Run(context.Background(), LoopEventToolStart, nil)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Success || !results[0].Block {
		t.Errorf("expected a blocking failure, got %+v", results[0])
	}
}

func TestLoopHooks_ShellHook_Timeout(t *testing.T) {
	h := NewLoopHooks(nil).WithTimeout(20 * time.Millisecond)
	h.AddShellHook(LoopEventToolEnd, "sleep 5")

	start := time.Now()
	results := h.Run(context.Background(), LoopEventToolEnd, nil)
	if time.Since(start) > 2*time.Second {
		t.Fatal("hook did not time out promptly")
	}
	if len(results) != 1 || results[0].Success {
		t.Fatalf("expected a timeout failure, got %+v", results)
	}
}

func TestLoopHooks_NoHooksRegistered(t *testing.T) {
	h := NewLoopHooks(nil)
	if results := h.Run(context.Background(), LoopEventMessage, nil); results != nil {
		t.Errorf("expected nil results with no hooks registered, got %+v", results)
	}
}
