package agentapi

import (
	"encoding/json"
	"time"
)

// RunStatus is the lifecycle state of an agent run.
//
// Valid transitions: created -> running -> {completed, cancelled, failed}.
// All three of completed/cancelled/failed are terminal; once reached a run
// status never changes again.
type RunStatus string

const (
	RunStatusCreated   RunStatus = "created"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

// Terminal reports whether the status is one of completed/cancelled/failed.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusCancelled, RunStatusFailed:
		return true
	default:
		return false
	}
}

// Run is a single invocation of the agent step loop against an agent
// context, from the initial prompt to a terminal outcome.
type Run struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	Status    RunStatus `json:"status"`
	StepCount int       `json:"step_count"`
	MaxSteps  int       `json:"max_steps"`

	// StopReason is set once the run reaches a terminal status; it names
	// the concrete reason the step loop stopped (end_turn, max_steps,
	// cancelled, error, refused, ...).
	StopReason string `json:"stop_reason,omitempty"`

	// Usage accumulates token and tool-call counters across every step.
	Usage UsageStats `json:"usage"`

	Error string `json:"error,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// UsageStats accumulates token and tool-call counters for a run.
type UsageStats struct {
	InputTokens     int `json:"input_tokens"`
	OutputTokens    int `json:"output_tokens"`
	ReasoningTokens int `json:"reasoning_tokens,omitempty"`
	CacheReadTokens int `json:"cache_read_tokens,omitempty"`
	ToolCalls       int `json:"tool_calls"`
	LLMRequests     int `json:"llm_requests"`
}

// Add accumulates another UsageStats into the receiver.
func (u *UsageStats) Add(other UsageStats) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.ReasoningTokens += other.ReasoningTokens
	u.CacheReadTokens += other.CacheReadTokens
	u.ToolCalls += other.ToolCalls
	u.LLMRequests += other.LLMRequests
}

// ToolKind classifies how a tool's result is produced, matching the
// kind tag carried on every ToolDefinition.
type ToolKind string

const (
	// ToolKindServer executes directly inside the step loop process.
	ToolKindServer ToolKind = "server"

	// ToolKindClient is executed by the caller/host, never the step loop
	// itself; its registered Execute stub unconditionally raises.
	ToolKindClient ToolKind = "client"
)

// SideEffect classifies whether invoking a tool can change state outside
// the agent's own context, used to gate approval requirements.
type SideEffect string

const (
	SideEffectNone  SideEffect = "none"  // read-only, safe to auto-approve
	SideEffectWrite SideEffect = "write" // mutates files, processes, or external systems
)

// ToolDefinition is the strict-schema description of a tool offered to
// the LLM. Schema must declare every property as required and forbid
// additional properties, so that grammar-constrained decoding backends
// (e.g. llama.cpp) can enforce the shape at generation time.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
	Kind        ToolKind        `json:"kind"`
	SideEffect  SideEffect      `json:"side_effect"`

	// MaxOutputBytes ceils the tool result content before truncation;
	// zero means use the executor's default ceiling.
	MaxOutputBytes int `json:"max_output_bytes,omitempty"`
}

// TodoStatus is the lifecycle of a single todo item tracked by the
// built-in todo-list tool.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
)

// TodoItem is one entry in an agent's todo list.
type TodoItem struct {
	ID       string     `json:"id"`
	Content  string     `json:"content"`
	Status   TodoStatus `json:"status"`
	ActiveForm string   `json:"active_form,omitempty"`
}

// AgentContext bundles everything the step loop needs to execute one run:
// the system prompt, the registered tools, and the provider/model choice.
// It is intentionally decoupled from any particular channel or session
// storage backend.
type AgentContext struct {
	AgentID      string           `json:"agent_id"`
	SystemPrompt string           `json:"system_prompt,omitempty"`
	Provider     string           `json:"provider"`
	Model        string           `json:"model"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	MaxSteps     int              `json:"max_steps,omitempty"`

	// WorkingDir anchors file-system tools and the HOTL state file.
	WorkingDir string `json:"working_dir,omitempty"`
}
