package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/relaymind/agentcore/internal/agent"
	"github.com/relaymind/agentcore/internal/cancel"
	"github.com/relaymind/agentcore/internal/eventbus"
	"github.com/relaymind/agentcore/internal/llm"
	"github.com/relaymind/agentcore/internal/run"
	"github.com/relaymind/agentcore/pkg/agentapi"
)

// Config controls which of the Streaming Dispatcher's optional layers
// (spec §4.5 "Optional layers applied left to right") wrap one run's
// SSE output.
type Config struct {
	// RunID identifies the run being streamed; required.
	RunID string

	// CancelToken is cancelled by the cancellation-aware wrapper when it
	// observes the Run Manager report an out-of-band transition to
	// cancelled. May be nil to disable that layer.
	CancelToken *cancel.Token

	// CancelPollInterval is how often the cancellation-aware wrapper
	// polls the Run Manager. Defaults to 500ms.
	CancelPollInterval time.Duration

	// KeepaliveInterval, if positive, injects a ping frame whenever no
	// other frame has been emitted for that long.
	KeepaliveInterval time.Duration

	// Background requests the background-fan-out layer: the producer
	// runs detached and publishes frames to Bus, and CreateAgentStream
	// returns a consumer that replays from Bus instead of reading the
	// producer directly.
	Background bool

	// Bus is the pub/sub backend for background fan-out. Required (and
	// must not be the Noop default) when Background is true.
	Bus eventbus.Bus
}

// Dispatcher drives one run's agent.ResponseChunk stream to completion,
// translating it into the client-facing SSE wire format and performing
// exactly one Run Manager status finalization, per spec §4.5.
type Dispatcher struct {
	runs *run.Manager
}

// NewDispatcher builds a Dispatcher backed by runs.
func NewDispatcher(runs *run.Manager) *Dispatcher {
	return &Dispatcher{runs: runs}
}

// CreateAgentStream implements the §4.5 contract. chunks is the raw
// event stream from the agent step loop (§4.4); the returned channel
// yields encoded SSE byte frames ready to write to the response body.
func (d *Dispatcher) CreateAgentStream(ctx context.Context, cfg Config, chunks <-chan *agent.ResponseChunk) (<-chan []byte, error) {
	if cfg.RunID == "" {
		return nil, fmt.Errorf("stream: Config.RunID is required")
	}
	if cfg.CancelPollInterval <= 0 {
		cfg.CancelPollInterval = 500 * time.Millisecond
	}

	if cfg.Background {
		if cfg.Bus == nil {
			return nil, fmt.Errorf("stream: background fan-out requires Config.Bus")
		}
		if _, noop := cfg.Bus.(eventbus.NoopBus); noop {
			return nil, fmt.Errorf("stream: background fan-out requires a non-noop pub/sub backend (got eventbus.NoopBus)")
		}
		go d.runProducer(context.Background(), cfg, chunks)
		return d.Consume(ctx, cfg)
	}

	out := make(chan []byte, 32)
	go func() {
		defer close(out)
		emit := func(frame []byte) error {
			select {
			case out <- frame:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		terminal := func(status agentapi.RunStatus, stopReason, errorType, message string) [][]byte {
			return clientTerminalFrames(cfg.RunID, status, stopReason, errorType, message)
		}
		d.drive(ctx, cfg, chunks, emit, translateChunk, terminal)
	}()
	return out, nil
}

// CreateAgentStreamOpenAI is the `create_agent_stream_openai_chat_completions`
// entry point: it composes the same optional layers as CreateAgentStream
// but re-emits assistant text as OpenAI chat.completion.chunk objects
// instead of the native client-facing frame shape (spec §4.5 "OpenAI
// transform"). Usage, tool, and runtime-event frames are dropped; the
// dispatcher's own stop-reason/error frames are replaced by the
// transform's finish_reason:"stop" chunk.
func (d *Dispatcher) CreateAgentStreamOpenAI(ctx context.Context, cfg Config, model string, chunks <-chan *agent.ResponseChunk) (<-chan []byte, error) {
	if cfg.RunID == "" {
		return nil, fmt.Errorf("stream: Config.RunID is required")
	}
	if cfg.CancelPollInterval <= 0 {
		cfg.CancelPollInterval = 500 * time.Millisecond
	}
	if cfg.Background {
		return nil, fmt.Errorf("stream: background fan-out is not supported for the OpenAI transform")
	}

	xf := NewOpenAITransformer(cfg.RunID, model)
	translate := func(chunk *agent.ResponseChunk, usage *agentapi.UsageStats) [][]byte {
		if chunk.ToolResult != nil {
			usage.ToolCalls++
		}
		if chunk.Text == "" {
			return nil
		}
		f, err := xf.Next(contentFrame{Type: "text", Text: chunk.Text})
		if err != nil || f == nil {
			return nil
		}
		return [][]byte{f}
	}
	terminal := func(status agentapi.RunStatus, stopReason, errorType, message string) [][]byte {
		frames, _ := xf.Finish()
		return frames
	}

	out := make(chan []byte, 32)
	go func() {
		defer close(out)
		emit := func(frame []byte) error {
			select {
			case out <- frame:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		d.drive(ctx, cfg, chunks, emit, translate, terminal)
	}()
	return out, nil
}

// Consume subscribes to the run's pub/sub channel and replays it,
// durable append and in-order from the start, as the background mode's
// consumer generator.
func (d *Dispatcher) Consume(ctx context.Context, cfg Config) (<-chan []byte, error) {
	return cfg.Bus.Subscribe(ctx, cfg.RunID)
}

func (d *Dispatcher) runProducer(ctx context.Context, cfg Config, chunks <-chan *agent.ResponseChunk) {
	defer cfg.Bus.Close(ctx, cfg.RunID)
	emit := func(frame []byte) error {
		return cfg.Bus.Publish(ctx, cfg.RunID, frame)
	}
	terminal := func(status agentapi.RunStatus, stopReason, errorType, message string) [][]byte {
		return clientTerminalFrames(cfg.RunID, status, stopReason, errorType, message)
	}
	d.drive(ctx, cfg, chunks, emit, translateChunk, terminal)
}

// drive is the error-aware wrapper: it consumes chunks, applies the
// cancellation-aware polling and keepalive layers inline, translates
// every ResponseChunk into frames via translate, and guarantees exactly
// one Run Manager finalization on every exit path. terminal builds the
// frames for the terminal stop-reason/[DONE] shape, letting the OpenAI
// entry point substitute its own finish-reason chunk.
func (d *Dispatcher) drive(
	ctx context.Context,
	cfg Config,
	chunks <-chan *agent.ResponseChunk,
	emit func([]byte) error,
	translate func(*agent.ResponseChunk, *agentapi.UsageStats) [][]byte,
	terminal func(status agentapi.RunStatus, stopReason, errorType, message string) [][]byte,
) {
	var (
		cancelTicker *time.Ticker
		cancelCh     <-chan time.Time
	)
	if cfg.CancelToken != nil && d.runs != nil {
		cancelTicker = time.NewTicker(cfg.CancelPollInterval)
		defer cancelTicker.Stop()
		cancelCh = cancelTicker.C
	}

	var keepaliveTicker *time.Ticker
	var keepaliveCh <-chan time.Time
	if cfg.KeepaliveInterval > 0 {
		keepaliveTicker = time.NewTicker(cfg.KeepaliveInterval)
		defer keepaliveTicker.Stop()
		keepaliveCh = keepaliveTicker.C
	}

	wroteTerminal := false
	usage := agentapi.UsageStats{}

	finalize := func(status agentapi.RunStatus, stopReason, errMsg string) {
		if d.runs == nil {
			return
		}
		switch status {
		case agentapi.RunStatusCompleted:
			d.runs.Complete(ctx, cfg.RunID, stopReason, usage)
		case agentapi.RunStatusCancelled:
			d.runs.Cancel(ctx, cfg.RunID)
		default:
			d.runs.Fail(ctx, cfg.RunID, stopReason, errMsg, usage)
		}
	}

	terminate := func(status agentapi.RunStatus, stopReason, errorType, message string) {
		wroteTerminal = true
		for _, f := range terminal(status, stopReason, errorType, message) {
			emit(f)
		}
		finalize(status, stopReason, message)
	}

	for {
		select {
		case <-ctx.Done():
			terminate(agentapi.RunStatusCancelled, StopReasonCancelled, "", "")
			return

		case <-cancelCh:
			cancelled, err := d.runs.IsCancelled(ctx, cfg.RunID)
			if err == nil && cancelled {
				cfg.CancelToken.Cancel("run_manager_external_cancel")
			}

		case <-keepaliveCh:
			if f, err := pingFrame(); err == nil {
				emit(f)
			}

		case chunk, ok := <-chunks:
			if !ok {
				if !wroteTerminal {
					terminate(agentapi.RunStatusCompleted, StopReasonEndTurn, "", "")
				}
				return
			}
			if keepaliveTicker != nil {
				keepaliveTicker.Reset(cfg.KeepaliveInterval)
			}

			if chunk.Error != nil {
				stopReason, errorType := classifyChunkError(chunk.Error)
				terminate(statusForStopReason(stopReason), stopReason, errorType, chunk.Error.Error())
				return
			}

			frames := translate(chunk, &usage)
			for _, f := range frames {
				if err := emit(f); err != nil {
					return
				}
			}
		}
	}
}

// classifyChunkError maps a step-loop error onto the wire stop-reason
// and error-type vocabulary (spec §4.5's error-mapping table).
func classifyChunkError(err error) (stopReason, errorType string) {
	switch llm.TypeOf(err) {
	case llm.ErrTimeout:
		return StopReasonLLMAPIErr, ErrorTypeLLMTimeout
	case llm.ErrAuthentication:
		return StopReasonLLMAPIErr, ErrorTypeLLMAuthentication
	case llm.ErrCancellation:
		return StopReasonCancelled, ""
	case llm.ErrMaxSteps:
		// Budget exhaustion is a normal termination (step 6 of the step
		// algorithm), not an exception; no error frame is emitted.
		return StopReasonMaxSteps, ""
	case llm.ErrHookBlock:
		// A hook block is a refusal, not a failure; no error frame.
		return StopReasonRefused, ""
	case llm.ErrStreamIncomplete:
		return StopReasonError, ErrorTypeStreamIncomplete
	case llm.ErrTransient, llm.ErrInvalidArgument, llm.ErrToolExecution, llm.ErrPendingApproval:
		// The adapter's own transient bucket folds rate-limit and
		// server-error responses together (see ClassifyProviderError);
		// without the original providers.FailoverReason at this layer
		// rate-limit can't be distinguished from a generic LLM error, so
		// it reports through the llm_error catch-all.
		return StopReasonLLMAPIErr, ErrorTypeLLMError
	default:
		return StopReasonError, ErrorTypeInternalError
	}
}

// statusForStopReason derives the run's terminal status from its stop
// reason: cancelled maps to RunStatusCancelled, max_steps/refused are
// normal (non-exceptional) terminations and map to RunStatusCompleted,
// and every other stop reason (llm_api_error, error) is a failure.
func statusForStopReason(stopReason string) agentapi.RunStatus {
	switch stopReason {
	case StopReasonCancelled:
		return agentapi.RunStatusCancelled
	case StopReasonMaxSteps, StopReasonRefused, StopReasonEndTurn:
		return agentapi.RunStatusCompleted
	default:
		return agentapi.RunStatusFailed
	}
}

// clientTerminalFrames builds the native client-facing terminal shape:
// the unnamed stop-reason frame, an optional named error frame, then
// [DONE] (spec §6 "Client-facing SSE wire format").
func clientTerminalFrames(runID string, status agentapi.RunStatus, stopReason, errorType, message string) [][]byte {
	var frames [][]byte
	if f, err := stopReasonFrame(StopReasonPayload{RunID: runID, StopReason: stopReason}); err == nil {
		frames = append(frames, f)
	}
	if errorType != "" {
		if f, err := errorFrame(ErrorPayload{RunID: runID, ErrorType: errorType, Message: message}); err == nil {
			frames = append(frames, f)
		}
	}
	frames = append(frames, doneFrame)
	return frames
}

// translateChunk converts one agent.ResponseChunk into zero or more SSE
// content frames, accumulating usage as a side effect so the eventual
// Run Manager finalization carries final totals.
func translateChunk(chunk *agent.ResponseChunk, usage *agentapi.UsageStats) [][]byte {
	var frames [][]byte

	add := func(v any) {
		if f, err := dataFrame(v); err == nil {
			frames = append(frames, f)
		}
	}

	switch {
	case chunk.Text != "":
		add(map[string]any{"type": "text", "text": chunk.Text})
	case chunk.Thinking != "":
		add(map[string]any{"type": "thinking", "thinking": chunk.Thinking})
	case chunk.ThinkingStart:
		add(map[string]any{"type": "thinking_start"})
	case chunk.ThinkingEnd:
		add(map[string]any{"type": "thinking_end"})
	case chunk.ToolResult != nil:
		usage.ToolCalls++
		add(map[string]any{"type": "tool_result", "tool_result": chunk.ToolResult})
	case chunk.ToolEvent != nil:
		add(map[string]any{"type": "tool_event", "tool_event": chunk.ToolEvent})
	case chunk.Event != nil:
		add(map[string]any{"type": "runtime_event", "event": chunk.Event})
	}

	return frames
}
