package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/relaymind/agentcore/pkg/agentapi"
)

// Request is the provider-agnostic shape the adapter hands to a
// Provider. It is intentionally smaller than a full chat-completions
// payload; provider implementations translate it to their own wire
// format.
type Request struct {
	Model     string
	System    string
	Messages  []agentapi.Message
	Tools     []agentapi.ToolDefinition
	MaxTokens int
}

// Chunk is one unit of a provider's streamed response. Exactly one of
// Text/ReasoningDelta/ToolCall/Done/Err should be meaningfully set per
// chunk, matching how providers emit them incrementally.
type Chunk struct {
	Text  string
	Tool  *agentapi.ToolCall
	Usage agentapi.UsageStats

	// ReasoningDelta, ReasoningSignature, and OmittedReasoning together
	// describe a reasoning/thinking block as it streams in, before
	// precedence resolution collapses it to a single ContentBlock; see
	// ExtractReasoning.
	ReasoningDelta     string
	ReasoningSignature string
	OmittedReasoning   bool

	Done bool
	Err  error
}

// Provider is the minimal surface the adapter needs from a concrete LLM
// backend: issue a request, get back a channel of chunks.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req *Request) (<-chan Chunk, error)
}

// TraceSink receives fire-and-forget telemetry about completed requests.
// Implementations must not block the caller; a slow or failing sink must
// never affect request latency or outcome.
type TraceSink interface {
	RecordRequest(ctx context.Context, provider, model string, usage agentapi.UsageStats, dur time.Duration, err error)
}

// NoopTraceSink discards everything. Used as the adapter's default.
type NoopTraceSink struct{}

func (NoopTraceSink) RecordRequest(context.Context, string, string, agentapi.UsageStats, time.Duration, error) {
}

// AdapterConfig configures Adapter's retry and telemetry behavior.
type AdapterConfig struct {
	// MaxAttempts bounds how many times a transient failure is retried,
	// including the first attempt. Must be >= 1.
	MaxAttempts int

	// RetryDelay is the fixed delay between attempts. Unlike the
	// teacher's linear/exponential backoff, every retry waits exactly
	// this long.
	RetryDelay time.Duration

	Trace  TraceSink
	Logger *slog.Logger
}

func (c *AdapterConfig) sanitize() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
	if c.Trace == nil {
		c.Trace = NoopTraceSink{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Adapter wraps a Provider with fixed-delay retry for transient errors,
// usage accumulation, and trace telemetry. It never retries
// authentication or timeout failures, and it passes cancellation through
// untouched rather than classifying it as an error.
type Adapter struct {
	provider Provider
	cfg      AdapterConfig
}

// NewAdapter builds an Adapter around provider with the given config.
func NewAdapter(provider Provider, cfg AdapterConfig) *Adapter {
	cfg.sanitize()
	return &Adapter{provider: provider, cfg: cfg}
}

// Complete collects a full (non-streaming) response: concatenated text,
// at most one trailing tool call, and accumulated usage. Blocking and
// streaming callers share this same retry/telemetry path; streaming
// callers use Stream instead to get incremental chunks.
func (a *Adapter) Complete(ctx context.Context, req *Request) (text string, tool *agentapi.ToolCall, usage agentapi.UsageStats, err error) {
	ch, err := a.Stream(ctx, req)
	if err != nil {
		return "", nil, usage, err
	}
	for c := range ch {
		if c.Err != nil {
			return "", nil, usage, c.Err
		}
		text += c.Text
		if c.Tool != nil {
			tool = c.Tool
		}
		usage.Add(c.Usage)
	}
	return text, tool, usage, nil
}

// Stream issues req against the underlying provider, retrying the
// initial connection attempt on transient failures with a fixed delay.
// Once a stream has started, mid-stream errors are surfaced as a
// terminal Chunk rather than retried — resuming a partially-consumed
// stream is not safe in general.
func (a *Adapter) Stream(ctx context.Context, req *Request) (<-chan Chunk, error) {
	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ch, err := a.provider.Complete(ctx, req)
		if err == nil {
			return a.instrumented(ctx, req, ch, start), nil
		}

		lastErr = err
		if !IsRetryable(err) {
			a.cfg.Trace.RecordRequest(ctx, a.provider.Name(), req.Model, agentapi.UsageStats{}, time.Since(start), err)
			return nil, err
		}
		if attempt >= a.cfg.MaxAttempts {
			break
		}
		a.cfg.Logger.Warn("llm request retrying", "provider", a.provider.Name(), "attempt", attempt, "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.cfg.RetryDelay):
		}
	}

	a.cfg.Trace.RecordRequest(ctx, a.provider.Name(), req.Model, agentapi.UsageStats{}, time.Since(start), lastErr)
	return nil, lastErr
}

// instrumented wraps the provider's chunk channel so the final usage
// total and any terminal error get recorded to the trace sink exactly
// once, without the caller needing to know about telemetry.
func (a *Adapter) instrumented(ctx context.Context, req *Request, in <-chan Chunk, start time.Time) <-chan Chunk {
	out := make(chan Chunk)
	go func() {
		defer close(out)
		var total agentapi.UsageStats
		var finalErr error
		for c := range in {
			total.Add(c.Usage)
			if c.Err != nil {
				finalErr = c.Err
			}
			out <- c
		}
		a.cfg.Trace.RecordRequest(ctx, a.provider.Name(), req.Model, total, time.Since(start), finalErr)
	}()
	return out
}

// ExtractReasoning resolves one assistant turn's reasoning content block
// from the raw signals a provider chunk stream can carry, in precedence
// order: a natively-signed reasoning block, an omitted-reasoning
// placeholder, legacy-text-as-reasoning, or none at all.
func ExtractReasoning(delta, signature string, omitted bool) *agentapi.ContentBlock {
	switch {
	case delta != "" && signature != "":
		return &agentapi.ContentBlock{Type: agentapi.ContentReasoning, Text: delta, Signature: signature}
	case omitted:
		return &agentapi.ContentBlock{Type: agentapi.ContentOmittedReasoning}
	case delta != "":
		return &agentapi.ContentBlock{Type: agentapi.ContentReasoning, Text: delta}
	default:
		return nil
	}
}
