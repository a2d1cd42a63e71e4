package stream

import (
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ToOpenAIChatCompletionChunks composes the client-facing SSE output
// (see drive/translateChunk) with a transform that re-emits assistant
// text as OpenAI chat.completion.chunk objects (spec §4.5 "OpenAI
// transform"), using the teacher's own go-openai wire types
// (internal/agent/providers/openai.go processStream reads the mirror
// image of this shape off ChatCompletionStreamResponse.Choices[0].Delta).
// Usage-statistics and internal tool/runtime-event frames are dropped;
// stop-reason and error frames are dropped in favor of the OpenAI
// finish-reason signal on the final chunk.
type OpenAITransformer struct {
	id      string
	model   string
	started bool
	done    bool
}

// NewOpenAITransformer builds a transformer for one run. id becomes
// `chatcmpl-<id>`.
func NewOpenAITransformer(runID, model string) *OpenAITransformer {
	return &OpenAITransformer{id: "chatcmpl-" + runID, model: model}
}

// contentFrame is the subset of translateChunk's internal `data:` frame
// shape this package cares about; anything else is dropped.
type contentFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Next consumes one already-decoded client-facing frame payload (the
// `v` passed to dataFrame in translateChunk) and returns zero or one
// OpenAI-shaped SSE frame, matching spec §4.5's drop/pass-through rules.
// isTerminal is true for the dispatcher's stop-reason/[DONE] frames,
// which this transform replaces with its own finish-reason chunk.
func (t *OpenAITransformer) Next(frame contentFrame) ([]byte, error) {
	if frame.Type != "text" || frame.Text == "" {
		return nil, nil
	}
	resp := openai.ChatCompletionStreamResponse{
		ID:      t.id,
		Object:  "chat.completion.chunk",
		Created: time.Now().Unix(),
		Model:   t.model,
		Choices: []openai.ChatCompletionStreamChoice{{
			Index: 0,
			Delta: openai.ChatCompletionStreamChoiceDelta{
				Content: frame.Text,
			},
		}},
	}
	if !t.started {
		resp.Choices[0].Delta.Role = openai.ChatMessageRoleAssistant
		t.started = true
	}
	return encodeOpenAIFrame(resp)
}

// Finish emits the final empty-delta chunk with finish_reason:"stop"
// followed by [DONE], regardless of the dispatcher's own stop reason:
// spec §4.5 says usage/tool/stop-reason frames are dropped "in favor of
// the OpenAI finish-reason signal."
func (t *OpenAITransformer) Finish() ([][]byte, error) {
	if t.done {
		return nil, nil
	}
	t.done = true
	resp := openai.ChatCompletionStreamResponse{
		ID:      t.id,
		Object:  "chat.completion.chunk",
		Created: time.Now().Unix(),
		Model:   t.model,
		Choices: []openai.ChatCompletionStreamChoice{{
			Index:        0,
			Delta:        openai.ChatCompletionStreamChoiceDelta{},
			FinishReason: openai.FinishReasonStop,
		}},
	}
	f, err := encodeOpenAIFrame(resp)
	if err != nil {
		return nil, err
	}
	return [][]byte{f, doneFrame}, nil
}

func encodeOpenAIFrame(resp openai.ChatCompletionStreamResponse) ([]byte, error) {
	f, err := dataFrame(resp)
	if err != nil {
		return nil, fmt.Errorf("stream: encode openai chunk: %w", err)
	}
	return f, nil
}
