package agentapi

// ContentBlockType discriminates the payload carried by a ContentBlock.
type ContentBlockType string

const (
	ContentText             ContentBlockType = "text"
	ContentReasoning        ContentBlockType = "reasoning"
	ContentOmittedReasoning ContentBlockType = "omitted_reasoning"
	ContentImage            ContentBlockType = "image"
	ContentAudio            ContentBlockType = "audio"
	ContentResource         ContentBlockType = "resource"
	ContentEmbeddedResource ContentBlockType = "embedded_resource"
)

// ContentBlock is one typed part of a message's richer breakdown, used
// when a provider response or a tool produces more than flat text.
//
// Reasoning precedence on ingest from a provider response follows, in
// order: a natively-signed reasoning block, an omitted-reasoning
// placeholder (the provider redacted its chain of thought but signals
// that one existed), a legacy provider that returns its reasoning as
// plain text (treated as ContentReasoning with no signature), or no
// reasoning content at all.
type ContentBlock struct {
	Type ContentBlockType `json:"type"`

	// Text holds the payload for ContentText and ContentReasoning.
	Text string `json:"text,omitempty"`

	// Signature authenticates a ContentReasoning block as provider-signed;
	// empty for legacy-text-as-reasoning blocks.
	Signature string `json:"signature,omitempty"`

	// MimeType and Data carry inline binary content (image/audio).
	MimeType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data,omitempty"`

	// URI identifies a resource/embedded_resource block.
	URI string `json:"uri,omitempty"`
}

// HOTLStatus is the lifecycle of a human-out-of-the-loop self-looping
// session.
type HOTLStatus string

const (
	HOTLRunning       HOTLStatus = "running"
	HOTLCompleted     HOTLStatus = "completed"
	HOTLCancelled     HOTLStatus = "cancelled"
	HOTLMaxIterations HOTLStatus = "max_iterations"
)

// HOTLState is the durable record of a self-looping prompt, persisted to
// a frontmatter-plus-body file under the agent's working directory so it
// survives process restarts between iterations.
type HOTLState struct {
	Prompt            string
	Iteration         int
	MaxIterations     int // 0 means unlimited
	CompletionPromise *string
	Status            HOTLStatus
	AutoRespond       bool
}

// ShouldContinue reports whether another iteration should run, given the
// max-iterations ceiling alone (completion-promise matching is checked
// separately against the agent's latest output).
func (s *HOTLState) ShouldContinue() bool {
	if s.MaxIterations > 0 && s.Iteration >= s.MaxIterations {
		return false
	}
	return s.Status == HOTLRunning
}
