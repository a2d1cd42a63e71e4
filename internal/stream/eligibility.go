package stream

// Endpoint kind strings match the `provider` field carried on
// agentapi.AgentContext, mirroring the LLMProvider.Name() values the
// teacher's providers package already uses (anthropic, openai, ...).
var llmStreamingCompatible = map[string]bool{
	"anthropic":     true,
	"openai":        true,
	"together":      true,
	"google_ai":     true,
	"google_vertex": true,
	"bedrock":       true,
	"ollama":        true,
	"azure":         true,
	"xai":           true,
	"groq":          true,
	"deepseek":      true,
}

// tokenStreamingCompatible is the stricter subset eligible for
// token-level (as opposed to whole-message) streaming.
var tokenStreamingCompatible = map[string]bool{
	"anthropic": true,
	"openai":    true,
	"bedrock":   true,
	"deepseek":  true,
}

// GroupKind names a multi-agent group an agent may belong to. An empty
// GroupKind means the agent is not part of any group.
type GroupKind string

const (
	GroupKindSleeptime      GroupKind = "sleeptime"
	GroupKindVoiceSleeptime GroupKind = "voice_sleeptime"
)

// streamingEligibleGroups whitelists the group kinds that don't disable
// streaming for their members.
var streamingEligibleGroups = map[GroupKind]bool{
	GroupKindSleeptime:      true,
	GroupKindVoiceSleeptime: true,
}

// AgentVariant distinguishes agent implementations that get special
// streaming allowances, e.g. the extra google-endpoint token streaming
// carve-out for crow_v1 agents.
type AgentVariant string

const (
	AgentVariantCrowV1 AgentVariant = "crow_v1"
)

// StreamingEligible reports whether an agent in the given group (empty
// string if none) is eligible for the streaming dispatcher at all. An
// ineligible agent falls through to a non-streaming send path.
func StreamingEligible(group GroupKind) bool {
	if group == "" {
		return true
	}
	return streamingEligibleGroups[group]
}

// LLMStreamingCompatible reports whether endpointKind supports streaming
// responses at all (whole-message granularity or better).
func LLMStreamingCompatible(endpointKind string) bool {
	return llmStreamingCompatible[endpointKind]
}

// TokenStreamingCompatible reports whether endpointKind supports
// token-level streaming for the given agent variant. Google endpoints
// are token-streaming-compatible only for crow_v1 agents; every other
// endpoint in the restricted set is unconditional.
func TokenStreamingCompatible(endpointKind string, variant AgentVariant) bool {
	if tokenStreamingCompatible[endpointKind] {
		return true
	}
	if (endpointKind == "google_ai" || endpointKind == "google_vertex") && variant == AgentVariantCrowV1 {
		return true
	}
	return false
}
