package agent

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/relaymind/agentcore/pkg/agentapi"
)

// ErrNonStrictSchema is returned when a tool's declared schema does not
// meet strict mode: every property in `properties` must appear in
// `required`, and `additionalProperties` must be `false`. Grammar-
// constrained decoding backends (llama.cpp and similar) reject anything
// looser, so the registry enforces it before a schema is ever handed to
// an LLM provider (spec §4.1, testable property 5).
type ErrNonStrictSchema struct {
	Tool   string
	Detail string
}

func (e *ErrNonStrictSchema) Error() string {
	return fmt.Sprintf("agent: tool %q schema is not strict-mode: %s", e.Tool, e.Detail)
}

// compileStrictSchema parses raw as a JSON Schema document, compiles it
// with the jsonschema/v5 validator (catching malformed schemas early),
// and checks the strict-mode shape by hand since the library itself has
// no "strict" validation mode.
func compileStrictSchema(toolName string, raw json.RawMessage) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	resourceURL := "mem://" + toolName + ".json"
	if err := compiler.AddResource(resourceURL, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("agent: tool %q: invalid json schema: %w", toolName, err)
	}
	schema, err := compiler.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("agent: tool %q: json schema does not compile: %w", toolName, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("agent: tool %q: schema is not a JSON object: %w", toolName, err)
	}
	if err := checkStrictShape(toolName, doc); err != nil {
		return nil, err
	}
	return schema, nil
}

func checkStrictShape(toolName string, doc map[string]any) error {
	props, _ := doc["properties"].(map[string]any)

	additionalProps, ok := doc["additionalProperties"].(bool)
	if !ok || additionalProps {
		return &ErrNonStrictSchema{Tool: toolName, Detail: "additionalProperties must be false"}
	}

	required := map[string]bool{}
	if reqList, ok := doc["required"].([]any); ok {
		for _, r := range reqList {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}
	for name := range props {
		if !required[name] {
			return &ErrNonStrictSchema{Tool: toolName, Detail: fmt.Sprintf("property %q is not in required", name)}
		}
	}
	if len(required) != len(props) {
		return &ErrNonStrictSchema{Tool: toolName, Detail: "required lists a name not present in properties"}
	}
	return nil
}

// ValidateArgs decodes args and validates them against schema, returning
// a descriptive error on the first violation. Used by tests that want to
// assert a tool's declared schema actually accepts its own example
// arguments.
func ValidateArgs(schema *jsonschema.Schema, args json.RawMessage) error {
	var v any
	if err := json.Unmarshal(args, &v); err != nil {
		return fmt.Errorf("agent: malformed tool arguments: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("agent: tool arguments do not match schema: %w", err)
	}
	return nil
}

// EmitSchemas returns the strict-mode ToolDefinition for every
// registered tool, in registration order, per spec §4.1's
// "emit-schemas" operation. It fails closed: a single non-conforming
// tool schema fails the whole call, since a partially-strict tool list
// would still reach the LLM provider for its conforming members.
func (r *ToolRegistry) EmitSchemas() ([]agentapi.ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]agentapi.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		schema := tool.Schema()
		if _, err := compileStrictSchema(name, schema); err != nil {
			return nil, err
		}
		kind := agentapi.ToolKindServer
		if ct, ok := tool.(ClientTool); ok && ct.IsClientSide() {
			kind = agentapi.ToolKindClient
		}
		defs = append(defs, agentapi.ToolDefinition{
			Name:        name,
			Description: tool.Description(),
			Schema:      schema,
			Kind:        kind,
		})
	}
	return defs, nil
}

// ClientTool is implemented by tools whose execution happens on the
// LLM-host side rather than inside this process; EmitClientStubs uses it
// to tell which registered tools need a stub instead of a real handler.
type ClientTool interface {
	IsClientSide() bool
}

// ClientStub is a remote tool stub the LLM host can register locally:
// its signature matches the schema but it is never invoked in-process.
type ClientStub struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
}

// ErrClientSideTool is the error a registered client-kind tool's Execute
// must return (or that the executor substitutes) to signal "this call
// is handled client-side, not here."
var ErrClientSideTool = fmt.Errorf("agent: tool is executed client-side, not by this registry")

// EmitClientStubs returns a ClientStub for every registered ClientTool,
// in registration order (spec §4.1 "emit-client-stubs").
func (r *ToolRegistry) EmitClientStubs() []ClientStub {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stubs []ClientStub
	for _, name := range r.order {
		tool := r.tools[name]
		ct, ok := tool.(ClientTool)
		if !ok || !ct.IsClientSide() {
			continue
		}
		stubs = append(stubs, ClientStub{
			Name:        name,
			Description: tool.Description(),
			Schema:      tool.Schema(),
		})
	}
	return stubs
}
