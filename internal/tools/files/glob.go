package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/relaymind/agentcore/internal/agent"
)

// MaxGlobResults caps how many matches are returned before truncation.
const MaxGlobResults = 500

// GlobTool finds files in the workspace matching a glob pattern.
type GlobTool struct {
	resolver Resolver
}

// NewGlobTool creates a glob tool scoped to the workspace.
func NewGlobTool(cfg Config) *GlobTool {
	return &GlobTool{resolver: Resolver{Root: cfg.Workspace}}
}

// Name returns the tool name.
func (t *GlobTool) Name() string {
	return "glob"
}

// Description returns the tool description.
func (t *GlobTool) Description() string {
	return "Find files in the workspace matching a glob pattern, sorted by modification time (newest first)."
}

// Schema returns the JSON schema for the tool parameters.
func (t *GlobTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"pattern": map[string]interface{}{
				"type":        "string",
				"description": "Glob pattern to match files, e.g. '**/*.go' or 'src/*.json'.",
			},
			"path": map[string]interface{}{
				"type":        []string{"string", "null"},
				"description": "Directory to search in (relative to workspace), or null for the workspace root.",
			},
		},
		"required":             []string{"pattern", "path"},
		"additionalProperties": false,
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

// Execute matches the pattern against files under the search directory.
func (t *GlobTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	var input struct {
		Pattern string `json:"pattern"`
		Path    string `json:"path"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Pattern) == "" {
		return toolError("pattern is required"), nil
	}

	searchPath := input.Path
	if searchPath == "" {
		searchPath = "."
	}
	searchDir, err := t.resolver.Resolve(searchPath)
	if err != nil {
		return toolError(err.Error()), nil
	}

	if !doublestar.ValidatePattern(input.Pattern) {
		return toolError("invalid glob pattern"), nil
	}

	fsys := os.DirFS(searchDir)
	matches, err := doublestar.Glob(fsys, input.Pattern)
	if err != nil {
		return toolError(fmt.Sprintf("invalid glob pattern: %v", err)), nil
	}

	type match struct {
		relPath string
		modTime int64
	}
	var files []match
	for _, m := range matches {
		info, err := os.Stat(filepath.Join(searchDir, m))
		if err != nil || info.IsDir() {
			continue
		}
		rel, err := filepath.Rel(t.resolver.Root, filepath.Join(searchDir, m))
		if err != nil {
			continue
		}
		files = append(files, match{relPath: rel, modTime: info.ModTime().UnixNano()})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime > files[j].modTime })

	if len(files) == 0 {
		return &agent.ToolResult{Content: "No files found matching pattern"}, nil
	}

	truncated := len(files) > MaxGlobResults
	total := len(files)
	if truncated {
		files = files[:MaxGlobResults]
	}

	var lines []string
	for _, f := range files {
		lines = append(lines, f.relPath)
	}
	output := fmt.Sprintf("Found %d files:\n%s", len(files), strings.Join(lines, "\n"))
	if truncated {
		output += fmt.Sprintf("\n\n... [showing first %d of %d files]", MaxGlobResults, total)
	}
	return &agent.ToolResult{Content: output}, nil
}
