package files

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/relaymind/agentcore/internal/agent"
)

// MaxGrepResults caps how many result lines are returned before truncation.
const MaxGrepResults = 500

// GrepTimeout bounds how long a single search may run.
const GrepTimeout = 60 * time.Second

// GrepTool searches file contents using ripgrep.
type GrepTool struct {
	resolver Resolver
	rgPath   string
}

// NewGrepTool creates a grep tool scoped to the workspace. It resolves the
// ripgrep binary once at construction; Execute reports a clear error if rg
// isn't on PATH rather than failing per call.
func NewGrepTool(cfg Config) *GrepTool {
	rgPath, _ := exec.LookPath("rg")
	return &GrepTool{resolver: Resolver{Root: cfg.Workspace}, rgPath: rgPath}
}

// Name returns the tool name.
func (t *GrepTool) Name() string {
	return "grep"
}

// Description returns the tool description.
func (t *GrepTool) Description() string {
	return "Search file contents in the workspace using ripgrep regex syntax."
}

// Schema returns the JSON schema for the tool parameters.
func (t *GrepTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"pattern": map[string]interface{}{
				"type":        "string",
				"description": "Regex pattern to search for.",
			},
			"path": map[string]interface{}{
				"type":        []string{"string", "null"},
				"description": "Directory or file to search in (relative to workspace), or null for the workspace root.",
			},
			"glob": map[string]interface{}{
				"type":        []string{"string", "null"},
				"description": "Glob pattern to filter files, e.g. '*.go', or null for no filter.",
			},
			"output_mode": map[string]interface{}{
				"type":        []string{"string", "null"},
				"description": "'content' to show matching lines or 'files_with_matches' (default) for file paths only, or null for default.",
				"enum":        []string{"content", "files_with_matches", ""},
			},
			"case_insensitive": map[string]interface{}{
				"type":        []string{"boolean", "null"},
				"description": "Case insensitive search, or null for false.",
			},
			"context_lines": map[string]interface{}{
				"type":        []string{"integer", "null"},
				"description": "Lines of context around matches in content mode (max 10), or null for none.",
				"minimum":     0,
			},
		},
		"required":             []string{"pattern", "path", "glob", "output_mode", "case_insensitive", "context_lines"},
		"additionalProperties": false,
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

// Execute shells out to ripgrep and returns matching files or lines.
func (t *GrepTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Pattern         string `json:"pattern"`
		Path            string `json:"path"`
		Glob            string `json:"glob"`
		OutputMode      string `json:"output_mode"`
		CaseInsensitive bool   `json:"case_insensitive"`
		ContextLines    int    `json:"context_lines"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Pattern) == "" {
		return toolError("pattern is required"), nil
	}
	if t.rgPath == "" {
		return toolError("ripgrep (rg) not found on PATH"), nil
	}

	searchPath := input.Path
	if searchPath == "" {
		searchPath = "."
	}
	searchTarget, err := t.resolver.Resolve(searchPath)
	if err != nil {
		return toolError(err.Error()), nil
	}

	outputMode := input.OutputMode
	if outputMode == "" {
		outputMode = "files_with_matches"
	}

	args := []string{}
	if outputMode == "files_with_matches" {
		args = append(args, "--files-with-matches")
	} else {
		args = append(args, "--line-number")
		if input.ContextLines > 0 {
			ctxLines := input.ContextLines
			if ctxLines > 10 {
				ctxLines = 10
			}
			args = append(args, "-C", fmt.Sprintf("%d", ctxLines))
		}
	}
	if input.CaseInsensitive {
		args = append(args, "--ignore-case")
	}
	if input.Glob != "" {
		args = append(args, "--glob", input.Glob)
	}
	args = append(args, input.Pattern, searchTarget)

	runCtx, cancel := context.WithTimeout(ctx, GrepTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, t.rgPath, args...)
	cmd.Dir = t.resolver.Root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runCtx.Err() != nil {
		return toolError("search timed out after 60 seconds"), nil
	}

	exitCode := 0
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if runErr != nil {
		return toolError(fmt.Sprintf("search failed: %v", runErr)), nil
	}

	// ripgrep returns 1 for no matches, 2 for a search error.
	if exitCode == 2 {
		return toolError(fmt.Sprintf("search error: %s", strings.TrimSpace(stderr.String()))), nil
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return &agent.ToolResult{Content: "No matches found"}, nil
	}

	lines := strings.Split(text, "\n")
	truncated := len(lines) > MaxGrepResults
	total := len(lines)
	if truncated {
		lines = lines[:MaxGrepResults]
	}
	output := strings.Join(lines, "\n")
	if truncated {
		output += fmt.Sprintf("\n\n... [truncated, showing first %d of %d results]", MaxGrepResults, total)
	}

	if outputMode == "files_with_matches" {
		rel := make([]string, 0, len(lines))
		for _, l := range lines {
			r, err := filepath.Rel(t.resolver.Root, l)
			if err != nil {
				r = l
			}
			rel = append(rel, r)
		}
		output = strings.Join(rel, "\n")
		if truncated {
			output += fmt.Sprintf("\n\n... [truncated, showing first %d of %d results]", MaxGrepResults, total)
		}
		return &agent.ToolResult{Content: fmt.Sprintf("Found %d files:\n%s", len(lines), output)}, nil
	}

	return &agent.ToolResult{Content: output}, nil
}
