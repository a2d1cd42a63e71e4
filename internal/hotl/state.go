// Package hotl implements the human-out-of-the-loop self-referential
// agent loop: the same prompt is re-injected after every run until a
// completion promise appears in the agent's output or a configured
// iteration ceiling is reached.
package hotl

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/relaymind/agentcore/pkg/agentapi"
)

// stateFile is the path, relative to a working directory, where the
// active loop's state is persisted between iterations.
const stateFile = ".agentcore/hotl-loop.md"

var promiseRe = regexp.MustCompile(`(?s)<promise>(.*?)</promise>`)

func statePath(workingDir string) string {
	return filepath.Join(workingDir, stateFile)
}

// loadState reads the state file, returning (nil, nil) if no loop is
// active.
func loadState(workingDir string) (*agentapi.HOTLState, error) {
	data, err := os.ReadFile(statePath(workingDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hotl: read state: %w", err)
	}
	return parseStateFile(string(data))
}

// saveState writes the state file, creating the parent directory if
// needed.
func saveState(workingDir string, s *agentapi.HOTLState) error {
	path := statePath(workingDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("hotl: mkdir: %w", err)
	}
	if err := os.WriteFile(path, []byte(formatStateFile(s)), 0o644); err != nil {
		return fmt.Errorf("hotl: write state: %w", err)
	}
	return nil
}

// clearState removes the state file. Missing file is not an error.
func clearState(workingDir string) error {
	err := os.Remove(statePath(workingDir))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("hotl: remove state: %w", err)
	}
	return nil
}

// checkCompletion reports whether output contains a <promise>...</promise>
// block matching the state's configured completion promise, after
// collapsing whitespace on both sides of the comparison.
func checkCompletion(s *agentapi.HOTLState, output string) bool {
	if s.CompletionPromise == nil {
		return false
	}
	m := promiseRe.FindStringSubmatch(output)
	if m == nil {
		return false
	}
	return normalizeWhitespace(m[1]) == normalizeWhitespace(*s.CompletionPromise)
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// formatStateFile renders state as frontmatter-plus-body:
//
//	---
//	iteration: N
//	max_iterations: M
//	completion_promise: "X"|null
//	auto_respond: true|false
//	---
//
//	{prompt}
func formatStateFile(s *agentapi.HOTLState) string {
	promise := "null"
	if s.CompletionPromise != nil {
		promise = strconv.Quote(*s.CompletionPromise)
	}
	return fmt.Sprintf(
		"---\niteration: %d\nmax_iterations: %d\ncompletion_promise: %s\nauto_respond: %t\n---\n\n%s\n",
		s.Iteration, s.MaxIterations, promise, s.AutoRespond, s.Prompt,
	)
}

// parseStateFile is a deliberately loose, line-oriented parser mirroring
// the original's tolerance of hand-edited state files: it reads
// `key: value` lines between the first two `---` delimiters and treats
// everything after the second delimiter as the prompt body.
func parseStateFile(content string) (*agentapi.HOTLState, error) {
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 {
		return nil, fmt.Errorf("hotl: malformed state file: expected frontmatter delimiters")
	}

	s := &agentapi.HOTLState{Status: agentapi.HOTLRunning}
	for _, line := range strings.Split(parts[1], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		switch key {
		case "iteration":
			s.Iteration, _ = strconv.Atoi(val)
		case "max_iterations":
			s.MaxIterations, _ = strconv.Atoi(val)
		case "completion_promise":
			if val == "null" || val == "" {
				s.CompletionPromise = nil
			} else {
				unquoted := strings.Trim(val, `"`)
				s.CompletionPromise = &unquoted
			}
		case "auto_respond":
			s.AutoRespond = val == "true"
		}
	}

	s.Prompt = strings.TrimPrefix(strings.TrimSuffix(parts[2], "\n"), "\n")
	return s, nil
}
