// Package webfetch implements a fetch-kind tool that retrieves a web
// page and renders it as plain text for the agent to read. It uses
// only net/http: the teacher's browser-automation stack
// (playwright-go, chromedp) is for interactive rendering, which this
// tool does not need.
package webfetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/relaymind/agentcore/internal/agent"
)

// MaxContentBytes caps the response body size fetched from the network.
const MaxContentBytes = 5 * 1024 * 1024

// MaxOutputChars caps the rendered text returned to the agent.
const MaxOutputChars = 50000

// retryableStatus reports whether an HTTP status code is worth retrying.
func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// Tool fetches a URL and converts its body to readable text.
type Tool struct {
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
}

// Config controls the fetch tool's HTTP behavior.
type Config struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// New creates a web-fetch tool with sane request defaults.
func New(cfg Config) *Tool {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &Tool{
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

func (t *Tool) Name() string { return "web_fetch" }

func (t *Tool) Description() string {
	return "Fetch a web page over HTTP(S) and return its content as plain text, truncated to avoid context overflow."
}

func (t *Tool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "The http(s) URL to fetch.",
			},
		},
		"required":             []string{"url"},
		"additionalProperties": false,
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

// Execute fetches the URL, retrying on transient (429/5xx, connection)
// failures with a fixed delay, mirroring the teacher's BaseProvider.Retry
// loop shape.
func (t *Tool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolErr(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.URL) == "" {
		return toolErr("url is required"), nil
	}

	parsed, err := url.Parse(input.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return toolErr(fmt.Sprintf("invalid URL: %s (must be http or https)", input.URL)), nil
	}

	var body []byte
	var contentType string
	var lastErr error
	for attempt := 1; attempt <= t.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return toolErr(ctx.Err().Error()), nil
		}
		body, contentType, err = t.fetchOnce(ctx, input.URL)
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		if statusErr, ok := err.(*statusError); ok && !retryableStatus(statusErr.code) {
			break
		}
		if attempt >= t.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return toolErr(ctx.Err().Error()), nil
		case <-time.After(t.retryDelay * time.Duration(attempt)):
		}
	}
	if lastErr != nil {
		return toolErr(lastErr.Error()), nil
	}

	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "text/plain") {
		return toolErr(fmt.Sprintf("unsupported content type: %s (only HTML and plain text are supported)", contentType)), nil
	}

	text := string(body)
	if strings.Contains(contentType, "text/html") {
		text = htmlToText(text)
	}
	truncated := false
	if len(text) > MaxOutputChars {
		text = text[:MaxOutputChars]
		truncated = true
	}

	output := fmt.Sprintf("# Content from %s\n\n%s", input.URL, text)
	if truncated {
		output += "\n\n... (truncated)"
	}
	return &agent.ToolResult{Content: output}, nil
}

type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.code, e.url)
}

func (t *Tool) fetchOnce(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; agentcore/1.0)")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, "", &statusError{code: resp.StatusCode, url: rawURL}
	}

	limited := io.LimitReader(resp.Body, MaxContentBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, "", err
	}
	if len(data) > MaxContentBytes {
		return nil, "", fmt.Errorf("content too large: exceeds %d MB limit", MaxContentBytes/1024/1024)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

var (
	htmlTag       = regexp.MustCompile(`(?s)<[^>]+>`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// htmlToText strips script/style blocks and tags, collapsing whitespace.
// This module does not wire an HTML-to-markdown converter (no example
// repo carries one); a plain tag-stripping fallback, like the teacher's
// own degraded path when such a converter isn't available, is enough
// for the agent to read page content.
func htmlToText(html string) string {
	text := stripTagPairs(html, "script")
	text = stripTagPairs(text, "style")
	text = htmlTag.ReplaceAllString(text, " ")
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func stripTagPairs(html, tag string) string {
	re := regexp.MustCompile(`(?is)<` + tag + `[^>]*>.*?</` + tag + `>`)
	return re.ReplaceAllString(html, "")
}

func toolErr(message string) *agent.ToolResult {
	return &agent.ToolResult{Content: message, IsError: true}
}
