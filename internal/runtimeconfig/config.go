// Package runtimeconfig loads the thin YAML configuration this runtime
// needs: step budgets, retry policy, the streaming keepalive interval,
// and the streaming eligibility allow-lists. It deliberately does not
// grow into the teacher's full provisioning config (no $include
// directives, no channel/skill/plugin sections) since YAML-driven agent
// provisioning beyond these knobs is out of scope.
package runtimeconfig

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level runtime configuration document.
type Config struct {
	Loop      LoopConfig      `yaml:"loop"`
	ToolExec  ToolExecConfig  `yaml:"tool_exec"`
	Streaming StreamingConfig `yaml:"streaming"`
}

// LoopConfig bounds a single agent run.
type LoopConfig struct {
	// MaxSteps caps the number of step-loop iterations before the run
	// ends with stop_reason "max_steps". Default: 50.
	MaxSteps int `yaml:"max_steps"`

	// MaxTokens caps cumulative usage tokens for the run. 0 means no cap.
	MaxTokens int `yaml:"max_tokens"`

	// RequestRetry configures the LLM Request Adapter's fixed-delay retry.
	RequestRetry RetryConfig `yaml:"request_retry"`
}

// RetryConfig is a fixed-delay retry policy (spec §4.4 step 3: a
// configurable fixed delay, not the teacher's linear/exponential
// backoff formula).
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Delay       time.Duration `yaml:"delay"`
}

// ToolExecConfig bounds a single tool call.
type ToolExecConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// StreamingConfig configures the Streaming Dispatcher.
type StreamingConfig struct {
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"`
	CancelPoll        time.Duration `yaml:"cancel_poll"`

	// EligibleGroups and TokenStreamingEndpoints override the
	// compiled-in allow-lists in internal/stream/eligibility.go when
	// non-empty, letting an operator widen or narrow eligibility without
	// a rebuild.
	EligibleGroups          []string `yaml:"eligible_groups"`
	TokenStreamingEndpoints []string `yaml:"token_streaming_endpoints"`
}

// Default returns the built-in defaults, matching the teacher's
// DefaultLoopConfig/DefaultToolExecConfig shape.
func Default() *Config {
	return &Config{
		Loop: LoopConfig{
			MaxSteps:  50,
			MaxTokens: 0,
			RequestRetry: RetryConfig{
				MaxAttempts: 3,
				Delay:       2 * time.Second,
			},
		},
		ToolExec: ToolExecConfig{
			Timeout: 30 * time.Second,
		},
		Streaming: StreamingConfig{
			KeepaliveInterval: 15 * time.Second,
			CancelPoll:        500 * time.Millisecond,
		},
	}
}

// Load reads and parses a YAML config file at path, applying defaults
// for anything left unset (mirroring the teacher's
// sanitizeLoopConfig). Unknown fields are rejected, matching the
// teacher loader's decoder.KnownFields(true) strictness.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("runtimeconfig: read %s: %w", path, err)
	}
	cfg, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("runtimeconfig: parse %s: %w", path, err)
	}
	return sanitize(cfg), nil
}

func decode(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("expected a single YAML document")
	}
	return &cfg, nil
}

// sanitize fills zero-valued fields with Default()'s values, the same
// shape as the teacher's sanitizeLoopConfig: never rejects a partially
// specified config, always returns something runnable.
func sanitize(cfg *Config) *Config {
	defaults := Default()
	if cfg == nil {
		return defaults
	}
	out := *cfg
	if out.Loop.MaxSteps <= 0 {
		out.Loop.MaxSteps = defaults.Loop.MaxSteps
	}
	if out.Loop.MaxTokens < 0 {
		out.Loop.MaxTokens = 0
	}
	if out.Loop.RequestRetry.MaxAttempts <= 0 {
		out.Loop.RequestRetry.MaxAttempts = defaults.Loop.RequestRetry.MaxAttempts
	}
	if out.Loop.RequestRetry.Delay <= 0 {
		out.Loop.RequestRetry.Delay = defaults.Loop.RequestRetry.Delay
	}
	if out.ToolExec.Timeout <= 0 {
		out.ToolExec.Timeout = defaults.ToolExec.Timeout
	}
	if out.Streaming.KeepaliveInterval <= 0 {
		out.Streaming.KeepaliveInterval = defaults.Streaming.KeepaliveInterval
	}
	if out.Streaming.CancelPoll <= 0 {
		out.Streaming.CancelPoll = defaults.Streaming.CancelPoll
	}
	return &out
}
