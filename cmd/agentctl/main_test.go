package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	if !names["run"] {
		t.Fatal("expected subcommand \"run\" to be registered")
	}
}

func TestRunCmdStreamsEchoedPrompt(t *testing.T) {
	cmd := buildRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"run", "--prompt", "ping", "--suffix", "-pong"})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("ExecuteContext: %v", err)
	}

	if !strings.Contains(out.String(), "ping-pong") {
		t.Errorf("output = %q, want it to contain the echoed prompt", out.String())
	}
	if !strings.Contains(out.String(), "[DONE]") {
		t.Errorf("output = %q, want a terminal [DONE] frame", out.String())
	}
}
