package main

import (
	"strings"
	"testing"
)

func TestColorize(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "hello")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}

	noColor = false
	result = colorize(colorGreen, "hello")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
	if !strings.HasSuffix(result, colorReset) {
		t.Errorf("colorized text should end with reset code, got %q", result)
	}
}

func TestRootCommandWiring(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "ingest", "index-images", "ask", "chat"} {
		if !names[want] {
			t.Errorf("missing subcommand %q", want)
		}
	}
}

func TestIngestRequiresDirArg(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"ingest"})
	if err := rootCmd.Execute(); err == nil {
		t.Error("ingest without a directory argument should fail")
	}
}
