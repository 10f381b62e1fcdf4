package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"serve", "attach", "sessions", "config", "version"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected subcommand %q registered", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out.String(), "gitguide") {
		t.Fatalf("unexpected version output %q", out.String())
	}
}

func TestConfigWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	root := newRootCmd()
	root.SetArgs([]string{"config", "--write-default", "-c", path})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("config --write-default: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), "config_version") {
		t.Fatalf("default config missing config_version: %q", data)
	}

	root = newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "-c", path})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("config print: %v", err)
	}
	if !strings.Contains(out.String(), "base_url") {
		t.Fatalf("unexpected config output %q", out.String())
	}
}
