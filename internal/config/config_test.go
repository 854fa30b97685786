package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: 0.0.0.0:9000
  extra: true
agents:
  assistant:
    model: claude-sonnet-4-20250514
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadRequiresAtLeastOneAgent(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: 0.0.0.0:9000
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "at least one agent") {
		t.Fatalf("expected agents error, got %v", err)
	}
}

func TestLoadRequiresModelPerAgent(t *testing.T) {
	path := writeConfig(t, `
agents:
  assistant:
    provider: anthropic
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "agents.assistant.model") {
		t.Fatalf("expected model error, got %v", err)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
agents:
  assistant:
    model: claude-sonnet-4-20250514
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr == "" {
		t.Error("expected default server addr")
	}
	if cfg.Workspace.EventLogPath != "state/events.jsonl" {
		t.Errorf("event log path = %q", cfg.Workspace.EventLogPath)
	}
	if cfg.Approval.Deadline != 10*time.Minute {
		t.Errorf("approval deadline = %v, want 10m default", cfg.Approval.Deadline)
	}
	agent, ok := cfg.Agents["assistant"]
	if !ok {
		t.Fatal("expected assistant agent")
	}
	if agent.Provider != "anthropic" {
		t.Errorf("provider = %q, want default anthropic", agent.Provider)
	}
	if agent.MaxIterations != 25 {
		t.Errorf("max iterations = %d, want default 25", agent.MaxIterations)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("SEED_TEST_ADDR", "10.0.0.5:1234")
	path := writeConfig(t, `
server:
  addr: ${SEED_TEST_ADDR}
agents:
  assistant:
    model: claude-sonnet-4-20250514
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != "10.0.0.5:1234" {
		t.Errorf("addr = %q, want expanded env var", cfg.Server.Addr)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("SEED_ADDR", "192.168.1.1:8080")
	path := writeConfig(t, `
server:
  addr: 0.0.0.0:9000
agents:
  assistant:
    model: claude-sonnet-4-20250514
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != "192.168.1.1:8080" {
		t.Errorf("addr = %q, want env override", cfg.Server.Addr)
	}
}

func TestBuildAgentsPopulatesRegistry(t *testing.T) {
	cfg := &Config{Agents: map[string]AgentConfig{
		"assistant": {Provider: "anthropic", Model: "claude-sonnet-4-20250514", MaxIterations: 10},
	}}
	registry := BuildAgents(cfg)
	profile, ok := registry.Get("assistant")
	if !ok {
		t.Fatal("expected assistant to be registered")
	}
	if profile.Model != "claude-sonnet-4-20250514" || profile.MaxIterations != 10 {
		t.Errorf("profile = %+v", profile)
	}
}

func TestBuildProvidersRejectsUnknownProvider(t *testing.T) {
	_, err := BuildProviders(map[string]ProviderConfig{"openai": {APIKey: "x"}})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestBuildProvidersConstructsAnthropic(t *testing.T) {
	providers, err := BuildProviders(map[string]ProviderConfig{"anthropic": {APIKey: "test-key"}})
	if err != nil {
		t.Fatalf("BuildProviders: %v", err)
	}
	if _, ok := providers["anthropic"]; !ok {
		t.Fatal("expected anthropic provider")
	}
}
