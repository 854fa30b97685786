package config

import (
	"fmt"

	"github.com/seed-run/seed/internal/agentprofile"
	"github.com/seed-run/seed/internal/providers/anthropic"
	"github.com/seed-run/seed/internal/runtime"
	"github.com/seed-run/seed/internal/tools"
)

// BuildAgents turns the config file's agent table into a populated
// registry, the shape internal/runtimemgr consults on every dispatch.
func BuildAgents(cfg *Config) *agentprofile.Registry {
	registry := agentprofile.NewRegistry()
	for id, agent := range cfg.Agents {
		registry.Register(agentprofile.Profile{
			ID:                   id,
			Provider:             agent.Provider,
			Model:                agent.Model,
			SystemPromptPreamble: agent.SystemPromptPreamble,
			MaxIterations:        agent.MaxIterations,
		})
	}
	return registry
}

// BuildProviders constructs one runtime.LLMProvider per credential found in
// providerCreds, keyed the same way agentprofile.Profile.Provider names
// them. Only "anthropic" is implemented; an unknown provider name referenced
// by an agent surfaces as a runtimemgr "no provider registered" log line
// rather than a startup failure, so a partially configured deployment can
// still serve the agents it does have credentials for.
func BuildProviders(providerCreds map[string]ProviderConfig) (map[string]runtime.LLMProvider, error) {
	out := make(map[string]runtime.LLMProvider, len(providerCreds))
	for name, cred := range providerCreds {
		switch name {
		case "anthropic":
			p, err := anthropic.New(anthropic.Config{
				APIKey:     cred.APIKey,
				BaseURL:    cred.BaseURL,
				MaxRetries: cred.MaxRetries,
				RetryDelay: cred.RetryDelay,
			})
			if err != nil {
				return nil, fmt.Errorf("building anthropic provider: %w", err)
			}
			out[name] = p
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
	}
	return out, nil
}

// ToolExecConfig maps the config file's tools section onto tools.ExecConfig.
func (c *Config) ToolExecConfig() tools.ExecConfig {
	return tools.ExecConfig{
		MaxConcurrency: c.Tools.MaxConcurrency,
		Timeout:        c.Tools.Timeout,
		MaxRetries:     c.Tools.MaxRetries,
		RetryBackoff:   c.Tools.RetryBackoff,
	}
}
