// Package config loads the settings a seedd process needs to start: where
// the workspace and its logs live, which agents are registered and which
// provider/model drives each, default approval policy, and tool execution
// limits. Adapted from the teacher's multi-file config.go/loader.go split,
// trimmed to the fields this system actually reads.
package config

import "time"

// Config is the top-level settings structure, decoded from YAML.
type Config struct {
	Server    ServerConfig           `yaml:"server"`
	Workspace WorkspaceConfig        `yaml:"workspace"`
	Approval  ApprovalConfig         `yaml:"approval"`
	Tools     ToolsConfig            `yaml:"tools"`
	Runtime   RuntimeConfig          `yaml:"runtime"`
	Logging   LoggingConfig          `yaml:"logging"`
	Agents    map[string]AgentConfig `yaml:"agents"`
}

// ServerConfig configures the thin HTTP/WS surface in cmd/seedd.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// WorkspaceConfig locates the workspace root and its event-sourced state
// files beneath it.
type WorkspaceConfig struct {
	Root          string `yaml:"root"`
	EventLogPath  string `yaml:"event_log_path"`
	ConvoLogPath  string `yaml:"convo_log_path"`
	AuditLogPath  string `yaml:"audit_log_path"`
	ProjectionDir string `yaml:"projection_dir"`
	AgentsFile    string `yaml:"agents_file"`
}

// ApprovalConfig sets defaults for RiskRisky tool calls that aren't
// pre-approved by an agent profile's own policy.
type ApprovalConfig struct {
	Deadline time.Duration `yaml:"deadline"`
	AutoDeny bool          `yaml:"auto_deny_on_timeout"`
}

// ToolsConfig maps onto tools.ExecConfig.
type ToolsConfig struct {
	MaxConcurrency int           `yaml:"max_concurrency"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryBackoff   time.Duration `yaml:"retry_backoff"`
}

// RuntimeConfig bounds the Runtime Manager, which spawns one driver
// goroutine per active task. The spec names no cap on concurrent
// drivers, only on the shared tool/LLM worker pool (ToolsConfig), so
// MaxConcurrentTasks defaults to 0 (unbounded) and is an operator opt-in.
type RuntimeConfig struct {
	MaxConcurrentTasks int `yaml:"max_concurrent_tasks"`
}

// LoggingConfig maps onto observability.LogConfig.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AgentConfig is one entry of the agent registry: which provider and model
// drive it, and the system-prompt preamble injected ahead of AGENTS.md.
type AgentConfig struct {
	Provider             string `yaml:"provider"`
	Model                string `yaml:"model"`
	SystemPromptPreamble string `yaml:"system_prompt_preamble"`
	MaxIterations        int    `yaml:"max_iterations"`
}

// ProviderConfig holds the credentials for one LLM provider, sourced from
// environment variables rather than the config file so API keys never land
// in a checked-in YAML document.
type ProviderConfig struct {
	APIKey     string
	BaseURL    string
	MaxRetries int
	RetryDelay time.Duration
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8420"
	}
	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = "."
	}
	if cfg.Workspace.EventLogPath == "" {
		cfg.Workspace.EventLogPath = "state/events.jsonl"
	}
	if cfg.Workspace.ConvoLogPath == "" {
		cfg.Workspace.ConvoLogPath = "state/conversations.jsonl"
	}
	if cfg.Workspace.AuditLogPath == "" {
		cfg.Workspace.AuditLogPath = "state/audit.jsonl"
	}
	if cfg.Workspace.ProjectionDir == "" {
		cfg.Workspace.ProjectionDir = "state/projections.jsonl"
	}
	if cfg.Workspace.AgentsFile == "" {
		cfg.Workspace.AgentsFile = "AGENTS.md"
	}
	if cfg.Approval.Deadline == 0 {
		cfg.Approval.Deadline = 10 * time.Minute
	}
	if cfg.Tools.MaxConcurrency == 0 {
		cfg.Tools.MaxConcurrency = 8
	}
	if cfg.Tools.Timeout == 0 {
		cfg.Tools.Timeout = 30 * time.Second
	}
	if cfg.Tools.RetryBackoff == 0 {
		cfg.Tools.RetryBackoff = 200 * time.Millisecond
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	for id, agent := range cfg.Agents {
		if agent.Provider == "" {
			agent.Provider = "anthropic"
		}
		if agent.MaxIterations == 0 {
			agent.MaxIterations = 25
		}
		cfg.Agents[id] = agent
	}
}

// ValidationError collects every config problem found, rather than
// stopping at the first one.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	msg := "invalid config:"
	for _, issue := range e.Issues {
		msg += "\n  - " + issue
	}
	return msg
}

func validate(cfg *Config) error {
	var issues []string
	if len(cfg.Agents) == 0 {
		issues = append(issues, "agents: at least one agent must be registered")
	}
	for id, agent := range cfg.Agents {
		if agent.Model == "" {
			issues = append(issues, "agents."+id+".model is required")
		}
	}
	if cfg.Tools.MaxConcurrency < 1 {
		issues = append(issues, "tools.max_concurrency must be >= 1")
	}
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
