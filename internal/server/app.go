package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/seed-run/seed/internal/agentprofile"
	"github.com/seed-run/seed/internal/audit"
	"github.com/seed-run/seed/internal/config"
	"github.com/seed-run/seed/internal/convo"
	"github.com/seed-run/seed/internal/eventlog"
	"github.com/seed-run/seed/internal/interaction"
	"github.com/seed-run/seed/internal/observability"
	"github.com/seed-run/seed/internal/processtracker"
	"github.com/seed-run/seed/internal/projection"
	"github.com/seed-run/seed/internal/runtimemgr"
	"github.com/seed-run/seed/internal/tasks"
	"github.com/seed-run/seed/internal/tools"
	"github.com/seed-run/seed/internal/tools/builtin"
	"github.com/seed-run/seed/internal/uibus"
	"github.com/seed-run/seed/internal/workspace"
	"github.com/seed-run/seed/pkg/domain"
)

// app wires every internal package the daemon needs into one object,
// grounded on the teacher's gateway.Server field-bag shape but scoped to
// this system's single-workspace process.
type app struct {
	Config      *config.Config
	Logger      *observability.Logger
	Metrics     *observability.Metrics
	Registerer  *prometheus.Registry
	EventLog    *eventlog.Log
	ConvoLog    *convo.Log
	AuditLog    *audit.Log
	Tasks       *tasks.Service
	Interaction *interaction.Service
	Agents      *agentprofile.Registry
	Manager     *runtimemgr.Manager
	Bus         *uibus.Bus
}

func newApp(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*app, error) {
	root := cfg.Workspace.Root
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	if _, err := workspace.EnsureAgentsFile(root); err != nil {
		return nil, fmt.Errorf("ensure agents file: %w", err)
	}

	eventLog, err := eventlog.Open(filepath.Join(root, cfg.Workspace.EventLogPath))
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	convoLog, err := convo.Open(filepath.Join(root, cfg.Workspace.ConvoLogPath))
	if err != nil {
		return nil, fmt.Errorf("open conversation log: %w", err)
	}
	auditLog, err := audit.Open(filepath.Join(root, cfg.Workspace.AuditLogPath))
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	projStore, err := projection.OpenStore(filepath.Join(root, cfg.Workspace.ProjectionDir))
	if err != nil {
		return nil, fmt.Errorf("open projection store: %w", err)
	}
	tasksProj, err := projection.Open(eventLog, projStore, tasks.ProjectionName, tasks.State{Tasks: map[string]domain.Task{}}, tasks.Reduce)
	if err != nil {
		return nil, fmt.Errorf("open tasks projection: %w", err)
	}

	tasksSvc := tasks.NewService(eventLog, tasksProj)
	interactionSvc := interaction.NewService(eventLog)
	agents := config.BuildAgents(cfg)

	providerCreds := config.ProvidersFromEnv()
	providers, err := config.BuildProviders(providerCreds)
	if err != nil {
		return nil, fmt.Errorf("build providers: %w", err)
	}

	resolver := workspace.New(root, tasksSvc.HasDescendant)
	toolRegistry := tools.NewRegistry()
	tracker := processtracker.New()
	execMgr := builtin.NewExecManager(tracker)
	deps := builtin.Deps{Resolver: resolver, RootTaskID: tasksSvc.RootTaskID}
	if err := builtin.Register(toolRegistry, deps, execMgr); err != nil {
		return nil, fmt.Errorf("register builtin tools: %w", err)
	}

	registerer := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registerer)
	bus := uibus.New(uibus.DefaultConfig())

	manager := runtimemgr.New(runtimemgr.Config{
		EventLog:         eventLog,
		ConvoLog:         convoLog,
		AuditLog:         auditLog,
		Tasks:            tasksSvc,
		Interactions:     interactionSvc,
		Agents:           agents,
		ToolRegistry:     toolRegistry,
		ExecConfig:       cfg.ToolExecConfig(),
		Resolver:         resolver,
		Bus:              bus,
		Logger:           logger,
		Metrics:          metrics,
		Tracker:          tracker,
		Providers:        providers,
		MaxConcurrent:    cfg.Runtime.MaxConcurrentTasks,
		ApprovalDeadline: cfg.Approval.Deadline,
	})

	_ = ctx
	return &app{
		Config: cfg, Logger: logger, Metrics: metrics, Registerer: registerer,
		EventLog: eventLog, ConvoLog: convoLog, AuditLog: auditLog,
		Tasks: tasksSvc, Interaction: interactionSvc, Agents: agents,
		Manager: manager, Bus: bus,
	}, nil
}

func (a *app) Close() {
	a.Bus.Close()
	_ = a.AuditLog.Close()
	_ = a.ConvoLog.Close()
	_ = a.EventLog.Close()
}
