// Package server is the seedd process body: config load, master-lock
// acquisition, service wiring, and the HTTP/WS server loop. It is
// imported by both cmd/seedd (headless) and cmd/seed's serve subcommand,
// so the two binaries run identical server logic instead of one shelling
// out to the other.
package server

import (
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/seed-run/seed/internal/config"
	"github.com/seed-run/seed/internal/locking"
	"github.com/seed-run/seed/internal/observability"
)

// Run loads configPath, acquires the workspace's single-master lock,
// wires every service, and blocks serving HTTP/WS until ctx is canceled
// or the process receives SIGINT/SIGTERM.
func Run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("daemon: load config: %w", err)
	}

	logger := observability.NewLogger(observability.LogConfig{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logger.Info("starting seedd", "config", configPath, "addr", cfg.Server.Addr)

	if err := os.MkdirAll(cfg.Workspace.Root, 0o755); err != nil {
		return fmt.Errorf("daemon: create workspace root: %w", err)
	}

	release, err := acquireMasterLock(cfg, logger)
	if err != nil {
		return err
	}
	defer release()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("daemon: build app: %w", err)
	}
	defer app.Close()

	if err := app.Manager.Start(ctx); err != nil {
		return fmt.Errorf("daemon: start runtime manager: %w", err)
	}
	defer app.Manager.Stop()

	watcher, err := config.Watch([]string{configPath}, func(path string) {
		logger.Info("config file changed, restart seedd to apply", "path", path)
	}, logger)
	if err != nil {
		logger.Warn("config watch disabled", "error", err)
	} else {
		defer watcher.Close()
	}

	server := &http.Server{Addr: cfg.Server.Addr, Handler: newRouter(app, logger)}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	logger.Info("seedd listening", "addr", cfg.Server.Addr)

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// acquireMasterLock writes .seed.lock, reclaiming it if the pid it names
// is no longer alive (a crash left it behind), and refusing to start
// otherwise — matching the spec's single-master invariant.
func acquireMasterLock(cfg *config.Config, logger *observability.Logger) (release func() error, err error) {
	port := portFromAddr(cfg.Server.Addr)
	signingKey := make([]byte, 32)
	if _, err := rand.Read(signingKey); err != nil {
		return nil, fmt.Errorf("daemon: generate lock signing key: %w", err)
	}

	_, release, acquired, err := locking.Acquire(cfg.Workspace.Root, port, signingKey)
	if err != nil {
		return nil, fmt.Errorf("daemon: acquire workspace lock: %w", err)
	}
	if acquired {
		return release, nil
	}

	existing, found, err := locking.Read(cfg.Workspace.Root)
	if err != nil {
		return nil, fmt.Errorf("daemon: read existing lock: %w", err)
	}
	if found && locking.ProcessAlive(existing.PID) {
		return nil, fmt.Errorf("daemon: workspace %s already has a running master (pid %d, port %d)",
			cfg.Workspace.Root, existing.PID, existing.Port)
	}

	logger.Warn("reclaiming stale workspace lock", "previous_pid", existing.PID)
	if err := os.Remove(filepath.Join(cfg.Workspace.Root, locking.FileName)); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("daemon: remove stale lock: %w", err)
	}
	_, release, acquired, err = locking.Acquire(cfg.Workspace.Root, port, signingKey)
	if err != nil {
		return nil, fmt.Errorf("daemon: acquire workspace lock after reclaim: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("daemon: failed to acquire workspace lock after reclaiming stale one")
	}
	return release, nil
}

func portFromAddr(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, _ := strconv.Atoi(portStr)
	return port
}
