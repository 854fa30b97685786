// Package workspace implements the scoped path resolver: the private:/,
// shared:/, public:/ grammar that sandboxes every tool's filesystem access
// to its task's corner of the workspace, plus the workspace's AGENTS.md
// bootstrap.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/seed-run/seed/pkg/domain"
)

// HasDescendant reports whether rootTaskID has at least one descendant
// task, gating shared:/ availability per the spec's resolved Open
// Question: shared:/ becomes available only once the root task has
// spawned a child, and remains available afterward even if that child
// later completes.
type HasDescendant func(rootTaskID string) bool

// Resolver maps ScopedPaths to real filesystem paths rooted under a
// workspace directory, generalizing tools/files.Resolver's single-root
// abs-join-clean-escape-check into the three-scope grammar.
type Resolver struct {
	WorkspaceRoot string
	HasDescendant HasDescendant
}

// New returns a Resolver rooted at workspaceRoot.
func New(workspaceRoot string, hasDescendant HasDescendant) *Resolver {
	return &Resolver{WorkspaceRoot: workspaceRoot, HasDescendant: hasDescendant}
}

// Parse splits a "scope:/rel/path" string into a ScopedPath. A path
// carrying an unrecognized "word:/" prefix is rejected as
// domain.ErrInvalidPath; a path with no scope prefix at all defaults to
// private:/, per the grammar.
func Parse(raw string) (domain.ScopedPath, error) {
	for _, s := range []domain.Scope{domain.ScopePrivate, domain.ScopeShared, domain.ScopePublic} {
		prefix := string(s) + ":/"
		if strings.HasPrefix(raw, prefix) {
			return domain.ScopedPath{Scope: s, Rel: strings.TrimPrefix(raw, prefix)}, nil
		}
	}
	if idx := strings.Index(raw, ":/"); idx > 0 {
		return domain.ScopedPath{}, domain.Wrap(domain.ErrInvalidPath, fmt.Sprintf("unrecognized scope in %q", raw), nil)
	}
	return domain.ScopedPath{Scope: domain.ScopePrivate, Rel: raw}, nil
}

// Root returns the scope root directory for the given task, creating it
// lazily on first use (private:/ and shared:/ directories are created the
// first time a task resolves into them, matching the workspace bootstrap
// loader's lazy-create convention).
func (r *Resolver) Root(scope domain.Scope, taskID, rootTaskID string) (string, error) {
	var dir string
	switch scope {
	case domain.ScopePrivate:
		if taskID == "" {
			return "", domain.Wrap(domain.ErrInvalidPath, "private:/ requires a task", nil)
		}
		dir = filepath.Join(r.WorkspaceRoot, "private", taskID)
	case domain.ScopeShared:
		if rootTaskID == "" {
			return "", domain.Wrap(domain.ErrInvalidPath, "shared:/ requires a root task", nil)
		}
		if r.HasDescendant != nil && !r.HasDescendant(rootTaskID) {
			return "", domain.Wrap(domain.ErrInvalidPath, "shared:/ is unavailable until this task has a descendant", nil)
		}
		dir = filepath.Join(r.WorkspaceRoot, "shared", rootTaskID)
	case domain.ScopePublic:
		dir = filepath.Join(r.WorkspaceRoot, "public")
	default:
		return "", domain.Wrap(domain.ErrInvalidPath, fmt.Sprintf("unknown scope %q", scope), nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("workspace: create scope root: %w", err)
	}
	return dir, nil
}

// Resolve resolves sp to an absolute filesystem path, rejecting any
// resolution that escapes the scope's root after ".."-normalization (the
// spec's escape-detection rule) and rejecting embedded NUL bytes.
func (r *Resolver) Resolve(sp domain.ScopedPath, taskID, rootTaskID string) (string, error) {
	if strings.ContainsRune(sp.Rel, 0) {
		return "", domain.Wrap(domain.ErrInvalidPath, "path contains NUL byte", nil)
	}

	root, err := r.Root(sp.Scope, taskID, rootTaskID)
	if err != nil {
		return "", err
	}

	joined := filepath.Join(root, sp.Rel)
	cleanRoot := filepath.Clean(root)
	rel, err := filepath.Rel(cleanRoot, joined)
	if err != nil {
		return "", domain.Wrap(domain.ErrInvalidPath, "cannot relate to scope root", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.Wrap(domain.ErrPathEscape, fmt.Sprintf("%s escapes %s root", sp, sp.Scope), nil)
	}
	return joined, nil
}

// ResolveToolPath parses and resolves a tool-supplied "scope:/rel" string
// (or a bare relative path, which defaults to private:/) into an absolute
// filesystem path under the workspace root.
func (r *Resolver) ResolveToolPath(raw, taskID, rootTaskID string) (string, error) {
	sp, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return r.Resolve(sp, taskID, rootTaskID)
}

// MapStorePathToLogicalPath is ResolveToolPath's inverse: given an
// absolute filesystem path and the task context it was resolved under, it
// reports which scope root the path lives under and re-renders it as
// "scope:/rel" — so a tool that walks the filesystem (grep, glob) can
// report results in the logical form a caller passed in, not the real
// path it expanded to. Returns domain.ErrInvalidPath if storePath is not
// under any of that task's scope roots.
func (r *Resolver) MapStorePathToLogicalPath(storePath, taskID, rootTaskID string) (string, error) {
	for _, scope := range []domain.Scope{domain.ScopePrivate, domain.ScopeShared, domain.ScopePublic} {
		root, err := r.Root(scope, taskID, rootTaskID)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(filepath.Clean(root), storePath)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if rel == "." {
			rel = ""
		}
		return domain.ScopedPath{Scope: scope, Rel: filepath.ToSlash(rel)}.String(), nil
	}
	return "", domain.Wrap(domain.ErrInvalidPath, fmt.Sprintf("%s is not under any scope root for this task", storePath), nil)
}
