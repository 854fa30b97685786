package builtin

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/seed-run/seed/internal/tools"
	"github.com/seed-run/seed/pkg/domain"
)

const grepMaxMatches = 500

// GrepTool implements grepTool: a content search scoped to a workspace
// path. It prefers git grep (honors .gitignore, fast on large trees),
// falls back to the system grep -r, and finally to a pure Go walk when
// neither binary is available.
type GrepTool struct {
	deps Deps
}

func NewGrepTool(d Deps) *GrepTool { return &GrepTool{deps: d} }

func (t *GrepTool) Name() string        { return "grepTool" }
func (t *GrepTool) Description() string { return "Search file contents under a workspace path for a regular expression." }
func (t *GrepTool) Risk() tools.Risk    { return tools.RiskSafe }

func (t *GrepTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{"type": "string"},
			"path":    map[string]any{"type": "string", "description": "defaults to private:/"},
			"include": map[string]any{"type": "string", "description": "optional glob to filter matched file names, e.g. *.go"},
		},
		"required": []string{"pattern"},
	}
}

type grepMatch struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

func (t *GrepTool) Execute(ctx context.Context, taskID string, args json.RawMessage) tools.Result {
	var in struct {
		Pattern string `json:"pattern"`
		Path    string `json:"path"`
		Include string `json:"include"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return errResult("invalid parameters: %v", err)
	}
	if strings.TrimSpace(in.Pattern) == "" {
		return errResult("pattern is required")
	}
	if strings.ContainsRune(in.Pattern, 0) {
		return errResult("%v", domain.Wrap(domain.ErrValidation, "pattern contains a NUL byte", nil))
	}
	if strings.TrimSpace(in.Path) == "" {
		in.Path = "private:/"
	}

	resolved, err := t.deps.resolve(in.Path, taskID)
	if err != nil {
		return errResult("%v", err)
	}

	matches, via, err := runGrepChain(ctx, resolved, in.Pattern)
	if err != nil {
		return errResult("grep: %v", err)
	}

	if in.Include != "" {
		filtered := matches[:0]
		for _, m := range matches {
			rel, relErr := filepath.Rel(resolved, m.Path)
			if relErr != nil {
				continue
			}
			baseMatch, _ := filepath.Match(in.Include, filepath.Base(rel))
			relMatch, _ := filepath.Match(in.Include, filepath.ToSlash(rel))
			if baseMatch || relMatch {
				filtered = append(filtered, m)
			}
		}
		matches = filtered
	}

	for i := range matches {
		if logical, logErr := t.deps.toLogical(matches[i].Path, taskID); logErr == nil {
			matches[i].Path = logical
		}
	}

	truncated := false
	if len(matches) > grepMaxMatches {
		matches = matches[:grepMaxMatches]
		truncated = true
	}

	return okResult(map[string]any{
		"pattern":   in.Pattern,
		"matches":   matches,
		"truncated": truncated,
		"via":       via,
	})
}

// runGrepChain tries git grep, then grep -r, then a pure Go walk,
// returning the first strategy that runs successfully.
func runGrepChain(ctx context.Context, root, pattern string) ([]grepMatch, string, error) {
	if _, err := regexp.Compile(pattern); err != nil {
		return nil, "", errors.New("pattern is not a valid regular expression: " + err.Error())
	}

	if matches, err := gitGrep(ctx, root, pattern); err == nil {
		return matches, "git grep", nil
	}
	if matches, err := systemGrep(ctx, root, pattern); err == nil {
		return matches, "grep -r", nil
	}
	matches, err := pureGoGrep(root, pattern)
	if err != nil {
		return nil, "", err
	}
	return matches, "builtin", nil
}

func gitGrep(ctx context.Context, root, pattern string) ([]grepMatch, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, "git", "grep", "-n", "-I", "-E", pattern, "--", ".")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, err
	}
	return parseGrepOutput(root, out), nil
}

func systemGrep(ctx context.Context, root, pattern string) ([]grepMatch, error) {
	if _, err := exec.LookPath("grep"); err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, "grep", "-r", "-n", "-I", "-E", pattern, ".")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, err
	}
	return parseGrepOutput(root, out), nil
}

// parseGrepOutput turns "relpath:lineno:text" lines into grepMatch with
// absolute paths rooted at root (Execute remaps them to scope:/rel form).
func parseGrepOutput(root string, out []byte) []grepMatch {
	var matches []grepMatch
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.SplitN(line, ":", 3)
		if len(parts) != 3 {
			continue
		}
		lineNo, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		path := strings.TrimPrefix(parts[0], "./")
		matches = append(matches, grepMatch{
			Path: filepath.Join(root, path),
			Line: lineNo,
			Text: parts[2],
		})
	}
	return matches
}

func pureGoGrep(root, pattern string) ([]grepMatch, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	var matches []grepMatch
	err = filepath.WalkDir(root, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		f, openErr := os.Open(p)
		if openErr != nil {
			return nil
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 64*1024), 1<<20)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			text := scanner.Text()
			if re.MatchString(text) {
				matches = append(matches, grepMatch{Path: p, Line: lineNo, Text: text})
				if len(matches) > grepMaxMatches {
					return nil
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}
