package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/seed-run/seed/internal/tools"
	"github.com/seed-run/seed/pkg/domain"
)

// EditFile implements editFile: apply find/replace edits to a file,
// matching old_text against the file content with three strategies in
// order — exact (must be unique), whitespace-flexible, then regex —
// falling through until one produces exactly one match.
type EditFile struct {
	deps Deps
}

func NewEditFile(d Deps) *EditFile { return &EditFile{deps: d} }

func (t *EditFile) Name() string        { return "editFile" }
func (t *EditFile) Description() string {
	return "Apply find/replace edits to a file in the workspace, trying exact, whitespace-flexible, then regex matching."
}
func (t *EditFile) Risk() tools.Risk { return tools.RiskRisky }

func (t *EditFile) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string"},
			"edits": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"old_text":    map[string]any{"type": "string"},
						"new_text":    map[string]any{"type": "string"},
						"is_regex":    map[string]any{"type": "boolean"},
						"replace_all": map[string]any{"type": "boolean"},
					},
					"required": []string{"old_text", "new_text"},
				},
				"minItems": 1,
			},
		},
		"required": []string{"path", "edits"},
	}
}

type editSpec struct {
	OldText    string `json:"old_text"`
	NewText    string `json:"new_text"`
	IsRegex    bool   `json:"is_regex"`
	ReplaceAll bool   `json:"replace_all"`
}

func (t *EditFile) Execute(ctx context.Context, taskID string, args json.RawMessage) tools.Result {
	var in struct {
		Path  string     `json:"path"`
		Edits []editSpec `json:"edits"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return errResult("invalid parameters: %v", err)
	}
	if strings.TrimSpace(in.Path) == "" {
		return errResult("path is required")
	}
	if len(in.Edits) == 0 {
		return errResult("edits are required")
	}

	resolved, err := t.deps.resolve(in.Path, taskID)
	if err != nil {
		return errResult("%v", err)
	}

	// old_text == "" on a single edit means "create this file", not "edit
	// it": the spec's own boundary case for this tool.
	if len(in.Edits) == 1 && in.Edits[0].OldText == "" {
		if _, statErr := os.Stat(resolved); statErr == nil {
			return errResult("%v", domain.Wrap(domain.ErrConflict, fmt.Sprintf("%s already exists; old_text=\"\" only creates new files", in.Path), nil))
		} else if !os.IsNotExist(statErr) {
			return errResult("stat file: %v", statErr)
		}
		if err := os.WriteFile(resolved, []byte(in.Edits[0].NewText), 0o644); err != nil {
			return errResult("write file: %v", err)
		}
		return okResult(map[string]any{
			"path":         in.Path,
			"replacements": 1,
			"created":      true,
		})
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return errResult("read file: %v", err)
	}

	content := string(data)
	replacements := 0
	for i, edit := range in.Edits {
		if edit.OldText == "" {
			return errResult("edit %d: old_text is required unless it is the file's only edit", i)
		}
		next, n, err := applyEdit(content, edit)
		if err != nil {
			return errResult("edit %d: %v", i, err)
		}
		content = next
		replacements += n
	}

	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return errResult("write file: %v", err)
	}

	return okResult(map[string]any{
		"path":         in.Path,
		"replacements": replacements,
	})
}

// applyEdit tries exact match, then whitespace-flexible match, then
// regex, in that order, and applies the first strategy that succeeds.
func applyEdit(content string, edit editSpec) (string, int, error) {
	if edit.IsRegex {
		return applyRegexEdit(content, edit)
	}

	if strings.Contains(content, edit.OldText) {
		if edit.ReplaceAll {
			count := strings.Count(content, edit.OldText)
			return strings.ReplaceAll(content, edit.OldText, edit.NewText), count, nil
		}
		if strings.Count(content, edit.OldText) > 1 {
			return "", 0, fmt.Errorf("old_text matches more than once; pass replace_all or narrow the match")
		}
		return strings.Replace(content, edit.OldText, edit.NewText, 1), 1, nil
	}

	if idx, length, ok := findFlexibleWhitespace(content, edit.OldText); ok {
		replaced := content[:idx] + edit.NewText + content[idx+length:]
		return replaced, 1, nil
	}

	return applyRegexEdit(content, edit)
}

// flexibleWhitespaceDelims are the punctuation characters split out as
// their own tokens so whitespace can be inserted around them even where
// old_text has none, per the delimiter-expansion variant: "foo()" and
// "foo( )" must match the same content.
const flexibleWhitespaceDelims = `(){}[];:,.`

var flexibleWhitespaceTokenRe = regexp.MustCompile(`[` + regexp.QuoteMeta(flexibleWhitespaceDelims) + `]|[^\s` + regexp.QuoteMeta(flexibleWhitespaceDelims) + `]+`)

// findFlexibleWhitespace matches old_text against content where every run
// of whitespace collapses to \s*, and that same \s* is also inserted
// around each delimiter token even when old_text has no whitespace there
// — so indentation differences and compact-vs-spaced punctuation both
// match, useful when an agent reproduces text with different formatting.
func findFlexibleWhitespace(content, oldText string) (idx int, length int, ok bool) {
	tokens := flexibleWhitespaceTokenRe.FindAllString(oldText, -1)
	if len(tokens) == 0 {
		return 0, 0, false
	}
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			b.WriteString(`\s*`)
		}
		b.WriteString(regexp.QuoteMeta(tok))
	}

	re, err := regexp.Compile(b.String())
	if err != nil {
		return 0, 0, false
	}
	matches := re.FindAllStringIndex(content, -1)
	if len(matches) != 1 {
		return 0, 0, false
	}
	return matches[0][0], matches[0][1] - matches[0][0], true
}

func applyRegexEdit(content string, edit editSpec) (string, int, error) {
	re, err := regexp.Compile(edit.OldText)
	if err != nil {
		return "", 0, fmt.Errorf("old_text is not valid as a regex: %w", err)
	}
	matches := re.FindAllStringIndex(content, -1)
	if len(matches) == 0 {
		return "", 0, fmt.Errorf("old_text not found")
	}
	if !edit.ReplaceAll && len(matches) > 1 {
		return "", 0, fmt.Errorf("old_text matches more than once; pass replace_all or narrow the match")
	}
	if edit.ReplaceAll {
		return re.ReplaceAllString(content, edit.NewText), len(matches), nil
	}
	m := matches[0]
	replaced := content[:m[0]] + re.ReplaceAllString(content[m[0]:m[1]], edit.NewText) + content[m[1]:]
	return replaced, 1, nil
}
