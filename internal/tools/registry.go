package tools

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/seed-run/seed/pkg/domain"
)

// MaxParamsSize caps a tool call's argument payload, mirroring
// ToolRegistry's MaxToolParamsSize guard against a runaway LLM response.
const MaxParamsSize = 10 << 20

// Registry holds every tool available to the runtime, keyed by name.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool), schemas: make(map[string]*jsonschema.Schema)}
}

// Register adds t, compiling its JSON Schema so Execute can validate
// arguments before calling it. Returns an error if the schema is invalid
// or the name is already registered.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name()]; exists {
		return domain.Wrap(domain.ErrConflict, fmt.Sprintf("tool %q already registered", t.Name()), nil)
	}

	compiled, err := compileSchema(t.Schema())
	if err != nil {
		return domain.Wrap(domain.ErrValidation, fmt.Sprintf("tool %q schema", t.Name()), err)
	}

	r.tools[t.Name()] = t
	r.schemas[t.Name()] = compiled
	return nil
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
	delete(r.schemas, name)
}

// Get returns the tool registered as name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Validate checks args against name's compiled schema.
func (r *Registry) Validate(name string, args json.RawMessage) error {
	if len(args) > MaxParamsSize {
		return domain.Wrap(domain.ErrValidation, fmt.Sprintf("tool %q arguments exceed %d bytes", name, MaxParamsSize), nil)
	}
	r.mu.RLock()
	schema, ok := r.schemas[name]
	r.mu.RUnlock()
	if !ok {
		return domain.Wrap(domain.ErrNotFound, fmt.Sprintf("tool %q not registered", name), nil)
	}

	var v any
	if err := json.Unmarshal(args, &v); err != nil {
		return domain.Wrap(domain.ErrValidation, "arguments are not valid JSON", err)
	}
	if err := schema.Validate(v); err != nil {
		return domain.Wrap(domain.ErrValidation, fmt.Sprintf("tool %q arguments", name), err)
	}
	return nil
}

// Names returns every registered tool's name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tools))
	for n := range r.tools {
		out = append(out, n)
	}
	return out
}

// LLMToolSpec is what's handed to an LLMProvider describing a callable
// tool.
type LLMToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// AsLLMTools returns every registered tool's spec for the provider's tool
// list.
func (r *Registry) AsLLMTools() []LLMToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]LLMToolSpec, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, LLMToolSpec{Name: t.Name(), Description: t.Description(), Parameters: t.Schema()})
	}
	return out
}

func compileSchema(schema map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", bytesReader(b)); err != nil {
		return nil, err
	}
	return c.Compile("schema.json")
}
