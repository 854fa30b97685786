// Package agentprofile holds the set of agents the runtime manager will
// dispatch tasks to: a name, the LLM model it drives, and the system
// prompt template used to seed a runtime's first conversation turn.
package agentprofile

import "sync"

// Profile is one registered agent definition.
type Profile struct {
	ID                  string
	Provider            string // e.g. "anthropic"
	Model               string
	SystemPromptPreamble string
	MaxIterations       int
}

// Registry holds every known Profile, keyed by ID. The runtime manager
// consults it on TaskCreated to decide whether a task's agentId names a
// runnable agent.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]Profile)}
}

// Register adds or replaces a profile.
func (r *Registry) Register(p Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.ID] = p
}

// Get returns the profile for agentID, if registered.
func (r *Registry) Get(agentID string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[agentID]
	return p, ok
}

// List returns every registered profile.
func (r *Registry) List() []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	return out
}
