package agent

import "sync"

// Registry maps step names to their runners.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]*Runner
}

// NewRegistry initializes an empty registry.
func NewRegistry() *Registry {
	return &Registry{runners: make(map[string]*Runner)}
}

// Register adds a runner under its step name, replacing any previous one.
func (r *Registry) Register(runner *Runner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[runner.Name()] = runner
}

// Get looks up a runner by step name.
func (r *Registry) Get(name string) (*Runner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runner, ok := r.runners[name]
	return runner, ok
}

// Names returns the registered step names, unordered.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.runners))
	for name := range r.runners {
		names = append(names, name)
	}
	return names
}
