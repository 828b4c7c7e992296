package sources

import (
	"fmt"
	"sort"
	"sync"
)

// SourceInfo describes a registered source for listing.
type SourceInfo struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

type registryEntry struct {
	adapter Adapter
	enabled bool
}

// Registry holds the set of source adapters keyed by name.
type Registry struct {
	entries map[string]*registryEntry
	mu      sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*registryEntry),
	}
}

// Register adds an enabled adapter. Names must be unique.
func (r *Registry) Register(adapter Adapter) error {
	name := adapter.Name()
	if name == "" {
		return fmt.Errorf("adapter name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSource, name)
	}
	r.entries[name] = &registryEntry{adapter: adapter, enabled: true}
	return nil
}

func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// SetEnabled toggles whether the adapter takes part in refreshes.
// Courses already ingested from it are not affected.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	entry.enabled = enabled
	return nil
}

func (r *Registry) ListActive() map[string]Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make(map[string]Adapter, len(r.entries))
	for name, entry := range r.entries {
		if entry.enabled {
			active[name] = entry.adapter
		}
	}
	return active
}

// List returns every registered source sorted by name.
func (r *Registry) List() []SourceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]SourceInfo, 0, len(r.entries))
	for name, entry := range r.entries {
		infos = append(infos, SourceInfo{
			Name:   name,
			Type:   entry.adapter.Kind(),
			Active: entry.enabled,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
