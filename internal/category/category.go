// Package category maps class names to sequential integer ids.
package category

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned when a class name or id is not registered.
var ErrNotFound = errors.New("class not found")

// Registry is a bidirectional name<->id map. Ids are assigned sequentially
// from 0 in first-seen order.
type Registry struct {
	mu    sync.RWMutex
	names []string
	ids   map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ids: make(map[string]int)}
}

// AddClass returns the id for name, registering it first if it is new.
func (r *Registry) AddClass(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[name]; ok {
		return id
	}
	id := len(r.names)
	r.names = append(r.names, name)
	r.ids[name] = id
	return id
}

// ClassNumber returns the id of a known class.
func (r *Registry) ClassNumber(name string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ids[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return id, nil
}

// Name returns the class name for id.
func (r *Registry) Name(id int) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id < 0 || id >= len(r.names) {
		return "", fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return r.names[id], nil
}

// Names returns all class names indexed by id.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

// Len returns the number of registered classes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

type registryFile struct {
	Classes []string `json:"classes"`
}

// Save writes the registry to a JSON file.
func (r *Registry) Save(path string) error {
	data, err := json.MarshalIndent(registryFile{Classes: r.Names()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create registry dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads a registry written by Save.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f registryFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal registry: %w", err)
	}
	r := NewRegistry()
	for i, name := range f.Classes {
		if _, dup := r.ids[name]; dup {
			return nil, fmt.Errorf("unmarshal registry: duplicate class %q at %d", name, i)
		}
		r.AddClass(name)
	}
	return r, nil
}
