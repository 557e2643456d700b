package gateway

import (
	"fmt"
	"sync"
)

// Choice is a selectable backend for portal configuration.
type Choice struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Registry maps backend keys to constructed adapters.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
	choices  []Choice
}

func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds b under its key. Registering the same key twice fails.
func (r *Registry) Register(b Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := b.Key()
	if _, ok := r.backends[key]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, key)
	}
	r.backends[key] = b
	r.choices = append(r.choices, Choice{Key: key, Name: b.Config().Name})
	return nil
}

func (r *Registry) Unregister(b Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := b.Key()
	if _, ok := r.backends[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, key)
	}
	delete(r.backends, key)
	for i, c := range r.choices {
		if c.Key == key {
			r.choices = append(r.choices[:i], r.choices[i+1:]...)
			break
		}
	}
	return nil
}

func (r *Registry) IsRegistered(b Backend) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.backends[b.Key()]
	return ok
}

// Get returns the backend registered under key; callers must check ok.
func (r *Registry) Get(key string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[key]
	return b, ok
}

// Resolve is Get with a typed error for unknown keys.
func (r *Registry) Resolve(key string) (Backend, error) {
	b, ok := r.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, key)
	}
	return b, nil
}

// Choices lists registered backends in registration order.
func (r *Registry) Choices() []Choice {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Choice(nil), r.choices...)
}
