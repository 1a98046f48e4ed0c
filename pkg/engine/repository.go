package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Repository maps connector names to managers.
type Repository struct {
	mu       sync.RWMutex
	managers map[string]*ConnectorManager
}

// ErrDuplicateConnector is returned when a name is added twice.
var ErrDuplicateConnector = errors.New("connector already registered")

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{managers: make(map[string]*ConnectorManager)}
}

// Add registers m under its name.
func (r *Repository) Add(m *ConnectorManager) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.managers[m.name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateConnector, m.name)
	}
	r.managers[m.name] = m
	return nil
}

// Get returns the manager for name.
func (r *Repository) Get(name string) (*ConnectorManager, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.managers[name]
	return m, ok
}

// Remove forgets name.
func (r *Repository) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.managers, name)
}

// Names returns the registered names in sorted order.
func (r *Repository) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.managers))
	for name := range r.managers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// StartAll starts every manager, returning the joined failures.
func (r *Repository) StartAll(ctx context.Context) error {
	var errs []error
	for _, name := range r.Names() {
		m, _ := r.Get(name)
		if err := m.Start(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StopAll stops every manager, returning the joined failures.
func (r *Repository) StopAll(ctx context.Context) error {
	var errs []error
	for _, name := range r.Names() {
		m, _ := r.Get(name)
		if err := m.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
