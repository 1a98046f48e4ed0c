package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
)

// Registry manages connector factories and the instances they create.
type Registry struct {
	mu sync.RWMutex

	// Registered connectors by kind+name
	connectors map[string]*Connector

	// Factory functions by kind
	factories map[string]ConnectorFactory
}

// NewRegistry creates a new connector registry.
func NewRegistry() *Registry {
	return &Registry{
		connectors: make(map[string]*Connector),
		factories:  make(map[string]ConnectorFactory),
	}
}

// RegisterFactory registers a connector factory for a kind.
func (r *Registry) RegisterFactory(kind string, factory ConnectorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Kinds returns the kinds with a registered factory, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}

// Register adds a connector. Names are unique across kinds.
func (r *Registry) Register(c *Connector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := connectorKey(c.Kind, c.Name)
	if _, exists := r.connectors[key]; exists {
		return fmt.Errorf("connector %s already registered", key)
	}
	for _, other := range r.connectors {
		if other.Name == c.Name {
			return fmt.Errorf("connector name %s already used by kind %s", c.Name, other.Kind)
		}
	}

	r.connectors[key] = c
	return nil
}

// CreateAndRegister creates a connector from config and registers it.
func (r *Registry) CreateAndRegister(ctx context.Context, cfg ConnectorConfig) error {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Kind]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown connector kind: %s", cfg.Kind)
	}

	c, err := factory(ctx, cfg.Name, cfg.Config)
	if err != nil {
		return fmt.Errorf("creating connector %s/%s: %w", cfg.Kind, cfg.Name, err)
	}
	c.Kind = cfg.Kind
	c.Name = cfg.Name
	c.Default = cfg.Default

	if err := r.Register(c); err != nil {
		_ = closeSource(c)
		return err
	}
	return nil
}

// Get retrieves a connector by kind and name.
func (r *Registry) Get(kind, name string) (*Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[connectorKey(kind, name)]
	return c, ok
}

// GetByKind retrieves all connectors of a kind, sorted by name.
func (r *Registry) GetByKind(kind string) []*Connector {
	var result []*Connector
	for _, c := range r.All() {
		if c.Kind == kind {
			result = append(result, c)
		}
	}
	return result
}

// Default returns the default connector of a kind. A kind with a single
// instance defaults to it.
func (r *Registry) Default(kind string) (*Connector, bool) {
	all := r.GetByKind(kind)
	for _, c := range all {
		if c.Default {
			return c, true
		}
	}
	if len(all) == 1 {
		return all[0], true
	}
	return nil, false
}

// All returns all registered connectors, sorted by kind then name.
func (r *Registry) All() []*Connector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Connector, 0, len(r.connectors))
	for _, c := range r.connectors {
		result = append(result, c)
	}
	slices.SortFunc(result, func(a, b *Connector) int {
		return strings.Compare(connectorKey(a.Kind, a.Name), connectorKey(b.Kind, b.Name))
	})
	return result
}

// Close closes the connection factories of every registered connector and
// forgets them. Use it only for connectors that were never handed to an
// engine manager; a stopped manager closes its own.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for key, c := range r.connectors {
		if err := closeSource(c); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", key, err))
		}
		delete(r.connectors, key)
	}
	return errors.Join(errs...)
}

func closeSource(c *Connector) error {
	if closer, ok := c.ConnectionFactory.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func connectorKey(kind, name string) string {
	return kind + ":" + name
}
