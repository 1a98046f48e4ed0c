package metadata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned when a catalog entity does not exist.
var ErrNotFound = errors.New("not found in catalog")

// Catalog resolves names to catalog entities.
type Catalog interface {
	// Table returns the table with the given schema-qualified name.
	Table(ctx context.Context, fullName string) (*Table, error)

	// Procedure returns the procedure with the given schema-qualified name.
	Procedure(ctx context.Context, fullName string) (*Procedure, error)
}

// MemoryCatalog is a Catalog held in memory.
type MemoryCatalog struct {
	mu         sync.RWMutex
	tables     map[string]*Table
	procedures map[string]*Procedure
}

// NewMemoryCatalog creates an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		tables:     make(map[string]*Table),
		procedures: make(map[string]*Procedure),
	}
}

// AddTable registers a table, replacing any table with the same name.
func (c *MemoryCatalog) AddTable(t *Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[key(t.FullName())] = t
}

// AddProcedure registers a procedure, replacing any with the same name.
func (c *MemoryCatalog) AddProcedure(p *Procedure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.procedures[key(p.FullName())] = p
}

// Table returns a table by name.
func (c *MemoryCatalog) Table(_ context.Context, fullName string) (*Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[key(fullName)]
	if !ok {
		return nil, fmt.Errorf("table %s: %w", fullName, ErrNotFound)
	}
	return t, nil
}

// Procedure returns a procedure by name.
func (c *MemoryCatalog) Procedure(_ context.Context, fullName string) (*Procedure, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.procedures[key(fullName)]
	if !ok {
		return nil, fmt.Errorf("procedure %s: %w", fullName, ErrNotFound)
	}
	return p, nil
}

// Tables returns all tables sorted by full name.
func (c *MemoryCatalog) Tables() []*Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]*Table, 0, len(c.tables))
	for _, t := range c.tables {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].FullName() < result[j].FullName()
	})
	return result
}

func key(name string) string {
	return strings.ToLower(name)
}

// Verify interface compliance.
var _ Catalog = (*MemoryCatalog)(nil)
