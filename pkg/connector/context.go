package connector

import (
	"sync"

	"github.com/txn2/fedquery/pkg/buffer"
)

// ExecutionContext describes the request an execution serves. Warnings
// added by the adapter are collected onto the next results batch.
type ExecutionContext struct {
	RequestID      string
	PartID         string
	ExecutionCount int
	ConnectionID   string
	ConnectorName  string
	User           string
	BatchSize      int
	Transactional  bool
	Buffer         buffer.Manager

	mu       sync.Mutex
	warnings []error
}

// AddWarning records a non-fatal condition.
func (c *ExecutionContext) AddWarning(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, err)
}

// DrainWarnings returns and clears the recorded warnings.
func (c *ExecutionContext) DrainWarnings() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.warnings
	c.warnings = nil
	return w
}
