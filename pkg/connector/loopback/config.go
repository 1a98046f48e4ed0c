// Package loopback is a connector that fabricates rows of the requested
// shape without contacting any source.
package loopback

import (
	"fmt"
	"time"

	"github.com/txn2/fedquery/internal/configmap"
)

const (
	defaultRowCount  = 1
	defaultCharValue = "ABCDEFGHIJ"
)

// Config controls the fabricated results.
type Config struct {
	// RowCount is the number of rows each query returns.
	RowCount int
	// WaitTime is the upper bound of a random delay in Execute.
	WaitTime time.Duration
	// PollInterval, when positive, makes every row unavailable on the first
	// attempt, returning a DataNotAvailableError with this delay.
	PollInterval time.Duration
	// Error makes Execute fail.
	Error bool
	// CharValue is returned for character columns.
	CharValue string
	// IncrementRows makes numeric values count up from zero per row.
	IncrementRows bool
	Immutable     bool
	CopyLobs      bool
}

// ParseConfig parses a loopback configuration from a map.
func ParseConfig(cfg map[string]any) (Config, error) {
	c := Config{
		RowCount:      configmap.Int(cfg, "row_count", defaultRowCount),
		Error:         configmap.Bool(cfg, "error", false),
		CharValue:     configmap.StringDefault(cfg, "char_value", defaultCharValue),
		IncrementRows: configmap.Bool(cfg, "increment_rows", false),
		Immutable:     configmap.Bool(cfg, "immutable", false),
		CopyLobs:      configmap.Bool(cfg, "copy_lobs", false),
	}
	if c.RowCount < 0 {
		return c, fmt.Errorf("row_count must not be negative, got %d", c.RowCount)
	}

	var err error
	if c.WaitTime, err = configmap.Duration(cfg, "wait_time", 0); err != nil {
		return c, err
	}
	if c.PollInterval, err = configmap.Duration(cfg, "poll_interval", 0); err != nil {
		return c, err
	}
	return c, nil
}
