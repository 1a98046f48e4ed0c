package pgx

import (
	"errors"
	"fmt"
	"time"

	"github.com/txn2/fedquery/internal/configmap"
	"github.com/txn2/fedquery/pkg/connector"
)

const defaultMaxConns = 10

// Config configures a PostgreSQL pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	Immutable       bool
	CopyLobs        bool
	// TransactionSupport is LOCAL unless configured otherwise.
	TransactionSupport connector.TransactionSupport
}

// ParseConfig parses a pgx configuration from a map.
func ParseConfig(cfg map[string]any) (Config, error) {
	c := Config{
		DSN:                configmap.String(cfg, "dsn"),
		MaxConns:           int32(configmap.Int(cfg, "max_conns", defaultMaxConns)), //nolint:gosec // bounded below
		MinConns:           int32(configmap.Int(cfg, "min_conns", 0)),               //nolint:gosec // bounded below
		Immutable:          configmap.Bool(cfg, "immutable", false),
		CopyLobs:           configmap.Bool(cfg, "copy_lobs", false),
		TransactionSupport: connector.TransactionSupport(configmap.StringDefault(cfg, "transaction_support", string(connector.TransactionLocal))),
	}
	if c.DSN == "" {
		return c, errors.New("dsn is required")
	}
	if c.MaxConns <= 0 || c.MinConns < 0 || c.MinConns > c.MaxConns {
		return c, fmt.Errorf("invalid pool size: min_conns %d, max_conns %d", c.MinConns, c.MaxConns)
	}
	switch c.TransactionSupport {
	case connector.TransactionXA, connector.TransactionLocal, connector.TransactionNone:
	default:
		return c, fmt.Errorf("unknown transaction_support %q", c.TransactionSupport)
	}

	var err error
	if c.MaxConnLifetime, err = configmap.Duration(cfg, "max_conn_lifetime", 0); err != nil {
		return c, err
	}
	return c, nil
}
