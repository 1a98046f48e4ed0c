package sqldb

import (
	"errors"
	"fmt"
	"time"

	"github.com/txn2/fedquery/internal/configmap"
	"github.com/txn2/fedquery/pkg/connector"
)

const (
	defaultDriver       = "postgres"
	defaultMaxOpenConns = 10
	defaultMaxIdleConns = 5
)

// Config configures a database/sql source.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Immutable       bool
	CopyLobs        bool
	// TransactionSupport is LOCAL unless configured otherwise.
	TransactionSupport connector.TransactionSupport
}

// ParseConfig parses a database/sql configuration from a map.
func ParseConfig(cfg map[string]any) (Config, error) {
	c := Config{
		Driver:             configmap.StringDefault(cfg, "driver", defaultDriver),
		DSN:                configmap.String(cfg, "dsn"),
		MaxOpenConns:       configmap.Int(cfg, "max_open_conns", defaultMaxOpenConns),
		MaxIdleConns:       configmap.Int(cfg, "max_idle_conns", defaultMaxIdleConns),
		Immutable:          configmap.Bool(cfg, "immutable", false),
		CopyLobs:           configmap.Bool(cfg, "copy_lobs", false),
		TransactionSupport: connector.TransactionSupport(configmap.StringDefault(cfg, "transaction_support", string(connector.TransactionLocal))),
	}
	if c.DSN == "" {
		return c, errors.New("dsn is required")
	}
	switch c.TransactionSupport {
	case connector.TransactionXA, connector.TransactionLocal, connector.TransactionNone:
	default:
		return c, fmt.Errorf("unknown transaction_support %q", c.TransactionSupport)
	}

	var err error
	if c.ConnMaxLifetime, err = configmap.Duration(cfg, "conn_max_lifetime", 0); err != nil {
		return c, err
	}
	return c, nil
}
