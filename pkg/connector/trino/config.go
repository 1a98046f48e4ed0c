package trino

import (
	"errors"
	"time"

	"github.com/txn2/fedquery/internal/configmap"
)

const (
	defaultTimeout   = 120 * time.Second
	defaultSSLPort   = 443
	defaultPlainPort = 8080
	defaultSource    = "fedquery"
)

// Config configures a Trino connection.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	Catalog   string
	Schema    string
	SSL       bool
	SSLVerify bool
	Timeout   time.Duration
	Source    string
	// ReadOnly rejects every command that is not a query. It is on unless
	// configured otherwise.
	ReadOnly  bool
	Immutable bool
}

// ParseConfig parses a Trino configuration from a map.
func ParseConfig(cfg map[string]any) (Config, error) {
	c := Config{
		Host:      configmap.String(cfg, "host"),
		User:      configmap.String(cfg, "user"),
		Password:  configmap.String(cfg, "password"),
		Catalog:   configmap.String(cfg, "catalog"),
		Schema:    configmap.String(cfg, "schema"),
		SSL:       configmap.Bool(cfg, "ssl", false),
		SSLVerify: configmap.Bool(cfg, "ssl_verify", true),
		Source:    configmap.StringDefault(cfg, "source", defaultSource),
		ReadOnly:  configmap.Bool(cfg, "read_only", true),
		Immutable: configmap.Bool(cfg, "immutable", false),
	}
	if c.Host == "" {
		return c, errors.New("trino host is required")
	}
	c.Port = configmap.Int(cfg, "port", defaultPort(c.SSL))

	var err error
	if c.Timeout, err = configmap.Duration(cfg, "timeout", defaultTimeout); err != nil {
		return c, err
	}
	return c, nil
}

func defaultPort(ssl bool) int {
	if ssl {
		return defaultSSLPort
	}
	return defaultPlainPort
}
