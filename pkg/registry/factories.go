package registry

import (
	"context"

	"github.com/txn2/fedquery/pkg/connector/loopback"
	"github.com/txn2/fedquery/pkg/connector/pgx"
	"github.com/txn2/fedquery/pkg/connector/s3"
	"github.com/txn2/fedquery/pkg/connector/sqldb"
	"github.com/txn2/fedquery/pkg/connector/trino"
)

// Built-in connector kinds.
const (
	KindLoopback = "loopback"
	KindSQLDB    = "sqldb"
	KindPgx      = "pgx"
	KindTrino    = "trino"
	KindS3       = "s3"
)

// RegisterBuiltinFactories registers all built-in connector factories.
func RegisterBuiltinFactories(r *Registry) {
	r.RegisterFactory(KindLoopback, LoopbackFactory)
	r.RegisterFactory(KindSQLDB, SQLDBFactory)
	r.RegisterFactory(KindPgx, PgxFactory)
	r.RegisterFactory(KindTrino, TrinoFactory)
	r.RegisterFactory(KindS3, S3Factory)
}

// LoopbackFactory creates a loopback connector. It has no source.
func LoopbackFactory(_ context.Context, _ string, cfg map[string]any) (*Connector, error) {
	config, err := loopback.ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Connector{Factory: loopback.New(config)}, nil
}

// SQLDBFactory creates a database/sql connector and opens its pool.
func SQLDBFactory(_ context.Context, _ string, cfg map[string]any) (*Connector, error) {
	config, err := sqldb.ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sqldb.Open(config)
	if err != nil {
		return nil, err
	}
	return &Connector{Factory: sqldb.New(config), ConnectionFactory: db}, nil
}

// PgxFactory creates a native PostgreSQL connector and opens its pool.
func PgxFactory(ctx context.Context, _ string, cfg map[string]any) (*Connector, error) {
	config, err := pgx.ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgx.Open(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Connector{Factory: pgx.New(config), ConnectionFactory: pool}, nil
}

// TrinoFactory creates a Trino connector and its client.
func TrinoFactory(_ context.Context, _ string, cfg map[string]any) (*Connector, error) {
	config, err := trino.ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	client, err := trino.Open(config)
	if err != nil {
		return nil, err
	}
	return &Connector{Factory: trino.New(config), ConnectionFactory: client}, nil
}

// S3Factory creates an S3 listing connector and its client. The client
// name defaults to the instance name.
func S3Factory(ctx context.Context, name string, cfg map[string]any) (*Connector, error) {
	config, err := s3.ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	if config.Name == "" {
		config.Name = name
	}
	client, err := s3.Open(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Connector{Factory: s3.New(config), ConnectionFactory: client}, nil
}
