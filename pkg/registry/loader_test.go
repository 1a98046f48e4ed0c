package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/txn2/fedquery/pkg/connector/loopback"
)

func TestNewLoader(t *testing.T) {
	registry := NewRegistry()
	loader := NewLoader(registry)

	if loader == nil {
		t.Fatal("NewLoader() returned nil")
	}
	if loader.registry != registry {
		t.Error("registry not set correctly")
	}
}

func TestLoader_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("empty config", func(t *testing.T) {
		loader := NewLoader(NewRegistry())
		if err := loader.Load(ctx, LoaderConfig{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("disabled kind", func(t *testing.T) {
		registry := NewRegistry()
		RegisterBuiltinFactories(registry)
		loader := NewLoader(registry)

		cfg := LoaderConfig{
			Connectors: map[string]ConnectorKindConfig{
				KindLoopback: {
					Enabled:   false,
					Instances: map[string]map[string]any{"demo": {"row_count": 1}},
				},
			},
		}
		if err := loader.Load(ctx, cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(registry.All()) != 0 {
			t.Error("expected no connectors for disabled config")
		}
	})

	t.Run("merges kind config", func(t *testing.T) {
		registry := NewRegistry()
		var got []map[string]any
		registry.RegisterFactory("test", func(_ context.Context, _ string, config map[string]any) (*Connector, error) {
			got = append(got, config)
			return &Connector{Factory: loopback.New(loopback.Config{})}, nil
		})
		loader := NewLoader(registry)

		cfg := LoaderConfig{
			Connectors: map[string]ConnectorKindConfig{
				"test": {
					Enabled: true,
					Default: "b",
					Config:  map[string]any{"shared": "kind", "override": "kind"},
					Instances: map[string]map[string]any{
						"b": {"override": "b"},
						"a": {},
					},
				},
			},
		}
		if err := loader.Load(ctx, cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("factory called %d times, want 2", len(got))
		}
		if got[0]["override"] != "kind" || got[1]["override"] != "b" || got[1]["shared"] != "kind" {
			t.Errorf("merged configs = %v", got)
		}
		if c, ok := registry.Default("test"); !ok || c.Name != "b" {
			t.Errorf("Default() = %v, %v; want b", c, ok)
		}
	})

	t.Run("factory error", func(t *testing.T) {
		registry := NewRegistry()
		registry.RegisterFactory("test", func(context.Context, string, map[string]any) (*Connector, error) {
			return nil, errors.New("factory error")
		})
		loader := NewLoader(registry)

		cfg := LoaderConfig{
			Connectors: map[string]ConnectorKindConfig{
				"test": {Enabled: true, Instances: map[string]map[string]any{"x": {}}},
			},
		}
		if err := loader.Load(ctx, cfg); err == nil {
			t.Error("expected error from factory")
		}
	})

	t.Run("builtin loopback", func(t *testing.T) {
		registry := NewRegistry()
		RegisterBuiltinFactories(registry)
		loader := NewLoader(registry)

		cfg := LoaderConfig{
			Connectors: map[string]ConnectorKindConfig{
				KindLoopback: {Enabled: true, Instances: map[string]map[string]any{"demo": {"row_count": 2}}},
			},
		}
		if err := loader.Load(ctx, cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := registry.Get(KindLoopback, "demo"); !ok {
			t.Error("loopback connector not registered")
		}
	})
}
