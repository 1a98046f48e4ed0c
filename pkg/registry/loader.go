package registry

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// LoaderConfig holds configuration for loading connectors.
type LoaderConfig struct {
	Connectors map[string]ConnectorKindConfig `yaml:"connectors"`
}

// ConnectorKindConfig holds configuration for a connector kind.
type ConnectorKindConfig struct {
	Enabled   bool                      `yaml:"enabled"`
	Instances map[string]map[string]any `yaml:"instances"`
	Default   string                    `yaml:"default"`
	Config    map[string]any            `yaml:"config"`
}

// Loader loads connectors from configuration.
type Loader struct {
	registry *Registry
}

// NewLoader creates a new connector loader.
func NewLoader(registry *Registry) *Loader {
	return &Loader{registry: registry}
}

// Load creates every instance of every enabled kind, in sorted order. On
// failure the connectors created so far stay registered.
func (l *Loader) Load(ctx context.Context, cfg LoaderConfig) error {
	for _, kind := range slices.Sorted(maps.Keys(cfg.Connectors)) {
		kindCfg := cfg.Connectors[kind]
		if !kindCfg.Enabled {
			continue
		}

		for _, name := range slices.Sorted(maps.Keys(kindCfg.Instances)) {
			// Merge kind-level config with instance config
			mergedCfg := make(map[string]any, len(kindCfg.Config)+len(kindCfg.Instances[name]))
			maps.Copy(mergedCfg, kindCfg.Config)
			maps.Copy(mergedCfg, kindCfg.Instances[name])

			connectorCfg := ConnectorConfig{
				Kind:    kind,
				Name:    name,
				Enabled: true,
				Config:  mergedCfg,
				Default: name == kindCfg.Default,
			}

			if err := l.registry.CreateAndRegister(ctx, connectorCfg); err != nil {
				return fmt.Errorf("loading connector %s/%s: %w", kind, name, err)
			}
		}
	}

	return nil
}
