package s3

import (
	"fmt"

	"github.com/txn2/fedquery/internal/configmap"
)

const (
	defaultMaxKeys = 1000
	// maxKeysLimit is the largest page S3 returns.
	maxKeysLimit = 1000
)

// Config configures an S3 connection.
type Config struct {
	Region      string
	Endpoint    string
	AccessKeyID string
	SecretKey   string
	// Name identifies the connection to the client.
	Name string
	// MaxKeys bounds each listing.
	MaxKeys int
}

// ParseConfig parses an S3 configuration from a map.
func ParseConfig(cfg map[string]any) (Config, error) {
	c := Config{
		Region:      configmap.StringDefault(cfg, "region", "us-east-1"),
		Endpoint:    configmap.String(cfg, "endpoint"),
		AccessKeyID: configmap.String(cfg, "access_key_id"),
		SecretKey:   configmap.String(cfg, "secret_access_key"),
		Name:        configmap.String(cfg, "name"),
		MaxKeys:     configmap.Int(cfg, "max_keys", defaultMaxKeys),
	}
	if c.MaxKeys <= 0 || c.MaxKeys > maxKeysLimit {
		return c, fmt.Errorf("max_keys must be between 1 and %d, got %d", maxKeysLimit, c.MaxKeys)
	}
	return c, nil
}
