package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/jacentio/flexdb/api"
	"github.com/jacentio/flexdb/store"
	"github.com/jacentio/flexdb/tracing"
)

// Backends.
const (
	BackendBolt     = "bolt"
	BackendDynamoDB = "dynamodb"
)

// Config holds server configuration.
type Config struct {
	// Bind is the address the HTTP server listens on.
	// Default: ":3086"
	Bind string

	// APIPrefix is where the collection routes are mounted. A missing
	// leading slash is added; "" or "/" mounts them at the root.
	// Default: "/api"
	APIPrefix string

	// TrustProxyHeaders takes the client address and scheme from
	// X-Forwarded-For, X-Real-IP and X-Forwarded-Proto. Enable it only
	// behind a proxy that sets them.
	// Default: false
	TrustProxyHeaders bool

	// Backend selects the document store, BackendBolt or BackendDynamoDB.
	// Default: BackendBolt
	Backend string

	Bolt     store.BoltConfig
	DynamoDB DynamoDBConfig
	Tracing  tracing.Config
	Log      LogConfig

	// ShutdownTimeout bounds how long in-flight requests may run after a
	// shutdown signal.
	// Default: 10s
	ShutdownTimeout time.Duration
}

// DynamoDBConfig configures the DynamoDB backend.
type DynamoDBConfig struct {
	// Table holds every collection.
	// Default: "flexdb_documents"
	Table string

	// Region overrides the region from the AWS environment.
	Region string

	// Endpoint overrides the service endpoint, e.g. DynamoDB Local at
	// "http://localhost:8000".
	Endpoint string

	// CreateTable creates the table on startup when it doesn't exist.
	CreateTable bool
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	// Default: "info"
	Level string

	// Format is "text" or "json".
	// Default: "text"
	Format string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Bind:      ":3086",
		APIPrefix: api.DefaultPrefix,
		Backend:   BackendBolt,
		Bolt:      store.DefaultBoltConfig(),
		DynamoDB: DynamoDBConfig{
			Table: store.DefaultConfig().Table,
		},
		Tracing: tracing.DefaultConfig(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		ShutdownTimeout: 10 * time.Second,
	}
}

// validate fills in defaults for unset values and rejects unknown choices.
func (c *Config) validate() error {
	d := DefaultConfig()
	if c.Bind == "" {
		c.Bind = d.Bind
	}
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	if c.Bolt.Path == "" {
		c.Bolt.Path = d.Bolt.Path
	}
	if c.DynamoDB.Table == "" {
		c.DynamoDB.Table = d.DynamoDB.Table
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	c.APIPrefix = normalizePrefix(c.APIPrefix)

	switch c.Backend {
	case BackendBolt, BackendDynamoDB:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Tracing.Enabled {
		if err := c.Tracing.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// normalizePrefix returns prefix with one leading slash and no trailing
// slash.
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix
}
