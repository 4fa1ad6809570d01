package store

import "time"

// Config holds configuration for the DynamoDB store.
type Config struct {
	// Table is the name of the documents table.
	// Default: "flexdb_documents"
	//
	// The table is keyed by the collection name (partition key "_tb") and the
	// record id (sort key "id"), so listing a collection is a single Query.
	Table string

	// MaxTransactItems caps the number of update statements in one batch.
	// DynamoDB rejects transactions with more than 100 items.
	// Default: 100
	MaxTransactItems int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Table:            "flexdb_documents",
		MaxTransactItems: 100,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.Table == "" {
		c.Table = "flexdb_documents"
	}
	if c.MaxTransactItems < 1 || c.MaxTransactItems > 100 {
		c.MaxTransactItems = 100
	}
}

// BoltConfig holds configuration for the embedded bbolt store.
type BoltConfig struct {
	// Path is the database file. Parent directories are created on open.
	// Default: "flexdb.db"
	Path string

	// OpenTimeout bounds how long Open waits for the file lock.
	// Default: 1s
	OpenTimeout time.Duration
}

// DefaultBoltConfig returns sensible defaults.
func DefaultBoltConfig() BoltConfig {
	return BoltConfig{
		Path:        "flexdb.db",
		OpenTimeout: time.Second,
	}
}

func (c *BoltConfig) validate() {
	if c.Path == "" {
		c.Path = "flexdb.db"
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = time.Second
	}
}
