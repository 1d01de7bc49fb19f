package app

import (
	"os"
	"path/filepath"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Snapshot backends.
const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// Config holds the complete application configuration, loadable from
// environment variables (ORDERDESK_ prefix), flags, or YAML config files.
type Config struct {
	DataDir     string `default:"data" usage:"Directory for snapshot and trail files" flag:"data-dir"`
	Storage     string `default:"file" usage:"Snapshot backend: file or postgres"`
	DatabaseURL string `usage:"PostgreSQL connection URL when storage=postgres" flag:"database-url"`
	AdminPepper string `usage:"HMAC pepper for admin password hashing (ORDERDESK_ADMIN_PEPPER)" flag:"admin-pepper"`
	AuditTrail  string `usage:"Audit trail file (default <data-dir>/audit_trail.txt)" flag:"audit-trail"`

	LowStockThreshold int  `default:"5"  usage:"Stock level below which a product counts as low" flag:"low-stock"`
	MaxOrderItems     int  `default:"10" usage:"Maximum line items per order" flag:"max-order-items"`
	ImportDedupe      uint `default:"100000" usage:"Duplicate filter capacity for bulk import feeds" flag:"import-dedupe"`
	NoColor           bool `default:"false" usage:"Disable ANSI colors in the dashboard" flag:"no-color"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-provided defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "ORDERDESK",
		Files:     []string{"config.yaml", "/etc/orderdesk/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.ApplyDefaults()

	switch cfg.Storage {
	case StorageFile:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("database URL is required: set ORDERDESK_DATABASE_URL or DATABASE_URL")
		}
	default:
		return nil, errors.Errorf("unknown storage backend %q", cfg.Storage)
	}

	return &cfg, nil
}

// ApplyDefaults fills derived and platform-provided settings. LoadConfig
// calls it; tools that assemble a Config by hand call it themselves.
func (c *Config) ApplyDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.AuditTrail == "" {
		c.AuditTrail = filepath.Join(c.DataDir, "audit_trail.txt")
	}
}
