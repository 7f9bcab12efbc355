package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store backend selectors accepted by STORE_BACKEND.
const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
	BackendGrid   = "grid"
)

// Config represents the full application configuration surface.
type Config struct {
	Server Server
	Log    Log
	Store  Store
	Mongo  Mongo
	Grid   Grid
	Audit  Audit
	Sheets Sheets
	Cache  Cache
}

// Server holds HTTP server related options.
type Server struct {
	Port string `envconfig:"APP_PORT" default:"8080"`
}

// Log holds logging options.
type Log struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

// Store selects the row-store backend.
type Store struct {
	Backend string `envconfig:"STORE_BACKEND" default:"memory"`
}

// Mongo holds settings for the MongoDB backend.
type Mongo struct {
	URI    string `envconfig:"MONGODB_URI" default:""`
	DBName string `envconfig:"MONGODB_DB_NAME" default:"packtrack"`
}

// Grid holds settings for the hosted row-store HTTP backend. Table IDs map
// the logical table names onto the hosted workspace's table identifiers.
type Grid struct {
	BaseURL                string        `envconfig:"GRID_BASE_URL" default:""`
	APIToken               string        `envconfig:"GRID_API_TOKEN" default:""`
	Timeout                time.Duration `envconfig:"GRID_TIMEOUT" default:"30s"`
	TableProducts          string        `envconfig:"GRID_TABLE_PRODUCTS" default:""`
	TableProductComponents string        `envconfig:"GRID_TABLE_PRODUCT_COMPONENTS" default:""`
	TablePackagingRecords  string        `envconfig:"GRID_TABLE_PACKAGING_RECORDS" default:""`
	TablePackagingItems    string        `envconfig:"GRID_TABLE_PACKAGING_ITEMS" default:""`
	TableAuditLogs         string        `envconfig:"GRID_TABLE_AUDIT_LOGS" default:""`
}

// Audit holds audit-trail retention settings.
type Audit struct {
	RetentionDays int    `envconfig:"AUDIT_RETENTION_DAYS" default:"90"`
	SweepCron     string `envconfig:"AUDIT_SWEEP_CRON" default:"0 3 * * *"`
	Timezone      string `envconfig:"TIMEZONE" default:"UTC"`
}

// Sheets configures the optional Google Sheets audit mirror. The mirror is
// active only when both fields are set.
type Sheets struct {
	CredentialsPath string `envconfig:"GOOGLE_SHEETS_CREDENTIALS_PATH" default:""`
	SpreadsheetID   string `envconfig:"AUDIT_SPREADSHEET_ID" default:""`
}

// Cache configures the bundle recipe cache.
type Cache struct {
	RecipeSize int           `envconfig:"RECIPE_CACHE_SIZE" default:"256"`
	RecipeTTL  time.Duration `envconfig:"RECIPE_CACHE_TTL" default:"5m"`
}

// MirrorEnabled reports whether the Sheets audit mirror is configured.
func (s Sheets) MirrorEnabled() bool {
	return s.CredentialsPath != "" && s.SpreadsheetID != ""
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are acceptable when configuration comes from the
		// environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed processing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendMongo:
		if c.Mongo.URI == "" {
			return errors.New("MONGODB_URI must be provided for the mongo backend")
		}
		if c.Mongo.DBName == "" {
			return errors.New("MONGODB_DB_NAME must be provided for the mongo backend")
		}
	case BackendGrid:
		switch {
		case c.Grid.BaseURL == "":
			return errors.New("GRID_BASE_URL must be provided for the grid backend")
		case c.Grid.APIToken == "":
			return errors.New("GRID_API_TOKEN must be provided for the grid backend")
		}
		for name, id := range map[string]string{
			"GRID_TABLE_PRODUCTS":           c.Grid.TableProducts,
			"GRID_TABLE_PRODUCT_COMPONENTS": c.Grid.TableProductComponents,
			"GRID_TABLE_PACKAGING_RECORDS":  c.Grid.TablePackagingRecords,
			"GRID_TABLE_PACKAGING_ITEMS":    c.Grid.TablePackagingItems,
			"GRID_TABLE_AUDIT_LOGS":         c.Grid.TableAuditLogs,
		} {
			if id == "" {
				return fmt.Errorf("%s must be provided for the grid backend", name)
			}
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	if c.Audit.RetentionDays < 1 {
		return errors.New("AUDIT_RETENTION_DAYS must be at least 1")
	}
	if c.Audit.SweepCron == "" {
		return errors.New("AUDIT_SWEEP_CRON must be provided")
	}
	if c.Audit.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	if c.Cache.RecipeSize < 1 {
		return errors.New("RECIPE_CACHE_SIZE must be at least 1")
	}

	return nil
}
