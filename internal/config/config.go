package config

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kelseyhightower/envconfig"
)

// Stage names used when validating which variables a process needs.
const (
	StageFetch     = "fetch"
	StageValidate  = "validate"
	StageTransform = "transform"
	StageLoad      = "load"
)

// Config holds the environment shared by every pipeline stage.
type Config struct {
	DataBucket  string `envconfig:"DATA_BUCKET"`
	Environment string `envconfig:"ENVIRONMENT"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	AWSRegion   string `envconfig:"AWS_REGION"`

	DBSecretARN   string `envconfig:"DB_SECRET_ARN"`
	DefaultSeason string `envconfig:"DEFAULT_SEASON" default:"2025-26"`

	// optional sinks
	RunLedgerTable  string `envconfig:"RUN_LEDGER_TABLE"`
	AthenaDatabase  string `envconfig:"ATHENA_DATABASE"`
	AthenaWorkgroup string `envconfig:"ATHENA_WORKGROUP" default:"primary"`
	AthenaOutput    string `envconfig:"ATHENA_OUTPUT"`
	ParquetExport   bool   `envconfig:"PARQUET_EXPORT" default:"false"`

	// scraping
	HTTPMaxAttempts int           `envconfig:"HTTP_MAX_ATTEMPTS" default:"3"`
	HTTPRetryBaseMS int           `envconfig:"HTTP_RETRY_BASE_MS" default:"1000"`
	HTTPRetryMaxMS  int           `envconfig:"HTTP_RETRY_MAX_MS" default:"8000"`
	HTTPCooldownMS  int           `envconfig:"HTTP_COOLDOWN_MS" default:"7000"`
	PageDelayMS     int           `envconfig:"PAGE_DELAY_MS" default:"1000"`
	ScrapeRPS       float64       `envconfig:"SCRAPE_RPS" default:"1"`
	HTTPTimeout     time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
}

// Load reads the environment. It does not check stage requirements; call Validate for that.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "process environment config")
	}
	return &cfg, nil
}

// Validate reports the first variable the given stage needs but does not have.
func (c *Config) Validate(stage string) error {
	if c.DataBucket == "" {
		return errors.New("DATA_BUCKET environment variable is required")
	}
	if c.Environment == "" {
		return errors.New("ENVIRONMENT environment variable is required")
	}
	if stage == StageLoad && c.DBSecretARN == "" {
		return errors.New("DB_SECRET_ARN environment variable is required")
	}
	if c.HTTPMaxAttempts < 1 {
		return errors.Newf("HTTP_MAX_ATTEMPTS must be >= 1, got %d", c.HTTPMaxAttempts)
	}
	return nil
}

// CatalogEnabled reports whether Athena partition registration is configured.
func (c *Config) CatalogEnabled() bool {
	return c.AthenaDatabase != "" && c.AthenaOutput != ""
}

func (c *Config) PageDelay() time.Duration {
	if c.PageDelayMS < 0 {
		return 0
	}
	return time.Duration(c.PageDelayMS) * time.Millisecond
}
