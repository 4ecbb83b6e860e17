// Package app wires configuration, AWS clients and stages for the entrypoints.
package app

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/cockroachdb/errors"

	"github.com/tyler180/nba-cap-etl/internal/bref"
	"github.com/tyler180/nba-cap-etl/internal/catalog"
	"github.com/tyler180/nba-cap-etl/internal/config"
	"github.com/tyler180/nba-cap-etl/internal/enrich"
	"github.com/tyler180/nba-cap-etl/internal/fetch"
	"github.com/tyler180/nba-cap-etl/internal/load"
	"github.com/tyler180/nba-cap-etl/internal/logging"
	"github.com/tyler180/nba-cap-etl/internal/pipeline"
	"github.com/tyler180/nba-cap-etl/internal/store"
	"github.com/tyler180/nba-cap-etl/internal/validate"
)

// Deps holds what every stage is built from.
type Deps struct {
	Cfg    *config.Config
	AWS    aws.Config
	Logger *logging.Logger
	Clock  pipeline.Clock

	artifacts *store.Artifacts
}

// New loads and checks the environment for stage, then the AWS config.
func New(ctx context.Context, stage string) (*Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.NewJSON(logging.ParseLevel(cfg.LogLevel))
	logging.SetDefault(logger)
	if err := cfg.Validate(stage); err != nil {
		logger.Error("invalid configuration", "stage", stage, "err", err)
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return &Deps{Cfg: cfg, AWS: awsCfg, Logger: logger, Clock: pipeline.SystemClock}, nil
}

func (d *Deps) Artifacts() *store.Artifacts {
	if d.artifacts == nil {
		d.artifacts = store.NewArtifacts(s3.NewFromConfig(d.AWS), d.Cfg.DataBucket)
	}
	return d.artifacts
}

// Ledger is nil unless RUN_LEDGER_TABLE is set.
func (d *Deps) Ledger() *store.Ledger {
	if d.Cfg.RunLedgerTable == "" {
		return nil
	}
	return store.NewLedger(dynamodb.NewFromConfig(d.AWS), d.Cfg.RunLedgerTable)
}

// Catalog is nil unless the Athena database and output location are set.
func (d *Deps) Catalog() enrich.Registrar {
	if !d.Cfg.CatalogEnabled() {
		return nil
	}
	return &catalog.Runner{
		Client:    athena.NewFromConfig(d.AWS),
		Workgroup: d.Cfg.AthenaWorkgroup,
		Database:  d.Cfg.AthenaDatabase,
		OutputS3:  d.Cfg.AthenaOutput,
		Logger:    d.Logger.With("component", "catalog"),
	}
}

func (d *Deps) FetchStage() *fetch.Stage {
	src := &fetch.Scrapers{
		Client:    bref.NewClientFromEnv(d.Cfg, d.Logger.With("component", "scrape")),
		Clock:     d.Clock,
		PageDelay: d.Cfg.PageDelay(),
	}
	return &fetch.Stage{
		Artifacts:     d.Artifacts(),
		Ledger:        d.Ledger(),
		Stats:         src,
		Salaries:      src,
		Players:       src,
		Teams:         src,
		DefaultSeason: d.Cfg.DefaultSeason,
		Environment:   d.Cfg.Environment,
		Clock:         d.Clock,
		Logger:        d.Logger.With("stage", config.StageFetch),
	}
}

func (d *Deps) ValidateStage() *validate.Stage {
	return &validate.Stage{
		Artifacts:   d.Artifacts(),
		Ledger:      d.Ledger(),
		Environment: d.Cfg.Environment,
		Clock:       d.Clock,
		Logger:      d.Logger.With("stage", config.StageValidate),
	}
}

func (d *Deps) TransformStage() *enrich.Stage {
	return &enrich.Stage{
		Artifacts:     d.Artifacts(),
		Ledger:        d.Ledger(),
		Catalog:       d.Catalog(),
		ParquetExport: d.Cfg.ParquetExport,
		Environment:   d.Cfg.Environment,
		Clock:         d.Clock,
		Logger:        d.Logger.With("stage", config.StageTransform),
	}
}

// LoadStage resolves database credentials and opens the pool. The caller
// closes the returned pool.
func (d *Deps) LoadStage(ctx context.Context) (*load.Stage, *load.Pool, error) {
	creds, err := config.LoadDBCredentials(ctx, secretsmanager.NewFromConfig(d.AWS), d.Cfg.DBSecretARN)
	if err != nil {
		return nil, nil, err
	}
	pool, err := load.NewPool(ctx, creds)
	if err != nil {
		return nil, nil, err
	}
	return &load.Stage{
		Artifacts:   d.Artifacts(),
		DB:          pool,
		Ledger:      d.Ledger(),
		Environment: d.Cfg.Environment,
		Logger:      d.Logger.With("stage", config.StageLoad),
	}, pool, nil
}
