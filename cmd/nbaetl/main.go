// Command nbaetl runs the pipeline stages locally against the configured bucket.
//
// Usage:
//
//	nbaetl fetch --mode monthly --season 2025-26
//	nbaetl validate --partition year=2025/month=11/day=03 --mode monthly
//	nbaetl transform --partition year=2025/month=11/day=03
//	nbaetl load --partition year=2025/month=11/day=03
//	nbaetl run --mode monthly
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tyler180/nba-cap-etl/internal/app"
	"github.com/tyler180/nba-cap-etl/internal/config"
	"github.com/tyler180/nba-cap-etl/internal/pipeline"
)

type flags struct {
	season    string
	mode      string
	partition string
	skipLoad  bool
}

func main() {
	_ = godotenv.Load(".env")

	var f flags
	root := &cobra.Command{
		Use:           "nbaetl",
		Short:         "NBA salary and stats ETL",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&f.season, "season", "", "season such as 2025-26 (default DEFAULT_SEASON)")
	root.PersistentFlags().StringVar(&f.mode, "mode", string(pipeline.ModeStatsOnly), "fetch mode: stats_only, monthly or full")
	root.PersistentFlags().StringVar(&f.partition, "partition", "", "date partition, e.g. year=2025/month=11/day=03")

	root.AddCommand(fetchCmd(&f), validateCmd(&f), transformCmd(&f), loadCmd(&f), runCmd(&f))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func printJSON(v any) error {
	b, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode response")
	}
	fmt.Println(string(b))
	return nil
}

// finish prints the response and turns a non-success outcome into an exit error.
func finish(name string, o pipeline.Outcome) error {
	if err := printJSON(o.Body); err != nil {
		return err
	}
	if !o.OK() {
		return errors.Newf("%s %s (%d): %s", name, o.Status, o.StatusCode, o.Message)
	}
	return nil
}

func (f *flags) location(d *app.Deps) (*pipeline.DataLocation, error) {
	if f.partition == "" {
		return nil, errors.New("--partition is required")
	}
	if _, err := pipeline.ParsePartition(f.partition); err != nil {
		return nil, err
	}
	return &pipeline.DataLocation{Bucket: d.Cfg.DataBucket, Partition: f.partition}, nil
}

func fetchCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Scrape raw snapshots into raw/",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := app.New(cmd.Context(), config.StageFetch)
			if err != nil {
				return err
			}
			o := d.FetchStage().Run(cmd.Context(), pipeline.FetchEvent{FetchType: f.mode, Season: f.season, Partition: f.partition})
			return finish("fetch", o)
		},
	}
}

func validateCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate one raw partition and write its report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := app.New(cmd.Context(), config.StageValidate)
			if err != nil {
				return err
			}
			loc, err := f.location(d)
			if err != nil {
				return err
			}
			o := d.ValidateStage().Run(cmd.Context(), pipeline.ValidateEvent{DataLocation: loc, FetchType: f.mode})
			return finish("validate", o)
		},
	}
}

func transformCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "transform",
		Short: "Enrich one partition, assuming validation passed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := app.New(cmd.Context(), config.StageTransform)
			if err != nil {
				return err
			}
			loc, err := f.location(d)
			if err != nil {
				return err
			}
			o := d.TransformStage().Run(cmd.Context(), pipeline.TransformEvent{DataLocation: loc, ValidationPassed: true})
			return finish("transform", o)
		},
	}
}

func loadCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Upsert one enriched partition into the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := app.New(cmd.Context(), config.StageLoad)
			if err != nil {
				return err
			}
			loc, err := f.location(d)
			if err != nil {
				return err
			}
			stage, pool, err := d.LoadStage(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			o := stage.Run(cmd.Context(), pipeline.LoadEvent{DataLocation: loc, TransformationSuccessful: true})
			return finish("load", o)
		},
	}
}

func runCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run fetch, validate, transform and load, stopping at the first closed gate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			need := config.StageLoad
			if f.skipLoad {
				need = config.StageTransform
			}
			d, err := app.New(ctx, need)
			if err != nil {
				return err
			}

			fo := d.FetchStage().Run(ctx, pipeline.FetchEvent{FetchType: f.mode, Season: f.season, Partition: f.partition})
			if err := finish("fetch", fo); err != nil {
				return err
			}
			fr := fo.Body.(pipeline.FetchResponse)

			vo := d.ValidateStage().Run(ctx, pipeline.ValidateEvent{DataLocation: fr.DataLocation, FetchType: fr.FetchType})
			if err := finish("validate", vo); err != nil {
				return err
			}
			vr := vo.Body.(pipeline.ValidateResponse)

			to := d.TransformStage().Run(ctx, pipeline.TransformEvent{DataLocation: vr.DataLocation, ValidationPassed: vr.ValidationPassed})
			if err := finish("transform", to); err != nil {
				return err
			}
			tr := to.Body.(pipeline.TransformResponse)
			if f.skipLoad {
				return nil
			}

			stage, pool, err := d.LoadStage(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			lo := stage.Run(ctx, pipeline.LoadEvent{
				DataLocation:             tr.DataLocation,
				TransformationSuccessful: tr.TransformationSuccessful,
				Statistics:               tr.Statistics,
			})
			return finish("load", lo)
		},
	}
	cmd.Flags().BoolVar(&f.skipLoad, "skip-load", false, "stop after transform")
	return cmd
}
