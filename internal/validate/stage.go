package validate

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/tyler180/nba-cap-etl/internal/config"
	"github.com/tyler180/nba-cap-etl/internal/logging"
	"github.com/tyler180/nba-cap-etl/internal/pipeline"
	"github.com/tyler180/nba-cap-etl/internal/store"
)

// RunReport is the document written to validation/{partition}/validation_report.json.
type RunReport struct {
	Timestamp    string    `json:"timestamp"`
	Environment  string    `json:"environment"`
	Partition    string    `json:"partition"`
	FetchType    string    `json:"fetch_type"`
	Validations  []*Report `json:"validations"`
	OverallValid bool      `json:"overall_valid"`
	ErrorCount   int       `json:"error_count"`
	WarningCount int       `json:"warning_count"`
}

type Stage struct {
	Artifacts   *store.Artifacts
	Ledger      *store.Ledger
	Environment string
	Clock       pipeline.Clock
	Logger      *logging.Logger
}

// Handle is the Lambda-facing wrapper around Run.
func (s *Stage) Handle(ctx context.Context, ev pipeline.ValidateEvent) (pipeline.ValidateResponse, error) {
	o := s.Run(ctx, ev)
	return o.Body.(pipeline.ValidateResponse), nil
}

// Run validates every category for the event's partition. The outcome body is
// always a pipeline.ValidateResponse.
func (s *Stage) Run(ctx context.Context, ev pipeline.ValidateEvent) pipeline.Outcome {
	if ev.DataLocation.Empty() {
		msg := "Missing data_location in event"
		return pipeline.Rejection(http.StatusBadRequest, msg, pipeline.ValidateResponse{
			StatusCode: http.StatusBadRequest,
			Body:       pipeline.ValidateBody{Message: "Validation failed", Error: msg},
		})
	}

	mode, err := pipeline.ParseFetchMode(ev.FetchType)
	if err != nil {
		s.Logger.Warn("unknown fetch_type, treating as stats_only", "fetch_type", ev.FetchType)
		mode = pipeline.ModeStatsOnly
	}
	partition := ev.DataLocation.Partition
	now := s.Clock.Now()
	log := s.Logger.With("partition", partition, "fetch_type", string(mode))

	run := s.validateAll(ctx, log, partition, mode, now)

	reportKey := pipeline.ValidationReportKey(partition)
	if err := s.Artifacts.PutJSON(ctx, reportKey, run); err != nil {
		log.Error("failed to save validation report", "key", reportKey, "err", err)
	} else {
		log.Info("saved validation report", "key", reportKey)
	}

	resp := pipeline.ValidateResponse{
		StatusCode: http.StatusOK,
		Body: pipeline.ValidateBody{
			Message:      "Validation complete",
			Valid:        run.OverallValid,
			ErrorCount:   run.ErrorCount,
			WarningCount: run.WarningCount,
		},
		ValidationReport: &pipeline.ReportLocation{Bucket: s.Artifacts.Bucket, Key: reportKey},
		DataLocation:     ev.DataLocation,
		ValidationPassed: run.OverallValid,
	}

	var o pipeline.Outcome
	if run.OverallValid {
		o = pipeline.Success(resp)
	} else {
		resp.StatusCode = http.StatusUnprocessableEntity
		resp.Body.Message = "Validation failed"
		o = pipeline.Rejection(http.StatusUnprocessableEntity, "Validation failed", resp)
	}
	s.record(ctx, partition, o, run)
	return o
}

func (s *Stage) validateAll(ctx context.Context, log *logging.Logger, partition string, mode pipeline.FetchMode, now time.Time) *RunReport {
	run := &RunReport{
		Timestamp:    pipeline.Timestamp(now),
		Environment:  s.Environment,
		Partition:    partition,
		FetchType:    string(mode),
		Validations:  []*Report{},
		OverallValid: true,
	}
	required := pipeline.Requirement(mode)

	for _, cat := range pipeline.Categories {
		key := pipeline.RawKey(cat, partition)
		log.Info("validating", "key", key, "required", required[cat])

		raw, err := s.Artifacts.GetBytes(ctx, key)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				log.Error("failed to load", "key", key, "err", err)
			}
			if !required[cat] {
				log.Info("optional file not found, skipping", "key", key)
				continue
			}
			log.Error("required file not found or invalid", "key", key)
			r := newReport(string(cat))
			r.add("required_file", Error, "Required file not found or could not be loaded: "+key)
			r.S3Key = key
			run.Validations = append(run.Validations, r)
			run.OverallValid = false
			run.ErrorCount++
			continue
		}

		r, err := validateCategory(cat, raw, now)
		if err != nil {
			// unparseable JSON is treated like a missing file
			log.Error("invalid JSON", "key", key, "err", err)
			if !required[cat] {
				continue
			}
			r = newReport(string(cat))
			r.add("required_file", Error, "Required file not found or could not be loaded: "+key)
			run.ErrorCount++
			r.S3Key = key
			run.Validations = append(run.Validations, r)
			run.OverallValid = false
			continue
		}
		r.S3Key = key
		run.Validations = append(run.Validations, r)

		if !r.Valid {
			run.OverallValid = false
			run.ErrorCount += len(r.Errors)
			log.Error("category invalid", "data_type", r.DataType, "errors", len(r.Errors))
		} else {
			log.Info("category valid", "data_type", r.DataType, "warnings", len(r.Warnings))
		}
		run.WarningCount += len(r.Warnings)
	}
	return run
}

// validateCategory dispatches raw to the category's rule table.
func validateCategory(cat pipeline.Category, raw []byte, now time.Time) (*Report, error) {
	switch cat {
	case pipeline.CategoryStats:
		return ValidateStats(raw, now)
	case pipeline.CategoryPlayers:
		return ValidatePlayers(raw)
	case pipeline.CategoryTeams:
		return ValidateTeams(raw)
	case pipeline.CategorySalaries:
		return ValidateSalaries(raw, now)
	}
	return nil, errors.Newf("unknown category %q", cat)
}

func (s *Stage) record(ctx context.Context, partition string, o pipeline.Outcome, run *RunReport) {
	if err := s.Ledger.RecordStage(ctx, partition, config.StageValidate, o); err != nil {
		s.Logger.Warn("ledger write failed", "err", err)
	}
	counts := map[string]int{"errors": run.ErrorCount, "warnings": run.WarningCount}
	if err := s.Ledger.RecordCounts(ctx, partition, config.StageValidate, counts); err != nil {
		s.Logger.Warn("ledger counts failed", "err", err)
	}
}
