package main

import (
	"context"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/tyler180/nba-cap-etl/internal/app"
	"github.com/tyler180/nba-cap-etl/internal/config"
	"github.com/tyler180/nba-cap-etl/internal/load"
	"github.com/tyler180/nba-cap-etl/internal/pipeline"
)

// The stage and its pool outlive invocations so warm starts reuse connections.
// A failed init is retried on the next invocation.
var (
	mu    sync.Mutex
	stage *load.Stage
)

func getStage(ctx context.Context) (*load.Stage, error) {
	mu.Lock()
	defer mu.Unlock()
	if stage != nil {
		return stage, nil
	}
	deps, err := app.New(ctx, config.StageLoad)
	if err != nil {
		return nil, err
	}
	s, _, err := deps.LoadStage(ctx)
	if err != nil {
		deps.Logger.Error("database init failed", "err", err)
		return nil, err
	}
	stage = s
	return stage, nil
}

func handler(ctx context.Context, ev pipeline.LoadEvent) (pipeline.LoadResponse, error) {
	s, err := getStage(ctx)
	if err != nil {
		return pipeline.LoadResponse{
			StatusCode: http.StatusInternalServerError,
			Body: pipeline.LoadBody{
				Loaded:  map[string]int{},
				Errors:  []string{},
				Error:   err.Error(),
				Message: "Data load to RDS failed",
			},
		}, nil
	}
	return s.Handle(ctx, ev)
}

func main() {
	lambda.Start(handler)
}
