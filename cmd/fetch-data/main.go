package main

import (
	"context"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/tyler180/nba-cap-etl/internal/app"
	"github.com/tyler180/nba-cap-etl/internal/config"
	"github.com/tyler180/nba-cap-etl/internal/fetch"
	"github.com/tyler180/nba-cap-etl/internal/pipeline"
)

var (
	initOnce sync.Once
	stage    *fetch.Stage
	initErr  error
)

func handler(ctx context.Context, ev pipeline.FetchEvent) (pipeline.FetchResponse, error) {
	initOnce.Do(func() {
		var deps *app.Deps
		if deps, initErr = app.New(ctx, config.StageFetch); initErr == nil {
			stage = deps.FetchStage()
		}
	})
	if initErr != nil {
		return pipeline.FetchResponse{
			StatusCode: http.StatusInternalServerError,
			Fetched:    []string{},
			Errors:     []string{},
			Error:      initErr.Error(),
		}, nil
	}
	return stage.Handle(ctx, ev)
}

func main() {
	lambda.Start(handler)
}
