package main

import (
	"context"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/tyler180/nba-cap-etl/internal/app"
	"github.com/tyler180/nba-cap-etl/internal/config"
	"github.com/tyler180/nba-cap-etl/internal/pipeline"
	"github.com/tyler180/nba-cap-etl/internal/validate"
)

var (
	initOnce sync.Once
	stage    *validate.Stage
	initErr  error
)

func handler(ctx context.Context, ev pipeline.ValidateEvent) (pipeline.ValidateResponse, error) {
	initOnce.Do(func() {
		var deps *app.Deps
		if deps, initErr = app.New(ctx, config.StageValidate); initErr == nil {
			stage = deps.ValidateStage()
		}
	})
	if initErr != nil {
		return pipeline.ValidateResponse{
			StatusCode: http.StatusInternalServerError,
			Body:       pipeline.ValidateBody{Message: "Validation failed", Error: initErr.Error()},
		}, nil
	}
	return stage.Handle(ctx, ev)
}

func main() {
	lambda.Start(handler)
}
