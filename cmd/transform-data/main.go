package main

import (
	"context"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/tyler180/nba-cap-etl/internal/app"
	"github.com/tyler180/nba-cap-etl/internal/config"
	"github.com/tyler180/nba-cap-etl/internal/enrich"
	"github.com/tyler180/nba-cap-etl/internal/pipeline"
)

var (
	initOnce sync.Once
	stage    *enrich.Stage
	initErr  error
)

func handler(ctx context.Context, ev pipeline.TransformEvent) (pipeline.TransformResponse, error) {
	initOnce.Do(func() {
		var deps *app.Deps
		if deps, initErr = app.New(ctx, config.StageTransform); initErr == nil {
			stage = deps.TransformStage()
		}
	})
	if initErr != nil {
		return pipeline.TransformResponse{
			StatusCode: http.StatusInternalServerError,
			Body: pipeline.TransformBody{
				Transformed: []string{},
				Errors:      []string{},
				Error:       initErr.Error(),
				Message:     "Data transformation failed",
			},
		}, nil
	}
	return stage.Handle(ctx, ev)
}

func main() {
	lambda.Start(handler)
}
