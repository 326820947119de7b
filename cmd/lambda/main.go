package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"growth-engine/config"
	"growth-engine/internal/app"
	"growth-engine/pkg/logger"
)

var ginLambda *ginadapter.GinLambda

// init runs once per Lambda container (cold start). The store and caches
// live as long as the container.
func init() {
	gin.SetMode(gin.ReleaseMode)

	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Fatalw("Failed to load config", "error", err)
	}
	l := logger.New(cfg.Log.Level)

	a, err := app.New(context.Background(), cfg, l)
	if err != nil {
		l.Fatalw("Failed to initialize", "error", err)
	}

	ginLambda = ginadapter.New(a.Router)
}

// Handler is the Lambda entrypoint for API Gateway REST/HTTP API (proxy integration).
func Handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return ginLambda.ProxyWithContext(ctx, req)
}

func main() {
	lambda.Start(Handler)
}
