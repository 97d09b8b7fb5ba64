package awsclient

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"timesheet/internal/platform/config"
)

// Load builds the SDK config. A non-empty AWS_ENDPOINT routes every client to
// that URL with static test credentials, which is how LocalStack is reached.
func Load(ctx context.Context, cfg config.Config) (aws.Config, error) {
	if cfg.AWSEndpoint == "" {
		return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	}
	slog.Info("routing aws calls to custom endpoint", "endpoint", cfg.AWSEndpoint)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	if err != nil {
		return aws.Config{}, err
	}
	awsCfg.BaseEndpoint = aws.String(cfg.AWSEndpoint)
	return awsCfg, nil
}
