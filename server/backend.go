package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/jacentio/flexdb/store"
)

const tableReadyTimeout = 2 * time.Minute

// OpenStore opens the configured backend.
func OpenStore(ctx context.Context, c Config, logger *slog.Logger) (store.Store, error) {
	switch c.Backend {
	case BackendBolt:
		return store.OpenBolt(c.Bolt, logger)
	case BackendDynamoDB:
		return openDynamo(ctx, c.DynamoDB, logger)
	default:
		return nil, fmt.Errorf("unknown backend %q", c.Backend)
	}
}

// NewDynamoClient returns a DynamoDB client for the AWS environment, with
// the region and endpoint overrides in c applied.
func NewDynamoClient(ctx context.Context, c DynamoDBConfig) (*dynamodb.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if c.Region != "" {
		opts = append(opts, awsconfig.WithRegion(c.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
	}), nil
}

func openDynamo(ctx context.Context, c DynamoDBConfig, logger *slog.Logger) (store.Store, error) {
	client, err := NewDynamoClient(ctx, c)
	if err != nil {
		return nil, err
	}

	cfg := store.DefaultConfig()
	cfg.Table = c.Table
	s := store.NewDynamo(client, cfg, logger)

	if c.CreateTable {
		if err := s.EnsureTable(ctx, tableReadyTimeout); err != nil {
			return nil, err
		}
	}
	logger.Info("opened dynamodb store", "table", c.Table, "region", c.Region, "endpoint", c.Endpoint)
	return s, nil
}
