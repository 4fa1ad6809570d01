// Command flexdb-lambda serves the flexdb HTTP API from AWS Lambda behind an
// API Gateway proxy integration. It is configured through FLEXDB_
// environment variables and defaults to the DynamoDB backend.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jacentio/flexdb/internal/cli"
	"github.com/jacentio/flexdb/lambdaapi"
	"github.com/jacentio/flexdb/server"
)

func main() {
	config := server.DefaultConfig()
	config.Backend = server.BackendDynamoDB
	config.Log.Format = "json"

	flags := pflag.NewFlagSet("flexdb-lambda", pflag.ContinueOnError)
	flags.String(cli.ConfigFlag, "", "Configuration file to read from.")
	cli.ConfigFlags(flags, &config)
	if err := flags.Parse(os.Args[1:]); err != nil {
		slog.Error("parse flags", "error", err)
		os.Exit(1)
	}
	if err := cli.SetAllConfig(viper.New(), flags, cli.EnvPrefix); err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger, err := server.NewLogger(config.Log, os.Stderr)
	if err != nil {
		slog.Error("create logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	srv, err := server.New(context.Background(), config, logger)
	if err != nil {
		logger.Error("start server", "error", err)
		os.Exit(1)
	}

	lambda.Start(lambdaapi.New(srv.Handler(), logger).Handle)
}
