package main

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jacentio/flexdb/internal/cli"
)

// NewRootCommand returns the flexdb command tree.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	rc := &cobra.Command{
		Use:   "flexdb",
		Short: "flexdb exposes schemaless document collections over HTTP.",
		Long: `flexdb exposes schemaless document collections over HTTP.

Documents are stored in a local bolt file or a DynamoDB table. Every
option can be set with a flag, a FLEXDB_ prefixed environment variable
or a TOML file passed with --config, in that priority order.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.SetAllConfig(viper.New(), cmd.Flags(), cli.EnvPrefix)
		},
	}
	rc.PersistentFlags().StringP(cli.ConfigFlag, "c", "", "Configuration file to read from.")

	rc.AddCommand(newServeCommand(stdout, stderr))
	rc.AddCommand(newConfigCommand(stdout, stderr))

	rc.SetIn(stdin)
	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}
