package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/jacentio/flexdb/internal/cli"
	"github.com/jacentio/flexdb/server"
)

func newConfigCommand(stdout, stderr io.Writer) *cobra.Command {
	config := server.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration.",
		Long: `config prints the configuration serve would run with, as TOML that
can be passed back with --config.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.WriteConfig(stdout, cmd.Flags())
		},
	}
	cli.ConfigFlags(cmd.Flags(), &config)
	return cmd
}
