package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/dependents/node-app-root/mcpserver"
)

func newMCPCommand(opts *options, version string, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve find_roots and dependency_graph to MCP clients over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Tool calls name their own directory; the config only supplies defaults.
			cfg, err := loadConfig(cmd, opts, "")
			if err != nil {
				return err
			}
			ctx, shutdown, err := setup(cmd.Context(), cfg, version, stderr)
			if err != nil {
				return err
			}
			defer shutdown()

			return mcpserver.New(cfg, version).Serve(ctx)
		},
	}
	addConfigFlags(cmd)
	return cmd
}
