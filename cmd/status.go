package cmd

import (
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dependents/node-app-root/render"
	"github.com/dependents/node-app-root/roots"
)

func newStatusCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "status <directory>",
		Short: "Show the roots last recorded by the watch daemon",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usageError{roots.ErrMissingDirectory}
			}
			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			render.Status(stdout, root)
			return nil
		},
	}
}
