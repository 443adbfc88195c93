package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liverylab/easel/pkg/easel"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the easel version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "easel v%s\nmodule: %s\n", easel.Version, easel.ModulePath)
			return nil
		},
	}
}
