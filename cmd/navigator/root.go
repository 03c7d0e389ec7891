package main

import (
	"github.com/spf13/cobra"
)

const version = "0.1.0"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "navigator",
		Short:         "Export models into deployable formats",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newExportCmd(), newStatusCmd(), newCapabilitiesCmd(), newDiffCmd())
	return cmd
}
