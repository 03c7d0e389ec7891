package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/viant/navigator/service/capability"
)

func newCapabilitiesCmd() *cobra.Command {
	var interpreter string
	cmd := &cobra.Command{
		Use:   "capabilities",
		Short: "Print available model frameworks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry := capability.New(capability.WithProber(capability.PythonProber(interpreter)))
			for _, item := range registry.List() {
				available := "unavailable"
				if item.Available {
					available = item.Version
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %v\n", item.Name, available)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&interpreter, "python", "python3", "Python interpreter used to probe frameworks")
	return cmd
}
