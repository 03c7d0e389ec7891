package main

import (
	"context"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
	"github.com/viant/afs"
	"github.com/viant/navigator/service/workspace"
)

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <package-a> <package-b>",
		Short: "Print a unified diff of two package layouts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := diffLayouts(cmd.Context(), afs.New(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), patch)
			return nil
		},
	}
}

// diffLayouts returns an empty string for identical layouts.
func diffLayouts(ctx context.Context, fs afs.Service, dirA, dirB string) (string, error) {
	layoutA, err := workspace.Layout(ctx, fs, dirA)
	if err != nil {
		return "", err
	}
	layoutB, err := workspace.Layout(ctx, fs, dirB)
	if err != nil {
		return "", err
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        lines(layoutA),
		B:        lines(layoutB),
		FromFile: dirA,
		ToFile:   dirB,
		Context:  3,
	})
}

func lines(items []string) []string {
	ret := make([]string, len(items))
	for i, item := range items {
		ret[i] = item + "\n"
	}
	return ret
}
