package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"github.com/viant/afs"
	"github.com/viant/navigator/model/format"
	"github.com/viant/navigator/model/status"
	"github.com/viant/navigator/service/dao"
	"github.com/viant/navigator/service/dao/result"
	"github.com/viant/navigator/service/workspace"
)

func newStatusCmd() *cobra.Command {
	var statuses, formats []string
	cmd := &cobra.Command{
		Use:   "status <package-dir>",
		Short: "Print an export package manifest summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := workspace.LoadManifest(cmd.Context(), afs.New(), args[0])
			if err != nil {
				return err
			}
			var parameters []*dao.Parameter
			if len(statuses) > 0 {
				parameters = append(parameters, dao.NewParameter("Status", statuses...))
			}
			if len(formats) > 0 {
				parameters = append(parameters, dao.NewParameter("Format", formats...))
			}
			if manifest.Commands, err = filterCommands(cmd.Context(), manifest.Commands, parameters...); err != nil {
				return err
			}
			printManifest(cmd.OutOrStdout(), manifest)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only print commands with these statuses (success, failure, skipped)")
	cmd.Flags().StringSliceVar(&formats, "format", nil, "Only print commands of these formats")
	return cmd
}

// filterCommands returns manifest commands matching every parameter, in manifest order.
func filterCommands(ctx context.Context, commands []*status.CommandResult, parameters ...*dao.Parameter) ([]*status.CommandResult, error) {
	if len(parameters) == 0 {
		return commands, nil
	}
	journal := result.New()
	for _, item := range commands {
		if err := journal.Save(ctx, item); err != nil {
			return nil, fmt.Errorf("invalid manifest: %w", err)
		}
	}
	return journal.List(ctx, parameters...)
}

func printManifest(w io.Writer, manifest *status.Manifest) {
	fmt.Fprintf(w, "model: %v (%v)\n", manifest.ModelName, manifest.Framework)
	fmt.Fprintf(w, "state: %v\n", manifest.State)
	if manifest.Error != "" {
		fmt.Fprintf(w, "error: %v\n", manifest.Error)
	}
	fmt.Fprintf(w, "samples: %v/%v\n", manifest.Samples.Group, manifest.Samples.Count)
	ids := make([]format.ID, 0, len(manifest.Formats))
	for id := range manifest.Formats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fmt.Fprintf(w, "  %-20s %v\n", id, manifest.Formats[id])
	}
	for _, result := range manifest.Commands {
		line := fmt.Sprintf("  %-24s %-8v %6dms", result.Command, result.Status, result.DurationMs)
		if result.Verdict != nil {
			line += fmt.Sprintf(" %v maxAbsDiff=%g", result.Verdict.Kind, result.Verdict.MaxAbsDiff)
		}
		if result.Profile != nil {
			line += fmt.Sprintf(" p50=%.3fms p95=%.3fms", result.Profile.P50LatencyMs, result.Profile.P95LatencyMs)
		}
		if result.Error != "" {
			line += " error: " + result.Error
		}
		fmt.Fprintln(w, line)
	}
}
