package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"ClippingsImporter/internal/domain"
	"ClippingsImporter/internal/usecase"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scan all configured inputs and write the clipping XML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := ctx.application(runCtx)
			if err != nil {
				return err
			}
			defer application.Close()

			out := cmd.OutOrStdout()
			if watch {
				err := application.Watch(runCtx, func(summary usecase.Summary) {
					fmt.Fprintln(out, renderSummary(summary))
				})
				if err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			}

			summary, err := application.Run(runCtx)
			if err != nil {
				return err
			}
			printSummary(out, summary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and rescan on the scheduler interval")
	return cmd
}

func printSummary(w io.Writer, summary usecase.Summary) {
	fmt.Fprintln(w, renderSummary(summary))
	if summary.ClippingsPath != "" {
		fmt.Fprintf(w, "Clippings: %s\n", summary.ClippingsPath)
	}
	if summary.ReportPath != "" {
		fmt.Fprintf(w, "Report:    %s\n", summary.ReportPath)
	}
}

func renderSummary(summary usecase.Summary) string {
	rows := [][]string{
		{"scanned", strconv.Itoa(summary.Scanned)},
		{"accepted", strconv.Itoa(summary.Accepted)},
	}

	reasons := make([]string, 0, len(summary.Dropped))
	for reason := range summary.Dropped {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		rows = append(rows, []string{"dropped: " + reason, strconv.Itoa(summary.Dropped[domain.DropReason(reason)])})
	}

	return fmt.Sprintf("Run %s\n%s", summary.RunID,
		renderTable([]string{"Outcome", "Articles"}, rows, []columnAlignment{alignLeft, alignRight}))
}
