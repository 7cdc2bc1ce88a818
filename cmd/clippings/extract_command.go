package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ClippingsImporter/internal/domain"
	"ClippingsImporter/internal/infrastructure/parser"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var scannerName string

	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Print the candidate names found in a digest file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := ctx.application(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			articles, err := application.ScanFile(cmd.Context(), scannerName, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderCandidates(articles))
			return nil
		},
	}

	cmd.Flags().StringVar(&scannerName, "scanner", parser.ScannerName, "Digest format")
	return cmd
}

func renderCandidates(articles []domain.Article) string {
	rows := make([][]string, 0, len(articles))
	for _, a := range articles {
		date := "-"
		if !a.PublishedAt.IsZero() {
			date = a.PublishedAt.Format(domain.DateLayout)
		}
		rows = append(rows, []string{a.Title, date, a.Source, a.Faculty, strings.Join(a.Candidates, ", ")})
	}
	return renderTable([]string{"Title", "Date", "Source", "Faculty", "Candidates"}, rows, nil)
}
