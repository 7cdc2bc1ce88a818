package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ClippingsImporter/internal/domain"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "resolve NAME [NAME...]",
		Short: "Resolve names against the personnel directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf := time.Now()
			if date != "" {
				parsed, err := time.Parse(domain.DateLayout, date)
				if err != nil {
					return fmt.Errorf("invalid --date %q, want YYYY-MM-DD: %w", date, err)
				}
				asOf = parsed
			}

			application, err := ctx.application(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			result := application.ResolveNames(cmd.Context(), args, asOf)
			fmt.Fprintln(cmd.OutOrStdout(), renderResolution(result))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Publication date (YYYY-MM-DD); defaults to today")
	return cmd
}

func renderResolution(result domain.ResolutionResult) string {
	rows := make([][]string, 0, len(result.Resolved)+len(result.Unresolved))
	for _, p := range result.Resolved {
		orgs := make([]string, 0, len(p.Affiliations))
		for _, a := range p.Affiliations {
			orgs = append(orgs, fmt.Sprintf("%s (%s)", a.OrganizationName, a.OrganizationType))
		}
		rows = append(rows, []string{p.CandidateName, p.IdentityID, p.DisplayName, p.PrimaryOrganization, strings.Join(orgs, "; ")})
	}
	for _, name := range result.Unresolved {
		rows = append(rows, []string{name, "-", "unresolved", "", ""})
	}
	return renderTable([]string{"Name", "Identity", "Directory name", "Primary organisation", "Affiliations"}, rows, nil)
}
