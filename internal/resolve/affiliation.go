package resolve

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"ClippingsImporter/internal/config"
	"ClippingsImporter/internal/domain"
	"ClippingsImporter/internal/logging"
	"ClippingsImporter/internal/ports"
)

// openEnded stands in for a missing association end date.
var openEnded = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// AffiliationFilter keeps the associations valid on a date and classifies
// their organisations.
type AffiliationFilter struct {
	directory          ports.Directory
	researchMarker     string
	departmentPrefixes []string
	logger             *slog.Logger
}

// NewAffiliationFilter wires the organisation lookup and classification rules.
func NewAffiliationFilter(directory ports.Directory, cfg config.OrganizationConfig, logger *slog.Logger) *AffiliationFilter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &AffiliationFilter{
		directory:          directory,
		researchMarker:     cfg.ResearchMarker,
		departmentPrefixes: cfg.DepartmentPrefixes,
		logger:             logger,
	}
}

// Filter returns the affiliations whose [start, end] interval contains the
// calendar day of asOf, plus the name of the last organisation classified.
// Associations without a parseable start date are skipped; a missing or
// unparseable end date means open-ended.
func (f *AffiliationFilter) Filter(ctx context.Context, associations []domain.Association, asOf time.Time) ([]domain.Affiliation, string) {
	day := civilDay(asOf)

	var (
		affiliations []domain.Affiliation
		orgName      string
	)
	for _, assoc := range associations {
		start, err := time.Parse(domain.DateLayout, dateOnly(assoc.Start))
		if err != nil {
			f.logger.Debug("skip association without start date", "organization", assoc.OrganizationID, "start", assoc.Start)
			continue
		}
		end := openEnded
		if assoc.End != "" {
			if parsed, err := time.Parse(domain.DateLayout, dateOnly(assoc.End)); err == nil {
				end = parsed
			}
		}
		if day.Before(start) || day.After(end) {
			continue
		}

		orgType, name := f.classify(ctx, assoc.OrganizationID)
		orgName = name
		affiliations = append(affiliations, domain.Affiliation{
			OrganizationID:   assoc.OrganizationID,
			OrganizationType: orgType,
			OrganizationName: name,
			ValidFrom:        start,
			ValidTo:          end,
		})
	}
	return affiliations, orgName
}

// classify never fails: an unavailable organisation is Unknown.
func (f *AffiliationFilter) classify(ctx context.Context, uuid string) (string, string) {
	org, err := f.directory.Organization(ctx, uuid)
	if err != nil {
		f.logger.Warn("organization lookup failed", "organization", uuid, "error", err)
		return domain.OrgTypeUnknown, domain.OrgTypeUnknown
	}
	return ClassifyType(org.TypeURI, f.researchMarker, f.departmentPrefixes), org.Name
}

// ClassifyType derives the coarse organisation category from the last path
// segment of a type URI.
func ClassifyType(typeURI, researchMarker string, departmentPrefixes []string) string {
	code := typeURI
	if i := strings.LastIndex(code, "/"); i >= 0 {
		code = code[i+1:]
	}
	if researchMarker != "" && strings.Contains(code, researchMarker) {
		return domain.OrgTypeResearch
	}
	for _, prefix := range departmentPrefixes {
		if prefix != "" && strings.HasPrefix(code, prefix) {
			return domain.OrgTypeDepartment
		}
	}
	return domain.OrgTypeGeneric
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dateOnly(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > len(domain.DateLayout) {
		return s[:len(domain.DateLayout)]
	}
	return s
}
