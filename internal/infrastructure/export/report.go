package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"ClippingsImporter/internal/domain"
	"ClippingsImporter/internal/ports"
)

// ReportSheet is the worksheet holding one row per scanned article.
const ReportSheet = "Articles"

var reportHeaders = []string{
	"Title", "URL", "Date", "Source", "Faculty", "Input",
	"Candidates", "Resolved", "Unresolved", "Status", "Reason",
}

// ReportWriter saves the audit spreadsheet of a run.
type ReportWriter struct {
	dir string
	now func() time.Time
}

var _ ports.ReportWriter = (*ReportWriter)(nil)

// NewReportWriter writes reports into dir.
func NewReportWriter(dir string) *ReportWriter {
	return &ReportWriter{dir: dir, now: time.Now}
}

// WriteReport returns the path of the written workbook.
func (w *ReportWriter) WriteReport(ctx context.Context, processed []domain.ProcessedArticle) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ReportSheet); err != nil {
		return "", fmt.Errorf("name sheet: %w", err)
	}
	if err := writeRow(f, 1, toCells(reportHeaders)); err != nil {
		return "", err
	}

	for i, p := range processed {
		a := p.Article
		date := ""
		if !a.PublishedAt.IsZero() {
			date = a.PublishedAt.Format("2006-01-02 15:04")
		}
		row := []interface{}{
			a.Title, a.URL, date, a.Source, a.Faculty, a.Input,
			strings.Join(a.Candidates, "; "),
			strings.Join(a.Resolution.IdentityIDs(), "; "),
			strings.Join(a.Resolution.Unresolved, "; "),
			string(p.Status), string(p.Reason),
		}
		if err := writeRow(f, i+2, row); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(w.dir, "processed_articles_"+w.now().Format("20060102_150405")+".xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	return path, nil
}

func writeRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetSheetRow(ReportSheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
