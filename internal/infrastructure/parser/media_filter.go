package parser

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"ClippingsImporter/internal/domain"
	"ClippingsImporter/internal/ports"
)

// Sheet names of the media filter workbook.
const (
	SourceSheet = "Media name"
	TitleSheet  = "Media title"
)

// MediaFilter drops articles from excluded outlets or with excluded words in
// the title.
type MediaFilter struct {
	sources map[string]struct{}
	words   []string
}

var _ ports.ArticleFilter = (*MediaFilter)(nil)

// NewMediaFilter builds a filter from explicit lists.
func NewMediaFilter(sources, titleWords []string) *MediaFilter {
	f := &MediaFilter{sources: make(map[string]struct{}, len(sources))}
	for _, src := range sources {
		if src = strings.TrimSpace(src); src != "" {
			f.sources[src] = struct{}{}
		}
	}
	for _, w := range titleWords {
		if w = strings.TrimSpace(w); w != "" {
			f.words = append(f.words, w)
		}
	}
	return f
}

// LoadMediaFilter reads the first column of both filter sheets. A missing
// workbook yields an empty filter and a warning.
func LoadMediaFilter(path string, logger *slog.Logger) (*MediaFilter, error) {
	if path == "" {
		return NewMediaFilter(nil, nil), nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if logger != nil {
			logger.Warn("filter workbook not found, no sources will be filtered", "path", path)
		}
		return NewMediaFilter(nil, nil), nil
	}

	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open filter workbook: %w", err)
	}
	defer book.Close()

	sources, err := firstColumn(book, SourceSheet)
	if err != nil {
		return nil, err
	}
	words, err := firstColumn(book, TitleSheet)
	if err != nil {
		return nil, err
	}
	return NewMediaFilter(sources, words), nil
}

// firstColumn skips the header row. A missing sheet is an empty list.
func firstColumn(book *excelize.File, sheet string) ([]string, error) {
	if idx, err := book.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, nil
	}
	rows, err := book.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	var values []string
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		if v := strings.TrimSpace(row[0]); v != "" {
			values = append(values, v)
		}
	}
	return values, nil
}

// Reason reports why an article is filtered, or ReasonNone.
func (f *MediaFilter) Reason(article domain.Article) domain.DropReason {
	if f == nil {
		return domain.ReasonNone
	}
	if _, ok := f.sources[article.Source]; ok {
		return domain.ReasonFilteredSource
	}
	for _, w := range f.words {
		if strings.Contains(article.Title, w) {
			return domain.ReasonFilteredTitle
		}
	}
	return domain.ReasonNone
}

// Len is the number of configured sources and title words.
func (f *MediaFilter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.sources) + len(f.words)
}
