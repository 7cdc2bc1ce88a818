package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ClippingsImporter/internal/domain"
	"ClippingsImporter/internal/logging"
	"ClippingsImporter/internal/scanner"
	"ClippingsImporter/internal/textnorm"
)

const (
	// ScannerName is the registry key of the LexisNexis digest scanner.
	ScannerName = "lexisnexis"

	harvestLayout  = "2 Jan 2006 15:04"
	maxURLLength   = 1024
	unknownSource  = "Unknown"
	facultyUnknown = "not found"
)

// Dutch month abbreviations that differ from the English ones time.Parse knows.
var dutchMonths = map[string]string{
	"mrt": "Mar",
	"mei": "May",
	"okt": "Oct",
}

var monthToken = regexp.MustCompile(`(?i)\b(mrt|mei|okt)\.?`)

// CandidateExtractor recovers person names from one article block.
type CandidateExtractor interface {
	Extract(block *goquery.Selection) []string
}

// LexisNexisScanner reads Nexis newsletter digests saved as HTML or e-mail.
type LexisNexisScanner struct {
	extractor CandidateExtractor
	faculties []string
	location  *time.Location
	logger    *slog.Logger
}

// NewLexisNexisScanner wires the name extractor and the faculty names used
// when an input carries no faculty of its own.
func NewLexisNexisScanner(extractor CandidateExtractor, faculties []string, loc *time.Location, logger *slog.Logger) *LexisNexisScanner {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &LexisNexisScanner{extractor: extractor, faculties: faculties, location: loc, logger: logger}
}

// Name identifies the strategy inside the registry.
func (s *LexisNexisScanner) Name() string {
	return ScannerName
}

// Scan returns every headline block of the digest. Blocks whose harvest date
// cannot be parsed come back with a zero PublishedAt.
func (s *LexisNexisScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := s.loadDocument(req.Path)
	if err != nil {
		return nil, err
	}

	var articles []domain.Article
	doc.Find("tr.article_container").Each(func(_ int, block *goquery.Selection) {
		article, ok := s.parseBlock(block)
		if !ok {
			return
		}
		article.Input = req.InputName
		article.Faculty = req.Faculty
		if article.Faculty == "" {
			article.Faculty = s.detectFaculty(block)
		}
		articles = append(articles, article)
	})

	s.logger.Debug("digest scanned", "path", req.Path, "articles", len(articles))
	return articles, nil
}

func (s *LexisNexisScanner) loadDocument(path string) (*goquery.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open digest: %w", err)
	}
	defer f.Close()

	doc, err := documentFrom(f, isMessageFile(path))
	if err != nil {
		return nil, fmt.Errorf("digest %s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

func documentFrom(r io.Reader, isMessage bool) (*goquery.Document, error) {
	if isMessage {
		html, err := htmlFromMessage(r)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(html)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func isMessageFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".eml")
}

func (s *LexisNexisScanner) parseBlock(block *goquery.Selection) (domain.Article, bool) {
	headline := block.Find("a.email-article-headline").First()
	if headline.Length() == 0 {
		return domain.Article{}, false
	}

	title := textnorm.CleanText(headline.Text())
	title = strings.TrimSpace(strings.TrimLeft(title, "-"))

	href, _ := headline.Attr("href")
	if len(href) > maxURLLength {
		href = href[:maxURLLength]
	}

	source := unknownSource
	if src := block.Find("a.email-article-source-name").First(); src.Length() > 0 {
		source = textnorm.CleanText(src.Text())
	}

	var publishedAt time.Time
	if date := block.Find("span.article-email-harvest-date").First(); date.Length() > 0 {
		parsed, err := ParseHarvestDate(date.Text(), s.location)
		if err != nil {
			s.logger.Warn("unparseable harvest date", "article", title, "date", date.Text(), "error", err)
		} else {
			publishedAt = parsed
		}
	}

	var candidates []string
	if s.extractor != nil {
		candidates = s.extractor.Extract(block)
	}

	return domain.Article{
		Title:       title,
		URL:         href,
		SourceURL:   href,
		PublishedAt: publishedAt,
		Source:      source,
		Candidates:  candidates,
	}, true
}

func (s *LexisNexisScanner) detectFaculty(block *goquery.Selection) string {
	text := block.Text()
	var found []string
	for _, faculty := range s.faculties {
		if faculty != "" && strings.Contains(text, faculty) {
			found = append(found, faculty)
		}
	}
	if len(found) == 0 {
		return facultyUnknown
	}
	return strings.Join(found, "; ")
}

// ParseHarvestDate reads "1 mrt 2024 09:15" style stamps with Dutch or
// English month abbreviations.
func ParseHarvestDate(raw string, loc *time.Location) (time.Time, error) {
	cleaned := textnorm.CleanText(raw)
	cleaned = monthToken.ReplaceAllStringFunc(cleaned, func(m string) string {
		return dutchMonths[strings.ToLower(strings.TrimSuffix(m, "."))]
	})
	t, err := time.ParseInLocation(harvestLayout, cleaned, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse harvest date %q: %w", raw, err)
	}
	return t, nil
}
