// Package dedup decides whether an article is already represented
// downstream (store level) or earlier in the same run (batch level).
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"ClippingsImporter/internal/domain"
	"ClippingsImporter/internal/logging"
	"ClippingsImporter/internal/ports"
	"ClippingsImporter/internal/textnorm"
)

// Outcome is the result of a store-level duplicate check.
type Outcome int

const (
	NotDuplicate Outcome = iota
	Duplicate
	// CheckUnavailable means the store could not be asked. Policy treats it
	// as NotDuplicate so ingestion never blocks on the store.
	CheckUnavailable
)

func (o Outcome) String() string {
	switch o {
	case Duplicate:
		return "duplicate"
	case CheckUnavailable:
		return "check_unavailable"
	default:
		return "not_duplicate"
	}
}

// Suppressor checks candidate articles against prior press-media records.
type Suppressor struct {
	store  ports.RecordStore
	logger *slog.Logger
}

// NewSuppressor wires the record store. A nil store makes every check
// CheckUnavailable.
func NewSuppressor(store ports.RecordStore, logger *slog.Logger) *Suppressor {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Suppressor{store: store, logger: logger}
}

// Check reports Duplicate only when a prior record has the same canonical
// title, the same date, and shares at least one person identifier with
// persons.
func (s *Suppressor) Check(ctx context.Context, title string, persons []domain.ResolvedPerson, asOf time.Time) Outcome {
	if s.store == nil {
		return CheckUnavailable
	}

	records, err := s.store.SearchPressMedia(ctx, textnorm.QueryTitle(title))
	if err != nil {
		s.logger.Warn("duplicate check unavailable", "title", title, "error", err)
		return CheckUnavailable
	}

	wantTitle := textnorm.CanonicalTitle(title)
	wantDate := asOf.Format(domain.DateLayout)
	for _, rec := range records {
		if textnorm.CanonicalTitle(rec.Title) != wantTitle {
			continue
		}
		if dateOnly(rec.StartDate) != wantDate {
			continue
		}
		if sharesPerson(rec.PersonIDs, persons) {
			return Duplicate
		}
	}
	return NotDuplicate
}

// IsDuplicate applies the fail-open policy to Check.
func (s *Suppressor) IsDuplicate(ctx context.Context, title string, persons []domain.ResolvedPerson, asOf time.Time) bool {
	return s.Check(ctx, title, persons, asOf) == Duplicate
}

func sharesPerson(recordIDs []string, persons []domain.ResolvedPerson) bool {
	ids := make(map[string]struct{}, len(recordIDs))
	for _, id := range recordIDs {
		ids[id] = struct{}{}
	}
	for _, p := range persons {
		for _, id := range []string{p.IdentityID, p.DirectoryUUID} {
			if id == "" {
				continue
			}
			if _, ok := ids[id]; ok {
				return true
			}
		}
	}
	return false
}

func dateOnly(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > len(domain.DateLayout) {
		return s[:len(domain.DateLayout)]
	}
	return s
}

// ByTitleURL keeps the first article for every literal (title, URL) pair.
// duplicate[i] reports whether articles[i] was collapsed into an earlier one.
func ByTitleURL(articles []domain.Article) (kept []domain.Article, duplicate []bool) {
	type key struct{ title, url string }
	seen := make(map[key]struct{}, len(articles))
	duplicate = make([]bool, len(articles))
	for i, a := range articles {
		k := key{a.Title, a.URL}
		if _, ok := seen[k]; ok {
			duplicate[i] = true
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, a)
	}
	return kept, duplicate
}

// LedgerKey identifies an article across runs: canonical title, publication
// date and the harvested link (URL when no harvested link is known).
func LedgerKey(article domain.Article) string {
	link := article.SourceURL
	if link == "" {
		link = article.URL
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{
		textnorm.CanonicalTitle(article.Title),
		article.PublishedAt.Format(domain.DateLayout),
		strings.TrimSpace(link),
	}, "\x1f")))
	return hex.EncodeToString(sum[:])
}
