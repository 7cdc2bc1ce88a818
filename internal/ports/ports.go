package ports

import (
	"context"
	"time"

	"ClippingsImporter/internal/domain"
)

// ArticleSource pulls articles out of the configured digests.
type ArticleSource interface {
	FetchArticles(ctx context.Context) ([]domain.Article, error)
}

// Directory searches the personnel directory and looks up organisations.
type Directory interface {
	SearchPersons(ctx context.Context, name string) ([]domain.DirectoryPerson, error)
	Organization(ctx context.Context, uuid string) (domain.Organization, error)
}

// RecordStore searches press-media records already published downstream.
type RecordStore interface {
	SearchPressMedia(ctx context.Context, query string) ([]domain.PriorRecord, error)
}

// ArticleLedger persists emitted articles for cross-run deduplication.
type ArticleLedger interface {
	AlreadyProcessed(ctx context.Context, keys []string) (map[string]bool, error)
	SaveProcessed(ctx context.Context, article domain.ProcessedArticle) error
}

// URLResolver maps an aggregator link to the article's canonical URL.
type URLResolver interface {
	Resolve(ctx context.Context, rawURL, title string) (string, error)
}

// Classifier assigns recognition degree, role and topical fit to an article.
type Classifier interface {
	Classify(ctx context.Context, article domain.Article) (domain.Classification, error)
}

// ClippingWriter serialises accepted articles for the research-information store.
type ClippingWriter interface {
	WriteClippings(ctx context.Context, articles []domain.Article) (string, error)
}

// ReportWriter writes the per-run audit report.
type ReportWriter interface {
	WriteReport(ctx context.Context, processed []domain.ProcessedArticle) (string, error)
}

// Notifier streams run summaries to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// ArticleFilter excludes articles before any directory call.
type ArticleFilter interface {
	Reason(article domain.Article) domain.DropReason
}
