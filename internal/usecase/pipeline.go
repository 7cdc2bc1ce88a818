package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ClippingsImporter/internal/dedup"
	"ClippingsImporter/internal/domain"
	"ClippingsImporter/internal/infrastructure/urlresolve"
	"ClippingsImporter/internal/logging"
	"ClippingsImporter/internal/ports"
)

// BatchResolver resolves the candidate names of one article.
type BatchResolver interface {
	ResolveBatch(ctx context.Context, names []string, asOf time.Time, log *slog.Logger) domain.ResolutionResult
}

// DuplicateChecker asks the downstream store whether an article exists.
type DuplicateChecker interface {
	Check(ctx context.Context, title string, persons []domain.ResolvedPerson, asOf time.Time) dedup.Outcome
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
// Only Source and Resolver are required; every other collaborator is
// skipped when nil.
type PipelineDeps struct {
	Source      ports.ArticleSource
	Filter      ports.ArticleFilter
	Ledger      ports.ArticleLedger
	URLResolver ports.URLResolver
	URLWorkers  int
	Resolver    BatchResolver
	Suppressor  DuplicateChecker
	Classifier  ports.Classifier
	Clippings   ports.ClippingWriter
	Report      ports.ReportWriter
	Notifier    ports.Notifier
	Workers     int
	Logger      *slog.Logger
	Now         func() time.Time
}

// Summary describes one pipeline run.
type Summary struct {
	RunID         string
	Scanned       int
	Accepted      int
	Dropped       map[domain.DropReason]int
	ClippingsPath string
	ReportPath    string
	Processed     []domain.ProcessedArticle
}

// Pipeline implements the clipping import workflow.
type Pipeline struct {
	source      ports.ArticleSource
	filter      ports.ArticleFilter
	ledger      ports.ArticleLedger
	urlResolver ports.URLResolver
	urlWorkers  int
	resolver    BatchResolver
	suppressor  DuplicateChecker
	classifier  ports.Classifier
	clippings   ports.ClippingWriter
	report      ports.ReportWriter
	notifier    ports.Notifier
	workers     int
	logger      *slog.Logger
	now         func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	workers := deps.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Pipeline{
		source:      deps.Source,
		filter:      deps.Filter,
		ledger:      deps.Ledger,
		urlResolver: deps.URLResolver,
		urlWorkers:  deps.URLWorkers,
		resolver:    deps.Resolver,
		suppressor:  deps.Suppressor,
		classifier:  deps.Classifier,
		clippings:   deps.Clippings,
		report:      deps.Report,
		notifier:    deps.Notifier,
		workers:     workers,
		logger:      logger,
		now:         now,
	}
}

// Run scans every input once and writes the accepted clippings. Failures of
// a single article are logged and recorded as drops; only a failing source,
// a cancelled context or an output writer error abort the run.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: uuid.NewString(), Dropped: map[domain.DropReason]int{}}
	if p.source == nil || p.resolver == nil {
		return summary, fmt.Errorf("pipeline: source and resolver are required")
	}
	log := p.logger.With("run_id", summary.RunID)
	started := p.now()

	articles, err := p.source.FetchArticles(ctx)
	if err != nil {
		return summary, fmt.Errorf("fetch articles: %w", err)
	}
	summary.Scanned = len(articles)
	log.Info("articles scanned", "count", len(articles))

	reasons := make([]domain.DropReason, len(articles))
	p.prefilter(articles, reasons, log)
	p.skipRecorded(ctx, articles, reasons, log)

	if err := p.resolveURLs(ctx, articles, reasons, log); err != nil {
		return summary, err
	}

	if err := p.processArticles(ctx, articles, reasons, log); err != nil {
		return summary, err
	}
	markBatchDuplicates(articles, reasons, log)

	var accepted []domain.Article
	for i, article := range articles {
		processed := domain.ProcessedArticle{Article: article, Status: domain.StatusAccepted, Reason: reasons[i], CreatedAt: started}
		if reasons[i] != domain.ReasonNone {
			processed.Status = domain.StatusDropped
			summary.Dropped[reasons[i]]++
		} else {
			accepted = append(accepted, article)
			p.record(ctx, processed, log)
		}
		summary.Processed = append(summary.Processed, processed)
	}
	summary.Accepted = len(accepted)

	if p.clippings != nil && len(accepted) > 0 {
		path, err := p.clippings.WriteClippings(ctx, accepted)
		if err != nil {
			return summary, fmt.Errorf("write clippings: %w", err)
		}
		summary.ClippingsPath = path
		log.Info("clippings written", "path", path, "count", len(accepted))
	}

	if p.report != nil && len(summary.Processed) > 0 {
		path, err := p.report.WriteReport(ctx, summary.Processed)
		if err != nil {
			return summary, fmt.Errorf("write report: %w", err)
		}
		summary.ReportPath = path
	}

	if p.notifier != nil {
		if err := p.notifier.PublishDigest(ctx, buildSummaryMessage(summary)); err != nil {
			log.Warn("notification failed", "error", err)
		}
	}

	log.Info("run complete", "scanned", summary.Scanned, "accepted", summary.Accepted, "elapsed", p.now().Sub(started))
	return summary, nil
}

func (p *Pipeline) prefilter(articles []domain.Article, reasons []domain.DropReason, log *slog.Logger) {
	for i, article := range articles {
		if article.PublishedAt.IsZero() {
			reasons[i] = domain.ReasonNoDate
		} else if p.filter != nil {
			reasons[i] = p.filter.Reason(article)
		}
		if reasons[i] != domain.ReasonNone {
			log.Info("article dropped", "article", article.Title, "reason", reasons[i])
		}
	}
}

// skipRecorded drops articles the ledger already holds. An unreadable
// ledger only costs a re-import, so it is logged and ignored.
func (p *Pipeline) skipRecorded(ctx context.Context, articles []domain.Article, reasons []domain.DropReason, log *slog.Logger) {
	if p.ledger == nil {
		return
	}
	var keys []string
	for i, article := range articles {
		if reasons[i] == domain.ReasonNone {
			keys = append(keys, dedup.LedgerKey(article))
		}
	}
	if len(keys) == 0 {
		return
	}

	seen, err := p.ledger.AlreadyProcessed(ctx, keys)
	if err != nil {
		log.Warn("ledger lookup failed", "error", err)
		return
	}
	for i, article := range articles {
		if reasons[i] == domain.ReasonNone && seen[dedup.LedgerKey(article)] {
			reasons[i] = domain.ReasonDuplicateLedger
			log.Info("article dropped", "article", article.Title, "reason", reasons[i])
		}
	}
}

func (p *Pipeline) resolveURLs(ctx context.Context, articles []domain.Article, reasons []domain.DropReason, log *slog.Logger) error {
	if p.urlResolver == nil {
		return nil
	}
	var (
		pending []domain.Article
		index   []int
	)
	for i := range articles {
		if reasons[i] == domain.ReasonNone {
			pending = append(pending, articles[i])
			index = append(index, i)
		}
	}
	if err := urlresolve.ResolveAll(ctx, p.urlResolver, pending, p.urlWorkers, log.With("component", "urlresolve")); err != nil {
		return fmt.Errorf("resolve urls: %w", err)
	}
	for j, i := range index {
		articles[i].URL = pending[j].URL
	}
	return nil
}

// processArticles resolves, checks and classifies the remaining articles,
// one worker per article. Each worker writes only its own slot.
func (p *Pipeline) processArticles(ctx context.Context, articles []domain.Article, reasons []domain.DropReason, log *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := range articles {
		if reasons[i] != domain.ReasonNone {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reasons[i] = p.processArticle(gctx, &articles[i], log.With("article", articles[i].Title))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("process articles: %w", err)
	}
	return ctx.Err()
}

func (p *Pipeline) processArticle(ctx context.Context, article *domain.Article, log *slog.Logger) domain.DropReason {
	if len(article.Candidates) == 0 {
		log.Info("article dropped", "reason", domain.ReasonNoCandidates)
		return domain.ReasonNoCandidates
	}

	article.Resolution = p.resolver.ResolveBatch(ctx, article.Candidates, article.PublishedAt, log)
	if len(article.Resolution.Resolved) == 0 {
		log.Info("article dropped", "reason", domain.ReasonUnresolved, "unresolved", len(article.Resolution.Unresolved))
		return domain.ReasonUnresolved
	}

	if p.suppressor != nil {
		switch p.suppressor.Check(ctx, article.Title, article.Resolution.Resolved, article.PublishedAt) {
		case dedup.Duplicate:
			log.Info("article dropped", "reason", domain.ReasonDuplicateStore)
			return domain.ReasonDuplicateStore
		case dedup.CheckUnavailable:
			log.Warn("duplicate check unavailable, accepting article")
		}
	}

	if p.classifier != nil {
		classification, err := p.classifier.Classify(ctx, *article)
		if err != nil {
			log.Warn("classification failed, using defaults", "error", err)
		}
		article.Classification = classification
	}
	return domain.ReasonNone
}

// markBatchDuplicates collapses repeated (title, URL) pairs among the
// articles that survived every other check.
func markBatchDuplicates(articles []domain.Article, reasons []domain.DropReason, log *slog.Logger) {
	var (
		live  []domain.Article
		index []int
	)
	for i := range articles {
		if reasons[i] == domain.ReasonNone {
			live = append(live, articles[i])
			index = append(index, i)
		}
	}
	_, duplicate := dedup.ByTitleURL(live)
	for j, dup := range duplicate {
		if dup {
			i := index[j]
			reasons[i] = domain.ReasonDuplicateBatch
			log.Info("article dropped", "article", articles[i].Title, "reason", reasons[i])
		}
	}
}

func (p *Pipeline) record(ctx context.Context, processed domain.ProcessedArticle, log *slog.Logger) {
	if p.ledger == nil {
		return
	}
	if err := p.ledger.SaveProcessed(ctx, processed); err != nil {
		log.Warn("ledger write failed", "article", processed.Article.Title, "error", err)
	}
}

func buildSummaryMessage(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Clippings run %s\nScanned: %d\nAccepted: %d\n", s.RunID, s.Scanned, s.Accepted)

	reasons := make([]string, 0, len(s.Dropped))
	for reason := range s.Dropped {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(&b, "Dropped (%s): %d\n", reason, s.Dropped[domain.DropReason(reason)])
	}
	if s.ClippingsPath != "" {
		fmt.Fprintf(&b, "Output: %s\n", s.ClippingsPath)
	}
	return b.String()
}
