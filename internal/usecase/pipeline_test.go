package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ClippingsImporter/internal/dedup"
	"ClippingsImporter/internal/domain"
)

var published = time.Date(2024, time.March, 1, 9, 15, 0, 0, time.UTC)

type fakeSource struct {
	articles []domain.Article
	err      error
}

func (f *fakeSource) FetchArticles(context.Context) ([]domain.Article, error) {
	out := make([]domain.Article, len(f.articles))
	copy(out, f.articles)
	return out, f.err
}

type fakeFilter map[string]domain.DropReason

func (f fakeFilter) Reason(article domain.Article) domain.DropReason { return f[article.Source] }

type fakeLedger struct {
	mu       sync.Mutex
	recorded map[string]bool
	err      error
	saved    []domain.ProcessedArticle
}

func (f *fakeLedger) AlreadyProcessed(_ context.Context, keys []string) (map[string]bool, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]bool{}
	for _, k := range keys {
		if f.recorded[k] {
			out[k] = true
		}
	}
	return out, nil
}

func (f *fakeLedger) SaveProcessed(_ context.Context, article domain.ProcessedArticle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, article)
	return nil
}

type fakeURLResolver struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeURLResolver) Resolve(_ context.Context, rawURL, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rawURL)
	return rawURL + "?resolved", nil
}

type fakeResolver map[string]domain.ResolvedPerson

func (f fakeResolver) ResolveBatch(_ context.Context, names []string, _ time.Time, _ *slog.Logger) domain.ResolutionResult {
	var out domain.ResolutionResult
	for _, name := range names {
		if p, ok := f[name]; ok {
			out.Resolved = append(out.Resolved, p)
		} else {
			out.Unresolved = append(out.Unresolved, name)
		}
	}
	return out
}

type fakeSuppressor map[string]dedup.Outcome

func (f fakeSuppressor) Check(_ context.Context, title string, _ []domain.ResolvedPerson, _ time.Time) dedup.Outcome {
	return f[title]
}

type fakeClassifier struct{ failFor string }

func (f fakeClassifier) Classify(_ context.Context, article domain.Article) (domain.Classification, error) {
	if article.Title == f.failFor {
		return domain.Classification{Degree: "national"}, errors.New("model unavailable")
	}
	return domain.Classification{Degree: "international"}, nil
}

type fakeClippings struct{ got []domain.Article }

func (f *fakeClippings) WriteClippings(_ context.Context, articles []domain.Article) (string, error) {
	f.got = articles
	return "output/press_clippings.xml", nil
}

type fakeReport struct{ got []domain.ProcessedArticle }

func (f *fakeReport) WriteReport(_ context.Context, processed []domain.ProcessedArticle) (string, error) {
	f.got = processed
	return "logs/processed.xlsx", nil
}

type fakeNotifier struct{ messages []string }

func (f *fakeNotifier) PublishDigest(_ context.Context, digest string) error {
	f.messages = append(f.messages, digest)
	return nil
}

func article(title, url, source string, candidates ...string) domain.Article {
	return domain.Article{Title: title, URL: url, Source: source, PublishedAt: published, Candidates: candidates}
}

var jane = domain.ResolvedPerson{
	IdentityID:   "P123",
	DisplayName:  "Jane Doe",
	Affiliations: []domain.Affiliation{{OrganizationID: "GEO", OrganizationType: domain.OrgTypeGeneric}},
}

func TestPipelineRunDropsAndAccepts(t *testing.T) {
	t.Parallel()

	recorded := article("Already imported", "https://x/recorded", "NRC", "Jane Doe")
	noDate := article("Undated", "https://x/undated", "NRC", "Jane Doe")
	noDate.PublishedAt = time.Time{}

	source := &fakeSource{articles: []domain.Article{
		noDate,
		article("Advertorial", "https://x/ad", "Spam Weekly", "Jane Doe"),
		recorded,
		article("Nobody quoted", "https://x/none", "NRC"),
		article("Stranger quoted", "https://x/stranger", "NRC", "John Roe"),
		article("Published before", "https://x/before", "NRC", "Jane Doe"),
		article("Prof. X on climate", "https://x/climate", "NRC", "Jane Doe"),
		article("Prof. X on climate", "https://x/climate", "NRC", "Jane Doe"),
	}}
	ledger := &fakeLedger{recorded: map[string]bool{dedup.LedgerKey(recorded): true}}
	urls := &fakeURLResolver{}
	clippings := &fakeClippings{}
	report := &fakeReport{}
	notifier := &fakeNotifier{}

	p := NewPipeline(PipelineDeps{
		Source:      source,
		Filter:      fakeFilter{"Spam Weekly": domain.ReasonFilteredSource},
		Ledger:      ledger,
		URLResolver: urls,
		URLWorkers:  2,
		Resolver:    fakeResolver{"Jane Doe": jane},
		Suppressor:  fakeSuppressor{"Published before": dedup.Duplicate},
		Classifier:  fakeClassifier{},
		Clippings:   clippings,
		Report:      report,
		Notifier:    notifier,
		Workers:     3,
	})

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 8, summary.Scanned)
	assert.Equal(t, 1, summary.Accepted)

	reasons := make([]domain.DropReason, 0, len(summary.Processed))
	for _, processed := range summary.Processed {
		reasons = append(reasons, processed.Reason)
	}
	assert.Equal(t, []domain.DropReason{
		domain.ReasonNoDate,
		domain.ReasonFilteredSource,
		domain.ReasonDuplicateLedger,
		domain.ReasonNoCandidates,
		domain.ReasonUnresolved,
		domain.ReasonDuplicateStore,
		domain.ReasonNone,
		domain.ReasonDuplicateBatch,
	}, reasons)
	assert.Equal(t, domain.StatusAccepted, summary.Processed[6].Status)
	assert.Equal(t, domain.StatusDropped, summary.Processed[7].Status)
	assert.Equal(t, 1, summary.Dropped[domain.ReasonDuplicateBatch])

	require.Len(t, clippings.got, 1)
	accepted := clippings.got[0]
	assert.Equal(t, "https://x/climate?resolved", accepted.URL)
	assert.Equal(t, "international", accepted.Classification.Degree)
	require.Len(t, accepted.Resolution.Resolved, 1)
	assert.Equal(t, "P123", accepted.Resolution.Resolved[0].IdentityID)

	require.Len(t, ledger.saved, 1)
	assert.Equal(t, "Prof. X on climate", ledger.saved[0].Article.Title)
	assert.Len(t, report.got, 8)
	assert.Equal(t, "output/press_clippings.xml", summary.ClippingsPath)
	assert.Equal(t, "logs/processed.xlsx", summary.ReportPath)

	assert.Len(t, urls.calls, 5)
	assert.NotContains(t, urls.calls, "https://x/ad")
	assert.NotContains(t, urls.calls, "https://x/recorded")

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "Accepted: 1")
	assert.Contains(t, notifier.messages[0], "Dropped (duplicate_store): 1")
}

func TestPipelineStoreUnavailableFailsOpen(t *testing.T) {
	t.Parallel()

	clippings := &fakeClippings{}
	p := NewPipeline(PipelineDeps{
		Source:     &fakeSource{articles: []domain.Article{article("Prof. X on climate", "https://x/a", "NRC", "Jane Doe")}},
		Resolver:   fakeResolver{"Jane Doe": jane},
		Suppressor: fakeSuppressor{"Prof. X on climate": dedup.CheckUnavailable},
		Clippings:  clippings,
	})

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Accepted)
	assert.Len(t, clippings.got, 1)
}

func TestPipelineClassifierErrorKeepsDefaults(t *testing.T) {
	t.Parallel()

	clippings := &fakeClippings{}
	p := NewPipeline(PipelineDeps{
		Source:     &fakeSource{articles: []domain.Article{article("Prof. X on climate", "https://x/a", "NRC", "Jane Doe")}},
		Resolver:   fakeResolver{"Jane Doe": jane},
		Classifier: fakeClassifier{failFor: "Prof. X on climate"},
		Clippings:  clippings,
	})

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, clippings.got, 1)
	assert.Equal(t, "national", clippings.got[0].Classification.Degree)
}

func TestPipelineLedgerFailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	p := NewPipeline(PipelineDeps{
		Source:   &fakeSource{articles: []domain.Article{article("Prof. X on climate", "https://x/a", "NRC", "Jane Doe")}},
		Ledger:   &fakeLedger{err: errors.New("database is locked")},
		Resolver: fakeResolver{"Jane Doe": jane},
	})

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Accepted)
}

func TestPipelineNothingAcceptedSkipsClippings(t *testing.T) {
	t.Parallel()

	clippings := &fakeClippings{}
	report := &fakeReport{}
	p := NewPipeline(PipelineDeps{
		Source:    &fakeSource{articles: []domain.Article{article("Stranger quoted", "https://x/a", "NRC", "John Roe")}},
		Resolver:  fakeResolver{},
		Clippings: clippings,
		Report:    report,
	})

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Accepted)
	assert.Empty(t, summary.ClippingsPath)
	assert.Nil(t, clippings.got)
	assert.Len(t, report.got, 1)
}

func TestPipelineSourceError(t *testing.T) {
	t.Parallel()

	p := NewPipeline(PipelineDeps{
		Source:   &fakeSource{err: errors.New("unknown scanner")},
		Resolver: fakeResolver{},
	})

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch articles")
}

func TestPipelineRequiresResolver(t *testing.T) {
	t.Parallel()

	_, err := NewPipeline(PipelineDeps{Source: &fakeSource{}}).Run(context.Background())
	require.Error(t, err)
}

func TestPipelineCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(PipelineDeps{
		Source:   &fakeSource{articles: []domain.Article{article("Prof. X on climate", "https://x/a", "NRC", "Jane Doe")}},
		Resolver: fakeResolver{"Jane Doe": jane},
	})

	_, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuildSummaryMessageSortsReasons(t *testing.T) {
	t.Parallel()

	msg := buildSummaryMessage(Summary{
		RunID:    "run-1",
		Scanned:  3,
		Accepted: 1,
		Dropped:  map[domain.DropReason]int{domain.ReasonUnresolved: 1, domain.ReasonDuplicateStore: 1},
	})

	assert.Equal(t, "Clippings run run-1\nScanned: 3\nAccepted: 1\n"+
		"Dropped (duplicate_store): 1\nDropped (unresolved): 1\n", msg)
}
