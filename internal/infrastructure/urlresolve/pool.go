package urlresolve

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"ClippingsImporter/internal/domain"
	"ClippingsImporter/internal/logging"
	"ClippingsImporter/internal/ports"
)

// ResolveAll rewrites the URL of every article that has one, running at most
// workers resolutions at a time. A failed resolution leaves the original
// URL in place. The returned error is the context's, if it was cancelled.
func ResolveAll(ctx context.Context, resolver ports.URLResolver, articles []domain.Article, workers int, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.Discard()
	}
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range articles {
		if strings.TrimSpace(articles[i].URL) == "" {
			continue
		}
		g.Go(func() error {
			article := &articles[i]
			resolved, err := resolver.Resolve(gctx, article.URL, article.Title)
			if err != nil {
				logger.Warn("url resolution failed", "article", article.Title, "error", err)
				return nil
			}
			article.URL = resolved
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("url resolution complete", "articles", len(articles))
	return ctx.Err()
}
