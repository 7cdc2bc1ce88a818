// Package urlresolve replaces news-aggregator links with the publisher's
// own article URL.
package urlresolve

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ClippingsImporter/internal/config"
	"ClippingsImporter/internal/logging"
	"ClippingsImporter/internal/ports"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:124.0) Gecko/20100101 Firefox/124.0"

// Resolver tries, in order: following the link's redirects, guessing the
// publisher URL from a known outlet, a DuckDuckGo result, and finally a
// Google search URL for the title.
type Resolver struct {
	client      *http.Client
	searchURL   string
	fallbackURL string
	blocked     []string
	sourceKeys  []string
	sourceMap   map[string]string
	logger      *slog.Logger
}

var _ ports.URLResolver = (*Resolver)(nil)

// New builds a resolver. A nil client gets one with the configured timeout.
func New(cfg config.URLResolutionConfig, client *http.Client, logger *slog.Logger) *Resolver {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = logging.Discard()
	}

	keys := make([]string, 0, len(cfg.SourceMap))
	for k := range cfg.SourceMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	blocked := make([]string, 0, len(cfg.BlockedHosts))
	for _, h := range cfg.BlockedHosts {
		blocked = append(blocked, strings.ToLower(h))
	}

	return &Resolver{
		client:      client,
		searchURL:   cfg.SearchURL,
		fallbackURL: cfg.FallbackURL,
		blocked:     blocked,
		sourceKeys:  keys,
		sourceMap:   cfg.SourceMap,
		logger:      logger,
	}
}

// Resolve never fails for network reasons: every failed stage falls through
// to the next. Only a cancelled context is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, rawURL, title string) (string, error) {
	if final, ok := r.followRedirects(ctx, rawURL); ok {
		r.logger.Debug("direct resolution succeeded", "article", title, "url", final)
		return final, nil
	}
	if guessed, ok := r.guessFromSource(ctx, rawURL, title); ok {
		r.logger.Debug("guessed publisher url", "article", title, "url", guessed)
		return guessed, nil
	}
	if found, ok := r.searchDuckDuckGo(ctx, title); ok {
		r.logger.Debug("search engine found url", "article", title, "url", found)
		return found, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fallback := r.FallbackURL(title)
	r.logger.Info("fallback search url", "article", title, "url", fallback)
	return fallback, nil
}

// FallbackURL is the search-page link used when nothing better is found.
func (r *Resolver) FallbackURL(title string) string {
	return r.fallbackURL + "?q=" + url.QueryEscape(title)
}

func (r *Resolver) followRedirects(ctx context.Context, rawURL string) (string, bool) {
	resp, err := r.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		r.logger.Debug("direct resolution failed", "url", rawURL, "error", err)
		return "", false
	}
	defer drain(resp)

	final := resp.Request.URL.String()
	if !isSuccess(resp) || r.isBlocked(final) || strings.Contains(final, "#content") {
		return "", false
	}
	return final, true
}

// guessFromSource builds <outlet base>/<title-slug> for outlets named in the
// link's "e" parameter and keeps it when a HEAD request succeeds.
func (r *Resolver) guessFromSource(ctx context.Context, rawURL, title string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	source := strings.ToLower(parsed.Query().Get("e"))
	if source == "" {
		return "", false
	}

	slug := url.QueryEscape(strings.ReplaceAll(strings.ToLower(title), " ", "-"))
	for _, key := range r.sourceKeys {
		if !strings.Contains(source, key) {
			continue
		}
		guessed := strings.TrimSuffix(r.sourceMap[key], "/") + "/" + slug
		resp, err := r.do(ctx, http.MethodHead, guessed)
		if err != nil {
			continue
		}
		drain(resp)
		if isSuccess(resp) {
			return guessed, true
		}
	}
	return "", false
}

func (r *Resolver) searchDuckDuckGo(ctx context.Context, title string) (string, bool) {
	if r.searchURL == "" {
		return "", false
	}
	resp, err := r.do(ctx, http.MethodGet, r.searchURL+"?q="+url.QueryEscape(title))
	if err != nil {
		r.logger.Debug("search failed", "article", title, "error", err)
		return "", false
	}
	defer drain(resp)
	if !isSuccess(resp) {
		return "", false
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", false
	}

	var found string
	doc.Find("a.result__a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		parsed, err := url.Parse(href)
		if err != nil {
			return true
		}
		target := parsed.Query().Get("uddg")
		if target == "" || r.isBlocked(target) {
			return true
		}
		found = target
		return false
	})
	return found, found != ""
}

func (r *Resolver) do(ctx context.Context, method, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	return r.client.Do(req)
}

func (r *Resolver) isBlocked(target string) bool {
	lower := strings.ToLower(target)
	for _, host := range r.blocked {
		if host != "" && strings.Contains(lower, host) {
			return true
		}
	}
	return false
}

func isSuccess(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
}
