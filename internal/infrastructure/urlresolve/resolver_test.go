package urlresolve

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ClippingsImporter/internal/config"
	"ClippingsImporter/internal/domain"
)

const ddgPage = `<html><body>
<a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fadvance.lexisnexis.com%2Fdoc">blocked</a>
<a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fnews.example%2Fstory&amp;rut=abc">hit</a>
</body></html>`

func newServer(t *testing.T, ddg string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/article", http.StatusFound)
	})
	mux.HandleFunc("/article", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "ok")
	})
	mux.HandleFunc("/to-aggregator", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/lexisnexis.com/landing", http.StatusFound)
	})
	mux.HandleFunc("/lexisnexis.com/landing", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "login")
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})
	mux.HandleFunc("/vk/prof.-x-on-climate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/html/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, ddg)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newResolver(srv *httptest.Server, sourceMap map[string]string) *Resolver {
	return New(config.URLResolutionConfig{
		SearchURL:    srv.URL + "/html/",
		FallbackURL:  "https://www.google.com/search",
		BlockedHosts: []string{"lexisnexis.com"},
		SourceMap:    sourceMap,
	}, srv.Client(), nil)
}

func TestResolveFollowsRedirects(t *testing.T) {
	t.Parallel()

	srv := newServer(t, ddgPage)
	got, err := newResolver(srv, nil).Resolve(context.Background(), srv.URL+"/redirect", "t")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/article", got)
}

func TestResolveRejectsAggregatorAndSearches(t *testing.T) {
	t.Parallel()

	srv := newServer(t, ddgPage)
	got, err := newResolver(srv, nil).Resolve(context.Background(), srv.URL+"/to-aggregator", "Prof. X on climate")
	require.NoError(t, err)
	assert.Equal(t, "https://news.example/story", got)
}

func TestResolveGuessesFromSource(t *testing.T) {
	t.Parallel()

	srv := newServer(t, ddgPage)
	r := newResolver(srv, map[string]string{"volkskrant.nl": srv.URL + "/vk"})
	got, err := r.Resolve(context.Background(), srv.URL+"/gone?e=volkskrant.nl", "Prof. X on climate")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/vk/prof.-x-on-climate", got)
}

func TestResolveFallsBackToSearchURL(t *testing.T) {
	t.Parallel()

	srv := newServer(t, `<html><body>no results</body></html>`)
	got, err := newResolver(srv, nil).Resolve(context.Background(), srv.URL+"/gone", "Prof. X on climate")
	require.NoError(t, err)
	assert.Equal(t, "https://www.google.com/search?q=Prof.+X+on+climate", got)
}

func TestResolveCancelled(t *testing.T) {
	t.Parallel()

	srv := newServer(t, ddgPage)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newResolver(srv, nil).Resolve(ctx, srv.URL+"/redirect", "t")
	require.ErrorIs(t, err, context.Canceled)
}

type slowResolver struct {
	mu      sync.Mutex
	seen    []string
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (s *slowResolver) Resolve(_ context.Context, rawURL, _ string) (string, error) {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		m := s.maxSeen.Load()
		if n <= m || s.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	s.mu.Lock()
	s.seen = append(s.seen, rawURL)
	s.mu.Unlock()
	if rawURL == "bad" {
		return "", fmt.Errorf("boom")
	}
	return rawURL + "/resolved", nil
}

func TestResolveAllBoundsWorkers(t *testing.T) {
	t.Parallel()

	articles := []domain.Article{
		{Title: "a", URL: "u1"}, {Title: "b", URL: "  "}, {Title: "c", URL: "u3"},
		{Title: "d", URL: "bad"}, {Title: "e", URL: "u5"}, {Title: "f", URL: "u6"},
	}
	res := &slowResolver{}

	require.NoError(t, ResolveAll(context.Background(), res, articles, 2, nil))

	assert.LessOrEqual(t, res.maxSeen.Load(), int32(2))
	assert.Len(t, res.seen, 5)
	assert.Equal(t, "u1/resolved", articles[0].URL)
	assert.Equal(t, "  ", articles[1].URL)
	assert.Equal(t, "bad", articles[3].URL)
	assert.Equal(t, "u6/resolved", articles[5].URL)
}
