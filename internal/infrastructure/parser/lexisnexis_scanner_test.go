package parser

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ClippingsImporter/internal/config"
	"ClippingsImporter/internal/extract"
	"ClippingsImporter/internal/scanner"
)

func newTestScanner(t *testing.T) *LexisNexisScanner {
	t.Helper()

	cfg := config.Default()
	ex, err := extract.New(cfg.Extraction)
	require.NoError(t, err)
	return NewLexisNexisScanner(ex, cfg.Extraction.ValidFaculties, time.UTC, nil)
}

func TestScanDigestHTML(t *testing.T) {
	t.Parallel()

	s := newTestScanner(t)
	articles, err := s.Scan(context.Background(), scanner.Request{
		Path:      filepath.Join("testdata", "digest.html"),
		InputName: "knipsel",
	})
	require.NoError(t, err)
	require.Len(t, articles, 3)

	first := articles[0]
	assert.Equal(t, "Prof. X on climate", first.Title)
	assert.Equal(t, "https://advance.lexisnexis.com/api/document?id=1&e=volkskrant.nl", first.URL)
	assert.Equal(t, time.Date(2024, time.March, 1, 9, 15, 0, 0, time.UTC), first.PublishedAt)
	assert.Equal(t, "de Volkskrant", first.Source)
	assert.Equal(t, "Faculteit Geowetenschappen", first.Faculty)
	assert.Equal(t, "knipsel", first.Input)
	assert.Equal(t, []string{"Jane Doe"}, first.Candidates)

	second := articles[1]
	assert.Equal(t, time.Date(2024, time.October, 15, 17, 40, 0, 0, time.UTC), second.PublishedAt)
	assert.Equal(t, "Unknown", second.Source)
	assert.Equal(t, "not found", second.Faculty)
	assert.Equal(t, []string{"Anna de Vries", "Piet Jansen"}, second.Candidates)

	third := articles[2]
	assert.Equal(t, "Undated headline", third.Title)
	assert.True(t, third.PublishedAt.IsZero())
	assert.Empty(t, third.Candidates)
}

func TestScanUsesInputFaculty(t *testing.T) {
	t.Parallel()

	s := newTestScanner(t)
	articles, err := s.Scan(context.Background(), scanner.Request{
		Path:    filepath.Join("testdata", "digest.html"),
		Faculty: "Faculteit REBO",
	})
	require.NoError(t, err)
	for _, a := range articles {
		assert.Equal(t, "Faculteit REBO", a.Faculty)
	}
}

func TestScanEmailDigest(t *testing.T) {
	t.Parallel()

	s := newTestScanner(t)
	articles, err := s.Scan(context.Background(), scanner.Request{Path: filepath.Join("testdata", "digest.eml")})
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Mail headline", articles[0].Title)
	assert.Equal(t, "https://example.org/a", articles[0].URL)
	assert.Equal(t, "NRC", articles[0].Source)
	assert.Equal(t, time.Date(2024, time.February, 2, 8, 0, 0, 0, time.UTC), articles[0].PublishedAt)
}

func TestScanEmailWithoutHTML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plain.eml")
	msg := "From: a@example.org\nContent-Type: text/plain\n\nhello\n"
	require.NoError(t, os.WriteFile(path, []byte(msg), 0o600))

	_, err := newTestScanner(t).Scan(context.Background(), scanner.Request{Path: path})
	require.ErrorIs(t, err, ErrNoHTMLPart)
}

func TestScanTruncatesLongURL(t *testing.T) {
	t.Parallel()

	long := "https://example.org/" + strings.Repeat("x", 2000)
	html := `<table><tr class="article_container"><td><a class="email-article-headline" href="` + long + `">T</a></td></tr></table>`
	path := filepath.Join(t.TempDir(), "long.html")
	require.NoError(t, os.WriteFile(path, []byte(html), 0o600))

	articles, err := newTestScanner(t).Scan(context.Background(), scanner.Request{Path: path})
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Len(t, articles[0].URL, 1024)
}

func TestParseHarvestDate(t *testing.T) {
	t.Parallel()

	ams, err := time.LoadLocation("Europe/Amsterdam")
	require.NoError(t, err)

	cases := []struct {
		raw  string
		want time.Time
	}{
		{"1 mrt 2024 09:15", time.Date(2024, time.March, 1, 9, 15, 0, 0, ams)},
		{" 7 mei\n 2023 | 10:00", time.Date(2023, time.May, 7, 10, 0, 0, 0, ams)},
		{"3 okt. 2022 23:59", time.Date(2022, time.October, 3, 23, 59, 0, 0, ams)},
		{"12 Dec 2021 00:01", time.Date(2021, time.December, 12, 0, 1, 0, 0, ams)},
		{"12 jan 2021 00:01", time.Date(2021, time.January, 12, 0, 1, 0, 0, ams)},
	}
	for _, tc := range cases {
		got, err := ParseHarvestDate(tc.raw, ams)
		require.NoError(t, err, tc.raw)
		assert.True(t, tc.want.Equal(got), "%q: got %v", tc.raw, got)
	}

	_, err = ParseHarvestDate("gisteren", ams)
	require.Error(t, err)
}
