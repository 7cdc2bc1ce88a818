package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ClippingsImporter/internal/config"
)

func testConfig() config.ExtractionConfig {
	return config.ExtractionConfig{
		PersonsLabel:    "Personen",
		UnitLabel:       "Faculteit",
		HighlightColor:  "#88C53E",
		Blacklist:       []string{"Anton Pijpers"},
		UnwantedTerms:   []string{`\bUniversiteit Utrecht\b`, `\bUtrecht\b`},
		MaxHighlightRun: 6,
	}
}

func block(t *testing.T, inner string) *goquery.Selection {
	t.Helper()

	html := `<table><tr class="article_container"><td>` + inner + `</td></tr></table>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	sel := doc.Find("tr.article_container").First()
	require.Equal(t, 1, sel.Length())
	return sel
}

func newExtractor(t *testing.T, cfg config.ExtractionConfig) *Extractor {
	t.Helper()

	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

func TestExtractLabeledSection(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.PersonsLabel = "Persons"
	e := newExtractor(t, cfg)

	got := e.Extract(block(t, `<p><strong>Persons</strong>: A, B,  C ...</p>`))
	assert.Equal(t, []string{"A", "B", "C"}, got)
}

func TestExtractLabeledSectionAfterLeadingText(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.PersonsLabel = "Persons"
	e := newExtractor(t, cfg)

	got := e.Extract(block(t, `<p>Zie ook <strong>Persons</strong>: Jan de Vries, Piet Jansen</p>`))
	assert.Equal(t, []string{"Jan de Vries", "Piet Jansen"}, got)
}

func TestExtractHighlightedPair(t *testing.T) {
	t.Parallel()

	e := newExtractor(t, testConfig())
	got := e.Extract(block(t, `<p>Prof. X on climate, says
		<span style="background:#88C53E;">Jane</span>
		<span style="BACKGROUND:#88c53e;">Doe</span></p>`))

	assert.Equal(t, []string{"Jane Doe"}, got)
}

func TestExtractHighlightedSingleSpan(t *testing.T) {
	t.Parallel()

	e := newExtractor(t, testConfig())
	got := e.Extract(block(t, `<span style="background:#88C53E;">Jane Doe</span>`))

	assert.Equal(t, []string{"Jane Doe"}, got)
}

func TestExtractHighlightedParticles(t *testing.T) {
	t.Parallel()

	e := newExtractor(t, testConfig())
	got := e.Extract(block(t, `
		<span style="background:#88C53E;">Jan</span>
		<span style="background:#88C53E;">van der</span>
		<span style="background:#88C53E;">Berg</span>
		<span style="background:#FFFFFF;">Ignored</span>`))

	assert.Equal(t, []string{"Jan van der", "Jan van der Berg", "van der Berg"}, got)
}

func TestExtractSuppressesSurnameOfFullName(t *testing.T) {
	t.Parallel()

	e := newExtractor(t, testConfig())
	got := e.Extract(block(t, `<p><strong>Personen</strong>: Siegel, Dina Siegel, Jones</p>`))

	assert.Equal(t, []string{"Dina Siegel", "Jones"}, got)
}

func TestExtractUnitPattern(t *testing.T) {
	t.Parallel()

	e := newExtractor(t, testConfig())
	got := e.Extract(block(t, `<div>Faculteit Geowetenschappen / Jane Doe ...</div><div>Faculteit REBO / John Smith</div>`))

	assert.Equal(t, []string{"Jane Doe", "John Smith"}, got)
}

func TestExtractBlacklistIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	e := newExtractor(t, testConfig())
	got := e.Extract(block(t, `<p><strong>Personen</strong>: anton PIJPERS, Jane Doe</p>`))

	assert.Equal(t, []string{"Jane Doe"}, got)
}

func TestExtractCleanupRevealsSuppression(t *testing.T) {
	t.Parallel()

	e := newExtractor(t, testConfig())
	got := e.Extract(block(t, `<p><strong>Personen</strong>: Doe Utrecht, Jane Doe Universiteit Utrecht, Utrecht</p>`))

	assert.Equal(t, []string{"Jane Doe"}, got)
}

func TestExtractEmptyBlock(t *testing.T) {
	t.Parallel()

	e := newExtractor(t, testConfig())
	got := e.Extract(block(t, `<p>Nothing to see here.</p>`))

	assert.Empty(t, got)
}

func TestNewRejectsInvalidUnwantedTerm(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.UnwantedTerms = []string{"("}
	_, err := New(cfg)
	require.Error(t, err)
}

func TestFinalizeNeverKeepsContainedSingleToken(t *testing.T) {
	t.Parallel()

	e := newExtractor(t, testConfig())
	inputs := [][]string{
		{"Doe", "Jane Doe", "doe"},
		{"Berg", "van der Berg", "BERG", "Smith"},
		{"Jane", "Jane Doe Utrecht", "Utrecht Jane"},
		{"A", "B", "A B C"},
	}

	for _, raw := range inputs {
		got := e.Finalize(raw)
		tokens := map[string]bool{}
		for _, name := range got {
			if parts := strings.Fields(name); len(parts) > 1 {
				for _, p := range parts {
					tokens[strings.ToLower(p)] = true
				}
			}
		}
		for _, name := range got {
			if len(strings.Fields(name)) == 1 {
				assert.False(t, tokens[strings.ToLower(name)], "single token %q kept alongside %v", name, got)
			}
		}
	}
}
