package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ClippingsImporter/internal/domain"
	"ClippingsImporter/internal/logging"
	"ClippingsImporter/internal/ports"
	"ClippingsImporter/internal/textnorm"
)

const maxArticleChars = 12000

var (
	jsonObjectExpr    = regexp.MustCompile(`\{[\s\S]*\}`)
	trailingCommaExpr = regexp.MustCompile(`,\s*([\]}])`)
)

// Completer returns a model completion for a prompt.
type Completer interface {
	Configured() bool
	Complete(ctx context.Context, prompt string) (string, error)
}

// Classifier assigns recognition degree, researcher role, type role and
// medium to an article. Without a configured model it returns Defaults.
type Classifier struct {
	completer Completer
	fetcher   *http.Client
	logger    *slog.Logger
}

var _ ports.Classifier = (*Classifier)(nil)

// NewClassifier wires the completion client and the HTTP client used to
// fetch article pages for the prompt.
func NewClassifier(completer Completer, fetcher *http.Client, logger *slog.Logger) *Classifier {
	if fetcher == nil {
		fetcher = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Classifier{completer: completer, fetcher: fetcher, logger: logger}
}

// Defaults is the classification used when no model is configured.
func Defaults() domain.Classification {
	return domain.Classification{
		Degree:         "national",
		ResearcherRole: "interviewee",
		MediaType:      "Contribution",
		TypeRole:       "exportcomment",
		GoodFit:        "yes",
		Medium:         "web",
	}
}

// Classify never returns an empty classification: on a transport failure the
// defaults come back together with the error.
func (c *Classifier) Classify(ctx context.Context, article domain.Article) (domain.Classification, error) {
	if c.completer == nil || !c.completer.Configured() {
		return Defaults(), nil
	}

	content := c.fetchText(ctx, article.URL, article.Title)
	output, err := c.completer.Complete(ctx, buildPrompt(article, content))
	if err != nil {
		return Defaults(), fmt.Errorf("classify %q: %w", article.Title, err)
	}

	reply, ok := parseReply(output)
	if !ok {
		c.logger.Warn("model returned no usable json", "article", article.Title)
	}
	return reply.normalize(), nil
}

type modelReply struct {
	Keywords       []string `json:"keywords"`
	Degree         string   `json:"degree"`
	ResearcherRole string   `json:"researcher_role"`
	TypeRole       string   `json:"typerole"`
	Medium         string   `json:"Medium_type"`
	GoodFit        string   `json:"goodfit"`
}

func unknownReply() modelReply {
	return modelReply{
		Degree:         "unknown",
		ResearcherRole: "unknown",
		TypeRole:       "unknown",
		Medium:         "unknown",
	}
}

// parseReply pulls the outermost JSON object out of free text, tolerating
// trailing commas.
func parseReply(output string) (modelReply, bool) {
	raw := jsonObjectExpr.FindString(output)
	if raw == "" {
		return unknownReply(), false
	}
	raw = trailingCommaExpr.ReplaceAllString(raw, "$1")

	var reply modelReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return unknownReply(), false
	}
	return reply, true
}

func (r modelReply) normalize() domain.Classification {
	out := domain.Classification{
		Keywords: r.Keywords,
		Degree:   orDefault(r.Degree, "unknown"),
		TypeRole: renameTypeRole(orDefault(r.TypeRole, "unknown")),
		GoodFit:  orDefault(strings.ToLower(r.GoodFit), "unknown"),
		Medium:   orDefault(r.Medium, "web"),
	}

	switch role := strings.ToLower(strings.TrimSpace(r.ResearcherRole)); role {
	case "research cited", "researchcited":
		out.ResearcherRole = "researchcited"
		out.MediaType = "Coverage"
	case "author", "interviewee":
		out.ResearcherRole = role
		out.MediaType = "Contribution"
	default:
		out.ResearcherRole = "participant"
		out.MediaType = "Contribution"
	}
	return out
}

func renameTypeRole(typeRole string) string {
	switch strings.ToLower(strings.TrimSpace(typeRole)) {
	case "public engagement activity":
		return "publicengagement"
	case "expert comment":
		return "exportcomment"
	case "unknown":
		return "other"
	default:
		return typeRole
	}
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v == "" {
		return fallback
	}
	return v
}

// fetchText returns the visible text of the article page, or the title when
// the page cannot be read.
func (c *Classifier) fetchText(ctx context.Context, pageURL, title string) string {
	if pageURL == "" {
		return title
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return title
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko)")

	resp, err := c.fetcher.Do(req)
	if err != nil {
		c.logger.Debug("fetch article failed", "article", title, "error", err)
		return title
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return title
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return title
	}
	doc.Find("script, style, noscript").Remove()
	text := textnorm.CollapseSpaces(doc.Find("body").Text())
	if text == "" {
		return title
	}
	if runes := []rune(text); len(runes) > maxArticleChars {
		text = string(runes[:maxArticleChars])
	}
	return text
}

func buildPrompt(article domain.Article, content string) string {
	var names, orgs []string
	for _, p := range article.Resolution.Resolved {
		names = append(names, p.DisplayName)
		for _, a := range p.Affiliations {
			orgs = append(orgs, a.OrganizationName)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I have an article with the following details:\n")
	fmt.Fprintf(&b, "- Article Title: %s\n", article.Title)
	fmt.Fprintf(&b, "- Source: %s\n", article.Source)
	fmt.Fprintf(&b, "- University Researcher: %s\n", strings.Join(names, ", "))
	fmt.Fprintf(&b, "- Article Content: %s\n", content)
	fmt.Fprintf(&b, "- Organisation: %s\n\n", strings.Join(orgs, ", "))
	b.WriteString(`Please perform the following tasks:

1. Extract the four most relevant keywords from the article, each at most two words.
2. Degree of recognition: "international" if the language is English, "local" if very local, otherwise "national".
3. Researcher's role, one of: "research cited", "interviewee" (quoted as only person), "participant" (quoted with others, default if in doubt), "author" (only if clearly stated).
4. Typerole, one of: "expert comment", "research", "public engagement activity".
5. Medium_type: "Radio" or "TV" only if explicitly clear, otherwise "Web".
6. Goodfit: "yes", "no" or "maybe", whether the subject fits the organisation.

Return ONLY valid JSON, nothing else:
{"keywords": ["k1", "k2", "k3", "k4"], "degree": "value", "researcher_role": "value", "typerole": "value", "Medium_type": "value", "goodfit": "value"}
`)
	return b.String()
}
