// Package export writes run output: the clipping XML bulk-import file and
// the spreadsheet audit report.
package export

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ClippingsImporter/internal/domain"
	"ClippingsImporter/internal/ports"
)

// Namespace of the clipping bulk-import schema.
const Namespace = "v1.unified.clipping.pure.atira.dk"

type clippingsDoc struct {
	XMLName   xml.Name   `xml:"v1.unified.clipping.pure.atira.dk clippings"`
	Clippings []clipping `xml:"clipping"`
}

type lookup struct {
	LookupID   string `xml:"lookupId,attr"`
	LookupHint string `xml:"lookupHint,attr"`
	Origin     string `xml:"origin,attr,omitempty"`
}

type clipping struct {
	ID              string           `xml:"id,attr"`
	Type            string           `xml:"type,attr"`
	ManagedInPure   string           `xml:"managedInPure,attr"`
	Title           string           `xml:"title"`
	Description     string           `xml:"description"`
	StartDate       string           `xml:"startDate"`
	ManagedBy       lookup           `xml:"managedBy"`
	Keywords        *keywordList     `xml:"keywords,omitempty"`
	Visibility      string           `xml:"visibility"`
	Workflow        string           `xml:"workflow"`
	MediaReferences []mediaReference `xml:"mediaReferences>mediaReference"`
}

type keywordList struct {
	Keyword []string `xml:"keyword"`
}

type mediaReference struct {
	Type    string      `xml:"type,attr"`
	ID      string      `xml:"id,attr"`
	Title   string      `xml:"title"`
	Date    string      `xml:"date"`
	Persons []personRef `xml:"persons>person"`
	Medium  string      `xml:"medium"`
	URL     string      `xml:"url,omitempty"`
	Degree  string      `xml:"degreeOfRecognition"`
}

type personRef struct {
	ID            string   `xml:"id,attr"`
	Person        lookup   `xml:"person"`
	Role          string   `xml:"role"`
	Organisations []lookup `xml:"organisations>organisation"`
}

// ClippingWriter renders accepted articles as a clipping bulk-import file.
type ClippingWriter struct {
	dir         string
	fallbackOrg string
	now         func() time.Time
}

var _ ports.ClippingWriter = (*ClippingWriter)(nil)

// NewClippingWriter writes into dir; fallbackOrg manages clippings whose
// persons have no Organization-typed affiliation.
func NewClippingWriter(dir, fallbackOrg string) *ClippingWriter {
	return &ClippingWriter{dir: dir, fallbackOrg: fallbackOrg, now: time.Now}
}

// WriteClippings writes a timestamped XML file and returns its path.
func (w *ClippingWriter) WriteClippings(ctx context.Context, articles []domain.Article) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	payload, err := BuildXML(articles, w.fallbackOrg)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(w.dir, "press_clippings_"+w.now().Format("20060102_150405")+".xml")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("write clippings: %w", err)
	}
	return path, nil
}

// BuildXML renders articles in order as clippings "Knipselkrant-<i>" and
// then drops later clippings with the same lower-cased title and person list.
func BuildXML(articles []domain.Article, fallbackOrg string) ([]byte, error) {
	doc := clippingsDoc{}
	for i, article := range articles {
		doc.Clippings = append(doc.Clippings, makeClipping(article, fmt.Sprintf("Knipselkrant-%d", i), fallbackOrg))
	}
	doc.Clippings = removeDuplicates(doc.Clippings)

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "   ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode clippings: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func makeClipping(article domain.Article, id, fallbackOrg string) clipping {
	cls := article.Classification
	date := article.PublishedAt.Format(domain.DateLayout)

	workflow := "approved"
	if strings.EqualFold(cls.GoodFit, "no") {
		workflow = "for approval"
	}

	c := clipping{
		ID:            id,
		Type:          cls.TypeRole,
		ManagedInPure: "true",
		Title:         article.Title,
		Description:   " ",
		StartDate:     date,
		ManagedBy:     lookup{LookupID: managingOrg(article.Resolution.Resolved, fallbackOrg), LookupHint: "orgSync"},
		Visibility:    "Public",
		Workflow:      workflow,
	}
	if len(cls.Keywords) > 0 {
		c.Keywords = &keywordList{Keyword: cls.Keywords}
	}

	ref := mediaReference{
		Type:   cls.MediaType,
		ID:     id + "_ref",
		Title:  article.Title,
		Date:   date,
		Medium: article.Source,
		URL:    article.URL,
		Degree: cls.Degree,
	}
	for _, p := range article.Resolution.Resolved {
		person := personRef{
			ID:     p.IdentityID,
			Person: lookup{LookupID: p.IdentityID, LookupHint: "personSync", Origin: "internal"},
			Role:   cls.ResearcherRole,
		}
		for _, a := range p.Affiliations {
			person.Organisations = append(person.Organisations, lookup{LookupID: a.OrganizationID, LookupHint: "orgSync", Origin: "internal"})
		}
		ref.Persons = append(ref.Persons, person)
	}
	c.MediaReferences = []mediaReference{ref}
	return c
}

// managingOrg prefers the first generic organisation, then the first
// department, over all persons in order.
func managingOrg(persons []domain.ResolvedPerson, fallback string) string {
	for _, orgType := range []string{domain.OrgTypeGeneric, domain.OrgTypeDepartment} {
		for _, p := range persons {
			for _, a := range p.Affiliations {
				if a.OrganizationType == orgType {
					return a.OrganizationID
				}
			}
		}
	}
	return fallback
}

func removeDuplicates(clippings []clipping) []clipping {
	seen := make(map[string]struct{}, len(clippings))
	out := clippings[:0]
	for _, c := range clippings {
		var ids []string
		title := ""
		if len(c.MediaReferences) > 0 {
			title = c.MediaReferences[0].Title
			for _, p := range c.MediaReferences[0].Persons {
				ids = append(ids, p.ID)
			}
		}
		key := strings.ToLower(title) + "\x1e" + strings.Join(ids, "\x1f")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
