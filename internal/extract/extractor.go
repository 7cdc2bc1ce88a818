// Package extract recovers candidate person names from digest article blocks.
//
// Each heuristic is an independent Heuristic; the Extractor unions their
// output and runs the shared cleanup: blacklist removal, single-token
// suppression, unwanted-term stripping, and single-token suppression again.
package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ClippingsImporter/internal/config"
	"ClippingsImporter/internal/textnorm"
)

// Extractor runs every heuristic over a block and filters the union.
type Extractor struct {
	heuristics []Heuristic
	blacklist  map[string]struct{}
	unwanted   []*regexp.Regexp
}

// New builds an Extractor from extraction settings.
func New(cfg config.ExtractionConfig) (*Extractor, error) {
	maxRun := cfg.MaxHighlightRun
	if maxRun <= 0 {
		maxRun = 6
	}

	unwanted := make([]*regexp.Regexp, 0, len(cfg.UnwantedTerms))
	for _, term := range cfg.UnwantedTerms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		expr, err := regexp.Compile(term)
		if err != nil {
			return nil, fmt.Errorf("compile unwanted term %q: %w", term, err)
		}
		unwanted = append(unwanted, expr)
	}

	blacklist := make(map[string]struct{}, len(cfg.Blacklist))
	for _, name := range cfg.Blacklist {
		blacklist[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}

	var heuristics []Heuristic
	if cfg.PersonsLabel != "" {
		heuristics = append(heuristics, LabeledSection(cfg.PersonsLabel))
	}
	if cfg.UnitLabel != "" {
		heuristics = append(heuristics, UnitPattern(cfg.UnitLabel))
	}
	if cfg.HighlightColor != "" {
		heuristics = append(heuristics, Highlighted(cfg.HighlightColor, maxRun))
	}

	return &Extractor{heuristics: heuristics, blacklist: blacklist, unwanted: unwanted}, nil
}

// Extract returns the sorted, deduplicated candidate names of a block.
// An empty result means the block names nobody recognisable.
func (e *Extractor) Extract(block *goquery.Selection) []string {
	var raw []string
	for _, h := range e.heuristics {
		raw = append(raw, h(block)...)
	}
	return e.Finalize(raw)
}

// Finalize applies the post-processing chain to raw heuristic output.
func (e *Extractor) Finalize(raw []string) []string {
	names := suppressSingleTokens(e.removeBlacklisted(unique(raw)))
	names = suppressSingleTokens(e.clean(names))
	sort.Strings(names)
	return names
}

func (e *Extractor) removeBlacklisted(names []string) []string {
	out := names[:0:0]
	for _, name := range names {
		if _, banned := e.blacklist[strings.ToLower(name)]; banned {
			continue
		}
		out = append(out, name)
	}
	return out
}

func (e *Extractor) clean(names []string) []string {
	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		for _, expr := range e.unwanted {
			name = strings.TrimSpace(expr.ReplaceAllString(name, ""))
		}
		if name = textnorm.CollapseSpaces(name); name != "" {
			cleaned = append(cleaned, name)
		}
	}
	return unique(cleaned)
}

// suppressSingleTokens drops one-word names whose word (case-insensitive)
// occurs as a token of any multi-word name.
func suppressSingleTokens(names []string) []string {
	tokens := map[string]struct{}{}
	for _, name := range names {
		parts := strings.Fields(name)
		if len(parts) < 2 {
			continue
		}
		for _, p := range parts {
			tokens[strings.ToLower(p)] = struct{}{}
		}
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		parts := strings.Fields(name)
		if len(parts) == 0 {
			continue
		}
		if len(parts) == 1 {
			if _, inLonger := tokens[strings.ToLower(parts[0])]; inLonger {
				continue
			}
		}
		out = append(out, name)
	}
	return out
}

func unique(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
