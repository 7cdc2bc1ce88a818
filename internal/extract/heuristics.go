package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxPairWords = 4

var ellipsisExpr = regexp.MustCompile(`\s*(\.\.\.|…)$`)

var commaExpr = regexp.MustCompile(`,\s*`)

// Heuristic recovers raw name candidates from one article block.
type Heuristic func(block *goquery.Selection) []string

// LabeledSection reads the comma-separated list that follows a <strong>
// label such as "Personen". Text before the label is not part of the list.
func LabeledSection(label string) Heuristic {
	prefix := regexp.MustCompile(`(?s)^.*?` + regexp.QuoteMeta(label) + `\s*:?\s*`)

	return func(block *goquery.Selection) []string {
		var names []string
		block.Find("strong").Each(func(_ int, s *goquery.Selection) {
			if strings.TrimSpace(s.Text()) != label {
				return
			}
			text := prefix.ReplaceAllString(s.Parent().Text(), "")
			for _, piece := range commaExpr.Split(text, -1) {
				name := trimEllipsis(strings.TrimSpace(piece))
				if name != "" {
					names = append(names, name)
				}
			}
		})
		return names
	}
}

// UnitPattern captures the name in "<unit label> <unit> / <name>" runs.
// A name stops at the next unit label, so adjacent entries without
// separators are still split apart; line breaks and slashes also end it.
func UnitPattern(unitLabel string) Heuristic {
	marker := regexp.MustCompile(regexp.QuoteMeta(unitLabel) + ` [^/]+? / `)

	return func(block *goquery.Selection) []string {
		text := block.Text()
		locs := marker.FindAllStringIndex(text, -1)

		var names []string
		for i, loc := range locs {
			end := len(text)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			name := text[loc[1]:end]
			if cut := strings.IndexAny(name, "/\n"); cut >= 0 {
				name = name[:cut]
			}
			name = trimEllipsis(strings.TrimSpace(name))
			if name != "" {
				names = append(names, name)
			}
		}
		return names
	}
}

// Highlighted joins the tokens marked with the given background colour.
// All tokens joined in order form one candidate (keeping surname particles
// together); every adjacent pair is a fallback candidate; an odd token count
// also yields the final token alone.
func Highlighted(color string, maxRun int) Heuristic {
	style := regexp.MustCompile(`(?i)background(?:-color)?\s*:\s*` + regexp.QuoteMeta(color) + `(?:[^0-9a-f]|$)`)

	return func(block *goquery.Selection) []string {
		var tokens []string
		block.Find("span[style]").Each(func(_ int, s *goquery.Selection) {
			attr, _ := s.Attr("style")
			if !style.MatchString(attr) {
				return
			}
			if text := strings.TrimSpace(s.Text()); text != "" {
				tokens = append(tokens, text)
			}
		})
		return highlightCandidates(tokens, maxRun)
	}
}

func highlightCandidates(tokens []string, maxRun int) []string {
	if len(tokens) == 0 {
		return nil
	}

	var names []string
	full := strings.Join(tokens, " ")
	if n := len(strings.Fields(full)); n >= 1 && n <= maxRun {
		names = append(names, full)
	}

	for i := 0; i+1 < len(tokens); i++ {
		combo := fmt.Sprintf("%s %s", tokens[i], tokens[i+1])
		if len(strings.Fields(combo)) <= maxPairWords {
			names = append(names, combo)
		}
	}

	if len(tokens)%2 != 0 {
		names = append(names, tokens[len(tokens)-1])
	}
	return names
}

func trimEllipsis(s string) string {
	return ellipsisExpr.ReplaceAllString(s, "")
}
