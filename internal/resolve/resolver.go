// Package resolve maps candidate names onto directory identities and the
// affiliations those identities held on an article's publication date.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ClippingsImporter/internal/domain"
	"ClippingsImporter/internal/logging"
	"ClippingsImporter/internal/ports"
	"ClippingsImporter/internal/textnorm"
)

// AcceptanceThreshold is the minimum similarity (0..100) for a directory
// spelling to count as the candidate name.
const AcceptanceThreshold = 95.0

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("person not found")

// Reasons a name fails to resolve.
const (
	ReasonNoResults          = "no_results"
	ReasonBelowThreshold     = "below_threshold"
	ReasonNoEmployeeID       = "no_employee_id"
	ReasonLookupFailed       = "lookup_failed"
	ReasonNoValidAffiliation = "no_valid_affiliation"
)

// NotFoundError explains why a name did not resolve.
type NotFoundError struct {
	Name   string
	Reason string
	Err    error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve %q: %s: %v", e.Name, e.Reason, e.Err)
	}
	return fmt.Sprintf("resolve %q: %s", e.Name, e.Reason)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Match is an accepted directory hit.
type Match struct {
	Person     domain.DirectoryPerson
	IdentityID string
	Spelling   string
	Score      float64
}

// Resolver scores directory search results against a candidate name.
type Resolver struct {
	directory      ports.Directory
	employeeIDType string
	logger         *slog.Logger
}

// NewResolver wires the directory and the identifier type that downstream
// records key on.
func NewResolver(directory ports.Directory, employeeIDType string, logger *slog.Logger) *Resolver {
	if employeeIDType == "" {
		employeeIDType = "Employee ID"
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Resolver{directory: directory, employeeIDType: employeeIDType, logger: logger}
}

// Resolve searches the directory for name and returns the best-scoring
// person if the score reaches AcceptanceThreshold. On equal scores the
// first result and spelling seen wins. Any failure is a *NotFoundError.
func (r *Resolver) Resolve(ctx context.Context, name string) (Match, error) {
	name = strings.TrimSpace(name)

	results, err := r.directory.SearchPersons(ctx, name)
	if err != nil {
		return Match{}, &NotFoundError{Name: name, Reason: ReasonLookupFailed, Err: err}
	}
	if len(results) == 0 {
		return Match{}, &NotFoundError{Name: name, Reason: ReasonNoResults}
	}

	best, found := bestMatch(name, results)
	if !found || best.Score < AcceptanceThreshold {
		r.logger.Debug("best match below threshold",
			"name", name, "spelling", best.Spelling, "score", best.Score)
		return Match{}, &NotFoundError{Name: name, Reason: ReasonBelowThreshold}
	}

	id, ok := best.Person.IdentifierOfType(r.employeeIDType)
	if !ok {
		r.logger.Info("match has no usable identifier", "name", name, "spelling", best.Spelling)
		return Match{}, &NotFoundError{Name: name, Reason: ReasonNoEmployeeID}
	}
	best.IdentityID = id

	if best.Score == 100 {
		r.logger.Debug("exact match", "name", name, "spelling", best.Spelling)
	} else {
		r.logger.Debug("match above threshold", "name", name, "spelling", best.Spelling, "score", best.Score)
	}
	return best, nil
}

// bestMatch keeps the first strictly-greater score across results in order
// and, within a result, across its spellings in order.
func bestMatch(name string, results []domain.DirectoryPerson) (Match, bool) {
	var (
		best  Match
		found bool
	)
	for _, person := range results {
		for _, spelling := range person.Spellings() {
			score := textnorm.Ratio(name, spelling)
			if !found || score > best.Score {
				best = Match{Person: person, Spelling: spelling, Score: score}
				found = true
			}
		}
	}
	return best, found
}
