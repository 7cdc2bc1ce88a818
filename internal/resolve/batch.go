package resolve

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"ClippingsImporter/internal/domain"
	"ClippingsImporter/internal/logging"
)

// Coordinator resolves all candidate names of one article.
// It keeps no state between calls, so one instance may serve many
// articles concurrently.
type Coordinator struct {
	resolver *Resolver
	filter   *AffiliationFilter
	logger   *slog.Logger
}

// NewCoordinator wires the resolver and the affiliation filter.
func NewCoordinator(resolver *Resolver, filter *AffiliationFilter, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Coordinator{resolver: resolver, filter: filter, logger: logger}
}

// ResolveBatch resolves names as of the article date. Names are visited in
// sorted order. A person is appended once per (identity, affiliation set);
// names that fail to resolve, or whose person had no affiliation valid on
// asOf, end up in Unresolved. log may be nil.
func (c *Coordinator) ResolveBatch(ctx context.Context, names []string, asOf time.Time, log *slog.Logger) domain.ResolutionResult {
	if log == nil {
		log = c.logger
	}

	ordered := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			ordered = append(ordered, name)
		}
	}
	sort.Strings(ordered)

	result := domain.ResolutionResult{}
	seen := map[string]struct{}{}
	for _, name := range ordered {
		person, err := c.resolveOne(ctx, name, asOf)
		if err != nil {
			result.Unresolved = append(result.Unresolved, name)
			reason := ""
			var nf *NotFoundError
			if errors.As(err, &nf) {
				reason = nf.Reason
			}
			log.Warn("failed to resolve", "name", name, "reason", reason, "error", err)
			continue
		}

		key := person.DedupKey()
		if _, dup := seen[key]; dup {
			log.Debug("skip repeated identity", "name", name, "identity", person.IdentityID)
			continue
		}
		seen[key] = struct{}{}
		result.Resolved = append(result.Resolved, person)
		log.Info("resolved", "name", name, "identity", person.IdentityID, "affiliations", len(person.Affiliations))
	}
	return result
}

func (c *Coordinator) resolveOne(ctx context.Context, name string, asOf time.Time) (domain.ResolvedPerson, error) {
	match, err := c.resolver.Resolve(ctx, name)
	if err != nil {
		return domain.ResolvedPerson{}, err
	}

	affiliations, orgName := c.filter.Filter(ctx, match.Person.Associations, asOf)
	if len(affiliations) == 0 {
		return domain.ResolvedPerson{}, &NotFoundError{Name: name, Reason: ReasonNoValidAffiliation}
	}

	return domain.ResolvedPerson{
		IdentityID:          match.IdentityID,
		DirectoryUUID:       match.Person.UUID,
		DisplayName:         match.Person.Name.Full(),
		CandidateName:       name,
		PrimaryOrganization: orgName,
		Affiliations:        affiliations,
	}, nil
}
