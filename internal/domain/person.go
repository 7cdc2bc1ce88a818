package domain

import (
	"sort"
	"strings"
	"time"
)

// Organization categories derived from the directory's organisation type code.
const (
	OrgTypeResearch   = "Research organization"
	OrgTypeDepartment = "Department"
	OrgTypeGeneric    = "Organization"
	OrgTypeUnknown    = "Unknown"
)

// Affiliation is an organisational association valid on the article date.
type Affiliation struct {
	OrganizationID   string
	OrganizationType string
	OrganizationName string
	ValidFrom        time.Time
	ValidTo          time.Time
}

// ResolvedPerson is a candidate name mapped to a directory identity.
// Affiliations is never empty. PrimaryOrganization names the last
// organisation classified among Affiliations.
type ResolvedPerson struct {
	IdentityID          string
	DirectoryUUID       string
	DisplayName         string
	CandidateName       string
	PrimaryOrganization string
	Affiliations        []Affiliation
}

// DedupKey combines the identity with the exact set of affiliations it was
// resolved with. Affiliation order does not matter.
func (p ResolvedPerson) DedupKey() string {
	parts := make([]string, 0, len(p.Affiliations))
	for _, a := range p.Affiliations {
		parts = append(parts, strings.Join([]string{
			a.OrganizationID,
			a.OrganizationType,
			a.OrganizationName,
			a.ValidFrom.Format(DateLayout),
			a.ValidTo.Format(DateLayout),
		}, "\x1f"))
	}
	sort.Strings(parts)
	return p.IdentityID + "\x1e" + strings.Join(parts, "\x1e")
}

// ResolutionResult holds the outcome of resolving every candidate of one article.
type ResolutionResult struct {
	Resolved   []ResolvedPerson
	Unresolved []string
}

// IdentityIDs lists the identifiers of all resolved persons.
func (r ResolutionResult) IdentityIDs() []string {
	ids := make([]string, 0, len(r.Resolved))
	for _, p := range r.Resolved {
		ids = append(ids, p.IdentityID)
	}
	return ids
}
