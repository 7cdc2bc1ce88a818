package pure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"ClippingsImporter/internal/domain"
	"ClippingsImporter/internal/ports"
)

var _ ports.Directory = (*Client)(nil)

type personSearchResponse struct {
	Items []personJSON `json:"items"`
}

type personJSON struct {
	UUID         string           `json:"uuid"`
	Identifiers  []identifierJSON `json:"identifiers"`
	Name         nameJSON         `json:"name"`
	Names        []altNameJSON    `json:"names"`
	Associations []staffAssocJSON `json:"staffOrganizationAssociations"`
}

type identifierJSON struct {
	Type identifierType `json:"type"`
	ID   string         `json:"id"`
}

// identifierType accepts both a bare string and the localized
// {"term":{"en_GB":"..."}} shape.
type identifierType string

func (t *identifierType) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*t = identifierType(s)
		return nil
	}
	var localized struct {
		Term map[string]string `json:"term"`
		URI  string            `json:"uri"`
	}
	if err := json.Unmarshal(raw, &localized); err != nil {
		return nil
	}
	if term, ok := localized.Term["en_GB"]; ok {
		*t = identifierType(term)
		return nil
	}
	*t = identifierType(localized.URI)
	return nil
}

type nameJSON struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// altNameJSON covers both {"name":{...}} wrappers and bare name objects.
type altNameJSON struct {
	Name      *nameJSON `json:"name"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
}

type staffAssocJSON struct {
	Organization struct {
		UUID string `json:"uuid"`
	} `json:"organization"`
	Period struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	} `json:"period"`
}

type organizationJSON struct {
	UUID string `json:"uuid"`
	Type struct {
		URI string `json:"uri"`
	} `json:"type"`
	Name map[string]string `json:"name"`
}

// SearchPersons runs a directory search for name.
func (c *Client) SearchPersons(ctx context.Context, name string) ([]domain.DirectoryPerson, error) {
	var resp personSearchResponse
	payload := map[string]string{"searchString": name}
	if err := c.do(ctx, http.MethodPost, "persons/search/", nil, payload, &resp); err != nil {
		return nil, fmt.Errorf("search persons %q: %w", name, err)
	}

	persons := make([]domain.DirectoryPerson, 0, len(resp.Items))
	for _, item := range resp.Items {
		persons = append(persons, item.toDomain())
	}
	return persons, nil
}

// Organization fetches the type and English name of an organisation.
func (c *Client) Organization(ctx context.Context, uuid string) (domain.Organization, error) {
	var resp organizationJSON
	if err := c.do(ctx, http.MethodGet, "organizations/"+url.PathEscape(uuid), nil, nil, &resp); err != nil {
		return domain.Organization{}, fmt.Errorf("organization %s: %w", uuid, err)
	}
	return domain.Organization{
		UUID:    uuid,
		TypeURI: resp.Type.URI,
		Name:    resp.Name["en_GB"],
	}, nil
}

func (p personJSON) toDomain() domain.DirectoryPerson {
	person := domain.DirectoryPerson{
		UUID: p.UUID,
		Name: domain.PersonName{First: p.Name.FirstName, Last: p.Name.LastName},
	}
	for _, id := range p.Identifiers {
		person.Identifiers = append(person.Identifiers, domain.DirectoryIdentifier{Type: string(id.Type), ID: id.ID})
	}
	for _, alt := range p.Names {
		n := domain.PersonName{First: alt.FirstName, Last: alt.LastName}
		if alt.Name != nil {
			n = domain.PersonName{First: alt.Name.FirstName, Last: alt.Name.LastName}
		}
		person.AltNames = append(person.AltNames, n)
	}
	for _, a := range p.Associations {
		person.Associations = append(person.Associations, domain.Association{
			OrganizationID: a.Organization.UUID,
			Start:          a.Period.StartDate,
			End:            a.Period.EndDate,
		})
	}
	return person
}
