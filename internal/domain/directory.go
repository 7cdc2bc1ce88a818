package domain

// DirectoryIdentifier is a typed identifier attached to a directory person.
type DirectoryIdentifier struct {
	Type string
	ID   string
}

// PersonName is a first/last name pair as stored by the directory.
type PersonName struct {
	First string
	Last  string
}

// Full renders the name as "first last", trimmed.
func (n PersonName) Full() string {
	switch {
	case n.First == "":
		return n.Last
	case n.Last == "":
		return n.First
	default:
		return n.First + " " + n.Last
	}
}

// Association is a raw staff-organisation association with string dates
// (YYYY-MM-DD); End is empty for open-ended associations.
type Association struct {
	OrganizationID string
	Start          string
	End            string
}

// DirectoryPerson is one search hit from the personnel directory.
type DirectoryPerson struct {
	UUID         string
	Identifiers  []DirectoryIdentifier
	Name         PersonName
	AltNames     []PersonName
	Associations []Association
}

// Spellings lists every known full-name spelling, primary first,
// without duplicates or empty entries.
func (p DirectoryPerson) Spellings() []string {
	seen := make(map[string]struct{}, len(p.AltNames)+1)
	out := make([]string, 0, len(p.AltNames)+1)
	for _, n := range append([]PersonName{p.Name}, p.AltNames...) {
		full := n.Full()
		if full == "" {
			continue
		}
		if _, ok := seen[full]; ok {
			continue
		}
		seen[full] = struct{}{}
		out = append(out, full)
	}
	return out
}

// IdentifierOfType returns the first identifier of the given type.
func (p DirectoryPerson) IdentifierOfType(idType string) (string, bool) {
	for _, id := range p.Identifiers {
		if id.Type == idType && id.ID != "" {
			return id.ID, true
		}
	}
	return "", false
}

// Organization is the subset of an organisation record needed for classification.
type Organization struct {
	UUID    string
	TypeURI string
	Name    string
}

// PriorRecord is a press-media record already present in the store.
type PriorRecord struct {
	Title     string
	StartDate string
	PersonIDs []string
}
