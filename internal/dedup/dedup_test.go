package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ClippingsImporter/internal/domain"
)

type fakeStore struct {
	records []domain.PriorRecord
	err     error
	queries []string
}

func (f *fakeStore) SearchPressMedia(_ context.Context, query string) ([]domain.PriorRecord, error) {
	f.queries = append(f.queries, query)
	return f.records, f.err
}

var asOf = time.Date(2024, time.March, 1, 9, 15, 0, 0, time.UTC)

func persons(ids ...string) []domain.ResolvedPerson {
	out := make([]domain.ResolvedPerson, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.ResolvedPerson{IdentityID: id})
	}
	return out
}

func TestCheckDuplicate(t *testing.T) {
	t.Parallel()

	store := &fakeStore{records: []domain.PriorRecord{{
		Title:     "PROF. X on  Climate",
		StartDate: "2024-03-01",
		PersonIDs: []string{"P999", "P123"},
	}}}
	s := NewSuppressor(store, nil)

	assert.Equal(t, Duplicate, s.Check(context.Background(), "Prof. X on climate", persons("P123"), asOf))
	assert.True(t, s.IsDuplicate(context.Background(), "Prof. X on climate", persons("P123"), asOf))
	require.NotEmpty(t, store.queries)
	assert.Equal(t, "Prof X on climate", store.queries[0])
}

func TestCheckRequiresAllThreeConditions(t *testing.T) {
	t.Parallel()

	base := domain.PriorRecord{Title: "Prof. X on climate", StartDate: "2024-03-01", PersonIDs: []string{"P123"}}

	cases := []struct {
		name    string
		record  domain.PriorRecord
		persons []domain.ResolvedPerson
	}{
		{name: "disjoint persons", record: base, persons: persons("P456")},
		{name: "different date", record: domain.PriorRecord{Title: base.Title, StartDate: "2024-03-02", PersonIDs: base.PersonIDs}, persons: persons("P123")},
		{name: "different title", record: domain.PriorRecord{Title: "Prof. Y on climate", StartDate: base.StartDate, PersonIDs: base.PersonIDs}, persons: persons("P123")},
		{name: "no persons", record: base, persons: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := NewSuppressor(&fakeStore{records: []domain.PriorRecord{tc.record}}, nil)
			assert.Equal(t, NotDuplicate, s.Check(context.Background(), "Prof. X on climate", tc.persons, asOf))
		})
	}
}

func TestCheckMatchesDirectoryUUID(t *testing.T) {
	t.Parallel()

	store := &fakeStore{records: []domain.PriorRecord{{
		Title: "Prof. X on climate", StartDate: "2024-03-01T00:00:00.000+01:00", PersonIDs: []string{"u-1"},
	}}}
	s := NewSuppressor(store, nil)

	got := s.Check(context.Background(), "Prof. X on climate", []domain.ResolvedPerson{{IdentityID: "P123", DirectoryUUID: "u-1"}}, asOf)
	assert.Equal(t, Duplicate, got)
}

func TestCheckFailsOpen(t *testing.T) {
	t.Parallel()

	s := NewSuppressor(&fakeStore{err: errors.New("503 Service Unavailable")}, nil)
	assert.Equal(t, CheckUnavailable, s.Check(context.Background(), "t", persons("P1"), asOf))
	assert.False(t, s.IsDuplicate(context.Background(), "t", persons("P1"), asOf))

	assert.Equal(t, CheckUnavailable, NewSuppressor(nil, nil).Check(context.Background(), "t", nil, asOf))
}

func TestByTitleURL(t *testing.T) {
	t.Parallel()

	articles := []domain.Article{
		{Title: "A", URL: "https://x/a", Source: "first"},
		{Title: "A", URL: "https://x/b"},
		{Title: "A", URL: "https://x/a", Source: "second"},
		{Title: "B", URL: "https://x/a"},
	}

	kept, duplicate := ByTitleURL(articles)
	require.Len(t, kept, 3)
	assert.Equal(t, "first", kept[0].Source)
	assert.Equal(t, []bool{false, false, true, false}, duplicate)
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "duplicate", Duplicate.String())
	assert.Equal(t, "not_duplicate", NotDuplicate.String())
	assert.Equal(t, "check_unavailable", CheckUnavailable.String())
}

func TestLedgerKey(t *testing.T) {
	t.Parallel()

	a := domain.Article{Title: "Prof. X on  Climate", URL: "https://x/a", PublishedAt: asOf}
	b := domain.Article{Title: "prof. x on climate", URL: " https://x/a ", PublishedAt: asOf.Add(2 * time.Hour)}
	c := domain.Article{Title: "Prof. X on climate", URL: "https://x/b", PublishedAt: asOf}

	assert.Equal(t, LedgerKey(a), LedgerKey(b))
	assert.NotEqual(t, LedgerKey(a), LedgerKey(c))
	assert.Len(t, LedgerKey(a), 64)

	resolved := a
	resolved.SourceURL = a.URL
	resolved.URL = "https://publisher.example/a"
	assert.Equal(t, LedgerKey(a), LedgerKey(resolved))
}
