package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ClippingsImporter/internal/domain"
)

type stubScanner struct{ name string }

func (s stubScanner) Name() string { return s.name }

func (s stubScanner) Scan(context.Context, Request) ([]domain.Article, error) {
	return []domain.Article{{Title: s.name}}, nil
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(stubScanner{name: "lexisnexis"})
	reg.Register(stubScanner{name: "eml"})

	got, err := reg.Resolve("lexisnexis")
	require.NoError(t, err)
	assert.Equal(t, "lexisnexis", got.Name())
	assert.Equal(t, []string{"eml", "lexisnexis"}, reg.Names())

	_, err = reg.Resolve("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestRegistryZeroValue(t *testing.T) {
	t.Parallel()

	var reg Registry
	reg.Register(stubScanner{name: "x"})
	_, err := reg.Resolve("x")
	require.NoError(t, err)
}
