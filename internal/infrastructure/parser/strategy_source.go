package parser

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"ClippingsImporter/internal/config"
	"ClippingsImporter/internal/domain"
	"ClippingsImporter/internal/ports"
	"ClippingsImporter/internal/scanner"
)

// StrategySource implements ArticleSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	inputs   []config.InputConfig
	logger   *slog.Logger
}

var _ ports.ArticleSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined inputs.
func NewStrategySource(reg *scanner.Registry, inputs []config.InputConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		inputs:   inputs,
		logger:   log,
	}
}

// FetchArticles expands every input glob and runs its scanner over the
// matching files in name order. A file that fails to parse is logged and
// skipped; an unknown scanner or a bad glob is a configuration error.
func (s *StrategySource) FetchArticles(ctx context.Context) ([]domain.Article, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch articles", "inputs", len(s.inputs))

	var aggregated []domain.Article
	for _, input := range s.inputs {
		strategy, err := s.registry.Resolve(input.Scanner)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", input.Name, err)
		}

		paths, err := filepath.Glob(input.Glob)
		if err != nil {
			return nil, fmt.Errorf("input %s: glob %q: %w", input.Name, input.Glob, err)
		}
		sort.Strings(paths)
		s.debug("process input", "input", input.Name, "scanner", input.Scanner, "files", len(paths))

		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results, err := strategy.Scan(ctx, scanner.Request{
				Path:      path,
				InputName: input.Name,
				Faculty:   input.Faculty,
			})
			if err != nil {
				s.warn("scan digest failed", "input", input.Name, "path", path, "error", err)
				continue
			}
			for i := range results {
				if results[i].Input == "" {
					results[i].Input = input.Name
				}
			}
			s.debug("digest produced articles", "path", path, "count", len(results))
			aggregated = append(aggregated, results...)
		}
	}

	s.debug("strategy source done", "total_articles", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
