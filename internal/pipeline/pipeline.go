package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/IshaanNene/harvestgoat/internal/config"
	"github.com/IshaanNene/harvestgoat/internal/types"
)

// Middleware inspects an article before it is stored.
// Return nil to drop the article. Middleware that changes an article must
// return a copy.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process returns the article to keep, or nil to drop it.
	Process(a *types.Article) (*types.Article, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the article through all middleware in order. The second
// return value names the stage that dropped the article, if any.
func (p *Pipeline) Process(a *types.Article) (*types.Article, string, error) {
	current := a

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, mw.Name(), &types.PipelineError{
				Stage:     mw.Name(),
				ArticleID: current.ID,
				Err:       err,
			}
		}
		if result == nil {
			p.logger.Debug("article dropped", "stage", mw.Name(), "id", a.ID)
			return nil, mw.Name(), nil
		}
		current = result
	}

	return current, "", nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// Build assembles the standard forwarding chain: in-run dedup, the
// today-only filter, the extracted-text requirement and, when seen is
// non-nil, the cross-run seen filter.
func Build(cfg *config.Config, seen SeenChecker, logger *slog.Logger) (*Pipeline, error) {
	p := New(logger)
	p.Use(NewDedup())

	if cfg.Harvest.TodayOnly {
		loc, err := cfg.Harvest.Location()
		if err != nil {
			return nil, fmt.Errorf("load timezone: %w", err)
		}
		p.Use(&TodayOnly{Location: loc})
	}
	if cfg.Extract.Enabled && cfg.Extract.RequireExtracted {
		p.Use(&RequireExtracted{})
	}
	if seen != nil {
		p.Use(&SeenFilter{Store: seen})
	}
	return p, nil
}
