package extract

import (
	"log/slog"
	"strings"

	"github.com/IshaanNene/harvestgoat/internal/types"
)

// Pipeline attaches extracted text to a batch of same-source HTML articles.
//
// Article i is diffed against article i-1; the first article uses the last
// one. Index pages list newest first, so the neighbour is normally the most
// similar page. This breaks down when a source reorders its listing between
// fetches.
type Pipeline struct {
	logger *slog.Logger
}

// NewPipeline creates a content-diff pipeline.
func NewPipeline(logger *slog.Logger) *Pipeline {
	return &Pipeline{logger: logger.With("component", "extract")}
}

// Apply returns copies of records carrying their extracted text. Records
// without a usable reference are skipped.
func (p *Pipeline) Apply(records []*types.Article) []*types.Article {
	n := len(records)
	out := make([]*types.Article, 0, n)
	for i, rec := range records {
		if rec == nil {
			continue
		}
		ref := records[(i-1+n)%n]
		if ref == nil || strings.TrimSpace(ref.Content) == "" {
			p.logger.Warn("no reference content, skipping extraction", "index", i, "id", rec.ID)
			continue
		}
		out = append(out, rec.WithExtracted(Extract(ref.Content, rec.Content)))
	}
	return out
}
