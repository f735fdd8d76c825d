// Package engine drives sources through their harvest lifecycle and hands
// the results to storage.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/IshaanNene/harvestgoat/internal/observability"
	"github.com/IshaanNene/harvestgoat/internal/selector"
	"github.com/IshaanNene/harvestgoat/internal/source"
	"github.com/IshaanNene/harvestgoat/internal/types"
)

// Drop reasons recorded for discarded items.
const (
	DropNoDetail    = "no_detail"
	DropFetchFailed = "fetch_failed"
	DropParseEmpty  = "parse_empty"
	DropParseFailed = "parse_failed"
	DropPanic       = "panic"
)

// Options bounds one harvest.
type Options struct {
	// Concurrency is the maximum number of detail fetches in flight.
	Concurrency int

	// MaxItems caps the listed items; 0 means no cap.
	MaxItems int
}

// Drop records an item that did not become an article.
type Drop struct {
	Index  int
	Reason string
	Err    error
}

// Result is the outcome of harvesting one source.
type Result struct {
	Source   string
	Listed   int
	Articles []*types.Article
	Drops    []Drop
	Duration time.Duration
}

// Harvester runs a single adapter through list, detail and parse.
type Harvester struct {
	stats   *Stats
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewHarvester creates a Harvester. A nil stats gets a fresh Stats.
func NewHarvester(stats *Stats, metrics *observability.Metrics, logger *slog.Logger) *Harvester {
	if stats == nil {
		stats = NewStats()
	}
	return &Harvester{
		stats:   stats,
		metrics: metrics,
		logger:  logger.With("component", "harvester"),
	}
}

// Stats returns the harvester's statistics.
func (h *Harvester) Stats() *Stats { return h.stats }

type detailOutcome struct {
	item   *selector.Item
	reason string
	err    error
}

// Harvest lists the adapter's index, fetches details with at most
// opts.Concurrency requests in flight and parses the results. Articles are
// returned in listing order. Per-item failures are recorded as drops; only
// a listing failure is returned as an error, as a *types.SourceError.
func (h *Harvester) Harvest(ctx context.Context, a source.Adapter, opts Options) (*Result, error) {
	start := time.Now()
	name := a.Name()
	logger := h.logger.With("source", name)
	res := &Result{Source: name}

	items, err := a.ListIndex(ctx)
	if err != nil {
		res.Duration = time.Since(start)
		logger.Warn("listing failed", "error", err)
		return res, &types.SourceError{Source: name, Stage: "list", Err: err}
	}
	if opts.MaxItems > 0 && len(items) > opts.MaxItems {
		items = items[:opts.MaxItems]
	}
	res.Listed = len(items)
	h.stats.ItemsListed.Add(int64(len(items)))
	h.metrics.ItemsListed(name, len(items))
	logger.Debug("index listed", "items", len(items))

	details := h.fetchDetails(ctx, a, items, opts.Concurrency)

	for i, d := range details {
		if d.item == nil {
			res.Drops = append(res.Drops, Drop{Index: i, Reason: d.reason, Err: d.err})
			continue
		}
		article, reason, err := h.parse(a, d.item)
		if article == nil {
			res.Drops = append(res.Drops, Drop{Index: i, Reason: reason, Err: err})
			continue
		}
		res.Articles = append(res.Articles, article)
	}

	for _, d := range res.Drops {
		h.metrics.ArticleDropped(name, d.Reason)
		if d.Err != nil {
			logger.Warn("item dropped", "index", d.Index, "reason", d.Reason, "error", d.Err)
		} else {
			logger.Debug("item dropped", "index", d.Index, "reason", d.Reason)
		}
	}
	h.stats.ArticlesParsed.Add(int64(len(res.Articles)))
	h.stats.ArticlesDropped.Add(int64(len(res.Drops)))
	h.metrics.ArticlesParsed(name, len(res.Articles))

	res.Duration = time.Since(start)
	logger.Info("source harvested",
		"listed", res.Listed,
		"articles", len(res.Articles),
		"dropped", len(res.Drops),
		"duration", res.Duration,
	)
	return res, nil
}

// fetchDetails fetches every item's detail. The semaphore is acquired in
// listing order, so queued items start first-in first-out. Each goroutine
// writes only its own slot.
func (h *Harvester) fetchDetails(ctx context.Context, a source.Adapter, items []*selector.Item, concurrency int) []detailOutcome {
	if concurrency < 1 {
		concurrency = 1
	}
	sem := semaphore.NewWeighted(int64(concurrency))
	results := make([]detailOutcome, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(items); j++ {
				results[j] = detailOutcome{reason: DropFetchFailed, err: err}
			}
			break
		}
		wg.Add(1)
		go func(i int, item *selector.Item) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = h.fetchDetail(ctx, a, item)
		}(i, item)
	}
	wg.Wait()
	return results
}

func (h *Harvester) fetchDetail(ctx context.Context, a source.Adapter, item *selector.Item) (out detailOutcome) {
	h.stats.ActiveFetches.Add(1)
	h.metrics.DetailStarted()
	defer func() {
		h.stats.ActiveFetches.Add(-1)
		h.metrics.DetailFinished()
	}()
	defer func() {
		if r := recover(); r != nil {
			out = detailOutcome{reason: DropPanic, err: fmt.Errorf("panic in detail fetch: %v", r)}
		}
	}()

	detail, err := a.FetchDetail(ctx, item)
	switch {
	case err != nil:
		return detailOutcome{reason: DropFetchFailed, err: err}
	case detail == nil:
		return detailOutcome{reason: DropNoDetail}
	}
	h.stats.DetailsFetched.Add(1)
	return detailOutcome{item: detail}
}

func (h *Harvester) parse(a source.Adapter, item *selector.Item) (article *types.Article, reason string, err error) {
	defer func() {
		if r := recover(); r != nil {
			article, reason, err = nil, DropPanic, fmt.Errorf("panic in parse: %v", r)
		}
	}()

	article, err = a.Parse(item)
	switch {
	case err != nil:
		return nil, DropParseFailed, err
	case article == nil:
		return nil, DropParseEmpty, nil
	}
	return article, "", nil
}
