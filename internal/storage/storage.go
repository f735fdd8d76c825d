// Package storage hands harvested articles to downstream backends: the
// ingestion endpoint, a local JSONL event log and a MongoDB archive.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IshaanNene/harvestgoat/internal/config"
	"github.com/IshaanNene/harvestgoat/internal/fetcher"
	"github.com/IshaanNene/harvestgoat/internal/types"
)

// EventScraping is the event name attached to harvested articles.
const EventScraping = "scraping"

// Event is the envelope every backend receives.
type Event struct {
	Event     string         `json:"event"            bson:"event"`
	Scraper   string         `json:"scraper"          bson:"scraper"`
	RunID     string         `json:"run_id,omitempty" bson:"run_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"        bson:"timestamp"`
	Payload   *types.Article `json:"payload"          bson:"payload"`
}

// NewEvent wraps an article harvested by scraper.
func NewEvent(scraper, runID string, a *types.Article, ts time.Time) *Event {
	return &Event{
		Event:     EventScraping,
		Scraper:   scraper,
		RunID:     runID,
		Timestamp: ts,
		Payload:   a,
	}
}

// Storage is the interface for all storage backends.
type Storage interface {
	// Store hands one event to the backend.
	Store(ctx context.Context, ev *Event) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// SelectEvents keeps scraping events with extracted text, one per
// article key, in log order.
func SelectEvents(events []*Event) []*Event {
	seen := make(map[string]bool, len(events))
	out := make([]*Event, 0, len(events))
	for _, ev := range events {
		if ev == nil || ev.Event != EventScraping || ev.Payload == nil {
			continue
		}
		key := ev.Payload.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		if strings.TrimSpace(ev.Payload.ExtractedText()) == "" {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// SelectForClustering returns the articles of SelectEvents.
func SelectForClustering(events []*Event) []*types.Article {
	selected := SelectEvents(events)
	out := make([]*types.Article, len(selected))
	for i, ev := range selected {
		out[i] = ev.Payload
	}
	return out
}

// SplitDay partitions events into those recorded on the calendar day of
// day in loc and the rest.
func SplitDay(events []*Event, day time.Time, loc *time.Location) (on, rest []*Event) {
	start, end := DayBounds(day, loc)
	for _, ev := range events {
		if ev == nil {
			continue
		}
		if !ev.Timestamp.Before(start) && ev.Timestamp.Before(end) {
			on = append(on, ev)
		} else {
			rest = append(rest, ev)
		}
	}
	return on, rest
}

// DayBounds returns the [start, end) interval of the calendar day of t in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// --- Multi-Storage Fan-Out ---

// MultiStorage writes events to multiple backends.
type MultiStorage struct {
	backends []Storage
	logger   *slog.Logger
}

// NewMultiStorage creates a storage that fans out to multiple backends.
func NewMultiStorage(backends []Storage, logger *slog.Logger) *MultiStorage {
	return &MultiStorage{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiStorage) Name() string { return "multi" }

// Store writes to every backend and returns the first error.
func (s *MultiStorage) Store(ctx context.Context, ev *Event) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Store(ctx, ev); err != nil {
			s.logger.Error("backend store failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MultiStorage) Close() error {
	var errs []error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// New builds the backends listed in cfg.Backends. A single backend is
// returned as is; several are wrapped in a MultiStorage.
func New(ctx context.Context, cfg *config.StorageConfig, f fetcher.Fetcher, logger *slog.Logger) (Storage, error) {
	var backends []Storage
	closeAll := func() {
		for _, b := range backends {
			_ = b.Close()
		}
	}

	for _, name := range cfg.Backends {
		var (
			b   Storage
			err error
		)
		switch name {
		case "pipeline":
			b, err = NewPipelineStorage(cfg.Endpoint, f, cfg.MaxPayloadBytes, cfg.Timeout, logger)
		case "jsonl":
			b, err = NewJSONLStorage(cfg.OutputPath, logger)
		case "mongodb", "mongo":
			b, err = NewMongoStorage(ctx, cfg.Mongo, logger)
		default:
			err = fmt.Errorf("unsupported storage backend: %s", name)
		}
		if err != nil {
			closeAll()
			return nil, err
		}
		backends = append(backends, b)
	}

	switch len(backends) {
	case 0:
		return nil, errors.New("no storage backend configured")
	case 1:
		return backends[0], nil
	}
	return NewMultiStorage(backends, logger), nil
}
