package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/IshaanNene/harvestgoat/internal/fetcher"
	"github.com/IshaanNene/harvestgoat/internal/types"
)

// PipelineStorage posts events to the ingestion endpoint, one event per
// request wrapped in a JSON array.
type PipelineStorage struct {
	endpoint string
	fetcher  fetcher.Fetcher
	maxBytes int
	timeout  time.Duration
	logger   *slog.Logger
}

// NewPipelineStorage creates an ingestion endpoint client. maxBytes of 0
// disables the payload ceiling.
func NewPipelineStorage(endpoint string, f fetcher.Fetcher, maxBytes int, timeout time.Duration, logger *slog.Logger) (*PipelineStorage, error) {
	if endpoint == "" {
		return nil, errors.New("pipeline storage requires an endpoint")
	}
	if f == nil {
		return nil, errors.New("pipeline storage requires a fetcher")
	}
	return &PipelineStorage{
		endpoint: endpoint,
		fetcher:  f,
		maxBytes: maxBytes,
		timeout:  timeout,
		logger:   logger.With("component", "pipeline_storage"),
	}, nil
}

func (s *PipelineStorage) Name() string { return "pipeline" }

// Store posts ev. Payloads above the ceiling are never sent and yield an
// error wrapping types.ErrPayloadTooLarge.
func (s *PipelineStorage) Store(ctx context.Context, ev *Event) error {
	body, err := json.Marshal([]*Event{ev})
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("encode event: %w", err)}
	}
	if s.maxBytes > 0 && len(body) > s.maxBytes {
		s.logger.Warn("payload too large, skipping",
			"scraper", ev.Scraper,
			"id", articleID(ev),
			"size", len(body),
			"limit", s.maxBytes,
		)
		return &types.StorageError{
			Backend: s.Name(),
			Err:     fmt.Errorf("%w: %d > %d bytes", types.ErrPayloadTooLarge, len(body), s.maxBytes),
		}
	}

	resp, err := fetcher.PostJSON(ctx, s.fetcher, s.endpoint, body, fetcher.Options{
		Source:  ev.Scraper,
		Timeout: s.timeout,
	})
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &types.StorageError{
			Backend: s.Name(),
			Err:     fmt.Errorf("unexpected status %d: %s", resp.StatusCode, resp.Text()),
		}
	}

	s.logger.Debug("event posted", "scraper", ev.Scraper, "id", articleID(ev), "size", len(body))
	return nil
}

func (s *PipelineStorage) Close() error { return nil }

func articleID(ev *Event) string {
	if ev.Payload == nil {
		return ""
	}
	return ev.Payload.ID
}
