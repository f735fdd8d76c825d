package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/harvestgoat/internal/config"
	"github.com/IshaanNene/harvestgoat/internal/fetcher"
	"github.com/IshaanNene/harvestgoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

var testTime = time.Date(2025, 6, 20, 8, 0, 0, 0, time.UTC)

func newTestFetcher(t *testing.T) fetcher.Fetcher {
	t.Helper()
	cfg := config.DefaultConfig().Fetcher
	cfg.RateLimit = 0
	f, err := fetcher.NewHTTPFetcher(&cfg, testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func testArticle(id, url, extracted string) *types.Article {
	a := &types.Article{
		ID:          id,
		Title:       "title " + id,
		Content:     "<p>" + id + "</p>",
		ContentType: types.ContentHTML,
		Category:    types.CategoryNews,
	}
	if url != "" {
		a.URL = &url
	}
	if extracted != "" {
		a = a.WithExtracted(extracted)
	}
	return a
}

func TestPipelineStorageDoesNotRetryPost(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := fetcher.NewRetrying(newTestFetcher(t), 3, time.Millisecond, nil, testLogger)
	s, err := NewPipelineStorage(srv.URL, f, 990_000, time.Second, testLogger)
	require.NoError(t, err)

	ev := NewEvent("HK01", "", testArticle("1", "https://example.com/1", "text"), testTime)
	var se *types.StorageError
	require.ErrorAs(t, s.Store(context.Background(), ev), &se)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPipelineStoragePostsEventArray(t *testing.T) {
	var got []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := NewPipelineStorage(srv.URL, newTestFetcher(t), 990_000, time.Second, testLogger)
	require.NoError(t, err)

	ev := NewEvent("HK01", "run-1", testArticle("1", "https://example.com/1", "text"), testTime)
	require.NoError(t, s.Store(context.Background(), ev))

	require.Len(t, got, 1)
	assert.Equal(t, "scraping", got[0]["event"])
	assert.Equal(t, "HK01", got[0]["scraper"])
	assert.Equal(t, "run-1", got[0]["run_id"])
	payload, ok := got[0]["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1", payload["id"])
	assert.Equal(t, "text", payload["extracted"])
}

func TestPipelineStorageSkipsOversizedPayload(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	s, err := NewPipelineStorage(srv.URL, newTestFetcher(t), 200, time.Second, testLogger)
	require.NoError(t, err)

	big := testArticle("big", "", strings.Repeat("x", 500))
	err = s.Store(context.Background(), NewEvent("HK01", "", big, testTime))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrPayloadTooLarge)

	var se *types.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "pipeline", se.Backend)
	assert.Zero(t, calls.Load(), "oversized payloads are never sent")
}

func TestPipelineStorageRejectsNonOK(t *testing.T) {
	for _, status := range []int{http.StatusCreated, http.StatusBadRequest} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		s, err := NewPipelineStorage(srv.URL, newTestFetcher(t), 0, time.Second, testLogger)
		require.NoError(t, err)

		err = s.Store(context.Background(), NewEvent("HK01", "", testArticle("1", "", ""), testTime))
		var se *types.StorageError
		assert.ErrorAs(t, err, &se, "status %d", status)
		srv.Close()
	}
}

func TestPipelineStorageRequiresEndpoint(t *testing.T) {
	_, err := NewPipelineStorage("", newTestFetcher(t), 0, 0, testLogger)
	assert.Error(t, err)
}

func TestJSONLStorageAppendsAndReadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.jsonl")

	s, err := NewJSONLStorage(path, testLogger)
	require.NoError(t, err)
	require.NoError(t, s.Store(context.Background(), NewEvent("A", "r1", testArticle("1", "https://a/1", "一"), testTime)))
	require.NoError(t, s.Close())

	// Reopening appends rather than truncates.
	s, err = NewJSONLStorage(path, testLogger)
	require.NoError(t, err)
	require.NoError(t, s.Store(context.Background(), NewEvent("B", "r2", testArticle("2", "https://b/2", "<二>"), testTime)))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "closing twice is harmless")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("not json\n\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	events, skipped, err := ReadEvents(path)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, events, 2)
	assert.Equal(t, "A", events[0].Scraper)
	assert.Equal(t, "B", events[1].Scraper)
	assert.Equal(t, "<二>", events[1].Payload.ExtractedText())
	assert.True(t, events[0].Timestamp.Equal(testTime))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<二>", "HTML is not escaped")
}

func TestWriteEventsReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	events := []*Event{NewEvent("A", "", testArticle("1", "", ""), testTime)}
	require.NoError(t, WriteEvents(path, events))

	got, skipped, err := ReadEvents(path)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Len(t, got, 1)
}

func TestSelectForClustering(t *testing.T) {
	events := []*Event{
		NewEvent("A", "", testArticle("1", "https://x/1", "first"), testTime),
		NewEvent("A", "", testArticle("1b", "https://x/1", "duplicate url"), testTime),
		NewEvent("B", "", testArticle("2", "https://x/2", ""), testTime),
		{Event: "heartbeat", Payload: testArticle("3", "https://x/3", "other event")},
		NewEvent("C", "", nil, testTime),
		nil,
		NewEvent("D", "", testArticle("4", "", "no url"), testTime),
	}

	got := SelectForClustering(events)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "4", got[1].ID)
}

func TestSeenStore(t *testing.T) {
	s, err := NewSeenStore(filepath.Join(t.TempDir(), "seen.db"))
	require.NoError(t, err)
	defer s.Close()

	seen, err := s.Seen("https://x/1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, s.Mark("https://x/1", "A", testTime))
	require.NoError(t, s.Mark("https://x/1", "B", testTime.Add(time.Hour)))

	seen, err = s.Seen("https://x/1")
	require.NoError(t, err)
	assert.True(t, seen)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type fakeStorage struct {
	name   string
	err    error
	stored []*Event
	closed bool
}

func (f *fakeStorage) Name() string { return f.name }

func (f *fakeStorage) Store(_ context.Context, ev *Event) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, ev)
	return nil
}

func (f *fakeStorage) Close() error {
	f.closed = true
	return nil
}

func TestMarkingStorageOnlyMarksAccepted(t *testing.T) {
	seen, err := NewSeenStore(filepath.Join(t.TempDir(), "seen.db"))
	require.NoError(t, err)
	defer seen.Close()

	ok := NewMarkingStorage(&fakeStorage{name: "ok"}, seen)
	failing := NewMarkingStorage(&fakeStorage{name: "bad", err: errors.New("down")}, seen)

	require.NoError(t, ok.Store(context.Background(), NewEvent("A", "", testArticle("1", "https://x/1", ""), testTime)))
	require.Error(t, failing.Store(context.Background(), NewEvent("A", "", testArticle("2", "https://x/2", ""), testTime)))

	s1, _ := seen.Seen("https://x/1")
	s2, _ := seen.Seen("https://x/2")
	assert.True(t, s1)
	assert.False(t, s2)
	assert.Equal(t, "ok", ok.Name())
}

func TestMultiStorage(t *testing.T) {
	a := &fakeStorage{name: "a"}
	b := &fakeStorage{name: "b", err: errors.New("b failed")}
	c := &fakeStorage{name: "c"}
	m := NewMultiStorage([]Storage{a, b, c}, testLogger)

	err := m.Store(context.Background(), NewEvent("A", "", testArticle("1", "", ""), testTime))
	assert.EqualError(t, err, "b failed")
	assert.Len(t, a.stored, 1)
	assert.Len(t, c.stored, 1, "a failing backend does not stop the others")

	require.NoError(t, m.Close())
	assert.True(t, a.closed && b.closed && c.closed)
}

func TestNewStorage(t *testing.T) {
	cfg := config.DefaultConfig().Storage
	cfg.OutputPath = filepath.Join(t.TempDir(), "events.jsonl")

	s, err := New(context.Background(), &cfg, nil, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "jsonl", s.Name())
	require.NoError(t, s.Close())

	cfg.Backends = []string{"jsonl", "pipeline"}
	cfg.Endpoint = "http://127.0.0.1:1/ingest"
	s, err = New(context.Background(), &cfg, newTestFetcher(t), testLogger)
	require.NoError(t, err)
	assert.Equal(t, "multi", s.Name())
	require.NoError(t, s.Close())

	cfg.Backends = []string{"s3"}
	_, err = New(context.Background(), &cfg, nil, testLogger)
	assert.ErrorContains(t, err, "unsupported storage backend")

	cfg.Backends = nil
	_, err = New(context.Background(), &cfg, nil, testLogger)
	assert.Error(t, err)
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("HKT", 8*3600)
	start, end := DayBounds(time.Date(2025, 6, 19, 17, 30, 0, 0, time.UTC), loc)
	assert.Equal(t, time.Date(2025, 6, 20, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2025, 6, 21, 0, 0, 0, 0, loc), end)
}

func TestSplitDay(t *testing.T) {
	loc := time.FixedZone("HKT", 8*3600)
	day := time.Date(2025, 6, 20, 12, 0, 0, 0, loc)
	events := []*Event{
		NewEvent("A", "", testArticle("1", "", ""), time.Date(2025, 6, 19, 16, 0, 0, 0, time.UTC)), // 20th 00:00 HKT
		NewEvent("A", "", testArticle("2", "", ""), time.Date(2025, 6, 19, 15, 59, 0, 0, time.UTC)),
		NewEvent("A", "", testArticle("3", "", ""), time.Date(2025, 6, 20, 15, 59, 0, 0, time.UTC)),
		nil,
		NewEvent("A", "", testArticle("4", "", ""), time.Date(2025, 6, 20, 16, 0, 0, 0, time.UTC)), // 21st
	}

	on, rest := SplitDay(events, day, loc)
	require.Len(t, on, 2)
	assert.Equal(t, "1", on[0].Payload.ID)
	assert.Equal(t, "3", on[1].Payload.ID)
	require.Len(t, rest, 2)
	assert.Equal(t, "2", rest[0].Payload.ID)
	assert.Equal(t, "4", rest[1].Payload.ID)
}

func TestSelectEventsKeepsEnvelope(t *testing.T) {
	events := []*Event{
		NewEvent("A", "r1", testArticle("1", "https://x/1", "text"), testTime),
		NewEvent("B", "r1", testArticle("2", "https://x/1", "text"), testTime),
	}
	got := SelectEvents(events)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Scraper)
}
