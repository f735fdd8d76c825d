package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/harvestgoat/internal/config"
	"github.com/IshaanNene/harvestgoat/internal/pipeline"
	"github.com/IshaanNene/harvestgoat/internal/selector"
	"github.com/IshaanNene/harvestgoat/internal/source"
	"github.com/IshaanNene/harvestgoat/internal/storage"
	"github.com/IshaanNene/harvestgoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeAdapter serves mapping items whose behaviour is driven by their
// "mode" field.
type fakeAdapter struct {
	name        string
	contentType types.ContentType
	items       []*selector.Item
	listErr     error
	delay       func(i int) time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeAdapter(name string, n int) *fakeAdapter {
	a := &fakeAdapter{name: name, contentType: types.ContentPlainText}
	for i := 0; i < n; i++ {
		a.items = append(a.items, selector.Mapping(map[string]any{
			"i":       i,
			"id":      fmt.Sprintf("%s-%d", name, i),
			"title":   fmt.Sprintf("title %d", i),
			"content": fmt.Sprintf("content %d", i),
		}, ""))
	}
	return a
}

func (a *fakeAdapter) setMode(i int, mode string) { a.items[i].Data["mode"] = mode }

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) Descriptor() *source.Descriptor {
	return &source.Descriptor{Name: a.name, ContentType: a.contentType}
}

func (a *fakeAdapter) ListIndex(context.Context) ([]*selector.Item, error) {
	if a.listErr != nil {
		return nil, a.listErr
	}
	return a.items, nil
}

func (a *fakeAdapter) FetchDetail(ctx context.Context, item *selector.Item) (*selector.Item, error) {
	n := a.inFlight.Add(1)
	defer a.inFlight.Add(-1)
	for {
		cur := a.maxInFlight.Load()
		if n <= cur || a.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	if a.delay != nil {
		select {
		case <-time.After(a.delay(item.Data["i"].(int))):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	switch item.Data["mode"] {
	case "fetch_error":
		return nil, &types.FetchError{URL: "https://example.com", StatusCode: 500, Err: errors.New("boom")}
	case "no_detail":
		return nil, nil
	case "fetch_panic":
		panic("detail exploded")
	}
	return item, nil
}

func (a *fakeAdapter) Parse(item *selector.Item) (*types.Article, error) {
	switch item.Data["mode"] {
	case "parse_empty":
		return nil, nil
	case "parse_error":
		return nil, &types.ParseError{Source: a.name, Err: types.ErrWrongItemShape}
	case "parse_panic":
		panic("parse exploded")
	}
	return &types.Article{
		ID:          item.Data["id"].(string),
		Title:       item.Data["title"].(string),
		Content:     item.Data["content"].(string),
		ContentType: a.contentType,
		Category:    types.CategoryNews,
	}, nil
}

func ids(articles []*types.Article) []string {
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = a.ID
	}
	return out
}

func TestHarvestPreservesListingOrder(t *testing.T) {
	a := newFakeAdapter("src", 10)
	// Earlier items finish last.
	a.delay = func(i int) time.Duration { return time.Duration(10-i) * 5 * time.Millisecond }

	res, err := NewHarvester(nil, nil, testLogger).Harvest(context.Background(), a, Options{Concurrency: 4})
	require.NoError(t, err)

	var want []string
	for i := 0; i < 10; i++ {
		want = append(want, fmt.Sprintf("src-%d", i))
	}
	assert.Equal(t, want, ids(res.Articles))
	assert.Equal(t, 10, res.Listed)
	assert.Empty(t, res.Drops)
}

func TestHarvestBoundsConcurrency(t *testing.T) {
	for _, limit := range []int{1, 3, 8} {
		t.Run(fmt.Sprint(limit), func(t *testing.T) {
			a := newFakeAdapter("src", 24)
			a.delay = func(int) time.Duration { return 10 * time.Millisecond }

			res, err := NewHarvester(nil, nil, testLogger).Harvest(context.Background(), a, Options{Concurrency: limit})
			require.NoError(t, err)
			assert.Len(t, res.Articles, 24)
			assert.LessOrEqual(t, int(a.maxInFlight.Load()), limit)
			assert.GreaterOrEqual(t, int(a.maxInFlight.Load()), 1)
		})
	}
}

func TestHarvestZeroConcurrencyMeansOne(t *testing.T) {
	a := newFakeAdapter("src", 5)
	a.delay = func(int) time.Duration { return time.Millisecond }

	res, err := NewHarvester(nil, nil, testLogger).Harvest(context.Background(), a, Options{})
	require.NoError(t, err)
	assert.Len(t, res.Articles, 5)
	assert.Equal(t, int32(1), a.maxInFlight.Load())
}

func TestHarvestIsolatesItemFailures(t *testing.T) {
	a := newFakeAdapter("src", 7)
	a.setMode(1, "fetch_error")
	a.setMode(2, "no_detail")
	a.setMode(3, "fetch_panic")
	a.setMode(4, "parse_empty")
	a.setMode(5, "parse_error")
	a.setMode(6, "parse_panic")

	stats := NewStats()
	res, err := NewHarvester(stats, nil, testLogger).Harvest(context.Background(), a, Options{Concurrency: 3})
	require.NoError(t, err)

	assert.Equal(t, []string{"src-0"}, ids(res.Articles))

	reasons := map[int]string{}
	for _, d := range res.Drops {
		reasons[d.Index] = d.Reason
	}
	assert.Equal(t, map[int]string{
		1: DropFetchFailed,
		2: DropNoDetail,
		3: DropPanic,
		4: DropParseEmpty,
		5: DropParseFailed,
		6: DropPanic,
	}, reasons)

	assert.Equal(t, int64(7), stats.ItemsListed.Load())
	assert.Equal(t, int64(1), stats.ArticlesParsed.Load())
	assert.Equal(t, int64(6), stats.ArticlesDropped.Load())
	assert.Zero(t, stats.ActiveFetches.Load())
}

func TestHarvestListingFailure(t *testing.T) {
	a := newFakeAdapter("broken", 3)
	a.listErr = &types.FetchError{URL: "https://example.com", StatusCode: 503, Err: errors.New("down")}

	res, err := NewHarvester(nil, nil, testLogger).Harvest(context.Background(), a, Options{Concurrency: 2})
	require.Error(t, err)

	var se *types.SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "broken", se.Source)
	assert.Equal(t, "list", se.Stage)
	require.NotNil(t, res)
	assert.Empty(t, res.Articles)
}

func TestHarvestMaxItemsKeepsEarliest(t *testing.T) {
	a := newFakeAdapter("src", 10)

	res, err := NewHarvester(nil, nil, testLogger).Harvest(context.Background(), a, Options{Concurrency: 2, MaxItems: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Listed)
	assert.Equal(t, []string{"src-0", "src-1", "src-2"}, ids(res.Articles))
}

func TestHarvestCancelled(t *testing.T) {
	a := newFakeAdapter("src", 6)
	a.delay = func(int) time.Duration { return time.Second }

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := NewHarvester(nil, nil, testLogger).Harvest(ctx, a, Options{Concurrency: 2})
	require.NoError(t, err)
	assert.Empty(t, res.Articles)
	assert.Len(t, res.Drops, 6)
}

// --- Runner ---

type memoryStorage struct {
	mu      sync.Mutex
	events  []*storage.Event
	tooBig  map[string]bool
	failFor string
}

func (m *memoryStorage) Name() string { return "memory" }

func (m *memoryStorage) Store(_ context.Context, ev *storage.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tooBig[ev.Payload.ID] {
		return &types.StorageError{Backend: "memory", Err: types.ErrPayloadTooLarge}
	}
	if ev.Scraper == m.failFor {
		return &types.StorageError{Backend: "memory", Err: errors.New("endpoint down")}
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *memoryStorage) Close() error { return nil }

func testRunnerConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Harvest.Concurrency = 2
	return cfg
}

func TestRunnerAggregatesFailedSources(t *testing.T) {
	good := newFakeAdapter("good", 3)
	broken := newFakeAdapter("broken", 3)
	broken.listErr = errors.New("index unavailable")
	empty := newFakeAdapter("empty", 0)
	late := newFakeAdapter("late", 2)

	st := &memoryStorage{}
	r := NewRunner(testRunnerConfig(), st, nil, nil, testLogger)

	report, err := r.Run(context.Background(), []source.Adapter{good, broken, empty, late})
	require.Error(t, err)

	var runErr *types.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, []string{"broken", "empty"}, runErr.Sources)
	assert.ErrorIs(t, err, types.ErrNoArticles)
	assert.Contains(t, err.Error(), "broken, empty")

	// Sources after a failure still run.
	require.Len(t, report.Sources, 4)
	assert.Equal(t, 3, report.Sources[0].Forwarded)
	assert.Equal(t, 2, report.Sources[3].Forwarded)
	assert.NotEmpty(t, report.RunID)

	require.Len(t, st.events, 5)
	for _, ev := range st.events {
		assert.Equal(t, storage.EventScraping, ev.Event)
		assert.Equal(t, report.RunID, ev.RunID)
	}
	assert.Equal(t, "good", st.events[0].Scraper)

	ss, ok := r.Stats().Source("broken")
	require.True(t, ok)
	assert.True(t, ss.Failed)
	assert.Equal(t, int64(2), r.Stats().SourcesFailed.Load())
}

func TestRunnerExtractsHTMLSources(t *testing.T) {
	a := newFakeAdapter("html", 3)
	a.contentType = types.ContentHTML
	for i, it := range a.items {
		it.Data["content"] = fmt.Sprintf("<body><p>Shared</p><p>Story %d</p></body>", i)
	}

	st := &memoryStorage{}
	_, err := NewRunner(testRunnerConfig(), st, nil, nil, testLogger).Run(context.Background(), []source.Adapter{a})
	require.NoError(t, err)

	require.Len(t, st.events, 3)
	for i, ev := range st.events {
		assert.Equal(t, fmt.Sprintf("Story %d", i), ev.Payload.ExtractedText())
	}
}

func TestRunnerSkipsExtractionForPlainText(t *testing.T) {
	st := &memoryStorage{}
	_, err := NewRunner(testRunnerConfig(), st, nil, nil, testLogger).Run(context.Background(), []source.Adapter{newFakeAdapter("tg", 2)})
	require.NoError(t, err)
	require.Len(t, st.events, 2)
	assert.Nil(t, st.events[0].Payload.Extracted)
}

func TestRunnerDropsOversizedAndFiltered(t *testing.T) {
	a := newFakeAdapter("src", 4)
	a.items[3].Data["id"] = "src-0" // duplicate of the first article

	st := &memoryStorage{tooBig: map[string]bool{"src-1": true}}
	mw := pipeline.New(testLogger)
	mw.Use(pipeline.NewDedup())

	report, err := NewRunner(testRunnerConfig(), st, mw, nil, testLogger).Run(context.Background(), []source.Adapter{a})
	require.NoError(t, err, "oversized payloads do not fail the source")

	assert.Equal(t, []string{"src-0", "src-2"}, []string{st.events[0].Payload.ID, st.events[1].Payload.ID})
	assert.Equal(t, 2, report.Sources[0].Forwarded)
	assert.Equal(t, 2, report.Sources[0].Dropped)
}

func TestRunnerStorageFailureFailsSource(t *testing.T) {
	st := &memoryStorage{failFor: "down"}
	_, err := NewRunner(testRunnerConfig(), st, nil, nil, testLogger).Run(context.Background(), []source.Adapter{
		newFakeAdapter("down", 2),
		newFakeAdapter("up", 1),
	})

	var runErr *types.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, []string{"down"}, runErr.Sources)
	var se *types.SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "store", se.Stage)
	assert.Len(t, st.events, 1)
}

func TestRunnerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := &memoryStorage{}
	report, err := NewRunner(testRunnerConfig(), st, nil, nil, testLogger).Run(ctx, []source.Adapter{newFakeAdapter("a", 1)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Sources)
	assert.Empty(t, st.events)
}

func TestRunEveryStopsWithContext(t *testing.T) {
	st := &memoryStorage{}
	r := NewRunner(testRunnerConfig(), st, nil, nil, testLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	require.NoError(t, r.RunEvery(ctx, []source.Adapter{newFakeAdapter("a", 1)}, 50*time.Millisecond))
	assert.GreaterOrEqual(t, r.Stats().SourcesRun.Load(), int64(2))
}
