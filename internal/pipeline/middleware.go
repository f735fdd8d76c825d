package pipeline

import (
	"strings"
	"sync"
	"time"

	"github.com/IshaanNene/harvestgoat/internal/types"
)

// TodayOnly drops articles dated on a different calendar day than now in
// Location. Undated articles pass.
type TodayOnly struct {
	Location *time.Location
	Now      func() time.Time
}

func (m *TodayOnly) Name() string { return "today_only" }

func (m *TodayOnly) Process(a *types.Article) (*types.Article, error) {
	if a.Date == nil {
		return a, nil
	}
	loc := m.Location
	if loc == nil {
		loc = time.Local
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}

	y1, m1, d1 := a.Date.In(loc).Date()
	y2, m2, d2 := now().In(loc).Date()
	if y1 != y2 || m1 != m2 || d1 != d2 {
		return nil, nil
	}
	return a, nil
}

// RequireExtracted drops HTML articles whose content-diff produced no text.
type RequireExtracted struct{}

func (m *RequireExtracted) Name() string { return "require_extracted" }

func (m *RequireExtracted) Process(a *types.Article) (*types.Article, error) {
	if a.ContentType != types.ContentHTML {
		return a, nil
	}
	if strings.TrimSpace(a.ExtractedText()) == "" {
		return nil, nil
	}
	return a, nil
}

// Dedup drops articles whose key was already seen during this process.
type Dedup struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDedup() *Dedup {
	return &Dedup{seen: make(map[string]struct{})}
}

func (m *Dedup) Name() string { return "dedup" }

func (m *Dedup) Process(a *types.Article) (*types.Article, error) {
	key := a.Key()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.seen[key]; exists {
		return nil, nil
	}
	m.seen[key] = struct{}{}
	return a, nil
}

// SeenChecker reports whether an article key was forwarded by an earlier run.
type SeenChecker interface {
	Seen(key string) (bool, error)
}

// SeenFilter drops articles already forwarded by an earlier run.
type SeenFilter struct {
	Store SeenChecker
}

func (m *SeenFilter) Name() string { return "seen" }

func (m *SeenFilter) Process(a *types.Article) (*types.Article, error) {
	seen, err := m.Store.Seen(a.Key())
	if err != nil {
		return nil, err
	}
	if seen {
		return nil, nil
	}
	return a, nil
}
