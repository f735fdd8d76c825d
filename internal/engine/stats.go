package engine

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Stats tracks harvest statistics across runs of one process.
type Stats struct {
	SourcesRun      atomic.Int64
	SourcesFailed   atomic.Int64
	ItemsListed     atomic.Int64
	DetailsFetched  atomic.Int64
	ArticlesParsed  atomic.Int64
	ArticlesDropped atomic.Int64
	ArticlesStored  atomic.Int64
	ActiveFetches   atomic.Int32
	StartTime       time.Time
	mu              sync.RWMutex
	sourceStats     map[string]*SourceStats
}

// SourceStats tracks the most recent run of one source.
type SourceStats struct {
	Listed   int
	Parsed   int
	Stored   int
	Dropped  int
	Failed   bool
	LastRun  time.Time
	Duration time.Duration
}

// NewStats creates an empty Stats.
func NewStats() *Stats {
	return &Stats{
		StartTime:   time.Now(),
		sourceStats: make(map[string]*SourceStats),
	}
}

func (s *Stats) updateSource(name string, fn func(*SourceStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.sourceStats[name]
	if !ok {
		ss = &SourceStats{}
		s.sourceStats[name] = ss
	}
	fn(ss)
}

// Source returns a copy of the stats for one source.
func (s *Stats) Source(name string) (SourceStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ss, ok := s.sourceStats[name]
	if !ok {
		return SourceStats{}, false
	}
	return *ss, true
}

// Sources lists the source names seen so far.
func (s *Stats) Sources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.sourceStats))
	for name := range s.sourceStats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of stats safe for reading.
func (s *Stats) Snapshot() map[string]any {
	return map[string]any{
		"sources_run":      s.SourcesRun.Load(),
		"sources_failed":   s.SourcesFailed.Load(),
		"items_listed":     s.ItemsListed.Load(),
		"details_fetched":  s.DetailsFetched.Load(),
		"articles_parsed":  s.ArticlesParsed.Load(),
		"articles_dropped": s.ArticlesDropped.Load(),
		"articles_stored":  s.ArticlesStored.Load(),
		"active_fetches":   s.ActiveFetches.Load(),
		"elapsed":          time.Since(s.StartTime).String(),
	}
}
