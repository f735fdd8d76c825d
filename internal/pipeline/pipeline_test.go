package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/IshaanNene/harvestgoat/internal/config"
	"github.com/IshaanNene/harvestgoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func article(id string) *types.Article {
	return &types.Article{
		ID:          id,
		Title:       "title " + id,
		Content:     "<p>body</p>",
		ContentType: types.ContentHTML,
		Category:    types.CategoryNews,
	}
}

func TestPipelineBasic(t *testing.T) {
	p := New(testLogger)
	p.Use(NewDedup())
	p.Use(&RequireExtracted{})

	a := article("1").WithExtracted("text")
	got, stage, err := p.Process(a)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if got != a || stage != "" {
		t.Errorf("expected article to pass unchanged, got %v (stage %q)", got, stage)
	}

	// Second time round the dedup stage drops it.
	got, stage, err = p.Process(a)
	if err != nil || got != nil {
		t.Fatalf("expected duplicate to be dropped, got %v, %v", got, err)
	}
	if stage != "dedup" {
		t.Errorf("expected drop stage dedup, got %q", stage)
	}
	if p.Len() != 2 {
		t.Errorf("expected 2 middlewares, got %d", p.Len())
	}
}

func TestRequireExtracted(t *testing.T) {
	m := &RequireExtracted{}

	if got, _ := m.Process(article("1")); got != nil {
		t.Error("html article without extracted text should be dropped")
	}
	if got, _ := m.Process(article("2").WithExtracted("  \n")); got != nil {
		t.Error("blank extracted text should be dropped")
	}
	if got, _ := m.Process(article("3").WithExtracted("new text")); got == nil {
		t.Error("article with extracted text should pass")
	}

	plain := article("4")
	plain.ContentType = types.ContentPlainText
	if got, _ := m.Process(plain); got == nil {
		t.Error("plain text articles are never diffed and should pass")
	}
}

func TestTodayOnly(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Hong_Kong")
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2025, 6, 20, 0, 30, 0, 0, loc)
	m := &TodayOnly{Location: loc, Now: func() time.Time { return now }}

	tests := []struct {
		name string
		date *time.Time
		keep bool
	}{
		{"undated", nil, true},
		{"same day", ptr(time.Date(2025, 6, 20, 23, 59, 0, 0, loc)), true},
		// 2025-06-19 17:00 UTC is already the 20th in Hong Kong.
		{"same day other zone", ptr(time.Date(2025, 6, 19, 17, 0, 0, 0, time.UTC)), true},
		{"yesterday", ptr(time.Date(2025, 6, 19, 23, 59, 0, 0, loc)), false},
		{"last year", ptr(time.Date(2024, 6, 20, 12, 0, 0, 0, loc)), false},
	}
	for _, tt := range tests {
		a := article(tt.name)
		a.Date = tt.date
		got, err := m.Process(a)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if (got != nil) != tt.keep {
			t.Errorf("%s: keep = %v, want %v", tt.name, got != nil, tt.keep)
		}
	}
}

type fakeSeen map[string]bool

func (f fakeSeen) Seen(key string) (bool, error) {
	if key == "boom" {
		return false, errors.New("store unavailable")
	}
	return f[key], nil
}

func TestSeenFilter(t *testing.T) {
	p := New(testLogger)
	p.Use(&SeenFilter{Store: fakeSeen{"https://example.com/old": true}})

	old := article("1")
	u := "https://example.com/old"
	old.URL = &u
	if got, stage, _ := p.Process(old); got != nil || stage != "seen" {
		t.Errorf("seen article should be dropped at stage seen, got %v %q", got, stage)
	}

	if got, _, _ := p.Process(article("fresh")); got == nil {
		t.Error("unseen article should pass")
	}

	_, _, err := p.Process(article("boom"))
	var pe *types.PipelineError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PipelineError, got %v", err)
	}
	if pe.Stage != "seen" || pe.ArticleID != "boom" {
		t.Errorf("unexpected error details: %+v", pe)
	}
}

func ptr(t time.Time) *time.Time { return &t }

func TestBuild(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Extract.RequireExtracted = true

	p, err := Build(cfg, fakeSeen{}, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 4 {
		t.Errorf("expected 4 middlewares, got %d", p.Len())
	}

	cfg.Harvest.TodayOnly = false
	cfg.Extract.RequireExtracted = false
	p, err = Build(cfg, nil, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 1 {
		t.Errorf("expected only dedup, got %d middlewares", p.Len())
	}

	cfg.Harvest.TodayOnly = true
	cfg.Harvest.Timezone = "Nowhere/Special"
	if _, err := Build(cfg, nil, testLogger); err == nil {
		t.Error("expected an error for an unknown timezone")
	}
}
