package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// --- JSONL Storage ---

// JSONLStorage appends events as newline-delimited JSON. The file is the
// local event log read back by the cluster and archive commands.
type JSONLStorage struct {
	path   string
	file   *os.File
	enc    *json.Encoder
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewJSONLStorage opens outputPath for appending, creating it if needed.
func NewJSONLStorage(outputPath string, logger *slog.Logger) (*JSONLStorage, error) {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	return &JSONLStorage{
		path:   outputPath,
		file:   f,
		enc:    enc,
		logger: logger.With("component", "jsonl_storage"),
	}, nil
}

func (s *JSONLStorage) Name() string { return "jsonl" }

func (s *JSONLStorage) Store(_ context.Context, ev *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(ev); err != nil {
		return fmt.Errorf("encode JSONL: %w", err)
	}
	s.count++
	return nil
}

func (s *JSONLStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("JSONL written", "path", s.path, "events", s.count)
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// ReadEvents loads every event from a JSONL file. Lines that do not decode
// are skipped and counted in the returned skipped value.
func ReadEvents(path string) (events []*Event, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			skipped++
			continue
		}
		events = append(events, &ev)
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("read event log: %w", err)
	}
	return events, skipped, nil
}

// WriteEvents writes events to path as JSONL, replacing any existing file.
func WriteEvents(path string, events []*Event) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			f.Close()
			return fmt.Errorf("encode JSONL: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush output file: %w", err)
	}
	return f.Close()
}
