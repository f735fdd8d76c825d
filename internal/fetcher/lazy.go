package fetcher

import (
	"context"
	"sync"

	"github.com/IshaanNene/harvestgoat/internal/types"
)

// Lazy defers building a fetcher until its first request. The browser
// fetcher uses it so runs without browser sources never start Chromium.
type Lazy struct {
	kind  string
	build func() (Fetcher, error)

	mu  sync.Mutex
	f   Fetcher
	err error
}

// NewLazy creates a fetcher of the given type backed by build.
func NewLazy(kind string, build func() (Fetcher, error)) *Lazy {
	return &Lazy{kind: kind, build: build}
}

func (l *Lazy) get() (Fetcher, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil && l.err == nil {
		l.f, l.err = l.build()
	}
	return l.f, l.err
}

// Fetch builds the underlying fetcher on first use. A failed build is
// remembered and returned for every later request.
func (l *Lazy) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	f, err := l.get()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}
	return f.Fetch(ctx, req)
}

// Close closes the underlying fetcher if it was built.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	return l.f.Close()
}

func (l *Lazy) Type() string { return l.kind }
