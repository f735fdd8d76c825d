package fetcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/IshaanNene/harvestgoat/internal/types"
)

// Router dispatches requests to a fetcher by Request.FetcherType.
type Router struct {
	fetchers map[string]Fetcher
	fallback string
}

// NewRouter creates a router that sends untyped requests to fallback.
func NewRouter(fallback Fetcher, others ...Fetcher) *Router {
	r := &Router{
		fetchers: map[string]Fetcher{fallback.Type(): fallback},
		fallback: fallback.Type(),
	}
	for _, f := range others {
		r.fetchers[f.Type()] = f
	}
	return r
}

// Fetch implements Fetcher.
func (r *Router) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	kind := req.FetcherType
	if kind == "" {
		kind = r.fallback
	}
	f, ok := r.fetchers[kind]
	if !ok {
		return nil, &types.FetchError{URL: req.URLString(), Err: fmt.Errorf("%w: %q", types.ErrNoFetcher, kind)}
	}
	return f.Fetch(ctx, req)
}

// Close closes every registered fetcher.
func (r *Router) Close() error {
	var errs []error
	for _, f := range r.fetchers {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Type returns the fetcher type identifier.
func (r *Router) Type() string { return "router" }
