package fetcher

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/IshaanNene/harvestgoat/internal/config"
	"github.com/IshaanNene/harvestgoat/internal/observability"
	"github.com/IshaanNene/harvestgoat/internal/types"
)

// HTTPFetcher implements Fetcher using net/http.
type HTTPFetcher struct {
	client     *http.Client
	cfg        *config.FetcherConfig
	metrics    *observability.Metrics
	logger     *slog.Logger
	userAgents []string
	uaIndex    atomic.Int64

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithMetrics records every fetch in m.
func WithMetrics(m *observability.Metrics) HTTPOption {
	return func(f *HTTPFetcher) { f.metrics = m }
}

// NewHTTPFetcher creates a new HTTP fetcher.
func NewHTTPFetcher(cfg *config.FetcherConfig, logger *slog.Logger, opts ...HTTPOption) (*HTTPFetcher, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: max(cfg.MaxIdleConns/2, 1),
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.TLSInsecure,
		},
		DisableCompression: true, // We handle decompression ourselves (including brotli)
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if len(via) >= cfg.MaxRedirects {
			return fmt.Errorf("max redirects (%d) reached", cfg.MaxRedirects)
		}
		return nil
	}

	f := &HTTPFetcher{
		client: &http.Client{
			Transport:     transport,
			Jar:           jar,
			CheckRedirect: redirectPolicy,
		},
		cfg:        cfg,
		logger:     logger.With("component", "http_fetcher"),
		userAgents: cfg.UserAgents,
		limiters:   make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Fetch executes an HTTP request and returns the response. Any status of 400
// or above is an error; 429 and 5xx are marked retryable.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	timeout := f.cfg.RequestTimeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := f.wait(ctx, req.Domain()); err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URLString(), body)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: false}
	}

	httpReq.Header.Set("User-Agent", f.nextUserAgent())
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "zh-HK,zh;q=0.9,en;q=0.8")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")

	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Set(key, v)
		}
	}

	start := time.Now()
	resp, err := f.do(httpReq, req)
	duration := time.Since(start)

	size := 0
	if resp != nil {
		size = len(resp.Body)
	}
	f.metrics.ObserveFetch(f.Type(), duration, size, err)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("fetch complete",
		"url", req.URLString(),
		"source", req.Source,
		"status", resp.StatusCode,
		"size", size,
		"duration", duration,
	)
	return resp, nil
}

func (f *HTTPFetcher) do(httpReq *http.Request, req *types.Request) (*types.Response, error) {
	start := time.Now()
	httpResp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, &types.FetchError{
			URL:       req.URLString(),
			Err:       err,
			Retryable: isRetryableError(err),
		}
	}
	defer httpResp.Body.Close()

	// Handle 429 Too Many Requests, respecting Retry-After if present
	if httpResp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(httpResp.Header.Get("Retry-After"))
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, &types.FetchError{
			URL:        req.URLString(),
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("HTTP 429: rate limited (retry after %s): %s", retryAfter, strings.TrimSpace(string(snippet))),
			Retryable:  true,
			RetryAfter: retryAfter,
		}
	}
	if httpResp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 1024))
		return nil, &types.FetchError{
			URL:        req.URLString(),
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, strings.TrimSpace(string(snippet))),
			Retryable:  httpResp.StatusCode >= 500,
		}
	}

	var reader io.Reader = httpResp.Body
	if f.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, f.cfg.MaxBodySize)
	}

	reader, err = decompressReader(httpResp, reader)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: false}
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: true}
	}
	body, err = decodeCharset(httpResp.Header.Get("Content-Type"), body)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: false}
	}

	return types.NewResponse(req, httpResp, body, time.Since(start)), nil
}

// Close releases resources.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// Type returns the fetcher type identifier.
func (f *HTTPFetcher) Type() string {
	return "http"
}

// wait blocks until the per-host limiter admits another request.
func (f *HTTPFetcher) wait(ctx context.Context, host string) error {
	if f.cfg.RateLimit <= 0 || host == "" {
		return nil
	}
	f.limMu.Lock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(f.cfg.RateLimit), max(f.cfg.RateBurst, 1))
		f.limiters[host] = lim
	}
	f.limMu.Unlock()
	return lim.Wait(ctx)
}

// nextUserAgent returns the next User-Agent in rotation.
func (f *HTTPFetcher) nextUserAgent() string {
	if len(f.userAgents) == 0 {
		return "HarvestGoat/" + config.Version
	}
	idx := f.uaIndex.Add(1) % int64(len(f.userAgents))
	return f.userAgents[idx]
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// decodeCharset converts textual bodies to UTF-8. Several sources still
// serve Big5. Bodies that are already valid UTF-8 are kept as is unless the
// server or the document declares another charset.
func decodeCharset(contentType string, body []byte) ([]byte, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil && (mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")) {
		return body, nil
	}
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || (!certain && utf8.Valid(body) && name == "windows-1252") {
		return body, nil
	}
	return enc.NewDecoder().Bytes(body)
}

// isRetryableError checks if a network error warrants a retry.
// Covers timeouts, connection resets, unexpected EOF, and connection refused.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	// A per-request timeout is transient; the caller's own deadline is checked by the retry loop.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNRESET) ||
			errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return true
		}
	}
	return false
}

// parseRetryAfter parses the Retry-After header value.
// Supports both integer seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second // default back-off
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil {
		if secs > 120 {
			secs = 120 // cap at 2 minutes
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		d := time.Until(t)
		if d < 0 {
			return time.Second
		}
		if d > 2*time.Minute {
			return 2 * time.Minute
		}
		return d
	}
	return 5 * time.Second
}
