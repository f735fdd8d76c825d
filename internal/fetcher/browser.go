package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/harvestgoat/internal/config"
	"github.com/IshaanNene/harvestgoat/internal/observability"
	"github.com/IshaanNene/harvestgoat/internal/types"
)

// BrowserFetcher renders pages in headless Chromium via Rod. Sources whose
// listing is built client-side set fetcher: browser in their descriptor.
type BrowserFetcher struct {
	browser  *rod.Browser
	cfg      *config.FetcherConfig
	metrics  *observability.Metrics
	logger   *slog.Logger
	pagePool chan *rod.Page
}

// NewBrowserFetcher launches a browser and connects to it.
func NewBrowserFetcher(cfg *config.FetcherConfig, metrics *observability.Metrics, logger *slog.Logger) (*BrowserFetcher, error) {
	bf := &BrowserFetcher{
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger.With("component", "browser_fetcher"),
		pagePool: make(chan *rod.Page, max(cfg.Browser.MaxPages, 1)),
	}

	launchURL, err := bf.launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	bf.browser = browser

	bf.logger.Info("browser fetcher ready",
		"max_pages", cap(bf.pagePool),
		"stealth", cfg.Browser.Stealth,
	)
	return bf, nil
}

func (bf *BrowserFetcher) launch() (string, error) {
	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	if dir := bf.cfg.Browser.UserDataDir; dir != "" {
		l = l.UserDataDir(dir)
	}
	return l.Launch()
}

// Fetch navigates to the request URL and returns the rendered document.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	start := time.Now()

	pooled, err := bf.getPage()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: true}
	}
	defer bf.putPage(pooled)
	page := pooled.Context(ctx)

	if ua := req.Headers.Get("User-Agent"); ua != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
			bf.logger.Warn("failed to set user agent", "error", err)
		}
	}
	if len(req.Headers) > 0 {
		headers := make([]string, 0, len(req.Headers)*2)
		for k, vals := range req.Headers {
			if k == "User-Agent" {
				continue
			}
			for _, v := range vals {
				headers = append(headers, k, v)
			}
		}
		if len(headers) > 0 {
			_, _ = page.SetExtraHeaders(headers)
		}
	}

	timeout := bf.cfg.RequestTimeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	if err := page.Timeout(timeout).Navigate(req.URLString()); err != nil {
		bf.metrics.ObserveFetch(bf.Type(), time.Since(start), 0, err)
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: true}
	}
	if err := page.Timeout(timeout).WaitStable(bf.cfg.Browser.WaitStable); err != nil {
		bf.logger.Warn("page stability timeout, continuing", "url", req.URLString(), "error", err)
	}

	html, err := page.HTML()
	if err != nil {
		bf.metrics.ObserveFetch(bf.Type(), time.Since(start), 0, err)
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: true}
	}

	finalURL := req.URLString()
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	duration := time.Since(start)
	bf.metrics.ObserveFetch(bf.Type(), duration, len(html), nil)
	bf.logger.Debug("browser fetch complete",
		"url", req.URLString(),
		"final_url", finalURL,
		"size", len(html),
		"duration", duration,
	)
	return types.NewBrowserResponse(req, []byte(html), finalURL, duration), nil
}

// Close shuts down the browser.
func (bf *BrowserFetcher) Close() error {
	close(bf.pagePool)
	for page := range bf.pagePool {
		_ = page.Close()
	}
	if bf.browser != nil {
		return bf.browser.Close()
	}
	return nil
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}

func (bf *BrowserFetcher) getPage() (*rod.Page, error) {
	select {
	case page := <-bf.pagePool:
		return page, nil
	default:
	}
	if bf.cfg.Browser.Stealth {
		return stealth.Page(bf.browser)
	}
	return bf.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
}

func (bf *BrowserFetcher) putPage(page *rod.Page) {
	_ = page.Navigate("about:blank")
	select {
	case bf.pagePool <- page:
	default:
		_ = page.Close()
	}
}
