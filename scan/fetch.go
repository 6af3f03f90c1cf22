package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// ErrFetchFailed marks an unrecovered page-fetch failure. It maps to a 500 at
// the HTTP surface.
var ErrFetchFailed = errors.New("failed to fetch URL content")

// Fetcher retrieves the HTML text of a page, or fails.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

const (
	fetchUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
	maxFetchBody    = 2 << 20 // 2 MiB is plenty for markup analysis
	defaultFetchTTL = 7 * time.Second
)

// PageFetcher fetches pages over plain HTTP first and optionally falls back
// to a headless-Chrome render for pages whose markup is built entirely by
// script.
type PageFetcher struct {
	Timeout       time.Duration
	AllowRendered bool
	// MaxJitter adds a random politeness delay before the request when set.
	MaxJitter time.Duration
	Log       logrus.FieldLogger
}

// NewPageFetcher builds a fetcher with the standard timeout. The rendered
// fallback is enabled unless SKIP_CHROMEDP=true (headless Chrome is not
// available in every deployment).
func NewPageFetcher(log logrus.FieldLogger) *PageFetcher {
	return &PageFetcher{
		Timeout:       defaultFetchTTL,
		AllowRendered: os.Getenv("SKIP_CHROMEDP") != "true",
		Log:           log,
	}
}

// Fetch returns the page HTML. A non-2xx/3xx status, transport error or
// timeout is a fetch failure; no retries are attempted.
func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if f.MaxJitter > 0 {
		if err := sleepJitter(ctx, f.MaxJitter); err != nil {
			return "", err
		}
	}

	htmlText, err := f.fetchStatic(ctx, rawURL)
	if err == nil {
		return htmlText, nil
	}

	if f.AllowRendered {
		f.Log.WithField("url", rawURL).Debug("static fetch failed, trying rendered fetch")
		if rendered, rerr := f.fetchRendered(ctx, rawURL); rerr == nil {
			return rendered, nil
		}
	}
	return "", err
}

func (f *PageFetcher) fetchStatic(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	client := &http.Client{Timeout: f.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: status %s", ErrFetchFailed, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBody))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	return string(body), nil
}

// fetchRendered loads the page in headless Chrome and returns the rendered
// markup. Used only as a fallback; failures here never mask the original
// static-fetch error.
func (f *PageFetcher) fetchRendered(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.UserAgent(fetchUserAgent),
	)
	if chromePath := os.Getenv("CHROME_PATH"); chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var htmlContent string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &htmlContent),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	return htmlContent, nil
}

// sleepJitter waits a random duration up to max, honoring cancellation.
func sleepJitter(ctx context.Context, max time.Duration) error {
	delay := time.Duration(rand.Int63n(int64(max)))
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
