package materialize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// MinBodySize is the smallest response accepted when the server does not
// label it as an image.
const MinBodySize = 100

// ErrNotImage is returned for responses that are neither labelled as an
// image nor large enough to be one.
var ErrNotImage = errors.New("materialize: not an image or empty response")

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Downloader fetches icon images over HTTP at a bounded request rate.
type Downloader struct {
	http    *resty.Client
	limiter *rate.Limiter
}

// DownloaderOption configures a [Downloader].
type DownloaderOption func(*downloaderConfig)

type downloaderConfig struct {
	userAgent string
	timeout   time.Duration
	retries   int
	retryWait time.Duration
	rps       float64
	transport http.RoundTripper
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) DownloaderOption {
	return func(c *downloaderConfig) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRequestTimeout bounds a single request. Defaults to 30 seconds.
func WithRequestTimeout(d time.Duration) DownloaderOption {
	return func(c *downloaderConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetries sets how often a failed request is retried and the wait
// between attempts. Defaults to 2 retries, 500ms apart.
func WithRetries(n int, wait time.Duration) DownloaderOption {
	return func(c *downloaderConfig) {
		if n >= 0 {
			c.retries = n
		}
		if wait >= 0 {
			c.retryWait = wait
		}
	}
}

// WithRateLimit caps requests per second. Zero or less disables the cap.
func WithRateLimit(rps float64) DownloaderOption {
	return func(c *downloaderConfig) {
		c.rps = rps
	}
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) DownloaderOption {
	return func(c *downloaderConfig) {
		c.transport = rt
	}
}

// NewDownloader creates a Downloader.
func NewDownloader(opts ...DownloaderOption) *Downloader {
	cfg := downloaderConfig{
		userAgent: defaultUserAgent,
		timeout:   30 * time.Second,
		retries:   2,
		retryWait: 500 * time.Millisecond,
		rps:       5,
	}
	for _, o := range opts {
		o(&cfg)
	}

	client := resty.New()
	client.SetHeader("User-Agent", cfg.userAgent)
	client.SetHeader("Accept", "image/png,image/*;q=0.9,*/*;q=0.5")
	client.SetTimeout(cfg.timeout)
	client.SetRetryCount(cfg.retries)
	client.SetRetryWaitTime(cfg.retryWait)
	client.SetRetryMaxWaitTime(cfg.retryWait * 4)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		code := r.StatusCode()
		return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	})
	if cfg.transport != nil {
		client.SetTransport(cfg.transport)
	}

	d := &Downloader{http: client}
	if cfg.rps > 0 {
		burst := int(cfg.rps)
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(cfg.rps), burst)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return d.limiter.Wait(req.Context())
		})
	}
	return d
}

// Fetch downloads the body at url. A response that is neither an image
// content type nor at least [MinBodySize] bytes returns [ErrNotImage].
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := d.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("materialize: fetching %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("materialize: fetching %s: %s", url, resp.Status())
	}

	body := resp.Body()
	contentType := resp.Header().Get("Content-Type")
	if !strings.Contains(contentType, "image") && len(body) < MinBodySize {
		return nil, fmt.Errorf("%w: %d bytes of %q", ErrNotImage, len(body), contentType)
	}
	return body, nil
}
