package bref

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/tyler180/nba-cap-etl/internal/config"
	"github.com/tyler180/nba-cap-etl/internal/logging"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ErrStatus is wrapped by non-retryable HTTP status failures.
var ErrStatus = errors.New("unexpected http status")

// RetryConfig tunes GetText. Zero values are replaced by defaults.
type RetryConfig struct {
	MaxAttempts int
	Base        time.Duration // base backoff
	Max         time.Duration // cap per-attempt backoff
	Cooldown    time.Duration // used on 429 when no Retry-After
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Base:        time.Second,
		Max:         8 * time.Second,
		Cooldown:    7 * time.Second,
	}
}

func (r RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = d.MaxAttempts
	}
	if r.Base <= 0 {
		r.Base = d.Base
	}
	if r.Max <= 0 {
		r.Max = d.Max
	}
	if r.Cooldown <= 0 {
		r.Cooldown = d.Cooldown
	}
	return r
}

// Client is a rate-limited, retrying HTML/JSON fetcher shared by the scrapers.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Headers   map[string]string
	Limiter   *rate.Limiter
	Retry     RetryConfig
	Logger    *logging.Logger

	// sleep is swapped in tests
	sleep func(context.Context, time.Duration) error
}

func NewClient(timeout time.Duration, rps float64, retry RetryConfig, logger *logging.Logger) *Client {
	var lim *rate.Limiter
	if rps > 0 {
		lim = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		UserAgent: DefaultUserAgent,
		Limiter:   lim,
		Retry:     retry,
		Logger:    logger,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pause waits d unless ctx ends first.
func (c *Client) Pause(ctx context.Context, d time.Duration) error {
	if c.sleep != nil {
		return c.sleep(ctx, d)
	}
	return sleepCtx(ctx, d)
}

func parseRetryAfter(h string) time.Duration {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0
	}
	// seconds form
	if secs, err := strconv.Atoi(h); err == nil {
		return time.Duration(secs) * time.Second
	}
	// HTTP date
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func backoff(attempt int, base, max time.Duration) time.Duration {
	// exponential + jitter, capped
	d := base * time.Duration(1<<attempt)
	j := time.Duration(rand.Intn(250)) * time.Millisecond
	if d+j > max {
		return max
	}
	return d + j
}

// GetText fetches url and retries on transport errors, 429 and 5xx.
// Retry-After is honored on 429; other statuses fail immediately with ErrStatus.
func (c *Client) GetText(ctx context.Context, url, referer string) (string, error) {
	rc := c.Retry.withDefaults()
	var lastErr error

	for attempt := 0; attempt < rc.MaxAttempts; attempt++ {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return "", err
			}
		}
		body, status, hdr, err := c.do(ctx, url, referer)
		switch {
		case err != nil:
			lastErr = err
		case status == http.StatusOK:
			return body, nil
		case status == http.StatusTooManyRequests:
			lastErr = errors.Wrapf(ErrStatus, "status %d for %s", status, url)
			wait := parseRetryAfter(hdr.Get("Retry-After"))
			if wait == 0 {
				wait = rc.Cooldown
			}
			c.Logger.Warn("rate limited", "url", url, "attempt", attempt+1, "wait", wait)
			if attempt < rc.MaxAttempts-1 {
				if err := c.Pause(ctx, wait); err != nil {
					return "", err
				}
			}
			continue
		case status >= 500 && status <= 599:
			lastErr = errors.Wrapf(ErrStatus, "status %d for %s", status, url)
		default:
			return "", errors.Wrapf(ErrStatus, "status %d for %s (body len=%d)", status, url, len(body))
		}

		c.Logger.Warn("fetch attempt failed", "url", url, "attempt", attempt+1, "max_attempts", rc.MaxAttempts, "err", lastErr)
		if attempt < rc.MaxAttempts-1 {
			if err := c.Pause(ctx, backoff(attempt, rc.Base, rc.Max)); err != nil {
				return "", err
			}
		}
	}
	return "", errors.Wrapf(lastErr, "exhausted %d attempts for %s", rc.MaxAttempts, url)
}

func (c *Client) do(ctx context.Context, url, referer string) (string, int, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, nil, err
	}
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", 0, nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, resp.Header, err
	}
	return string(b), resp.StatusCode, resp.Header, nil
}

// RetryConfigFromEnv maps the HTTP_* settings onto a RetryConfig.
func RetryConfigFromEnv(cfg *config.Config) RetryConfig {
	return RetryConfig{
		MaxAttempts: cfg.HTTPMaxAttempts,
		Base:        time.Duration(cfg.HTTPRetryBaseMS) * time.Millisecond,
		Max:         time.Duration(cfg.HTTPRetryMaxMS) * time.Millisecond,
		Cooldown:    time.Duration(cfg.HTTPCooldownMS) * time.Millisecond,
	}
}

// NewClientFromEnv builds the shared scrape client from config.
func NewClientFromEnv(cfg *config.Config, logger *logging.Logger) *Client {
	return NewClient(cfg.HTTPTimeout, cfg.ScrapeRPS, RetryConfigFromEnv(cfg), logger)
}
