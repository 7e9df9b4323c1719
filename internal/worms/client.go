package worms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL            = "https://www.marinespecies.org/rest"
	DefaultRateLimitPerMinute = 180

	recordByIDPath   = "/AphiaRecordByAphiaID/"
	matchNamesPath   = "/AphiaRecordsByMatchNames"
	maxResponseBytes = 4 << 20
)

type Config struct {
	BaseURL            string
	RateLimitPerMinute int
	HTTPClient         *http.Client
}

// Client talks to the WoRMS REST API. It rate-limits itself and retries
// transient failures; callers see either a parsed result or a final error.
type Client struct {
	cfg     Config
	limiter <-chan time.Time
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = DefaultRateLimitPerMinute
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	interval := time.Minute / time.Duration(cfg.RateLimitPerMinute)
	ticker := time.NewTicker(interval)
	return &Client{cfg: cfg, limiter: ticker.C}
}

// AphiaRecordByID fetches the full record for a single AphiaID. The outcome
// separates "no such record" from transport failure; neither is fatal to a
// resolution run.
func (c *Client) AphiaRecordByID(ctx context.Context, id int64) FetchOutcome {
	body, status, err := c.getWithRetry(ctx, recordByIDPath+strconv.FormatInt(id, 10), nil)
	if err != nil {
		if status == http.StatusNotFound {
			return FetchOutcome{NotFound: true}
		}
		return FetchOutcome{Err: err}
	}
	if status == http.StatusNoContent || len(body) == 0 {
		return FetchOutcome{NotFound: true}
	}
	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return FetchOutcome{Err: fmt.Errorf("decode AphiaID %d: %w", id, err)}
	}
	return FetchOutcome{Record: &rec}
}

// MatchNames performs a fuzzy batch match. The outer slice is aligned with
// the input names; each inner slice holds that name's candidate records in
// the order the backbone returned them (possibly empty).
func (c *Client) MatchNames(ctx context.Context, names []string) ([][]Record, error) {
	if len(names) == 0 {
		return nil, nil
	}
	q := url.Values{}
	for _, name := range names {
		q.Add("scientificnames[]", name)
	}
	q.Set("marine_only", "false")
	body, status, err := c.getWithRetry(ctx, matchNamesPath, q)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent || len(body) == 0 {
		return make([][]Record, len(names)), nil
	}
	var matches [][]Record
	if err := json.Unmarshal(body, &matches); err != nil {
		return nil, fmt.Errorf("decode match response: %w", err)
	}
	// WoRMS omits trailing entries when the last names have no candidates.
	for len(matches) < len(names) {
		matches = append(matches, nil)
	}
	return matches, nil
}

func (c *Client) waitRateLimit(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.limiter:
		return nil
	}
}

func (c *Client) getWithRetry(ctx context.Context, path string, query url.Values) ([]byte, int, error) {
	if err := c.waitRateLimit(ctx); err != nil {
		return nil, 0, err
	}
	var lastErr error
	statusCode := 0
	for attempt := 1; attempt <= 4; attempt++ {
		body, code, retryAfter, err := c.getOnce(ctx, path, query)
		statusCode = code
		if err == nil {
			return body, statusCode, nil
		}
		lastErr = err

		if code == http.StatusNotFound || code == http.StatusBadRequest {
			return nil, statusCode, err
		}
		if code == http.StatusTooManyRequests || code >= 500 || isTimeoutError(err) {
			if attempt == 4 {
				break
			}
			sleep := retryAfter
			if sleep <= 0 {
				sleep = backoffDelay(attempt)
			}
			if err := sleepCtx(ctx, sleep); err != nil {
				return nil, statusCode, err
			}
			continue
		}
		return nil, statusCode, err
	}
	return nil, statusCode, lastErr
}

func (c *Client) getOnce(ctx context.Context, path string, query url.Values) ([]byte, int, time.Duration, error) {
	target := c.cfg.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, 0, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, 0, err
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))

	retryAfter := parseRetryAfter(res.Header.Get("Retry-After"))
	if res.StatusCode >= 400 {
		return nil, res.StatusCode, retryAfter, fmt.Errorf("worms %s status=%d", path, res.StatusCode)
	}
	return b, res.StatusCode, retryAfter, nil
}

func backoffDelay(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func parseRetryAfter(v string) time.Duration {
	if strings.TrimSpace(v) == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
