// Package ocds fetches Open Contracting Data Standard release packages from a
// procurement portal and maps tender releases onto the tender model.
//
// The client pages through GET {base}/api/OCDSReleases with a date window.
// Transient failures (network errors, 5xx, 429) are retried with exponential
// backoff; any other non-200 answer fails the page immediately.
package ocds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultPageSize is used when the client is created with a non-positive page size.
const DefaultPageSize = 50

// dateLayout is the format of the dateFrom/dateTo query parameters.
const dateLayout = "2006-01-02"

// Client pulls release packages from an OCDS API
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	PageSize   int
	// MaxElapsed bounds the retries of one page request.
	MaxElapsed time.Duration

	newBackOff func() backoff.BackOff
}

// NewClient creates a new OCDS client
func NewClient(baseURL string, pageSize int, timeout time.Duration) *Client {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		PageSize:   pageSize,
		MaxElapsed: 2 * time.Minute,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
}

// StatusError is a non-200 answer from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ocds request failed with status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func (c *Client) pageURL(page int, from, to time.Time) string {
	q := url.Values{}
	q.Set("PageNumber", strconv.Itoa(page))
	q.Set("PageSize", strconv.Itoa(c.PageSize))
	q.Set("dateFrom", from.UTC().Format(dateLayout))
	q.Set("dateTo", to.UTC().Format(dateLayout))
	return c.BaseURL + "/api/OCDSReleases?" + q.Encode()
}

// FetchPage returns one page of releases published between from and to.
// Pages are numbered from 1.
func (c *Client) FetchPage(ctx context.Context, page int, from, to time.Time) (*ReleasePackage, error) {
	target := c.pageURL(page, from, to)

	pkg, err := backoff.Retry(ctx, func() (*ReleasePackage, error) {
		return c.get(ctx, target)
	},
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxElapsedTime(c.MaxElapsed),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch releases page %d: %w", page, err)
	}
	return pkg, nil
}

func (c *Client) get(ctx context.Context, target string) (*ReleasePackage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		serr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		if !serr.retryable() {
			return nil, backoff.Permanent(serr)
		}
		if secs, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil && secs > 0 {
			return nil, backoff.RetryAfter(secs)
		}
		return nil, serr
	}

	var pkg ReleasePackage
	if err := json.NewDecoder(resp.Body).Decode(&pkg); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to decode release package: %w", err))
	}
	return &pkg, nil
}

// FetchAll walks pages from 1 until a short page, an empty page or maxPages
// (0 means no limit), handing each page's releases to fn.
func (c *Client) FetchAll(ctx context.Context, from, to time.Time, maxPages int, fn func([]Release) error) error {
	for page := 1; maxPages <= 0 || page <= maxPages; page++ {
		pkg, err := c.FetchPage(ctx, page, from, to)
		if err != nil {
			return err
		}
		if len(pkg.Releases) == 0 {
			return nil
		}
		if err := fn(pkg.Releases); err != nil {
			return err
		}
		if len(pkg.Releases) < c.PageSize {
			return nil
		}
	}
	return nil
}
