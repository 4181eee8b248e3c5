// Package gbif is a minimal client for the GBIF REST API.
package gbif

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the public GBIF API endpoint.
const DefaultBaseURL = "https://api.gbif.org"

// MaxPageSize is the largest page the occurrence search serves in a
// single request. Larger limits are capped, not paginated.
const MaxPageSize = 300

var (
	// ErrInvalidTaxonKey reports a taxon key unknown to the backbone taxonomy.
	ErrInvalidTaxonKey = errors.New("gbif: invalid taxon key")

	// ErrSourceUnavailable reports that the GBIF service could not be reached
	// or answered with a server error after retries.
	ErrSourceUnavailable = errors.New("gbif: source unavailable")
)

// Client issues read-only requests against the GBIF API.
type Client struct {
	baseURL string
	session *http.Client
}

// NewClient builds a Client around the given HTTP client.
// An empty baseURL selects the public API.
func NewClient(baseURL string, session *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if session == nil {
		session = &http.Client{Timeout: 15 * time.Second}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
	}
}

type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

func (c *Client) newRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &statusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// doWithRetry retries transient failures (network errors, 429 and 5xx
// responses) with exponential backoff while respecting context cancellation.
func (c *Client) doWithRetry(ctx context.Context, url string) (*http.Response, error) {
	const maxAttempts = 4
	backoff := 200 * time.Millisecond

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := c.newRequest(ctx, url)
		if err != nil {
			return nil, err
		}

		resp, err := c.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		retry := false
		var se *statusError
		if errors.As(err, &se) {
			switch se.Code {
			case 429, 500, 502, 503, 504:
				retry = true
			}
		}

		var netErr net.Error
		if !retry && errors.As(err, &netErr) {
			retry = true
		}

		if !retry || attempt == maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
	}

	return nil, lastErr
}

// wrapTransport classifies a transport-level failure: server errors and
// unreachable hosts become ErrSourceUnavailable, everything else passes
// through unchanged.
func wrapTransport(err error) error {
	var se *statusError
	if errors.As(err, &se) {
		if se.Code >= 500 || se.Code == 429 {
			return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
}
