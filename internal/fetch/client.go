// Package fetch provides the HTTP transport shared by all weather
// sources: bounded retries with backoff, a circuit breaker, and
// per-attempt failure logging. Transport failures never escape as
// panics; after the attempt budget is exhausted the caller receives
// ErrNoResponse and is expected to keep its previously cached data.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker"
)

// ErrNoResponse is returned once every attempt has failed. Callers
// treat it as "no new data", not as a fatal condition.
var ErrNoResponse = errors.New("no response from server")

// errTooManyRedirects marks a redirect chain that exceeded the limit.
var errTooManyRedirects = errors.New("too many redirects")

// BrowserUserAgent is sent to scraped sites, which answer bare
// library agents with a consent interstitial instead of data.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/114.0"

const (
	maxRedirects    = 10
	initialBackoff  = 500 * time.Millisecond
	maxBackoff      = 5 * time.Second
	defaultAttempts = 3
	defaultTimeout  = 10 * time.Second
)

// Client is a retrying HTTP client. One instance is shared by all
// sources of a collector.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	attempts   int
	logger     *slog.Logger
	userAgent  string
}

// NewClient creates a Client with the given attempt budget and
// per-attempt timeout. Non-positive values fall back to the defaults.
func NewClient(attempts int, timeout time.Duration, logger *slog.Logger) *Client {
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return errTooManyRedirects
				}
				return nil
			},
		},
		breaker:   gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "fetch"}),
		attempts:  attempts,
		logger:    logger.With("component", "fetch"),
		userAgent: "wetterdeck/1.0 (github.com/tkrause/wetterdeck)",
	}
}

// Get fetches the url with the given query parameters and headers.
// Every failed attempt is logged with its failure category; after the
// attempt budget is exhausted it returns ErrNoResponse.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values, headers http.Header) ([]byte, error) {
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			if err := c.wait(ctx, attempt); err != nil {
				return nil, err
			}
		}

		body, err := c.once(ctx, rawURL, params, headers)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Error("Request Error: circuit breaker rejected the attempt", "url", rawURL, "error", err)
			return nil, ErrNoResponse
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		c.logger.Error(categorize(err), "url", rawURL, "attempt", attempt+1, "error", err)
	}

	return nil, ErrNoResponse
}

// GetJSON fetches the url and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, headers http.Header, v any) error {
	if headers == nil {
		headers = http.Header{}
	}
	if headers.Get("Accept") == "" {
		headers.Set("Accept", "application/json")
	}

	body, err := c.Get(ctx, rawURL, params, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		c.logger.Error("Data Error: undecodable JSON body", "url", rawURL, "error", err)
		return fmt.Errorf("decoding %s: %w", rawURL, err)
	}
	return nil
}

// GetDocument fetches the url and parses the body as an HTML document.
func (c *Client) GetDocument(ctx context.Context, rawURL string, params url.Values, headers http.Header) (*goquery.Document, error) {
	body, err := c.Get(ctx, rawURL, params, headers)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		c.logger.Error("Data Error: unparsable HTML body", "url", rawURL, "error", err)
		return nil, fmt.Errorf("parsing %s: %w", rawURL, err)
	}
	return doc, nil
}

// once performs a single attempt through the circuit breaker.
func (c *Client) once(ctx context.Context, rawURL string, params url.Values, headers http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if params != nil {
		req.URL.RawQuery = params.Encode()
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			io.Copy(io.Discard, resp.Body)
			return nil, &statusError{code: resp.StatusCode, status: resp.Status}
		}

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, &readError{err: readErr}
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// wait sleeps for the exponential backoff delay of the given attempt,
// honoring context cancellation.
func (c *Client) wait(ctx context.Context, attempt int) error {
	delay := time.Duration(float64(initialBackoff) * math.Pow(2, float64(attempt-1)))
	if delay > maxBackoff {
		delay = maxBackoff
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// statusError marks a response with an error status code.
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("server answered %s", e.status)
}

// readError marks a failure while reading the response body.
type readError struct {
	err error
}

func (e *readError) Error() string { return e.err.Error() }
func (e *readError) Unwrap() error { return e.err }

// categorize maps a transport failure to its operator-facing log
// category.
func categorize(err error) string {
	var netErr net.Error
	var statusErr *statusError
	var readErr *readError

	switch {
	case errors.As(err, &statusErr):
		return "HTTP Error: request failed"
	case errors.Is(err, errTooManyRedirects):
		return "Redirect Error: request failed"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "Timeout Error: request failed"
	case errors.As(err, &readErr):
		return "I/O Error: response body unreadable"
	case isConnectionError(err):
		return "Connection Error: request failed"
	default:
		return "Request Error: request failed"
	}
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
