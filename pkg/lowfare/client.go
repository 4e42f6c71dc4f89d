// Package lowfare provides a client for the AirAsia low-fare calendar API.
package lowfare

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/sells-group/fare-cli/internal/resilience"
)

// ErrNoMoreData is returned when the API answers 417: the queried window
// has no further fares and should not be retried.
var ErrNoMoreData = eris.New("lowfare: no more data for window")

const (
	// DefaultBaseURL is the production API host.
	DefaultBaseURL = "https://flights.airasia.com"
	lowFarePath    = "/fp/lfc/v1/lowfare"

	// DateLayout is the dd/mm/yyyy layout the API expects.
	DateLayout = "02/01/2006"

	// RangeDays is the number of days a single query covers.
	RangeDays = 30
)

// Client defines the low-fare API operations.
type Client interface {
	// LowFares returns the cheapest fare per day for the 30-day window
	// starting at q.Date.
	LowFares(ctx context.Context, q Query) ([]Fare, error)
}

// Query identifies one route and window. Token is a bearer token supplied
// per call; the client never stores it.
type Query struct {
	DepartStation  string
	ArrivalStation string
	Date           time.Time
	Token          string
}

// Fare is one line item of the API response.
type Fare struct {
	DepartureDate       string          `json:"departureDate"`
	Price               decimal.Decimal `json:"price"`
	ShortFormattedPrice string          `json:"shortFormattedPrice"`
	ShortPrice          FlexString      `json:"shortPrice"`
	AirlineProfile      string          `json:"airlineProfile"`
	AAFlight            FlexString      `json:"aaFlight"`
}

// Response is the API response envelope.
type Response struct {
	Data []Fare `json:"data"`
}

// FlexString decodes a JSON string, number or boolean into its text form.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	*s = FlexString(b)
	return nil
}

// Headers are the fixed request headers sent with every query.
type Headers struct {
	ChannelHash string
	UserAgent   string
	Origin      string
	Referer     string
}

// DefaultHeaders returns the header set the public booking site sends.
func DefaultHeaders() Headers {
	return Headers{
		ChannelHash: "c5e9028b4295dcf4d7c239af8231823b520c3cc15b99ab04cde71d0ab18d65bc",
		UserAgent:   "Mozilla/5.0 (Linux; Android 6.0; Nexus 5 Build/MRA58N) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Mobile Safari/537.36",
		Origin:      "https://www.airasia.com",
		Referer:     "https://www.airasia.com/",
	}
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithCurrency sets the quote currency. Default: MYR.
func WithCurrency(cur string) Option {
	return func(c *httpClient) {
		c.currency = cur
	}
}

// WithHeaders overrides the fixed request headers.
func WithHeaders(h Headers) Option {
	return func(c *httpClient) {
		c.headers = h
	}
}

// WithRateLimit caps the request rate on top of the caller's own pacing.
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) {
		if perSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
		}
	}
}

// WithRetry re-issues transient failures (timeouts, 408, 429, 5xx).
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	baseURL  string
	currency string
	headers  Headers
	http     *http.Client
	limiter  *rate.Limiter
	retry    resilience.RetryConfig
}

// NewClient creates a low-fare API client. By default it makes a single
// attempt per query and applies no rate limit.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:  DefaultBaseURL,
		currency: "MYR",
		headers:  DefaultHeaders(),
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Inf, 1),
		retry:   resilience.RetryConfig{MaxAttempts: 1},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) buildURL(q Query) string {
	params := url.Values{}
	params.Set("departStation", q.DepartStation)
	params.Set("arrivalStation", q.ArrivalStation)
	params.Set("currency", c.currency)
	params.Set("airlineProfile", "all")
	params.Set("date", q.Date.Format(DateLayout))
	params.Set("range", strconv.Itoa(RangeDays))
	params.Set("isDestinationCity", "false")
	params.Set("isOriginCity", "false")
	return c.baseURL + lowFarePath + "?" + params.Encode()
}

func (c *httpClient) LowFares(ctx context.Context, q Query) ([]Fare, error) {
	if q.Token == "" {
		return nil, eris.New("lowfare: token is required")
	}

	reqURL := c.buildURL(q)
	retry := c.retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(q.DepartStation + "_to_" + q.ArrivalStation)
	}

	return resilience.Do(ctx, retry, func(ctx context.Context) ([]Fare, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "lowfare: rate limiter wait")
		}
		return c.do(ctx, reqURL, q.Token)
	})
}

func (c *httpClient) do(ctx context.Context, reqURL, token string) ([]Fare, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "lowfare: create request")
	}
	req.Header.Set("accept", "*/*")
	req.Header.Set("authorization", "Bearer "+token)
	req.Header.Set("channel_hash", c.headers.ChannelHash)
	req.Header.Set("origin", c.headers.Origin)
	req.Header.Set("referer", c.headers.Referer)
	req.Header.Set("user-agent", c.headers.UserAgent)
	req.Header.Set("user-type", "anonymous")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "lowfare: request failed")
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusExpectationFailed:
		return nil, ErrNoMoreData
	case resilience.IsTransientStatus(resp.StatusCode):
		return nil, resilience.NewTransientError(
			eris.Errorf("lowfare: status %d: %s", resp.StatusCode, truncate(body, 200)), resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, eris.Errorf("lowfare: unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	if readErr != nil {
		return nil, resilience.NewTransientError(eris.Wrap(readErr, "lowfare: read response body"), 0)
	}

	var result Response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "lowfare: unmarshal response")
	}
	return result.Data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
