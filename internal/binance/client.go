// Package binance provides a minimal REST client for Binance spot klines.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"defi-portfolio-lab/internal/domain"
	"defi-portfolio-lab/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.binance.com"
	DefaultTimeout = 30 * time.Second

	// DefaultLimit and MaxLimit are the exchange's documented per-request
	// row limits for the klines endpoint.
	DefaultLimit = 500
	MaxLimit     = 1000
)

// APIError is a non-200 answer from the exchange.
type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance API error (HTTP %d, code %d): %s", e.StatusCode, e.Code, e.Message)
}

// Kline is one OHLCV bar as returned by the klines endpoint. Auxiliary
// response fields (close time, quote volumes, trade counts) are discarded
// at parse time.
type Kline struct {
	OpenTimeMs int64
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
}

// HTTPClient fetches klines over REST. Construct one per process and pass
// it down explicitly; there is no package-level client state.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithBaseURL overrides the API base URL (test servers, mirrors).
func WithBaseURL(u string) ClientOption {
	return func(c *HTTPClient) {
		c.baseURL = u
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new klines REST client.
func NewHTTPClient(opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Klines fetches one page of OHLCV bars for symbol/interval within
// [startMs, endMs] (inclusive millisecond bounds). limit <= 0 uses the
// exchange default of 500; values above 1000 are capped. A failure
// propagates immediately: this layer performs no retries, pacing between
// pages belongs to the range assembler.
func (c *HTTPClient) Klines(ctx context.Context, symbol string, interval domain.Interval, startMs, endMs int64, limit int) (_ []Kline, err error) {
	started := time.Now()
	defer func() {
		observability.RecordKlineRequest(time.Since(started).Seconds(), err)
	}()

	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval.String())
	q.Set("startTime", strconv.FormatInt(startMs, 10))
	q.Set("endTime", strconv.FormatInt(endMs, 10))
	q.Set("limit", strconv.Itoa(limit))

	u := fmt.Sprintf("%s/api/v3/klines?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch klines %s %s: %w", symbol, interval, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read klines response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(body, apiErr); err != nil {
			apiErr.Message = string(body)
		}
		return nil, apiErr
	}

	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode klines response: %w", err)
	}

	klines := make([]Kline, 0, len(rows))
	for i, row := range rows {
		k, err := parseKlineRow(row)
		if err != nil {
			return nil, fmt.Errorf("malformed kline row %d for %s %s: %w", i, symbol, interval, err)
		}
		klines = append(klines, k)
	}
	return klines, nil
}

// parseKlineRow converts one 12-field wire row. Open time arrives as a
// number, OHLCV as decimal strings; fields 6-11 are dropped.
func parseKlineRow(row []json.RawMessage) (Kline, error) {
	if len(row) < 6 {
		return Kline{}, fmt.Errorf("expected at least 6 fields, got %d", len(row))
	}

	var k Kline
	if err := json.Unmarshal(row[0], &k.OpenTimeMs); err != nil {
		return Kline{}, fmt.Errorf("open time: %w", err)
	}

	fields := []*float64{&k.Open, &k.High, &k.Low, &k.Close, &k.Volume}
	for i, dst := range fields {
		v, err := parsePriceField(row[i+1])
		if err != nil {
			return Kline{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		*dst = v
	}
	return k, nil
}

// parsePriceField accepts both the usual string encoding ("123.45") and a
// bare JSON number.
func parsePriceField(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("neither string nor number: %s", raw)
	}
	return f, nil
}
