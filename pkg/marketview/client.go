// Package marketview is a Go SDK for the market-data and insight service
// consumed by the marketview dashboard.
package marketview

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds a single request when no WithTimeout option is given.
const DefaultTimeout = 30 * time.Second

// Route templates. {symbol} is path-escaped by the client.
const (
	quotePath    = "/api/v1/market/stocks/{symbol}"
	historyPath  = "/api/v1/market/stocks/{symbol}/data"
	insightsPath = "/api/v1/market/insights/{symbol}"
	predictPath  = "/api/v1/market/predict/{symbol}"
)

// Client provides a Go SDK for interacting with the market service API.
type Client struct {
	baseURL string
	rest    *resty.Client
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string
}

// WithTimeout sets the per-request timeout. Expiry is reported as KindNetwork.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithHTTPClient sets the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// NewClient creates a new market service API client.
func NewClient(baseURL string, opts ...Option) *Client {
	o := options{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var rc *resty.Client
	if o.httpClient != nil {
		rc = resty.NewWithClient(o.httpClient)
	} else {
		rc = resty.New()
	}
	baseURL = strings.TrimRight(baseURL, "/")
	rc.SetBaseURL(baseURL)
	rc.SetTimeout(o.timeout)
	rc.SetHeader("Accept", "application/json")
	if o.userAgent != "" {
		rc.SetHeader("User-Agent", o.userAgent)
	}

	return &Client{
		baseURL: baseURL,
		rest:    rc,
		log:     o.logger,
	}
}

// BaseURL returns the service root the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

// Quote retrieves the current quote and technical indicators for a symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (*Quote, error) {
	var w wireQuote
	if err := c.do(ctx, "quote", http.MethodGet, quotePath, symbol, nil, &w); err != nil {
		return nil, err
	}
	q, err := w.validate()
	if err != nil {
		return nil, &Error{Kind: KindParse, Op: "quote", Symbol: symbol, Err: err}
	}
	return q, nil
}

// History retrieves the daily historical series for a symbol using the
// service's default interval and period.
func (c *Client) History(ctx context.Context, symbol string) ([]HistoricalPoint, error) {
	return c.HistoryWithOptions(ctx, symbol, HistoryOptions{})
}

// HistoryWithOptions retrieves the historical series for a symbol. Points are
// returned in the order the service sent them.
func (c *Client) HistoryWithOptions(ctx context.Context, symbol string, opts HistoryOptions) ([]HistoricalPoint, error) {
	var raw []wirePoint
	if err := c.do(ctx, "history", http.MethodGet, historyPath, symbol, opts.query(), &raw); err != nil {
		return nil, err
	}
	points, err := validatePoints(raw)
	if err != nil {
		return nil, &Error{Kind: KindParse, Op: "history", Symbol: symbol, Err: err}
	}
	return points, nil
}

// Insights asks the service to generate narrative commentary for a symbol.
func (c *Client) Insights(ctx context.Context, symbol string) (*Insight, error) {
	var w wireInsight
	if err := c.do(ctx, "insights", http.MethodPost, insightsPath, symbol, nil, &w); err != nil {
		return nil, err
	}
	in, err := w.validate()
	if err != nil {
		return nil, &Error{Kind: KindParse, Op: "insights", Symbol: symbol, Err: err}
	}
	return in, nil
}

// Predict asks the service for a price prediction for a symbol.
func (c *Client) Predict(ctx context.Context, symbol string) (*Prediction, error) {
	var w wirePrediction
	if err := c.do(ctx, "predict", http.MethodPost, predictPath, symbol, nil, &w); err != nil {
		return nil, err
	}
	p, err := w.validate()
	if err != nil {
		return nil, &Error{Kind: KindParse, Op: "predict", Symbol: symbol, Err: err}
	}
	return p, nil
}

// do performs one request and decodes a 2xx body into out. Failures are
// returned as *Error.
func (c *Client) do(ctx context.Context, op, method, path, symbol string, query map[string]string, out any) error {
	if symbol == "" {
		return ErrEmptySymbol
	}

	req := c.rest.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		c.log.Debug("market request failed", "op", op, "symbol", symbol, "error", err)
		return &Error{Kind: KindNetwork, Op: op, Symbol: symbol, Err: err}
	}
	c.log.Debug("market request",
		"op", op,
		"symbol", symbol,
		"status", resp.StatusCode(),
		"elapsed", time.Since(start),
	)

	if !resp.IsSuccess() {
		return &Error{
			Kind:       KindServer,
			Op:         op,
			Symbol:     symbol,
			StatusCode: resp.StatusCode(),
			Detail:     errorDetail(resp.Body()),
		}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &Error{Kind: KindParse, Op: op, Symbol: symbol, Err: err}
	}
	return nil
}
