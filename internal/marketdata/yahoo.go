package marketdata

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

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/earnings-reaction-service/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultYahooBaseURL is the Yahoo Finance chart API host
	DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

	// DefaultSymbolSuffix maps bare tickers onto the NSE listing
	DefaultSymbolSuffix = ".NS"

	// DefaultTimeout is the default HTTP timeout
	DefaultTimeout = 20 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second)
	DefaultRateLimit = 5

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// YahooClient fetches daily bars from the Yahoo Finance chart API
type YahooClient struct {
	baseURL    string
	suffix     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
	metrics    FetchRecorder
}

// YahooOption configures the YahooClient
type YahooOption func(*YahooClient)

// WithBaseURL sets a custom base URL
func WithBaseURL(baseURL string) YahooOption {
	return func(c *YahooClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithSymbolSuffix sets the exchange suffix appended to every symbol
func WithSymbolSuffix(suffix string) YahooOption {
	return func(c *YahooClient) {
		c.suffix = suffix
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) YahooOption {
	return func(c *YahooClient) {
		c.httpClient = httpClient
	}
}

// WithRateLimit sets a custom rate limit
func WithRateLimit(requestsPerSecond int) YahooOption {
	return func(c *YahooClient) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithYahooLogger sets a logger
func WithYahooLogger(logger zerolog.Logger) YahooOption {
	return func(c *YahooClient) {
		c.logger = logger
	}
}

// WithYahooMetrics sets a fetch recorder
func WithYahooMetrics(m FetchRecorder) YahooOption {
	return func(c *YahooClient) {
		c.metrics = m
	}
}

// NewYahooClient creates a new Yahoo chart API client
func NewYahooClient(opts ...YahooOption) *YahooClient {
	c := &YahooClient{
		baseURL: DefaultYahooBaseURL,
		suffix:  DefaultSymbolSuffix,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int    `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

// chartQuote holds parallel arrays; Yahoo emits null for sessions with missing prices
type chartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

// FetchBars implements Fetcher. An unknown symbol yields an empty result
func (c *YahooClient) FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	ticker := symbol + c.suffix
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(start.Unix(), 10))
	params.Set("period2", strconv.FormatInt(end.Unix(), 10))
	params.Set("interval", "1d")
	params.Set("events", "history")
	path := "/v8/finance/chart/" + url.PathEscape(ticker)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("symbol", ticker).
		Str("from", start.Format(models.DateLayout)).
		Str("to", end.Format(models.DateLayout)).
		Msg("yahoo chart request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		record(c.metrics, "yahoo", ResultError)
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		record(c.metrics, "yahoo", ResultEmpty)
		return []models.PriceBar{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		record(c.metrics, "yahoo", ResultError)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		record(c.metrics, "yahoo", ResultError)
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if chart.Chart.Error != nil && len(chart.Chart.Result) == 0 {
		record(c.metrics, "yahoo", ResultEmpty)
		c.logger.Debug().Str("symbol", ticker).Str("code", chart.Chart.Error.Code).Msg(chart.Chart.Error.Description)
		return []models.PriceBar{}, nil
	}

	var bars []models.PriceBar
	for _, result := range chart.Chart.Result {
		bars = append(bars, result.bars(symbol)...)
	}
	bars = inWindow(bars, start, end)

	if len(bars) == 0 {
		record(c.metrics, "yahoo", ResultEmpty)
	} else {
		record(c.metrics, "yahoo", ResultHit)
	}
	return bars, nil
}

// bars converts the parallel arrays into bars dated in the exchange's local calendar
func (r chartResult) bars(symbol string) []models.PriceBar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]
	offset := time.Duration(r.Meta.GMTOffset) * time.Second

	bars := make([]models.PriceBar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		local := time.Unix(ts, 0).UTC().Add(offset)
		y, m, d := local.Date()
		bar := models.PriceBar{
			Symbol: symbol,
			Date:   time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
			Open:   at(q.Open, i),
			High:   at(q.High, i),
			Low:    at(q.Low, i),
			Close:  at(q.Close, i),
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		bars = append(bars, bar)
	}
	return bars
}

func at(values []*float64, i int) decimal.NullDecimal {
	if i >= len(values) || values[i] == nil {
		return decimal.NullDecimal{}
	}
	return models.DecFloat(*values[i])
}
