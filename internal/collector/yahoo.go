package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"VIXBar/internal/model"
)

// DefaultBaseURL is the public Yahoo Finance query host.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using the Yahoo Finance public chart API.
type YahooFetcher struct {
	BaseURL     string
	Granularity string // chart interval, "1m" by default
	UserAgent   string // sent only when non-empty
	Client      *http.Client
	Debug       bool

	proxyURL string
	now      func() time.Time
}

// NewYahooFetcher creates a new Yahoo Finance fetcher with optional proxy support.
func NewYahooFetcher(baseURL, proxyURL string, timeout time.Duration) *YahooFetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooFetcher{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Granularity: "1m",
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		proxyURL: proxyURL,
		now:      time.Now,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooChart is the response structure from the Yahoo Finance chart API.
// Every level is optional; closes are a sparse series of nullable floats.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta *struct {
				Symbol            string  `json:"symbol"`
				Currency          string  `json:"currency"`
				ExchangeName      string  `json:"exchangeName"`
				RegularMarketTime int64   `json:"regularMarketTime"`
				PreviousClose     float64 `json:"chartPreviousClose"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators *struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error json.RawMessage `json:"error"`
	} `json:"chart"`
}

// ChartURL builds the chart endpoint for a symbol at the fetcher's granularity.
func (f *YahooFetcher) ChartURL(symbol string) string {
	interval := f.Granularity
	if interval == "" {
		interval = "1m"
	}
	return fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s",
		f.BaseURL, url.PathEscape(symbol), url.QueryEscape(interval))
}

// FetchLatest performs one GET against the chart endpoint and returns the
// most recent non-null close.
func (f *YahooFetcher) FetchLatest(ctx context.Context, symbol string) (model.Quote, error) {
	u := f.ChartURL(symbol)
	if f.Debug {
		f.logDiagnostics(u)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.Quote{}, fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return model.Quote{}, fmt.Errorf("%w: yahoo fetch: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Quote{}, fmt.Errorf("%w: yahoo read body: %v", ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.Quote{}, fmt.Errorf("%w: yahoo status %d", ErrProtocol, resp.StatusCode)
	}

	value, err := ParseLatestClose(body)
	if err != nil {
		return model.Quote{}, err
	}
	return model.Quote{Symbol: symbol, Value: value, ObservedAt: f.now()}, nil
}

// ParseLatestClose decodes a chart payload and returns the last non-null close
// of the first result's first quote.
func ParseLatestClose(body []byte) (float64, error) {
	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return 0, fmt.Errorf("%w: yahoo decode: %v", ErrParse, err)
	}
	if raw := strings.TrimSpace(string(chart.Chart.Error)); raw != "" && raw != "null" {
		return 0, fmt.Errorf("%w: yahoo api error: %s", ErrParse, raw)
	}
	if len(chart.Chart.Result) == 0 {
		return 0, fmt.Errorf("%w: yahoo: no result", ErrParse)
	}
	result := chart.Chart.Result[0]
	if result.Indicators == nil || len(result.Indicators.Quote) == 0 {
		return 0, fmt.Errorf("%w: yahoo: no quote", ErrParse)
	}
	closes := result.Indicators.Quote[0].Close
	if closes == nil {
		return 0, fmt.Errorf("%w: yahoo: no close series", ErrParse)
	}
	v, ok := LastNonNull(closes)
	if !ok {
		return 0, fmt.Errorf("%w: yahoo: no non-null close in %d samples", ErrParse, len(closes))
	}
	return v, nil
}

// LastNonNull returns the last non-nil entry in document order.
func LastNonNull(series []*float64) (float64, bool) {
	for i := len(series) - 1; i >= 0; i-- {
		if series[i] != nil {
			return *series[i], true
		}
	}
	return 0, false
}

func (f *YahooFetcher) logDiagnostics(u string) {
	log.Printf("[DEBUG] yahoo request URL = %s", u)
	if f.proxyURL != "" {
		log.Printf("[DEBUG] yahoo proxy (configured) = %s", f.proxyURL)
		return
	}
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return
	}
	if p, err := http.ProxyFromEnvironment(req); err == nil && p != nil {
		log.Printf("[DEBUG] yahoo proxy (environment) = %s", p.Redacted())
	} else {
		log.Println("[DEBUG] yahoo proxy = none")
	}
}
