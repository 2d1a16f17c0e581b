package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"geoagent/internal/logger"
)

// yahooClient reads the public Yahoo Finance chart and quoteSummary endpoints.
// quoteSummary needs a crumb bound to a session cookie, so the client keeps
// its own cookie jar and fetches the crumb once.
type yahooClient struct {
	client    *http.Client
	baseURL   string
	cookieURL string

	mu    sync.Mutex
	crumb string
}

func newYahooClient(opts Options) *yahooClient {
	client := *opts.httpClient()
	if jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}); err == nil {
		client.Jar = jar
	}
	return &yahooClient{
		client:    &client,
		baseURL:   strings.TrimRight(opts.APIs.YahooFinanceURL, "/"),
		cookieURL: opts.APIs.YahooCookieURL,
	}
}

// sessionCrumb returns the cached crumb, running the cookie and crumb
// handshake on first use. Failures are not cached.
func (y *yahooClient) sessionCrumb(ctx context.Context) (string, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	if y.crumb != "" {
		return y.crumb, nil
	}

	if y.cookieURL != "" {
		// fc.yahoo.com answers 404 but still sets the cookie
		_, err := fetch(ctx, y.client, y.cookieURL, nil, y.headers())
		var statusErr *StatusError
		if err != nil && !errors.As(err, &statusErr) {
			return "", fmt.Errorf("failed to get yahoo session cookie: %w", err)
		}
	}

	body, err := fetch(ctx, y.client, y.baseURL+"/v1/test/getcrumb", nil, y.headers())
	if err != nil {
		return "", fmt.Errorf("failed to get yahoo crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(body))
	if crumb == "" || len(crumb) > 64 || strings.ContainsAny(crumb, "<{ \t\n") {
		return "", fmt.Errorf("yahoo returned an unusable crumb %q", TruncateString(crumb, 40))
	}
	y.crumb = crumb
	return crumb, nil
}

func (y *yahooClient) resetCrumb() {
	y.mu.Lock()
	y.crumb = ""
	y.mu.Unlock()
}

type candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

type priceSeries struct {
	Symbol   string
	Currency string
	// Price is the latest market price, zero when Yahoo omits it
	Price   float64
	Candles []candle
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				GMTOffset          int     `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *yahooClient) headers() map[string]string {
	return map[string]string{"User-Agent": GetRandomUserAgent(), "Accept": "application/json"}
}

// chart returns the price series of symbol. A nil series with a nil error
// means Yahoo has no data for the symbol.
func (y *yahooClient) chart(ctx context.Context, symbol string, params url.Values) (*priceSeries, error) {
	var resp chartResponse
	endpoint := y.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol)
	err := fetchJSON(ctx, y.client, endpoint, params, y.headers(), &resp)
	if err != nil {
		// Unknown symbols come back as 404 with a chart.error body
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo finance: %s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}

	result := resp.Chart.Result[0]
	series := &priceSeries{
		Symbol:   result.Meta.Symbol,
		Currency: result.Meta.Currency,
		Price:    result.Meta.RegularMarketPrice,
	}
	if len(result.Indicators.Quote) == 0 {
		return series, nil
	}

	zone := time.FixedZone("exchange", result.Meta.GMTOffset)
	quote := result.Indicators.Quote[0]
	at := func(values []*float64, i int) float64 {
		if i < len(values) && values[i] != nil {
			return *values[i]
		}
		return 0
	}

	for i, ts := range result.Timestamp {
		// Rows without a close are trading halts or the still-open bar
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		series.Candles = append(series.Candles, candle{
			Time:   time.Unix(ts, 0).In(zone),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  *quote.Close[i],
			Volume: at(quote.Volume, i),
		})
	}

	return series, nil
}

// statementModules maps report types to the quoteSummary module and the
// list field inside it
var statementModules = map[string][2]string{
	"INCOME_STATEMENT": {"incomeStatementHistory", "incomeStatementHistory"},
	"BALANCE_SHEET":    {"balanceSheetHistory", "balanceSheetStatements"},
	"CASH_FLOW":        {"cashflowStatementHistory", "cashflowStatements"},
}

type statement map[string]json.RawMessage

func (y *yahooClient) statements(ctx context.Context, ticker, reportType string) ([]statement, error) {
	module, ok := statementModules[reportType]
	if !ok {
		return nil, fmt.Errorf("invalid report type %q", reportType)
	}

	var resp struct {
		QuoteSummary struct {
			Result []map[string]map[string]json.RawMessage `json:"result"`
			Error  *struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		} `json:"quoteSummary"`
	}
	endpoint := y.baseURL + "/v10/finance/quoteSummary/" + url.PathEscape(ticker)
	query := func() error {
		params := url.Values{"modules": {module[0]}}
		if crumb, err := y.sessionCrumb(ctx); err != nil {
			logger.AIDebugf("Calling quoteSummary without a crumb: %v", err)
		} else {
			params.Set("crumb", crumb)
		}
		return fetchJSON(ctx, y.client, endpoint, params, y.headers(), &resp)
	}

	err := query()
	// An expired crumb is refused with 401, retry once with a fresh one
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
		y.resetCrumb()
		err = query()
	}
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if resp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("yahoo finance: %s: %s", resp.QuoteSummary.Error.Code, resp.QuoteSummary.Error.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, nil
	}

	raw, ok := resp.QuoteSummary.Result[0][module[0]][module[1]]
	if !ok {
		return nil, nil
	}
	var list []statement
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", module[0], err)
	}
	return list, nil
}

// formatted returns the human formatted value of a quoteSummary field,
// which Yahoo encodes as {"raw": 1.0, "fmt": "1.00"}
func (s statement) formatted(key string) (string, bool) {
	raw, ok := s[key]
	if !ok {
		return "", false
	}

	var value struct {
		Fmt *string  `json:"fmt"`
		Raw *float64 `json:"raw"`
	}
	if err := json.Unmarshal(raw, &value); err == nil {
		switch {
		case value.Fmt != nil:
			return *value.Fmt, true
		case value.Raw != nil:
			return formatCoord(*value.Raw), true
		default:
			return "", false
		}
	}

	var plain any
	if err := json.Unmarshal(raw, &plain); err == nil && plain != nil {
		return fmt.Sprint(plain), true
	}
	return "", false
}

func isNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
