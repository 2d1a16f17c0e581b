package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mon 2024-01-08 through Thu 2024-01-11 UTC, the last bar has no close yet
const chartFixture = `{"chart":{"result":[{
  "meta":{"symbol":"AAPL","currency":"USD","regularMarketPrice":14.5,"gmtoffset":0},
  "timestamp":[1704672000,1704758400,1704844800,1704931200],
  "indicators":{"quote":[{
    "open":[9,11,13,15],
    "high":[11,13,15,16],
    "low":[8,10,12,14],
    "close":[10,12,14,null],
    "volume":[1000,2000,3000,null]
  }]}
}],"error":null}}`

func TestYahooChartSkipsOpenBar(t *testing.T) {
	var seen http.Request
	srv := apiServer(t, http.StatusOK, chartFixture, &seen)
	yahoo := newYahooClient(testOptions(srv))

	series, err := yahoo.chart(context.Background(), "AAPL", nil)
	require.NoError(t, err)
	require.NotNil(t, series)
	require.Len(t, series.Candles, 3)
	assert.Equal(t, "/v8/finance/chart/AAPL", seen.URL.Path)
	assert.Equal(t, 14.5, series.Price)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), series.Candles[2].Time.UTC())
	assert.NotEmpty(t, seen.Header.Get("User-Agent"))
}

func TestYahooChartNotFound(t *testing.T) {
	srv := apiServer(t, http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, nil)
	yahoo := newYahooClient(testOptions(srv))

	series, err := yahoo.chart(context.Background(), "NOPE", nil)
	require.NoError(t, err)
	assert.Nil(t, series)
}

func TestStockPriceTool(t *testing.T) {
	var seen http.Request
	srv := apiServer(t, http.StatusOK, chartFixture, &seen)
	tool := NewStockPriceTool(newYahooClient(testOptions(srv)))

	out, err := tool.Execute(context.Background(), `{"symbol":"aapl","timeframe":"weekly"}`)
	require.NoError(t, err)

	assert.Contains(t, out, "symbol: AAPL")
	assert.Contains(t, out, "date: 2024-01-10")
	assert.Contains(t, out, "latest_price: 14.0000")
	assert.Contains(t, out, "open: 13.0000")
	assert.Contains(t, out, "volume: 3000")
	assert.Contains(t, out, "weekly_avg: 12.0000")
	assert.NotContains(t, out, "monthly_avg")
	assert.Equal(t, "1mo", seen.URL.Query().Get("range"))
}

func TestStockPriceToolUnknownSymbol(t *testing.T) {
	srv := apiServer(t, http.StatusNotFound, `{}`, nil)
	tool := NewStockPriceTool(newYahooClient(testOptions(srv)))

	out, err := tool.Execute(context.Background(), `{"symbol":"zzzz","timeframe":"daily"}`)
	require.NoError(t, err)
	assert.Equal(t, "Stock symbol 'ZZZZ' not found.", out)
}

func TestForexTool(t *testing.T) {
	var seen http.Request
	srv := apiServer(t, http.StatusOK, chartFixture, &seen)
	tool := NewForexTool(newYahooClient(testOptions(srv)))

	out, err := tool.Execute(context.Background(), `{"base_currency":"usd","target_currency":"inr","timeframe":"weekly"}`)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/USDINR=X", seen.URL.Path)
	assert.Equal(t, "6mo", seen.URL.Query().Get("range"))
	assert.Equal(t, "1wk", seen.URL.Query().Get("interval"))
	assert.Contains(t, out, "Pair: USD/INR")
	assert.Contains(t, out, "Real-Time Rate: 14.5000")
	assert.Contains(t, out, "Last Close Price: 14.0000")
	assert.Contains(t, out, "Historical Data (last 5 records):")
	assert.Contains(t, out, "2024-01-08: 10.0000")
}

func TestCryptoTool(t *testing.T) {
	var seen http.Request
	srv := apiServer(t, http.StatusOK, chartFixture, &seen)
	tool := NewCryptoTool(newYahooClient(testOptions(srv)))

	out, err := tool.Execute(context.Background(), `{"crypto_symbol":"btc","fiat_currency":"usd","timeframe":"intraday"}`)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/BTC-USD", seen.URL.Path)
	assert.Equal(t, "1h", seen.URL.Query().Get("interval"))
	assert.Contains(t, out, "Real-Time Price: 14.5000")
	assert.Contains(t, out, "2024-01-10 00:00: 14.0000")
}

func TestHistoricalPriceTool(t *testing.T) {
	var seen http.Request
	srv := apiServer(t, http.StatusOK, chartFixture, &seen)
	tool := NewHistoricalPriceTool(newYahooClient(testOptions(srv)))

	out, err := tool.Execute(context.Background(), `{"ticker":"aapl","start_date":"2024-01-01","end_date":"2024-01-31","interval":"1d"}`)
	require.NoError(t, err)

	query := seen.URL.Query()
	assert.Equal(t, "1704067200", query.Get("period1"))
	assert.Equal(t, "1706659200", query.Get("period2"))
	assert.Empty(t, query.Get("range"))

	lines := strings.Split(out, "\n")
	assert.Equal(t, "Historical Price Data for AAPL", lines[0])
	assert.Equal(t, strings.Repeat("=", 50), lines[1])
	assert.Equal(t, "Interval: 1d", lines[2])
	assert.Contains(t, out, "2024-01-10 00:00: Open=13.00, High=15.00, Low=12.00, Close=14.00")
}

func TestHistoricalPriceToolRejectsBadRange(t *testing.T) {
	srv := apiServer(t, http.StatusOK, chartFixture, nil)
	tool := NewHistoricalPriceTool(newYahooClient(testOptions(srv)))

	_, err := tool.Execute(context.Background(), `{"ticker":"AAPL","start_date":"2024-02-01","end_date":"2024-01-01","interval":"1d"}`)
	assert.Error(t, err)

	_, err = tool.Execute(context.Background(), `{"ticker":"AAPL","start_date":"01/02/2024","interval":"1d"}`)
	assert.Error(t, err)
}

func TestFundamentalsTool(t *testing.T) {
	var seen http.Request
	body := `{"quoteSummary":{"result":[{"incomeStatementHistory":{"maxAge":86400,"incomeStatementHistory":[
	  {"maxAge":1,"endDate":{"raw":1727654400,"fmt":"2024-09-30"},"totalRevenue":{"raw":391035000000,"fmt":"391.04B"},"netIncome":{"raw":93736000000,"fmt":"93.74B"}}
	]}}],"error":null}}`
	srv := apiServer(t, http.StatusOK, body, &seen)
	tool := NewFundamentalsTool(newYahooClient(testOptions(srv)))

	out, err := tool.Execute(context.Background(), `{"ticker":"aapl","report_type":"INCOME_STATEMENT"}`)
	require.NoError(t, err)

	assert.Equal(t, "incomeStatementHistory", seen.URL.Query().Get("modules"))
	assert.Equal(t, "Ticker: AAPL\nReport Type: INCOME_STATEMENT\nPeriod ending 2024-09-30:\n  netIncome: 93.74B\n  totalRevenue: 391.04B", out)
}

// yahooSession mimics the cookie and crumb gate in front of quoteSummary
type yahooSession struct {
	issued  atomic.Int32
	expired atomic.Bool
}

func (y *yahooSession) handler(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/cookie":
		http.SetCookie(w, &http.Cookie{Name: "A3", Value: "session", Path: "/"})
		w.WriteHeader(http.StatusNotFound)
	case r.URL.Path == "/v1/test/getcrumb":
		if _, err := r.Cookie("A3"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, "crumb-%d", y.issued.Add(1))
	case strings.HasPrefix(r.URL.Path, "/v10/finance/quoteSummary/"):
		latest := fmt.Sprintf("crumb-%d", y.issued.Load())
		if r.URL.Query().Get("crumb") != latest || (y.expired.Load() && latest == "crumb-1") {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"finance":{"error":{"code":"Unauthorized","description":"Invalid Crumb"}}}`))
			return
		}
		_, _ = w.Write([]byte(`{"quoteSummary":{"result":[{"balanceSheetHistory":{"balanceSheetStatements":[
		  {"endDate":{"raw":1727654400,"fmt":"2024-09-30"},"totalAssets":{"raw":364980000000,"fmt":"364.98B"}}
		]}}],"error":null}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestYahooStatementsCrumbHandshake(t *testing.T) {
	session := &yahooSession{}
	srv := httptest.NewServer(http.HandlerFunc(session.handler))
	t.Cleanup(srv.Close)
	yahoo := newYahooClient(testOptions(srv))

	for range 2 {
		list, err := yahoo.statements(context.Background(), "AAPL", "BALANCE_SHEET")
		require.NoError(t, err)
		require.Len(t, list, 1)
		value, ok := list[0].formatted("totalAssets")
		assert.True(t, ok)
		assert.Equal(t, "364.98B", value)
	}
	assert.Equal(t, int32(1), session.issued.Load(), "crumb is fetched once per client")

	session.expired.Store(true)
	_, err := yahoo.statements(context.Background(), "AAPL", "BALANCE_SHEET")
	require.NoError(t, err)
	assert.Equal(t, int32(2), session.issued.Load(), "a refused crumb is replaced")
}

func TestFundamentalsToolNoData(t *testing.T) {
	srv := apiServer(t, http.StatusOK, `{"quoteSummary":{"result":[],"error":null}}`, nil)
	tool := NewFundamentalsTool(newYahooClient(testOptions(srv)))

	out, err := tool.Execute(context.Background(), `{"ticker":"XYZ","report_type":"CASH_FLOW"}`)
	require.NoError(t, err)
	assert.Equal(t, "No data found for XYZ.", out)
}

func TestNewsTool(t *testing.T) {
	var seen http.Request
	body := `{"status":"ok","articles":[
	  {"title":"Rates held","url":"https://example.com/a","description":"<p>The <b>central bank</b> held rates.</p>","source":{"name":"Wire"}},
	  {"title":"Markets rally","url":"https://example.com/b","description":"","source":{"name":""}}
	]}`
	srv := apiServer(t, http.StatusOK, body, &seen)
	tool := NewNewsTool(testOptions(srv))

	out, err := tool.Execute(context.Background(), `{"query":"interest rates","num_results":2}`)
	require.NoError(t, err)

	query := seen.URL.Query()
	assert.Equal(t, "interest rates", query.Get("q"))
	assert.Equal(t, "en", query.Get("language"))
	assert.Equal(t, "publishedAt", query.Get("sortBy"))
	assert.Equal(t, "2", query.Get("pageSize"))
	assert.Equal(t, "news-key", query.Get("apiKey"))

	assert.Contains(t, out, "Query: interest rates")
	assert.Contains(t, out, "1. Rates held")
	assert.Contains(t, out, "   The central bank held rates.")
	assert.Contains(t, out, "   URL: https://example.com/b")
}

func TestNewsToolAPIError(t *testing.T) {
	srv := apiServer(t, http.StatusOK, `{"status":"error","code":"apiKeyInvalid","message":"bad key"}`, nil)
	tool := NewNewsTool(testOptions(srv))

	_, err := tool.Execute(context.Background(), `{"query":"x","num_results":5}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apiKeyInvalid")
}
