package tools

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"
)

var historyTimeframes = []string{"intraday", "daily", "weekly", "monthly"}

// timeframeWindow maps a timeframe to the chart range and bar interval
func timeframeWindow(timeframe string) url.Values {
	switch timeframe {
	case "intraday":
		return url.Values{"range": {"7d"}, "interval": {"1h"}}
	case "weekly":
		return url.Values{"range": {"6mo"}, "interval": {"1wk"}}
	case "monthly":
		return url.Values{"range": {"2y"}, "interval": {"1mo"}}
	default:
		return url.Values{"range": {"1y"}, "interval": {"1d"}}
	}
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func lastCloses(candles []candle, n int) []candle {
	if len(candles) > n {
		return candles[len(candles)-n:]
	}
	return candles
}

// writeHistorySummary renders the real-time / last close block shared by the
// forex and crypto tools
func writeHistorySummary(b *strings.Builder, priceLabel string, series *priceSeries, timeframe string) {
	last := series.Candles[len(series.Candles)-1]
	price := series.Price
	if price == 0 {
		price = last.Close
	}

	fmt.Fprintf(b, "%s: %s\n", priceLabel, formatPrice(price))
	fmt.Fprintf(b, "Last Close Price: %s\n", formatPrice(last.Close))
	fmt.Fprintf(b, "Timeframe: %s\n", timeframe)
	b.WriteString("Historical Data (last 5 records):\n")
	layout := "2006-01-02"
	if timeframe == "intraday" {
		layout = "2006-01-02 15:04"
	}
	for _, c := range lastCloses(series.Candles, 5) {
		fmt.Fprintf(b, "  %s: %s\n", c.Time.Format(layout), formatPrice(c.Close))
	}
}

type StockArgs struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
}

// StockPriceTool reports the latest daily bar of a stock
type StockPriceTool struct {
	BaseTool
	yahoo *yahooClient
}

func NewStockPriceTool(yahoo *yahooClient) *StockPriceTool {
	return &StockPriceTool{
		BaseTool: BaseTool{
			ToolName:        "stock_price_agent",
			ToolDescription: "Fetches real-time and historical stock prices for a given symbol.",
			ToolParameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"symbol": {Type: jsonschema.String, Description: "Stock symbol (e.g., AAPL, TSLA, GOOG)"},
					"timeframe": {
						Type:        jsonschema.String,
						Description: "Timeframe for stock data (daily, weekly, monthly). Default is 'daily'.",
						Enum:        []string{"daily", "weekly", "monthly"},
					},
				},
				Required: []string{"symbol"},
			},
			ToolDefaults: map[string]any{"timeframe": "daily"},
		},
		yahoo: yahoo,
	}
}

// periodAverage is the mean close of the calendar week or month holding the last bar
func periodAverage(candles []candle, samePeriod func(a, b time.Time) bool) float64 {
	last := candles[len(candles)-1].Time
	var sum float64
	var n int
	for _, c := range candles {
		if samePeriod(c.Time, last) {
			sum += c.Close
			n++
		}
	}
	return sum / float64(n)
}

func sameWeek(a, b time.Time) bool {
	ay, aw := a.ISOWeek()
	by, bw := b.ISOWeek()
	return ay == by && aw == bw
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func (t *StockPriceTool) Execute(ctx context.Context, args string) (string, error) {
	var p StockArgs
	if err := decodeArgs(t.Name(), args, &p); err != nil {
		return "", err
	}
	symbol := strings.ToUpper(strings.TrimSpace(p.Symbol))

	series, err := t.yahoo.chart(ctx, symbol, url.Values{"range": {"1mo"}, "interval": {"1d"}})
	if err != nil {
		return "", err
	}
	if series == nil || len(series.Candles) == 0 {
		return fmt.Sprintf("Stock symbol '%s' not found.", symbol), nil
	}

	latest := series.Candles[len(series.Candles)-1]
	var b strings.Builder
	fmt.Fprintf(&b, "symbol: %s\n", symbol)
	if series.Currency != "" {
		fmt.Fprintf(&b, "currency: %s\n", series.Currency)
	}
	fmt.Fprintf(&b, "date: %s\n", latest.Time.Format("2006-01-02"))
	fmt.Fprintf(&b, "latest_price: %s\n", formatPrice(latest.Close))
	fmt.Fprintf(&b, "open: %s\n", formatPrice(latest.Open))
	fmt.Fprintf(&b, "high: %s\n", formatPrice(latest.High))
	fmt.Fprintf(&b, "low: %s\n", formatPrice(latest.Low))
	fmt.Fprintf(&b, "volume: %.0f\n", latest.Volume)

	switch p.Timeframe {
	case "weekly":
		fmt.Fprintf(&b, "weekly_avg: %s\n", formatPrice(periodAverage(series.Candles, sameWeek)))
	case "monthly":
		fmt.Fprintf(&b, "monthly_avg: %s\n", formatPrice(periodAverage(series.Candles, sameMonth)))
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

type ForexArgs struct {
	BaseCurrency   string `json:"base_currency"`
	TargetCurrency string `json:"target_currency"`
	Timeframe      string `json:"timeframe"`
}

// ForexTool reports a currency pair's rate and recent closes
type ForexTool struct {
	BaseTool
	yahoo *yahooClient
}

func NewForexTool(yahoo *yahooClient) *ForexTool {
	return &ForexTool{
		BaseTool: BaseTool{
			ToolName:        "forex_trading_agent",
			ToolDescription: "Retrieves real-time and historical exchange rates for currency pairs.",
			ToolParameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"base_currency":   {Type: jsonschema.String, Description: "Base currency (e.g., USD, EUR, GBP)"},
					"target_currency": {Type: jsonschema.String, Description: "Target currency (e.g., JPY, INR, CAD)"},
					"timeframe": {
						Type:        jsonschema.String,
						Description: "Timeframe for historical data (intraday, daily, weekly, monthly). Default is 'daily'.",
						Enum:        historyTimeframes,
					},
				},
				Required: []string{"base_currency", "target_currency"},
			},
			ToolDefaults: map[string]any{"timeframe": "daily"},
		},
		yahoo: yahoo,
	}
}

func (t *ForexTool) Execute(ctx context.Context, args string) (string, error) {
	var p ForexArgs
	if err := decodeArgs(t.Name(), args, &p); err != nil {
		return "", err
	}
	base := strings.ToUpper(strings.TrimSpace(p.BaseCurrency))
	target := strings.ToUpper(strings.TrimSpace(p.TargetCurrency))

	series, err := t.yahoo.chart(ctx, base+target+"=X", timeframeWindow(p.Timeframe))
	if err != nil {
		return "", err
	}
	if series == nil || len(series.Candles) == 0 {
		return fmt.Sprintf("Could not fetch %s historical data for %s/%s.", p.Timeframe, base, target), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pair: %s/%s\n", base, target)
	writeHistorySummary(&b, "Real-Time Rate", series, p.Timeframe)
	return strings.TrimRight(b.String(), "\n"), nil
}

type CryptoArgs struct {
	CryptoSymbol string `json:"crypto_symbol"`
	FiatCurrency string `json:"fiat_currency"`
	Timeframe    string `json:"timeframe"`
}

// CryptoTool reports a cryptocurrency's price in a fiat currency
type CryptoTool struct {
	BaseTool
	yahoo *yahooClient
}

func NewCryptoTool(yahoo *yahooClient) *CryptoTool {
	return &CryptoTool{
		BaseTool: BaseTool{
			ToolName:        "crypto_market_agent",
			ToolDescription: "Tracks cryptocurrency price movements and trends in real-time and historically.",
			ToolParameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"crypto_symbol": {Type: jsonschema.String, Description: "Cryptocurrency symbol (e.g., BTC, ETH, SOL)"},
					"fiat_currency": {Type: jsonschema.String, Description: "Fiat currency (e.g., USD, EUR, USDT)"},
					"timeframe": {
						Type:        jsonschema.String,
						Description: "Timeframe for historical data (intraday, daily, weekly, monthly). Default is 'daily'.",
						Enum:        historyTimeframes,
					},
				},
				Required: []string{"crypto_symbol", "fiat_currency"},
			},
			ToolDefaults: map[string]any{"timeframe": "daily"},
		},
		yahoo: yahoo,
	}
}

func (t *CryptoTool) Execute(ctx context.Context, args string) (string, error) {
	var p CryptoArgs
	if err := decodeArgs(t.Name(), args, &p); err != nil {
		return "", err
	}
	crypto := strings.ToUpper(strings.TrimSpace(p.CryptoSymbol))
	fiat := strings.ToUpper(strings.TrimSpace(p.FiatCurrency))

	series, err := t.yahoo.chart(ctx, crypto+"-"+fiat, timeframeWindow(p.Timeframe))
	if err != nil {
		return "", err
	}
	if series == nil || len(series.Candles) == 0 {
		return fmt.Sprintf("Could not fetch real-time price for %s/%s.", crypto, fiat), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pair: %s/%s\n", crypto, fiat)
	writeHistorySummary(&b, "Real-Time Price", series, p.Timeframe)
	return strings.TrimRight(b.String(), "\n"), nil
}

type HistoricalArgs struct {
	Ticker    string `json:"ticker"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Interval  string `json:"interval"`
}

// HistoricalPriceTool lists the last bars of any Yahoo ticker in a date range
type HistoricalPriceTool struct {
	BaseTool
	yahoo *yahooClient
	now   func() time.Time
}

func NewHistoricalPriceTool(yahoo *yahooClient) *HistoricalPriceTool {
	return &HistoricalPriceTool{
		BaseTool: BaseTool{
			ToolName:        "historical_price_agent",
			ToolDescription: "Fetches historical price data for stocks, forex, or crypto over a specified period.",
			ToolParameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"ticker":     {Type: jsonschema.String, Description: "Ticker symbol (e.g., 'AAPL' for Apple, 'BTC-USD' for Bitcoin, 'EURUSD=X' for Forex)."},
					"start_date": {Type: jsonschema.String, Description: "Start date for historical data in 'YYYY-MM-DD' format."},
					"end_date":   {Type: jsonschema.String, Description: "End date for historical data in 'YYYY-MM-DD' format."},
					"interval": {
						Type:        jsonschema.String,
						Description: "Data interval. Options: '1m', '5m', '1h', '1d', '1wk', '1mo'.",
						Enum:        []string{"1m", "5m", "1h", "1d", "1wk", "1mo"},
					},
				},
				Required: []string{"ticker"},
			},
			ToolDefaults: map[string]any{"interval": "1d"},
		},
		yahoo: yahoo,
		now:   time.Now,
	}
}

func (t *HistoricalPriceTool) window(p HistoricalArgs) (url.Values, error) {
	params := url.Values{"interval": {p.Interval}}
	if p.StartDate == "" && p.EndDate == "" {
		params.Set("range", "1mo")
		return params, nil
	}

	end := t.now()
	if p.EndDate != "" {
		parsed, err := time.Parse("2006-01-02", p.EndDate)
		if err != nil {
			return nil, fmt.Errorf("end_date must be YYYY-MM-DD, got %q", p.EndDate)
		}
		end = parsed
	}
	start := end.AddDate(0, -1, 0)
	if p.StartDate != "" {
		parsed, err := time.Parse("2006-01-02", p.StartDate)
		if err != nil {
			return nil, fmt.Errorf("start_date must be YYYY-MM-DD, got %q", p.StartDate)
		}
		start = parsed
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("start_date must be before end_date")
	}

	params.Set("period1", strconv.FormatInt(start.Unix(), 10))
	params.Set("period2", strconv.FormatInt(end.Unix(), 10))
	return params, nil
}

func (t *HistoricalPriceTool) Execute(ctx context.Context, args string) (string, error) {
	var p HistoricalArgs
	if err := decodeArgs(t.Name(), args, &p); err != nil {
		return "", err
	}
	ticker := strings.ToUpper(strings.TrimSpace(p.Ticker))

	params, err := t.window(p)
	if err != nil {
		return "", err
	}

	series, err := t.yahoo.chart(ctx, ticker, params)
	if err != nil {
		return "", err
	}
	if series == nil || len(series.Candles) == 0 {
		return fmt.Sprintf("No historical price data found for %s between %s and %s.", ticker, orDash(p.StartDate), orDash(p.EndDate)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Historical Price Data for %s\n", ticker)
	b.WriteString(strings.Repeat("=", 50) + "\n")
	fmt.Fprintf(&b, "Interval: %s\n", p.Interval)
	b.WriteString(strings.Repeat("-", 50) + "\n")
	for _, c := range lastCloses(series.Candles, 5) {
		fmt.Fprintf(&b, "%s: Open=%.2f, High=%.2f, Low=%.2f, Close=%.2f\n",
			c.Time.Format("2006-01-02 15:04"), c.Open, c.High, c.Low, c.Close)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

type FundamentalsArgs struct {
	Ticker     string `json:"ticker"`
	ReportType string `json:"report_type"`
}

// FundamentalsTool prints the latest financial statements of a company
type FundamentalsTool struct {
	BaseTool
	yahoo *yahooClient
}

func NewFundamentalsTool(yahoo *yahooClient) *FundamentalsTool {
	return &FundamentalsTool{
		BaseTool: BaseTool{
			ToolName:        "fundamental_data_agent",
			ToolDescription: "Fetches company financial statements such as Income Statement, Balance Sheet, and Cash Flow.",
			ToolParameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"ticker": {Type: jsonschema.String, Description: "Stock ticker symbol (e.g., 'AAPL' for Apple, 'TSLA' for Tesla)."},
					"report_type": {
						Type:        jsonschema.String,
						Description: "Type of fundamental data.",
						Enum:        []string{"INCOME_STATEMENT", "BALANCE_SHEET", "CASH_FLOW"},
					},
				},
				Required: []string{"ticker", "report_type"},
			},
		},
		yahoo: yahoo,
	}
}

func (t *FundamentalsTool) Execute(ctx context.Context, args string) (string, error) {
	var p FundamentalsArgs
	if err := decodeArgs(t.Name(), args, &p); err != nil {
		return "", err
	}
	ticker := strings.ToUpper(strings.TrimSpace(p.Ticker))

	list, err := t.yahoo.statements(ctx, ticker, p.ReportType)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return fmt.Sprintf("No data found for %s.", ticker), nil
	}
	if len(list) > 5 {
		list = list[:5]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Ticker: %s\nReport Type: %s\n", ticker, p.ReportType)
	for _, st := range list {
		period, _ := st.formatted("endDate")
		fmt.Fprintf(&b, "Period ending %s:\n", orDash(period))

		keys := make([]string, 0, len(st))
		for key := range st {
			if key != "endDate" && key != "maxAge" {
				keys = append(keys, key)
			}
		}
		sort.Strings(keys)
		for _, key := range keys {
			if value, ok := st.formatted(key); ok {
				fmt.Fprintf(&b, "  %s: %s\n", key, value)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
