package tools

import (
	"net/http"
	"time"

	"geoagent/internal/config"
	"geoagent/internal/logger"
)

// Options carries the endpoints, credentials and HTTP client shared by the
// API-backed tools.
type Options struct {
	HTTPClient *http.Client
	APIs       config.APIConfig
	Satellite  config.SatelliteConfig
	SMTP       config.SMTPConfig

	EnableFinance bool
	EnableEmail   bool
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		HTTPClient:    CreateHTTPClient(time.Duration(cfg.Agent.ToolTimeout) * time.Second),
		APIs:          cfg.APIs,
		Satellite:     cfg.Satellite,
		SMTP:          cfg.SMTP,
		EnableFinance: cfg.Agent.EnableFinanceTools,
		EnableEmail:   cfg.Agent.EnableEmailTool,
	}
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return CreateHTTPClient(defaultTimeout)
}

// GeospatialTools returns the tools bound to the agent by default
func GeospatialTools(opts Options) []Tool {
	osm := newNominatimClient(opts)
	return []Tool{
		NewCoordinatesTool(osm),
		NewPlaceTool(osm),
		NewAdminBoundaryTool(opts),
		NewDistanceTool(),
		NewPointsOfInterestTool(opts),
		NewElevationTool(opts),
		NewWeatherTool(opts),
		NewTrafficTool(opts),
		NewSatelliteImageTool(opts),
		NewISTDateTool(),
	}
}

// FinanceTools returns the market data and news tools
func FinanceTools(opts Options) []Tool {
	yahoo := newYahooClient(opts)
	return []Tool{
		NewStockPriceTool(yahoo),
		NewForexTool(yahoo),
		NewCryptoTool(yahoo),
		NewFundamentalsTool(yahoo),
		NewHistoricalPriceTool(yahoo),
		NewNewsTool(opts),
	}
}

// NewDefaultRegistry builds the registry for a process. The geospatial tools
// are always present, finance and email tools follow the options.
func NewDefaultRegistry(opts Options) (*ToolRegistry, error) {
	registry := NewToolRegistry()

	defaultTools := GeospatialTools(opts)
	if opts.EnableFinance {
		defaultTools = append(defaultTools, FinanceTools(opts)...)
	}
	if opts.EnableEmail {
		defaultTools = append(defaultTools, NewSendEmailTool(opts.SMTP))
	}

	for _, tool := range defaultTools {
		if err := registry.RegisterTool(tool); err != nil {
			return nil, err
		}
	}

	logger.Successf("Initialized tool registry with %d tools", len(defaultTools))
	return registry, nil
}
