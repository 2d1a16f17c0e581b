package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"
	"golang.org/x/time/rate"

	"geoagent/internal/logger"
)

// nominatimClient is shared by the forward and reverse geocoding tools.
// The public Nominatim instance allows one request per second per client.
type nominatimClient struct {
	client    *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
}

func newNominatimClient(opts Options) *nominatimClient {
	return &nominatimClient{
		client:    opts.httpClient(),
		baseURL:   strings.TrimRight(opts.APIs.NominatimURL, "/"),
		userAgent: opts.APIs.UserAgent,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func (n *nominatimClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}
	params.Set("format", "json")
	return fetchJSON(ctx, n.client, n.baseURL+path, params, map[string]string{"User-Agent": n.userAgent}, out)
}

func coordinateProperties() map[string]jsonschema.Definition {
	return map[string]jsonschema.Definition{
		"latitude": {
			Type:        jsonschema.Number,
			Description: "Latitude of the given coordinate",
		},
		"longitude": {
			Type:        jsonschema.Number,
			Description: "Longitude of the given coordinate",
		},
	}
}

type CoordinatesArgs struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type PlaceNameArgs struct {
	PlaceName string `json:"place_name"`
}

// CoordinatesTool converts a place name into latitude and longitude
type CoordinatesTool struct {
	BaseTool
	osm *nominatimClient
}

func NewCoordinatesTool(osm *nominatimClient) *CoordinatesTool {
	return &CoordinatesTool{
		BaseTool: BaseTool{
			ToolName:        "GetCoordinatesFromPlace",
			ToolDescription: "Converts a place name into latitude and longitude using OpenStreetMap data.",
			ToolParameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"place_name": {
						Type:        jsonschema.String,
						Description: "The place name to be converted to coordinates",
					},
				},
				Required: []string{"place_name"},
			},
		},
		osm: osm,
	}
}

func (t *CoordinatesTool) Execute(ctx context.Context, args string) (string, error) {
	var params PlaceNameArgs
	if err := decodeArgs(t.Name(), args, &params); err != nil {
		return "", err
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	query := url.Values{"q": {params.PlaceName}, "limit": {"1"}}
	if err := t.osm.get(ctx, "/search", query, &results); err != nil {
		return "", err
	}

	if len(results) == 0 {
		return fmt.Sprintf("Could not find coordinates for '%s'.", params.PlaceName), nil
	}

	logger.Debugf("[%s] %s -> %s,%s", t.Name(), params.PlaceName, results[0].Lat, results[0].Lon)
	return fmt.Sprintf("Coordinates for '%s' are: Latitude %s, Longitude %s.", params.PlaceName, results[0].Lat, results[0].Lon), nil
}

// PlaceTool converts coordinates into a human-readable place
type PlaceTool struct {
	BaseTool
	osm *nominatimClient
}

func NewPlaceTool(osm *nominatimClient) *PlaceTool {
	return &PlaceTool{
		BaseTool: BaseTool{
			ToolName:        "GetPlaceFromCoordinates",
			ToolDescription: "Converts latitude and longitude into a human-readable place name using OpenStreetMap data.",
			ToolParameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: coordinateProperties(),
				Required:   []string{"latitude", "longitude"},
			},
		},
		osm: osm,
	}
}

func (t *PlaceTool) Execute(ctx context.Context, args string) (string, error) {
	var params CoordinatesArgs
	if err := decodeArgs(t.Name(), args, &params); err != nil {
		return "", err
	}

	var result struct {
		Address map[string]string `json:"address"`
	}
	query := url.Values{
		"lat":            {formatCoord(params.Latitude)},
		"lon":            {formatCoord(params.Longitude)},
		"addressdetails": {"1"},
	}
	if err := t.osm.get(ctx, "/reverse", query, &result); err != nil {
		return "", err
	}

	lat, lon := formatCoord(params.Latitude), formatCoord(params.Longitude)
	if result.Address == nil {
		return fmt.Sprintf("Could not determine the place for coordinates (%s, %s).", lat, lon), nil
	}

	road := valueOr(result.Address, "road", "Unknown road")
	city := valueOr(result.Address, "city", "Unknown city")
	country := valueOr(result.Address, "country", "Unknown country")
	return fmt.Sprintf("The location at (%s, %s) is: %s, %s, %s.", lat, lon, road, city, country), nil
}

func valueOr(m map[string]string, key, fallback string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return fallback
}
