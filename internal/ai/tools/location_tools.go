package tools

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
)

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometers between two coordinates
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaPhi := (lat2 - lat1) * math.Pi / 180
	deltaLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

type DistanceArgs struct {
	Lat1 float64 `json:"lat1"`
	Lon1 float64 `json:"lon1"`
	Lat2 float64 `json:"lat2"`
	Lon2 float64 `json:"lon2"`
}

// DistanceTool is computed locally, it never leaves the process
type DistanceTool struct {
	BaseTool
}

func NewDistanceTool() *DistanceTool {
	number := func(desc string) jsonschema.Definition {
		return jsonschema.Definition{Type: jsonschema.Number, Description: desc}
	}
	return &DistanceTool{
		BaseTool: BaseTool{
			ToolName:        "GetDistanceBetweenPoints",
			ToolDescription: "Calculates the Haversine distance between two sets of coordinates in kilometers.",
			ToolParameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"lat1": number("Latitude of the first coordinate"),
					"lon1": number("Longitude of the first coordinate"),
					"lat2": number("Latitude of the second coordinate"),
					"lon2": number("Longitude of the second coordinate"),
				},
				Required: []string{"lat1", "lon1", "lat2", "lon2"},
			},
		},
	}
}

func (t *DistanceTool) Execute(_ context.Context, args string) (string, error) {
	var p DistanceArgs
	if err := decodeArgs(t.Name(), args, &p); err != nil {
		return "", err
	}

	distance := Haversine(p.Lat1, p.Lon1, p.Lat2, p.Lon2)
	return fmt.Sprintf("The distance between (%s, %s) and (%s, %s) is %.2f kilometers.",
		formatCoord(p.Lat1), formatCoord(p.Lon1), formatCoord(p.Lat2), formatCoord(p.Lon2), distance), nil
}

// AdminBoundaryTool looks up country, state and county through OpenCage
type AdminBoundaryTool struct {
	BaseTool
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewAdminBoundaryTool(opts Options) *AdminBoundaryTool {
	return &AdminBoundaryTool{
		BaseTool: BaseTool{
			ToolName:        "GetAdministrativeBoundary",
			ToolDescription: "Fetches administrative boundaries like district, state, or country for a given latitude and longitude using OpenCage Geocoder API.",
			ToolParameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: coordinateProperties(),
				Required:   []string{"latitude", "longitude"},
			},
		},
		client:  opts.httpClient(),
		baseURL: opts.APIs.OpenCageURL,
		apiKey:  opts.APIs.OpenCageKey,
	}
}

func (t *AdminBoundaryTool) Execute(ctx context.Context, args string) (string, error) {
	var p CoordinatesArgs
	if err := decodeArgs(t.Name(), args, &p); err != nil {
		return "", err
	}
	if t.apiKey == "" {
		return "", fmt.Errorf("OpenCage API key is not configured")
	}

	var resp struct {
		Results []struct {
			Components map[string]any `json:"components"`
		} `json:"results"`
	}
	lat, lon := formatCoord(p.Latitude), formatCoord(p.Longitude)
	params := url.Values{"q": {lat + "," + lon}, "key": {t.apiKey}}
	if err := fetchJSON(ctx, t.client, t.baseURL, params, nil, &resp); err != nil {
		return "", err
	}

	if len(resp.Results) == 0 {
		return "Error retrieving administrative boundaries.", nil
	}

	components := resp.Results[0].Components
	component := func(key string) string {
		if v, ok := components[key].(string); ok && v != "" {
			return v
		}
		return "Unknown"
	}
	return fmt.Sprintf("The administrative boundaries for (%s, %s) are: Country - %s, State - %s, County - %s.",
		lat, lon, component("country"), component("state"), component("county")), nil
}

type POIArgs struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    int     `json:"radius"`
}

// PointsOfInterestTool queries Overpass for amenities around a point
type PointsOfInterestTool struct {
	BaseTool
	client  *http.Client
	baseURL string
}

func NewPointsOfInterestTool(opts Options) *PointsOfInterestTool {
	props := coordinateProperties()
	props["radius"] = jsonschema.Definition{
		Type:        jsonschema.Integer,
		Description: "Search radius in meters for POIs",
	}
	return &PointsOfInterestTool{
		BaseTool: BaseTool{
			ToolName:        "GetNearbyPointsOfInterest",
			ToolDescription: "Finds nearby points of interest like hospitals, restaurants, and more using the OpenStreetMap Overpass API.",
			ToolParameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: props,
				Required:   []string{"latitude", "longitude", "radius"},
			},
		},
		client:  opts.httpClient(),
		baseURL: opts.APIs.OverpassURL,
	}
}

func overpassAmenityQuery(lat, lon float64, radius int) string {
	around := fmt.Sprintf("around:%d,%s,%s", radius, formatCoord(lat), formatCoord(lon))
	return fmt.Sprintf(`[out:json];
(
  node(%[1]s)["amenity"];
  way(%[1]s)["amenity"];
  relation(%[1]s)["amenity"];
);
out body;`, around)
}

func (t *PointsOfInterestTool) Execute(ctx context.Context, args string) (string, error) {
	var p POIArgs
	if err := decodeArgs(t.Name(), args, &p); err != nil {
		return "", err
	}
	if p.Radius <= 0 {
		return "", fmt.Errorf("radius must be positive, got %d", p.Radius)
	}

	var resp struct {
		Elements []struct {
			Tags map[string]string `json:"tags"`
		} `json:"elements"`
	}
	params := url.Values{"data": {overpassAmenityQuery(p.Latitude, p.Longitude, p.Radius)}}
	if err := fetchJSON(ctx, t.client, t.baseURL, params, nil, &resp); err != nil {
		return "", err
	}

	if resp.Elements == nil {
		return "Error retrieving points of interest.", nil
	}
	if len(resp.Elements) == 0 {
		return "No nearby points of interest found.", nil
	}

	names := make([]string, 0, len(resp.Elements))
	for _, element := range resp.Elements {
		names = append(names, valueOr(element.Tags, "name", "Unnamed place"))
	}
	return "Nearby points of interest: " + strings.Join(names, ", "), nil
}

// ElevationTool reads altitude from Open-Elevation
type ElevationTool struct {
	BaseTool
	client  *http.Client
	baseURL string
}

func NewElevationTool(opts Options) *ElevationTool {
	return &ElevationTool{
		BaseTool: BaseTool{
			ToolName:        "GetElevation",
			ToolDescription: "Fetches the elevation (altitude) of a given location using the Open Elevation API.",
			ToolParameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: coordinateProperties(),
				Required:   []string{"latitude", "longitude"},
			},
		},
		client:  opts.httpClient(),
		baseURL: opts.APIs.ElevationURL,
	}
}

func (t *ElevationTool) Execute(ctx context.Context, args string) (string, error) {
	var p CoordinatesArgs
	if err := decodeArgs(t.Name(), args, &p); err != nil {
		return "", err
	}

	var resp struct {
		Results []struct {
			Elevation float64 `json:"elevation"`
		} `json:"results"`
	}
	lat, lon := formatCoord(p.Latitude), formatCoord(p.Longitude)
	if err := fetchJSON(ctx, t.client, t.baseURL, url.Values{"locations": {lat + "," + lon}}, nil, &resp); err != nil {
		return "", err
	}

	if len(resp.Results) == 0 {
		return fmt.Sprintf("Could not determine the elevation for coordinates (%s, %s).", lat, lon), nil
	}
	return fmt.Sprintf("The elevation at (%s, %s) is %s meters.", lat, lon, formatCoord(resp.Results[0].Elevation)), nil
}

// WeatherTool reports current conditions from OpenWeatherMap in metric units
type WeatherTool struct {
	BaseTool
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewWeatherTool(opts Options) *WeatherTool {
	return &WeatherTool{
		BaseTool: BaseTool{
			ToolName:        "GetWeatherForecast",
			ToolDescription: "Fetches the weather forecast for a given location using the OpenWeatherMap API.",
			ToolParameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: coordinateProperties(),
				Required:   []string{"latitude", "longitude"},
			},
		},
		client:  opts.httpClient(),
		baseURL: opts.APIs.OpenWeatherURL,
		apiKey:  opts.APIs.OpenWeatherKey,
	}
}

func (t *WeatherTool) Execute(ctx context.Context, args string) (string, error) {
	var p CoordinatesArgs
	if err := decodeArgs(t.Name(), args, &p); err != nil {
		return "", err
	}
	if t.apiKey == "" {
		return "", fmt.Errorf("OpenWeatherMap API key is not configured")
	}

	var resp struct {
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
	}
	lat, lon := formatCoord(p.Latitude), formatCoord(p.Longitude)
	params := url.Values{"lat": {lat}, "lon": {lon}, "appid": {t.apiKey}, "units": {"metric"}}
	if err := fetchJSON(ctx, t.client, t.baseURL, params, nil, &resp); err != nil {
		return "", err
	}

	if len(resp.Weather) == 0 {
		return "Error retrieving weather data.", nil
	}
	return fmt.Sprintf("The current weather at (%s, %s) is %s with a temperature of %s°C.",
		lat, lon, resp.Weather[0].Description, formatCoord(resp.Main.Temp)), nil
}

// TrafficTool reads the TomTom flow segment closest to a point
type TrafficTool struct {
	BaseTool
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewTrafficTool(opts Options) *TrafficTool {
	return &TrafficTool{
		BaseTool: BaseTool{
			ToolName:        "GetTrafficData",
			ToolDescription: "Fetches real-time traffic data (current and free-flow speed) for a given location using the TomTom Traffic API.",
			ToolParameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: coordinateProperties(),
				Required:   []string{"latitude", "longitude"},
			},
		},
		client:  opts.httpClient(),
		baseURL: opts.APIs.TomTomURL,
		apiKey:  opts.APIs.TomTomKey,
	}
}

func (t *TrafficTool) Execute(ctx context.Context, args string) (string, error) {
	var p CoordinatesArgs
	if err := decodeArgs(t.Name(), args, &p); err != nil {
		return "", err
	}
	if t.apiKey == "" {
		return "", fmt.Errorf("TomTom API key is not configured")
	}

	var resp struct {
		FlowSegmentData *struct {
			CurrentSpeed  float64 `json:"currentSpeed"`
			FreeFlowSpeed float64 `json:"freeFlowSpeed"`
			Confidence    float64 `json:"confidence"`
		} `json:"flowSegmentData"`
	}
	lat, lon := formatCoord(p.Latitude), formatCoord(p.Longitude)
	params := url.Values{"point": {lat + "," + lon}, "key": {t.apiKey}}
	if err := fetchJSON(ctx, t.client, t.baseURL, params, nil, &resp); err != nil {
		return "", err
	}

	if resp.FlowSegmentData == nil {
		return "Unable to retrieve traffic data. Check coordinates or API limits.", nil
	}
	flow := resp.FlowSegmentData
	return fmt.Sprintf("Traffic Status at (%s, %s):\n- Current Speed: %s km/h\n- Free Flow Speed: %s km/h\n- Confidence: %s",
		lat, lon, formatCoord(flow.CurrentSpeed), formatCoord(flow.FreeFlowSpeed), formatCoord(flow.Confidence)), nil
}
