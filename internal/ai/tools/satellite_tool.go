package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sashabaranov/go-openai/jsonschema"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"geoagent/internal/logger"
)

const layerDescription = `The type of satellite analysis to perform. It selects the band combination used to render the image.
- TRUE_COLOR: natural colour composite (B04, B03, B02), what the human eye would see
- VEGETATION: NDVI-style vegetation highlight (B08, B04), dense vegetation in green
- WATER: water detection (B03, B08), water bodies in blue
- MOISTURE: soil and vegetation moisture (B11, B08), wetter areas brighter
- FLOOD: combined water and moisture index for flood mapping
- URBAN: built-up area detection (B12, B11, B04), urban objects bright
- CLOUDS: cloud detection, clouds bright and clear sky dark
- SNOW: snow and ice detection (B03, B11), snow appears white`

type SatelliteImageArgs struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Date         string  `json:"date"`
	Layer        string  `json:"layer"`
	BBoxVariance float64 `json:"bbox_variance"`
}

// SatelliteImageTool renders a Sentinel-2 L2A scene around a point and
// stores it as the single process-wide satellite image.
type SatelliteImageTool struct {
	BaseTool
	client     *http.Client
	tokens     *sentinelToken
	configured bool
	processURL string
	imagePath  string
	width      int
	height     int
	maxCloud   int

	// Serializes writers of imagePath
	mu sync.Mutex
}

func NewSatelliteImageTool(opts Options) *SatelliteImageTool {
	props := coordinateProperties()
	props["date"] = jsonschema.Definition{
		Type:        jsonschema.String,
		Description: "Reference date in YYYY-MM-DD format, imagery from the 30 days before it is used",
	}
	props["layer"] = jsonschema.Definition{
		Type:        jsonschema.String,
		Description: layerDescription,
	}
	props["bbox_variance"] = jsonschema.Definition{
		Type:        jsonschema.Number,
		Description: "Half-size of the view box in degrees around the point, e.g. 0.5 to zoom out and 0.05 for a close up. Try not to exceed 0.05, the image gets pixelated.",
	}

	client := opts.httpClient()
	tokens := &sentinelToken{
		client: client,
		credentials: &clientcredentials.Config{
			ClientID:     opts.Satellite.ClientID,
			ClientSecret: opts.Satellite.ClientSecret,
			TokenURL:     opts.Satellite.TokenURL,
		},
	}

	return &SatelliteImageTool{
		BaseTool: BaseTool{
			ToolName:        "GetSatelliteImage",
			ToolDescription: "Fetches a Sentinel-2 satellite image for the given latitude, longitude and date, rendered for the requested analysis layer, and saves it for display.",
			ToolParameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: props,
				Required:   []string{"latitude", "longitude", "date"},
			},
			ToolDefaults: map[string]any{
				"layer":         "TRUE_COLOR",
				"bbox_variance": 0.05,
			},
		},
		client:     client,
		tokens:     tokens,
		configured: opts.Satellite.ClientID != "" && opts.Satellite.ClientSecret != "",
		processURL: opts.Satellite.ProcessURL,
		imagePath:  opts.Satellite.ImagePath,
		width:      opts.Satellite.Width,
		height:     opts.Satellite.Height,
		maxCloud:   opts.Satellite.MaxCloudCoverage,
	}
}

// sentinelToken caches the client credentials token between calls. A token is
// fetched under the caller's context, so a cancelled or expired request also
// stops the token exchange.
type sentinelToken struct {
	client      *http.Client
	credentials *clientcredentials.Config

	mu     sync.Mutex
	cached *oauth2.Token
}

func (s *sentinelToken) token(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached.Valid() {
		return s.cached, nil
	}

	// Token requests go through the same client so they share timeouts and test servers
	token, err := s.credentials.Token(context.WithValue(ctx, oauth2.HTTPClient, s.client))
	if err != nil {
		return nil, err
	}
	s.cached = token
	return token, nil
}

// ImagePath is where the most recent image is stored
func (t *SatelliteImageTool) ImagePath() string {
	return t.imagePath
}

func (t *SatelliteImageTool) processRequest(p SatelliteImageArgs, date time.Time) map[string]any {
	from := date.AddDate(0, 0, -30).Format("2006-01-02")
	to := date.Format("2006-01-02")

	return map[string]any{
		"input": map[string]any{
			"bounds": map[string]any{
				"bbox": []float64{
					p.Longitude - p.BBoxVariance,
					p.Latitude - p.BBoxVariance,
					p.Longitude + p.BBoxVariance,
					p.Latitude + p.BBoxVariance,
				},
			},
			"data": []map[string]any{{
				"type": "sentinel-2-l2a",
				"dataFilter": map[string]any{
					"timeRange": map[string]string{
						"from": from + "T00:00:00Z",
						"to":   to + "T23:59:59Z",
					},
					"maxCloudCoverage": t.maxCloud,
				},
			}},
		},
		"output": map[string]any{
			"width":  t.width,
			"height": t.height,
			"responses": []map[string]any{{
				"identifier": "default",
				"format":     map[string]string{"type": "image/jpeg"},
			}},
		},
		"evalscript": EvalscriptForLayer(p.Layer),
	}
}

func (t *SatelliteImageTool) Execute(ctx context.Context, args string) (string, error) {
	var p SatelliteImageArgs
	if err := decodeArgs(t.Name(), args, &p); err != nil {
		return "", err
	}
	if !t.configured {
		return "", errors.New("Sentinel Hub credentials (CLIENT_ID, CLIENT_SECRET) are not configured")
	}

	date, err := time.Parse("2006-01-02", p.Date)
	if err != nil {
		return "", fmt.Errorf("date must be YYYY-MM-DD, got %q", p.Date)
	}
	if p.BBoxVariance <= 0 || p.BBoxVariance > 1 {
		return "", fmt.Errorf("bbox_variance must be in (0, 1], got %v", p.BBoxVariance)
	}

	payload, err := json.Marshal(t.processRequest(p, date))
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.processURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/jpeg")

	token, err := t.tokens.token(ctx)
	if err != nil {
		return "", fmt.Errorf("auth failed: %w", err)
	}
	authed := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, t.client), oauth2.StaticTokenSource(token))
	body, err := do(authed, req)
	if err != nil {
		return "", err
	}

	img, err := imaging.Decode(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("process API did not return an image: %w", err)
	}

	if err := t.save(img); err != nil {
		return "", err
	}

	logger.Infof("[%s] Saved %s image for (%s, %s) to %s", t.Name(), p.Layer, formatCoord(p.Latitude), formatCoord(p.Longitude), t.imagePath)
	return fmt.Sprintf("Image saved as %s (layer %s, imagery from %s to %s). It is available at /api/satellite-image.",
		filepath.Base(t.imagePath), p.Layer, date.AddDate(0, 0, -30).Format("2006-01-02"), p.Date), nil
}

// save replaces the stored image atomically so readers never see a partial file
func (t *SatelliteImageTool) save(img image.Image) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	dir := filepath.Dir(t.imagePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".satellite-*.jpg")
	if err != nil {
		return fmt.Errorf("failed to create temp image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := imaging.Encode(tmp, img, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), t.imagePath)
}
