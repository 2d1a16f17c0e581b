package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"geoagent/internal"
)

type ServerConfig struct {
	Addr        string `toml:"addr"`
	EnableMCP   bool   `toml:"enable_mcp"`
	MaxUploadMB int64  `toml:"max_upload_mb"`
}

type LLMConfig struct {
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	Model             string  `toml:"model"`
	EmbeddingModel    string  `toml:"embedding_model"`
	Temperature       float32 `toml:"temperature"`
	MaxResponseTokens int     `toml:"max_response_tokens"`
}

type AgentConfig struct {
	MaxIterations      int    `toml:"max_iterations"`
	RequestTimeout     int    `toml:"request_timeout"`
	ToolTimeout        int    `toml:"tool_timeout"`
	ParallelTools      bool   `toml:"parallel_tools"`
	EnableFinanceTools bool   `toml:"enable_finance_tools"`
	EnableEmailTool    bool   `toml:"enable_email_tool"`
	SystemPrompt       string `toml:"system_prompt"`
}

// APIConfig holds endpoints and keys of the services behind the agent's tools
type APIConfig struct {
	UserAgent       string `toml:"user_agent"`
	NominatimURL    string `toml:"nominatim_url"`
	OverpassURL     string `toml:"overpass_url"`
	ElevationURL    string `toml:"elevation_url"`
	OpenWeatherURL  string `toml:"openweather_url"`
	OpenWeatherKey  string `toml:"openweather_key"`
	TomTomURL       string `toml:"tomtom_url"`
	TomTomKey       string `toml:"tomtom_key"`
	OpenCageURL     string `toml:"opencage_url"`
	OpenCageKey     string `toml:"opencage_key"`
	YahooFinanceURL string `toml:"yahoo_finance_url"`
	// YahooCookieURL hands out the session cookie the quoteSummary crumb is bound to
	YahooCookieURL  string `toml:"yahoo_cookie_url"`
	NewsAPIURL      string `toml:"news_api_url"`
	NewsAPIKey      string `toml:"news_api_key"`
}

type SatelliteConfig struct {
	ClientID         string `toml:"client_id"`
	ClientSecret     string `toml:"client_secret"`
	TokenURL         string `toml:"token_url"`
	ProcessURL       string `toml:"process_url"`
	ImagePath        string `toml:"image_path"`
	Width            int    `toml:"width"`
	Height           int    `toml:"height"`
	MaxCloudCoverage int    `toml:"max_cloud_coverage"`
}

type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	From     string `toml:"from"`
}

type MarketingConfig struct {
	ChunkSize    int     `toml:"chunk_size"`
	ChunkOverlap int     `toml:"chunk_overlap"`
	RetrievalK   int     `toml:"retrieval_k"`
	Temperature  float32 `toml:"temperature"`
}

type LogConfig struct {
	Dir   string `toml:"dir"`
	Debug bool   `toml:"debug"`
}

type Config struct {
	Server    ServerConfig    `toml:"server"`
	LLM       LLMConfig       `toml:"llm"`
	Agent     AgentConfig     `toml:"agent"`
	APIs      APIConfig       `toml:"apis"`
	Satellite SatelliteConfig `toml:"satellite"`
	SMTP      SMTPConfig      `toml:"smtp"`
	Marketing MarketingConfig `toml:"marketing"`
	Log       LogConfig       `toml:"log"`
}

// Default returns a configuration that works out of the box once OPENAI_API_KEY is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        internal.DEFAULT_LISTEN_ADDR,
			MaxUploadMB: internal.DEFAULT_MAX_UPLOAD_MB,
		},
		LLM: LLMConfig{
			Model:             internal.DEFAULT_MODEL,
			EmbeddingModel:    internal.DEFAULT_EMBEDDING_MODEL,
			Temperature:       0,
			MaxResponseTokens: 4096,
		},
		Agent: AgentConfig{
			MaxIterations:  internal.DEFAULT_MAX_ITERATIONS,
			RequestTimeout: internal.DEFAULT_REQUEST_TIMEOUT,
			ToolTimeout:    internal.DEFAULT_TOOL_TIMEOUT,
			ParallelTools:  true,
		},
		APIs: APIConfig{
			UserAgent:       "Geospatial-Agent",
			NominatimURL:    "https://nominatim.openstreetmap.org",
			OverpassURL:     "https://overpass-api.de/api/interpreter",
			ElevationURL:    "https://api.open-elevation.com/api/v1/lookup",
			OpenWeatherURL:  "https://api.openweathermap.org/data/2.5/weather",
			TomTomURL:       "https://api.tomtom.com/traffic/services/4/flowSegmentData/relative0/10/json",
			OpenCageURL:     "https://api.opencagedata.com/geocode/v1/json",
			YahooFinanceURL: "https://query1.finance.yahoo.com",
			YahooCookieURL:  "https://fc.yahoo.com",
			NewsAPIURL:      "https://newsapi.org/v2/everything",
		},
		Satellite: SatelliteConfig{
			TokenURL:         "https://services.sentinel-hub.com/oauth/token",
			ProcessURL:       "https://services.sentinel-hub.com/api/v1/process",
			ImagePath:        internal.DEFAULT_SATELLITE_IMAGE_PATH,
			Width:            1024,
			Height:           1024,
			MaxCloudCoverage: 20,
		},
		SMTP: SMTPConfig{
			Host: "smtp.gmail.com",
			Port: 587,
		},
		Marketing: MarketingConfig{
			ChunkSize:    internal.DEFAULT_CHUNK_SIZE,
			ChunkOverlap: internal.DEFAULT_CHUNK_OVERLAP,
			RetrievalK:   internal.DEFAULT_RETRIEVAL_K,
			Temperature:  0,
		},
		Log: LogConfig{
			Dir: internal.DEFAULT_LOG_DIR,
		},
	}
}

// Validate checks if all required configuration fields are properly set
func Validate(cfg *Config) error {
	var problems []string

	if cfg.Server.Addr == "" {
		problems = append(problems, "server.addr is required")
	} else if _, _, err := net.SplitHostPort(cfg.Server.Addr); err != nil {
		problems = append(problems, "server.addr must be host:port")
	}
	if cfg.Server.MaxUploadMB <= 0 {
		problems = append(problems, "server.max_upload_mb must be positive")
	}
	if cfg.LLM.Model == "" {
		problems = append(problems, "llm.model is required")
	}
	if cfg.LLM.EmbeddingModel == "" {
		problems = append(problems, "llm.embedding_model is required")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		problems = append(problems, "llm.temperature must be between 0 and 2")
	}
	if cfg.Agent.MaxIterations <= 0 {
		problems = append(problems, "agent.max_iterations must be positive")
	}
	if cfg.Agent.RequestTimeout <= 0 {
		problems = append(problems, "agent.request_timeout must be positive")
	}
	if cfg.Agent.ToolTimeout <= 0 {
		problems = append(problems, "agent.tool_timeout must be positive")
	}
	if cfg.Satellite.ImagePath == "" {
		problems = append(problems, "satellite.image_path is required")
	}
	if cfg.Marketing.ChunkSize <= 0 {
		problems = append(problems, "marketing.chunk_size must be positive")
	}
	if cfg.Marketing.ChunkOverlap < 0 || cfg.Marketing.ChunkOverlap >= cfg.Marketing.ChunkSize {
		problems = append(problems, "marketing.chunk_overlap must be smaller than chunk_size")
	}
	if cfg.Marketing.RetrievalK <= 0 {
		problems = append(problems, "marketing.retrieval_k must be positive")
	}
	if cfg.Agent.EnableEmailTool && (cfg.SMTP.Host == "" || cfg.SMTP.From == "") {
		problems = append(problems, "smtp.host and smtp.from are required when agent.enable_email_tool is set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return nil
}

// Load reads the TOML file at path over the defaults, applies environment
// overrides and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path as TOML, creating parent directories
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for config file: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

func applyEnv(cfg *Config) error {
	envString(&cfg.Server.Addr, "GEOAGENT_ADDR")
	envString(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	envString(&cfg.LLM.BaseURL, "OPENAI_BASE_URL")
	envString(&cfg.LLM.Model, "LLM_MODEL_NAME")
	envString(&cfg.APIs.NewsAPIKey, "NEWS_API_KEY")
	envString(&cfg.APIs.NewsAPIURL, "NEWS_API_URL")
	envString(&cfg.APIs.OpenWeatherKey, "OPENWEATHER_API_KEY")
	envString(&cfg.APIs.TomTomKey, "TOMTOM_API_KEY")
	envString(&cfg.APIs.OpenCageKey, "OPENCAGE_API_KEY")
	envString(&cfg.Satellite.ClientID, "CLIENT_ID")
	envString(&cfg.Satellite.ClientSecret, "CLIENT_SECRET")
	envString(&cfg.SMTP.Host, "SMTP_HOST")
	envString(&cfg.SMTP.Username, "SMTP_USERNAME")
	envString(&cfg.SMTP.Password, "SMTP_PASSWORD")
	envString(&cfg.SMTP.From, "SMTP_FROM")
	envString(&cfg.Log.Dir, "GEOAGENT_LOG_DIR")

	if value := os.Getenv("TEMPERATURE"); value != "" {
		temperature, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return fmt.Errorf("invalid TEMPERATURE %q: %w", value, err)
		}
		cfg.LLM.Temperature = float32(temperature)
	}

	if value := os.Getenv("SMTP_PORT"); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SMTP_PORT %q: %w", value, err)
		}
		cfg.SMTP.Port = port
	}

	// The From address defaults to the login, as most SMTP relays require
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}

	return nil
}

func envString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}
