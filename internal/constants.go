package internal

const (
	APP_NAME    = "geoagent"
	APP_VERSION = "1.0.0"

	DEFAULT_CONFIG_PATH = "./data/config.toml"
	DEFAULT_ENV_FILE    = ".env"
	DEFAULT_LOG_DIR     = "./data"

	DEFAULT_LISTEN_ADDR          = ":8000"
	DEFAULT_SATELLITE_IMAGE_PATH = "./satellite_image.jpg"
	DEFAULT_MAX_UPLOAD_MB        = 32

	DEFAULT_MODEL           = "gpt-4o"
	DEFAULT_EMBEDDING_MODEL = "text-embedding-3-large"

	DEFAULT_MAX_ITERATIONS   = 10
	DEFAULT_REQUEST_TIMEOUT  = 120
	DEFAULT_TOOL_TIMEOUT     = 30
	DEFAULT_SHUTDOWN_TIMEOUT = 3

	DEFAULT_CHUNK_SIZE    = 1000
	DEFAULT_CHUNK_OVERLAP = 100
	DEFAULT_RETRIEVAL_K   = 4
)
