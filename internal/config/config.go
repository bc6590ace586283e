package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI    string
	DBName      string
	Port        string
	GinMode     string
	CORSOrigins []string

	// Ingestion limits
	MaxFileSize         int64
	SyncProcessingLimit int64
	MaxURLContentLength int64
	FileStorageDir      string

	// Chunking defaults, overridable per request
	MaxChunkSize      int
	ChunkOverlap      int
	TokenizerEncoding string

	// URL ingestion and crawling
	FetchTimeout      time.Duration
	CrawlMaxPages     int
	CrawlMaxDepth     int
	CrawlJSRendering  bool
	CrawlRequestDelay time.Duration

	// Embeddings
	GeminiAPIKey    string
	EmbeddingsModel string
	EmbeddingsRPS   int

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// HTTP rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Stale document reaper
	ReaperInterval  time.Duration
	StuckDocMaxAge  time.Duration
	ReaperBatchSize int64

	// Telemetry
	OTLPEndpoint   string
	ServiceName    string
	TracingEnabled bool
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/plugrag"),
		DBName:      getEnv("DB_NAME", "plugrag"),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		MaxFileSize:         getEnvInt64("MAX_FILE_SIZE", 52428800), // 50MB upload ceiling
		SyncProcessingLimit: getEnvInt64("SYNC_PROCESSING_LIMIT", 5242880),
		MaxURLContentLength: getEnvInt64("MAX_URL_CONTENT_LENGTH", 10485760),
		FileStorageDir:      getEnv("FILE_STORAGE_DIR", "./storage"),

		MaxChunkSize:      getEnvInt("MAX_CHUNK_SIZE", 700),
		ChunkOverlap:      getEnvInt("CHUNK_OVERLAP", 100),
		TokenizerEncoding: getEnv("TOKENIZER_ENCODING", "cl100k_base"),

		FetchTimeout:      getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		CrawlMaxPages:     getEnvInt("CRAWL_MAX_PAGES", 50),
		CrawlMaxDepth:     getEnvInt("CRAWL_MAX_DEPTH", 3),
		CrawlJSRendering:  getEnvBool("CRAWL_JS_RENDERING", false),
		CrawlRequestDelay: getEnvDuration("CRAWL_REQUEST_DELAY", time.Second),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		EmbeddingsModel: getEnv("EMBEDDINGS_MODEL", "text-embedding-004"),
		EmbeddingsRPS:   getEnvInt("EMBEDDINGS_RPS", 5),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		ReaperInterval:  getEnvDuration("REAPER_INTERVAL", 5*time.Minute),
		StuckDocMaxAge:  getEnvDuration("STUCK_DOC_MAX_AGE", 30*time.Minute),
		ReaperBatchSize: getEnvInt64("REAPER_BATCH_SIZE", 100),

		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
		ServiceName:    getEnv("SERVICE_NAME", "plugrag-ingestion"),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
	}

	if cfg.MaxChunkSize <= 0 {
		return nil, fmt.Errorf("MAX_CHUNK_SIZE must be positive, got %d", cfg.MaxChunkSize)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.MaxChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must be in [0, MAX_CHUNK_SIZE), got %d", cfg.ChunkOverlap)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
