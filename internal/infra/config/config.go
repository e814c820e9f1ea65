package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	LLM     LLMConfig     `yaml:"llm"`
	ChatPDF ChatPDFConfig `yaml:"chatPdf"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	Retry          RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries of POST requests that end
// in a 5xx response; paths listed in Exclude are never retried.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// LLMConfig contains ChatGPT/OpenAI settings for both chat and embeddings.
type LLMConfig struct {
	APIKey         string  `yaml:"apiKey"`
	BaseURL        string  `yaml:"baseUrl"`
	Model          string  `yaml:"model"`
	EmbeddingModel string  `yaml:"embeddingModel"`
	Temperature    float32 `yaml:"temperature"`
}

// ChatPDFConfig controls the document ingestion and chat pipeline.
type ChatPDFConfig struct {
	VectorDim       int              `yaml:"vectorDim"`
	ChunkSize       int              `yaml:"chunkSize"`
	ChunkOverlap    int              `yaml:"chunkOverlap"`
	EmbedMaxRetries int              `yaml:"embedMaxRetries"`
	EmbedBaseDelay  time.Duration    `yaml:"embedBaseDelay"`
	PresignPutTTL   time.Duration    `yaml:"presignPutTtl"`
	PresignGetTTL   time.Duration    `yaml:"presignGetTtl"`
	Blob            BlobConfig       `yaml:"blob"`
	Redis           RedisConfig      `yaml:"redis"`
	Postgres        PostgresConfig   `yaml:"postgres"`
	Worker          ChatPDFWorkerCfg `yaml:"worker"`
}

// BlobConfig configures the S3-compatible object store for uploaded PDFs.
type BlobConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}

// ChatPDFWorkerCfg toggles asynchronous ingestion delivery.
type ChatPDFWorkerCfg struct {
	Enabled bool `yaml:"enabled"`
}

// RedisConfig contains connection information for the job queue.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_READ_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.ReadTimeout = parsed
		}
	}
	if v := os.Getenv("HTTP_WRITE_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.WriteTimeout = parsed
		}
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_ENABLED"); v != "" {
		cfg.HTTP.Retry.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("HTTP_RETRY_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Retry.MaxAttempts = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_BASE_BACKOFF"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.Retry.BaseBackoff = parsed
		}
	}

	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
		cfg.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}

	if v := os.Getenv("CHATPDF_VECTOR_DIM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.ChatPDF.VectorDim = parsed
		}
	}
	if v := os.Getenv("CHATPDF_CHUNK_SIZE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.ChatPDF.ChunkSize = parsed
		}
	}
	if v := os.Getenv("CHATPDF_CHUNK_OVERLAP"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.ChatPDF.ChunkOverlap = parsed
		}
	}
	if v := os.Getenv("CHATPDF_EMBED_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.ChatPDF.EmbedMaxRetries = parsed
		}
	}
	if v := os.Getenv("CHATPDF_EMBED_BASE_DELAY"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.ChatPDF.EmbedBaseDelay = parsed
		}
	}
	if v := os.Getenv("CHATPDF_PRESIGN_PUT_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.ChatPDF.PresignPutTTL = parsed
		}
	}
	if v := os.Getenv("CHATPDF_PRESIGN_GET_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.ChatPDF.PresignGetTTL = parsed
		}
	}
	// blob_credentials_*, blob_region, blob_bucket per the agreed env names.
	if v := os.Getenv("BLOB_CREDENTIALS_ENDPOINT"); v != "" {
		cfg.ChatPDF.Blob.Endpoint = v
	}
	if v := os.Getenv("BLOB_CREDENTIALS_ACCESS_KEY"); v != "" {
		cfg.ChatPDF.Blob.AccessKey = v
	}
	if v := os.Getenv("BLOB_CREDENTIALS_SECRET_KEY"); v != "" {
		cfg.ChatPDF.Blob.SecretKey = v
	}
	if v := os.Getenv("BLOB_BUCKET"); v != "" {
		cfg.ChatPDF.Blob.Bucket = v
	}
	if v := os.Getenv("BLOB_REGION"); v != "" {
		cfg.ChatPDF.Blob.Region = v
	}
	// catalog_url.
	if v := os.Getenv("CATALOG_URL"); v != "" {
		cfg.ChatPDF.Postgres.DSN = v
	}
	if v := os.Getenv("CHATPDF_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.ChatPDF.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("CHATPDF_POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.ChatPDF.Postgres.MinConns = int32(parsed)
		}
	}
	// vector_url/vector_token/vector_namespace are not read: the vector
	// index shares the catalog Postgres connection (pgvector) and has no
	// namespace setting.
	if v := os.Getenv("CHATPDF_WORKER_ENABLED"); v != "" {
		cfg.ChatPDF.Worker.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("CHATPDF_REDIS_ENABLED"); v != "" {
		cfg.ChatPDF.Redis.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("CHATPDF_REDIS_ADDR"); v != "" {
		cfg.ChatPDF.Redis.Addr = v
	}
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address: ":8080",
			AllowedOrigins: []string{
				"*",
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
				Exclude: []string{
					"/api/v1/chatpdf/webhook/ingest",
					"/api/v1/chatpdf/chat",
				},
			},
		},
		LLM: LLMConfig{
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Temperature:    0.2,
		},
		ChatPDF: ChatPDFConfig{
			VectorDim:       1536,
			ChunkSize:       512,
			ChunkOverlap:    100,
			EmbedMaxRetries: 3,
			EmbedBaseDelay:  time.Second,
			PresignPutTTL:   15 * time.Minute,
			PresignGetTTL:   time.Hour,
			Blob:            BlobConfig{},
			Redis: RedisConfig{
				Enabled: false,
				Addr:    "",
			},
			Postgres: PostgresConfig{
				DSN:      "",
				MaxConns: 10,
				MinConns: 2,
			},
			Worker: ChatPDFWorkerCfg{
				Enabled: false,
			},
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.LLM.EmbeddingModel) == "" {
		return errors.New("llm.embeddingModel cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	if c.ChatPDF.VectorDim <= 0 {
		return errors.New("chatPdf.vectorDim must be positive")
	}
	if c.ChatPDF.ChunkSize <= 0 {
		return errors.New("chatPdf.chunkSize must be positive")
	}
	if c.ChatPDF.ChunkOverlap < 0 || c.ChatPDF.ChunkOverlap >= c.ChatPDF.ChunkSize {
		return errors.New("chatPdf.chunkOverlap must be non-negative and smaller than chunkSize")
	}
	if c.ChatPDF.EmbedMaxRetries <= 0 {
		return errors.New("chatPdf.embedMaxRetries must be positive")
	}
	if c.ChatPDF.Redis.Enabled && strings.TrimSpace(c.ChatPDF.Redis.Addr) == "" {
		return errors.New("chatPdf.redis.addr cannot be empty when chatPdf.redis is enabled")
	}
	return nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var result []string
	for _, part := range parts {
		val := strings.TrimSpace(part)
		if val != "" {
			result = append(result, val)
		}
	}
	return result
}
