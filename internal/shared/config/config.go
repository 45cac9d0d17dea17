package config

import (
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Env       string
	Port      string
	LogLevel  string
	LogPretty bool

	DatabaseURL string

	JWTSecret            string
	JWTExpirationMinutes int

	MaxFileSize      int64
	UploadDir        string
	AllowedFileTypes []string

	ObjectStoreType string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool

	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingBaseURL    string
	EmbeddingDimensions int
	EmbeddingTimeout    time.Duration
	OpenAIAPIKey        string
	GeminiAPIKey        string

	OCRProvider        string
	OCRLanguage        string
	TesseractPath      string
	PdftoppmPath       string
	OCRHTTPURL         string
	OCRWorkers         int
	OCRPageConcurrency int

	QueueDriver       string
	RedisURL          string
	QueueStream       string
	QueueGroup        string
	SQSQueueURL       string
	WorkerConcurrency int

	CORSAllowOrigin    []string
	RateLimitPerMinute int

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
}

// Load reads configuration from environment variables with sensible defaults.
// Values from the optional CONFIG_FILE YAML are applied first so env always wins.
func Load() Config {
	loadEnvFiles(".env", "cmd/.env")
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := applyYAMLFile(path); err != nil {
			log.Printf("config: %v", err)
		}
	}

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	openAIKey := getEnv("OPENAI_API_KEY", "")
	geminiKey := getEnv("GEMINI_API_KEY", "")

	return Config{
		Env:       env,
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvBool("LOG_PRETTY", false),

		DatabaseURL: dbURL,

		JWTSecret:            getEnv("JWT_SECRET", ""),
		JWTExpirationMinutes: getEnvInt("JWT_EXPIRATION_MINUTES", 30),

		MaxFileSize:      int64(getEnvInt("MAX_FILE_SIZE", 10*1024*1024)),
		UploadDir:        getEnv("UPLOAD_DIR", "uploads"),
		AllowedFileTypes: splitAndTrim(getEnv("ALLOWED_FILE_TYPES", "pdf,png,jpg,jpeg,docx")),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		MinioEndpoint:   getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:  getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:  getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:     getEnv("MINIO_BUCKET", "documents"),
		MinioUseSSL:     getEnvBool("MINIO_USE_SSL", false),

		EmbeddingProvider:   normalizeEmbeddingProvider(getEnv("EMBEDDING_PROVIDER", ""), openAIKey, geminiKey),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", ""),
		EmbeddingBaseURL:    getEnv("EMBEDDING_BASE_URL", ""),
		EmbeddingDimensions: getEnvInt("EMBEDDING_DIMENSIONS", 1536),
		EmbeddingTimeout:    time.Duration(getEnvInt("EMBEDDING_TIMEOUT_SECONDS", 30)) * time.Second,
		OpenAIAPIKey:        openAIKey,
		GeminiAPIKey:        geminiKey,

		OCRProvider:        strings.ToLower(getEnv("OCR_PROVIDER", "tesseract")),
		OCRLanguage:        getEnv("OCR_LANGUAGE", "eng"),
		TesseractPath:      getEnv("TESSERACT_PATH", "tesseract"),
		PdftoppmPath:       getEnv("PDFTOPPM_PATH", "pdftoppm"),
		OCRHTTPURL:         getEnv("OCR_HTTP_URL", ""),
		OCRWorkers:         getEnvInt("OCR_WORKERS", runtime.NumCPU()),
		OCRPageConcurrency: getEnvInt("OCR_PAGE_CONCURRENCY", 2),

		QueueDriver:       normalizeQueueDriver(getEnv("QUEUE_DRIVER", "inline")),
		RedisURL:          getEnv("REDIS_URL", ""),
		QueueStream:       getEnv("QUEUE_STREAM", "documents:process"),
		QueueGroup:        getEnv("QUEUE_GROUP", "document-workers"),
		SQSQueueURL:       getEnv("SQS_QUEUE_URL", ""),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),

		CORSAllowOrigin:    splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", ""),
	}
}

// IsDevLike reports whether env allows in-memory fallbacks.
func IsDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

// MaxFileSizeMB reports the upload limit in whole megabytes for messages.
func (c Config) MaxFileSizeMB() int64 {
	return c.MaxFileSize / (1024 * 1024)
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config: %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizeQueueDriver(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "redis":
		return "redis"
	case "sqs":
		return "sqs"
	default:
		return "inline"
	}
}

func normalizeEmbeddingProvider(raw, openAIKey, geminiKey string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "ollama":
		return "ollama"
	case "gemini":
		return "gemini"
	case "none", "off":
		return "none"
	}
	if strings.TrimSpace(openAIKey) != "" {
		return "openai"
	}
	if strings.TrimSpace(geminiKey) != "" {
		return "gemini"
	}
	return "none"
}
