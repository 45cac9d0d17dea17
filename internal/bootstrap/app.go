package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	googleauth "github.com/BilalEnesS/doc-panel/internal/auth"
	"github.com/BilalEnesS/doc-panel/internal/categories"
	"github.com/BilalEnesS/doc-panel/internal/documents"
	"github.com/BilalEnesS/doc-panel/internal/embedding"
	"github.com/BilalEnesS/doc-panel/internal/extract"
	"github.com/BilalEnesS/doc-panel/internal/pipeline"
	"github.com/BilalEnesS/doc-panel/internal/queue"
	"github.com/BilalEnesS/doc-panel/internal/search"
	"github.com/BilalEnesS/doc-panel/internal/services/health"
	"github.com/BilalEnesS/doc-panel/internal/shared/config"
	"github.com/BilalEnesS/doc-panel/internal/shared/server"
	"github.com/BilalEnesS/doc-panel/internal/shared/server/middleware"
	"github.com/BilalEnesS/doc-panel/internal/shared/storage/db"
	"github.com/BilalEnesS/doc-panel/internal/shared/storage/object"
	localstore "github.com/BilalEnesS/doc-panel/internal/shared/storage/object/local"
	miniostore "github.com/BilalEnesS/doc-panel/internal/shared/storage/object/minio"
	s3store "github.com/BilalEnesS/doc-panel/internal/shared/storage/object/s3"
	"github.com/BilalEnesS/doc-panel/internal/shared/telemetry"
	"github.com/BilalEnesS/doc-panel/internal/users"
)

const toolTimeout = 2 * time.Minute

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Redis  redis.UniversalClient
	Store  object.ObjectStore

	DocumentsRepo documents.Repo
	Extractor     extract.TextExtractor
	Embedder      *embedding.Generator
	Runner        *pipeline.Runner
	Dispatcher    documents.Dispatcher
	// Inline is set when documents are processed in the API process.
	Inline *queue.InlineDispatcher
	// Queue is set when QueueDriver is redis.
	Queue *queue.RedisQueue

	DocumentsService  *documents.Service
	SearchEngine      *search.Engine
	CategoriesService *categories.Service
	UsersService      *users.Service
	Health            *health.Service

	closers []func() error
}

// Build wires every dependency and the HTTP router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	app := &App{Config: cfg, Health: health.NewService()}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil {
		app.Health.Register("database", health.DBCheck(sqlDB))
	}

	if app.Redis, err = buildRedis(cfg); err != nil {
		return nil, err
	}
	if app.Redis != nil {
		app.Health.Register("redis", health.RedisCheck(app.Redis))
		app.closers = append(app.closers, app.Redis.Close)
	}

	if app.Store, err = buildStore(ctx, cfg); err != nil {
		return nil, err
	}

	app.Extractor = buildExtractor(cfg)
	if app.Embedder, err = buildEmbedder(ctx, cfg, app); err != nil {
		return nil, err
	}

	if sqlDB != nil {
		app.DocumentsRepo = &documents.PGRepo{DB: sqlDB}
	} else {
		app.DocumentsRepo = documents.NewMemoryRepo()
	}
	app.Runner = pipeline.NewRunner(app.DocumentsRepo, app.Store, app.Extractor, app.Embedder, cfg.OCRLanguage)

	if err := buildDispatcher(ctx, cfg, app); err != nil {
		return nil, err
	}

	buildServices(app)

	var limiter middleware.Limiter
	if app.Redis != nil {
		limiter = middleware.NewRedisLimiter(app.Redis)
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		DocumentHandler: documents.NewHandler(app.DocumentsService),
		SearchHandler:   search.NewHandler(app.SearchEngine),
		CategoryHandler: categories.NewHandler(app.CategoriesService),
		UserHandler:     users.NewHandler(app.UsersService),
		GoogleAuth: googleauth.NewGoogleService(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleRedirectURL,
			cfg.UIRedirectURL,
			app.UsersService,
		),
		Health:  app.Health,
		Limiter: limiter,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":                cfg.Env,
		"database":           sqlDB != nil,
		"object_store":       cfg.ObjectStoreType,
		"queue_driver":       cfg.QueueDriver,
		"embedding_provider": cfg.EmbeddingProvider,
		"embedding_enabled":  app.Embedder.Available(),
		"ocr_provider":       cfg.OCRProvider,
	})
	return app, nil
}

// Close releases clients opened by Build.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_missing", map[string]any{"fallback": "memory"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultLambdaOptions()))
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	}
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_unavailable", map[string]any{"fallback": "memory", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildRedis(cfg config.Config) (redis.UniversalClient, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		if cfg.QueueDriver == "redis" {
			return nil, fmt.Errorf("QUEUE_DRIVER=redis requires REDIS_URL")
		}
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	default:
		return localstore.New(cfg.UploadDir), nil
	}
}

func buildExtractor(cfg config.Config) extract.TextExtractor {
	var ocr extract.OCR
	switch cfg.OCRProvider {
	case "http":
		ocr = extract.HTTPOCR{URL: cfg.OCRHTTPURL}
	case "none":
		ocr = extract.Unavailable{}
	default:
		ocr = extract.Tesseract{Path: cfg.TesseractPath, Timeout: toolTimeout}
	}
	rasterizer := extract.Pdftoppm{Path: cfg.PdftoppmPath, Timeout: toolTimeout}
	return extract.NewPool(extract.New(ocr, rasterizer, cfg.OCRPageConcurrency), cfg.OCRWorkers)
}

func buildEmbedder(ctx context.Context, cfg config.Config, app *App) (*embedding.Generator, error) {
	var provider embedding.Provider
	switch cfg.EmbeddingProvider {
	case "openai":
		client, err := embedding.NewOpenAI(cfg.OpenAIAPIKey, cfg.EmbeddingBaseURL, cfg.EmbeddingModel, cfg.EmbeddingTimeout)
		if err != nil {
			return nil, err
		}
		provider = client
	case "ollama":
		provider = embedding.NewOllama(cfg.EmbeddingBaseURL, cfg.EmbeddingModel, cfg.EmbeddingDimensions, cfg.EmbeddingTimeout)
	case "gemini":
		client, err := embedding.NewGemini(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, client.Close)
		provider = client
	}
	return embedding.NewGenerator(cfg.EmbeddingProvider, provider, cfg.EmbeddingDimensions, cfg.EmbeddingTimeout), nil
}

func buildDispatcher(ctx context.Context, cfg config.Config, app *App) error {
	switch cfg.QueueDriver {
	case "redis":
		app.Queue = queue.NewRedisQueue(app.Redis, cfg.QueueStream, cfg.QueueGroup)
		app.Dispatcher = queue.NewClientDispatcher(app.Queue)
	case "sqs":
		if strings.TrimSpace(cfg.SQSQueueURL) == "" {
			return fmt.Errorf("QUEUE_DRIVER=sqs requires SQS_QUEUE_URL")
		}
		client, err := queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
		if err != nil {
			return err
		}
		app.Dispatcher = queue.NewClientDispatcher(client)
	default:
		app.Inline = queue.NewInlineDispatcher(app.Runner.Run)
		app.Dispatcher = app.Inline
	}
	return nil
}

func buildServices(app *App) {
	var (
		history      search.HistoryRepo
		categoryRepo categories.Repo
		userRepo     users.Repo
	)
	if app.DB != nil {
		history = &search.PGHistory{DB: app.DB}
		categoryRepo = &categories.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
	} else {
		history = search.NewMemoryHistory()
		categoryRepo = categories.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
	}

	app.DocumentsService = &documents.Service{
		Repo:         app.DocumentsRepo,
		Store:        app.Store,
		Dispatcher:   app.Dispatcher,
		MaxFileSize:  app.Config.MaxFileSize,
		AllowedTypes: app.Config.AllowedFileTypes,
	}
	app.SearchEngine = search.NewEngine(app.DocumentsRepo, app.Embedder, history)
	app.CategoriesService = categories.NewService(categoryRepo)
	app.UsersService = users.NewService(userRepo)
}
