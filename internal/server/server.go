package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turkwise/graphmem/internal/server/middleware"
	"github.com/turkwise/graphmem/internal/util"
	"github.com/turkwise/graphmem/pkg/ai"
	olai "github.com/turkwise/graphmem/pkg/ai/ollama"
	oai "github.com/turkwise/graphmem/pkg/ai/openai"
	"github.com/turkwise/graphmem/pkg/ai/stub"
	"github.com/turkwise/graphmem/pkg/graph"
	"github.com/turkwise/graphmem/pkg/logger"
	pgstore "github.com/turkwise/graphmem/pkg/store/pgx"
	"github.com/turkwise/graphmem/pkg/tenant"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func newAIClient() ai.GraphAIClient {
	adapter := util.GetEnvString("AI_ADAPTER", "openai")
	switch adapter {
	case "ollama":
		client, err := olai.NewGraphOllamaClient(olai.NewGraphOllamaClientParams{
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),
			ExtractionModel: util.GetEnv("AI_EXTRACT_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			EmbeddingDimensions:   int(util.GetEnvNumeric("AI_EMBED_DIM", 768)),
			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
			TimeoutMin:            int(util.GetEnvNumeric("AI_TIMEOUT_MIN", 5)),
		})
		if err != nil {
			logger.Fatal("Failed to create Ollama client", "err", err)
		}
		return client
	case "stub":
		// Deterministic adapter for local development without model access.
		return stub.NewClient(int(util.GetEnvNumeric("AI_EMBED_DIM", 64)))
	default:
		return oai.NewGraphOpenAIClient(oai.NewGraphOpenAIClientParams{
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),
			ExtractionModel: util.GetEnv("AI_EXTRACT_MODEL"),

			EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
			ChatURL:      util.GetEnv("AI_CHAT_URL"),
			ChatKey:      util.GetEnv("AI_CHAT_KEY"),

			EmbeddingDimensions:   int(util.GetEnvNumeric("AI_EMBED_DIM", 1536)),
			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
			TimeoutMin:            int(util.GetEnvNumeric("AI_TIMEOUT_MIN", 5)),
		})
	}
}

func runMigrations() {
	migrationsPath := util.GetEnvString("MIGRATIONS_PATH", "internal/db/migrations")
	m, err := migrate.New("file://"+migrationsPath, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Failed to initialize migrations", "err", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		logger.Fatal("Failed to run migrations", "err", err)
	}
}

func Init() {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runMigrations()

	poolConfig, err := pgxpool.ParseConfig(util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Failed to parse database URL", "err", err)
	}
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	conn, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()

	var key *keyfunc.Keyfunc
	if jwksURL := util.GetEnv("AUTH_JWKS_URL"); jwksURL != "" {
		k, err := keyfunc.NewDefault([]string{jwksURL})
		if err != nil {
			logger.Fatal("Failed to load jwks keys", "err", err)
		}
		key = &k
	}

	storage := pgstore.NewGraphDBStorage(conn)
	aiClient := newAIClient()

	graphClient, err := graph.NewGraphClient(graph.NewGraphClientParams{
		Store: storage,
		AI:    aiClient,

		TokenEncoder:    util.GetEnvString("GRAPH_TOKEN_ENCODER", "cl100k_base"),
		UnitTokens:      int(util.GetEnvNumeric("GRAPH_UNIT_TOKENS", 600)),
		ParallelUnits:   int(util.GetEnvNumeric("GRAPH_PARALLEL_UNITS", 4)),
		MaxRetries:      int(util.GetEnvNumeric("GRAPH_MAX_RETRIES", 3)),
		RetryBackoff:    time.Duration(util.GetEnvNumeric("GRAPH_RETRY_BACKOFF_MS", 500)) * time.Millisecond,
		MaxContentBytes: int(util.GetEnvNumeric("MAX_CONTENT_BYTES", 262144)),

		SearchMaxLimit:  int(util.GetEnvNumeric("SEARCH_MAX_LIMIT", 100)),
		StrategyTimeout: time.Duration(util.GetEnvNumeric("SEARCH_STRATEGY_TIMEOUT_MS", 10000)) * time.Millisecond,
		MaxHops:         int(util.GetEnvNumeric("SEARCH_MAX_HOPS", 2)),
		// Unset weights and bonus fall through to the graph client defaults.
		Weights: graph.SearchWeights{
			Semantic: util.GetEnvNumeric("SEARCH_WEIGHT_SEMANTIC", 0),
			Lexical:  util.GetEnvNumeric("SEARCH_WEIGHT_LEXICAL", 0),
			Graph:    util.GetEnvNumeric("SEARCH_WEIGHT_GRAPH", 0),
		},
		SignalBonus: util.GetEnvNumeric("SEARCH_SIGNAL_BONUS", 0),
	})
	if err != nil {
		logger.Fatal("Failed to create graph client", "err", err)
	}

	app := &middleware.App{
		DBConn:    conn,
		Store:     storage,
		AiClient:  aiClient,
		Graph:     graphClient,
		Resolver:  tenant.NewResolver(util.GetEnvString("TENANT_PREFIX", "turkwise_")),
		StoreAddr: fmt.Sprintf("%s:%d/%s", poolConfig.ConnConfig.Host, poolConfig.ConnConfig.Port, poolConfig.ConnConfig.Database),
		APIKey:    util.GetEnv("API_KEY"),
		Key:       key,
	}

	e.Use(middleware.AppContextMiddleware(app))
	e.Use(echomw.CORS())
	e.Use(echomw.RequestLogger())
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("1M"))

	RegisterRoutes(e)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
