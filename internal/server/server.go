package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/intellicase/backend/internal/db"
	"github.com/intellicase/backend/internal/queue"
	mid "github.com/intellicase/backend/internal/server/middleware"
	"github.com/intellicase/backend/internal/storage"
	"github.com/intellicase/backend/internal/util"
	"github.com/intellicase/backend/pkg/dossier"
	"github.com/intellicase/backend/pkg/graph"
	"github.com/intellicase/backend/pkg/logger"
	"github.com/intellicase/backend/pkg/ranking"
	"github.com/intellicase/backend/pkg/store"
	"github.com/intellicase/backend/pkg/store/memory"
	pgxstore "github.com/intellicase/backend/pkg/store/pgx"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
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

// NewEcho builds the HTTP server around app.
func NewEcho(app *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("64M"))

	RegisterRoutes(e)
	return e
}

// NewServices wires the merge engine, ranker and dossier service on s from
// the environment.
func NewServices(s store.GraphStorage) (*graph.MergeEngine, *ranking.Ranker, *dossier.Service, error) {
	policy, err := graph.ParseLinkPolicy(util.GetEnv("LINK_POLICY"))
	if err != nil {
		return nil, nil, nil, err
	}
	engine, err := graph.NewMergeEngine(graph.NewMergeEngineParams{
		Store:      s,
		LinkPolicy: policy,
		Parallel:   util.GetEnvInt("INGEST_PARALLEL", 4),
	})
	if err != nil {
		return nil, nil, nil, err
	}
	ranker, err := ranking.NewRanker(ranking.NewRankerParams{
		Store:   s,
		Limit:   util.GetEnvInt("RANK_LIMIT", ranking.DefaultLimit),
		MaxHops: util.GetEnvInt("RANK_MAX_HOPS", ranking.DefaultMaxHops),
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return engine, ranker, dossier.NewService(s), nil
}

func Init() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var graphStore store.GraphStorage
	if databaseURL := util.GetEnv("DATABASE_URL"); databaseURL != "" {
		pool, err := db.Connect(ctx, databaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", "err", err)
		}
		defer pool.Close()
		graphStore = pgxstore.NewGraphDBStorageWithConnection(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory graph store")
		graphStore = memory.NewGraphMemoryStorage()
	}
	defer graphStore.Close()

	engine, ranker, dossiers, err := NewServices(graphStore)
	if err != nil {
		logger.Fatal("Failed to create services", "err", err)
	}

	app := &mid.App{
		Engine:         engine,
		Ranker:         ranker,
		Dossier:        dossiers,
		MasterAPIKey:   util.GetEnv("MASTER_API_KEY"),
		MasterUserID:   int64(util.GetEnvNumeric("MASTER_USER_ID", 0)),
		MasterUserRole: util.GetEnv("MASTER_USER_ROLE"),
	}

	if authURL := util.GetEnv("AUTH_URL"); authURL != "" {
		k, err := keyfunc.NewDefault([]string{authURL + "/jwks"})
		if err != nil {
			logger.Fatal("Failed to load jwks keys", "err", err)
		}
		app.Key = &k
	}

	if bucket := util.GetEnv("S3_BUCKET"); bucket != "" {
		client, err := storage.NewS3Client(ctx)
		if err != nil {
			logger.Fatal("Failed to create s3 client", "err", err)
		}
		app.Batches = storage.NewBatchStore(client, bucket)

		conn, err := queue.Connect(ctx)
		if err != nil {
			logger.Fatal("Failed to connect to rabbitmq", "err", err)
		}
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		defer ch.Close()
		if err := queue.SetupQueues(ch, queue.Queues); err != nil {
			logger.Fatal("Failed to declare queues", "err", err)
		}
		app.Queue = ch
	} else {
		logger.Warn("S3_BUCKET not set, batch uploads disabled")
	}

	e := NewEcho(app)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port, "link_policy", engine.LinkPolicy())
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
