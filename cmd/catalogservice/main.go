// cmd/catalogservice/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAPI "catalog-service/internal/api"
	"catalog-service/internal/config"
	"catalog-service/internal/domain"
	grpcServer "catalog-service/internal/grpc"
	"catalog-service/internal/lock"
	"catalog-service/internal/service"
	"catalog-service/internal/store"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/time/rate"
)

const defaultConfigPath = "configs/default.yaml"

// backends - хранилища коллекций и способ выполнять транзакции над ними.
type backends struct {
	movies  store.OwnerStore[*domain.Movie]
	series  store.OwnerStore[*domain.Series]
	reviews store.ReviewStore
	tx      store.Transactor
	close   func()
}

// redactURL убирает пароль из строки подключения для логов.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparsable>"
	}
	return u.Redacted()
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*backends, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		return openMongo(ctx, cfg, logger)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	default:
		logger.Warn("Using in-memory store, data is lost on restart")
		return &backends{
			movies:  store.NewMemoryMovieStore(),
			series:  store.NewMemorySeriesStore(),
			reviews: store.NewMemoryReviewStore(),
			tx:      store.NoopTransactor{},
			close:   func() {},
		}, nil
	}
}

func openMongo(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*backends, error) {
	logger.Info("Attempting to connect to MongoDB", slog.String("url", redactURL(cfg.URL)), slog.String("database", cfg.Database))

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	closeClient := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Error("Failed to disconnect from MongoDB", slog.String("error", err.Error()))
		}
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		closeClient()
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	logger.Info("Successfully connected to MongoDB")

	db := client.Database(cfg.Database)
	movies, err := store.NewMongoMovieStore(db, logger)
	if err != nil {
		closeClient()
		return nil, err
	}
	series, err := store.NewMongoSeriesStore(db, logger)
	if err != nil {
		closeClient()
		return nil, err
	}
	reviews, err := store.NewMongoReviewStore(db, logger)
	if err != nil {
		closeClient()
		return nil, err
	}
	for _, s := range []interface{ EnsureIndexes(context.Context) error }{movies, series} {
		if err := s.EnsureIndexes(connectCtx); err != nil {
			closeClient()
			return nil, err
		}
	}

	var tx store.Transactor = store.NoopTransactor{}
	if cfg.Transactions {
		tx = store.NewMongoTransactor(client)
		logger.Info("MongoDB transactions enabled")
	}
	return &backends{movies: movies, series: series, reviews: reviews, tx: tx, close: closeClient}, nil
}

func openPostgres(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*backends, error) {
	logger.Info("Attempting to connect to PostgreSQL", slog.String("url", redactURL(cfg.URL)))

	db, err := sqlx.Connect("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close PostgreSQL connection", slog.String("error", err.Error()))
		}
	}
	if err := db.PingContext(ctx); err != nil {
		closeDB()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	logger.Info("Successfully connected to PostgreSQL")

	movies, err := store.NewPostgresMovieStore(db, logger)
	if err != nil {
		closeDB()
		return nil, err
	}
	series, err := store.NewPostgresSeriesStore(db, logger)
	if err != nil {
		closeDB()
		return nil, err
	}
	reviews, err := store.NewPostgresReviewStore(db, logger)
	if err != nil {
		closeDB()
		return nil, err
	}
	for _, s := range []interface{ EnsureSchema(context.Context) error }{movies, series, reviews} {
		if err := s.EnsureSchema(ctx); err != nil {
			closeDB()
			return nil, err
		}
	}
	return &backends{
		movies:  movies,
		series:  series,
		reviews: reviews,
		tx:      store.NewPostgresTransactor(db, logger),
		close:   closeDB,
	}, nil
}

func openLocker(ctx context.Context, cfg config.LockConfig, logger *slog.Logger) (lock.Locker, func(), error) {
	if cfg.Driver != config.DriverRedis {
		return lock.WithWait(lock.NewMemoryLocker(), cfg.Wait), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	locker, err := lock.NewRedisLocker(client, cfg.TTL, logger)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	logger.Info("Using Redis for imdbId reservations", slog.String("addr", cfg.Addr))
	return lock.WithWait(locker, cfg.Wait), func() {
		if err := client.Close(); err != nil {
			logger.Error("Failed to close Redis client", slog.String("error", err.Error()))
		}
	}, nil
}

func main() {
	path := os.Getenv("CATALOG_SERVICE_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("path", path), slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	validate := domain.NewValidator()
	ctx := context.Background()

	// --- Хранилище и блокировки ---
	stores, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("CatalogService failed to initialize store", slog.String("driver", cfg.Store.Driver), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer stores.close()

	locker, closeLocker, err := openLocker(ctx, cfg.Lock, logger)
	if err != nil {
		logger.Error("CatalogService failed to initialize locker", slog.String("driver", cfg.Lock.Driver), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeLocker()

	// --- Сервисы ---
	xref := service.NewCrossRef(stores.movies, stores.series)
	deps := service.Deps{
		Reviews:  stores.reviews,
		CrossRef: xref,
		Locker:   locker,
		Tx:       stores.tx,
		Validate: validate,
		Options: service.Options{
			InspectAllPatchOperations: cfg.Patch.InspectAllOperations,
			UnlinkReviewOnDelete:      cfg.Reviews.UnlinkOnDelete,
		},
		Logger: logger,
	}
	movieSvc := service.NewMovieService(stores.movies, deps)
	seriesSvc := service.NewSeriesService(stores.series, deps)
	reviewSvc := service.NewReviewService(deps)

	limit := rate.Limit(cfg.API.RateLimit)
	if cfg.API.RateLimit <= 0 {
		limit = rate.Inf
	}

	// --- Настройка и запуск gRPC сервера ---
	grpcPort := fmt.Sprintf("%d", cfg.API.GRPCPort)
	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		logger.Error("Failed to listen for CatalogService gRPC", slog.String("port", grpcPort), slog.String("error", err.Error()))
		os.Exit(1)
	}
	grpcSrv := grpcServer.NewGRPCServer(grpcServer.NewServer(xref, reviewSvc, logger), limit, cfg.API.RateBurst)

	go func() {
		logger.Info("CatalogService gRPC server starting", slog.String("port", grpcPort))
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("CatalogService gRPC server Serve() failed", slog.String("error", err.Error()))
		}
	}()

	// --- Настройка и запуск HTTP сервера ---
	router := httpAPI.NewRouter(httpAPI.Handlers{
		Movies:  httpAPI.NewMovieHandler(movieSvc, logger, validate),
		Series:  httpAPI.NewSeriesHandler(seriesSvc, logger, validate),
		Reviews: httpAPI.NewReviewHandler(reviewSvc, logger, validate),
	},
		httpAPI.RequestID(),
		httpAPI.Logging(logger),
		httpAPI.RateLimit(rate.NewLimiter(limit, cfg.API.RateBurst), logger),
	)
	httpPort := fmt.Sprintf("%d", cfg.API.HTTPPort)
	httpSrv := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	go func() {
		logger.Info("CatalogService HTTP server starting", slog.String("port", httpPort))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("CatalogService HTTP server ListenAndServe() failed", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("CatalogService shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("CatalogService HTTP Server Shutdown Failed", slog.String("error", err.Error()))
	} else {
		logger.Info("CatalogService HTTP Server gracefully stopped.")
	}

	grpcSrv.GracefulStop()
	logger.Info("CatalogService gRPC server gracefully stopped.")
}
