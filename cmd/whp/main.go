package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bitfantasy/whp/internal/config"
	"github.com/bitfantasy/whp/internal/middleware"
	"github.com/bitfantasy/whp/internal/shared/whpapi"
	"github.com/bitfantasy/whp/internal/whp/form"
	"github.com/bitfantasy/whp/internal/whp/handler"
	"github.com/bitfantasy/whp/internal/whp/render"
	"github.com/bitfantasy/whp/internal/whp/repository"
	"github.com/bitfantasy/whp/internal/whp/service"
	"github.com/bitfantasy/whp/internal/whp/validate"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting whp service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("api", cfg.API.BaseURL),
	)

	// Database and redis are optional: without them the import audit is
	// off and sessions stay in memory.
	var db *gorm.DB
	if cfg.Database.Host != "" {
		db, err = initDatabase(cfg.Database)
		if err != nil {
			zapLogger.Fatal("Failed to connect to database", zap.Error(err))
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = initRedis(cfg.Redis)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			zapLogger.Warn("Redis unavailable, using in-memory import sessions", zap.Error(err))
			rdb = nil
		}
		cancel()
	}

	repos := repository.NewRepositories(db, rdb, repository.SessionOptions{TTL: cfg.Import.SessionTTL})
	if repos.Audit != nil {
		if err := repos.Audit.AutoMigrate(); err != nil {
			zapLogger.Warn("AutoMigrate import audit warning", zap.Error(err))
		}
	}

	archive, err := service.NewMinIOArchive(cfg.MinIO)
	if err != nil {
		zapLogger.Warn("MinIO unavailable, uploads are not archived", zap.Error(err))
		archive = nil
	}
	if archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := archive.EnsureBucket(ctx); err != nil {
			zapLogger.Warn("MinIO bucket check failed, uploads are not archived", zap.Error(err))
			archive = nil
		}
		cancel()
	}

	catalog, err := form.LoadCatalog(validate.NewRules(cfg.Validation))
	if err != nil {
		zapLogger.Fatal("Failed to load form schemas", zap.Error(err))
	}
	renderer, err := render.New()
	if err != nil {
		zapLogger.Fatal("Failed to load templates", zap.Error(err))
	}

	client := whpapi.NewClient(cfg.API.BaseURL, cfg.API.Timeout)
	services := service.NewServices(repos, client, catalog, archive, cfg, zapLogger)
	handlers := handler.NewHandlers(services, renderer, cfg)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins...))
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/whp/import/events"})))

	registerRoutes(router, handlers, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	h.Register(r,
		middleware.Auth(middleware.AuthConfig{Secret: cfg.JWT.Secret, Required: cfg.JWT.Required}),
		middleware.Auth(middleware.AuthConfig{Secret: cfg.JWT.Secret}),
	)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "Not found"})
	})
}
