package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	catalogapp "github.com/vinashop/storefront/internal/catalog/application"
	catalogdomain "github.com/vinashop/storefront/internal/catalog/domain"
	catalogmsg "github.com/vinashop/storefront/internal/catalog/infrastructure/messaging"
	catalogmysql "github.com/vinashop/storefront/internal/catalog/infrastructure/persistence/mysql"
	cataloghttp "github.com/vinashop/storefront/internal/catalog/interfaces/http"
	"github.com/vinashop/storefront/pkg/cache"
	"github.com/vinashop/storefront/pkg/config"
	"github.com/vinashop/storefront/pkg/db"
	"github.com/vinashop/storefront/pkg/logger"
	"github.com/vinashop/storefront/pkg/metrics"
	"github.com/vinashop/storefront/pkg/middleware"
	"github.com/vinashop/storefront/pkg/mq"
	"github.com/vinashop/storefront/pkg/ratelimit"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/catalog/config.toml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("load config failed: %v", err))
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}

	ctx := context.Background()

	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to connect database", "error", err)
	}
	defer database.Close()

	if err := database.AutoMigrate(
		&catalogdomain.Product{},
		&catalogdomain.ProductVariant{},
		&catalogdomain.VariantAttributeValue{},
		&catalogdomain.Attribute{},
		&catalogdomain.AttributeValue{},
		&catalogdomain.Promotion{},
	); err != nil {
		logger.Fatal(ctx, "Failed to migrate schema", "error", err)
	}

	producer, err := mq.NewProducer(mq.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		GroupID:      cfg.Kafka.GroupID,
		MaxRetries:   cfg.Kafka.MaxRetries,
		RetryBackoff: cfg.Kafka.RetryBackoff,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to create kafka producer", "error", err)
	}
	defer producer.Close()

	var mets *metrics.Metrics
	if cfg.Metrics.Enabled {
		mets = metrics.New("catalog")
	}

	products := catalogmysql.NewProductRepository(database.DB)
	promotions := catalogmysql.NewPromotionRepository(database.DB)
	attributes := catalogmysql.NewAttributeRepository(database.DB)
	publisher := catalogmsg.NewKafkaEventPublisher(producer)

	query := catalogapp.NewCatalogQueryService(products, promotions, attributes)
	cmd := catalogapp.NewCatalogCommandService(products, promotions, attributes, publisher)
	handler := cataloghttp.NewCatalogHandler(cmd, query)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery(), middleware.Logging())
	if mets != nil {
		router.Use(middleware.Metrics(mets))
		router.GET(cfg.Metrics.Path, metrics.Handler())
	}
	if cfg.RateLimit.Enabled {
		rdb, err := cache.New(cache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxPoolSize:  cfg.Redis.MaxPoolSize,
			ConnTimeout:  cfg.Redis.ConnTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			logger.Fatal(ctx, "Failed to connect redis", "error", err)
		}
		defer rdb.Close()
		limiter := ratelimit.NewRedisLimiter(rdb.Client())
		router.Use(middleware.RateLimit(limiter, cfg.RateLimit))
	}
	handler.RegisterRoutes(&router.RouterGroup)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info(ctx, "Catalog service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "HTTP server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "Shutting down catalog service")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "HTTP server shutdown failed", "error", err)
	}
}
