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

	cartapp "github.com/vinashop/storefront/internal/cart/application"
	cartdomain "github.com/vinashop/storefront/internal/cart/domain"
	"github.com/vinashop/storefront/internal/cart/infrastructure"
	cartmsg "github.com/vinashop/storefront/internal/cart/infrastructure/messaging"
	cartmysql "github.com/vinashop/storefront/internal/cart/infrastructure/persistence/mysql"
	cartredis "github.com/vinashop/storefront/internal/cart/infrastructure/persistence/redis"
	carthttp "github.com/vinashop/storefront/internal/cart/interfaces/http"
	catalogapp "github.com/vinashop/storefront/internal/catalog/application"
	catalogmysql "github.com/vinashop/storefront/internal/catalog/infrastructure/persistence/mysql"
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
	flag.StringVar(&configPath, "config", "configs/cart/config.toml", "path to config file")
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

	if err := database.AutoMigrate(&cartdomain.Cart{}, &cartdomain.CartItem{}); err != nil {
		logger.Fatal(ctx, "Failed to migrate schema", "error", err)
	}

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
		mets = metrics.New("cart")
	}

	cartRepo := cartmysql.NewCartRepository(database.DB)
	snapshotCache := cartredis.NewCartCache(rdb, time.Duration(cfg.Cart.SnapshotTTLMinutes)*time.Minute)
	publisher := cartmsg.NewKafkaEventPublisher(producer)
	remote := infrastructure.NewRemoteCartAdapter(cartRepo, snapshotCache, publisher)

	storeOpts := []cartapp.Option{cartapp.WithVisibleLimit(cfg.Cart.VisibleLimit)}
	if mets != nil {
		storeOpts = append(storeOpts, cartapp.WithMetrics(mets))
	}
	stores := cartapp.NewStoreManager(cartRepo, remote, storeOpts...)

	// 同库内直接复用商品目录的查询服务作为价格源
	catalogQuery := catalogapp.NewCatalogQueryService(
		catalogmysql.NewProductRepository(database.DB),
		catalogmysql.NewPromotionRepository(database.DB),
		catalogmysql.NewAttributeRepository(database.DB),
	)

	handler := carthttp.NewCartHandler(stores, snapshotCache, catalogQuery)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery(), middleware.Logging(), middleware.UserID())
	if mets != nil {
		router.Use(middleware.Metrics(mets))
		router.GET(cfg.Metrics.Path, metrics.Handler())
	}
	if cfg.RateLimit.Enabled {
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
		logger.Info(ctx, "Cart service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "HTTP server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "Shutting down cart service")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "HTTP server shutdown failed", "error", err)
	}
	// 等待在途的远端确认落库后再退出
	stores.Drain()
}
