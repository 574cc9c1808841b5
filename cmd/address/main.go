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

	addressapp "github.com/vinashop/storefront/internal/address/application"
	addressdomain "github.com/vinashop/storefront/internal/address/domain"
	"github.com/vinashop/storefront/internal/address/infrastructure/geo"
	addressmysql "github.com/vinashop/storefront/internal/address/infrastructure/persistence/mysql"
	addresshttp "github.com/vinashop/storefront/internal/address/interfaces/http"
	"github.com/vinashop/storefront/pkg/cache"
	"github.com/vinashop/storefront/pkg/config"
	"github.com/vinashop/storefront/pkg/db"
	"github.com/vinashop/storefront/pkg/logger"
	"github.com/vinashop/storefront/pkg/metrics"
	"github.com/vinashop/storefront/pkg/middleware"
	"github.com/vinashop/storefront/pkg/ratelimit"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/address/config.toml", "path to config file")
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

	if err := database.AutoMigrate(&addressdomain.ShippingAddress{}); err != nil {
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

	var mets *metrics.Metrics
	if cfg.Metrics.Enabled {
		mets = metrics.New("address")
	}

	geoTimeout := time.Duration(cfg.Geo.Timeout) * time.Second
	provider := geo.NewFailoverProvider(
		geo.NewProvincesOpenAPIClient(cfg.Geo.PrimaryBaseURL, geoTimeout),
		geo.NewEsgooClient(cfg.Geo.SecondaryBaseURL, geoTimeout),
		mets,
	)
	geoSvc := addressapp.NewGeoService(provider, rdb, time.Duration(cfg.Geo.CacheTTLHours)*time.Hour, mets)
	addressSvc := addressapp.NewAddressService(addressmysql.NewAddressRepository(database.DB))
	handler := addresshttp.NewAddressHandler(addressSvc, geoSvc)

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
		logger.Info(ctx, "Address service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "HTTP server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "Shutting down address service")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "HTTP server shutdown failed", "error", err)
	}
}
