package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	cartapp "github.com/vinashop/storefront/internal/cart/application"
	cartdomain "github.com/vinashop/storefront/internal/cart/domain"
	cartinfra "github.com/vinashop/storefront/internal/cart/infrastructure"
	cartmsg "github.com/vinashop/storefront/internal/cart/infrastructure/messaging"
	cartmysql "github.com/vinashop/storefront/internal/cart/infrastructure/persistence/mysql"
	cartredis "github.com/vinashop/storefront/internal/cart/infrastructure/persistence/redis"
	checkoutapp "github.com/vinashop/storefront/internal/checkout/application"
	checkoutdomain "github.com/vinashop/storefront/internal/checkout/domain"
	checkoutmsg "github.com/vinashop/storefront/internal/checkout/infrastructure/messaging"
	"github.com/vinashop/storefront/internal/checkout/infrastructure/payment"
	checkoutmysql "github.com/vinashop/storefront/internal/checkout/infrastructure/persistence/mysql"
	checkouthttp "github.com/vinashop/storefront/internal/checkout/interfaces/http"
	"github.com/vinashop/storefront/pkg/cache"
	"github.com/vinashop/storefront/pkg/config"
	"github.com/vinashop/storefront/pkg/db"
	"github.com/vinashop/storefront/pkg/logger"
	"github.com/vinashop/storefront/pkg/metrics"
	"github.com/vinashop/storefront/pkg/middleware"
	"github.com/vinashop/storefront/pkg/mq"
	"github.com/vinashop/storefront/pkg/ratelimit"
	"github.com/vinashop/storefront/pkg/utils"
)

// cartStoreGateway 下单成功后清理购物车的进程内适配
type cartStoreGateway struct {
	stores *cartapp.StoreManager
}

func (g *cartStoreGateway) RemoveSubmitted(ctx context.Context, userID string, cartItemIDs []uint) {
	store, err := g.stores.Get(ctx, userID)
	if err != nil {
		logger.Warn(ctx, "Failed to load cart store after checkout", "user_id", userID, "error", err)
		return
	}
	store.RemoveItems(ctx, cartItemIDs)
	store.ClearSelected(ctx)
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/checkout/config.toml", "path to config file")
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
		&checkoutdomain.Order{},
		&checkoutdomain.OrderItem{},
		&checkoutdomain.OutboxMessage{},
		&cartdomain.Cart{},
		&cartdomain.CartItem{},
	); err != nil {
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
		mets = metrics.New("checkout")
	}

	cartRepo := cartmysql.NewCartRepository(database.DB)
	snapshotCache := cartredis.NewCartCache(rdb, time.Duration(cfg.Cart.SnapshotTTLMinutes)*time.Minute)
	remote := cartinfra.NewRemoteCartAdapter(cartRepo, snapshotCache, cartmsg.NewKafkaEventPublisher(producer))
	stores := cartapp.NewStoreManager(cartRepo, remote, cartapp.WithVisibleLimit(cfg.Cart.VisibleLimit))

	nodeID, _ := strconv.ParseInt(config.GetEnv("NODE_ID", "1"), 10, 64)
	svc := checkoutapp.NewCheckoutService(
		checkoutmysql.NewOrderRepository(database.DB),
		payment.NewVNPayClient(cfg.Payment),
		&cartStoreGateway{stores: stores},
		utils.NewSnowflakeID(nodeID),
		mets,
	)
	handler := checkouthttp.NewCheckoutHandler(svc)

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	relay := checkoutmsg.NewOutboxRelay(checkoutmysql.NewOutboxRepository(database.DB), producer)
	go relay.Start(relayCtx)

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
		logger.Info(ctx, "Checkout service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "HTTP server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "Shutting down checkout service")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "HTTP server shutdown failed", "error", err)
	}
	stores.Drain()
}
