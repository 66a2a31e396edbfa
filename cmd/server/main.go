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

	"aptos-pulse/internal/bot"
	"aptos-pulse/internal/cache"
	"aptos-pulse/internal/config"
	"aptos-pulse/internal/db"
	"aptos-pulse/internal/handler"
	"aptos-pulse/internal/job"
	"aptos-pulse/internal/provider"
	"aptos-pulse/internal/repository"
	"aptos-pulse/internal/service"
	"aptos-pulse/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "aptos-pulse/docs"
)

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	initPostgresFunc = db.InitPostgres
	initRedisFunc    = cache.InitRedis
	closePostgres    = db.Close
	closeRedis       = cache.Close
	initTracerFunc   = tracing.InitTracer

	newAnalyticsProviderFunc = provider.NewAptosAnalyticsProvider
	newCoinGeckoProviderFunc = provider.NewCoinGeckoProvider
	newCacheWarmerFunc       = job.NewCacheWarmer
	startWarmerFunc          = func(w *job.CacheWarmer, ctx context.Context) { go w.Start(ctx) }
	startTelegramBotFunc     = bot.StartTelegramBot

	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Aptos Pulse API
// @version         1.0
// @description     Wallet performance analytics over Aptos balance and price histories.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initPostgresFunc(ctx, cfg.DatabaseURL)
	defer closePostgres()
	initRedisFunc(ctx, cfg.RedisURL)
	defer closeRedis()

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// A nil *redis.Client inside the interface would look enabled.
	var redisClient cache.RedisClient
	if cache.Client != nil {
		redisClient = cache.Client
	}
	responseCache := cache.NewResponseCache(
		redisClient,
		time.Duration(cfg.HistoryCacheTTLSecs)*time.Second,
		time.Duration(cfg.LatestPriceCacheTTLSecs)*time.Second,
	)

	var walletRepo *repository.WalletRepository
	var walletTracker service.WalletTracker
	var walletLister job.WalletLister
	if db.Pool != nil {
		walletRepo = repository.NewWalletRepository(db.Pool, tracer)
		walletTracker = walletRepo
		walletLister = walletRepo
	}

	cooldown := time.Duration(cfg.BreakerCooldownSecs) * time.Second
	analytics := newAnalyticsProviderFunc(tracer, provider.AptosAnalyticsOptions{
		BaseURL:       cfg.AptosAnalyticsURL,
		APIKey:        cfg.AptosBuildKey,
		Timeout:       time.Duration(cfg.AnalyticsTimeoutSecs) * time.Second,
		RatePerMinute: cfg.AnalyticsRatePerMin,
	}, provider.NewCircuitBreaker("aptos-analytics", cfg.BreakerFailureThreshold, cooldown))
	coinGecko := newCoinGeckoProviderFunc(tracer, cfg.CoinGeckoURL,
		provider.NewCircuitBreaker("coingecko", cfg.BreakerFailureThreshold, cooldown))

	performanceService := service.NewPerformanceService(
		tracer, analytics, analytics, responseCache, walletTracker, cfg.DefaultAssetAddress,
	)
	priceService := service.NewPriceService(tracer, analytics, coinGecko, responseCache)

	if responseCache.Enabled() {
		warmer := newCacheWarmerFunc(tracer, performanceService, priceService, walletLister, cfg.WarmPollSecs, cfg.WarmWalletLimit)
		startWarmerFunc(warmer, ctx)
	} else {
		log.Println("response cache disabled, skipping cache warmer")
	}

	startTelegramBotFunc(cfg.TelegramBotToken, performanceService, priceService)

	h := handler.New(tracer, performanceService, priceService,
		handler.Dependency{Name: "redis", Up: func() bool { return cache.Client != nil }},
		handler.Dependency{Name: "postgres", Up: func() bool { return db.Pool != nil }},
	)

	r := newRouterFunc()
	r.Use(otelgin.Middleware(tracing.ServiceName))
	r.Use(cors.New(corsConfig(cfg.CORSAllowedOrigins)))

	api := r.Group("/api", handler.APIKeyAuth(cfg.APIKey))
	h.RegisterRoutes(r, api)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()
	log.Printf("HTTP server listening on %s", srv.Addr)

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{http.MethodGet, http.MethodOptions}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-API-Key"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}
