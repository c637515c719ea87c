package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/snupai/shortlink/config"
	"github.com/snupai/shortlink/internal/cache"
	"github.com/snupai/shortlink/internal/filter"
	"github.com/snupai/shortlink/internal/handler"
	"github.com/snupai/shortlink/internal/logger"
	"github.com/snupai/shortlink/internal/middleware"
	"github.com/snupai/shortlink/internal/ogmeta"
	"github.com/snupai/shortlink/internal/ratelimit"
	"github.com/snupai/shortlink/internal/repository"
	"github.com/snupai/shortlink/internal/service"
	"github.com/snupai/shortlink/internal/utils"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	// Initialize Snowflake ID generator
	if err := utils.InitSnowflake(cfg.Snowflake.DatacenterID, cfg.Snowflake.WorkerID); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize snowflake")
	}

	// Initialize database
	dsn := cfg.Database.DSN
	if dsn == "" {
		dsn = cfg.MySQL.DSN()
	}
	db, err := repository.Open(repository.Options{
		Driver:       cfg.Database.Driver,
		DSN:          dsn,
		MaxIdleConns: cfg.MySQL.MaxIdleConns,
		MaxOpenConns: cfg.MySQL.MaxOpenConns,
		Debug:        cfg.Database.Debug,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer repository.Close(db)

	linkRepo := repository.NewLinkRepository(db)
	clickRepo := repository.NewClickRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	keyRepo := repository.NewAPIKeyRepository(db)
	recordRepo := repository.NewRateLimitRepository(db)

	// Initialize Redis cache. It is only mandatory for the redis limiter backend.
	redisCache, err := cache.NewRedisCache(
		cfg.Redis.Addr(),
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
		cfg.Cache.TTL,
	)
	if err != nil {
		if cfg.RateLimit.Backend == "redis" {
			log.Fatal().Err(err).Msg("failed to initialize redis")
		}
		log.Warn().Err(err).Msg("redis unavailable, running without link cache")
		redisCache = nil
	} else {
		defer redisCache.Close()
	}

	// Initialize Bloom filter
	bloomFilter := filter.NewBloomFilter(
		cfg.BloomFilter.Capacity,
		cfg.BloomFilter.FalsePositiveRate,
	)

	burstLimiter := newLimiter(cfg, redisCache, recordRepo, cfg.RateLimit.Burst.Limit, cfg.RateLimit.Burst.Window)

	links := service.NewLinkService(linkRepo, clickRepo, redisCache, bloomFilter, log)
	clicks := service.NewClickService(linkRepo, clickRepo, log)
	quota := service.NewQuotaService(linkRepo, cfg.Quota.DefaultLimit, cfg.Quota.Window, log)
	redirect := service.NewRedirectService(links, accountRepo, clicks, log)
	accounts := service.NewAccountService(accountRepo, cfg.Auth.AdminEmails, log)
	keys := service.NewAPIKeyService(keyRepo, accountRepo, recordRepo, burstLimiter, quota, links,
		service.GatewayConfig{
			BaseURL:     cfg.Server.BaseURL,
			BurstLimit:  cfg.RateLimit.Burst.Limit,
			BurstWindow: cfg.RateLimit.Burst.Window,
		}, log)
	admin := service.NewAdminService(accountRepo, linkRepo, links, keys, clicks, log)

	// Load all slugs into bloom filter
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := links.InitBloomFilter(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to initialize bloom filter")
	}
	cancel()

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	var edge *middleware.RateLimiter
	if cfg.RateLimit.Edge.Enabled {
		log.Info().
			Int("limit", cfg.RateLimit.Edge.Limit).
			Dur("window", cfg.RateLimit.Edge.Window).
			Msg("edge rate limiting enabled on redirects")
		edge = middleware.NewRateLimiter(
			newLimiter(cfg, redisCache, recordRepo, cfg.RateLimit.Edge.Limit, cfg.RateLimit.Edge.Window),
			&middleware.RateLimitConfig{Limit: cfg.RateLimit.Edge.Limit}, log)
	}

	router := handler.NewRouter(handler.RouterDeps{
		Redirect: handler.NewRedirectHandler(redirect,
			ogmeta.NewFetcher(cfg.OpenGraph.Timeout, cfg.OpenGraph.UserAgent, cfg.OpenGraph.MaxBytes), log),
		API:         handler.NewAPIHandler(keys),
		Links:       handler.NewLinkHandler(links, clicks, quota),
		Keys:        handler.NewKeyHandler(keys),
		Admin:       handler.NewAdminHandler(admin),
		Accounts:    accounts,
		JWTSecret:   []byte(cfg.Auth.JWTSecret),
		EdgeLimiter: edge,
		Log:         log,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("base_url", cfg.Server.BaseURL).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	// Graceful shutdown with 5 second timeout
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}

// newLimiter builds a sliding-window limiter on the configured backend
func newLimiter(cfg *config.Config, redisCache *cache.RedisCache, records *repository.RateLimitRepository,
	limit int, window time.Duration) ratelimit.Limiter {
	rc := ratelimit.Config{Limit: limit, Window: window}
	if cfg.RateLimit.Backend == "redis" && redisCache != nil {
		return ratelimit.NewRedisLimiter(redisCache.GetClient(), rc)
	}
	return ratelimit.NewStoreLimiter(records, rc)
}
