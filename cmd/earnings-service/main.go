package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/trogers1052/earnings-reaction-service/internal/api"
	"github.com/trogers1052/earnings-reaction-service/internal/config"
	"github.com/trogers1052/earnings-reaction-service/internal/database"
	"github.com/trogers1052/earnings-reaction-service/internal/kafka"
	"github.com/trogers1052/earnings-reaction-service/internal/logging"
	"github.com/trogers1052/earnings-reaction-service/internal/marketdata"
	"github.com/trogers1052/earnings-reaction-service/internal/metrics"
	"github.com/trogers1052/earnings-reaction-service/internal/ocr"
	"github.com/trogers1052/earnings-reaction-service/internal/reaction"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		logger, _ = logging.New("info", cfg.Log.Format, os.Stdout)
		logger.Warn().Err(err).Msg("falling back to info level")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := metrics.New()

	exchange, err := time.LoadLocation(cfg.Market.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Str("timezone", cfg.Market.Timezone).Msg("invalid market timezone")
	}
	settlement := marketdata.Settlement{Now: time.Now, Location: exchange}

	// Market data chain: Redis -> Postgres -> Yahoo
	var fetcher marketdata.Fetcher = marketdata.NewYahooClient(
		marketdata.WithBaseURL(cfg.Market.BaseURL),
		marketdata.WithSymbolSuffix(cfg.Market.SymbolSuffix),
		marketdata.WithHTTPClient(&http.Client{Timeout: cfg.Market.Timeout}),
		marketdata.WithRateLimit(cfg.Market.RateLimit),
		marketdata.WithYahooLogger(logger.With().Str("component", "yahoo").Logger()),
		marketdata.WithYahooMetrics(recorder),
	)

	var handlerOpts []api.HandlerOption

	if cfg.Database.Enabled {
		db, err := database.New(cfg.Database.ConnectionString())
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		if err := db.Migrate(cfg.Database.MigrationsPath); err != nil {
			logger.Fatal().Err(err).Msg("failed to run migrations")
		}
		pruneOldBars(ctx, db, cfg.Database.RetentionDays, logger)

		fetcher = marketdata.NewStore(db, fetcher, logger.With().Str("component", "store").Logger(), recorder,
			marketdata.WithStoreSettlement(settlement))
		handlerOpts = append(handlerOpts, api.WithStore(db))
		logger.Info().Str("host", cfg.Database.Host).Msg("price bar store enabled")
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, cache will pass through")
		}
		cancel()

		cache := marketdata.NewRedisCache(client, fetcher, cfg.Redis.TTL, logger.With().Str("component", "redis_cache").Logger(), recorder,
			marketdata.WithCacheSettlement(settlement))
		fetcher = cache
		handlerOpts = append(handlerOpts, api.WithCache(cache))
		logger.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Redis.TTL).Msg("redis bar cache enabled")
	}

	cutoff, err := reaction.ParseCutoff(cfg.Analysis.CutoffTime)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid cutoff time")
	}

	table := reaction.DefaultAnnouncements()
	if cfg.Analysis.AnnouncementsFile != "" {
		table, err = reaction.LoadAnnouncementTable(cfg.Analysis.AnnouncementsFile)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.Analysis.AnnouncementsFile).Msg("failed to load announcements")
		}
	}

	analyzer := reaction.NewAnalyzer(fetcher, cfg.Analysis.WindowDays, cfg.Analysis.MaxFallbackAttempts,
		reaction.WithCutoff(cutoff),
		reaction.WithLogger(logger.With().Str("component", "analyzer").Logger()),
		reaction.WithMetrics(recorder),
	)

	handlerOpts = append(handlerOpts, api.WithExtractor(ocr.NewTesseract("", "eng")))

	var consumers sync.WaitGroup

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ResultTopic)
		defer producer.Close()
		handlerOpts = append(handlerOpts, api.WithPublisher(producer))

		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.RequestTopic, cfg.Kafka.GroupID, analyzer, producer, logger)
		runInBackground(&consumers, logger, "kafka consumer", func() error {
			return consumer.Start(ctx)
		})
	}

	handler := api.NewHandler(analyzer, table, logger.With().Str("component", "api").Logger(), handlerOpts...)
	router := api.SetupRoutes(handler, api.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger.With().Str("component", "http").Logger(),
		Metrics:        recorder,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting earnings reaction service")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}

	// Deferred producer close must not race an in-flight message
	consumers.Wait()
	logger.Info().Msg("server stopped")
}

// runInBackground runs fn on a goroutine tracked by wg
func runInBackground(wg *sync.WaitGroup, logger zerolog.Logger, name string, fn func() error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := fn(); err != nil {
			logger.Error().Err(err).Str("worker", name).Msg("background worker stopped")
		}
	}()
}

func pruneOldBars(ctx context.Context, db *database.DB, retentionDays int, logger zerolog.Logger) {
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	deleted, err := db.DeletePriceBarsOlderThan(ctx, cutoff)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to prune old price bars")
		return
	}
	logger.Info().Int64("deleted", deleted).Int("retention_days", retentionDays).Msg("pruned old price bars")
}
