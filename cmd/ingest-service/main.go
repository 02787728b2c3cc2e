package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tickerwatch/ingest-service/internal/analysis"
	"github.com/tickerwatch/ingest-service/internal/api"
	"github.com/tickerwatch/ingest-service/internal/config"
	"github.com/tickerwatch/ingest-service/internal/database"
	"github.com/tickerwatch/ingest-service/internal/kafka"
	"github.com/tickerwatch/ingest-service/internal/logger"
	"github.com/tickerwatch/ingest-service/internal/models"
	"github.com/tickerwatch/ingest-service/internal/provider"
	"github.com/tickerwatch/ingest-service/internal/provider/finnhub"
	"github.com/tickerwatch/ingest-service/internal/provider/polygon"
	"github.com/tickerwatch/ingest-service/internal/provider/reddit"
	"github.com/tickerwatch/ingest-service/internal/scheduler"
	"github.com/tickerwatch/ingest-service/internal/watermark"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, "json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal("failed to connect to database", logger.ErrorField(err))
	}
	defer db.Close()

	if err := db.Migrate("db/migrations"); err != nil {
		log.Fatal("failed to run migrations", logger.ErrorField(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer producer.Close()

	watchlist := models.ParseSymbols(strings.Join(cfg.Ingest.Watchlist, ","), nil)
	if len(watchlist) == 0 {
		log.Fatal("watchlist contains no valid symbols")
	}

	sources := buildSources(cfg, watchlist, log)
	if len(sources) == 0 {
		log.Fatal("no data providers enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, src := range sources {
		if src.ValidateConnection(ctx) {
			log.Info("provider connection validated", logger.StringField("source", src.Name()))
		} else {
			log.Warn("provider connection check failed, continuing anyway",
				logger.StringField("source", src.Name()))
		}
	}

	engine := watermark.NewEngine(db, cfg.Ingest.SkewAllowance, log)
	lock := scheduler.NewCycleLock(redisClient, 2*cfg.Ingest.Interval)

	hostname, _ := os.Hostname()
	classifier := analysis.NewPendingClassifier()
	runner := scheduler.NewRunner(sources, engine, db, producer, lock, classifier, cfg.Ingest.Interval, hostname, log)

	handler := api.NewHandler(db, producer, log)
	server := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: api.SetupRoutes(handler),
	}

	go func() {
		log.Info("http server listening", logger.StringField("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", logger.ErrorField(err))
			stop()
		}
	}()

	log.Info("ingestion loop starting",
		logger.IntField("sources", len(sources)),
		logger.DurationField("interval", cfg.Ingest.Interval))
	runner.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", logger.ErrorField(err))
	}
	log.Info("shutdown complete")
}

// buildSources constructs one DataSource per enabled provider stream.
func buildSources(cfg *config.Config, watchlist []string, log *logger.Logger) []provider.DataSource {
	policy := provider.DefaultRetryPolicy()
	lookback := cfg.Ingest.FirstRunLookback
	overlap := cfg.Ingest.OverlapBuffer

	var sources []provider.DataSource

	if cfg.Providers.Finnhub.Enabled {
		client := finnhub.NewClient(cfg.Providers.Finnhub.APIKey, cfg.Providers.Finnhub.BaseURL, policy, log)
		sources = append(sources,
			finnhub.NewCompanyNewsSource(client, watchlist, lookback, overlap, log),
			finnhub.NewMacroNewsSource(client, watchlist, log),
			finnhub.NewPricesSource(client, watchlist, log),
		)
	}

	if cfg.Providers.Polygon.Enabled {
		client := polygon.NewClient(cfg.Providers.Polygon.APIKey, cfg.Providers.Polygon.BaseURL, policy, log)
		sources = append(sources,
			polygon.NewCompanyNewsSource(client, watchlist, lookback, overlap, log),
			polygon.NewMacroNewsSource(client, watchlist, lookback, overlap, log),
		)
	}

	if cfg.Providers.Reddit.Enabled {
		client := reddit.NewClient(
			cfg.Providers.Reddit.ClientID,
			cfg.Providers.Reddit.ClientSecret,
			cfg.Providers.Reddit.UserAgent,
			policy, log,
		)
		sources = append(sources,
			reddit.NewSocialSource(client, watchlist, cfg.Providers.Reddit.Subreddits, overlap, log),
		)
	}

	return sources
}
