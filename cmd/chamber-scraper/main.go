package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/chamber-scraper/internal/browser"
	"github.com/maltedev/chamber-scraper/internal/config"
	"github.com/maltedev/chamber-scraper/internal/database"
	"github.com/maltedev/chamber-scraper/internal/events"
	"github.com/maltedev/chamber-scraper/internal/scraper"
	"github.com/maltedev/chamber-scraper/internal/storage"
	"github.com/maltedev/chamber-scraper/pkg/logger"
)

func main() {
	var (
		output   = flag.String("output", "", "Directory for per-region JSON files (overrides OUTPUT_DIR)")
		engine   = flag.String("engine", "", "Page engine: playwright, chromedp or http (overrides BROWSER_ENGINE)")
		headless = flag.Bool("headless", true, "Run browser in headless mode")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *output != "" {
		cfg.Output.Dir = *output
	}
	if *engine != "" {
		cfg.Browser.Engine = strings.ToLower(*engine)
	}
	cfg.Browser.Headless = *headless && cfg.Browser.Headless

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)
	logger.Info("Starting chamber scraper", "engine", cfg.Browser.Engine, "index", cfg.Site.IndexURL())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Scrape failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	s, err := scraper.New(scraper.Options{
		IndexURL:         cfg.Site.IndexURL(),
		RegionPath:       cfg.Site.RegionPath,
		Selectors:        scraper.DefaultSelectors(),
		DiscoveryTimeout: cfg.Scraper.DiscoveryTimeout,
		RegionTimeout:    cfg.Scraper.RegionTimeout,
		RegionSettle:     cfg.Scraper.RegionSettle,
	}, logger)
	if err != nil {
		return err
	}

	store := storage.NewJSONStore(cfg.Output.Dir, logger)

	var sinks []scraper.Sink

	if cfg.Database.Enabled {
		db, err := database.New(ctx, database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.Name,
			MaxConns: cfg.Database.MaxConns,
		})
		if err != nil {
			return err
		}
		defer db.Close()

		repo := database.NewListingRepository(db, logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, repo)
		logger.Info("Postgres sink enabled", "host", cfg.Database.Host, "database", cfg.Database.Name)
	}

	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
		sinks = append(sinks, events.NewPublisher(redisClient, cfg.Redis.Stream, logger))
		logger.Info("Redis sink enabled", "addr", cfg.Redis.Addr, "stream", cfg.Redis.Stream)
	}

	open := func() (browser.Session, error) {
		return browser.Open(cfg.Browser.Engine, &browser.Options{
			Headless:   cfg.Browser.Headless,
			Timeout:    cfg.Browser.Timeout,
			UserAgent:  cfg.Browser.UserAgent,
			Locale:     cfg.Browser.Locale,
			TimezoneID: cfg.Browser.TimezoneID,
		})
	}

	runner := scraper.NewRunner(s, open, store, cfg.Scraper.IndexSettle, logger, sinks...)

	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("Scrape finished",
		"run_id", report.RunID,
		"regions", report.Regions,
		"listings", report.Listings,
		"skipped", report.Skipped,
		"output_dir", store.Dir(),
		"duration", report.Duration)
	return nil
}
