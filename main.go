package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/gfribergo93/nexxt-scraper/browser"
	"github.com/gfribergo93/nexxt-scraper/config"
	"github.com/gfribergo93/nexxt-scraper/services"
	"github.com/gfribergo93/nexxt-scraper/storage"
	"github.com/gfribergo93/nexxt-scraper/utils"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Default()

	maxPages := flag.Int("pages", cfg.MaxPages,
		"Maximum result pages to scan (0 = until the directory runs out)")
	flag.Parse()
	cfg.MaxPages = *maxPages

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.TimeOnly,
	}))

	run := services.RunContext{
		Logger:    logger,
		RunID:     uuid.NewString(),
		OutDir:    cfg.OutDir,
		StartedAt: time.Now(),
	}
	logger = logger.With("run_id", run.RunID)
	run.Logger = logger

	logger.Info("nexxt-change listing crawler starting",
		"search_url", cfg.SearchURL,
		"max_pages", cfg.MaxPages,
		"recency_days", cfg.RecencyDays,
		"out_dir", cfg.OutDir,
	)

	rootCtx, cancelRoot := context.WithTimeout(context.Background(), cfg.GlobalTimeout)
	defer cancelRoot()

	factory := func(ctx context.Context) (browser.Session, error) {
		return browser.NewChromeSession(ctx, cfg, logger)
	}
	sink := storage.NewCSVSink(run.OutDir, run.StartedAt)

	crawl := services.NewCrawlSession(cfg, run, factory, sink)
	records, err := crawl.Run(rootCtx)
	if err != nil {
		logger.Error("crawl ended abnormally", "error", err, "records", len(records))
	}

	if cfg.DBEnabled {
		store, storeErr := storage.NewPostgresStore(cfg)
		if storeErr != nil {
			logger.Error("postgres unavailable, records live in CSV only", "error", storeErr)
		} else {
			defer store.Close()
			dbCtx, cancelDB := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancelDB()
			saved, saveErr := store.SaveRecords(dbCtx, run.RunID, records)
			if saveErr != nil {
				logger.Error("postgres upsert failed", "error", saveErr)
			} else {
				logger.Info("records upserted to postgres", "count", saved)
			}
		}
	}

	stats := utils.BuildSummaryStats(records)
	logger.Info("run summary",
		"records", stats.TotalRecords,
		"fields_na", stats.FieldsNA,
		"fields_error", stats.FieldsError,
		"error_records", stats.ErrorRecords,
		"oldest_date", stats.OldestDate,
		"newest_date", stats.NewestDate,
		"old_listing_found", crawl.State().OldFound(),
	)
	for _, industry := range stats.PerIndustry {
		logger.Info("industry", "name", industry.Industry, "listings", industry.Count)
	}

	if err != nil {
		os.Exit(1)
	}
}
