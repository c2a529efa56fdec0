package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"taycan-tracker/config"
	"taycan-tracker/scraper/finder"
	"taycan-tracker/services"
	"taycan-tracker/storage"
	"taycan-tracker/utils"
	"taycan-tracker/web"
)

func main() {
	var (
		scanFlag   = flag.Bool("scan", false, "Run a single scan cycle and exit")
		serveFlag  = flag.Bool("serve", false, "Serve the dashboard API")
		exportFlag = flag.Bool("export", false, "Export the static JSON snapshot and exit")
		interval   = flag.Int("interval", 0, "Run scans every N minutes (0 = off)")
	)
	flag.Parse()

	logger := utils.NewLogger()
	cfg := config.Load()

	criteria, err := config.LoadCriteria(cfg.CriteriaPath)
	if err != nil {
		logger.Error("Failed to load watch criteria: %v", err)
		os.Exit(1)
	}

	logger.Info("=== Taycan Tracker starting ===")
	logger.Info("Watching: %s | target year: %d+ | concurrency: %d | rate: %dms",
		criteria.ModelName, criteria.TargetYear, cfg.MaxConcurrency, cfg.RateLimitMs)

	store, err := storage.NewPostgresStore(cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		logger.Error("Make sure the database is running: docker compose up -d")
		os.Exit(1)
	}
	defer store.Close()

	fetcher := finder.New(cfg, criteria, logger)
	open := func(ctx context.Context) (services.PageSession, error) {
		return fetcher.Open(ctx)
	}

	scanner := services.NewScanner(
		open, store,
		services.NewExtractor(logger, criteria.ModelName),
		services.NewNormalizer(logger),
		services.NewReconciler(logger),
		logger, cfg.MaxConcurrency, cfg.RateLimitMs,
	)
	exporter := services.NewExporter(store, logger, criteria.TargetYear)
	notifier := services.NewNotifier(criteria,
		&services.FileSender{Dir: cfg.StaticDir, Logger: logger}, logger)

	runScan := func() {
		result, err := scanner.Scan(context.Background())
		if err != nil {
			logger.Error("Scan failed: %v", err)
			return
		}
		if err := exporter.Export(cfg.ExportPath); err != nil {
			logger.Error("Export failed: %v", err)
		}
		if err := notifier.Notify(result); err != nil {
			logger.Error("Notification failed: %v", err)
		}
	}

	switch {
	case *exportFlag:
		if err := exporter.Export(cfg.ExportPath); err != nil {
			logger.Error("Export failed: %v", err)
			os.Exit(1)
		}

	case *scanFlag:
		result, err := scanner.Scan(context.Background())
		if err != nil {
			logger.Error("Scan failed: %v", err)
			os.Exit(1)
		}
		if err := exporter.Export(cfg.ExportPath); err != nil {
			logger.Error("Export failed: %v", err)
		}
		if err := notifier.Notify(result); err != nil {
			logger.Error("Notification failed: %v", err)
		}
		logger.Info("Summary: %d found, %d new, %d price changes, %d removed",
			result.ListingsFound, result.NewCount(), result.ChangedCount(), result.RemovedCount())

	case *serveFlag || *interval > 0:
		if *interval > 0 {
			go func() {
				runScan()
				ticker := time.NewTicker(time.Duration(*interval) * time.Minute)
				defer ticker.Stop()
				for range ticker.C {
					runScan()
				}
			}()
			logger.Info("Scheduler running every %d minutes", *interval)
		}
		if *serveFlag {
			server := web.NewServer(store, logger, criteria.TargetYear, cfg.StaticDir, runScan)
			logger.Info("Dashboard API listening on %s", cfg.HTTPAddr)
			if err := http.ListenAndServe(cfg.HTTPAddr, server.Router()); err != nil {
				logger.Error("HTTP server: %v", err)
				os.Exit(1)
			}
		} else {
			select {}
		}

	default:
		flag.Usage()
		os.Exit(2)
	}
}
