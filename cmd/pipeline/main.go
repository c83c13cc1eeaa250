package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/config"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/database"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/normalize"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/pipeline"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/schema"
)

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func setup(asOf string) (*pipeline.Service, normalize.Stamp, func(), error) {
	cfg, err := config.New()
	if err != nil {
		return nil, normalize.Stamp{}, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flag.NArg() > 0 {
		cfg.RawDataDir = flag.Arg(0)
	}

	policy, err := config.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		return nil, normalize.Stamp{}, nil, err
	}

	var dbManager database.DBManager
	cleanupFunc := func() {}
	if cfg.DatabaseURL != "" {
		dbpool, err := database.ConnectDB(cfg.DatabaseURL)
		if err != nil {
			return nil, normalize.Stamp{}, nil, err
		}
		dbManager = database.NewPostgresDBManager(context.Background(), dbpool)
		cleanupFunc = func() { dbpool.Close() }
	} else {
		log.Println("DATABASE_URL not set, running without the warehouse sink")
	}

	now := time.Now().UTC()
	stamp := normalize.Stamp{IngestionTime: now, AsOfDate: now.Truncate(24 * time.Hour)}
	if asOf != "" {
		date, err := time.Parse("2006-01-02", asOf)
		if err != nil {
			cleanupFunc()
			return nil, normalize.Stamp{}, nil, fmt.Errorf("invalid -as-of date %q: expected YYYY-MM-DD", asOf)
		}
		stamp.AsOfDate = date
	}

	service := pipeline.NewService(cfg, policy, schema.Default(), dbManager, newLogger(cfg.LogLevel))
	return service, stamp, cleanupFunc, nil
}

func cleanup(cleanupFunc func()) {
	log.Println("Cleaning up resources...")
	cleanupFunc()
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	force := flag.Bool("force", false, "reprocess even when an identical input set has already completed")
	asOf := flag.String("as-of", "", "override the run's as-of date (YYYY-MM-DD, defaults to today)")
	flag.Parse()

	startTime := time.Now()

	service, stamp, cleanupFunc, err := setup(*asOf)
	if err != nil {
		log.Fatal(err)
	}
	defer cleanup(cleanupFunc)

	report, err := service.Execute(stamp, *force)
	if err != nil {
		if errors.Is(err, pipeline.ErrInputsAlreadyProcessed) {
			log.Printf("Skipping: %v (rerun with -force to reprocess)", err)
			return
		}
		log.Fatalf("Error during pipeline run: %v\n", err)
	}

	log.Printf("Run %s finished: %d records in, %d enriched, %d journal lines, %d exceptions",
		report.RunID, report.RecordsIn, report.RecordsEnriched, report.JournalLines, report.ExceptionCount)
	log.Printf("Execution time: %s\n", time.Since(startTime))
}
