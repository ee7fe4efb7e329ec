// Package main is the entry point for the portfolio suitability analysis
// service. It evaluates candidate portfolios against client profiles: risk,
// compliance and performance analysis in parallel, a weighted suitability
// score, rule-based recommendations, and an audit trail of every run.
//
// Startup sequence:
//  1. Load configuration from environment variables (.env supported)
//  2. Initialize structured logging
//  3. Open the history and audit databases and apply schemas
//  4. Wire the analyzers, pipeline, comparison orchestrator and deep-dive
//  5. Start the scheduler (cache pruning, review scans, nightly backups)
//  6. Start the HTTP server and wait for a shutdown signal
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/clearfolio/suitability/internal/config"
	"github.com/clearfolio/suitability/internal/database"
	"github.com/clearfolio/suitability/internal/events"
	"github.com/clearfolio/suitability/internal/marketdata"
	"github.com/clearfolio/suitability/internal/modules/compliance"
	"github.com/clearfolio/suitability/internal/modules/deepdive"
	"github.com/clearfolio/suitability/internal/modules/performance"
	"github.com/clearfolio/suitability/internal/modules/recommend"
	"github.com/clearfolio/suitability/internal/modules/risk"
	"github.com/clearfolio/suitability/internal/modules/scoring"
	"github.com/clearfolio/suitability/internal/pipeline"
	"github.com/clearfolio/suitability/internal/reliability"
	"github.com/clearfolio/suitability/internal/reports"
	"github.com/clearfolio/suitability/internal/scheduler"
	"github.com/clearfolio/suitability/internal/server"
	"github.com/clearfolio/suitability/internal/version"
	"github.com/clearfolio/suitability/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Str("version", version.Version).Msg("Starting suitability service")

	// Databases: history.db feeds the market data provider, audit.db holds
	// the immutable run artifacts.
	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Name:    "history",
		Profile: database.ProfileStandard,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()
	if err := historyDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate history database")
	}

	auditDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "audit.db"),
		Name:    "audit",
		Profile: database.ProfileAudit,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open audit database")
	}
	defer auditDB.Close()
	if err := auditDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate audit database")
	}

	bus := events.NewBus(log)
	defer bus.Close()

	// Market data: sqlite history behind a msgpack TTL cache.
	seriesCache := marketdata.NewSeriesCache(historyDB, log)
	provider := marketdata.NewHistoryProvider(historyDB, seriesCache, cfg.SeriesCacheTTL, log)

	// Analysis modules.
	riskAnalyzer := risk.NewAnalyzer(provider, log)
	complianceChecker := compliance.NewChecker(log)
	performanceAnalyzer := performance.NewAnalyzer(provider, cfg.RiskFreeRatePct, log)

	scorer, err := scoring.NewScorer(log)
	if err != nil {
		log.Fatal().Err(err).Msg("Scoring weight contract violated")
	}
	engine := recommend.NewEngine(log)

	auditRepo := reports.NewRepository(auditDB, log)

	coordinator := pipeline.NewCoordinator(
		riskAnalyzer, complianceChecker, performanceAnalyzer,
		cfg.AnalyzerTimeout, bus, log,
	)
	runner := pipeline.NewRunner(coordinator, scorer, engine, auditRepo, bus, cfg.ReviewIntervalDays, log)
	comparator := pipeline.NewComparator(runner, cfg.ComparisonWorkers, bus, log)

	deepDive := deepdive.NewManager(provider, cfg.DeepDiveSessionTTL, log)

	// Backup service; uploads only when S3 is configured.
	var s3Client *reliability.S3Client
	if cfg.Backup.Enabled {
		s3Client, err = reliability.NewS3Client(context.Background(), cfg.Backup, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 backup client")
		}
		log.Info().Str("bucket", cfg.Backup.Bucket).Msg("S3 backups enabled")
	}
	backupService := reliability.NewBackupService(
		map[string]*database.DB{"history": historyDB, "audit": auditDB},
		cfg.DataDir, s3Client, cfg.Backup.RetainCount, bus, log,
	)

	// Background jobs.
	sched := scheduler.New(log)
	jobs := []struct {
		schedule string
		job      scheduler.Job
	}{
		{"@hourly", scheduler.NewCachePruneJob(seriesCache, deepDive, log)},
		{"0 7 * * *", scheduler.NewReviewScanJob(auditRepo, bus, log)},
		{"30 2 * * *", scheduler.NewBackupJob(backupService, log)},
	}
	for _, j := range jobs {
		if err := sched.AddJob(j.schedule, j.job); err != nil {
			log.Fatal().Err(err).Str("job", j.job.Name()).Msg("Failed to register job")
		}
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:        log,
		Config:     cfg,
		Runner:     runner,
		Comparator: comparator,
		DeepDive:   deepDive,
		Reports:    auditRepo,
		Bus:        bus,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server failed")
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Suitability service stopped")
}
