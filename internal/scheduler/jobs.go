package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/clearfolio/suitability/internal/events"
	"github.com/clearfolio/suitability/internal/marketdata"
	"github.com/clearfolio/suitability/internal/modules/deepdive"
	"github.com/clearfolio/suitability/internal/reports"
)

// reviewScanTimeout bounds the daily audit query.
const reviewScanTimeout = 30 * time.Second

// CachePruneJob removes expired market data cache entries and idle deep-dive
// sessions. Scheduled hourly.
type CachePruneJob struct {
	cache    *marketdata.SeriesCache
	sessions *deepdive.Manager
	log      zerolog.Logger
}

// NewCachePruneJob creates the hourly prune job.
func NewCachePruneJob(cache *marketdata.SeriesCache, sessions *deepdive.Manager, log zerolog.Logger) *CachePruneJob {
	return &CachePruneJob{
		cache:    cache,
		sessions: sessions,
		log:      log.With().Str("job", "cache_prune").Logger(),
	}
}

// Name implements Job.
func (j *CachePruneJob) Name() string { return "cache_prune" }

// Run implements Job.
func (j *CachePruneJob) Run() error {
	entries, err := j.cache.Prune()
	if err != nil {
		return fmt.Errorf("cache prune failed: %w", err)
	}
	sessions := j.sessions.PruneExpired()

	j.log.Info().
		Int64("cache_entries", entries).
		Int("sessions", sessions).
		Msg("Prune completed")
	return nil
}

// ReviewScanJob finds persisted recommendations whose next review date has
// passed and publishes a ReviewDue event for each. Scheduled daily.
type ReviewScanJob struct {
	repo *reports.Repository
	bus  *events.Bus
	log  zerolog.Logger
}

// NewReviewScanJob creates the daily review scan job.
func NewReviewScanJob(repo *reports.Repository, bus *events.Bus, log zerolog.Logger) *ReviewScanJob {
	return &ReviewScanJob{
		repo: repo,
		bus:  bus,
		log:  log.With().Str("job", "review_scan").Logger(),
	}
}

// Name implements Job.
func (j *ReviewScanJob) Name() string { return "review_scan" }

// Run implements Job.
func (j *ReviewScanJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), reviewScanTimeout)
	defer cancel()

	due, err := j.repo.ReviewDue(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("review scan failed: %w", err)
	}

	for _, summary := range due {
		j.log.Info().
			Str("run_id", summary.RunID).
			Str("portfolio_id", summary.PortfolioID).
			Str("client_id", summary.ClientID).
			Time("due", *summary.NextReviewDate).
			Msg("Portfolio review due")
		j.bus.Publish(&events.ReviewDueData{
			RunID:       summary.RunID,
			PortfolioID: summary.PortfolioID,
			ClientID:    summary.ClientID,
			DueDate:     *summary.NextReviewDate,
		})
	}

	j.log.Info().Int("due", len(due)).Msg("Review scan completed")
	return nil
}

// BackupRunner is satisfied by the reliability backup service.
type BackupRunner interface {
	Backup(ctx context.Context) error
}

// BackupJob runs the nightly audit backup when backups are configured.
type BackupJob struct {
	backup BackupRunner
	log    zerolog.Logger
}

// NewBackupJob creates the nightly backup job.
func NewBackupJob(backup BackupRunner, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backup: backup,
		log:    log.With().Str("job", "nightly_backup").Logger(),
	}
}

// Name implements Job.
func (j *BackupJob) Name() string { return "nightly_backup" }

// Run implements Job.
func (j *BackupJob) Run() error {
	return j.backup.Backup(context.Background())
}
