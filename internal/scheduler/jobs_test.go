package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearfolio/suitability/internal/domain"
	"github.com/clearfolio/suitability/internal/events"
	"github.com/clearfolio/suitability/internal/marketdata"
	"github.com/clearfolio/suitability/internal/modules/deepdive"
	"github.com/clearfolio/suitability/internal/reports"
	suitabilitytesting "github.com/clearfolio/suitability/internal/testing"
)

// TestCachePruneJob removes expired cache entries and idle sessions in one
// pass.
func TestCachePruneJob(t *testing.T) {
	db, cleanup := suitabilitytesting.NewTestDB(t, "history")
	t.Cleanup(cleanup)

	cache := marketdata.NewSeriesCache(db, zerolog.Nop())
	require.NoError(t, cache.Set("AAPL", 252, []float64{1, 2}, []float64{1}, -time.Minute))
	require.NoError(t, cache.Set("MSFT", 252, []float64{1, 2}, []float64{1}, time.Hour))

	sessions := deepdive.NewManager(suitabilitytesting.NewStaticProvider(60), time.Hour, zerolog.Nop())

	job := NewCachePruneJob(cache, sessions, zerolog.Nop())
	assert.Equal(t, "cache_prune", job.Name())
	require.NoError(t, job.Run())

	_, _, ok := cache.Get("AAPL", 252)
	assert.False(t, ok)
	_, _, ok = cache.Get("MSFT", 252)
	assert.True(t, ok)
}

// TestReviewScanJob publishes one ReviewDue event per overdue run.
func TestReviewScanJob(t *testing.T) {
	db, cleanup := suitabilitytesting.NewTestDB(t, "audit")
	t.Cleanup(cleanup)

	repo := reports.NewRepository(db, zerolog.Nop())
	bus := events.NewBus(zerolog.Nop())
	t.Cleanup(bus.Close)
	ch, cancel := bus.Subscribe()
	defer cancel()

	past := time.Now().UTC().AddDate(0, 0, -5)
	future := time.Now().UTC().AddDate(0, 0, 30)
	require.NoError(t, repo.Save(context.Background(), &domain.PortfolioRecommendations{
		RunID: "run-overdue", PortfolioID: "PF-1", ClientID: "CL-1",
		AnalyzedAt: past.AddDate(0, 0, -90), NextReviewDate: &past,
	}))
	require.NoError(t, repo.Save(context.Background(), &domain.PortfolioRecommendations{
		RunID: "run-current", PortfolioID: "PF-2", ClientID: "CL-1",
		AnalyzedAt: time.Now().UTC(), NextReviewDate: &future,
	}))

	job := NewReviewScanJob(repo, bus, zerolog.Nop())
	assert.Equal(t, "review_scan", job.Name())
	require.NoError(t, job.Run())

	require.Len(t, ch, 1)
	event := <-ch
	assert.Equal(t, events.ReviewDue, event.Type)
	data, ok := event.Data.(*events.ReviewDueData)
	require.True(t, ok)
	assert.Equal(t, "run-overdue", data.RunID)
	assert.Equal(t, "PF-1", data.PortfolioID)
}

type fakeBackupRunner struct {
	calls int
	err   error
}

func (f *fakeBackupRunner) Backup(context.Context) error {
	f.calls++
	return f.err
}

func TestBackupJob(t *testing.T) {
	runner := &fakeBackupRunner{}
	job := NewBackupJob(runner, zerolog.Nop())

	assert.Equal(t, "nightly_backup", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, 1, runner.calls)

	runner.err = errors.New("bucket unreachable")
	assert.Error(t, job.Run())
}

// TestSchedulerRegistration rejects malformed cron expressions and accepts
// the schedules the service uses.
func TestSchedulerRegistration(t *testing.T) {
	s := New(zerolog.Nop())

	job := NewBackupJob(&fakeBackupRunner{}, zerolog.Nop())
	require.NoError(t, s.AddJob("@hourly", job))
	require.NoError(t, s.AddJob("30 2 * * *", job))
	assert.Error(t, s.AddJob("not a schedule", job))

	runner := &fakeBackupRunner{}
	require.NoError(t, s.RunNow(NewBackupJob(runner, zerolog.Nop())))
	assert.Equal(t, 1, runner.calls)
}
