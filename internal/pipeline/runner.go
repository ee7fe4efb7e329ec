package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clearfolio/suitability/internal/domain"
	"github.com/clearfolio/suitability/internal/events"
	"github.com/clearfolio/suitability/internal/modules/recommend"
	"github.com/clearfolio/suitability/internal/modules/scoring"
)

// failedComplianceReviewDays shortens the review interval when a run ends in
// a compliance FAIL or a not-suitable band.
const failedComplianceReviewDays = 30

// ArtifactStore persists completed artifacts. A nil store skips persistence.
type ArtifactStore interface {
	Save(ctx context.Context, rec *domain.PortfolioRecommendations) error
}

// Runner executes the full analysis pipeline for one portfolio:
// validate, coordinate analyzers, score, recommend, persist.
type Runner struct {
	coordinator        *Coordinator
	scorer             *scoring.Scorer
	engine             *recommend.Engine
	store              ArtifactStore
	bus                *events.Bus
	reviewIntervalDays int
	log                zerolog.Logger
}

// NewRunner wires the pipeline stages together.
func NewRunner(
	coordinator *Coordinator,
	scorer *scoring.Scorer,
	engine *recommend.Engine,
	store ArtifactStore,
	bus *events.Bus,
	reviewIntervalDays int,
	log zerolog.Logger,
) *Runner {
	return &Runner{
		coordinator:        coordinator,
		scorer:             scorer,
		engine:             engine,
		store:              store,
		bus:                bus,
		reviewIntervalDays: reviewIntervalDays,
		log:                log.With().Str("component", "pipeline_runner").Logger(),
	}
}

// Analyze runs one portfolio through the full pipeline and returns the
// immutable artifact. Identical inputs with identical market data produce
// identical scores; only run ID and timestamps differ between runs.
func (r *Runner) Analyze(ctx context.Context, profile *domain.ClientProfile, portfolio *domain.Portfolio) (*domain.PortfolioRecommendations, error) {
	if err := domain.ValidateRequest(profile, portfolio); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	started := time.Now()

	r.log.Info().
		Str("run_id", runID).
		Str("portfolio_id", portfolio.PortfolioID).
		Str("client_id", profile.ClientID).
		Int("holdings", len(portfolio.Holdings)).
		Msg("Analysis run started")

	r.bus.Publish(&events.AnalysisStartedData{
		RunID:       runID,
		PortfolioID: portfolio.PortfolioID,
		ClientID:    profile.ClientID,
	})

	combined, err := r.coordinator.Run(ctx, runID, profile, portfolio)
	if err != nil {
		r.bus.Publish(&events.AnalysisFailedData{
			PortfolioID: portfolio.PortfolioID,
			Error:       err.Error(),
		})
		return nil, err
	}

	score, err := r.scorer.Score(combined.Risk, combined.Compliance, combined.Performance, profile)
	if err != nil {
		return nil, err
	}

	in := recommend.Inputs{
		Profile:     profile,
		Portfolio:   portfolio,
		Risk:        combined.Risk,
		Compliance:  combined.Compliance,
		Performance: combined.Performance,
		Score:       score,
	}
	recommendations, actionItems := r.engine.Recommend(in)

	analyzedAt := time.Now().UTC()
	nextReview := r.nextReviewDate(analyzedAt, score, combined.Compliance)

	artifact := &domain.PortfolioRecommendations{
		RunID:                runID,
		PortfolioID:          portfolio.PortfolioID,
		ClientID:             profile.ClientID,
		AnalyzedAt:           analyzedAt,
		Risk:                 *combined.Risk,
		Compliance:           *combined.Compliance,
		Performance:          *combined.Performance,
		Score:                *score,
		Recommendations:      recommendations,
		ActionItems:          actionItems,
		NextReviewDate:       &nextReview,
		ExecutiveSummary:     recommend.Summarize(in, recommendations),
		DegradedAnalyzers:    combined.DegradedAnalyzers,
		ExecutionTimeSeconds: time.Since(started).Seconds(),
	}

	if r.store != nil {
		if err := r.store.Save(ctx, artifact); err != nil {
			return nil, fmt.Errorf("analysis completed but persistence failed: %w", err)
		}
	}

	r.bus.Publish(&events.AnalysisCompletedData{
		RunID:             runID,
		PortfolioID:       portfolio.PortfolioID,
		OverallScore:      score.OverallScore,
		Band:              string(score.Band),
		DegradedAnalyzers: combined.DegradedAnalyzers,
		DurationSeconds:   artifact.ExecutionTimeSeconds,
	})

	r.log.Info().
		Str("run_id", runID).
		Float64("overall_score", score.OverallScore).
		Str("band", string(score.Band)).
		Strs("degraded", combined.DegradedAnalyzers).
		Float64("duration_s", artifact.ExecutionTimeSeconds).
		Msg("Analysis run completed")

	return artifact, nil
}

// nextReviewDate applies the standard review interval, shortened for runs
// that end in a compliance FAIL or a not-suitable band.
func (r *Runner) nextReviewDate(analyzedAt time.Time, score *domain.SuitabilityScore, compliance *domain.ComplianceReport) time.Time {
	days := r.reviewIntervalDays
	if compliance.OverallStatus == domain.ComplianceFail || score.Band == domain.BandNotSuitable {
		days = failedComplianceReviewDays
	}
	return analyzedAt.AddDate(0, 0, days)
}
