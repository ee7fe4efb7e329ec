package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clearfolio/suitability/internal/domain"
	"github.com/clearfolio/suitability/internal/events"
)

// Comparator runs the full pipeline for each candidate portfolio of one
// client through a bounded worker pool and ranks the results.
type Comparator struct {
	runner  *Runner
	workers int
	bus     *events.Bus
	log     zerolog.Logger
}

// NewComparator creates a comparison orchestrator. workers bounds the number
// of concurrently running pipelines.
func NewComparator(runner *Runner, workers int, bus *events.Bus, log zerolog.Logger) *Comparator {
	if workers < 1 {
		workers = 1
	}
	return &Comparator{
		runner:  runner,
		workers: workers,
		bus:     bus,
		log:     log.With().Str("component", "comparison_orchestrator").Logger(),
	}
}

// Compare analyzes every candidate for the same client profile and ranks
// them. A candidate whose pipeline hard-fails lands in the failures map and
// is excluded from ranking; the comparison itself fails only when every
// candidate does.
func (c *Comparator) Compare(ctx context.Context, profile *domain.ClientProfile, candidates []domain.Portfolio) (*domain.ComparisonResult, error) {
	if len(candidates) < 2 {
		return nil, &domain.ValidationError{Field: "portfolios", Reason: "comparison requires at least two candidates"}
	}

	started := time.Now()

	type outcome struct {
		portfolioID string
		artifact    *domain.PortfolioRecommendations
		err         error
	}

	jobs := make(chan int)
	outcomes := make(chan outcome, len(candidates))

	var wg sync.WaitGroup
	for w := 0; w < c.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				candidate := candidates[i]
				artifact, err := c.runner.Analyze(ctx, profile, &candidate)
				outcomes <- outcome{portfolioID: candidate.PortfolioID, artifact: artifact, err: err}
			}
		}()
	}

	go func() {
		for i := range candidates {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
		close(outcomes)
	}()

	result := &domain.ComparisonResult{
		ClientID: profile.ClientID,
		Failures: make(map[string]string),
	}
	for o := range outcomes {
		if o.err != nil {
			c.log.Warn().Str("portfolio_id", o.portfolioID).Err(o.err).Msg("Candidate excluded from comparison")
			result.Failures[o.portfolioID] = o.err.Error()
			continue
		}
		result.Ranked = append(result.Ranked, *o.artifact)
	}

	if len(result.Ranked) == 0 {
		return nil, fmt.Errorf("comparison failed: all %d candidates failed analysis", len(candidates))
	}

	rank(result.Ranked)
	result.BestFitPortfolioID = result.Ranked[0].PortfolioID
	result.ExecutionTimeSeconds = time.Since(started).Seconds()

	c.bus.Publish(&events.ComparisonCompletedData{
		ClientID:        profile.ClientID,
		Candidates:      len(candidates),
		Failures:        len(result.Failures),
		BestFit:         result.BestFitPortfolioID,
		DurationSeconds: result.ExecutionTimeSeconds,
	})

	c.log.Info().
		Str("client_id", profile.ClientID).
		Str("best_fit", result.BestFitPortfolioID).
		Int("ranked", len(result.Ranked)).
		Int("failures", len(result.Failures)).
		Msg("Comparison completed")

	return result, nil
}

// rank orders candidates best-first: highest overall score, ties broken by
// higher compliance fit, then lower concentration.
func rank(ranked []domain.PortfolioRecommendations) {
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score.OverallScore != b.Score.OverallScore {
			return a.Score.OverallScore > b.Score.OverallScore
		}
		if a.Score.ComplianceFit != b.Score.ComplianceFit {
			return a.Score.ComplianceFit > b.Score.ComplianceFit
		}
		return a.Risk.ConcentrationScore < b.Risk.ConcentrationScore
	})
}
