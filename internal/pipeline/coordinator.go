// Package pipeline orchestrates the analysis stages: the parallel analyzer
// coordinator, the sequential pipeline runner, and the multi-portfolio
// comparator.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/clearfolio/suitability/internal/domain"
	"github.com/clearfolio/suitability/internal/events"
	"github.com/clearfolio/suitability/internal/modules/compliance"
	"github.com/clearfolio/suitability/internal/modules/performance"
	"github.com/clearfolio/suitability/internal/modules/risk"
)

// RiskAnalyzer, ComplianceAnalyzer and PerformanceAnalyzer are the three
// contracts the coordinator fans out to. The concrete module types satisfy
// them; tests substitute failing or slow stand-ins.
type RiskAnalyzer interface {
	Name() string
	Analyze(ctx context.Context, profile *domain.ClientProfile, portfolio *domain.Portfolio) (*domain.RiskAnalysis, error)
}

type ComplianceAnalyzer interface {
	Name() string
	Check(ctx context.Context, profile *domain.ClientProfile, portfolio *domain.Portfolio) (*domain.ComplianceReport, error)
}

type PerformanceAnalyzer interface {
	Name() string
	Analyze(ctx context.Context, profile *domain.ClientProfile, portfolio *domain.Portfolio) (*domain.PerformanceReport, error)
}

// CombinedResults is the fan-in product handed to scoring. Degraded
// placeholder reports are already substituted where a single analyzer failed.
type CombinedResults struct {
	Risk              *domain.RiskAnalysis
	Compliance        *domain.ComplianceReport
	Performance       *domain.PerformanceReport
	DegradedAnalyzers []string
}

// Coordinator fans the three analyzers out in parallel, applies the
// per-analyzer timeout, and joins at a barrier before returning.
type Coordinator struct {
	risk        RiskAnalyzer
	compliance  ComplianceAnalyzer
	performance PerformanceAnalyzer
	timeout     time.Duration
	bus         *events.Bus
	log         zerolog.Logger
}

// NewCoordinator creates the parallel analysis coordinator.
func NewCoordinator(
	riskA RiskAnalyzer,
	complianceA ComplianceAnalyzer,
	performanceA PerformanceAnalyzer,
	timeout time.Duration,
	bus *events.Bus,
	log zerolog.Logger,
) *Coordinator {
	return &Coordinator{
		risk:        riskA,
		compliance:  complianceA,
		performance: performanceA,
		timeout:     timeout,
		bus:         bus,
		log:         log.With().Str("component", "analysis_coordinator").Logger(),
	}
}

type analyzerOutcome struct {
	name    string
	failure *domain.AnalyzerFailure
}

// Run executes all three analyzers concurrently against the same immutable
// inputs. Exactly one failure substitutes that analyzer's degraded
// placeholder; two or more failures abort the run with PipelineFailure.
func (c *Coordinator) Run(ctx context.Context, runID string, profile *domain.ClientProfile, portfolio *domain.Portfolio) (*CombinedResults, error) {
	results := &CombinedResults{}
	outcomes := make(chan analyzerOutcome, 3)

	go func() {
		report, failure := runGuarded(ctx, c.timeout, c.risk.Name(), func(ctx context.Context) (*domain.RiskAnalysis, error) {
			return c.risk.Analyze(ctx, profile, portfolio)
		})
		results.Risk = report
		outcomes <- analyzerOutcome{name: c.risk.Name(), failure: failure}
	}()
	go func() {
		report, failure := runGuarded(ctx, c.timeout, c.compliance.Name(), func(ctx context.Context) (*domain.ComplianceReport, error) {
			return c.compliance.Check(ctx, profile, portfolio)
		})
		results.Compliance = report
		outcomes <- analyzerOutcome{name: c.compliance.Name(), failure: failure}
	}()
	go func() {
		report, failure := runGuarded(ctx, c.timeout, c.performance.Name(), func(ctx context.Context) (*domain.PerformanceReport, error) {
			return c.performance.Analyze(ctx, profile, portfolio)
		})
		results.Performance = report
		outcomes <- analyzerOutcome{name: c.performance.Name(), failure: failure}
	}()

	// Fan-in barrier: scoring never starts before all three have finished.
	var failures []*domain.AnalyzerFailure
	for i := 0; i < 3; i++ {
		outcome := <-outcomes
		if outcome.failure != nil {
			failures = append(failures, outcome.failure)
		}
	}

	if len(failures) >= 2 {
		return nil, &domain.PipelineFailure{Failures: failures}
	}

	for _, f := range failures {
		c.log.Warn().Str("run_id", runID).Str("analyzer", f.Analyzer).Bool("timed_out", f.TimedOut).
			Msg("Analyzer failed, substituting degraded placeholder")
		c.bus.Publish(&events.AnalyzerDegradedData{
			RunID:    runID,
			Analyzer: f.Analyzer,
			Reason:   f.Error(),
			TimedOut: f.TimedOut,
		})
		results.DegradedAnalyzers = append(results.DegradedAnalyzers, f.Analyzer)

		switch f.Analyzer {
		case c.risk.Name():
			results.Risk = risk.DegradedReport(f.Error())
		case c.compliance.Name():
			results.Compliance = compliance.DegradedReport(f.Error())
		case c.performance.Name():
			results.Performance = performance.DegradedReport(f.Error())
		}
	}

	return results, nil
}

// runGuarded executes one analyzer under the per-analyzer timeout with panic
// recovery. A panic inside an analyzer degrades that analyzer only.
func runGuarded[T any](parent context.Context, timeout time.Duration, name string, fn func(ctx context.Context) (T, error)) (report T, failure *domain.AnalyzerFailure) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	type result struct {
		report T
		err    error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		r, err := fn(ctx)
		done <- result{report: r, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return report, &domain.AnalyzerFailure{
				Analyzer: name,
				Cause:    r.err,
				TimedOut: errors.Is(r.err, context.DeadlineExceeded),
			}
		}
		return r.report, nil
	case <-ctx.Done():
		return report, &domain.AnalyzerFailure{
			Analyzer: name,
			Cause:    ctx.Err(),
			TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
		}
	}
}
