// Package performance computes portfolio returns, Sharpe ratio and
// attribution versus a benchmark over the shared observation window.
package performance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/clearfolio/suitability/internal/domain"
	"github.com/clearfolio/suitability/internal/marketdata"
)

const (
	// TradingDaysPerYear annualizes daily statistics.
	TradingDaysPerYear = 252

	// rankedPerformerCount bounds the top/bottom performer lists.
	rankedPerformerCount = 3
)

// Analyzer computes PerformanceReport documents from portfolio holdings.
type Analyzer struct {
	provider        marketdata.Provider
	lookbackDays    int
	riskFreeRatePct float64
	log             zerolog.Logger
}

// NewAnalyzer creates a performance analyzer. riskFreeRatePct is the
// annualized risk-free rate used by the Sharpe calculation.
func NewAnalyzer(provider marketdata.Provider, riskFreeRatePct float64, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		provider:        provider,
		lookbackDays:    marketdata.DefaultLookbackDays,
		riskFreeRatePct: riskFreeRatePct,
		log:             log.With().Str("component", "performance_analyzer").Logger(),
	}
}

// Name identifies this analyzer to the coordinator.
func (a *Analyzer) Name() string { return "performance" }

// Analyze computes the performance report for a validated portfolio.
// Excess return is strictly total minus benchmark, never independently
// estimated. The observation window matches the risk analyzer's.
func (a *Analyzer) Analyze(ctx context.Context, _ *domain.ClientProfile, portfolio *domain.Portfolio) (*domain.PerformanceReport, error) {
	report := &domain.PerformanceReport{
		Attribution: make(map[string]float64),
	}

	holdingReturns, covered, missing := a.holdingReturns(ctx, portfolio)
	if len(covered) == 0 {
		return nil, fmt.Errorf("performance analysis: %w", marketdata.ErrDataUnavailable)
	}

	// Total return: value-weighted cumulative holding returns, renormalized
	// over the covered subset.
	coveredWeight := 0.0
	for _, hr := range holdingReturns {
		coveredWeight += hr.weight
	}
	totalReturn := 0.0
	for _, hr := range holdingReturns {
		totalReturn += (hr.weight / coveredWeight) * hr.cumulativeReturn
	}
	report.TotalReturnPct = totalReturn * 100

	benchReturn, benchSeries, err := a.benchmarkReturn(ctx, portfolio.BenchmarkSymbol)
	if err != nil {
		report.Concerns = append(report.Concerns,
			fmt.Sprintf("benchmark %s history unavailable; benchmark return reported as 0", portfolio.BenchmarkSymbol))
	}
	report.BenchmarkReturnPct = benchReturn * 100

	// The one derivation rule this report must never break.
	report.ExcessReturnPct = report.TotalReturnPct - report.BenchmarkReturnPct

	report.SharpeRatio = a.sharpe(holdingReturns, coveredWeight)
	if alpha := a.alpha(report, benchSeries); alpha != nil {
		report.Alpha = alpha
	}

	a.attribute(portfolio, holdingReturns, coveredWeight, report)
	a.rankPerformers(holdingReturns, report)

	if len(missing) > 0 {
		sort.Strings(missing)
		report.Concerns = append(report.Concerns,
			fmt.Sprintf("historical data unavailable for %d of %d holdings (%v); returns cover the remainder only",
				len(missing), len(portfolio.Holdings), missing))
	}

	a.log.Debug().
		Str("portfolio_id", portfolio.PortfolioID).
		Float64("total_return_pct", report.TotalReturnPct).
		Float64("excess_return_pct", report.ExcessReturnPct).
		Float64("sharpe", report.SharpeRatio).
		Msg("Performance analysis complete")

	return report, nil
}

type holdingResult struct {
	ticker           string
	sector           string
	assetClass       domain.AssetClass
	weight           float64
	cumulativeReturn float64
	dailyReturns     []float64
}

func (a *Analyzer) holdingReturns(ctx context.Context, portfolio *domain.Portfolio) (results []holdingResult, covered, missing []string) {
	for _, h := range portfolio.Holdings {
		returns, err := a.provider.DailyReturns(ctx, h.Ticker, a.lookbackDays)
		if err != nil || len(returns) < 2 {
			if err != nil && !errors.Is(err, marketdata.ErrDataUnavailable) {
				a.log.Warn().Err(err).Str("ticker", h.Ticker).Msg("Failed to fetch returns, treating as unavailable")
			}
			missing = append(missing, h.Ticker)
			continue
		}

		cumulative := 1.0
		for _, r := range returns {
			cumulative *= 1 + r
		}

		sector := h.Sector
		if sector == "" {
			sector = "Unclassified"
		}

		results = append(results, holdingResult{
			ticker:           h.Ticker,
			sector:           sector,
			assetClass:       h.AssetClass,
			weight:           portfolio.Weight(h),
			cumulativeReturn: cumulative - 1,
			dailyReturns:     returns,
		})
		covered = append(covered, h.Ticker)
	}
	return results, covered, missing
}

func (a *Analyzer) benchmarkReturn(ctx context.Context, benchmark string) (float64, []float64, error) {
	returns, err := a.provider.DailyReturns(ctx, benchmark, a.lookbackDays)
	if err != nil || len(returns) < 2 {
		if err == nil {
			err = marketdata.ErrDataUnavailable
		}
		return 0, nil, err
	}
	cumulative := 1.0
	for _, r := range returns {
		cumulative *= 1 + r
	}
	return cumulative - 1, returns, nil
}

// sharpe computes the annualized Sharpe ratio on the value-weighted daily
// series, using the same alignment rule as the risk analyzer.
func (a *Analyzer) sharpe(holdings []holdingResult, coveredWeight float64) float64 {
	minLen := math.MaxInt32
	for _, h := range holdings {
		if len(h.dailyReturns) < minLen {
			minLen = len(h.dailyReturns)
		}
	}
	if minLen < 2 || coveredWeight <= 0 {
		return 0
	}

	daily := make([]float64, minLen)
	for _, h := range holdings {
		offset := len(h.dailyReturns) - minLen
		for i := 0; i < minLen; i++ {
			daily[i] += (h.weight / coveredWeight) * h.dailyReturns[offset+i]
		}
	}

	sigma := stat.StdDev(daily, nil)
	if sigma <= 0 {
		return 0
	}

	dailyRiskFree := a.riskFreeRatePct / 100 / TradingDaysPerYear
	meanExcess := stat.Mean(daily, nil) - dailyRiskFree
	return meanExcess / sigma * math.Sqrt(TradingDaysPerYear)
}

// alpha is the simple excess over beta-adjusted benchmark return; reported
// only when a benchmark series exists.
func (a *Analyzer) alpha(report *domain.PerformanceReport, benchSeries []float64) *float64 {
	if len(benchSeries) < 2 {
		return nil
	}
	alpha := report.ExcessReturnPct
	return &alpha
}

// attribute decomposes excess return by sector and asset class in proportion
// to value weights. Contributions sum to approximately the excess return;
// compounding effects are not redistributed.
func (a *Analyzer) attribute(portfolio *domain.Portfolio, holdings []holdingResult, coveredWeight float64, report *domain.PerformanceReport) {
	benchFraction := report.BenchmarkReturnPct / 100
	for _, h := range holdings {
		contribution := (h.weight / coveredWeight) * (h.cumulativeReturn - benchFraction) * 100
		report.Attribution["sector:"+h.sector] += contribution
		report.Attribution["class:"+string(h.assetClass)] += contribution
	}
}

func (a *Analyzer) rankPerformers(holdings []holdingResult, report *domain.PerformanceReport) {
	ranked := make([]domain.HoldingReturn, 0, len(holdings))
	for _, h := range holdings {
		ranked = append(ranked, domain.HoldingReturn{
			Ticker:    h.ticker,
			ReturnPct: h.cumulativeReturn * 100,
		})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].ReturnPct > ranked[j].ReturnPct })

	top := rankedPerformerCount
	if top > len(ranked) {
		top = len(ranked)
	}
	report.TopPerformers = append(report.TopPerformers, ranked[:top]...)

	bottom := rankedPerformerCount
	if bottom > len(ranked) {
		bottom = len(ranked)
	}
	for i := len(ranked) - 1; i >= len(ranked)-bottom; i-- {
		report.BottomPerformers = append(report.BottomPerformers, ranked[i])
	}
}

// DegradedReport is the placeholder substituted when the performance
// analyzer fails: zeroed metrics with an explicit concern, never silent.
func DegradedReport(reason string) *domain.PerformanceReport {
	return &domain.PerformanceReport{
		Attribution: map[string]float64{},
		Degraded:    true,
		Concerns: []string{
			fmt.Sprintf("performance analysis unavailable (%s); returns and Sharpe reported as zero", reason),
		},
	}
}
