// Package risk computes portfolio risk metrics: volatility, Value-at-Risk,
// beta versus benchmark, concentration, drawdown and a four-level rating.
package risk

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

	// VaRZScore95 is the one-tailed z-score at 95% confidence.
	VaRZScore95 = 1.645

	// Rating thresholds on annualized volatility (%) and concentration (0-100).
	VolatilityMediumThreshold   = 15.0
	VolatilityHighThreshold     = 25.0
	VolatilityVeryHighThreshold = 35.0
	ConcentrationMediumThreshold   = 45.0
	ConcentrationHighThreshold     = 70.0
	ConcentrationVeryHighThreshold = 85.0

	// singlePositionConcernWeight flags any holding above this share of value.
	singlePositionConcernWeight = 0.20
)

// fallbackVolatility is the asset-class heuristic (annualized %) used when
// no holding has usable history.
var fallbackVolatility = map[domain.AssetClass]float64{
	domain.AssetClassEquity:       18.0,
	domain.AssetClassFixedIncome:  6.0,
	domain.AssetClassCash:         0.5,
	domain.AssetClassAlternatives: 22.0,
}

// Analyzer computes RiskAnalysis reports from portfolio holdings.
type Analyzer struct {
	provider     marketdata.Provider
	lookbackDays int
	log          zerolog.Logger
}

// NewAnalyzer creates a risk analyzer over the given market data provider.
func NewAnalyzer(provider marketdata.Provider, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		provider:     provider,
		lookbackDays: marketdata.DefaultLookbackDays,
		log:          log.With().Str("component", "risk_analyzer").Logger(),
	}
}

// Name identifies this analyzer to the coordinator.
func (a *Analyzer) Name() string { return "risk" }

// Analyze computes the risk report for a validated portfolio.
// Holdings with no available history are excluded from the time-series
// metrics but still count toward concentration; the report carries a
// coverage concern instead of failing outright.
func (a *Analyzer) Analyze(ctx context.Context, profile *domain.ClientProfile, portfolio *domain.Portfolio) (*domain.RiskAnalysis, error) {
	portfolioReturns, covered, missing := a.weightedReturns(ctx, portfolio)

	report := &domain.RiskAnalysis{}

	if len(portfolioReturns) >= 2 {
		dailySigma := stat.StdDev(portfolioReturns, nil)
		report.VolatilityPct = dailySigma * math.Sqrt(TradingDaysPerYear) * 100
		report.ValueAtRisk95 = portfolio.TotalValue * VaRZScore95 * dailySigma
		report.Beta = a.beta(ctx, portfolioReturns, portfolio.BenchmarkSymbol, report)

		if dd := maxDrawdown(portfolioReturns); dd > 0 {
			ddPct := dd * 100
			report.MaxDrawdownPct = &ddPct
		}
	} else {
		// No usable history anywhere: fall back to asset-class heuristics.
		report.VolatilityPct = a.heuristicVolatility(portfolio)
		dailySigma := report.VolatilityPct / 100 / math.Sqrt(TradingDaysPerYear)
		report.ValueAtRisk95 = portfolio.TotalValue * VaRZScore95 * dailySigma
		report.Beta = 1.0
		report.Concerns = append(report.Concerns,
			"no historical data available for any holding; volatility estimated from asset class composition")
	}

	report.ConcentrationScore = ConcentrationScore(portfolio)
	report.RiskRating = rateRisk(report.VolatilityPct, report.ConcentrationScore)

	if len(missing) > 0 && len(covered) > 0 {
		sort.Strings(missing)
		report.Concerns = append(report.Concerns,
			fmt.Sprintf("historical data unavailable for %d of %d holdings (%v); time-series metrics cover the remainder only",
				len(missing), len(portfolio.Holdings), missing))
	}

	a.addPositionConcerns(portfolio, report)
	a.addRecommendations(profile, report)

	a.log.Debug().
		Str("portfolio_id", portfolio.PortfolioID).
		Float64("volatility_pct", report.VolatilityPct).
		Float64("concentration", report.ConcentrationScore).
		Str("rating", string(report.RiskRating)).
		Int("holdings_missing_data", len(missing)).
		Msg("Risk analysis complete")

	return report, nil
}

// weightedReturns builds the value-weighted daily portfolio return series.
// Series are aligned on their common tail so every observation covers the
// same trading days.
func (a *Analyzer) weightedReturns(ctx context.Context, portfolio *domain.Portfolio) (returns []float64, covered, missing []string) {
	type holdingSeries struct {
		weight  float64
		returns []float64
	}

	var series []holdingSeries
	minLen := math.MaxInt32

	for _, h := range portfolio.Holdings {
		r, err := a.provider.DailyReturns(ctx, h.Ticker, a.lookbackDays)
		if err != nil {
			if errors.Is(err, marketdata.ErrDataUnavailable) {
				missing = append(missing, h.Ticker)
				continue
			}
			a.log.Warn().Err(err).Str("ticker", h.Ticker).Msg("Failed to fetch returns, treating as unavailable")
			missing = append(missing, h.Ticker)
			continue
		}
		if len(r) < 2 {
			missing = append(missing, h.Ticker)
			continue
		}
		series = append(series, holdingSeries{weight: portfolio.Weight(h), returns: r})
		covered = append(covered, h.Ticker)
		if len(r) < minLen {
			minLen = len(r)
		}
	}

	if len(series) == 0 {
		return nil, covered, missing
	}

	// Renormalize weights over the covered subset so the series represents
	// a fully invested sleeve rather than scaling returns down.
	totalWeight := 0.0
	for _, s := range series {
		totalWeight += s.weight
	}
	if totalWeight <= 0 {
		return nil, covered, missing
	}

	returns = make([]float64, minLen)
	for _, s := range series {
		offset := len(s.returns) - minLen
		for i := 0; i < minLen; i++ {
			returns[i] += (s.weight / totalWeight) * s.returns[offset+i]
		}
	}
	return returns, covered, missing
}

// beta computes covariance(portfolio, benchmark) / variance(benchmark).
// Falls back to 1.0 with a concern when the benchmark series is unavailable.
func (a *Analyzer) beta(ctx context.Context, portfolioReturns []float64, benchmark string, report *domain.RiskAnalysis) float64 {
	benchReturns, err := a.provider.DailyReturns(ctx, benchmark, a.lookbackDays)
	if err != nil || len(benchReturns) < 2 {
		report.Concerns = append(report.Concerns,
			fmt.Sprintf("benchmark %s history unavailable; beta defaulted to 1.0", benchmark))
		return 1.0
	}

	n := len(portfolioReturns)
	if len(benchReturns) < n {
		n = len(benchReturns)
	}
	p := portfolioReturns[len(portfolioReturns)-n:]
	b := benchReturns[len(benchReturns)-n:]

	benchVar := stat.Variance(b, nil)
	if benchVar <= 0 {
		return 1.0
	}
	return stat.Covariance(p, b, nil) / benchVar
}

// ConcentrationScore is a normalized Herfindahl index mapped to 0-100:
// 0 for an equal-weighted portfolio, 100 when one holding dominates.
func ConcentrationScore(portfolio *domain.Portfolio) float64 {
	n := len(portfolio.Holdings)
	if n <= 1 {
		return 100.0
	}

	hhi := 0.0
	for _, h := range portfolio.Holdings {
		w := portfolio.Weight(h)
		hhi += w * w
	}

	minHHI := 1.0 / float64(n)
	normalized := (hhi - minHHI) / (1.0 - minHHI)
	if normalized < 0 {
		normalized = 0
	}

	// Blend in a small-portfolio floor: few holdings are inherently
	// concentrated even when equal-weighted.
	floor := 0.0
	if n < 10 {
		floor = (10.0 - float64(n)) * 4.0
	}
	score := math.Max(normalized*100, floor)
	return math.Min(score, 100)
}

// rateRisk assigns the four-level rating from fixed thresholds.
// Either dimension alone is enough to escalate the rating.
func rateRisk(volatilityPct, concentration float64) domain.RiskRating {
	switch {
	case volatilityPct > VolatilityVeryHighThreshold || concentration > ConcentrationVeryHighThreshold:
		return domain.RiskRatingVeryHigh
	case volatilityPct > VolatilityHighThreshold || concentration > ConcentrationHighThreshold:
		return domain.RiskRatingHigh
	case volatilityPct > VolatilityMediumThreshold || concentration > ConcentrationMediumThreshold:
		return domain.RiskRatingMedium
	default:
		return domain.RiskRatingLow
	}
}

// maxDrawdown computes the maximum peak-to-trough loss of the cumulative
// return path, as a positive fraction.
func maxDrawdown(returns []float64) float64 {
	value := 1.0
	peak := 1.0
	maxDD := 0.0
	for _, r := range returns {
		value *= 1 + r
		if value > peak {
			peak = value
		}
		if dd := (peak - value) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

func (a *Analyzer) heuristicVolatility(portfolio *domain.Portfolio) float64 {
	vol := 0.0
	for class, weight := range portfolio.AssetClassWeights() {
		vol += weight * fallbackVolatility[class]
	}
	return vol
}

func (a *Analyzer) addPositionConcerns(portfolio *domain.Portfolio, report *domain.RiskAnalysis) {
	for _, h := range portfolio.Holdings {
		if w := portfolio.Weight(h); w > singlePositionConcernWeight {
			report.Concerns = append(report.Concerns,
				fmt.Sprintf("%s represents %.1f%% of portfolio value", h.Ticker, w*100))
		}
	}
}

func (a *Analyzer) addRecommendations(profile *domain.ClientProfile, report *domain.RiskAnalysis) {
	if report.ConcentrationScore > ConcentrationHighThreshold {
		report.Recommendations = append(report.Recommendations,
			"diversify across more holdings to reduce single-position exposure")
	}
	if report.VolatilityPct > VolatilityHighThreshold && profile.RiskTolerance == domain.ToleranceConservative {
		report.Recommendations = append(report.Recommendations,
			"portfolio volatility exceeds what a conservative profile typically tolerates; consider shifting toward fixed income")
	}
}

// DegradedReport is the worst-case placeholder substituted by the coordinator
// when the risk analyzer fails: maximal-uncertainty values, never silent.
func DegradedReport(reason string) *domain.RiskAnalysis {
	return &domain.RiskAnalysis{
		VolatilityPct:      VolatilityVeryHighThreshold,
		ConcentrationScore: 100,
		Beta:               1.0,
		RiskRating:         domain.RiskRatingVeryHigh,
		Degraded:           true,
		Concerns: []string{
			fmt.Sprintf("risk analysis unavailable (%s); worst-case assumptions substituted", reason),
		},
	}
}
