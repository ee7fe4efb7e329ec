package recommend

import (
	"fmt"

	"github.com/clearfolio/suitability/internal/domain"
)

// Rule categories surfaced on every recommendation.
const (
	CategoryRisk        = "risk"
	CategoryCompliance  = "compliance"
	CategoryPerformance = "performance"
	CategoryClient      = "client"
)

// Inputs is the read-only bundle a rule evaluates against. Every field is
// populated by the pipeline before the engine runs; degraded placeholder
// reports are passed through unchanged so rules can react to them.
type Inputs struct {
	Profile     *domain.ClientProfile
	Portfolio   *domain.Portfolio
	Risk        *domain.RiskAnalysis
	Compliance  *domain.ComplianceReport
	Performance *domain.PerformanceReport
	Score       *domain.SuitabilityScore
}

// rule is one declarative entry in the recommendation table. when returns
// whether the rule fires; message renders the client-facing text.
type rule struct {
	name           string
	category       string
	actionRequired bool
	when           func(in Inputs) bool
	message        func(in Inputs) string
}

// ruleTable is evaluated in order on every run. Order determines output
// order, which is deterministic for identical inputs.
var ruleTable = []rule{
	{
		name:           "compliance-violation-remediation",
		category:       CategoryCompliance,
		actionRequired: true,
		when:           func(in Inputs) bool { return in.Compliance.OverallStatus == domain.ComplianceFail },
		message: func(in Inputs) string {
			return fmt.Sprintf("resolve %d compliance violation(s) before executing this allocation: %s",
				len(in.Compliance.Violations), in.Compliance.Violations[0])
		},
	},
	{
		name:           "compliance-review-followup",
		category:       CategoryCompliance,
		actionRequired: false,
		when:           func(in Inputs) bool { return in.Compliance.OverallStatus == domain.ComplianceReview },
		message: func(in Inputs) string {
			return fmt.Sprintf("schedule a compliance review: %d warning(s) were raised", len(in.Compliance.Warnings))
		},
	},
	{
		name:           "risk-above-tolerance",
		category:       CategoryRisk,
		actionRequired: true,
		when: func(in Inputs) bool {
			return in.Risk.RiskRating.Index() > toleranceCeilingIndex(in.Profile.RiskTolerance)
		},
		message: func(in Inputs) string {
			return fmt.Sprintf("portfolio risk rating %s exceeds the level supported by a %s tolerance; reduce volatile positions",
				in.Risk.RiskRating, in.Profile.RiskTolerance)
		},
	},
	{
		name:           "concentration-reduction",
		category:       CategoryRisk,
		actionRequired: false,
		when:           func(in Inputs) bool { return in.Risk.ConcentrationScore > 70 },
		message: func(in Inputs) string {
			return fmt.Sprintf("concentration score %.0f is high; diversify across additional holdings or asset classes",
				in.Risk.ConcentrationScore)
		},
	},
	{
		name:           "degraded-risk-rerun",
		category:       CategoryRisk,
		actionRequired: true,
		when:           func(in Inputs) bool { return in.Risk.Degraded },
		message: func(in Inputs) string {
			return "risk metrics are placeholder values from a failed analysis; rerun before acting on this report"
		},
	},
	{
		name:           "underperformance-review",
		category:       CategoryPerformance,
		actionRequired: false,
		when: func(in Inputs) bool {
			return !in.Performance.Degraded && in.Performance.ExcessReturnPct < -3.0
		},
		message: func(in Inputs) string {
			return fmt.Sprintf("portfolio trails its benchmark by %.1f points; review underperformers %v",
				-in.Performance.ExcessReturnPct, tickers(in.Performance.BottomPerformers))
		},
	},
	{
		name:           "weak-risk-adjusted-return",
		category:       CategoryPerformance,
		actionRequired: false,
		when: func(in Inputs) bool {
			return !in.Performance.Degraded && in.Performance.SharpeRatio < 0 && in.Performance.TotalReturnPct != 0
		},
		message: func(in Inputs) string {
			return fmt.Sprintf("Sharpe ratio %.2f indicates returns have not compensated for risk taken", in.Performance.SharpeRatio)
		},
	},
	{
		name:           "liquidity-buffer",
		category:       CategoryClient,
		actionRequired: false,
		when: func(in Inputs) bool {
			return in.Profile.LiquidityNeeds > 0 && cashValue(in.Portfolio) < in.Profile.LiquidityNeeds
		},
		message: func(in Inputs) string {
			return fmt.Sprintf("cash holdings of %.0f fall short of stated liquidity needs of %.0f; build a cash buffer",
				cashValue(in.Portfolio), in.Profile.LiquidityNeeds)
		},
	},
	{
		name:           "horizon-glidepath",
		category:       CategoryClient,
		actionRequired: false,
		when: func(in Inputs) bool {
			return in.Profile.TimeHorizonYears <= 3 && riskyWeight(in.Portfolio) > 0.50
		},
		message: func(in Inputs) string {
			return fmt.Sprintf("with %d year(s) remaining, begin shifting the %.0f%% risky-asset allocation toward capital preservation",
				in.Profile.TimeHorizonYears, riskyWeight(in.Portfolio)*100)
		},
	},
	{
		name:           "marginal-fit-restructure",
		category:       CategoryClient,
		actionRequired: true,
		when:           func(in Inputs) bool { return in.Score.Band == domain.BandNotSuitable },
		message: func(in Inputs) string {
			return fmt.Sprintf("overall suitability score %.1f rates this portfolio not suitable; a restructure toward the client's tolerance and horizon is required",
				in.Score.OverallScore)
		},
	},
}

// maintainRule is the guaranteed fallback: a run always produces at least one
// recommendation, even for a clean highly suitable portfolio.
var maintainRule = rule{
	name:     "maintain-allocation",
	category: CategoryClient,
	message: func(in Inputs) string {
		return fmt.Sprintf("portfolio scores %.1f (%s); maintain the current allocation and revisit at the next scheduled review",
			in.Score.OverallScore, in.Score.Band)
	},
}

// toleranceCeilingIndex is the highest rating index a tolerance accepts
// without an action item.
func toleranceCeilingIndex(t domain.RiskTolerance) int {
	switch t {
	case domain.ToleranceConservative:
		return 1
	case domain.ToleranceModerate:
		return 2
	default:
		return 3
	}
}

func cashValue(p *domain.Portfolio) float64 {
	cash := 0.0
	for _, h := range p.Holdings {
		if h.AssetClass == domain.AssetClassCash {
			cash += h.MarketValue
		}
	}
	return cash
}

func riskyWeight(p *domain.Portfolio) float64 {
	weights := p.AssetClassWeights()
	return weights[domain.AssetClassEquity] + weights[domain.AssetClassAlternatives]
}

func tickers(returns []domain.HoldingReturn) []string {
	out := make([]string, 0, len(returns))
	for _, r := range returns {
		out = append(out, r.Ticker)
	}
	return out
}
