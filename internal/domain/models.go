// Package domain provides core domain models and types for suitability analysis.
package domain

import "time"

// RiskTolerance represents a client's stated appetite for risk
type RiskTolerance string

const (
	ToleranceConservative RiskTolerance = "CONSERVATIVE"
	ToleranceModerate     RiskTolerance = "MODERATE"
	ToleranceAggressive   RiskTolerance = "AGGRESSIVE"
)

// AssetClass represents the broad classification of a holding
type AssetClass string

const (
	AssetClassEquity       AssetClass = "EQUITY"
	AssetClassFixedIncome  AssetClass = "FIXED_INCOME"
	AssetClassCash         AssetClass = "CASH"
	AssetClassAlternatives AssetClass = "ALTERNATIVES"
)

// RiskRating is the four-level portfolio risk classification
type RiskRating string

const (
	RiskRatingLow      RiskRating = "LOW"
	RiskRatingMedium   RiskRating = "MEDIUM"
	RiskRatingHigh     RiskRating = "HIGH"
	RiskRatingVeryHigh RiskRating = "VERY_HIGH"
)

// Index returns the ordinal position of the rating (0=Low .. 3=Very High).
// Used for distance calculations against client tolerance.
func (r RiskRating) Index() int {
	switch r {
	case RiskRatingLow:
		return 0
	case RiskRatingMedium:
		return 1
	case RiskRatingHigh:
		return 2
	case RiskRatingVeryHigh:
		return 3
	}
	return 3
}

// ComplianceStatus is the overall outcome of the compliance checks
type ComplianceStatus string

const (
	CompliancePass   ComplianceStatus = "PASS"
	ComplianceFail   ComplianceStatus = "FAIL"
	ComplianceReview ComplianceStatus = "REVIEW"
)

// SuitabilityBand is the qualitative interpretation of the overall score
type SuitabilityBand string

const (
	BandHighlySuitable SuitabilityBand = "HIGHLY_SUITABLE"
	BandSuitable       SuitabilityBand = "SUITABLE"
	BandMarginalFit    SuitabilityBand = "MARGINAL_FIT"
	BandNotSuitable    SuitabilityBand = "NOT_SUITABLE"
)

// ClientProfile describes the investor the portfolio is evaluated for.
// Immutable once validated; created once per analysis request.
type ClientProfile struct {
	ClientID         string        `json:"client_id"`
	Name             string        `json:"name"`
	Age              int           `json:"age"`
	RiskTolerance    RiskTolerance `json:"risk_tolerance"`
	InvestmentGoals  []string      `json:"investment_goals"`
	TimeHorizonYears int           `json:"time_horizon_years"`
	Constraints      []string      `json:"constraints,omitempty"`
	AnnualIncome     float64       `json:"annual_income"`
	NetWorth         float64       `json:"net_worth"`
	LiquidityNeeds   float64       `json:"liquidity_needs"`
}

// Holding is a single position inside a portfolio.
// MarketValue is always recomputed as Shares * Price during validation;
// a caller-supplied value is never trusted.
type Holding struct {
	Ticker      string     `json:"ticker"`
	CompanyName string     `json:"company_name,omitempty"`
	Shares      float64    `json:"shares"`
	Price       float64    `json:"price"`
	MarketValue float64    `json:"market_value"`
	AssetClass  AssetClass `json:"asset_class"`
	Sector      string     `json:"sector,omitempty"`
	CostBasis   *float64   `json:"cost_basis,omitempty"`
}

// Portfolio is the candidate investment portfolio under analysis
type Portfolio struct {
	PortfolioID     string    `json:"portfolio_id"`
	ClientID        string    `json:"client_id"`
	Holdings        []Holding `json:"holdings"`
	TotalValue      float64   `json:"total_value"`
	AsOf            time.Time `json:"as_of"`
	BenchmarkSymbol string    `json:"benchmark_symbol"`
}

// DefaultBenchmarkSymbol is used when a portfolio does not name a benchmark.
const DefaultBenchmarkSymbol = "SPX"

// Weight returns the fraction of total value held in the given holding.
func (p *Portfolio) Weight(h Holding) float64 {
	if p.TotalValue <= 0 {
		return 0
	}
	return h.MarketValue / p.TotalValue
}

// AssetClassWeights returns the value weight of each asset class.
func (p *Portfolio) AssetClassWeights() map[AssetClass]float64 {
	weights := make(map[AssetClass]float64)
	if p.TotalValue <= 0 {
		return weights
	}
	for _, h := range p.Holdings {
		weights[h.AssetClass] += h.MarketValue / p.TotalValue
	}
	return weights
}

// RiskAnalysis is the Risk Analyzer's report
type RiskAnalysis struct {
	VolatilityPct      float64    `json:"volatility_pct"`
	ValueAtRisk95      float64    `json:"value_at_risk_95"`
	Beta               float64    `json:"beta"`
	ConcentrationScore float64    `json:"concentration_score"`
	MaxDrawdownPct     *float64   `json:"max_drawdown_pct,omitempty"`
	RiskRating         RiskRating `json:"risk_rating"`
	Concerns           []string   `json:"concerns,omitempty"`
	Recommendations    []string   `json:"recommendations,omitempty"`
	Degraded           bool       `json:"degraded,omitempty"`
}

// ComplianceCheck records the outcome of one named rule
type ComplianceCheck struct {
	Name      string `json:"name"`
	Passed    bool   `json:"passed"`
	Violation string `json:"violation,omitempty"`
	Warning   string `json:"warning,omitempty"`
}

// ComplianceReport is the Compliance Checker's report
type ComplianceReport struct {
	OverallStatus           ComplianceStatus  `json:"overall_status"`
	ChecksPerformed         []ComplianceCheck `json:"checks_performed"`
	Violations              []string          `json:"violations,omitempty"`
	Warnings                []string          `json:"warnings,omitempty"`
	RequiredDisclosures     []string          `json:"required_disclosures,omitempty"`
	SuitabilityPass         bool              `json:"suitability_pass"`
	ConcentrationLimitsPass bool              `json:"concentration_limits_pass"`
	Notes                   string            `json:"notes,omitempty"`
	Degraded                bool              `json:"degraded,omitempty"`
}

// HoldingReturn is a ranked holding-level return entry
type HoldingReturn struct {
	Ticker    string  `json:"ticker"`
	ReturnPct float64 `json:"return_pct"`
}

// PerformanceReport is the Performance Analyzer's report
type PerformanceReport struct {
	TotalReturnPct     float64            `json:"total_return_pct"`
	BenchmarkReturnPct float64            `json:"benchmark_return_pct"`
	ExcessReturnPct    float64            `json:"excess_return_pct"`
	SharpeRatio        float64            `json:"sharpe_ratio"`
	Alpha              *float64           `json:"alpha,omitempty"`
	PeerPercentile     *float64           `json:"peer_percentile,omitempty"`
	Attribution        map[string]float64 `json:"attribution,omitempty"`
	TopPerformers      []HoldingReturn    `json:"top_performers,omitempty"`
	BottomPerformers   []HoldingReturn    `json:"bottom_performers,omitempty"`
	Concerns           []string           `json:"concerns,omitempty"`
	Degraded           bool               `json:"degraded,omitempty"`
}

// SuitabilityScore is the weighted composite of the four fit scores.
// Always derived by the scoring engine, never user-supplied.
type SuitabilityScore struct {
	OverallScore   float64         `json:"overall_score"`
	RiskFit        float64         `json:"risk_fit"`
	ComplianceFit  float64         `json:"compliance_fit"`
	PerformanceFit float64         `json:"performance_fit"`
	TimeHorizonFit float64         `json:"time_horizon_fit"`
	Band           SuitabilityBand `json:"band"`
	Explanation    string          `json:"explanation"`
}

// Recommendation is one rule-engine output item, traceable to a named rule.
type Recommendation struct {
	Rule           string `json:"rule"`
	Category       string `json:"category"`
	Message        string `json:"message"`
	ActionRequired bool   `json:"action_required"`
}

// PortfolioRecommendations is the terminal artifact of one pipeline run.
// Immutable after creation.
type PortfolioRecommendations struct {
	RunID                string            `json:"run_id"`
	PortfolioID          string            `json:"portfolio_id"`
	ClientID             string            `json:"client_id"`
	AnalyzedAt           time.Time         `json:"analyzed_at"`
	Risk                 RiskAnalysis      `json:"risk"`
	Compliance           ComplianceReport  `json:"compliance"`
	Performance          PerformanceReport `json:"performance"`
	Score                SuitabilityScore  `json:"score"`
	Recommendations      []Recommendation  `json:"recommendations"`
	ActionItems          []Recommendation  `json:"action_items,omitempty"`
	NextReviewDate       *time.Time        `json:"next_review_date,omitempty"`
	ExecutiveSummary     string            `json:"executive_summary"`
	DegradedAnalyzers    []string          `json:"degraded_analyzers,omitempty"`
	ExecutionTimeSeconds float64           `json:"execution_time_seconds"`
}

// ComparisonResult ranks pipeline outputs across candidate portfolios
type ComparisonResult struct {
	ClientID             string                     `json:"client_id"`
	BestFitPortfolioID   string                     `json:"best_fit_portfolio_id"`
	Ranked               []PortfolioRecommendations `json:"ranked"`
	Failures             map[string]string          `json:"failures,omitempty"`
	ExecutionTimeSeconds float64                    `json:"execution_time_seconds"`
}

// EquityDeepDiveRequest carries the explicit handoff context from a prior run
type EquityDeepDiveRequest struct {
	RunID         string        `json:"run_id"`
	Portfolio     Portfolio     `json:"portfolio"`
	Profile       ClientProfile `json:"profile"`
	FocusAreas    []string      `json:"focus_areas,omitempty"`
	Questions     []string      `json:"questions,omitempty"`
	PriorScore    *float64      `json:"prior_score,omitempty"`
	PriorConcerns []string      `json:"prior_concerns,omitempty"`
}

// SectorAnalysis is one per-sector finding inside a deep-dive report
type SectorAnalysis struct {
	Sector    string  `json:"sector"`
	WeightPct float64 `json:"weight_pct"`
	Momentum  float64 `json:"momentum"`
	RSI       float64 `json:"rsi"`
	Narrative string  `json:"narrative"`
}

// EquityDeepDiveReport is the result of a handoff session turn
type EquityDeepDiveReport struct {
	SessionID        string             `json:"session_id"`
	RunID            string             `json:"run_id"`
	Sectors          []SectorAnalysis   `json:"sectors"`
	ValuationMetrics map[string]float64 `json:"valuation_metrics"`
	GrowthWeightPct  float64            `json:"growth_weight_pct"`
	ValueWeightPct   float64            `json:"value_weight_pct"`
	Recommendations  []string           `json:"recommendations,omitempty"`
	Narrative        string             `json:"narrative"`
	Answers          map[string]string  `json:"answers,omitempty"`
	GeneratedAt      time.Time          `json:"generated_at"`
}
