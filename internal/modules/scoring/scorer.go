// Package scoring converts the three specialist reports plus time-horizon
// fit into one weighted 0-100 suitability score with an interpretation band.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clearfolio/suitability/internal/domain"
)

// =============================================================================
// SUITABILITY WEIGHTS
// =============================================================================
// Compliance is weighted highest because a regulatory failure is the highest
// severity outcome; risk and performance carry equal weight; horizon fit is
// the smallest component. The four weights must sum to 1.0 - validated at
// scorer construction and enforced by tests.

const (
	WeightRiskFit        = 0.25
	WeightComplianceFit  = 0.35
	WeightPerformanceFit = 0.25
	WeightTimeHorizonFit = 0.15

	// Risk fit coefficients
	RatingGapPenalty          = 25.0 // Per level between portfolio rating and tolerance target
	ConcentrationPenaltyStart = 60.0 // Concentration above this erodes risk fit
	ConcentrationPenaltyRate  = 0.5

	// Compliance fit coefficients
	ViolationPenalty       = 35.0
	WarningPenalty         = 10.0
	SuitabilityFailPenalty = 15.0

	// Performance fit coefficients
	PerformanceBaseline   = 50.0
	ExcessReturnRate      = 8.0  // Points per percentage point of excess return
	ExcessReturnCap       = 30.0 // Cap on the excess-return contribution (either sign)
	SharpeBonusStrong     = 20.0 // Sharpe >= 1.0
	SharpeBonusModerate   = 10.0 // Sharpe >= 0.5
	SharpeStrongThreshold = 1.0
	SharpeModerateThresh  = 0.5

	// Horizon fit coefficients
	HorizonBandPenaltyRate = 200.0 // Points per unit of weight outside the band

	// Interpretation band cutoffs
	BandHighlySuitableMin = 80.0
	BandSuitableMin       = 60.0
	BandMarginalFitMin    = 40.0
)

// toleranceTargetIndex maps client tolerance to the risk rating level it
// naturally supports (0=Low .. 3=Very High).
var toleranceTargetIndex = map[domain.RiskTolerance]int{
	domain.ToleranceConservative: 0,
	domain.ToleranceModerate:     1,
	domain.ToleranceAggressive:   2,
}

// horizonBand is the equity+alternatives weight range considered a natural
// fit for a horizon bucket.
type horizonBand struct {
	min, max float64
}

// Scorer is the pure suitability scoring engine. All configuration is
// read-only after construction.
type Scorer struct {
	log zerolog.Logger
}

// NewScorer creates the scoring engine, validating the weight contract.
// A weight sum away from 1.0 is a ScoringInconsistency and fatal.
func NewScorer(log zerolog.Logger) (*Scorer, error) {
	sum := WeightRiskFit + WeightComplianceFit + WeightPerformanceFit + WeightTimeHorizonFit
	if math.Abs(sum-1.0) > 1e-12 {
		return nil, &domain.ScoringInconsistency{
			Detail: fmt.Sprintf("suitability weights sum to %v, want 1.0", sum),
		}
	}
	return &Scorer{
		log: log.With().Str("component", "suitability_scorer").Logger(),
	}, nil
}

// Score reduces the three specialist reports plus the client profile to one
// SuitabilityScore. Pure function of its inputs; recomputed on every run.
func (s *Scorer) Score(
	risk *domain.RiskAnalysis,
	compliance *domain.ComplianceReport,
	performance *domain.PerformanceReport,
	profile *domain.ClientProfile,
) (*domain.SuitabilityScore, error) {
	riskFit := RiskFit(risk, profile)
	complianceFit := ComplianceFit(compliance)
	performanceFit := PerformanceFit(performance)
	horizonFit := TimeHorizonFit(profile, risk)

	for name, fit := range map[string]float64{
		"risk_fit":         riskFit,
		"compliance_fit":   complianceFit,
		"performance_fit":  performanceFit,
		"time_horizon_fit": horizonFit,
	} {
		if fit < 0 || fit > 100 || math.IsNaN(fit) {
			return nil, &domain.ScoringInconsistency{
				Detail: fmt.Sprintf("%s is %v, outside [0,100]", name, fit),
			}
		}
	}

	overall := Combine(riskFit, complianceFit, performanceFit, horizonFit)

	score := &domain.SuitabilityScore{
		OverallScore:   overall,
		RiskFit:        riskFit,
		ComplianceFit:  complianceFit,
		PerformanceFit: performanceFit,
		TimeHorizonFit: horizonFit,
		Band:           BandFor(overall),
	}
	score.Explanation = explain(score)

	s.log.Debug().
		Float64("overall", overall).
		Str("band", string(score.Band)).
		Float64("risk_fit", riskFit).
		Float64("compliance_fit", complianceFit).
		Float64("performance_fit", performanceFit).
		Float64("time_horizon_fit", horizonFit).
		Msg("Suitability score computed")

	return score, nil
}

// Combine applies the fixed weighting scheme to four fit scores.
func Combine(riskFit, complianceFit, performanceFit, horizonFit float64) float64 {
	return riskFit*WeightRiskFit +
		complianceFit*WeightComplianceFit +
		performanceFit*WeightPerformanceFit +
		horizonFit*WeightTimeHorizonFit
}

// RiskFit decreases as the gap between portfolio risk rating and client
// tolerance widens, with an additional penalty for high concentration.
func RiskFit(risk *domain.RiskAnalysis, profile *domain.ClientProfile) float64 {
	target := toleranceTargetIndex[profile.RiskTolerance]
	gap := risk.RiskRating.Index() - target
	if gap < 0 {
		// An under-risked portfolio is a milder mismatch than an
		// over-risked one.
		gap = -gap / 2
	}

	fit := 100.0 - float64(gap)*RatingGapPenalty
	if risk.ConcentrationScore > ConcentrationPenaltyStart {
		fit -= (risk.ConcentrationScore - ConcentrationPenaltyStart) * ConcentrationPenaltyRate
	}
	return clamp(fit)
}

// ComplianceFit is 100 on a clean PASS, with fixed penalties per violation
// and warning, and an extra penalty when the suitability sub-flag failed.
func ComplianceFit(compliance *domain.ComplianceReport) float64 {
	fit := 100.0
	fit -= float64(len(compliance.Violations)) * ViolationPenalty
	fit -= float64(len(compliance.Warnings)) * WarningPenalty
	if !compliance.SuitabilityPass {
		fit -= SuitabilityFailPenalty
	}
	return clamp(fit)
}

// PerformanceFit rewards positive excess return and a Sharpe ratio above the
// documented thresholds.
func PerformanceFit(performance *domain.PerformanceReport) float64 {
	excess := performance.ExcessReturnPct * ExcessReturnRate
	if excess > ExcessReturnCap {
		excess = ExcessReturnCap
	}
	if excess < -ExcessReturnCap {
		excess = -ExcessReturnCap
	}

	fit := PerformanceBaseline + excess
	switch {
	case performance.SharpeRatio >= SharpeStrongThreshold:
		fit += SharpeBonusStrong
	case performance.SharpeRatio >= SharpeModerateThresh:
		fit += SharpeBonusModerate
	}
	return clamp(fit)
}

// TimeHorizonFit compares the portfolio's risk posture against the band
// appropriate for the client's stated horizon. Risk rating stands in for
// duration characteristics: a Very High rated portfolio held against a short
// horizon scores worst.
func TimeHorizonFit(profile *domain.ClientProfile, risk *domain.RiskAnalysis) float64 {
	band := horizonBandFor(profile.TimeHorizonYears)

	// Map the rating onto an implied risky-asset weight.
	implied := []float64{0.15, 0.45, 0.75, 0.95}[risk.RiskRating.Index()]

	fit := 100.0
	if implied > band.max {
		fit -= (implied - band.max) * HorizonBandPenaltyRate
	} else if implied < band.min {
		fit -= (band.min - implied) * HorizonBandPenaltyRate
	}
	return clamp(fit)
}

func horizonBandFor(years int) horizonBand {
	switch {
	case years >= 10:
		return horizonBand{min: 0.40, max: 0.90}
	case years >= 4:
		return horizonBand{min: 0.20, max: 0.70}
	default:
		return horizonBand{min: 0.0, max: 0.40}
	}
}

// BandFor maps an overall score to its interpretation band.
func BandFor(score float64) domain.SuitabilityBand {
	switch {
	case score >= BandHighlySuitableMin:
		return domain.BandHighlySuitable
	case score >= BandSuitableMin:
		return domain.BandSuitable
	case score >= BandMarginalFitMin:
		return domain.BandMarginalFit
	default:
		return domain.BandNotSuitable
	}
}

// explain names the sub-scores that pulled the overall score down most,
// deterministically.
func explain(score *domain.SuitabilityScore) string {
	type component struct {
		name string
		fit  float64
	}
	components := []component{
		{"risk fit", score.RiskFit},
		{"compliance fit", score.ComplianceFit},
		{"performance fit", score.PerformanceFit},
		{"time-horizon fit", score.TimeHorizonFit},
	}
	sort.SliceStable(components, func(i, j int) bool { return components[i].fit < components[j].fit })

	var weakest []string
	for _, c := range components[:2] {
		weakest = append(weakest, fmt.Sprintf("%s %.0f", c.name, c.fit))
	}

	return fmt.Sprintf("overall %.1f (%s); weakest components: %s",
		score.OverallScore, bandLabel(score.Band), strings.Join(weakest, ", "))
}

func bandLabel(band domain.SuitabilityBand) string {
	switch band {
	case domain.BandHighlySuitable:
		return "Highly Suitable"
	case domain.BandSuitable:
		return "Suitable"
	case domain.BandMarginalFit:
		return "Marginal Fit"
	default:
		return "Not Suitable"
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
