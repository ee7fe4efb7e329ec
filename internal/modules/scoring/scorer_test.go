package scoring

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearfolio/suitability/internal/domain"
)

func testProfile(tolerance domain.RiskTolerance, horizonYears int) *domain.ClientProfile {
	return &domain.ClientProfile{
		ClientID:         "CL-1",
		Age:              45,
		RiskTolerance:    tolerance,
		InvestmentGoals:  []string{"growth"},
		TimeHorizonYears: horizonYears,
	}
}

func cleanCompliance() *domain.ComplianceReport {
	return &domain.ComplianceReport{
		OverallStatus:           domain.CompliancePass,
		SuitabilityPass:         true,
		ConcentrationLimitsPass: true,
	}
}

// TestWeightsSumToOne verifies the weighting contract the scorer enforces at
// construction.
func TestWeightsSumToOne(t *testing.T) {
	sum := WeightRiskFit + WeightComplianceFit + WeightPerformanceFit + WeightTimeHorizonFit
	require.InDelta(t, 1.0, sum, 1e-12)

	_, err := NewScorer(zerolog.Nop())
	require.NoError(t, err)
}

// TestCombineWeightedAverage checks the exact weighted combination on known
// component fits: 85, 90, 78, 77 must combine to 83.8.
func TestCombineWeightedAverage(t *testing.T) {
	overall := Combine(85, 90, 78, 77)
	assert.InDelta(t, 83.8, overall, 1e-9)
	assert.Equal(t, domain.BandHighlySuitable, BandFor(overall))
}

// TestBandBoundaries checks the interpretation band cutoffs, including the
// inclusive lower edges.
func TestBandBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  domain.SuitabilityBand
	}{
		{100, domain.BandHighlySuitable},
		{80, domain.BandHighlySuitable},
		{79.99, domain.BandSuitable},
		{60, domain.BandSuitable},
		{59.99, domain.BandMarginalFit},
		{40, domain.BandMarginalFit},
		{39.99, domain.BandNotSuitable},
		{0, domain.BandNotSuitable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BandFor(tt.score), "score %v", tt.score)
	}
}

// TestScoreBounds verifies every component fit and the overall score stay in
// [0,100] even for extreme inputs.
func TestScoreBounds(t *testing.T) {
	scorer, err := NewScorer(zerolog.Nop())
	require.NoError(t, err)

	risk := &domain.RiskAnalysis{
		VolatilityPct:      90,
		ConcentrationScore: 100,
		RiskRating:         domain.RiskRatingVeryHigh,
	}
	compliance := &domain.ComplianceReport{
		OverallStatus:   domain.ComplianceFail,
		Violations:      []string{"v1", "v2", "v3", "v4", "v5"},
		Warnings:        []string{"w1", "w2", "w3"},
		SuitabilityPass: false,
	}
	performance := &domain.PerformanceReport{
		TotalReturnPct:     -80,
		BenchmarkReturnPct: 10,
		ExcessReturnPct:    -90,
		SharpeRatio:        -2,
	}

	score, err := scorer.Score(risk, compliance, performance, testProfile(domain.ToleranceConservative, 2))
	require.NoError(t, err)

	for name, fit := range map[string]float64{
		"risk":        score.RiskFit,
		"compliance":  score.ComplianceFit,
		"performance": score.PerformanceFit,
		"horizon":     score.TimeHorizonFit,
		"overall":     score.OverallScore,
	} {
		assert.GreaterOrEqual(t, fit, 0.0, name)
		assert.LessOrEqual(t, fit, 100.0, name)
	}
	assert.Equal(t, domain.BandNotSuitable, score.Band)
}

// TestComplianceFailDragsBelowSuitable forces a FAIL with two violations on
// an otherwise strong portfolio and verifies the overall score leaves the
// Suitable band.
func TestComplianceFailDragsBelowSuitable(t *testing.T) {
	failed := &domain.ComplianceReport{
		OverallStatus:   domain.ComplianceFail,
		Violations:      []string{"risky asset exposure too high", "single position above limit"},
		SuitabilityPass: false,
	}

	complianceFit := ComplianceFit(failed)
	assert.InDelta(t, 15.0, complianceFit, 1e-9)

	// Strong components everywhere else.
	overall := Combine(85, complianceFit, 78, 77)
	assert.Less(t, overall, BandSuitableMin)

	// The clean counterpart stays highly suitable.
	assert.GreaterOrEqual(t, Combine(85, ComplianceFit(cleanCompliance()), 78, 77), BandHighlySuitableMin)
}

func TestComplianceFitPenalties(t *testing.T) {
	assert.Equal(t, 100.0, ComplianceFit(cleanCompliance()))

	review := &domain.ComplianceReport{
		OverallStatus:   domain.ComplianceReview,
		Warnings:        []string{"w1", "w2"},
		SuitabilityPass: true,
	}
	assert.InDelta(t, 80.0, ComplianceFit(review), 1e-9)

	floor := &domain.ComplianceReport{
		OverallStatus: domain.ComplianceFail,
		Violations:    []string{"v1", "v2", "v3", "v4"},
	}
	assert.Equal(t, 0.0, ComplianceFit(floor))
}

func TestRiskFitGapAndConcentration(t *testing.T) {
	profile := testProfile(domain.ToleranceModerate, 15)

	aligned := &domain.RiskAnalysis{RiskRating: domain.RiskRatingMedium, ConcentrationScore: 35}
	assert.Equal(t, 100.0, RiskFit(aligned, profile))

	overRisked := &domain.RiskAnalysis{RiskRating: domain.RiskRatingVeryHigh, ConcentrationScore: 35}
	assert.InDelta(t, 50.0, RiskFit(overRisked, profile), 1e-9)

	concentrated := &domain.RiskAnalysis{RiskRating: domain.RiskRatingMedium, ConcentrationScore: 80}
	assert.InDelta(t, 90.0, RiskFit(concentrated, profile), 1e-9)
}

func TestPerformanceFitExcessAndSharpe(t *testing.T) {
	strong := &domain.PerformanceReport{ExcessReturnPct: 2.3, SharpeRatio: 0.7}
	assert.InDelta(t, 78.4, PerformanceFit(strong), 1e-9)

	// The excess contribution is capped in both directions.
	capped := &domain.PerformanceReport{ExcessReturnPct: 50, SharpeRatio: 1.5}
	assert.Equal(t, 100.0, PerformanceFit(capped))

	losing := &domain.PerformanceReport{ExcessReturnPct: -50, SharpeRatio: -1}
	assert.InDelta(t, 20.0, PerformanceFit(losing), 1e-9)
}

func TestTimeHorizonFit(t *testing.T) {
	longHorizon := testProfile(domain.ToleranceAggressive, 20)
	shortHorizon := testProfile(domain.ToleranceConservative, 2)

	aggressive := &domain.RiskAnalysis{RiskRating: domain.RiskRatingVeryHigh}
	defensive := &domain.RiskAnalysis{RiskRating: domain.RiskRatingLow}

	// A hot portfolio fits a long horizon better than a short one.
	assert.Greater(t, TimeHorizonFit(longHorizon, aggressive), TimeHorizonFit(shortHorizon, aggressive))
	// A defensive portfolio is fine for a short horizon.
	assert.Equal(t, 100.0, TimeHorizonFit(shortHorizon, defensive))
	// But drags on a long horizon.
	assert.Less(t, TimeHorizonFit(longHorizon, defensive), 100.0)
}

// TestScoreDeterministic verifies identical inputs produce identical scores
// and explanations across invocations.
func TestScoreDeterministic(t *testing.T) {
	scorer, err := NewScorer(zerolog.Nop())
	require.NoError(t, err)

	risk := &domain.RiskAnalysis{VolatilityPct: 15.5, ConcentrationScore: 35, RiskRating: domain.RiskRatingMedium}
	performance := &domain.PerformanceReport{ExcessReturnPct: 2.3, SharpeRatio: 0.7}
	profile := testProfile(domain.ToleranceModerate, 18)

	first, err := scorer.Score(risk, cleanCompliance(), performance, profile)
	require.NoError(t, err)
	second, err := scorer.Score(risk, cleanCompliance(), performance, profile)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.False(t, math.IsNaN(first.OverallScore))
	assert.NotEmpty(t, first.Explanation)
}
