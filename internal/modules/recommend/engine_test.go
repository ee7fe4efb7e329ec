package recommend

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearfolio/suitability/internal/domain"
	suitabilitytesting "github.com/clearfolio/suitability/internal/testing"
)

func cleanInputs() Inputs {
	profile := suitabilitytesting.ModerateProfile()
	portfolio := suitabilitytesting.DiversifiedPortfolio(profile.ClientID)
	if err := portfolio.Validate(); err != nil {
		panic(err)
	}
	return Inputs{
		Profile:   profile,
		Portfolio: portfolio,
		Risk: &domain.RiskAnalysis{
			RiskRating:         domain.RiskRatingMedium,
			VolatilityPct:      14.2,
			ConcentrationScore: 30,
		},
		Compliance: &domain.ComplianceReport{
			OverallStatus:           domain.CompliancePass,
			SuitabilityPass:         true,
			ConcentrationLimitsPass: true,
		},
		Performance: &domain.PerformanceReport{
			TotalReturnPct:     9.1,
			BenchmarkReturnPct: 8.0,
			ExcessReturnPct:    1.1,
			SharpeRatio:        0.8,
		},
		Score: &domain.SuitabilityScore{
			OverallScore: 86.5,
			Band:         domain.BandHighlySuitable,
		},
	}
}

// TestRecommendNeverEmpty verifies the maintain fallback fires for a clean
// portfolio and carries no action items.
func TestRecommendNeverEmpty(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	recommendations, actionItems := engine.Recommend(cleanInputs())

	require.Len(t, recommendations, 1)
	assert.Equal(t, "maintain-allocation", recommendations[0].Rule)
	assert.Equal(t, CategoryClient, recommendations[0].Category)
	assert.False(t, recommendations[0].ActionRequired)
	assert.Empty(t, actionItems)
}

// TestActionItemsAreSubset verifies action items are exactly the
// action-required recommendations, in the same order.
func TestActionItemsAreSubset(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	in := cleanInputs()
	in.Compliance = &domain.ComplianceReport{
		OverallStatus: domain.ComplianceFail,
		Violations:    []string{"single position above limit"},
	}
	in.Risk.ConcentrationScore = 85
	in.Risk.RiskRating = domain.RiskRatingVeryHigh

	recommendations, actionItems := engine.Recommend(in)

	require.NotEmpty(t, actionItems)
	byRule := map[string]domain.Recommendation{}
	for _, rec := range recommendations {
		byRule[rec.Rule] = rec
	}
	for _, item := range actionItems {
		assert.True(t, item.ActionRequired)
		assert.Equal(t, byRule[item.Rule], item)
	}

	// Compliance remediation must fire before the risk rules.
	assert.Equal(t, "compliance-violation-remediation", recommendations[0].Rule)
}

// TestRiskAboveToleranceThresholds checks the tolerance ceiling on both
// sides of the boundary.
func TestRiskAboveToleranceThresholds(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	in := cleanInputs()
	in.Risk.RiskRating = domain.RiskRatingVeryHigh
	recommendations, actionItems := engine.Recommend(in)
	assert.True(t, hasRule(recommendations, "risk-above-tolerance"))
	assert.True(t, hasRule(actionItems, "risk-above-tolerance"))

	// One level above the tolerance target is tolerated without an action item.
	in.Risk.RiskRating = domain.RiskRatingHigh
	recommendations, _ = engine.Recommend(in)
	assert.False(t, hasRule(recommendations, "risk-above-tolerance"))

	in.Profile.RiskTolerance = domain.ToleranceAggressive
	in.Risk.RiskRating = domain.RiskRatingVeryHigh
	recommendations, _ = engine.Recommend(in)
	assert.False(t, hasRule(recommendations, "risk-above-tolerance"))
}

// TestDegradedRiskForcesRerun verifies a degraded risk placeholder always
// produces an action item.
func TestDegradedRiskForcesRerun(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	in := cleanInputs()
	in.Risk = &domain.RiskAnalysis{
		RiskRating:         domain.RiskRatingVeryHigh,
		ConcentrationScore: 100,
		Degraded:           true,
	}

	_, actionItems := engine.Recommend(in)
	assert.True(t, hasRule(actionItems, "degraded-risk-rerun"))
}

// TestHorizonGlidepath fires only for short horizons with heavy risky
// exposure.
func TestHorizonGlidepath(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	in := cleanInputs()
	in.Profile.TimeHorizonYears = 2
	recommendations, _ := engine.Recommend(in)
	assert.True(t, hasRule(recommendations, "horizon-glidepath"))

	in.Profile.TimeHorizonYears = 18
	recommendations, _ = engine.Recommend(in)
	assert.False(t, hasRule(recommendations, "horizon-glidepath"))
}

// TestRecommendDeterministic verifies identical inputs produce identical
// output slices.
func TestRecommendDeterministic(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	in := cleanInputs()
	in.Compliance.OverallStatus = domain.ComplianceReview
	in.Compliance.Warnings = []string{"w1"}

	first, firstActions := engine.Recommend(in)
	second, secondActions := engine.Recommend(in)

	assert.Equal(t, first, second)
	assert.Equal(t, firstActions, secondActions)
}

// TestSummarize spot-checks the executive summary wiring.
func TestSummarize(t *testing.T) {
	in := cleanInputs()
	engine := NewEngine(zerolog.Nop())
	recommendations, _ := engine.Recommend(in)

	summary := Summarize(in, recommendations)

	assert.Contains(t, summary, "PF-DIV-1")
	assert.Contains(t, summary, "CL-1001")
	assert.Contains(t, summary, "86.5")
	assert.Contains(t, summary, "highly suitable")
	assert.Contains(t, summary, "none require immediate action")
}

func hasRule(recs []domain.Recommendation, name string) bool {
	for _, r := range recs {
		if r.Rule == name {
			return true
		}
	}
	return false
}
