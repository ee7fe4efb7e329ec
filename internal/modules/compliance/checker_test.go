package compliance

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearfolio/suitability/internal/domain"
	suitabilitytesting "github.com/clearfolio/suitability/internal/testing"
)

func runCheck(t *testing.T, profile *domain.ClientProfile, portfolio *domain.Portfolio) *domain.ComplianceReport {
	t.Helper()
	require.NoError(t, portfolio.Validate())

	checker := NewChecker(zerolog.Nop())
	report, err := checker.Check(context.Background(), profile, portfolio)
	require.NoError(t, err)
	return report
}

// TestCleanPortfolioPasses verifies a balanced portfolio for a moderate
// long-horizon client passes with the sub-flags intact.
func TestCleanPortfolioPasses(t *testing.T) {
	report := runCheck(t, suitabilitytesting.ModerateProfile(), suitabilitytesting.DiversifiedPortfolio("CL-1001"))

	assert.Equal(t, domain.CompliancePass, report.OverallStatus)
	assert.Empty(t, report.Violations)
	assert.True(t, report.SuitabilityPass)
	assert.True(t, report.ConcentrationLimitsPass)
	assert.Len(t, report.ChecksPerformed, 5)
}

// TestStatusFailIffViolations exercises the status derivation rule from both
// sides: violations force FAIL, warnings alone only force REVIEW.
func TestStatusFailIffViolations(t *testing.T) {
	// Concentrated portfolio: single position way above the limit.
	report := runCheck(t, suitabilitytesting.ModerateProfile(), suitabilitytesting.ConcentratedPortfolio("CL-1001"))
	assert.Equal(t, domain.ComplianceFail, report.OverallStatus)
	assert.NotEmpty(t, report.Violations)
	assert.False(t, report.ConcentrationLimitsPass)

	// Liquidity shortfall alone is a warning, never a violation.
	profile := suitabilitytesting.ModerateProfile()
	profile.LiquidityNeeds = 1_000_000
	portfolio := suitabilitytesting.DiversifiedPortfolio(profile.ClientID)
	report = runCheck(t, profile, portfolio)
	assert.Equal(t, domain.ComplianceReview, report.OverallStatus)
	assert.Empty(t, report.Violations)
	assert.NotEmpty(t, report.Warnings)
}

// TestConservativeEquityCeiling verifies a heavy equity book violates the
// conservative tolerance and flips SuitabilityPass.
func TestConservativeEquityCeiling(t *testing.T) {
	profile := suitabilitytesting.ConservativeProfile()
	portfolio := suitabilitytesting.DiversifiedPortfolio(profile.ClientID)

	report := runCheck(t, profile, portfolio)

	assert.Equal(t, domain.ComplianceFail, report.OverallStatus)
	assert.False(t, report.SuitabilityPass)
}

// TestDisclosuresAccumulateRegardlessOfOutcome verifies fee and
// concentration disclosures appear even on failing portfolios.
func TestDisclosuresAccumulateRegardlessOfOutcome(t *testing.T) {
	diversified := runCheck(t, suitabilitytesting.ModerateProfile(), suitabilitytesting.DiversifiedPortfolio("CL-1001"))

	feeDisclosed := false
	for _, d := range diversified.RequiredDisclosures {
		if strings.HasPrefix(d, "fee disclosure") {
			feeDisclosed = true
		}
	}
	assert.True(t, feeDisclosed, "alternatives holding must trigger a fee disclosure: %v", diversified.RequiredDisclosures)

	concentrated := runCheck(t, suitabilitytesting.ModerateProfile(), suitabilitytesting.ConcentratedPortfolio("CL-1001"))
	assert.NotEmpty(t, concentrated.RequiredDisclosures)
}

// TestAggressiveAllCashWarning flags an all-cash book against an aggressive
// long-horizon mandate.
func TestAggressiveAllCashWarning(t *testing.T) {
	profile := suitabilitytesting.ModerateProfile()
	profile.RiskTolerance = domain.ToleranceAggressive
	profile.TimeHorizonYears = 20

	portfolio := suitabilitytesting.ConcentratedPortfolio(profile.ClientID)
	portfolio.Holdings = []domain.Holding{
		{Ticker: "CASH", Shares: 100000, Price: 1, AssetClass: domain.AssetClassCash},
	}
	portfolio.TotalValue = 100000

	report := runCheck(t, profile, portfolio)
	assert.NotEmpty(t, report.Warnings)
}

// TestDegradedReport verifies the placeholder is REVIEW, not FAIL, with the
// suitability sub-flag forced false.
func TestDegradedReport(t *testing.T) {
	report := DegradedReport("checker panicked")

	assert.Equal(t, domain.ComplianceReview, report.OverallStatus)
	assert.True(t, report.Degraded)
	assert.False(t, report.SuitabilityPass)
	assert.Empty(t, report.Violations)
	require.NotEmpty(t, report.Warnings)
	assert.Contains(t, report.Warnings[0], "checker panicked")
}
