// Package compliance evaluates regulatory and suitability rules against a
// client profile and portfolio. Pure computation, no external I/O.
package compliance

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/clearfolio/suitability/internal/domain"
)

const (
	// MaxSinglePositionWeight is the concentration limit per holding.
	MaxSinglePositionWeight = 0.25

	// concentrationDisclosureWeight triggers a disclosure (not a violation).
	concentrationDisclosureWeight = 0.20

	// Equity ceilings by tolerance; exceeding one is a suitability violation
	// when breached by a wide margin, a warning otherwise.
	conservativeEquityCeiling = 0.40
	moderateEquityCeiling     = 0.75

	// shortHorizonYears marks horizons where heavy equity is inadequate.
	shortHorizonYears = 3

	// liquidityCashMargin: cash holdings should cover stated liquidity needs.
	liquidityCashMargin = 1.0
)

// checkFunc evaluates one named rule. It reports a violation or warning
// (empty strings when clean) plus any disclosures it requires.
type checkFunc func(profile *domain.ClientProfile, portfolio *domain.Portfolio) checkOutcome

type checkOutcome struct {
	violation   string
	warning     string
	disclosures []string
}

type namedCheck struct {
	name string
	fn   checkFunc
}

// Checker runs the ordered compliance rule list.
type Checker struct {
	checks []namedCheck
	log    zerolog.Logger
}

// NewChecker creates a compliance checker with the standard rule set.
func NewChecker(log zerolog.Logger) *Checker {
	c := &Checker{
		log: log.With().Str("component", "compliance_checker").Logger(),
	}
	c.checks = []namedCheck{
		{"risk-tolerance alignment", c.checkRiskToleranceAlignment},
		{"concentration limits", c.checkConcentrationLimits},
		{"time-horizon adequacy", c.checkTimeHorizonAdequacy},
		{"liquidity adequacy", c.checkLiquidityAdequacy},
		{"alternatives disclosure", c.checkAlternativesDisclosure},
	}
	return c
}

// Name identifies this analyzer to the coordinator.
func (c *Checker) Name() string { return "compliance" }

// Check runs every rule in order and aggregates the report.
// Status is FAIL iff any violation exists, REVIEW iff only warnings exist.
// The two boolean sub-flags are recorded at check time, never inferred from
// the text lists afterwards.
func (c *Checker) Check(_ context.Context, profile *domain.ClientProfile, portfolio *domain.Portfolio) (*domain.ComplianceReport, error) {
	report := &domain.ComplianceReport{
		SuitabilityPass:         true,
		ConcentrationLimitsPass: true,
	}

	for _, check := range c.checks {
		outcome := check.fn(profile, portfolio)

		performed := domain.ComplianceCheck{
			Name:      check.name,
			Passed:    outcome.violation == "" && outcome.warning == "",
			Violation: outcome.violation,
			Warning:   outcome.warning,
		}
		report.ChecksPerformed = append(report.ChecksPerformed, performed)

		if outcome.violation != "" {
			report.Violations = append(report.Violations, outcome.violation)
		}
		if outcome.warning != "" {
			report.Warnings = append(report.Warnings, outcome.warning)
		}
		report.RequiredDisclosures = append(report.RequiredDisclosures, outcome.disclosures...)

		// Sub-flags consumed directly by the scoring engine.
		switch check.name {
		case "risk-tolerance alignment", "time-horizon adequacy":
			if outcome.violation != "" {
				report.SuitabilityPass = false
			}
		case "concentration limits":
			if outcome.violation != "" {
				report.ConcentrationLimitsPass = false
			}
		}
	}

	switch {
	case len(report.Violations) > 0:
		report.OverallStatus = domain.ComplianceFail
	case len(report.Warnings) > 0:
		report.OverallStatus = domain.ComplianceReview
	default:
		report.OverallStatus = domain.CompliancePass
	}

	c.log.Debug().
		Str("portfolio_id", portfolio.PortfolioID).
		Str("status", string(report.OverallStatus)).
		Int("violations", len(report.Violations)).
		Int("warnings", len(report.Warnings)).
		Msg("Compliance check complete")

	return report, nil
}

// checkRiskToleranceAlignment compares the portfolio's equity and
// alternatives exposure against the client's stated tolerance.
func (c *Checker) checkRiskToleranceAlignment(profile *domain.ClientProfile, portfolio *domain.Portfolio) checkOutcome {
	weights := portfolio.AssetClassWeights()
	risky := weights[domain.AssetClassEquity] + weights[domain.AssetClassAlternatives]

	switch profile.RiskTolerance {
	case domain.ToleranceConservative:
		if risky > conservativeEquityCeiling+0.15 {
			return checkOutcome{violation: fmt.Sprintf(
				"risky asset exposure %.0f%% is far above the %.0f%% ceiling for a conservative profile",
				risky*100, conservativeEquityCeiling*100)}
		}
		if risky > conservativeEquityCeiling {
			return checkOutcome{warning: fmt.Sprintf(
				"risky asset exposure %.0f%% exceeds the %.0f%% ceiling for a conservative profile",
				risky*100, conservativeEquityCeiling*100)}
		}
	case domain.ToleranceModerate:
		if risky > moderateEquityCeiling+0.15 {
			return checkOutcome{violation: fmt.Sprintf(
				"risky asset exposure %.0f%% is far above the %.0f%% ceiling for a moderate profile",
				risky*100, moderateEquityCeiling*100)}
		}
		if risky > moderateEquityCeiling {
			return checkOutcome{warning: fmt.Sprintf(
				"risky asset exposure %.0f%% exceeds the %.0f%% ceiling for a moderate profile",
				risky*100, moderateEquityCeiling*100)}
		}
	case domain.ToleranceAggressive:
		// No ceiling; an all-cash portfolio for an aggressive long-horizon
		// client is flagged for review instead.
		if weights[domain.AssetClassCash] > 0.80 && profile.TimeHorizonYears > 10 {
			return checkOutcome{warning: fmt.Sprintf(
				"%.0f%% cash for an aggressive profile with a %d-year horizon may not meet stated goals",
				weights[domain.AssetClassCash]*100, profile.TimeHorizonYears)}
		}
	}
	return checkOutcome{}
}

// checkConcentrationLimits enforces the per-holding weight limit and emits a
// disclosure for any position above the disclosure threshold.
func (c *Checker) checkConcentrationLimits(_ *domain.ClientProfile, portfolio *domain.Portfolio) checkOutcome {
	var outcome checkOutcome
	for _, h := range portfolio.Holdings {
		w := portfolio.Weight(h)
		if w > MaxSinglePositionWeight && outcome.violation == "" {
			outcome.violation = fmt.Sprintf(
				"%s is %.1f%% of portfolio value, above the %.0f%% single-position limit",
				h.Ticker, w*100, MaxSinglePositionWeight*100)
		}
		if w > concentrationDisclosureWeight {
			outcome.disclosures = append(outcome.disclosures, fmt.Sprintf(
				"concentration disclosure: %s exceeds %.0f%% of portfolio value",
				h.Ticker, concentrationDisclosureWeight*100))
		}
	}
	return outcome
}

// checkTimeHorizonAdequacy flags heavy equity exposure against short horizons.
func (c *Checker) checkTimeHorizonAdequacy(profile *domain.ClientProfile, portfolio *domain.Portfolio) checkOutcome {
	weights := portfolio.AssetClassWeights()
	equity := weights[domain.AssetClassEquity] + weights[domain.AssetClassAlternatives]

	if profile.TimeHorizonYears <= shortHorizonYears {
		if equity > 0.70 {
			return checkOutcome{violation: fmt.Sprintf(
				"%.0f%% in equities and alternatives is inadequate for a %d-year horizon",
				equity*100, profile.TimeHorizonYears)}
		}
		if equity > 0.50 {
			return checkOutcome{warning: fmt.Sprintf(
				"%.0f%% in equities and alternatives warrants review for a %d-year horizon",
				equity*100, profile.TimeHorizonYears)}
		}
	}
	return checkOutcome{}
}

// checkLiquidityAdequacy verifies cash holdings cover stated liquidity needs.
func (c *Checker) checkLiquidityAdequacy(profile *domain.ClientProfile, portfolio *domain.Portfolio) checkOutcome {
	if profile.LiquidityNeeds <= 0 {
		return checkOutcome{}
	}

	cash := 0.0
	for _, h := range portfolio.Holdings {
		if h.AssetClass == domain.AssetClassCash {
			cash += h.MarketValue
		}
	}

	if cash < profile.LiquidityNeeds*liquidityCashMargin {
		return checkOutcome{warning: fmt.Sprintf(
			"cash holdings of %.2f do not cover stated liquidity needs of %.2f",
			cash, profile.LiquidityNeeds)}
	}
	return checkOutcome{}
}

// checkAlternativesDisclosure always discloses fee structures when
// alternatives are held, regardless of pass or fail.
func (c *Checker) checkAlternativesDisclosure(_ *domain.ClientProfile, portfolio *domain.Portfolio) checkOutcome {
	for _, h := range portfolio.Holdings {
		if h.AssetClass == domain.AssetClassAlternatives {
			return checkOutcome{disclosures: []string{
				"fee disclosure: alternative investments carry management and performance fees that reduce net returns",
			}}
		}
	}
	return checkOutcome{}
}

// DegradedReport is the placeholder substituted when the compliance checker
// fails. Status is REVIEW, not FAIL: a missing check is uncertainty, not a
// proven violation. SuitabilityPass is forced false so scoring still takes
// the penalty.
func DegradedReport(reason string) *domain.ComplianceReport {
	return &domain.ComplianceReport{
		OverallStatus: domain.ComplianceReview,
		ChecksPerformed: []domain.ComplianceCheck{
			{Name: "degraded placeholder", Passed: false, Warning: reason},
		},
		Warnings:                []string{fmt.Sprintf("compliance checks unavailable (%s); manual review required", reason)},
		SuitabilityPass:         false,
		ConcentrationLimitsPass: false,
		Degraded:                true,
		Notes:                   "placeholder report substituted after analyzer failure",
	}
}
