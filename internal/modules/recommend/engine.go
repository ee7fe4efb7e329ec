// Package recommend turns the combined analysis results into client-facing
// recommendations via a declarative rule table. No scoring happens here; the
// engine only reads what the analyzers and scorer already produced.
package recommend

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clearfolio/suitability/internal/domain"
)

// Engine evaluates the rule table against one run's combined results.
type Engine struct {
	rules []rule
	log   zerolog.Logger
}

// NewEngine creates a recommendation engine with the standard rule table.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		rules: ruleTable,
		log:   log.With().Str("component", "recommendation_engine").Logger(),
	}
}

// Recommend evaluates every rule in table order. Output is deterministic for
// identical inputs, and never empty: when no rule fires, the maintain
// fallback does.
func (e *Engine) Recommend(in Inputs) (recommendations, actionItems []domain.Recommendation) {
	for _, r := range e.rules {
		if !r.when(in) {
			continue
		}
		rec := domain.Recommendation{
			Rule:           r.name,
			Category:       r.category,
			Message:        r.message(in),
			ActionRequired: r.actionRequired,
		}
		recommendations = append(recommendations, rec)
		if r.actionRequired {
			actionItems = append(actionItems, rec)
		}
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations, domain.Recommendation{
			Rule:     maintainRule.name,
			Category: maintainRule.category,
			Message:  maintainRule.message(in),
		})
	}

	e.log.Debug().
		Int("recommendations", len(recommendations)).
		Int("action_items", len(actionItems)).
		Msg("Recommendation rules evaluated")

	return recommendations, actionItems
}

// Summarize builds the executive summary paragraph for the final artifact.
func Summarize(in Inputs, recommendations []domain.Recommendation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Portfolio %s for client %s scores %.1f/100 (%s). ",
		in.Portfolio.PortfolioID, in.Profile.ClientID,
		in.Score.OverallScore, bandPhrase(in.Score.Band))
	fmt.Fprintf(&b, "Risk is rated %s with %.1f%% annualized volatility; compliance status is %s",
		in.Risk.RiskRating, in.Risk.VolatilityPct, in.Compliance.OverallStatus)
	if len(in.Compliance.Violations) > 0 {
		fmt.Fprintf(&b, " with %d violation(s)", len(in.Compliance.Violations))
	}
	b.WriteString(". ")

	if !in.Performance.Degraded {
		fmt.Fprintf(&b, "The portfolio returned %.1f%% against a benchmark return of %.1f%%. ",
			in.Performance.TotalReturnPct, in.Performance.BenchmarkReturnPct)
	}

	actionable := 0
	for _, r := range recommendations {
		if r.ActionRequired {
			actionable++
		}
	}
	if actionable > 0 {
		fmt.Fprintf(&b, "%d of %d recommendation(s) require action.", actionable, len(recommendations))
	} else {
		fmt.Fprintf(&b, "%d recommendation(s) were produced; none require immediate action.", len(recommendations))
	}

	return b.String()
}

func bandPhrase(band domain.SuitabilityBand) string {
	switch band {
	case domain.BandHighlySuitable:
		return "highly suitable"
	case domain.BandSuitable:
		return "suitable"
	case domain.BandMarginalFit:
		return "a marginal fit"
	default:
		return "not suitable"
	}
}
