package domain

import (
	"fmt"
	"strings"
)

// ValidationError indicates a malformed ClientProfile or Portfolio.
// Rejected before the pipeline starts; never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for a named field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// AnalyzerFailure indicates one analyzer raised or timed out.
// Recovered by the coordinator via a degraded placeholder when isolated.
type AnalyzerFailure struct {
	Analyzer string
	Cause    error
	TimedOut bool
}

func (e *AnalyzerFailure) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("analyzer %s timed out", e.Analyzer)
	}
	return fmt.Sprintf("analyzer %s failed: %v", e.Analyzer, e.Cause)
}

func (e *AnalyzerFailure) Unwrap() error {
	return e.Cause
}

// PipelineFailure indicates two or more analyzers failed in one run.
// No PortfolioRecommendations is produced for the run.
type PipelineFailure struct {
	Failures []*AnalyzerFailure
}

func (e *PipelineFailure) Error() string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.Analyzer)
	}
	return fmt.Sprintf("pipeline failed: %d analyzers failed (%s); re-running later may help if the data provider outage is transient",
		len(e.Failures), strings.Join(names, ", "))
}

// ScoringInconsistency indicates the scoring formula itself is broken
// (weights not summing to 1.0, or a fit score outside [0,100]).
// This is a programming-contract violation and is always fatal.
type ScoringInconsistency struct {
	Detail string
}

func (e *ScoringInconsistency) Error() string {
	return fmt.Sprintf("scoring inconsistency: %s", e.Detail)
}
