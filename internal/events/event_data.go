// Package events provides the in-process event bus and the typed payloads
// published on it. Every payload is JSON-serializable so the websocket stream
// can forward events verbatim.
package events

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of event published on the bus
type EventType string

const (
	AnalysisStarted     EventType = "analysis_started"
	AnalyzerDegraded    EventType = "analyzer_degraded"
	AnalysisCompleted   EventType = "analysis_completed"
	AnalysisFailed      EventType = "analysis_failed"
	ComparisonCompleted EventType = "comparison_completed"
	ReviewDue           EventType = "review_due"
	BackupCompleted     EventType = "backup_completed"
)

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// AnalysisStartedData contains data for AnalysisStarted events
type AnalysisStartedData struct {
	RunID       string `json:"run_id"`
	PortfolioID string `json:"portfolio_id"`
	ClientID    string `json:"client_id"`
}

// EventType returns the event type for AnalysisStartedData
func (d *AnalysisStartedData) EventType() EventType {
	return AnalysisStarted
}

// AnalyzerDegradedData contains data for AnalyzerDegraded events
type AnalyzerDegradedData struct {
	RunID    string `json:"run_id"`
	Analyzer string `json:"analyzer"`
	Reason   string `json:"reason"`
	TimedOut bool   `json:"timed_out"`
}

// EventType returns the event type for AnalyzerDegradedData
func (d *AnalyzerDegradedData) EventType() EventType {
	return AnalyzerDegraded
}

// AnalysisCompletedData contains data for AnalysisCompleted events
type AnalysisCompletedData struct {
	RunID             string   `json:"run_id"`
	PortfolioID       string   `json:"portfolio_id"`
	OverallScore      float64  `json:"overall_score"`
	Band              string   `json:"band"`
	DegradedAnalyzers []string `json:"degraded_analyzers,omitempty"`
	DurationSeconds   float64  `json:"duration_seconds"`
}

// EventType returns the event type for AnalysisCompletedData
func (d *AnalysisCompletedData) EventType() EventType {
	return AnalysisCompleted
}

// AnalysisFailedData contains data for AnalysisFailed events
type AnalysisFailedData struct {
	PortfolioID string `json:"portfolio_id"`
	Error       string `json:"error"`
}

// EventType returns the event type for AnalysisFailedData
func (d *AnalysisFailedData) EventType() EventType {
	return AnalysisFailed
}

// ComparisonCompletedData contains data for ComparisonCompleted events
type ComparisonCompletedData struct {
	ClientID        string  `json:"client_id"`
	Candidates      int     `json:"candidates"`
	Failures        int     `json:"failures"`
	BestFit         string  `json:"best_fit_portfolio_id"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// EventType returns the event type for ComparisonCompletedData
func (d *ComparisonCompletedData) EventType() EventType {
	return ComparisonCompleted
}

// ReviewDueData contains data for ReviewDue events
type ReviewDueData struct {
	RunID       string    `json:"run_id"`
	PortfolioID string    `json:"portfolio_id"`
	ClientID    string    `json:"client_id"`
	DueDate     time.Time `json:"due_date"`
}

// EventType returns the event type for ReviewDueData
func (d *ReviewDueData) EventType() EventType {
	return ReviewDue
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Archive   string  `json:"archive"`
	SizeBytes int64   `json:"size_bytes"`
	Uploaded  bool    `json:"uploaded"`
	Duration  float64 `json:"duration_seconds"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// Event is the envelope published on the bus and streamed to websocket
// subscribers.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data"`
}

// MarshalJSON customizes JSON serialization for Event
func (e *Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if e.Data != nil {
		dataBytes, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		aux.Data = dataBytes
	}

	return json.Marshal(aux)
}
