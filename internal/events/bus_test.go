package events

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPublishFansOut delivers each event to every subscriber with the
// envelope populated.
func TestPublishFansOut(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	defer bus.Close()

	first, cancelFirst := bus.Subscribe()
	defer cancelFirst()
	second, cancelSecond := bus.Subscribe()
	defer cancelSecond()

	bus.Publish(&AnalysisStartedData{RunID: "run-1", PortfolioID: "PF-1", ClientID: "CL-1"})

	for _, ch := range []<-chan Event{first, second} {
		event := <-ch
		assert.Equal(t, AnalysisStarted, event.Type)
		assert.False(t, event.Timestamp.IsZero())
		data, ok := event.Data.(*AnalysisStartedData)
		require.True(t, ok)
		assert.Equal(t, "run-1", data.RunID)
	}
}

// TestPublishNeverBlocks fills a subscriber's buffer past capacity; the
// publisher must not block and the newest events must survive.
func TestPublishNeverBlocks(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	total := subscriberBuffer + 10
	for i := 0; i < total; i++ {
		bus.Publish(&AnalysisStartedData{RunID: fmt.Sprintf("run-%d", i)})
	}

	// The buffer holds the most recent events; the oldest were dropped.
	assert.Len(t, ch, subscriberBuffer)
	last := ""
	for len(ch) > 0 {
		last = (<-ch).Data.(*AnalysisStartedData).RunID
	}
	assert.Equal(t, fmt.Sprintf("run-%d", total-1), last)
}

// TestSubscribeCancel releases the channel; a second cancel is a no-op.
func TestSubscribeCancel(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancel must not panic on the closed channel.
	bus.Publish(&AnalysisStartedData{RunID: "run-after-cancel"})
}

// TestCloseDropsSubscribers closes every channel and turns Publish into a
// no-op.
func TestCloseDropsSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Close()
	bus.Close()

	_, open := <-ch
	assert.False(t, open)

	bus.Publish(&AnalysisStartedData{RunID: "run-after-close"})
}

// TestEventMarshalJSON verifies the envelope inlines the payload as JSON.
func TestEventMarshalJSON(t *testing.T) {
	event := Event{
		Type: AnalysisCompleted,
		Data: &AnalysisCompletedData{RunID: "run-1", OverallScore: 83.8, Band: "HIGHLY_SUITABLE"},
	}

	raw, err := json.Marshal(&event)
	require.NoError(t, err)

	var decoded struct {
		Type string `json:"type"`
		Data struct {
			RunID        string  `json:"run_id"`
			OverallScore float64 `json:"overall_score"`
			Band         string  `json:"band"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "analysis_completed", decoded.Type)
	assert.Equal(t, "run-1", decoded.Data.RunID)
	assert.InDelta(t, 83.8, decoded.Data.OverallScore, 1e-9)
}

// TestEventTypeMapping pins the wire names of every payload type.
func TestEventTypeMapping(t *testing.T) {
	tests := []struct {
		data EventData
		want EventType
	}{
		{&AnalysisStartedData{}, AnalysisStarted},
		{&AnalyzerDegradedData{}, AnalyzerDegraded},
		{&AnalysisCompletedData{}, AnalysisCompleted},
		{&AnalysisFailedData{}, AnalysisFailed},
		{&ComparisonCompletedData{}, ComparisonCompleted},
		{&ReviewDueData{}, ReviewDue},
		{&BackupCompletedData{}, BackupCompleted},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.data.EventType())
	}
}
