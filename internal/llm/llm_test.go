package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTrimsToWindow(t *testing.T) {
	state := NewState(3)
	for i := 0; i < 5; i++ {
		state.Add("user", fmt.Sprintf("message %d", i))
	}

	recent := state.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, "message 2", recent[0].Content)
	assert.Equal(t, "message 4", recent[2].Content)
}

func TestStateRecentReturnsCopy(t *testing.T) {
	state := NewState(5)
	state.Add("user", "original")

	recent := state.Recent()
	recent[0].Content = "mutated"

	assert.Equal(t, "original", state.Recent()[0].Content)
}

func TestAnalyzeInputParsesJSON(t *testing.T) {
	client := &Scripted{Responses: []string{
		`Here is my analysis:
{"entities": ["neo4j"], "intent": "inform", "sentiment": "positive",
 "should_transition": true, "transition_message": "ready",
 "next_question": "What tone should it have?",
 "confidence": {"phase_completion": 0.9}}`,
	}}

	analysis, err := AnalyzeInput(context.Background(), client, nil, "base prompt", "Context Gathering", 1024)
	require.NoError(t, err)
	assert.True(t, analysis.ShouldTransition)
	assert.Equal(t, "What tone should it have?", analysis.NextQuestion)
	assert.Equal(t, []string{"neo4j"}, analysis.Entities)
	assert.InDelta(t, 0.9, analysis.Confidence["phase_completion"], 0.001)
}

func TestAnalyzeInputMalformed(t *testing.T) {
	client := &Scripted{Responses: []string{"I cannot answer in JSON, sorry."}}

	_, err := AnalyzeInput(context.Background(), client, nil, "base", "Refinement", 1024)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestAnalyzeInputPropagatesClientError(t *testing.T) {
	apiErr := errors.New("429 rate limited")
	client := &Scripted{Err: apiErr}

	_, err := AnalyzeInput(context.Background(), client, nil, "base", "Refinement", 1024)
	assert.ErrorIs(t, err, apiErr)
}

func TestGenerateQuestion(t *testing.T) {
	client := &Scripted{Responses: []string{"  What is your target audience?  "}}

	q, err := GenerateQuestion(context.Background(), client, nil, "base", "Context Gathering", 512)
	require.NoError(t, err)
	assert.Equal(t, "What is your target audience?", q)
}

func TestDisabledClient(t *testing.T) {
	_, err := Disabled{}.Generate(context.Background(), nil, "", 64)
	assert.ErrorIs(t, err, ErrDisabled)
}
