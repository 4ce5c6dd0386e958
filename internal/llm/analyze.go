package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Analysis is the model's judgment of the latest user input: whether the
// current phase has gathered enough to advance, and the question to ask next
// if it has not. Bundling both into one response keeps each turn to a single
// outbound call.
type Analysis struct {
	Entities          []string           `json:"entities"`
	Intent            string             `json:"intent"`
	Sentiment         string             `json:"sentiment"`
	ShouldTransition  bool               `json:"should_transition"`
	TransitionMessage string             `json:"transition_message"`
	NextQuestion      string             `json:"next_question"`
	Confidence        map[string]float64 `json:"confidence"`
}

const analysisInstructions = `Your task is to analyze the user's input and determine:
1. Key entities and concepts mentioned
2. User's intent and sentiment
3. Whether enough information has been gathered to move to the next phase
4. If not, the next question to ask the user for this phase
5. Confidence level in current phase completion (0.0 to 1.0)

Current phase: %s

Respond with JSON only:
{
  "entities": ["entity1", "entity2"],
  "intent": "user's primary intent",
  "sentiment": "positive/negative/neutral",
  "should_transition": true,
  "transition_message": "Message explaining phase transition",
  "next_question": "The next question to ask if staying in this phase",
  "confidence": {"phase_completion": 0.85}
}`

// AnalyzeInput asks the model whether the current phase is complete. Any
// failure surfaces as an error; callers fall back to "not ready" so a flaky
// API can never skip a phase.
func AnalyzeInput(ctx context.Context, client Client, window []Message, systemPrompt, phaseName string, maxTokens int) (Analysis, error) {
	system := strings.TrimSpace(systemPrompt) + "\n\n" +
		fmt.Sprintf(analysisInstructions, phaseName)

	raw, err := client.Generate(ctx, window, system, maxTokens)
	if err != nil {
		return Analysis{}, err
	}

	payload, ok := extractJSON(raw)
	if !ok {
		return Analysis{}, fmt.Errorf("%w: no JSON object in analysis", ErrMalformedResponse)
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(payload), &analysis); err != nil {
		return Analysis{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return analysis, nil
}

const questionInstructions = `Your task is to generate the next question to ask the user.
The question should be relevant to the current phase (%s)
and should help gather more information or clarify existing information.

Generate a single, clear question that will help move the content creation process forward.`

// GenerateQuestion asks the model for the next interview question.
func GenerateQuestion(ctx context.Context, client Client, window []Message, systemPrompt, phaseName string, maxTokens int) (string, error) {
	system := strings.TrimSpace(systemPrompt) + "\n\n" +
		fmt.Sprintf(questionInstructions, phaseName)

	question, err := client.Generate(ctx, window, system, maxTokens)
	if err != nil {
		return "", err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: empty question", ErrMalformedResponse)
	}
	return question, nil
}

// extractJSON pulls the outermost JSON object out of a response that may wrap
// it in prose or a code fence.
func extractJSON(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}
