package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// DefaultModel is used when the configuration names no model.
const DefaultModel = string(anthropic.ModelClaude3_7SonnetLatest)

// Anthropic is the production Client backed by the Anthropic Messages API.
type Anthropic struct {
	client anthropic.Client
	model  anthropic.Model
	log    *zap.Logger
}

// NewAnthropic builds a client for the given API key and model name.
func NewAnthropic(apiKey, model string, log *zap.Logger) *Anthropic {
	if model == "" {
		model = DefaultModel
	}
	return &Anthropic{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
		log:    log,
	}
}

// Generate sends the conversation window to the API and returns the text of
// the first content block. Empty messages are dropped before sending; an
// entirely empty window is replaced with a minimal greeting so the API call
// stays valid.
func (a *Anthropic) Generate(ctx context.Context, messages []Message, system string, maxTokens int) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: int64(maxTokens),
		Messages:  toMessageParams(messages),
	}
	if system = strings.TrimSpace(system); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		a.log.Error("llm request failed", zap.Error(err))
		return "", fmt.Errorf("anthropic: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("%w: empty content", ErrMalformedResponse)
	}

	text := strings.TrimSpace(resp.Content[0].Text)
	if text == "" {
		return "", fmt.Errorf("%w: no text block", ErrMalformedResponse)
	}
	return text, nil
}

func toMessageParams(messages []Message) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		block := anthropic.NewTextBlock(content)
		if msg.Role == "assistant" {
			params = append(params, anthropic.NewAssistantMessage(block))
		} else {
			params = append(params, anthropic.NewUserMessage(block))
		}
	}
	if len(params) == 0 {
		params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock("Hello")))
	}
	return params
}
