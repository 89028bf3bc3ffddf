package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"ailab/chat"
)

// Anthropic-family sampling ranges.
const (
	anthropicTempMin = 0.0
	anthropicTempMax = 1.0
	anthropicTopPMin = 0.0
	anthropicTopPMax = 1.0

	anthropicTitleModel = string(anthropic.ModelClaude3_5Haiku20241022)

	// Required by the Messages API; generous enough for chat turns.
	anthropicMaxTokens = 4096
)

// AnthropicAdapter implements chat.Adapter for Claude models using the
// official Anthropic Go SDK.
type AnthropicAdapter struct {
	client anthropic.Client
}

// NewAnthropicAdapter creates an Anthropic adapter.
func NewAnthropicAdapter(baseURL, apiKey string) (*AnthropicAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &AnthropicAdapter{client: anthropic.NewClient(opts...)}, nil
}

// Kind implements chat.Adapter.
func (a *AnthropicAdapter) Kind() chat.ProviderKind {
	return chat.ProviderAnthropic
}

// StreamTurn implements chat.Adapter with the SDK's streaming Messages API.
func (a *AnthropicAdapter) StreamTurn(ctx context.Context, conv *chat.Conversation) (chat.DeltaStream, error) {
	if err := validateTurn(conv, chat.ProviderAnthropic); err != nil {
		return nil, err
	}

	params := a.messageParams(conv)

	return func(yield func(string, error) bool) {
		stream := a.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()
			deltaEvent, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			textDelta, ok := deltaEvent.Delta.AsAny().(anthropic.TextDelta)
			if !ok || textDelta.Text == "" {
				continue
			}
			if !yield(textDelta.Text, nil) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			yield("", &chat.ProviderError{
				Provider: chat.ProviderAnthropic,
				Reason:   fmt.Sprintf("Anthropic request failed: %v", err),
				Err:      err,
			})
		}
	}, nil
}

// GenerateTitle implements chat.Adapter with a single non-streaming call.
func (a *AnthropicAdapter) GenerateTitle(ctx context.Context, userText string) (string, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(anthropicTitleModel),
		MaxTokens: 64,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(titlePrompt(userText))),
		},
	})
	if err != nil {
		return "", &chat.ProviderError{
			Provider: chat.ProviderAnthropic,
			Reason:   fmt.Sprintf("Anthropic title request failed: %v", err),
			Err:      err,
		}
	}

	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			return strings.TrimSpace(text.Text), nil
		}
	}
	return "", &chat.ProviderError{
		Provider: chat.ProviderAnthropic,
		Reason:   "Anthropic title request returned no text",
	}
}

func (a *AnthropicAdapter) messageParams(conv *chat.Conversation) anthropic.MessageNewParams {
	history, last := splitTurn(conv)

	messages := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, msg := range history {
		switch msg.Role {
		case chat.RoleModel:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(last)))

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(conv.Spec.ID),
		Messages:    messages,
		MaxTokens:   anthropicMaxTokens,
		Temperature: anthropic.Float(clamp(conv.Params.Temperature, anthropicTempMin, anthropicTempMax)),
		TopP:        anthropic.Float(clamp(conv.Params.TopP, anthropicTopPMin, anthropicTopPMax)),
	}
	if conv.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: conv.SystemPrompt}}
	}
	return params
}
