package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"ailab/chat"
)

// OpenAI-family sampling ranges. Temperature runs to 2.0 on this API,
// unlike the Gemini family.
const (
	openaiTempMin = 0.0
	openaiTempMax = 2.0
	openaiTopPMin = 0.0
	openaiTopPMax = 1.0

	openaiTitleModel     = "gpt-4o-mini"
	openaiDefaultBaseURL = "https://api.openai.com/v1"
)

// OpenAIAdapter implements chat.Adapter for OpenAI and OpenAI-compatible
// endpoints (OpenRouter, local gateways) via the official OpenAI Go SDK.
// The base URL selects which compatible service is reached.
type OpenAIAdapter struct {
	client  openai.Client
	baseURL string
}

// NewOpenAIAdapter creates an adapter for an OpenAI-compatible endpoint.
// An empty baseURL targets the OpenAI API itself.
func NewOpenAIAdapter(baseURL, apiKey string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if baseURL == "" {
		baseURL = openaiDefaultBaseURL
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &OpenAIAdapter{client: client, baseURL: baseURL}, nil
}

// Kind implements chat.Adapter.
func (a *OpenAIAdapter) Kind() chat.ProviderKind {
	return chat.ProviderOpenAI
}

// StreamTurn implements chat.Adapter with the SDK's streaming completions.
func (a *OpenAIAdapter) StreamTurn(ctx context.Context, conv *chat.Conversation) (chat.DeltaStream, error) {
	if err := validateTurn(conv, chat.ProviderOpenAI); err != nil {
		return nil, err
	}

	params := a.completionParams(conv)

	return func(yield func(string, error) bool) {
		stream := a.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			if content := chunk.Choices[0].Delta.Content; content != "" {
				if !yield(content, nil) {
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			yield("", &chat.ProviderError{
				Provider: chat.ProviderOpenAI,
				Reason:   fmt.Sprintf("OpenAI request failed: %v", err),
				Err:      err,
			})
		}
	}, nil
}

// GenerateTitle implements chat.Adapter with a single non-streaming call.
func (a *OpenAIAdapter) GenerateTitle(ctx context.Context, userText string) (string, error) {
	completion, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(openaiTitleModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(titlePrompt(userText)),
		},
	})
	if err != nil {
		return "", &chat.ProviderError{
			Provider: chat.ProviderOpenAI,
			Reason:   fmt.Sprintf("OpenAI title request failed: %v", err),
			Err:      err,
		}
	}
	if len(completion.Choices) == 0 {
		return "", &chat.ProviderError{
			Provider: chat.ProviderOpenAI,
			Reason:   "OpenAI title request returned no choices",
		}
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

func (a *OpenAIAdapter) completionParams(conv *chat.Conversation) openai.ChatCompletionNewParams {
	history, last := splitTurn(conv)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	if conv.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(conv.SystemPrompt))
	}
	for _, msg := range history {
		switch msg.Role {
		case chat.RoleModel:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(last))

	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(conv.Spec.ID),
		Messages:    messages,
		Temperature: openai.Float(clamp(conv.Params.Temperature, openaiTempMin, openaiTempMax)),
		TopP:        openai.Float(clamp(conv.Params.TopP, openaiTopPMin, openaiTopPMax)),
	}
}
