package provider

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"ailab/chat"
)

// Gemini-family sampling ranges.
const (
	geminiTempMin = 0.0
	geminiTempMax = 1.0
	geminiTopPMin = 0.0
	geminiTopPMax = 1.0

	// geminiTitleModel handles the one-shot title request. Titles do not
	// need the conversation's (possibly heavyweight) model.
	geminiTitleModel = "gemini-2.5-flash"
)

// GeminiAdapter implements chat.Adapter for Google's Gemini API using the
// official genai Go SDK.
type GeminiAdapter struct {
	client *genai.Client
}

// NewGeminiAdapter creates a Gemini adapter over a fresh client handle.
// Returns an error for a missing or malformed credential; the cache maps
// that to its uniform "not configured" answer.
func NewGeminiAdapter(ctx context.Context, apiKey string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiAdapter{client: client}, nil
}

// Kind implements chat.Adapter.
func (a *GeminiAdapter) Kind() chat.ProviderKind {
	return chat.ProviderGemini
}

// StreamTurn implements chat.Adapter with the genai streaming call.
func (a *GeminiAdapter) StreamTurn(ctx context.Context, conv *chat.Conversation) (chat.DeltaStream, error) {
	if err := validateTurn(conv, chat.ProviderGemini); err != nil {
		return nil, err
	}

	history, last := splitTurn(conv)
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, msg := range history {
		role := genai.Role(genai.RoleUser)
		if msg.Role == chat.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(last, genai.RoleUser))

	config := a.generateConfig(conv)
	model := conv.Spec.ID

	return func(yield func(string, error) bool) {
		for resp, err := range a.client.Models.GenerateContentStream(ctx, model, contents, config) {
			if err != nil {
				yield("", &chat.ProviderError{
					Provider: chat.ProviderGemini,
					Reason:   fmt.Sprintf("Gemini request failed: %v", err),
					Err:      err,
				})
				return
			}
			if text := resp.Text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	}, nil
}

// GenerateTitle implements chat.Adapter with a single non-streaming call.
func (a *GeminiAdapter) GenerateTitle(ctx context.Context, userText string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(titlePrompt(userText), genai.RoleUser),
	}

	resp, err := a.client.Models.GenerateContent(ctx, geminiTitleModel, contents, nil)
	if err != nil {
		return "", &chat.ProviderError{
			Provider: chat.ProviderGemini,
			Reason:   fmt.Sprintf("Gemini title request failed: %v", err),
			Err:      err,
		}
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (a *GeminiAdapter) generateConfig(conv *chat.Conversation) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(clamp(conv.Params.Temperature, geminiTempMin, geminiTempMax))),
		TopP:        genai.Ptr(float32(clamp(conv.Params.TopP, geminiTopPMin, geminiTopPMax))),
	}
	if conv.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(conv.SystemPrompt, genai.RoleUser)
	}
	return config
}
