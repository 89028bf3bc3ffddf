// Package provider implements the chat.Adapter contract for each supported
// model provider family and the credential-keyed cache that owns their
// client handles.
//
// Every adapter follows the same shape: the uniform conversation history is
// mapped into the provider's wire format (system text on the provider's
// dedicated system channel, never embedded in history), sampling parameters
// are clamped to the provider's accepted range, and the streaming response
// is exposed as a chat.DeltaStream. Transport failures never escape raw;
// they are wrapped into a single *chat.ProviderError surfaced as the
// stream's terminal element.
package provider

import (
	"fmt"
	"strings"

	"ailab/chat"
)

// validateTurn checks the shared StreamTurn preconditions: a non-empty
// conversation whose last message carries text, dispatched to the provider
// family its model resolved to.
func validateTurn(conv *chat.Conversation, kind chat.ProviderKind) error {
	if len(conv.Messages) == 0 {
		return &chat.ValidationError{Reason: "conversation has no messages"}
	}
	if strings.TrimSpace(conv.LastMessage().Content) == "" {
		return &chat.ValidationError{Reason: "last message has no text"}
	}
	if conv.Spec.Provider != kind {
		return &chat.ConfigurationError{
			Reason: fmt.Sprintf("unsupported model %q for the %s provider", conv.Model, kind),
		}
	}
	return nil
}

// splitTurn separates the new turn (the last message's text) from the
// history sent as context. Only user and model roles are history; system
// content travels on each provider's system-instruction channel and
// workflow messages stay local to the dashboard.
func splitTurn(conv *chat.Conversation) (history []chat.Message, last string) {
	msgs := conv.Messages
	last = msgs[len(msgs)-1].Content
	for _, msg := range msgs[:len(msgs)-1] {
		if msg.Role == chat.RoleUser || msg.Role == chat.RoleModel {
			history = append(history, msg)
		}
	}
	return history, last
}

// clamp bounds v to [lo, hi]. Out-of-range sampling parameters are
// silently clamped, never rejected.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// titlePrompt is the instruction wrapped around the first user message for
// auto-titling. Providers answer with the title text alone.
func titlePrompt(userText string) string {
	return "Generate a concise title (4 words or fewer) for a conversation that starts with this message. " +
		"Reply with the title only, no quotes:\n\n" + userText
}
