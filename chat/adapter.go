package chat

import (
	"context"
	"iter"
)

// DeltaStream is a lazy, single-use, forward-only sequence of response text
// fragments. Consuming it drives exactly one underlying network stream.
// A mid-stream failure is delivered as the sequence's final element with a
// non-nil error (always a *ProviderError); abandoning consumption early is
// safe and never panics.
type DeltaStream = iter.Seq2[string, error]

// Adapter translates a conversation's uniform message history and sampling
// parameters into one provider family's streaming call.
//
// The interface is defined here rather than in the provider package so that
// adapter implementations can import chat for the domain types while the
// session manager stays provider-agnostic.
type Adapter interface {
	// Kind identifies the provider family this adapter serves.
	Kind() ProviderKind

	// StreamTurn opens a streaming completion for the conversation's last
	// message, with every earlier user/model message as history and the
	// system prompt on the provider's dedicated system channel.
	//
	// Precondition failures are returned eagerly: a *ValidationError when
	// the conversation is empty or its last message is blank, and a
	// *ConfigurationError when the conversation's model belongs to a
	// different provider family.
	StreamTurn(ctx context.Context, conv *Conversation) (DeltaStream, error)

	// GenerateTitle produces a short conversation title from the first
	// user message with a single non-streaming call.
	GenerateTitle(ctx context.Context, userText string) (string, error)
}

// AdapterResolver yields the adapter for a provider family, constructing or
// reusing the credentialed client handle behind it. A missing or malformed
// credential surfaces as a *ConfigurationError, not a constructed adapter.
type AdapterResolver interface {
	Adapter(ctx context.Context, kind ProviderKind) (Adapter, error)
}
