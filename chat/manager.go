package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTitle is assigned to new conversations and is the fallback
	// whenever auto-titling fails. Title generation never blocks or fails
	// a turn.
	DefaultTitle = "New Chat"

	// emptyResponseFallback replaces a response that completed without
	// producing any text, so a turn never ends with a dangling pending
	// message.
	emptyResponseFallback = "I couldn't generate a response. Please try rephrasing your message."
)

// TurnState is the terminal state of a completed SendTurn call.
type TurnState int

const (
	TurnFinalized TurnState = iota
	TurnErrored
)

func (s TurnState) String() string {
	if s == TurnErrored {
		return "errored"
	}
	return "finalized"
}

// TurnUpdate is the notification sent to the UI collaborator after every
// persisted mutation during a turn.
type TurnUpdate struct {
	ConversationID string  `json:"conversation_id"`
	Title          string  `json:"title"`
	Message        Message `json:"message"`
}

// UpdateFunc receives TurnUpdates. It is invoked from the goroutine running
// SendTurn, in delta arrival order. A nil UpdateFunc is allowed.
type UpdateFunc func(TurnUpdate)

// Manager owns conversation mutation during a turn. At most one turn may be
// in flight per conversation, enforced by a flag checked at SendTurn entry;
// turns on different conversations interleave freely.
type Manager struct {
	store    Store
	adapters AdapterResolver
	log      *slog.Logger

	mu       sync.Mutex
	inflight map[string]bool
}

// NewManager creates a session manager over the given store and adapter
// resolver.
func NewManager(store Store, adapters AdapterResolver, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    store,
		adapters: adapters,
		log:      logger,
		inflight: make(map[string]bool),
	}
}

// SendTurn runs one user-message-to-model-response exchange.
//
// The turn proceeds: append and persist the user message, auto-title on the
// first turn, append a pending placeholder, resolve the provider adapter,
// stream deltas into the placeholder (the first delta clears the pending
// flag), and finalize. Every failure past input validation is converted
// into an error-labeled model message rather than returned: the dashboard's
// contract is that every turn ends in a message, success or failure.
//
// Only pre-mutation validation failures (blank input, unknown conversation,
// a turn already in flight) return an error, so the caller can reject the
// action without the conversation having changed.
func (m *Manager) SendTurn(ctx context.Context, conversationID, userText string, onUpdate UpdateFunc) (TurnState, error) {
	text := strings.TrimSpace(userText)
	if text == "" {
		return TurnErrored, &ValidationError{Reason: "message text is empty"}
	}

	m.mu.Lock()
	if m.inflight[conversationID] {
		m.mu.Unlock()
		return TurnErrored, ErrTurnInFlight
	}
	m.inflight[conversationID] = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.inflight, conversationID)
		m.mu.Unlock()
	}()

	conv, err := m.store.Load(conversationID)
	if err != nil {
		return TurnErrored, &ValidationError{Reason: fmt.Sprintf("unknown conversation %q", conversationID)}
	}

	firstTurn := len(conv.Messages) == 0

	notify := func(msg Message) {
		if onUpdate != nil {
			onUpdate(TurnUpdate{ConversationID: conv.ID, Title: conv.Title, Message: msg})
		}
	}

	// The user's message is persisted before any network call so the turn
	// survives a provider failure.
	userMsg := NewMessage(RoleUser, text)
	conv.Messages = append(conv.Messages, userMsg)
	if err := m.store.Save(conv); err != nil {
		return TurnErrored, fmt.Errorf("saving user message: %w", err)
	}
	notify(userMsg)

	if firstTurn {
		conv.Title = m.generateTitle(ctx, conv, text)
		if err := m.store.Save(conv); err != nil {
			m.log.Error("failed to persist conversation title", "conversation_id", conv.ID, "error", err)
		}
	}

	placeholder := NewMessage(RoleModel, "")
	placeholder.Pending = true
	conv.Messages = append(conv.Messages, placeholder)
	if err := m.store.Save(conv); err != nil {
		return m.failTurn(conv, &placeholder, notify, fmt.Errorf("saving placeholder: %w", err)), nil
	}
	notify(placeholder)

	stream, err := m.openStream(ctx, conv)
	if err != nil {
		return m.failTurn(conv, &placeholder, notify, err), nil
	}

	received := false
	var streamErr error
	for delta, derr := range stream {
		if derr != nil {
			streamErr = derr
			break
		}
		if delta == "" {
			continue
		}
		if !received {
			received = true
			placeholder.Pending = false
			placeholder.Content = delta
		} else {
			placeholder.Content += delta
		}
		conv.Messages[len(conv.Messages)-1] = placeholder
		if err := m.store.UpdateMessage(conv.ID, placeholder); err != nil {
			m.log.Error("failed to persist streamed delta", "conversation_id", conv.ID, "error", err)
		}
		notify(placeholder)
	}

	if streamErr != nil {
		// Partial content streamed before the failure is discarded and the
		// placeholder carries the error instead.
		return m.failTurn(conv, &placeholder, notify, streamErr), nil
	}

	if placeholder.Pending {
		placeholder.Pending = false
		placeholder.Content = emptyResponseFallback
		conv.Messages[len(conv.Messages)-1] = placeholder
		notify(placeholder)
	}

	conv.UpdatedAt = time.Now()
	if err := m.store.Save(conv); err != nil {
		m.log.Error("failed to persist finalized turn", "conversation_id", conv.ID, "error", err)
	}

	m.log.Debug("turn finalized",
		"conversation_id", conv.ID,
		"response_chars", len(placeholder.Content))
	return TurnFinalized, nil
}

// openStream resolves the adapter for the conversation's provider and opens
// its delta sequence. The conversation handed to the adapter ends with the
// user's message; the pending placeholder is local bookkeeping and never
// reaches a provider.
func (m *Manager) openStream(ctx context.Context, conv *Conversation) (DeltaStream, error) {
	if conv.Spec.IsZero() {
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("unsupported model %q: no provider matches this identifier", conv.Model),
		}
	}

	adapter, err := m.adapters.Adapter(ctx, conv.Spec.Provider)
	if err != nil {
		return nil, err
	}

	turn := *conv
	turn.Messages = conv.Messages[:len(conv.Messages)-1]
	return adapter.StreamTurn(ctx, &turn)
}

// failTurn overwrites the placeholder with an error-labeled message and
// persists the Errored terminal state. The error is logged before it is
// flattened into message text.
func (m *Manager) failTurn(conv *Conversation, placeholder *Message, notify func(Message), cause error) TurnState {
	m.log.Warn("turn failed",
		"conversation_id", conv.ID,
		"model", conv.Model,
		"error", cause)

	placeholder.Pending = false
	placeholder.Content = "Error: " + cause.Error()
	conv.Messages[len(conv.Messages)-1] = *placeholder
	conv.UpdatedAt = time.Now()
	if err := m.store.Save(conv); err != nil {
		m.log.Error("failed to persist errored turn", "conversation_id", conv.ID, "error", err)
	}
	notify(*placeholder)
	return TurnErrored
}

// generateTitle asks the conversation's provider for a title based on the
// first user message. Any failure, including an unconfigured provider,
// falls back to DefaultTitle.
func (m *Manager) generateTitle(ctx context.Context, conv *Conversation, firstUserText string) string {
	if conv.Spec.IsZero() {
		return DefaultTitle
	}

	adapter, err := m.adapters.Adapter(ctx, conv.Spec.Provider)
	if err != nil {
		m.log.Debug("title generation skipped", "conversation_id", conv.ID, "error", err)
		return DefaultTitle
	}

	title, err := adapter.GenerateTitle(ctx, firstUserText)
	if err != nil {
		m.log.Warn("title generation failed", "conversation_id", conv.ID, "error", err)
		return DefaultTitle
	}

	title = sanitizeTitle(title)
	if title == "" {
		return DefaultTitle
	}
	return title
}

// NewConversation creates and persists an empty conversation and marks it
// active. An unknown model identifier is accepted here; the invariant that
// a model must resolve to exactly one provider is enforced at dispatch.
func (m *Manager) NewConversation(model, systemPrompt string, params Params) (*Conversation, error) {
	if strings.TrimSpace(model) == "" {
		return nil, &ValidationError{Reason: "model identifier is empty"}
	}

	now := time.Now()
	conv := &Conversation{
		ID:           uuid.New().String(),
		Title:        DefaultTitle,
		Model:        model,
		SystemPrompt: systemPrompt,
		Params:       params,
		Messages:     []Message{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if spec, err := ResolveModel(model); err == nil {
		conv.Spec = spec
	} else {
		m.log.Warn("conversation created with unresolvable model", "model", model)
	}

	if err := m.store.Save(conv); err != nil {
		return nil, fmt.Errorf("saving conversation: %w", err)
	}
	if err := m.store.SetActive(conv.ID); err != nil {
		m.log.Error("failed to set active conversation", "conversation_id", conv.ID, "error", err)
	}
	return conv, nil
}

// Conversation loads a conversation by ID.
func (m *Manager) Conversation(id string) (*Conversation, error) {
	return m.store.Load(id)
}

// Conversations lists all conversation summaries, newest first.
func (m *Manager) Conversations() ([]Summary, error) {
	return m.store.List()
}

// DeleteConversation removes a conversation. A turn in flight for it keeps
// running against its in-memory copy but its final persist will fail, which
// is logged rather than surfaced.
func (m *Manager) DeleteConversation(id string) error {
	return m.store.Delete(id)
}

// ActiveConversation returns the ID the dashboard last had open, or "".
func (m *Manager) ActiveConversation() (string, error) {
	return m.store.Active()
}

// ActivateConversation marks an existing conversation as active.
func (m *Manager) ActivateConversation(id string) error {
	if _, err := m.store.Load(id); err != nil {
		return err
	}
	return m.store.SetActive(id)
}

// RenameConversation sets a conversation's title.
func (m *Manager) RenameConversation(id, title string) error {
	title = sanitizeTitle(title)
	if title == "" {
		return &ValidationError{Reason: "title is empty"}
	}
	conv, err := m.store.Load(id)
	if err != nil {
		return err
	}
	conv.Title = title
	conv.UpdatedAt = time.Now()
	return m.store.Save(conv)
}

// SetModel changes a conversation's model, re-resolving its provider once.
// Like NewConversation it tolerates identifiers that match no provider.
func (m *Manager) SetModel(id, model string) error {
	if strings.TrimSpace(model) == "" {
		return &ValidationError{Reason: "model identifier is empty"}
	}
	conv, err := m.store.Load(id)
	if err != nil {
		return err
	}
	conv.Model = model
	conv.Spec = ModelSpec{}
	if spec, err := ResolveModel(model); err == nil {
		conv.Spec = spec
	} else {
		m.log.Warn("model set to unresolvable identifier", "conversation_id", id, "model", model)
	}
	conv.UpdatedAt = time.Now()
	return m.store.Save(conv)
}

// sanitizeTitle flattens whitespace, strips surrounding quotes, and caps the
// length of a generated title.
func sanitizeTitle(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	title = strings.Trim(title, `"'`)
	if len(title) > 60 {
		title = strings.TrimSpace(title[:60])
	}
	return title
}
