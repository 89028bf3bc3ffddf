package chat

// Store is the persisted conversation store the manager writes through.
// The manager treats it as synchronous state: every mutation of a
// conversation is written back before the next network suspension point, so
// a user's turn is never lost to a failed provider call.
type Store interface {
	// Save writes the full conversation, replacing any prior version.
	Save(conv *Conversation) error

	// Load returns the conversation with the given ID.
	Load(id string) (*Conversation, error)

	// List returns summaries for all conversations, newest first.
	List() ([]Summary, error)

	// Delete removes a conversation. Deleting the active conversation
	// clears the active pointer; there are no other cascading effects.
	Delete(id string) error

	// UpdateMessage rewrites a single message in place. Used for the
	// per-delta content appends during streaming, where rewriting the
	// whole conversation per chunk would be wasteful.
	UpdateMessage(conversationID string, msg Message) error

	// SetActive records which conversation the dashboard has open.
	SetActive(id string) error

	// Active returns the recorded active conversation ID, or "".
	Active() (string, error)
}
