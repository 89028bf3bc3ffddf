package storage

import (
	"errors"
	"testing"
	"time"

	"ailab/chat"
)

func newTestStore(t *testing.T) *ConversationStore {
	t.Helper()
	store, err := NewConversationStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewConversationStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleConversation(id, model string) *chat.Conversation {
	now := time.Now().UTC().Truncate(time.Second)
	conv := &chat.Conversation{
		ID:           id,
		Title:        "Test Chat",
		Model:        model,
		SystemPrompt: "be brief",
		Params:       chat.Params{Temperature: 0.4, TopP: 0.9},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	conv.Messages = []chat.Message{
		chat.NewMessage(chat.RoleUser, "hello"),
		chat.NewMessage(chat.RoleModel, "hi there"),
	}
	return conv
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	conv := sampleConversation("conv-1", "gemini-2.5-flash")
	if err := store.Save(conv); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load("conv-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Title != conv.Title || got.Model != conv.Model || got.SystemPrompt != conv.SystemPrompt {
		t.Errorf("loaded conversation = %+v", got)
	}
	if got.Params != conv.Params {
		t.Errorf("params = %+v, want %+v", got.Params, conv.Params)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("message count = %d, want 2", len(got.Messages))
	}
	for i, msg := range got.Messages {
		if msg.ID != conv.Messages[i].ID || msg.Role != conv.Messages[i].Role || msg.Content != conv.Messages[i].Content {
			t.Errorf("message %d = %+v, want %+v", i, msg, conv.Messages[i])
		}
	}
	if got.Spec.Provider != chat.ProviderGemini {
		t.Errorf("provider resolution on load = %s, want gemini", got.Spec.Provider)
	}
}

func TestLoadUnresolvableModel(t *testing.T) {
	store := newTestStore(t)

	conv := sampleConversation("conv-1", "llama-unknown")
	if err := store.Save(conv); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load("conv-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Spec.IsZero() {
		t.Errorf("spec = %+v, want zero for an unknown model", got.Spec)
	}
}

func TestLoadMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Load("nope")
	if !errors.Is(err, chat.ErrNotFound) {
		t.Fatalf("Load(missing) = %v, want ErrNotFound", err)
	}
}

func TestSaveReplacesMessages(t *testing.T) {
	store := newTestStore(t)

	conv := sampleConversation("conv-1", "gpt-4o")
	if err := store.Save(conv); err != nil {
		t.Fatalf("Save: %v", err)
	}

	conv.Messages = conv.Messages[:1]
	if err := store.Save(conv); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, err := store.Load("conv-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Messages) != 1 {
		t.Errorf("message count after rewrite = %d, want 1", len(got.Messages))
	}
}

func TestUpdateMessage(t *testing.T) {
	store := newTestStore(t)

	conv := sampleConversation("conv-1", "gpt-4o")
	conv.Messages[1].Pending = true
	conv.Messages[1].Content = ""
	if err := store.Save(conv); err != nil {
		t.Fatalf("Save: %v", err)
	}

	streamed := conv.Messages[1]
	streamed.Pending = false
	streamed.Content = "streamed reply"
	if err := store.UpdateMessage("conv-1", streamed); err != nil {
		t.Fatalf("UpdateMessage: %v", err)
	}

	got, _ := store.Load("conv-1")
	last := got.Messages[1]
	if last.Content != "streamed reply" || last.Pending {
		t.Errorf("updated message = %+v", last)
	}

	t.Run("unknown message", func(t *testing.T) {
		missing := chat.NewMessage(chat.RoleModel, "x")
		if err := store.UpdateMessage("conv-1", missing); !errors.Is(err, chat.ErrNotFound) {
			t.Errorf("UpdateMessage(missing) = %v, want ErrNotFound", err)
		}
	})
}

func TestListNewestFirst(t *testing.T) {
	store := newTestStore(t)

	older := sampleConversation("conv-old", "gpt-4o")
	older.UpdatedAt = time.Now().Add(-time.Hour)
	newer := sampleConversation("conv-new", "gemini-2.5-flash")
	newer.UpdatedAt = time.Now()

	for _, c := range []*chat.Conversation{older, newer} {
		if err := store.Save(c); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	summaries, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summary count = %d, want 2", len(summaries))
	}
	if summaries[0].ID != "conv-new" {
		t.Errorf("first summary = %s, want newest", summaries[0].ID)
	}
	if summaries[0].MessageCount != 2 {
		t.Errorf("message count = %d, want 2", summaries[0].MessageCount)
	}
}

func TestDeleteClearsActive(t *testing.T) {
	store := newTestStore(t)

	conv := sampleConversation("conv-1", "gpt-4o")
	if err := store.Save(conv); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.SetActive("conv-1"); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	if err := store.Delete("conv-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := store.Load("conv-1"); !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("Load after delete = %v, want ErrNotFound", err)
	}
	active, err := store.Active()
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if active != "" {
		t.Errorf("active = %q after deleting the active conversation", active)
	}

	t.Run("delete missing", func(t *testing.T) {
		if err := store.Delete("conv-1"); !errors.Is(err, chat.ErrNotFound) {
			t.Errorf("Delete(missing) = %v, want ErrNotFound", err)
		}
	})
}

func TestActivePointer(t *testing.T) {
	store := newTestStore(t)

	active, err := store.Active()
	if err != nil {
		t.Fatalf("Active on empty store: %v", err)
	}
	if active != "" {
		t.Errorf("active = %q, want empty", active)
	}

	for _, id := range []string{"a", "b"} {
		conv := sampleConversation(id, "gpt-4o")
		if err := store.Save(conv); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if err := store.SetActive(id); err != nil {
			t.Fatalf("SetActive: %v", err)
		}
	}

	active, _ = store.Active()
	if active != "b" {
		t.Errorf("active = %q, want last set", active)
	}
}
