package provider

import (
	"errors"
	"strings"
	"testing"

	"ailab/chat"
)

func testConversation(model string, kind chat.ProviderKind, messages ...chat.Message) *chat.Conversation {
	return &chat.Conversation{
		ID:       "conv-1",
		Model:    model,
		Params:   chat.DefaultParams(),
		Messages: messages,
		Spec:     chat.ModelSpec{Provider: kind, ID: model},
	}
}

func TestValidateTurn(t *testing.T) {
	tests := []struct {
		name    string
		conv    *chat.Conversation
		kind    chat.ProviderKind
		wantErr any
	}{
		{
			name:    "empty conversation",
			conv:    testConversation("gemini-2.5-flash", chat.ProviderGemini),
			kind:    chat.ProviderGemini,
			wantErr: &chat.ValidationError{},
		},
		{
			name: "blank last message",
			conv: testConversation("gemini-2.5-flash", chat.ProviderGemini,
				chat.NewMessage(chat.RoleUser, "   ")),
			kind:    chat.ProviderGemini,
			wantErr: &chat.ValidationError{},
		},
		{
			name: "foreign provider",
			conv: testConversation("gpt-4o", chat.ProviderOpenAI,
				chat.NewMessage(chat.RoleUser, "hello")),
			kind:    chat.ProviderGemini,
			wantErr: &chat.ConfigurationError{},
		},
		{
			name: "valid",
			conv: testConversation("gemini-2.5-flash", chat.ProviderGemini,
				chat.NewMessage(chat.RoleUser, "hello")),
			kind: chat.ProviderGemini,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTurn(tt.conv, tt.kind)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("validateTurn() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("validateTurn() = nil, want error")
			}
			switch tt.wantErr.(type) {
			case *chat.ValidationError:
				var e *chat.ValidationError
				if !errors.As(err, &e) {
					t.Errorf("error = %T, want *chat.ValidationError", err)
				}
			case *chat.ConfigurationError:
				var e *chat.ConfigurationError
				if !errors.As(err, &e) {
					t.Errorf("error = %T, want *chat.ConfigurationError", err)
				}
			}
		})
	}
}

func TestSplitTurn(t *testing.T) {
	conv := testConversation("gemini-2.5-flash", chat.ProviderGemini,
		chat.NewMessage(chat.RoleUser, "first question"),
		chat.NewMessage(chat.RoleModel, "first answer"),
		chat.NewMessage(chat.RoleWorkflow, "workflow output"),
		chat.NewMessage(chat.RoleSystem, "system note"),
		chat.NewMessage(chat.RoleUser, "second question"),
	)

	history, last := splitTurn(conv)
	if last != "second question" {
		t.Errorf("last = %q", last)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2 (workflow and system excluded)", len(history))
	}
	if history[0].Content != "first question" || history[1].Content != "first answer" {
		t.Errorf("history = %+v", history)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name      string
		v, lo, hi float64
		want      float64
	}{
		{"below range", -0.5, 0, 1, 0},
		{"above range", 3.7, 0, 2, 2},
		{"in range", 0.7, 0, 1, 0.7},
		{"at boundary", 1.0, 0, 1, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clamp(tt.v, tt.lo, tt.hi); got != tt.want {
				t.Errorf("clamp(%v, %v, %v) = %v, want %v", tt.v, tt.lo, tt.hi, got, tt.want)
			}
		})
	}
}

func TestTitlePrompt(t *testing.T) {
	prompt := titlePrompt("plan my trip to Kyoto")
	if !strings.Contains(prompt, "plan my trip to Kyoto") {
		t.Errorf("prompt does not carry the user text: %q", prompt)
	}
}
