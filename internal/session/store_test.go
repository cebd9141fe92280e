package session

import "testing"

func TestAppendAndHistory(t *testing.T) {
	s := NewStore(10)
	id := NewSessionID()
	if id == "" {
		t.Fatal("expected non-empty session id")
	}

	s.Append(id, Message{Role: RoleUser, Content: "hola"})
	s.Append(id, Message{Role: RoleAssistant, Content: "¡Hola! ¿Cómo estás?"})

	history := s.History(id)
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].Role != RoleUser || history[1].Role != RoleAssistant {
		t.Fatalf("unexpected roles: %+v", history)
	}

	// Mutating the returned slice must not touch the store.
	history[0].Content = "changed"
	if got := s.History(id)[0].Content; got != "hola" {
		t.Fatalf("history copy leaked: %q", got)
	}
}

func TestTrimKeepsUserBoundary(t *testing.T) {
	s := NewStore(4)
	id := "lesson-1"
	for i := 0; i < 4; i++ {
		s.Append(id,
			Message{Role: RoleUser, Content: "u"},
			Message{Role: RoleAssistant, Content: "a"},
		)
	}

	history := s.History(id)
	if len(history) > 4 {
		t.Fatalf("expected history capped at 4, got %d", len(history))
	}
	if history[0].Role != RoleUser {
		t.Fatalf("expected trimmed history to start with a user turn, got %s", history[0].Role)
	}
}

func TestClearAndLen(t *testing.T) {
	s := NewStore(10)
	s.Append("a", Message{Role: RoleUser, Content: "x"})
	if s.Len("a") != 1 {
		t.Fatalf("expected len 1, got %d", s.Len("a"))
	}
	s.Clear("a")
	if s.Len("a") != 0 {
		t.Fatalf("expected len 0 after clear, got %d", s.Len("a"))
	}
	if got := s.History("missing"); len(got) != 0 {
		t.Fatalf("expected empty history for unknown session, got %d", len(got))
	}
}
