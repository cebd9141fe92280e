package session

import (
	"sync"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store keeps per-lesson conversation history in memory. History lives only
// for the process lifetime; mistakes are the part that gets persisted.
type Store struct {
	mu       sync.Mutex
	limit    int
	sessions map[string][]Message
}

func NewStore(historyLimit int) *Store {
	if historyLimit < 2 {
		historyLimit = 2
	}
	return &Store{
		limit:    historyLimit,
		sessions: make(map[string][]Message),
	}
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

func (s *Store) Append(sessionID string, msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.sessions[sessionID], msgs...)
	if len(history) > s.limit {
		drop := len(history) - s.limit
		// Keep the trimmed history starting on a user turn so the
		// transcript sent upstream stays well-formed.
		for drop < len(history) && history[drop].Role != RoleUser {
			drop++
		}
		history = history[drop:]
	}
	s.sessions[sessionID] = history
}

// History returns a copy of the session transcript.
func (s *Store) History(sessionID string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.sessions[sessionID]
	out := make([]Message, len(history))
	copy(out, history)
	return out
}

func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

func (s *Store) Len(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions[sessionID])
}
