package domain

import (
	"sync"
	"time"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationSession holds the follow-up log of one user. It is owned by
// the caller and must not be shared between unrelated users.
type ConversationSession struct {
	mu        sync.Mutex
	ID        string        `json:"id"`
	History   []ChatMessage `json:"messages"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func NewConversationSession(id string) *ConversationSession {
	return &ConversationSession{ID: id, UpdatedAt: time.Now()}
}

func (s *ConversationSession) Append(msgs ...ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.History = append(s.History, msgs...)
	s.UpdatedAt = time.Now()
}

// Messages returns a copy of the log.
func (s *ConversationSession) Messages() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ChatMessage, len(s.History))
	copy(out, s.History)
	return out
}

func (s *ConversationSession) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.History)
}

func (s *ConversationSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.History = nil
	s.UpdatedAt = time.Now()
}

func (s *ConversationSession) LastUpdated() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.UpdatedAt
}

// RestoreConversationSession rebuilds a session loaded from a store.
func RestoreConversationSession(id string, msgs []ChatMessage, updatedAt time.Time) *ConversationSession {
	return &ConversationSession{
		ID:        id,
		History:   append([]ChatMessage(nil), msgs...),
		UpdatedAt: updatedAt,
	}
}
