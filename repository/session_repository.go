package repository

import (
	"context"
	"errors"
	"time"

	"spendsense/domain"
)

var ErrSessionNotFound = errors.New("session not found")

const DefaultSessionTTL = 30 * time.Minute

// SessionRepository keeps short-lived conversation sessions between
// requests. Nothing stored here outlives its TTL.
type SessionRepository interface {
	Load(ctx context.Context, id string) (*domain.ConversationSession, error)
	Save(ctx context.Context, session *domain.ConversationSession) error
	Delete(ctx context.Context, id string) error
}

type sessionRecord struct {
	ID        string               `json:"id"`
	Messages  []domain.ChatMessage `json:"messages"`
	UpdatedAt time.Time            `json:"updated_at"`
}

func toRecord(s *domain.ConversationSession) sessionRecord {
	return sessionRecord{
		ID:        s.ID,
		Messages:  s.Messages(),
		UpdatedAt: s.LastUpdated(),
	}
}

func (r sessionRecord) session() *domain.ConversationSession {
	return domain.RestoreConversationSession(r.ID, r.Messages, r.UpdatedAt)
}
