package repository

import (
	"context"
	"sync"
	"time"

	"spendsense/domain"
	"spendsense/metrics"
)

type memoryEntry struct {
	record    sessionRecord
	expiresAt time.Time
}

// SessionRepositoryMemory is an in-process SessionRepository. Sessions are
// stored as snapshots so callers never share a live session value.
type SessionRepositoryMemory struct {
	mu   sync.Mutex
	ttl  time.Duration
	data map[string]memoryEntry
	now  func() time.Time
}

func NewSessionRepositoryMemory(ttl time.Duration) *SessionRepositoryMemory {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionRepositoryMemory{
		ttl:  ttl,
		data: make(map[string]memoryEntry),
		now:  time.Now,
	}
}

func (r *SessionRepositoryMemory) Load(_ context.Context, id string) (*domain.ConversationSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictExpired()
	entry, ok := r.data[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry.record.session(), nil
}

func (r *SessionRepositoryMemory) Save(_ context.Context, session *domain.ConversationSession) error {
	record := toRecord(session)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[record.ID] = memoryEntry{record: record, expiresAt: r.now().Add(r.ttl)}
	r.evictExpired()
	return nil
}

func (r *SessionRepositoryMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.data, id)
	metrics.ActiveSessions.Set(float64(len(r.data)))
	return nil
}

func (r *SessionRepositoryMemory) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// evictExpired must be called with mu held.
func (r *SessionRepositoryMemory) evictExpired() {
	now := r.now()
	for id, entry := range r.data {
		if !now.Before(entry.expiresAt) {
			delete(r.data, id)
		}
	}
	metrics.ActiveSessions.Set(float64(len(r.data)))
}
