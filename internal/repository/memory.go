package repository

import (
	"context"
	"sync"
	"time"

	"github.com/rocketscienceinc/timetravel-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/timetravel-tictactoe/internal/entity"
)

const memorySweepInterval = time.Minute

type memEntry struct {
	session   *entity.Session
	expiresAt time.Time
}

type memSession struct {
	mu        sync.RWMutex
	sessions  map[string]memEntry
	ttl       time.Duration
	lastSweep time.Time

	now func() time.Time
}

// NewMemorySessionRepository - keeps sessions in process memory. Stored and
// returned sessions are copies, so callers never share state with the store.
// Like the redis store, a session expires ttl after its last save; a zero ttl
// keeps sessions until they are deleted.
func NewMemorySessionRepository(ttl time.Duration) SessionRepository {
	return &memSession{
		sessions: make(map[string]memEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (that *memSession) CreateOrUpdate(_ context.Context, session *entity.Session) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	now := that.now()
	that.sweep(now)

	entry := memEntry{session: session.Clone()}
	if that.ttl > 0 {
		entry.expiresAt = now.Add(that.ttl)
	}
	that.sessions[session.ID] = entry

	return nil
}

func (that *memSession) GetByID(_ context.Context, id string) (*entity.Session, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	entry, ok := that.sessions[id]
	if !ok || entry.expired(that.now()) {
		return nil, apperror.ErrSessionNotFound
	}

	return entry.session.Clone(), nil
}

func (that *memSession) DeleteByID(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	entry, ok := that.sessions[id]
	if !ok {
		return apperror.ErrSessionNotFound
	}

	delete(that.sessions, id)

	if entry.expired(that.now()) {
		return apperror.ErrSessionNotFound
	}

	return nil
}

// sweep drops expired sessions, at most once per memorySweepInterval.
// The caller holds the write lock.
func (that *memSession) sweep(now time.Time) {
	if that.ttl <= 0 || now.Sub(that.lastSweep) < memorySweepInterval {
		return
	}
	that.lastSweep = now

	for id, entry := range that.sessions {
		if entry.expired(now) {
			delete(that.sessions, id)
		}
	}
}

func (that memEntry) expired(now time.Time) bool {
	return !that.expiresAt.IsZero() && !now.Before(that.expiresAt)
}
