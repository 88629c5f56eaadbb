package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/timetravel-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/timetravel-tictactoe/internal/entity"
	"github.com/rocketscienceinc/timetravel-tictactoe/internal/tictactoe"
)

type sessionRepo interface {
	CreateOrUpdate(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	DeleteByID(ctx context.Context, id string) error
}

// Event is published after a session was changed or deleted.
type Event struct {
	Session *entity.Session
	Deleted bool
}

type Listener func(event Event)

// SessionManager hosts game engines for remote clients. It validates external
// input, runs the engine and stores the result. Mutations are serialized, so an
// engine never sees two operations at once.
type SessionManager struct {
	logger      *slog.Logger
	sessionRepo sessionRepo

	mu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []Listener

	now func() time.Time
}

func NewSessionManager(logger *slog.Logger, sessionRepo sessionRepo) *SessionManager {
	return &SessionManager{
		logger:      logger.With("component", "session_manager"),
		sessionRepo: sessionRepo,
		now:         time.Now,
	}
}

// Subscribe registers listener for every later change.
func (that *SessionManager) Subscribe(listener Listener) {
	that.listenersMu.Lock()
	defer that.listenersMu.Unlock()

	that.listeners = append(that.listeners, listener)
}

func (that *SessionManager) Create(ctx context.Context) (*entity.Session, error) {
	log := that.logger.With("method", "Create")

	session := entity.NewSession(uuid.NewString(), tictactoe.NewGame(), that.now())
	if err := that.sessionRepo.CreateOrUpdate(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	log.Info("session created", "session", session.ID)

	return session, nil
}

func (that *SessionManager) Get(ctx context.Context, id string) (*entity.Session, error) {
	session, err := that.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}

	return session, nil
}

// ApplyMove plays the next mark at index. A move on an occupied cell or a
// decided board is ignored and the session is returned as it was.
func (that *SessionManager) ApplyMove(ctx context.Context, id string, index int) (*entity.Session, error) {
	if index < 0 || index >= entity.BoardSize {
		return nil, fmt.Errorf("%w: %d", apperror.ErrInvalidCell, index)
	}

	return that.update(ctx, id, "ApplyMove", func(session *entity.Session) (bool, error) {
		next := tictactoe.ApplyMove(session.Game, index)
		if next.StepNumber == session.Game.StepNumber {
			return false, nil
		}

		session.Game = next

		return true, nil
	})
}

func (that *SessionManager) JumpTo(ctx context.Context, id string, step int) (*entity.Session, error) {
	return that.update(ctx, id, "JumpTo", func(session *entity.Session) (bool, error) {
		next, err := tictactoe.JumpTo(session.Game, step)
		if err != nil {
			return false, err
		}

		changed := next.StepNumber != session.Game.StepNumber
		session.Game = next

		return changed, nil
	})
}

// SetSortOrder stores the move-list order preference of the session.
func (that *SessionManager) SetSortOrder(ctx context.Context, id string, ascending bool) (*entity.Session, error) {
	return that.update(ctx, id, "SetSortOrder", func(session *entity.Session) (bool, error) {
		changed := session.Ascending != ascending
		session.Ascending = ascending

		return changed, nil
	})
}

func (that *SessionManager) Delete(ctx context.Context, id string) error {
	log := that.logger.With("method", "Delete")

	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.sessionRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}

	log.Info("session deleted", "session", id)
	that.publish(Event{Session: &entity.Session{ID: id}, Deleted: true})

	return nil
}

// update loads the session, runs mutate on it and saves it when mutate reports a change.
// Listeners are notified before the lock is released so they observe changes in order;
// they must not call back into the manager.
func (that *SessionManager) update(
	ctx context.Context,
	id, method string,
	mutate func(session *entity.Session) (bool, error),
) (*entity.Session, error) {
	log := that.logger.With("method", method, "session", id)

	that.mu.Lock()
	defer that.mu.Unlock()

	session, err := that.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}

	changed, err := mutate(session)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", method, err)
	}

	if !changed {
		log.Debug("nothing to change")
		return session, nil
	}

	session.UpdatedAt = that.now()
	if err = that.sessionRepo.CreateOrUpdate(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session %s: %w", id, err)
	}

	log.Debug("session updated", "step", session.Game.StepNumber)
	that.publish(Event{Session: session.Clone()})

	return session, nil
}

func (that *SessionManager) publish(event Event) {
	that.listenersMu.RLock()
	listeners := make([]Listener, len(that.listeners))
	copy(listeners, that.listeners)
	that.listenersMu.RUnlock()

	for _, listener := range listeners {
		listener(event)
	}
}
