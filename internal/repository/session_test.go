package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/timetravel-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/timetravel-tictactoe/internal/entity"
	"github.com/rocketscienceinc/timetravel-tictactoe/testing/suite"
)

type repoFactory func(t *testing.T) (context.Context, SessionRepository)

func memoryFactory(t *testing.T) (context.Context, SessionRepository) {
	t.Helper()

	return context.Background(), NewMemorySessionRepository(time.Minute)
}

func redisFactory(t *testing.T) (context.Context, SessionRepository) {
	t.Helper()

	ctx, st := suite.New(t)

	return ctx, NewSessionRepository(st.Storage, time.Minute)
}

func newTestSession(id string) *entity.Session {
	game := entity.Game{
		History: []entity.MoveRecord{
			{},
			{
				SequenceNumber: 1,
				Board:          entity.Board{entity.PlayerX},
				LastPlayer:     entity.PlayerX,
				Position:       entity.PositionOf(0),
			},
		},
		StepNumber: 1,
	}

	return entity.NewSession(id, game, time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))
}

func runSessionRepositoryTests(t *testing.T, newRepo repoFactory) {
	t.Run("CreateOrUpdate_Success", func(t *testing.T) {
		ctx, repo := newRepo(t)

		// Given: a session
		session := newTestSession("123")

		// When: CreateOrUpdate is called
		err := repo.CreateOrUpdate(ctx, session)

		// Then: no error should be returned
		require.NoError(t, err)
	})

	t.Run("GetByID_Success", func(t *testing.T) {
		ctx, repo := newRepo(t)

		// Given: a stored session
		session := newTestSession("123")
		require.NoError(t, repo.CreateOrUpdate(ctx, session))

		// When: GetByID is called with its ID
		retrieved, err := repo.GetByID(ctx, session.ID)

		// Then: the retrieved session should match the saved one
		require.NoError(t, err)
		assert.Equal(t, session.ID, retrieved.ID)
		assert.Equal(t, session.Game, retrieved.Game)
		assert.Equal(t, session.Ascending, retrieved.Ascending)
		assert.True(t, session.CreatedAt.Equal(retrieved.CreatedAt))
	})

	t.Run("GetByID_ReturnsLatestVersion", func(t *testing.T) {
		ctx, repo := newRepo(t)

		// Given: a session saved twice
		session := newTestSession("123")
		require.NoError(t, repo.CreateOrUpdate(ctx, session))

		session.Ascending = false
		session.Game.StepNumber = 0
		require.NoError(t, repo.CreateOrUpdate(ctx, session))

		// When: it is read back
		retrieved, err := repo.GetByID(ctx, session.ID)

		// Then: the second save wins
		require.NoError(t, err)
		assert.False(t, retrieved.Ascending)
		assert.Equal(t, 0, retrieved.Game.StepNumber)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		ctx, repo := newRepo(t)

		// When: GetByID is called with a non-existent ID
		retrieved, err := repo.GetByID(ctx, "9999999")

		// Then: ErrSessionNotFound should be returned
		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
		assert.Nil(t, retrieved)
	})

	t.Run("DeleteByID_Success", func(t *testing.T) {
		ctx, repo := newRepo(t)

		// Given: a stored session
		session := newTestSession("123")
		require.NoError(t, repo.CreateOrUpdate(ctx, session))

		// When: DeleteByID is called
		err := repo.DeleteByID(ctx, session.ID)

		// Then: it is gone
		require.NoError(t, err)

		_, err = repo.GetByID(ctx, session.ID)
		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})

	t.Run("DeleteByID_NotFound", func(t *testing.T) {
		ctx, repo := newRepo(t)

		// When: DeleteByID is called with a non-existent ID
		err := repo.DeleteByID(ctx, "9999999")

		// Then: ErrSessionNotFound should be returned
		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})
}

func TestMemorySessionRepository(t *testing.T) {
	runSessionRepositoryTests(t, memoryFactory)

	t.Run("Stored sessions are isolated from callers", func(t *testing.T) {
		ctx, repo := memoryFactory(t)

		// Given: a stored session
		session := newTestSession("123")
		require.NoError(t, repo.CreateOrUpdate(ctx, session))

		// When: both the original and a read copy are modified
		session.Game.History[1].Board[4] = entity.PlayerO
		retrieved, err := repo.GetByID(ctx, "123")
		require.NoError(t, err)
		retrieved.Game.StepNumber = 0

		// Then: the stored value is unchanged
		again, err := repo.GetByID(ctx, "123")
		require.NoError(t, err)
		assert.Equal(t, entity.EmptyCell, again.Game.History[1].Board[4])
		assert.Equal(t, 1, again.Game.StepNumber)
	})
}

func TestMemorySessionRepository_Expiry(t *testing.T) {
	ctx := context.Background()

	newRepo := func(ttl time.Duration) (*memSession, *time.Time) {
		clock := time.Date(2024, 5, 6, 7, 0, 0, 0, time.UTC)
		repo, ok := NewMemorySessionRepository(ttl).(*memSession)
		require.True(t, ok)
		repo.now = func() time.Time { return clock }

		return repo, &clock
	}

	t.Run("Session expires ttl after its last save", func(t *testing.T) {
		// Given: a session saved with a 10 minute ttl
		repo, clock := newRepo(10 * time.Minute)
		require.NoError(t, repo.CreateOrUpdate(ctx, newTestSession("123")))

		// When: it is saved again 8 minutes later
		*clock = clock.Add(8 * time.Minute)
		require.NoError(t, repo.CreateOrUpdate(ctx, newTestSession("123")))

		// Then: it outlives the first deadline
		*clock = clock.Add(8 * time.Minute)
		_, err := repo.GetByID(ctx, "123")
		require.NoError(t, err)

		// Then: it is gone once the refreshed ttl runs out
		*clock = clock.Add(2 * time.Minute)
		_, err = repo.GetByID(ctx, "123")
		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
		require.ErrorIs(t, repo.DeleteByID(ctx, "123"), apperror.ErrSessionNotFound)
	})

	t.Run("Expired sessions are swept on save", func(t *testing.T) {
		// Given: many sessions that have expired
		repo, clock := newRepo(time.Minute)
		for _, id := range []string{"a", "b", "c"} {
			require.NoError(t, repo.CreateOrUpdate(ctx, newTestSession(id)))
		}

		// When: another session is created after the ttl
		*clock = clock.Add(2 * time.Minute)
		require.NoError(t, repo.CreateOrUpdate(ctx, newTestSession("d")))

		// Then: only the new session is held
		assert.Len(t, repo.sessions, 1)
		assert.Contains(t, repo.sessions, "d")
	})

	t.Run("Zero ttl never expires", func(t *testing.T) {
		repo, clock := newRepo(0)
		require.NoError(t, repo.CreateOrUpdate(ctx, newTestSession("123")))

		*clock = clock.Add(365 * 24 * time.Hour)
		require.NoError(t, repo.CreateOrUpdate(ctx, newTestSession("456")))

		_, err := repo.GetByID(ctx, "123")
		require.NoError(t, err)
		assert.Len(t, repo.sessions, 2)
	})
}

func TestRedisSessionRepository(t *testing.T) {
	runSessionRepositoryTests(t, redisFactory)

	t.Run("Save sets the expiry", func(t *testing.T) {
		ctx, st := suite.New(t)
		repo := NewSessionRepository(st.Storage, time.Minute)

		// Given: a stored session
		require.NoError(t, repo.CreateOrUpdate(ctx, newTestSession("123")))

		// When: the key TTL is read
		ttl, err := st.Storage.TTL(ctx, sessionKeyPrefix+"123").Result()

		// Then: it is bounded by the configured TTL
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, time.Minute)
	})
}
