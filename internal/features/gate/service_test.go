package gate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/aelum-status/internal/storage"
)

func newTestService(store storage.Store, opts ...Option) *Service {
	base := []Option{WithClock(stepClock(time.Second)), WithSleep(noSleep)}
	return NewService(testConfig(), store, append(base, opts...)...)
}

func TestService_GateIsPerSession(t *testing.T) {
	ctx := context.Background()
	s := newTestService(storage.NewMemory())

	a1, err := s.Gate(ctx, "a")
	require.NoError(t, err)
	a2, err := s.Gate(ctx, "a")
	require.NoError(t, err)
	b, err := s.Gate(ctx, "b")
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.Equal(t, 2, s.Len())
}

func TestService_IsVerified(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	s := newTestService(store)

	ok, err := s.IsVerified(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len(), "IsVerified не создаёт экземпляр")

	g, err := s.Gate(ctx, "a")
	require.NoError(t, err)
	res, err := g.Submit(ctx, g.Challenge())
	require.NoError(t, err)
	require.True(t, res.Granted)

	ok, err = s.IsVerified(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	// Флаг из хранилища виден и без экземпляра в памяти
	require.NoError(t, store.Set(ctx, "b", VerifiedKey, "true"))
	ok, err = s.IsVerified(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestService_ResetUnblocks(t *testing.T) {
	ctx := context.Background()
	s := newTestService(storage.NewMemory())

	g, err := s.Gate(ctx, "a")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := g.Submit(ctx, wrongCode())
		require.NoError(t, err)
	}
	require.Equal(t, StateBlocked, g.State())

	require.NoError(t, s.Reset(ctx, "a"))

	g2, err := s.Gate(ctx, "a")
	require.NoError(t, err)
	assert.NotSame(t, g, g2)
	assert.Equal(t, StateUnverified, g2.State())
	assert.Equal(t, 5, g2.AttemptsLeft())
}

func TestService_PurgeIdle(t *testing.T) {
	ctx := context.Background()
	s := newTestService(storage.NewMemory())
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_, err := s.Gate(ctx, "old")
	require.NoError(t, err)
	now = now.Add(3 * time.Hour)
	_, err = s.Gate(ctx, "fresh")
	require.NoError(t, err)

	dropped, err := s.PurgeIdle(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 1, s.Len())
}

func TestService_TouchKeepsSessionAlive(t *testing.T) {
	ctx := context.Background()
	s := newTestService(storage.NewMemory())
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_, err := s.Gate(ctx, "dashboard")
	require.NoError(t, err)
	now = now.Add(3 * time.Hour)
	assert.True(t, s.Touch("dashboard"))
	assert.False(t, s.Touch("unknown"))

	dropped, err := s.PurgeIdle(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.Equal(t, 1, s.Len())
}

func TestService_RestoredGrantRunsHooks(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.Set(ctx, "a", VerifiedKey, "true"))

	calls := 0
	s := newTestService(store, WithGrantHooks(func() { calls++ }))

	g, err := s.Gate(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, StateGranted, g.State())
	assert.Equal(t, 1, calls)

	_, err = s.Gate(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "хуки запускаются только при создании экземпляра")

	_, err = s.Gate(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
