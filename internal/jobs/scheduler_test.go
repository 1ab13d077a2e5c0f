package jobs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/aelum-status/internal/features/members"
)

type countingRefresher struct {
	calls atomic.Int32
}

func (r *countingRefresher) Refresh(ctx context.Context) {
	r.calls.Add(1)
}

type fakePurger struct {
	calls  atomic.Int32
	remain atomic.Int32
}

func (p *fakePurger) PurgeIdle(ctx context.Context, ttl time.Duration) (int, error) {
	p.calls.Add(1)
	return 0, nil
}

func (p *fakePurger) Len() int {
	return int(p.remain.Load())
}

func TestScheduler_AutoRefreshNotDuplicated(t *testing.T) {
	s := NewScheduler(time.UTC, &countingRefresher{}, &fakePurger{}, 30*time.Second, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	require.NoError(t, s.StartAutoRefresh(ctx))
	require.NoError(t, s.StartAutoRefresh(ctx))
	require.NoError(t, s.StartAutoRefresh(ctx))

	// одна очистка + одно автообновление
	assert.Len(t, s.cron.Entries(), 2)
	assert.True(t, s.AutoRefreshEnabled())

	s.StopAutoRefresh()
	assert.Len(t, s.cron.Entries(), 1)
	assert.False(t, s.AutoRefreshEnabled())

	// повторная остановка ничего не ломает
	s.StopAutoRefresh()
	assert.Len(t, s.cron.Entries(), 1)
}

func TestScheduler_StartIsIdempotent(t *testing.T) {
	s := NewScheduler(time.UTC, &countingRefresher{}, &fakePurger{}, time.Minute, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	assert.Len(t, s.cron.Entries(), 1)
}

func TestScheduler_RefreshRuns(t *testing.T) {
	r := &countingRefresher{}
	s := NewScheduler(time.UTC, r, nil, time.Second, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	defer s.Stop()
	require.NoError(t, s.StartAutoRefresh(ctx))

	assert.Eventually(t, func() bool { return r.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_CleanupStopsRefreshWithoutSessions(t *testing.T) {
	p := &fakePurger{}
	p.remain.Store(2)
	s := NewScheduler(time.UTC, &countingRefresher{}, p, time.Minute, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.StartAutoRefresh(ctx))

	s.cleanup(ctx)
	assert.True(t, s.AutoRefreshEnabled(), "сессии ещё есть")

	p.remain.Store(0)
	s.cleanup(ctx)
	assert.False(t, s.AutoRefreshEnabled())
	assert.EqualValues(t, 2, p.calls.Load())
}

func TestScheduler_FeedErrorsDoNotStopRefresh(t *testing.T) {
	var hits atomic.Int32
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer feed.Close()

	statuses := members.NewService(members.NewRepository(feed.URL, time.Second))
	s := NewScheduler(time.UTC, statuses, nil, time.Second, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	defer s.Stop()
	require.NoError(t, s.StartAutoRefresh(ctx))

	// после первой ошибки таймер продолжает ходить в источник
	assert.Eventually(t, func() bool { return hits.Load() >= 3 }, 6*time.Second, 50*time.Millisecond)
	assert.True(t, s.AutoRefreshEnabled())

	snap := statuses.Snapshot()
	assert.False(t, snap.Loaded)
	assert.Contains(t, snap.Error, "500")
}
