package members

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/aelum-status/internal/common"
)

type fetchResult struct {
	feed *Feed
	err  error
}

// fakeFetcher отдаёт заранее заданные ответы по очереди.
type fakeFetcher struct {
	mu      sync.Mutex
	results []fetchResult
}

func (f *fakeFetcher) Fetch(ctx context.Context) (*Feed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return r.feed, r.err
}

// blockingFetcher держит каждый вызов, пока тест не отпустит его через release[i].
type blockingFetcher struct {
	started chan struct{}
	release []chan fetchResult
	n       atomic.Int32
}

func newBlockingFetcher(calls int) *blockingFetcher {
	f := &blockingFetcher{started: make(chan struct{}, calls)}
	for i := 0; i < calls; i++ {
		f.release = append(f.release, make(chan fetchResult, 1))
	}
	return f
}

func (f *blockingFetcher) Fetch(ctx context.Context) (*Feed, error) {
	i := f.n.Add(1) - 1
	f.started <- struct{}{}
	r := <-f.release[i]
	return r.feed, r.err
}

func feedOf(usernames ...string) *Feed {
	feed := &Feed{LastUpdated: Timestamp{time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}}
	for _, u := range usernames {
		feed.Members = append(feed.Members, Member{Username: u, RawStatus: "offline"})
	}
	return feed
}

func TestService_LoadUpdatesSnapshot(t *testing.T) {
	svc := NewService(&fakeFetcher{results: []fetchResult{{feed: &Feed{
		LastUpdated: Timestamp{time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		Members: []Member{
			{Username: "root", DisplayName: "Root", RawStatus: "admin"},
		},
	}}}})

	_, err := svc.Load(context.Background())
	require.NoError(t, err)

	snap := svc.Snapshot()
	assert.True(t, snap.Loaded)
	assert.Empty(t, snap.Error)
	assert.Equal(t, Counts{Total: 1, Admins: 1}, snap.Counts)
	assert.Equal(t, "10:00:00", FormatUpdated(snap.LastUpdated, time.UTC))

	rows := BuildRows(snap.Members, snap.LastUpdated, time.UTC)
	require.Len(t, rows, 1)
	assert.Equal(t, "Root", rows[0].DisplayName)
	assert.Equal(t, "admin", rows[0].StatusClass)
	assert.Equal(t, Placeholder, rows[0].LastSeen)
}

func TestService_StaleResponseDiscarded(t *testing.T) {
	f := newBlockingFetcher(2)
	svc := NewService(f)

	errA := make(chan error, 1)
	go func() {
		_, err := svc.Load(context.Background())
		errA <- err
	}()
	<-f.started

	errB := make(chan error, 1)
	go func() {
		_, err := svc.Load(context.Background())
		errB <- err
	}()
	<-f.started

	// Новый запрос завершается первым
	f.release[1] <- fetchResult{feed: feedOf("new")}
	require.NoError(t, <-errB)

	f.release[0] <- fetchResult{feed: feedOf("old")}
	assert.ErrorIs(t, <-errA, common.ErrStaleResponse)

	snap := svc.Snapshot()
	require.Len(t, snap.Members, 1)
	assert.Equal(t, "new", snap.Members[0].Username)
}

func TestService_FailureKeepsPreviousData(t *testing.T) {
	boom := errors.New("ошибка HTTP: 500")
	svc := NewService(&fakeFetcher{results: []fetchResult{
		{feed: feedOf("a", "b")},
		{err: boom},
		{feed: feedOf("c")},
	}})

	_, err := svc.Load(context.Background())
	require.NoError(t, err)

	_, err = svc.Load(context.Background())
	require.ErrorIs(t, err, boom)

	snap := svc.Snapshot()
	assert.Len(t, snap.Members, 2)
	assert.Equal(t, 2, snap.Counts.Total)
	assert.Equal(t, "ошибка HTTP: 500", snap.Error)

	// Удачная загрузка снимает ошибку
	_, err = svc.Load(context.Background())
	require.NoError(t, err)
	snap = svc.Snapshot()
	assert.Empty(t, snap.Error)
	assert.Len(t, snap.Members, 1)
}

func TestService_FirstLoadFailure(t *testing.T) {
	svc := NewService(&fakeFetcher{results: []fetchResult{{err: errors.New("нет сети")}}})

	svc.Refresh(context.Background())

	snap := svc.Snapshot()
	assert.False(t, snap.Loaded)
	assert.Empty(t, snap.Members)
	assert.Equal(t, "нет сети", snap.Error)
}

func TestService_Subscribe(t *testing.T) {
	svc := NewService(&fakeFetcher{results: []fetchResult{{feed: feedOf("a")}}})

	var got []Snapshot
	cancel := svc.Subscribe(func(s Snapshot) { got = append(got, s) })

	svc.Refresh(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Counts.Total)

	cancel()
	svc.Refresh(context.Background())
	assert.Len(t, got, 1)
}

func TestService_CancelDoesNotSetError(t *testing.T) {
	svc := NewService(&fakeFetcher{results: []fetchResult{
		{feed: feedOf("a")},
		{err: context.Canceled},
	}})

	_, err := svc.Load(context.Background())
	require.NoError(t, err)
	_, err = svc.Load(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	snap := svc.Snapshot()
	assert.Empty(t, snap.Error)
	assert.Len(t, snap.Members, 1)
}

func TestService_NotifySkipsOlderSnapshots(t *testing.T) {
	svc := NewService(&fakeFetcher{})

	var got []string
	svc.Subscribe(func(s Snapshot) { got = append(got, s.Error) })

	// более новая загрузка успела разослать результат раньше старой
	svc.notify(Snapshot{Error: "новая"}, 2)
	svc.notify(Snapshot{Error: "старая"}, 1)
	svc.notify(Snapshot{Error: "следующая"}, 3)

	assert.Equal(t, []string{"новая", "следующая"}, got)
}
