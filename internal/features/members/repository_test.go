package members

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `{
  "last_updated": "2024-05-01T10:00:00Z",
  "members": [
    {"username": "root", "display_name": "Root", "avatar": "", "status": "admin", "last_seen": null}
  ]
}`

func TestRepository_FetchOK(t *testing.T) {
	var gotQuery, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("t")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	repo := NewRepository(srv.URL+"/stat.json", time.Second)
	repo.now = func() time.Time { return time.UnixMilli(1714557600123) }

	feed, err := repo.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "1714557600123", gotQuery)
	assert.Equal(t, "application/json", gotAccept)
	require.Len(t, feed.Members, 1)
	assert.Equal(t, "root", feed.Members[0].Username)
	assert.Equal(t, StatusAdmin, feed.Members[0].Status())
	assert.True(t, feed.Members[0].LastSeen.IsZero())
	assert.True(t, feed.LastUpdated.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
}

func TestRepository_KeepsExistingQuery(t *testing.T) {
	var got map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		_, _ = w.Write([]byte(`{"last_updated":null,"members":[]}`))
	}))
	defer srv.Close()

	repo := NewRepository(srv.URL+"/stat.json?chat=aelum", time.Second)
	_, err := repo.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"aelum"}, got["chat"])
	assert.Len(t, got["t"], 1)
}

func TestRepository_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewRepository(srv.URL, time.Second).Fetch(context.Background())
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
	assert.Equal(t, "ошибка HTTP: 500", err.Error())
}

func TestRepository_ParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	_, err := NewRepository(srv.URL, time.Second).Fetch(context.Background())
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestRepository_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRepository(srv.URL, time.Second).Fetch(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRepository_ZonelessTimestamps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
  "last_updated": "2024-01-01T10:00:00",
  "members": [
    {"username": "a", "status": "active", "last_seen": "2024-01-01T09:00:00.123456"},
    {"username": "b", "status": "offline", "last_seen": "2024-01-01 09:00:00+00:00"}
  ]
}`))
	}))
	defer srv.Close()

	feed, err := NewRepository(srv.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, feed.Members, 2)
	assert.True(t, feed.LastUpdated.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, 9, feed.Members[0].LastSeen.Hour())
	assert.True(t, feed.Members[1].LastSeen.Equal(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)))
}
