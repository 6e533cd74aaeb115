package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/progress-service/internal/clock/system"
	"github.com/JakeFAU/progress-service/internal/events"
	"github.com/JakeFAU/progress-service/internal/events/sinks"
	"github.com/JakeFAU/progress-service/internal/progress"
	"github.com/JakeFAU/progress-service/internal/storage/memory"
)

func newWatchServer(t *testing.T) (*httptest.Server, *events.Hub) {
	t.Helper()

	broadcaster := sinks.NewBroadcaster()
	hub := events.NewHub(events.Config{BufferSize: 8, MaxBatchEvents: 1}, broadcaster)
	svc, err := progress.NewService(memory.NewStore(system.New()), progress.ServiceConfig{Emitter: hub})
	require.NoError(t, err)
	server, err := NewServer(svc, Options{Feed: broadcaster})
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts, hub
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/watchProgress"
}

func TestWatchProgressStreamsSnapshotAndChanges(t *testing.T) {
	t.Parallel()

	ts, hub := newWatchServer(t)
	header := http.Header{"Origin": []string{DefaultAllowedOrigin}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), header)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var snapshot map[string]any
	require.NoError(t, conn.ReadJSON(&snapshot))
	require.Equal(t, snapshotKind, snapshot["type"])
	require.Contains(t, snapshot, "document")

	post, err := http.Post(ts.URL+"/updateProgress", "application/json",
		bytes.NewBufferString(`{"category":"lower","value":4}`))
	require.NoError(t, err)
	require.NoError(t, post.Body.Close())
	require.Equal(t, http.StatusOK, post.StatusCode)

	var change progress.ChangeEvent
	require.NoError(t, conn.ReadJSON(&change))
	require.Equal(t, progress.ChangeIncrement, change.Kind)
	require.Equal(t, progress.CategoryLower, change.Category)
	require.InDelta(t, 4.0, change.Document.Lower, 1e-9)

	require.NoError(t, hub.Close(context.Background()))
	_, _, err = conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestWatchProgressRejectsForeignOrigin(t *testing.T) {
	t.Parallel()

	ts, hub := newWatchServer(t)
	defer func() { _ = hub.Close(context.Background()) }()

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWatchProgressDisabledWithoutFeed(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	rec := do(t, server.Handler(), http.MethodGet, "/watchProgress", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
