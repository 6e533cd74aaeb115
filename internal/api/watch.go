package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/JakeFAU/progress-service/internal/progress"
)

const (
	watchBuffer     = 32
	watchWriteWait  = 10 * time.Second
	watchPongWait   = 60 * time.Second
	watchPingPeriod = (watchPongWait * 9) / 10
	snapshotTimeout = 5 * time.Second

	snapshotKind = "progress.snapshot"
	errorKind    = "error"
)

// ChangeFeed hands out live change-event subscriptions.
type ChangeFeed interface {
	Subscribe(buffer int) (<-chan progress.ChangeEvent, func())
}

type watchMessage struct {
	Kind     string             `json:"type"`
	Document *progress.Document `json:"document,omitempty"`
	Error    string             `json:"error,omitempty"`
	TS       time.Time          `json:"at"`
}

func newUpgrader(allowedOrigin string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == allowedOrigin
		},
	}
}

// watchProgress handles GET /watchProgress. After the websocket upgrade it
// sends the current document as a snapshot, then one message per change.
func (s *Server) watchProgress(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	feed, unsubscribe := s.feed.Subscribe(watchBuffer)
	defer unsubscribe()

	peerGone := make(chan struct{})
	go readUntilClosed(conn, peerGone)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), snapshotTimeout)
	doc, err := s.svc.GetProgress(ctx)
	cancel()
	if err != nil {
		s.logger.Error("watch snapshot failed", zap.Error(err))
		s.writeWatch(conn, watchMessage{Kind: errorKind, Error: msgInternal, TS: time.Now().UTC()})
		return
	}
	if !s.writeWatch(conn, watchMessage{Kind: snapshotKind, Document: &doc, TS: time.Now().UTC()}) {
		return
	}

	ticker := time.NewTicker(watchPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case evt, ok := <-feed:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(watchWriteWait))
				return
			}
			if !s.writeWatch(conn, evt) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(watchWriteWait)); err != nil {
				return
			}
		case <-peerGone:
			return
		}
	}
}

func (s *Server) writeWatch(conn *websocket.Conn, payload any) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
	if err := conn.WriteJSON(payload); err != nil {
		s.logger.Debug("websocket write failed", zap.Error(err))
		return false
	}
	return true
}

// readUntilClosed drains client frames so control messages are processed and
// closes done once the peer goes away.
func readUntilClosed(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(watchPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(watchPongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
