package chi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	doming "github.com/kailas-cloud/fedsearch/internal/domain/ingest"
	"github.com/kailas-cloud/fedsearch/internal/logger"
)

// ProgressStream handles GET /upload-{csv|json}/progress/{collectionName}
// as a server-sent event stream. Each event carries one JSON snapshot; the
// stream ends after the snapshot with done=true.
func (s *Server) ProgressStream(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	snaps, err := s.svc.Ingest.Subscribe(ctx, chi.URLParam(r, "collectionName"))
	if err != nil {
		handleError(w, r, s.errorHandlers, err)
		return
	}

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	heartbeat := time.NewTicker(s.opts.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			if err := writeEvent(w, snap); err != nil {
				logger.FromContext(ctx).Debug("Progress stream closed", zap.Error(err))
				return
			}
		case <-heartbeat.C:
			if _, err := io.WriteString(w, ": heartbeat\n\n"); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w io.Writer, snap doming.Snapshot) error {
	data, err := json.Marshal(progressFromDomain(snap))
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// ProgressSocket handles GET /upload-{csv|json}/progress/{collectionName}/ws.
// It sends the same snapshots as ProgressStream as text messages and closes
// with a normal closure once the job is done.
func (s *Server) ProgressSocket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	snaps, err := s.svc.Ingest.Subscribe(ctx, chi.URLParam(r, "collectionName"))
	if err != nil {
		handleError(w, r, s.errorHandlers, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		return
	}
	defer func() { _ = conn.Close() }()

	// the read side only handles control frames and notices the client leaving
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(min(s.opts.Heartbeat, wsPingPeriod))
	defer ping.Stop()

	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
				return
			}
			data, err := json.Marshal(progressFromDomain(snap))
			if err != nil {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.FromContext(ctx).Debug("Progress socket closed", zap.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
