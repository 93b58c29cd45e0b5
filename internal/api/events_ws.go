package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/christofluyten/rinlog/internal/events"
	"github.com/christofluyten/rinlog/internal/model"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

const (
	wsPingEvery = 20 * time.Second
	wsReadWait  = 60 * time.Second
	wsWriteWait = 5 * time.Second
)

// RunEventsWS streams the events of one run over a WebSocket. The first
// message is a run.status snapshot; the stream ends after run.finished.
func (s *Server) RunEventsWS(w http.ResponseWriter, r *http.Request, runID string) {
	ctx, tenant := s.withTenant(r)
	if _, err := s.Store.GetRun(ctx, tenant, runID); err != nil {
		s.storeProblem(w, r, "Run", err)
		return
	}
	// Subscribe before reading the status so that no transition is missed.
	ch := s.Broker.Subscribe(runID)
	defer s.Broker.Unsubscribe(runID, ch)
	run, err := s.Store.GetRun(ctx, tenant, runID)
	if err != nil {
		s.storeProblem(w, r, "Run", err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	write := func(evt events.Event) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(evt)
	}
	closeNormal := func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
	}

	if err := write(statusEvent(run)); err != nil {
		return
	}
	if run.Status == model.RunSucceeded || run.Status == model.RunFailed {
		closeNormal()
		return
	}

	// Read loop: only control frames are expected; it ends when the peer
	// goes away.
	gone := make(chan struct{})
	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadWait))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(wsReadWait)); return nil })
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := write(evt); err != nil {
				s.Log.Debug("ws write", zap.String("run", runID), zap.Error(err))
				return
			}
			if evt.Terminal() {
				closeNormal()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func statusEvent(run model.Run) events.Event {
	data := map[string]any{"runId": run.ID, "status": run.Status}
	if run.Result != nil {
		data["score"] = run.Result.Score
	}
	if run.Error != "" {
		data["error"] = run.Error
	}
	return events.Event{Type: events.RunStatus, Data: data}
}
