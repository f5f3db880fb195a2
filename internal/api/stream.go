package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"shiptrack/internal/session"
)

const (
	heartbeatInterval = 15 * time.Second
	wsPongWait        = 60 * time.Second
	wsPingInterval    = 20 * time.Second
	wsWriteWait       = 10 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// snapshot is the first event of every stream: the session as it is now.
func snapshot(sess *session.Session) SSEEvent {
	data := map[string]any{"sessionId": sess.ID, "version": sess.Version()}
	if a, err := sess.Analyze(); err == nil {
		data["digest"] = a.Digest
		data["status"] = a.Status
		data["compared"] = a.Compared
		data["alerts"] = len(a.Alerts)
		data["differences"] = len(a.Differences)
	}
	return SSEEvent{Type: EventAnalysisUpdated, Data: data}
}

// SessionStreamHandler streams session events as server-sent events.
func (s *Server) SessionStreamHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.Broker.Subscribe(sess.ID)
	defer s.Broker.Unsubscribe(sess.ID, ch)

	writeSSE(w, snapshot(sess))
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, evt)
			flusher.Flush()
			if evt.Type == EventSessionDeleted {
				return
			}
		case <-ticker.C:
			writeSSE(w, SSEEvent{Type: "heartbeat", Data: map[string]any{
				"sessionId": sess.ID,
				"ts":        time.Now().UTC().Format(time.RFC3339),
			}})
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, evt SSEEvent) {
	b, _ := json.Marshal(evt.Data)
	fmt.Fprintf(w, "event: %s\n", evt.Type)
	fmt.Fprintf(w, "data: %s\n\n", b)
}

// SessionWSHandler streams the same events over a WebSocket. Clients only
// need to answer pings; anything they send is read and discarded.
func (s *Server) SessionWSHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()
	logger := sessionLogger(s.Logger, sess.ID)

	ch := s.Broker.Subscribe(sess.ID)
	defer s.Broker.Unsubscribe(sess.ID, ch)

	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(wsPongWait)) })

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(evt SSEEvent) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(evt)
	}
	if err := write(snapshot(sess)); err != nil {
		return
	}

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := write(evt); err != nil {
				logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
			if evt.Type == EventSessionDeleted {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session deleted"),
					time.Now().Add(wsWriteWait))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
