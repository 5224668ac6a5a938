package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jrlabs/appforge/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The UI shell is served from arbitrary local origins during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 10 * time.Second

// LogsWSHandler streams activity feed entries to the client as they
// happen. Entries already in the buffer are replayed first so a freshly
// opened panel is not empty.
func (h *APIHandler) LogsWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	entries, cancel := h.actx.Subscribe()
	defer cancel()

	for _, e := range h.actx.Recent(50) {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(e); err != nil {
			return
		}
	}

	// Reader goroutine: we never expect client messages, but reading is
	// what surfaces the close frame.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case e, ok := <-entries:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
