package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lukeod/netprint/datamodel"
	"github.com/lukeod/netprint/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const streamWriteTimeout = 5 * time.Second

// streamMessage is one frame of the discovery stream.
type streamMessage struct {
	Type    string                     `json:"type"` // printer, done or error
	Printer *datamodel.PrinterEndpoint `json:"printer,omitempty"`
	Count   *int                       `json:"count,omitempty"`
	Error   string                     `json:"error,omitempty"`
}

// streamConn serialises writes and remembers the first write failure.
type streamConn struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	broken bool
}

func (c *streamConn) send(msg streamMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return
	}
	c.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		logger.Debug("Stream write failed", "error", err)
		c.broken = true
	}
}

// handlePrinterStream handles GET /api/printers/stream. Each endpoint is
// pushed as soon as it is found, followed by a done or error frame.
func (s *Server) handlePrinterStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client never sends anything; a failed read means it went away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	sc := &streamConn{conn: conn}
	printers, err := s.discoverer.DiscoverFunc(ctx, func(p datamodel.PrinterEndpoint) {
		sc.send(streamMessage{Type: "printer", Printer: &p})
	})
	if err != nil {
		logger.Error("Printer discovery failed", "error", err)
		sc.send(streamMessage{Type: "error", Error: msgDiscoveryFailed})
	} else {
		count := len(printers)
		sc.send(streamMessage{Type: "done", Count: &count})
	}

	sc.mu.Lock()
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	sc.mu.Unlock()
}
