package transportadapter

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"holodeck1/logging"
	"holodeck1/timestream"
)

// Timeouts mirror the teacher's hardcoded WebSocket defaults
// (server/client.go's getWriteWait/getPongWait/getPingPeriod), kept as
// package constants here since per-socket tuning is outside simconfig's
// scope — the wire transport itself is a non-goal, this package only
// demonstrates the seam.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  maxMessageSize,
	WriteBufferSize: maxMessageSize,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Upgrade promotes an incoming HTTP request to a websocket connection,
// the server-side half of the demo seam.
func Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return upgrader.Upgrade(w, r, nil)
}

// Dial opens a websocket connection to a remote timeslice host, the
// client-side half of the demo seam.
func Dial(url string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	return conn, err
}

// Sink drains outbound periodically and writes each entry as a wire frame
// to conn (spec's "Timestream Sink"), generalizing server/client.go's
// writePump from "broadcast JSON to every client" to "forward one
// cosmos's outbound timestream to one peer". Runs until stop is closed
// (then sends a close frame) or a write fails, and closes conn on return.
func Sink(conn *websocket.Conn, outbound *timestream.Stream, stop <-chan struct{}) {
	ticker := time.NewTicker(writeWait / 2)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-stop:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			for _, e := range outbound.Drain() {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.BinaryMessage, encodeEntry(e)); err != nil {
					logging.Warn("transportadapter: sink write failed", map[string]interface{}{"error": err.Error()})
					return
				}
				e.Msg.Release()
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Source reads wire frames off conn and pushes each decoded entry onto
// inbound (spec's "Timestream Source"), the read-side counterpart of Sink.
// Runs until conn errors or closes, the same "break the loop, let the
// caller clean up" shape as server/client.go's readPump.
func Source(conn *websocket.Conn, inbound *timestream.Stream) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		kind, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn("transportadapter: source read failed", map[string]interface{}{"error": err.Error()})
			}
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}

		entry, err := decodeEntry(payload)
		if err != nil {
			logging.Warn("transportadapter: dropping malformed frame", map[string]interface{}{"error": err.Error()})
			continue
		}
		inbound.Push(entry)
	}
}
