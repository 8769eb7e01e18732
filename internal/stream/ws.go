package stream

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"motoya/internal/domain"
)

const (
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Encoder turns a snapshot into the value written as JSON to the client.
type Encoder func(domain.Snapshot) any

// ServeWS upgrades the request and pushes every snapshot of sub to the client
// until the trip is released or the client goes away. initial is sent first
// so the client does not wait for the next change. The subscription is
// cancelled on return.
func ServeWS(w http.ResponseWriter, r *http.Request, sub *Subscription, initial domain.Snapshot, encode Encoder) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Unsubscribe()
		log.Printf("websocket upgrade failed for trip %s: %v", sub.TripID(), err)
		return
	}

	closed := make(chan struct{})
	go readPump(conn, closed)
	writePump(conn, sub, initial, encode, closed)
}

// readPump discards client messages and notices when the peer goes away.
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read error: %v", err)
			}
			return
		}
	}
}

func writePump(conn *websocket.Conn, sub *Subscription, initial domain.Snapshot, encode Encoder, closed <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		sub.Unsubscribe()
		_ = conn.Close()
	}()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(encode(initial)); err != nil {
		return
	}

	for {
		select {
		case s, ok := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "trip released"))
				return
			}
			if err := conn.WriteJSON(encode(s)); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-closed:
			return
		}
	}
}
