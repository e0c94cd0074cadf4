package websocket

import (
	"github.com/gofiber/websocket/v2"
)

const (
	closeReasonMissingSession = "Missing sessionId"
	closeReasonShutdown       = "Server shutting down"
)

// ServeWs attaches a connection to the session's stream. Connections without
// a session id are closed with a policy violation.
func ServeWs(hub *Hub, c *websocket.Conn, sessionID string) {
	if sessionID == "" {
		c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, closeReasonMissingSession))
		c.Close()
		return
	}

	client := &Client{Hub: hub, Conn: c, SessionID: sessionID, Send: make(chan []byte, sendBuffer)}
	if !hub.join(client) {
		c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, closeReasonShutdown))
		c.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}
