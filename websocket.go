package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"gregoryjjb/fireside/gpio"
)

const wsWriteTimeout = 5 * time.Second

type wsMessage struct {
	Type  string           `json:"type"`
	Pins  []gpio.PinStatus `json:"pins,omitempty"`
	Event *gpio.PinEvent   `json:"event,omitempty"`
}

// handleGPIOEvents streams a snapshot of every known pin, then one message
// per recorded pin change until the client goes away.
func (s *Server) handleGPIOEvents(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		srvlog().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer c.Close(websocket.StatusInternalError, "closing")

	// Subscribe before the snapshot so nothing falls in between
	unsub, events := s.gpio.Subscribe()
	defer unsub()

	// We never read from the client, but control frames still need handling
	ctx := c.CloseRead(r.Context())

	if err := writeJSON(ctx, c, wsMessage{Type: "snapshot", Pins: s.gpio.AllPinStates()}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			c.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-events:
			if !ok {
				c.Close(websocket.StatusGoingAway, "shutting down")
				return
			}
			if err := writeJSON(ctx, c, wsMessage{Type: "pin", Event: &ev}); err != nil {
				srvlog().Debug().Err(err).Msg("Websocket write failed, dropping client")
				return
			}
		}
	}
}

func writeJSON(ctx context.Context, c *websocket.Conn, msg wsMessage) error {
	js, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return writeTimeout(ctx, wsWriteTimeout, c, js)
}

func writeTimeout(ctx context.Context, timeout time.Duration, c *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return c.Write(ctx, websocket.MessageText, msg)
}
