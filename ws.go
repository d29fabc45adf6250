package main

import (
	"github.com/gorilla/websocket"
	"github.com/juju/loggo"
)

var wsLogger = loggo.GetLogger("ws")

// uiConn is one connected monitoring UI.
type uiConn struct {
	ws   *websocket.Conn
	send chan TxEvent
}

func (c *uiConn) writer() {
	for event := range c.send {
		err := c.ws.WriteJSON(event)
		if err != nil {
			break
		}
	}
}

func (c *uiConn) reader() {
	// The monitor is observe-only; inbound messages are drained until
	// the peer goes away.
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			break
		}
	}
}

// wsHub fans transaction events out to every connected monitoring UI.
type wsHub struct {
	connections map[*uiConn]bool
	uiReg       chan *uiConn // Register connection
	uiUnReg     chan *uiConn // Unregister connection

	broadcast chan TxEvent // Broadcast to all connected UIs
}

func newHub() *wsHub {
	return &wsHub{
		connections: make(map[*uiConn]bool),
		uiReg:       make(chan *uiConn),
		uiUnReg:     make(chan *uiConn),
		broadcast:   make(chan TxEvent),
	}
}

func (h *wsHub) run() {
	for {
		select {
		case c := <-h.uiReg:
			h.connections[c] = true
			wsLogger.Infof("WS   Connected")
		case c := <-h.uiUnReg:
			if _, ok := h.connections[c]; !ok {
				break
			}
			delete(h.connections, c)
			close(c.send)
			wsLogger.Infof("WS   Disconnected")
		case event := <-h.broadcast:
			wsLogger.Infof("-> UI %+v", event)
			for c := range h.connections {
				select {
				case c.send <- event:
				default:
					close(c.send)
					delete(h.connections, c)
				}
			}
		}
	}
}
