package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

// statusHandler exposes the server metrics as JSON.
func statusHandler(w http.ResponseWriter, r *http.Request) {
	b, err := json.Marshal(srvMetrics.Export())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}

// wsHandler upgrades a monitoring UI connection and registers it with
// the hub.
func wsHandler(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Upgrade(w, r, nil, 1024, 1024)
	if _, ok := err.(websocket.HandshakeError); ok {
		http.Error(w, "Not a websocket handshake", 400)
		return
	} else if err != nil {
		return
	}

	c := &uiConn{send: make(chan TxEvent, 8), ws: ws}
	uiHub.uiReg <- c
	defer func() {
		uiHub.uiUnReg <- c
	}()
	go c.writer()
	c.reader()
}
