package main

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestStatusEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(statusHandler))
	defer srv.Close()

	before := srvMetrics.RequestsHandled.Count()
	srvMetrics.RequestsHandled.Inc(3)

	r, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Body.Close()

	if ct := r.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type => %q; want application/json", ct)
	}

	b, err := ioutil.ReadAll(r.Body)
	if err != nil {
		t.Fatal(err)
	}
	status := exportMetrics{}
	if err := json.Unmarshal(b, &status); err != nil {
		t.Fatal(err)
	}

	if status.RequestsHandled != before+3 {
		t.Errorf("status.RequestsHandled => %v, expected %v", status.RequestsHandled, before+3)
	}
	if status.PID == 0 {
		t.Error("status.PID => 0, expected the server process id")
	}
	if status.UpTime == "" {
		t.Error("status.UpTime is empty")
	}
}

func TestWebsocketMonitor(t *testing.T) {
	uiHub = newHub()
	go uiHub.run()

	srv := httptest.NewServer(http.HandlerFunc(wsHandler))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	// Give the handler a moment to register the connection with the hub.
	time.Sleep(time.Millisecond * 10)

	uiHub.broadcast <- TxEvent{
		Terminal: "127.0.0.1",
		Request:  msgCheckout,
		Response: respCheckout,
		Name:     "Checkout",
	}

	var e TxEvent
	if err := ws.ReadJSON(&e); err != nil {
		t.Fatal(err)
	}
	if e.Request != msgCheckout || e.Response != respCheckout {
		t.Errorf("broadcast event => %+v; want the checkout exchange", e)
	}
	if e.Name != "Checkout" {
		t.Errorf("event name => %q; want %q", e.Name, "Checkout")
	}
}
