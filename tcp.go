package main

import (
	"bufio"
	"net"
	"strings"
	"time"

	"github.com/juju/loggo"
)

var tcpLogger = loggo.GetLogger("tcp")

// TxEvent describes one handled SIP exchange, broadcast to monitoring
// UIs.
type TxEvent struct {
	Terminal string // IP of the SC
	Request  string // two-char request code, "" if the frame was dropped
	Response string // two-char response code, "" if no response was sent
	Name     string // display name of the request message
}

// TCPServer listens for and accepts connections from self-check
// terminals.
type TCPServer struct {
	listenAddr  string              // Host:port to listen at
	connections map[string]*SCConn  // Keyed by the terminal's remote address
	addChan     chan *SCConn        // Register a terminal connection
	rmChan      chan *SCConn        // Remove a terminal connection
	cfg         *config
	ils         ILS

	// Channel to broadcast transaction events to (normally handled by
	// the websocket hub)
	broadcast chan TxEvent
}

func newTCPServer(cfg *config, ils ILS) *TCPServer {
	return &TCPServer{
		connections: make(map[string]*SCConn),
		listenAddr:  ":" + cfg.TCPPort,
		addChan:     make(chan *SCConn),
		rmChan:      make(chan *SCConn),
		broadcast:   make(chan TxEvent),
		cfg:         cfg,
		ils:         ils,
	}
}

// run listens for and accepts incoming connections. It is meant to run
// in its own goroutine.
func (srv *TCPServer) run() {
	ln, err := net.Listen("tcp", srv.listenAddr)
	if err != nil {
		tcpLogger.Errorf(err.Error())
		panic("Can't start SIP TCP-server. Exiting.")
	}
	defer ln.Close()

	go srv.trackConnections()

	for {
		conn, err := ln.Accept()
		if err != nil {
			tcpLogger.Warningf(err.Error())
			continue
		}
		go srv.handleConnection(conn)
	}
}

// trackConnections owns the connection registry; terminals come and go
// on the add/rm channels.
func (srv *TCPServer) trackConnections() {
	for {
		select {
		case sc := <-srv.addChan:
			// Terminals may share an IP (NAT, terminal concentrators), so
			// the key is the full remote address and every connection gets
			// its own session.
			tcpLogger.Infof("SC connected from %v", sc.conn.RemoteAddr())
			srv.connections[sc.conn.RemoteAddr().String()] = sc
			srvMetrics.ClientsConnected.Inc(1)
		case sc := <-srv.rmChan:
			tcpLogger.Infof("SC disconnected %v", sc.conn.RemoteAddr())
			delete(srv.connections, sc.conn.RemoteAddr().String())
			srvMetrics.ClientsConnected.Dec(1)
		}
	}
}

func (srv *TCPServer) handleConnection(c net.Conn) {
	sc := &SCConn{
		conn:    c,
		session: newSession(srv.cfg, srv.ils),
		events:  srv.broadcast,
	}
	defer c.Close()

	srv.addChan <- sc

	defer func() {
		srv.rmChan <- sc
	}()

	sc.serve()
}

// SCConn couples one terminal connection to its session state. The
// session is owned by this connection's goroutine; SIP is half-duplex,
// so requests are served strictly one at a time.
type SCConn struct {
	conn    net.Conn
	session *Session
	events  chan TxEvent
}

// serve reads frames until the terminal hangs up, a read or write fails,
// or the idle timeout elapses. Every frame goes through the envelope,
// the parser and the dispatcher; malformed frames are dropped without
// closing the connection.
func (sc *SCConn) serve() {
	ip := addr2IP(sc.conn.RemoteAddr().String())
	r := bufio.NewReader(sc.conn)
	w := bufio.NewWriter(sc.conn)

	for {
		if t := sc.session.cfg.IdleTimeout; t > 0 {
			sc.conn.SetReadDeadline(time.Now().Add(time.Duration(t) * time.Second))
		}
		frame, err := r.ReadString('\r')
		if err != nil {
			tcpLogger.Infof("SC[%v] read ended: %v", ip, err)
			return
		}
		// Tolerate terminals that terminate with CRLF: the stray LF
		// shows up in front of the next frame.
		frame = strings.TrimLeft(strings.TrimSuffix(frame, "\r"), "\n")
		if frame == "" {
			continue
		}
		tcpLogger.Infof("<- SC[%v] %q", ip, frame)

		out, code := sc.session.Service(frame, "")
		respCode := ""
		if out != "" {
			if _, err = w.WriteString(out); err == nil {
				err = w.Flush()
			}
			if err != nil {
				tcpLogger.Warningf("SC[%v] write failed: %v", ip, err)
				return
			}
			tcpLogger.Infof("-> SC[%v] %q", ip, out)
			if len(out) >= 2 {
				respCode = out[:2]
			}
			srvMetrics.RequestsHandled.Inc(1)
		}

		name := ""
		if mt, ok := handlers[code]; ok {
			name = mt.name
		}
		sc.events <- TxEvent{Terminal: ip, Request: code, Response: respCode, Name: name}
	}
}
