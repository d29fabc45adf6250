package main

// Session holds the per-connection protocol state. It is owned by the
// connection's goroutine and never shared, so no locking is needed. The
// zero state of a session speaks SIP 1.00 with error detection off; the
// first Login message or an SC Status request upgrades the version, and
// the first AY/AZ trailer (or a bare resend demand) switches error
// detection on.
type Session struct {
	Delimiter      byte
	ErrorDetection bool
	Protocol       string // protocolV1 or protocolV2
	Account        *Account
	LastResponse   string

	// Sequence digit of the current inbound frame, echoed on the
	// response trailer.
	seq byte

	// Set after the first frame has been parsed; the Login version
	// upgrade only applies to a session in its initial state.
	started bool

	ils ILS
	cfg *config
}

func newSession(cfg *config, ils ILS) *Session {
	return &Session{
		Delimiter: cfg.delimiterByte(),
		Protocol:  protocolV1,
		seq:       '0',
		ils:       ils,
		cfg:       cfg,
	}
}

// loginRequired reports whether the connection loop must refuse to
// dispatch circulation handlers until a Login succeeds. Servers with no
// configured accounts run open, like an ACS fronted by a trusted
// transport.
func (s *Session) loginRequired() bool {
	return len(s.cfg.Accounts) > 0 && s.Account == nil
}
