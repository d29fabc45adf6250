package main

import (
	"encoding/json"
	"io/ioutil"
)

// Account is a terminal login the SC authenticates with (Login message
// CN/CO fields).
type Account struct {
	Password    string
	ID          string
	Institution string

	// Width of the SC's receipt printer; print lines in ACS status
	// responses are truncated to this. 0 means unlimited.
	PrintWidth int
}

type config struct {
	// Port the SIP server listens on
	TCPPort string

	// Listening port of the HTTP status/websocket server
	HTTPPort string

	// Log errors & warnings to this file
	ErrorLogFile string

	// Loggo configuration string, e.g. "<root>=WARNING;sip=INFO"
	LogLevels string

	// Institution ID announced by the demo backend
	Institution string

	// Variable-field delimiter. One character; server-wide, since login
	// happens before an account is selected.
	Delimiter string

	// Timeout and Retries are advertised in ACS status responses.
	Timeout int
	Retries int

	// Close a connection after this many seconds without a request.
	// 0 disables the idle timeout.
	IdleTimeout int

	// Whether the ACS allows renewals via the SC
	Renewal bool

	// Terminal accounts keyed by login user id. With no accounts
	// configured the server runs open: no Login required.
	Accounts map[string]*Account
}

func (c *config) fromFile(file string) error {
	b, err := ioutil.ReadFile(file)
	if err != nil {
		return err
	}
	err = json.Unmarshal(b, c)
	if err != nil {
		return err
	}

	return nil
}

func (c *config) delimiterByte() byte {
	if c.Delimiter == "" {
		return '|'
	}
	return c.Delimiter[0]
}
