package main

import (
	"fmt"
	"strings"
)

// Message is a parsed SIP request: the two-character code, the fixed
// positional fields sliced per the schema, and the recognized variable
// fields. Unset variable fields have no map entry.
type Message struct {
	Code   string
	Name   string
	Fixed  []string
	Fields map[string]string

	handler handlerFunc
}

// Field returns the value of a variable field, or "" when it was absent.
func (m *Message) Field(fid string) string {
	return m.Fields[fid]
}

// HasField reports whether the field was present on the wire, which
// matters for fields like the patron password where absence and emptiness
// differ.
func (m *Message) HasField(fid string) bool {
	_, ok := m.Fields[fid]
	return ok
}

// parseRequest turns a raw frame (trailer already stripped) into a parsed
// message using the schema for the session's protocol version. A frame
// that cannot be matched to a schema is dropped with a warning; the
// connection stays up.
func parseRequest(frame string, s *Session) (*Message, error) {
	if len(frame) < 2 {
		return nil, fmt.Errorf("frame too short to carry a message code: %q", frame)
	}
	code := frame[:2]

	// A session whose first message is a Login is speaking SIP2.
	if !s.started && code == msgLogin {
		s.Protocol = protocolV2
	}
	s.started = true

	mt, ok := handlers[code]
	if !ok {
		return nil, fmt.Errorf("unknown message code %q", code)
	}
	sch := mt.protocol[s.Protocol]
	if sch == nil {
		return nil, fmt.Errorf("message %q (%s) not supported under protocol %s",
			code, mt.name, s.Protocol)
	}

	body := frame[2:]
	if len(body) < sch.length {
		return nil, fmt.Errorf("message %q (%s): fixed part truncated, have %d bytes, need %d",
			code, mt.name, len(body), sch.length)
	}

	m := &Message{
		Code:    code,
		Name:    mt.name,
		Fields:  make(map[string]string),
		handler: mt.handler,
	}

	off := 0
	for _, w := range templateWidths(sch.template) {
		m.Fixed = append(m.Fixed, body[off:off+w])
		off += w
	}

	for off < len(body) {
		if off+2 > len(body) {
			sipLogger.Warningf("%s: dangling byte %q after last field, ignored", mt.name, body[off:])
			break
		}
		fid := body[off : off+2]
		off += 2

		var value string
		if i := strings.IndexByte(body[off:], s.Delimiter); i >= 0 {
			value = body[off : off+i]
			off += i + 1
		} else {
			value = body[off:]
			off = len(body)
			sipLogger.Warningf("%s: field %s not terminated by %q, taking rest of frame", mt.name, fid, s.Delimiter)
		}

		if !sch.allowed(fid) {
			sipLogger.Warningf("%s: unrecognized field %s%q, skipped", mt.name, fid, value)
			continue
		}
		if _, dup := m.Fields[fid]; dup {
			sipLogger.Warningf("%s: duplicate field %s, keeping first value", mt.name, fid)
			continue
		}
		m.Fields[fid] = value
	}

	return m, nil
}
