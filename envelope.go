package main

import "strconv"

// Trailer layout: "AY" + one sequence digit + "AZ" + four hex digits.
const trailerLen = 9

// hasTrailer reports whether the frame ends in an AY/AZ error-detection
// trailer. The trailer is identified purely by position, per the
// protocol: nine characters from the end, starting with "AY".
func hasTrailer(frame string) bool {
	return len(frame) > 11 &&
		frame[len(frame)-trailerLen:len(frame)-trailerLen+2] == "AY" &&
		frame[len(frame)-6:len(frame)-4] == "AZ"
}

// verifyCksum checks that the byte sum of the frame, trailing four hex
// checksum digits included by value, is zero mod 0x10000.
func verifyCksum(frame string) bool {
	if len(frame) < 4 {
		return false
	}
	payload, hexsum := frame[:len(frame)-4], frame[len(frame)-4:]
	want, err := strconv.ParseUint(hexsum, 16, 16)
	if err != nil {
		return false
	}
	var sum uint16
	for i := 0; i < len(payload); i++ {
		sum += uint16(payload[i])
	}
	return sum+uint16(want) == 0
}

// appendTrailer attaches "AY{seq}AZ{cksum}" to a response frame. The
// checksum covers the whole frame including the AY/AZ prefix.
func appendTrailer(resp string, seq byte) string {
	t := resp + "AY" + string(seq) + "AZ"
	return t + checksum(t)
}

// stripTrailer removes a trailing AY/AZ trailer if one is present.
// Resent messages carry no sequence number, so the resend handler sends
// the stored response through this first.
func stripTrailer(frame string) string {
	if hasTrailer(frame) {
		return frame[:len(frame)-trailerLen]
	}
	return frame
}

// Service consumes one inbound frame (terminating '\r' already removed)
// and returns the bytes to write back — empty when the frame was dropped —
// plus the code of the inbound message when one was recognized. The
// optional expected code short-circuits any other inbound message except
// a resend request, which is always honored; the unexpected code is still
// returned so the caller can account for it.
func (s *Session) Service(frame, expected string) (out string, code string) {
	switch {
	case frame == msgRequestACSResend:
		// Bare resend demand without a trailer. From here on the SC
		// is assumed to want error detection.
		s.ErrorDetection = true
	case hasTrailer(frame):
		s.ErrorDetection = true
		if !verifyCksum(frame) {
			sipLogger.Warningf("checksum failed on %q, requesting resend", frame)
			srvMetrics.ChecksumFailures.Inc(1)
			return respRequestSCResend + "\r", ""
		}
		s.seq = frame[len(frame)-7]
		frame = stripTrailer(frame)
	case s.ErrorDetection:
		sipLogger.Warningf("error detection enabled but frame %q has no trailer; disabling", frame)
		s.ErrorDetection = false
	}

	m, err := parseRequest(frame, s)
	if err != nil {
		sipLogger.Warningf("dropping frame: %v", err)
		return "", ""
	}

	if expected != "" && m.Code != expected && m.Code != msgRequestACSResend {
		sipLogger.Warningf("expected message %s, got %s (%s); not dispatching", expected, m.Code, m.Name)
		return "", m.Code
	}

	// Login gating: a server with configured accounts only serves Login,
	// SC Status and resend requests until a Login succeeds.
	if s.loginRequired() &&
		m.Code != msgLogin && m.Code != msgSCStatus && m.Code != msgRequestACSResend {
		sipLogger.Warningf("%s (%s) received before login; not dispatching", m.Code, m.Name)
		return "", m.Code
	}

	resp := m.handler(s, m)

	if m.Code == msgRequestACSResend {
		// Retransmissions bypass the envelope: no new trailer, and the
		// stored last response must not change.
		srvMetrics.ResendRequests.Inc(1)
		return resp + "\r", m.Code
	}

	if s.ErrorDetection {
		resp = appendTrailer(resp, s.seq)
	}
	s.LastResponse = resp
	return resp + "\r", m.Code
}
