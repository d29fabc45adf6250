package main

import (
	"fmt"
	"time"

	"github.com/juju/loggo"
)

// Transaction date format: "YYYYMMDD    HHMMSS", four blanks in the
// timezone positions (local wall-clock time).
const sipDateLayout = "20060102    150405"

var sipLogger = loggo.GetLogger("sip")

// sipDate returns the current wall-clock time as an 18-char SIP timestamp.
func sipDate() string {
	return time.Now().Format(sipDateLayout)
}

// sipbool encodes a flag as 'Y' or 'N'.
func sipbool(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}

// sipok encodes the transaction ok flag of the Checkin, Hold, Item
// Status Update and Renew All responses, which use '1'/'0' on the wire
// where other fixed fields use 'Y'/'N'.
func sipok(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// denied encodes the inverted-sense flags of the patron status string
// (bits 0-3): a patron who may charge gets ' ', one who may not gets 'Y'.
func denied(b bool) string {
	if b {
		return " "
	}
	return "Y"
}

// boolspace encodes the straight-sense flags of the patron status string
// (bits 4-13): 'Y' when set, ' ' when clear.
func boolspace(b bool) string {
	if b {
		return "Y"
	}
	return " "
}

// addField emits "{id}{value}{delimiter}". The field is emitted even when
// the value is empty; required response fields are always present.
func (s *Session) addField(id, value string) string {
	return id + value + string(s.Delimiter)
}

// maybeAdd emits the field only when the value is non-empty.
func (s *Session) maybeAdd(id, value string) string {
	if value == "" {
		return ""
	}
	return s.addField(id, value)
}

// addCount renders a zero-padded four-digit count for the fixed part of
// the Patron Information response. Counts that don't fit are clamped.
func addCount(label string, n int) string {
	if n < 0 {
		n = 0
	}
	if n > 9999 {
		sipLogger.Warningf("%s: count %d too large for SIP2 four-digit field", label, n)
		n = 9999
	}
	return fmt.Sprintf("%04d", n)
}

// checksum computes the four-hex-digit two's complement checksum over msg,
// such that the byte sum of msg plus the checksum's value is zero
// mod 0x10000.
func checksum(msg string) string {
	var sum uint16
	for i := 0; i < len(msg); i++ {
		sum += uint16(msg[i])
	}
	return fmt.Sprintf("%04X", -sum&0xFFFF)
}

// patronStatusString builds the 14-char status field shared by the Patron
// Status, Patron Information and Patron Enable responses. The first four
// flags have inverted sense on the wire ("charge privileges denied").
func patronStatusString(p Patron) string {
	return denied(p.ChargeOK()) +
		denied(p.RenewOK()) +
		denied(p.RecallOK()) +
		denied(p.HoldOK()) +
		boolspace(p.CardLost()) +
		boolspace(p.TooManyCharged()) +
		boolspace(p.TooManyOverdue()) +
		boolspace(p.TooManyRenewal()) +
		boolspace(p.TooManyClaimReturn()) +
		boolspace(p.TooManyLost()) +
		boolspace(p.ExcessiveFines()) +
		boolspace(p.ExcessiveFees()) +
		boolspace(p.RecallOverdue()) +
		boolspace(p.TooManyBilled())
}

// invalidPatronStatus is the status string emitted when the patron barcode
// is unknown: all four privileges denied, no flags raised.
const invalidPatronStatus = "YYYY" + "          "
