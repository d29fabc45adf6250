package main

import "strconv"

// SIP protocol versions. Sessions start at 1.00 and are upgraded by the
// first Login message or by the version advertised in an SC Status
// request.
const (
	protocolV1 = "1.00"
	protocolV2 = "2.00"
)

// Request message codes (SC -> ACS).
const (
	msgBlockPatron      = "01"
	msgCheckin          = "09"
	msgCheckout         = "11"
	msgHold             = "15"
	msgItemInformation  = "17"
	msgItemStatusUpdate = "19"
	msgPatronStatus     = "23"
	msgPatronEnable     = "25"
	msgRenew            = "29"
	msgEndPatronSession = "35"
	msgFeePaid          = "37"
	msgPatronInfo       = "63"
	msgRenewAll         = "65"
	msgLogin            = "93"
	msgRequestACSResend = "97"
	msgSCStatus         = "99"
)

// Response message codes (ACS -> SC).
const (
	respCheckin         = "10"
	respCheckout        = "12"
	respHold            = "16"
	respItemInformation = "18"
	respItemStatusUpd   = "20"
	respPatronStatus    = "24"
	respPatronEnable    = "26"
	respRenew           = "30"
	respEndSession      = "36"
	respFeePaid         = "38"
	respPatronInfo      = "64"
	respRenewAll        = "66"
	respLogin           = "94"
	respRequestSCResend = "96"
	respACSStatus       = "98"
)

// Variable-length field IDs. The set is closed; IDs not in a message's
// schema are logged and skipped at parse time.
const (
	fidPatronID        = "AA"
	fidItemID          = "AB"
	fidTerminalPwd     = "AC"
	fidPatronPwd       = "AD"
	fidPatronName      = "AE"
	fidScreenMsg       = "AF"
	fidPrintLine       = "AG"
	fidDueDate         = "AH"
	fidTitleID         = "AJ"
	fidBlockedCardMsg  = "AL"
	fidLibraryName     = "AM"
	fidTerminalLocn    = "AN"
	fidInstID          = "AO"
	fidCurrentLocn     = "AP"
	fidPermanentLocn   = "AQ"
	fidHoldItems       = "AS"
	fidOverdueItems    = "AT"
	fidChargedItems    = "AU"
	fidFineItems       = "AV"
	fidSequenceNo      = "AY"
	fidChecksum        = "AZ"
	fidHomeAddr        = "BD"
	fidEmail           = "BE"
	fidHomePhone       = "BF"
	fidOwner           = "BG"
	fidCurrency        = "BH"
	fidCancel          = "BI"
	fidTransactionID   = "BK"
	fidValidPatron     = "BL"
	fidRenewedItems    = "BM"
	fidUnrenewedItems  = "BN"
	fidFeeAck          = "BO"
	fidStartItem       = "BP"
	fidEndItem         = "BQ"
	fidQueuePos        = "BR"
	fidPickupLocn      = "BS"
	fidFeeType         = "BT"
	fidRecallItems     = "BU"
	fidFeeAmount       = "BV"
	fidExpiration      = "BW"
	fidSupportedMsgs   = "BX"
	fidHoldType        = "BY"
	fidHoldItemsLmt    = "BZ"
	fidOverdueItemsLmt = "CA"
	fidChargedItemsLmt = "CB"
	fidFeeLmt          = "CC"
	fidUnavailHolds    = "CD"
	fidHoldQueueLen    = "CF"
	fidFeeID           = "CG"
	fidItemProps       = "CH"
	fidSecurityInhibit = "CI"
	fidRecallDate      = "CJ"
	fidMediaType       = "CK"
	fidSortBin         = "CL"
	fidHoldPickupDate  = "CM"
	fidLoginUID        = "CN"
	fidLoginPwd        = "CO"
	fidLocationCode    = "CP"
	fidValidPatronPwd  = "CQ"
	fidBirthdate       = "PB"
	fidPatronClass     = "PC"
)

// handlerFunc consumes a parsed request and the owning session and
// returns the response frame, without sequence/checksum trailer or
// terminating '\r' (the envelope adds those).
type handlerFunc func(s *Session, m *Message) string

// messageSchema describes the wire layout of one message under one
// protocol version: the fixed-field template and the variable fields
// recognized after it.
type messageSchema struct {
	template string
	length   int
	fields   []string
}

// messageType binds a message code to its display name, handler and
// per-version schemas.
type messageType struct {
	name     string
	handler  handlerFunc
	protocol map[string]*messageSchema
}

// schema constructs a messageSchema from a template string. 'C' is a
// single-character slot, "A<n>" a fixed-width text slot of n characters.
func schema(template string, fields ...string) *messageSchema {
	s := &messageSchema{template: template, fields: fields}
	for _, w := range templateWidths(template) {
		s.length += w
	}
	return s
}

// templateWidths expands a fixed-field template into slot widths.
// Example: "CCA18A18" -> [1 1 18 18].
func templateWidths(template string) []int {
	var widths []int
	for i := 0; i < len(template); {
		switch template[i] {
		case 'C':
			widths = append(widths, 1)
			i++
		case 'A':
			j := i + 1
			for j < len(template) && template[j] >= '0' && template[j] <= '9' {
				j++
			}
			n, _ := strconv.Atoi(template[i+1 : j])
			widths = append(widths, n)
			i = j
		default:
			// Schemas are declared below and covered by tests; an
			// unknown slot type is a programming error.
			panic("bad fixed-field template: " + template)
		}
	}
	return widths
}

// handlers is the closed message catalogue: every code the ACS accepts,
// with its fixed template and allowed variable fields per protocol
// version. The layout follows the SIP2 specification documents.
var handlers = map[string]*messageType{
	msgPatronStatus: {
		name:    "Patron Status Request",
		handler: handlePatronStatus,
		protocol: map[string]*messageSchema{
			protocolV1: schema("A3A18",
				fidInstID, fidPatronID, fidTerminalPwd, fidPatronPwd),
		},
	},
	msgCheckout: {
		name:    "Checkout",
		handler: handleCheckout,
		protocol: map[string]*messageSchema{
			protocolV1: schema("CCA18A18",
				fidInstID, fidPatronID, fidItemID, fidTerminalPwd),
			protocolV2: schema("CCA18A18",
				fidInstID, fidPatronID, fidItemID, fidTerminalPwd,
				fidItemProps, fidPatronPwd, fidFeeAck, fidCancel),
		},
	},
	msgCheckin: {
		name:    "Checkin",
		handler: handleCheckin,
		protocol: map[string]*messageSchema{
			protocolV1: schema("CA18A18",
				fidCurrentLocn, fidInstID, fidItemID, fidTerminalPwd),
			protocolV2: schema("CA18A18",
				fidCurrentLocn, fidInstID, fidItemID, fidTerminalPwd,
				fidItemProps, fidCancel),
		},
	},
	msgBlockPatron: {
		name:    "Block Patron",
		handler: handleBlockPatron,
		protocol: map[string]*messageSchema{
			protocolV1: schema("CA18",
				fidInstID, fidBlockedCardMsg, fidPatronID, fidTerminalPwd),
		},
	},
	msgSCStatus: {
		name:    "SC Status",
		handler: handleSCStatus,
		protocol: map[string]*messageSchema{
			protocolV1: schema("CA3A4"),
		},
	},
	msgRequestACSResend: {
		name:    "Request ACS Resend",
		handler: handleRequestACSResend,
		protocol: map[string]*messageSchema{
			protocolV1: schema(""),
		},
	},
	msgLogin: {
		name:    "Login",
		handler: handleLogin,
		protocol: map[string]*messageSchema{
			protocolV2: schema("A1A1",
				fidLoginUID, fidLoginPwd, fidLocationCode),
		},
	},
	msgPatronInfo: {
		name:    "Patron Info",
		handler: handlePatronInfo,
		protocol: map[string]*messageSchema{
			protocolV2: schema("A3A18A10",
				fidInstID, fidPatronID, fidTerminalPwd, fidPatronPwd,
				fidStartItem, fidEndItem),
		},
	},
	msgEndPatronSession: {
		name:    "End Patron Session",
		handler: handleEndPatronSession,
		protocol: map[string]*messageSchema{
			protocolV2: schema("A18",
				fidInstID, fidPatronID, fidTerminalPwd, fidPatronPwd),
		},
	},
	msgFeePaid: {
		name:    "Fee Paid",
		handler: handleFeePaid,
		protocol: map[string]*messageSchema{
			protocolV2: schema("A18A2A2A3",
				fidFeeAmount, fidInstID, fidPatronID, fidTerminalPwd,
				fidPatronPwd, fidFeeID, fidTransactionID),
		},
	},
	msgItemInformation: {
		name:    "Item Information",
		handler: handleItemInformation,
		protocol: map[string]*messageSchema{
			protocolV2: schema("A18",
				fidInstID, fidItemID, fidTerminalPwd),
		},
	},
	msgItemStatusUpdate: {
		name:    "Item Status Update",
		handler: handleItemStatusUpdate,
		protocol: map[string]*messageSchema{
			protocolV2: schema("A18",
				fidInstID, fidPatronID, fidItemID, fidTerminalPwd,
				fidItemProps),
		},
	},
	msgPatronEnable: {
		name:    "Patron Enable",
		handler: handlePatronEnable,
		protocol: map[string]*messageSchema{
			protocolV2: schema("A18",
				fidInstID, fidPatronID, fidTerminalPwd, fidPatronPwd),
		},
	},
	msgHold: {
		name:    "Hold",
		handler: handleHold,
		protocol: map[string]*messageSchema{
			protocolV2: schema("CA18",
				fidExpiration, fidPickupLocn, fidHoldType, fidInstID,
				fidPatronID, fidPatronPwd, fidItemID, fidTitleID,
				fidTerminalPwd, fidFeeAck),
		},
	},
	msgRenew: {
		name:    "Renew",
		handler: handleRenew,
		protocol: map[string]*messageSchema{
			protocolV2: schema("CCA18A18",
				fidInstID, fidPatronID, fidPatronPwd, fidItemID,
				fidTitleID, fidTerminalPwd, fidItemProps, fidFeeAck),
		},
	},
	msgRenewAll: {
		name:    "Renew All",
		handler: handleRenewAll,
		protocol: map[string]*messageSchema{
			protocolV2: schema("A18",
				fidInstID, fidPatronID, fidPatronPwd, fidTerminalPwd,
				fidFeeAck),
		},
	},
}

// Precompute version fallthrough: a code declared only for 1.00 keeps the
// same schema under 2.00. Codes declared only for 2.00 stay rejected
// under 1.00.
func init() {
	for _, mt := range handlers {
		if mt.protocol[protocolV2] == nil {
			mt.protocol[protocolV2] = mt.protocol[protocolV1]
		}
	}
}

// allowed reports whether the schema recognizes the given field ID.
func (s *messageSchema) allowed(fid string) bool {
	for _, f := range s.fields {
		if f == fid {
			return true
		}
	}
	return false
}
