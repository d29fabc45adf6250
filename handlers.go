package main

import (
	"bytes"
	"crypto/subtle"
	"fmt"
	"strconv"
	"strings"
)

// Response composition for every message code the ACS accepts. The
// generic shape: read the fixed and variable fields, call the ILS at most
// once, then concatenate response code, status characters, timestamp and
// variable fields in protocol order. The envelope attaches the trailer
// and terminator.

// magneticOrU encodes the magnetic-media flag of an item, or 'U' when the
// item is unknown or the ILS cannot say.
func magneticOrU(s *Session, it Item) string {
	if it != nil && s.ils.Supports(capMagneticMedia) {
		return sipbool(it.Magnetic())
	}
	return "U"
}

// feeQuartet emits the fee fields shared by the Checkout and Renew
// responses, only when the transaction carries a fee.
func feeQuartet(s *Session, st *TransactionStatus) string {
	if st.FeeAmount == "" {
		return ""
	}
	var b bytes.Buffer
	b.WriteString(s.addField(fidFeeAmount, st.FeeAmount))
	b.WriteString(s.maybeAdd(fidCurrency, st.Currency))
	b.WriteString(s.maybeAdd(fidFeeType, st.FeeType))
	b.WriteString(s.maybeAdd(fidTransactionID, st.TransactionID))
	return b.String()
}

// patronStatusResponse builds the "24" response shared by Patron Status
// and Block Patron. Required fields (AE, AA, AO) are emitted even when
// empty; BL/CQ only exist under SIP2.
func patronStatusResponse(s *Session, p Patron, lang string, m *Message) string {
	var b bytes.Buffer
	b.WriteString(respPatronStatus)
	if p != nil {
		b.WriteString(patronStatusString(p))
		b.WriteString(lang)
		b.WriteString(sipDate())
		b.WriteString(s.addField(fidPatronName, p.Name()))
		b.WriteString(s.addField(fidPatronID, p.ID()))
		if s.Protocol == protocolV2 {
			b.WriteString(s.addField(fidValidPatron, "Y"))
			if m.HasField(fidPatronPwd) {
				b.WriteString(s.addField(fidValidPatronPwd,
					sipbool(p.CheckPassword(m.Field(fidPatronPwd)))))
			}
			b.WriteString(s.maybeAdd(fidCurrency, p.Currency()))
			b.WriteString(s.maybeAdd(fidFeeAmount, p.FeeAmount()))
		}
		b.WriteString(s.maybeAdd(fidScreenMsg, p.ScreenMsg()))
		b.WriteString(s.maybeAdd(fidPrintLine, p.PrintLine()))
	} else {
		b.WriteString(invalidPatronStatus)
		b.WriteString(lang)
		b.WriteString(sipDate())
		b.WriteString(s.addField(fidPatronName, ""))
		b.WriteString(s.addField(fidPatronID, m.Field(fidPatronID)))
		if s.Protocol == protocolV2 {
			b.WriteString(s.addField(fidValidPatron, "N"))
		}
	}
	b.WriteString(s.addField(fidInstID, m.Field(fidInstID)))
	return b.String()
}

func handlePatronStatus(s *Session, m *Message) string {
	lang := m.Fixed[0]
	s.ils.CheckInstID(m.Field(fidInstID), m.Name)
	p := s.ils.Patron(m.Field(fidPatronID))
	return patronStatusResponse(s, p, lang, m)
}

func handleBlockPatron(s *Session, m *Message) string {
	cardRetained := m.Fixed[0] == "Y"
	s.ils.CheckInstID(m.Field(fidInstID), m.Name)
	p := s.ils.Patron(m.Field(fidPatronID))
	if p != nil {
		p.Block(cardRetained, m.Field(fidBlockedCardMsg))
	}
	return patronStatusResponse(s, p, "000", m)
}

func handleCheckout(s *Session, m *Message) string {
	scRenewal := m.Fixed[0] == "Y"
	noBlock := m.Fixed[1] == "Y"
	nbDueDate := m.Fixed[3]

	inst := m.Field(fidInstID)
	patronID := m.Field(fidPatronID)
	itemID := m.Field(fidItemID)
	s.ils.CheckInstID(inst, m.Name)

	var st *TransactionStatus
	if noBlock {
		// Offline transaction; the ILS records it without enforcement.
		st = s.ils.CheckoutNoBlock(patronID, itemID, nbDueDate)
	} else {
		// The SC may only renew-via-checkout if server policy agrees.
		st = s.ils.Checkout(patronID, itemID, scRenewal && s.cfg.Renewal)
	}
	if st.Ok && st.Item == nil {
		sipLogger.Errorf("checkout: backend approved item %q without item data, failing the transaction", itemID)
		st.Ok = false
	}

	var b bytes.Buffer
	b.WriteString(respCheckout)
	if st.Ok {
		b.WriteString("1")
		b.WriteString(sipbool(st.RenewalOK))
		b.WriteString(magneticOrU(s, st.Item))
		b.WriteString(sipbool(st.Desensitize))
		b.WriteString(sipDate())
		b.WriteString(s.addField(fidInstID, inst))
		b.WriteString(s.addField(fidPatronID, patronID))
		b.WriteString(s.addField(fidItemID, itemID))
		b.WriteString(s.addField(fidTitleID, st.Item.TitleID()))
		b.WriteString(s.addField(fidDueDate, st.DueDate))
		if s.Protocol == protocolV2 {
			if s.ils.Supports(capSecurityInhibit) {
				b.WriteString(s.addField(fidSecurityInhibit, sipbool(st.SecurityInhibit)))
			}
			b.WriteString(s.maybeAdd(fidMediaType, st.Item.SIPMediaType()))
			b.WriteString(s.maybeAdd(fidItemProps, st.Item.SIPItemProperties()))
			b.WriteString(feeQuartet(s, st))
		}
	} else {
		b.WriteString("0NUN")
		b.WriteString(sipDate())
		b.WriteString(s.addField(fidInstID, inst))
		b.WriteString(s.addField(fidPatronID, patronID))
		b.WriteString(s.addField(fidItemID, itemID))
		title := ""
		if st.Item != nil {
			title = st.Item.TitleID()
		}
		b.WriteString(s.addField(fidTitleID, title))
		b.WriteString(s.addField(fidDueDate, ""))
		if s.Protocol == protocolV2 {
			b.WriteString(s.addField(fidValidPatron, sipbool(st.Patron != nil)))
			if st.Patron != nil && m.HasField(fidPatronPwd) {
				b.WriteString(s.addField(fidValidPatronPwd,
					sipbool(st.Patron.CheckPassword(m.Field(fidPatronPwd)))))
			}
		}
	}
	b.WriteString(s.maybeAdd(fidScreenMsg, st.ScreenMsg))
	b.WriteString(s.maybeAdd(fidPrintLine, st.PrintLine))
	return b.String()
}

func handleCheckin(s *Session, m *Message) string {
	noBlock := m.Fixed[0] == "Y"
	returnDate := m.Fixed[2]

	currentLocn := m.Field(fidCurrentLocn)
	itemID := m.Field(fidItemID)
	s.ils.CheckInstID(m.Field(fidInstID), m.Name)

	var st *TransactionStatus
	if noBlock {
		st = s.ils.CheckinNoBlock(itemID, currentLocn, returnDate)
	} else {
		st = s.ils.Checkin(itemID, currentLocn)
	}

	var b bytes.Buffer
	b.WriteString(respCheckin)
	b.WriteString(sipok(st.Ok))
	b.WriteString(sipbool(st.Resensitize))
	b.WriteString(magneticOrU(s, st.Item))
	b.WriteString(sipbool(st.Alert))
	b.WriteString(sipDate())
	b.WriteString(s.addField(fidInstID, m.Field(fidInstID)))
	b.WriteString(s.addField(fidItemID, itemID))
	if st.Item != nil {
		b.WriteString(s.addField(fidPermanentLocn, st.Item.PermanentLocation()))
		b.WriteString(s.maybeAdd(fidTitleID, st.Item.TitleID()))
	} else {
		b.WriteString(s.addField(fidPermanentLocn, ""))
	}
	if s.Protocol == protocolV2 {
		b.WriteString(s.maybeAdd(fidSortBin, st.SortBin))
		if st.Patron != nil {
			b.WriteString(s.maybeAdd(fidPatronID, st.Patron.ID()))
		}
		if st.Item != nil {
			b.WriteString(s.maybeAdd(fidMediaType, st.Item.SIPMediaType()))
			b.WriteString(s.maybeAdd(fidItemProps, st.Item.SIPItemProperties()))
		}
	}
	b.WriteString(s.maybeAdd(fidScreenMsg, st.ScreenMsg))
	b.WriteString(s.maybeAdd(fidPrintLine, st.PrintLine))
	return b.String()
}

// acsStatus builds the "98" ACS Status response. The screen message and
// print line are optional; the print line is truncated to the account's
// print width when one is known.
func acsStatus(s *Session, screenMsg, printLine string) string {
	inst := s.ils.Institution()
	printWidth := 0
	if s.Account != nil {
		if s.Account.Institution != "" {
			inst = s.Account.Institution
		}
		printWidth = s.Account.PrintWidth
	}

	var b bytes.Buffer
	b.WriteString(respACSStatus)
	b.WriteString(sipbool(true)) // on-line
	b.WriteString(sipbool(s.ils.CheckinOK()))
	b.WriteString(sipbool(s.ils.CheckoutOK()))
	b.WriteString(sipbool(s.cfg.Renewal))
	b.WriteString(sipbool(s.ils.StatusUpdateOK()))
	b.WriteString(sipbool(s.ils.OfflineOK()))
	fmt.Fprintf(&b, "%03d", s.cfg.Timeout)
	fmt.Fprintf(&b, "%03d", s.cfg.Retries)
	b.WriteString(sipDate())
	b.WriteString(s.Protocol)
	b.WriteString(s.addField(fidInstID, inst))
	if s.Protocol == protocolV2 {
		// All sixteen SIP2 messages are supported.
		b.WriteString(s.addField(fidSupportedMsgs, strings.Repeat("Y", 16)))
	}
	b.WriteString(s.maybeAdd(fidScreenMsg, screenMsg))
	if printLine != "" {
		if printWidth > 0 && len(printLine) > printWidth {
			printLine = printLine[:printWidth]
		}
		b.WriteString(s.addField(fidPrintLine, printLine))
	}
	return b.String()
}

func handleSCStatus(s *Session, m *Message) string {
	switch m.Fixed[0] {
	case "1":
		sipLogger.Warningf("SC reports it is out of paper")
	case "2":
		sipLogger.Warningf("SC reports it is shutting down")
	}
	if strings.HasPrefix(m.Fixed[2], "2.") {
		s.Protocol = protocolV2
	} else {
		s.Protocol = protocolV1
	}
	return acsStatus(s, "", "")
}

func handleLogin(s *Session, m *Message) string {
	uidAlgorithm, pwdAlgorithm := m.Fixed[0], m.Fixed[1]
	uid := m.Field(fidLoginUID)
	pwd := m.Field(fidLoginPwd)

	ok := false
	if uidAlgorithm != "0" || pwdAlgorithm != "0" {
		sipLogger.Warningf("login: unsupported encryption algorithms uid=%q pwd=%q",
			uidAlgorithm, pwdAlgorithm)
	} else if acct, found := s.cfg.Accounts[uid]; !found {
		sipLogger.Warningf("login: unknown login %q", uid)
	} else if subtle.ConstantTimeCompare([]byte(acct.Password), []byte(pwd)) != 1 {
		sipLogger.Warningf("login: invalid password for %q", uid)
	} else {
		s.Account = acct
		ok = true
	}
	if locn := m.Field(fidLocationCode); locn != "" {
		sipLogger.Infof("login from location %q", locn)
	}

	if ok {
		return respLogin + "1"
	}
	return respLogin + "0"
}

// summaryLists maps Patron Information summary positions 0..5 to the
// detail field emitted and the patron list backing it.
var summaryLists = []struct {
	fid  string
	list func(Patron) []string
}{
	{fidHoldItems, Patron.HoldItems},
	{fidOverdueItems, Patron.OverdueItems},
	{fidChargedItems, Patron.ChargedItems},
	{fidFineItems, Patron.FineItems},
	{fidRecallItems, Patron.RecallItems},
	{fidUnavailHolds, Patron.UnavailableHoldItems},
}

func handlePatronInfo(s *Session, m *Message) string {
	lang, summary := m.Fixed[0], m.Fixed[2]
	s.ils.CheckInstID(m.Field(fidInstID), m.Name)
	p := s.ils.Patron(m.Field(fidPatronID))

	var b bytes.Buffer
	b.WriteString(respPatronInfo)
	if p == nil {
		b.WriteString(invalidPatronStatus)
		b.WriteString(lang)
		b.WriteString(sipDate())
		for range summaryLists {
			b.WriteString(addCount("patron info", 0))
		}
		b.WriteString(s.addField(fidPatronID, m.Field(fidPatronID)))
		b.WriteString(s.addField(fidPatronName, ""))
		b.WriteString(s.addField(fidValidPatron, "N"))
		b.WriteString(s.addField(fidInstID, m.Field(fidInstID)))
		return b.String()
	}

	b.WriteString(patronStatusString(p))
	b.WriteString(lang)
	b.WriteString(sipDate())
	for _, sl := range summaryLists {
		b.WriteString(addCount(sl.fid, len(sl.list(p))))
	}
	b.WriteString(s.addField(fidPatronID, p.ID()))
	b.WriteString(s.addField(fidPatronName, p.Name()))
	b.WriteString(s.maybeAdd(fidHomeAddr, p.HomeAddr()))
	b.WriteString(s.maybeAdd(fidEmail, p.Email()))
	b.WriteString(s.maybeAdd(fidHomePhone, p.HomePhone()))

	// At most one summary position is flagged; it selects which detail
	// list is expanded into repeated fields.
	for i, sl := range summaryLists {
		if i >= len(summary) || summary[i] != 'Y' {
			continue
		}
		for _, entry := range sl.list(p) {
			b.WriteString(s.addField(sl.fid, entry))
		}
		break
	}

	b.WriteString(s.addField(fidValidPatron, "Y"))
	if m.HasField(fidPatronPwd) {
		b.WriteString(s.addField(fidValidPatronPwd,
			sipbool(p.CheckPassword(m.Field(fidPatronPwd)))))
	}
	b.WriteString(s.maybeAdd(fidBirthdate, p.Birthdate()))
	b.WriteString(s.maybeAdd(fidPatronClass, p.Class()))
	b.WriteString(s.maybeAdd(fidScreenMsg, p.ScreenMsg()))
	b.WriteString(s.maybeAdd(fidPrintLine, p.PrintLine()))
	b.WriteString(s.addField(fidInstID, m.Field(fidInstID)))
	return b.String()
}

func handleEndPatronSession(s *Session, m *Message) string {
	s.ils.CheckInstID(m.Field(fidInstID), m.Name)
	st := s.ils.EndPatronSession(m.Field(fidPatronID))

	var b bytes.Buffer
	b.WriteString(respEndSession)
	b.WriteString(sipbool(st.Ok))
	b.WriteString(sipDate())
	b.WriteString(s.addField(fidInstID, m.Field(fidInstID)))
	b.WriteString(s.addField(fidPatronID, m.Field(fidPatronID)))
	b.WriteString(s.maybeAdd(fidScreenMsg, st.ScreenMsg))
	b.WriteString(s.maybeAdd(fidPrintLine, st.PrintLine))
	return b.String()
}

func handleFeePaid(s *Session, m *Message) string {
	feeType, payType, currency := m.Fixed[1], m.Fixed[2], m.Fixed[3]
	s.ils.CheckInstID(m.Field(fidInstID), m.Name)

	st := s.ils.PayFee(m.Field(fidPatronID), feeType, payType,
		m.Field(fidFeeAmount), currency, m.Field(fidFeeID), m.Field(fidTransactionID))

	var b bytes.Buffer
	b.WriteString(respFeePaid)
	b.WriteString(sipbool(st.Ok))
	b.WriteString(sipDate())
	b.WriteString(s.addField(fidInstID, m.Field(fidInstID)))
	b.WriteString(s.addField(fidPatronID, m.Field(fidPatronID)))
	b.WriteString(s.maybeAdd(fidTransactionID, st.TransactionID))
	b.WriteString(s.maybeAdd(fidScreenMsg, st.ScreenMsg))
	b.WriteString(s.maybeAdd(fidPrintLine, st.PrintLine))
	return b.String()
}

func handleItemInformation(s *Session, m *Message) string {
	s.ils.CheckInstID(m.Field(fidInstID), m.Name)
	it := s.ils.Item(m.Field(fidItemID))

	var b bytes.Buffer
	b.WriteString(respItemInformation)
	if it == nil {
		// Unknown circulation status, other security marker, unknown
		// fee type.
		b.WriteString("010101")
		b.WriteString(sipDate())
		b.WriteString(s.addField(fidItemID, m.Field(fidItemID)))
		b.WriteString(s.addField(fidTitleID, ""))
		return b.String()
	}

	fmt.Fprintf(&b, "%02d%02d%02d", it.CirculationStatus(), it.SecurityMarker(), it.FeeType())
	b.WriteString(sipDate())
	b.WriteString(s.addField(fidItemID, it.ID()))
	b.WriteString(s.addField(fidTitleID, it.TitleID()))
	b.WriteString(s.maybeAdd(fidMediaType, it.SIPMediaType()))
	b.WriteString(s.maybeAdd(fidPermanentLocn, it.PermanentLocation()))
	b.WriteString(s.maybeAdd(fidCurrentLocn, it.CurrentLocation()))
	b.WriteString(s.maybeAdd(fidItemProps, it.SIPItemProperties()))
	if it.Fee() != "" {
		b.WriteString(s.maybeAdd(fidCurrency, it.FeeCurrency()))
		b.WriteString(s.addField(fidFeeAmount, it.Fee()))
	}
	b.WriteString(s.maybeAdd(fidOwner, it.Owner()))
	if n := len(it.HoldQueue()); n > 0 {
		b.WriteString(s.addField(fidHoldQueueLen, strconv.Itoa(n)))
	}
	b.WriteString(s.maybeAdd(fidDueDate, it.DueDate()))
	b.WriteString(s.maybeAdd(fidRecallDate, it.RecallDate()))
	b.WriteString(s.maybeAdd(fidHoldPickupDate, it.HoldPickupDate()))
	b.WriteString(s.maybeAdd(fidScreenMsg, it.ScreenMsg()))
	b.WriteString(s.maybeAdd(fidPrintLine, it.PrintLine()))
	return b.String()
}

func handleItemStatusUpdate(s *Session, m *Message) string {
	s.ils.CheckInstID(m.Field(fidInstID), m.Name)
	itemID := m.Field(fidItemID)
	it := s.ils.Item(itemID)

	var b bytes.Buffer
	b.WriteString(respItemStatusUpd)
	if it == nil {
		b.WriteString("0")
		b.WriteString(sipDate())
		b.WriteString(s.addField(fidItemID, itemID))
		return b.String()
	}

	st := s.ils.StatusUpdate(itemID, m.Field(fidItemProps))
	b.WriteString(sipok(st.Ok))
	b.WriteString(sipDate())
	b.WriteString(s.addField(fidItemID, it.ID()))
	b.WriteString(s.addField(fidTitleID, it.TitleID()))
	b.WriteString(s.maybeAdd(fidItemProps, it.SIPItemProperties()))
	b.WriteString(s.maybeAdd(fidScreenMsg, st.ScreenMsg))
	b.WriteString(s.maybeAdd(fidPrintLine, st.PrintLine))
	return b.String()
}

func handlePatronEnable(s *Session, m *Message) string {
	s.ils.CheckInstID(m.Field(fidInstID), m.Name)
	p := s.ils.Patron(m.Field(fidPatronID))

	var b bytes.Buffer
	b.WriteString(respPatronEnable)
	if p == nil || (m.HasField(fidPatronPwd) && !p.CheckPassword(m.Field(fidPatronPwd))) {
		b.WriteString(invalidPatronStatus)
		b.WriteString("000")
		b.WriteString(sipDate())
		b.WriteString(s.addField(fidPatronID, m.Field(fidPatronID)))
		b.WriteString(s.addField(fidPatronName, ""))
		b.WriteString(s.addField(fidValidPatron, "N"))
		b.WriteString(s.addField(fidValidPatronPwd, "N"))
		return b.String()
	}

	p.Enable()
	b.WriteString(patronStatusString(p))
	b.WriteString(p.Language())
	b.WriteString(sipDate())
	b.WriteString(s.addField(fidPatronID, p.ID()))
	b.WriteString(s.addField(fidPatronName, p.Name()))
	b.WriteString(s.addField(fidValidPatronPwd, "Y"))
	b.WriteString(s.addField(fidValidPatron, "Y"))
	b.WriteString(s.maybeAdd(fidScreenMsg, p.ScreenMsg()))
	b.WriteString(s.maybeAdd(fidPrintLine, p.PrintLine()))
	return b.String()
}

func handleHold(s *Session, m *Message) string {
	holdMode := m.Fixed[0]
	s.ils.CheckInstID(m.Field(fidInstID), m.Name)

	patronID := m.Field(fidPatronID)
	itemID := m.Field(fidItemID)
	titleID := m.Field(fidTitleID)

	var st *TransactionStatus
	switch holdMode {
	case "+":
		st = s.ils.AddHold(patronID, itemID, titleID,
			m.Field(fidPickupLocn), m.Field(fidExpiration))
	case "-":
		st = s.ils.CancelHold(patronID, itemID, titleID)
	case "*":
		st = s.ils.AlterHold(patronID, itemID, titleID,
			m.Field(fidPickupLocn), m.Field(fidExpiration))
	default:
		sipLogger.Warningf("hold: unknown hold mode %q", holdMode)
		st = &TransactionStatus{ScreenMsg: "System error. Please contact library staff."}
	}

	var b bytes.Buffer
	b.WriteString(respHold)
	b.WriteString(sipok(st.Ok))
	b.WriteString(sipbool(st.Available))
	b.WriteString(sipDate())
	if st.Ok {
		b.WriteString(s.addField(fidPatronID, patronID))
		expiry := st.ExpirationDate
		if expiry == "" {
			expiry = m.Field(fidExpiration)
		}
		b.WriteString(s.maybeAdd(fidExpiration, expiry))
		b.WriteString(s.maybeAdd(fidQueuePos, st.QueuePosition))
		b.WriteString(s.maybeAdd(fidPickupLocn, st.PickupLocation))
		if st.Item != nil {
			b.WriteString(s.maybeAdd(fidItemID, st.Item.ID()))
			b.WriteString(s.maybeAdd(fidTitleID, st.Item.TitleID()))
		} else {
			b.WriteString(s.maybeAdd(fidItemID, itemID))
			b.WriteString(s.maybeAdd(fidTitleID, titleID))
		}
	} else {
		b.WriteString(s.addField(fidPatronID, patronID))
	}
	b.WriteString(s.addField(fidInstID, m.Field(fidInstID)))
	b.WriteString(s.maybeAdd(fidScreenMsg, st.ScreenMsg))
	b.WriteString(s.maybeAdd(fidPrintLine, st.PrintLine))
	return b.String()
}

func handleRenew(s *Session, m *Message) string {
	thirdParty := m.Fixed[0] == "Y"
	noBlock := m.Fixed[1] == "Y"
	nbDueDate := m.Fixed[3]
	if thirdParty {
		sipLogger.Infof("renew: third-party renewal requested")
	}

	s.ils.CheckInstID(m.Field(fidInstID), m.Name)
	patronID := m.Field(fidPatronID)
	itemID := m.Field(fidItemID)
	titleID := m.Field(fidTitleID)

	st := s.ils.Renew(patronID, itemID, titleID, noBlock, nbDueDate)
	if st.Ok && st.Item == nil {
		sipLogger.Errorf("renew: backend approved item %q without item data, failing the transaction", itemID)
		st.Ok = false
	}

	var b bytes.Buffer
	b.WriteString(respRenew)
	if st.Ok {
		b.WriteString("1")
		b.WriteString(sipbool(st.RenewalOK))
		b.WriteString(magneticOrU(s, st.Item))
		b.WriteString(sipbool(st.Desensitize))
		b.WriteString(sipDate())
		b.WriteString(s.addField(fidPatronID, patronID))
		b.WriteString(s.addField(fidItemID, itemID))
		b.WriteString(s.addField(fidTitleID, st.Item.TitleID()))
		b.WriteString(s.addField(fidDueDate, st.DueDate))
		if s.ils.Supports(capSecurityInhibit) {
			b.WriteString(s.addField(fidSecurityInhibit, sipbool(st.SecurityInhibit)))
		}
		b.WriteString(s.addField(fidMediaType, st.Item.SIPMediaType()))
		b.WriteString(s.maybeAdd(fidItemProps, st.Item.SIPItemProperties()))
	} else {
		b.WriteString("0NUN")
		b.WriteString(sipDate())
		b.WriteString(s.addField(fidPatronID, patronID))
		b.WriteString(s.addField(fidItemID, itemID))
		title, due := titleID, ""
		if st.Item != nil {
			title = st.Item.TitleID()
			due = st.Item.DueDate()
		}
		b.WriteString(s.addField(fidTitleID, title))
		b.WriteString(s.addField(fidDueDate, due))
	}
	b.WriteString(feeQuartet(s, st))
	b.WriteString(s.addField(fidInstID, m.Field(fidInstID)))
	b.WriteString(s.maybeAdd(fidScreenMsg, st.ScreenMsg))
	b.WriteString(s.maybeAdd(fidPrintLine, st.PrintLine))
	return b.String()
}

func handleRenewAll(s *Session, m *Message) string {
	s.ils.CheckInstID(m.Field(fidInstID), m.Name)
	st := s.ils.RenewAll(m.Field(fidPatronID))

	var b bytes.Buffer
	b.WriteString(respRenewAll)
	b.WriteString(sipok(st.Ok))
	b.WriteString(addCount("renewed", len(st.Renewed)))
	b.WriteString(addCount("unrenewed", len(st.Unrenewed)))
	b.WriteString(sipDate())
	b.WriteString(s.addField(fidInstID, m.Field(fidInstID)))
	for _, id := range st.Renewed {
		b.WriteString(s.addField(fidRenewedItems, id))
	}
	for _, id := range st.Unrenewed {
		b.WriteString(s.addField(fidUnrenewedItems, id))
	}
	b.WriteString(s.maybeAdd(fidScreenMsg, st.ScreenMsg))
	b.WriteString(s.maybeAdd(fidPrintLine, st.PrintLine))
	return b.String()
}

// handleRequestACSResend replays the single most recent response. A
// resent message never carries a sequence number, so any stored trailer
// is stripped; with nothing to resend the ACS asks the SC to resend
// instead.
func handleRequestACSResend(s *Session, m *Message) string {
	if s.LastResponse == "" {
		return respRequestSCResend
	}
	return stripTrailer(s.LastResponse)
}
