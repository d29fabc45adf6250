package main

import (
	"strconv"
	"sync"
	"time"
)

// demoILS is the compiled-in circulation backend used when no real ILS
// is wired up, and by the test-suite. It keeps everything in memory and
// applies only the simplest of rules; production deployments implement
// the ILS interface against their own system.
//
// ils.mu serializes transactions and guards the barcode maps. Patron and
// item state carries its own lock, because handlers keep reading entities
// through their accessors after a transaction has returned, concurrently
// with transactions on other connections.
type demoILS struct {
	mu          sync.Mutex
	institution string
	patrons     map[string]*demoPatron
	items       map[string]*demoItem
}

const demoLoanPeriod = 21 * 24 * time.Hour

func newDemoILS(institution string) *demoILS {
	ils := &demoILS{
		institution: institution,
		patrons:     make(map[string]*demoPatron),
		items:       make(map[string]*demoItem),
	}
	for _, p := range []*demoPatron{
		{
			id: "djfiander", name: "David J. Fiander", pin: "6789",
			language: "000", addr: "2 Meadowvale Dr. St Thomas, ON",
			email: "djfiander@hotmail.com", phone: "(519) 555 1234",
			class: "A",
		},
		{id: "miker", name: "Mike Rylander", language: "000", class: "A"},
	} {
		ils.patrons[p.id] = p
	}
	for _, it := range []*demoItem{
		{id: "1565921879", title: "Perl 5 desktop reference", magnetic: false, mediaType: "001", permanentLocn: "stacks", owner: institution},
		{id: "0440242746", title: "The deep blue alibi", magnetic: false, mediaType: "001", permanentLocn: "stacks", owner: institution},
		{id: "660", title: "Harry Potter y el caliz de fuego", magnetic: false, mediaType: "001", permanentLocn: "stacks", owner: institution},
	} {
		ils.items[it.id] = it
	}
	return ils
}

func (ils *demoILS) Institution() string { return ils.institution }

func (ils *demoILS) CheckInstID(instID, whence string) {
	if instID != "" && instID != ils.institution {
		sipLogger.Warningf("%s: institution mismatch: got %q, expected %q", whence, instID, ils.institution)
	}
}

func (ils *demoILS) Supports(capability string) bool {
	switch capability {
	case capMagneticMedia, capOfflineOps:
		return true
	}
	return false
}

func (ils *demoILS) CheckinOK() bool      { return true }
func (ils *demoILS) CheckoutOK() bool     { return true }
func (ils *demoILS) StatusUpdateOK() bool { return true }
func (ils *demoILS) OfflineOK() bool      { return true }

func (ils *demoILS) Patron(id string) Patron {
	ils.mu.Lock()
	defer ils.mu.Unlock()
	if p, ok := ils.patrons[id]; ok {
		return p
	}
	return nil
}

func (ils *demoILS) Item(id string) Item {
	ils.mu.Lock()
	defer ils.mu.Unlock()
	if it, ok := ils.items[id]; ok {
		return it
	}
	return nil
}

func (ils *demoILS) dueDate() string {
	return time.Now().Add(demoLoanPeriod).Format(sipDateLayout)
}

func (ils *demoILS) Checkout(patronID, itemID string, scRenewal bool) *TransactionStatus {
	ils.mu.Lock()
	defer ils.mu.Unlock()
	st := &TransactionStatus{}
	p, it := ils.patrons[patronID], ils.items[itemID]
	if p != nil {
		st.Patron = p
	}
	if it != nil {
		st.Item = it
	}
	switch {
	case p == nil:
		st.ScreenMsg = "Invalid Patron"
	case it == nil:
		st.ScreenMsg = "Invalid Item"
	case it.borrowedBy() == patronID:
		if !scRenewal {
			st.ScreenMsg = "Item checked out to same patron"
			return st
		}
		st.Ok = true
		st.RenewalOK = true
		st.Desensitize = true
		st.DueDate = ils.dueDate()
		it.setDueDate(st.DueDate)
	case it.borrowedBy() != "":
		st.ScreenMsg = "Item checked out to another patron"
	case !p.ChargeOK():
		st.ScreenMsg = "Patron Blocked"
	default:
		st.Ok = true
		st.Desensitize = true
		st.DueDate = ils.dueDate()
		it.lend(patronID, st.DueDate)
		p.addCharged(itemID)
	}
	return st
}

// CheckoutNoBlock records an offline transaction for accounting;
// enforcement is suppressed.
func (ils *demoILS) CheckoutNoBlock(patronID, itemID, nbDueDate string) *TransactionStatus {
	ils.mu.Lock()
	defer ils.mu.Unlock()
	st := &TransactionStatus{}
	p, it := ils.patrons[patronID], ils.items[itemID]
	if p != nil {
		st.Patron = p
	}
	if it != nil {
		st.Item = it
	}
	if p == nil || it == nil {
		st.ScreenMsg = "Invalid barcode"
		return st
	}
	st.Ok = true
	st.DueDate = nbDueDate
	if it.borrowedBy() != patronID {
		it.lend(patronID, nbDueDate)
		p.addCharged(itemID)
	} else {
		it.setDueDate(nbDueDate)
	}
	return st
}

func (ils *demoILS) Checkin(itemID, currentLocn string) *TransactionStatus {
	ils.mu.Lock()
	defer ils.mu.Unlock()
	st := &TransactionStatus{}
	it := ils.items[itemID]
	if it == nil {
		st.ScreenMsg = "Invalid Item"
		return st
	}
	st.Item = it
	borrower := it.borrowedBy()
	if borrower == "" {
		st.ScreenMsg = "Item not checked out"
		return st
	}
	if p := ils.patrons[borrower]; p != nil {
		st.Patron = p
		p.dropCharged(itemID)
	}
	it.clearLoan(currentLocn)
	st.Ok = true
	st.Resensitize = true
	st.Alert = it.holdCount() > 0
	return st
}

func (ils *demoILS) CheckinNoBlock(itemID, currentLocn, returnDate string) *TransactionStatus {
	st := ils.Checkin(itemID, currentLocn)
	// An offline return is accepted even when the item wasn't charged.
	st.Ok = st.Item != nil
	return st
}

func (ils *demoILS) PayFee(patronID, feeType, payType, amount, currency, feeID, transID string) *TransactionStatus {
	ils.mu.Lock()
	defer ils.mu.Unlock()
	st := &TransactionStatus{TransactionID: transID}
	p := ils.patrons[patronID]
	if p == nil {
		st.ScreenMsg = "Invalid Patron"
		return st
	}
	st.Patron = p
	p.clearFees()
	st.Ok = true
	return st
}

func (ils *demoILS) EndPatronSession(patronID string) *TransactionStatus {
	ils.mu.Lock()
	defer ils.mu.Unlock()
	st := &TransactionStatus{}
	if p := ils.patrons[patronID]; p != nil {
		st.Patron = p
		st.Ok = true
		st.ScreenMsg = "Thank you for using the library!"
	} else {
		st.ScreenMsg = "Invalid Patron"
	}
	return st
}

func (ils *demoILS) AddHold(patronID, itemID, titleID, pickupLocn, expiry string) *TransactionStatus {
	ils.mu.Lock()
	defer ils.mu.Unlock()
	st := &TransactionStatus{}
	p, it := ils.patrons[patronID], ils.items[itemID]
	if p == nil || it == nil {
		st.ScreenMsg = "Invalid barcode"
		return st
	}
	st.Patron = p
	st.Item = it
	st.Ok = true
	st.Available = it.borrowedBy() == ""
	st.QueuePosition = strconv.Itoa(it.pushHold(patronID))
	p.addHold(itemID)
	st.PickupLocation = pickupLocn
	st.ExpirationDate = expiry
	return st
}

func (ils *demoILS) CancelHold(patronID, itemID, titleID string) *TransactionStatus {
	ils.mu.Lock()
	defer ils.mu.Unlock()
	st := &TransactionStatus{}
	p, it := ils.patrons[patronID], ils.items[itemID]
	if p == nil || it == nil {
		st.ScreenMsg = "Invalid barcode"
		return st
	}
	st.Patron = p
	st.Item = it
	if !it.holdFor(patronID) {
		st.ScreenMsg = "No such hold"
		return st
	}
	it.dropHold(patronID)
	p.dropHold(itemID)
	st.Ok = true
	st.Available = it.borrowedBy() == ""
	return st
}

func (ils *demoILS) AlterHold(patronID, itemID, titleID, pickupLocn, expiry string) *TransactionStatus {
	ils.mu.Lock()
	defer ils.mu.Unlock()
	st := &TransactionStatus{}
	p, it := ils.patrons[patronID], ils.items[itemID]
	if p == nil || it == nil || !it.holdFor(patronID) {
		st.ScreenMsg = "No such hold"
		return st
	}
	st.Patron = p
	st.Item = it
	st.Ok = true
	st.Available = it.borrowedBy() == ""
	st.PickupLocation = pickupLocn
	st.ExpirationDate = expiry
	return st
}

func (ils *demoILS) Renew(patronID, itemID, titleID string, noBlock bool, nbDueDate string) *TransactionStatus {
	ils.mu.Lock()
	defer ils.mu.Unlock()
	st := &TransactionStatus{}
	p, it := ils.patrons[patronID], ils.items[itemID]
	if p != nil {
		st.Patron = p
	}
	if it != nil {
		st.Item = it
	}
	if p == nil || it == nil {
		st.ScreenMsg = "Invalid barcode"
		return st
	}
	if it.borrowedBy() != patronID {
		st.ScreenMsg = "Item not checked out"
		return st
	}
	st.Ok = true
	st.RenewalOK = true
	if noBlock && nbDueDate != "" {
		st.DueDate = nbDueDate
	} else {
		st.DueDate = ils.dueDate()
	}
	it.setDueDate(st.DueDate)
	return st
}

func (ils *demoILS) RenewAll(patronID string) *TransactionStatus {
	ils.mu.Lock()
	defer ils.mu.Unlock()
	st := &TransactionStatus{}
	p := ils.patrons[patronID]
	if p == nil {
		st.ScreenMsg = "Invalid Patron"
		return st
	}
	st.Patron = p
	st.Ok = true
	due := ils.dueDate()
	for _, id := range p.ChargedItems() {
		if it := ils.items[id]; it != nil {
			it.setDueDate(due)
			st.Renewed = append(st.Renewed, id)
		} else {
			st.Unrenewed = append(st.Unrenewed, id)
		}
	}
	return st
}

func (ils *demoILS) StatusUpdate(itemID, itemProps string) *TransactionStatus {
	ils.mu.Lock()
	defer ils.mu.Unlock()
	st := &TransactionStatus{}
	it := ils.items[itemID]
	if it == nil {
		st.ScreenMsg = "Invalid Item"
		return st
	}
	st.Item = it
	if itemProps != "" {
		it.setProps(itemProps)
	}
	st.Ok = true
	return st
}

// demoPatron implements Patron. Blocking a card revokes all four
// privileges at once. p.mu guards everything a transaction mutates; the
// identity fields are immutable after construction.
type demoPatron struct {
	mu        sync.Mutex
	id        string
	name      string
	pin       string
	language  string
	addr      string
	email     string
	phone     string
	birthdate string
	class     string

	blocked   bool
	cardLost  bool
	screenMsg string

	fee      string
	currency string

	hold    []string
	overdue []string
	charged []string
	fine    []string
	recall  []string
	unavail []string
}

func (p *demoPatron) ID() string       { return p.id }
func (p *demoPatron) Name() string     { return p.name }
func (p *demoPatron) Language() string { return p.language }

func (p *demoPatron) allowed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.blocked
}

func (p *demoPatron) ChargeOK() bool { return p.allowed() }
func (p *demoPatron) RenewOK() bool  { return p.allowed() }
func (p *demoPatron) RecallOK() bool { return p.allowed() }
func (p *demoPatron) HoldOK() bool   { return p.allowed() }

func (p *demoPatron) CardLost() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cardLost
}

func (p *demoPatron) TooManyCharged() bool { return false }

func (p *demoPatron) TooManyOverdue() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.overdue) > 10
}

func (p *demoPatron) TooManyRenewal() bool     { return false }
func (p *demoPatron) TooManyClaimReturn() bool { return false }
func (p *demoPatron) TooManyLost() bool        { return false }
func (p *demoPatron) ExcessiveFines() bool     { return false }
func (p *demoPatron) ExcessiveFees() bool      { return false }
func (p *demoPatron) RecallOverdue() bool      { return false }
func (p *demoPatron) TooManyBilled() bool      { return false }

func (p *demoPatron) CheckPassword(pwd string) bool {
	return p.pin == "" || p.pin == pwd
}

func (p *demoPatron) Currency() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currency
}

func (p *demoPatron) FeeAmount() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fee
}

func (p *demoPatron) HomeAddr() string  { return p.addr }
func (p *demoPatron) Email() string     { return p.email }
func (p *demoPatron) HomePhone() string { return p.phone }
func (p *demoPatron) Birthdate() string { return p.birthdate }
func (p *demoPatron) Class() string     { return p.class }

// The list accessors return copies: callers iterate them while
// transactions on other connections append and remove entries.

func (p *demoPatron) HoldItems() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyList(p.hold)
}

func (p *demoPatron) OverdueItems() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyList(p.overdue)
}

func (p *demoPatron) ChargedItems() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyList(p.charged)
}

func (p *demoPatron) FineItems() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyList(p.fine)
}

func (p *demoPatron) RecallItems() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyList(p.recall)
}

func (p *demoPatron) UnavailableHoldItems() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyList(p.unavail)
}

func (p *demoPatron) addCharged(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.charged = append(p.charged, id)
}

func (p *demoPatron) dropCharged(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.charged = removeString(p.charged, id)
}

func (p *demoPatron) addHold(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hold = append(p.hold, id)
}

func (p *demoPatron) dropHold(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hold = removeString(p.hold, id)
}

func (p *demoPatron) clearFees() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fee = ""
	p.fine = nil
}

func (p *demoPatron) Block(cardRetained bool, blockedCardMsg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blocked = true
	p.cardLost = cardRetained
	p.screenMsg = blockedCardMsg
}

func (p *demoPatron) Enable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blocked = false
	p.cardLost = false
	p.screenMsg = ""
}

func (p *demoPatron) ScreenMsg() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.screenMsg
}

func (p *demoPatron) PrintLine() string { return "" }

// demoItem implements Item. it.mu guards the circulation state (borrower,
// due date, current location, properties, hold queue); the catalogue
// fields are immutable after construction.
type demoItem struct {
	mu        sync.Mutex
	id        string
	title     string
	magnetic  bool
	mediaType string
	props     string

	permanentLocn  string
	currentLocn    string
	owner          string
	fee            string
	feeCurrency    string
	dueDate        string
	recallDate     string
	holdPickupDate string

	borrower  string
	holdQueue []string
}

func (it *demoItem) ID() string      { return it.id }
func (it *demoItem) TitleID() string { return it.title }

// SIP2 circulation status: 03 = available, 04 = charged.
func (it *demoItem) CirculationStatus() int {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.borrower != "" {
		return 4
	}
	return 3
}

func (it *demoItem) SecurityMarker() int { return 2 }
func (it *demoItem) FeeType() int        { return 1 }

func (it *demoItem) Magnetic() bool       { return it.magnetic }
func (it *demoItem) SIPMediaType() string { return it.mediaType }

func (it *demoItem) SIPItemProperties() string {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.props
}

func (it *demoItem) DueDate() string {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.dueDate
}

func (it *demoItem) RecallDate() string     { return it.recallDate }
func (it *demoItem) HoldPickupDate() string { return it.holdPickupDate }

func (it *demoItem) Fee() string         { return it.fee }
func (it *demoItem) FeeCurrency() string { return it.feeCurrency }

func (it *demoItem) Owner() string             { return it.owner }
func (it *demoItem) PermanentLocation() string { return it.permanentLocn }

func (it *demoItem) CurrentLocation() string {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.currentLocn
}

func (it *demoItem) HoldQueue() []string {
	it.mu.Lock()
	defer it.mu.Unlock()
	return copyList(it.holdQueue)
}

func (it *demoItem) ScreenMsg() string { return "" }
func (it *demoItem) PrintLine() string { return "" }

func (it *demoItem) borrowedBy() string {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.borrower
}

func (it *demoItem) lend(patronID, due string) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.borrower = patronID
	it.dueDate = due
}

func (it *demoItem) setDueDate(due string) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.dueDate = due
}

func (it *demoItem) clearLoan(currentLocn string) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.borrower = ""
	it.dueDate = ""
	if currentLocn != "" {
		it.currentLocn = currentLocn
	}
}

func (it *demoItem) setProps(props string) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.props = props
}

func (it *demoItem) pushHold(patronID string) int {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.holdQueue = append(it.holdQueue, patronID)
	return len(it.holdQueue)
}

func (it *demoItem) dropHold(patronID string) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.holdQueue = removeString(it.holdQueue, patronID)
}

func (it *demoItem) holdFor(patronID string) bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return containsString(it.holdQueue, patronID)
}

func (it *demoItem) holdCount() int {
	it.mu.Lock()
	defer it.mu.Unlock()
	return len(it.holdQueue)
}

func copyList(list []string) []string {
	out := make([]string, len(list))
	copy(out, list)
	return out
}

func removeString(list []string, s string) []string {
	var out []string
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
