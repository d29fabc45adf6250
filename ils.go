package main

// Capabilities an ILS may or may not support. Queried through
// ILS.Supports; absent capabilities get a defined wire default ('U' for
// magnetic media, CI omitted for security inhibit).
const (
	capMagneticMedia   = "magnetic media"
	capSecurityInhibit = "security inhibit"
	capOfflineOps      = "offline operation"
)

// ILS is the circulation backend the handlers call into. One shared
// instance serves all connections; implementations must be safe for
// concurrent use. Failure is conveyed through TransactionStatus.Ok, never
// through panics; lookups return nil for unknown barcodes.
type ILS interface {
	Institution() string
	CheckInstID(instID, whence string)
	Supports(capability string) bool

	CheckinOK() bool
	CheckoutOK() bool
	StatusUpdateOK() bool
	OfflineOK() bool

	Patron(id string) Patron
	Item(id string) Item

	Checkout(patronID, itemID string, scRenewal bool) *TransactionStatus
	CheckoutNoBlock(patronID, itemID, nbDueDate string) *TransactionStatus
	Checkin(itemID, currentLocn string) *TransactionStatus
	CheckinNoBlock(itemID, currentLocn, returnDate string) *TransactionStatus
	PayFee(patronID, feeType, payType, amount, currency, feeID, transID string) *TransactionStatus
	EndPatronSession(patronID string) *TransactionStatus
	AddHold(patronID, itemID, titleID, pickupLocn, expiry string) *TransactionStatus
	CancelHold(patronID, itemID, titleID string) *TransactionStatus
	AlterHold(patronID, itemID, titleID, pickupLocn, expiry string) *TransactionStatus
	Renew(patronID, itemID, titleID string, noBlock bool, nbDueDate string) *TransactionStatus
	RenewAll(patronID string) *TransactionStatus
	StatusUpdate(itemID, itemProps string) *TransactionStatus
}

// TransactionStatus is the outcome of a single ILS transaction. The
// handlers only read it; which fields are meaningful depends on the
// transaction (SortBin on checkin, Renewed/Unrenewed on renew-all, the
// hold placement trio on hold, and so on). An approved checkout or renew
// must carry Item; a status that doesn't is demoted to a failure before
// the response is composed.
type TransactionStatus struct {
	Ok          bool
	RenewalOK   bool
	Desensitize bool
	Resensitize bool
	Alert       bool

	SecurityInhibit bool
	Available       bool

	ScreenMsg string
	PrintLine string

	FeeAmount     string // empty when the transaction carries no fee
	FeeType       string
	Currency      string
	TransactionID string

	DueDate        string
	SortBin        string
	ExpirationDate string
	QueuePosition  string
	PickupLocation string

	Renewed   []string
	Unrenewed []string

	Patron Patron
	Item   Item
}

// Patron is the read-mostly view of a borrower account. Block and Enable
// are the only mutators the protocol needs.
type Patron interface {
	ID() string
	Name() string
	Language() string // three-digit SIP language code, "000" when unknown

	ChargeOK() bool
	RenewOK() bool
	RecallOK() bool
	HoldOK() bool
	CardLost() bool
	TooManyCharged() bool
	TooManyOverdue() bool
	TooManyRenewal() bool
	TooManyClaimReturn() bool
	TooManyLost() bool
	ExcessiveFines() bool
	ExcessiveFees() bool
	RecallOverdue() bool
	TooManyBilled() bool

	CheckPassword(pwd string) bool

	Currency() string
	FeeAmount() string // empty when the patron owes nothing
	HomeAddr() string
	Email() string
	HomePhone() string
	Birthdate() string
	Class() string

	HoldItems() []string
	OverdueItems() []string
	ChargedItems() []string
	FineItems() []string
	RecallItems() []string
	UnavailableHoldItems() []string

	Block(cardRetained bool, blockedCardMsg string)
	Enable()

	ScreenMsg() string
	PrintLine() string
}

// Item is the read-only view of a catalogue item.
type Item interface {
	ID() string
	TitleID() string

	CirculationStatus() int
	SecurityMarker() int
	FeeType() int

	Magnetic() bool
	SIPMediaType() string
	SIPItemProperties() string

	DueDate() string
	RecallDate() string
	HoldPickupDate() string

	Fee() string // empty when the item carries no fee
	FeeCurrency() string

	Owner() string
	PermanentLocation() string
	CurrentLocation() string

	HoldQueue() []string

	ScreenMsg() string
	PrintLine() string
}
