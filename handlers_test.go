package main

import (
	"regexp"
	"strings"
	"testing"

	"github.com/knakk/specs"
)

const reqDate = "20060101    084237"

// serve pushes one frame through the session and fails the test if the
// frame was dropped.
func serve(t *testing.T, sess *Session, frame string) string {
	t.Helper()
	out, _ := sess.Service(frame, "")
	if out == "" {
		t.Fatalf("frame %q was dropped", frame)
	}
	return strings.TrimSuffix(out, "\r")
}

func v2Session() *Session {
	sess := testSession()
	sess.Protocol = protocolV2
	return sess
}

func TestPatronStatus(t *testing.T) {
	sess := v2Session()
	out := serve(t, sess, "23001"+reqDate+"AOUWOLS|AAdjfiander|AD6789|")

	if ok, _ := regexp.MatchString(`^24 {14}001\d{8} {4}\d{6}`, out); !ok {
		t.Errorf("fixed part of %q malformed", out)
	}
	s := specs.New(t)
	s.Expect(true, strings.Contains(out, "AEDavid J. Fiander|"))
	s.Expect(true, strings.Contains(out, "AAdjfiander|"))
	s.Expect(true, strings.Contains(out, "BLY|"))
	s.Expect(true, strings.Contains(out, "CQY|"))
	s.Expect(true, strings.HasSuffix(out, "AOUWOLS|"))
}

func TestPatronStatusUnknownPatron(t *testing.T) {
	sess := v2Session()
	out := serve(t, sess, "23001"+reqDate+"AOUWOLS|AAbad_userid|")

	if !strings.HasPrefix(out, respPatronStatus+invalidPatronStatus) {
		t.Errorf("unknown patron => %q; want all privileges denied", out)
	}
	s := specs.New(t)
	s.Expect(true, strings.Contains(out, "AE|"))
	s.Expect(true, strings.Contains(out, "AAbad_userid|"))
	s.Expect(true, strings.Contains(out, "BLN|"))
	s.Expect(false, strings.Contains(out, "CQ"))
}

func TestPatronStatusWrongPassword(t *testing.T) {
	sess := v2Session()
	out := serve(t, sess, "23001"+reqDate+"AOUWOLS|AAdjfiander|ADwrongpw|")

	// The patron is valid even when the password is not.
	s := specs.New(t)
	s.Expect(true, strings.Contains(out, "BLY|"))
	s.Expect(true, strings.Contains(out, "CQN|"))
}

func TestPatronStatusV1OmitsValidFields(t *testing.T) {
	sess := testSession()
	out := serve(t, sess, "23001"+reqDate+"AOUWOLS|AAdjfiander|AD6789|")

	for _, fid := range []string{"|BL", "|CQ"} {
		if strings.Contains(out, fid) {
			t.Errorf("1.00 response %q carries a SIP2-only field %q", out, fid[1:])
		}
	}
}

func TestBlockPatronThenEnable(t *testing.T) {
	sess := v2Session()

	out := serve(t, sess, "01Y"+reqDate+"ALCard reported lost|AOUWOLS|AAdjfiander|")
	if !strings.HasPrefix(out, respPatronStatus+"YYYYY") {
		t.Fatalf("blocked patron => %q; want denied privileges and lost card", out)
	}
	if !strings.Contains(out, "AFCard reported lost|") {
		t.Errorf("blocked card message not echoed in %q", out)
	}

	out = serve(t, sess, "25"+reqDate+"AOUWOLS|AAdjfiander|AD6789|")
	if ok, _ := regexp.MatchString(`^26 {14}000`, out); !ok {
		t.Errorf("enabled patron => %q; want privileges restored", out)
	}
	s := specs.New(t)
	s.Expect(true, strings.Contains(out, "CQY|"))
	s.Expect(true, strings.Contains(out, "BLY|"))
}

func TestPatronEnableWrongPassword(t *testing.T) {
	sess := v2Session()
	out := serve(t, sess, "25"+reqDate+"AOUWOLS|AAdjfiander|ADwrongpw|")

	if !strings.HasPrefix(out, respPatronEnable+invalidPatronStatus) {
		t.Errorf("enable with bad password => %q; want denied status", out)
	}
	if !strings.Contains(out, "CQN|") {
		t.Errorf("enable with bad password => %q; want CQN", out)
	}
}

func TestCheckoutAndCheckin(t *testing.T) {
	sess := v2Session()

	out := serve(t, sess, "11NN"+reqDate+reqDate+"AOUWOLS|AAdjfiander|AB1565921879|AC|")
	if !strings.HasPrefix(out, respCheckout+"1NNY") {
		t.Fatalf("checkout => %q; want success, no renewal, desensitize", out)
	}
	s := specs.New(t)
	s.Expect(true, strings.Contains(out, "AJPerl 5 desktop reference|"))
	s.Expect(true, strings.Contains(out, "CK001|"))
	if ok, _ := regexp.MatchString(`AH\d{8} {4}\d{6}\|`, out); !ok {
		t.Errorf("checkout response %q carries no due date", out)
	}

	// The same item to another patron must fail.
	out = serve(t, sess, "11NN"+reqDate+reqDate+"AOUWOLS|AAmiker|AB1565921879|AC|")
	if !strings.HasPrefix(out, respCheckout+"0NUN") {
		t.Fatalf("conflicting checkout => %q; want failure", out)
	}
	s.Expect(true, strings.Contains(out, "AFItem checked out to another patron|"))
	s.Expect(true, strings.Contains(out, "BLY|"))

	out = serve(t, sess, "09N"+reqDate+reqDate+"APcirc desk|AOUWOLS|AB1565921879|AC|")
	if !strings.HasPrefix(out, respCheckin+"1YNN") {
		t.Fatalf("checkin => %q; want success and resensitize", out)
	}
	s.Expect(true, strings.Contains(out, "AQstacks|"))
	s.Expect(true, strings.Contains(out, "AAdjfiander|"))
}

func TestCheckinItemNotCheckedOut(t *testing.T) {
	sess := v2Session()
	out := serve(t, sess, "09N"+reqDate+reqDate+"AP|AOUWOLS|AB0440242746|AC|")
	if !strings.HasPrefix(out, respCheckin+"0") {
		t.Errorf("checkin of idle item => %q; want failure", out)
	}
	if !strings.Contains(out, "AFItem not checked out|") {
		t.Errorf("checkin of idle item => %q; want explanation", out)
	}
}

func TestCheckoutRenewalPolicy(t *testing.T) {
	sess := v2Session()
	serve(t, sess, "11NN"+reqDate+reqDate+"AOUWOLS|AAdjfiander|AB660|AC|")

	// Renewal via checkout is allowed by the test config.
	out := serve(t, sess, "11YN"+reqDate+reqDate+"AOUWOLS|AAdjfiander|AB660|AC|")
	if !strings.HasPrefix(out, respCheckout+"1Y") {
		t.Fatalf("renewal checkout => %q; want success with renewal flag", out)
	}

	// With renewals disabled by policy the same request fails.
	sess.cfg.Renewal = false
	out = serve(t, sess, "11YN"+reqDate+reqDate+"AOUWOLS|AAdjfiander|AB660|AC|")
	if !strings.HasPrefix(out, respCheckout+"0NUN") {
		t.Errorf("renewal checkout against policy => %q; want failure", out)
	}
}

func TestPatronInfo(t *testing.T) {
	sess := v2Session()
	out := serve(t, sess, "63001"+reqDate+"          "+"AOUWOLS|AAdjfiander|AD6789|")

	if ok, _ := regexp.MatchString(`^64 {14}001\d{8} {4}\d{6}0{24}`, out); !ok {
		t.Fatalf("patron info fixed part of %q malformed", out)
	}
	s := specs.New(t)
	s.Expect(true, strings.Contains(out, "AEDavid J. Fiander|"))
	s.Expect(true, strings.Contains(out, "BD2 Meadowvale Dr. St Thomas, ON|"))
	s.Expect(true, strings.Contains(out, "BEdjfiander@hotmail.com|"))
	s.Expect(true, strings.Contains(out, "BF(519) 555 1234|"))
	s.Expect(true, strings.Contains(out, "BLY|"))
	s.Expect(true, strings.Contains(out, "CQY|"))
	s.Expect(true, strings.Contains(out, "PCA|"))
	s.Expect(true, strings.HasSuffix(out, "AOUWOLS|"))
}

func TestPatronInfoSummaryExpansion(t *testing.T) {
	sess := v2Session()
	serve(t, sess, "11NN"+reqDate+reqDate+"AOUWOLS|AAdjfiander|AB660|AC|")

	// Position 2 selects the charged items detail list.
	out := serve(t, sess, "63001"+reqDate+"  Y       "+"AOUWOLS|AAdjfiander|")
	if !strings.Contains(out, "AU660|") {
		t.Errorf("charged items summary not expanded in %q", out)
	}
	if ok, _ := regexp.MatchString(`0{8}0001`, out); !ok {
		t.Errorf("charged count missing from %q", out)
	}
}

func TestPatronInfoUnknownPatron(t *testing.T) {
	sess := v2Session()
	out := serve(t, sess, "63001"+reqDate+"          "+"AOUWOLS|AAnosuch|")
	if !strings.HasPrefix(out, respPatronInfo+invalidPatronStatus) {
		t.Fatalf("unknown patron => %q; want denied status", out)
	}
	if !strings.Contains(out, "BLN|") {
		t.Errorf("unknown patron => %q; want BLN", out)
	}
}

func TestEndPatronSession(t *testing.T) {
	sess := v2Session()
	out := serve(t, sess, "35"+reqDate+"AOUWOLS|AAdjfiander|")
	if !strings.HasPrefix(out, respEndSession+"Y") {
		t.Fatalf("end session => %q; want success", out)
	}
	if !strings.Contains(out, "AFThank you for using the library!|") {
		t.Errorf("end session => %q; want farewell message", out)
	}
}

func TestFeePaid(t *testing.T) {
	sess := v2Session()
	out := serve(t, sess, "37"+reqDate+"0100USD"+"AOUWOLS|AAdjfiander|BV1.50|")
	if !strings.HasPrefix(out, respFeePaid+"Y") {
		t.Fatalf("fee paid => %q; want success", out)
	}

	out = serve(t, sess, "37"+reqDate+"0100USD"+"AOUWOLS|AAnosuch|BV1.50|")
	if !strings.HasPrefix(out, respFeePaid+"N") {
		t.Errorf("fee paid for unknown patron => %q; want failure", out)
	}
}

func TestItemInformation(t *testing.T) {
	sess := v2Session()
	out := serve(t, sess, "17"+reqDate+"AOUWOLS|AB1565921879|")

	// Available item: circulation status 03, security marker 02, fee
	// type 01.
	if !strings.HasPrefix(out, respItemInformation+"030201") {
		t.Fatalf("item information => %q; want available status", out)
	}
	s := specs.New(t)
	s.Expect(true, strings.Contains(out, "AB1565921879|"))
	s.Expect(true, strings.Contains(out, "AJPerl 5 desktop reference|"))
	s.Expect(true, strings.Contains(out, "CK001|"))
	s.Expect(true, strings.Contains(out, "AQstacks|"))
	s.Expect(true, strings.Contains(out, "BGUWOLS|"))
}

func TestItemInformationUnknownItem(t *testing.T) {
	sess := v2Session()
	out := serve(t, sess, "17"+reqDate+"AOUWOLS|ABnosuch|")
	if !strings.HasPrefix(out, respItemInformation+"010101") {
		t.Fatalf("unknown item => %q; want unknown status", out)
	}
	s := specs.New(t)
	s.Expect(true, strings.Contains(out, "ABnosuch|"))
	s.Expect(true, strings.Contains(out, "AJ|"))
}

func TestItemStatusUpdate(t *testing.T) {
	sess := v2Session()
	out := serve(t, sess, "19"+reqDate+"AOUWOLS|AB660|CHspine damaged|")
	if !strings.HasPrefix(out, respItemStatusUpd+"1") {
		t.Fatalf("item status update => %q; want success", out)
	}
	if !strings.Contains(out, "CHspine damaged|") {
		t.Errorf("updated properties not echoed in %q", out)
	}

	out = serve(t, sess, "19"+reqDate+"AOUWOLS|ABnosuch|CHx|")
	if !strings.HasPrefix(out, respItemStatusUpd+"0") {
		t.Fatalf("update of unknown item => %q; want failure", out)
	}
	if strings.Contains(out, "AF") {
		t.Errorf("update of unknown item => %q; want no screen message", out)
	}
}

func TestHoldLifecycle(t *testing.T) {
	sess := v2Session()

	out := serve(t, sess, "15+"+reqDate+"BSmain desk|AOUWOLS|AAdjfiander|AB660|")
	if !strings.HasPrefix(out, respHold+"1Y") {
		t.Fatalf("add hold => %q; want ok and available", out)
	}
	s := specs.New(t)
	s.Expect(true, strings.Contains(out, "BR1|"))
	s.Expect(true, strings.Contains(out, "BSmain desk|"))
	s.Expect(true, strings.Contains(out, "AB660|"))

	out = serve(t, sess, "15-"+reqDate+"AOUWOLS|AAdjfiander|AB660|")
	if !strings.HasPrefix(out, respHold+"1Y") {
		t.Fatalf("cancel hold => %q; want ok", out)
	}

	// Cancelling again finds nothing.
	out = serve(t, sess, "15-"+reqDate+"AOUWOLS|AAdjfiander|AB660|")
	if !strings.HasPrefix(out, respHold+"0N") {
		t.Fatalf("double cancel => %q; want failure", out)
	}
	s.Expect(true, strings.Contains(out, "AFNo such hold|"))
}

func TestRenew(t *testing.T) {
	sess := v2Session()
	serve(t, sess, "11NN"+reqDate+reqDate+"AOUWOLS|AAdjfiander|AB660|AC|")

	out := serve(t, sess, "29NN"+reqDate+reqDate+"AOUWOLS|AAdjfiander|AB660|")
	if !strings.HasPrefix(out, respRenew+"1YNN") {
		t.Fatalf("renew => %q; want success", out)
	}
	s := specs.New(t)
	s.Expect(true, strings.Contains(out, "AJHarry Potter y el caliz de fuego|"))
	s.Expect(true, strings.Contains(out, "CK001|"))

	out = serve(t, sess, "29NN"+reqDate+reqDate+"AOUWOLS|AAmiker|AB660|")
	if !strings.HasPrefix(out, respRenew+"0NUN") {
		t.Fatalf("renew by non-borrower => %q; want failure", out)
	}
	s.Expect(true, strings.Contains(out, "AFItem not checked out|"))
}

func TestRenewAll(t *testing.T) {
	sess := v2Session()
	serve(t, sess, "11NN"+reqDate+reqDate+"AOUWOLS|AAdjfiander|AB660|AC|")
	serve(t, sess, "11NN"+reqDate+reqDate+"AOUWOLS|AAdjfiander|AB0440242746|AC|")

	out := serve(t, sess, "65"+reqDate+"AOUWOLS|AAdjfiander|")
	if !strings.HasPrefix(out, respRenewAll+"100020000") {
		t.Fatalf("renew all => %q; want two renewed, none unrenewed", out)
	}
	s := specs.New(t)
	s.Expect(true, strings.Contains(out, "BM660|"))
	s.Expect(true, strings.Contains(out, "BM0440242746|"))
	s.Expect(false, strings.Contains(out, "BN"))
}

func TestSCStatusReportsCapabilities(t *testing.T) {
	sess := v2Session()
	out := serve(t, sess, "9900032.00")

	if !strings.HasPrefix(out, respACSStatus+"YYYYYY010002") {
		t.Fatalf("ACS status => %q; want all services on, timeout 010, retries 002", out)
	}
	s := specs.New(t)
	s.Expect(true, strings.Contains(out, protocolV2+"AOUWOLS|"))
	s.Expect(true, strings.Contains(out, "BX"+strings.Repeat("Y", 16)+"|"))
}

func TestSCStatusVersionDowngrade(t *testing.T) {
	sess := v2Session()
	out := serve(t, sess, "9900031.00")
	if sess.Protocol != protocolV1 {
		t.Errorf("session protocol => %v; want 1.00", sess.Protocol)
	}
	if !strings.Contains(out, protocolV1+"AOUWOLS|") {
		t.Errorf("ACS status => %q; want protocol 1.00 advertised", out)
	}
	if strings.Contains(out, "BX") {
		t.Errorf("1.00 ACS status %q advertises the SIP2 message set", out)
	}
}

// itemlessILS approves circulation transactions without attaching item
// data, like a misbehaving backend would.
type itemlessILS struct {
	ILS
}

func (l *itemlessILS) Checkout(patronID, itemID string, scRenewal bool) *TransactionStatus {
	return &TransactionStatus{Ok: true}
}

func (l *itemlessILS) Renew(patronID, itemID, titleID string, noBlock bool, nbDueDate string) *TransactionStatus {
	return &TransactionStatus{Ok: true}
}

func TestCirculationWithoutItemDataFails(t *testing.T) {
	sess := v2Session()
	sess.ils = &itemlessILS{ILS: sess.ils}

	out := serve(t, sess, "11NN"+reqDate+reqDate+"AOUWOLS|AAdjfiander|AB660|AC|")
	if !strings.HasPrefix(out, respCheckout+"0NUN") {
		t.Errorf("checkout without item data => %q; want failure", out)
	}

	out = serve(t, sess, "29NN"+reqDate+reqDate+"AOUWOLS|AAdjfiander|AB660|")
	if !strings.HasPrefix(out, respRenew+"0NUN") {
		t.Errorf("renew without item data => %q; want failure", out)
	}
}

func accountSession() *Session {
	c := &config{
		Institution: "UWOLS",
		Delimiter:   "|",
		Timeout:     10,
		Retries:     2,
		Renewal:     true,
		Accounts: map[string]*Account{
			"scterm": {ID: "scterm", Password: "secret"},
		},
	}
	return newSession(c, newDemoILS(c.Institution))
}

func TestLoginUpgradesProtocol(t *testing.T) {
	s := specs.New(t)
	sess := accountSession()
	s.Expect(protocolV1, sess.Protocol)

	out := serve(t, sess, "9300CNscterm|COsecret|CPcirc desk|")
	s.Expect(respLogin+"1", out)
	s.Expect(protocolV2, sess.Protocol)

	// The upgraded session speaks SIP2 from here on.
	out = serve(t, sess, "9900032.00")
	s.Expect(true, strings.Contains(out, protocolV2+"AOUWOLS|"))
}

func TestLoginGating(t *testing.T) {
	s := specs.New(t)
	sess := accountSession()
	sess.Protocol = protocolV2

	// Circulation traffic before login is swallowed.
	out, code := sess.Service("23001"+reqDate+"AOUWOLS|AAdjfiander|", "")
	s.Expect("", out)
	s.Expect(msgPatronStatus, code)

	// A failed login leaves the gate closed.
	out = serve(t, sess, "9300CNscterm|COwrong|")
	s.Expect(respLogin+"0", out)
	out, _ = sess.Service("23001"+reqDate+"AOUWOLS|AAdjfiander|", "")
	s.Expect("", out)

	out = serve(t, sess, "9300CNscterm|COsecret|")
	s.Expect(respLogin+"1", out)
	out = serve(t, sess, "23001"+reqDate+"AOUWOLS|AAdjfiander|")
	s.Expect(true, strings.HasPrefix(out, respPatronStatus))
}

func TestLoginRejectsEncryptedCredentials(t *testing.T) {
	sess := accountSession()
	out := serve(t, sess, "9311CNscterm|COsecret|")
	if out != respLogin+"0" {
		t.Errorf("login with encryption algorithms => %q; want refusal", out)
	}
}

func TestAccountInstitutionOverridesDefault(t *testing.T) {
	sess := accountSession()
	sess.cfg.Accounts["scterm"].Institution = "BRANCH"
	serve(t, sess, "9300CNscterm|COsecret|")

	out := serve(t, sess, "9900032.00")
	if !strings.Contains(out, "AOBRANCH|") {
		t.Errorf("ACS status => %q; want account institution", out)
	}
}

func BenchmarkPatronInfo(b *testing.B) {
	sess := v2Session()
	frame := "63001" + reqDate + "          " + "AOUWOLS|AAdjfiander|AD6789|"
	for i := 0; i < b.N; i++ {
		sess.Service(frame, "")
	}
}
