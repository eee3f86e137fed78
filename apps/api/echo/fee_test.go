package echoapi_test

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/campuserp/erp/apps/api/echo"
	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/fee"
	"github.com/campuserp/erp/core/student"
	docsvc "github.com/campuserp/erp/services/documents"
	paymentsvc "github.com/campuserp/erp/services/payment"
	"github.com/campuserp/erp/testutil"
)

type feeFixture struct {
	acc       accounts
	structure fee.Structure
	priya     student.Student
	arjun     student.Student
}

// feeSetup creates a semester 1 structure of 55000 (exam 3000, tuition 50000, library 2000) & two students.
func (app *testApp) feeSetup(t *testing.T) feeFixture {
	t.Helper()
	acc := app.createAccounts(t)
	crs, sess := app.campus(t)

	ns := fee.NewStructure{
		CourseID:  crs.ID,
		SessionID: sess.SessionID,
		Semester:  1,
		Heads: []fee.Head{
			{Name: "Tuition", Amount: 50000, Order: 1},
			{Name: "Library", Amount: 2000, Order: 2},
			{Name: "Exam", Amount: 3000, Order: 0},
		},
	}
	rec := app.do(t, http.MethodPost, "/api/erp/fee/structure", app.token(t, acc.accountant), ns)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var st fee.Structure
	decode(t, rec, &st)

	return feeFixture{
		acc:       acc,
		structure: st,
		priya:     testutil.CreateStudent(t, app.StudentSvc, "Priya Sharma", "priya@test.in", crs.ID, sess.SessionID, 1),
		arjun:     testutil.CreateStudent(t, app.StudentSvc, "Arjun Mehta", "arjun@test.in", crs.ID, sess.SessionID, 1),
	}
}

func TestFeeStructureAPI(t *testing.T) {
	app := setup(t)
	fx := app.feeSetup(t)
	st := fx.structure
	accountantToken := app.token(t, fx.acc.accountant)

	assert.Equal(t, 55000.0, st.Total())

	ns := fee.NewStructure{
		CourseID:  st.CourseID,
		SessionID: st.SessionID,
		Semester:  2,
		Heads:     []fee.Head{{Name: "Tuition", Amount: 50000}},
	}

	tests := []struct {
		name      string
		modify    func(ns *fee.NewStructure)
		wantField string
	}{
		{name: "zero amount", modify: func(ns *fee.NewStructure) { ns.Heads[0].Amount = 0 }, wantField: "heads[0].amount"},
		{name: "negative amount", modify: func(ns *fee.NewStructure) { ns.Heads[0].Amount = -10 }, wantField: "heads[0].amount"},
		{name: "no heads", modify: func(ns *fee.NewStructure) { ns.Heads = nil }, wantField: "heads"},
		{
			name:      "duplicate head",
			modify:    func(ns *fee.NewStructure) { ns.Heads = append(ns.Heads, fee.Head{Name: "tuition", Amount: 1}) },
			wantField: "heads[1].name",
		},
		{name: "taken semester", modify: func(ns *fee.NewStructure) { ns.Semester = 1 }, wantField: "semester"},
		{name: "unknown course", modify: func(ns *fee.NewStructure) { ns.CourseID = "unknown" }, wantField: "course_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := ns
			data.Heads = append([]fee.Head{}, ns.Heads...)
			tt.modify(&data)
			rec := app.do(t, http.MethodPost, "/api/erp/fee/structure", accountantToken, data)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, decodeErr(t, rec).Fields, tt.wantField)
		})
	}

	rec := app.do(t, http.MethodPost, "/api/erp/fee/structure", app.token(t, fx.acc.staff), ns)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// any signed in user can read
	rec = app.do(t, http.MethodGet, "/api/erp/fee/structure?semester=1", app.token(t, fx.acc.outsider), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var structures []fee.Structure
	decode(t, rec, &structures)
	require.Len(t, structures, 1)
	assert.Equal(t, st.ID, structures[0].ID)

	upd := fee.NewStructure{CourseID: st.CourseID, SessionID: st.SessionID, Semester: 1, Heads: []fee.Head{{Name: "Tuition", Amount: 45000}}}
	rec = app.do(t, http.MethodPut, "/api/erp/fee/structure/"+st.ID, accountantToken, upd)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &st)
	assert.Equal(t, 45000.0, st.Total())

	rec = app.do(t, http.MethodDelete, "/api/erp/fee/structure/"+st.ID, app.token(t, fx.acc.admin), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(t, http.MethodGet, "/api/erp/fee/structure/"+st.ID, accountantToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReceiptAPI(t *testing.T) {
	app := setup(t)
	fx := app.feeSetup(t)
	accountantToken := app.token(t, fx.acc.accountant)
	app.Mail.Clear()

	pay := func(amount float64, mode, ref string) fee.NewReceipt {
		return fee.NewReceipt{StudentID: fx.priya.ID, StructureID: fx.structure.ID, Amount: amount, Mode: mode, Reference: ref}
	}

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name      string
			data      fee.NewReceipt
			wantField string
		}{
			{name: "zero amount", data: pay(0, fee.ModeCash, ""), wantField: "amount"},
			{name: "unknown mode", data: pay(100, "barter", ""), wantField: "mode"},
			{name: "cheque without number", data: pay(100, fee.ModeCheque, ""), wantField: "reference"},
			{name: "above balance", data: pay(55000.01, fee.ModeCash, ""), wantField: "amount"},
			{name: "unknown student", data: fee.NewReceipt{StudentID: "nobody", StructureID: fx.structure.ID, Amount: 1, Mode: fee.ModeCash}, wantField: "student_id"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := app.do(t, http.MethodPost, "/api/receipts", accountantToken, tt.data)
				require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
				assert.Contains(t, decodeErr(t, rec).Fields, tt.wantField)
			})
		}
	})

	rec := app.do(t, http.MethodPost, "/api/receipts", app.token(t, fx.acc.outsider), pay(100, fee.ModeCash, ""))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/receipts", accountantToken, pay(10000, fee.ModeCheque, "CHQ-004512"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var r fee.Receipt
	decode(t, rec, &r)
	assert.Equal(t, "RCPT-000001", r.ReceiptNo)
	assert.Equal(t, fx.acc.accountant.ID, r.CollectedBy)
	assert.Len(t, app.Events.Events(core.EventPaymentRecorded), 1)

	// the student is emailed the receipt
	sent := app.Mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, fx.priya.Email, sent[0].To[0].Address)
	assert.True(t, sent[0].HasAttachments())

	// what is left is 45000: paying it all is fine, a cent more is not
	rec = app.do(t, http.MethodPost, "/api/receipts", accountantToken, pay(45000.01, fee.ModeUPI, ""))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	t.Run("summary", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/erp/fee/summary/"+fx.priya.ID, app.token(t, fx.acc.staff), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp echoapi.FeeSummaryResponse
		decode(t, rec, &resp)
		require.Len(t, resp.Summaries, 1)

		sum := resp.Summaries[0]
		assert.Equal(t, fee.StatusPartial, sum.Status)
		assert.Equal(t, 55000.0, sum.Total)
		assert.Equal(t, 10000.0, sum.Paid)
		assert.Equal(t, 45000.0, sum.Balance)
		require.Len(t, sum.Heads, 3)
		// exam (order 0) is paid first, then tuition
		assert.Equal(t, "Exam", sum.Heads[0].Name)
		assert.Equal(t, 3000.0, sum.Heads[0].Paid)
		assert.Equal(t, 7000.0, sum.Heads[1].Paid)
		assert.Equal(t, 43000.0, sum.Heads[1].Balance)
		assert.Equal(t, 0.0, sum.Heads[2].Paid)

		rec = app.do(t, http.MethodGet, "/api/erp/fee/summary/"+fx.priya.ID, app.token(t, fx.acc.outsider), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		rec = app.do(t, http.MethodGet, "/api/erp/fee/summary/nobody", app.token(t, fx.acc.staff), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("access", func(t *testing.T) {
		priyaToken := app.token(t, testutil.StudentUser(t, app.UserSvc, fx.priya))
		arjunToken := app.token(t, testutil.StudentUser(t, app.UserSvc, fx.arjun))

		rec := app.do(t, http.MethodGet, "/api/receipts/"+r.ID, priyaToken, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		rec = app.do(t, http.MethodGet, "/api/receipts/"+r.ID, arjunToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = app.do(t, http.MethodGet, "/api/receipts/"+r.ID, app.token(t, fx.acc.outsider), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		rec = app.do(t, http.MethodGet, "/api/receipts", priyaToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = app.do(t, http.MethodGet, "/api/receipts/"+r.ID+"/pdf", priyaToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "RCPT-000001.pdf")

		rec = app.do(t, http.MethodGet, "/api/receipts/"+r.ID+"/pdf", arjunToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("list & ledger", func(t *testing.T) {
		staffToken := app.token(t, fx.acc.staff)
		rec := app.do(t, http.MethodGet, "/api/receipts?mode=cheque", staffToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var receipts []fee.Receipt
		decode(t, rec, &receipts)
		require.Len(t, receipts, 1)

		rec = app.do(t, http.MethodGet, "/api/receipts?student_id="+fx.arjun.ID, staffToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())

		rec = app.do(t, http.MethodGet, "/api/receipts?from=yesterday", staffToken, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = app.do(t, http.MethodGet, "/api/erp/fee/ledger", staffToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var entries []fee.LedgerEntry
		decode(t, rec, &entries)
		require.Len(t, entries, 1)
		assert.Equal(t, fx.priya.EnrollmentNo, entries[0].EnrollmentNo)

		rec = app.do(t, http.MethodGet, "/api/erp/fee/ledger.xlsx", staffToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, docsvc.XLSXContentType, rec.Header().Get("Content-Type"))
		assert.NotEmpty(t, rec.Body.Bytes())
	})
}

func TestPaymentAPI(t *testing.T) {
	app := setup(t)
	fx := app.feeSetup(t)
	priyaToken := app.token(t, testutil.StudentUser(t, app.UserSvc, fx.priya))

	rec := app.do(t, http.MethodPost, "/api/payments/order", app.token(t, fx.acc.staff), fee.NewPaymentOrder{StructureID: fx.structure.ID, Amount: 100})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/payments/order", priyaToken, fee.NewPaymentOrder{StructureID: fx.structure.ID, Amount: 60000})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErr(t, rec).Fields, "amount")

	rec = app.do(t, http.MethodPost, "/api/payments/order", priyaToken, fee.NewPaymentOrder{StructureID: fx.structure.ID, Amount: 5000})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var checkout fee.Checkout
	decode(t, rec, &checkout)
	assert.Equal(t, "order_fake000001", checkout.OrderID)
	assert.Equal(t, "rzp_test_fake", checkout.KeyID)
	assert.Equal(t, "INR", checkout.Currency)

	vp := fee.VerifyPayment{OrderID: checkout.OrderID, PaymentID: "pay_29QQoUBi66xm2f", Signature: "forged"}
	rec = app.do(t, http.MethodPost, "/api/payments/verify", priyaToken, vp)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErr(t, rec).Fields, "razorpay_signature")

	vp.Signature = paymentsvc.Sign(testutil.GatewaySecret, vp.OrderID, vp.PaymentID)

	// only the student who ordered can confirm
	arjunToken := app.token(t, testutil.StudentUser(t, app.UserSvc, fx.arjun))
	rec = app.do(t, http.MethodPost, "/api/payments/verify", arjunToken, vp)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/payments/verify", priyaToken, vp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var r fee.Receipt
	decode(t, rec, &r)
	assert.Equal(t, fee.ModeOnline, r.Mode)
	assert.Equal(t, 5000.0, r.Amount)
	assert.Equal(t, vp.PaymentID, r.Reference)

	// confirming twice records nothing new
	rec = app.do(t, http.MethodPost, "/api/payments/verify", priyaToken, vp)
	require.Equal(t, http.StatusOK, rec.Code)
	var again fee.Receipt
	decode(t, rec, &again)
	assert.Equal(t, r.ID, again.ID)
	assert.Len(t, app.Events.Events(core.EventPaymentRecorded), 1)

	rec = app.do(t, http.MethodGet, "/api/student/fees", priyaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp echoapi.FeeSummaryResponse
	decode(t, rec, &resp)
	require.Len(t, resp.Summaries, 1)
	assert.Equal(t, 50000.0, resp.Summaries[0].Balance)
}
