package fee

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/campuserp/erp/core"
)

// Payment modes
const (
	ModeCash   = "cash"
	ModeCheque = "cheque"
	ModeDD     = "dd"
	ModeUPI    = "upi"
	ModeOnline = "online"
	ModeCard   = "card"
)

// Payment order statuses
const (
	OrderCreated = "created"
	OrderPaid    = "paid"
	OrderFailed  = "failed"
)

var Modes = []string{ModeCash, ModeCheque, ModeDD, ModeUPI, ModeOnline, ModeCard}

type (
	// Structure is the fee structure of a course semester in a session.
	Structure struct {
		ID        string    `json:"id"`
		CourseID  string    `json:"course_id"`
		SessionID string    `json:"session_id"`
		Semester  int       `json:"semester"`
		DueDate   core.Date `json:"due_date"`
		Heads     []Head    `json:"heads"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	// Head is a named fee category (tuition, library, hostel...).
	Head struct {
		Name   string  `json:"name" validate:"required,max=100"`
		Amount float64 `json:"amount" validate:"gt=0,lte=9999999999.99"`
		Order  int     `json:"order" validate:"min=0"`
	}
)

func (st Structure) Total() float64 {
	var total int64
	for _, h := range st.Heads {
		total += core.ToCents(h.Amount)
	}
	return core.FromCents(total)
}

// NewStructure contains the information needed to create or replace a Structure.
type NewStructure struct {
	CourseID  string    `json:"course_id" validate:"required"`
	SessionID string    `json:"session_id" validate:"required"`
	Semester  int       `json:"semester" validate:"min=1,max=12"`
	DueDate   core.Date `json:"due_date"`
	Heads     []Head    `json:"heads" validate:"required,min=1,dive"`
}

func (ns *NewStructure) Clean() {
	ns.CourseID = core.CleanString(ns.CourseID)
	ns.SessionID = core.CleanString(ns.SessionID)
	for i := range ns.Heads {
		ns.Heads[i].Name = core.CleanString(ns.Heads[i].Name)
		ns.Heads[i].Amount = core.RoundAmount(ns.Heads[i].Amount)
	}
}

// Validate checks ns; orig is the Structure being replaced, if any.
func (ns *NewStructure) Validate(ctx context.Context, validate *validator.Validate, svc Service, orig ...Structure) error {
	ns.Clean()
	if err := validate.Struct(ns); err != nil {
		return err
	}
	var excludedID string
	if len(orig) > 0 {
		excludedID = orig[0].ID
	}
	return svc.CheckStructureUniqueness(ctx, ns.CourseID, ns.SessionID, ns.Semester, excludedID)
}

type StructureFilter struct {
	CourseID  string
	SessionID string
	Semester  int
}

type Receipt struct {
	ID          string    `json:"id"`
	ReceiptNo   string    `json:"receipt_no"`
	StudentID   string    `json:"student_id"`
	StructureID string    `json:"structure_id"`
	Amount      float64   `json:"amount"`
	Mode        string    `json:"mode"`
	Reference   string    `json:"reference"`
	Remarks     string    `json:"remarks"`
	PaidAt      time.Time `json:"paid_at"`
	CollectedBy string    `json:"collected_by"` // user ID; empty for online payments
	CreatedAt   time.Time `json:"created_at"`
}

// NewReceipt is a payment recorded by the accounts staff.
type NewReceipt struct {
	StudentID   string    `json:"student_id" validate:"required"`
	StructureID string    `json:"structure_id" validate:"required"`
	Amount      float64   `json:"amount" validate:"gt=0,lte=9999999999.99"`
	Mode        string    `json:"mode" validate:"required,feemode"`
	Reference   string    `json:"reference" validate:"max=100"`
	Remarks     string    `json:"remarks" validate:"max=500"`
	PaidAt      time.Time `json:"paid_at"`
}

func (nr *NewReceipt) Validate(validate *validator.Validate) error {
	nr.StudentID = core.CleanString(nr.StudentID)
	nr.StructureID = core.CleanString(nr.StructureID)
	nr.Mode = core.CleanString(nr.Mode, true /* lower */)
	nr.Reference = core.CleanString(nr.Reference)
	nr.Remarks = core.CleanString(nr.Remarks)
	nr.Amount = core.RoundAmount(nr.Amount)
	return validate.Struct(nr)
}

type ReceiptFilter struct {
	StudentID   string
	StructureID string
	Mode        string
	From        core.Date // inclusive, on paid_at
	To          core.Date // inclusive: covers the whole day
}

// Matches reports whether r passes the filter.
func (rf ReceiptFilter) Matches(r Receipt) bool {
	switch {
	case rf.StudentID != "" && r.StudentID != rf.StudentID:
		return false
	case rf.StructureID != "" && r.StructureID != rf.StructureID:
		return false
	case rf.Mode != "" && r.Mode != rf.Mode:
		return false
	case !rf.From.IsZero() && r.PaidAt.Before(rf.From.Time):
		return false
	case !rf.To.IsZero() && !r.PaidAt.Before(rf.To.AddDate(0, 0, 1)):
		return false
	}
	return true
}

type (
	// PaymentOrder tracks an online payment from its gateway order to its Receipt.
	PaymentOrder struct {
		ID          string    `json:"id"`
		OrderID     string    `json:"order_id"` // gateway order id
		StudentID   string    `json:"student_id"`
		StructureID string    `json:"structure_id"`
		Amount      float64   `json:"amount"`
		Currency    string    `json:"currency"`
		Status      string    `json:"status"`
		PaymentID   string    `json:"payment_id,omitempty"`
		ReceiptID   string    `json:"receipt_id,omitempty"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}

	NewPaymentOrder struct {
		StructureID string  `json:"structure_id" validate:"required"`
		Amount      float64 `json:"amount" validate:"gt=0,lte=9999999999.99"`
	}

	// Checkout is what the frontend needs to open the gateway checkout.
	Checkout struct {
		OrderID  string  `json:"order_id"`
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
		KeyID    string  `json:"key_id"`
	}

	VerifyPayment struct {
		OrderID   string `json:"razorpay_order_id" validate:"required"`
		PaymentID string `json:"razorpay_payment_id" validate:"required"`
		Signature string `json:"razorpay_signature" validate:"required"`
	}

	// GatewayOrder is an order created on the payment gateway; Amount is in the smallest currency unit.
	GatewayOrder struct {
		ID       string
		Amount   int64
		Currency string
	}
)

func (no *NewPaymentOrder) Validate(validate *validator.Validate) error {
	no.StructureID = core.CleanString(no.StructureID)
	no.Amount = core.RoundAmount(no.Amount)
	return validate.Struct(no)
}

func (vp *VerifyPayment) Validate(validate *validator.Validate) error {
	vp.OrderID = core.CleanString(vp.OrderID)
	vp.PaymentID = core.CleanString(vp.PaymentID)
	vp.Signature = core.CleanString(vp.Signature)
	return validate.Struct(vp)
}

type (
	// ReceiptDocument is everything printed on a receipt.
	ReceiptDocument struct {
		Institution  string
		Currency     string
		Receipt      Receipt
		StudentName  string
		EnrollmentNo string
		CourseName   string
		SessionID    string
		Semester     int
		Summary      Summary
		VerifyCode   string
	}

	// LedgerEntry is a Receipt with the student details needed in the ledger export.
	LedgerEntry struct {
		Receipt
		StudentName  string `json:"student_name"`
		EnrollmentNo string `json:"enrollment_no"`
	}
)
