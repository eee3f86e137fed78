package fee

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/counter"
	"github.com/campuserp/erp/core/course"
	"github.com/campuserp/erp/core/student"
	"github.com/campuserp/erp/core/user"
)

const receiptSeqWidth = 6

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("fee structure")
	ErrReceiptNotFound   = core.NewNotFoundError("receipt")
	ErrOrderNotFound     = core.NewNotFoundError("payment order")
	ErrStructureExists   = errors.New("a fee structure already exists for this course, session & semester")
	ErrExceedsBalance    = errors.New("amount exceeds the outstanding balance")
	ErrOrderPaid         = errors.New("payment order is already paid")
	ErrInvalidSignature  = errors.New("invalid payment signature")
	ErrWrongStructure    = errors.New("fee structure does not apply to this student")
	ErrGatewayNotEnabled = errors.New("online payments are not enabled")
)

type (
	Repository interface {
		// CheckStructureUniqueness returns ErrStructureExists when a Structure other than excludedID
		// exists for the course, session & semester.
		CheckStructureUniqueness(ctx context.Context, courseID, sessionID string, semester int, excludedID string) error
		CreateStructure(ctx context.Context, st Structure) (Structure, error)
		QueryStructures(ctx context.Context, filter StructureFilter) ([]Structure, error)
		GetStructure(ctx context.Context, id string) (Structure, error)
		UpdateStructure(ctx context.Context, st Structure) (Structure, error)
		DeleteStructure(ctx context.Context, id string) error

		// CreateReceipt saves r after enforcing guard, atomically with the insert: ErrExceedsBalance
		// when the cap would be crossed, ErrOrderPaid when guard.Order already has a receipt.
		CreateReceipt(ctx context.Context, r Receipt, guard ReceiptGuard) (Receipt, error)
		// QueryReceipts returns the matching receipts, newest first.
		QueryReceipts(ctx context.Context, filter ReceiptFilter) ([]Receipt, error)
		GetReceipt(ctx context.Context, id string) (Receipt, error)
		// TotalPaid sums the receipts of a student for a Structure.
		TotalPaid(ctx context.Context, studentID, structureID string) (float64, error)

		CreateOrder(ctx context.Context, o PaymentOrder) (PaymentOrder, error)
		GetOrderByGatewayID(ctx context.Context, orderID string) (PaymentOrder, error)
	}

	// ReceiptGuard holds the conditions checked by Repository.CreateReceipt.
	ReceiptGuard struct {
		// CapPaid limits the receipts of the student for the Structure, r included, to MaxPaid.
		CapPaid bool
		MaxPaid float64
		// Order, when set, is stored with its ReceiptID set to r.
		Order *PaymentOrder
	}

	// PaymentGateway creates and verifies online payments.
	PaymentGateway interface {
		KeyID() string
		CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (GatewayOrder, error)
		VerifySignature(orderID, paymentID, signature string) bool
	}

	// ReceiptRenderer writes the printable (PDF) version of a receipt.
	ReceiptRenderer interface {
		RenderReceipt(w io.Writer, doc ReceiptDocument) error
	}

	Service interface {
		CheckStructureUniqueness(ctx context.Context, courseID, sessionID string, semester int, excludedID string) error
		CreateStructure(ctx context.Context, ns NewStructure) (Structure, error)
		QueryStructures(ctx context.Context, filter StructureFilter) ([]Structure, error)
		GetStructure(ctx context.Context, id string) (Structure, error)
		UpdateStructure(ctx context.Context, st Structure, ns NewStructure) (Structure, error)
		DeleteStructure(ctx context.Context, id string) error

		// RecordPayment saves a receipt for a payment collected by usr.
		RecordPayment(ctx context.Context, nr NewReceipt, usr user.User) (Receipt, error)
		QueryReceipts(ctx context.Context, filter ReceiptFilter) ([]Receipt, error)
		GetReceipt(ctx context.Context, id string) (Receipt, error)
		ReceiptDocument(ctx context.Context, r Receipt) (ReceiptDocument, error)
		RenderReceipt(ctx context.Context, w io.Writer, r Receipt) error
		Ledger(ctx context.Context, filter ReceiptFilter) ([]LedgerEntry, error)

		// Summary is the summary of a Student for a Structure; without structureID, it is
		// the Structure of their current course, session & semester.
		Summary(ctx context.Context, s student.Student, structureID string) (Summary, error)
		// StudentSummaries lists the summaries of every Structure of the Student's course & session.
		StudentSummaries(ctx context.Context, s student.Student) ([]Summary, error)

		CreateOrder(ctx context.Context, s student.Student, no NewPaymentOrder) (Checkout, error)
		// VerifyPayment confirms an online payment and records its receipt. Confirming an order
		// that was already paid returns its receipt.
		VerifyPayment(ctx context.Context, s student.Student, vp VerifyPayment) (Receipt, error)
	}

	service struct {
		repo       Repository
		studentSvc student.Service
		courseSvc  course.Service
		counterSvc counter.Service
		gateway    PaymentGateway
		renderer   ReceiptRenderer
		mailSvc    core.EmailService
		events     core.EventPublisher
		logger     core.Logger
		conf       core.FeeConfig
	}
)

var _ Service = (*service)(nil)

type ServiceDeps struct {
	Repo       Repository
	StudentSvc student.Service
	CourseSvc  course.Service
	CounterSvc counter.Service
	Gateway    PaymentGateway // optional
	Renderer   ReceiptRenderer
	MailSvc    core.EmailService
	Events     core.EventPublisher
	Logger     core.Logger
	Conf       *core.Config
}

func NewService(deps ServiceDeps) Service {
	conf := deps.Conf.Fee
	if conf.Currency == "" {
		conf.Currency = "INR"
	}
	return &service{
		repo:       deps.Repo,
		studentSvc: deps.StudentSvc,
		courseSvc:  deps.CourseSvc,
		counterSvc: deps.CounterSvc,
		gateway:    deps.Gateway,
		renderer:   deps.Renderer,
		mailSvc:    deps.MailSvc,
		events:     deps.Events,
		logger:     deps.Logger,
		conf:       conf,
	}
}

// Structures

func (svc *service) CheckStructureUniqueness(ctx context.Context, courseID, sessionID string, semester int, excludedID string) error {
	if err := svc.repo.CheckStructureUniqueness(ctx, courseID, sessionID, semester, excludedID); err != nil {
		if err == ErrStructureExists {
			return core.NewValidationError(err, core.FieldError{Field: "semester", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) checkCourse(ctx context.Context, ns NewStructure) error {
	crs, err := svc.courseSvc.GetByID(ctx, ns.CourseID)
	if err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(nil, core.FieldError{Field: "course_id", Error: "course not found"})
		}
		return pkgerrors.Wrap(err, "finding course")
	}
	if maxSem := crs.DurationYears * 2; maxSem > 0 && ns.Semester > maxSem {
		return core.NewValidationError(nil, core.FieldError{
			Field: "semester",
			Error: fmt.Sprintf("%s has %d semesters", crs.Code, maxSem),
		})
	}
	return nil
}

func (svc *service) CreateStructure(ctx context.Context, ns NewStructure) (Structure, error) {
	if err := svc.checkCourse(ctx, ns); err != nil {
		return Structure{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateStructure(ctx, Structure{
		CourseID:  ns.CourseID,
		SessionID: ns.SessionID,
		Semester:  ns.Semester,
		DueDate:   ns.DueDate,
		Heads:     ns.Heads,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) QueryStructures(ctx context.Context, filter StructureFilter) ([]Structure, error) {
	return svc.repo.QueryStructures(ctx, filter)
}

func (svc *service) GetStructure(ctx context.Context, id string) (Structure, error) {
	return svc.repo.GetStructure(ctx, id)
}

func (svc *service) UpdateStructure(ctx context.Context, st Structure, ns NewStructure) (Structure, error) {
	if err := svc.checkCourse(ctx, ns); err != nil {
		return Structure{}, err
	}
	st.CourseID = ns.CourseID
	st.SessionID = ns.SessionID
	st.Semester = ns.Semester
	st.DueDate = ns.DueDate
	st.Heads = ns.Heads
	st.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStructure(ctx, st)
}

func (svc *service) DeleteStructure(ctx context.Context, id string) error {
	return svc.repo.DeleteStructure(ctx, id)
}

// Summaries

func (svc *service) summary(ctx context.Context, s student.Student, st Structure) (Summary, error) {
	paid, err := svc.repo.TotalPaid(ctx, s.ID, st.ID)
	if err != nil {
		return Summary{}, pkgerrors.Wrap(err, "summing receipts")
	}
	sum := Summarize(st.Heads, paid)
	sum.StudentID = s.ID
	sum.StructureID = st.ID
	sum.Semester = st.Semester
	sum.DueDate = st.DueDate
	return sum, nil
}

// structureFor returns the Structure with id, checking it applies to s; without id,
// the Structure of the current semester of s.
func (svc *service) structureFor(ctx context.Context, s student.Student, id string) (Structure, error) {
	if id == "" {
		sts, err := svc.repo.QueryStructures(ctx, StructureFilter{CourseID: s.CourseID, SessionID: s.SessionID, Semester: s.Semester})
		if err != nil {
			return Structure{}, err
		}
		if len(sts) == 0 {
			return Structure{}, ErrNotFound
		}
		return sts[0], nil
	}

	st, err := svc.repo.GetStructure(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return Structure{}, core.NewValidationError(err, core.FieldError{Field: "structure_id", Error: err.Error()})
		}
		return Structure{}, err
	}
	if st.CourseID != s.CourseID || st.SessionID != s.SessionID {
		return Structure{}, core.NewValidationError(ErrWrongStructure, core.FieldError{Field: "structure_id", Error: ErrWrongStructure.Error()})
	}
	return st, nil
}

func (svc *service) Summary(ctx context.Context, s student.Student, structureID string) (Summary, error) {
	st, err := svc.structureFor(ctx, s, structureID)
	if err != nil {
		return Summary{}, err
	}
	return svc.summary(ctx, s, st)
}

func (svc *service) StudentSummaries(ctx context.Context, s student.Student) ([]Summary, error) {
	sts, err := svc.repo.QueryStructures(ctx, StructureFilter{CourseID: s.CourseID, SessionID: s.SessionID})
	if err != nil {
		return nil, err
	}
	sums := make([]Summary, 0, len(sts))
	for _, st := range sts {
		sum, err := svc.summary(ctx, s, st)
		if err != nil {
			return nil, err
		}
		sums = append(sums, sum)
	}
	return sums, nil
}

// Receipts

func (svc *service) RecordPayment(ctx context.Context, nr NewReceipt, usr user.User) (Receipt, error) {
	s, err := svc.studentSvc.GetByID(ctx, nr.StudentID)
	if err != nil {
		if core.IsNotFound(err) {
			return Receipt{}, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
		}
		return Receipt{}, pkgerrors.Wrap(err, "finding student")
	}
	st, err := svc.structureFor(ctx, s, nr.StructureID)
	if err != nil {
		return Receipt{}, err
	}

	paidAt := nr.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	return svc.record(ctx, s, st, Receipt{
		StudentID:   s.ID,
		StructureID: st.ID,
		Amount:      nr.Amount,
		Mode:        nr.Mode,
		Reference:   nr.Reference,
		Remarks:     nr.Remarks,
		PaidAt:      paidAt.UTC(),
		CollectedBy: usr.ID,
	}, ReceiptGuard{CapPaid: true, MaxPaid: st.Total()})
}

// checkBalance fails when amount exceeds what s still owes on st.
func (svc *service) checkBalance(ctx context.Context, s student.Student, st Structure, amount float64) error {
	sum, err := svc.summary(ctx, s, st)
	if err != nil {
		return err
	}
	if core.ToCents(amount) > core.ToCents(sum.Balance) {
		return core.NewValidationError(ErrExceedsBalance, core.FieldError{
			Field: "amount",
			Error: fmt.Sprintf("%s (%.2f)", ErrExceedsBalance, sum.Balance),
		})
	}
	return nil
}

// record saves r with the next receipt number; the repository enforces guard.
func (svc *service) record(ctx context.Context, s student.Student, st Structure, r Receipt, guard ReceiptGuard) (Receipt, error) {
	if guard.CapPaid {
		if err := svc.checkBalance(ctx, s, st, r.Amount); err != nil {
			return Receipt{}, err
		}
	}

	receiptNo, err := svc.counterSvc.NextCode(ctx, counter.Receipt, svc.conf.ReceiptPrefix, receiptSeqWidth)
	if err != nil {
		return Receipt{}, pkgerrors.Wrap(err, "drawing receipt number")
	}
	r.ReceiptNo = receiptNo
	r.CreatedAt = time.Now().UTC()
	saved, err := svc.repo.CreateReceipt(ctx, r, guard)
	if err != nil {
		if err == ErrExceedsBalance {
			// paid concurrently since the check above
			if vErr := svc.checkBalance(ctx, s, st, r.Amount); vErr != nil {
				return Receipt{}, vErr
			}
			return Receipt{}, core.NewValidationError(err, core.FieldError{Field: "amount", Error: err.Error()})
		}
		if err == ErrOrderPaid {
			return Receipt{}, err
		}
		return Receipt{}, pkgerrors.Wrap(err, "creating receipt")
	}
	r = saved

	if svc.events != nil {
		ev := core.NewEvent(core.EventPaymentRecorded, r.ID, map[string]interface{}{
			"receipt_no":   r.ReceiptNo,
			"student_id":   r.StudentID,
			"structure_id": r.StructureID,
			"amount":       r.Amount,
			"mode":         r.Mode,
		})
		if err := svc.events.Publish(ctx, ev); err != nil {
			svc.logger.Warn(fmt.Sprintf("publishing %s: %v", ev.Name, err), err)
		}
	}
	svc.sendReceiptMail(ctx, s, r)
	return r, nil
}

func (svc *service) sendReceiptMail(ctx context.Context, s student.Student, r Receipt) {
	if s.Email == "" || svc.mailSvc == nil {
		return
	}
	doc, err := svc.ReceiptDocument(ctx, r)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("preparing receipt %s: %v", r.ReceiptNo, err), err)
		return
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: s.Name, Address: s.Email}},
		Subject:      "Fee receipt " + r.ReceiptNo,
		TemplateName: "fee_receipt",
		TemplateData: map[string]interface{}{
			"Name":      s.Name,
			"Currency":  svc.conf.Currency,
			"Amount":    r.Amount,
			"PaidAt":    r.PaidAt,
			"ReceiptNo": r.ReceiptNo,
			"Balance":   doc.Summary.Balance,
		},
	}
	if svc.renderer != nil {
		var buf bytes.Buffer
		if err := svc.renderer.RenderReceipt(&buf, doc); err != nil {
			svc.logger.Error(fmt.Sprintf("rendering receipt %s: %v", r.ReceiptNo, err), err)
		} else if err := msg.Attach(&buf, r.ReceiptNo+".pdf", "application/pdf"); err != nil {
			svc.logger.Error(fmt.Sprintf("attaching receipt %s: %v", r.ReceiptNo, err), err)
		}
	}
	svc.mailSvc.SendMessages(msg)
}

func (svc *service) QueryReceipts(ctx context.Context, filter ReceiptFilter) ([]Receipt, error) {
	filter.Mode = core.CleanString(filter.Mode, true /* lower */)
	return svc.repo.QueryReceipts(ctx, filter)
}

func (svc *service) GetReceipt(ctx context.Context, id string) (Receipt, error) {
	return svc.repo.GetReceipt(ctx, id)
}

// VerifyCode is the string encoded in the QR code of a receipt.
func VerifyCode(r Receipt) string {
	return fmt.Sprintf("%s|%s|%.2f|%s", r.ReceiptNo, r.StudentID, r.Amount, r.PaidAt.UTC().Format(time.RFC3339))
}

func (svc *service) ReceiptDocument(ctx context.Context, r Receipt) (ReceiptDocument, error) {
	s, err := svc.studentSvc.GetByID(ctx, r.StudentID)
	if err != nil {
		return ReceiptDocument{}, pkgerrors.Wrap(err, "finding student")
	}
	st, err := svc.repo.GetStructure(ctx, r.StructureID)
	if err != nil {
		return ReceiptDocument{}, pkgerrors.Wrap(err, "finding fee structure")
	}
	sum, err := svc.summary(ctx, s, st)
	if err != nil {
		return ReceiptDocument{}, err
	}
	doc := ReceiptDocument{
		Institution:  svc.conf.Institution,
		Currency:     svc.conf.Currency,
		Receipt:      r,
		StudentName:  s.Name,
		EnrollmentNo: s.EnrollmentNo,
		SessionID:    st.SessionID,
		Semester:     st.Semester,
		Summary:      sum,
		VerifyCode:   VerifyCode(r),
	}
	if crs, err := svc.courseSvc.GetByID(ctx, st.CourseID); err == nil {
		doc.CourseName = crs.Name
	}
	return doc, nil
}

func (svc *service) RenderReceipt(ctx context.Context, w io.Writer, r Receipt) error {
	if svc.renderer == nil {
		return errors.New("no receipt renderer configured")
	}
	doc, err := svc.ReceiptDocument(ctx, r)
	if err != nil {
		return err
	}
	return svc.renderer.RenderReceipt(w, doc)
}

func (svc *service) Ledger(ctx context.Context, filter ReceiptFilter) ([]LedgerEntry, error) {
	receipts, err := svc.QueryReceipts(ctx, filter)
	if err != nil {
		return nil, err
	}
	students := make(map[string]student.Student)
	entries := make([]LedgerEntry, 0, len(receipts))
	for _, r := range receipts {
		s, ok := students[r.StudentID]
		if !ok {
			s, err = svc.studentSvc.GetByID(ctx, r.StudentID)
			if err != nil && !core.IsNotFound(err) {
				return nil, pkgerrors.Wrap(err, "finding student")
			}
			students[r.StudentID] = s
		}
		entries = append(entries, LedgerEntry{Receipt: r, StudentName: s.Name, EnrollmentNo: s.EnrollmentNo})
	}
	return entries, nil
}

// Online payments

func (svc *service) CreateOrder(ctx context.Context, s student.Student, no NewPaymentOrder) (Checkout, error) {
	if svc.gateway == nil {
		return Checkout{}, ErrGatewayNotEnabled
	}
	st, err := svc.structureFor(ctx, s, no.StructureID)
	if err != nil {
		return Checkout{}, err
	}
	sum, err := svc.summary(ctx, s, st)
	if err != nil {
		return Checkout{}, err
	}
	if core.ToCents(no.Amount) > core.ToCents(sum.Balance) {
		return Checkout{}, core.NewValidationError(ErrExceedsBalance, core.FieldError{
			Field: "amount",
			Error: fmt.Sprintf("%s (%.2f)", ErrExceedsBalance, sum.Balance),
		})
	}

	gOrder, err := svc.gateway.CreateOrder(ctx, core.ToCents(no.Amount), svc.conf.Currency, s.EnrollmentNo, map[string]string{
		"student_id":   s.ID,
		"structure_id": st.ID,
	})
	if err != nil {
		return Checkout{}, pkgerrors.Wrap(err, "creating gateway order")
	}

	now := time.Now().UTC()
	o, err := svc.repo.CreateOrder(ctx, PaymentOrder{
		OrderID:     gOrder.ID,
		StudentID:   s.ID,
		StructureID: st.ID,
		Amount:      no.Amount,
		Currency:    svc.conf.Currency,
		Status:      OrderCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Checkout{}, pkgerrors.Wrap(err, "saving payment order")
	}

	if svc.events != nil {
		ev := core.NewEvent(core.EventPaymentOrdered, o.ID, map[string]interface{}{
			"order_id":     o.OrderID,
			"student_id":   o.StudentID,
			"structure_id": o.StructureID,
			"amount":       o.Amount,
		})
		if err := svc.events.Publish(ctx, ev); err != nil {
			svc.logger.Warn(fmt.Sprintf("publishing %s: %v", ev.Name, err), err)
		}
	}
	return Checkout{OrderID: o.OrderID, Amount: o.Amount, Currency: o.Currency, KeyID: svc.gateway.KeyID()}, nil
}

func (svc *service) VerifyPayment(ctx context.Context, s student.Student, vp VerifyPayment) (Receipt, error) {
	if svc.gateway == nil {
		return Receipt{}, ErrGatewayNotEnabled
	}
	o, err := svc.repo.GetOrderByGatewayID(ctx, vp.OrderID)
	if err != nil {
		if core.IsNotFound(err) {
			return Receipt{}, core.NewValidationError(err, core.FieldError{Field: "razorpay_order_id", Error: err.Error()})
		}
		return Receipt{}, err
	}
	if o.StudentID != s.ID {
		return Receipt{}, core.NewValidationError(ErrOrderNotFound, core.FieldError{Field: "razorpay_order_id", Error: ErrOrderNotFound.Error()})
	}
	if o.Status == OrderPaid && o.ReceiptID != "" {
		return svc.repo.GetReceipt(ctx, o.ReceiptID)
	}
	if !svc.gateway.VerifySignature(vp.OrderID, vp.PaymentID, vp.Signature) {
		return Receipt{}, core.NewValidationError(ErrInvalidSignature, core.FieldError{Field: "razorpay_signature", Error: ErrInvalidSignature.Error()})
	}

	st, err := svc.repo.GetStructure(ctx, o.StructureID)
	if err != nil {
		return Receipt{}, pkgerrors.Wrap(err, "finding fee structure")
	}
	now := time.Now().UTC()
	o.Status = OrderPaid
	o.PaymentID = vp.PaymentID
	o.UpdatedAt = now
	// the gateway already captured the money: record it even when it now exceeds the balance
	r, err := svc.record(ctx, s, st, Receipt{
		StudentID:   s.ID,
		StructureID: st.ID,
		Amount:      o.Amount,
		Mode:        ModeOnline,
		Reference:   vp.PaymentID,
		Remarks:     "online payment " + o.OrderID,
		PaidAt:      now,
	}, ReceiptGuard{Order: &o})
	if err == ErrOrderPaid {
		// verified concurrently
		paid, gErr := svc.repo.GetOrderByGatewayID(ctx, vp.OrderID)
		if gErr != nil {
			return Receipt{}, gErr
		}
		return svc.repo.GetReceipt(ctx, paid.ReceiptID)
	}
	return r, err
}
