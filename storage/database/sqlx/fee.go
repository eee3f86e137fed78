package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/fee"
)

type (
	structureRow struct {
		ID        string    `db:"id"`
		CourseID  string    `db:"course_id"`
		SessionID string    `db:"session_id"`
		Semester  int       `db:"semester"`
		DueDate   core.Date `db:"due_date"`
		Heads     null.JSON `db:"heads"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	receiptRow struct {
		ID          string      `db:"id"`
		ReceiptNo   string      `db:"receipt_no"`
		StudentID   string      `db:"student_id"`
		StructureID string      `db:"structure_id"`
		Amount      float64     `db:"amount"`
		Mode        string      `db:"mode"`
		Reference   string      `db:"reference"`
		Remarks     string      `db:"remarks"`
		PaidAt      time.Time   `db:"paid_at"`
		CollectedBy null.String `db:"collected_by"`
		CreatedAt   time.Time   `db:"created_at"`
	}

	orderRow struct {
		ID          string      `db:"id"`
		OrderID     string      `db:"order_id"`
		StudentID   string      `db:"student_id"`
		StructureID string      `db:"structure_id"`
		Amount      float64     `db:"amount"`
		Currency    string      `db:"currency"`
		Status      string      `db:"status"`
		PaymentID   string      `db:"payment_id"`
		ReceiptID   null.String `db:"receipt_id"`
		CreatedAt   time.Time   `db:"created_at"`
		UpdatedAt   time.Time   `db:"updated_at"`
	}
)

const (
	structureColumns = `id, course_id, session_id, semester, due_date, heads, created_at, updated_at`
	receiptColumns   = `id, receipt_no, student_id, structure_id, amount, mode, reference, remarks, paid_at, collected_by, created_at`
	orderColumns     = `id, order_id, student_id, structure_id, amount, currency, status, payment_id, receipt_id, created_at, updated_at`
)

func toStructureRow(st fee.Structure) (structureRow, error) {
	heads, err := jsonCol(st.Heads)
	if err != nil {
		return structureRow{}, err
	}
	return structureRow{
		ID:        st.ID,
		CourseID:  st.CourseID,
		SessionID: st.SessionID,
		Semester:  st.Semester,
		DueDate:   st.DueDate,
		Heads:     heads,
		CreatedAt: st.CreatedAt.UTC(),
		UpdatedAt: st.UpdatedAt.UTC(),
	}, nil
}

func (r structureRow) structure() (fee.Structure, error) {
	st := fee.Structure{
		ID:        r.ID,
		CourseID:  r.CourseID,
		SessionID: r.SessionID,
		Semester:  r.Semester,
		DueDate:   r.DueDate,
		Heads:     []fee.Head{},
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	return st, fromJSONCol(r.Heads, &st.Heads)
}

func toReceiptRow(r fee.Receipt) receiptRow {
	return receiptRow{
		ID:          r.ID,
		ReceiptNo:   r.ReceiptNo,
		StudentID:   r.StudentID,
		StructureID: r.StructureID,
		Amount:      r.Amount,
		Mode:        r.Mode,
		Reference:   r.Reference,
		Remarks:     r.Remarks,
		PaidAt:      r.PaidAt.UTC(),
		CollectedBy: null.NewString(r.CollectedBy, r.CollectedBy != ""),
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

func (r receiptRow) receipt() fee.Receipt {
	return fee.Receipt{
		ID:          r.ID,
		ReceiptNo:   r.ReceiptNo,
		StudentID:   r.StudentID,
		StructureID: r.StructureID,
		Amount:      r.Amount,
		Mode:        r.Mode,
		Reference:   r.Reference,
		Remarks:     r.Remarks,
		PaidAt:      r.PaidAt.UTC(),
		CollectedBy: r.CollectedBy.String,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

func toOrderRow(o fee.PaymentOrder) orderRow {
	return orderRow{
		ID:          o.ID,
		OrderID:     o.OrderID,
		StudentID:   o.StudentID,
		StructureID: o.StructureID,
		Amount:      o.Amount,
		Currency:    o.Currency,
		Status:      o.Status,
		PaymentID:   o.PaymentID,
		ReceiptID:   null.NewString(o.ReceiptID, o.ReceiptID != ""),
		CreatedAt:   o.CreatedAt.UTC(),
		UpdatedAt:   o.UpdatedAt.UTC(),
	}
}

func (r orderRow) order() fee.PaymentOrder {
	return fee.PaymentOrder{
		ID:          r.ID,
		OrderID:     r.OrderID,
		StudentID:   r.StudentID,
		StructureID: r.StructureID,
		Amount:      r.Amount,
		Currency:    r.Currency,
		Status:      r.Status,
		PaymentID:   r.PaymentID,
		ReceiptID:   r.ReceiptID.String,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type feeRepository struct {
	db *sqlx.DB
}

var _ fee.Repository = (*feeRepository)(nil)

func NewFeeRepository(db *sqlx.DB) fee.Repository {
	return &feeRepository{db: db}
}

// Structures

func (repo *feeRepository) CheckStructureUniqueness(ctx context.Context, courseID, sessionID string, semester int, excludedID string) error {
	var found bool
	err := repo.db.GetContext(ctx, &found, `
		SELECT EXISTS (
			SELECT 1 FROM fee_structures
			WHERE course_id::text = $1 AND session_id = $2 AND semester = $3 AND id::text <> $4
		)`, courseID, sessionID, semester, excludedID)
	if err != nil {
		return errors.Wrap(err, "checking fee structure uniqueness")
	}
	if found {
		return fee.ErrStructureExists
	}
	return nil
}

func (repo *feeRepository) CreateStructure(ctx context.Context, st fee.Structure) (fee.Structure, error) {
	st.ID = uuid.New().String()
	row, err := toStructureRow(st)
	if err != nil {
		return fee.Structure{}, err
	}
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO fee_structures (`+structureColumns+`)
		VALUES (:id, :course_id, :session_id, :semester, :due_date, :heads, :created_at, :updated_at)`, row)
	if err != nil {
		return fee.Structure{}, trapConstraintErr(err, "course_id", "inserting fee structure")
	}
	return st, nil
}

func (repo *feeRepository) QueryStructures(ctx context.Context, filter fee.StructureFilter) ([]fee.Structure, error) {
	var conds conditions
	if filter.CourseID != "" {
		conds.add("course_id::text = ?", filter.CourseID)
	}
	if filter.SessionID != "" {
		conds.add("session_id = ?", filter.SessionID)
	}
	if filter.Semester > 0 {
		conds.add("semester = ?", filter.Semester)
	}

	var rows []structureRow
	q := repo.db.Rebind("SELECT " + structureColumns + " FROM fee_structures" + conds.where() + " ORDER BY session_id, course_id, semester")
	if err := repo.db.SelectContext(ctx, &rows, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "querying fee structures")
	}
	structures := make([]fee.Structure, 0, len(rows))
	for _, r := range rows {
		st, err := r.structure()
		if err != nil {
			return nil, err
		}
		structures = append(structures, st)
	}
	return structures, nil
}

func (repo *feeRepository) GetStructure(ctx context.Context, id string) (fee.Structure, error) {
	if _, err := uuid.Parse(id); err != nil {
		return fee.Structure{}, fee.ErrNotFound
	}
	var row structureRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+structureColumns+" FROM fee_structures WHERE id = $1", id); err != nil {
		return fee.Structure{}, trapNoRowsErr(err, fee.ErrNotFound, "finding fee structure")
	}
	return row.structure()
}

func (repo *feeRepository) UpdateStructure(ctx context.Context, st fee.Structure) (fee.Structure, error) {
	row, err := toStructureRow(st)
	if err != nil {
		return fee.Structure{}, err
	}
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE fee_structures SET course_id = :course_id, session_id = :session_id, semester = :semester,
			due_date = :due_date, heads = :heads, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return fee.Structure{}, trapConstraintErr(err, "course_id", "updating fee structure")
	}
	if err = checkDeleted(res, fee.ErrNotFound); err != nil {
		return fee.Structure{}, err
	}
	return st, nil
}

func (repo *feeRepository) DeleteStructure(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fee.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM fee_structures WHERE id = $1", id)
	if err != nil {
		return trapConstraintErr(err, "id", "deleting fee structure")
	}
	return checkDeleted(res, fee.ErrNotFound)
}

// Receipts

// CreateReceipt locks the fee structure row so that receipts against it are checked & inserted one at a time.
func (repo *feeRepository) CreateReceipt(ctx context.Context, r fee.Receipt, guard fee.ReceiptGuard) (fee.Receipt, error) {
	if _, err := uuid.Parse(r.StructureID); err != nil {
		return fee.Receipt{}, fee.ErrNotFound
	}
	r.ID = uuid.New().String()

	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var locked string
		if err := tx.GetContext(ctx, &locked, "SELECT id FROM fee_structures WHERE id = $1 FOR UPDATE", r.StructureID); err != nil {
			return trapNoRowsErr(err, fee.ErrNotFound, "locking fee structure")
		}

		if guard.CapPaid {
			var paid float64
			err := tx.GetContext(ctx, &paid, `
				SELECT COALESCE(SUM(amount), 0) FROM receipts WHERE student_id::text = $1 AND structure_id = $2`,
				r.StudentID, r.StructureID)
			if err != nil {
				return errors.Wrap(err, "summing receipts")
			}
			if core.ToCents(paid)+core.ToCents(r.Amount) > core.ToCents(guard.MaxPaid) {
				return fee.ErrExceedsBalance
			}
		}

		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO receipts (`+receiptColumns+`)
			VALUES (:id, :receipt_no, :student_id, :structure_id, :amount, :mode, :reference, :remarks, :paid_at, :collected_by, :created_at)`,
			toReceiptRow(r))
		if err != nil {
			return trapConstraintErr(err, "student_id", "inserting receipt")
		}

		if guard.Order == nil {
			return nil
		}
		o := *guard.Order
		o.ReceiptID = r.ID
		res, err := tx.NamedExecContext(ctx, `
			UPDATE payment_orders SET status = :status, payment_id = :payment_id, receipt_id = :receipt_id, updated_at = :updated_at
			WHERE id = :id AND receipt_id IS NULL`, toOrderRow(o))
		if err != nil {
			return errors.Wrap(err, "updating payment order")
		}
		return checkDeleted(res, fee.ErrOrderPaid)
	})
	if err != nil {
		return fee.Receipt{}, err
	}
	return r, nil
}

func (repo *feeRepository) QueryReceipts(ctx context.Context, filter fee.ReceiptFilter) ([]fee.Receipt, error) {
	var conds conditions
	if filter.StudentID != "" {
		conds.add("student_id::text = ?", filter.StudentID)
	}
	if filter.StructureID != "" {
		conds.add("structure_id::text = ?", filter.StructureID)
	}
	if filter.Mode != "" {
		conds.add("mode = ?", filter.Mode)
	}
	if !filter.From.IsZero() {
		conds.add("paid_at >= ?", filter.From.Time)
	}
	if !filter.To.IsZero() {
		conds.add("paid_at < ?", filter.To.AddDate(0, 0, 1))
	}

	var rows []receiptRow
	q := repo.db.Rebind("SELECT " + receiptColumns + " FROM receipts" + conds.where() + " ORDER BY paid_at DESC, receipt_no DESC")
	if err := repo.db.SelectContext(ctx, &rows, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "querying receipts")
	}
	receipts := make([]fee.Receipt, 0, len(rows))
	for _, r := range rows {
		receipts = append(receipts, r.receipt())
	}
	return receipts, nil
}

func (repo *feeRepository) GetReceipt(ctx context.Context, id string) (fee.Receipt, error) {
	if _, err := uuid.Parse(id); err != nil {
		return fee.Receipt{}, fee.ErrReceiptNotFound
	}
	var row receiptRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+receiptColumns+" FROM receipts WHERE id = $1", id); err != nil {
		return fee.Receipt{}, trapNoRowsErr(err, fee.ErrReceiptNotFound, "finding receipt")
	}
	return row.receipt(), nil
}

func (repo *feeRepository) TotalPaid(ctx context.Context, studentID, structureID string) (float64, error) {
	var total float64
	err := repo.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(amount), 0) FROM receipts WHERE student_id::text = $1 AND structure_id::text = $2`,
		studentID, structureID)
	if err != nil {
		return 0, errors.Wrap(err, "summing receipts")
	}
	return total, nil
}

// Payment orders

func (repo *feeRepository) CreateOrder(ctx context.Context, o fee.PaymentOrder) (fee.PaymentOrder, error) {
	o.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO payment_orders (`+orderColumns+`)
		VALUES (:id, :order_id, :student_id, :structure_id, :amount, :currency, :status, :payment_id, :receipt_id, :created_at, :updated_at)`,
		toOrderRow(o))
	if err != nil {
		return fee.PaymentOrder{}, trapConstraintErr(err, "order_id", "inserting payment order")
	}
	return o, nil
}

func (repo *feeRepository) GetOrderByGatewayID(ctx context.Context, orderID string) (fee.PaymentOrder, error) {
	var row orderRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+orderColumns+" FROM payment_orders WHERE order_id = $1", orderID); err != nil {
		return fee.PaymentOrder{}, trapNoRowsErr(err, fee.ErrOrderNotFound, "finding payment order")
	}
	return row.order(), nil
}
