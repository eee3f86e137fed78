package inmemdb

import (
	"context"
	"sort"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/fee"
)

type feeRepository struct {
	db *feeTables
}

var _ fee.Repository = (*feeRepository)(nil)

func NewFeeRepository(db *DB) fee.Repository {
	return &feeRepository{db: db.fee}
}

func copyStructure(st fee.Structure) fee.Structure {
	st.Heads = append([]fee.Head{}, st.Heads...)
	return st
}

// Structures

func (repo *feeRepository) CheckStructureUniqueness(_ context.Context, courseID, sessionID string, semester int, excludedID string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()
	for _, st := range repo.db.structures {
		if st.ID != excludedID && st.CourseID == courseID && st.SessionID == sessionID && st.Semester == semester {
			return fee.ErrStructureExists
		}
	}
	return nil
}

func (repo *feeRepository) CreateStructure(_ context.Context, st fee.Structure) (fee.Structure, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	st.ID = newID()
	stored := copyStructure(st)
	repo.db.structures[st.ID] = &stored
	return st, nil
}

func (repo *feeRepository) QueryStructures(_ context.Context, filter fee.StructureFilter) ([]fee.Structure, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	structures := make([]fee.Structure, 0, len(repo.db.structures))
	for _, st := range repo.db.structures {
		switch {
		case filter.CourseID != "" && st.CourseID != filter.CourseID,
			filter.SessionID != "" && st.SessionID != filter.SessionID,
			filter.Semester > 0 && st.Semester != filter.Semester:
			continue
		}
		structures = append(structures, copyStructure(*st))
	}
	sort.Slice(structures, func(i, j int) bool {
		a, b := structures[i], structures[j]
		if a.SessionID != b.SessionID {
			return a.SessionID < b.SessionID
		}
		if a.CourseID != b.CourseID {
			return a.CourseID < b.CourseID
		}
		return a.Semester < b.Semester
	})
	return structures, nil
}

func (repo *feeRepository) GetStructure(_ context.Context, id string) (fee.Structure, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if st, ok := repo.db.structures[id]; ok {
		return copyStructure(*st), nil
	}
	return fee.Structure{}, fee.ErrNotFound
}

func (repo *feeRepository) UpdateStructure(_ context.Context, st fee.Structure) (fee.Structure, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.structures[st.ID]; !ok {
		return fee.Structure{}, fee.ErrNotFound
	}
	stored := copyStructure(st)
	repo.db.structures[st.ID] = &stored
	return st, nil
}

func (repo *feeRepository) DeleteStructure(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.structures[id]; !ok {
		return fee.ErrNotFound
	}
	for _, r := range repo.db.receipts {
		if r.StructureID == id {
			return core.NewValidationError(nil, core.FieldError{Field: "id", Error: "fee structure has receipts"})
		}
	}
	delete(repo.db.structures, id)
	return nil
}

// Receipts

func (repo *feeRepository) CreateReceipt(_ context.Context, r fee.Receipt, guard fee.ReceiptGuard) (fee.Receipt, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if guard.CapPaid {
		cents := core.ToCents(r.Amount)
		for _, rr := range repo.db.receipts {
			if rr.StudentID == r.StudentID && rr.StructureID == r.StructureID {
				cents += core.ToCents(rr.Amount)
			}
		}
		if cents > core.ToCents(guard.MaxPaid) {
			return fee.Receipt{}, fee.ErrExceedsBalance
		}
	}
	var order *fee.PaymentOrder
	if guard.Order != nil {
		o, ok := repo.db.orders[guard.Order.ID]
		if !ok {
			return fee.Receipt{}, fee.ErrOrderNotFound
		}
		if o.ReceiptID != "" {
			return fee.Receipt{}, fee.ErrOrderPaid
		}
		order = o
	}

	r.ID = newID()
	stored := r
	repo.db.receipts[r.ID] = &stored
	if order != nil {
		*order = *guard.Order
		order.ReceiptID = r.ID
	}
	return r, nil
}

func (repo *feeRepository) QueryReceipts(_ context.Context, filter fee.ReceiptFilter) ([]fee.Receipt, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	receipts := make([]fee.Receipt, 0)
	for _, r := range repo.db.receipts {
		if filter.Matches(*r) {
			receipts = append(receipts, *r)
		}
	}
	sort.Slice(receipts, func(i, j int) bool {
		if !receipts[i].PaidAt.Equal(receipts[j].PaidAt) {
			return receipts[i].PaidAt.After(receipts[j].PaidAt)
		}
		return receipts[i].ReceiptNo > receipts[j].ReceiptNo
	})
	return receipts, nil
}

func (repo *feeRepository) GetReceipt(_ context.Context, id string) (fee.Receipt, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if r, ok := repo.db.receipts[id]; ok {
		return *r, nil
	}
	return fee.Receipt{}, fee.ErrReceiptNotFound
}

func (repo *feeRepository) TotalPaid(_ context.Context, studentID, structureID string) (float64, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	var cents int64
	for _, r := range repo.db.receipts {
		if r.StudentID == studentID && r.StructureID == structureID {
			cents += core.ToCents(r.Amount)
		}
	}
	return core.FromCents(cents), nil
}

// Payment orders

func (repo *feeRepository) CreateOrder(_ context.Context, o fee.PaymentOrder) (fee.PaymentOrder, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	o.ID = newID()
	stored := o
	repo.db.orders[o.ID] = &stored
	return o, nil
}

func (repo *feeRepository) GetOrderByGatewayID(_ context.Context, orderID string) (fee.PaymentOrder, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	for _, o := range repo.db.orders {
		if o.OrderID == orderID {
			return *o, nil
		}
	}
	return fee.PaymentOrder{}, fee.ErrOrderNotFound
}
