package fee

import (
	"sort"

	"github.com/campuserp/erp/core"
)

// Summary statuses
const (
	StatusPaid    = "paid"
	StatusPartial = "partial"
	StatusUnpaid  = "unpaid"
)

type (
	HeadSummary struct {
		Name    string  `json:"name"`
		Order   int     `json:"order"`
		Amount  float64 `json:"amount"`
		Paid    float64 `json:"paid"`
		Balance float64 `json:"balance"`
	}

	// Summary is the paid amount of a student allocated over the heads of a Structure.
	Summary struct {
		StudentID   string        `json:"student_id,omitempty"`
		StructureID string        `json:"structure_id,omitempty"`
		Semester    int           `json:"semester,omitempty"`
		DueDate     core.Date     `json:"due_date"`
		Heads       []HeadSummary `json:"heads"`
		Total       float64       `json:"total"`
		Paid        float64       `json:"paid"`
		Balance     float64       `json:"balance"`
		Excess      float64       `json:"excess"`
		Status      string        `json:"status"`
	}
)

// Summarize allocates totalPaid over heads in ascending Order, in a single pass.
// Each head takes what it can of the remainder; balances never go below zero
// and whatever is left over once every head is paid is reported as Excess.
// Amounts are handled in cents so that the allocation adds up exactly.
func Summarize(heads []Head, totalPaid float64) Summary {
	sorted := make([]Head, len(heads))
	copy(sorted, heads)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	paid := core.ToCents(totalPaid)
	if paid < 0 {
		paid = 0
	}
	remaining := paid

	var total, balance int64
	hs := make([]HeadSummary, 0, len(sorted))
	for _, h := range sorted {
		amt := core.ToCents(h.Amount)
		if amt < 0 {
			amt = 0
		}
		headPaid := remaining
		if headPaid > amt {
			headPaid = amt
		}
		remaining -= headPaid
		total += amt
		balance += amt - headPaid
		hs = append(hs, HeadSummary{
			Name:    h.Name,
			Order:   h.Order,
			Amount:  core.FromCents(amt),
			Paid:    core.FromCents(headPaid),
			Balance: core.FromCents(amt - headPaid),
		})
	}

	s := Summary{
		Heads:   hs,
		Total:   core.FromCents(total),
		Paid:    core.FromCents(paid),
		Balance: core.FromCents(balance),
		Excess:  core.FromCents(remaining),
	}
	switch {
	case balance == 0:
		s.Status = StatusPaid
	case paid == 0:
		s.Status = StatusUnpaid
	default:
		s.Status = StatusPartial
	}
	return s
}
