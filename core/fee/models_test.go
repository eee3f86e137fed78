package fee

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuserp/erp/core"
)

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func mustDate(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newValidator() (*validator.Validate, func(error) map[string]string) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate, func(err error) map[string]string {
		vErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil
		}
		return core.FieldErrors(vErrs, translator)
	}
}

func TestNewStructureValidation(t *testing.T) {
	validate, fieldErrs := newValidator()

	valid := func() NewStructure {
		return NewStructure{
			CourseID:  "c1",
			SessionID: "2024-25",
			Semester:  1,
			Heads: []Head{
				{Name: "Tuition", Amount: 40000, Order: 1},
				{Name: "Library", Amount: 1500, Order: 2},
			},
		}
	}

	tests := []struct {
		name     string
		mutate   func(ns *NewStructure)
		wantFlds []string
	}{
		{"valid", func(ns *NewStructure) {}, nil},
		{"no heads", func(ns *NewStructure) { ns.Heads = nil }, []string{"heads"}},
		{"zero amount", func(ns *NewStructure) { ns.Heads[1].Amount = 0 }, []string{"heads[1].amount"}},
		{"negative amount", func(ns *NewStructure) { ns.Heads[0].Amount = -10 }, []string{"heads[0].amount"}},
		{"amount over column limit", func(ns *NewStructure) { ns.Heads[0].Amount = 1e17 }, []string{"heads[0].amount"}},
		{"largest amount", func(ns *NewStructure) { ns.Heads[0].Amount = 9999999999.99 }, nil},
		{"blank head name", func(ns *NewStructure) { ns.Heads[0].Name = "  " }, []string{"heads[0].name"}},
		{"duplicate head", func(ns *NewStructure) { ns.Heads[1].Name = " tuition" }, []string{"heads[1].name"}},
		{"missing course", func(ns *NewStructure) { ns.CourseID = "" }, []string{"course_id"}},
		{"bad semester", func(ns *NewStructure) { ns.Semester = 0 }, []string{"semester"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ns := valid()
			tc.mutate(&ns)
			ns.Clean()
			err := validate.Struct(ns)
			if tc.wantFlds == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			flds := fieldErrs(err)
			for _, f := range tc.wantFlds {
				assert.Contains(t, flds, f)
			}
		})
	}
}

func TestNewReceiptValidation(t *testing.T) {
	validate, fieldErrs := newValidator()

	nr := NewReceipt{StudentID: "s1", StructureID: "st1", Amount: 100, Mode: " CASH "}
	assert.NoError(t, nr.Validate(validate))
	assert.Equal(t, ModeCash, nr.Mode)

	nr = NewReceipt{StudentID: "s1", StructureID: "st1", Amount: 0, Mode: "bitcoin"}
	flds := fieldErrs(nr.Validate(validate))
	assert.Contains(t, flds, "amount")
	assert.Equal(t, feeModeText, flds["mode"])

	nr = NewReceipt{StudentID: "s1", StructureID: "st1", Amount: 1e10, Mode: ModeCash}
	assert.Contains(t, fieldErrs(nr.Validate(validate)), "amount")

	nr = NewReceipt{StudentID: "s1", StructureID: "st1", Amount: 100, Mode: ModeCheque}
	flds = fieldErrs(nr.Validate(validate))
	assert.Equal(t, referenceText, flds["reference"])
}

func TestStructureTotal(t *testing.T) {
	st := Structure{Heads: []Head{{Amount: 0.1}, {Amount: 0.2}, {Amount: 100}}}
	assert.Equal(t, 100.3, st.Total())
}

func TestNewPaymentOrderValidation(t *testing.T) {
	validate, fieldErrs := newValidator()

	no := NewPaymentOrder{StructureID: " st1 ", Amount: 1200.456}
	require.NoError(t, no.Validate(validate))
	assert.Equal(t, "st1", no.StructureID)
	assert.Equal(t, 1200.46, no.Amount)

	for _, amt := range []float64{0, -5, 1e17} {
		no = NewPaymentOrder{StructureID: "st1", Amount: amt}
		assert.Contains(t, fieldErrs(no.Validate(validate)), "amount", amt)
	}
}
