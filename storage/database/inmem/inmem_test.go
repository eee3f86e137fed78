package inmemdb

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/attendance"
	"github.com/campuserp/erp/core/fee"
	"github.com/campuserp/erp/core/session"
	"github.com/campuserp/erp/core/student"
)

func TestCounterNext(t *testing.T) {
	repo := NewCounterRepository(Open())
	ctx := context.Background()

	var wg sync.WaitGroup
	seen := make(chan int64, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			val, err := repo.Next(ctx, "receipt")
			assert.NoError(t, err)
			seen <- val
		}()
	}
	wg.Wait()
	close(seen)

	uniq := make(map[int64]bool)
	for val := range seen {
		assert.False(t, uniq[val], "duplicate value %d", val)
		uniq[val] = true
	}
	assert.Len(t, uniq, 50)
	assert.True(t, uniq[1])
	assert.True(t, uniq[50])

	_, created, err := repo.Ensure(ctx, "receipt", 1000)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestActivateSession(t *testing.T) {
	repo := NewSessionRepository(Open())
	ctx := context.Background()

	_, err := repo.GetActiveSession(ctx)
	assert.ErrorIs(t, err, session.ErrNoActiveSession)

	s1, err := repo.CreateSession(ctx, session.Session{SessionID: "2023-24", StartDate: core.NewDate(2023, 7, 1), EndDate: core.NewDate(2024, 6, 30), IsActive: true})
	require.NoError(t, err)
	assert.False(t, s1.IsActive)
	s2, err := repo.CreateSession(ctx, session.Session{SessionID: "2024-25", StartDate: core.NewDate(2024, 7, 1), EndDate: core.NewDate(2025, 6, 30)})
	require.NoError(t, err)

	_, err = repo.ActivateSession(ctx, s1.ID)
	require.NoError(t, err)
	active, err := repo.ActivateSession(ctx, s2.ID)
	require.NoError(t, err)
	assert.True(t, active.IsActive)

	sessions, err := repo.QuerySessions(ctx, session.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "2024-25", sessions[0].SessionID)
	assert.True(t, sessions[0].IsActive)
	assert.False(t, sessions[1].IsActive)

	// updates can't activate
	s1.IsActive = true
	s1, err = repo.UpdateSession(ctx, s1)
	require.NoError(t, err)
	assert.False(t, s1.IsActive)

	_, err = repo.ActivateSession(ctx, "nope")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestRenameSessionCascades(t *testing.T) {
	db := Open()
	sessions, students, fees := NewSessionRepository(db), NewStudentRepository(db), NewFeeRepository(db)
	ctx := context.Background()

	s, err := sessions.CreateSession(ctx, session.Session{SessionID: "2024-25", StartDate: core.NewDate(2024, 4, 1), EndDate: core.NewDate(2025, 3, 31)})
	require.NoError(t, err)
	stu, err := students.CreateStudent(ctx, student.Student{Name: "Kiran", Email: "kiran@campus.in", CourseID: "c1", Semester: 1, SessionID: "2024-25"})
	require.NoError(t, err)
	st, err := fees.CreateStructure(ctx, fee.Structure{CourseID: "c1", SessionID: "2024-25", Semester: 1, Heads: []fee.Head{{Name: "Tuition", Amount: 100}}})
	require.NoError(t, err)

	s.SessionID = "2024-2025"
	_, err = sessions.UpdateSession(ctx, s)
	require.NoError(t, err)

	stu, err = students.GetStudent(ctx, stu.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-2025", stu.SessionID)

	sts, err := fees.QueryStructures(ctx, fee.StructureFilter{CourseID: "c1", SessionID: "2024-2025", Semester: 1})
	require.NoError(t, err)
	require.Len(t, sts, 1)
	assert.Equal(t, st.ID, sts[0].ID)
}

func TestFeeTotalPaid(t *testing.T) {
	repo := NewFeeRepository(Open())
	ctx := context.Background()

	for _, amt := range []float64{0.1, 0.2, 1000} {
		_, err := repo.CreateReceipt(ctx, fee.Receipt{StudentID: "s1", StructureID: "st1", Amount: amt, PaidAt: time.Now()}, fee.ReceiptGuard{})
		require.NoError(t, err)
	}
	_, err := repo.CreateReceipt(ctx, fee.Receipt{StudentID: "s2", StructureID: "st1", Amount: 50, PaidAt: time.Now()}, fee.ReceiptGuard{})
	require.NoError(t, err)

	total, err := repo.TotalPaid(ctx, "s1", "st1")
	require.NoError(t, err)
	assert.Equal(t, 1000.3, total)

	total, err = repo.TotalPaid(ctx, "s3", "st1")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreateReceiptGuard(t *testing.T) {
	repo := NewFeeRepository(Open())
	ctx := context.Background()
	capped := fee.ReceiptGuard{CapPaid: true, MaxPaid: 1000}

	var wg sync.WaitGroup
	var created int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateReceipt(ctx, fee.Receipt{StudentID: "s1", StructureID: "st1", Amount: 200}, capped)
			if err == nil {
				atomic.AddInt32(&created, 1)
				return
			}
			assert.Equal(t, fee.ErrExceedsBalance, err)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 5, created)

	total, err := repo.TotalPaid(ctx, "s1", "st1")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, total)

	// other students are capped on their own
	_, err = repo.CreateReceipt(ctx, fee.Receipt{StudentID: "s2", StructureID: "st1", Amount: 1000}, capped)
	assert.NoError(t, err)

	o, err := repo.CreateOrder(ctx, fee.PaymentOrder{OrderID: "order_1", StudentID: "s1", StructureID: "st1", Amount: 300, Status: fee.OrderCreated})
	require.NoError(t, err)
	o.Status = fee.OrderPaid
	o.PaymentID = "pay_1"
	r, err := repo.CreateReceipt(ctx, fee.Receipt{StudentID: "s1", StructureID: "st1", Amount: 300}, fee.ReceiptGuard{Order: &o})
	require.NoError(t, err, "online payments are not capped")

	stored, err := repo.GetOrderByGatewayID(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, fee.OrderPaid, stored.Status)
	assert.Equal(t, "pay_1", stored.PaymentID)
	assert.Equal(t, r.ID, stored.ReceiptID)

	_, err = repo.CreateReceipt(ctx, fee.Receipt{StudentID: "s1", StructureID: "st1", Amount: 300}, fee.ReceiptGuard{Order: &o})
	assert.Equal(t, fee.ErrOrderPaid, err)
	total, err = repo.TotalPaid(ctx, "s1", "st1")
	require.NoError(t, err)
	assert.Equal(t, 1300.0, total)
}

func TestUpsertAttendance(t *testing.T) {
	repo := NewAttendanceRepository(Open())
	ctx := context.Background()
	day := core.NewDate(2024, 9, 2)

	saved, err := repo.UpsertRecords(ctx, []attendance.Record{
		{StudentID: "s1", SubjectCode: "CS101", Date: day, Status: attendance.StatusAbsent},
		{StudentID: "s2", SubjectCode: "CS101", Date: day, Status: attendance.StatusPresent},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)

	saved, err = repo.UpsertRecords(ctx, []attendance.Record{
		{StudentID: "s1", SubjectCode: "cs101", Date: day, Status: attendance.StatusLate},
	})
	require.NoError(t, err)
	require.Len(t, saved, 1)

	records, err := repo.QueryRecords(ctx, attendance.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "s1", records[0].StudentID)
	assert.Equal(t, attendance.StatusLate, records[0].Status)
	assert.Equal(t, saved[0].ID, records[0].ID)
}
