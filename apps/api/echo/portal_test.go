package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/campuserp/erp/apps/api/echo"
	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/attendance"
	"github.com/campuserp/erp/core/fee"
	"github.com/campuserp/erp/core/student"
	"github.com/campuserp/erp/core/user"
	"github.com/campuserp/erp/testutil"
)

func TestStudentPortal(t *testing.T) {
	app := setup(t)
	fx := app.feeSetup(t)
	priyaUser := testutil.StudentUser(t, app.UserSvc, fx.priya)
	token := app.token(t, priyaUser)

	t.Run("access", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/student/profile", app.token(t, fx.acc.staff), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		orphan := testutil.CreateUser(t, app.UserRepo, "No Record", "norecord", "norecord@test.in", "", []string{user.RoleStudent}, true)
		rec = app.do(t, http.MethodGet, "/api/student/profile", app.token(t, orphan), nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "no student record for this account", decodeErr(t, rec).Message)
	})

	t.Run("profile", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/student/profile", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var st student.Student
		decode(t, rec, &st)
		assert.Equal(t, fx.priya.ID, st.ID)
		assert.Equal(t, priyaUser.Username, st.EnrollmentNo)

		rec = app.do(t, http.MethodPut, "/api/student/profile", token, map[string]string{"phone": "12ab"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeErr(t, rec).Fields, "phone")

		body := map[string]string{
			"phone":   " +919876543210 ",
			"address": "12 MG Road, Bengaluru",
			// not editable by the student
			"name":          "Someone Else",
			"enrollment_no": "999",
		}
		rec = app.do(t, http.MethodPut, "/api/student/profile", token, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &st)
		assert.Equal(t, "+919876543210", st.Phone)
		assert.Equal(t, "12 MG Road, Bengaluru", st.Address)
		assert.Equal(t, fx.priya.Name, st.Name)
		assert.Equal(t, fx.priya.EnrollmentNo, st.EnrollmentNo)
		assert.Equal(t, fx.priya.CourseID, st.CourseID)
	})

	t.Run("fees & receipts", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/receipts", app.token(t, fx.acc.accountant), fee.NewReceipt{
			StudentID:   fx.priya.ID,
			StructureID: fx.structure.ID,
			Amount:      20000,
			Mode:        fee.ModeCash,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = app.do(t, http.MethodGet, "/api/student/fees", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var fees echoapi.FeeSummaryResponse
		decode(t, rec, &fees)
		assert.Equal(t, fx.priya.ID, fees.Student.ID)
		require.Len(t, fees.Summaries, 1)
		assert.Equal(t, 55000.0, fees.Summaries[0].Total)
		assert.Equal(t, 20000.0, fees.Summaries[0].Paid)
		assert.Equal(t, 35000.0, fees.Summaries[0].Balance)

		rec = app.do(t, http.MethodGet, "/api/student/receipts", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var receipts []fee.Receipt
		decode(t, rec, &receipts)
		require.Len(t, receipts, 1)
		assert.Equal(t, "RCPT-000001", receipts[0].ReceiptNo)

		arjunToken := app.token(t, testutil.StudentUser(t, app.UserSvc, fx.arjun))
		rec = app.do(t, http.MethodGet, "/api/student/receipts", arjunToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		decode(t, rec, &receipts)
		assert.Empty(t, receipts)
	})

	t.Run("attendance", func(t *testing.T) {
		app.mark(t, app.token(t, fx.acc.staff), attendance.MarkAttendance{
			CourseID:    fx.priya.CourseID,
			Semester:    1,
			SubjectCode: "CS101",
			Date:        core.NewDate(2024, time.July, 1),
			Entries: []attendance.Entry{
				{StudentID: fx.priya.ID, Status: attendance.StatusPresent},
				{StudentID: fx.arjun.ID, Status: attendance.StatusAbsent},
			},
		})

		// the student_id param can't widen the query to other students
		rec := app.do(t, http.MethodGet, "/api/student/attendance?student_id="+fx.arjun.ID, token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp echoapi.StudentAttendanceResponse
		decode(t, rec, &resp)
		require.Len(t, resp.Records, 1)
		assert.Equal(t, fx.priya.ID, resp.Records[0].StudentID)
		require.Len(t, resp.Summaries, 1)
		assert.Equal(t, 100.0, resp.Summaries[0].Percentage)
	})
}
