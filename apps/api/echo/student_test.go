package echoapi_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/student"
	"github.com/campuserp/erp/core/user"
	docsvc "github.com/campuserp/erp/services/documents"
	"github.com/campuserp/erp/testutil"
)

func TestStudentAPI(t *testing.T) {
	app := setup(t)
	acc := app.createAccounts(t)
	crs, sess := app.campus(t)
	academicToken := app.token(t, acc.academic)

	ns := student.NewStudent{
		Name:      "Priya Sharma",
		Email:     "Priya@Test.in",
		Phone:     "+919876543210",
		CourseID:  crs.ID,
		Semester:  1,
		SessionID: sess.SessionID,
	}

	rec := app.do(t, http.MethodPost, "/api/erp/students", app.token(t, acc.staff), ns)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	t.Run("references", func(t *testing.T) {
		bad := ns
		bad.CourseID = "unknown"
		rec := app.do(t, http.MethodPost, "/api/erp/students", academicToken, bad)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeErr(t, rec).Fields, "course_id")

		bad = ns
		bad.SessionID = "1999-00"
		rec = app.do(t, http.MethodPost, "/api/erp/students", academicToken, bad)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeErr(t, rec).Fields, "session_id")
	})

	rec = app.do(t, http.MethodPost, "/api/erp/students", academicToken, ns)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var st student.Student
	decode(t, rec, &st)
	assert.Equal(t, "202400001", st.EnrollmentNo)
	assert.Equal(t, "priya@test.in", st.Email)
	assert.NotEmpty(t, st.UserID)

	// an account is opened & the student is invited to set their password
	usr := testutil.StudentUser(t, app.UserSvc, st)
	assert.True(t, usr.IsStudent())
	sent := app.Mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "priya@test.in", sent[0].To[0].Address)
	assert.Len(t, app.Events.Events(core.EventStudentEnrolled), 1)

	rec = app.do(t, http.MethodPost, "/api/erp/students", academicToken, ns)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErr(t, rec).Fields, "email")

	second := testutil.CreateStudent(t, app.StudentSvc, "Arjun Mehta", "arjun@test.in", crs.ID, sess.SessionID, 2)
	assert.Equal(t, "202400002", second.EnrollmentNo)

	t.Run("query", func(t *testing.T) {
		get := func(v url.Values) []student.Student {
			rec := app.do(t, http.MethodGet, "/api/erp/students?"+v.Encode(), academicToken, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var students []student.Student
			decode(t, rec, &students)
			return students
		}
		assert.Len(t, get(url.Values{}), 2)
		assert.Len(t, get(url.Values{"semester": {"2"}}), 1)
		assert.Len(t, get(url.Values{"search": {"202400001"}}), 1)

		byName := get(url.Values{"ordering": {"-name"}})
		require.Len(t, byName, 2)
		assert.Equal(t, st.ID, byName[0].ID)

		rec := app.do(t, http.MethodGet, "/api/erp/students?ordering=email", academicToken, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update & delete", func(t *testing.T) {
		upd := ns
		upd.Semester = 2
		upd.Address = "12 MG Road, Pune"
		rec := app.do(t, http.MethodPut, "/api/erp/students/"+st.ID, academicToken, upd)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated student.Student
		decode(t, rec, &updated)
		assert.Equal(t, 2, updated.Semester)
		assert.Equal(t, st.EnrollmentNo, updated.EnrollmentNo)

		// the email of another account is taken
		upd.Email = acc.staff.Email
		rec = app.do(t, http.MethodPut, "/api/erp/students/"+st.ID, academicToken, upd)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeErr(t, rec).Fields, "email")

		// the account follows the new email & name
		upd.Email = "Priya.Sharma@Test.in"
		upd.Name = "Priya S. Sharma"
		rec = app.do(t, http.MethodPut, "/api/erp/students/"+st.ID, academicToken, upd)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		account := testutil.StudentUser(t, app.UserSvc, st)
		assert.Equal(t, "priya.sharma@test.in", account.Email)
		assert.Equal(t, "Priya S. Sharma", account.Name)
		assert.Equal(t, st.EnrollmentNo, account.Username)
		_, err := app.UserSvc.GetByEmail(context.Background(), "priya@test.in")
		assert.True(t, core.IsNotFound(err))

		rec = app.do(t, http.MethodDelete, "/api/erp/students/"+second.ID, academicToken, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = app.do(t, http.MethodGet, "/api/erp/students/"+second.ID, academicToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		// the account of a removed student is closed
		usr := testutil.StudentUser(t, app.UserSvc, second)
		assert.False(t, usr.IsActive)
	})
}

func studentSheet(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func multipartFile(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestStudentImport(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.UserRepo, "Admin", "admin", "admin@test.in", "", []string{user.RoleAdmin}, true)
	token := app.token(t, admin)
	_, sess := app.campus(t)

	sheet := studentSheet(t,
		[]interface{}{"Student Name", "E-mail", "Course Code", "Sem", "Academic Session", "Mobile"},
		[]interface{}{"Kavya Nair", "kavya@test.in", "btech-cse", 1, sess.SessionID, "+919812345678"},
		[]interface{}{"", "", "", "", "", ""},
		[]interface{}{"Unknown Course", "uc@test.in", "MBBS", 1, sess.SessionID, ""},
		[]interface{}{"Bad Email", "not-an-email", "BTECH-CSE", 1, sess.SessionID, ""},
		[]interface{}{"Rohan Das", "rohan@test.in", "BTECH-CSE", 2, sess.SessionID, ""},
	)
	body, ct := multipartFile(t, "file", "students.xlsx", sheet.Bytes())

	rec := app.do(t, http.MethodPost, "/api/erp/students/import", token, body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res student.ImportResult
	decode(t, rec, &res)

	require.Len(t, res.Created, 2)
	assert.Equal(t, "Kavya Nair", res.Created[0].Name)
	assert.Equal(t, "Rohan Das", res.Created[1].Name)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, 4, res.Errors[0].Row)
	assert.Contains(t, res.Errors[0].Fields, "course")
	assert.Equal(t, 5, res.Errors[1].Row)
	assert.Contains(t, res.Errors[1].Fields, "email")

	t.Run("missing columns", func(t *testing.T) {
		sheet := studentSheet(t, []interface{}{"Name", "Email"})
		body, ct := multipartFile(t, "file", "students.xlsx", sheet.Bytes())
		rec := app.do(t, http.MethodPost, "/api/erp/students/import", token, body, ct)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "missing columns: course, semester, session", decodeErr(t, rec).Fields["file"])
	})

	t.Run("not a workbook", func(t *testing.T) {
		body, ct := multipartFile(t, "file", "students.xlsx", []byte("name,email"))
		rec := app.do(t, http.MethodPost, "/api/erp/students/import", token, body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("template", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/erp/students/import/template.xlsx", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, docsvc.XLSXContentType, rec.Header().Get("Content-Type"))

		// the template can be imported back
		rows, err := docsvc.ParseStudents(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}
