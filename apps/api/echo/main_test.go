package echoapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	echoapi "github.com/campuserp/erp/apps/api/echo"
	"github.com/campuserp/erp/core/course"
	"github.com/campuserp/erp/core/session"
	"github.com/campuserp/erp/core/user"
	"github.com/campuserp/erp/testutil"
)

type errResp struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

type testApp struct {
	*testutil.Env
	srv echoapi.Server
}

func setup(t *testing.T) *testApp {
	t.Helper()
	env := testutil.NewEnv()
	srv := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          env.Conf,
		Logger:        env.Logger,
		Validate:      env.Validate,
		Translator:    env.Translator,
		UserSvc:       env.UserSvc,
		CourseSvc:     env.CourseSvc,
		SessionSvc:    env.SessionSvc,
		StudentSvc:    env.StudentSvc,
		FeeSvc:        env.FeeSvc,
		NoticeSvc:     env.NoticeSvc,
		AttendanceSvc: env.AttendanceSvc,
	})
	return &testApp{Env: env, srv: srv}
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := echoapi.NewToken(app.Conf, usr)
	require.NoError(t, err, "NewToken()")
	return token
}

// do sends a request; body is JSON encoded unless it already is an io.Reader.
func (app *testApp) do(t *testing.T, method, path, token string, body interface{}, contentType ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	ct := "application/json"
	if len(contentType) > 0 {
		ct = contentType[0]
	}
	req.Header.Set("Content-Type", ct)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) errResp {
	t.Helper()
	var resp errResp
	decode(t, rec, &resp)
	return resp
}

// users with one role each
type accounts struct {
	admin, academic, staff, accountant, outsider user.User
}

func (app *testApp) createAccounts(t *testing.T) accounts {
	t.Helper()
	return accounts{
		admin:      testutil.CreateUser(t, app.UserRepo, "Admin", "admin", "admin@test.in", "", []string{user.RoleAdmin}, true),
		academic:   testutil.CreateUser(t, app.UserRepo, "Academic", "academic", "academic@test.in", "", []string{user.RoleAcademic}, true),
		staff:      testutil.CreateUser(t, app.UserRepo, "Staff", "staff", "staff@test.in", "", []string{user.RoleStaff}, true),
		accountant: testutil.CreateUser(t, app.UserRepo, "Accountant", "accountant", "accounts@test.in", "", []string{user.RoleStaffAccounts}, true),
		outsider:   testutil.CreateUser(t, app.UserRepo, "Outsider", "outsider", "outsider@test.in", "", nil, true),
	}
}

// campus creates a course with 2 semesters & an active session.
func (app *testApp) campus(t *testing.T) (course.Course, session.Session) {
	t.Helper()
	crs := testutil.CreateCourse(t, app.CourseSvc, "BTECH-CSE", "B.Tech Computer Science",
		testutil.Semester(1, "CS101", "MA101"),
		testutil.Semester(2, "CS102"),
	)
	sess := testutil.CreateSession(t, app.SessionSvc, "2024-25", 2024, true)
	return crs, sess
}

func TestHome(t *testing.T) {
	app := setup(t)
	rec := app.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Campus ERP")
}
