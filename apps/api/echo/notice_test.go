package echoapi_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/notice"
	"github.com/campuserp/erp/core/user"
	"github.com/campuserp/erp/testutil"
)

func TestNoticeAPI(t *testing.T) {
	app := setup(t)
	acc := app.createAccounts(t)
	stud := testutil.CreateUser(t, app.UserRepo, "Priya Sharma", "priya", "priya@test.in", "", []string{user.RoleStudent}, true)
	testutil.CreateUser(t, app.UserRepo, "Gone Student", "gone_student", "gone@test.in", "", []string{user.RoleStudent}, false)

	day := func(d, h int) time.Time { return time.Date(2024, time.June, d, h, 0, 0, 0, time.UTC) }
	create := func(usr user.User, nn notice.NewNotice) notice.Notice {
		t.Helper()
		rec := app.do(t, http.MethodPost, "/api/notices", app.token(t, usr), nn)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var n notice.Notice
		decode(t, rec, &n)
		return n
	}

	exams := create(acc.staff, notice.NewNotice{
		Title:       "End semester exams",
		Body:        "Hall tickets are available at the office.",
		Category:    "Exam",
		Audience:    []string{user.RoleStudent},
		PublishedAt: day(10, 9),
		Notify:      true,
	})
	fest := create(acc.academic, notice.NewNotice{
		Title:       "Annual fest",
		Body:        "Join us on the main ground.",
		Category:    "event",
		PublishedAt: day(12, 18),
	})
	meeting := create(acc.admin, notice.NewNotice{
		Title:       "Staff meeting",
		Body:        "Conference room, 4pm.",
		Category:    "exam",
		Audience:    []string{user.RoleStaff},
		PublishedAt: day(1, 8),
		ExpiresAt:   day(2, 8),
	})
	assert.Equal(t, "exam", exams.Category)
	assert.Len(t, app.Events.Events(core.EventNoticePublished), 3)

	// only active students were notified
	sent := app.Mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, stud.Email, sent[0].To[0].Address)

	t.Run("permissions & validation", func(t *testing.T) {
		nn := notice.NewNotice{Title: "Hello", Body: "World", Category: "general"}
		rec := app.do(t, http.MethodPost, "/api/notices", app.token(t, stud), nn)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		nn.Audience = []string{"parents"}
		nn.PublishedAt = day(5, 0)
		nn.ExpiresAt = day(4, 0)
		rec = app.do(t, http.MethodPost, "/api/notices", app.token(t, acc.staff), nn)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		fields := decodeErr(t, rec).Fields
		assert.Contains(t, fields, "audience[0]")
		assert.Contains(t, fields, "expires_at")
	})

	list := func(usr user.User, v url.Values) []string {
		t.Helper()
		rec := app.do(t, http.MethodGet, "/api/notices?"+v.Encode(), app.token(t, usr), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var notices []notice.Notice
		decode(t, rec, &notices)
		res := make([]string, 0, len(notices))
		for _, n := range notices {
			res = append(res, n.ID)
		}
		return res
	}

	tests := []struct {
		name    string
		usr     user.User
		query   url.Values
		wantIDs []string
	}{
		{name: "student audience", usr: stud, wantIDs: []string{fest.ID, exams.ID}},
		{name: "staff audience", usr: acc.staff, wantIDs: []string{fest.ID}},
		{name: "staff with expired", usr: acc.staff, query: url.Values{"include_expired": {"true"}}, wantIDs: []string{fest.ID, meeting.ID}},
		{name: "students never see expired", usr: stud, query: url.Values{"include_expired": {"true"}}, wantIDs: []string{fest.ID, exams.ID}},
		{name: "admin sees all", usr: acc.admin, query: url.Values{"include_expired": {"1"}}, wantIDs: []string{fest.ID, exams.ID, meeting.ID}},
		{name: "category", usr: acc.admin, query: url.Values{"category": {"EXAM"}}, wantIDs: []string{exams.ID}},
		{name: "from", usr: acc.admin, query: url.Values{"from": {"2024-06-11"}}, wantIDs: []string{fest.ID}},
		{name: "date-only to covers the day", usr: acc.admin, query: url.Values{"to": {"2024-06-10"}}, wantIDs: []string{exams.ID}},
		{name: "timestamp to", usr: acc.admin, query: url.Values{"to": {"2024-06-10T08:59:59Z"}}, wantIDs: []string{}},
		{name: "inclusive range", usr: acc.admin, query: url.Values{"from": {"2024-06-10T09:00:00Z"}, "to": {"2024-06-12T18:00:00Z"}}, wantIDs: []string{fest.ID, exams.ID}},
		{name: "search body", usr: stud, query: url.Values{"search": {"HALL TICKETS"}}, wantIDs: []string{exams.ID}},
		{name: "search title", usr: stud, query: url.Values{"search": {"fest"}}, wantIDs: []string{fest.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantIDs, list(tt.usr, tt.query))
		})
	}

	t.Run("bad range", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/notices?from=2024-06-12&to=2024-06-10", app.token(t, stud), nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeErr(t, rec).Fields, "to")

		rec = app.do(t, http.MethodGet, "/api/notices?from=june", app.token(t, stud), nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeErr(t, rec).Fields, "from")
	})

	t.Run("detail", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/notices/"+exams.ID, app.token(t, stud), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		rec = app.do(t, http.MethodGet, "/api/notices/"+exams.ID, app.token(t, acc.staff), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		upd := notice.NewNotice{Title: "Annual fest 2024", Body: fest.Body, Category: fest.Category}
		rec = app.do(t, http.MethodPut, "/api/notices/"+fest.ID, app.token(t, stud), upd)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		rec = app.do(t, http.MethodPut, "/api/notices/"+fest.ID, app.token(t, acc.academic), upd)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var n notice.Notice
		decode(t, rec, &n)
		assert.Equal(t, "Annual fest 2024", n.Title)
		assert.True(t, n.PublishedAt.Equal(fest.PublishedAt))

		rec = app.do(t, http.MethodDelete, "/api/notices/"+fest.ID, app.token(t, acc.staff), nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = app.do(t, http.MethodGet, "/api/notices/"+fest.ID, app.token(t, acc.admin), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
