package echoapi_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/campuserp/erp/apps/api/echo"
	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/user"
	"github.com/campuserp/erp/testutil"
)

func TestLogin(t *testing.T) {
	app := setup(t)
	active := testutil.CreateUser(t, app.UserRepo, "Asha Rao", "asha_rao", "asha@test.in", "", []string{user.RoleStaff}, true)
	testutil.CreateUser(t, app.UserRepo, "Ravi Kumar", "ravi_kumar", "ravi@test.in", "", []string{user.RoleStaff}, false)

	tests := []struct {
		name     string
		username string
		password string
		wantCode int
		wantMsg  string
	}{
		{name: "missing fields", wantCode: http.StatusBadRequest, wantMsg: "invalid data"},
		{name: "unknown user", username: "nobody", password: testutil.Password, wantCode: http.StatusBadRequest, wantMsg: "authentication failed"},
		{name: "wrong password", username: "asha_rao", password: "nope", wantCode: http.StatusBadRequest, wantMsg: "authentication failed"},
		{name: "deactivated", username: "ravi_kumar", password: testutil.Password, wantCode: http.StatusForbidden, wantMsg: "account deactivated"},
		{name: "by username", username: "ASHA_RAO ", password: testutil.Password, wantCode: http.StatusOK},
		{name: "by email", username: "asha@test.in", password: testutil.Password, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, http.MethodPost, "/api/auth/login", "", echoapi.LoginRequest{Username: tt.username, Password: tt.password})
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				assert.Equal(t, tt.wantMsg, decodeErr(t, rec).Message)
				return
			}
			var resp echoapi.LoginResponse
			decode(t, rec, &resp)
			assert.NotEmpty(t, resp.Token)
			require.NotNil(t, resp.User)
			assert.Equal(t, active.ID, resp.User.ID)
			assert.False(t, resp.User.LastLogin.IsZero())

			// the token works
			rec = app.do(t, http.MethodGet, "/api/users/"+active.ID, resp.Token, nil)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestTokenRefresh(t *testing.T) {
	app := setup(t)
	usr := testutil.CreateUser(t, app.UserRepo, "Asha Rao", "asha_rao", "asha@test.in", "", nil, true)

	rec := app.do(t, http.MethodPost, "/api/auth/token-refresh", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing or malformed jwt", decodeErr(t, rec).Message)

	rec = app.do(t, http.MethodPost, "/api/auth/token-refresh", "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/auth/token-refresh", app.token(t, usr), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp echoapi.LoginResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)

	// deactivated accounts lose access right away
	usr.IsActive = false
	_, err := app.UserRepo.UpdateUser(context.Background(), usr)
	require.NoError(t, err)
	rec = app.do(t, http.MethodPost, "/api/auth/token-refresh", resp.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPasswordReset(t *testing.T) {
	app := setup(t)
	usr := testutil.CreateUser(t, app.UserRepo, "Asha Rao", "asha_rao", "asha@test.in", "", nil, true)

	// unknown emails get the same answer
	rec := app.do(t, http.MethodPost, "/api/auth/password-reset", "", echoapi.PasswordResetRequest{Email: "nobody@test.in"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, app.Mail.SentMessages())

	rec = app.do(t, http.MethodPost, "/api/auth/password-reset", "", echoapi.PasswordResetRequest{Email: "not an email"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErr(t, rec).Fields, "email")

	rec = app.do(t, http.MethodPost, "/api/auth/password-reset", "", echoapi.PasswordResetRequest{Email: "Asha@test.in"})
	require.Equal(t, http.StatusOK, rec.Code)
	sent := app.Mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, usr.Email, sent[0].To[0].Address)
	assert.Len(t, app.Events.Events(core.EventPasswordResetSent), 1)

	data, ok := sent[0].TemplateData.(map[string]interface{})
	require.True(t, ok)
	confirm := user.ResetUserPassword{
		UID:             data["UID"].(string),
		Token:           data["Token"].(string),
		Password:        "N3w-Passw0rd!",
		PasswordConfirm: "N3w-Passw0rd!",
	}

	bad := confirm
	bad.Token = "1-abc"
	rec = app.do(t, http.MethodPost, "/api/auth/password-reset-confirm", "", bad)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErr(t, rec).Fields, "token")

	rec = app.do(t, http.MethodPost, "/api/auth/password-reset-confirm", "", confirm)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodPost, "/api/auth/login", "", echoapi.LoginRequest{Username: "asha_rao", Password: "N3w-Passw0rd!"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserQuery(t *testing.T) {
	app := setup(t)
	acc := app.createAccounts(t)
	inactive := testutil.CreateUser(t, app.UserRepo, "Zed Inactive", "zed_inactive", "zed@test.in", "", []string{user.RoleStudent}, false)

	path := func(v url.Values) string { return "/api/users?" + v.Encode() }
	ids := func(users []user.User) []string {
		res := make([]string, 0, len(users))
		for _, u := range users {
			res = append(res, u.ID)
		}
		return res
	}

	rec := app.do(t, http.MethodGet, "/api/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/users", app.token(t, acc.staff), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "permission denied", decodeErr(t, rec).Message)

	adminToken := app.token(t, acc.admin)
	tests := []struct {
		name    string
		query   url.Values
		wantIDs []string
	}{
		{name: "search", query: url.Values{"search": {"ACADEM"}}, wantIDs: []string{acc.academic.ID}},
		{name: "role prefix", query: url.Values{"role": {user.RoleStaff}, "ordering": {"username"}}, wantIDs: []string{acc.accountant.ID, acc.staff.ID}},
		{name: "inactive", query: url.Values{"is_active": {"false"}}, wantIDs: []string{inactive.ID}},
		{name: "ordering", query: url.Values{"role": {user.RoleAdmin + "," + user.RoleAcademic}, "ordering": {"-name"}}, wantIDs: []string{acc.admin.ID, acc.academic.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, http.MethodGet, path(tt.query), adminToken, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var users []user.User
			decode(t, rec, &users)
			assert.Equal(t, tt.wantIDs, ids(users))
		})
	}

	t.Run("bad params", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, path(url.Values{"ordering": {"password"}}), adminToken, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeErr(t, rec).Fields, "ordering")

		rec = app.do(t, http.MethodGet, path(url.Values{"is_active": {"maybe"}}), adminToken, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeErr(t, rec).Fields, "is_active")
	})
}

func TestUserCreate(t *testing.T) {
	app := setup(t)
	acc := app.createAccounts(t)
	adminToken := app.token(t, acc.admin)

	nu := user.NewUser{
		Name:            "Meera Iyer",
		Username:        "meera_iyer",
		Email:           "meera@test.in",
		Password:        "Tr1cky-Passw0rd",
		PasswordConfirm: "Tr1cky-Passw0rd",
		Roles:           []string{user.RoleStaffAccounts},
	}

	rec := app.do(t, http.MethodPost, "/api/users", app.token(t, acc.academic), nu)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// roles above the creator's
	owner := nu
	owner.Roles = []string{user.RoleAdminOwner}
	rec = app.do(t, http.MethodPost, "/api/users", adminToken, owner)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErr(t, rec).Fields, "roles")

	rec = app.do(t, http.MethodPost, "/api/users", adminToken, nu)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var usr user.User
	decode(t, rec, &usr)
	assert.Equal(t, "meera_iyer", usr.Username)
	assert.True(t, usr.IsActive)

	// taken username & email
	rec = app.do(t, http.MethodPost, "/api/users", adminToken, nu)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decodeErr(t, rec).Fields)

	rec = app.do(t, http.MethodGet, "/api/users/roles", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var roles []user.Role
	decode(t, rec, &roles)
	assert.Equal(t, user.Roles, roles)
}

func TestUserDetail(t *testing.T) {
	app := setup(t)
	acc := app.createAccounts(t)
	staffToken := app.token(t, acc.staff)
	adminToken := app.token(t, acc.admin)

	t.Run("self or admin", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/users/"+acc.staff.ID, staffToken, nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = app.do(t, http.MethodGet, "/api/users/"+acc.academic.ID, staffToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = app.do(t, http.MethodGet, "/api/users/"+acc.staff.ID, adminToken, nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = app.do(t, http.MethodGet, "/api/users/unknown", adminToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		rec := app.do(t, http.MethodPut, "/api/users/"+acc.staff.ID, staffToken, map[string]interface{}{"name": "Staff Member"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var usr user.User
		decode(t, rec, &usr)
		assert.Equal(t, "Staff Member", usr.Name)
		assert.Equal(t, acc.staff.Username, usr.Username)

		// only admins may change roles & activation
		rec = app.do(t, http.MethodPut, "/api/users/"+acc.staff.ID, staffToken, map[string]interface{}{"roles": []string{user.RoleAdmin}})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = app.do(t, http.MethodPut, "/api/users/"+acc.staff.ID, adminToken, map[string]interface{}{"is_active": false})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &usr)
		assert.False(t, usr.IsActive)

		rec = app.do(t, http.MethodGet, "/api/users/"+acc.staff.ID, staffToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := app.do(t, http.MethodDelete, "/api/users/"+acc.admin.ID, adminToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, "no self deletion")

		rec = app.do(t, http.MethodDelete, "/api/users/"+acc.outsider.ID, app.token(t, acc.outsider), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, "admins only")

		rec = app.do(t, http.MethodDelete, "/api/users/"+acc.outsider.ID, adminToken, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = app.do(t, http.MethodGet, "/api/users/"+acc.outsider.ID, adminToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
