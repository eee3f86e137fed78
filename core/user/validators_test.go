package user

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuserp/erp/core"
)

func Test_checkPassword(t *testing.T) {
	tests := []struct {
		name    string
		pwd     string
		attrs   []string
		wantTag string
	}{
		{name: "too short", pwd: "Ab1!", wantTag: pwdMinLenTag},
		{name: "whitespace", pwd: "Abcd 123!", wantTag: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", wantTag: pwdNotAllNumTag},
		{name: "no upper", pwd: "abcd1234!", wantTag: pwdComplexityTag},
		{name: "no special", pwd: "Abcd12345", wantTag: pwdComplexityTag},
		{name: "similar to username", pwd: "Jdoe2024!", attrs: []string{"John Doe", "jdoe2024", "jdoe@test.in"}, wantTag: pwdAttrSimTag},
		{name: "common", pwd: "P@$$w0rd", wantTag: pwdNoCommonTag},
		{name: "common (case-insensitive)", pwd: "Admin@123", wantTag: pwdNoCommonTag},
		{name: "valid", pwd: "Tr0ub4dor&3x", attrs: []string{"John Doe", "jdoe", "jdoe@test.in"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTag, checkPassword(tt.pwd, tt.attrs...))
		})
	}
}

func TestNewUserValidation(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	fieldErrs := func(t *testing.T, nu NewUser) map[string]string {
		nu.Clean()
		err := validate.Struct(nu)
		if err == nil {
			return nil
		}
		vErrs, ok := err.(validator.ValidationErrors)
		require.True(t, ok, "unexpected error type %T", err)
		return core.FieldErrors(vErrs, translator)
	}

	t.Run("username or email required", func(t *testing.T) {
		errs := fieldErrs(t, NewUser{Name: "A", Password: "Tr0ub4dor&3x", PasswordConfirm: "Tr0ub4dor&3x"})
		assert.Equal(t, usernameOrEmailText, errs["username"])
		assert.Equal(t, usernameOrEmailText, errs["email"])
	})
	t.Run("invalid role", func(t *testing.T) {
		errs := fieldErrs(t, NewUser{Name: "A", Email: "a@test.in", Password: "Tr0ub4dor&3x", PasswordConfirm: "Tr0ub4dor&3x", Roles: []string{"lol:"}})
		assert.Equal(t, allRolesText, errs["roles"])
	})
	t.Run("password policy", func(t *testing.T) {
		errs := fieldErrs(t, NewUser{Name: "A", Email: "a@test.in", Password: "password", PasswordConfirm: "password"})
		assert.Equal(t, pwdComplexityText, errs["password"])
	})
	t.Run("password mismatch", func(t *testing.T) {
		errs := fieldErrs(t, NewUser{Name: "A", Email: "a@test.in", Password: "Tr0ub4dor&3x", PasswordConfirm: "Tr0ub4dor&3y"})
		assert.Contains(t, errs, "password_confirm")
	})
	t.Run("valid", func(t *testing.T) {
		errs := fieldErrs(t, NewUser{Name: "Asha Rao", Email: " Asha@Test.IN ", Password: "Tr0ub4dor&3x", PasswordConfirm: "Tr0ub4dor&3x", Roles: []string{RoleStaff}})
		assert.Empty(t, errs)
	})
}

func TestRolePriorities(t *testing.T) {
	assert.Equal(t, 30, MaxRolePriority([]string{RoleStudent, RoleAdminOwner}))
	assert.Equal(t, 0, MaxRolePriority(nil))
	assert.True(t, MaxRolePriority([]string{RoleAcademic}) > MaxRolePriority([]string{RoleStaffAccounts}))

	usr := User{Roles: []string{RoleStaffAccounts}}
	assert.True(t, usr.IsStaff())
	assert.True(t, usr.IsAccountant())
	assert.False(t, usr.IsAdmin())
}
