package user

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/simcatalog/core"
)

func newValidator() *validator.Validate {
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate
}

func TestRole_AtLeast(t *testing.T) {
	tests := []struct {
		role Role
		min  Role
		want bool
	}{
		{RoleViewer, RoleViewer, true},
		{RoleViewer, RoleEditor, false},
		{RoleEditor, RoleViewer, true},
		{RoleEditor, RoleEditor, true},
		{RoleEditor, RoleAdmin, false},
		{RoleAdmin, RoleViewer, true},
		{RoleAdmin, RoleAdmin, true},
		{Role("ROOT"), RoleViewer, false},
		{Role(""), RoleViewer, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+">="+string(tt.min), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.AtLeast(tt.min))
		})
	}
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" editor ")
	assert.True(t, ok)
	assert.Equal(t, RoleEditor, r)

	_, ok = ParseRole("owner")
	assert.False(t, ok)
}

func TestQueryFilter(t *testing.T) {
	usr := User{Name: "Ana Souza", Email: "ana@simcatalog.dev", Role: RoleEditor}

	qf := QueryFilter{Search: "  SOUZA ", Role: "editor"}
	qf.Clean()
	assert.Equal(t, RoleEditor, qf.Role)
	assert.True(t, qf.Match(usr))

	qf = QueryFilter{Role: "lol"}
	qf.Clean()
	assert.True(t, qf.IsEmpty())

	assert.False(t, QueryFilter{Role: RoleAdmin}.Match(usr))
	assert.False(t, QueryFilter{Search: "bob"}.Match(usr))
	assert.True(t, QueryFilter{Search: "SIMCATALOG"}.Match(usr))
}

func TestCheckPasswordPolicy(t *testing.T) {
	tests := []struct {
		name    string
		pwd     string
		wantErr string
	}{
		{"too short", "Ab1!", pwdMinLenText},
		{"whitespace", "Abcd 123!", pwdNoSpaceText},
		{"all numeric", "1234567890", pwdNotAllNumText},
		{"no special", "Abcdefg123", pwdComplexityText},
		{"no upper", "abcdefg12!", pwdComplexityText},
		{"similar to name", "Mariana1!", pwdAttrSimText},
		{"common", "Senha@123", pwdNoCommonText},
		{"ok", "Kx7#vQ2!pL", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPasswordPolicy(tt.pwd, "Mariana", "mariana@test.dev")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			vErr, ok := err.(*core.ValidationError)
			require.True(t, ok)
			assert.Equal(t, []core.FieldError{{Field: "password", Error: tt.wantErr}}, vErr.Fields)
		})
	}
}

func TestNewUser_structValidation(t *testing.T) {
	validate := newValidator()

	nu := NewUser{Email: "x@test.dev", Password: "password", PasswordConfirm: "password", Role: "GOD"}
	err := validate.Struct(nu)
	require.Error(t, err)

	fields := make(map[string]string)
	for _, fe := range err.(validator.ValidationErrors) {
		fields[fe.Field()] = fe.Tag()
	}
	assert.Equal(t, map[string]string{"role": roleTag, "password": pwdComplexityTag}, fields)

	nu = NewUser{Email: "x@test.dev", Password: "Kx7#vQ2!pL", PasswordConfirm: "Kx7#vQ2!pL", Role: RoleEditor}
	assert.NoError(t, validate.Struct(nu))
}
