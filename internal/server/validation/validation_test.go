package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/saralseva/internal/common"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegister() RegisterRequest {
	return RegisterRequest{
		Name:     "Asha Rao",
		Email:    "asha@example.com",
		Phone:    "9876543210",
		Password: "Str0ngPass",
	}
}

func TestRegister_Valid(t *testing.T) {
	cmd, err := Register(validRegister())
	require.NoError(t, err)

	want := RegisterCommand{Name: "Asha Rao", Email: "asha@example.com", Phone: "9876543210", Password: "Str0ngPass"}
	if diff := cmp.Diff(want, cmd); diff != "" {
		t.Errorf("command mismatch (-want +got):\n%s", diff)
	}
}

func TestRegister_Normalizes(t *testing.T) {
	req := RegisterRequest{
		Name:     "  <b>Asha Rao</b> ",
		Email:    "  Asha@Example.COM ",
		Phone:    "(987) 654-3210",
		Password: " Str0ngPass ",
	}

	cmd, err := Register(req)
	require.NoError(t, err)
	assert.Equal(t, "bAsha Rao/b", cmd.Name)
	assert.Equal(t, "asha@example.com", cmd.Email)
	assert.Equal(t, "9876543210", cmd.Phone)
	assert.Equal(t, " Str0ngPass ", cmd.Password, "passwords are never rewritten")
}

func TestRegister_FirstAndLastName(t *testing.T) {
	req := validRegister()
	req.Name = ""
	req.FirstName = " Asha "
	req.LastName = "Rao"

	cmd, err := Register(req)
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", cmd.Name)

	req.Name = "Ignored Name"
	cmd, err = Register(req)
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", cmd.Name)
}

func TestRegister_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterRequest)
		want   []string
	}{
		{"missing name", func(r *RegisterRequest) { r.Name = "" }, []string{MsgNameRequired}},
		{"short name", func(r *RegisterRequest) { r.Name = " A " }, []string{MsgNameTooShort}},
		{"bad email", func(r *RegisterRequest) { r.Email = "asha@example" }, []string{MsgEmailInvalid}},
		{"email with space", func(r *RegisterRequest) { r.Email = "as ha@example.com" }, []string{MsgEmailInvalid}},
		{"short phone", func(r *RegisterRequest) { r.Phone = "98765" }, []string{MsgPhoneInvalid}},
		{"letters in phone", func(r *RegisterRequest) { r.Phone = "98765abcde" }, []string{MsgPhoneInvalid}},
		{"short password", func(r *RegisterRequest) { r.Password = "Sh0rt" }, []string{MsgPasswordWeak}},
		{"no upper", func(r *RegisterRequest) { r.Password = "str0ngpass" }, []string{MsgPasswordWeak}},
		{"no lower", func(r *RegisterRequest) { r.Password = "STR0NGPASS" }, []string{MsgPasswordWeak}},
		{"no digit", func(r *RegisterRequest) { r.Password = "StrongPass" }, []string{MsgPasswordWeak}},
		{"too long", func(r *RegisterRequest) { r.Password = "Aa1" + strings.Repeat("x", 70) }, []string{MsgPasswordTooLong}},
		{"everything", func(r *RegisterRequest) { *r = RegisterRequest{} }, []string{MsgNameRequired, MsgEmailInvalid, MsgPhoneInvalid, MsgPasswordWeak}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRegister()
			tt.mutate(&req)

			_, err := Register(req)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrorValidation)

			var verrs Errors
			require.True(t, errors.As(err, &verrs))
			assert.Equal(t, tt.want, []string(verrs))
		})
	}
}

func TestLogin(t *testing.T) {
	cmd, err := Login(LoginRequest{Email: " ASHA@example.com", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, LoginCommand{Email: "asha@example.com", Password: "x"}, cmd)

	_, err = Login(LoginRequest{Email: "nope", Password: ""})
	var verrs Errors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, Errors{MsgEmailInvalid, MsgPasswordRequired}, verrs)
}

func TestNormalizePhone(t *testing.T) {
	p, ok := NormalizePhone(" 98 76-54 (32) 10 ")
	assert.True(t, ok)
	assert.Equal(t, "9876543210", p)

	_, ok = NormalizePhone("+919876543210")
	assert.False(t, ok)
}
