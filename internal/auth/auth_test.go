package auth

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/op-booking/internal/internaltypes"
	"github.com/example/op-booking/internal/portal"
	"github.com/example/op-booking/internal/session"
)

type fakeAPI struct {
	requested []string
	verified  []portal.VerifyOTPRequest
	created   []portal.CreateUserRequest
	otpResp   portal.OTPResponse
	verify    portal.VerifyOTPResponse
	err       error
}

func (f *fakeAPI) RequestOTP(_ context.Context, aadhaar string) (portal.OTPResponse, error) {
	f.requested = append(f.requested, aadhaar)
	return f.otpResp, f.err
}

func (f *fakeAPI) VerifyOTP(_ context.Context, req portal.VerifyOTPRequest) (portal.VerifyOTPResponse, error) {
	f.verified = append(f.verified, req)
	return f.verify, f.err
}

func (f *fakeAPI) CreateUser(_ context.Context, req portal.CreateUserRequest) (string, error) {
	f.created = append(f.created, req)
	return "User created successfully!", f.err
}

func newService(t *testing.T, api *fakeAPI) (*Service, *session.Session) {
	t.Helper()
	sess, err := session.Open(&session.MemoryStore{})
	require.NoError(t, err)
	return &Service{API: api, Session: sess}, sess
}

func validationMsg(t *testing.T, err error) string {
	t.Helper()
	var verr *internaltypes.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Msg
}

func TestRequestOTPValidatesAadhaar(t *testing.T) {
	api := &fakeAPI{}
	svc, _ := newService(t, api)
	for _, bad := range []string{"", "12345678901", "1234567890123", "12345678901a"} {
		_, err := svc.RequestOTP(context.Background(), bad)
		assert.Equal(t, "Please enter a valid 12-digit Aadhaar number.", validationMsg(t, err))
	}
	assert.Empty(t, api.requested)
}

func TestRequestOTP(t *testing.T) {
	api := &fakeAPI{otpResp: portal.OTPResponse{Message: "OTP sent", IsNewUser: true}}
	svc, _ := newService(t, api)
	ch, err := svc.RequestOTP(context.Background(), " 123456789012 ")
	require.NoError(t, err)
	assert.Equal(t, OTPChallenge{Message: "OTP sent", IsNewUser: true}, ch)
	assert.Equal(t, []string{"123456789012"}, api.requested)
}

func TestVerifyExistingUser(t *testing.T) {
	api := &fakeAPI{verify: portal.VerifyOTPResponse{User: portal.PortalUser{AadhaarNumber: "123456789012", Name: "Asha"}}}
	svc, sess := newService(t, api)

	u, msg, err := svc.Verify(context.Background(), VerifyInput{
		AadhaarNumber: "123456789012", OTP: "123456", Name: "ignored", PhoneNumber: "9999999999",
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha", u.Name)
	assert.Equal(t, "Login successful!", msg)
	require.Len(t, api.verified, 1)
	assert.Empty(t, api.verified[0].Name)
	assert.Empty(t, api.verified[0].PhoneNumber)
	assert.True(t, sess.LoggedIn())

	require.NoError(t, svc.Logout())
	assert.False(t, sess.LoggedIn())
}

func TestVerifyLogKeepsPatientDetailsOut(t *testing.T) {
	api := &fakeAPI{verify: portal.VerifyOTPResponse{User: portal.PortalUser{AadhaarNumber: "123456789012", Name: "Asha Verma"}}}
	svc, _ := newService(t, api)
	var buf bytes.Buffer
	svc.Log = zerolog.New(&buf)

	_, _, err := svc.Verify(context.Background(), VerifyInput{AadhaarNumber: "123456789012", OTP: "123456"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "patient logged in")
	assert.NotContains(t, buf.String(), "Asha")
	assert.NotContains(t, buf.String(), "123456789012")
}

func TestVerifyNewUserSendsProfile(t *testing.T) {
	api := &fakeAPI{verify: portal.VerifyOTPResponse{User: portal.PortalUser{AadhaarNumber: "123456789012"}, Message: "Welcome"}}
	svc, sess := newService(t, api)

	_, _, err := svc.Verify(context.Background(), VerifyInput{AadhaarNumber: "123456789012", OTP: "123456", NewUser: true})
	assert.Equal(t, "Please enter your full name.", validationMsg(t, err))

	u, msg, err := svc.Verify(context.Background(), VerifyInput{
		AadhaarNumber: "123456789012", OTP: "123456", NewUser: true, Name: "Ravi", PhoneNumber: "9876543210",
	})
	require.NoError(t, err)
	assert.Equal(t, "Welcome", msg)
	assert.Equal(t, "Ravi", u.Name)
	require.Len(t, api.verified, 1)
	assert.Equal(t, "9876543210", api.verified[0].PhoneNumber)
	got, _ := sess.User()
	assert.Equal(t, "Ravi", got.Name)
}

func TestVerifyRejectsBadOTP(t *testing.T) {
	api := &fakeAPI{}
	svc, sess := newService(t, api)
	for _, otp := range []string{"", "12345", "1234567", "12a456"} {
		_, _, err := svc.Verify(context.Background(), VerifyInput{AadhaarNumber: "123456789012", OTP: otp})
		assert.Equal(t, "Please enter a valid 6-digit OTP.", validationMsg(t, err))
	}
	assert.Empty(t, api.verified)
	assert.False(t, sess.LoggedIn())
}

func TestVerifyServerErrorKeepsLoggedOut(t *testing.T) {
	api := &fakeAPI{err: &portal.APIError{Status: 401, Message: "Invalid OTP"}}
	svc, sess := newService(t, api)
	_, _, err := svc.Verify(context.Background(), VerifyInput{AadhaarNumber: "123456789012", OTP: "000000"})
	var aerr *portal.APIError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "Invalid OTP", aerr.Message)
	assert.False(t, sess.LoggedIn())
}

func TestCreateUserValidation(t *testing.T) {
	cases := []struct {
		req  portal.CreateUserRequest
		want string
	}{
		{portal.CreateUserRequest{Email: "a@b.c", Password: "secret"}, "All fields are required"},
		{portal.CreateUserRequest{Email: "admin", Password: "secret1", AdminKey: "k"}, "Please enter a valid email address"},
		{portal.CreateUserRequest{Email: "a@b.c", Password: "12345", AdminKey: "k"}, "Password must be at least 6 characters long"},
	}
	api := &fakeAPI{}
	svc, _ := newService(t, api)
	for _, tc := range cases {
		_, err := svc.CreateUser(context.Background(), tc.req)
		assert.Equal(t, tc.want, validationMsg(t, err))
	}
	assert.Empty(t, api.created)

	msg, err := svc.CreateUser(context.Background(), portal.CreateUserRequest{Email: "a@b.c", Password: "123456", AdminKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "User created successfully!", msg)
}
