// Package auth implements patient login by one-time passcode and the
// administrator account form.
package auth

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/example/op-booking/internal/internaltypes"
	"github.com/example/op-booking/internal/portal"
	"github.com/example/op-booking/internal/session"
)

var (
	aadhaarRe = regexp.MustCompile(`^\d{12}$`)
	otpRe     = regexp.MustCompile(`^\d{6}$`)
)

type API interface {
	RequestOTP(ctx context.Context, aadhaar string) (portal.OTPResponse, error)
	VerifyOTP(ctx context.Context, req portal.VerifyOTPRequest) (portal.VerifyOTPResponse, error)
	CreateUser(ctx context.Context, req portal.CreateUserRequest) (string, error)
}

// SessionWriter is the login/logout side of the session.
type SessionWriter interface {
	Login(session.User) error
	Logout() error
}

type Service struct {
	API     API
	Session SessionWriter
	Log     zerolog.Logger
}

type OTPChallenge struct {
	Message   string
	IsNewUser bool
}

type VerifyInput struct {
	AadhaarNumber string
	OTP           string
	// set from the challenge; name and phone are only sent for new users
	NewUser     bool
	Name        string
	PhoneNumber string
}

// ValidAadhaar reports whether s is a 12-digit Aadhaar number.
func ValidAadhaar(s string) bool { return aadhaarRe.MatchString(s) }

func (s *Service) RequestOTP(ctx context.Context, aadhaar string) (OTPChallenge, error) {
	aadhaar = strings.TrimSpace(aadhaar)
	if !ValidAadhaar(aadhaar) {
		return OTPChallenge{}, internaltypes.Invalid("Please enter a valid 12-digit Aadhaar number.")
	}
	resp, err := s.API.RequestOTP(ctx, aadhaar)
	if err != nil {
		return OTPChallenge{}, err
	}
	msg := resp.Message
	if msg == "" {
		msg = "OTP sent successfully."
	}
	return OTPChallenge{Message: msg, IsNewUser: resp.IsNewUser}, nil
}

// Verify checks the passcode and, on success, logs the returned user in.
func (s *Service) Verify(ctx context.Context, in VerifyInput) (session.User, string, error) {
	in.AadhaarNumber = strings.TrimSpace(in.AadhaarNumber)
	in.OTP = strings.TrimSpace(in.OTP)
	if !ValidAadhaar(in.AadhaarNumber) {
		return session.User{}, "", internaltypes.Invalid("Please enter a valid 12-digit Aadhaar number.")
	}
	if !otpRe.MatchString(in.OTP) {
		return session.User{}, "", internaltypes.Invalid("Please enter a valid 6-digit OTP.")
	}

	req := portal.VerifyOTPRequest{AadhaarNumber: in.AadhaarNumber, OTP: in.OTP}
	if in.NewUser {
		req.Name = strings.TrimSpace(in.Name)
		req.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
		if req.Name == "" {
			return session.User{}, "", internaltypes.Invalid("Please enter your full name.")
		}
	}
	resp, err := s.API.VerifyOTP(ctx, req)
	if err != nil {
		return session.User{}, "", err
	}

	u := session.User{Name: resp.User.Name, AadhaarNumber: resp.User.AadhaarNumber}
	if u.Name == "" {
		u.Name = req.Name
	}
	if err := s.Session.Login(u); err != nil {
		return session.User{}, "", err
	}
	s.Log.Info().Bool("new_user", in.NewUser).Msg("patient logged in")

	msg := resp.Message
	if msg == "" {
		msg = "Login successful!"
	}
	return u, msg, nil
}

func (s *Service) Logout() error {
	return s.Session.Logout()
}

// CreateUser registers an administrator account. The admin key is checked
// by the server.
func (s *Service) CreateUser(ctx context.Context, req portal.CreateUserRequest) (string, error) {
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" || req.AdminKey == "" {
		return "", internaltypes.Invalid("All fields are required")
	}
	if !strings.Contains(req.Email, "@") {
		return "", internaltypes.Invalid("Please enter a valid email address")
	}
	if len(req.Password) < 6 {
		return "", internaltypes.Invalid("Password must be at least 6 characters long")
	}
	return s.API.CreateUser(ctx, req)
}
