package portal

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Availability lists bookable slots for a YYYY-MM-DD date.
func (c *Client) Availability(ctx context.Context, date string) (AvailabilityResponse, error) {
	cl := call{
		op:      "availability",
		method:  http.MethodGet,
		path:    "/api/availability",
		query:   url.Values{"date": {date}},
		failMsg: "Failed to fetch availability.",
	}
	res, err := c.do(ctx, cl)
	if err != nil {
		return AvailabilityResponse{}, err
	}
	var out AvailabilityResponse
	if err := c.decode(cl, res, &out); err != nil {
		return AvailabilityResponse{}, err
	}
	return out, nil
}

func (c *Client) AnalyzeSymptoms(ctx context.Context, symptoms []string) (AnalysisResponse, error) {
	cl := call{
		op:        "analyze_symptoms",
		method:    http.MethodPost,
		path:      "/api/symptoms/analyze",
		body:      map[string][]string{"symptoms": symptoms},
		failMsg:   "Failed to analyze symptoms.",
		serverMsg: true,
	}
	res, err := c.do(ctx, cl)
	if err != nil {
		return AnalysisResponse{}, err
	}
	var out AnalysisResponse
	if err := c.decode(cl, res, &out); err != nil {
		return AnalysisResponse{}, err
	}
	return out, nil
}

func (c *Client) CreateAppointment(ctx context.Context, req AppointmentRequest) (Appointment, error) {
	if req.SymptomList == nil {
		req.SymptomList = []string{}
	}
	cl := call{
		op:        "create_appointment",
		method:    http.MethodPost,
		path:      "/api/appointments",
		body:      req,
		failMsg:   "Failed to book appointment.",
		serverMsg: true,
	}
	res, err := c.do(ctx, cl)
	if err != nil {
		return Appointment{}, err
	}
	var out Appointment
	if err := c.decode(cl, res, &out); err != nil {
		return Appointment{}, err
	}
	return out, nil
}

// CreateHealthRecord writes the health-record summary of a booking. The
// response body is ignored.
func (c *Client) CreateHealthRecord(ctx context.Context, req HealthRecordRequest) error {
	_, err := c.do(ctx, call{
		op:      "create_health_record",
		method:  http.MethodPost,
		path:    "/api/health-records",
		body:    req,
		failMsg: "Failed to save health record.",
	})
	return err
}

func (c *Client) BookEmergency(ctx context.Context, req EmergencyRequest) (EmergencyResponse, error) {
	cl := call{
		op:        "book_emergency",
		method:    http.MethodPost,
		path:      "/api/appointments/emergency",
		body:      req,
		failMsg:   "Failed to book emergency appointment",
		serverMsg: true,
		accept:    true,
	}
	res, err := c.do(ctx, cl)
	if err != nil {
		return EmergencyResponse{}, err
	}
	var out EmergencyResponse
	if err := c.decode(cl, res, &out); err != nil {
		return EmergencyResponse{}, err
	}
	if out.Appointment == nil {
		return EmergencyResponse{}, &APIError{Operation: cl.op, Status: res.status, Message: "Invalid response format from server"}
	}
	return out, nil
}

func (c *Client) RequestOTP(ctx context.Context, aadhaar string) (OTPResponse, error) {
	cl := call{
		op:        "request_otp",
		method:    http.MethodPost,
		path:      "/api/request-otp",
		body:      map[string]string{"aadhaarNumber": aadhaar},
		failMsg:   "Failed to send OTP.",
		serverMsg: true,
	}
	res, err := c.do(ctx, cl)
	if err != nil {
		return OTPResponse{}, err
	}
	var out OTPResponse
	if err := c.decode(cl, res, &out); err != nil {
		return OTPResponse{}, err
	}
	return out, nil
}

func (c *Client) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (VerifyOTPResponse, error) {
	cl := call{
		op:        "verify_otp",
		method:    http.MethodPost,
		path:      "/api/verify-otp",
		body:      req,
		failMsg:   "OTP verification failed.",
		serverMsg: true,
	}
	res, err := c.do(ctx, cl)
	if err != nil {
		return VerifyOTPResponse{}, err
	}
	var out VerifyOTPResponse
	if err := c.decode(cl, res, &out); err != nil {
		return VerifyOTPResponse{}, err
	}
	if out.User.AadhaarNumber == "" {
		return VerifyOTPResponse{}, &APIError{Operation: cl.op, Status: res.status, Message: cl.failMsg}
	}
	return out, nil
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// HealthRecords lists the previous bookings stored for a patient.
func (c *Client) HealthRecords(ctx context.Context, aadhaar string) ([]HealthRecord, error) {
	cl := call{
		op:      "health_records",
		method:  http.MethodGet,
		path:    "/api/health-records/" + url.PathEscape(aadhaar),
		failMsg: "Failed to fetch bookings",
	}
	res, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}
	var out envelope[[]HealthRecord]
	if err := c.decode(cl, res, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		msg := strings.TrimSpace(out.Message)
		if msg == "" {
			msg = "No bookings found"
		}
		return nil, &APIError{Operation: cl.op, Status: res.status, Message: msg}
	}
	return out.Data, nil
}

// Acknowledge records the patient's confirm or cancel answer for a booking.
func (c *Client) Acknowledge(ctx context.Context, id, action string) (HealthRecord, error) {
	cl := call{
		op:        "acknowledge",
		method:    http.MethodPatch,
		path:      "/api/health-records/acknowledge/" + url.PathEscape(id),
		body:      map[string]string{"action": action},
		failMsg:   "Failed to update booking",
		serverMsg: true,
	}
	res, err := c.do(ctx, cl)
	if err != nil {
		return HealthRecord{}, err
	}
	var out envelope[HealthRecord]
	if err := c.decode(cl, res, &out); err != nil {
		return HealthRecord{}, err
	}
	if !out.Success {
		msg := strings.TrimSpace(out.Message)
		if msg == "" {
			msg = cl.failMsg
		}
		return HealthRecord{}, &APIError{Operation: cl.op, Status: res.status, Message: msg}
	}
	return out.Data, nil
}

// Appointments lists the appointments booked under a national ID.
func (c *Client) Appointments(ctx context.Context, aadhaar string) ([]Appointment, error) {
	cl := call{
		op:      "appointments",
		method:  http.MethodGet,
		path:    "/api/appointments/" + url.PathEscape(aadhaar),
		failMsg: "Failed to fetch appointments",
	}
	res, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}
	var out []Appointment
	if err := c.decode(cl, res, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateUser creates a staff account. Returns the server's confirmation text.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (string, error) {
	cl := call{
		op:        "create_user",
		method:    http.MethodPost,
		path:      "/api/admin/create-user",
		body:      req,
		failMsg:   "Failed to create user",
		serverMsg: true,
	}
	res, err := c.do(ctx, cl)
	if err != nil {
		return "", err
	}
	if m := serverMessage(res.body); m != "" {
		return m, nil
	}
	return "User created successfully!", nil
}
