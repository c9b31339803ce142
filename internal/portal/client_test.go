package portal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/op-booking/internal/metrics"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return New(ts.URL + "/")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestAvailability(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/availability", r.URL.Path)
		assert.Equal(t, "2025-03-10", r.URL.Query().Get("date"))
		writeJSON(w, http.StatusOK, map[string]any{"availableSlots": []string{"09:00", "09:30"}, "availableSlotCount": 2})
	})

	got, err := c.Availability(context.Background(), "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30"}, got.AvailableSlots)
	assert.Equal(t, 2, got.AvailableSlotCount)
}

func TestAvailabilityFailureUsesFixedMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "db down"})
	})

	_, err := c.Availability(context.Background(), "2025-03-10")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "Failed to fetch availability.", apiErr.Error())
}

func TestAnalyzeSymptoms(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/symptoms/analyze", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"fever", "cough"}, body["symptoms"])
		writeJSON(w, http.StatusOK, map[string]any{
			"department":        "General Medicine",
			"recommendedDoctor": "Dr. X",
			"confidence":        80,
			"confidenceScores":  map[string]int{"General Medicine": 80, "Cardiology": 10},
			"analysisDetails":   map[string]any{"matchedSymptoms": []string{"fever", "cough"}, "matchedCount": 2, "totalSymptoms": 2},
		})
	})

	got, err := c.AnalyzeSymptoms(context.Background(), []string{"fever", "cough"})
	require.NoError(t, err)
	assert.Equal(t, "General Medicine", got.Department)
	assert.Equal(t, "Dr. X", got.RecommendedDoctor)
	assert.InDelta(t, 80, got.Confidence, 0.001)
	assert.InDelta(t, 10, got.ConfidenceScores["Cardiology"], 0.001)
	require.NotNil(t, got.AnalysisDetails)
	assert.Equal(t, 2, got.AnalysisDetails.MatchedCount)
}

func TestAnalyzeSymptomsServerMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Unknown symptom"})
	})
	_, err := c.AnalyzeSymptoms(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Equal(t, "Unknown symptom", err.Error())
}

func TestCreateAppointmentAcceptsEitherID(t *testing.T) {
	for _, key := range []string{"_id", "id"} {
		t.Run(key, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				var req AppointmentRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "123412341234", req.UserAadhaar)
				assert.Equal(t, []string{"fever"}, req.SymptomList)
				writeJSON(w, http.StatusCreated, map[string]any{key: "apt-1", "date": req.Date, "doctor": req.Doctor})
			})
			got, err := c.CreateAppointment(context.Background(), AppointmentRequest{
				UserAadhaar: "123412341234", PatientName: "Asha", Date: "2025-03-10", Time: "09:00",
				Department: "General Medicine", Doctor: "Dr. X", SymptomList: []string{"fever"},
			})
			require.NoError(t, err)
			assert.Equal(t, "apt-1", got.ID)
			assert.Equal(t, "Dr. X", got.Doctor)
		})
	}
}

func TestCreateAppointmentDefaultMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	_, err := c.CreateAppointment(context.Background(), AppointmentRequest{})
	require.Error(t, err)
	assert.Equal(t, "Failed to book appointment.", err.Error())
}

func TestBookEmergency(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		var req EmergencyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Emergency Department", req.Doctor)
		writeJSON(w, http.StatusOK, map[string]any{"appointment": map[string]string{"id": "EMG-1", "date": "2025-03-11", "time": "08:00"}})
	})
	got, err := c.BookEmergency(context.Background(), EmergencyRequest{PatientName: "Asha", Doctor: "Emergency Department"})
	require.NoError(t, err)
	assert.Equal(t, "EMG-1", got.Appointment.ID)
}

func TestBookEmergencyRejectsNonJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>proxy error</html>"))
	})
	_, err := c.BookEmergency(context.Background(), EmergencyRequest{})
	require.Error(t, err)
	assert.Equal(t, "Received an invalid response from the server", err.Error())
}

func TestBookEmergencyMissingAppointment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	_, err := c.BookEmergency(context.Background(), EmergencyRequest{})
	require.Error(t, err)
	assert.Equal(t, "Invalid response format from server", err.Error())
}

func TestOTPFlow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/request-otp":
			writeJSON(w, http.StatusOK, map[string]any{"message": "OTP sent", "isNewUser": true})
		case "/api/verify-otp":
			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "Asha", req["name"])
			writeJSON(w, http.StatusOK, map[string]any{"message": "Welcome", "user": map[string]string{"aadhaarNumber": req["aadhaarNumber"], "name": req["name"]}})
		default:
			http.NotFound(w, r)
		}
	})

	otp, err := c.RequestOTP(context.Background(), "123412341234")
	require.NoError(t, err)
	assert.True(t, otp.IsNewUser)

	res, err := c.VerifyOTP(context.Background(), VerifyOTPRequest{AadhaarNumber: "123412341234", OTP: "123456", Name: "Asha"})
	require.NoError(t, err)
	assert.Equal(t, "Asha", res.User.Name)
}

func TestVerifyOTPOmitsEmptyProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, hasName := req["name"]
		assert.False(t, hasName)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid OTP"})
	})
	_, err := c.VerifyOTP(context.Background(), VerifyOTPRequest{AadhaarNumber: "123412341234", OTP: "000000"})
	require.Error(t, err)
	assert.Equal(t, "Invalid OTP", err.Error())
}

func TestHealthRecords(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health-records/123412341234", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []map[string]string{
			{"_id": "r1", "slipDate": "2025-03-10", "slotTime": "09:00", "acknowledgement": "Pending"},
		}})
	})
	got, err := c.HealthRecords(context.Background(), "123412341234")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)
	assert.Equal(t, AckPending, got[0].Acknowledgement)
}

func TestHealthRecordsUnsuccessful(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false})
	})
	_, err := c.HealthRecords(context.Background(), "123412341234")
	require.Error(t, err)
	assert.Equal(t, "No bookings found", err.Error())
}

func TestAcknowledge(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/health-records/acknowledge/r1", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["action"] == ActionCancel {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Too late to cancel"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]string{"_id": "r1", "acknowledgement": AckConfirmed}})
	})

	rec, err := c.Acknowledge(context.Background(), "r1", ActionConfirm)
	require.NoError(t, err)
	assert.Equal(t, AckConfirmed, rec.Acknowledgement)

	_, err = c.Acknowledge(context.Background(), "r1", ActionCancel)
	require.Error(t, err)
	assert.Equal(t, "Too late to cancel", err.Error())
}

func TestTransportErrorIsAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	_, err := New(url).Appointments(context.Background(), "123412341234")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.Status)
	assert.Equal(t, "Failed to fetch appointments", apiErr.Message)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestMalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{not json"))
	})
	_, err := c.Availability(context.Background(), "2025-03-10")
	require.Error(t, err)
	assert.Equal(t, "Failed to fetch availability.", err.Error())
}

func TestCreateUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req CreateUserRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.AdminKey != "secret" {
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "Invalid admin key"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{})
	})

	msg, err := c.CreateUser(context.Background(), CreateUserRequest{Email: "a@b.c", Password: "secret1", AdminKey: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "User created successfully!", msg)

	_, err = c.CreateUser(context.Background(), CreateUserRequest{Email: "a@b.c", Password: "secret1", AdminKey: "nope"})
	require.Error(t, err)
	assert.Equal(t, "Invalid admin key", err.Error())
}

func TestMetricsObserved(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPortalMetrics(reg)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"availableSlots": []string{}, "availableSlotCount": 0})
	}))
	defer ts.Close()

	c := New(ts.URL, WithMetrics(m))
	_, err := c.Availability(context.Background(), "2025-03-10")
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
