package portal

import "encoding/json"

type AvailabilityResponse struct {
	AvailableSlots     []string `json:"availableSlots"`
	AvailableSlotCount int      `json:"availableSlotCount"`
}

type AnalysisDetails struct {
	MatchedSymptoms []string `json:"matchedSymptoms"`
	MatchedCount    int      `json:"matchedCount"`
	TotalSymptoms   int      `json:"totalSymptoms"`
}

type AnalysisResponse struct {
	Department        string             `json:"department"`
	RecommendedDoctor string             `json:"recommendedDoctor"`
	Confidence        float64            `json:"confidence"`
	ConfidenceScores  map[string]float64 `json:"confidenceScores"`
	AnalysisDetails   *AnalysisDetails   `json:"analysisDetails,omitempty"`
}

type AppointmentRequest struct {
	UserAadhaar string   `json:"userAadhaar"`
	PatientName string   `json:"patientName"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Department  string   `json:"department"`
	Doctor      string   `json:"doctor"`
	SymptomList []string `json:"symptomList"`
	Notes       string   `json:"notes"`
}

// Appointment is the stored booking as the server returns it.
type Appointment struct {
	ID          string   `json:"_id"`
	UserAadhaar string   `json:"userAadhaar"`
	PatientName string   `json:"patientName"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Department  string   `json:"department"`
	Doctor      string   `json:"doctor"`
	SymptomList []string `json:"symptomList"`
	Notes       string   `json:"notes"`
}

// UnmarshalJSON accepts the identifier as either "_id" or "id".
func (a *Appointment) UnmarshalJSON(b []byte) error {
	type plain Appointment
	var aux struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*a = Appointment(aux.plain)
	if a.ID == "" {
		a.ID = aux.AltID
	}
	return nil
}

type HealthRecordRequest struct {
	Aadhaar    string `json:"aadhaar"`
	Symptoms   string `json:"symptoms"`
	Department string `json:"department"`
	SlipDate   string `json:"slipDate"`
	SlotTime   string `json:"slotTime"`
}

// Acknowledgement values tracked by the server.
const (
	AckPending   = "Pending"
	AckConfirmed = "Confirmed"
	AckCancelled = "Cancelled"
)

// Acknowledgement actions accepted by the server.
const (
	ActionConfirm = "confirm"
	ActionCancel  = "cancel"
)

type HealthRecord struct {
	ID              string `json:"_id"`
	Aadhaar         string `json:"aadhaar"`
	Symptoms        string `json:"symptoms"`
	Department      string `json:"department"`
	SlipDate        string `json:"slipDate"`
	SlotTime        string `json:"slotTime"`
	Acknowledgement string `json:"acknowledgement"`
	UpdatedAt       string `json:"updatedAt,omitempty"`
}

type EmergencyRequest struct {
	PatientName string `json:"patientName"`
	Doctor      string `json:"doctor"`
}

type EmergencyAppointment struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Time string `json:"time"`
}

type EmergencyResponse struct {
	Appointment *EmergencyAppointment `json:"appointment"`
	Message     string                `json:"message,omitempty"`
}

type OTPResponse struct {
	Message   string `json:"message"`
	IsNewUser bool   `json:"isNewUser"`
}

type VerifyOTPRequest struct {
	AadhaarNumber string `json:"aadhaarNumber"`
	OTP           string `json:"otp"`
	Name          string `json:"name,omitempty"`
	PhoneNumber   string `json:"phoneNumber,omitempty"`
}

type PortalUser struct {
	AadhaarNumber string `json:"aadhaarNumber"`
	Name          string `json:"name"`
}

type VerifyOTPResponse struct {
	User    PortalUser `json:"user"`
	Message string     `json:"message"`
}

type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	AdminKey string `json:"adminKey"`
}
