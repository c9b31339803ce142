package booking

import (
	"github.com/example/op-booking/internal/internaltypes"
	"github.com/example/op-booking/internal/opslip"
	"github.com/example/op-booking/internal/portal"
)

type Step int

const (
	StepDate Step = iota
	StepDetails
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepDate:
		return "date"
	case StepDetails:
		return "details"
	case StepReview:
		return "review"
	}
	return "unknown"
}

type ValidationError = internaltypes.ValidationError

// Draft is the appointment being filled in.
type Draft struct {
	Date        string // YYYY-MM-DD
	Time        string
	Department  string
	Doctor      string
	SymptomList []string
	Notes       string
}

// Complete reports whether the draft can be submitted.
func (d Draft) Complete() bool {
	return d.Date != "" && d.Time != "" && d.Department != "" && d.Doctor != "" && len(d.SymptomList) > 0
}

func (d Draft) clone() Draft {
	d.SymptomList = append([]string(nil), d.SymptomList...)
	return d
}

// Availability is the slot list for the draft's current date.
type Availability struct {
	Checked bool
	Slots   []string
	Count   int
}

func (a Availability) clone() Availability {
	a.Slots = append([]string(nil), a.Slots...)
	return a
}

// Has reports whether slot was offered by the last query.
func (a Availability) Has(slot string) bool {
	for _, s := range a.Slots {
		if s == slot {
			return true
		}
	}
	return false
}

// Analysis is the last symptom analysis for the draft's current symptoms.
type Analysis struct {
	Department        string
	RecommendedDoctor string
	Confidence        float64
	ConfidenceScores  map[string]float64
	MatchedSymptoms   []string
	MatchedCount      int
	TotalSymptoms     int
}

func analysisFrom(r portal.AnalysisResponse) *Analysis {
	a := &Analysis{
		Department:        r.Department,
		RecommendedDoctor: r.RecommendedDoctor,
		Confidence:        r.Confidence,
		ConfidenceScores:  make(map[string]float64, len(r.ConfidenceScores)),
	}
	for k, v := range r.ConfidenceScores {
		a.ConfidenceScores[k] = v
	}
	if d := r.AnalysisDetails; d != nil {
		a.MatchedSymptoms = append([]string(nil), d.MatchedSymptoms...)
		a.MatchedCount = d.MatchedCount
		a.TotalSymptoms = d.TotalSymptoms
	}
	return a
}

// Confirmation is what a successful submit hands back: the stored
// appointment and the slip to print.
type Confirmation struct {
	Appointment portal.Appointment
	Slip        opslip.Slip
}

// State is a point-in-time copy of the workflow for rendering.
type State struct {
	Step         Step
	Draft        Draft
	Availability Availability
	Analysis     *Analysis
	Loading      bool
	Error        string
	CanAdvance   bool
	CanSubmit    bool
	Last         *Confirmation
}

// Symptoms is the catalogue offered for selection.
var Symptoms = []string{
	"fever", "cough", "headache", "nausea", "fatigue", "sore throat", "vomiting",
	"diarrhea", "cold", "flu symptoms", "abdominal pain", "weight loss", "weakness",
	"chest pain", "heart palpitations", "shortness of breath", "dizziness",
	"fainting", "swelling in legs", "high blood pressure", "irregular heartbeat",
	"joint pain", "back pain", "fracture", "swelling in joints", "stiffness",
	"difficulty walking", "bone pain", "muscle weakness", "neck pain", "shoulder pain",
}
