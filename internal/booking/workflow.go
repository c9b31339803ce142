// Package booking drives the three-step appointment workflow: pick a date
// and check availability, describe symptoms and pick a slot, then review and
// submit.
package booking

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/op-booking/internal/internaltypes"
	"github.com/example/op-booking/internal/opslip"
	"github.com/example/op-booking/internal/portal"
	"github.com/example/op-booking/internal/session"
)

// API is the part of the hospital API the workflow needs.
type API interface {
	Availability(ctx context.Context, date string) (portal.AvailabilityResponse, error)
	AnalyzeSymptoms(ctx context.Context, symptoms []string) (portal.AnalysisResponse, error)
	CreateAppointment(ctx context.Context, req portal.AppointmentRequest) (portal.Appointment, error)
	CreateHealthRecord(ctx context.Context, req portal.HealthRecordRequest) error
}

// SessionReader is read-only access to the logged-in patient.
type SessionReader interface {
	User() (session.User, bool)
}

type Option func(*Workflow)

// WithClock replaces time.Now. "Today" is taken in the clock's location.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(w *Workflow) { w.log = l }
}

func WithLetterhead(lh opslip.Letterhead) Option {
	return func(w *Workflow) { w.letterhead = lh }
}

// Workflow is safe for concurrent use. Network calls run without the lock
// held; every response is checked against the selection it was issued for
// before it is applied.
type Workflow struct {
	api        API
	sess       SessionReader
	log        zerolog.Logger
	now        func() time.Time
	letterhead opslip.Letterhead

	mu       sync.Mutex
	step     Step
	draft    Draft
	avail    Availability
	analysis *Analysis
	inflight int
	errMsg   string
	last     *Confirmation

	// bumped whenever the date or the symptom set is replaced
	dateGen    uint64
	symptomGen uint64

	mirrors sync.WaitGroup
}

func NewWorkflow(api API, sess SessionReader, opts ...Option) *Workflow {
	w := &Workflow{
		api:  api,
		sess: sess,
		log:  zerolog.Nop(),
		now:  time.Now,
	}
	for _, o := range opts {
		o(w)
	}
	w.draft = w.emptyDraft()
	return w
}

func (w *Workflow) today() time.Time {
	n := w.now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, n.Location())
}

func (w *Workflow) emptyDraft() Draft {
	return Draft{Date: w.today().Format(time.DateOnly)}
}

// begin marks a call in flight and clears the previous error. The returned
// func must be deferred.
func (w *Workflow) begin() func() {
	w.inflight++
	w.errMsg = ""
	return func() {
		w.mu.Lock()
		w.inflight--
		w.mu.Unlock()
	}
}

func (w *Workflow) fail(err error) error {
	w.errMsg = UserMessage(err)
	return err
}

// SetDate replaces the draft date. The availability result and the chosen
// time slot are always cleared; no query is made.
func (w *Workflow) SetDate(date string) error {
	date = strings.TrimSpace(date)
	d, err := time.ParseInLocation(time.DateOnly, date, w.now().Location())

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		return w.fail(internaltypes.Invalid("Please enter a date as YYYY-MM-DD."))
	}
	if d.Before(w.today()) {
		return w.fail(internaltypes.Invalid("date must be today or later"))
	}
	w.draft.Date = date
	w.draft.Time = ""
	w.avail = Availability{}
	w.dateGen++
	w.errMsg = ""
	return nil
}

// CheckAvailability queries the slots for the current draft date. On
// failure the result is stored as checked with no slots.
func (w *Workflow) CheckAvailability(ctx context.Context) (Availability, error) {
	w.mu.Lock()
	if w.draft.Date == "" {
		err := w.fail(internaltypes.Invalid("Please select a date."))
		w.mu.Unlock()
		return Availability{}, err
	}
	date, gen := w.draft.Date, w.dateGen
	done := w.begin()
	w.mu.Unlock()
	defer done()

	resp, err := w.api.Availability(ctx, date)

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.dateGen {
		w.log.Debug().Str("date", date).Msg("discarding stale availability")
		return Availability{}, ErrStale
	}
	if err != nil {
		w.avail = Availability{Checked: true}
		w.dropUnofferedTime()
		return Availability{}, w.fail(err)
	}
	w.avail = Availability{
		Checked: true,
		Slots:   append([]string(nil), resp.AvailableSlots...),
		Count:   resp.AvailableSlotCount,
	}
	w.dropUnofferedTime()
	return w.avail.clone(), nil
}

// dropUnofferedTime clears a chosen slot that the latest availability no
// longer lists.
func (w *Workflow) dropUnofferedTime() {
	if w.draft.Time != "" && !w.avail.Has(w.draft.Time) {
		w.draft.Time = ""
	}
}

// SetSymptoms replaces the symptom set, trimmed and de-duplicated in the
// order given. Department and doctor are always cleared.
func (w *Workflow) SetSymptoms(symptoms []string) {
	seen := make(map[string]struct{}, len(symptoms))
	list := make([]string, 0, len(symptoms))
	for _, s := range symptoms {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		list = append(list, s)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.SymptomList = list
	w.draft.Department = ""
	w.draft.Doctor = ""
	w.analysis = nil
	w.symptomGen++
	w.errMsg = ""
}

// AnalyzeSymptoms asks the hospital which department and doctor fit the
// current symptoms and copies the recommendation into the draft.
func (w *Workflow) AnalyzeSymptoms(ctx context.Context) (Analysis, error) {
	w.mu.Lock()
	if len(w.draft.SymptomList) == 0 {
		err := w.fail(internaltypes.Invalid("no symptoms selected"))
		w.mu.Unlock()
		return Analysis{}, err
	}
	symptoms, gen := append([]string(nil), w.draft.SymptomList...), w.symptomGen
	done := w.begin()
	w.mu.Unlock()
	defer done()

	resp, err := w.api.AnalyzeSymptoms(ctx, symptoms)

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.symptomGen {
		w.log.Debug().Strs("symptoms", symptoms).Msg("discarding stale analysis")
		return Analysis{}, ErrStale
	}
	if err != nil {
		w.analysis = nil
		return Analysis{}, w.fail(err)
	}
	if resp.Department == "" || resp.RecommendedDoctor == "" {
		w.analysis = nil
		return Analysis{}, w.fail(internaltypes.Invalid("malformed analysis response"))
	}
	w.analysis = analysisFrom(resp)
	w.draft.Department = resp.Department
	w.draft.Doctor = resp.RecommendedDoctor
	return *w.analysis, nil
}

// SelectTimeSlot sets the draft time. The slot must be one of those offered
// for the current date.
func (w *Workflow) SelectTimeSlot(slot string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.avail.Checked || !w.avail.Has(slot) {
		return w.fail(internaltypes.Invalid("Please choose one of the available time slots."))
	}
	w.draft.Time = slot
	w.errMsg = ""
	return nil
}

func (w *Workflow) SetNotes(notes string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Notes = strings.TrimSpace(notes)
}

func (w *Workflow) canAdvanceLocked() bool {
	switch w.step {
	case StepDate:
		return w.avail.Checked && w.avail.Count > 0
	case StepDetails:
		return w.draft.Doctor != "" && w.draft.Department != "" && w.draft.Time != ""
	}
	return false
}

func (w *Workflow) canSubmitLocked() bool {
	return w.inflight == 0 && w.draft.Complete()
}

func (w *Workflow) CanAdvance() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canAdvanceLocked()
}

func (w *Workflow) CanSubmit() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canSubmitLocked()
}

// Next moves one step forward when the current step is complete.
func (w *Workflow) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.canAdvanceLocked() {
		w.step++
		w.errMsg = ""
		return nil
	}
	switch w.step {
	case StepDate:
		return w.fail(internaltypes.Invalid("Please check availability for a date with open slots."))
	case StepDetails:
		return w.fail(internaltypes.Invalid("Please analyze your symptoms and choose a time slot."))
	}
	return w.fail(internaltypes.Invalid("Please submit or go back."))
}

// Back moves one step back. The draft is kept; only the error is cleared.
func (w *Workflow) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > StepDate {
		w.step--
	}
	w.errMsg = ""
}

// Submit books the draft for the logged-in patient. After the appointment
// is stored the health record mirror is written in the background; its
// failure is logged and does not affect the result. The workflow is then
// reset for the next booking.
func (w *Workflow) Submit(ctx context.Context) (Confirmation, error) {
	w.mu.Lock()
	if w.inflight > 0 {
		err := w.fail(internaltypes.Invalid("Please wait for the current request to finish."))
		w.mu.Unlock()
		return Confirmation{}, err
	}
	if !w.draft.Complete() {
		err := w.fail(internaltypes.Invalid("Please complete the date, time, symptoms, department and doctor before submitting."))
		w.mu.Unlock()
		return Confirmation{}, err
	}
	user, ok := w.sess.User()
	if !ok {
		err := w.fail(internaltypes.ErrNotLoggedIn)
		w.mu.Unlock()
		return Confirmation{}, err
	}
	draft := w.draft.clone()
	done := w.begin()
	w.mu.Unlock()
	defer done()

	appt, err := w.api.CreateAppointment(ctx, portal.AppointmentRequest{
		UserAadhaar: user.AadhaarNumber,
		PatientName: user.Name,
		Date:        draft.Date,
		Time:        draft.Time,
		Department:  draft.Department,
		Doctor:      draft.Doctor,
		SymptomList: draft.SymptomList,
		Notes:       draft.Notes,
	})
	if err != nil {
		w.mu.Lock()
		defer w.mu.Unlock()
		return Confirmation{}, w.fail(err)
	}
	w.log.Info().Str("appointment_id", appt.ID).Str("date", draft.Date).Str("time", draft.Time).Msg("appointment booked")

	w.mirror(context.WithoutCancel(ctx), portal.HealthRecordRequest{
		Aadhaar:    user.AadhaarNumber,
		Symptoms:   strings.Join(draft.SymptomList, ", "),
		Department: draft.Department,
		SlipDate:   draft.Date,
		SlotTime:   draft.Time,
	})

	conf := Confirmation{
		Appointment: appt,
		Slip:        opslip.FromAppointment(w.letterhead, appt, user.Name, user.AadhaarNumber, w.now()),
	}
	if conf.Slip.Date == "" {
		conf.Slip.Date = draft.Date
	}
	if conf.Slip.Time == "" {
		conf.Slip.Time = draft.Time
	}
	if conf.Slip.Department == "" {
		conf.Slip.Department = draft.Department
	}
	if conf.Slip.Doctor == "" {
		conf.Slip.Doctor = draft.Doctor
	}
	if len(conf.Slip.Symptoms) == 0 {
		conf.Slip.Symptoms = append([]string(nil), draft.SymptomList...)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.reset()
	w.last = &conf
	return conf, nil
}

func (w *Workflow) mirror(ctx context.Context, rec portal.HealthRecordRequest) {
	w.mirrors.Add(1)
	go func() {
		defer w.mirrors.Done()
		if err := w.api.CreateHealthRecord(ctx, rec); err != nil {
			w.log.Warn().Err(err).Str("date", rec.SlipDate).Msg("health record not saved, appointment was booked")
		}
	}()
}

// reset empties the draft and returns to the first step. Pending queries
// become stale.
func (w *Workflow) reset() {
	w.step = StepDate
	w.draft = w.emptyDraft()
	w.avail = Availability{}
	w.analysis = nil
	w.errMsg = ""
	w.dateGen++
	w.symptomGen++
}

// Wait blocks until background health record writes have finished.
func (w *Workflow) Wait() {
	w.mirrors.Wait()
}

// Loading reports whether any call is in flight.
func (w *Workflow) Loading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inflight > 0
}

func (w *Workflow) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Workflow) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft.clone()
}

func (w *Workflow) Availability() Availability {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.avail.clone()
}

// LastConfirmation is the most recent successful booking, kept for reprints.
func (w *Workflow) LastConfirmation() (Confirmation, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.last == nil {
		return Confirmation{}, false
	}
	return *w.last, true
}

// DismissConfirmation forgets the last booking once it has been shown.
func (w *Workflow) DismissConfirmation() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = nil
}

func (w *Workflow) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := State{
		Step:         w.step,
		Draft:        w.draft.clone(),
		Availability: w.avail.clone(),
		Loading:      w.inflight > 0,
		Error:        w.errMsg,
		CanAdvance:   w.canAdvanceLocked(),
		CanSubmit:    w.canSubmitLocked(),
	}
	if w.analysis != nil {
		a := *w.analysis
		st.Analysis = &a
	}
	if w.last != nil {
		c := *w.last
		st.Last = &c
	}
	return st
}
