// Package web serves the patient portal as server-rendered pages.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/example/op-booking/internal/auth"
	"github.com/example/op-booking/internal/booking"
	"github.com/example/op-booking/internal/emergency"
	"github.com/example/op-booking/internal/opslip"
	"github.com/example/op-booking/internal/portal"
	"github.com/example/op-booking/internal/records"
	"github.com/example/op-booking/internal/session"
)

//go:embed templates/*.html
var fs embed.FS

const browserTTL = 2 * time.Hour

// API is every hospital call the portal makes.
type API interface {
	booking.API
	auth.API
	records.API
	emergency.API
	Appointments(ctx context.Context, aadhaar string) ([]portal.Appointment, error)
}

type Server struct {
	API        API
	Codec      *session.CookieCodec
	Letterhead opslip.Letterhead
	Log        zerolog.Logger
	// served at /metrics when set
	Metrics http.Handler
	// page auto refresh for previous bookings
	RecordsRefresh time.Duration
	Now            func() time.Time

	pages    map[string]*template.Template
	browsers *registry
}

type tmplData struct {
	Title string
	User  *session.User
	Flash string
	Error string

	Hospital opslip.Letterhead

	// login
	Aadhaar   string
	OTPSent   bool
	IsNewUser bool

	// booking
	Book     booking.State
	Symptoms []string
	Today    string

	Slip         *opslip.Slip
	Bookings     []bookingRow
	Appointments []portal.Appointment
	Refresh      int
}

type bookingRow struct {
	records.Entry
	Status string
	CanAck bool
}

var funcs = template.FuncMap{
	"join": strings.Join,
	"has": func(list []string, v string) bool {
		for _, s := range list {
			if s == v {
				return true
			}
		}
		return false
	},
	"pct": func(f float64) string { return fmt.Sprintf("%.0f%%", f) },
}

func (s *Server) init() error {
	if s.Now == nil {
		s.Now = time.Now
	}
	if s.RecordsRefresh <= 0 {
		s.RecordsRefresh = 30 * time.Second
	}
	s.pages = map[string]*template.Template{}
	for _, p := range []string{"login", "dashboard", "book", "emergency", "bookings", "appointments", "admin"} {
		t, err := template.New(p).Funcs(funcs).ParseFS(fs, "templates/base.html", "templates/"+p+".html")
		if err != nil {
			return fmt.Errorf("parse %s template: %w", p, err)
		}
		s.pages[p] = t
	}
	s.browsers = newRegistry(browserTTL, s.Now, func(b *browser) *booking.Workflow {
		return booking.NewWorkflow(s.API, b,
			booking.WithClock(s.Now),
			booking.WithLogger(s.Log),
			booking.WithLetterhead(s.Letterhead),
		)
	})
	return nil
}

func (s *Server) Routes() (http.Handler, error) {
	if err := s.init(); err != nil {
		return nil, err
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.Log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.withBrowser)
		r.Get("/login", s.handleLoginPage)
		r.Post("/login/otp", s.handleRequestOTP)
		r.Post("/login/verify", s.handleVerifyOTP)
		r.Post("/logout", s.handleLogout)
		r.Get("/admin/create-user", s.handleAdminPage)
		r.Post("/admin/create-user", s.handleAdminCreate)

		r.Group(func(r chi.Router) {
			r.Use(s.requireLogin)
			r.Get("/", s.handleDashboard)
			r.Get("/book", s.handleBookPage)
			r.Post("/book", s.handleBookAction)
			r.Get("/slips/{id}.pdf", s.handleSlipPDF)
			r.Get("/emergency", s.handleEmergencyPage)
			r.Post("/emergency", s.handleEmergencyBook)
			r.Get("/bookings", s.handleBookings)
			r.Post("/bookings/{id}/{action}", s.handleAcknowledge)
			r.Get("/appointments", s.handleAppointments)
		})
	})
	return r, nil
}

func (s *Server) page(r *http.Request, title string) tmplData {
	d := tmplData{Title: title, Hospital: s.Letterhead}
	if b := browserFrom(r.Context()); b != nil {
		if u, ok := b.User(); ok {
			d.User = &u
		}
	}
	return d
}

func (s *Server) render(w http.ResponseWriter, name string, data tmplData) {
	t, ok := s.pages[name]
	if !ok {
		http.Error(w, "unknown page "+name, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		s.Log.Error().Err(err).Str("page", name).Msg("render failed")
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func (s *Server) authService(w http.ResponseWriter, r *http.Request) (*auth.Service, error) {
	sess, err := session.Open(s.Codec.Store(w, r))
	if err != nil {
		return nil, err
	}
	return &auth.Service{API: s.API, Session: sess, Log: s.Log}, nil
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := browserFrom(r.Context()).User(); ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	s.render(w, "login", s.page(r, "Login"))
}

func (s *Server) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "Login")
	data.Aadhaar = strings.TrimSpace(r.FormValue("aadhaar"))
	svc, err := s.authService(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	ch, err := svc.RequestOTP(r.Context(), data.Aadhaar)
	if err != nil {
		data.Error = booking.UserMessage(err)
		s.render(w, "login", data)
		return
	}
	data.OTPSent = true
	data.IsNewUser = ch.IsNewUser
	data.Flash = ch.Message
	s.render(w, "login", data)
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "Login")
	data.Aadhaar = strings.TrimSpace(r.FormValue("aadhaar"))
	data.OTPSent = true
	data.IsNewUser = r.FormValue("new_user") == "1"
	svc, err := s.authService(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	u, _, err := svc.Verify(r.Context(), auth.VerifyInput{
		AadhaarNumber: data.Aadhaar,
		OTP:           r.FormValue("otp"),
		NewUser:       data.IsNewUser,
		Name:          r.FormValue("name"),
		PhoneNumber:   r.FormValue("phone"),
	})
	if err != nil {
		data.Error = booking.UserMessage(err)
		s.render(w, "login", data)
		return
	}
	browserFrom(r.Context()).setUser(u, true)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	svc, err := s.authService(w, r)
	if err == nil {
		err = svc.Logout()
	}
	if err != nil {
		s.Log.Warn().Err(err).Msg("logout")
	}
	s.browsers.drop(s.Codec.BrowserID(w, r))
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "Dashboard")
	st := browserFrom(r.Context()).wf.Snapshot()
	data.Book = st
	s.render(w, "dashboard", data)
}

func (s *Server) bookData(r *http.Request, wf *booking.Workflow) tmplData {
	data := s.page(r, "Book an appointment")
	data.Book = wf.Snapshot()
	data.Error = data.Book.Error
	data.Symptoms = booking.Symptoms
	data.Today = s.Now().Format(time.DateOnly)
	if data.Book.Last != nil {
		data.Slip = &data.Book.Last.Slip
	}
	return data
}

func (s *Server) handleBookPage(w http.ResponseWriter, r *http.Request) {
	wf := browserFrom(r.Context()).wf
	s.render(w, "book", s.bookData(r, wf))
}

func (s *Server) handleBookAction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	wf := browserFrom(r.Context()).wf
	ctx := r.Context()

	var err error
	switch r.FormValue("action") {
	case "date":
		err = wf.SetDate(r.FormValue("date"))
	case "check":
		_, err = wf.CheckAvailability(ctx)
	case "symptoms":
		wf.SetSymptoms(r.Form["symptom"])
		wf.SetNotes(r.FormValue("notes"))
	case "analyze":
		_, err = wf.AnalyzeSymptoms(ctx)
	case "time":
		err = wf.SelectTimeSlot(r.FormValue("slot"))
	case "next":
		err = wf.Next()
	case "back":
		wf.Back()
	case "submit":
		if wf.Step() != booking.StepReview {
			data := s.bookData(r, wf)
			data.Error = "Please review the appointment before confirming."
			s.render(w, "book", data)
			return
		}
		if _, err = wf.Submit(ctx); err == nil {
			http.Redirect(w, r, "/book", http.StatusSeeOther)
			return
		}
	case "dismiss":
		wf.DismissConfirmation()
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}
	if err != nil && !errors.Is(err, booking.ErrStale) {
		s.Log.Debug().Err(err).Str("action", r.FormValue("action")).Msg("booking step failed")
	}
	s.render(w, "book", s.bookData(r, wf))
}

func (s *Server) handleSlipPDF(w http.ResponseWriter, r *http.Request) {
	b := browserFrom(r.Context())
	id := chi.URLParam(r, "id")

	var slip opslip.Slip
	found := false
	if c, ok := b.wf.LastConfirmation(); ok && c.Slip.AppointmentID == id {
		slip, found = c.Slip, true
	} else if e, ok := b.lastEmergency(); ok && e.AppointmentID == id {
		slip, found = e, true
	}
	if !found {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+slip.FileName()+`"`)
	if err := slip.WritePDF(w); err != nil {
		s.Log.Error().Err(err).Str("appointment_id", id).Msg("write slip pdf")
	}
}

func (s *Server) handleEmergencyPage(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "Emergency")
	if e, ok := browserFrom(r.Context()).lastEmergency(); ok {
		data.Slip = &e
	}
	s.render(w, "emergency", data)
}

func (s *Server) handleEmergencyBook(w http.ResponseWriter, r *http.Request) {
	b := browserFrom(r.Context())
	data := s.page(r, "Emergency")
	booker := &emergency.Booker{API: s.API, Session: b, Letterhead: s.Letterhead, Log: s.Log, Now: s.Now}
	slip, err := booker.Book(r.Context(), r.FormValue("confirm") == "1")
	if err != nil {
		data.Error = booking.UserMessage(err)
		s.render(w, "emergency", data)
		return
	}
	b.setEmergency(slip)
	data.Slip = &slip
	data.Flash = "Emergency appointment booked. Please proceed to the emergency department."
	s.render(w, "emergency", data)
}

func (s *Server) board(r *http.Request) (*records.Board, error) {
	b := browserFrom(r.Context())
	u, _ := b.User()
	return b.bookings(u.AadhaarNumber, func(aadhaar string) (*records.Board, error) {
		return records.NewBoard(s.API, aadhaar, records.WithClock(s.Now), records.WithLogger(s.Log))
	})
}

func (s *Server) renderBookings(w http.ResponseWriter, r *http.Request, b *records.Board, errMsg string) {
	data := s.page(r, "Previous bookings")
	data.Refresh = int(s.RecordsRefresh.Seconds())
	data.Error = errMsg
	now := s.Now()
	for _, e := range b.Records() {
		data.Bookings = append(data.Bookings, bookingRow{
			Entry:  e,
			Status: records.DisplayStatus(e.HealthRecord, now),
			CanAck: records.CanAcknowledge(e.HealthRecord, now),
		})
	}
	s.render(w, "bookings", data)
}

func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request) {
	b, err := s.board(r)
	if err != nil {
		http.Error(w, booking.UserMessage(err), http.StatusBadRequest)
		return
	}
	_ = b.Refresh(r.Context())
	s.renderBookings(w, r, b, b.Err())
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	b, err := s.board(r)
	if err != nil {
		http.Error(w, booking.UserMessage(err), http.StatusBadRequest)
		return
	}
	if err := b.Refresh(r.Context()); err != nil {
		s.renderBookings(w, r, b, booking.UserMessage(err))
		return
	}
	if err := b.Acknowledge(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "action")); err != nil {
		s.renderBookings(w, r, b, booking.UserMessage(err))
		return
	}
	http.Redirect(w, r, "/bookings", http.StatusSeeOther)
}

func (s *Server) handleAppointments(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "My appointments")
	appts, err := s.API.Appointments(r.Context(), data.User.AadhaarNumber)
	if err != nil {
		data.Error = booking.UserMessage(err)
	}
	data.Appointments = appts
	s.render(w, "appointments", data)
}

func (s *Server) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "admin", s.page(r, "Create admin user"))
}

func (s *Server) handleAdminCreate(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "Create admin user")
	svc := &auth.Service{API: s.API, Log: s.Log}
	msg, err := svc.CreateUser(r.Context(), portal.CreateUserRequest{
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
		AdminKey: r.FormValue("admin_key"),
	})
	if err != nil {
		data.Error = booking.UserMessage(err)
	} else {
		data.Flash = msg
	}
	s.render(w, "admin", data)
}

// Start serves h on addr until ctx ends.
func Start(ctx context.Context, addr string, h http.Handler, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info().Str("addr", addr).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
