package cmd

import (
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/example/op-booking/internal/config"
	"github.com/example/op-booking/internal/internaltypes"
	"github.com/example/op-booking/internal/logging"
	"github.com/example/op-booking/internal/metrics"
	"github.com/example/op-booking/internal/opslip"
	"github.com/example/op-booking/internal/portal"
	"github.com/example/op-booking/internal/session"
)

// appEnv is what every command that talks to the hospital needs.
type appEnv struct {
	cfg  config.Config
	log  zerolog.Logger
	api  *portal.Client
	sess *session.Session
}

func (e *appEnv) letterhead() opslip.Letterhead {
	return opslip.Letterhead{
		Name:          e.cfg.HospitalName,
		Address:       e.cfg.HospitalAddress,
		HelpdeskEmail: e.cfg.HelpdeskEmail,
	}
}

// requireUser fails unless a patient is logged in.
func (e *appEnv) requireUser() (session.User, error) {
	u, ok := e.sess.User()
	if !ok {
		return session.User{}, internaltypes.ErrNotLoggedIn
	}
	return u, nil
}

func loadEnv(m *metrics.PortalMetrics) (*appEnv, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireSessionKeys(); err != nil {
		return nil, err
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	sess, err := session.Open(session.NewFileStore(cfg.SessionFile, cfg.SessionHashKey, cfg.SessionBlockKey))
	if err != nil {
		return nil, err
	}
	api := portal.New(cfg.APIBaseURL,
		portal.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		portal.WithLogger(log),
		portal.WithMetrics(m),
	)
	return &appEnv{cfg: cfg, log: log, api: api, sess: sess}, nil
}
